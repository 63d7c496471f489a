// Package ingest turns an inbound-message webhook event into a stored
// MailRecord. The pipeline is stateless and single-pass: every step before the
// final insert only gathers data, so a failure part-way never leaves a partial
// record behind.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/axonhq/axonmail/internal/blob"
	"github.com/axonhq/axonmail/internal/classify"
	"github.com/axonhq/axonmail/internal/models"
	"github.com/axonhq/axonmail/internal/transport"
)

// MaxAttachmentBytes is the per-attachment size ceiling. Oversized attachments
// are skipped, not fatal.
const MaxAttachmentBytes = 10 << 20

// EventStored is the webhook event kind that carries an inbound message.
const EventStored = "stored"

// WebhookEvent is the gateway's inbound notification. It carries metadata and
// a storage reference only; message content must be retrieved separately.
type WebhookEvent struct {
	Signature transport.WebhookSignature `json:"signature"`
	EventData struct {
		Event   string `json:"event"`
		Storage struct {
			URL string `json:"url"`
			Key string `json:"key"`
		} `json:"storage"`
		Message struct {
			Headers struct {
				MessageID string `json:"message-id"`
				From      string `json:"from"`
				To        string `json:"to"`
				Subject   string `json:"subject"`
			} `json:"headers"`
		} `json:"message"`
	} `json:"event-data"`
}

// IsInbound reports whether this event should trigger ingestion.
func (e *WebhookEvent) IsInbound() bool {
	return e.EventData.Event == EventStored
}

// Recorder persists one finished mail record. It is the pipeline's single
// commit point.
type Recorder interface {
	Insert(ctx context.Context, mail *models.MailRecord) error
}

// Pipeline ingests inbound messages. It holds no per-message state and is safe
// for concurrent invocations.
type Pipeline struct {
	gateway  transport.Gateway
	blobs    blob.Store
	recorder Recorder
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(gateway transport.Gateway, blobs blob.Store, recorder Recorder) *Pipeline {
	return &Pipeline{
		gateway:  gateway,
		blobs:    blobs,
		recorder: recorder,
	}
}

// Process ingests one webhook event and returns the inserted record.
func (p *Pipeline) Process(ctx context.Context, event *WebhookEvent) (*models.MailRecord, error) {
	storageURL := event.EventData.Storage.URL
	if storageURL == "" {
		return nil, fmt.Errorf("webhook event carries no storage URL")
	}

	// The webhook payload is metadata only; the body is only available from
	// the stored message.
	stored, err := p.gateway.FetchStored(ctx, storageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve stored message: %w", err)
	}

	sender := ExtractAddress(firstNonEmpty(stored.From, event.EventData.Message.Headers.From))
	recipient := FirstRecipient(firstNonEmpty(stored.To, event.EventData.Message.Headers.To))
	subject := firstNonEmpty(stored.Subject, event.EventData.Message.Headers.Subject, models.DefaultSubject)
	body := ResolveBody(stored)

	messageID := firstNonEmpty(
		stored.MessageID,
		event.EventData.Message.Headers.MessageID,
		fmt.Sprintf("rec-%d", time.Now().UnixMilli()),
	)

	attachments := p.processAttachments(ctx, stored.Attachments)

	result := classify.Classify(sender, subject, body)

	rawPayload, err := json.Marshal(stored)
	if err != nil {
		// The snapshot is debug provenance, not required data.
		log.Printf("Ingest: failed to snapshot stored message %s: %v", messageID, err)
		rawPayload = nil
	}

	mail := &models.MailRecord{
		MessageID:   messageID,
		Sender:      sender,
		Recipient:   recipient,
		Subject:     subject,
		Body:        body,
		Folder:      result.Folder,
		Category:    result.Category,
		IsSpam:      result.IsSpam,
		Attachments: attachments,
		RawPayload:  rawPayload,
	}

	if err := p.recorder.Insert(ctx, mail); err != nil {
		return nil, fmt.Errorf("failed to insert mail record: %w", err)
	}

	return mail, nil
}

// processAttachments downloads and re-uploads each listed attachment under a
// fresh per-message namespace. Download links are time-limited and consumed
// immediately. Any single attachment's failure is skipped, never fatal; nil is
// returned when nothing survives so the field stays absent in storage.
func (p *Pipeline) processAttachments(ctx context.Context, stored []transport.StoredAttachment) []models.Attachment {
	if len(stored) == 0 {
		return nil
	}

	namespace := uuid.New().String()

	var attachments []models.Attachment
	for _, attachment := range stored {
		if attachment.SizeBytes > MaxAttachmentBytes {
			log.Printf("Ingest: skipping oversized attachment %s (%d bytes)", attachment.Name, attachment.SizeBytes)
			continue
		}

		content, err := p.gateway.DownloadAttachment(ctx, attachment.URL, MaxAttachmentBytes)
		if err != nil {
			log.Printf("Ingest: skipping attachment %s, download failed: %v", attachment.Name, err)
			continue
		}

		storagePath := path.Join("inbound", namespace, sanitizeFilename(attachment.Name))
		if err := p.blobs.Upload(ctx, storagePath, attachment.ContentType, content); err != nil {
			log.Printf("Ingest: skipping attachment %s, upload failed: %v", attachment.Name, err)
			continue
		}

		attachments = append(attachments, models.Attachment{
			Filename:    attachment.Name,
			ContentType: attachment.ContentType,
			SizeBytes:   int64(len(content)),
			StoragePath: storagePath,
		})
	}

	return attachments
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "attachment"
	}
	return name
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
