package transport

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

// ErrAttachmentTooLarge is returned when an attachment body exceeds the
// caller's size ceiling.
var ErrAttachmentTooLarge = fmt.Errorf("attachment exceeds size limit")

// MailgunGateway implements Gateway against the Mailgun HTTP API.
type MailgunGateway struct {
	mg         *mailgun.MailgunImpl
	apiKey     string
	httpClient *http.Client
}

var _ Gateway = (*MailgunGateway)(nil)

// NewMailgunGateway creates a gateway for the given sending domain. Webhook
// signatures are verified against the API key.
func NewMailgunGateway(domain, apiKey string) *MailgunGateway {
	return &MailgunGateway{
		mg:     mailgun.NewMailgun(domain, apiKey),
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Send dispatches an outbound message and returns the gateway message id.
func (g *MailgunGateway) Send(ctx context.Context, msg OutboundMessage) (string, error) {
	m := g.mg.NewMessage(msg.From, msg.Subject, msg.Body, msg.To)
	for _, attachment := range msg.Attachments {
		m.AddBufferAttachment(attachment.Filename, attachment.Content)
	}

	_, id, err := g.mg.Send(ctx, m)
	if err != nil {
		return "", fmt.Errorf("mailgun send failed: %w", err)
	}

	return id, nil
}

// FetchStored retrieves a stored inbound message by its storage URL.
func (g *MailgunGateway) FetchStored(ctx context.Context, storageURL string) (*StoredMessage, error) {
	stored, err := g.mg.GetStoredMessage(ctx, storageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stored message: %w", err)
	}

	msg := &StoredMessage{
		From:      stored.From,
		To:        stored.Recipients,
		Subject:   stored.Subject,
		BodyPlain: stored.BodyPlain,
		BodyHTML:  stored.BodyHtml,
	}

	for _, header := range stored.MessageHeaders {
		if len(header) == 2 && header[0] == "Message-Id" {
			msg.MessageID = header[1]
		}
	}

	// Some messages carry neither a plain nor an HTML body part. The raw MIME
	// form lives behind a separate retrieval.
	if msg.BodyPlain == "" && msg.BodyHTML == "" {
		raw, err := g.mg.GetStoredMessageRaw(ctx, storageURL)
		if err != nil {
			log.Printf("MailgunGateway: failed to fetch raw MIME for %s: %v", msg.MessageID, err)
		} else {
			msg.BodyMIME = raw.BodyMime
		}
	}

	for _, attachment := range stored.Attachments {
		msg.Attachments = append(msg.Attachments, StoredAttachment{
			Name:        attachment.Name,
			ContentType: attachment.ContentType,
			SizeBytes:   int64(attachment.Size),
			URL:         attachment.Url,
		})
	}

	return msg, nil
}

// DownloadAttachment fetches attachment content from a time-limited Mailgun
// URL. The SDK has no helper for attachment bodies, so this uses a plain HTTP
// GET with API credentials. Bodies larger than limit are rejected without
// buffering them fully.
func (g *MailgunGateway) DownloadAttachment(ctx context.Context, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build attachment request: %w", err)
	}
	req.SetBasicAuth("api", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("attachment download failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment download returned status %d", resp.StatusCode)
	}

	if resp.ContentLength > limit {
		return nil, ErrAttachmentTooLarge
	}

	// Content-Length can be absent; read one byte past the limit to detect
	// oversized bodies either way.
	content, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment body: %w", err)
	}
	if int64(len(content)) > limit {
		return nil, ErrAttachmentTooLarge
	}

	return content, nil
}

// VerifyWebhook reports whether a webhook signature is authentic.
func (g *MailgunGateway) VerifyWebhook(ctx context.Context, sig WebhookSignature) (bool, error) {
	return g.mg.VerifyWebhookSignature(mailgun.Signature{
		TimeStamp: sig.Timestamp,
		Token:     sig.Token,
		Signature: sig.Signature,
	})
}
