// Package compose implements the outbound draft lifecycle: an explicit
// Closed/Open/Minimized/Sending state machine, attachment staging, and the
// degraded-but-delivered send policy for failed uploads.
package compose

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/axonhq/axonmail/internal/blob"
	"github.com/axonhq/axonmail/internal/models"
)

// State is the compose window state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateMinimized
	StateSending
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateMinimized:
		return "minimized"
	case StateSending:
		return "sending"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrMissingFields rejects a send with an empty recipient, subject or body.
var ErrMissingFields = errors.New("recipient, subject and body are required")

// ErrSendInProgress rejects actions that are illegal while a send is in
// flight. A submitted send cannot be cancelled, so the window cannot be
// discarded until it settles.
var ErrSendInProgress = errors.New("a send is already in progress")

// ErrNotOpen rejects a send when the compose window is not open.
var ErrNotOpen = errors.New("compose window is not open")

// Draft is the user-entered content of the compose window.
type Draft struct {
	To      string
	Subject string
	Body    string
}

// StagedFile is a local file staged for upload at send time.
type StagedFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// SendRequest is the fully-resolved submission handed to the sender after
// attachment upload.
type SendRequest struct {
	To          string
	Subject     string
	Body        string
	Attachments []models.Attachment
}

// Sender submits a resolved message for dispatch.
type Sender interface {
	Send(ctx context.Context, req SendRequest) error
}

// Composer owns one compose window. The draft exists only while the window is
// open and is discarded on close or successful send.
type Composer struct {
	uploader blob.Store
	sender   Sender

	mu        sync.Mutex
	state     State
	draft     Draft
	staged    []StagedFile
	uploadErr error
}

// NewComposer creates a closed compose window.
func NewComposer(uploader blob.Store, sender Sender) *Composer {
	return &Composer{
		uploader: uploader,
		sender:   sender,
	}
}

// Open opens the window with an empty draft.
func (c *Composer) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSending {
		return
	}
	c.state = StateOpen
	c.draft = Draft{}
	c.staged = nil
	c.uploadErr = nil
}

// OpenReply opens the window pre-filled to answer the given record with its
// AI-drafted reply.
func (c *Composer) OpenReply(mail *models.MailRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSending {
		return
	}
	c.state = StateOpen
	c.draft = Draft{
		To:      mail.Sender,
		Subject: "Re: " + mail.Subject,
		Body:    mail.AIDraft,
	}
	c.staged = nil
	c.uploadErr = nil
}

// Minimize collapses an open window.
func (c *Composer) Minimize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateOpen {
		c.state = StateMinimized
	}
}

// Restore re-expands a minimized window.
func (c *Composer) Restore() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateMinimized {
		c.state = StateOpen
	}
}

// Discard closes the window and drops the draft. It fails while a send is in
// flight: an in-flight send is not cancellable.
func (c *Composer) Discard() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSending {
		return ErrSendInProgress
	}
	c.state = StateClosed
	c.draft = Draft{}
	c.staged = nil
	return nil
}

// State returns the current window state.
func (c *Composer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Draft returns the current draft content.
func (c *Composer) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetDraft replaces the draft content.
func (c *Composer) SetDraft(draft Draft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = draft
}

// AddAttachment appends a file to the staged list.
func (c *Composer) AddAttachment(file StagedFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged = append(c.staged, file)
}

// RemoveAttachment removes the staged file at index, preserving the relative
// order of the remaining entries. Out-of-range indexes are ignored.
func (c *Composer) RemoveAttachment(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.staged) {
		return
	}
	c.staged = append(c.staged[:index], c.staged[index+1:]...)
}

// Attachments returns a copy of the staged list.
func (c *Composer) Attachments() []StagedFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	staged := make([]StagedFile, len(c.staged))
	copy(staged, c.staged)
	return staged
}

// UploadError returns the attachment-upload error of the most recent send, if
// any. It is reported separately from send success: a send can deliver in a
// degraded mode with its attachments dropped.
func (c *Composer) UploadError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploadErr
}

// Send validates and submits the draft.
//
// Staged attachments are uploaded first, under a fresh per-send namespace. If
// any upload fails the remaining uploads are aborted and the message is sent
// without attachments; the upload error is retained for separate surfacing.
// On submission failure the window reopens with the draft intact so the user
// can retry without retyping. On success everything is cleared and the window
// closes; the Sent-folder record is written server-side and arrives back
// through the change feed.
func (c *Composer) Send(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateSending:
		c.mu.Unlock()
		return ErrSendInProgress
	case StateOpen, StateMinimized:
	default:
		c.mu.Unlock()
		return ErrNotOpen
	}

	draft := c.draft
	if strings.TrimSpace(draft.To) == "" ||
		strings.TrimSpace(draft.Subject) == "" ||
		strings.TrimSpace(draft.Body) == "" {
		c.mu.Unlock()
		return ErrMissingFields
	}

	c.state = StateSending
	c.uploadErr = nil
	staged := make([]StagedFile, len(c.staged))
	copy(staged, c.staged)
	c.mu.Unlock()

	attachments, uploadErr := c.uploadStaged(ctx, staged)
	if uploadErr != nil {
		// Degraded mode: deliver the message, drop the attachments, and
		// report the upload failure on its own channel.
		log.Printf("Composer: attachment upload failed, sending without attachments: %v", uploadErr)
		attachments = nil
	}

	err := c.sender.Send(ctx, SendRequest{
		To:          draft.To,
		Subject:     draft.Subject,
		Body:        draft.Body,
		Attachments: attachments,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploadErr = uploadErr

	if err != nil {
		c.state = StateOpen
		return fmt.Errorf("failed to send message: %w", err)
	}

	c.state = StateClosed
	c.draft = Draft{}
	c.staged = nil
	return nil
}

// uploadStaged uploads staged files under a per-send namespace. The first
// failure aborts the remainder.
func (c *Composer) uploadStaged(ctx context.Context, staged []StagedFile) ([]models.Attachment, error) {
	if len(staged) == 0 {
		return nil, nil
	}

	namespace := uuid.New().String()

	var attachments []models.Attachment
	for _, file := range staged {
		storagePath := path.Join("outbound", namespace, file.Filename)
		if err := c.uploader.Upload(ctx, storagePath, file.ContentType, file.Content); err != nil {
			return nil, fmt.Errorf("failed to upload attachment %s: %w", file.Filename, err)
		}
		attachments = append(attachments, models.Attachment{
			Filename:    file.Filename,
			ContentType: file.ContentType,
			SizeBytes:   int64(len(file.Content)),
			StoragePath: storagePath,
		})
	}

	return attachments, nil
}
