package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Folder names form a small closed set. The database constrains the column to
// these values; the client never invents new ones.
const (
	FolderInbox = "Inbox"
	FolderSent  = "Sent"
	FolderSpam  = "Spam"
)

// CategoryPrimary is the default Inbox category. Records that carry no category
// are treated as Primary at read time; the default is never written back.
const CategoryPrimary = "Primary"

// NoBodyContent marks a message whose body could not be retrieved from the
// transport gateway in any representation. It is distinct from an empty body so
// the UI can tell "empty message" apart from "retrieval failed".
const NoBodyContent = "(no retrievable content)"

// DefaultSubject is stored when an inbound message carries no subject.
const DefaultSubject = "No Subject"

// MailRecord is the canonical persisted representation of one email message.
type MailRecord struct {
	ID         string `json:"id"`
	MessageID  string `json:"message_id"`
	Sender     string `json:"sender"`
	Recipient  string `json:"recipient"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	Folder     string `json:"folder"`
	Category   string `json:"category,omitempty"`
	Summary    string `json:"summary,omitempty"`
	AIDraft    string `json:"ai_draft,omitempty"`
	IsSpam     bool   `json:"is_spam"`
	ReadStatus bool   `json:"read_status"`
	// Attachments is nil when no attachment survived ingestion; an empty
	// non-nil slice is never stored.
	Attachments []Attachment `json:"attachments,omitempty"`
	// RawPayload is a write-once snapshot of the upstream webhook response,
	// kept for ingestion debugging. Client logic never reads it.
	RawPayload json.RawMessage `json:"raw_payload,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Attachment describes one stored attachment. Entries are immutable once
// written: the set is fixed at ingestion for inbound mail and at send time for
// outbound mail.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	StoragePath string `json:"storage_path"`
}

// DisplayCategory returns the record's category, defaulting to Primary when
// none is stored.
func (m *MailRecord) DisplayCategory() string {
	if m.Category == "" {
		return CategoryPrimary
	}
	return m.Category
}

// SearchText returns the lower-cased concatenation of the fields the mailbox
// search matches against.
func (m *MailRecord) SearchText() string {
	return strings.ToLower(m.Sender + " " + m.Subject + " " + m.Body)
}

// Change-feed event kinds, matching the Postgres trigger payload.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// ChangeEvent is one row-level notification from the mail change feed.
// New is set for INSERT and UPDATE; Old carries at least the id for DELETE.
type ChangeEvent struct {
	Kind string      `json:"kind"`
	New  *MailRecord `json:"new,omitempty"`
	Old  *MailRecord `json:"old,omitempty"`
}
