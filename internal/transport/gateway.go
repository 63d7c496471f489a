// Package transport wraps the hosted mail-delivery API (Mailgun). It is the
// only package that talks to the gateway; everything else depends on the
// Gateway interface.
package transport

import "context"

// OutboundAttachment is one attachment to include in an outbound send.
type OutboundAttachment struct {
	Filename string
	Content  []byte
}

// OutboundMessage is a fully-resolved message ready for dispatch.
type OutboundMessage struct {
	From        string
	To          string
	Subject     string
	Body        string
	Attachments []OutboundAttachment
}

// StoredAttachment is attachment metadata from a stored inbound message.
// The URL is time-limited and must be consumed immediately.
type StoredAttachment struct {
	Name        string
	ContentType string
	SizeBytes   int64
	URL         string
}

// StoredMessage is the full content of an inbound message retrieved from the
// gateway. The webhook notification alone carries metadata only; body and
// attachments always come from this retrieval.
type StoredMessage struct {
	MessageID   string
	From        string
	To          string
	Subject     string
	BodyPlain   string
	BodyHTML    string
	BodyMIME    string
	Attachments []StoredAttachment
}

// WebhookSignature is the signed triplet Mailgun includes in webhook payloads.
type WebhookSignature struct {
	Timestamp string `json:"timestamp"`
	Token     string `json:"token"`
	Signature string `json:"signature"`
}

// Gateway is the mail transport: outbound dispatch plus inbound stored-message
// retrieval.
type Gateway interface {
	// Send dispatches an outbound message and returns the gateway message id.
	Send(ctx context.Context, msg OutboundMessage) (string, error)
	// FetchStored retrieves a stored inbound message by its storage URL.
	FetchStored(ctx context.Context, storageURL string) (*StoredMessage, error)
	// DownloadAttachment fetches attachment content from a time-limited URL,
	// refusing bodies larger than limit bytes.
	DownloadAttachment(ctx context.Context, url string, limit int64) ([]byte, error)
	// VerifyWebhook reports whether a webhook signature is authentic.
	VerifyWebhook(ctx context.Context, sig WebhookSignature) (bool, error)
}
