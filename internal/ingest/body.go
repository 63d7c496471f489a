package ingest

import (
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/axonhq/axonmail/internal/models"
	"github.com/axonhq/axonmail/internal/transport"
)

// ResolveBody picks the stored body text using a strict precedence order:
// plain text, then HTML, then text or HTML recovered from the raw MIME, then
// the no-content sentinel. An empty string is never returned silently; the
// sentinel keeps "retrieval failed" distinguishable from "empty message".
func ResolveBody(msg *transport.StoredMessage) string {
	if msg.BodyPlain != "" {
		return msg.BodyPlain
	}
	if msg.BodyHTML != "" {
		return msg.BodyHTML
	}

	if msg.BodyMIME != "" {
		if envelope, err := enmime.ReadEnvelope(strings.NewReader(msg.BodyMIME)); err == nil {
			// Decoded parts keep the final CRLF of the MIME body.
			if text := strings.TrimRight(envelope.Text, "\r\n"); text != "" {
				return text
			}
			if html := strings.TrimRight(envelope.HTML, "\r\n"); html != "" {
				return html
			}
		}
	}

	return models.NoBodyContent
}
