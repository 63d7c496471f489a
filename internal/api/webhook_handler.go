package api

import (
	"log"
	"net/http"

	"github.com/axonhq/axonmail/internal/ingest"
	"github.com/axonhq/axonmail/internal/transport"
)

// WebhookHandler receives inbound-mail notifications from the gateway and
// hands them to the ingestion pipeline.
type WebhookHandler struct {
	gateway  transport.Gateway
	pipeline *ingest.Pipeline
}

// NewWebhookHandler creates a new WebhookHandler instance.
func NewWebhookHandler(gateway transport.Gateway, pipeline *ingest.Pipeline) *WebhookHandler {
	return &WebhookHandler{
		gateway:  gateway,
		pipeline: pipeline,
	}
}

// Handle processes one webhook delivery. Unsigned or badly-signed payloads
// are rejected. Events other than stored-message notifications are
// acknowledged and ignored. Processing failures return 500 so the gateway
// retries the delivery.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var event ingest.WebhookEvent
	if !DecodeJSONBody(w, r, &event) {
		return
	}

	valid, err := h.gateway.VerifyWebhook(ctx, event.Signature)
	if err != nil {
		log.Printf("WebhookHandler: Signature verification errored: %v", err)
		WriteJSONError(w, http.StatusInternalServerError, "Signature verification failed")
		return
	}
	if !valid {
		log.Printf("WebhookHandler: Rejected webhook with invalid signature")
		WriteJSONError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	if !event.IsInbound() {
		WriteJSONResponse(w, nil)
		return
	}

	mail, err := h.pipeline.Process(ctx, &event)
	if err != nil {
		log.Printf("WebhookHandler: Failed to ingest message: %v", err)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to process message")
		return
	}

	log.Printf("WebhookHandler: Ingested message %s into %s", mail.MessageID, mail.Folder)
	WriteJSONResponse(w, nil)
}
