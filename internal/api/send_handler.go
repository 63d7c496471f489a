package api

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/axonhq/axonmail/internal/blob"
	"github.com/axonhq/axonmail/internal/db"
	"github.com/axonhq/axonmail/internal/models"
	"github.com/axonhq/axonmail/internal/transport"
)

// SendHandler dispatches composed messages through the mail gateway and
// records them in the Sent folder.
type SendHandler struct {
	pool    *pgxpool.Pool
	gateway transport.Gateway
	blobs   blob.Store
	from    string
}

// NewSendHandler creates a new SendHandler. from is the account address used
// as the sender of every outbound message.
func NewSendHandler(pool *pgxpool.Pool, gateway transport.Gateway, blobs blob.Store, from string) *SendHandler {
	return &SendHandler{
		pool:    pool,
		gateway: gateway,
		blobs:   blobs,
		from:    from,
	}
}

type sendRequest struct {
	To          string              `json:"to"`
	Subject     string              `json:"subject"`
	Body        string              `json:"body"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send validates and dispatches an outbound message, then records it in the
// Sent folder. Attachments were uploaded by the client beforehand; they are
// delivered as long-lived signed links embedded in the message body, so a
// recipient can still open them days later.
func (h *SendHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sendRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.To) == "" ||
		strings.TrimSpace(req.Subject) == "" ||
		strings.TrimSpace(req.Body) == "" {
		WriteJSONError(w, http.StatusBadRequest, "to, subject and body are required")
		return
	}

	body := req.Body
	if section := h.attachmentSection(req.Attachments); section != "" {
		body += section
	}

	messageID, err := h.gateway.Send(ctx, transport.OutboundMessage{
		From:    h.from,
		To:      req.To,
		Subject: req.Subject,
		Body:    body,
	})
	if err != nil {
		log.Printf("SendHandler: Failed to dispatch message: %v", err)
		WriteJSONError(w, http.StatusBadGateway, "Failed to send email")
		return
	}

	mail := &models.MailRecord{
		MessageID:   messageID,
		Sender:      h.from,
		Recipient:   req.To,
		Subject:     req.Subject,
		Body:        req.Body,
		Folder:      models.FolderSent,
		ReadStatus:  true,
		Attachments: req.Attachments,
	}
	if err := db.InsertMail(ctx, h.pool, mail); err != nil {
		// The message already left. Report the record failure but do not
		// pretend the send failed.
		log.Printf("SendHandler: Message dispatched but Sent record failed: %v", err)
		WriteJSONError(w, http.StatusInternalServerError, "Email sent but could not be recorded")
		return
	}

	WriteJSONResponse(w, sendResponse{ID: mail.ID})
}

// attachmentSection renders signed download links for the given attachments.
// Links use the long embed validity window.
func (h *SendHandler) attachmentSection(attachments []models.Attachment) string {
	if len(attachments) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nAttachments:\n")
	for _, att := range attachments {
		url, err := h.blobs.SignedURL(att.StoragePath, blob.EmbedURLValidity)
		if err != nil {
			log.Printf("SendHandler: Failed to sign URL for %s: %v", att.StoragePath, err)
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", att.Filename, url)
	}
	return b.String()
}
