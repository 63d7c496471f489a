package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/axonhq/axonmail/internal/db"
	"github.com/axonhq/axonmail/internal/models"
)

// MailsHandler serves the mail collection routes.
type MailsHandler struct {
	pool *pgxpool.Pool
}

// NewMailsHandler creates a new MailsHandler instance.
func NewMailsHandler(pool *pgxpool.Pool) *MailsHandler {
	return &MailsHandler{pool: pool}
}

var validFolders = map[string]bool{
	models.FolderInbox: true,
	models.FolderSent:  true,
	models.FolderSpam:  true,
}

// ListMails returns the mail collection, newest first, optionally restricted
// to a folder via the ?folder= query parameter.
func (h *MailsHandler) ListMails(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")
	if folder != "" && !validFolders[folder] {
		WriteJSONError(w, http.StatusBadRequest, "Unknown folder")
		return
	}

	mails, err := db.ListMails(r.Context(), h.pool, folder)
	if err != nil {
		log.Printf("MailsHandler: Failed to list mails: %v", err)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to list emails")
		return
	}

	WriteJSONResponse(w, mails)
}

type markReadRequest struct {
	EmailID string `json:"email_id"`
}

// MarkRead marks a mail as read. Marking an already-read mail succeeds.
func (h *MailsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	if req.EmailID == "" {
		WriteJSONError(w, http.StatusBadRequest, "email_id is required")
		return
	}

	if err := db.MarkRead(r.Context(), h.pool, req.EmailID); err != nil {
		if errors.Is(err, db.ErrMailNotFound) {
			WriteJSONError(w, http.StatusNotFound, "Email not found")
			return
		}
		log.Printf("MailsHandler: Failed to mark mail %s read: %v", req.EmailID, err)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to mark email read")
		return
	}

	WriteJSONResponse(w, nil)
}
