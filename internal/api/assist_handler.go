package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/axonhq/axonmail/internal/ai"
	"github.com/axonhq/axonmail/internal/db"
)

// AssistHandler serves the AI routes. Each route fetches the mail body,
// runs the text service, persists the result on the record, and returns the
// text. The persisted update flows back to clients through the change feed.
type AssistHandler struct {
	pool      *pgxpool.Pool
	assistant ai.TextService
}

// NewAssistHandler creates a new AssistHandler instance.
func NewAssistHandler(pool *pgxpool.Pool, assistant ai.TextService) *AssistHandler {
	return &AssistHandler{
		pool:      pool,
		assistant: assistant,
	}
}

type assistRequest struct {
	EmailID string `json:"email_id"`
}

// Summarize generates and persists a summary for a mail.
func (h *AssistHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	h.assist(w, r, "summarize", h.assistant.Summarize, db.SetSummary)
}

// GenerateReply generates and persists a drafted reply for a mail.
func (h *AssistHandler) GenerateReply(w http.ResponseWriter, r *http.Request) {
	h.assist(w, r, "generate-reply", h.assistant.DraftReply, db.SetAIDraft)
}

func (h *AssistHandler) assist(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	generate func(ctx context.Context, body string) (string, error),
	persist func(ctx context.Context, pool *pgxpool.Pool, id, text string) error,
) {
	ctx := r.Context()

	var req assistRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	if req.EmailID == "" {
		WriteJSONError(w, http.StatusBadRequest, "email_id is required")
		return
	}

	mail, err := db.GetMail(ctx, h.pool, req.EmailID)
	if err != nil {
		if errors.Is(err, db.ErrMailNotFound) {
			WriteJSONError(w, http.StatusNotFound, "Email not found")
			return
		}
		log.Printf("AssistHandler: Failed to get mail %s: %v", req.EmailID, err)
		WriteJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	text, err := generate(ctx, mail.Body)
	if err != nil {
		log.Printf("AssistHandler: %s failed for mail %s: %v", action, req.EmailID, err)
		WriteJSONError(w, http.StatusBadGateway, "AI service unavailable")
		return
	}

	if err := persist(ctx, h.pool, req.EmailID, text); err != nil {
		log.Printf("AssistHandler: Failed to persist %s result for mail %s: %v", action, req.EmailID, err)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to save result")
		return
	}

	WriteJSONResponse(w, text)
}
