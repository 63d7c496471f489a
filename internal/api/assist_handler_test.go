package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axonhq/axonmail/internal/db"
	"github.com/axonhq/axonmail/internal/models"
	"github.com/axonhq/axonmail/internal/testutil"
)

type fakeAssistant struct {
	summary string
	draft   string
	err     error
}

func (f *fakeAssistant) Summarize(ctx context.Context, body string) (string, error) {
	return f.summary, f.err
}

func (f *fakeAssistant) DraftReply(ctx context.Context, body string) (string, error) {
	return f.draft, f.err
}

func postAssist(handlerFunc http.HandlerFunc, route, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, route, strings.NewReader(body))
	rr := httptest.NewRecorder()
	handlerFunc(rr, req)
	return rr
}

func dataString(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	envelope := decodeEnvelope(t, rr)
	raw, _ := json.Marshal(envelope.Data)
	var s string
	require.NoError(t, json.Unmarshal(raw, &s))
	return s
}

func TestSummarizePersistsResult(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()

	mail := &models.MailRecord{
		MessageID: "m1", Sender: "a@x.com", Recipient: "me@axon.test",
		Subject: "s", Body: "long email text", Folder: models.FolderInbox,
	}
	require.NoError(t, db.InsertMail(ctx, pool, mail))

	handler := NewAssistHandler(pool, &fakeAssistant{summary: "- short"})
	rr := postAssist(handler.Summarize, "/functions/summarize", `{"email_id": "`+mail.ID+`"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "- short", dataString(t, rr))

	got, err := db.GetMail(ctx, pool, mail.ID)
	require.NoError(t, err)
	assert.Equal(t, "- short", got.Summary)
}

func TestGenerateReplyPersistsResult(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()

	mail := &models.MailRecord{
		MessageID: "m1", Sender: "a@x.com", Recipient: "me@axon.test",
		Subject: "s", Body: "question", Folder: models.FolderInbox,
	}
	require.NoError(t, db.InsertMail(ctx, pool, mail))

	handler := NewAssistHandler(pool, &fakeAssistant{draft: "Dear Alice"})
	rr := postAssist(handler.GenerateReply, "/functions/generate-reply", `{"email_id": "`+mail.ID+`"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Dear Alice", dataString(t, rr))

	got, err := db.GetMail(ctx, pool, mail.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dear Alice", got.AIDraft)
}

func TestAssistErrors(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()

	mail := &models.MailRecord{
		MessageID: "m1", Sender: "a@x.com", Recipient: "me@axon.test",
		Subject: "s", Body: "b", Folder: models.FolderInbox,
	}
	require.NoError(t, db.InsertMail(ctx, pool, mail))

	t.Run("missing email_id", func(t *testing.T) {
		handler := NewAssistHandler(pool, &fakeAssistant{})
		rr := postAssist(handler.Summarize, "/functions/summarize", `{}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown mail", func(t *testing.T) {
		handler := NewAssistHandler(pool, &fakeAssistant{})
		rr := postAssist(handler.Summarize, "/functions/summarize", `{"email_id": "00000000-0000-0000-0000-000000000000"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("ai unavailable", func(t *testing.T) {
		handler := NewAssistHandler(pool, &fakeAssistant{err: errors.New("rate limited")})
		rr := postAssist(handler.Summarize, "/functions/summarize", `{"email_id": "`+mail.ID+`"}`)
		assert.Equal(t, http.StatusBadGateway, rr.Code)

		got, err := db.GetMail(ctx, pool, mail.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Summary, "nothing persisted on failure")
	})
}
