package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axonhq/axonmail/internal/compose"
	"github.com/axonhq/axonmail/internal/models"
)

func respond(w http.ResponseWriter, status int, envelope apiEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope)
}

func respondData(w http.ResponseWriter, data interface{}) {
	raw, _ := json.Marshal(data)
	respond(w, http.StatusOK, apiEnvelope{Success: true, Data: raw})
}

func TestListMails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/functions/list-emails", r.URL.Path)
		assert.Equal(t, "Inbox", r.URL.Query().Get("folder"))
		respondData(w, []models.MailRecord{
			{ID: "1", Subject: "first"},
			{ID: "2", Subject: "second"},
		})
	}))
	defer server.Close()

	mails, err := NewAPIClient(server.URL).ListMails(context.Background(), "Inbox")
	require.NoError(t, err)
	require.Len(t, mails, 2)
	assert.Equal(t, "first", mails[0].Subject)
}

func TestListMailsOmitsEmptyFolder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("folder"))
		respondData(w, []models.MailRecord{})
	}))
	defer server.Close()

	_, err := NewAPIClient(server.URL).ListMails(context.Background(), "")
	require.NoError(t, err)
}

func TestMarkRead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/functions/mark-read", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "mail-1", payload["email_id"])

		respond(w, http.StatusOK, apiEnvelope{Success: true})
	}))
	defer server.Close()

	err := NewAPIClient(server.URL).MarkRead(context.Background(), "mail-1")
	assert.NoError(t, err)
}

func TestSummarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/functions/summarize", r.URL.Path)
		respondData(w, "- point one")
	}))
	defer server.Close()

	err := NewAPIClient(server.URL).Summarize(context.Background(), "mail-1")
	require.NoError(t, err)
}

func TestSendPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/functions/send-email", r.URL.Path)

		var payload sendPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "x@y.com", payload.To)
		require.Len(t, payload.Attachments, 1)
		assert.Equal(t, "outbound/ns/a.txt", payload.Attachments[0].StoragePath)

		respond(w, http.StatusOK, apiEnvelope{Success: true})
	}))
	defer server.Close()

	err := NewAPIClient(server.URL).Send(context.Background(), compose.SendRequest{
		To:      "x@y.com",
		Subject: "s",
		Body:    "b",
		Attachments: []models.Attachment{
			{Filename: "a.txt", StoragePath: "outbound/ns/a.txt"},
		},
	})
	assert.NoError(t, err)
}

func TestServerErrorSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusBadRequest, apiEnvelope{Success: false, Error: "email_id is required"})
	}))
	defer server.Close()

	err := NewAPIClient(server.URL).MarkRead(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email_id is required")
}
