// Package client provides the HTTP and websocket client side of the backend:
// an APIClient for the function routes and a websocket Feed for the mailbox
// change stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/axonhq/axonmail/internal/compose"
	"github.com/axonhq/axonmail/internal/mailstore"
	"github.com/axonhq/axonmail/internal/models"
)

// APIClient talks to the backend function routes. It implements the mail,
// assist and sender surfaces the engine and composer are built against.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

var (
	_ mailstore.MailAPI   = (*APIClient)(nil)
	_ mailstore.AssistAPI = (*APIClient)(nil)
	_ compose.Sender      = (*APIClient)(nil)
)

// NewAPIClient creates a client for the backend at baseURL.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ListMails fetches the mail collection, optionally restricted to a folder.
func (c *APIClient) ListMails(ctx context.Context, folder string) ([]models.MailRecord, error) {
	url := c.baseURL + "/functions/list-emails"
	if folder != "" {
		url += "?folder=" + folder
	}

	var mails []models.MailRecord
	if err := c.get(ctx, url, &mails); err != nil {
		return nil, err
	}
	return mails, nil
}

// MarkRead marks the given mail as read.
func (c *APIClient) MarkRead(ctx context.Context, id string) error {
	return c.post(ctx, "/functions/mark-read", map[string]string{"email_id": id}, nil)
}

// Summarize asks the backend to summarize the given mail. The result lands on
// the record server-side and arrives through the change feed.
func (c *APIClient) Summarize(ctx context.Context, id string) error {
	return c.post(ctx, "/functions/summarize", map[string]string{"email_id": id}, nil)
}

// GenerateReply asks the backend to draft a reply to the given mail.
func (c *APIClient) GenerateReply(ctx context.Context, id string) error {
	return c.post(ctx, "/functions/generate-reply", map[string]string{"email_id": id}, nil)
}

type sendPayload struct {
	To          string              `json:"to"`
	Subject     string              `json:"subject"`
	Body        string              `json:"body"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

// Send submits a composed message for dispatch.
func (c *APIClient) Send(ctx context.Context, req compose.SendRequest) error {
	payload := sendPayload{
		To:          req.To,
		Subject:     req.Subject,
		Body:        req.Body,
		Attachments: req.Attachments,
	}
	return c.post(ctx, "/functions/send-email", payload, nil)
}

// AttachmentURL fetches a short-lived download URL for a stored attachment.
func (c *APIClient) AttachmentURL(ctx context.Context, storagePath string) (string, error) {
	var result string
	if err := c.post(ctx, "/functions/attachment-url", map[string]string{"path": storagePath}, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (c *APIClient) get(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *APIClient) post(ctx context.Context, routePath string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+routePath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *APIClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= 400 || !envelope.Success {
		if envelope.Error != "" {
			return fmt.Errorf("server error: %s", envelope.Error)
		}
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}
