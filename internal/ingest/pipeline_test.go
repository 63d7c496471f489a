package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axonhq/axonmail/internal/models"
	"github.com/axonhq/axonmail/internal/transport"
)

type fakeGateway struct {
	stored       *transport.StoredMessage
	fetchErr     error
	downloads    map[string][]byte
	downloadErrs map[string]error
}

func (g *fakeGateway) Send(context.Context, transport.OutboundMessage) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func (g *fakeGateway) FetchStored(_ context.Context, _ string) (*transport.StoredMessage, error) {
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	return g.stored, nil
}

func (g *fakeGateway) DownloadAttachment(_ context.Context, url string, limit int64) ([]byte, error) {
	if err := g.downloadErrs[url]; err != nil {
		return nil, err
	}
	content := g.downloads[url]
	if int64(len(content)) > limit {
		return nil, transport.ErrAttachmentTooLarge
	}
	return content, nil
}

func (g *fakeGateway) VerifyWebhook(context.Context, transport.WebhookSignature) (bool, error) {
	return true, nil
}

type fakeBlobStore struct {
	objects   map[string][]byte
	uploadErr map[string]error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte), uploadErr: make(map[string]error)}
}

func (s *fakeBlobStore) Upload(_ context.Context, path, _ string, content []byte) error {
	for suffix, err := range s.uploadErr {
		if len(path) >= len(suffix) && path[len(path)-len(suffix):] == suffix {
			return err
		}
	}
	s.objects[path] = content
	return nil
}

func (s *fakeBlobStore) SignedURL(path string, _ time.Duration) (string, error) {
	return "https://blobs.example.com/" + path, nil
}

type fakeRecorder struct {
	inserted  []*models.MailRecord
	insertErr error
}

func (r *fakeRecorder) Insert(_ context.Context, mail *models.MailRecord) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, mail)
	return nil
}

func storedEvent() *WebhookEvent {
	event := &WebhookEvent{}
	event.EventData.Event = EventStored
	event.EventData.Storage.URL = "https://storage.example.com/messages/key123"
	return event
}

func TestProcessBodyResolution(t *testing.T) {
	tests := []struct {
		name   string
		stored *transport.StoredMessage
		want   string
	}{
		{
			name:   "plain text wins",
			stored: &transport.StoredMessage{From: "a@b.com", To: "me@axonmail.dev", BodyPlain: "plain", BodyHTML: "<p>html</p>"},
			want:   "plain",
		},
		{
			name:   "html when text absent",
			stored: &transport.StoredMessage{From: "a@b.com", To: "me@axonmail.dev", BodyHTML: "<p>Hi</p>"},
			want:   "<p>Hi</p>",
		},
		{
			name:   "sentinel when both absent",
			stored: &transport.StoredMessage{From: "a@b.com", To: "me@axonmail.dev"},
			want:   models.NoBodyContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := &fakeRecorder{}
			pipeline := NewPipeline(&fakeGateway{stored: tt.stored}, newFakeBlobStore(), recorder)

			mail, err := pipeline.Process(context.Background(), storedEvent())
			require.NoError(t, err)
			assert.Equal(t, tt.want, mail.Body)
			require.Len(t, recorder.inserted, 1)
		})
	}
}

func TestProcessResolvesBodyFromRawMIME(t *testing.T) {
	mime := "From: a@b.com\r\n" +
		"To: me@axonmail.dev\r\n" +
		"Subject: mime only\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"body from mime\r\n"

	stored := &transport.StoredMessage{From: "a@b.com", To: "me@axonmail.dev", BodyMIME: mime}
	pipeline := NewPipeline(&fakeGateway{stored: stored}, newFakeBlobStore(), &fakeRecorder{})

	mail, err := pipeline.Process(context.Background(), storedEvent())
	require.NoError(t, err)
	assert.Equal(t, "body from mime", mail.Body)
}

func TestProcessAddressAndSubjectDefaults(t *testing.T) {
	stored := &transport.StoredMessage{
		From:      `"Alice Smith" <alice@example.com>`,
		To:        `"Me" <me@axonmail.dev>, other@axonmail.dev`,
		BodyPlain: "hello",
	}
	recorder := &fakeRecorder{}
	pipeline := NewPipeline(&fakeGateway{stored: stored}, newFakeBlobStore(), recorder)

	mail, err := pipeline.Process(context.Background(), storedEvent())
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", mail.Sender)
	assert.Equal(t, "me@axonmail.dev", mail.Recipient)
	assert.Equal(t, models.DefaultSubject, mail.Subject)
	assert.Equal(t, models.FolderInbox, mail.Folder)
	// No message-id anywhere in the payload: a synthetic one is generated.
	assert.Contains(t, mail.MessageID, "rec-")
	assert.NotEmpty(t, mail.RawPayload)
}

func TestProcessAttachments(t *testing.T) {
	t.Run("downloads and re-uploads survivors", func(t *testing.T) {
		stored := &transport.StoredMessage{
			From:      "a@b.com",
			To:        "me@axonmail.dev",
			BodyPlain: "hello",
			Attachments: []transport.StoredAttachment{
				{Name: "report.pdf", ContentType: "application/pdf", SizeBytes: 4, URL: "https://dl/1"},
				{Name: "notes.txt", ContentType: "text/plain", SizeBytes: 5, URL: "https://dl/2"},
			},
		}
		gateway := &fakeGateway{
			stored:    stored,
			downloads: map[string][]byte{"https://dl/1": []byte("pdf!"), "https://dl/2": []byte("notes")},
		}
		blobs := newFakeBlobStore()
		pipeline := NewPipeline(gateway, blobs, &fakeRecorder{})

		mail, err := pipeline.Process(context.Background(), storedEvent())
		require.NoError(t, err)
		require.Len(t, mail.Attachments, 2)
		assert.Equal(t, "report.pdf", mail.Attachments[0].Filename)
		assert.Equal(t, int64(4), mail.Attachments[0].SizeBytes)
		assert.Len(t, blobs.objects, 2)
		assert.Contains(t, mail.Attachments[0].StoragePath, "inbound/")
	})

	t.Run("oversized attachment is skipped, ingestion still commits", func(t *testing.T) {
		stored := &transport.StoredMessage{
			From:      "a@b.com",
			To:        "me@axonmail.dev",
			BodyPlain: "hello",
			Attachments: []transport.StoredAttachment{
				{Name: "huge.iso", ContentType: "application/octet-stream", SizeBytes: 15 << 20, URL: "https://dl/huge"},
			},
		}
		recorder := &fakeRecorder{}
		pipeline := NewPipeline(&fakeGateway{stored: stored}, newFakeBlobStore(), recorder)

		mail, err := pipeline.Process(context.Background(), storedEvent())
		require.NoError(t, err)
		require.Len(t, recorder.inserted, 1)
		// Absent, not an empty list.
		assert.Nil(t, mail.Attachments)
	})

	t.Run("single failure does not abort the rest", func(t *testing.T) {
		stored := &transport.StoredMessage{
			From:      "a@b.com",
			To:        "me@axonmail.dev",
			BodyPlain: "hello",
			Attachments: []transport.StoredAttachment{
				{Name: "bad.bin", SizeBytes: 4, URL: "https://dl/bad"},
				{Name: "good.txt", ContentType: "text/plain", SizeBytes: 4, URL: "https://dl/good"},
			},
		}
		gateway := &fakeGateway{
			stored:       stored,
			downloads:    map[string][]byte{"https://dl/good": []byte("good")},
			downloadErrs: map[string]error{"https://dl/bad": fmt.Errorf("link expired")},
		}
		pipeline := NewPipeline(gateway, newFakeBlobStore(), &fakeRecorder{})

		mail, err := pipeline.Process(context.Background(), storedEvent())
		require.NoError(t, err)
		require.Len(t, mail.Attachments, 1)
		assert.Equal(t, "good.txt", mail.Attachments[0].Filename)
	})
}

func TestProcessFailsBeforeCommitPoint(t *testing.T) {
	t.Run("missing storage URL", func(t *testing.T) {
		recorder := &fakeRecorder{}
		pipeline := NewPipeline(&fakeGateway{}, newFakeBlobStore(), recorder)

		event := storedEvent()
		event.EventData.Storage.URL = ""

		_, err := pipeline.Process(context.Background(), event)
		assert.Error(t, err)
		assert.Empty(t, recorder.inserted)
	})

	t.Run("stored message retrieval failure", func(t *testing.T) {
		recorder := &fakeRecorder{}
		pipeline := NewPipeline(&fakeGateway{fetchErr: fmt.Errorf("gateway down")}, newFakeBlobStore(), recorder)

		_, err := pipeline.Process(context.Background(), storedEvent())
		assert.Error(t, err)
		assert.Empty(t, recorder.inserted)
	})
}

func TestProcessClassifiesSpam(t *testing.T) {
	stored := &transport.StoredMessage{
		From:      "stranger@shady.biz",
		To:        "me@axonmail.dev",
		Subject:   "You could win money",
		BodyPlain: "click here",
	}
	pipeline := NewPipeline(&fakeGateway{stored: stored}, newFakeBlobStore(), &fakeRecorder{})

	mail, err := pipeline.Process(context.Background(), storedEvent())
	require.NoError(t, err)
	assert.Equal(t, models.FolderSpam, mail.Folder)
	assert.True(t, mail.IsSpam)
}

func TestExtractAddress(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"Alice" <alice@example.com>`, "alice@example.com"},
		{`alice@example.com`, "alice@example.com"},
		{`Alice Smith <alice@example.com>`, "alice@example.com"},
		{`not-an-address`, "not-an-address"},
		{``, ``},
	}

	for _, tt := range tests {
		if got := ExtractAddress(tt.raw); got != tt.want {
			t.Errorf("ExtractAddress(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
