package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axonhq/axonmail/internal/models"
	"github.com/axonhq/axonmail/internal/testutil"
)

func newInboxMail(subject string) *models.MailRecord {
	return &models.MailRecord{
		MessageID: "msg-" + subject,
		Sender:    "alice@example.com",
		Recipient: "me@axonmail.dev",
		Subject:   subject,
		Body:      "Hello there",
		Folder:    models.FolderInbox,
	}
}

func TestInsertAndGetMail(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	t.Run("inserts and retrieves a mail record", func(t *testing.T) {
		mail := newInboxMail("Invoice")
		mail.Category = "Updates"
		mail.Attachments = []models.Attachment{
			{Filename: "invoice.pdf", ContentType: "application/pdf", SizeBytes: 1024, StoragePath: "inbound/msg-Invoice/invoice.pdf"},
		}

		err := InsertMail(ctx, pool, mail)
		require.NoError(t, err)
		require.NotEmpty(t, mail.ID)
		assert.False(t, mail.CreatedAt.IsZero())

		got, err := GetMail(ctx, pool, mail.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", got.Sender)
		assert.Equal(t, "Invoice", got.Subject)
		assert.Equal(t, "Updates", got.Category)
		assert.False(t, got.ReadStatus)
		require.Len(t, got.Attachments, 1)
		assert.Equal(t, "invoice.pdf", got.Attachments[0].Filename)
	})

	t.Run("attachments stay absent when none were stored", func(t *testing.T) {
		mail := newInboxMail("Plain")
		err := InsertMail(ctx, pool, mail)
		require.NoError(t, err)

		got, err := GetMail(ctx, pool, mail.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Attachments)
	})

	t.Run("returns ErrMailNotFound for unknown id", func(t *testing.T) {
		_, err := GetMail(ctx, pool, "00000000-0000-0000-0000-000000000000")
		assert.True(t, errors.Is(err, ErrMailNotFound))
	})
}

func TestListMails(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	first := newInboxMail("First")
	require.NoError(t, InsertMail(ctx, pool, first))

	sent := newInboxMail("Outbound")
	sent.Folder = models.FolderSent
	require.NoError(t, InsertMail(ctx, pool, sent))

	second := newInboxMail("Second")
	require.NoError(t, InsertMail(ctx, pool, second))

	t.Run("filters by folder, newest first", func(t *testing.T) {
		mails, err := ListMails(ctx, pool, models.FolderInbox)
		require.NoError(t, err)
		require.Len(t, mails, 2)
		assert.Equal(t, "Second", mails[0].Subject)
		assert.Equal(t, "First", mails[1].Subject)
	})

	t.Run("empty folder returns all", func(t *testing.T) {
		mails, err := ListMails(ctx, pool, "")
		require.NoError(t, err)
		assert.Len(t, mails, 3)
	})
}

func TestMailUpdates(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	mail := newInboxMail("Updatable")
	require.NoError(t, InsertMail(ctx, pool, mail))

	t.Run("MarkRead sets the read flag", func(t *testing.T) {
		require.NoError(t, MarkRead(ctx, pool, mail.ID))

		got, err := GetMail(ctx, pool, mail.ID)
		require.NoError(t, err)
		assert.True(t, got.ReadStatus)
	})

	t.Run("SetSummary and SetAIDraft overwrite AI fields", func(t *testing.T) {
		require.NoError(t, SetSummary(ctx, pool, mail.ID, "short summary"))
		require.NoError(t, SetAIDraft(ctx, pool, mail.ID, "draft reply"))

		got, err := GetMail(ctx, pool, mail.ID)
		require.NoError(t, err)
		assert.Equal(t, "short summary", got.Summary)
		assert.Equal(t, "draft reply", got.AIDraft)

		// A regenerate overwrites, never merges.
		require.NoError(t, SetSummary(ctx, pool, mail.ID, "newer summary"))
		got, err = GetMail(ctx, pool, mail.ID)
		require.NoError(t, err)
		assert.Equal(t, "newer summary", got.Summary)
	})

	t.Run("updates on missing rows report ErrMailNotFound", func(t *testing.T) {
		missing := "00000000-0000-0000-0000-000000000000"
		assert.ErrorIs(t, MarkRead(ctx, pool, missing), ErrMailNotFound)
		assert.ErrorIs(t, SetSummary(ctx, pool, missing, "x"), ErrMailNotFound)
		assert.ErrorIs(t, SetAIDraft(ctx, pool, missing, "x"), ErrMailNotFound)
	})
}

func TestListenerDeliversChangeEvents(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan models.ChangeEvent, 10)
	listener := NewListener(pool)

	go func() {
		_ = listener.Listen(ctx, func(event models.ChangeEvent) {
			events <- event
		})
	}()

	// Give LISTEN a moment to be established before writing.
	time.Sleep(500 * time.Millisecond)

	mail := newInboxMail("Realtime")
	require.NoError(t, InsertMail(ctx, pool, mail))

	select {
	case event := <-events:
		assert.Equal(t, models.EventInsert, event.Kind)
		require.NotNil(t, event.New)
		assert.Equal(t, mail.ID, event.New.ID)
		assert.Equal(t, "Realtime", event.New.Subject)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for INSERT event")
	}

	require.NoError(t, MarkRead(ctx, pool, mail.ID))

	select {
	case event := <-events:
		assert.Equal(t, models.EventUpdate, event.Kind)
		require.NotNil(t, event.New)
		assert.True(t, event.New.ReadStatus)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for UPDATE event")
	}

	tag, err := pool.Exec(ctx, "DELETE FROM mails WHERE id = $1", mail.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, tag.RowsAffected())

	select {
	case event := <-events:
		assert.Equal(t, models.EventDelete, event.Kind)
		require.NotNil(t, event.Old)
		assert.Equal(t, mail.ID, event.Old.ID)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for DELETE event")
	}
}
