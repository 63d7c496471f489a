package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/axonhq/axonmail/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrMailNotFound is returned when a requested mail record cannot be found.
var ErrMailNotFound = errors.New("mail not found")

const mailColumns = `
	id,
	message_id,
	sender,
	recipient,
	subject,
	body,
	folder,
	COALESCE(category, ''),
	COALESCE(summary, ''),
	COALESCE(ai_draft, ''),
	is_spam,
	read_status,
	attachments,
	created_at`

// InsertMail inserts a new mail record and populates its ID and CreatedAt.
// This is the single commit point of ingestion and send: callers gather all
// fields first and write exactly once.
func InsertMail(ctx context.Context, pool *pgxpool.Pool, mail *models.MailRecord) error {
	var category, summary, aiDraft any
	if mail.Category != "" {
		category = mail.Category
	}
	if mail.Summary != "" {
		summary = mail.Summary
	}
	if mail.AIDraft != "" {
		aiDraft = mail.AIDraft
	}

	var rawPayload any
	if len(mail.RawPayload) > 0 {
		rawPayload = mail.RawPayload
	}

	// Attachments stays NULL when nothing survived processing; an empty list is
	// never stored.
	var attachments any
	if mail.Attachments != nil {
		attachments = mail.Attachments
	}

	err := pool.QueryRow(ctx, `
		INSERT INTO mails (
			message_id,
			sender,
			recipient,
			subject,
			body,
			folder,
			category,
			summary,
			ai_draft,
			is_spam,
			read_status,
			attachments,
			raw_payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at
	`,
		mail.MessageID,
		mail.Sender,
		mail.Recipient,
		mail.Subject,
		mail.Body,
		mail.Folder,
		category,
		summary,
		aiDraft,
		mail.IsSpam,
		mail.ReadStatus,
		attachments,
		rawPayload,
	).Scan(&mail.ID, &mail.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert mail: %w", err)
	}

	return nil
}

// ListMails returns mail records ordered by creation time descending.
// An empty folder returns every folder.
func ListMails(ctx context.Context, pool *pgxpool.Pool, folder string) ([]models.MailRecord, error) {
	query := `SELECT ` + mailColumns + ` FROM mails`
	args := []any{}
	if folder != "" {
		query += ` WHERE folder = $1`
		args = append(args, folder)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list mails: %w", err)
	}
	defer rows.Close()

	var mails []models.MailRecord
	for rows.Next() {
		mail, err := scanMail(rows)
		if err != nil {
			return nil, err
		}
		mails = append(mails, *mail)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mails: %w", err)
	}

	return mails, nil
}

// GetMail returns a single mail record by id.
func GetMail(ctx context.Context, pool *pgxpool.Pool, id string) (*models.MailRecord, error) {
	row := pool.QueryRow(ctx, `SELECT `+mailColumns+` FROM mails WHERE id = $1`, id)

	mail, err := scanMail(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMailNotFound
		}
		return nil, err
	}

	return mail, nil
}

// MarkRead sets the read flag on a mail record. Setting it on an already-read
// record is a harmless no-op at the database level.
func MarkRead(ctx context.Context, pool *pgxpool.Pool, id string) error {
	tag, err := pool.Exec(ctx, `UPDATE mails SET read_status = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark mail as read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMailNotFound
	}
	return nil
}

// SetSummary overwrites the AI summary of a mail record.
func SetSummary(ctx context.Context, pool *pgxpool.Pool, id, summary string) error {
	tag, err := pool.Exec(ctx, `UPDATE mails SET summary = $2 WHERE id = $1`, id, summary)
	if err != nil {
		return fmt.Errorf("failed to set summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMailNotFound
	}
	return nil
}

// SetAIDraft overwrites the AI-drafted reply of a mail record.
func SetAIDraft(ctx context.Context, pool *pgxpool.Pool, id, draft string) error {
	tag, err := pool.Exec(ctx, `UPDATE mails SET ai_draft = $2 WHERE id = $1`, id, draft)
	if err != nil {
		return fmt.Errorf("failed to set ai draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMailNotFound
	}
	return nil
}

func scanMail(row pgx.Row) (*models.MailRecord, error) {
	var mail models.MailRecord
	if err := row.Scan(
		&mail.ID,
		&mail.MessageID,
		&mail.Sender,
		&mail.Recipient,
		&mail.Subject,
		&mail.Body,
		&mail.Folder,
		&mail.Category,
		&mail.Summary,
		&mail.AIDraft,
		&mail.IsSpam,
		&mail.ReadStatus,
		&mail.Attachments,
		&mail.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("failed to scan mail: %w", err)
	}
	return &mail, nil
}
