package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/axonhq/axonmail/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// mailEventChannel is the NOTIFY channel the mails trigger publishes to.
const mailEventChannel = "mail_events"

// notification is the trigger payload: the event kind and the row id. The full
// row is re-fetched here because NOTIFY payloads are size-capped.
type notification struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Listener consumes the mails change feed over a dedicated connection and
// delivers decoded ChangeEvents to a handler. Events are delivered in
// notification order, one at a time.
type Listener struct {
	pool *pgxpool.Pool
}

// NewListener creates a change-feed listener on the given pool.
func NewListener(pool *pgxpool.Pool) *Listener {
	return &Listener{pool: pool}
}

// Listen blocks, delivering change events to handler until ctx is cancelled or
// the connection fails. The caller owns reconnection policy.
func (l *Listener) Listen(ctx context.Context, handler func(models.ChangeEvent)) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+mailEventChannel); err != nil {
		return fmt.Errorf("failed to LISTEN on %s: %w", mailEventChannel, err)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("change feed connection lost: %w", err)
		}

		event, err := l.resolveEvent(ctx, n.Payload)
		if err != nil {
			log.Printf("Listener: dropping malformed or unresolvable event: %v", err)
			continue
		}
		if event != nil {
			handler(*event)
		}
	}
}

// resolveEvent turns a raw notification payload into a ChangeEvent, fetching
// record content for inserts and updates. A nil event with nil error means the
// row disappeared between the notification and the fetch; the eventual DELETE
// notification covers it.
func (l *Listener) resolveEvent(ctx context.Context, payload string) (*models.ChangeEvent, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return nil, fmt.Errorf("failed to decode notification %q: %w", payload, err)
	}

	switch n.Kind {
	case models.EventInsert, models.EventUpdate:
		mail, err := GetMail(ctx, l.pool, n.ID)
		if err != nil {
			if errors.Is(err, ErrMailNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to fetch changed mail %s: %w", n.ID, err)
		}
		return &models.ChangeEvent{Kind: n.Kind, New: mail}, nil
	case models.EventDelete:
		return &models.ChangeEvent{Kind: n.Kind, Old: &models.MailRecord{ID: n.ID}}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", n.Kind)
	}
}
