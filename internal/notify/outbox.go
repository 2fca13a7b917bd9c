package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Outbox stores messages durably alongside the business transaction that
// produced them. Insert rides the caller's transaction; the relay publishes
// rows and marks them published.
type Outbox struct {
	db DB
}

func NewOutbox(db DB) *Outbox {
	return &Outbox{db: db}
}

// Insert writes the message using q, which is expected to be the
// transaction of the surrounding business operation.
func (o *Outbox) Insert(ctx context.Context, q DB, msg Message) error {
	_, err := q.Exec(ctx, `
		INSERT INTO notification_outbox (id, kind, subject, body, recipients, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.Kind, msg.Subject, msg.Body, msg.Recipients, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("outbox: failed to insert message %s: %w", msg.ID, err)
	}
	return nil
}

func (o *Outbox) FetchUnpublished(ctx context.Context, limit int) ([]Message, error) {
	rows, err := o.db.Query(ctx, `
		SELECT id, kind, subject, body, recipients, created_at
		FROM notification_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("outbox: failed to query unpublished messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Kind, &m.Subject, &m.Body, &m.Recipients, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("outbox: failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox: error iterating messages: %w", err)
	}
	return msgs, nil
}

func (o *Outbox) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := o.db.Exec(ctx,
		`UPDATE notification_outbox SET published_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("outbox: failed to mark message %s published: %w", id, err)
	}
	return nil
}
