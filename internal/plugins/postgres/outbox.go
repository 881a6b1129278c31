package postgres

import (
	"context"
	"database/sql"

	"dialog/internal/core/domain"

	"github.com/google/uuid"
)

type OutboxRepo struct {
	db *sql.DB
}

func NewOutboxRepo(db *sql.DB) *OutboxRepo {
	return &OutboxRepo{db: db}
}

/*
	-- Event outbox: appended inside the owning transaction, drained by the
	-- dispatcher after commit.
	CREATE TABLE event_outbox (
		id           UUID PRIMARY KEY,
		channel      TEXT NOT NULL,
		user_id      UUID,
		envelope     JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		published_at TIMESTAMPTZ,
		attempts     INT NOT NULL DEFAULT 0
	);
	CREATE INDEX event_outbox_pending_idx ON event_outbox (created_at) WHERE published_at IS NULL;
*/

// Entries past this many failed publishes stay parked for operator attention.
const maxAttempts = 10

func (r *OutboxRepo) Append(ctx context.Context, e *domain.OutboxEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO event_outbox (id, channel, user_id, envelope, created_at, attempts)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		e.ID,
		e.Channel,
		e.UserID,
		e.Envelope,
		e.CreatedAt,
		e.Attempts,
	)
	return err
}

func (r *OutboxRepo) ClaimPending(ctx context.Context, limit int) ([]domain.OutboxEntry, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, channel, user_id, envelope, created_at, attempts
		FROM event_outbox
		WHERE published_at IS NULL AND attempts < $2
		ORDER BY created_at ASC
		LIMIT $1
	`, limit, maxAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []domain.OutboxEntry
	for rows.Next() {
		var e domain.OutboxEntry
		if err := rows.Scan(
			&e.ID,
			&e.Channel,
			&e.UserID,
			&e.Envelope,
			&e.CreatedAt,
			&e.Attempts,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *OutboxRepo) MarkPublished(ctx context.Context, id uuid.UUID) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		UPDATE event_outbox SET published_at = now() WHERE id = $1
	`, id)
	return err
}

func (r *OutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		UPDATE event_outbox SET attempts = attempts + 1 WHERE id = $1
	`, id)
	return err
}
