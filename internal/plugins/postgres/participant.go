package postgres

import (
	"context"
	"database/sql"
	"time"

	"dialog/internal/core/domain"

	"github.com/google/uuid"
)

type ParticipantRepo struct {
	db *sql.DB
}

func NewParticipantRepo(db *sql.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

/*
	-- Participants: exactly two rows per conversation, ever. Leave and
	-- rejoin mutate a row in place.
	CREATE TABLE conversation_participants (
		id              UUID PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES conversations(id),
		user_id         UUID NOT NULL,
		user_name       TEXT NOT NULL,
		user_email      TEXT NOT NULL,
		active          BOOLEAN NOT NULL DEFAULT true,
		joined_at       TIMESTAMPTZ NOT NULL,
		left_at         TIMESTAMPTZ,
		last_read_at    TIMESTAMPTZ,
		UNIQUE (conversation_id, user_id)
	);
*/

const participantColumns = `id, conversation_id, user_id, user_name, user_email, active, joined_at, left_at, last_read_at`

func scanParticipant(row interface{ Scan(...any) error }) (*domain.Participant, error) {
	var p domain.Participant
	var active bool
	var joinedAt time.Time
	var leftAt *time.Time
	if err := row.Scan(
		&p.ID,
		&p.ConversationID,
		&p.UserID,
		&p.UserName,
		&p.UserEmail,
		&active,
		&joinedAt,
		&leftAt,
		&p.LastReadAt,
	); err != nil {
		return nil, err
	}
	if active {
		p.Membership = domain.ActiveSince(joinedAt)
	} else {
		until := time.Now()
		if leftAt != nil {
			until = *leftAt
		}
		p.Membership = domain.LeftAt(joinedAt, until)
	}
	return &p, nil
}

// GetParticipant returns nil when the user has no row in the conversation.
func (r *ParticipantRepo) GetParticipant(ctx context.Context, convID, userID uuid.UUID) (*domain.Participant, error) {
	if convID == uuid.Nil {
		return nil, domain.ErrInvalidConversationID
	}
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `
		SELECT `+participantColumns+`
		FROM conversation_participants
		WHERE conversation_id = $1 AND user_id = $2
	`, convID, userID)
	p, err := scanParticipant(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *ParticipantRepo) ListByConversation(ctx context.Context, convID uuid.UUID) ([]domain.Participant, error) {
	if convID == uuid.Nil {
		return nil, domain.ErrInvalidConversationID
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT `+participantColumns+`
		FROM conversation_participants
		WHERE conversation_id = $1
		ORDER BY joined_at ASC
	`, convID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var parts []domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		parts = append(parts, *p)
	}
	return parts, rows.Err()
}

func (r *ParticipantRepo) CreateParticipant(ctx context.Context, p *domain.Participant) error {
	if p.ID == uuid.Nil {
		return domain.ErrInvalidUserID
	}
	if p.ConversationID == uuid.Nil {
		return domain.ErrInvalidConversationID
	}
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO conversation_participants (
			id, conversation_id, user_id, user_name, user_email, active, joined_at, last_read_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		p.ID,
		p.ConversationID,
		p.UserID,
		p.UserName,
		p.UserEmail,
		p.Membership.IsActive(),
		p.Membership.JoinedAt(),
		p.LastReadAt,
	)
	return err
}

// MarkLeft flips an active row to inactive. The WHERE active = true guard
// makes concurrent leave/reactivate writers serialize on the row.
func (r *ParticipantRepo) MarkLeft(ctx context.Context, participantID uuid.UUID, at time.Time) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE conversation_participants
		SET active = false, left_at = $2
		WHERE id = $1 AND active = true
	`, participantID, at)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

// Reactivate resets the same row: a fresh joined_at is the new visibility
// boundary, left_at clears.
func (r *ParticipantRepo) Reactivate(ctx context.Context, participantID uuid.UUID, at time.Time) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE conversation_participants
		SET active = true, joined_at = $2, left_at = NULL
		WHERE id = $1 AND active = false
	`, participantID, at)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func (r *ParticipantRepo) SetLastRead(ctx context.Context, participantID uuid.UUID, at time.Time) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE conversation_participants
		SET last_read_at = $2
		WHERE id = $1
	`, participantID, at)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}
