package postgres

import (
	"context"
	"database/sql"
	"time"

	"dialog/internal/core/domain"

	"github.com/google/uuid"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

/*
	-- Conversations
	CREATE TABLE conversations (
		id          UUID PRIMARY KEY,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);
*/

func (r *ConversationRepo) GetConversationByID(ctx context.Context, convID uuid.UUID) (*domain.Conversation, error) {
	if convID == uuid.Nil {
		return nil, domain.ErrInvalidConversationID
	}
	conversation := &domain.Conversation{ID: convID}
	query := `SELECT created_at, updated_at FROM conversations WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, query, convID).Scan(&conversation.CreatedAt, &conversation.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	return conversation, nil
}

func (r *ConversationRepo) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	if conv.ID == uuid.Nil {
		return domain.ErrInvalidConversationID
	}
	query := `
		INSERT INTO conversations (id, created_at, updated_at)
		VALUES ($1, $2, $3)
	`
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, query, conv.ID, conv.CreatedAt, conv.UpdatedAt)
	return err
}

// Touch bumps updated_at. GREATEST keeps it monotonic under concurrent sends.
func (r *ConversationRepo) Touch(ctx context.Context, convID uuid.UUID, at time.Time) error {
	if convID == uuid.Nil {
		return domain.ErrInvalidConversationID
	}
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE conversations
		SET updated_at = GREATEST(updated_at, $2)
		WHERE id = $1
	`, convID, at)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

// FindDirectBetween resolves the conversation whose participant user-id set
// is exactly {userA, userB}, counted without regard to active state. The
// grouping makes the lookup order-insensitive and rejects any conversation
// with a third user id.
func (r *ConversationRepo) FindDirectBetween(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, error) {
	if userA == uuid.Nil || userB == uuid.Nil {
		return nil, domain.ErrInvalidUserID
	}
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `
		SELECT c.id, c.created_at, c.updated_at
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id
		GROUP BY c.id
		HAVING bool_and(p.user_id IN ($1, $2))
		   AND count(DISTINCT p.user_id) = 2
	`, userA, userB)
	var c domain.Conversation
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrInvalidUserID
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT c.id, c.created_at, c.updated_at
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id
		WHERE p.user_id = $1
		ORDER BY c.updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var convs []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		if err := rows.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}
