package postgres

import (
	"context"
	"database/sql"
	"time"

	"dialog/internal/core/domain"

	"github.com/google/uuid"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

/*
	-- Messages: immutable; hard delete only.
	CREATE TABLE messages (
		id              UUID PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES conversations(id),
		sender_id       UUID NOT NULL,
		content         TEXT NOT NULL,
		sent_at         TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX messages_conversation_sent_idx ON messages (conversation_id, sent_at);
*/

func (r *MessageRepo) GetMessageByID(ctx context.Context, msgID uuid.UUID) (*domain.Message, error) {
	if msgID == uuid.Nil {
		return nil, domain.ErrInvalidMessageID
	}
	msg := &domain.Message{ID: msgID}
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, `
		SELECT conversation_id, sender_id, content, sent_at
		FROM messages
		WHERE id = $1
	`, msgID).Scan(&msg.ConversationID, &msg.SenderID, &msg.Content, &msg.SentAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return msg, nil
}

func (r *MessageRepo) CreateMessage(ctx context.Context, msg *domain.Message) error {
	if msg.ConversationID == uuid.Nil {
		return domain.ErrInvalidConversationID
	}
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO messages (
			id, conversation_id, sender_id, content, sent_at
		) VALUES ($1, $2, $3, $4, $5)
	`,
		msg.ID,
		msg.ConversationID,
		msg.SenderID,
		msg.Content,
		msg.SentAt,
	)
	return err
}

func (r *MessageRepo) DeleteMessage(ctx context.Context, msgID uuid.UUID) error {
	if msgID == uuid.Nil {
		return domain.ErrInvalidMessageID
	}
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, msgID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// ListVisible applies the membership boundary: strictly after since.
func (r *MessageRepo) ListVisible(ctx context.Context, convID uuid.UUID, since time.Time) ([]domain.Message, error) {
	if convID == uuid.Nil {
		return nil, domain.ErrInvalidConversationID
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, content, sent_at
		FROM messages
		WHERE conversation_id = $1
		  AND sent_at > $2
		ORDER BY sent_at ASC
	`, convID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&m.SenderID,
			&m.Content,
			&m.SentAt,
		); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// LatestPerConversation is the batch preview query for conversation listing.
func (r *MessageRepo) LatestPerConversation(ctx context.Context, convIDs []uuid.UUID) (map[uuid.UUID]domain.Message, error) {
	latest := make(map[uuid.UUID]domain.Message, len(convIDs))
	if len(convIDs) == 0 {
		return latest, nil
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT DISTINCT ON (conversation_id)
			id, conversation_id, sender_id, content, sent_at
		FROM messages
		WHERE conversation_id = ANY($1)
		ORDER BY conversation_id, sent_at DESC
	`, convIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&m.SenderID,
			&m.Content,
			&m.SentAt,
		); err != nil {
			return nil, err
		}
		latest[m.ConversationID] = m
	}
	return latest, rows.Err()
}
