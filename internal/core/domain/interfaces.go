package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository reads identities owned by the external identity subsystem.
type UserRepository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// ConversationRepository handles the conversation lifecycle. FindDirectBetween
// is the composite "exactly these two participant user ids" query and is
// insensitive to argument order.
type ConversationRepository interface {
	GetConversationByID(ctx context.Context, convID uuid.UUID) (*Conversation, error)
	CreateConversation(ctx context.Context, conv *Conversation) error
	// Touch bumps updated_at; the new value never moves backwards.
	Touch(ctx context.Context, convID uuid.UUID, at time.Time) error
	// FindDirectBetween returns the single conversation whose participant set
	// is exactly {userA, userB}, or nil when none exists.
	FindDirectBetween(ctx context.Context, userA, userB uuid.UUID) (*Conversation, error)
	// ListByUserID returns every conversation the user has a participant row
	// in, most recently updated first.
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]Conversation, error)
}

// ParticipantRepository mutates membership rows. Leave and Reactivate update
// the existing row; a user already represented in a conversation never gets a
// second row.
type ParticipantRepository interface {
	GetParticipant(ctx context.Context, convID, userID uuid.UUID) (*Participant, error)
	ListByConversation(ctx context.Context, convID uuid.UUID) ([]Participant, error)
	CreateParticipant(ctx context.Context, p *Participant) error
	// MarkLeft flips the row to Left{since, until=now}. The row must be active.
	MarkLeft(ctx context.Context, participantID uuid.UUID, at time.Time) error
	// Reactivate flips the row back to Active{since=at}, clearing left_at.
	Reactivate(ctx context.Context, participantID uuid.UUID, at time.Time) error
	SetLastRead(ctx context.Context, participantID uuid.UUID, at time.Time) error
}

// MessageRepository persists immutable messages and serves the visibility
// query.
type MessageRepository interface {
	GetMessageByID(ctx context.Context, msgID uuid.UUID) (*Message, error)
	CreateMessage(ctx context.Context, msg *Message) error
	DeleteMessage(ctx context.Context, msgID uuid.UUID) error
	// ListVisible returns messages with sent_at strictly after since,
	// ascending by sent_at.
	ListVisible(ctx context.Context, convID uuid.UUID, since time.Time) ([]Message, error)
	// LatestPerConversation is the batch preview query for listing: the most
	// recent message per conversation id.
	LatestPerConversation(ctx context.Context, convIDs []uuid.UUID) (map[uuid.UUID]Message, error)
}

// OutboxEntry is one event awaiting delivery. Entries are appended inside the
// same transaction as the state change they announce and published after
// commit by the dispatcher.
type OutboxEntry struct {
	ID        uuid.UUID
	Channel   string
	UserID    *uuid.UUID // set for per-user delivery, nil for channel broadcast
	Envelope  []byte
	CreatedAt time.Time
	Attempts  int
}

// OutboxRepository is the durable leg of event delivery.
type OutboxRepository interface {
	Append(ctx context.Context, e *OutboxEntry) error
	// ClaimPending returns up to limit unpublished entries, oldest first.
	ClaimPending(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}
