package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"dialog/internal/core/domain"
	"dialog/internal/platform/logger"

	"github.com/google/uuid"
)

// BroadcastService is the Event Broadcaster. It wraps every event in the
// {type, payload} envelope and decides where it goes: conversation-wide
// events are appended once for the conversation channel, conversation updates
// fan out to each active participant's private channel. Entries go through
// the outbox, so calling these inside a transaction makes the append atomic
// with the state change; the dispatcher publishes after commit.
type BroadcastService struct {
	log    *slog.Logger
	outbox domain.OutboxRepository
}

func NewBroadcastService(log *slog.Logger, outbox domain.OutboxRepository) *BroadcastService {
	return &BroadcastService{
		log:    log,
		outbox: outbox,
	}
}

// NewMessage announces an accepted message once on the conversation channel.
func (b *BroadcastService) NewMessage(ctx context.Context, msg *domain.Message) error {
	env := domain.Envelope{
		Type: domain.EventNewMessage,
		Payload: domain.MessagePayload{
			ID:             msg.ID,
			ConversationID: msg.ConversationID,
			SenderID:       msg.SenderID,
			Content:        msg.Content,
			SentAt:         msg.SentAt,
		},
	}
	return b.append(ctx, domain.ConversationChannel(msg.ConversationID), nil, env)
}

// ConversationUpdate fans out to every currently-active participant's private
// channel. Participants without a resolvable address are skipped. The loop is
// generic over the list even though a direct conversation always has two rows.
func (b *BroadcastService) ConversationUpdate(ctx context.Context, conv *domain.Conversation, participants []domain.Participant) error {
	env := domain.Envelope{
		Type: domain.EventConversationUpdate,
		Payload: domain.ConversationPayload{
			ID:        conv.ID,
			UpdatedAt: conv.UpdatedAt,
		},
	}
	for i := range participants {
		p := &participants[i]
		if !p.Membership.IsActive() {
			continue
		}
		if p.UserID == uuid.Nil {
			b.log.WarnContext(ctx, "broadcast - conversation update - participant without address skipped",
				logger.Conversation(conv.ID.String()), logger.Participant(p.ID.String()))
			continue
		}
		uid := p.UserID
		if err := b.append(ctx, domain.UserChannel(uid), &uid, env); err != nil {
			return err
		}
	}
	return nil
}

// UserUpdate targets a single user's private channel, used when only the
// caller's own sessions need refreshing (mark-read).
func (b *BroadcastService) UserUpdate(ctx context.Context, conv *domain.Conversation, userID uuid.UUID) error {
	env := domain.Envelope{
		Type: domain.EventConversationUpdate,
		Payload: domain.ConversationPayload{
			ID:        conv.ID,
			UpdatedAt: conv.UpdatedAt,
		},
	}
	return b.append(ctx, domain.UserChannel(userID), &userID, env)
}

// MessageDeleted announces a hard delete on the same conversation channel
// used for NewMessage.
func (b *BroadcastService) MessageDeleted(ctx context.Context, convID, msgID uuid.UUID) error {
	env := domain.Envelope{
		Type: domain.EventMessageDeleted,
		Payload: domain.MessageDeletedNotice{
			MessageID:      msgID,
			ConversationID: convID,
		},
	}
	return b.append(ctx, domain.ConversationChannel(convID), nil, env)
}

func (b *BroadcastService) append(ctx context.Context, channel string, userID *uuid.UUID, env domain.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	entry := &domain.OutboxEntry{
		ID:        uuid.New(),
		Channel:   channel,
		UserID:    userID,
		Envelope:  raw,
		CreatedAt: time.Now(),
	}
	if err := b.outbox.Append(ctx, entry); err != nil {
		b.log.ErrorContext(ctx, "broadcast - append - outbox append failed", "channel", channel, "err", err)
		return err
	}
	return nil
}

// interface guard for the pipeline's dependency
var _ Broadcaster = (*BroadcastService)(nil)

// Broadcaster is what the message pipeline and membership manager need from
// the Event Broadcaster.
type Broadcaster interface {
	NewMessage(ctx context.Context, msg *domain.Message) error
	ConversationUpdate(ctx context.Context, conv *domain.Conversation, participants []domain.Participant) error
	UserUpdate(ctx context.Context, conv *domain.Conversation, userID uuid.UUID) error
	MessageDeleted(ctx context.Context, convID, msgID uuid.UUID) error
}
