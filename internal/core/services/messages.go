package services

import (
	"context"
	"log/slog"
	"strings"

	"dialog/internal/core/contracts"
	"dialog/internal/core/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var messageTracer = otel.Tracer("message-service")

// MessageService is the Message Pipeline. Each send moves
// Requested -> Authorized -> Persisted -> Broadcast, or Requested -> Rejected
// with zero side effects. Persistence, the updatedAt bump, reactivation, and
// the outbox appends share one transaction; wire delivery happens after
// commit via the dispatcher.
type MessageService struct {
	log        *slog.Logger
	msgRepo    domain.MessageRepository
	convRepo   domain.ConversationRepository
	partRepo   domain.ParticipantRepository
	users      *UserService
	membership *MembershipService
	broadcast  Broadcaster
	txManager  contracts.TxManager
}

func NewMessageService(
	log *slog.Logger,
	msgRepo domain.MessageRepository,
	convRepo domain.ConversationRepository,
	partRepo domain.ParticipantRepository,
	users *UserService,
	membership *MembershipService,
	broadcast Broadcaster,
	txManager contracts.TxManager,
) *MessageService {
	return &MessageService{
		log:        log,
		msgRepo:    msgRepo,
		convRepo:   convRepo,
		partRepo:   partRepo,
		users:      users,
		membership: membership,
		broadcast:  broadcast,
		txManager:  txManager,
	}
}

// Send authorizes, persists, and distributes one message. Sending un-hides
// the thread: every inactive participant in the conversation is reactivated
// inside the same transaction, which resets their visibility boundary.
func (s *MessageService) Send(ctx context.Context, conversationID uuid.UUID, content string, senderID uuid.UUID) (*domain.Message, error) {
	ctx, span := messageTracer.Start(ctx, "MessageService.Send", trace.WithAttributes(
		attribute.String("conversation_id", conversationID.String()),
		attribute.String("sender_id", senderID.String()),
	))
	defer span.End()
	// Rejected before any side effect.
	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrEmptyContent
	}
	if err := s.users.RequireUser(ctx, senderID); err != nil {
		span.RecordError(err)
		return nil, err
	}
	var msg *domain.Message
	err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		conv, err := s.convRepo.GetConversationByID(txCtx, conversationID)
		if err != nil {
			return err
		}
		participants, err := s.partRepo.ListByConversation(txCtx, conversationID)
		if err != nil {
			return err
		}
		var sender *domain.Participant
		for i := range participants {
			if participants[i].UserID == senderID {
				sender = &participants[i]
			}
		}
		if sender == nil || !sender.Membership.IsActive() {
			return domain.ErrNotParticipant
		}
		// Reactivation runs before the message is stamped so the fresh
		// joinedAt lands strictly before sentAt and the triggering message
		// is visible to the rejoined side.
		for i := range participants {
			p := &participants[i]
			if p.Membership.IsActive() {
				continue
			}
			if err := s.membership.Reactivate(txCtx, p); err != nil {
				return err
			}
		}
		msg = domain.NewMessage(conversationID, senderID, content)
		if err := s.msgRepo.CreateMessage(txCtx, msg); err != nil {
			return err
		}
		if err := s.convRepo.Touch(txCtx, conversationID, msg.SentAt); err != nil {
			return err
		}
		conv.UpdatedAt = msg.SentAt
		if err := s.broadcast.NewMessage(txCtx, msg); err != nil {
			return err
		}
		return s.broadcast.ConversationUpdate(txCtx, conv, participants)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		s.log.ErrorContext(ctx, "messages - send - failed",
			"conversation_id", conversationID.String(), "sender_id", senderID.String(), "err", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("message_id", msg.ID.String()))
	s.log.InfoContext(ctx, "messages - send - accepted",
		"conversation_id", conversationID.String(), "message_id", msg.ID.String())
	return msg, nil
}

// ListVisible returns the requester's view of the conversation: messages
// sent strictly after their current joinedAt, ascending. History from an
// earlier membership interval stays hidden for them even though it remains
// stored for the other side.
func (s *MessageService) ListVisible(ctx context.Context, conversationID, requesterID uuid.UUID) ([]domain.Message, error) {
	ctx, span := messageTracer.Start(ctx, "MessageService.ListVisible", trace.WithAttributes(
		attribute.String("conversation_id", conversationID.String()),
	))
	defer span.End()
	if _, err := s.convRepo.GetConversationByID(ctx, conversationID); err != nil {
		span.RecordError(err)
		return nil, err
	}
	p, err := s.membership.ActiveParticipant(ctx, conversationID, requesterID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	msgs, err := s.msgRepo.ListVisible(ctx, conversationID, p.Membership.JoinedAt())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("message_count", len(msgs)))
	return msgs, nil
}

// Delete hard-deletes a message. Only its author may do so; everyone
// subscribed to the conversation channel hears about it.
func (s *MessageService) Delete(ctx context.Context, messageID, requesterID uuid.UUID) error {
	ctx, span := messageTracer.Start(ctx, "MessageService.Delete", trace.WithAttributes(
		attribute.String("message_id", messageID.String()),
	))
	defer span.End()
	msg, err := s.msgRepo.GetMessageByID(ctx, messageID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if msg.SenderID != requesterID {
		return domain.ErrNotMessageAuthor
	}
	err = s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.msgRepo.DeleteMessage(txCtx, messageID); err != nil {
			return err
		}
		return s.broadcast.MessageDeleted(txCtx, msg.ConversationID, messageID)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		s.log.ErrorContext(ctx, "messages - delete - failed", "message_id", messageID.String(), "err", err)
		return err
	}
	s.log.InfoContext(ctx, "messages - delete - removed",
		"message_id", messageID.String(), "conversation_id", msg.ConversationID.String())
	return nil
}
