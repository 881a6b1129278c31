package services

import (
	"context"
	"fmt"
	"log/slog"

	"dialog/internal/core/contracts"
	"dialog/internal/core/domain"

	"github.com/google/uuid"
)

// TypingService is the Typing Relay: stateless pass-through of ephemeral
// presence signals. No persistence and no membership check; any
// authenticated caller may emit for any conversation id. Indicators bypass
// the outbox — typing is ephemeral and loss is acceptable.
type TypingService struct {
	log *slog.Logger
	bus contracts.EventBus
}

func NewTypingService(log *slog.Logger, bus contracts.EventBus) *TypingService {
	return &TypingService{
		log: log,
		bus: bus,
	}
}

// Relay republishes the indicator verbatim on conversation:{id}:typing.
func (s *TypingService) Relay(ctx context.Context, ind domain.TypingIndicator) error {
	if ind.ConversationID == uuid.Nil {
		return domain.ErrInvalidConversationID
	}
	if ind.UserID == uuid.Nil {
		return domain.ErrInvalidUserID
	}
	if ind.EventType != domain.EventTypingStart && ind.EventType != domain.EventTypingStop {
		return fmt.Errorf("unknown typing event type %q", ind.EventType)
	}
	env := domain.Envelope{Type: ind.EventType, Payload: ind}
	if err := s.bus.Publish(ctx, domain.TypingChannel(ind.ConversationID), env); err != nil {
		s.log.ErrorContext(ctx, "typing - relay - publish failed", "conversation_id", ind.ConversationID.String(), "err", err)
		return err
	}
	return nil
}
