package services

import (
	"context"
	"log/slog"
	"time"

	"dialog/internal/core/contracts"
	"dialog/internal/core/domain"

	"github.com/google/uuid"
)

// MembershipService is the Membership Manager: it owns every transition of a
// participant row. Leave and reactivation mutate the existing row; a user
// already represented in a conversation never gets a second one.
type MembershipService struct {
	log       *slog.Logger
	partRepo  domain.ParticipantRepository
	convRepo  domain.ConversationRepository
	broadcast Broadcaster
	txManager contracts.TxManager
}

func NewMembershipService(
	log *slog.Logger,
	partRepo domain.ParticipantRepository,
	convRepo domain.ConversationRepository,
	broadcast Broadcaster,
	txManager contracts.TxManager,
) *MembershipService {
	return &MembershipService{
		log:       log,
		partRepo:  partRepo,
		convRepo:  convRepo,
		broadcast: broadcast,
		txManager: txManager,
	}
}

// AddParticipant is the idempotent join. An active row is a no-op with a
// warning; an inactive row is reactivated rather than duplicated.
func (s *MembershipService) AddParticipant(ctx context.Context, conversationID uuid.UUID, user *domain.User) error {
	existing, err := s.partRepo.GetParticipant(ctx, conversationID, user.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Membership.IsActive() {
			s.log.WarnContext(ctx, "membership - add participant - already active, skipping insert",
				"conversation_id", conversationID.String(), "user_id", user.ID.String())
			return nil
		}
		return s.Reactivate(ctx, existing)
	}
	p := domain.NewParticipant(conversationID, user)
	if err := s.partRepo.CreateParticipant(ctx, p); err != nil {
		s.log.ErrorContext(ctx, "membership - add participant - insert failed",
			"conversation_id", conversationID.String(), "user_id", user.ID.String(), "err", err)
		return err
	}
	return nil
}

// Leave flips the caller's row to inactive. The other participant, the
// conversation row, and every message stay untouched.
func (s *MembershipService) Leave(ctx context.Context, conversationID, userID uuid.UUID) error {
	return s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		p, err := s.requireActive(txCtx, conversationID, userID)
		if err != nil {
			return err
		}
		if err := s.partRepo.MarkLeft(txCtx, p.ID, time.Now()); err != nil {
			s.log.ErrorContext(ctx, "membership - leave - mark left failed",
				"conversation_id", conversationID.String(), "user_id", userID.String(), "err", err)
			return err
		}
		s.log.InfoContext(ctx, "membership - leave - participant left",
			"conversation_id", conversationID.String(), "user_id", userID.String())
		return nil
	})
}

// MarkRead stamps lastReadAt and notifies the caller's other sessions so
// their unread state refreshes.
func (s *MembershipService) MarkRead(ctx context.Context, conversationID, userID uuid.UUID) error {
	return s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		p, err := s.requireActive(txCtx, conversationID, userID)
		if err != nil {
			return err
		}
		if err := s.partRepo.SetLastRead(txCtx, p.ID, time.Now()); err != nil {
			return err
		}
		conv, err := s.convRepo.GetConversationByID(txCtx, conversationID)
		if err != nil {
			return err
		}
		return s.broadcast.UserUpdate(txCtx, conv, userID)
	})
}

// Reactivate flips an inactive row back to active with a fresh joinedAt.
// This is the only path that creates a new message-visibility boundary; both
// the directory's find-or-create and the pipeline's send funnel through it.
func (s *MembershipService) Reactivate(ctx context.Context, p *domain.Participant) error {
	now := time.Now()
	if err := s.partRepo.Reactivate(ctx, p.ID, now); err != nil {
		s.log.ErrorContext(ctx, "membership - reactivate - update failed",
			"participant_id", p.ID.String(), "err", err)
		return err
	}
	p.Membership = p.Membership.Rejoin(now)
	s.log.InfoContext(ctx, "membership - reactivate - participant rejoined",
		"conversation_id", p.ConversationID.String(), "user_id", p.UserID.String())
	return nil
}

// ActiveParticipant returns the caller's row when it exists and is active.
func (s *MembershipService) ActiveParticipant(ctx context.Context, conversationID, userID uuid.UUID) (*domain.Participant, error) {
	return s.requireActive(ctx, conversationID, userID)
}

func (s *MembershipService) requireActive(ctx context.Context, conversationID, userID uuid.UUID) (*domain.Participant, error) {
	p, err := s.partRepo.GetParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.Membership.IsActive() {
		return nil, domain.ErrNotParticipant
	}
	return p, nil
}
