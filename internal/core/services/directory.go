package services

import (
	"context"
	"log/slog"

	"dialog/internal/core/contracts"
	"dialog/internal/core/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var directoryTracer = otel.Tracer("directory-service")

// DirectoryService is the Conversation Directory: it creates and looks up
// the single direct conversation between two users. "Direct" is keyed on the
// unordered pair, so at most one conversation ever exists for {A, B}.
type DirectoryService struct {
	log        *slog.Logger
	convRepo   domain.ConversationRepository
	partRepo   domain.ParticipantRepository
	msgRepo    domain.MessageRepository
	users      *UserService
	membership *MembershipService
	txManager  contracts.TxManager
}

func NewDirectoryService(
	log *slog.Logger,
	convRepo domain.ConversationRepository,
	partRepo domain.ParticipantRepository,
	msgRepo domain.MessageRepository,
	users *UserService,
	membership *MembershipService,
	txManager contracts.TxManager,
) *DirectoryService {
	return &DirectoryService{
		log:        log,
		convRepo:   convRepo,
		partRepo:   partRepo,
		msgRepo:    msgRepo,
		users:      users,
		membership: membership,
		txManager:  txManager,
	}
}

// FindDirectConversation resolves the conversation for the set {userA, userB},
// regardless of argument order. Returns nil when none exists.
func (s *DirectoryService) FindDirectConversation(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, error) {
	return s.convRepo.FindDirectBetween(ctx, userA, userB)
}

// FindOrCreate returns the direct conversation between caller and other,
// creating it on first contact. On a hit the caller's inactive row is
// reactivated so the thread reappears for them with a fresh visibility
// boundary.
func (s *DirectoryService) FindOrCreate(ctx context.Context, callerID, otherID uuid.UUID) (*domain.Conversation, error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.FindOrCreate", trace.WithAttributes(
		attribute.String("caller_id", callerID.String()),
		attribute.String("other_id", otherID.String()),
	))
	defer span.End()
	if callerID == otherID {
		return nil, domain.ErrSelfConversation
	}
	if err := s.users.RequireUser(ctx, callerID); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.users.RequireUser(ctx, otherID); err != nil {
		span.RecordError(err)
		return nil, err
	}
	var conv *domain.Conversation
	err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		existing, err := s.convRepo.FindDirectBetween(txCtx, callerID, otherID)
		if err != nil {
			return err
		}
		if existing != nil {
			p, err := s.partRepo.GetParticipant(txCtx, existing.ID, callerID)
			if err != nil {
				return err
			}
			if p != nil && !p.Membership.IsActive() {
				if err := s.membership.Reactivate(txCtx, p); err != nil {
					return err
				}
			}
			conv = existing
			return nil
		}
		conv, err = s.CreateConversation(txCtx, callerID, otherID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "find or create failed")
		s.log.ErrorContext(ctx, "directory - find or create - failed",
			"caller_id", callerID.String(), "other_id", otherID.String(), "err", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("conversation_id", conv.ID.String()))
	return conv, nil
}

// CreateConversation is the lower-level creation used by FindOrCreate. The
// participant inserts are idempotent: an already-active row is skipped with a
// warning instead of erroring.
func (s *DirectoryService) CreateConversation(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, error) {
	a, err := s.users.ResolveUser(ctx, userA)
	if err != nil {
		return nil, err
	}
	b, err := s.users.ResolveUser(ctx, userB)
	if err != nil {
		return nil, err
	}
	conv := domain.NewConversation()
	if err := s.convRepo.CreateConversation(ctx, conv); err != nil {
		s.log.ErrorContext(ctx, "directory - create conversation - insert failed", "err", err)
		return nil, err
	}
	for _, u := range []*domain.User{a, b} {
		if err := s.membership.AddParticipant(ctx, conv.ID, u); err != nil {
			return nil, err
		}
	}
	s.log.InfoContext(ctx, "directory - create conversation - created",
		"conversation_id", conv.ID.String(), "user_a", userA.String(), "user_b", userB.String())
	return conv, nil
}

// ListConversations returns the caller's conversations newest-activity first,
// each with the latest message preview and an unread flag. Previews come from
// the batch most-recent-message query, one round trip for the whole page.
func (s *DirectoryService) ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.ConversationPreview, error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.ListConversations")
	defer span.End()
	convs, err := s.convRepo.ListByUserID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(convs) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	latest, err := s.msgRepo.LatestPerConversation(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	previews := make([]domain.ConversationPreview, 0, len(convs))
	for _, c := range convs {
		parts, err := s.partRepo.ListByConversation(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		var self, other *domain.Participant
		for i := range parts {
			if parts[i].UserID == userID {
				self = &parts[i]
			} else {
				other = &parts[i]
			}
		}
		pv := domain.ConversationPreview{Conversation: c, Other: other}
		if m, ok := latest[c.ID]; ok {
			msg := m
			pv.LatestMessage = &msg
			if self != nil {
				pv.Unread = self.LastReadAt == nil || self.LastReadAt.Before(msg.SentAt)
			}
		}
		previews = append(previews, pv)
	}
	span.SetAttributes(attribute.Int("conversation_count", len(previews)))
	return previews, nil
}

// GetConversation returns the conversation when the caller is an active
// participant in it.
func (s *DirectoryService) GetConversation(ctx context.Context, convID, callerID uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.convRepo.GetConversationByID(ctx, convID)
	if err != nil {
		return nil, err
	}
	if _, err := s.membership.ActiveParticipant(ctx, convID, callerID); err != nil {
		return nil, err
	}
	return conv, nil
}
