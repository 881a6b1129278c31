package services

import (
	"context"
	"log/slog"

	"dialog/internal/core/domain"

	"github.com/google/uuid"
)

// UserService resolves principals. Identities are owned by the external
// identity subsystem; this service only reads them.
type UserService struct {
	log  *slog.Logger
	repo domain.UserRepository
}

func NewUserService(log *slog.Logger, repo domain.UserRepository) *UserService {
	return &UserService{
		log:  log,
		repo: repo,
	}
}

// ResolveUser loads the user or returns domain.ErrUserNotFound.
func (s *UserService) ResolveUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if id == uuid.Nil {
		return nil, domain.ErrInvalidUserID
	}
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		s.log.ErrorContext(ctx, "user - resolve user - lookup failed", "user_id", id.String(), "err", err)
		return nil, err
	}
	return user, nil
}

// RequireUser is the existence check used before touching conversation state.
func (s *UserService) RequireUser(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return domain.ErrInvalidUserID
	}
	ok, err := s.repo.ExistsByID(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	return nil
}
