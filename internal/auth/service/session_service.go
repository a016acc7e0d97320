package service

import (
	"context"
	"errors"

	"github.com/elliesbang/class-web-app/internal/auth/domain"
	"github.com/elliesbang/class-web-app/internal/auth/dto"
	apperrors "github.com/elliesbang/class-web-app/internal/errors"
	"github.com/rs/zerolog"
)

type SessionService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	clock    Clock
}

func NewSessionService(users domain.UserRepository, sessions domain.SessionRepository, clock Clock) *SessionService {
	if clock == nil {
		clock = RealClock{}
	}
	return &SessionService{users: users, sessions: sessions, clock: clock}
}

// Verify resolves a refresh token to its user. Expired sessions and sessions whose
// user no longer exists are deleted. The token is returned unchanged.
func (s *SessionService) Verify(ctx context.Context, input dto.SessionInput) (*dto.SessionOutput, error) {
	if err := dto.Validate(&input); err != nil {
		return nil, err
	}

	tokenHash := HashToken(input.RefreshToken)
	session, err := s.sessions.GetSession(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.ErrInvalidSession
	}

	if session.Expired(s.clock.Now()) {
		s.drop(ctx, tokenHash)
		return nil, apperrors.ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserType, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.drop(ctx, tokenHash)
		return nil, apperrors.ErrUserNotFound
	}

	return &dto.SessionOutput{
		Success:      true,
		User:         dto.NewUserOutput(user),
		RefreshToken: input.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

func (s *SessionService) drop(ctx context.Context, tokenHash string) {
	if err := s.sessions.DeleteSession(ctx, tokenHash); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to delete stale session")
	}
}
