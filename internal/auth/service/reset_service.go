package service

import (
	"context"
	"errors"
	"time"

	"github.com/elliesbang/class-web-app/internal/auth/domain"
	"github.com/elliesbang/class-web-app/internal/auth/dto"
	apperrors "github.com/elliesbang/class-web-app/internal/errors"
	"github.com/rs/zerolog"
)

type ResetMailer interface {
	SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error
}

type RequestLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type ResetService struct {
	users    domain.UserRepository
	resets   domain.ResetTokenRepository
	sessions domain.SessionRepository
	issuer   *TokenIssuer
	hasher   PasswordHasher
	limiter  RequestLimiter
	mailer   ResetMailer
}

// NewResetService wires the password-reset flow. limiter and mailer may be nil.
func NewResetService(
	users domain.UserRepository,
	resets domain.ResetTokenRepository,
	sessions domain.SessionRepository,
	issuer *TokenIssuer,
	hasher PasswordHasher,
	limiter RequestLimiter,
	mailer ResetMailer,
) *ResetService {
	return &ResetService{
		users:    users,
		resets:   resets,
		sessions: sessions,
		issuer:   issuer,
		hasher:   hasher,
		limiter:  limiter,
		mailer:   mailer,
	}
}

func (s *ResetService) RequestReset(ctx context.Context, input dto.ResetRequestInput) (*IssuedToken, error) {
	input.Normalize()
	if err := dto.Validate(&input); err != nil {
		return nil, err
	}
	log := zerolog.Ctx(ctx)

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, string(input.UserType)+":"+input.Email)
		if err != nil {
			log.Warn().Err(err).Msg("reset rate limiter unavailable")
		} else if !allowed {
			return nil, apperrors.ErrTooManyResetRequests
		}
	}

	user, err := s.users.GetByEmail(ctx, input.UserType, input.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrEmailNotFound
	}

	issued, err := s.issuer.IssueResetToken(ctx, user.Email, input.UserType)
	if err != nil {
		return nil, err
	}

	if s.mailer != nil {
		if err := s.mailer.SendPasswordReset(ctx, user.Email, issued.Token, issued.ExpiresAt); err != nil {
			log.Error().Err(err).Str("user_type", string(input.UserType)).Msg("failed to send reset email")
		}
	}

	return issued, nil
}

// ConfirmReset consumes a reset token and sets the new password. The token is
// deleted before the password is written, so two concurrent confirms cannot
// both succeed.
func (s *ResetService) ConfirmReset(ctx context.Context, input dto.ResetConfirmInput) error {
	if err := dto.Validate(&input); err != nil {
		return err
	}

	tokenHash := HashToken(input.ResetToken)
	token, err := s.resets.GetResetToken(ctx, tokenHash)
	if err != nil {
		return err
	}
	if token == nil {
		return apperrors.ErrInvalidToken
	}

	now := s.issuer.Now()
	if token.Expired(now) {
		if err := s.resets.DeleteResetToken(ctx, tokenHash); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to delete expired reset token")
		}
		return apperrors.ErrExpiredToken
	}

	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return err
	}

	if err := s.resets.DeleteResetToken(ctx, tokenHash); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrInvalidToken
		}
		return err
	}

	err = s.users.UpdatePasswordByEmail(ctx, token.UserType, token.Email, hash, now)
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.ErrUserNotFound
	}
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, token.UserType, token.Email)
	if err != nil || user == nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("password reset: could not load user to revoke sessions")
		return nil
	}
	if _, err := s.sessions.DeleteSessionsByUser(ctx, user.Type, user.ID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", user.ID).Msg("password reset: failed to revoke sessions")
	}
	return nil
}
