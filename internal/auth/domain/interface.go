package domain

//go:generate mockgen -destination=../../mocks/mock_repository.go -package=mocks github.com/elliesbang/class-web-app/internal/auth/domain UserRepository,SessionRepository,ResetTokenRepository

import (
	"context"
	"time"
)

// UserRepository reads and writes the per-type credential tables.
// Lookups return (nil, nil) when no row matches.
type UserRepository interface {
	GetByEmail(ctx context.Context, userType UserType, email string) (*User, error)
	GetByID(ctx context.Context, userType UserType, id string) (*User, error)
	Create(ctx context.Context, user *User) error
	UpdatePasswordByEmail(ctx context.Context, userType UserType, email, passwordHash string, updatedAt time.Time) error
	List(ctx context.Context, userType UserType, limit, offset int) ([]User, error)
	Count(ctx context.Context, userType UserType) (int, error)
	RecordLoginAttempt(ctx context.Context, attempt LoginAttempt) error
	CountRecentFailedAttempts(ctx context.Context, email, ip string, since time.Time) (int, error)
}

// SessionRepository stores sessions keyed by refresh token hash.
type SessionRepository interface {
	StoreSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, tokenHash string) (*Session, error)
	DeleteSession(ctx context.Context, tokenHash string) error
	DeleteSessionsByUser(ctx context.Context, userType UserType, userID string) (int64, error)
	CountSessionsByUser(ctx context.Context, userType UserType, userID string) (int, error)
	DeleteOldestSessions(ctx context.Context, userType UserType, userID string, keep int) error
	CountActiveSessions(ctx context.Context, now time.Time) (int, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// ResetTokenRepository stores password-reset tokens keyed by token hash.
// DeleteResetToken returns errors.ErrNotFound when the row is already gone.
type ResetTokenRepository interface {
	StoreResetToken(ctx context.Context, token *ResetToken) error
	GetResetToken(ctx context.Context, tokenHash string) (*ResetToken, error)
	DeleteResetToken(ctx context.Context, tokenHash string) error
	DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// Repository is the full persistence surface; the Postgres and SQLite backends implement it.
type Repository interface {
	UserRepository
	SessionRepository
	ResetTokenRepository
}
