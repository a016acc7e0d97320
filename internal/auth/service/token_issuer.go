package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/elliesbang/class-web-app/internal/auth/domain"
)

const tokenBytes = 32

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// IssuedToken is an opaque token handed to the client exactly once.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenIssuer mints reset tokens and sessions. Only the SHA-256 of a token is persisted.
type TokenIssuer struct {
	sessions   domain.SessionRepository
	resets     domain.ResetTokenRepository
	clock      Clock
	resetTTL   time.Duration
	sessionTTL time.Duration
}

func NewTokenIssuer(sessions domain.SessionRepository, resets domain.ResetTokenRepository, clock Clock, resetTTL, sessionTTL time.Duration) *TokenIssuer {
	if clock == nil {
		clock = RealClock{}
	}
	return &TokenIssuer{
		sessions:   sessions,
		resets:     resets,
		clock:      clock,
		resetTTL:   resetTTL,
		sessionTTL: sessionTTL,
	}
}

// Now returns the current time in UTC at millisecond precision, which both
// backends store without loss.
func (i *TokenIssuer) Now() time.Time {
	return i.clock.Now().UTC().Truncate(time.Millisecond)
}

func (i *TokenIssuer) IssueResetToken(ctx context.Context, email string, userType domain.UserType) (*IssuedToken, error) {
	token, err := GenerateRandomToken()
	if err != nil {
		return nil, err
	}

	now := i.Now()
	rt := &domain.ResetToken{
		TokenHash: HashToken(token),
		Email:     email,
		UserType:  userType,
		ExpiresAt: now.Add(i.resetTTL),
		CreatedAt: now,
	}
	if err := i.resets.StoreResetToken(ctx, rt); err != nil {
		return nil, err
	}
	return &IssuedToken{Token: token, ExpiresAt: rt.ExpiresAt}, nil
}

func (i *TokenIssuer) IssueSession(ctx context.Context, userID string, userType domain.UserType) (*IssuedToken, error) {
	token, err := GenerateRandomToken()
	if err != nil {
		return nil, err
	}

	now := i.Now()
	s := &domain.Session{
		TokenHash: HashToken(token),
		UserID:    userID,
		UserType:  userType,
		ExpiresAt: now.Add(i.sessionTTL),
		CreatedAt: now,
	}
	if err := i.sessions.StoreSession(ctx, s); err != nil {
		return nil, err
	}
	return &IssuedToken{Token: token, ExpiresAt: s.ExpiresAt}, nil
}

// GenerateRandomToken returns 32 bytes from crypto/rand, base64url without padding.
func GenerateRandomToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
