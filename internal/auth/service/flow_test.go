package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/elliesbang/class-web-app/config"
	appdb "github.com/elliesbang/class-web-app/db"
	"github.com/elliesbang/class-web-app/internal/auth/domain"
	"github.com/elliesbang/class-web-app/internal/auth/dto"
	"github.com/elliesbang/class-web-app/internal/auth/repository/sqlite"
	"github.com/elliesbang/class-web-app/internal/auth/service"
	autherror "github.com/elliesbang/class-web-app/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type flow struct {
	clock    *fixedClock
	repo     *sqlite.SQLiteRepository
	users    *service.UserService
	resets   *service.ResetService
	sessions *service.SessionService
}

func newFlow(t *testing.T) *flow {
	t.Helper()
	ctx := context.Background()

	sqlDB, err := appdb.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, appdb.MigrateSQLite(ctx, sqlDB))

	repo := sqlite.NewSQLiteRepository(sqlDB)
	clock := &fixedClock{now: testNow}
	cfg := &config.Config{
		BcryptCost:         bcrypt.MinCost,
		LoginMaxAttempts:   3,
		LoginWindowMinutes: 15,
		MaxActiveSessions:  2,
	}
	issuer := service.NewTokenIssuer(repo, repo, clock, time.Hour, 7*24*time.Hour)
	tokens := service.NewTokenService("flow-secret", 15)

	return &flow{
		clock:    clock,
		repo:     repo,
		users:    service.NewUserService(repo, repo, tokens, issuer, cfg),
		resets:   service.NewResetService(repo, repo, repo, issuer, service.PasswordHasher{Cost: bcrypt.MinCost}, nil, nil),
		sessions: service.NewSessionService(repo, repo, clock),
	}
}

func (f *flow) register(t *testing.T, email, password string, userType domain.UserType) *domain.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), dto.RegisterInput{
		Email: email, Password: password, Name: "Ellie", UserType: userType,
	})
	require.NoError(t, err)
	return u
}

func TestFlow_ResetRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFlow(t)
	f.register(t, "student@example.com", "oldpassword", domain.UserTypeStudent)

	issued, err := f.resets.RequestReset(ctx, dto.ResetRequestInput{Email: "student@example.com", UserType: "student"})
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(time.Hour), issued.ExpiresAt)

	err = f.resets.ConfirmReset(ctx, dto.ResetConfirmInput{ResetToken: issued.Token, NewPassword: "longenough1"})
	require.NoError(t, err)

	err = f.resets.ConfirmReset(ctx, dto.ResetConfirmInput{ResetToken: issued.Token, NewPassword: "longenough1"})
	assert.Equal(t, autherror.ErrInvalidToken, err)
	assert.Equal(t, "유효하지 않은 토큰입니다.", err.Error())

	_, err = f.users.Login(ctx, dto.LoginInput{Email: "student@example.com", Password: "oldpassword", UserType: "student"})
	assert.Equal(t, autherror.ErrInvalidCredentials, err)

	resp, err := f.users.Login(ctx, dto.LoginInput{Email: "student@example.com", Password: "longenough1", UserType: "student"})
	require.NoError(t, err)
	assert.Equal(t, "student@example.com", resp.User.Email)
}

func TestFlow_ResetIsScopedToUserType(t *testing.T) {
	ctx := context.Background()
	f := newFlow(t)
	f.register(t, "shared@example.com", "studentpass", domain.UserTypeStudent)
	f.register(t, "shared@example.com", "vodpassword", domain.UserTypeVOD)

	issued, err := f.resets.RequestReset(ctx, dto.ResetRequestInput{Email: "shared@example.com", UserType: "vod"})
	require.NoError(t, err)
	require.NoError(t, f.resets.ConfirmReset(ctx, dto.ResetConfirmInput{ResetToken: issued.Token, NewPassword: "newvodpass"}))

	_, err = f.users.Login(ctx, dto.LoginInput{Email: "shared@example.com", Password: "studentpass", UserType: "student"})
	assert.NoError(t, err)
	_, err = f.users.Login(ctx, dto.LoginInput{Email: "shared@example.com", Password: "newvodpass", UserType: "vod"})
	assert.NoError(t, err)
}

func TestFlow_ExpiredResetTokenIsDeleted(t *testing.T) {
	ctx := context.Background()
	f := newFlow(t)
	f.register(t, "student@example.com", "oldpassword", domain.UserTypeStudent)

	issued, err := f.resets.RequestReset(ctx, dto.ResetRequestInput{Email: "student@example.com", UserType: "student"})
	require.NoError(t, err)

	f.clock.now = issued.ExpiresAt
	err = f.resets.ConfirmReset(ctx, dto.ResetConfirmInput{ResetToken: issued.Token, NewPassword: "longenough1"})
	assert.Equal(t, autherror.ErrExpiredToken, err)

	stored, err := f.repo.GetResetToken(ctx, service.HashToken(issued.Token))
	require.NoError(t, err)
	assert.Nil(t, stored)

	err = f.resets.ConfirmReset(ctx, dto.ResetConfirmInput{ResetToken: issued.Token, NewPassword: "longenough1"})
	assert.Equal(t, autherror.ErrInvalidToken, err)
}

func TestFlow_ShortPasswordKeepsToken(t *testing.T) {
	ctx := context.Background()
	f := newFlow(t)
	f.register(t, "student@example.com", "oldpassword", domain.UserTypeStudent)

	issued, err := f.resets.RequestReset(ctx, dto.ResetRequestInput{Email: "student@example.com", UserType: "student"})
	require.NoError(t, err)

	err = f.resets.ConfirmReset(ctx, dto.ResetConfirmInput{ResetToken: issued.Token, NewPassword: "short"})
	assert.Equal(t, autherror.ErrPasswordTooShort, err)

	stored, err := f.repo.GetResetToken(ctx, service.HashToken(issued.Token))
	require.NoError(t, err)
	assert.NotNil(t, stored)

	require.NoError(t, f.resets.ConfirmReset(ctx, dto.ResetConfirmInput{ResetToken: issued.Token, NewPassword: "longenough1"}))
}

func TestFlow_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFlow(t)
	user := f.register(t, "vod@example.com", "vodpassword", domain.UserTypeVOD)

	login, err := f.users.Login(ctx, dto.LoginInput{Email: "vod@example.com", Password: "vodpassword", UserType: "vod"})
	require.NoError(t, err)

	out, err := f.sessions.Verify(ctx, dto.SessionInput{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, user.ID, out.User.ID)
	assert.Equal(t, login.RefreshToken, out.RefreshToken)

	require.NoError(t, f.users.Logout(ctx, dto.LogoutInput{RefreshToken: login.RefreshToken}))

	_, err = f.sessions.Verify(ctx, dto.SessionInput{RefreshToken: login.RefreshToken})
	assert.Equal(t, autherror.ErrInvalidSession, err)
}

func TestFlow_SessionsArePrunedAndRevokedOnReset(t *testing.T) {
	ctx := context.Background()
	f := newFlow(t)
	user := f.register(t, "student@example.com", "oldpassword", domain.UserTypeStudent)

	for i := 0; i < 4; i++ {
		f.clock.now = testNow.Add(time.Duration(i) * time.Minute)
		_, err := f.users.Login(ctx, dto.LoginInput{Email: "student@example.com", Password: "oldpassword", UserType: "student"})
		require.NoError(t, err)
	}

	n, err := f.repo.CountSessionsByUser(ctx, domain.UserTypeStudent, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	issued, err := f.resets.RequestReset(ctx, dto.ResetRequestInput{Email: "student@example.com", UserType: "student"})
	require.NoError(t, err)
	require.NoError(t, f.resets.ConfirmReset(ctx, dto.ResetConfirmInput{ResetToken: issued.Token, NewPassword: "longenough1"}))

	n, err = f.repo.CountSessionsByUser(ctx, domain.UserTypeStudent, user.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFlow_LoginThrottle(t *testing.T) {
	ctx := context.Background()
	f := newFlow(t)
	f.register(t, "student@example.com", "oldpassword", domain.UserTypeStudent)

	bad := dto.LoginInput{Email: "student@example.com", Password: "wrong-pass", UserType: "student", IPAddress: "10.0.0.1"}
	for i := 0; i < 3; i++ {
		_, err := f.users.Login(ctx, bad)
		assert.Equal(t, autherror.ErrInvalidCredentials, err)
	}

	good := bad
	good.Password = "oldpassword"
	_, err := f.users.Login(ctx, good)
	assert.Equal(t, autherror.ErrTooManyLoginAttempts, err)

	f.clock.now = testNow.Add(16 * time.Minute)
	_, err = f.users.Login(ctx, good)
	assert.NoError(t, err)
}

func TestFlow_VerifyReturnsLoginExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFlow(t)
	f.register(t, "vod@example.com", "vodpassword", domain.UserTypeVOD)
	f.clock.now = testNow.Add(123456789 * time.Nanosecond)

	login, err := f.users.Login(ctx, dto.LoginInput{Email: "vod@example.com", Password: "vodpassword", UserType: "vod"})
	require.NoError(t, err)

	out, err := f.sessions.Verify(ctx, dto.SessionInput{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, login.ExpiresAt, out.ExpiresAt)
	assert.Equal(t, testNow.Add(7*24*time.Hour+123*time.Millisecond), out.ExpiresAt)
}
