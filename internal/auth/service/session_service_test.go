package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/elliesbang/class-web-app/internal/auth/domain"
	"github.com/elliesbang/class-web-app/internal/auth/dto"
	"github.com/elliesbang/class-web-app/internal/auth/service"
	autherror "github.com/elliesbang/class-web-app/internal/errors"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_Verify(t *testing.T) {
	hash := service.HashToken("R")
	session := &domain.Session{
		TokenHash: hash,
		UserID:    "u1",
		UserType:  domain.UserTypeVOD,
		ExpiresAt: testNow.Add(time.Hour),
		CreatedAt: testNow.Add(-time.Hour),
	}
	input := dto.SessionInput{RefreshToken: "R"}

	t.Run("success", func(t *testing.T) {
		d := newTestDeps(t)
		user := &domain.User{ID: "u1", Type: domain.UserTypeVOD, Email: "vod@example.com", Name: "VOD", CreatedAt: testNow}

		d.sessions.EXPECT().GetSession(gomock.Any(), hash).Return(session, nil)
		d.users.EXPECT().GetByID(gomock.Any(), domain.UserTypeVOD, "u1").Return(user, nil)

		out, err := service.NewSessionService(d.users, d.sessions, d.clock).Verify(context.Background(), input)
		require.NoError(t, err)
		assert.True(t, out.Success)
		assert.Equal(t, "R", out.RefreshToken)
		assert.Equal(t, session.ExpiresAt, out.ExpiresAt)
		assert.Equal(t, dto.NewUserOutput(user), out.User)
	})

	t.Run("missing token", func(t *testing.T) {
		d := newTestDeps(t)
		_, err := service.NewSessionService(d.users, d.sessions, d.clock).Verify(context.Background(), dto.SessionInput{})
		assert.Equal(t, autherror.ErrRefreshTokenRequired, err)
	})

	t.Run("unknown token", func(t *testing.T) {
		d := newTestDeps(t)
		d.sessions.EXPECT().GetSession(gomock.Any(), hash).Return(nil, nil)

		_, err := service.NewSessionService(d.users, d.sessions, d.clock).Verify(context.Background(), input)
		assert.Equal(t, autherror.ErrInvalidSession, err)
	})

	t.Run("expired session is deleted", func(t *testing.T) {
		d := newTestDeps(t)
		expired := *session
		expired.ExpiresAt = testNow.Add(-time.Second)

		d.sessions.EXPECT().GetSession(gomock.Any(), hash).Return(&expired, nil)
		d.sessions.EXPECT().DeleteSession(gomock.Any(), hash).Return(nil)

		_, err := service.NewSessionService(d.users, d.sessions, d.clock).Verify(context.Background(), input)
		assert.Equal(t, autherror.ErrSessionExpired, err)
		assert.Equal(t, "세션이 만료되었습니다.", err.Error())
	})

	t.Run("user gone deletes session", func(t *testing.T) {
		d := newTestDeps(t)
		d.sessions.EXPECT().GetSession(gomock.Any(), hash).Return(session, nil)
		d.users.EXPECT().GetByID(gomock.Any(), domain.UserTypeVOD, "u1").Return(nil, nil)
		d.sessions.EXPECT().DeleteSession(gomock.Any(), hash).Return(nil)

		_, err := service.NewSessionService(d.users, d.sessions, d.clock).Verify(context.Background(), input)
		assert.Equal(t, autherror.ErrUserNotFound, err)
	})

	t.Run("repository error", func(t *testing.T) {
		d := newTestDeps(t)
		expected := errors.New("db down")
		d.sessions.EXPECT().GetSession(gomock.Any(), hash).Return(nil, expected)

		_, err := service.NewSessionService(d.users, d.sessions, d.clock).Verify(context.Background(), input)
		assert.Equal(t, expected, err)
	})
}
