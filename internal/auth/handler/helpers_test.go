package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elliesbang/class-web-app/config"
	"github.com/elliesbang/class-web-app/internal/auth/domain"
	"github.com/elliesbang/class-web-app/internal/auth/handler"
	"github.com/elliesbang/class-web-app/internal/auth/service"
	"github.com/elliesbang/class-web-app/internal/metrics"
	"github.com/elliesbang/class-web-app/internal/mocks"
	"github.com/elliesbang/class-web-app/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeImageStore struct {
	body        []byte
	contentType string
	filename    string
	err         error
}

func (s *fakeImageStore) PutImage(_ context.Context, r io.Reader, _ int64, contentType, filename string) (*storage.StoredObject, error) {
	if s.err != nil {
		return nil, s.err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.body, s.contentType, s.filename = body, contentType, filename
	key := storage.ObjectKey(testNow, filename)
	return &storage.StoredObject{Key: key, URL: "http://cdn.test/" + key, Size: int64(len(body))}, nil
}

type fixture struct {
	users    *mocks.MockUserRepository
	sessions *mocks.MockSessionRepository
	resets   *mocks.MockResetTokenRepository
	tokens   *mocks.MockTokenGenerator
	metrics  *metrics.Metrics
	logs     bytes.Buffer
	app      *fiber.App
}

func newFixture(t *testing.T, images handler.ImageStore) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		users:    mocks.NewMockUserRepository(ctrl),
		sessions: mocks.NewMockSessionRepository(ctrl),
		resets:   mocks.NewMockResetTokenRepository(ctrl),
		tokens:   mocks.NewMockTokenGenerator(ctrl),
		metrics:  metrics.New(),
	}

	clock := fixedClock{now: testNow}
	cfg := &config.Config{
		BcryptCost:         bcrypt.MinCost,
		LoginMaxAttempts:   5,
		LoginWindowMinutes: 15,
		MaxActiveSessions:  5,
	}
	issuer := service.NewTokenIssuer(f.sessions, f.resets, clock, time.Hour, 7*24*time.Hour)
	userService := service.NewUserService(f.users, f.sessions, f.tokens, issuer, cfg)
	resetService := service.NewResetService(f.users, f.resets, f.sessions, issuer, service.PasswordHasher{Cost: bcrypt.MinCost}, nil, nil)
	sessionService := service.NewSessionService(f.users, f.sessions, clock)

	authHandler := handler.NewAuthHandler(userService, resetService, sessionService, f.tokens, f.metrics)
	adminHandler := handler.NewAdminHandler(userService, images, 1024, f.metrics)

	f.app = fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler})
	f.app.Use(handler.RequestLogger(zerolog.New(&f.logs)))
	handler.RegisterRoutes(f.app, authHandler, adminHandler)
	handler.RegisterOpsRoutes(f.app, f.metrics)
	return f
}

// asAdmin authorizes req with a token the mocked generator accepts as an admin.
func (f *fixture) asAdmin(req *http.Request) *http.Request {
	f.tokens.EXPECT().VerifyAccessToken("admin-token").
		Return(&service.JWTCustomClaims{UserID: "admin-1", UserType: domain.UserTypeAdmin}, nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	return req
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp.StatusCode, body
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}
