package service_test

import (
	"testing"
	"time"

	"github.com/elliesbang/class-web-app/config"
	"github.com/elliesbang/class-web-app/internal/auth/service"
	"github.com/elliesbang/class-web-app/internal/mocks"
	"github.com/golang/mock/gomock"
	"golang.org/x/crypto/bcrypt"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type testDeps struct {
	users    *mocks.MockUserRepository
	sessions *mocks.MockSessionRepository
	resets   *mocks.MockResetTokenRepository
	tokens   *mocks.MockTokenGenerator
	clock    *fixedClock
	cfg      *config.Config
	issuer   *service.TokenIssuer
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	ctrl := gomock.NewController(t)

	d := &testDeps{
		users:    mocks.NewMockUserRepository(ctrl),
		sessions: mocks.NewMockSessionRepository(ctrl),
		resets:   mocks.NewMockResetTokenRepository(ctrl),
		tokens:   mocks.NewMockTokenGenerator(ctrl),
		clock:    &fixedClock{now: testNow},
		cfg: &config.Config{
			BcryptCost:         bcrypt.MinCost,
			LoginMaxAttempts:   5,
			LoginWindowMinutes: 15,
			MaxActiveSessions:  5,
		},
	}
	d.issuer = service.NewTokenIssuer(d.sessions, d.resets, d.clock, time.Hour, 7*24*time.Hour)
	return d
}

func (d *testDeps) userService() *service.UserService {
	return service.NewUserService(d.users, d.sessions, d.tokens, d.issuer, d.cfg)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(h)
}
