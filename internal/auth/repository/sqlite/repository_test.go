package sqlite_test

import (
	"context"
	"testing"
	"time"

	appdb "github.com/elliesbang/class-web-app/db"
	"github.com/elliesbang/class-web-app/internal/auth/domain"
	repo "github.com/elliesbang/class-web-app/internal/auth/repository/sqlite"
	apperrors "github.com/elliesbang/class-web-app/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) *repo.SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	sqlDB, err := appdb.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, appdb.MigrateSQLite(ctx, sqlDB))
	return repo.NewSQLiteRepository(sqlDB)
}

func newUser(id string, userType domain.UserType, email string) *domain.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.User{
		ID:           id,
		Type:         userType,
		Email:        email,
		PasswordHash: "hash",
		Name:         "Name " + id,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUsers_CreateAndLookup(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	u := newUser("s1", domain.UserTypeStudent, "student@example.com")
	require.NoError(t, r.Create(ctx, u))

	got, err := r.GetByEmail(ctx, domain.UserTypeStudent, "student@example.com")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	got, err = r.GetByID(ctx, domain.UserTypeStudent, "s1")
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	// tables are separate per user type
	got, err = r.GetByEmail(ctx, domain.UserTypeVOD, "student@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUsers_DuplicateEmail(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, newUser("a", domain.UserTypeVOD, "dup@example.com")))
	err := r.Create(ctx, newUser("b", domain.UserTypeVOD, "dup@example.com"))
	assert.Equal(t, apperrors.ErrEmailAlreadyInUse, err)

	// same email under another type is allowed
	assert.NoError(t, r.Create(ctx, newUser("c", domain.UserTypeStudent, "dup@example.com")))
}

func TestUsers_UpdatePassword(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, newUser("s1", domain.UserTypeStudent, "student@example.com")))

	require.NoError(t, r.UpdatePasswordByEmail(ctx, domain.UserTypeStudent, "student@example.com", "new-hash", time.Now()))
	got, err := r.GetByID(ctx, domain.UserTypeStudent, "s1")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	err = r.UpdatePasswordByEmail(ctx, domain.UserTypeAdmin, "student@example.com", "x", time.Now())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUsers_ListAndCount(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	for i, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		u := newUser(email, domain.UserTypeAdmin, email)
		u.CreatedAt = u.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, r.Create(ctx, u))
	}

	n, err := r.Count(ctx, domain.UserTypeAdmin)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	users, err := r.List(ctx, domain.UserTypeAdmin, 2, 0)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "c@x.com", users[0].Email)

	users, err = r.List(ctx, domain.UserTypeAdmin, 2, 2)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "a@x.com", users[0].Email)
}

func TestLoginAttempts(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	now := time.Now()

	record := func(at time.Time, ok bool) {
		require.NoError(t, r.RecordLoginAttempt(ctx, domain.LoginAttempt{
			Email: "s@x.com", UserType: domain.UserTypeStudent, IPAddress: "1.2.3.4", AttemptTime: at, Successful: ok,
		}))
	}
	record(now.Add(-time.Hour), false)
	record(now.Add(-time.Minute), false)
	record(now.Add(-time.Minute), true)
	record(now, false)

	n, err := r.CountRecentFailedAttempts(ctx, "s@x.com", "1.2.3.4", now.Add(-15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = r.CountRecentFailedAttempts(ctx, "s@x.com", "5.6.7.8", now.Add(-15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSessions(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	s := &domain.Session{
		TokenHash: "h1",
		UserID:    "s1",
		UserType:  domain.UserTypeStudent,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	require.NoError(t, r.StoreSession(ctx, s))

	got, err := r.GetSession(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, s, got)

	got, err = r.GetSession(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, r.DeleteSession(ctx, "h1"))
	assert.ErrorIs(t, r.DeleteSession(ctx, "h1"), apperrors.ErrNotFound)
}

func TestSessions_PruneAndSweep(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	for i, h := range []string{"h1", "h2", "h3", "h4"} {
		require.NoError(t, r.StoreSession(ctx, &domain.Session{
			TokenHash: h,
			UserID:    "u1",
			UserType:  domain.UserTypeVOD,
			ExpiresAt: now.Add(time.Hour),
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, r.StoreSession(ctx, &domain.Session{
		TokenHash: "old",
		UserID:    "u2",
		UserType:  domain.UserTypeVOD,
		ExpiresAt: now.Add(-time.Minute),
		CreatedAt: now.Add(-time.Hour),
	}))

	require.NoError(t, r.DeleteOldestSessions(ctx, domain.UserTypeVOD, "u1", 2))
	n, err := r.CountSessionsByUser(ctx, domain.UserTypeVOD, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := r.GetSession(ctx, "h1")
	require.NoError(t, err)
	assert.Nil(t, got, "oldest session should be pruned")
	got, err = r.GetSession(ctx, "h4")
	require.NoError(t, err)
	assert.NotNil(t, got)

	active, err := r.CountActiveSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, active)

	swept, err := r.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, swept)

	removed, err := r.DeleteSessionsByUser(ctx, domain.UserTypeVOD, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)
}

func TestResetTokens(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	tok := &domain.ResetToken{
		TokenHash: "rh",
		Email:     "student@example.com",
		UserType:  domain.UserTypeStudent,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	require.NoError(t, r.StoreResetToken(ctx, tok))
	require.NoError(t, r.StoreResetToken(ctx, &domain.ResetToken{
		TokenHash: "stale", Email: "x@y.z", UserType: domain.UserTypeVOD,
		ExpiresAt: now.Add(-time.Second), CreatedAt: now.Add(-time.Hour),
	}))

	got, err := r.GetResetToken(ctx, "rh")
	require.NoError(t, err)
	assert.Equal(t, tok, got)

	swept, err := r.DeleteExpiredResetTokens(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, swept)

	require.NoError(t, r.DeleteResetToken(ctx, "rh"))
	assert.ErrorIs(t, r.DeleteResetToken(ctx, "rh"), apperrors.ErrNotFound)

	got, err = r.GetResetToken(ctx, "rh")
	require.NoError(t, err)
	assert.Nil(t, got)
}
