package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/elliesbang/class-web-app/internal/auth/domain"
	apperrors "github.com/elliesbang/class-web-app/internal/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository is the edge SQL backend. Timestamps are stored as unix milliseconds.
type SQLiteRepository struct {
	db *sql.DB
}

var _ domain.Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

var userTables = map[domain.UserType]string{
	domain.UserTypeAdmin:   "admins",
	domain.UserTypeStudent: "students",
	domain.UserTypeVOD:     "vod_users",
}

func tableFor(t domain.UserType) (string, error) {
	table, ok := userTables[t]
	if !ok {
		return "", fmt.Errorf("unknown user type %q", t)
	}
	return table, nil
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) &&
		(se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY)
}

func scanUser(row interface{ Scan(...any) error }, userType domain.UserType) (*domain.User, error) {
	var (
		u                = domain.User{Type: userType}
		created, updated int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &created, &updated); err != nil {
		return nil, err
	}
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return &u, nil
}

func (r *SQLiteRepository) GetByEmail(ctx context.Context, userType domain.UserType, email string) (*domain.User, error) {
	table, err := tableFor(userType)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, email, password_hash, name, created_at, updated_at
		FROM %s WHERE email = ? LIMIT 1`, table), email)

	u, err := scanUser(row, userType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s user by email: %w", userType, err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, userType domain.UserType, id string) (*domain.User, error) {
	table, err := tableFor(userType)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, email, password_hash, name, created_at, updated_at
		FROM %s WHERE id = ?`, table), id)

	u, err := scanUser(row, userType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s user by id: %w", userType, err)
	}
	return u, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, u *domain.User) error {
	table, err := tableFor(u.Type)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, email, password_hash, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`, table),
		u.ID, u.Email, u.PasswordHash, u.Name, toMillis(u.CreatedAt), toMillis(u.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrEmailAlreadyInUse
		}
		return fmt.Errorf("failed to create %s user: %w", u.Type, err)
	}
	return nil
}

func (r *SQLiteRepository) UpdatePasswordByEmail(ctx context.Context, userType domain.UserType, email, passwordHash string, updatedAt time.Time) error {
	table, err := tableFor(userType)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET password_hash = ?, updated_at = ? WHERE email = ?`, table),
		passwordHash, toMillis(updatedAt), email)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) List(ctx context.Context, userType domain.UserType, limit, offset int) ([]domain.User, error) {
	table, err := tableFor(userType)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, email, password_hash, name, created_at, updated_at
		FROM %s ORDER BY created_at DESC LIMIT ? OFFSET ?`, table), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s users: %w", userType, err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows, userType)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s user: %w", userType, err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *SQLiteRepository) Count(ctx context.Context, userType domain.UserType) (int, error) {
	table, err := tableFor(userType)
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s users: %w", userType, err)
	}
	return n, nil
}

func (r *SQLiteRepository) RecordLoginAttempt(ctx context.Context, a domain.LoginAttempt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO login_attempts (email, user_type, ip_address, attempt_time, successful)
		VALUES (?, ?, ?, ?, ?)`,
		a.Email, string(a.UserType), a.IPAddress, toMillis(a.AttemptTime), a.Successful)
	return err
}

func (r *SQLiteRepository) CountRecentFailedAttempts(ctx context.Context, email, ip string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE email = ? AND ip_address = ? AND successful = 0 AND attempt_time > ?`,
		email, ip, toMillis(since)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count login attempts: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) StoreSession(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (token_hash, user_id, user_type, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.TokenHash, s.UserID, string(s.UserType), toMillis(s.ExpiresAt), toMillis(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var (
		s                domain.Session
		userType         string
		expires, created int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT token_hash, user_id, user_type, expires_at, created_at
		FROM sessions WHERE token_hash = ?`, tokenHash).
		Scan(&s.TokenHash, &s.UserID, &userType, &expires, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s.UserType = domain.UserType(userType)
	s.ExpiresAt = fromMillis(expires)
	s.CreatedAt = fromMillis(created)
	return &s, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, tokenHash string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) DeleteSessionsByUser(ctx context.Context, userType domain.UserType, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_type = ? AND user_id = ?`, string(userType), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) CountSessionsByUser(ctx context.Context, userType domain.UserType, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE user_type = ? AND user_id = ?`, string(userType), userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count user sessions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteOldestSessions(ctx context.Context, userType domain.UserType, userID string, keep int) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE user_type = ? AND user_id = ? AND token_hash NOT IN (
			SELECT token_hash FROM sessions
			WHERE user_type = ? AND user_id = ?
			ORDER BY created_at DESC
			LIMIT ?
		)`, string(userType), userID, string(userType), userID, keep)
	if err != nil {
		return fmt.Errorf("failed to prune sessions: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CountActiveSessions(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE expires_at > ?`, toMillis(now)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) StoreResetToken(ctx context.Context, t *domain.ResetToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (token_hash, email, user_type, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.TokenHash, t.Email, string(t.UserType), toMillis(t.ExpiresAt), toMillis(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetResetToken(ctx context.Context, tokenHash string) (*domain.ResetToken, error) {
	var (
		t                domain.ResetToken
		userType         string
		expires, created int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT token_hash, email, user_type, expires_at, created_at
		FROM password_reset_tokens WHERE token_hash = ?`, tokenHash).
		Scan(&t.TokenHash, &t.Email, &userType, &expires, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}
	t.UserType = domain.UserType(userType)
	t.ExpiresAt = fromMillis(expires)
	t.CreatedAt = fromMillis(created)
	return &t, nil
}

func (r *SQLiteRepository) DeleteResetToken(ctx context.Context, tokenHash string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete reset token: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}
	return res.RowsAffected()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
