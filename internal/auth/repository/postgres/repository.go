package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elliesbang/class-web-app/internal/auth/domain"
	apperrors "github.com/elliesbang/class-web-app/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the repository needs; pgxmock satisfies it too.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepository struct {
	db DB
}

var _ domain.Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
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

func (r *PostgresRepository) GetByEmail(ctx context.Context, userType domain.UserType, email string) (*domain.User, error) {
	table, err := tableFor(userType)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT id, email, password_hash, name, created_at, updated_at
		FROM %s
		WHERE email = $1
		LIMIT 1`, table)

	user := domain.User{Type: userType}
	err = r.db.QueryRow(ctx, query, email).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s user by email: %w", userType, err)
	}
	return &user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userType domain.UserType, id string) (*domain.User, error) {
	table, err := tableFor(userType)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT id, email, password_hash, name, created_at, updated_at
		FROM %s
		WHERE id = $1`, table)

	user := domain.User{Type: userType}
	err = r.db.QueryRow(ctx, query, id).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s user by id: %w", userType, err)
	}
	return &user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *domain.User) error {
	table, err := tableFor(user.Type)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, email, password_hash, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`, table)

	_, err = r.db.Exec(ctx, query, user.ID, user.Email, user.PasswordHash, user.Name, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrEmailAlreadyInUse
		}
		return fmt.Errorf("failed to create %s user: %w", user.Type, err)
	}
	return nil
}

func (r *PostgresRepository) UpdatePasswordByEmail(ctx context.Context, userType domain.UserType, email, passwordHash string, updatedAt time.Time) error {
	table, err := tableFor(userType)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET password_hash = $1, updated_at = $2 WHERE email = $3`, table)

	tag, err := r.db.Exec(ctx, query, passwordHash, updatedAt, email)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, userType domain.UserType, limit, offset int) ([]domain.User, error) {
	table, err := tableFor(userType)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT id, email, password_hash, name, created_at, updated_at
		FROM %s
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, table)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s users: %w", userType, err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u := domain.User{Type: userType}
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan %s user: %w", userType, err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *PostgresRepository) Count(ctx context.Context, userType domain.UserType) (int, error) {
	table, err := tableFor(userType)
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s users: %w", userType, err)
	}
	return n, nil
}

func (r *PostgresRepository) RecordLoginAttempt(ctx context.Context, a domain.LoginAttempt) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO login_attempts (id, email, user_type, ip_address, attempt_time, successful)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
	`, a.Email, string(a.UserType), a.IPAddress, a.AttemptTime, a.Successful)
	return err
}

func (r *PostgresRepository) CountRecentFailedAttempts(ctx context.Context, email, ip string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM login_attempts
		WHERE email = $1 AND ip_address = $2 AND successful = false AND attempt_time > $3
	`, email, ip, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count login attempts: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) StoreSession(ctx context.Context, s *domain.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (token_hash, user_id, user_type, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.TokenHash, s.UserID, string(s.UserType), s.ExpiresAt, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetSession(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var (
		s        domain.Session
		userType string
	)
	err := r.db.QueryRow(ctx, `
		SELECT token_hash, user_id, user_type, expires_at, created_at
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash).Scan(&s.TokenHash, &s.UserID, &userType, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s.UserType = domain.UserType(userType)
	return &s, nil
}

func (r *PostgresRepository) DeleteSession(ctx context.Context, tokenHash string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteSessionsByUser(ctx context.Context, userType domain.UserType, userID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE user_type = $1 AND user_id = $2`, string(userType), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) CountSessionsByUser(ctx context.Context, userType domain.UserType, userID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM sessions WHERE user_type = $1 AND user_id = $2
	`, string(userType), userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count user sessions: %w", err)
	}
	return n, nil
}

// DeleteOldestSessions keeps the newest `keep` sessions of a user and removes the rest.
func (r *PostgresRepository) DeleteOldestSessions(ctx context.Context, userType domain.UserType, userID string, keep int) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM sessions
		WHERE user_type = $1 AND user_id = $2 AND token_hash NOT IN (
			SELECT token_hash FROM sessions
			WHERE user_type = $1 AND user_id = $2
			ORDER BY created_at DESC
			LIMIT $3
		)
	`, string(userType), userID, keep)
	if err != nil {
		return fmt.Errorf("failed to prune sessions: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountActiveSessions(ctx context.Context, now time.Time) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sessions WHERE expires_at > $1`, now).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) StoreResetToken(ctx context.Context, t *domain.ResetToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO password_reset_tokens (token_hash, email, user_type, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.TokenHash, t.Email, string(t.UserType), t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetResetToken(ctx context.Context, tokenHash string) (*domain.ResetToken, error) {
	var (
		t        domain.ResetToken
		userType string
	)
	err := r.db.QueryRow(ctx, `
		SELECT token_hash, email, user_type, expires_at, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1
	`, tokenHash).Scan(&t.TokenHash, &t.Email, &userType, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}
	t.UserType = domain.UserType(userType)
	return &t, nil
}

func (r *PostgresRepository) DeleteResetToken(ctx context.Context, tokenHash string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM password_reset_tokens WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM password_reset_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
