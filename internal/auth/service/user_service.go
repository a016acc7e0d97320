package service

import (
	"context"
	"errors"
	"time"

	"github.com/elliesbang/class-web-app/config"
	"github.com/elliesbang/class-web-app/internal/auth/domain"
	"github.com/elliesbang/class-web-app/internal/auth/dto"
	apperrors "github.com/elliesbang/class-web-app/internal/errors"
	"github.com/elliesbang/class-web-app/pkg/constant"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultListLimit = 20

type UserService struct {
	repo         domain.UserRepository
	sessions     domain.SessionRepository
	tokenService TokenGenerator
	issuer       *TokenIssuer
	hasher       PasswordHasher
	cfg          *config.Config
}

func NewUserService(repo domain.UserRepository, sessions domain.SessionRepository, tokenService TokenGenerator, issuer *TokenIssuer, cfg *config.Config) *UserService {
	return &UserService{
		repo:         repo,
		sessions:     sessions,
		tokenService: tokenService,
		issuer:       issuer,
		hasher:       PasswordHasher{Cost: cfg.BcryptCost},
		cfg:          cfg,
	}
}

// Register creates a student or VOD account. Admins are created from the admin console.
func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*domain.User, error) {
	input.Normalize()
	if err := dto.Validate(&input); err != nil {
		return nil, err
	}
	if input.UserType == domain.UserTypeAdmin {
		return nil, apperrors.ErrSelfSignupForbidden
	}
	return s.createUser(ctx, input.UserType, input.Email, input.Password, input.Name)
}

func (s *UserService) CreateUser(ctx context.Context, input dto.CreateUserInput) (*domain.User, error) {
	input.Normalize()
	if err := dto.Validate(&input); err != nil {
		return nil, err
	}
	return s.createUser(ctx, input.UserType, input.Email, input.Password, input.Name)
}

func (s *UserService) createUser(ctx context.Context, userType domain.UserType, email, password, name string) (*domain.User, error) {
	existing, err := s.repo.GetByEmail(ctx, userType, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.ErrEmailAlreadyInUse
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := s.issuer.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Type:         userType,
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*dto.TokenResponse, error) {
	input.Normalize()
	if err := dto.Validate(&input); err != nil {
		return nil, err
	}

	now := s.issuer.Now()
	since := now.Add(-time.Duration(s.cfg.LoginWindowMinutes) * time.Minute)
	failed, err := s.repo.CountRecentFailedAttempts(ctx, input.Email, input.IPAddress, since)
	if err != nil {
		return nil, err
	}
	if s.cfg.LoginMaxAttempts > 0 && failed >= s.cfg.LoginMaxAttempts {
		return nil, apperrors.ErrTooManyLoginAttempts
	}

	attempt := domain.LoginAttempt{
		Email:       input.Email,
		UserType:    input.UserType,
		IPAddress:   input.IPAddress,
		AttemptTime: now,
	}

	user, err := s.repo.GetByEmail(ctx, input.UserType, input.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || !s.hasher.Verify(user.PasswordHash, input.Password) {
		if err := s.repo.RecordLoginAttempt(ctx, attempt); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("email", input.Email).Msg("failed to record login attempt")
		}
		return nil, apperrors.ErrInvalidCredentials
	}

	accessToken, _, err := s.tokenService.GenerateAccessToken(user.ID, user.Email, user.Type)
	if err != nil {
		return nil, err
	}

	session, err := s.issuer.IssueSession(ctx, user.ID, user.Type)
	if err != nil {
		return nil, err
	}

	attempt.Successful = true
	if err := s.repo.RecordLoginAttempt(ctx, attempt); err != nil {
		return nil, err
	}

	if s.cfg.MaxActiveSessions > 0 {
		if err := s.pruneSessions(ctx, user); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", user.ID).Msg("failed to prune old sessions")
		}
	}

	return &dto.TokenResponse{
		Success:      true,
		AccessToken:  accessToken,
		TokenType:    constant.DefaultTokenType,
		ExpiresIn:    int(s.tokenService.GetAccessTokenExpiry().Seconds()),
		RefreshToken: session.Token,
		ExpiresAt:    session.ExpiresAt,
		User:         dto.NewUserOutput(user),
	}, nil
}

// pruneSessions drops the oldest sessions once a user holds more than the cap.
func (s *UserService) pruneSessions(ctx context.Context, user *domain.User) error {
	n, err := s.sessions.CountSessionsByUser(ctx, user.Type, user.ID)
	if err != nil {
		return err
	}
	if n <= s.cfg.MaxActiveSessions {
		return nil
	}
	return s.sessions.DeleteOldestSessions(ctx, user.Type, user.ID, s.cfg.MaxActiveSessions)
}

func (s *UserService) Logout(ctx context.Context, input dto.LogoutInput) error {
	if err := dto.Validate(&input); err != nil {
		return err
	}
	err := s.sessions.DeleteSession(ctx, HashToken(input.RefreshToken))
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.ErrInvalidSession
	}
	return err
}

func (s *UserService) ListUsers(ctx context.Context, query dto.ListUsersQuery) ([]domain.User, int, error) {
	if t, ok := domain.ParseUserType(string(query.UserType)); ok {
		query.UserType = t
	}
	if err := dto.Validate(&query); err != nil {
		return nil, 0, err
	}
	if query.Limit == 0 {
		query.Limit = defaultListLimit
	}

	users, err := s.repo.List(ctx, query.UserType, query.Limit, query.Offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, query.UserType)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *UserService) Dashboard(ctx context.Context) (*dto.DashboardOutput, error) {
	out := &dto.DashboardOutput{
		Success: true,
		Counts:  make(map[domain.UserType]int, len(domain.AllUserTypes)),
	}
	for _, t := range domain.AllUserTypes {
		n, err := s.repo.Count(ctx, t)
		if err != nil {
			return nil, err
		}
		out.Counts[t] = n
	}

	active, err := s.sessions.CountActiveSessions(ctx, s.issuer.Now())
	if err != nil {
		return nil, err
	}
	out.ActiveSessions = active
	return out, nil
}

// ForceLogout revokes every session of the given user.
func (s *UserService) ForceLogout(ctx context.Context, userType, userID string) (int64, error) {
	t, ok := domain.ParseUserType(userType)
	if !ok {
		return 0, apperrors.ErrInvalidUserType
	}

	if _, err := uuid.Parse(userID); err != nil {
		return 0, apperrors.ErrUserNotFound
	}

	user, err := s.repo.GetByID(ctx, t, userID)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, apperrors.ErrUserNotFound
	}

	return s.sessions.DeleteSessionsByUser(ctx, t, userID)
}
