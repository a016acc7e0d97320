package dto

import (
	"time"

	"github.com/elliesbang/class-web-app/internal/auth/domain"
)

// UserOutput is the public view of a user; the password hash never leaves the service.
type UserOutput struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	UserType  domain.UserType `json:"userType"`
	CreatedAt time.Time       `json:"createdAt"`
}

func NewUserOutput(u *domain.User) UserOutput {
	return UserOutput{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		UserType:  u.Type,
		CreatedAt: u.CreatedAt,
	}
}

type CreateUserInput struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,password"`
	Name     string          `json:"name" validate:"max=100"`
	UserType domain.UserType `json:"userType" validate:"required,oneof=admin student vod"`
}

func (in *CreateUserInput) Normalize() {
	in.Email = domain.NormalizeEmail(in.Email)
	in.UserType = normalizeUserType(in.UserType)
}

type ListUsersQuery struct {
	UserType domain.UserType `query:"userType" validate:"required,oneof=admin student vod"`
	Limit    int             `query:"limit" validate:"min=0,max=100"`
	Offset   int             `query:"offset" validate:"min=0"`
}

type UserListOutput struct {
	Success bool         `json:"success"`
	Users   []UserOutput `json:"users"`
	Total   int          `json:"total"`
}

type DashboardOutput struct {
	Success        bool                    `json:"success"`
	Counts         map[domain.UserType]int `json:"counts"`
	ActiveSessions int                     `json:"activeSessions"`
}

type ForceLogoutOutput struct {
	Success bool  `json:"success"`
	Revoked int64 `json:"revoked"`
}

type UploadOutput struct {
	Success bool   `json:"success"`
	Key     string `json:"key"`
	URL     string `json:"url"`
}
