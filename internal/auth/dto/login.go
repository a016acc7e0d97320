package dto

import (
	"time"

	"github.com/elliesbang/class-web-app/internal/auth/domain"
)

type LoginInput struct {
	Email     string          `json:"email" validate:"required"`
	Password  string          `json:"password" validate:"required"`
	UserType  domain.UserType `json:"userType" validate:"required,oneof=admin student vod"`
	IPAddress string          `json:"-"`
}

func (in *LoginInput) Normalize() {
	in.Email = domain.NormalizeEmail(in.Email)
	in.UserType = normalizeUserType(in.UserType)
}

type TokenResponse struct {
	Success      bool       `json:"success"`
	AccessToken  string     `json:"accessToken"`
	TokenType    string     `json:"tokenType"`
	ExpiresIn    int        `json:"expiresIn"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	User         UserOutput `json:"user"`
}

type LogoutInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}
