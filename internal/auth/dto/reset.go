package dto

import (
	"time"

	"github.com/elliesbang/class-web-app/internal/auth/domain"
)

type ResetRequestInput struct {
	Email    string          `json:"email" validate:"required"`
	UserType domain.UserType `json:"userType" validate:"required,oneof=admin student vod"`
}

func (in *ResetRequestInput) Normalize() {
	in.Email = domain.NormalizeEmail(in.Email)
	in.UserType = normalizeUserType(in.UserType)
}

type ResetRequestOutput struct {
	Success    bool      `json:"success"`
	ResetToken string    `json:"resetToken"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type ResetConfirmInput struct {
	ResetToken  string `json:"resetToken" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,password"`
}
