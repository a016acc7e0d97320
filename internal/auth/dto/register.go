package dto

import "github.com/elliesbang/class-web-app/internal/auth/domain"

type RegisterInput struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,password"`
	Name     string          `json:"name" validate:"max=100"`
	UserType domain.UserType `json:"userType" validate:"required,oneof=admin student vod"`
}

func (in *RegisterInput) Normalize() {
	in.Email = domain.NormalizeEmail(in.Email)
	in.UserType = normalizeUserType(in.UserType)
}
