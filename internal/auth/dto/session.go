package dto

import "time"

type SessionInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type SessionOutput struct {
	Success      bool       `json:"success"`
	User         UserOutput `json:"user"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresAt    time.Time  `json:"expiresAt"`
}
