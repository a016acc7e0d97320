package domain

import (
	"strings"
	"time"
)

// UserType selects which credential table a user, session or reset token refers to.
type UserType string

const (
	UserTypeAdmin   UserType = "admin"
	UserTypeStudent UserType = "student"
	UserTypeVOD     UserType = "vod"
)

var AllUserTypes = []UserType{UserTypeAdmin, UserTypeStudent, UserTypeVOD}

func ParseUserType(s string) (UserType, bool) {
	t := UserType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case UserTypeAdmin, UserTypeStudent, UserTypeVOD:
		return t, true
	}
	return "", false
}

// NormalizeEmail lower-cases and trims an address; emails are stored in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type User struct {
	ID           string
	Type         UserType
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session maps a hashed opaque refresh token to a user.
type Session struct {
	TokenHash string
	UserID    string
	UserType  UserType
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ResetToken authorizes exactly one password change for Email in the UserType table.
type ResetToken struct {
	TokenHash string
	Email     string
	UserType  UserType
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (t *ResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

type LoginAttempt struct {
	Email       string
	UserType    UserType
	IPAddress   string
	AttemptTime time.Time
	Successful  bool
}
