package dto

import (
	"strings"
	"testing"

	apperrors "github.com/elliesbang/class-web-app/internal/errors"
	"github.com/elliesbang/class-web-app/pkg/constant"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  error
	}{
		{"reset request ok", &ResetRequestInput{Email: "a@b.c", UserType: "student"}, nil},
		{"reset request missing email", &ResetRequestInput{UserType: "student"}, apperrors.ErrEmailRequired},
		{"reset request bad type", &ResetRequestInput{Email: "a@b.c", UserType: "instructor"}, apperrors.ErrInvalidUserType},
		{"reset request missing type", &ResetRequestInput{Email: "a@b.c"}, apperrors.ErrInvalidUserType},
		{"confirm ok", &ResetConfirmInput{ResetToken: "T", NewPassword: "longenough1"}, nil},
		{"confirm missing token", &ResetConfirmInput{NewPassword: "longenough1"}, apperrors.ErrResetTokenRequired},
		{"confirm short password", &ResetConfirmInput{ResetToken: "T", NewPassword: "short"}, apperrors.ErrPasswordTooShort},
		{"confirm empty password", &ResetConfirmInput{ResetToken: "T"}, apperrors.ErrPasswordTooShort},
		{"confirm counts characters not bytes", &ResetConfirmInput{ResetToken: "T", NewPassword: "비밀번호는여덟자"}, nil},
		{"confirm multibyte below minimum", &ResetConfirmInput{ResetToken: "T", NewPassword: "비밀번호칠자다"}, apperrors.ErrPasswordTooShort},
		{"register one below minimum", &RegisterInput{Email: "a@b.c", Password: strings.Repeat("a", constant.MinPasswordLength-1), UserType: "vod"}, apperrors.ErrPasswordTooShort},
		{"register at minimum", &RegisterInput{Email: "a@b.c", Password: strings.Repeat("a", constant.MinPasswordLength), UserType: "vod"}, nil},
		{"session missing token", &SessionInput{}, apperrors.ErrRefreshTokenRequired},
		{"register bad email", &RegisterInput{Email: "nope", Password: "longenough1", UserType: "vod"}, apperrors.ErrInvalidEmail},
		{"login missing password", &LoginInput{Email: "a@b.c", UserType: "vod"}, apperrors.ErrPasswordRequired},
		{"list bad limit", &ListUsersQuery{UserType: "admin", Limit: 1000}, apperrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, err)
		})
	}
}

func TestNormalize(t *testing.T) {
	in := ResetRequestInput{Email: "  Student@Example.COM ", UserType: " Student "}
	in.Normalize()

	assert.Equal(t, "student@example.com", in.Email)
	assert.EqualValues(t, "student", in.UserType)
}
