package dto

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/elliesbang/class-web-app/internal/auth/domain"
	apperrors "github.com/elliesbang/class-web-app/internal/errors"
	"github.com/elliesbang/class-web-app/pkg/constant"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// "password" enforces the minimum length in characters, not bytes.
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return utf8.RuneCountInString(fl.Field().String()) >= constant.MinPasswordLength
	})
	return v
}

// Validate checks v against its struct tags and returns the user-facing error for
// the first failing field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.ErrInvalidInput
	}

	fe := fieldErrs[0]
	switch fe.Field() {
	case "Email":
		if fe.Tag() == "required" {
			return apperrors.ErrEmailRequired
		}
		return apperrors.ErrInvalidEmail
	case "Password", "NewPassword":
		if fe.Tag() == "required" && fe.Field() == "Password" {
			return apperrors.ErrPasswordRequired
		}
		return apperrors.ErrPasswordTooShort
	case "UserType":
		return apperrors.ErrInvalidUserType
	case "ResetToken":
		return apperrors.ErrResetTokenRequired
	case "RefreshToken":
		return apperrors.ErrRefreshTokenRequired
	}
	return apperrors.ErrInvalidInput
}

func normalizeUserType(t domain.UserType) domain.UserType {
	return domain.UserType(strings.ToLower(strings.TrimSpace(string(t))))
}
