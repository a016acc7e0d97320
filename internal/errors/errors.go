package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/elliesbang/class-web-app/pkg/constant"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInvalidToken
	KindExpiredToken
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindTooManyRequests
	KindPayloadTooLarge
	KindUnavailable
)

var kindNames = map[Kind]string{
	KindInternal:        "internal",
	KindValidation:      "validation",
	KindInvalidToken:    "invalid_token",
	KindExpiredToken:    "expired_token",
	KindUnauthorized:    "unauthorized",
	KindForbidden:       "forbidden",
	KindNotFound:        "not_found",
	KindConflict:        "conflict",
	KindTooManyRequests: "too_many_requests",
	KindPayloadTooLarge: "payload_too_large",
	KindUnavailable:     "unavailable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "internal"
}

// AppError is an error that carries the user-visible message returned to clients.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Status maps the error kind to an HTTP status code.
func (e *AppError) Status() int {
	switch e.Kind {
	case KindValidation, KindInvalidToken:
		return http.StatusBadRequest
	case KindExpiredToken, KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func Validation(message string) *AppError {
	return New(KindValidation, message)
}

// Internal wraps an unexpected failure. The cause is kept for logging only.
func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: MsgInternal, Err: err}
}

// As extracts an *AppError from err, treating anything else as internal.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("record not found")

const (
	MsgInternal = "서버 오류가 발생했습니다."
)

var (
	ErrInvalidInput         = Validation("잘못된 요청입니다.")
	ErrEmailRequired        = Validation("이메일을 입력해주세요.")
	ErrInvalidEmail         = Validation("올바른 이메일 형식이 아닙니다.")
	ErrPasswordRequired     = Validation("비밀번호를 입력해주세요.")
	ErrInvalidUserType      = Validation("유효하지 않은 사용자 유형입니다.")
	ErrPasswordTooShort     = Validation(fmt.Sprintf("비밀번호는 %d자 이상이어야 합니다.", constant.MinPasswordLength))
	ErrPasswordTooLong      = Validation("비밀번호가 너무 깁니다.")
	ErrResetTokenRequired   = Validation("재설정 토큰이 필요합니다.")
	ErrRefreshTokenRequired = Validation("세션 토큰이 필요합니다.")
	ErrSelfSignupForbidden  = Validation("관리자 계정은 직접 가입할 수 없습니다.")
	ErrInvalidImage         = Validation("이미지 파일만 업로드할 수 있습니다.")
	ErrFileRequired         = Validation("업로드할 파일을 선택해주세요.")
	ErrImageTooLarge        = Validation("이미지 파일이 너무 큽니다.")

	ErrInvalidToken = New(KindInvalidToken, "유효하지 않은 토큰입니다.")
	ErrExpiredToken = New(KindExpiredToken, "토큰이 만료되었습니다.")

	ErrUnauthorized       = New(KindUnauthorized, "인증이 필요합니다.")
	ErrInvalidSession     = New(KindUnauthorized, "유효하지 않은 세션입니다.")
	ErrSessionExpired     = New(KindUnauthorized, "세션이 만료되었습니다.")
	ErrInvalidCredentials = New(KindUnauthorized, "이메일 또는 비밀번호가 올바르지 않습니다.")
	ErrForbidden          = New(KindForbidden, "접근 권한이 없습니다.")

	ErrUserNotFound  = New(KindNotFound, "사용자를 찾을 수 없습니다.")
	ErrEmailNotFound = New(KindNotFound, "해당 이메일로 가입된 사용자를 찾을 수 없습니다.")

	ErrEmailAlreadyInUse = New(KindConflict, "이미 가입된 이메일입니다.")

	ErrTooManyLoginAttempts = New(KindTooManyRequests, "로그인 시도 횟수를 초과했습니다. 잠시 후 다시 시도해주세요.")
	ErrTooManyResetRequests = New(KindTooManyRequests, "비밀번호 재설정 요청이 너무 많습니다. 잠시 후 다시 시도해주세요.")

	ErrRequestTooLarge = New(KindPayloadTooLarge, "요청 본문이 너무 큽니다.")

	ErrStorageUnavailable = New(KindUnavailable, "이미지 저장소를 사용할 수 없습니다.")
)
