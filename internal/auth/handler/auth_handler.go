package handler

import (
	"github.com/elliesbang/class-web-app/internal/auth/dto"
	"github.com/elliesbang/class-web-app/internal/auth/service"
	apperrors "github.com/elliesbang/class-web-app/internal/errors"
	"github.com/elliesbang/class-web-app/internal/metrics"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	userService    *service.UserService
	resetService   *service.ResetService
	sessionService *service.SessionService
	tokenService   service.TokenGenerator
	metrics        *metrics.Metrics
}

func NewAuthHandler(
	userService *service.UserService,
	resetService *service.ResetService,
	sessionService *service.SessionService,
	tokenService service.TokenGenerator,
	m *metrics.Metrics,
) *AuthHandler {
	return &AuthHandler{
		userService:    userService,
		resetService:   resetService,
		sessionService: sessionService,
		tokenService:   tokenService,
		metrics:        m,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	const op = "register"

	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, h.metrics, op, apperrors.ErrInvalidInput)
	}

	user, err := h.userService.Register(c.UserContext(), input)
	if err != nil {
		return fail(c, h.metrics, op, err)
	}

	return respond(c, h.metrics, op, fiber.StatusCreated, fiber.Map{
		"success": true,
		"user":    dto.NewUserOutput(user),
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	const op = "login"

	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, h.metrics, op, apperrors.ErrInvalidInput)
	}
	input.IPAddress = c.IP()

	resp, err := h.userService.Login(c.UserContext(), input)
	if err != nil {
		return fail(c, h.metrics, op, err)
	}

	return respond(c, h.metrics, op, fiber.StatusOK, resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	const op = "logout"

	var input dto.LogoutInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, h.metrics, op, apperrors.ErrInvalidInput)
	}

	if err := h.userService.Logout(c.UserContext(), input); err != nil {
		return fail(c, h.metrics, op, err)
	}

	return respond(c, h.metrics, op, fiber.StatusOK, fiber.Map{"success": true})
}

func (h *AuthHandler) RequestReset(c *fiber.Ctx) error {
	const op = "reset_request"

	var input dto.ResetRequestInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, h.metrics, op, apperrors.ErrInvalidInput)
	}

	issued, err := h.resetService.RequestReset(c.UserContext(), input)
	if err != nil {
		return fail(c, h.metrics, op, err)
	}

	return respond(c, h.metrics, op, fiber.StatusOK, dto.ResetRequestOutput{
		Success:    true,
		ResetToken: issued.Token,
		ExpiresAt:  issued.ExpiresAt,
	})
}

func (h *AuthHandler) ConfirmReset(c *fiber.Ctx) error {
	const op = "reset_confirm"

	var input dto.ResetConfirmInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, h.metrics, op, apperrors.ErrInvalidInput)
	}

	if err := h.resetService.ConfirmReset(c.UserContext(), input); err != nil {
		return fail(c, h.metrics, op, err)
	}

	return respond(c, h.metrics, op, fiber.StatusOK, fiber.Map{"success": true})
}

func (h *AuthHandler) VerifySession(c *fiber.Ctx) error {
	const op = "session_verify"

	var input dto.SessionInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, h.metrics, op, apperrors.ErrInvalidInput)
	}

	out, err := h.sessionService.Verify(c.UserContext(), input)
	if err != nil {
		return fail(c, h.metrics, op, err)
	}

	return respond(c, h.metrics, op, fiber.StatusOK, out)
}
