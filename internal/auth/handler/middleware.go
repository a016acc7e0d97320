package handler

import (
	"strings"
	"time"

	"github.com/elliesbang/class-web-app/internal/auth/domain"
	"github.com/elliesbang/class-web-app/internal/auth/service"
	apperrors "github.com/elliesbang/class-web-app/internal/errors"
	"github.com/elliesbang/class-web-app/pkg/constant"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDLocal = "requestid"

// RequestID tags every request with a UUID, reusing the caller's X-Request-Id if present.
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     constant.HeaderRequestID,
		Generator:  uuid.NewString,
		ContextKey: requestIDLocal,
	})
}

// RequestLogger attaches a request-scoped logger to the user context and logs
// one line per request once the response is known.
func RequestLogger(base zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		reqID, _ := c.Locals(requestIDLocal).(string)

		log := base.With().Str("request_id", reqID).Logger()
		c.SetUserContext(log.WithContext(c.UserContext()))

		err := c.Next()
		if err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		event := log.Info()
		if status >= fiber.StatusInternalServerError {
			event = log.Error()
		} else if status >= fiber.StatusBadRequest {
			event = log.Warn()
		}
		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.IP()).
			Msg("request")
		return nil
	}
}

// RequireRole only lets requests through that carry a valid access token for role.
// The verified claims are stored under constant.CtxClaimsKey.
func (h *AuthHandler) RequireRole(role domain.UserType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		const op = "authorize"

		token, found := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), constant.DefaultTokenType+" ")
		token = strings.TrimSpace(token)
		if !found || token == "" {
			return fail(c, h.metrics, op, apperrors.ErrUnauthorized)
		}

		claims, err := h.tokenService.VerifyAccessToken(token)
		if err != nil {
			return fail(c, h.metrics, op, apperrors.ErrUnauthorized)
		}
		if claims.UserType != role {
			return fail(c, h.metrics, op, apperrors.ErrForbidden)
		}

		c.Locals(constant.CtxClaimsKey, claims)
		return c.Next()
	}
}

// ClaimsFrom returns the claims RequireRole verified for this request, or nil.
func ClaimsFrom(c *fiber.Ctx) *service.JWTCustomClaims {
	claims, _ := c.Locals(constant.CtxClaimsKey).(*service.JWTCustomClaims)
	return claims
}

// LimitBody answers 413 for bodies larger than n bytes.
func LimitBody(n int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Request().Header.ContentLength() > n || len(c.Body()) > n {
			return apperrors.ErrRequestTooLarge
		}
		return c.Next()
	}
}
