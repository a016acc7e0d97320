package handler

import (
	"errors"

	apperrors "github.com/elliesbang/class-web-app/internal/errors"
	"github.com/elliesbang/class-web-app/internal/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const outcomeSuccess = "success"

// fail writes err as {success:false, message} and records the outcome.
// Internal errors are logged with their cause; the client only sees the generic message.
func fail(c *fiber.Ctx, m *metrics.Metrics, op string, err error) error {
	appErr := apperrors.As(err)
	if appErr.Kind == apperrors.KindInternal || appErr.Kind == apperrors.KindUnavailable {
		zerolog.Ctx(c.UserContext()).Error().Err(err).Str("operation", op).Msg("request failed")
	}
	m.Observe(op, appErr.Kind.String())

	return c.Status(appErr.Status()).JSON(fiber.Map{
		"success": false,
		"message": appErr.Message,
	})
}

func respond(c *fiber.Ctx, m *metrics.Metrics, op string, status int, body any) error {
	m.Observe(op, outcomeSuccess)
	return c.Status(status).JSON(body)
}

// ErrorHandler converts anything a handler did not answer itself (unknown routes,
// oversized bodies, recovered panics) into the same error envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := apperrors.MsgInternal

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		if status < fiber.StatusInternalServerError {
			message = fe.Message
		}
	} else {
		appErr := apperrors.As(err)
		status = appErr.Status()
		message = appErr.Message
	}

	if status >= fiber.StatusInternalServerError {
		zerolog.Ctx(c.UserContext()).Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
