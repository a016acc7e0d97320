package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/elliesbang/class-web-app/internal/auth/dto"
	"github.com/elliesbang/class-web-app/internal/auth/service"
	apperrors "github.com/elliesbang/class-web-app/internal/errors"
	"github.com/elliesbang/class-web-app/internal/metrics"
	"github.com/elliesbang/class-web-app/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// sniffLen is how much of an upload http.DetectContentType looks at.
const sniffLen = 512

type ImageStore interface {
	PutImage(ctx context.Context, r io.Reader, size int64, contentType, filename string) (*storage.StoredObject, error)
}

type AdminHandler struct {
	userService    *service.UserService
	images         ImageStore
	maxUploadBytes int64
	metrics        *metrics.Metrics
}

// NewAdminHandler builds the admin console handlers. images may be nil, in which
// case uploads answer 503.
func NewAdminHandler(userService *service.UserService, images ImageStore, maxUploadBytes int64, m *metrics.Metrics) *AdminHandler {
	return &AdminHandler{
		userService:    userService,
		images:         images,
		maxUploadBytes: maxUploadBytes,
		metrics:        m,
	}
}

func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	const op = "admin_create_user"

	var input dto.CreateUserInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, h.metrics, op, apperrors.ErrInvalidInput)
	}

	user, err := h.userService.CreateUser(c.UserContext(), input)
	if err != nil {
		return fail(c, h.metrics, op, err)
	}

	h.audit(c, op).Str("user_id", user.ID).Str("user_type", string(user.Type)).Msg("user created")
	return respond(c, h.metrics, op, fiber.StatusCreated, fiber.Map{
		"success": true,
		"user":    dto.NewUserOutput(user),
	})
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	const op = "admin_list_users"

	var query dto.ListUsersQuery
	if err := c.QueryParser(&query); err != nil {
		return fail(c, h.metrics, op, apperrors.ErrInvalidInput)
	}

	users, total, err := h.userService.ListUsers(c.UserContext(), query)
	if err != nil {
		return fail(c, h.metrics, op, err)
	}

	out := dto.UserListOutput{Success: true, Users: make([]dto.UserOutput, 0, len(users)), Total: total}
	for i := range users {
		out.Users = append(out.Users, dto.NewUserOutput(&users[i]))
	}
	return respond(c, h.metrics, op, fiber.StatusOK, out)
}

func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	const op = "admin_dashboard"

	out, err := h.userService.Dashboard(c.UserContext())
	if err != nil {
		return fail(c, h.metrics, op, err)
	}
	return respond(c, h.metrics, op, fiber.StatusOK, out)
}

func (h *AdminHandler) ForceLogout(c *fiber.Ctx) error {
	const op = "admin_force_logout"

	revoked, err := h.userService.ForceLogout(c.UserContext(), c.Params("userType"), c.Params("id"))
	if err != nil {
		return fail(c, h.metrics, op, err)
	}

	h.audit(c, op).Str("user_id", c.Params("id")).Int64("revoked", revoked).Msg("sessions revoked")
	return respond(c, h.metrics, op, fiber.StatusOK, dto.ForceLogoutOutput{Success: true, Revoked: revoked})
}

// audit starts an info line naming the admin behind a state-changing request.
func (h *AdminHandler) audit(c *fiber.Ctx, op string) *zerolog.Event {
	ev := zerolog.Ctx(c.UserContext()).Info().Str("operation", op)
	if claims := ClaimsFrom(c); claims != nil {
		ev = ev.Str("admin_id", claims.UserID)
	}
	return ev
}

// UploadImage stores a course image. The content type is sniffed from the bytes,
// not taken from the client.
func (h *AdminHandler) UploadImage(c *fiber.Ctx) error {
	const op = "admin_upload_image"

	if h.images == nil {
		return fail(c, h.metrics, op, apperrors.ErrStorageUnavailable)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, h.metrics, op, apperrors.ErrFileRequired)
	}
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		return fail(c, h.metrics, op, apperrors.ErrImageTooLarge)
	}

	f, err := fh.Open()
	if err != nil {
		return fail(c, h.metrics, op, err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fail(c, h.metrics, op, err)
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return fail(c, h.metrics, op, apperrors.ErrInvalidImage)
	}

	obj, err := h.images.PutImage(c.UserContext(), io.MultiReader(bytes.NewReader(head), f), fh.Size, contentType, fh.Filename)
	if err != nil {
		return fail(c, h.metrics, op, &apperrors.AppError{
			Kind:    apperrors.KindUnavailable,
			Message: apperrors.ErrStorageUnavailable.Message,
			Err:     err,
		})
	}

	return respond(c, h.metrics, op, fiber.StatusCreated, dto.UploadOutput{Success: true, Key: obj.Key, URL: obj.URL})
}
