package handler

import (
	"github.com/elliesbang/class-web-app/internal/auth/domain"
	"github.com/elliesbang/class-web-app/internal/metrics"
	"github.com/elliesbang/class-web-app/pkg/constant"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler, admin *AdminHandler) {
	jsonBody := LimitBody(constant.MaxJSONBodyBytes)

	auth := app.Group("/api/v1/auth", jsonBody)
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Post("/logout", h.Logout)
	auth.Post("/reset/request", h.RequestReset)
	auth.Post("/reset/confirm", h.ConfirmReset)
	auth.Post("/session/verify", h.VerifySession)

	// Admin-only endpoints
	group := app.Group("/api/v1/admin", h.RequireRole(domain.UserTypeAdmin))
	group.Post("/users", jsonBody, admin.CreateUser)
	group.Get("/users", admin.ListUsers)
	group.Get("/dashboard", admin.Dashboard)
	group.Delete("/users/:userType/:id/sessions", admin.ForceLogout)
	group.Post("/uploads/images", admin.UploadImage)
}

// RegisterOpsRoutes mounts the health check and the Prometheus scrape endpoint.
func RegisterOpsRoutes(app *fiber.App, m *metrics.Metrics) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
}
