package system

import (
	"go-outreach/internal/common/api"
	"go-outreach/internal/config"
	"go-outreach/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type SystemApi struct {
	controller *SystemController
	config     *config.Config
}

func NewSystemApi(controller *SystemController, cfg *config.Config) api.Route {
	return &SystemApi{
		controller: controller,
		config:     cfg,
	}
}

// Setup registers health, readiness, metrics and info routes
func (h *SystemApi) Setup(app *fiber.App) {
	app.Get("/health", h.controller.HealthCheck)
	app.Get("/ready", h.controller.ReadyCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/api/system/info", middleware.AuthMiddleware(h.config.SkipAuth), h.controller.GetInfo)
}
