package cron_feature

import (
	"go-outreach/internal/common/api"
	"go-outreach/internal/config"
	"go-outreach/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type SweepApi struct {
	sweepController *SweepController
	config          *config.Config
}

func NewSweepApi(
	sweepController *SweepController,
	config *config.Config,
) api.Route {
	return &SweepApi{
		sweepController: sweepController,
		config:          config,
	}
}

func (h *SweepApi) Setup(app *fiber.App) {
	sweeps := app.Group("/api/cron/sweeps", middleware.AuthMiddleware(h.config.SkipAuth))

	sweeps.Get("/", h.sweepController.GetSweepLogs)
	sweeps.Post("/", h.sweepController.TriggerSweep)
}
