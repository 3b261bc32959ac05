package engine

import (
	"go-outreach/internal/common/api"
	"go-outreach/internal/config"
	"go-outreach/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type EngineApi struct {
	controller *EngineController
	config     *config.Config
}

func NewEngineApi(controller *EngineController, config *config.Config) api.Route {
	return &EngineApi{
		controller: controller,
		config:     config,
	}
}

func (h *EngineApi) Setup(app *fiber.App) {
	group := app.Group("/api/automation/rules", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/:id/execute", h.controller.ExecuteRule)
	group.Get("/:id/running", h.controller.IsRuleRunning)
	group.Post("/:id/stop", h.controller.StopRule)
	group.Delete("/:id/run", h.controller.ReleaseRun)
	group.Get("/:id/schedule", h.controller.GetSchedule)
}
