package execution_log

import (
	"go-outreach/internal/common/api"
	"go-outreach/internal/config"
	"go-outreach/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type ExecutionLogApi struct {
	controller *ExecutionLogController
	config     *config.Config
}

func NewExecutionLogApi(controller *ExecutionLogController, config *config.Config) api.Route {
	return &ExecutionLogApi{
		controller: controller,
		config:     config,
	}
}

func (h *ExecutionLogApi) Setup(app *fiber.App) {
	group := app.Group("/api/execution-logs", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", h.controller.ListLogs)
	group.Get("/export", h.controller.ExportLogs)

	app.Get("/api/ws/execution-logs",
		middleware.AuthMiddleware(h.config.SkipAuth),
		h.controller.AuthorizeStream,
		websocket.New(h.controller.StreamLogs))
}
