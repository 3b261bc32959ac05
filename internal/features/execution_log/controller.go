package execution_log

import (
	"fmt"
	"time"

	"go-outreach/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ExecutionLogController struct {
	Service ExecutionLogService
	Feed    *Feed
	Logger  *zap.Logger
}

func NewExecutionLogController(service ExecutionLogService, feed *Feed, logger *zap.Logger) *ExecutionLogController {
	return &ExecutionLogController{
		Service: service,
		Feed:    feed,
		Logger:  logger.Named("execution_log"),
	}
}

func filterFromQuery(c *fiber.Ctx) ListFilter {
	return ListFilter{
		RuleID:     c.Query("rule_id"),
		AccountID:  c.Query("account_id"),
		ActionType: c.Query("action_type"),
		Outcome:    c.Query("outcome"),
		UserID:     middleware.CurrentUserID(c),
		Page:       int64(c.QueryInt("page", 1)),
		Limit:      int64(c.QueryInt("limit", 50)),
	}
}

// ListLogs godoc
// @Summary List execution logs
// @Description Paged execution log for the current user, newest first
// @Tags execution-logs
// @Produce json
// @Param rule_id query string false "Rule ID"
// @Param account_id query string false "Account ID"
// @Param action_type query string false "Action type"
// @Param outcome query string false "SUCCESS, FAILED or SKIPPED"
// @Param page query int false "Page"
// @Param limit query int false "Page size (default 50)"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/execution-logs [get]
func (ctrl *ExecutionLogController) ListLogs(c *fiber.Ctx) error {
	filter := filterFromQuery(c)
	filter.Normalize()

	logs, total, err := ctrl.Service.List(c.UserContext(), filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"data":  logs,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

// ExportLogs godoc
// @Summary Export execution logs
// @Description Download matching execution log entries as an Excel workbook
// @Tags execution-logs
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param rule_id query string false "Rule ID"
// @Param account_id query string false "Account ID"
// @Success 200 {file} file
// @Failure 500 {object} map[string]interface{}
// @Router /api/execution-logs/export [get]
func (ctrl *ExecutionLogController) ExportLogs(c *fiber.Ctx) error {
	data, err := ctrl.Service.Export(c.UserContext(), filterFromQuery(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	filename := fmt.Sprintf("execution_logs_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	return c.Send(data)
}

// streamUserKey carries the authenticated user across the websocket upgrade.
const streamUserKey = "stream_user_id"

// AuthorizeStream rejects non-upgrade requests and pins the caller's user id
// for StreamLogs.
func (ctrl *ExecutionLogController) AuthorizeStream(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	c.Locals(streamUserKey, userID)
	return c.Next()
}

// StreamLogs pushes newly appended entries of the caller's rules to a
// websocket client. Optional ?rule_id= narrows the stream to one rule; a rule
// owned by someone else yields nothing.
func (ctrl *ExecutionLogController) StreamLogs(c *websocket.Conn) {
	userID, _ := c.Locals(streamUserKey).(string)
	if userID == "" {
		return
	}
	entries, unsubscribe := ctrl.Feed.Subscribe(userID, c.Query("rule_id"))
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case entry, ok := <-entries:
			if !ok {
				return
			}
			if err := c.WriteJSON(entry); err != nil {
				ctrl.Logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}
