package system

import (
	"context"
	"time"

	"go-outreach/internal/config"
	"go-outreach/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether the primary store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SubscriberCounter reports live execution log subscribers.
type SubscriberCounter interface {
	Subscribers() int
}

type SystemController struct {
	store  Pinger
	feed   SubscriberCounter
	config *config.Config
	start  time.Time
}

func NewSystemController(store Pinger, feed SubscriberCounter, cfg *config.Config) *SystemController {
	return &SystemController{
		store:  store,
		feed:   feed,
		config: cfg,
		start:  time.Now(),
	}
}

// HealthCheck godoc
// @Summary      Health Check
// @Description  Check if the server is up
// @Tags         health
// @Produce      plain
// @Success      200  {string}  string  "OK"
// @Router       /health [get]
func (c *SystemController) HealthCheck(ctx *fiber.Ctx) error {
	return ctx.SendString("OK")
}

// ReadyCheck godoc
// @Summary      Readiness Check
// @Description  Check that the database is reachable
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /ready [get]
func (c *SystemController) ReadyCheck(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.store.Ping(ctxt); err != nil {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"status": "ready"})
}

// GetInfo godoc
// @Summary      Runtime info
// @Description  Current user and engine settings
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/system/info [get]
func (c *SystemController) GetInfo(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"user_id":                   middleware.CurrentUserID(ctx),
		"environment":               c.config.Environment,
		"default_timezone":          c.config.DefaultTimezone,
		"consecutive_failure_limit": c.config.ConsecutiveFailureLimit,
		"action_timeout":            c.config.ActionTimeout.String(),
		"sweep_schedule":            c.config.SweepSchedule,
		"live_subscribers":          c.feed.Subscribers(),
		"uptime":                    time.Since(c.start).Round(time.Second).String(),
	})
}
