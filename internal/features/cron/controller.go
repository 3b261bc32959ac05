package cron_feature

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

type SweepController struct {
	Service SweepService
}

func NewSweepController(service SweepService) *SweepController {
	return &SweepController{
		Service: service,
	}
}

// TriggerSweep godoc
// @Summary Trigger sweep
// @Description Start a pass for every active rule in the background
// @Tags cron
// @Produce json
// @Success 202 {object} SweepLog
// @Failure 409 {object} map[string]interface{}
// @Router /api/cron/sweeps [post]
func (c *SweepController) TriggerSweep(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entry, err := c.Service.TriggerSweep(ctxt)
	if errors.Is(err, ErrSweepInProgress) {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusAccepted).JSON(entry)
}

// GetSweepLogs godoc
// @Summary List sweeps
// @Description Most recent sweeps first
// @Tags cron
// @Produce json
// @Param limit query int false "Max logs to return"
// @Success 200 {array} SweepLog
// @Failure 500 {object} map[string]interface{}
// @Router /api/cron/sweeps [get]
func (c *SweepController) GetSweepLogs(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 50)

	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logs, err := c.Service.GetSweepLogs(ctxt, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if logs == nil {
		logs = []SweepLog{}
	}

	return ctx.JSON(logs)
}
