package engine

import (
	"errors"
	"time"

	"go-outreach/internal/features/automation"
	"go-outreach/internal/features/execution_log"
	"go-outreach/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type EngineController struct {
	Coordinator *Coordinator
	Rules       automation.AutomationService
}

func NewEngineController(coordinator *Coordinator, rules automation.AutomationService) *EngineController {
	return &EngineController{
		Coordinator: coordinator,
		Rules:       rules,
	}
}

// ExecuteResponse is the body of POST /execute.
type ExecuteResponse struct {
	Success         bool                         `json:"success"`
	RuleID          string                       `json:"ruleId"`
	RuleName        string                       `json:"ruleName"`
	PassID          string                       `json:"passId,omitempty"`
	Eligible        bool                         `json:"eligible"`
	Reason          string                       `json:"reason,omitempty"`
	Outcome         PassOutcome                  `json:"outcome"`
	ExecutedActions int                          `json:"executedActions"`
	Logs            []execution_log.ExecutionLog `json:"logs"`
	NextEligibleAt  *time.Time                   `json:"nextEligibleAt,omitempty"`
	Budget          *Budget                      `json:"budget,omitempty"`
	Error           string                       `json:"error,omitempty"`
}

func engineError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrRuleNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Rule not found"})
	case errors.Is(err, ErrRuleNotActive):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrRuleAlreadyRunning):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrNoRunInProgress):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

func (ctrl *EngineController) owned(c *fiber.Ctx) error {
	rule, err := ctrl.Rules.GetRule(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if rule.UserID != middleware.CurrentUserID(c) {
		return ErrRuleNotFound
	}
	return nil
}

// ExecuteRule godoc
// @Summary Execute automation rule
// @Description Run one pass now. Outside the trigger windows the pass is skipped with eligible=false.
// @Tags engine
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} ExecuteResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/automation/rules/{id}/execute [post]
func (ctrl *EngineController) ExecuteRule(c *fiber.Ctx) error {
	if err := ctrl.owned(c); err != nil {
		return engineError(c, err)
	}

	result, err := ctrl.Coordinator.RunPass(c.UserContext(), c.Params("id"))
	if result == nil {
		return engineError(c, err)
	}

	resp := ExecuteResponse{
		Success:         err == nil,
		RuleID:          result.RuleID,
		RuleName:        result.RuleName,
		PassID:          result.PassID,
		Eligible:        result.Eligible,
		Reason:          result.Reason,
		Outcome:         result.Outcome,
		ExecutedActions: result.ExecutedActions(),
		Logs:            result.Logs,
		NextEligibleAt:  result.NextEligibleAt,
		Budget:          result.Budget,
	}
	if err != nil {
		resp.Error = err.Error()
		if !errors.Is(err, ErrConsecutiveFailureAbort) {
			return c.Status(fiber.StatusInternalServerError).JSON(resp)
		}
	}
	return c.JSON(resp)
}

// IsRuleRunning godoc
// @Summary Check whether a pass is in flight
// @Tags engine
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/automation/rules/{id}/running [get]
func (ctrl *EngineController) IsRuleRunning(c *fiber.Ctx) error {
	if err := ctrl.owned(c); err != nil {
		return engineError(c, err)
	}
	marker, err := ctrl.Coordinator.RunState(c.UserContext(), c.Params("id"))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(fiber.Map{
		"ruleId":    c.Params("id"),
		"isRunning": marker != nil,
		"run":       marker,
	})
}

// StopRule godoc
// @Summary Stop the running pass
// @Description The pass ends before its next action and releases its marker
// @Tags engine
// @Param id path string true "Rule ID"
// @Success 202 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/rules/{id}/stop [post]
func (ctrl *EngineController) StopRule(c *fiber.Ctx) error {
	if err := ctrl.owned(c); err != nil {
		return engineError(c, err)
	}
	if err := ctrl.Coordinator.RequestStop(c.UserContext(), c.Params("id")); err != nil {
		return engineError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ruleId": c.Params("id"), "stopRequested": true})
}

// ReleaseRun godoc
// @Summary Force-release a stuck run marker
// @Tags engine
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} RunMarker
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/rules/{id}/run [delete]
func (ctrl *EngineController) ReleaseRun(c *fiber.Ctx) error {
	if err := ctrl.owned(c); err != nil {
		return engineError(c, err)
	}
	marker, err := ctrl.Coordinator.ForceRelease(c.UserContext(), c.Params("id"))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(marker)
}

// GetSchedule godoc
// @Summary Eligibility and remaining budget
// @Tags engine
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} ScheduleInfo
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/rules/{id}/schedule [get]
func (ctrl *EngineController) GetSchedule(c *fiber.Ctx) error {
	if err := ctrl.owned(c); err != nil {
		return engineError(c, err)
	}
	info, err := ctrl.Coordinator.Schedule(c.UserContext(), c.Params("id"))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(info)
}
