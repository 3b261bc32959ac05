package automation

import (
	"encoding/json"
	"errors"

	"go-outreach/internal/middleware"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
)

type AutomationController struct {
	Service AutomationService
}

func NewAutomationController(service AutomationService) *AutomationController {
	return &AutomationController{
		Service: service,
	}
}

func ruleError(c *fiber.Ctx, err error) error {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "fields": verrs})
	case errors.Is(err, ErrRuleNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Rule not found"})
	case errors.Is(err, ErrRuleLocked), errors.Is(err, ErrRuleRunning), errors.Is(err, ErrRuleChanged):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrNotInError):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

// ownedRule loads the rule and hides rules that belong to another user.
func (ctrl *AutomationController) ownedRule(c *fiber.Ctx) (*AutomationRule, error) {
	rule, err := ctrl.Service.GetRule(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if rule.UserID != middleware.CurrentUserID(c) {
		return nil, ErrRuleNotFound
	}
	return rule, nil
}

// CreateRule godoc
// @Summary Create automation rule
// @Description Create a new outreach rule. Unset limits fall back to delay 30-120s, 20/day, 09:00-12:00, 14:00-18:00.
// @Tags automation
// @Accept json
// @Produce json
// @Param rule body AutomationRule true "Automation Rule"
// @Success 201 {object} AutomationRule
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/automation/rules [post]
func (ctrl *AutomationController) CreateRule(c *fiber.Ctx) error {
	var rule AutomationRule
	if err := c.BodyParser(&rule); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	rule.UserID = middleware.CurrentUserID(c)

	// is_active defaults to true; an explicit false creates the rule paused.
	var flags struct {
		IsActive *bool `json:"is_active"`
	}
	if err := json.Unmarshal(c.Body(), &flags); err == nil && flags.IsActive != nil && !*flags.IsActive {
		rule.Status = StatusPaused
	}

	if err := ctrl.Service.CreateRule(c.UserContext(), &rule); err != nil {
		return ruleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(rule)
}

// GetRule godoc
// @Summary Get automation rule
// @Tags automation
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} AutomationRule
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/rules/{id} [get]
func (ctrl *AutomationController) GetRule(c *fiber.Ctx) error {
	rule, err := ctrl.ownedRule(c)
	if err != nil {
		return ruleError(c, err)
	}
	return c.JSON(rule)
}

// ListRules godoc
// @Summary List automation rules
// @Description List the current user's rules, newest first
// @Tags automation
// @Produce json
// @Success 200 {array} AutomationRule
// @Failure 500 {object} map[string]interface{}
// @Router /api/automation/rules [get]
func (ctrl *AutomationController) ListRules(c *fiber.Ctx) error {
	rules, err := ctrl.Service.ListRules(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return ruleError(c, err)
	}
	return c.JSON(rules)
}

// UpdateRule godoc
// @Summary Update automation rule
// @Tags automation
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param rule body AutomationRule true "Automation Rule"
// @Success 200 {object} AutomationRule
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/rules/{id} [put]
func (ctrl *AutomationController) UpdateRule(c *fiber.Ctx) error {
	if _, err := ctrl.ownedRule(c); err != nil {
		return ruleError(c, err)
	}

	var rule AutomationRule
	if err := c.BodyParser(&rule); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ctrl.Service.UpdateRule(c.UserContext(), c.Params("id"), &rule); err != nil {
		return ruleError(c, err)
	}

	return c.JSON(rule)
}

// DeleteRule godoc
// @Summary Delete automation rule
// @Tags automation
// @Param id path string true "Rule ID"
// @Success 204 {object} nil
// @Failure 409 {object} map[string]interface{}
// @Router /api/automation/rules/{id} [delete]
func (ctrl *AutomationController) DeleteRule(c *fiber.Ctx) error {
	if _, err := ctrl.ownedRule(c); err != nil {
		return ruleError(c, err)
	}
	if err := ctrl.Service.DeleteRule(c.UserContext(), c.Params("id")); err != nil {
		return ruleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleRule godoc
// @Summary Toggle automation rule
// @Description Flip is_active; status becomes ACTIVE or PAUSED
// @Tags automation
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} AutomationRule
// @Failure 409 {object} map[string]interface{}
// @Router /api/automation/rules/{id}/toggle [patch]
func (ctrl *AutomationController) ToggleRule(c *fiber.Ctx) error {
	if _, err := ctrl.ownedRule(c); err != nil {
		return ruleError(c, err)
	}
	rule, err := ctrl.Service.ToggleRule(c.UserContext(), c.Params("id"))
	if err != nil {
		return ruleError(c, err)
	}
	return c.JSON(rule)
}

// ResetRule godoc
// @Summary Reset a rule in ERROR
// @Tags automation
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} AutomationRule
// @Failure 400 {object} map[string]interface{}
// @Router /api/automation/rules/{id}/reset [post]
func (ctrl *AutomationController) ResetRule(c *fiber.Ctx) error {
	if _, err := ctrl.ownedRule(c); err != nil {
		return ruleError(c, err)
	}
	rule, err := ctrl.Service.ResetRule(c.UserContext(), c.Params("id"))
	if err != nil {
		return ruleError(c, err)
	}
	return c.JSON(rule)
}
