package automation

import (
	"context"
	"errors"
	"fmt"

	common_models "go-outreach/internal/common/models"
	"go-outreach/internal/features/audit"

	"go.uber.org/zap"
)

var (
	ErrRuleNotFound = errors.New("rule not found")
	// ErrRuleLocked is returned when a user edit would revive an ERROR or COMPLETED rule.
	ErrRuleLocked  = errors.New("rule is locked in a terminal status")
	ErrRuleRunning = errors.New("rule has a pass in progress")
	ErrNotInError  = errors.New("rule is not in ERROR status")
	// ErrRuleChanged is returned when the stored status moved between read and write.
	ErrRuleChanged = errors.New("rule status changed concurrently, reload and retry")
)

// RunGuard answers whether a rule currently holds a run marker.
type RunGuard interface {
	IsRunning(ctx context.Context, ruleID string) (bool, error)
}

type AutomationService interface {
	CreateRule(ctx context.Context, rule *AutomationRule) error
	GetRule(ctx context.Context, id string) (*AutomationRule, error)
	ListRules(ctx context.Context, userID string) ([]AutomationRule, error)
	UpdateRule(ctx context.Context, id string, rule *AutomationRule) error
	DeleteRule(ctx context.Context, id string) error
	ToggleRule(ctx context.Context, id string) (*AutomationRule, error)
	ResetRule(ctx context.Context, id string) (*AutomationRule, error)
}

type AutomationServiceImpl struct {
	Repo         AutomationRepository
	AuditService audit.AuditService
	CheckScript  ScriptChecker
	Guard        RunGuard
	Logger       *zap.Logger
}

func NewAutomationService(repo AutomationRepository, auditService audit.AuditService, checkScript ScriptChecker, guard RunGuard, logger *zap.Logger) AutomationService {
	return &AutomationServiceImpl{
		Repo:         repo,
		AuditService: auditService,
		CheckScript:  checkScript,
		Guard:        guard,
		Logger:       logger.Named("automation"),
	}
}

// CreateRule stores a new rule. New rules are active unless created PAUSED.
func (s *AutomationServiceImpl) CreateRule(ctx context.Context, rule *AutomationRule) error {
	rule.ApplyDefaults()
	rule.IsActive = rule.Status != StatusPaused
	if err := rule.Validate(ctx, s.CheckScript); err != nil {
		return err
	}
	if err := rule.Prepare(); err != nil {
		return err
	}
	if err := s.Repo.Create(ctx, rule); err != nil {
		return err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionCreate, "rule", rule.ID.Hex(), map[string]common_models.Change{
		"rule": {New: rule},
	})
	return nil
}

func (s *AutomationServiceImpl) GetRule(ctx context.Context, id string) (*AutomationRule, error) {
	rule, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}
	return rule, nil
}

func (s *AutomationServiceImpl) ListRules(ctx context.Context, userID string) ([]AutomationRule, error) {
	return s.Repo.ListByUser(ctx, userID)
}

// UpdateRule replaces the user-editable fields. ERROR and COMPLETED are owned
// by the engine and are preserved; use ResetRule to leave ERROR.
func (s *AutomationServiceImpl) UpdateRule(ctx context.Context, id string, rule *AutomationRule) error {
	existing, err := s.GetRule(ctx, id)
	if err != nil {
		return err
	}

	rule.ID = existing.ID
	rule.UserID = existing.UserID
	rule.CreatedAt = existing.CreatedAt
	rule.LastRunAt = existing.LastRunAt
	rule.ApplyDefaults()
	if existing.Status.Terminal() {
		rule.Status = StatusActive // validated as a user status, restored below
	}
	if err := rule.Validate(ctx, s.CheckScript); err != nil {
		return err
	}
	if existing.Status.Terminal() {
		rule.Status = existing.Status
		rule.IsActive = existing.IsActive
		rule.LastError = existing.LastError
	}
	if err := rule.Prepare(); err != nil {
		return err
	}
	if err := s.Repo.Update(ctx, rule, existing.Status); err != nil {
		return err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionUpdate, "rule", id, map[string]common_models.Change{
		"rule": {Old: existing, New: rule},
	})
	return nil
}

func (s *AutomationServiceImpl) DeleteRule(ctx context.Context, id string) error {
	existing, err := s.GetRule(ctx, id)
	if err != nil {
		return err
	}
	if s.Guard != nil {
		running, err := s.Guard.IsRunning(ctx, id)
		if err != nil {
			return err
		}
		if running {
			return ErrRuleRunning
		}
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionDelete, "rule", id, map[string]common_models.Change{
		"rule": {Old: existing, New: "DELETED"},
	})
	return nil
}

// ToggleRule flips isActive and moves status between ACTIVE and PAUSED.
func (s *AutomationServiceImpl) ToggleRule(ctx context.Context, id string) (*AutomationRule, error) {
	rule, err := s.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s", ErrRuleLocked, rule.Status)
	}

	oldStatus := rule.Status
	rule.IsActive = !rule.IsActive
	rule.Status = StatusPaused
	if rule.IsActive {
		rule.Status = StatusActive
	}
	if err := s.Repo.SetActive(ctx, id, rule.IsActive, rule.Status); err != nil {
		return nil, err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionStatus, "rule", id, map[string]common_models.Change{
		"status":    {Old: oldStatus, New: rule.Status},
		"is_active": {Old: !rule.IsActive, New: rule.IsActive},
	})
	return rule, nil
}

// ResetRule clears an ERROR so the rule can run again.
func (s *AutomationServiceImpl) ResetRule(ctx context.Context, id string) (*AutomationRule, error) {
	rule, err := s.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule.Status != StatusError {
		return nil, ErrNotInError
	}

	rule.Status = StatusPaused
	if rule.IsActive {
		rule.Status = StatusActive
	}
	rule.LastError = ""
	if err := s.Repo.SetActive(ctx, id, rule.IsActive, rule.Status); err != nil {
		return nil, err
	}

	s.Logger.Info("rule reset", zap.String("rule_id", id), zap.String("status", string(rule.Status)))
	s.AuditService.LogChange(ctx, common_models.AuditActionStatus, "rule", id, map[string]common_models.Change{
		"status": {Old: StatusError, New: rule.Status},
	})
	return rule, nil
}
