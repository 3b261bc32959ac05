package engine

import (
	"context"
	"fmt"
	"time"

	common_models "go-outreach/internal/common/models"
	"go-outreach/internal/features/account"
	"go-outreach/internal/features/audit"
	"go-outreach/internal/features/automation"

	"go.uber.org/zap"
)

// SuccessCounter counts SUCCESS entries in the execution log.
type SuccessCounter interface {
	CountSuccess(ctx context.Context, ruleID string, from, to *time.Time) (int, error)
	CountAccountSuccess(ctx context.Context, accountID string, from, to *time.Time) (int, error)
}

// StatusWriter persists engine-driven status transitions.
type StatusWriter interface {
	SetStatus(ctx context.Context, id string, status automation.RuleStatus, reason string) error
}

type Budget struct {
	DailyRemaining int  `json:"dailyRemaining"`
	TotalRemaining int  `json:"totalRemaining"`
	Unbounded      bool `json:"unbounded"`
	// AccountRemaining applies only when the account carries its own daily cap.
	AccountRemaining int  `json:"accountRemaining"`
	AccountCapped    bool `json:"accountCapped"`
}

// Exhausted reports whether any cap forbids another action.
func (b Budget) Exhausted() bool {
	if b.DailyRemaining <= 0 {
		return true
	}
	if !b.Unbounded && b.TotalRemaining <= 0 {
		return true
	}
	return b.AccountCapped && b.AccountRemaining <= 0
}

type BudgetTracker struct {
	counter SuccessCounter
	rules   StatusWriter
	audit   audit.AuditService
	logger  *zap.Logger
}

func NewBudgetTracker(counter SuccessCounter, rules StatusWriter, auditService audit.AuditService, logger *zap.Logger) *BudgetTracker {
	return &BudgetTracker{
		counter: counter,
		rules:   rules,
		audit:   auditService,
		logger:  logger.Named("budget"),
	}
}

// LocalDay returns [midnight, next midnight) of now's calendar day in loc.
func LocalDay(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// RemainingBudget computes the rule's daily and lifetime headroom. Reaching
// the total limit moves the rule to COMPLETED as a side effect.
func (b *BudgetTracker) RemainingBudget(ctx context.Context, rule *automation.AutomationRule, acct *account.LinkedInAccount, loc *time.Location, now time.Time) (Budget, error) {
	ruleID := rule.ID.Hex()
	from, to := LocalDay(now, loc)

	today, err := b.counter.CountSuccess(ctx, ruleID, &from, &to)
	if err != nil {
		return Budget{}, fmt.Errorf("count today's actions: %w", err)
	}
	budget := Budget{DailyRemaining: rule.DailyLimit - today, Unbounded: rule.TotalLimit == nil}

	if rule.TotalLimit != nil {
		total, err := b.counter.CountSuccess(ctx, ruleID, nil, nil)
		if err != nil {
			return Budget{}, fmt.Errorf("count lifetime actions: %w", err)
		}
		budget.TotalRemaining = *rule.TotalLimit - total
		if budget.TotalRemaining <= 0 {
			if err := b.complete(ctx, rule); err != nil {
				return Budget{}, err
			}
		}
	}

	if acct != nil && acct.DailyLimit > 0 {
		sent, err := b.counter.CountAccountSuccess(ctx, acct.ID.Hex(), &from, &to)
		if err != nil {
			return Budget{}, fmt.Errorf("count account actions: %w", err)
		}
		budget.AccountCapped = true
		budget.AccountRemaining = acct.DailyLimit - sent
	}
	return budget, nil
}

func (b *BudgetTracker) complete(ctx context.Context, rule *automation.AutomationRule) error {
	if rule.Status == automation.StatusCompleted {
		return nil
	}
	old := rule.Status
	if err := b.rules.SetStatus(ctx, rule.ID.Hex(), automation.StatusCompleted, ""); err != nil {
		return fmt.Errorf("mark rule completed: %w", err)
	}
	rule.Status = automation.StatusCompleted
	b.logger.Info("rule reached total limit", zap.String("rule_id", rule.ID.Hex()), zap.Int("total_limit", *rule.TotalLimit))
	b.audit.LogChange(ctx, common_models.AuditActionStatus, "rule", rule.ID.Hex(), map[string]common_models.Change{
		"status": {Old: old, New: automation.StatusCompleted},
	})
	return nil
}
