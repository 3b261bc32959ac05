package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	common_models "go-outreach/internal/common/models"
	"go-outreach/internal/config"
	"go-outreach/internal/features/account"
	"go-outreach/internal/features/audit"
	"go-outreach/internal/features/automation"
	"go-outreach/internal/features/execution_log"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const releaseTimeout = 10 * time.Second

// RuleStore is the slice of the rule repository the coordinator needs.
type RuleStore interface {
	GetByID(ctx context.Context, id string) (*automation.AutomationRule, error)
	SetStatus(ctx context.Context, id string, status automation.RuleStatus, reason string) error
	TouchLastRun(ctx context.Context, id string, at time.Time) error
}

type AccountStore interface {
	GetByID(ctx context.Context, id string) (*account.LinkedInAccount, error)
}

// LogStore appends execution log entries.
type LogStore interface {
	Append(ctx context.Context, entry *execution_log.ExecutionLog) error
}

type PassOutcome string

const (
	PassCompleted       PassOutcome = "completed"
	PassBudgetExhausted PassOutcome = "budget_exhausted"
	PassIneligible      PassOutcome = "ineligible"
	PassErrorAbort      PassOutcome = "error_abort"
	PassStopped         PassOutcome = "stopped"
	PassCancelled       PassOutcome = "cancelled"
	PassFailed          PassOutcome = "failed"
)

// PassResult describes one invocation of RunPass. Logs holds the entries
// appended by this pass in order.
type PassResult struct {
	RuleID         string                       `json:"ruleId"`
	RuleName       string                       `json:"ruleName"`
	PassID         string                       `json:"passId,omitempty"`
	Eligible       bool                         `json:"eligible"`
	Reason         string                       `json:"reason,omitempty"`
	NextEligibleAt *time.Time                   `json:"nextEligibleAt,omitempty"`
	Outcome        PassOutcome                  `json:"outcome"`
	RuleStatus     automation.RuleStatus        `json:"ruleStatus"`
	Budget         *Budget                      `json:"budget,omitempty"`
	Logs           []execution_log.ExecutionLog `json:"logs"`
}

func (r *PassResult) ExecutedActions() int {
	return len(r.Logs)
}

// Coordinator runs passes of a rule. All durable state lives in the stores
// it is constructed with.
type Coordinator struct {
	rules        RuleStore
	accounts     AccountStore
	logs         LogStore
	markers      MarkerStore
	resolver     *TargetResolver
	budget       *BudgetTracker
	scheduler    *TriggerScheduler
	executor     *ActionExecutor
	clock        Clock
	audit        audit.AuditService
	failureLimit int
	logger       *zap.Logger
}

func NewCoordinator(
	rules RuleStore,
	accounts AccountStore,
	logs LogStore,
	markers MarkerStore,
	resolver *TargetResolver,
	budget *BudgetTracker,
	scheduler *TriggerScheduler,
	executor *ActionExecutor,
	clock Clock,
	auditService audit.AuditService,
	cfg *config.Config,
	logger *zap.Logger,
) *Coordinator {
	limit := cfg.ConsecutiveFailureLimit
	if limit < 1 {
		limit = 3
	}
	return &Coordinator{
		rules:        rules,
		accounts:     accounts,
		logs:         logs,
		markers:      markers,
		resolver:     resolver,
		budget:       budget,
		scheduler:    scheduler,
		executor:     executor,
		clock:        clock,
		audit:        auditService,
		failureLimit: limit,
		logger:       logger.Named("coordinator"),
	}
}

func (c *Coordinator) load(ctx context.Context, ruleID string) (*automation.AutomationRule, *account.LinkedInAccount, error) {
	rule, err := c.rules.GetByID(ctx, ruleID)
	if err != nil {
		return nil, nil, err
	}
	if rule == nil {
		return nil, nil, ErrRuleNotFound
	}
	if rule.AccountID == "" {
		return rule, nil, nil
	}
	acct, err := c.accounts.GetByID(ctx, rule.AccountID)
	if err != nil {
		return nil, nil, fmt.Errorf("load account: %w", err)
	}
	if acct == nil {
		// Deleted account: keep the rule loadable but never available.
		acct = &account.LinkedInAccount{Status: account.StatusDisconnected}
	}
	return rule, acct, nil
}

// RunPass executes one pass of the rule. An ineligible rule yields a result
// with Eligible false and no error. On ErrConsecutiveFailureAbort the result
// is returned alongside the error.
func (c *Coordinator) RunPass(ctx context.Context, ruleID string) (result *PassResult, err error) {
	rule, acct, err := c.load(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if !rule.Runnable() {
		return nil, ErrRuleNotActive
	}

	now := c.clock.Now()
	elig := c.scheduler.Check(rule, acct, now)
	result = &PassResult{
		RuleID:         ruleID,
		RuleName:       rule.Name,
		Eligible:       elig.Eligible,
		Reason:         elig.Reason,
		NextEligibleAt: elig.NextEligibleAt,
		RuleStatus:     rule.Status,
		Logs:           []execution_log.ExecutionLog{},
	}
	if !elig.Eligible {
		result.Outcome = PassIneligible
		passesTotal.WithLabelValues(string(PassIneligible)).Inc()
		return result, nil
	}

	marker := &RunMarker{
		RuleID:      ruleID,
		Token:       uuid.NewString(),
		PassID:      uuid.NewString(),
		StartedAt:   now,
		HeartbeatAt: now,
	}
	if err := c.markers.Acquire(ctx, marker); err != nil {
		if errors.Is(err, ErrRuleAlreadyRunning) {
			runConflicts.Inc()
		}
		return nil, err
	}
	result.PassID = marker.PassID
	activePasses.Inc()

	log := c.logger.With(zap.String("rule_id", ruleID), zap.String("pass_id", marker.PassID))
	log.Info("pass started", zap.String("timezone", elig.Location.String()))

	defer func() {
		activePasses.Dec()
		releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if rerr := c.markers.Release(releaseCtx, ruleID, marker.Token); rerr != nil {
			log.Error("failed to release run marker", zap.Error(rerr))
		}
		if r := recover(); r != nil {
			log.Error("pass panicked", zap.Any("panic", r))
			result.Outcome = PassFailed
			err = fmt.Errorf("pass panicked: %v", r)
		}
		passesTotal.WithLabelValues(string(result.Outcome)).Inc()
		log.Info("pass finished",
			zap.String("outcome", string(result.Outcome)),
			zap.Int("actions", len(result.Logs)),
			zap.Error(err))
	}()

	err = c.loop(ctx, rule, acct, marker, elig.Location, result, log)
	result.RuleStatus = rule.Status
	if len(result.Logs) > 0 {
		touchCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if terr := c.rules.TouchLastRun(touchCtx, ruleID, c.clock.Now()); terr != nil {
			log.Warn("failed to record last run", zap.Error(terr))
		}
	}
	return result, err
}

func (c *Coordinator) loop(
	ctx context.Context,
	rule *automation.AutomationRule,
	acct *account.LinkedInAccount,
	marker *RunMarker,
	loc *time.Location,
	result *PassResult,
	log *zap.Logger,
) error {
	seq, err := c.resolver.Resolve(rule)
	if err != nil {
		result.Outcome = PassFailed
		return fmt.Errorf("%w: %v", ErrTargetResolution, err)
	}

	failures := 0
	// pace is set after SUCCESS or FAILED; the first action never waits.
	pace := false
	for {
		if stop, outcome, err := c.interrupted(ctx, marker); err != nil {
			result.Outcome = PassFailed
			return err
		} else if stop {
			result.Outcome = outcome
			return nil
		}

		budget, err := c.budget.RemainingBudget(ctx, rule, acct, loc, c.clock.Now())
		if err != nil {
			result.Outcome = PassFailed
			return err
		}
		result.Budget = &budget
		if budget.Exhausted() {
			result.Outcome = PassBudgetExhausted
			return nil
		}

		target, ok, err := seq.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				result.Outcome = PassCancelled
				return nil
			}
			result.Outcome = PassFailed
			return err
		}
		if !ok {
			result.Outcome = PassCompleted
			return nil
		}

		if pace {
			if err := c.executor.Pace(ctx, rule); err != nil {
				result.Outcome = PassCancelled
				return nil
			}
			if stop, outcome, err := c.interrupted(ctx, marker); err != nil {
				result.Outcome = PassFailed
				return err
			} else if stop {
				result.Outcome = outcome
				return nil
			}
		}

		res, err := c.executor.Execute(ctx, rule, acct, target)
		if err != nil {
			result.Outcome = PassCancelled
			return nil
		}

		entry, err := c.record(ctx, rule, acct, marker, target, res)
		if err != nil {
			result.Outcome = PassFailed
			return err
		}
		result.Logs = append(result.Logs, *entry)
		log.Debug("action recorded",
			zap.String("target_id", target.ID),
			zap.String("outcome", string(entry.Outcome)))

		if aerr := c.markers.Advance(ctx, rule.ID.Hex(), marker.Token, target.cursor(), len(result.Logs), c.clock.Now()); aerr != nil {
			log.Warn("failed to advance run marker", zap.Error(aerr))
		}

		switch entry.Outcome {
		case execution_log.OutcomeFailed:
			failures++
			pace = true
			if failures >= c.failureLimit {
				c.abort(ctx, rule, failures, entry.Detail)
				result.Outcome = PassErrorAbort
				return ErrConsecutiveFailureAbort
			}
		case execution_log.OutcomeSuccess:
			failures = 0
			pace = true
		default:
			failures = 0
			pace = false
		}
	}
}

// interrupted checks the caller's context and the marker's stop flag.
func (c *Coordinator) interrupted(ctx context.Context, marker *RunMarker) (bool, PassOutcome, error) {
	if ctx.Err() != nil {
		return true, PassCancelled, nil
	}
	stop, err := c.markers.StopRequested(ctx, marker.RuleID, marker.Token)
	if err != nil {
		if ctx.Err() != nil {
			return true, PassCancelled, nil
		}
		return false, "", fmt.Errorf("read run marker: %w", err)
	}
	if stop {
		return true, PassStopped, nil
	}
	return false, "", nil
}

// record appends the log entry. A SUCCESS that collides with an existing one
// is stored as SKIPPED instead.
func (c *Coordinator) record(
	ctx context.Context,
	rule *automation.AutomationRule,
	acct *account.LinkedInAccount,
	marker *RunMarker,
	target Target,
	res ExecutionResult,
) (*execution_log.ExecutionLog, error) {
	entry := &execution_log.ExecutionLog{
		RuleID:      rule.ID.Hex(),
		RuleName:    rule.Name,
		UserID:      rule.UserID,
		AccountID:   rule.AccountID,
		PassID:      marker.PassID,
		ActionType:  string(rule.ActionType),
		TargetID:    target.ID,
		TargetName:  target.Name,
		TargetURL:   target.ProfileURL,
		Outcome:     res.Outcome,
		Detail:      res.Detail,
		ExternalRef: res.Reference,
		Timestamp:   c.clock.Now(),
	}
	if acct != nil {
		entry.AccountName = acct.Name
	}

	// An attempted action is recorded even when the caller has gone away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	err := c.logs.Append(ctx, entry)
	if errors.Is(err, execution_log.ErrDuplicateSuccess) {
		entry.ID = primitive.NilObjectID
		entry.Outcome = execution_log.OutcomeSkipped
		entry.Detail = "already succeeded under this rule"
		err = c.logs.Append(ctx, entry)
	}
	if err != nil {
		return nil, fmt.Errorf("append execution log: %w", err)
	}
	return entry, nil
}

// abort moves the rule to ERROR. Failures here are logged; the pass is
// already ending.
func (c *Coordinator) abort(ctx context.Context, rule *automation.AutomationRule, failures int, lastDetail string) {
	reason := fmt.Sprintf("%d consecutive failures, last: %s", failures, lastDetail)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	old := rule.Status
	if err := c.rules.SetStatus(ctx, rule.ID.Hex(), automation.StatusError, reason); err != nil {
		c.logger.Error("failed to move rule to ERROR", zap.String("rule_id", rule.ID.Hex()), zap.Error(err))
		return
	}
	rule.Status = automation.StatusError
	rule.LastError = reason
	c.logger.Warn("pass aborted",
		zap.String("rule_id", rule.ID.Hex()),
		zap.Int("failures", failures),
		zap.String("error", reason))
	c.audit.LogChange(ctx, common_models.AuditActionStatus, "rule", rule.ID.Hex(), map[string]common_models.Change{
		"status":     {Old: old, New: automation.StatusError},
		"last_error": {Old: "", New: reason},
	})
}

// IsRunning reports whether a run marker exists for the rule.
func (c *Coordinator) IsRunning(ctx context.Context, ruleID string) (bool, error) {
	marker, err := c.markers.Get(ctx, ruleID)
	if err != nil {
		return false, err
	}
	return marker != nil, nil
}

// RunState returns the in-flight marker, or nil when idle.
func (c *Coordinator) RunState(ctx context.Context, ruleID string) (*RunMarker, error) {
	return c.markers.Get(ctx, ruleID)
}

// RequestStop asks the running pass to end before its next action.
func (c *Coordinator) RequestStop(ctx context.Context, ruleID string) error {
	return c.markers.RequestStop(ctx, ruleID)
}

// ForceRelease deletes a marker left behind by a dead process.
func (c *Coordinator) ForceRelease(ctx context.Context, ruleID string) (*RunMarker, error) {
	marker, err := c.markers.ForceRelease(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	c.logger.Warn("run marker force-released", zap.String("rule_id", ruleID), zap.String("pass_id", marker.PassID))
	c.audit.LogChange(ctx, common_models.AuditActionRun, "run_marker", ruleID, map[string]common_models.Change{
		"marker": {Old: marker, New: "RELEASED"},
	})
	return marker, nil
}

// ScheduleInfo answers "may this rule run now, and when next".
type ScheduleInfo struct {
	RuleID         string     `json:"ruleId"`
	EligibleNow    bool       `json:"eligibleNow"`
	Reason         string     `json:"reason,omitempty"`
	NextEligibleAt *time.Time `json:"nextEligibleAt,omitempty"`
	Timezone       string     `json:"timezone"`
	DailyRemaining int        `json:"dailyRemaining"`
	TotalRemaining *int       `json:"totalRemaining"`
	Running        bool       `json:"running"`
}

func (c *Coordinator) Schedule(ctx context.Context, ruleID string) (*ScheduleInfo, error) {
	rule, acct, err := c.load(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	now := c.clock.Now()
	elig := c.scheduler.Check(rule, acct, now)
	info := &ScheduleInfo{
		RuleID:         ruleID,
		EligibleNow:    elig.Eligible,
		Reason:         elig.Reason,
		NextEligibleAt: elig.NextEligibleAt,
		Timezone:       elig.Location.String(),
	}
	if elig.Eligible {
		info.NextEligibleAt = &now
	}

	budget, err := c.budget.RemainingBudget(ctx, rule, acct, elig.Location, now)
	if err != nil {
		return nil, err
	}
	info.DailyRemaining = budget.DailyRemaining
	if !budget.Unbounded {
		total := budget.TotalRemaining
		info.TotalRemaining = &total
	}
	// The budget check may have just completed the rule.
	if !rule.Runnable() {
		info.EligibleNow = false
		info.Reason = ReasonRuleInactive
		info.NextEligibleAt = nil
	}

	info.Running, err = c.IsRunning(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	return info, nil
}
