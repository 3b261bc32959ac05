package engine

import (
	"context"
	"fmt"
	"time"

	"go-outreach/internal/config"
	"go-outreach/internal/features/account"
	"go-outreach/internal/features/automation"
	"go-outreach/internal/features/execution_log"

	"go.uber.org/zap"
)

// ExecutionResult is the outcome of one action against one target.
type ExecutionResult struct {
	Outcome   execution_log.Outcome
	Reference string
	Detail    string
	Message   string
}

type ActionExecutor struct {
	backend  Backend
	drafter  Drafter
	throttle *AccountThrottle
	clock    Clock
	jitter   Jitter
	timeout  time.Duration
	logger   *zap.Logger
}

func NewActionExecutor(backend Backend, drafter Drafter, throttle *AccountThrottle, clock Clock, jitter Jitter, cfg *config.Config, logger *zap.Logger) *ActionExecutor {
	timeout := cfg.ActionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ActionExecutor{
		backend:  backend,
		drafter:  drafter,
		throttle: throttle,
		clock:    clock,
		jitter:   jitter,
		timeout:  timeout,
		logger:   logger.Named("executor"),
	}
}

// Execute performs the rule's action on t. Per-target problems come back as
// a FAILED result; an error is returned only when ctx ends before the action
// was attempted.
func (e *ActionExecutor) Execute(ctx context.Context, rule *automation.AutomationRule, acct *account.LinkedInAccount, t Target) (ExecutionResult, error) {
	message, err := e.message(ctx, rule, t)
	if err != nil {
		if ctx.Err() != nil {
			return ExecutionResult{}, ctx.Err()
		}
		return ExecutionResult{Outcome: execution_log.OutcomeFailed, Detail: err.Error()}, nil
	}

	accountID := rule.AccountID
	if acct != nil {
		accountID = acct.ID.Hex()
	}
	if e.throttle != nil {
		if err := e.throttle.Wait(ctx, accountID); err != nil {
			return ExecutionResult{}, err
		}
	}

	req := ActionRequest{
		ActionType:      rule.ActionType,
		Target:          t,
		RenderedMessage: message,
		AccountID:       accountID,
		RuleID:          rule.ID.Hex(),
	}
	started := time.Now()
	res := e.perform(ctx, req)
	actionDuration.WithLabelValues(string(rule.ActionType)).Observe(time.Since(started).Seconds())
	actionsTotal.WithLabelValues(string(rule.ActionType), string(res.Outcome)).Inc()
	res.Message = message
	return res, nil
}

func (e *ActionExecutor) message(ctx context.Context, rule *automation.AutomationRule, t Target) (string, error) {
	switch rule.ActionType {
	case automation.ActionMessage:
		if rule.MessageTemplate != "" {
			return automation.RenderTemplate(rule.MessageTemplate, t.Fields()), nil
		}
	case automation.ActionAIComment:
	default:
		return "", nil
	}
	text, err := e.drafter.Draft(ctx, rule, t)
	if err != nil {
		return "", fmt.Errorf("draft failed: %w", err)
	}
	return text, nil
}

type performed struct {
	result BackendResult
	err    error
}

// perform runs the backend call under the action timeout. A call that
// overruns is reported FAILED and abandoned.
func (e *ActionExecutor) perform(ctx context.Context, req ActionRequest) ExecutionResult {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan performed, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- performed{err: fmt.Errorf("action backend panic: %v", r)}
			}
		}()
		res, err := e.backend.Perform(callCtx, req)
		done <- performed{result: res, err: err}
	}()

	select {
	case p := <-done:
		return e.settle(req, p)
	case <-callCtx.Done():
		// The backend may have answered just as the deadline hit.
		select {
		case p := <-done:
			return e.settle(req, p)
		default:
		}
		if ctx.Err() != nil {
			return ExecutionResult{Outcome: execution_log.OutcomeFailed, Detail: "cancelled during action"}
		}
		e.logger.Warn("action timed out",
			zap.String("rule_id", req.RuleID),
			zap.String("account_id", req.AccountID),
			zap.String("target_id", req.Target.ID),
			zap.Duration("timeout", e.timeout))
		return ExecutionResult{Outcome: execution_log.OutcomeFailed, Detail: ErrActionTimeout.Error()}
	}
}

func (e *ActionExecutor) settle(req ActionRequest, p performed) ExecutionResult {
	if p.err != nil {
		e.logger.Warn("action failed",
			zap.String("rule_id", req.RuleID),
			zap.String("account_id", req.AccountID),
			zap.String("target_id", req.Target.ID),
			zap.Error(p.err))
		return ExecutionResult{Outcome: execution_log.OutcomeFailed, Detail: p.err.Error()}
	}
	return ExecutionResult{Outcome: p.result.Outcome, Reference: p.result.Reference, Detail: p.result.Detail}
}

// Pace sleeps a uniformly random duration in [delayMin, delayMax] seconds.
func (e *ActionExecutor) Pace(ctx context.Context, rule *automation.AutomationRule) error {
	d := e.jitter(time.Duration(rule.DelayMin)*time.Second, time.Duration(rule.DelayMax)*time.Second)
	return e.clock.Sleep(ctx, d)
}
