package cron_feature

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	common_models "go-outreach/internal/common/models"
	"go-outreach/internal/config"
	"go-outreach/internal/features/audit"
	"go-outreach/internal/features/automation"
	"go-outreach/internal/features/engine"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ErrSweepInProgress = errors.New("a sweep is already in progress")

// PassRunner runs one pass of a rule.
type PassRunner interface {
	RunPass(ctx context.Context, ruleID string) (*engine.PassResult, error)
}

type RuleLister interface {
	ListRunnable(ctx context.Context) ([]automation.AutomationRule, error)
}

type SweepService interface {
	RunSweep(ctx context.Context, trigger SweepTrigger) (*SweepLog, error)
	TriggerSweep(ctx context.Context) (*SweepLog, error)
	GetSweepLogs(ctx context.Context, limit int) ([]SweepLog, error)
	InitializeScheduler(ctx context.Context) error
	StopScheduler() error
}

type SweepServiceImpl struct {
	repo         SweepRepository
	rules        RuleLister
	runner       PassRunner
	auditService audit.AuditService
	schedule     string
	concurrency  int
	logger       *zap.Logger

	scheduler *cron.Cron
	root      context.Context
	cancel    context.CancelFunc
	// sweeping is held for the whole of a sweep.
	sweeping sync.Mutex
}

func NewSweepService(
	repo SweepRepository,
	rules RuleLister,
	runner PassRunner,
	auditService audit.AuditService,
	cfg *config.Config,
	logger *zap.Logger,
) SweepService {
	concurrency := cfg.SweepConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &SweepServiceImpl{
		repo:         repo,
		rules:        rules,
		runner:       runner,
		auditService: auditService,
		schedule:     cfg.SweepSchedule,
		concurrency:  concurrency,
		logger:       logger.Named("sweeper"),
		root:         context.Background(),
	}
}

// RunSweep runs one pass for every runnable rule and waits for them.
func (s *SweepServiceImpl) RunSweep(ctx context.Context, trigger SweepTrigger) (*SweepLog, error) {
	if !s.sweeping.TryLock() {
		return nil, ErrSweepInProgress
	}
	defer s.sweeping.Unlock()

	entry := s.begin(ctx, trigger)
	s.sweep(ctx, entry)
	return entry, nil
}

// TriggerSweep starts a manual sweep in the background and returns its
// running log entry.
func (s *SweepServiceImpl) TriggerSweep(ctx context.Context) (*SweepLog, error) {
	if !s.sweeping.TryLock() {
		return nil, ErrSweepInProgress
	}
	entry := s.begin(ctx, TriggerManual)
	started := *entry
	go func() {
		defer s.sweeping.Unlock()
		s.sweep(s.root, entry)
	}()
	return &started, nil
}

func (s *SweepServiceImpl) GetSweepLogs(ctx context.Context, limit int) ([]SweepLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.GetLogs(ctx, limit)
}

func (s *SweepServiceImpl) begin(ctx context.Context, trigger SweepTrigger) *SweepLog {
	entry := &SweepLog{
		Trigger:   trigger,
		StartTime: time.Now(),
		Status:    SweepRunning,
	}
	if err := s.repo.CreateLog(ctx, entry); err != nil {
		s.logger.Error("failed to create sweep log", zap.Error(err))
	}
	return entry
}

func (s *SweepServiceImpl) sweep(ctx context.Context, entry *SweepLog) {
	rules, err := s.rules.ListRunnable(ctx)
	if err != nil {
		entry.Error = fmt.Sprintf("list runnable rules: %v", err)
	} else {
		s.runAll(ctx, rules, entry)
	}

	end := time.Now()
	entry.EndTime = &end
	entry.Status = SweepSuccess
	if entry.Error != "" || entry.Failures > 0 {
		entry.Status = SweepFailed
	}

	// The caller's context may already be gone when a sweep is stopped.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.repo.UpdateLog(writeCtx, entry); err != nil {
		s.logger.Error("failed to update sweep log", zap.Error(err))
	}
	s.auditService.LogChange(writeCtx, common_models.AuditActionCron, "cron", entry.ID.Hex(), map[string]common_models.Change{
		"status":  {New: entry.Status},
		"rules":   {New: entry.RulesProcessed},
		"actions": {New: entry.ActionsExecuted},
		"error":   {New: entry.Error},
	})
	s.logger.Info("sweep finished",
		zap.String("trigger", string(entry.Trigger)),
		zap.String("status", string(entry.Status)),
		zap.Int("rules", entry.RulesProcessed),
		zap.Int("eligible", entry.RulesEligible),
		zap.Int("actions", entry.ActionsExecuted),
		zap.Int("conflicts", entry.Conflicts),
		zap.Int("failures", entry.Failures),
		zap.Duration("took", end.Sub(entry.StartTime)))
}

// runAll runs at most s.concurrency passes at a time. Rules are independent,
// so their passes may overlap.
func (s *SweepServiceImpl) runAll(ctx context.Context, rules []automation.AutomationRule, entry *SweepLog) {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.concurrency)
	)

	for i := range rules {
		if ctx.Err() != nil {
			break
		}
		ruleID := rules[i].ID.Hex()
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := s.runner.RunPass(ctx, ruleID)

			mu.Lock()
			defer mu.Unlock()
			entry.RulesProcessed++
			if result != nil {
				if result.Eligible {
					entry.RulesEligible++
				}
				entry.ActionsExecuted += result.ExecutedActions()
			}
			switch {
			case err == nil:
			case errors.Is(err, engine.ErrRuleAlreadyRunning):
				entry.Conflicts++
			case errors.Is(err, engine.ErrRuleNotActive), errors.Is(err, engine.ErrRuleNotFound):
				// changed since it was listed
			default:
				entry.Failures++
				if len(entry.Errors) < maxSweepErrors {
					entry.Errors = append(entry.Errors, fmt.Sprintf("%s: %v", ruleID, err))
				}
				s.logger.Warn("pass failed during sweep", zap.String("rule_id", ruleID), zap.Error(err))
			}
		}()
	}
	wg.Wait()
}

func (s *SweepServiceImpl) InitializeScheduler(ctx context.Context) error {
	s.logger.Info("initializing sweep scheduler", zap.String("schedule", s.schedule))
	s.root, s.cancel = context.WithCancel(context.Background())

	logger := cronLogger{s.logger.Sugar()}
	s.scheduler = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	_, err := s.scheduler.AddFunc(s.schedule, func() {
		if _, err := s.RunSweep(s.root, TriggerSchedule); err != nil {
			s.logger.Warn("scheduled sweep skipped", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.scheduler.Start()
	return nil
}

// StopScheduler cancels in-flight passes between actions and waits for the
// running sweep to finish.
func (s *SweepServiceImpl) StopScheduler() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.scheduler != nil {
		ctx := s.scheduler.Stop()
		<-ctx.Done()
	}
	return nil
}

// cronLogger routes robfig/cron's logging through zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
