package execution_log

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type ExecutionLogService interface {
	Append(ctx context.Context, entry *ExecutionLog) error
	CountSuccess(ctx context.Context, ruleID string, from, to *time.Time) (int, error)
	CountAccountSuccess(ctx context.Context, accountID string, from, to *time.Time) (int, error)
	ActedTargets(ctx context.Context, ruleID string, targetIDs []string) (map[string]bool, error)
	List(ctx context.Context, filter ListFilter) ([]ExecutionLog, int64, error)
	Export(ctx context.Context, filter ListFilter) ([]byte, error)
}

type ExecutionLogServiceImpl struct {
	Repo   ExecutionLogRepository
	Feed   *Feed
	Logger *zap.Logger
}

func NewExecutionLogService(repo ExecutionLogRepository, feed *Feed, logger *zap.Logger) ExecutionLogService {
	return &ExecutionLogServiceImpl{
		Repo:   repo,
		Feed:   feed,
		Logger: logger.Named("execution_log"),
	}
}

// Append persists the entry, then publishes it to live subscribers.
func (s *ExecutionLogServiceImpl) Append(ctx context.Context, entry *ExecutionLog) error {
	if err := s.Repo.Append(ctx, entry); err != nil {
		return err
	}
	if s.Feed != nil {
		s.Feed.Publish(*entry)
	}
	return nil
}

func (s *ExecutionLogServiceImpl) CountSuccess(ctx context.Context, ruleID string, from, to *time.Time) (int, error) {
	return s.Repo.CountSuccess(ctx, ruleID, from, to)
}

func (s *ExecutionLogServiceImpl) CountAccountSuccess(ctx context.Context, accountID string, from, to *time.Time) (int, error) {
	return s.Repo.CountAccountSuccess(ctx, accountID, from, to)
}

func (s *ExecutionLogServiceImpl) ActedTargets(ctx context.Context, ruleID string, targetIDs []string) (map[string]bool, error) {
	return s.Repo.ActedTargets(ctx, ruleID, targetIDs)
}

func (s *ExecutionLogServiceImpl) List(ctx context.Context, filter ListFilter) ([]ExecutionLog, int64, error) {
	return s.Repo.List(ctx, filter)
}

func (s *ExecutionLogServiceImpl) Export(ctx context.Context, filter ListFilter) ([]byte, error) {
	var entries []ExecutionLog
	err := s.Repo.Iterate(ctx, filter, func(entry ExecutionLog) error {
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Debug("exporting execution logs", zap.Int("rows", len(entries)), zap.String("rule_id", filter.RuleID))
	return ExportToExcel(entries)
}
