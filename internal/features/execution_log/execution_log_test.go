package execution_log

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type MockLogRepo struct {
	Entries []ExecutionLog
}

func (m *MockLogRepo) Append(ctx context.Context, entry *ExecutionLog) error {
	m.Entries = append(m.Entries, *entry)
	return nil
}

func (m *MockLogRepo) CountSuccess(ctx context.Context, ruleID string, from, to *time.Time) (int, error) {
	return 0, nil
}

func (m *MockLogRepo) CountAccountSuccess(ctx context.Context, accountID string, from, to *time.Time) (int, error) {
	return 0, nil
}

func (m *MockLogRepo) ActedTargets(ctx context.Context, ruleID string, targetIDs []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (m *MockLogRepo) List(ctx context.Context, filter ListFilter) ([]ExecutionLog, int64, error) {
	return m.Entries, int64(len(m.Entries)), nil
}

func (m *MockLogRepo) Iterate(ctx context.Context, filter ListFilter, fn func(ExecutionLog) error) error {
	for _, e := range m.Entries {
		if filter.RuleID != "" && e.RuleID != filter.RuleID {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockLogRepo) EnsureIndexes(ctx context.Context) error { return nil }

func TestAppendPublishesToFeed(t *testing.T) {
	feed := NewFeed()
	svc := NewExecutionLogService(&MockLogRepo{}, feed, zap.NewNop())

	all, cancelAll := feed.Subscribe("u1", "")
	defer cancelAll()
	onlyR2, cancelR2 := feed.Subscribe("u1", "r2")
	defer cancelR2()

	require.NoError(t, svc.Append(context.Background(), &ExecutionLog{RuleID: "r1", UserID: "u1", Outcome: OutcomeSuccess}))

	select {
	case got := <-all:
		assert.Equal(t, "r1", got.RuleID)
	case <-time.After(time.Second):
		t.Fatal("expected entry on unfiltered subscription")
	}
	assert.Len(t, onlyR2, 0)
}

func TestFeedUnsubscribe(t *testing.T) {
	feed := NewFeed()
	_, cancel := feed.Subscribe("u1", "")
	assert.Equal(t, 1, feed.Subscribers())
	cancel()
	cancel()
	assert.Equal(t, 0, feed.Subscribers())
	feed.Publish(ExecutionLog{RuleID: "r1"})
}

func TestFeedDropsForSlowSubscriber(t *testing.T) {
	feed := NewFeed()
	ch, cancel := feed.Subscribe("u1", "")
	defer cancel()
	for i := 0; i < 100; i++ {
		feed.Publish(ExecutionLog{RuleID: "r1", UserID: "u1"})
	}
	assert.Len(t, ch, cap(ch))
}

func TestFeedScopesToUser(t *testing.T) {
	feed := NewFeed()
	mine, cancelMine := feed.Subscribe("user-a", "")
	defer cancelMine()
	// Subscribing to another user's rule id must not leak that rule's entries.
	foreign, cancelForeign := feed.Subscribe("user-a", "rule-b")
	defer cancelForeign()

	feed.Publish(ExecutionLog{RuleID: "rule-b", UserID: "user-b", Outcome: OutcomeSuccess})
	assert.Len(t, mine, 0)
	assert.Len(t, foreign, 0)

	feed.Publish(ExecutionLog{RuleID: "rule-a", UserID: "user-a", Outcome: OutcomeSuccess})
	require.Len(t, mine, 1)
	got := <-mine
	assert.Equal(t, "rule-a", got.RuleID)
	assert.Len(t, foreign, 0)
}

func TestExportToExcel(t *testing.T) {
	repo := &MockLogRepo{Entries: []ExecutionLog{
		{RuleID: "r1", RuleName: "CTOs", AccountName: "Main", ActionType: "SEND_CONNECTION", TargetName: "Ada", Outcome: OutcomeSuccess, ExternalRef: "https://example.test/ref/1", Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{RuleID: "r2", RuleName: "Other", Outcome: OutcomeFailed},
	}}
	svc := NewExecutionLogService(repo, nil, zap.NewNop())

	data, err := svc.Export(context.Background(), ListFilter{RuleID: "r1"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Execution Log")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, exportColumns, rows[0])
	assert.Equal(t, "2026-03-01T10:00:00Z", rows[1][0])
	assert.Equal(t, "CTOs", rows[1][1])
	assert.Equal(t, "Main", rows[1][2])
	assert.Equal(t, "SUCCESS", rows[1][6])
}

func TestListFilterNormalize(t *testing.T) {
	f := ListFilter{Page: 0, Limit: 0}
	f.Normalize()
	assert.Equal(t, int64(1), f.Page)
	assert.Equal(t, int64(50), f.Limit)

	f = ListFilter{Page: 2, Limit: 10000}
	f.Normalize()
	assert.Equal(t, int64(500), f.Limit)
}
