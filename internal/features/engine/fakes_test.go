package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	common_models "go-outreach/internal/common/models"
	"go-outreach/internal/config"
	"go-outreach/internal/features/account"
	"go-outreach/internal/features/automation"
	"go-outreach/internal/features/execution_log"
	"go-outreach/internal/features/prospect"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Monday 2026-10-19 10:00 UTC
var baseNow = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func minJitter(min, max time.Duration) time.Duration { return min }

type memRules struct {
	mu    sync.Mutex
	rules map[string]*automation.AutomationRule
}

func (m *memRules) GetByID(ctx context.Context, id string) (*automation.AutomationRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok {
		return nil, nil
	}
	loaded := *r
	return &loaded, loaded.Prepare()
}

func (m *memRules) SetStatus(ctx context.Context, id string, status automation.RuleStatus, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[id].Status = status
	m.rules[id].LastError = reason
	return nil
}

func (m *memRules) TouchLastRun(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[id].LastRunAt = &at
	return nil
}

func (m *memRules) status(id string) automation.RuleStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rules[id].Status
}

type memAccounts struct {
	accounts map[string]*account.LinkedInAccount
}

func (m *memAccounts) GetByID(ctx context.Context, id string) (*account.LinkedInAccount, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	loaded := *a
	return &loaded, nil
}

// memLogs enforces the one-SUCCESS-per-(rule, target) constraint like the
// partial unique index does.
type memLogs struct {
	mu      sync.Mutex
	entries []execution_log.ExecutionLog
	// hideActed makes ActedTargets report nothing, to simulate a racing pass.
	hideActed bool
}

func (m *memLogs) Append(ctx context.Context, entry *execution_log.ExecutionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.Outcome == execution_log.OutcomeSuccess {
		for _, e := range m.entries {
			if e.RuleID == entry.RuleID && e.TargetID == entry.TargetID && e.Outcome == execution_log.OutcomeSuccess {
				return execution_log.ErrDuplicateSuccess
			}
		}
	}
	entry.ID = primitive.NewObjectID()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memLogs) count(match func(e execution_log.ExecutionLog) bool, from, to *time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Outcome != execution_log.OutcomeSuccess || !match(e) {
			continue
		}
		if from != nil && e.Timestamp.Before(*from) {
			continue
		}
		if to != nil && !e.Timestamp.Before(*to) {
			continue
		}
		n++
	}
	return n
}

func (m *memLogs) CountSuccess(ctx context.Context, ruleID string, from, to *time.Time) (int, error) {
	return m.count(func(e execution_log.ExecutionLog) bool { return e.RuleID == ruleID }, from, to), nil
}

func (m *memLogs) CountAccountSuccess(ctx context.Context, accountID string, from, to *time.Time) (int, error) {
	return m.count(func(e execution_log.ExecutionLog) bool { return e.AccountID == accountID }, from, to), nil
}

func (m *memLogs) ActedTargets(ctx context.Context, ruleID string, targetIDs []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acted := map[string]bool{}
	if m.hideActed {
		return acted, nil
	}
	wanted := map[string]bool{}
	for _, id := range targetIDs {
		wanted[id] = true
	}
	for _, e := range m.entries {
		if e.RuleID == ruleID && wanted[e.TargetID] && e.Outcome != execution_log.OutcomeFailed {
			acted[e.TargetID] = true
		}
	}
	return acted, nil
}

func (m *memLogs) successesByTarget(ruleID string) map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for _, e := range m.entries {
		if e.RuleID == ruleID && e.Outcome == execution_log.OutcomeSuccess {
			out[e.TargetID]++
		}
	}
	return out
}

func (m *memLogs) all() []execution_log.ExecutionLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]execution_log.ExecutionLog(nil), m.entries...)
}

type memCandidates struct {
	mu        sync.Mutex
	prospects []prospect.Prospect
	calls     int
	err       error
}

func (m *memCandidates) Page(ctx context.Context, q prospect.PageQuery) ([]prospect.Prospect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	sorted := append([]prospect.Prospect(nil), m.prospects...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	out := []prospect.Prospect{}
	for _, p := range sorted {
		if p.UserID != q.UserID || !q.After.After(p) {
			continue
		}
		out = append(out, p)
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (m *memCandidates) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type memMarkers struct {
	mu      sync.Mutex
	markers map[string]RunMarker
}

func newMemMarkers() *memMarkers {
	return &memMarkers{markers: map[string]RunMarker{}}
}

func (m *memMarkers) Acquire(ctx context.Context, marker *RunMarker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.markers[marker.RuleID]; ok {
		return ErrRuleAlreadyRunning
	}
	m.markers[marker.RuleID] = *marker
	return nil
}

func (m *memMarkers) Advance(ctx context.Context, ruleID, token string, cursor prospect.Cursor, actions int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mk, ok := m.markers[ruleID]; ok && mk.Token == token {
		mk.Cursor = &cursor
		mk.Actions = actions
		mk.HeartbeatAt = at
		m.markers[ruleID] = mk
	}
	return nil
}

func (m *memMarkers) StopRequested(ctx context.Context, ruleID, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk, ok := m.markers[ruleID]
	if !ok || mk.Token != token {
		return true, nil
	}
	return mk.StopRequested, nil
}

func (m *memMarkers) RequestStop(ctx context.Context, ruleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk, ok := m.markers[ruleID]
	if !ok {
		return ErrNoRunInProgress
	}
	mk.StopRequested = true
	m.markers[ruleID] = mk
	return nil
}

func (m *memMarkers) Release(ctx context.Context, ruleID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mk, ok := m.markers[ruleID]; ok && mk.Token == token {
		delete(m.markers, ruleID)
	}
	return nil
}

func (m *memMarkers) Get(ctx context.Context, ruleID string) (*RunMarker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk, ok := m.markers[ruleID]
	if !ok {
		return nil, nil
	}
	return &mk, nil
}

func (m *memMarkers) ForceRelease(ctx context.Context, ruleID string) (*RunMarker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk, ok := m.markers[ruleID]
	if !ok {
		return nil, ErrNoRunInProgress
	}
	delete(m.markers, ruleID)
	return &mk, nil
}

// scriptedBackend answers through fn, defaulting to SUCCESS.
type scriptedBackend struct {
	mu    sync.Mutex
	calls []ActionRequest
	fn    func(ctx context.Context, n int, req ActionRequest) (BackendResult, error)
}

func (b *scriptedBackend) Perform(ctx context.Context, req ActionRequest) (BackendResult, error) {
	b.mu.Lock()
	b.calls = append(b.calls, req)
	n := len(b.calls)
	fn := b.fn
	b.mu.Unlock()
	if fn != nil {
		return fn(ctx, n, req)
	}
	return BackendResult{Outcome: execution_log.OutcomeSuccess, Reference: "ref-" + req.Target.ID}, nil
}

func (b *scriptedBackend) Calls() []ActionRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ActionRequest(nil), b.calls...)
}

type recordingAudit struct {
	mu      sync.Mutex
	changes []map[string]common_models.Change
}

func (a *recordingAudit) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.changes = append(a.changes, changes)
	return nil
}

func (a *recordingAudit) ListLogs(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

func (a *recordingAudit) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.changes)
}

type harness struct {
	cfg         *config.Config
	clock       *fakeClock
	rules       *memRules
	accounts    *memAccounts
	logs        *memLogs
	candidates  *memCandidates
	markers     *memMarkers
	backend     *scriptedBackend
	drafter     Drafter
	audit       *recordingAudit
	coordinator *Coordinator
}

func testConfig() *config.Config {
	return &config.Config{
		DefaultTimezone:         "UTC",
		ConsecutiveFailureLimit: 3,
		ActionTimeout:           time.Second,
		ResolverPageSize:        2,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		cfg:        testConfig(),
		clock:      &fakeClock{now: baseNow},
		rules:      &memRules{rules: map[string]*automation.AutomationRule{}},
		accounts:   &memAccounts{accounts: map[string]*account.LinkedInAccount{}},
		logs:       &memLogs{},
		candidates: &memCandidates{},
		markers:    newMemMarkers(),
		backend:    &scriptedBackend{},
		drafter:    TemplateDrafter{},
		audit:      &recordingAudit{},
	}
	h.build()
	return h
}

// build wires the coordinator from the harness parts. Call again after
// replacing cfg or drafter.
func (h *harness) build() {
	logger := zap.NewNop()
	resolver := NewTargetResolver(h.candidates, h.logs, h.cfg, logger)
	budget := NewBudgetTracker(h.logs, h.rules, h.audit, logger)
	scheduler := NewTriggerScheduler(h.cfg)
	executor := NewActionExecutor(h.backend, h.drafter, NewAccountThrottle(0), h.clock, minJitter, h.cfg, logger)
	h.coordinator = NewCoordinator(h.rules, h.accounts, h.logs, h.markers, resolver, budget, scheduler, executor, h.clock, h.audit, h.cfg, logger)
}

func (h *harness) addRule(t *testing.T, mutate func(r *automation.AutomationRule)) string {
	t.Helper()
	rule := &automation.AutomationRule{
		ID:          primitive.NewObjectID(),
		UserID:      "user-1",
		Name:        "Founders",
		ActionType:  automation.ActionFollow,
		DailyLimit:  10,
		DelayMin:    30,
		DelayMax:    120,
		TriggerTime: "09:00-12:00",
		IsActive:    true,
		Status:      automation.StatusActive,
	}
	if mutate != nil {
		mutate(rule)
	}
	require.NoError(t, rule.Prepare())
	h.rules.mu.Lock()
	h.rules.rules[rule.ID.Hex()] = rule
	h.rules.mu.Unlock()
	return rule.ID.Hex()
}

func (h *harness) addProspects(n int, mutate func(i int, p *prospect.Prospect)) {
	h.candidates.mu.Lock()
	defer h.candidates.mu.Unlock()
	for i := 0; i < n; i++ {
		p := prospect.Prospect{
			ID:        fmt.Sprintf("p%02d", len(h.candidates.prospects)+1),
			UserID:    "user-1",
			FirstName: "Pat",
			LastName:  fmt.Sprintf("Doe%d", i),
			Title:     "Founder",
			Company:   "Acme",
			CreatedAt: baseNow.Add(-time.Duration(100-len(h.candidates.prospects)) * time.Hour),
		}
		if mutate != nil {
			mutate(i, &p)
		}
		h.candidates.prospects = append(h.candidates.prospects, p)
	}
}

func (h *harness) addAccount(mutate func(a *account.LinkedInAccount)) string {
	acct := &account.LinkedInAccount{
		ID:     primitive.NewObjectID(),
		UserID: "user-1",
		Name:   "Sales Nav",
		Status: account.StatusConnected,
	}
	if mutate != nil {
		mutate(acct)
	}
	h.accounts.accounts[acct.ID.Hex()] = acct
	return acct.ID.Hex()
}

type panickyDrafter struct{}

func (panickyDrafter) Draft(ctx context.Context, rule *automation.AutomationRule, t Target) (string, error) {
	panic("drafter exploded")
}
