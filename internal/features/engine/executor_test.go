package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-outreach/internal/features/automation"
	"go-outreach/internal/features/execution_log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type failingDrafter struct{}

func (failingDrafter) Draft(ctx context.Context, rule *automation.AutomationRule, t Target) (string, error) {
	return "", errors.New("rate limited")
}

func newTestExecutor(backend Backend, drafter Drafter, clock Clock) *ActionExecutor {
	return NewActionExecutor(backend, drafter, NewAccountThrottle(0), clock, minJitter, testConfig(), zap.NewNop())
}

func TestExecute_MessageRendering(t *testing.T) {
	target := Target{ID: "t1", Name: "Ada Lovelace", FirstName: "Ada", Company: "Analytical"}

	tests := []struct {
		name        string
		rule        automation.AutomationRule
		drafter     Drafter
		wantMessage string
		wantOutcome execution_log.Outcome
	}{
		{
			name:        "follow sends no message",
			rule:        automation.AutomationRule{ActionType: automation.ActionFollow, MessageTemplate: "ignored"},
			wantOutcome: execution_log.OutcomeSuccess,
		},
		{
			name:        "message template",
			rule:        automation.AutomationRule{ActionType: automation.ActionMessage, MessageTemplate: "Hi {{firstName}} from {{ company }}"},
			wantMessage: "Hi Ada from Analytical",
			wantOutcome: execution_log.OutcomeSuccess,
		},
		{
			name:        "message without template uses drafter",
			rule:        automation.AutomationRule{ActionType: automation.ActionMessage, AIPrompt: "Greet {{name}}"},
			drafter:     TemplateDrafter{},
			wantMessage: "Greet Ada Lovelace",
			wantOutcome: execution_log.OutcomeSuccess,
		},
		{
			name:        "ai comment drafter failure",
			rule:        automation.AutomationRule{ActionType: automation.ActionAIComment, AIPrompt: "Comment"},
			drafter:     failingDrafter{},
			wantOutcome: execution_log.OutcomeFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &scriptedBackend{}
			exec := newTestExecutor(backend, tt.drafter, &fakeClock{now: baseNow})
			tt.rule.ID = primitive.NewObjectID()

			res, err := exec.Execute(context.Background(), &tt.rule, nil, target)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, res.Outcome)
			assert.Equal(t, tt.wantMessage, res.Message)
			if tt.wantOutcome == execution_log.OutcomeFailed {
				assert.Contains(t, res.Detail, "draft failed")
				assert.Empty(t, backend.Calls())
				return
			}
			require.Len(t, backend.Calls(), 1)
			assert.Equal(t, tt.wantMessage, backend.Calls()[0].RenderedMessage)
		})
	}
}

func TestExecute_BackendErrorIsFailed(t *testing.T) {
	backend := &scriptedBackend{fn: func(ctx context.Context, n int, req ActionRequest) (BackendResult, error) {
		return BackendResult{}, errors.New("session expired")
	}}
	exec := newTestExecutor(backend, nil, &fakeClock{now: baseNow})
	rule := &automation.AutomationRule{ID: primitive.NewObjectID(), ActionType: automation.ActionConnect}

	res, err := exec.Execute(context.Background(), rule, nil, Target{ID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, execution_log.OutcomeFailed, res.Outcome)
	assert.Equal(t, "session expired", res.Detail)
}

func TestExecute_CancelledBeforeThrottleReturnsError(t *testing.T) {
	backend := &scriptedBackend{}
	exec := NewActionExecutor(backend, nil, NewAccountThrottle(1), &fakeClock{now: baseNow}, minJitter, testConfig(), zap.NewNop())
	rule := &automation.AutomationRule{ID: primitive.NewObjectID(), ActionType: automation.ActionFollow, AccountID: "acct-1"}

	// the first action consumes the burst
	_, err := exec.Execute(context.Background(), rule, nil, Target{ID: "t1"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = exec.Execute(ctx, rule, nil, Target{ID: "t2"})
	assert.Error(t, err)
	assert.Len(t, backend.Calls(), 1)
}

func TestPace_UsesRuleDelays(t *testing.T) {
	clock := &fakeClock{now: baseNow}
	exec := NewActionExecutor(&scriptedBackend{}, nil, nil, clock, func(min, max time.Duration) time.Duration { return max }, testConfig(), zap.NewNop())

	require.NoError(t, exec.Pace(context.Background(), &automation.AutomationRule{DelayMin: 10, DelayMax: 40}))
	assert.Equal(t, []time.Duration{40 * time.Second}, clock.Sleeps())
	assert.Equal(t, baseNow.Add(40*time.Second), clock.Now())
}

func TestNewJitter_StaysInBounds(t *testing.T) {
	jitter := NewJitter(42)
	for i := 0; i < 200; i++ {
		d := jitter(10*time.Second, 12*time.Second)
		assert.GreaterOrEqual(t, d, 10*time.Second)
		assert.LessOrEqual(t, d, 12*time.Second)
	}
	assert.Equal(t, 5*time.Second, jitter(5*time.Second, 5*time.Second))
}

func TestRealClock_SleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewRealClock().Sleep(ctx, time.Hour), context.Canceled)
}

func TestAccountThrottle(t *testing.T) {
	throttle := NewAccountThrottle(60)
	require.NoError(t, throttle.Wait(context.Background(), "a"))

	// the burst for "a" is spent; "b" has its own limiter
	require.NoError(t, throttle.Wait(context.Background(), "b"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, throttle.Wait(ctx, "a"))

	assert.NoError(t, NewAccountThrottle(0).Wait(context.Background(), "a"))
}

func TestSimulatedBackend(t *testing.T) {
	backend := NewSimulatedBackend()
	req := ActionRequest{ActionType: automation.ActionConnect, Target: Target{ID: "t1", Name: "Ada"}, AccountID: "acct"}

	first, err := backend.Perform(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, execution_log.OutcomeSuccess, first.Outcome)
	assert.Equal(t, "sim://send_connection/t1", first.Reference)

	again, err := backend.Perform(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, execution_log.OutcomeSkipped, again.Outcome)

	empty, err := backend.Perform(context.Background(), ActionRequest{ActionType: automation.ActionMessage, Target: Target{ID: "t2"}})
	require.NoError(t, err)
	assert.Equal(t, execution_log.OutcomeFailed, empty.Outcome)
}

func TestHTTPBackend(t *testing.T) {
	var got ActionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		switch got.Target.ID {
		case "ok":
			w.Write([]byte(`{"outcome":"SUCCESS","reference":"https://linkedin.com/feed/1"}`))
		case "weird":
			w.Write([]byte(`{"outcome":"MAYBE"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("driver offline"))
		}
	}))
	defer server.Close()

	backend := NewHTTPBackend(server.URL, "secret")

	res, err := backend.Perform(context.Background(), ActionRequest{ActionType: automation.ActionLikePost, Target: Target{ID: "ok"}, RuleID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, execution_log.OutcomeSuccess, res.Outcome)
	assert.Equal(t, "https://linkedin.com/feed/1", res.Reference)
	assert.Equal(t, automation.ActionLikePost, got.ActionType)
	assert.Equal(t, "r1", got.RuleID)

	_, err = backend.Perform(context.Background(), ActionRequest{Target: Target{ID: "weird"}})
	assert.ErrorContains(t, err, "unknown outcome")

	_, err = backend.Perform(context.Background(), ActionRequest{Target: Target{ID: "down"}})
	assert.ErrorContains(t, err, "502")
}
