package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go-outreach/internal/features/automation"
	"go-outreach/internal/features/execution_log"
)

// ActionRequest is what the engine hands to an action backend.
type ActionRequest struct {
	ActionType      automation.ActionType `json:"action_type"`
	Target          Target                `json:"target"`
	RenderedMessage string                `json:"message,omitempty"`
	AccountID       string                `json:"account_id,omitempty"`
	RuleID          string                `json:"rule_id"`
}

// BackendResult is the backend's verdict. SKIPPED means the action was
// already in effect on the platform.
type BackendResult struct {
	Outcome   execution_log.Outcome `json:"outcome"`
	Reference string                `json:"reference,omitempty"`
	Detail    string                `json:"detail,omitempty"`
}

// Backend performs one action against the third-party platform.
type Backend interface {
	Perform(ctx context.Context, req ActionRequest) (BackendResult, error)
}

// SimulatedBackend records actions in memory. Repeating an action on the
// same target through the same account reports SKIPPED.
type SimulatedBackend struct {
	mu   sync.Mutex
	done map[string]bool
}

func NewSimulatedBackend() *SimulatedBackend {
	return &SimulatedBackend{done: make(map[string]bool)}
}

func (b *SimulatedBackend) Perform(ctx context.Context, req ActionRequest) (BackendResult, error) {
	if err := ctx.Err(); err != nil {
		return BackendResult{}, err
	}
	if needsMessage(req.ActionType) && strings.TrimSpace(req.RenderedMessage) == "" {
		return BackendResult{Outcome: execution_log.OutcomeFailed, Detail: "empty message"}, nil
	}

	key := req.AccountID + "|" + string(req.ActionType) + "|" + req.Target.ID
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done[key] {
		return BackendResult{
			Outcome: execution_log.OutcomeSkipped,
			Detail:  fmt.Sprintf("%s already applied to %s", req.ActionType, req.Target.Name),
		}, nil
	}
	b.done[key] = true
	return BackendResult{
		Outcome:   execution_log.OutcomeSuccess,
		Reference: fmt.Sprintf("sim://%s/%s", strings.ToLower(string(req.ActionType)), req.Target.ID),
		Detail:    describe(req),
	}, nil
}

func needsMessage(t automation.ActionType) bool {
	return t == automation.ActionMessage || t == automation.ActionAIComment
}

func describe(req ActionRequest) string {
	switch req.ActionType {
	case automation.ActionFollow:
		return "followed " + req.Target.Name
	case automation.ActionConnect:
		return "sent connection request to " + req.Target.Name
	case automation.ActionLikePost:
		return "liked latest post of " + req.Target.Name
	case automation.ActionMessage:
		return "messaged " + req.Target.Name
	case automation.ActionAIComment:
		return "commented on post of " + req.Target.Name
	}
	return string(req.ActionType)
}
