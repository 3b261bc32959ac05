package engine

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// AccountThrottle spaces actions per sending account across all rules, on
// top of each rule's own delay.
type AccountThrottle struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
}

// NewAccountThrottle allows perMinute actions per account. Zero or less
// disables throttling.
func NewAccountThrottle(perMinute float64) *AccountThrottle {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(perMinute / 60)
	}
	return &AccountThrottle{limiters: make(map[string]*rate.Limiter), limit: limit}
}

func (t *AccountThrottle) limiter(accountID string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[accountID]
	if !ok {
		l = rate.NewLimiter(t.limit, 1)
		t.limiters[accountID] = l
	}
	return l
}

// Wait blocks until the account may send another action.
func (t *AccountThrottle) Wait(ctx context.Context, accountID string) error {
	if accountID == "" || t.limit == rate.Inf {
		return nil
	}
	return t.limiter(accountID).Wait(ctx)
}
