package engine

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Clock abstracts wall time and sleeping so passes can be tested without waiting.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func NewRealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Jitter picks a uniformly random duration in [min, max].
type Jitter func(min, max time.Duration) time.Duration

// NewJitter returns a goroutine-safe uniform jitter source.
func NewJitter(seed int64) Jitter {
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(seed))
	return func(min, max time.Duration) time.Duration {
		if max <= min {
			return min
		}
		mu.Lock()
		defer mu.Unlock()
		return min + time.Duration(rng.Int63n(int64(max-min)+1))
	}
}
