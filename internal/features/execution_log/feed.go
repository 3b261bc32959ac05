package execution_log

import (
	"sync"
)

// Feed fans appended entries out to live subscribers (websocket clients).
// Slow subscribers lose entries instead of stalling a pass.
type Feed struct {
	mu          sync.RWMutex
	subscribers map[chan ExecutionLog]subscription
}

type subscription struct {
	userID string
	ruleID string
}

func NewFeed() *Feed {
	return &Feed{subscribers: make(map[chan ExecutionLog]subscription)}
}

// Subscribe registers a listener for one user's entries. ruleID "" receives
// every entry of that user.
func (f *Feed) Subscribe(userID, ruleID string) (<-chan ExecutionLog, func()) {
	ch := make(chan ExecutionLog, 64)
	f.mu.Lock()
	f.subscribers[ch] = subscription{userID: userID, ruleID: ruleID}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subscribers, ch)
			f.mu.Unlock()
			close(ch)
		})
	}
}

func (f *Feed) Publish(entry ExecutionLog) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for ch, sub := range f.subscribers {
		if sub.userID != entry.UserID {
			continue
		}
		if sub.ruleID != "" && sub.ruleID != entry.RuleID {
			continue
		}
		select {
		case ch <- entry:
		default:
		}
	}
}

func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}
