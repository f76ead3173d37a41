package rebalance

import "sync"

// RetryTimer is the single-slot scheduler described in spec §4.E: Set
// replaces any existing timer, and action re-enters the Demander through
// forcePreload. It is a thin, mutex-guarded wrapper over the external Timer
// collaborator, the same "guard a single mutable slot under one mutex"
// shape as consumer.sessionChangeMu in the teacher.
type RetryTimer struct {
	timer Timer

	mu     sync.Mutex
	handle any
	armed  bool
}

// NewRetryTimer wraps the external Timer collaborator.
func NewRetryTimer(timer Timer) *RetryTimer {
	return &RetryTimer{timer: timer}
}

// Set arms a one-shot timer for delay milliseconds, replacing any timer
// already armed.
func (t *RetryTimer) Set(delay uint64, action func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.armed {
		t.timer.RemoveTimeoutObject(t.handle)
	}
	t.handle = t.timer.AddTimeoutObject(delay, action)
	t.armed = true
}

// Cancel removes any armed timer. Idempotent.
func (t *RetryTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed {
		return
	}
	t.timer.RemoveTimeoutObject(t.handle)
	t.armed = false
	t.handle = nil
}
