package gate

import (
	"sync"
	"time"
)

// Timers schedules deferred tasks keyed by logical purpose. Scheduling a new
// task under a purpose atomically cancels the pending one, so only the most
// recent request for that purpose ever runs.
type Timers struct {
	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool
}

// NewTimers returns an empty scheduler.
func NewTimers() *Timers {
	return &Timers{pending: make(map[string]*time.Timer)}
}

// Schedule runs fn after delay, replacing any pending task with the same
// purpose. fn runs on its own goroutine, never on the caller's.
func (t *Timers) Schedule(purpose string, delay time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if prev, ok := t.pending[purpose]; ok {
		prev.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		t.mu.Lock()
		// A replacement may have been scheduled between firing and locking;
		// only the current timer for the purpose may run.
		current := t.pending[purpose] == timer
		if current {
			delete(t.pending, purpose)
		}
		stopped := t.stopped
		t.mu.Unlock()
		if current && !stopped {
			fn()
		}
	})
	t.pending[purpose] = timer
}

// Cancel drops the pending task for purpose, if any.
func (t *Timers) Cancel(purpose string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.pending[purpose]; ok {
		timer.Stop()
		delete(t.pending, purpose)
	}
}

// Stop cancels everything and refuses further scheduling.
func (t *Timers) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for purpose, timer := range t.pending {
		timer.Stop()
		delete(t.pending, purpose)
	}
}
