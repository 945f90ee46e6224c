package engine

import (
	"sync"
	"time"
)

// deferredTask runs fn once the task has not been reset for delay. Every
// Reset stops the pending timer and starts a new one, so a burst of resets
// yields a single run.
type deferredTask struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func newDeferredTask(delay time.Duration, fn func()) *deferredTask {
	return &deferredTask{delay: delay, fn: fn}
}

// Reset (re)arms the task.
func (t *deferredTask) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.delay, t.fn)
}

// Cancel disarms a pending run without stopping the task for good.
func (t *deferredTask) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Stop disarms the task permanently.
func (t *deferredTask) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
