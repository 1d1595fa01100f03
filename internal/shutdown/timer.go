package shutdown

import (
	"sync"
	"time"
)

// DelayedRepeatableTask arms a callback to run once after an initial
// delay and then again every interval until Stop is called. It is the
// Go reimplementation of the source's delay()/repeat() shutdown-retry
// primitive. Built directly on stdlib time.Timer rather than a pack
// dependency such as robfig/cron: cron schedules calendar events, this
// is a single-slot delay-then-fixed-interval-repeat timer armed at an
// arbitrary runtime instant, a shape no example-pack library models
// (see DESIGN.md).
type DelayedRepeatableTask struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	gen     uint64
}

// NewDelayedRepeatableTask constructs an unarmed task.
func NewDelayedRepeatableTask() *DelayedRepeatableTask {
	return &DelayedRepeatableTask{}
}

// Arm cancels any previously scheduled run and schedules fn to run once
// after delay, then every interval thereafter until Stop is called.
func (t *DelayedRepeatableTask) Arm(delay, interval time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.stopped = false
	t.gen++
	gen := t.gen

	var run func()
	run = func() {
		fn()
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.stopped || t.gen != gen {
			return
		}
		t.timer = time.AfterFunc(interval, run)
	}
	t.timer = time.AfterFunc(delay, run)
}

// Stop cancels the pending run; a later Arm schedules the task afresh.
func (t *DelayedRepeatableTask) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

// Armed reports whether the task currently has a pending timer.
func (t *DelayedRepeatableTask) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil && !t.stopped
}
