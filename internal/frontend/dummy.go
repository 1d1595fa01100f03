package frontend

import (
	"context"
	"sync"
	"sync/atomic"
)

// Dummy is the no-op frontend used as a fallback secondary_frontend and
// in tests; it never fails and reports running once Start has been
// called, matching the Python source's BasicFrontend.
type Dummy struct {
	name    string
	running atomic.Bool

	mu        sync.Mutex
	onStopped func(ctx context.Context)
}

// NewDummy constructs a Dummy frontend with the given name.
func NewDummy(name string) *Dummy {
	return &Dummy{name: name}
}

func (d *Dummy) Name() string { return d.name }
func (d *Dummy) Kind() Kind   { return KindDummy }

func (d *Dummy) Start(ctx context.Context) error {
	d.running.Store(true)
	return nil
}

// Stop clears the running flag and, as its last step, notifies any
// registered stop callback, honoring the uniform "every Frontend
// reports its own stop" contract the Controller's on_stopped dispatch
// depends on (spec.md §4.1, §4.2).
func (d *Dummy) Stop(ctx context.Context) error {
	d.running.Store(false)
	d.mu.Lock()
	fn := d.onStopped
	d.mu.Unlock()
	if fn != nil {
		fn(ctx)
	}
	return nil
}

func (d *Dummy) IsRunning(ctx context.Context) (bool, error) {
	return d.running.Load(), nil
}

func (d *Dummy) Reset() {
	d.running.Store(false)
}

func (d *Dummy) StopOnShutdown() bool { return false }

// SetOnStopped registers the callback Stop invokes after it has
// stopped, implementing frontend.StopNotifier.
func (d *Dummy) SetOnStopped(fn func(ctx context.Context)) {
	d.mu.Lock()
	d.onStopped = fn
	d.mu.Unlock()
}
