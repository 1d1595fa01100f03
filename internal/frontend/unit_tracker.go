package frontend

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/seahawk1986/yavdr-frontend/internal/systemd"
	"github.com/seahawk1986/yavdr-frontend/internal/tools"
)

// UnitTracker is a Frontend backed by a single systemd/PM unit: starting
// and stopping it submits start/stop jobs and waits for the job result,
// exactly as the teacher's CreateMachine does for nspawn machines
// (internal/systemd.Client.StartUnit/StopUnit).
type UnitTracker struct {
	log          hclog.Logger
	client       *systemd.Client
	unitName     string
	usePASuspend bool

	mu          sync.Mutex
	onStopped   func(ctx context.Context)
	cancelWatch func()
}

// NewUnitTracker constructs a unit-backed Frontend. usePASuspend mirrors
// config.FrontendConfig.UsePASuspend: pulseaudio output is suspended
// before Start and resumed after Stop when set.
func NewUnitTracker(log hclog.Logger, client *systemd.Client, unitName string, usePASuspend bool) *UnitTracker {
	return &UnitTracker{
		log:          log.Named(unitName),
		client:       client,
		unitName:     unitName,
		usePASuspend: usePASuspend,
	}
}

func (u *UnitTracker) Name() string { return u.unitName }
func (u *UnitTracker) Kind() Kind   { return KindUnit }

// SetOnStopped registers the callback invoked either when Stop
// completes or when the unit is observed to disappear out from under
// the controller, implementing frontend.StopNotifier.
func (u *UnitTracker) SetOnStopped(fn func(ctx context.Context)) {
	u.mu.Lock()
	u.onStopped = fn
	u.mu.Unlock()
}

func (u *UnitTracker) Start(ctx context.Context) error {
	if u.usePASuspend {
		tools.PASuspend(ctx, u.log)
	}
	result, err := u.client.StartUnit(ctx, u.unitName)
	if err != nil {
		return fmt.Errorf("starting unit %s: %w", u.unitName, err)
	}
	if result != systemd.JobDone {
		return fmt.Errorf("starting unit %s: job result %q", u.unitName, result)
	}
	u.armWatch(ctx)
	return nil
}

// armWatch cancels any previously-armed disappearance watch and starts
// a fresh one, so that only the most recently started run of this unit
// can trigger onStopped (spec.md §4.3).
func (u *UnitTracker) armWatch(ctx context.Context) {
	u.mu.Lock()
	if u.cancelWatch != nil {
		u.cancelWatch()
	}
	fired, cancel := u.WatchRemoved(ctx)
	u.cancelWatch = cancel
	u.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-fired:
			if !ok {
				return
			}
			u.mu.Lock()
			u.cancelWatch = nil
			fn := u.onStopped
			u.mu.Unlock()
			if fn != nil {
				fn(context.Background())
			}
		}
	}()
}

func (u *UnitTracker) Stop(ctx context.Context) error {
	u.mu.Lock()
	if u.cancelWatch != nil {
		u.cancelWatch()
		u.cancelWatch = nil
	}
	u.mu.Unlock()

	result, err := u.client.StopUnit(ctx, u.unitName)
	if u.usePASuspend {
		tools.PAResume(ctx, u.log)
	}
	if err != nil {
		return fmt.Errorf("stopping unit %s: %w", u.unitName, err)
	}
	if result != systemd.JobDone {
		return fmt.Errorf("stopping unit %s: job result %q", u.unitName, result)
	}

	u.mu.Lock()
	fn := u.onStopped
	u.mu.Unlock()
	if fn != nil {
		fn(ctx)
	}
	return nil
}

func (u *UnitTracker) IsRunning(ctx context.Context) (bool, error) {
	state, err := u.client.GetUnitState(ctx, u.unitName)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrUnknownUnit, u.unitName, err)
	}
	return state.IsRunning(), nil
}

// Reset is a no-op for plain unit-backed frontends; they have no
// internal startup-state machine to rewind.
func (u *UnitTracker) Reset() {}

func (u *UnitTracker) StopOnShutdown() bool { return true }

// WatchRemoved arms a self-cancelling watcher that fires once when this
// unit disappears from the PM's unit catalog (spec.md §4.3).
func (u *UnitTracker) WatchRemoved(ctx context.Context) (<-chan struct{}, func()) {
	return u.client.WatchUnitRemoved(ctx, u.unitName)
}
