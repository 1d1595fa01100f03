// Package systemd wraps the process manager (PM) D-Bus API used to start,
// stop, and observe services. It mirrors the unit lifecycle plumbing the
// teacher repository's systemd.go performs for systemd-nspawn machines
// (StartUnit + job-result channel), generalized to arbitrary named units
// and to unit-removal detection.
package systemd

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	sdbus "github.com/coreos/go-systemd/v22/dbus"
	"github.com/hashicorp/go-hclog"
)

// pollInterval controls how often Client polls unit state for the
// unit-removed watchers; the PM only delivers JobRemoved/UnitRemoved over
// raw D-Bus signals that go-systemd's high-level Conn does not expose
// directly, so we detect removal by diffing SubscribeUnits snapshots
// instead (see DESIGN.md).
const pollInterval = 2 * time.Second

// Client is a typed proxy to org.freedesktop.systemd1.Manager.
type Client struct {
	conn *sdbus.Conn
	log  hclog.Logger

	mu       sync.Mutex
	watchers map[string][]chan struct{}
}

// New opens a connection to the process manager on the session or system
// bus, per config.DBusKind.
func New(ctx context.Context, log hclog.Logger, systemBus bool) (*Client, error) {
	var conn *sdbus.Conn
	var err error
	if systemBus {
		conn, err = sdbus.NewSystemConnectionContext(ctx)
	} else {
		conn, err = sdbus.NewUserConnectionContext(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to process manager bus: %w", err)
	}
	c := &Client{
		conn:     conn,
		log:      log.Named("systemd"),
		watchers: make(map[string][]chan struct{}),
	}
	return c, nil
}

// Close releases the underlying bus connection.
func (c *Client) Close() {
	c.conn.Close()
}

// JobResult is the literal job-result string reported by the PM; "done"
// means success, anything else is a failure reason per spec.md §4.3.
type JobResult string

const JobDone JobResult = "done"

// StartUnit submits a start job in "replace" mode and waits for its
// completion.
func (c *Client) StartUnit(ctx context.Context, unitName string) (JobResult, error) {
	return c.runJob(ctx, unitName, c.conn.StartUnitContext)
}

// StopUnit submits a stop job in "replace" mode and waits for its
// completion.
func (c *Client) StopUnit(ctx context.Context, unitName string) (JobResult, error) {
	return c.runJob(ctx, unitName, c.conn.StopUnitContext)
}

type jobFunc func(ctx context.Context, name, mode string, ch chan<- string) (int, error)

func (c *Client) runJob(ctx context.Context, unitName string, fn jobFunc) (JobResult, error) {
	ch := make(chan string, 1)
	if _, err := fn(ctx, unitName, "replace", ch); err != nil {
		return "", fmt.Errorf("submitting job for %s: %w", unitName, err)
	}
	select {
	case result := <-ch:
		return JobResult(result), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// UnitState reports a unit's ActiveState/SubState pair.
type UnitState struct {
	ActiveState string
	SubState    string
}

// IsRunning returns true iff the unit's ActiveState is "active" and its
// SubState is "active" or "running", per spec.md §4.3.
func (s UnitState) IsRunning() bool {
	if s.ActiveState != "active" {
		return false
	}
	return s.SubState == "active" || s.SubState == "running"
}

// GetUnitState fetches the current ActiveState/SubState for a unit.
func (c *Client) GetUnitState(ctx context.Context, unitName string) (UnitState, error) {
	props, err := c.conn.GetUnitPropertiesContext(ctx, unitName)
	if err != nil {
		return UnitState{}, fmt.Errorf("reading properties for %s: %w", unitName, err)
	}
	state := UnitState{}
	if v, ok := props["ActiveState"].(string); ok {
		state.ActiveState = v
	}
	if v, ok := props["SubState"].(string); ok {
		state.SubState = v
	}
	return state, nil
}

// ListUnitNames returns the base names of every unit file known to the PM,
// e.g. "kodi.service". Used by the frontend factory to disambiguate bare
// names against the unit catalog.
func (c *Client) ListUnitNames(ctx context.Context) ([]string, error) {
	files, err := c.conn.ListUnitFilesContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing unit files: %w", err)
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, filepath.Base(f.Path))
	}
	return names, nil
}

// UnitFileExists reports whether a unit file with the given name is known
// to the PM.
func (c *Client) UnitFileExists(ctx context.Context, unitName string) (bool, error) {
	names, err := c.ListUnitNames(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == unitName {
			return true, nil
		}
	}
	return false, nil
}

// SetEnvironment merges key/value pairs into the PM's environment block,
// which is how the controller propagates DISPLAY to frontends it starts
// (spec.md §4.1 set_display).
func (c *Client) SetEnvironment(ctx context.Context, env map[string]string) error {
	pairs := make([]string, 0, len(env))
	for k, v := range env {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, v))
	}
	return c.conn.SetEnvironmentContext(ctx, pairs)
}

// WatchUnitRemoved arms a self-cancelling watcher that fires once, the
// first time unitName stops appearing in the PM's unit snapshot. The
// returned cancel function stops the watcher early.
func (c *Client) WatchUnitRemoved(ctx context.Context, unitName string) (<-chan struct{}, func()) {
	updates, errs := c.conn.SubscribeUnitsCustom(
		pollInterval,
		0,
		func(u1, u2 *sdbus.UnitStatus) bool { return u1 == nil || u2 == nil || *u1 != *u2 },
		func(unit string) bool { return unit != unitName },
	)

	fired := make(chan struct{}, 1)
	stop := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(stop) }) }

	seen := false
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case err := <-errs:
				if err != nil {
					c.log.Debug("unit watch error", "unit", unitName, "error", err)
				}
			case snapshot, ok := <-updates:
				if !ok {
					return
				}
				// A removed unit is reported as a nil entry.
				status, present := snapshot[unitName]
				if !present {
					continue
				}
				if status != nil {
					seen = true
					continue
				}
				if seen {
					select {
					case fired <- struct{}{}:
					default:
					}
					return
				}
			}
		}
	}()
	return fired, cancel
}
