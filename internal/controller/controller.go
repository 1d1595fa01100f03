// Package controller implements the core session-supervisor state
// machine: it owns the primary/secondary frontend slots, dispatches
// remote-control actions, and drives the shutdown pipeline. It ports
// controller.py's Controller class.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/seahawk1986/yavdr-frontend/internal/background"
	"github.com/seahawk1986/yavdr-frontend/internal/config"
	"github.com/seahawk1986/yavdr-frontend/internal/frontend"
	"github.com/seahawk1986/yavdr-frontend/internal/shutdown"
	"github.com/seahawk1986/yavdr-frontend/internal/systemd"
	"github.com/seahawk1986/yavdr-frontend/internal/tools"
)

const (
	defaultShutdownRetryInterval = 5 * time.Minute
)

// ActionFunc is a keymap-dispatchable controller operation.
type ActionFunc func(ctx context.Context, c *Controller, args []string) error

// slot records which name a live Frontend was resolved from, so it can
// be reported on the FrontendChanged signal and compared against by
// SwitchBetween.
type slot struct {
	name string
	fe   frontend.Frontend
}

// Controller is the session supervisor's single top-level state
// machine; exactly one instance exists per process (spec.md §9).
type Controller struct {
	log           hclog.Logger
	cfg           *config.Config
	factory       *frontend.Factory
	systemdClient *systemd.Client
	queue         *shutdown.Queue
	pipeline      *shutdown.Pipeline
	painter       background.Painter

	mu            sync.Mutex // guards state, primary/secondary names+handles
	state         FrontendState
	primaryName   string
	secondaryName string
	primary       frontend.Frontend
	secondary     frontend.Frontend

	current atomic.Pointer[slot]

	expectUserActivity atomic.Bool

	keymap map[string]ActionFunc

	// onFrontendChanged, if set, is invoked every time the current slot
	// starts or stops; internal/ipc wires this to emit the
	// FrontendChanged D-Bus signal, kept as a callback rather than an
	// import to avoid a controller -> ipc dependency cycle.
	onFrontendChanged func(name, status string)
}

// OnFrontendChanged registers a callback invoked after the active
// frontend starts ("started") or stops ("stopped").
func (c *Controller) OnFrontendChanged(fn func(name, status string)) {
	c.onFrontendChanged = fn
}

// New constructs a Controller and its keymap dispatch table. It
// performs no I/O; call Init to resolve and attach the configured
// primary/secondary frontends.
func New(
	log hclog.Logger,
	cfg *config.Config,
	factory *frontend.Factory,
	systemdClient *systemd.Client,
	queue *shutdown.Queue,
	pipeline *shutdown.Pipeline,
	painter background.Painter,
) *Controller {
	c := &Controller{
		log:           log.Named("controller"),
		cfg:           cfg,
		factory:       factory,
		systemdClient: systemdClient,
		queue:         queue,
		pipeline:      pipeline,
		painter:       painter,
		state:         StateStop,
	}
	c.keymap = c.buildKeymap()
	return c
}

// KnownActions returns the set of action names the keymap dispatch
// table accepts. config.Load uses this to reject unknown action names
// at config-load time rather than at keypress time (spec.md §9).
func (c *Controller) KnownActions() map[string]struct{} {
	known := make(map[string]struct{}, len(c.keymap))
	for name := range c.keymap {
		known[name] = struct{}{}
	}
	return known
}

// Dispatch runs the named keymap action with args, used by OnKeypress
// for the lirc keymap entries.
func (c *Controller) Dispatch(ctx context.Context, action string, args []string) error {
	fn, ok := c.keymap[action]
	if !ok {
		return fmt.Errorf("controller: unknown action %q", action)
	}
	return fn(ctx, c, args)
}

// OnKeypress handles a remote-control keypress: if the controller is
// waiting for user activity (a detached VDR wakeup, or the aftermath of
// a poweroff/shutdown attempt), the first keypress clears that flag and
// starts the primary frontend instead of running the mapped action, the
// same "wake up on first input" behavior the VDR attach path arms via
// expect_user_activity (spec.md §4.1 on_keypress, §4.4). Otherwise the
// keypress dispatches normally through the keymap.
func (c *Controller) OnKeypress(ctx context.Context, keyName string) error {
	if c.ExpectUserActivity() {
		c.SetExpectUserActivity(false)
		return c.start(ctx)
	}
	entry, ok := c.cfg.Lirc.Keymap[keyName]
	if !ok {
		return nil
	}
	return c.Dispatch(ctx, entry.Action, entry.Args)
}

// Init resolves the configured primary and secondary frontends. Must be
// called once before Start.
func (c *Controller) Init(ctx context.Context) error {
	primary, err := c.factory.Resolve(ctx, c.cfg.Main.PrimaryFrontend, c.cfg.Applications, c.cfg.VDR.Frontends)
	if err != nil {
		return fmt.Errorf("resolving primary_frontend: %w", err)
	}
	secondary, err := c.factory.Resolve(ctx, c.cfg.Main.SecondaryFrontend, c.cfg.Applications, c.cfg.VDR.Frontends)
	if err != nil {
		return fmt.Errorf("resolving secondary_frontend: %w", err)
	}

	c.mu.Lock()
	c.primaryName = c.cfg.Main.PrimaryFrontend
	c.secondaryName = c.cfg.Main.SecondaryFrontend
	c.primary = primary
	c.secondary = secondary
	c.mu.Unlock()
	return nil
}

// CurrentName returns the name of the currently active frontend, or ""
// if none is active. Lock-free: the current slot is read via an atomic
// pointer load (spec.md §5).
func (c *Controller) CurrentName() string {
	s := c.current.Load()
	if s == nil {
		return ""
	}
	return s.name
}

// CurrentFrontend returns the currently active Frontend, or nil.
func (c *Controller) CurrentFrontend() frontend.Frontend {
	s := c.current.Load()
	if s == nil {
		return nil
	}
	return s.fe
}

func (c *Controller) setCurrent(name string, fe frontend.Frontend) {
	c.mu.Lock()
	c.current.Store(&slot{name: name, fe: fe})
	c.mu.Unlock()
}

func (c *Controller) setState(state FrontendState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// State returns the controller's current top-level state.
func (c *Controller) State() FrontendState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ExpectUserActivity reports whether the controller is waiting to see
// user activity before fully attaching a frontend (spec.md §4.1, §4.4).
func (c *Controller) ExpectUserActivity() bool {
	return c.expectUserActivity.Load()
}

// SetExpectUserActivity sets or clears the expect_user_activity flag.
func (c *Controller) SetExpectUserActivity(v bool) {
	c.expectUserActivity.Store(v)
}

// SetBackground repaints the desktop background for kind, used by the
// VDR subcontroller and the shutdown pipeline as well as the
// frontend-switching paths here.
func (c *Controller) SetBackground(ctx context.Context, kind config.BackgroundKind) {
	if c.painter != nil {
		c.painter.Paint(ctx, kind)
	}
}

// armStopNotifier wires fe's stop notification, if it supports one,
// back to this controller's OnStopped, so on_stopped fires whether fe
// was stopped deliberately or disappeared on its own (spec.md §4.1,
// §4.2, §4.3).
func (c *Controller) armStopNotifier(fe frontend.Frontend) {
	sn, ok := fe.(frontend.StopNotifier)
	if !ok {
		return
	}
	sn.SetOnStopped(func(ctx context.Context) {
		c.OnStopped(ctx, fe)
	})
}

// switchToFrontend starts fe and publishes it as current once started;
// it never stops anything itself, since by the time it runs, any
// previously active frontend has already been stopped by an explicit
// Stop call earlier in the same call chain (see Switch).
func (c *Controller) switchToFrontend(ctx context.Context, name string, fe frontend.Frontend) error {
	if err := fe.Start(ctx); err != nil {
		return fmt.Errorf("starting frontend %q: %w", name, err)
	}
	c.setCurrent(name, fe)
	c.armStopNotifier(fe)
	c.SetBackground(ctx, config.BackgroundNormal)
	if c.onFrontendChanged != nil {
		c.onFrontendChanged(name, "started")
	}
	return nil
}

// start activates the primary frontend; the current_frontend the
// source operates on is always frontends[0] (primary), so every public
// entry point that "starts the session" — the boot-time Start, and
// SwitchOnStopped's SWITCH/RESTART branches — collapses onto this one
// private method (spec.md §4.1 start).
func (c *Controller) start(ctx context.Context) error {
	c.SetExpectUserActivity(false)
	if c.pipeline != nil {
		c.pipeline.Cancel()
	}
	c.setState(StateSwitch)

	c.mu.Lock()
	name, fe := c.primaryName, c.primary
	c.mu.Unlock()
	return c.switchToFrontend(ctx, name, fe)
}

// Start begins the session: it activates the primary frontend. This is
// both the boot-time entry point and the public IPC "Start" method.
func (c *Controller) Start(ctx context.Context) error {
	return c.start(ctx)
}

// stopResult adapts a (ok, reason) pair into an error, treating a
// non-ok result as failure and any ok result (including the idempotent
// "already stopped" outcome) as success.
func stopResult(ok bool, reason string) error {
	if ok {
		return nil
	}
	return errors.New(reason)
}

// Stop stops the current frontend. When extern is true (an IPC call or
// a keypress-driven stop) it also chooses a background by the
// controller's current state, transitions to STOP, and marks
// expect_user_activity, matching spec.md §4.1 stop(extern). Internal
// callers that manage their own state transitions (Switch, Quit,
// PrepareShutdown, the non-interactive toggle, and the
// PREPARE_SHUTDOWN/QUIT re-entry branch of on_stopped) pass
// extern=false.
func (c *Controller) Stop(ctx context.Context, extern bool) (bool, string) {
	if extern {
		switch c.State() {
		case StatePrepareShutdown:
			c.SetBackground(ctx, config.BackgroundPrepareShutdown)
		case StateQuit:
			c.SetBackground(ctx, config.BackgroundShutdown)
		case StateRestart:
			c.SetBackground(ctx, config.BackgroundNormal)
		default:
			c.SetBackground(ctx, config.BackgroundDetached)
		}
		c.setState(StateStop)
		c.SetExpectUserActivity(true)
	}

	s := c.current.Load()
	if s == nil || s.fe == nil {
		return true, "already stopped"
	}
	fe := s.fe
	if running, _ := fe.IsRunning(ctx); !running {
		return true, "already stopped"
	}
	if err := fe.Stop(ctx); err != nil {
		return false, err.Error()
	}
	// fe's stop callback may already have started the next frontend
	// (state SWITCH or RESTART); clear the slot only if it is still the
	// one stopped here.
	c.mu.Lock()
	c.current.CompareAndSwap(s, &slot{})
	c.mu.Unlock()
	return true, ""
}

// OnStopped reacts to a frontend reporting its own stop, whether
// requested (via Stop) or detected asynchronously (its unit
// disappeared). caller is compared against the active frontend by
// identity, mirroring the source's "caller is self.current_frontend"
// check, since the name a frontend is resolved under can differ from
// its own Name() (spec.md §4.1 on_stopped).
func (c *Controller) OnStopped(ctx context.Context, caller frontend.Frontend) {
	if caller != c.CurrentFrontend() {
		c.log.Debug("on_stopped: stale signal, ignoring", "current", c.CurrentName())
		return
	}
	name := c.CurrentName()
	if c.onFrontendChanged != nil {
		c.onFrontendChanged(name, "stopped")
	}
	if err := c.SwitchOnStopped(ctx); err != nil {
		c.log.Warn("switch_on_stopped failed", "error", err)
	}
}

// SwitchOnStopped dispatches by the controller's current state, run
// once the active frontend has actually stopped (spec.md §4.1
// on_stopped dispatch table).
func (c *Controller) SwitchOnStopped(ctx context.Context) error {
	switch c.State() {
	case StateSwitch:
		c.reverseSlots()
		return c.start(ctx)
	case StateRestart:
		return c.start(ctx)
	case StateStop:
		return nil
	case StatePrepareShutdown, StateQuit:
		return stopResult(c.Stop(ctx, false))
	default:
		return nil
	}
}

// reverseSlots swaps the primary and secondary slots, so that whichever
// frontend was "next" becomes what start() activates.
func (c *Controller) reverseSlots() {
	c.mu.Lock()
	c.primaryName, c.secondaryName = c.secondaryName, c.primaryName
	c.primary, c.secondary = c.secondary, c.primary
	c.mu.Unlock()
}

// setNextSlot assigns the secondary slot directly to fe/name, the
// "next slot" SwitchTo/SetNext always mean, since once running normally
// CurrentName() is always primaryName (start always activates primary).
func (c *Controller) setNextSlot(name string, fe frontend.Frontend) {
	c.mu.Lock()
	c.secondaryName = name
	c.secondary = fe
	c.mu.Unlock()
}

// Switch sets state SWITCH, stops the current frontend with
// extern=false, and lets the resulting on_stopped callback reverse the
// slots and restart. If nothing was running, Stop reports "already
// stopped" and no on_stopped signal will ever fire, so Switch drives
// the reversal+restart itself in that case (spec.md §4.1 switch).
func (c *Controller) Switch(ctx context.Context) error {
	c.setState(StateSwitch)
	ok, reason := c.Stop(ctx, false)
	if !ok {
		return errors.New(reason)
	}
	if reason == "already stopped" {
		return c.SwitchOnStopped(ctx)
	}
	return nil
}

// SwitchTo activates an arbitrary named/app/unit frontend: it resolves
// name through the factory (caching), makes it the next (secondary)
// slot, then switches. It is a no-op if name is already current.
// start_desktop is a thin wrapper around this (Open Question decision
// 1, spec.md §4.1 switchto).
func (c *Controller) SwitchTo(ctx context.Context, name string) error {
	if name == c.CurrentName() {
		return nil
	}
	fe, err := c.factory.Resolve(ctx, name, c.cfg.Applications, c.cfg.VDR.Frontends)
	if err != nil {
		return err
	}
	c.setNextSlot(name, fe)
	return c.Switch(ctx)
}

// SwitchBetween switches to b if a is currently active, otherwise
// switches to a; it is the keymap-facing "toggle between these two
// specific frontends" operation.
func (c *Controller) SwitchBetween(ctx context.Context, a, b string) error {
	if c.CurrentName() == a {
		return c.SwitchTo(ctx, b)
	}
	return c.SwitchTo(ctx, a)
}

// toggle starts the current frontend if it is not running, or stops it
// (with the given extern flag) if it is, mirroring the source's
// toggle(extern) (spec.md §4.1 toggle).
func (c *Controller) toggle(ctx context.Context, extern bool) error {
	fe := c.CurrentFrontend()
	running := false
	if fe != nil {
		running, _ = fe.IsRunning(ctx)
	}
	if running {
		return stopResult(c.Stop(ctx, extern))
	}
	return c.Start(ctx)
}

// Toggle switches the current frontend off if running, on if not,
// as an interactive (extern) action.
func (c *Controller) Toggle(ctx context.Context) error {
	return c.toggle(ctx, true)
}

// ToggleNoninteractive behaves like Toggle but as a non-interactive
// (extern=false) action: stopping leaves the controller state,
// expect_user_activity and the background untouched. Because Start
// leaves the state at SWITCH, stopping a running frontend this way lets
// on_stopped reverse the slots and start the other frontend.
func (c *Controller) ToggleNoninteractive(ctx context.Context) error {
	return c.toggle(ctx, false)
}

// SetNext reassigns the secondary frontend slot to name, resolved
// through the factory.
func (c *Controller) SetNext(ctx context.Context, name string) error {
	fe, err := c.factory.Resolve(ctx, name, c.cfg.Applications, c.cfg.VDR.Frontends)
	if err != nil {
		return err
	}
	c.setNextSlot(name, fe)
	return nil
}

// SetNextFE is the best-effort variant of SetNext used by the public
// IPC interface: on an invalid or unresolvable name it logs and returns
// false, leaving the secondary slot untouched, rather than returning an
// error (Open Question decision 2).
func (c *Controller) SetNextFE(ctx context.Context, name string) bool {
	if err := c.SetNext(ctx, name); err != nil {
		c.log.Info("set_next_fe: could not resolve frontend, ignoring", "name", name, "error", err)
		return false
	}
	return true
}

// SetDisplay validates display as an X11 DISPLAY string and propagates
// it, plus its paired second-screen DISPLAY, into the process manager's
// environment so frontend units it starts inherit them.
func (c *Controller) SetDisplay(ctx context.Context, display string) error {
	if !tools.DisplayRE.MatchString(display) {
		return fmt.Errorf("controller: invalid DISPLAY %q", display)
	}
	second, err := tools.Second2Screen(display)
	if err != nil {
		return fmt.Errorf("controller: computing second screen: %w", err)
	}
	if c.systemdClient == nil {
		return nil
	}
	return c.systemdClient.SetEnvironment(ctx, map[string]string{
		"DISPLAY":  display,
		"DISPLAY2": second,
	})
}

// Quit tears the session down: it stops the current frontend and
// cancels any pending shutdown retry, without powering the system off.
func (c *Controller) Quit(ctx context.Context) error {
	c.setState(StateQuit)
	if c.pipeline != nil {
		c.pipeline.Cancel()
	}
	return stopResult(c.Stop(ctx, false))
}

// Poweroff makes a single immediate shutdown attempt. It marks
// expect_user_activity and clears any pending retry before doing so,
// matching spec.md §4.5 poweroff.
func (c *Controller) Poweroff(ctx context.Context) error {
	c.SetExpectUserActivity(true)
	if c.pipeline == nil {
		return fmt.Errorf("controller: no shutdown pipeline configured")
	}
	c.pipeline.Cancel()
	c.pipeline.Poweroff()
	return nil
}

// YavdrCompatPoweroff mirrors yavdr_compat_poweroff (spec.md §4.5): if
// the current frontend is not the VDR frontend, it switches to "vdr"
// instead of powering off directly, so VDR can run its own shutdown
// negotiation once it becomes current.
func (c *Controller) YavdrCompatPoweroff(ctx context.Context) error {
	if c.CurrentName() != "vdr" {
		return c.SwitchTo(ctx, "vdr")
	}
	return c.Poweroff(ctx)
}

// PrepareShutdown enters StatePrepareShutdown, stops the current
// frontend if it asks to be stopped on shutdown, paints the
// prepare_shutdown wallpaper, and arms the shutdown pipeline's retry
// timer (spec.md §4.5 prepare_shutdown).
func (c *Controller) PrepareShutdown(ctx context.Context, delay time.Duration) error {
	c.setState(StatePrepareShutdown)
	c.SetBackground(ctx, config.BackgroundPrepareShutdown)
	if fe := c.CurrentFrontend(); fe != nil && fe.StopOnShutdown() {
		if ok, reason := c.Stop(ctx, false); !ok {
			c.log.Warn("prepare_shutdown: stopping current frontend failed", "reason", reason)
		}
	}
	if c.pipeline == nil {
		return fmt.Errorf("controller: no shutdown pipeline configured")
	}
	c.pipeline.PrepareShutdown(delay, defaultShutdownRetryInterval)
	return nil
}

// OnVDRShutdownSuccessful clears expect_user_activity and any pending
// shutdown timer, repaints the normal background, transitions to
// RESTART, and resets the VDR subcontroller's startup state back to
// PREPARE via Frontend.Reset() rather than rebuilding or reassigning
// its frontend handle (spec.md §4.5 on_vdr_shutdown_successful, Open
// Question decision 4).
func (c *Controller) OnVDRShutdownSuccessful(ctx context.Context) error {
	c.SetExpectUserActivity(false)
	if c.pipeline != nil {
		c.pipeline.Cancel()
	}
	c.SetBackground(ctx, config.BackgroundNormal)
	c.setState(StateRestart)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.primary != nil && c.primaryName == "vdr" {
		c.primary.Reset()
	}
	if c.secondary != nil && c.secondaryName == "vdr" {
		c.secondary.Reset()
	}
	return nil
}
