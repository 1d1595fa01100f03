// Package vdr implements the VDR subcontroller: the frontend.Frontend
// implementation that keeps VDR's own systemd unit running and layers
// the dbus2vdr readiness/shutdown-negotiation protocol, and the inner
// video frontend it selects, on top of it. It ports vdr_controller.py's
// VDRController and its two-phase PREPARE/REGULAR startup state
// machine.
package vdr

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/seahawk1986/yavdr-frontend/internal/config"
	"github.com/seahawk1986/yavdr-frontend/internal/frontend"
	"github.com/seahawk1986/yavdr-frontend/internal/shutdown"
	"github.com/seahawk1986/yavdr-frontend/internal/vdrbus"
)

// StartupState models the source's StartupState enum: PREPARE means
// the subcontroller has requested VDR start but has not yet seen a
// dbus2vdr Ready signal; REGULAR means it has attached and is tracking
// live status.
type StartupState int

const (
	StatePrepare StartupState = iota
	StateRegular
)

// StartType classifies why VDR was started (spec.md §4.4 start_type
// classification): a VDR-reported manual start wins outright; absent
// that, the timestamp in the on-disk wakeup file (vdr.wakeup_ts_file) is
// compared against wakeup_delta_seconds to tell a
// VDR-scheduled wakeup from any other reason (BIOS RTC, ansible facts,
// a plain power button press while VDR happened to be asleep).
type StartType int

const (
	StartUnknown StartType = iota
	StartManual
	StartVDRWakeup
	StartOtherWakeup
)

func (s StartType) String() string {
	switch s {
	case StartManual:
		return "manual"
	case StartVDRWakeup:
		return "vdr-wakeup"
	case StartOtherWakeup:
		return "other-wakeup"
	default:
		return "unknown"
	}
}

const (
	confirmShutdownTimeout = 5 * time.Second
	readyWaitTimeout       = 30 * time.Second
	// otherWakeupFallbackDelay is the deferred-poweroff delay used on the
	// StartOtherWakeup branch whenever MinEventTimeout cannot be read; it
	// reproduces the source's dead shutdown_delay local, whose value
	// always ends up being this same 1800s default (spec.md §9, Open
	// Question decision 3).
	otherWakeupFallbackDelay = 30 * time.Minute
)

// ParentController is the subset of internal/controller.Controller the
// VDR subcontroller calls back into. It is expressed as an interface,
// satisfied structurally by *controller.Controller, so this package
// never imports internal/controller (which would create an import
// cycle, since internal/controller builds this package's Controller as
// one of its frontends).
type ParentController interface {
	CurrentName() string
	CurrentFrontend() frontend.Frontend
	ExpectUserActivity() bool
	SetExpectUserActivity(bool)
	SetBackground(ctx context.Context, kind config.BackgroundKind)
	OnStopped(ctx context.Context, caller frontend.Frontend)
	Poweroff(ctx context.Context) error
}

// Controller is the VDR subcontroller; it implements frontend.Frontend
// so the top-level Controller can treat it like any other frontend, and
// shutdown.Handler so it can serve as the configured shutdown_manager.
type Controller struct {
	log     hclog.Logger
	cfg     config.VDR
	bus     *vdrbus.Bundle
	watch   *vdrbus.StatusWatcher
	vdrUnit frontend.Frontend // vdr.service itself; always kept running, never stopped by Stop
	factory *frontend.Factory
	parent  ParentController

	mu                sync.Mutex
	state             StartupState
	videoFrontend     frontend.Frontend
	videoFrontendName string
	sendDLIC          bool
	hasCEC            bool
	readyWait         chan struct{}
	deferredPoweroff  *shutdown.DelayedRepeatableTask
}

// New constructs the VDR subcontroller without performing any I/O.
// Call SetFactory and Init before Start.
func New(log hclog.Logger, cfg config.VDR, vdrUnit frontend.Frontend) *Controller {
	return &Controller{
		log:     log.Named("vdr"),
		cfg:     cfg,
		vdrUnit: vdrUnit,
		state:   StatePrepare,
	}
}

// SetFactory wires the frontend factory load_frontend resolves inner
// video frontends through. Must be called before Init.
func (c *Controller) SetFactory(f *frontend.Factory) { c.factory = f }

// SetParent wires the outer Controller this subcontroller reports
// readiness and stop events to. Must be called before Init.
func (c *Controller) SetParent(p ParentController) { c.parent = p }

// Init connects to the VDR bus, builds the dbus2vdr proxy bundle,
// starts the status watcher, and ensures vdr.service itself is running
// (spec.md §9, the source's await-based __async_init__ construct-then-
// await split).
func (c *Controller) Init(ctx context.Context) error {
	bundle, err := vdrbus.Connect(c.cfg.Dbus2VDRBus == config.SystemBus)
	if err != nil {
		return fmt.Errorf("vdr: %w", err)
	}
	watcher, err := vdrbus.NewStatusWatcher(bundle, c.log)
	if err != nil {
		bundle.Close()
		return fmt.Errorf("vdr: arming status watcher: %w", err)
	}
	c.bus = bundle
	c.watch = watcher
	c.watch.Start(ctx)
	go c.watchLoop(ctx)

	running, err := c.vdrUnit.IsRunning(ctx)
	if err != nil || !running {
		if err := c.vdrUnit.Start(ctx); err != nil {
			return fmt.Errorf("vdr: starting vdr.service: %w", err)
		}
	}
	return nil
}

func (c *Controller) Name() string        { return "vdr" }
func (c *Controller) Kind() frontend.Kind { return frontend.KindModule }

// watchLoop is the sole consumer of the status watcher's Updates()
// channel. A Start() call waiting on a fresh ready signal claims it by
// installing readyWait and closing it itself; any Ready signal that
// arrives with no one waiting is a later re-ready (VDR restarted while
// already attached) and is handed to on_vdr_ready instead.
func (c *Controller) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-c.watch.Updates():
			if !ok {
				return
			}
			if state != vdrbus.VDRRunning {
				continue
			}
			c.mu.Lock()
			wait := c.readyWait
			c.readyWait = nil
			c.mu.Unlock()
			if wait != nil {
				close(wait)
				continue
			}
			c.onVDRReady(ctx)
		}
	}
}

// vdrReady synchronously checks whether dbus2vdr currently reports VDR
// as ready, used both by Start (before waiting on a signal) and by Stop
// (to decide whether remote input needs disabling).
func (c *Controller) vdrReady(ctx context.Context) bool {
	status, err := c.bus.CurrentStatus(ctx)
	if err != nil {
		return false
	}
	return status == "Ready"
}

// loadFrontend queries the loaded VDR plugin list, derives send_DLIC
// and has_cec from it, and resolves the first plugin that also appears
// in vdr.frontends through the factory as the inner video frontend
// (spec.md §4.4 load_frontend).
func (c *Controller) loadFrontend(ctx context.Context) error {
	plugins, err := c.bus.ListPlugins(ctx)
	if err != nil {
		return fmt.Errorf("vdr: listing plugins: %w", err)
	}

	sendDLIC, hasCEC := false, false
	for _, p := range plugins {
		switch p {
		case "skindesigner":
			sendDLIC = true
		case "cecremote":
			hasCEC = true
		}
	}

	var selected frontend.Frontend
	var selectedName string
	for _, p := range plugins {
		fcfg, ok := c.cfg.Frontends[p]
		if !ok {
			continue
		}
		fe, err := c.factory.Build(ctx, fcfg)
		if err != nil {
			return fmt.Errorf("vdr: resolving inner frontend %q: %w", p, err)
		}
		selected, selectedName = fe, p
		break
	}

	c.mu.Lock()
	c.sendDLIC = sendDLIC
	c.hasCEC = hasCEC
	c.videoFrontend = selected
	c.videoFrontendName = selectedName
	c.mu.Unlock()

	if selected == nil {
		c.log.Warn("load_frontend: no configured vdr frontend matches the loaded plugin list", "plugins", plugins)
	}
	return nil
}

// onVDRReady re-runs load_frontend when VDR reports ready while this
// subcontroller is already the active frontend (e.g. VDR restarted
// under us): if a frontend is selected it is (re)started, otherwise
// remote input is disabled (spec.md §4.4 on_vdr_ready).
func (c *Controller) onVDRReady(ctx context.Context) {
	if c.parent == nil || c.parent.CurrentFrontend() != frontend.Frontend(c) {
		return
	}
	if err := c.loadFrontend(ctx); err != nil {
		c.log.Warn("on_vdr_ready: load_frontend failed", "error", err)
		return
	}
	c.mu.Lock()
	hasVideo := c.videoFrontend != nil
	c.mu.Unlock()
	if hasVideo {
		if err := c.Start(ctx); err != nil {
			c.log.Warn("on_vdr_ready: restarting inner frontend failed", "error", err)
		}
		return
	}
	if err := c.disableRemote(ctx); err != nil {
		c.log.Warn("on_vdr_ready: disabling remote failed", "error", err)
	}
}

// Start waits (bounded by readyWaitTimeout) for dbus2vdr to report
// Ready, then runs the PREPARE-phase startup, or attach directly once
// the state is REGULAR (spec.md §4.4 start, _startup, _start).
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	wait := make(chan struct{})
	c.readyWait = wait
	c.mu.Unlock()

	ready := c.vdrReady(ctx)
	if !ready {
		waitCtx, cancel := context.WithTimeout(ctx, readyWaitTimeout)
		select {
		case <-wait:
			ready = true
		case <-waitCtx.Done():
			c.log.Warn("timed out waiting for dbus2vdr ready signal")
		}
		cancel()
	}
	c.mu.Lock()
	if c.readyWait == wait {
		c.readyWait = nil
	}
	c.mu.Unlock()
	if !ready {
		return nil
	}
	if c.State() == StateRegular {
		return c.attach(ctx)
	}
	return c.startup(ctx)
}

// startup implements _startup: the PREPARE phase that classifies why
// VDR was started, arms a deferred power-off for an unattended wakeup,
// and falls through to attach once REGULAR is reached.
func (c *Controller) startup(ctx context.Context) error {
	if !c.vdrReady(ctx) {
		return nil
	}
	if err := c.loadFrontend(ctx); err != nil {
		c.log.Warn("startup: load_frontend failed", "error", err)
	}

	startType, err := c.ClassifyStart(ctx)
	if err != nil {
		c.log.Warn("could not classify start reason", "error", err)
		startType = StartUnknown
	}

	if startType == StartOtherWakeup {
		c.armDeferredPoweroff(ctx)
	}
	if startType == StartUnknown {
		return nil
	}

	c.mu.Lock()
	c.state = StateRegular
	c.mu.Unlock()

	if c.parent != nil {
		auto := c.cfg.AttachOnStartup == config.StartupAuto && startType != StartManual
		never := c.cfg.AttachOnStartup == config.StartupNever
		if auto || never {
			c.parent.SetExpectUserActivity(true)
		}
	}

	return c.attach(ctx)
}

// armDeferredPoweroff reads VDR's MinUserInactivity/MinEventTimeout
// setup values and, if inactivity shutdown is enabled, arms a one-shot
// power-off after MinEventTimeout minutes (falling back to
// otherWakeupFallbackDelay), matching an unattended wakeup that should
// not leave the box running indefinitely (spec.md §4.4 _startup).
func (c *Controller) armDeferredPoweroff(ctx context.Context) {
	minInactivity, err := c.bus.SetupGetInt(ctx, "MinUserInactivity")
	if err != nil || minInactivity <= 0 {
		return
	}
	delay := otherWakeupFallbackDelay
	if minEvent, err := c.bus.SetupGetInt(ctx, "MinEventTimeout"); err == nil && minEvent > 0 {
		delay = time.Duration(minEvent) * time.Minute
	}

	task := shutdown.NewDelayedRepeatableTask()
	c.mu.Lock()
	if c.deferredPoweroff != nil {
		c.deferredPoweroff.Stop()
	}
	c.deferredPoweroff = task
	c.mu.Unlock()

	task.Arm(delay, delay, func() {
		task.Stop()
		if c.parent == nil {
			return
		}
		if err := c.parent.Poweroff(context.Background()); err != nil {
			c.log.Warn("deferred poweroff failed", "error", err)
		}
	})
}

// attach implements _start: the REGULAR phase that actually starts the
// inner video frontend, unless the outer controller expects user
// activity first (spec.md §4.4 _start).
func (c *Controller) attach(ctx context.Context) error {
	c.mu.Lock()
	video := c.videoFrontend
	c.mu.Unlock()

	if video == nil {
		if c.parent != nil {
			c.parent.SetBackground(ctx, config.BackgroundNormal)
		}
		return nil
	}

	if c.parent != nil && c.parent.ExpectUserActivity() {
		c.parent.SetBackground(ctx, config.BackgroundDetached)
		return nil
	}
	if c.parent != nil {
		c.parent.SetBackground(ctx, config.BackgroundNormal)
	}

	userActive := true
	if active, err := c.bus.IsUserActive(ctx); err == nil {
		userActive = active
	}

	if err := video.Start(ctx); err != nil {
		return fmt.Errorf("vdr: starting inner frontend: %w", err)
	}

	if !userActive {
		if err := c.bus.SetUserInactive(ctx); err != nil {
			c.log.Warn("could not mark vdr user inactive", "error", err)
		}
	}
	return c.enableRemote(ctx)
}

// Stop stops the inner video frontend only; vdr.service itself is left
// running (spec.md §4.4 stop). If send_DLIC was detected, it also
// forwards an SVDRP DLIC command to skindesigner before notifying the
// outer Controller.
func (c *Controller) Stop(ctx context.Context) error {
	defer c.Reset()

	if c.vdrReady(ctx) {
		if err := c.disableRemote(ctx); err != nil {
			c.log.Warn("could not disable remote on stop", "error", err)
		}
	}

	c.mu.Lock()
	video := c.videoFrontend
	sendDLIC := c.sendDLIC
	c.mu.Unlock()

	if video != nil {
		if err := video.Stop(ctx); err != nil {
			c.log.Warn("stopping inner frontend failed", "error", err)
		}
	}

	if sendDLIC {
		if _, _, err := c.bus.SVDRPCommand(ctx, "skindesigner", "DLIC", ""); err != nil {
			c.log.Warn("could not send DLIC to skindesigner", "error", err)
		}
	}

	if c.parent != nil {
		c.parent.OnStopped(ctx, c)
	}
	return nil
}

// enableRemote turns on VDR's remote-input channel; if has_cec was
// detected it also tells cecremote to (re)establish its HDMI-CEC
// connection (spec.md §4.4 enable_remote).
func (c *Controller) enableRemote(ctx context.Context) error {
	if err := c.bus.EnableRemote(ctx); err != nil {
		return fmt.Errorf("vdr: enabling remote: %w", err)
	}
	c.mu.Lock()
	hasCEC := c.hasCEC
	c.mu.Unlock()
	if hasCEC {
		if _, _, err := c.bus.SVDRPCommand(ctx, "cecremote", "CONN", ""); err != nil {
			c.log.Warn("could not send CONN to cecremote", "error", err)
		}
	}
	return nil
}

// disableRemote turns off VDR's remote-input channel; if has_cec was
// detected it first tells cecremote to tear its HDMI-CEC connection
// down (spec.md §4.4 disable_remote).
func (c *Controller) disableRemote(ctx context.Context) error {
	c.mu.Lock()
	hasCEC := c.hasCEC
	c.mu.Unlock()
	if hasCEC {
		if _, _, err := c.bus.SVDRPCommand(ctx, "cecremote", "DISC", ""); err != nil {
			c.log.Warn("could not send DISC to cecremote", "error", err)
		}
	}
	return c.bus.DisableRemote(ctx)
}

// IsRunning reports whether the inner video frontend is running; with
// no frontend attached, VDR is considered not running as a frontend
// even though vdr.service itself may be up.
func (c *Controller) IsRunning(ctx context.Context) (bool, error) {
	c.mu.Lock()
	video := c.videoFrontend
	c.mu.Unlock()
	if video == nil {
		return false, nil
	}
	return video.IsRunning(ctx)
}

// Reset rewinds the startup state machine to PREPARE and disarms any
// pending deferred power-off, without touching vdr.service or the
// attached inner frontend; used by on_vdr_shutdown_successful (spec.md
// §9, Open Question decision 4) instead of rebuilding the frontend.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StatePrepare
	if c.deferredPoweroff != nil {
		c.deferredPoweroff.Stop()
		c.deferredPoweroff = nil
	}
}

func (c *Controller) StopOnShutdown() bool { return true }

// State reports the current startup phase.
func (c *Controller) State() StartupState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AttemptShutdown implements shutdown.Handler: it asks VDR to confirm
// shutdown is safe and, if so, presses the remote's Power key to let
// VDR perform its own clean shutdown sequence. Per spec.md §4.5 it
// always reports true once a real confirm_shutdown round trip has
// happened, even when VDR declined: a declined shutdown is a stable,
// deterministic fact that further retries would not change, so the
// pipeline's idempotent-retry contract treats the attempt as settled.
func (c *Controller) AttemptShutdown(ctx context.Context) (bool, error) {
	c.mu.Lock()
	video := c.videoFrontend
	c.mu.Unlock()
	if video == nil {
		return true, nil
	}

	result, err := c.bus.ConfirmShutdown(ctx, confirmShutdownTimeout, true)
	if err != nil {
		return false, fmt.Errorf("vdr: confirm shutdown: %w", err)
	}
	if result.Code != 250 {
		c.log.Debug("vdr declined shutdown", "code", result.Code, "message", result.Message)
		return true, nil
	}

	if err := c.enableRemote(ctx); err != nil {
		return true, fmt.Errorf("vdr: enabling remote: %w", err)
	}
	defer func() {
		if err := c.disableRemote(ctx); err != nil {
			c.log.Warn("could not disable remote after shutdown attempt", "error", err)
		}
	}()
	if err := c.bus.HitKey(ctx, "Power"); err != nil {
		return true, fmt.Errorf("vdr: sending Power key: %w", err)
	}
	return true, nil
}

// ClassifyStart determines why VDR was started (spec.md §4.4
// start_type classification).
func (c *Controller) ClassifyStart(ctx context.Context) (StartType, error) {
	manual, err := c.bus.ManualStart(ctx)
	if err != nil {
		return StartUnknown, fmt.Errorf("vdr: classifying start: %w", err)
	}
	if manual {
		return StartManual, nil
	}
	return classifyFromTimestampFile(c.cfg.WakeupTimestampFile, c.cfg.WakeupDeltaSeconds), nil
}

// classifyFromTimestampFile decides VdrWakeup vs OtherWakeup by
// comparing the timestamp in the on-disk wakeup file against the current
// time and wakeup_delta_seconds; it is split out from ClassifyStart so
// the decision can be tested without a D-Bus connection.
func classifyFromTimestampFile(path string, deltaSeconds float64) StartType {
	data, err := os.ReadFile(path)
	if err != nil {
		return StartOtherWakeup
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return StartOtherWakeup
	}
	diff := time.Now().Unix() - ts
	if diff < 0 {
		diff = -diff
	}
	if float64(diff) <= deltaSeconds {
		return StartVDRWakeup
	}
	return StartOtherWakeup
}

// Close releases the dbus2vdr bus connection.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.deferredPoweroff != nil {
		c.deferredPoweroff.Stop()
	}
	c.mu.Unlock()
	if c.bus == nil {
		return nil
	}
	return c.bus.Close()
}
