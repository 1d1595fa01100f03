package vdrbus

import (
	"context"

	"github.com/godbus/dbus/v5"
	"github.com/hashicorp/go-hclog"
)

// VDRState is the three-value readiness state the controller's VDR
// subcontroller tracks (spec.md §3).
type VDRState int

const (
	VDRAbsent VDRState = iota
	VDRStopping
	VDRRunning
)

func (s VDRState) String() string {
	switch s {
	case VDRAbsent:
		return "absent"
	case VDRStopping:
		return "stopping"
	case VDRRunning:
		return "running"
	default:
		return "unknown"
	}
}

// StatusWatcher subscribes to the three signals that drive VDR
// readiness: de.tvdr.vdr.status.Ready, de.tvdr.vdr.status.Stop, and
// org.freedesktop.DBus.NameOwnerChanged for de.tvdr.vdr itself. This
// mirrors vdr_controller.py's DBus2VDRStatusHandler, which runs the
// equivalent three asyncio tasks concurrently.
type StatusWatcher struct {
	bundle *Bundle
	log    hclog.Logger

	signals chan *dbus.Signal
	updates chan VDRState
}

// NewStatusWatcher arms the watcher's signal subscriptions. It performs
// D-Bus calls, so it follows the New/Init split used elsewhere: call
// Start to begin delivering updates.
func NewStatusWatcher(bundle *Bundle, log hclog.Logger) (*StatusWatcher, error) {
	conn := bundle.conn

	matches := []string{
		"type='signal',interface='" + ifaceStatus + "',member='Ready'",
		"type='signal',interface='" + ifaceStatus + "',member='Stop'",
		"type='signal',interface='org.freedesktop.DBus',member='NameOwnerChanged',arg0='" + busName + "'",
	}
	for _, m := range matches {
		if call := conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, m); call.Err != nil {
			return nil, call.Err
		}
	}

	w := &StatusWatcher{
		bundle:  bundle,
		log:     log.Named("vdr-status"),
		signals: make(chan *dbus.Signal, 16),
		updates: make(chan VDRState, 1),
	}
	conn.Signal(w.signals)
	return w, nil
}

// Updates returns the channel VDRState transitions are published on.
// Only the most recent pending state is retained (capacity 1, like
// shutdown.Queue) since consumers only care about current state.
func (w *StatusWatcher) Updates() <-chan VDRState {
	return w.updates
}

// Start runs the signal-dispatch loop until ctx is cancelled.
func (w *StatusWatcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-w.signals:
				if !ok {
					return
				}
				w.handle(sig)
			}
		}
	}()
}

func (w *StatusWatcher) handle(sig *dbus.Signal) {
	var state VDRState
	switch sig.Name {
	case ifaceStatus + ".Ready":
		state = VDRRunning
	case ifaceStatus + ".Stop":
		state = VDRStopping
	case "org.freedesktop.DBus.NameOwnerChanged":
		if len(sig.Body) < 3 {
			return
		}
		newOwner, _ := sig.Body[2].(string)
		if newOwner == "" {
			state = VDRAbsent
		} else {
			return
		}
	default:
		return
	}
	w.publish(state)
}

func (w *StatusWatcher) publish(state VDRState) {
	select {
	case w.updates <- state:
	default:
		select {
		case <-w.updates:
		default:
		}
		w.updates <- state
	}
}
