// Package vdrbus hand-rolls typed D-Bus proxies for the dbus2vdr VDR
// plugin's private wire protocol (de.tvdr.vdr.*), since no package in
// the Go ecosystem wraps it; the Python source this is ported from
// hand-rolls equivalent sdbus proxies for the same reason
// (interfaces/*.py, vdr_controller.py's DBus2VDR bundle).
package vdrbus

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	busName = "de.tvdr.vdr"

	pathDevices = dbus.ObjectPath("/Plugins/dbus2vdr/devices")
	pathStatus  = dbus.ObjectPath("/Plugins/dbus2vdr/status")
	pathPlugins = dbus.ObjectPath("/Plugins/dbus2vdr/plugins")
	pathVDR     = dbus.ObjectPath("/Plugins/dbus2vdr/vdr")
	pathSetup   = dbus.ObjectPath("/Plugins/dbus2vdr/setup")
	pathRemote  = dbus.ObjectPath("/Plugins/dbus2vdr/remote")
	pathShutdn  = dbus.ObjectPath("/Plugins/dbus2vdr/shutdown")

	ifaceDevices = "de.tvdr.vdr.devices"
	ifaceStatus  = "de.tvdr.vdr.status"
	ifacePlugins = "de.tvdr.vdr.plugins"
	ifaceVDR     = "de.tvdr.vdr.vdr"
	ifaceSetup   = "de.tvdr.vdr.setup"
	ifaceRemote  = "de.tvdr.vdr.remote"
	ifaceShutdn  = "de.tvdr.vdr.shutdown"
)

// Bundle groups every dbus2vdr sub-interface proxy the VDR subcontroller
// needs, mirroring vdr_controller.py's DBus2VDR dataclass.
type Bundle struct {
	conn *dbus.Conn

	Devices  dbus.BusObject
	Status   dbus.BusObject
	Plugins  dbus.BusObject
	VDR      dbus.BusObject
	Setup    dbus.BusObject
	Remote   dbus.BusObject
	Shutdown dbus.BusObject
}

// Connect opens a connection to the given bus (session or system,
// selected by the caller via config.DBusKind) and builds a Bundle of
// dbus2vdr object proxies over it. It performs no round trips; callers
// that need liveness should call Ping or similar immediately after.
func Connect(systemBus bool) (*Bundle, error) {
	var conn *dbus.Conn
	var err error
	if systemBus {
		conn, err = dbus.ConnectSystemBus()
	} else {
		conn, err = dbus.ConnectSessionBus()
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to vdr bus: %w", err)
	}
	return &Bundle{
		conn:     conn,
		Devices:  conn.Object(busName, pathDevices),
		Status:   conn.Object(busName, pathStatus),
		Plugins:  conn.Object(busName, pathPlugins),
		VDR:      conn.Object(busName, pathVDR),
		Setup:    conn.Object(busName, pathSetup),
		Remote:   conn.Object(busName, pathRemote),
		Shutdown: conn.Object(busName, pathShutdn),
	}, nil
}

// Close releases the underlying bus connection.
func (b *Bundle) Close() error {
	return b.conn.Close()
}

// Ping round-trips a no-op introspection call to confirm dbus2vdr is
// present and answering on the bus.
func (b *Bundle) Ping(ctx context.Context) error {
	var xml string
	return b.Status.CallWithContext(ctx, "org.freedesktop.DBus.Introspectable.Introspect", 0).Store(&xml)
}

// EnableRemote turns the VDR remote-control input channel on, used
// ahead of forwarding a synthetic key press (spec.md §4.4/§4.5
// attempt_shutdown, vdr_controller.py enable_remote).
func (b *Bundle) EnableRemote(ctx context.Context) error {
	return b.Remote.CallWithContext(ctx, ifaceRemote+".Enable", 0).Err
}

// DisableRemote turns the VDR remote-control input channel back off.
func (b *Bundle) DisableRemote(ctx context.Context) error {
	return b.Remote.CallWithContext(ctx, ifaceRemote+".Disable", 0).Err
}

// HitKey forwards a synthetic remote key press, e.g. "Power", to VDR.
func (b *Bundle) HitKey(ctx context.Context, key string) error {
	return b.Remote.CallWithContext(ctx, ifaceRemote+".HitKey", 0, key).Err
}

// ConfirmShutdownResult is the reply to a ConfirmShutdown call: Code 250
// means VDR agrees it is safe to shut down (spec.md §4.5).
type ConfirmShutdownResult struct {
	Code    int32
	Message string
}

// ConfirmShutdown asks VDR whether it is safe to power the system off
// within timeout. userShutdown mirrors dbus2vdr's own boolean argument
// distinguishing a user-requested shutdown from an automatic one.
func (b *Bundle) ConfirmShutdown(ctx context.Context, timeout time.Duration, userShutdown bool) (ConfirmShutdownResult, error) {
	var result ConfirmShutdownResult
	call := b.Shutdown.CallWithContext(ctx, ifaceShutdn+".ConfirmShutdown", 0, int32(timeout.Seconds()), userShutdown)
	if call.Err != nil {
		return result, fmt.Errorf("dbus2vdr ConfirmShutdown: %w", call.Err)
	}
	if err := call.Store(&result.Code, &result.Message); err != nil {
		return result, fmt.Errorf("dbus2vdr ConfirmShutdown reply: %w", err)
	}
	return result, nil
}

// ManualStart reports whether VDR believes it was started manually
// (vs. by a wakeup timer), used by start_type classification.
func (b *Bundle) ManualStart(ctx context.Context) (bool, error) {
	var manual bool
	call := b.VDR.CallWithContext(ctx, ifaceVDR+".ManualStart", 0)
	if call.Err != nil {
		return false, fmt.Errorf("dbus2vdr ManualStart: %w", call.Err)
	}
	if err := call.Store(&manual); err != nil {
		return false, fmt.Errorf("dbus2vdr ManualStart reply: %w", err)
	}
	return manual, nil
}

// CurrentStatus queries the plain VDR process status string ("Ready",
// "Start", "Stop", ...) synchronously, used to check readiness without
// waiting on a status signal (spec.md §4.4 vdr_is_ready).
func (b *Bundle) CurrentStatus(ctx context.Context) (string, error) {
	var status string
	call := b.Status.CallWithContext(ctx, ifaceStatus+".Status", 0)
	if call.Err != nil {
		return "", fmt.Errorf("dbus2vdr Status: %w", call.Err)
	}
	if err := call.Store(&status); err != nil {
		return "", fmt.Errorf("dbus2vdr Status reply: %w", err)
	}
	return status, nil
}

// ListPlugins returns the names of VDR plugins currently loaded. It
// backs load_frontend's send_DLIC/has_cec detection and its scan for a
// configured inner video frontend (spec.md §4.4).
func (b *Bundle) ListPlugins(ctx context.Context) ([]string, error) {
	var names []string
	call := b.Plugins.CallWithContext(ctx, ifacePlugins+".List", 0)
	if call.Err != nil {
		return nil, fmt.Errorf("dbus2vdr Plugins.List: %w", call.Err)
	}
	if err := call.Store(&names); err != nil {
		return nil, fmt.Errorf("dbus2vdr Plugins.List reply: %w", err)
	}
	return names, nil
}

// SVDRPCommand sends an SVDRP command to a named plugin (e.g. "DLIC" to
// skindesigner, "CONN"/"DISC" to cecremote) and returns VDR's numeric
// reply code and message (spec.md §4.4 stop/enable_remote/disable_remote).
func (b *Bundle) SVDRPCommand(ctx context.Context, plugin, cmd, option string) (int32, string, error) {
	var code int32
	var message string
	call := b.Plugins.CallWithContext(ctx, ifacePlugins+".SVDRPCommand", 0, plugin, cmd, option)
	if call.Err != nil {
		return 0, "", fmt.Errorf("dbus2vdr SVDRPCommand(%s,%s): %w", plugin, cmd, call.Err)
	}
	if err := call.Store(&code, &message); err != nil {
		return 0, "", fmt.Errorf("dbus2vdr SVDRPCommand(%s,%s) reply: %w", plugin, cmd, err)
	}
	return code, message, nil
}

// SetupGetInt reads an integer-valued VDR setup key, e.g.
// "MinUserInactivity" or "MinEventTimeout" (spec.md §4.4 _startup).
func (b *Bundle) SetupGetInt(ctx context.Context, key string) (int, error) {
	var value string
	call := b.Setup.CallWithContext(ctx, ifaceSetup+".Get", 0, key)
	if call.Err != nil {
		return 0, fmt.Errorf("dbus2vdr Setup.Get(%s): %w", key, call.Err)
	}
	if err := call.Store(&value); err != nil {
		return 0, fmt.Errorf("dbus2vdr Setup.Get(%s) reply: %w", key, err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("dbus2vdr Setup.Get(%s): non-integer value %q", key, value)
	}
	return n, nil
}

// IsUserActive asks VDR whether a user is currently interacting with
// it, consulted when attaching the inner frontend (spec.md §4.4 _start).
func (b *Bundle) IsUserActive(ctx context.Context) (bool, error) {
	var active bool
	call := b.Shutdown.CallWithContext(ctx, ifaceShutdn+".IsUserActive", 0)
	if call.Err != nil {
		return false, fmt.Errorf("dbus2vdr IsUserActive: %w", call.Err)
	}
	if err := call.Store(&active); err != nil {
		return false, fmt.Errorf("dbus2vdr IsUserActive reply: %w", err)
	}
	return active, nil
}

// SetUserInactive tells VDR to treat the user as inactive so its own
// inactivity-based shutdown logic can proceed (spec.md §4.4 _start).
func (b *Bundle) SetUserInactive(ctx context.Context) error {
	return b.Shutdown.CallWithContext(ctx, ifaceShutdn+".SetUserInactive", 0).Err
}
