// Package ipc exports the controller as a public D-Bus service,
// de.yavdr.frontend, mirroring yavdr_frontend_interface.py's sdbus
// interface including its deprecated camelCase/snake_case method-name
// duplication (spec.md §4.8, §6).
package ipc

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"github.com/hashicorp/go-hclog"

	"github.com/seahawk1986/yavdr-frontend/internal/controller"
)

const (
	busName    = "de.yavdr.frontend"
	objectPath = dbus.ObjectPath("/Controller")
	ifaceName  = "de.yavdr.frontend.Controller"
)

const introspectXML = `
<node>
  <interface name="` + ifaceName + `">
    <method name="Start"></method>
    <method name="Stop"></method>
    <method name="Toggle"></method>
    <method name="ToggleNoninteractive"></method>
    <method name="Switch"></method>
    <method name="SwitchTo"><arg direction="in" type="s"/></method>
    <method name="SwitchBetween"><arg direction="in" type="s"/><arg direction="in" type="s"/></method>
    <method name="SetNext"><arg direction="in" type="s"/></method>
    <method name="SetNextFE"><arg direction="in" type="s"/><arg direction="out" type="b"/></method>
    <method name="SetDisplay"><arg direction="in" type="s"/></method>
    <method name="StartDesktop"><arg direction="in" type="s"/><arg direction="out" type="s"/></method>
    <method name="Quit"></method>
    <method name="ShutdownSuccessful"></method>
    <signal name="FrontendChanged"><arg type="s"/><arg type="s"/></signal>
    <property name="CurrentFrontend" type="s" access="read"/>
  </interface>` + introspect.IntrospectDataString + `
</node>`

// Service exports a Controller over de.yavdr.frontend.
type Service struct {
	log   hclog.Logger
	ctrl  *controller.Controller
	conn  *dbus.Conn
	props *prop.Properties
}

// New constructs an unconnected Service.
func New(log hclog.Logger, ctrl *controller.Controller) *Service {
	return &Service{log: log.Named("ipc"), ctrl: ctrl}
}

// Init connects to the configured bus, exports the method table, the
// CurrentFrontend property, and introspection data, and requests the
// de.yavdr.frontend bus name.
func (s *Service) Init(ctx context.Context, systemBus bool) error {
	var conn *dbus.Conn
	var err error
	if systemBus {
		conn, err = dbus.ConnectSystemBus()
	} else {
		conn, err = dbus.ConnectSessionBus()
	}
	if err != nil {
		return fmt.Errorf("ipc: connecting to bus: %w", err)
	}
	s.conn = conn

	if err := conn.ExportMethodTable(s.methodTable(), objectPath, ifaceName); err != nil {
		return fmt.Errorf("ipc: exporting methods: %w", err)
	}
	if err := conn.Export(introspect.Introspectable(introspectXML), objectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("ipc: exporting introspection: %w", err)
	}

	propsSpec := prop.Map{
		ifaceName: {
			"CurrentFrontend": {
				Value:    s.ctrl.CurrentName(),
				Writable: false,
				Emit:     prop.EmitTrue,
			},
		},
	}
	props, err := prop.Export(conn, objectPath, propsSpec)
	if err != nil {
		return fmt.Errorf("ipc: exporting properties: %w", err)
	}
	s.props = props

	s.ctrl.OnFrontendChanged(s.EmitFrontendChanged)

	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("ipc: requesting bus name %s: %w", busName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("ipc: bus name %s already owned", busName)
	}
	return nil
}

// Close releases the bus connection.
func (s *Service) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// EmitFrontendChanged updates the CurrentFrontend property and emits
// the FrontendChanged signal, used by the controller whenever the
// active frontend starts or stops. status is "started" or "stopped".
func (s *Service) EmitFrontendChanged(name, status string) {
	if s.conn == nil {
		return
	}
	if s.props != nil {
		s.props.SetMust(ifaceName, "CurrentFrontend", name)
	}
	if err := s.conn.Emit(objectPath, ifaceName+".FrontendChanged", name, status); err != nil {
		s.log.Warn("could not emit FrontendChanged", "error", err)
	}
}

// methodTable maps both the current PascalCase method names and the
// deprecated snake_case aliases yavdr_frontend_interface.py also
// exposed onto the same Go methods, so legacy callers keep working.
func (s *Service) methodTable() map[string]interface{} {
	return map[string]interface{}{
		"Start":                s.Start,
		"start":                s.Start,
		"Stop":                 s.Stop,
		"stop":                 s.Stop,
		"Toggle":               s.Toggle,
		"toggle":               s.Toggle,
		"ToggleNoninteractive": s.ToggleNoninteractive,
		"Switch":               s.Switch,
		"switch":               s.Switch,
		"SwitchTo":             s.SwitchTo,
		"switchto":             s.SwitchTo,
		"SwitchBetween":        s.SwitchBetween,
		"switchbetween":        s.SwitchBetween,
		"SetNext":              s.SetNext,
		"set_next":             s.SetNext,
		"SetNextFE":            s.SetNextFE,
		"set_next_fe":          s.SetNextFE,
		"SetDisplay":           s.SetDisplay,
		"set_display":          s.SetDisplay,
		"StartDesktop":         s.StartDesktop,
		"start_desktop":        s.StartDesktop,
		"Quit":                 s.Quit,
		"quit":                 s.Quit,
		"ShutdownSuccessful":   s.ShutdownSuccessful,
		"shutdown_successfull": s.ShutdownSuccessful,
	}
}
