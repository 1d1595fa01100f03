package ipc

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

func wrap(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	return dbus.MakeFailedError(err)
}

func (s *Service) Start() *dbus.Error {
	return wrap(s.ctrl.Start(context.Background()))
}

func (s *Service) Stop() *dbus.Error {
	ok, reason := s.ctrl.Stop(context.Background(), true)
	if ok {
		return nil
	}
	return dbus.MakeFailedError(fmt.Errorf("%s", reason))
}

func (s *Service) Toggle() *dbus.Error {
	return wrap(s.ctrl.Toggle(context.Background()))
}

func (s *Service) ToggleNoninteractive() *dbus.Error {
	return wrap(s.ctrl.ToggleNoninteractive(context.Background()))
}

func (s *Service) Switch() *dbus.Error {
	return wrap(s.ctrl.Switch(context.Background()))
}

func (s *Service) SwitchTo(name string) *dbus.Error {
	return wrap(s.ctrl.SwitchTo(context.Background(), name))
}

func (s *Service) SwitchBetween(a, b string) *dbus.Error {
	return wrap(s.ctrl.SwitchBetween(context.Background(), a, b))
}

func (s *Service) SetNext(name string) *dbus.Error {
	return wrap(s.ctrl.SetNext(context.Background(), name))
}

func (s *Service) SetNextFE(name string) (bool, *dbus.Error) {
	return s.ctrl.SetNextFE(context.Background(), name), nil
}

func (s *Service) SetDisplay(display string) *dbus.Error {
	return wrap(s.ctrl.SetDisplay(context.Background(), display))
}

// StartDesktop switches directly to the named application, like
// SwitchTo, but always reports success: yavdr_frontend_interface.py's
// start_desktop method returns "Ok" unconditionally regardless of
// whether the switch actually succeeded, a documented quirk preserved
// here rather than silently fixed (Open Question decision 1).
func (s *Service) StartDesktop(appName string) (string, *dbus.Error) {
	if err := s.ctrl.SwitchTo(context.Background(), appName); err != nil {
		s.log.Warn("start_desktop: switch failed, reporting Ok anyway", "app", appName, "error", err)
	}
	return "Ok", nil
}

func (s *Service) Quit() *dbus.Error {
	return wrap(s.ctrl.Quit(context.Background()))
}

func (s *Service) ShutdownSuccessful() *dbus.Error {
	return wrap(s.ctrl.OnVDRShutdownSuccessful(context.Background()))
}
