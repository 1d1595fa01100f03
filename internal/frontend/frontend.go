// Package frontend defines the polymorphic Frontend abstraction the
// controller switches between, plus the factory that resolves a
// config.FrontendConfig into a concrete implementation.
package frontend

import (
	"context"
	"errors"
)

// ErrUnknownFrontend is returned when a referenced frontend name, app, or
// module cannot be resolved to a concrete Frontend.
var ErrUnknownFrontend = errors.New("unknown frontend")

// ErrUnknownUnit is returned when a unit-backed frontend names a unit that
// is not known to the process manager.
var ErrUnknownUnit = errors.New("unknown systemd unit")

// Kind classifies which variant of Frontend an instance is, for logging;
// the factory cache key is built from the config, not from Kind.
type Kind int

const (
	KindDummy Kind = iota
	KindUnit
	KindModule
)

func (k Kind) String() string {
	switch k {
	case KindDummy:
		return "dummy"
	case KindUnit:
		return "unit"
	case KindModule:
		return "module"
	default:
		return "unknown"
	}
}

// Frontend is anything the controller can start, stop, and poll: the
// no-op Dummy, a plain systemd-unit-backed application, or the VDR
// subcontroller (internal/vdr.Controller), which embeds another Frontend
// as its "inner" application.
type Frontend interface {
	// Name is the configured identifier, used for logging and for the
	// FrontendChanged signal.
	Name() string
	Kind() Kind
	// Start launches the frontend, blocking until it is either running
	// or has definitely failed to start.
	Start(ctx context.Context) error
	// Stop requests the frontend terminate; StopOnShutdown controls
	// whether the controller's PrepareShutdown calls this before a
	// system power-off (Quit stops the frontend regardless).
	Stop(ctx context.Context) error
	IsRunning(ctx context.Context) (bool, error)
	// Reset clears any internal startup/attach state back to its
	// initial value, used by on_vdr_shutdown_successful (spec.md §9).
	Reset()
	StopOnShutdown() bool
}

// StopNotifier is implemented by Frontends that can report their own
// stop back to the owning Controller, whether that stop was requested
// through Stop or detected asynchronously (e.g. the unit disappearing
// out from under the controller). The Controller arms this on every
// frontend it starts so on_stopped (spec.md §4.1) fires exactly once
// per actual transition.
type StopNotifier interface {
	SetOnStopped(fn func(ctx context.Context))
}
