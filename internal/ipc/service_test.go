package ipc

import (
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seahawk1986/yavdr-frontend/internal/config"
	"github.com/seahawk1986/yavdr-frontend/internal/controller"
	"github.com/seahawk1986/yavdr-frontend/internal/frontend"
)

func TestWrapNilError(t *testing.T) {
	assert.Nil(t, wrap(nil))
}

func TestWrapNonNilError(t *testing.T) {
	dberr := wrap(errors.New("boom"))
	require.NotNil(t, dberr)
}

func TestMethodTableIncludesLegacyAliases(t *testing.T) {
	s := &Service{log: hclog.NewNullLogger()}
	table := s.methodTable()

	pairs := map[string]string{
		"start":                "Start",
		"stop":                 "Stop",
		"toggle":               "Toggle",
		"switchto":             "SwitchTo",
		"switchbetween":        "SwitchBetween",
		"set_next":             "SetNext",
		"set_next_fe":          "SetNextFE",
		"set_display":          "SetDisplay",
		"start_desktop":        "StartDesktop",
		"quit":                 "Quit",
		"shutdown_successfull": "ShutdownSuccessful",
	}
	for legacy, current := range pairs {
		_, ok := table[legacy]
		assert.True(t, ok, "missing legacy alias %q", legacy)
		_, ok = table[current]
		assert.True(t, ok, "missing current method %q", current)
	}
}

func testService(t *testing.T) *Service {
	t.Helper()
	cfg := &config.Config{
		Main: config.Main{PrimaryFrontend: "primary", SecondaryFrontend: "secondary"},
		Applications: map[string]config.FrontendConfig{
			"primary":   {Name: "dummy"},
			"secondary": {Name: "dummy"},
		},
	}
	factory := frontend.NewFactory(hclog.NewNullLogger(), nil, nil)
	ctrl := controller.New(hclog.NewNullLogger(), cfg, factory, nil, nil, nil, nil)
	require.NoError(t, ctrl.Init(context.Background()))
	return New(hclog.NewNullLogger(), ctrl)
}

func TestStartDesktopAlwaysReturnsOkEvenOnFailure(t *testing.T) {
	s := testService(t)
	result, dberr := s.StartDesktop("no-such-frontend")
	assert.Nil(t, dberr)
	assert.Equal(t, "Ok", result)
}

func TestStartDesktopDelegatesToSwitchTo(t *testing.T) {
	s := testService(t)
	result, dberr := s.StartDesktop("secondary")
	assert.Nil(t, dberr)
	assert.Equal(t, "Ok", result)
	assert.Equal(t, "secondary", s.ctrl.CurrentName())
}
