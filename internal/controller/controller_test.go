package controller

import (
	"context"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seahawk1986/yavdr-frontend/internal/config"
	"github.com/seahawk1986/yavdr-frontend/internal/frontend"
)

type fakePainter struct {
	kinds []config.BackgroundKind
}

func (p *fakePainter) Paint(ctx context.Context, kind config.BackgroundKind) {
	p.kinds = append(p.kinds, kind)
}

func testController(t *testing.T) (*Controller, *fakePainter) {
	t.Helper()
	cfg := &config.Config{
		Main: config.Main{PrimaryFrontend: "primary", SecondaryFrontend: "secondary"},
		Applications: map[string]config.FrontendConfig{
			"primary":   {Name: "dummy"},
			"secondary": {Name: "dummy"},
		},
	}
	factory := frontend.NewFactory(hclog.NewNullLogger(), nil, nil)
	painter := &fakePainter{}
	c := New(hclog.NewNullLogger(), cfg, factory, nil, nil, nil, painter)
	require.NoError(t, c.Init(context.Background()))
	return c, painter
}

func TestControllerStartActivatesPrimary(t *testing.T) {
	c, painter := testController(t)
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, "primary", c.CurrentName())
	running, err := c.CurrentFrontend().IsRunning(context.Background())
	require.NoError(t, err)
	assert.True(t, running)
	assert.Contains(t, painter.kinds, config.BackgroundNormal)
}

func TestControllerSwitchTogglesBetweenSlots(t *testing.T) {
	c, _ := testController(t)
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Switch(context.Background()))
	assert.Equal(t, "secondary", c.CurrentName())
	require.NoError(t, c.Switch(context.Background()))
	assert.Equal(t, "primary", c.CurrentName())
}

func TestControllerToggleNoninteractiveSkipsStopBackground(t *testing.T) {
	c, painter := testController(t)
	require.NoError(t, c.Start(context.Background()))
	painter.kinds = nil
	require.NoError(t, c.ToggleNoninteractive(context.Background()))
	// The extern=false stop paints nothing; the state SWITCH left by
	// Start makes on_stopped start the other slot, which paints normal.
	assert.Equal(t, []config.BackgroundKind{config.BackgroundNormal}, painter.kinds)
}

func TestControllerSwitchBetween(t *testing.T) {
	c, _ := testController(t)
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.SwitchBetween(context.Background(), "primary", "secondary"))
	assert.Equal(t, "secondary", c.CurrentName())
	require.NoError(t, c.SwitchBetween(context.Background(), "primary", "secondary"))
	assert.Equal(t, "primary", c.CurrentName())
}

func TestControllerStopClearsCurrent(t *testing.T) {
	c, _ := testController(t)
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, stopResult(c.Stop(context.Background(), true)))
	assert.Equal(t, "", c.CurrentName())
	assert.Equal(t, StateStop, c.State())
}

func TestControllerSetNextFEBestEffort(t *testing.T) {
	c, _ := testController(t)
	ok := c.SetNextFE(context.Background(), "does-not-exist")
	assert.False(t, ok)

	ok = c.SetNextFE(context.Background(), "primary")
	assert.True(t, ok)
}

func TestControllerSetDisplayRejectsInvalid(t *testing.T) {
	c, _ := testController(t)
	err := c.SetDisplay(context.Background(), "not-a-display")
	assert.Error(t, err)
}

func TestControllerSetDisplayAcceptsValidWithNoSystemd(t *testing.T) {
	c, _ := testController(t)
	err := c.SetDisplay(context.Background(), ":0")
	assert.NoError(t, err)
}

func TestControllerSwitchOnStoppedSkippedWhenStopped(t *testing.T) {
	c, _ := testController(t)
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, stopResult(c.Stop(context.Background(), true)))
	require.NoError(t, c.SwitchOnStopped(context.Background()))
	assert.Equal(t, "", c.CurrentName())
}

func TestControllerDispatchUnknownAction(t *testing.T) {
	c, _ := testController(t)
	err := c.Dispatch(context.Background(), "nonexistent-action", nil)
	assert.Error(t, err)
}

func TestControllerDispatchSwitchTo(t *testing.T) {
	c, _ := testController(t)
	require.NoError(t, c.Start(context.Background()))
	err := c.Dispatch(context.Background(), "switchto", []string{"secondary"})
	require.NoError(t, err)
	assert.Equal(t, "secondary", c.CurrentName())
}

func TestControllerKnownActionsIncludesCoreVerbs(t *testing.T) {
	c, _ := testController(t)
	known := c.KnownActions()
	for _, action := range []string{"toggle", "switchto", "switchbetween", "set_next", "set_next_fe", "set_display", "quit", "poweroff"} {
		_, ok := known[action]
		assert.True(t, ok, "expected action %q to be known", action)
	}
}

func TestControllerOnVDRShutdownSuccessfulResetsVDRSlot(t *testing.T) {
	c, _ := testController(t)
	c.primaryName = "vdr"
	require.NoError(t, c.Start(context.Background()))
	running, err := c.CurrentFrontend().IsRunning(context.Background())
	require.NoError(t, err)
	assert.True(t, running)

	require.NoError(t, c.OnVDRShutdownSuccessful(context.Background()))
	running, err = c.primary.IsRunning(context.Background())
	require.NoError(t, err)
	assert.False(t, running)
}
