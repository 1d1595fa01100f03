package frontend

import (
	"context"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seahawk1986/yavdr-frontend/internal/config"
)

func testLogger() hclog.Logger {
	return hclog.NewNullLogger()
}

func TestFactoryBuildCachesIdenticalConfig(t *testing.T) {
	f := NewFactory(testLogger(), nil, nil)
	cfg := config.FrontendConfig{Name: "dummy"}

	a, err := f.Build(context.Background(), cfg)
	require.NoError(t, err)
	b, err := f.Build(context.Background(), cfg)
	require.NoError(t, err)

	assert.Same(t, a, b)
}

func TestFactoryBuildRejectsEmptyVariant(t *testing.T) {
	f := NewFactory(testLogger(), nil, nil)
	_, err := f.Build(context.Background(), config.FrontendConfig{})
	require.Error(t, err)
}

func TestFactoryBuildUnitWithoutSystemdFails(t *testing.T) {
	f := NewFactory(testLogger(), nil, nil)
	_, err := f.Build(context.Background(), config.FrontendConfig{UnitName: "kodi.service"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownFrontend)
}

func TestFactoryModuleBuilder(t *testing.T) {
	called := false
	builders := map[string]ModuleBuilder{
		"vdr": func(ctx context.Context, cfg config.FrontendConfig) (Frontend, error) {
			called = true
			return NewDummy("vdr"), nil
		},
	}
	f := NewFactory(testLogger(), nil, builders)
	fe, err := f.Build(context.Background(), config.FrontendConfig{Module: "vdr", ClassName: "Controller"})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "vdr", fe.Name())
}

func TestFactoryModuleBuilderUnknown(t *testing.T) {
	f := NewFactory(testLogger(), nil, nil)
	_, err := f.Build(context.Background(), config.FrontendConfig{Module: "nope", ClassName: "X"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownFrontend)
}

func TestResolveDummy(t *testing.T) {
	f := NewFactory(testLogger(), nil, nil)
	fe, err := f.Resolve(context.Background(), "dummy", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, KindDummy, fe.Kind())
}

func TestResolveApplicationsEntry(t *testing.T) {
	f := NewFactory(testLogger(), nil, nil)
	apps := map[string]config.FrontendConfig{
		"kodi": {Name: "dummy"},
	}
	fe, err := f.Resolve(context.Background(), "kodi", apps, nil)
	require.NoError(t, err)
	assert.Equal(t, KindDummy, fe.Kind())
}

func TestResolveUnknown(t *testing.T) {
	f := NewFactory(testLogger(), nil, nil)
	_, err := f.Resolve(context.Background(), "nonexistent", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownFrontend)
}

func TestDummyLifecycle(t *testing.T) {
	d := NewDummy("dummy")
	running, err := d.IsRunning(context.Background())
	require.NoError(t, err)
	assert.False(t, running)

	require.NoError(t, d.Start(context.Background()))
	running, err = d.IsRunning(context.Background())
	require.NoError(t, err)
	assert.True(t, running)

	require.NoError(t, d.Stop(context.Background()))
	running, err = d.IsRunning(context.Background())
	require.NoError(t, err)
	assert.False(t, running)
}
