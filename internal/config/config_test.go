package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBackgroundFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	return p
}

func sampleConfigYAML(t *testing.T, dir string) string {
	t.Helper()
	bg := writeBackgroundFile(t, dir, "bg.png")
	return `
main:
  primary_frontend: vdr
  secondary_frontend: dummy
backgrounds:
  normal: {path: ` + bg + `, fill: true}
  detached: {path: ` + bg + `, fill: false}
  prepare_shutdown: {path: ` + bg + `, fill: false}
  shutdown: {path: ` + bg + `, fill: false}
applications: {}
vdr:
  id: 0
  dbus2vdr_bus: SessionBus
  attach_on_startup: auto
  wakeup_ts_file: /tmp/wakeup
  frontends: {}
lirc:
  socket: /run/lirc/lircd
  keymap:
    KEY_OK: {action: toggle, args: []}
`
}

func TestLoadValidConfig(t *testing.T) {
	dir := t.TempDir()
	yamlText := sampleConfigYAML(t, dir)
	p := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(p, []byte(yamlText), 0o644))

	cfg, err := Load([]string{p}, map[string]struct{}{"toggle": {}})
	require.NoError(t, err)
	assert.Equal(t, "vdr", cfg.Main.PrimaryFrontend)
	assert.Equal(t, "dummy", cfg.Main.SecondaryFrontend)
	assert.Equal(t, SessionBus, cfg.Main.SystemdBus)
	assert.Equal(t, ShutdownVDR, cfg.Main.ShutdownManager)
}

func TestLoadFallsThroughSearchPath(t *testing.T) {
	dir := t.TempDir()
	yamlText := sampleConfigYAML(t, dir)
	p := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(p, []byte(yamlText), 0o644))

	missing := filepath.Join(dir, "does-not-exist.yml")
	cfg, err := Load([]string{missing, p}, nil)
	require.NoError(t, err)
	assert.Equal(t, "vdr", cfg.Main.PrimaryFrontend)
}

func TestLoadMissingIsFatal(t *testing.T) {
	dir := t.TempDir()
	_, err := Load([]string{filepath.Join(dir, "nope.yml")}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadRejectsUnknownKeymapAction(t *testing.T) {
	dir := t.TempDir()
	yamlText := sampleConfigYAML(t, dir)
	p := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(p, []byte(yamlText), 0o644))

	_, err := Load([]string{p}, map[string]struct{}{"quit": {}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFrontendConfigVariant(t *testing.T) {
	cases := []struct {
		name    string
		cfg     FrontendConfig
		want    Variant
		wantErr bool
	}{
		{"named", FrontendConfig{Name: "vdr"}, VariantNamed, false},
		{"unit", FrontendConfig{UnitName: "kodi.service"}, VariantUnit, false},
		{"app", FrontendConfig{AppName: "kodi"}, VariantDesktopApp, false},
		{"module", FrontendConfig{Module: "pkg", ClassName: "Cls"}, VariantModule, false},
		{"empty", FrontendConfig{}, 0, true},
		{"ambiguous", FrontendConfig{Name: "a", UnitName: "b"}, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.cfg.Variant()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDefaultPaths(t *testing.T) {
	paths := DefaultPaths("/custom/config.yml")
	require.NotEmpty(t, paths)
	assert.Equal(t, "/custom/config.yml", paths[0])
	assert.Equal(t, "/etc/yavdr-frontend/config.yml", paths[len(paths)-1])
}
