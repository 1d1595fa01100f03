// Package config loads and validates the yavdr-frontend YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v4"
)

// ErrInvalidConfig is returned (wrapped) for any schema violation found
// during Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// DBusKind selects which session/system message bus a component talks on.
type DBusKind string

const (
	SessionBus DBusKind = "SessionBus"
	SystemBus  DBusKind = "SystemBus"
)

func (k DBusKind) validate() error {
	switch k {
	case SessionBus, SystemBus, "":
		return nil
	default:
		return fmt.Errorf("%w: unknown bus kind %q", ErrInvalidConfig, k)
	}
}

// StartupKind controls whether the VDR frontend attaches automatically,
// always, or never on startup.
type StartupKind string

const (
	StartupAuto   StartupKind = "auto"
	StartupAlways StartupKind = "always"
	StartupNever  StartupKind = "never"
)

// ShutdownKind selects the shutdown handler implementation. Only "vdr" is
// currently supported.
type ShutdownKind string

const ShutdownVDR ShutdownKind = "vdr"

// VDRStatusSource selects how VDR readiness is determined.
type VDRStatusSource string

const (
	VDRStatusDbus2VDR VDRStatusSource = "dbus2vdr"
	VDRStatusSystemd   VDRStatusSource = "systemd"
)

// BackgroundKind names one of the four semantic desktop-background states.
type BackgroundKind string

const (
	BackgroundNormal           BackgroundKind = "normal"
	BackgroundDetached         BackgroundKind = "detached"
	BackgroundPrepareShutdown  BackgroundKind = "prepare_shutdown"
	BackgroundShutdown         BackgroundKind = "shutdown"
)

// Main holds top-level daemon configuration.
type Main struct {
	PrimaryFrontend   string       `yaml:"primary_frontend"`
	SecondaryFrontend string       `yaml:"secondary_frontend"`
	SystemdBus        DBusKind     `yaml:"systemd_bus"`
	InterfaceBus       DBusKind     `yaml:"interface_bus"`
	ShutdownManager   ShutdownKind `yaml:"shutdown_manager"`
}

func (m *Main) setDefaults() {
	if m.SystemdBus == "" {
		m.SystemdBus = SessionBus
	}
	if m.InterfaceBus == "" {
		m.InterfaceBus = SystemBus
	}
	if m.ShutdownManager == "" {
		m.ShutdownManager = ShutdownVDR
	}
}

func (m Main) validate() error {
	if m.PrimaryFrontend == "" {
		return fmt.Errorf("%w: main.primary_frontend is required", ErrInvalidConfig)
	}
	if m.SecondaryFrontend == "" {
		return fmt.Errorf("%w: main.secondary_frontend is required", ErrInvalidConfig)
	}
	if err := m.SystemdBus.validate(); err != nil {
		return err
	}
	if err := m.InterfaceBus.validate(); err != nil {
		return err
	}
	if m.ShutdownManager != ShutdownVDR {
		return fmt.Errorf("%w: unsupported shutdown_manager %q", ErrInvalidConfig, m.ShutdownManager)
	}
	return nil
}

// Background describes one wallpaper to show for a given BackgroundKind.
type Background struct {
	Path string `yaml:"path"`
	Fill bool   `yaml:"fill"`
}

func (b Background) validate(kind BackgroundKind) error {
	if b.Path == "" {
		return fmt.Errorf("%w: backgrounds.%s.path is required", ErrInvalidConfig, kind)
	}
	if _, err := os.Stat(b.Path); err != nil {
		return fmt.Errorf("%w: backgrounds.%s.path %q: %v", ErrInvalidConfig, kind, b.Path, err)
	}
	return nil
}

// Backgrounds maps every BackgroundKind to its wallpaper configuration.
type Backgrounds map[BackgroundKind]Background

func (b Backgrounds) validate() error {
	for _, kind := range []BackgroundKind{
		BackgroundNormal, BackgroundDetached, BackgroundPrepareShutdown, BackgroundShutdown,
	} {
		bg, ok := b[kind]
		if !ok {
			return fmt.Errorf("%w: backgrounds.%s is required", ErrInvalidConfig, kind)
		}
		if err := bg.validate(kind); err != nil {
			return err
		}
	}
	return nil
}

// FrontendConfig is the tagged-variant frontend reference used in
// main.primary_frontend/secondary_frontend, applications, and vdr.frontends.
//
// Exactly one of Name, UnitName, AppName, or (Module and ClassName) is set;
// UsePASuspend and Bus apply regardless of variant.
type FrontendConfig struct {
	Name         string   `yaml:"name,omitempty"`
	UnitName     string   `yaml:"unit_name,omitempty"`
	AppName      string   `yaml:"app_name,omitempty"`
	Module       string   `yaml:"module,omitempty"`
	ClassName    string   `yaml:"class_name,omitempty"`
	UsePASuspend bool     `yaml:"use_pasuspend"`
	Bus          DBusKind `yaml:"bus"`
}

// Variant classifies which tag of the union is populated.
type Variant int

const (
	VariantNamed Variant = iota
	VariantUnit
	VariantDesktopApp
	VariantModule
)

// Variant returns which tag of the frontend config union is populated.
func (f FrontendConfig) Variant() (Variant, error) {
	set := 0
	var v Variant
	if f.Name != "" {
		set++
		v = VariantNamed
	}
	if f.UnitName != "" {
		set++
		v = VariantUnit
	}
	if f.AppName != "" {
		set++
		v = VariantDesktopApp
	}
	if f.Module != "" || f.ClassName != "" {
		set++
		v = VariantModule
	}
	switch set {
	case 0:
		return 0, fmt.Errorf("%w: frontend config has no variant set", ErrInvalidConfig)
	case 1:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: frontend config has more than one variant set", ErrInvalidConfig)
	}
}

func (f FrontendConfig) validate() error {
	v, err := f.Variant()
	if err != nil {
		return err
	}
	if v == VariantModule && (f.Module == "" || f.ClassName == "") {
		return fmt.Errorf("%w: module frontend requires both module and class_name", ErrInvalidConfig)
	}
	return f.Bus.validate()
}

// VDR holds configuration for the vdr subcontroller.
type VDR struct {
	ID                  uint32                    `yaml:"id"`
	Dbus2VDRBus         DBusKind                  `yaml:"dbus2vdr_bus"`
	VDRSystemdUnit      string                    `yaml:"vdr_systemd_unit"`
	VDRStatusSource     VDRStatusSource           `yaml:"vdr_status_source"`
	AttachOnStartup     StartupKind               `yaml:"attach_on_startup"`
	WakeupTimestampFile string                    `yaml:"wakeup_ts_file"`
	WakeupDeltaSeconds  float64                   `yaml:"wakeup_delta_seconds"`
	Frontends           map[string]FrontendConfig `yaml:"frontends"`
}

func (v *VDR) setDefaults() {
	if v.Dbus2VDRBus == "" {
		v.Dbus2VDRBus = SessionBus
	}
	if v.VDRStatusSource == "" {
		v.VDRStatusSource = VDRStatusDbus2VDR
	}
	if v.AttachOnStartup == "" {
		v.AttachOnStartup = StartupAuto
	}
	if v.VDRSystemdUnit == "" {
		v.VDRSystemdUnit = "vdr.service"
	}
	if v.WakeupDeltaSeconds == 0 {
		v.WakeupDeltaSeconds = 120
	}
}

func (v VDR) validate() error {
	if err := v.Dbus2VDRBus.validate(); err != nil {
		return err
	}
	switch v.VDRStatusSource {
	case VDRStatusDbus2VDR, VDRStatusSystemd:
	default:
		return fmt.Errorf("%w: unknown vdr.vdr_status_source %q", ErrInvalidConfig, v.VDRStatusSource)
	}
	switch v.AttachOnStartup {
	case StartupAuto, StartupAlways, StartupNever:
	default:
		return fmt.Errorf("%w: unknown vdr.attach_on_startup %q", ErrInvalidConfig, v.AttachOnStartup)
	}
	if v.WakeupTimestampFile == "" {
		return fmt.Errorf("%w: vdr.wakeup_ts_file is required", ErrInvalidConfig)
	}
	for name, fe := range v.Frontends {
		if err := fe.validate(); err != nil {
			return fmt.Errorf("vdr.frontends.%s: %w", name, err)
		}
	}
	return nil
}

// Keymap is one lirc keymap entry: the controller action a key invokes
// and the arguments it is called with.
type Keymap struct {
	Action string   `yaml:"action"`
	Args   []string `yaml:"args"`
}

// Lirc holds remote-control socket and keymap configuration.
type Lirc struct {
	Socket         string            `yaml:"socket"`
	Keymap         map[string]Keymap `yaml:"keymap"`
	MinDelay       float64           `yaml:"min_delay_seconds"`
	LogLevel       string            `yaml:"log_level"`
	IgnoreKeyCoffee bool             `yaml:"ignore_key_coffee"`
}

func (l *Lirc) setDefaults() {
	if l.MinDelay == 0 {
		l.MinDelay = 0.3
	}
	if l.LogLevel == "" {
		l.LogLevel = "INFO"
	}
}

func (l Lirc) validate(knownActions map[string]struct{}) error {
	if l.Socket == "" {
		return fmt.Errorf("%w: lirc.socket is required", ErrInvalidConfig)
	}
	if l.MinDelay < 0 {
		return fmt.Errorf("%w: lirc.min_delay_seconds must be >= 0", ErrInvalidConfig)
	}
	for key, entry := range l.Keymap {
		if knownActions != nil {
			if _, ok := knownActions[entry.Action]; !ok {
				return fmt.Errorf("%w: lirc.keymap.%s references unknown action %q", ErrInvalidConfig, key, entry.Action)
			}
		}
	}
	return nil
}

// Config is the fully parsed, validated configuration tree.
type Config struct {
	Main         Main                      `yaml:"main"`
	Backgrounds  Backgrounds               `yaml:"backgrounds"`
	Applications map[string]FrontendConfig `yaml:"applications"`
	VDR          VDR                       `yaml:"vdr"`
	Lirc         Lirc                      `yaml:"lirc"`
}

func (c *Config) setDefaults() {
	c.Main.setDefaults()
	c.VDR.setDefaults()
	c.Lirc.setDefaults()
}

// Validate checks the configuration against the schema described in
// spec.md §3. knownActions, when non-nil, restricts lirc keymap entries to
// action names the controller actually exposes (resolved at load time per
// spec.md §9, rather than at keypress time).
func (c Config) Validate(knownActions map[string]struct{}) error {
	if err := c.Main.validate(); err != nil {
		return err
	}
	if err := c.Backgrounds.validate(); err != nil {
		return err
	}
	for name, app := range c.Applications {
		if err := app.validate(); err != nil {
			return fmt.Errorf("applications.%s: %w", name, err)
		}
	}
	if err := c.VDR.validate(); err != nil {
		return err
	}
	return c.Lirc.validate(knownActions)
}

// DefaultPaths returns the config file search order described in spec.md
// §6: an explicit CLI-supplied path first, then the user config, then the
// system config.
func DefaultPaths(cliPath string) []string {
	var paths []string
	if cliPath != "" {
		paths = append(paths, cliPath)
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "yavdr-frontend", "config.yml"))
	}
	paths = append(paths, "/etc/yavdr-frontend/config.yml")
	return paths
}

// Load reads the first existing file among paths, parses it as YAML, fills
// in defaults, and validates it. It returns an error wrapping
// ErrInvalidConfig if none of the paths exist or the content is invalid.
func Load(paths []string, knownActions map[string]struct{}) (*Config, error) {
	var lastErr error
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			lastErr = err
			continue
		}
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, p, err)
		}
		cfg.setDefaults()
		if err := cfg.Validate(knownActions); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, lastErr)
	}
	return nil, fmt.Errorf("%w: no configuration file found in %v", ErrInvalidConfig, paths)
}
