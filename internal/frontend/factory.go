package frontend

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/seahawk1986/yavdr-frontend/internal/config"
	"github.com/seahawk1986/yavdr-frontend/internal/systemd"
	"github.com/seahawk1986/yavdr-frontend/internal/tools"
)

// ModuleBuilder constructs a Frontend for a config.VariantModule entry.
// Go has no runtime module-import equivalent to the Python source's
// importlib-based module/class_name loading, so module frontends are
// resolved through a static registry of builders keyed by module name
// instead (wired up by cmd/yavdr-frontend at startup: "vdr" maps to the
// single vdr.Controller built there with vdr.New).
type ModuleBuilder func(ctx context.Context, cfg config.FrontendConfig) (Frontend, error)

// cacheKey captures the value-equality identity of a FrontendConfig so
// that two identical config entries resolve to the same *Frontend
// instance (spec.md §4.2, §9 "Factory cache").
type cacheKey struct {
	name, unitName, appName, module, className string
	bus                                         config.DBusKind
	usePASuspend                                bool
}

func keyOf(cfg config.FrontendConfig) cacheKey {
	return cacheKey{
		name:         cfg.Name,
		unitName:     cfg.UnitName,
		appName:      cfg.AppName,
		module:       cfg.Module,
		className:    cfg.ClassName,
		bus:          cfg.Bus,
		usePASuspend: cfg.UsePASuspend,
	}
}

// Factory resolves config.FrontendConfig values into cached Frontend
// instances. There is exactly one Factory per process, owned by the
// Controller.
type Factory struct {
	log      hclog.Logger
	systemd  *systemd.Client
	builders map[string]ModuleBuilder

	mu    sync.Mutex
	cache map[cacheKey]Frontend
}

// NewFactory constructs a Factory. builders may be nil if no module
// frontends are configured.
func NewFactory(log hclog.Logger, client *systemd.Client, builders map[string]ModuleBuilder) *Factory {
	if builders == nil {
		builders = map[string]ModuleBuilder{}
	}
	return &Factory{
		log:      log.Named("frontend-factory"),
		systemd:  client,
		builders: builders,
		cache:    make(map[cacheKey]Frontend),
	}
}

// Build resolves cfg to a Frontend, reusing a cached instance for an
// identical configuration.
func (f *Factory) Build(ctx context.Context, cfg config.FrontendConfig) (Frontend, error) {
	key := keyOf(cfg)

	f.mu.Lock()
	defer f.mu.Unlock()
	if fe, ok := f.cache[key]; ok {
		return fe, nil
	}

	fe, err := f.build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	f.cache[key] = fe
	return fe, nil
}

func (f *Factory) build(ctx context.Context, cfg config.FrontendConfig) (Frontend, error) {
	variant, err := cfg.Variant()
	if err != nil {
		return nil, err
	}
	switch variant {
	case config.VariantNamed:
		if cfg.Name == "dummy" {
			return NewDummy("dummy"), nil
		}
		return nil, fmt.Errorf("%w: %q (named references are resolved by the caller, not the factory)", ErrUnknownFrontend, cfg.Name)

	case config.VariantUnit:
		if f.systemd == nil {
			return nil, fmt.Errorf("%w: unit frontend %q requires a process-manager connection", ErrUnknownFrontend, cfg.UnitName)
		}
		return NewUnitTracker(f.log, f.systemd, cfg.UnitName, cfg.UsePASuspend), nil

	case config.VariantDesktopApp:
		if f.systemd == nil {
			return nil, fmt.Errorf("%w: app frontend %q requires a process-manager connection", ErrUnknownFrontend, cfg.AppName)
		}
		unitName := tools.SystemdEscapeApp(ctx, cfg.AppName)
		return NewUnitTracker(f.log, f.systemd, unitName, cfg.UsePASuspend), nil

	case config.VariantModule:
		builder, ok := f.builders[cfg.Module]
		if !ok {
			return nil, fmt.Errorf("%w: module %q has no registered builder", ErrUnknownFrontend, cfg.Module)
		}
		return builder(ctx, cfg)

	default:
		return nil, fmt.Errorf("%w: unrecognised frontend config", ErrUnknownFrontend)
	}
}

// Resolve looks a named application up in apps and, if present, builds it;
// this is how Controller.SwitchTo/SetNext turn a bare name from
// main.primary_frontend/secondary_frontend or applications into a
// Frontend, mirroring frontend_manager.py's system_frontend_factory
// resolution order:
//  1. the literal name "dummy"
//  2. an entry in the applications map
//  3. an entry in the VDR frontends map (passed in as vdrFrontends)
//  4. a bare unit name ("name.service") that the PM already knows about
//  5. otherwise ErrUnknownFrontend
func (f *Factory) Resolve(ctx context.Context, name string, apps, vdrFrontends map[string]config.FrontendConfig) (Frontend, error) {
	if name == "dummy" {
		return f.Build(ctx, config.FrontendConfig{Name: "dummy"})
	}
	if cfg, ok := apps[name]; ok {
		return f.Build(ctx, cfg)
	}
	if cfg, ok := vdrFrontends[name]; ok {
		return f.Build(ctx, cfg)
	}
	if f.systemd != nil {
		if exists, err := f.systemd.UnitFileExists(ctx, name); err == nil && exists {
			return f.Build(ctx, config.FrontendConfig{UnitName: name})
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFrontend, name)
}
