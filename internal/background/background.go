// Package background paints the desktop wallpaper associated with each
// of the controller's four semantic background states, wrapping
// tools.FehSetBackground with the configured per-state path/fill
// options (spec.md §4.1, config.Backgrounds).
package background

import (
	"context"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/seahawk1986/yavdr-frontend/internal/config"
	"github.com/seahawk1986/yavdr-frontend/internal/tools"
)

// Painter sets the desktop wallpaper for a given background state.
type Painter interface {
	Paint(ctx context.Context, kind config.BackgroundKind)
}

// Feh is a Painter backed by the feh image viewer, matching
// feh_set_background in the source.
type Feh struct {
	log     hclog.Logger
	configs config.Backgrounds
	env     []string
}

// NewFeh constructs a Feh painter. env is the process environment (with
// DISPLAY already set to the target screen) passed through to feh.
func NewFeh(log hclog.Logger, configs config.Backgrounds, env []string) *Feh {
	if env == nil {
		env = os.Environ()
	}
	return &Feh{log: log.Named("background"), configs: configs, env: env}
}

// Paint shows the wallpaper configured for kind, if any; unknown/unset
// kinds are logged and ignored rather than treated as fatal, since a
// missing background must never block a frontend switch.
func (f *Feh) Paint(ctx context.Context, kind config.BackgroundKind) {
	bg, ok := f.configs[kind]
	if !ok {
		f.log.Debug("no background configured", "kind", kind)
		return
	}
	tools.FehSetBackground(ctx, f.log, bg.Path, bg.Fill, f.env)
}
