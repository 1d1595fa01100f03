package controller

import (
	"context"
	"fmt"
	"time"
)

const defaultPrepareShutdownDelay = time.Minute

func (c *Controller) buildKeymap() map[string]ActionFunc {
	return map[string]ActionFunc{
		"start": func(ctx context.Context, c *Controller, args []string) error {
			return c.Start(ctx)
		},
		"stop": func(ctx context.Context, c *Controller, args []string) error {
			return stopResult(c.Stop(ctx, true))
		},
		"toggle": func(ctx context.Context, c *Controller, args []string) error {
			return c.Toggle(ctx)
		},
		"toggle_noninteractive": func(ctx context.Context, c *Controller, args []string) error {
			return c.ToggleNoninteractive(ctx)
		},
		"switch": func(ctx context.Context, c *Controller, args []string) error {
			return c.Switch(ctx)
		},
		"switchto": func(ctx context.Context, c *Controller, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("switchto: expected 1 argument, got %d", len(args))
			}
			return c.SwitchTo(ctx, args[0])
		},
		"switchbetween": func(ctx context.Context, c *Controller, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("switchbetween: expected 2 arguments, got %d", len(args))
			}
			return c.SwitchBetween(ctx, args[0], args[1])
		},
		"set_next": func(ctx context.Context, c *Controller, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("set_next: expected 1 argument, got %d", len(args))
			}
			return c.SetNext(ctx, args[0])
		},
		"set_next_fe": func(ctx context.Context, c *Controller, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("set_next_fe: expected 1 argument, got %d", len(args))
			}
			c.SetNextFE(ctx, args[0])
			return nil
		},
		"set_display": func(ctx context.Context, c *Controller, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("set_display: expected 1 argument, got %d", len(args))
			}
			return c.SetDisplay(ctx, args[0])
		},
		"quit": func(ctx context.Context, c *Controller, args []string) error {
			return c.Quit(ctx)
		},
		"poweroff": func(ctx context.Context, c *Controller, args []string) error {
			return c.Poweroff(ctx)
		},
		"yavdr_compat_poweroff": func(ctx context.Context, c *Controller, args []string) error {
			return c.YavdrCompatPoweroff(ctx)
		},
		"prepare_shutdown": func(ctx context.Context, c *Controller, args []string) error {
			return c.PrepareShutdown(ctx, defaultPrepareShutdownDelay)
		},
	}
}
