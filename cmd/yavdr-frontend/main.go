// Command yavdr-frontend is the session supervisor daemon: it loads
// configuration, attaches to the process manager, VDR, and remote
// control, and runs the controller state machine until asked to quit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/seahawk1986/yavdr-frontend/internal/background"
	"github.com/seahawk1986/yavdr-frontend/internal/config"
	"github.com/seahawk1986/yavdr-frontend/internal/controller"
	"github.com/seahawk1986/yavdr-frontend/internal/frontend"
	"github.com/seahawk1986/yavdr-frontend/internal/ipc"
	"github.com/seahawk1986/yavdr-frontend/internal/lirc"
	"github.com/seahawk1986/yavdr-frontend/internal/shutdown"
	"github.com/seahawk1986/yavdr-frontend/internal/systemd"
	"github.com/seahawk1986/yavdr-frontend/internal/vdr"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "path to config.yml (overrides the default search path)")
		logLevel   = flag.String("loglevel", "info", "log level: trace, debug, info, warn, error")
	)
	flag.Parse()

	log := hclog.New(&hclog.LoggerOptions{
		Name:  "yavdr-frontend",
		Level: hclog.LevelFromString(*logLevel),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	sd, err := systemd.New(ctx, log, cfg.Main.SystemdBus == config.SystemBus)
	if err != nil {
		return fmt.Errorf("connecting to process manager: %w", err)
	}
	defer sd.Close()

	vdrCtrl := vdr.New(log, cfg.VDR, frontend.NewUnitTracker(log, sd, cfg.VDR.VDRSystemdUnit, false))

	builders := map[string]frontend.ModuleBuilder{
		"vdr": func(ctx context.Context, fcfg config.FrontendConfig) (frontend.Frontend, error) {
			return vdrCtrl, nil
		},
	}
	factory := frontend.NewFactory(log, sd, builders)
	vdrCtrl.SetFactory(factory)

	if err := vdrCtrl.Init(ctx); err != nil {
		return fmt.Errorf("initializing vdr subcontroller: %w", err)
	}
	defer vdrCtrl.Close()

	painter := background.NewFeh(log, cfg.Backgrounds, nil)

	queue := shutdown.NewQueue(log)
	queue.Start(ctx)
	pipeline := shutdown.NewPipeline(log, vdrCtrl, queue)

	ctrl := controller.New(log, cfg, factory, sd, queue, pipeline, painter)
	vdrCtrl.SetParent(ctrl)
	if err := vdrCtrl.Init(ctx); err != nil {
		return fmt.Errorf("initializing vdr subcontroller: %w", err)
	}
	defer vdrCtrl.Close()
	if err := ctrl.Init(ctx); err != nil {
		return fmt.Errorf("initializing controller: %w", err)
	}

	svc := ipc.New(log, ctrl)
	if err := svc.Init(ctx, cfg.Main.InterfaceBus == config.SystemBus); err != nil {
		return fmt.Errorf("exporting public interface: %w", err)
	}
	defer svc.Close()

	lircClient := lirc.NewClient(log, cfg.Lirc.Socket, durationSeconds(cfg.Lirc.MinDelay), cfg.Lirc.IgnoreKeyCoffee, func(keyName string) {
		if err := ctrl.OnKeypress(ctx, keyName); err != nil {
			log.Warn("keypress handling failed", "key", keyName, "error", err)
		}
	})
	go lircClient.Run(ctx)

	if err := ctrl.Start(ctx); err != nil {
		return fmt.Errorf("starting primary frontend: %w", err)
	}

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return ctrl.Quit(shutdownCtx)
}

func loadConfig(cliPath string) (*config.Config, error) {
	// A provisional controller is built only to harvest its keymap
	// action names, so config validation can reject unknown lirc
	// actions at load time rather than at keypress time (spec.md §9).
	knownActions := controller.New(hclog.NewNullLogger(), &config.Config{}, nil, nil, nil, nil, nil).KnownActions()
	return config.Load(config.DefaultPaths(cliPath), knownActions)
}

func durationSeconds(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
