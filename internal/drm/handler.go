// Package drm handles DRM connector hot-plug events: reading the
// connector status out of sysfs, polling it for changes, and driving
// xrandr to enable or disable the output, per spec.md §4.7.
package drm

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Status is the textual content of a DRM connector's status sysfs
// attribute.
type Status string

const (
	Connected    Status = "connected"
	Disconnected Status = "disconnected"
	Unknown      Status = "unknown"
)

// Handler polls and reacts to DRM connector status changes.
type Handler struct {
	log          hclog.Logger
	pollInterval time.Duration
}

// NewHandler constructs a Handler.
func NewHandler(log hclog.Logger, pollInterval time.Duration) *Handler {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Handler{log: log.Named("drm"), pollInterval: pollInterval}
}

// Status reads the current status of the given connector, e.g. "HDMI-A-1",
// by globbing /sys/class/drm/card*-<connector>/status.
func (h *Handler) Status(connector string) (Status, error) {
	pattern := fmt.Sprintf("/sys/class/drm/card*-%s/status", connector)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return Unknown, fmt.Errorf("globbing drm status for %s: %w", connector, err)
	}
	if len(matches) == 0 {
		return Unknown, fmt.Errorf("no drm connector found for %s", connector)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		return Unknown, fmt.Errorf("reading drm status %s: %w", matches[0], err)
	}
	switch strings.TrimSpace(string(data)) {
	case string(Connected):
		return Connected, nil
	case string(Disconnected):
		return Disconnected, nil
	default:
		return Unknown, nil
	}
}

// HandleHotplug reacts to a udev-reported hot-plug event for connector
// by enabling or disabling it with xrandr according to its current
// status.
func (h *Handler) HandleHotplug(ctx context.Context, connector string) error {
	status, err := h.Status(connector)
	if err != nil {
		return err
	}
	switch status {
	case Connected:
		h.log.Info("connector plugged in, enabling", "connector", connector)
		return exec.CommandContext(ctx, "xrandr", "--output", connector, "--auto").Run()
	case Disconnected:
		h.log.Info("connector unplugged, disabling", "connector", connector)
		return exec.CommandContext(ctx, "xrandr", "--output", connector, "--off").Run()
	default:
		h.log.Debug("connector status unknown, ignoring", "connector", connector)
		return nil
	}
}

// Watch polls connector's status every pollInterval and invokes onChange
// whenever it differs from the previously observed value, until ctx is
// cancelled.
func (h *Handler) Watch(ctx context.Context, connector string, onChange func(Status)) {
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	last := Unknown
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status, err := h.Status(connector)
			if err != nil {
				h.log.Debug("polling drm status failed", "connector", connector, "error", err)
				continue
			}
			if status != last {
				last = status
				onChange(status)
			}
		}
	}
}
