// Package tools collects small OS-facing helpers shared across the
// controller, frontend, and shutdown packages: DISPLAY string parsing,
// background-image helpers, and the pulseaudio suspend/resume wrappers.
package tools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// DisplayRE matches an X11 DISPLAY string: optional host, mandatory
// ":<display>", optional ".<screen>".
var DisplayRE = regexp.MustCompile(`^(?P<host>\w+)?(?P<display>:\d+)(?P<screen>\.\d+)?$`)

// Second2Screen returns the DISPLAY string for the "other" screen implied
// by display: screen .0 or no screen maps to .1, and any other screen
// maps to .0.
func Second2Screen(display string) (string, error) {
	m := DisplayRE.FindStringSubmatch(display)
	if m == nil {
		return "", fmt.Errorf("invalid DISPLAY string %q", display)
	}
	groups := map[string]string{}
	for i, name := range DisplayRE.SubexpNames() {
		if name != "" {
			groups[name] = m[i]
		}
	}
	screen := groups["screen"]
	next := ".1"
	if screen != "" && screen != ".0" {
		next = ".0"
	}
	return groups["host"] + groups["display"] + next, nil
}

// FehSetBackground shells out to feh to fill or center the given image on
// the configured DISPLAY. Failures are logged and non-fatal per spec.md §7.
func FehSetBackground(ctx context.Context, log hclog.Logger, path string, fill bool, env []string) {
	mode := "--bg-center"
	if fill {
		mode = "--bg-fill"
	}
	cmd := exec.CommandContext(ctx, "feh", mode, path)
	cmd.Env = env
	if err := cmd.Run(); err != nil {
		log.Info("could not set background", "path", path, "error", err)
	}
}

// PASuspend calls the site-local yavdr-pasuspend helper to suspend
// pulseaudio output ahead of starting a frontend that wants exclusive
// access to the sound device. Failures are advisory only.
func PASuspend(ctx context.Context, log hclog.Logger) bool {
	if err := exec.CommandContext(ctx, "yavdr-pasuspend", "-s").Run(); err != nil {
		log.Warn("could not suspend pulseaudio output", "error", err)
		return false
	}
	log.Debug("successfully called yavdr-pasuspend -s")
	time.Sleep(100 * time.Millisecond)
	return true
}

// PAResume waits for VDR to release its sound devices (best-effort) and
// then resumes pulseaudio output via yavdr-pasuspend -r.
func PAResume(ctx context.Context, log hclog.Logger) bool {
	const timeout = 3 * time.Second
	if err := exec.CommandContext(ctx, "wait-for-vdr-snd-release").Run(); err != nil {
		log.Debug("wait-for-vdr-snd-release failed, sleeping instead", "error", err, "timeout", timeout)
		time.Sleep(timeout)
	}
	if err := exec.CommandContext(ctx, "yavdr-pasuspend", "-r").Run(); err != nil {
		log.Warn("could not resume pulseaudio output", "error", err)
		return false
	}
	log.Debug("successfully called yavdr-pasuspend -r")
	time.Sleep(100 * time.Millisecond)
	return true
}

// SystemdEscapeApp computes the templated unit name app@<escaped-app>.service
// by invoking systemd-escape. If the binary is unavailable it falls back to
// app@<appName>.service with appName inserted unescaped.
func SystemdEscapeApp(ctx context.Context, appName string) string {
	out, err := exec.CommandContext(ctx, "systemd-escape", "--template=app@.service", appName).Output()
	if err != nil {
		return fmt.Sprintf("app@%s.service", appName)
	}
	return strings.TrimSpace(string(out))
}

// SecondDisplayFilePath returns $HOME/.second_display.
func SecondDisplayFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home + "/.second_display", nil
}
