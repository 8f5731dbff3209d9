//go:build linux

// Display detection for Linux via the DRM sysfs tree. Works headless,
// without an X server.
package provider

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/curator-app/agent/internal/models"
)

const drmRoot = "/sys/class/drm"

// detectDisplays walks /sys/class/drm/card*-* connector entries. Each
// connector reports "connected" or "disconnected" in its status file; the
// first mode line is the active resolution.
func detectDisplays(ctx context.Context) ([]models.DisplayStatus, error) {
	entries, err := os.ReadDir(drmRoot)
	if err != nil {
		return nil, err
	}

	var displays []models.DisplayStatus
	for _, entry := range entries {
		name := entry.Name()
		// Connectors look like "card0-HDMI-A-1"; bare "card0" is the device.
		if !strings.HasPrefix(name, "card") || !strings.Contains(name, "-") {
			continue
		}

		statusBytes, err := os.ReadFile(filepath.Join(drmRoot, name, "status"))
		if err != nil {
			continue
		}
		connected := strings.TrimSpace(string(statusBytes)) == "connected"

		resolution := ""
		if modes, err := os.ReadFile(filepath.Join(drmRoot, name, "modes")); err == nil {
			if lines := strings.SplitN(string(modes), "\n", 2); len(lines) > 0 {
				resolution = strings.TrimSpace(lines[0])
			}
		}

		connector := name[strings.Index(name, "-")+1:]
		displays = append(displays, models.DisplayStatus{
			Name:       connector,
			Resolution: resolution,
			Online:     connected,
		})
	}
	return displays, nil
}
