//go:build darwin

// Display detection for macOS via system_profiler.
package provider

import (
	"context"
	"os/exec"
	"strings"

	"github.com/curator-app/agent/internal/models"
)

// detectDisplays parses `system_profiler SPDisplaysDataType` output.
// Each attached display appears as an indented block containing a
// "Resolution:" line; the block header is the display name.
func detectDisplays(ctx context.Context) ([]models.DisplayStatus, error) {
	out, err := exec.CommandContext(ctx, "system_profiler", "SPDisplaysDataType").Output()
	if err != nil {
		return nil, err
	}
	return parseSystemProfilerDisplays(string(out)), nil
}

func parseSystemProfilerDisplays(out string) []models.DisplayStatus {
	var displays []models.DisplayStatus
	var currentName string

	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// Display block headers end with ":" and contain no value.
		if strings.HasSuffix(trimmed, ":") && !strings.Contains(trimmed, ": ") {
			currentName = strings.TrimSuffix(trimmed, ":")
			continue
		}

		if strings.HasPrefix(trimmed, "Resolution:") {
			displays = append(displays, models.DisplayStatus{
				Name:       currentName,
				Resolution: strings.TrimSpace(strings.TrimPrefix(trimmed, "Resolution:")),
				Online:     true,
			})
		}
	}
	return displays
}
