//go:build windows

// Display detection for Windows via a WMI query through PowerShell.
package provider

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/curator-app/agent/internal/models"
)

const displayQuery = `Get-CimInstance -Namespace root\wmi -ClassName WmiMonitorBasicDisplayParams | ForEach-Object { $_.Active }`

// detectDisplays queries WmiMonitorBasicDisplayParams; each line of output
// is the Active flag of one attached monitor.
func detectDisplays(ctx context.Context) ([]models.DisplayStatus, error) {
	out, err := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", displayQuery).Output()
	if err != nil {
		return nil, err
	}

	var displays []models.DisplayStatus
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		displays = append(displays, models.DisplayStatus{
			Name:   fmt.Sprintf("Display %d", len(displays)+1),
			Online: strings.EqualFold(line, "True"),
		})
	}
	return displays, nil
}
