package monitor

import (
	"fmt"

	"github.com/curator-app/agent/internal/models"
)

// EvaluateAlerts compares a snapshot against thresholds and returns the
// alerts it triggers. Pure function: no state, no side effects. Metrics
// the provider could not determine are skipped, never treated as zero.
//
// CPU, memory, and temperature violations are warnings. Disk violations
// are critical: disk exhaustion does not self-correct the way CPU or
// memory pressure does. A required application that is not running is
// critical.
func EvaluateAlerts(s *models.Snapshot, t models.AlertThresholds) []models.Alert {
	if s == nil {
		return nil
	}

	var alerts []models.Alert

	if sys := s.System; sys != nil {
		if sys.CPU != nil && sys.CPU.Usage > t.CPUUsage {
			alerts = append(alerts, models.Alert{
				Type:      models.AlertCPUHigh,
				Level:     models.LevelWarning,
				Message:   fmt.Sprintf("CPU usage %.1f%% exceeds threshold %.1f%%", sys.CPU.Usage, t.CPUUsage),
				Value:     sys.CPU.Usage,
				Threshold: t.CPUUsage,
			})
		}
		if sys.Memory != nil && sys.Memory.Usage > t.MemoryUsage {
			alerts = append(alerts, models.Alert{
				Type:      models.AlertMemoryHigh,
				Level:     models.LevelWarning,
				Message:   fmt.Sprintf("Memory usage %.1f%% exceeds threshold %.1f%%", sys.Memory.Usage, t.MemoryUsage),
				Value:     sys.Memory.Usage,
				Threshold: t.MemoryUsage,
			})
		}
		if sys.Disk != nil && sys.Disk.Usage > t.DiskUsage {
			alerts = append(alerts, models.Alert{
				Type:      models.AlertDiskHigh,
				Level:     models.LevelCritical,
				Message:   fmt.Sprintf("Disk usage %.1f%% exceeds threshold %.1f%%", sys.Disk.Usage, t.DiskUsage),
				Value:     sys.Disk.Usage,
				Threshold: t.DiskUsage,
			})
		}
		if sys.Temperature != nil && sys.Temperature.Usage > t.TemperatureCPU {
			alerts = append(alerts, models.Alert{
				Type:      models.AlertTemperatureHigh,
				Level:     models.LevelWarning,
				Message:   fmt.Sprintf("CPU temperature %.1f°C exceeds threshold %.1f°C", sys.Temperature.Usage, t.TemperatureCPU),
				Value:     sys.Temperature.Usage,
				Threshold: t.TemperatureCPU,
			})
		}
	}

	for _, app := range s.Applications {
		if app.ShouldBeRunning && app.Status != models.AppRunning {
			alerts = append(alerts, models.Alert{
				Type:        models.AlertAppStopped,
				Level:       models.LevelCritical,
				Message:     fmt.Sprintf("Application %q should be running but is %s", app.Name, app.Status),
				Application: app.Name,
			})
		}
		if app.Restarts > t.AppRestarts {
			alerts = append(alerts, models.Alert{
				Type:        models.AlertAppRestarts,
				Level:       models.LevelWarning,
				Message:     fmt.Sprintf("Application %q restarted %d times (threshold %d)", app.Name, app.Restarts, t.AppRestarts),
				Value:       float64(app.Restarts),
				Threshold:   float64(t.AppRestarts),
				Application: app.Name,
			})
		}
	}

	return alerts
}
