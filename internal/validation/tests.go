package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/curator-app/agent/internal/config"
	"github.com/curator-app/agent/internal/models"
	"github.com/curator-app/agent/internal/settings"
)

// Test categories. Filters match on these strings.
const (
	CategorySystem        = "system"
	CategoryHardware      = "hardware"
	CategoryNetwork       = "network"
	CategoryConfiguration = "configuration"
	CategoryApplications  = "applications"
	CategorySecurity      = "security"
	CategoryPerformance   = "performance"
)

// Resource ceilings for the resource-usage test. Tighter than the alert
// thresholds on purpose: a fresh deployment should have headroom.
const (
	maxValidationCPU  = 90
	maxValidationMem  = 85
	maxValidationDisk = 90
)

// minStableUptime is how long a machine must have been up before it
// counts as stable enough to sign off on.
const minStableUptime = time.Hour

var errNoSnapshot = errors.New("no metrics snapshot available yet; is monitoring running?")

// builtinTests returns the standard registry, in execution order.
func (r *Runner) builtinTests() []Test {
	return []Test{
		{
			ID:          "system-uptime",
			Name:        "System Uptime",
			Category:    CategorySystem,
			Priority:    PriorityHigh,
			Description: "Machine has been up long enough to be considered stable",
			Run:         r.testSystemUptime,
		},
		{
			ID:          "resource-usage",
			Name:        "Resource Usage",
			Category:    CategorySystem,
			Priority:    PriorityCritical,
			Description: "CPU, memory and disk usage have deployment headroom",
			Run:         r.testResourceUsage,
		},
		{
			ID:          "displays-online",
			Name:        "Displays Online",
			Category:    CategoryHardware,
			Priority:    PriorityCritical,
			Description: "All attached displays are powered and online",
			Run:         r.testDisplaysOnline,
		},
		{
			ID:          "network-interface",
			Name:        "Network Interface",
			Category:    CategoryNetwork,
			Priority:    PriorityHigh,
			Description: "At least one non-loopback interface is up with an address",
			Run:         r.testNetworkInterface,
		},
		{
			ID:          "system-settings",
			Name:        "System Settings",
			Category:    CategoryConfiguration,
			Priority:    PriorityHigh,
			Description: "Required OS preferences (sleep, screensaver, updates, firewall) are applied",
			Run:         r.testSystemSettings,
		},
		{
			ID:          "monitoring-config",
			Name:        "Monitoring Configuration",
			Category:    CategoryConfiguration,
			Priority:    PriorityMedium,
			Description: "Monitoring is enabled with sane thresholds and interval",
			Run:         r.testMonitoringConfig,
		},
		{
			ID:          "notification-config",
			Name:        "Notification Configuration",
			Category:    CategoryConfiguration,
			Priority:    PriorityMedium,
			Description: "At least one notification channel is enabled and critical alerts are routed",
			Run:         r.testNotificationConfig,
		},
		{
			ID:          "critical-apps-running",
			Name:        "Critical Applications Running",
			Category:    CategoryApplications,
			Priority:    PriorityCritical,
			Description: "Every application marked should-be-running has a live process",
			Run:         r.testCriticalApps,
		},
		{
			ID:          "autostart-entries",
			Name:        "Auto-Start Entries",
			Category:    CategoryApplications,
			Priority:    PriorityHigh,
			Description: "Launch entries are installed and loaded by the init system",
			Run:         r.testAutostart,
		},
		{
			ID:          "security-baseline",
			Name:        "Security Baseline",
			Category:    CategorySecurity,
			Priority:    PriorityMedium,
			Description: "Integrity protection and firewall are active",
			Run:         r.testSecurityBaseline,
		},
		{
			ID:          "performance-baseline",
			Name:        "Performance Baseline",
			Category:    CategoryPerformance,
			Priority:    PriorityMedium,
			Description: "Records current load figures for later comparison",
			Run:         r.testPerformanceBaseline,
		},
	}
}

func (r *Runner) snapshot() (*models.Snapshot, error) {
	if r.deps.Snapshots == nil {
		return nil, errNoSnapshot
	}
	s := r.deps.Snapshots.CurrentSnapshot()
	if s == nil {
		return nil, errNoSnapshot
	}
	return s, nil
}

func (r *Runner) testSystemUptime(ctx context.Context, _ Filter) (Outcome, error) {
	s, err := r.snapshot()
	if err != nil {
		return Outcome{}, err
	}
	if s.System == nil {
		return Outcome{}, errors.New("snapshot has no system metrics")
	}

	uptime := time.Duration(s.System.UptimeSeconds) * time.Second
	details := map[string]interface{}{"uptime_seconds": s.System.UptimeSeconds}
	if uptime < minStableUptime {
		return Outcome{
			Message: fmt.Sprintf("System has only been up %s; let it run for at least %s before sign-off", uptime, minStableUptime),
			Details: details,
			Recommendations: []string{
				"Let the machine run for an hour of stable operation before final validation",
			},
		}, nil
	}
	return Outcome{
		Passed:  true,
		Message: fmt.Sprintf("System has been up %s", uptime),
		Details: details,
	}, nil
}

func (r *Runner) testResourceUsage(ctx context.Context, _ Filter) (Outcome, error) {
	s, err := r.snapshot()
	if err != nil {
		return Outcome{}, err
	}
	if s.System == nil {
		return Outcome{}, errors.New("snapshot has no system metrics")
	}

	details := make(map[string]interface{})
	var over []string
	check := func(name string, m *models.MetricValue, limit float64) {
		if m == nil {
			return
		}
		details[name] = m.Usage
		if m.Usage >= limit {
			over = append(over, fmt.Sprintf("%s %.1f%% (limit %.0f%%)", name, m.Usage, limit))
		}
	}
	check("cpu", s.System.CPU, maxValidationCPU)
	check("memory", s.System.Memory, maxValidationMem)
	check("disk", s.System.Disk, maxValidationDisk)

	if len(over) > 0 {
		return Outcome{
			Message: "Resource usage too high for deployment: " + strings.Join(over, ", "),
			Details: details,
			Recommendations: []string{
				"Identify what is consuming resources before leaving the machine unattended",
			},
		}, nil
	}
	return Outcome{
		Passed:  true,
		Message: "Resource usage within deployment limits",
		Details: details,
	}, nil
}

func (r *Runner) testDisplaysOnline(ctx context.Context, _ Filter) (Outcome, error) {
	s, err := r.snapshot()
	if err != nil {
		return Outcome{}, err
	}

	if len(s.Displays) == 0 {
		return Outcome{
			Passed:  true,
			Warning: true,
			Message: "No displays detected; skip this check on headless machines",
		}, nil
	}

	var offline []string
	for _, d := range s.Displays {
		if !d.Online {
			offline = append(offline, d.Name)
		}
	}
	if len(offline) > 0 {
		return Outcome{
			Message: "Displays offline: " + strings.Join(offline, ", "),
			Details: map[string]interface{}{"offline": offline},
			Recommendations: []string{
				"Check display power and cabling for: " + strings.Join(offline, ", "),
			},
		}, nil
	}
	return Outcome{
		Passed:  true,
		Message: fmt.Sprintf("All %d displays online", len(s.Displays)),
	}, nil
}

func (r *Runner) testNetworkInterface(ctx context.Context, _ Filter) (Outcome, error) {
	s, err := r.snapshot()
	if err != nil {
		return Outcome{}, err
	}
	if s.Network == nil {
		return Outcome{}, errors.New("snapshot has no network info")
	}

	for _, iface := range s.Network.Interfaces {
		if iface.Up && !iface.Loopback && len(iface.Addresses) > 0 {
			return Outcome{
				Passed:  true,
				Message: fmt.Sprintf("Interface %s is up with address %s", iface.Name, iface.Addresses[0]),
				Details: map[string]interface{}{"interface": iface.Name},
			}, nil
		}
	}
	return Outcome{
		Message: "No non-loopback interface is up with an address",
		Recommendations: []string{
			"Connect the machine to the network and verify it receives an address",
		},
	}, nil
}

func (r *Runner) testSystemSettings(ctx context.Context, _ Filter) (Outcome, error) {
	if r.deps.Settings == nil {
		return Outcome{}, errors.New("no settings verifier configured")
	}
	checks, err := r.deps.Settings.VerifySettings(ctx, settings.RequiredSettings)
	if err != nil {
		return Outcome{}, fmt.Errorf("verify settings: %w", err)
	}

	var missing, unverifiable []string
	for _, c := range checks {
		switch c.Status {
		case settings.StatusNotApplied:
			missing = append(missing, c.Setting)
		case settings.StatusError:
			unverifiable = append(unverifiable, c.Setting)
		}
	}

	switch {
	case len(missing) > 0:
		return Outcome{
			Message: "Settings not applied: " + strings.Join(missing, ", "),
			Details: map[string]interface{}{"not_applied": missing},
			Recommendations: []string{
				"Apply the missing system preferences: " + strings.Join(missing, ", "),
			},
		}, nil
	case len(unverifiable) > 0:
		return Outcome{
			Passed:  true,
			Warning: true,
			Message: "Could not verify: " + strings.Join(unverifiable, ", "),
			Details: map[string]interface{}{"unverifiable": unverifiable},
		}, nil
	default:
		return Outcome{Passed: true, Message: "All required system settings applied"}, nil
	}
}

func (r *Runner) testMonitoringConfig(ctx context.Context, _ Filter) (Outcome, error) {
	if r.deps.Store == nil {
		return Outcome{}, errors.New("no configuration store available")
	}
	var mon config.MonitoringConfig
	if err := r.deps.Store.Decode("monitoring", &mon); err != nil {
		return Outcome{}, fmt.Errorf("read monitoring config: %w", err)
	}

	var issues []string
	if !mon.Enabled {
		issues = append(issues, "monitoring is disabled")
	}
	t := mon.Thresholds
	for _, th := range []struct {
		name  string
		value float64
	}{
		{"cpu", t.CPUUsage},
		{"memory", t.MemoryUsage},
		{"disk", t.DiskUsage},
	} {
		if th.value <= 0 || th.value > 100 {
			issues = append(issues, fmt.Sprintf("%s threshold %.0f is not in (0, 100]", th.name, th.value))
		}
	}
	if mon.Interval.Duration > time.Minute {
		issues = append(issues, fmt.Sprintf("interval %s is longer than a minute", mon.Interval.Duration))
	}

	if len(issues) > 0 {
		return Outcome{
			Message:         "Monitoring configuration problems: " + strings.Join(issues, "; "),
			Recommendations: []string{"Fix the monitoring section of the agent configuration"},
		}, nil
	}
	return Outcome{Passed: true, Message: "Monitoring configuration is sane"}, nil
}

func (r *Runner) testNotificationConfig(ctx context.Context, _ Filter) (Outcome, error) {
	if r.deps.Store == nil {
		return Outcome{}, errors.New("no configuration store available")
	}
	var nc config.NotificationConfig
	if err := r.deps.Store.Decode("notifications", &nc); err != nil {
		return Outcome{}, fmt.Errorf("read notification config: %w", err)
	}

	var issues []string
	if !nc.Enabled {
		issues = append(issues, "notifications are disabled")
	}
	enabled := 0
	for _, ch := range nc.Channels {
		if ch.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		issues = append(issues, "no notification channel is enabled")
	}
	if !containsString(nc.AlertLevels, "critical") {
		issues = append(issues, "critical alerts are not routed")
	}

	if len(issues) > 0 {
		return Outcome{
			Message: "Notification configuration problems: " + strings.Join(issues, "; "),
			Recommendations: []string{
				"Configure at least one enabled channel and include the critical alert level",
			},
		}, nil
	}
	return Outcome{
		Passed:  true,
		Message: fmt.Sprintf("%d notification channel(s) enabled, critical alerts routed", enabled),
	}, nil
}

func (r *Runner) testCriticalApps(ctx context.Context, _ Filter) (Outcome, error) {
	s, err := r.snapshot()
	if err != nil {
		return Outcome{}, err
	}

	var required, stopped []string
	for _, app := range s.Applications {
		if !app.ShouldBeRunning {
			continue
		}
		required = append(required, app.Name)
		if app.Status != models.AppRunning {
			stopped = append(stopped, app.Name)
		}
	}

	if len(required) == 0 {
		return Outcome{
			Passed:  true,
			Warning: true,
			Message: "No applications are marked as required",
		}, nil
	}
	if len(stopped) > 0 {
		return Outcome{
			Message: "Required applications not running: " + strings.Join(stopped, ", "),
			Details: map[string]interface{}{"stopped": stopped},
			Recommendations: []string{
				"Start the stopped applications and confirm their auto-start entries: " + strings.Join(stopped, ", "),
			},
		}, nil
	}
	return Outcome{
		Passed:  true,
		Message: fmt.Sprintf("All %d required applications running", len(required)),
	}, nil
}

func (r *Runner) testAutostart(ctx context.Context, _ Filter) (Outcome, error) {
	if len(r.deps.Autostart) == 0 {
		return Outcome{
			Passed:  true,
			Warning: true,
			Message: "No auto-start entries configured",
		}, nil
	}

	var problems []string
	for _, m := range r.deps.Autostart {
		installed, err := m.IsInstalled()
		if err != nil {
			return Outcome{}, fmt.Errorf("check %s: %w", m.Label(), err)
		}
		if !installed {
			problems = append(problems, m.Label()+" not installed")
			continue
		}
		loaded, err := m.IsLoaded()
		if err != nil {
			return Outcome{}, fmt.Errorf("check %s: %w", m.Label(), err)
		}
		if !loaded {
			problems = append(problems, m.Label()+" installed but not loaded")
		}
	}

	if len(problems) > 0 {
		return Outcome{
			Message: "Auto-start problems: " + strings.Join(problems, "; "),
			Recommendations: []string{
				"Reinstall or reload the listed launch entries so they survive a reboot",
			},
		}, nil
	}
	return Outcome{
		Passed:  true,
		Message: fmt.Sprintf("All %d auto-start entries installed and loaded", len(r.deps.Autostart)),
	}, nil
}

func (r *Runner) testSecurityBaseline(ctx context.Context, _ Filter) (Outcome, error) {
	if r.deps.Settings == nil {
		return Outcome{}, errors.New("no settings verifier configured")
	}

	var issues []string
	integrity, err := r.deps.Settings.CheckIntegrityProtectionStatus(ctx)
	if err != nil {
		issues = append(issues, "integrity protection state unknown: "+err.Error())
	} else if !integrity.Enabled {
		issues = append(issues, "OS integrity protection is disabled")
	}

	checks, err := r.deps.Settings.VerifySettings(ctx, []string{settings.SettingFirewall})
	if err != nil {
		issues = append(issues, "firewall state unknown: "+err.Error())
	} else {
		for _, c := range checks {
			if c.Status != settings.StatusApplied {
				issues = append(issues, "firewall is not enabled")
			}
		}
	}

	if len(issues) > 0 {
		return Outcome{
			Passed:  true,
			Warning: true,
			Message: "Security posture issues: " + strings.Join(issues, "; "),
			Recommendations: []string{
				"Harden the machine before deployment: " + strings.Join(issues, "; "),
			},
		}, nil
	}
	return Outcome{Passed: true, Message: "Integrity protection and firewall active"}, nil
}

func (r *Runner) testPerformanceBaseline(ctx context.Context, _ Filter) (Outcome, error) {
	s, err := r.snapshot()
	if err != nil {
		return Outcome{}, err
	}
	if s.System == nil {
		return Outcome{}, errors.New("snapshot has no system metrics")
	}

	details := map[string]interface{}{
		"load_1":  s.System.Load1,
		"load_5":  s.System.Load5,
		"load_15": s.System.Load15,
	}
	if s.System.CPU != nil {
		details["cpu"] = s.System.CPU.Usage
	}
	if s.System.Memory != nil {
		details["memory"] = s.System.Memory.Usage
	}
	if s.System.Disk != nil {
		details["disk"] = s.System.Disk.Usage
	}

	return Outcome{
		Passed:  true,
		Message: "Performance baseline recorded",
		Details: details,
	}, nil
}
