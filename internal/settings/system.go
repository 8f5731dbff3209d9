// System verifier — probes OS preferences with the platform's own tools:
//   - macOS: pmset, defaults, csrutil
//   - Linux: systemctl, gsettings, ufw, kernel lockdown
//   - Windows: powercfg, netsh
package settings

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// System verifies settings on the machine the agent runs on.
type System struct {
	logger *zap.Logger
}

// NewSystem creates a platform-backed settings verifier.
func NewSystem(logger *zap.Logger) *System {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &System{logger: logger}
}

// probe checks one setting and returns whether it is applied, plus a
// human-readable detail.
type probe func(ctx context.Context) (bool, string, error)

// VerifySettings checks the named settings, or all known settings when
// names is empty. Probe failures surface as status error per setting.
func (s *System) VerifySettings(ctx context.Context, names []string) ([]SettingCheck, error) {
	probes := s.platformProbes()
	if len(names) == 0 {
		names = RequiredSettings
	}

	var checks []SettingCheck
	for _, name := range names {
		p, known := probes[name]
		if !known {
			checks = append(checks, SettingCheck{
				Setting: name,
				Status:  StatusError,
				Detail:  fmt.Sprintf("setting not verifiable on %s", runtime.GOOS),
			})
			continue
		}

		applied, detail, err := p(ctx)
		check := SettingCheck{Setting: name, Detail: detail}
		switch {
		case err != nil:
			check.Status = StatusError
			check.Detail = err.Error()
			s.logger.Debug("Setting probe failed", zap.String("setting", name), zap.Error(err))
		case applied:
			check.Status = StatusApplied
		default:
			check.Status = StatusNotApplied
		}
		checks = append(checks, check)
	}
	return checks, nil
}

// CheckIntegrityProtectionStatus probes SIP on macOS and kernel lockdown
// on Linux. Other platforms report not enabled.
func (s *System) CheckIntegrityProtectionStatus(ctx context.Context) (IntegrityStatus, error) {
	switch runtime.GOOS {
	case "darwin":
		out, err := exec.CommandContext(ctx, "csrutil", "status").Output()
		if err != nil {
			return IntegrityStatus{}, fmt.Errorf("csrutil status: %w", err)
		}
		return IntegrityStatus{Enabled: strings.Contains(strings.ToLower(string(out)), "enabled")}, nil
	case "linux":
		data, err := os.ReadFile("/sys/kernel/security/lockdown")
		if err != nil {
			return IntegrityStatus{}, fmt.Errorf("reading lockdown state: %w", err)
		}
		state := string(data)
		return IntegrityStatus{
			Enabled: strings.Contains(state, "[integrity]") || strings.Contains(state, "[confidentiality]"),
		}, nil
	default:
		return IntegrityStatus{}, nil
	}
}

// platformProbes returns the probe table for the current OS. Settings
// absent from the table report status error.
func (s *System) platformProbes() map[string]probe {
	switch runtime.GOOS {
	case "darwin":
		return map[string]probe{
			SettingDisplaySleep: probeCommandContains([]string{"pmset", "-g", "custom"}, "displaysleep", " 0"),
			SettingScreensaver: probeCommandEquals(
				[]string{"defaults", "-currentHost", "read", "com.apple.screensaver", "idleTime"}, "0"),
			SettingAutoUpdates: probeCommandEquals(
				[]string{"defaults", "read", "/Library/Preferences/com.apple.SoftwareUpdate", "AutomaticCheckEnabled"}, "0"),
			SettingFirewall: probeCommandNotEquals(
				[]string{"defaults", "read", "/Library/Preferences/com.apple.alf", "globalstate"}, "0"),
		}
	case "linux":
		return map[string]probe{
			SettingDisplaySleep: probeCommandEquals(
				[]string{"systemctl", "is-enabled", "sleep.target"}, "masked"),
			SettingScreensaver: probeCommandEquals(
				[]string{"gsettings", "get", "org.gnome.desktop.session", "idle-delay"}, "uint32 0"),
			SettingAutoUpdates: func(ctx context.Context) (bool, string, error) {
				out, _ := exec.CommandContext(ctx, "systemctl", "is-enabled", "unattended-upgrades").Output()
				state := strings.TrimSpace(string(out))
				return state != "enabled", state, nil
			},
			SettingFirewall: func(ctx context.Context) (bool, string, error) {
				out, err := exec.CommandContext(ctx, "ufw", "status").Output()
				if err == nil {
					active := strings.Contains(strings.ToLower(string(out)), "status: active")
					return active, strings.TrimSpace(string(out)), nil
				}
				out, err = exec.CommandContext(ctx, "firewall-cmd", "--state").Output()
				if err != nil {
					return false, "", fmt.Errorf("no firewall tool responded")
				}
				state := strings.TrimSpace(string(out))
				return state == "running", state, nil
			},
		}
	case "windows":
		return map[string]probe{
			SettingDisplaySleep: func(ctx context.Context) (bool, string, error) {
				out, err := exec.CommandContext(ctx, "powercfg", "/query", "SCHEME_CURRENT", "SUB_VIDEO", "VIDEOIDLE").Output()
				if err != nil {
					return false, "", fmt.Errorf("powercfg: %w", err)
				}
				// A display timeout of zero shows as index 0x00000000.
				applied := strings.Contains(string(out), "Current AC Power Setting Index: 0x00000000")
				return applied, "", nil
			},
			SettingFirewall: func(ctx context.Context) (bool, string, error) {
				out, err := exec.CommandContext(ctx, "netsh", "advfirewall", "show", "allprofiles", "state").Output()
				if err != nil {
					return false, "", fmt.Errorf("netsh: %w", err)
				}
				on := strings.Count(string(out), "ON")
				return on > 0, "", nil
			},
		}
	default:
		return nil
	}
}

// probeCommandEquals runs a command and reports applied when its trimmed
// output equals want.
func probeCommandEquals(argv []string, want string) probe {
	return func(ctx context.Context) (bool, string, error) {
		out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
		got := strings.TrimSpace(string(out))
		if err != nil && got == "" {
			return false, "", fmt.Errorf("%s: %w", argv[0], err)
		}
		return got == want, got, nil
	}
}

// probeCommandNotEquals is the negation of probeCommandEquals.
func probeCommandNotEquals(argv []string, unwanted string) probe {
	return func(ctx context.Context) (bool, string, error) {
		out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
		got := strings.TrimSpace(string(out))
		if err != nil && got == "" {
			return false, "", fmt.Errorf("%s: %w", argv[0], err)
		}
		return got != unwanted, got, nil
	}
}

// probeCommandContains reports applied when the output line containing
// marker also contains value.
func probeCommandContains(argv []string, marker, value string) probe {
	return func(ctx context.Context) (bool, string, error) {
		out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
		if err != nil {
			return false, "", fmt.Errorf("%s: %w", argv[0], err)
		}
		for _, line := range strings.Split(string(out), "\n") {
			if strings.Contains(line, marker) {
				return strings.Contains(line, value), strings.TrimSpace(line), nil
			}
		}
		return false, "", fmt.Errorf("%s output has no %q entry", argv[0], marker)
	}
}
