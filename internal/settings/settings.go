// Package settings verifies that the OS-level preferences an unattended
// installation machine depends on are actually applied: no display sleep,
// no screensaver, no surprise updates, firewall up. Verification only —
// changing the settings is someone else's job.
package settings

import "context"

// SettingStatus is the verification outcome for one setting.
type SettingStatus string

const (
	StatusApplied    SettingStatus = "applied"
	StatusNotApplied SettingStatus = "not_applied"
	StatusError      SettingStatus = "error"
)

// SettingCheck is the result of verifying one named setting.
type SettingCheck struct {
	Setting string        `json:"setting"`
	Status  SettingStatus `json:"status"`
	Detail  string        `json:"detail,omitempty"`
}

// IntegrityStatus reports whether OS integrity protection is active.
type IntegrityStatus struct {
	Enabled bool `json:"enabled"`
}

// Names of the settings the agent knows how to verify.
const (
	SettingDisplaySleep = "display_sleep_disabled"
	SettingScreensaver  = "screensaver_disabled"
	SettingAutoUpdates  = "automatic_updates_disabled"
	SettingFirewall     = "firewall_enabled"
	SettingAppAllowlist = "app_allowlist_enabled"
)

// RequiredSettings are the preferences a kiosk machine must have applied.
var RequiredSettings = []string{
	SettingDisplaySleep,
	SettingScreensaver,
	SettingAutoUpdates,
	SettingFirewall,
}

// Verifier checks OS preference state. Implemented per platform; a fake
// implementation backs the tests.
type Verifier interface {
	// VerifySettings checks the named settings, or all known settings
	// when names is empty. A setting that cannot be probed reports
	// status error rather than failing the call.
	VerifySettings(ctx context.Context, names []string) ([]SettingCheck, error)

	// CheckIntegrityProtectionStatus reports whether the OS integrity
	// protection mechanism (SIP on macOS, kernel lockdown on Linux) is on.
	CheckIntegrityProtectionStatus(ctx context.Context) (IntegrityStatus, error)
}
