// Package autostart manages platform launch entries (launchd plists,
// systemd units, Windows services) so the agent and the installation's
// applications come back after a reboot. The validation runner uses the
// read side (IsInstalled/IsLoaded) to verify a deployment.
package autostart

// Mode determines whether an entry is installed system-wide or per-user.
type Mode int

const (
	SystemMode Mode = iota // System-wide entry (requires root/admin)
	UserMode               // Per-user entry
)

// Manager provides platform-specific autostart management for one entry.
type Manager interface {
	// IsInstalled reports whether the launch entry exists on disk / in
	// the service registry.
	IsInstalled() (bool, error)

	// IsLoaded reports whether the entry is known to the init system and
	// active (launchd job loaded, systemd unit active, service running).
	IsLoaded() (bool, error)

	Install(execPath string) error
	Uninstall() error

	// Label returns the platform identity of the entry.
	Label() string
}
