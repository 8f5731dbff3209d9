//go:build linux

package autostart

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// unitTemplate is the systemd unit written during installation. The
// placeholders {label} and {execPath} are substituted at install time.
const unitTemplate = `[Unit]
Description=Curator installation entry ({label})
After=network-online.target graphical.target
Wants=network-online.target

[Service]
Type=simple
ExecStart={execPath}
Restart=always
RestartSec=10
StandardOutput=journal
StandardError=journal
SyslogIdentifier={label}

[Install]
WantedBy=multi-user.target
`

// linuxManager implements Manager for Linux using systemd.
type linuxManager struct {
	label    string
	unitPath string
}

// New returns a Manager for a systemd unit with the given label, e.g.
// "curator-agent".
func New(label string, mode Mode) Manager {
	m := &linuxManager{label: label}
	if mode == UserMode {
		home, _ := os.UserHomeDir()
		m.unitPath = filepath.Join(home, ".config", "systemd", "user", label+".service")
	} else {
		m.unitPath = filepath.Join("/etc/systemd/system", label+".service")
	}
	return m
}

func (l *linuxManager) Label() string { return l.label }

// IsInstalled checks whether the unit file exists.
func (l *linuxManager) IsInstalled() (bool, error) {
	_, err := os.Stat(l.unitPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking unit file: %w", err)
	}
	return true, nil
}

// IsLoaded checks whether systemd reports the unit active.
func (l *linuxManager) IsLoaded() (bool, error) {
	out, err := exec.Command("systemctl", "is-active", l.label).Output()
	state := strings.TrimSpace(string(out))
	if state == "" && err != nil {
		return false, fmt.Errorf("querying unit state: %w", err)
	}
	return state == "active", nil
}

// Install writes the unit file, reloads the daemon, enables and starts
// the unit.
func (l *linuxManager) Install(execPath string) error {
	unit := strings.ReplaceAll(unitTemplate, "{execPath}", execPath)
	unit = strings.ReplaceAll(unit, "{label}", l.label)
	if err := os.MkdirAll(filepath.Dir(l.unitPath), 0755); err != nil {
		return fmt.Errorf("creating unit directory: %w", err)
	}
	if err := os.WriteFile(l.unitPath, []byte(unit), 0644); err != nil {
		return fmt.Errorf("writing unit file: %w", err)
	}

	commands := [][]string{
		{"systemctl", "daemon-reload"},
		{"systemctl", "enable", l.label},
		{"systemctl", "start", l.label},
	}
	for _, args := range commands {
		if err := exec.Command(args[0], args[1:]...).Run(); err != nil {
			return fmt.Errorf("running %s: %w", strings.Join(args, " "), err)
		}
	}
	return nil
}

// Uninstall stops, disables, and removes the unit.
func (l *linuxManager) Uninstall() error {
	_ = exec.Command("systemctl", "stop", l.label).Run()
	_ = exec.Command("systemctl", "disable", l.label).Run()

	if err := os.Remove(l.unitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing unit file: %w", err)
	}

	_ = exec.Command("systemctl", "daemon-reload").Run()
	return nil
}
