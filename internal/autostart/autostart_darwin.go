//go:build darwin

package autostart

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// plistTemplate is the launchd job written during installation. The
// placeholders {label} and {execPath} are substituted at install time.
const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{label}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{execPath}</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
</dict>
</plist>
`

type darwinManager struct {
	label     string
	plistPath string
}

// New returns a Manager for a launchd job with the given label, e.g.
// "com.curator.agent".
func New(label string, mode Mode) Manager {
	m := &darwinManager{label: label}
	if mode == UserMode {
		home, _ := os.UserHomeDir()
		m.plistPath = filepath.Join(home, "Library", "LaunchAgents", label+".plist")
	} else {
		m.plistPath = filepath.Join("/Library/LaunchDaemons", label+".plist")
	}
	return m
}

func (d *darwinManager) Label() string { return d.label }

// IsInstalled checks whether the plist exists.
func (d *darwinManager) IsInstalled() (bool, error) {
	_, err := os.Stat(d.plistPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking plist file: %w", err)
	}
	return true, nil
}

// IsLoaded asks launchd whether the job is loaded.
func (d *darwinManager) IsLoaded() (bool, error) {
	err := exec.Command("launchctl", "list", d.label).Run()
	if err != nil {
		// launchctl exits non-zero for unknown jobs.
		if _, ok := err.(*exec.ExitError); ok {
			return false, nil
		}
		return false, fmt.Errorf("querying launchd: %w", err)
	}
	return true, nil
}

// Install writes the plist and loads it into launchd.
func (d *darwinManager) Install(execPath string) error {
	plist := strings.ReplaceAll(plistTemplate, "{execPath}", execPath)
	plist = strings.ReplaceAll(plist, "{label}", d.label)
	if err := os.MkdirAll(filepath.Dir(d.plistPath), 0755); err != nil {
		return fmt.Errorf("creating plist directory: %w", err)
	}
	if err := os.WriteFile(d.plistPath, []byte(plist), 0644); err != nil {
		return fmt.Errorf("creating plist: %w", err)
	}
	if err := exec.Command("launchctl", "load", "-w", d.plistPath).Run(); err != nil {
		return fmt.Errorf("loading plist: %w", err)
	}
	return nil
}

// Uninstall unloads the job and removes the plist.
func (d *darwinManager) Uninstall() error {
	_ = exec.Command("launchctl", "unload", d.plistPath).Run()
	if err := os.Remove(d.plistPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing plist: %w", err)
	}
	return nil
}
