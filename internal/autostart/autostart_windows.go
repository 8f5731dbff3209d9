//go:build windows

package autostart

import (
	"fmt"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// windowsManager implements Manager for Windows using the Service Control Manager.
type windowsManager struct {
	label string
}

// New returns a Manager for a Windows service with the given name, e.g.
// "CuratorAgent". The mode argument is ignored; SCM services are always
// system-wide.
func New(label string, _ Mode) Manager {
	return &windowsManager{label: label}
}

func (w *windowsManager) Label() string { return w.label }

// IsInstalled checks whether the service is registered in the SCM.
func (w *windowsManager) IsInstalled() (bool, error) {
	m, err := mgr.Connect()
	if err != nil {
		return false, fmt.Errorf("connecting to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(w.label)
	if err != nil {
		// Service does not exist.
		return false, nil
	}
	s.Close()
	return true, nil
}

// IsLoaded checks whether the service is currently running.
func (w *windowsManager) IsLoaded() (bool, error) {
	m, err := mgr.Connect()
	if err != nil {
		return false, fmt.Errorf("connecting to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(w.label)
	if err != nil {
		return false, nil
	}
	defer s.Close()

	status, err := s.Query()
	if err != nil {
		return false, fmt.Errorf("querying service: %w", err)
	}
	return status.State == svc.Running, nil
}

// Install creates the service and starts it immediately.
func (w *windowsManager) Install(execPath string) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connecting to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.CreateService(w.label, execPath, mgr.Config{
		DisplayName: w.label,
		Description: "Curator installation supervisor entry",
		StartType:   mgr.StartAutomatic,
	})
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}
	defer s.Close()

	if err := s.Start(); err != nil {
		return fmt.Errorf("starting service: %w", err)
	}
	return nil
}

// Uninstall stops and deletes the service.
func (w *windowsManager) Uninstall() error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connecting to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(w.label)
	if err != nil {
		return fmt.Errorf("opening service: %w", err)
	}
	defer s.Close()

	// Attempt to stop the service; ignore errors if it is already stopped.
	_, _ = s.Control(svc.Stop)
	// Give the service a moment to stop before deleting.
	time.Sleep(2 * time.Second)

	if err := s.Delete(); err != nil {
		return fmt.Errorf("deleting service: %w", err)
	}
	return nil
}
