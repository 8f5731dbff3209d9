// Package provider defines the metrics provider contract and a
// gopsutil-backed implementation. The provider is the only component
// that touches the host OS for metric data; everything above it consumes
// the assembled snapshot.
package provider

import (
	"context"

	"github.com/curator-app/agent/internal/models"
)

// Provider supplies raw machine state for one collection cycle. Each
// method may fail independently; a failure in one must not block the
// others. Metric status tags are derived by the caller, which knows the
// configured thresholds.
type Provider interface {
	// GetSystemMetrics returns cpu/memory/disk/temperature/load readings.
	// Fields the host cannot determine are left nil, not zeroed.
	GetSystemMetrics(ctx context.Context) (*models.SystemMetrics, error)

	// GetNetworkInfo returns the interface list, the primary address, and
	// a reachability verdict.
	GetNetworkInfo(ctx context.Context) (*models.NetworkInfo, error)

	// GetApplicationStatus resolves the run state of the given watched
	// applications, in input order.
	GetApplicationStatus(ctx context.Context, apps []models.WatchedApplication) ([]models.AppStatus, error)

	// GetDisplayInfo returns the attached displays and whether each is online.
	GetDisplayInfo(ctx context.Context) ([]models.DisplayStatus, error)
}
