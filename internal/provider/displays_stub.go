//go:build !darwin && !linux && !windows

package provider

import (
	"context"

	"github.com/curator-app/agent/internal/models"
)

// detectDisplays reports no displays on platforms without a probe.
func detectDisplays(ctx context.Context) ([]models.DisplayStatus, error) {
	return nil, nil
}
