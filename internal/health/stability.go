package health

import (
	"fmt"

	"github.com/curator-app/agent/internal/models"
)

// Stability factor weights.
const (
	stabilityUptimeWeight  = 0.40
	stabilityAppWeight     = 0.40
	stabilityDisplayWeight = 0.20
)

// uptimeScore rates uptime in tiers: a machine that has run for a week
// unattended is proven stable; below six hours the score scales with the
// hours themselves.
func uptimeScore(hours float64) float64 {
	switch {
	case hours >= 168:
		return 100
	case hours >= 72:
		return 90
	case hours >= 24:
		return 80
	case hours >= 12:
		return 70
	case hours >= 6:
		return 60
	default:
		return hours * 5
	}
}

// scoreStability combines uptime (40%), the required-application run
// ratio (40%), and the display online ratio (20%).
func scoreStability(s *models.Snapshot) (CategoryScore, []Recommendation) {
	var hours float64
	if s != nil && s.System != nil {
		hours = float64(s.System.UptimeSeconds) / 3600
	}
	uptime := uptimeScore(hours)

	appRatio := 100.0
	required, running := 0, 0
	if s != nil {
		for _, app := range s.Applications {
			if app.ShouldBeRunning {
				required++
				if app.Status == models.AppRunning {
					running++
				}
			}
		}
	}
	if required > 0 {
		appRatio = float64(running) / float64(required) * 100
	}

	displayRatio := 100.0
	online, total := 0, 0
	if s != nil {
		for _, d := range s.Displays {
			total++
			if d.Online {
				online++
			}
		}
	}
	if total > 0 {
		displayRatio = float64(online) / float64(total) * 100
	}

	score := uptime*stabilityUptimeWeight + appRatio*stabilityAppWeight + displayRatio*stabilityDisplayWeight
	factors := []string{
		fmt.Sprintf("Uptime %.1fh (score %.0f)", hours, uptime),
		fmt.Sprintf("Required applications running %d/%d", running, required),
		fmt.Sprintf("Displays online %d/%d", online, total),
	}

	var recs []Recommendation
	if uptime < acceptableScore {
		recs = append(recs, Recommendation{
			Category:    "stability",
			Priority:    priorityForScore(uptime),
			Title:       "Let the machine accumulate uptime",
			Description: fmt.Sprintf("The machine has only been up %.1f hours; recent restarts suggest instability.", hours),
			Action:      "Investigate the cause of recent reboots before leaving the installation unattended",
			Impact:      "Confidence the machine survives unattended operation",
		})
	}
	if appRatio < 100 {
		recs = append(recs, Recommendation{
			Category:    "stability",
			Priority:    priorityForScore(appRatio),
			Title:       "Restart stopped installation applications",
			Description: fmt.Sprintf("%d of %d required applications are running.", running, required),
			Action:      "Start the stopped applications and verify their auto-start entries",
			Impact:      "Restores the installation's intended behavior",
		})
	}
	if displayRatio < 100 {
		recs = append(recs, Recommendation{
			Category:    "stability",
			Priority:    priorityForScore(displayRatio),
			Title:       "Bring offline displays back",
			Description: fmt.Sprintf("%d of %d displays are online.", online, total),
			Action:      "Check display power and cabling",
			Impact:      "Visitors see the full installation",
		})
	}

	return CategoryScore{Score: clamp(score), Factors: factors}, recs
}
