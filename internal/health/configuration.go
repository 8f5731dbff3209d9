package health

import (
	"fmt"
	"time"

	"github.com/curator-app/agent/internal/models"
)

// Configuration factor weights.
const (
	configMonitoringWeight   = 0.40
	configNotificationWeight = 0.30
	configMetadataWeight     = 0.30
)

// maxSaneInterval is the longest collection interval that still catches
// problems before a visitor does.
const maxSaneInterval = 60 * time.Second

// scoreConfiguration rates monitoring quality (40%), notification quality
// (30%), and installation-metadata completeness (30%). Malformed or
// missing configuration degrades the score rather than raising errors.
func scoreConfiguration(in Input) (CategoryScore, []Recommendation) {
	var factors []string
	var recs []Recommendation

	mon := 100.0
	if !in.Monitoring.Enabled {
		mon -= 50
		factors = append(factors, "Monitoring disabled (-50)")
		recs = append(recs, Recommendation{
			Category:    "configuration",
			Priority:    PriorityHigh,
			Title:       "Monitoring is disabled",
			Description: "The machine is not collecting metrics, so problems will go unnoticed.",
			Action:      "Enable monitoring in the agent configuration",
			Impact:      "Problems are caught before visitors notice them",
		})
	}
	t := in.Monitoring.Thresholds
	if t == (models.AlertThresholds{}) {
		mon -= 30
		factors = append(factors, "Alert thresholds missing (-30)")
		recs = append(recs, Recommendation{
			Category:    "configuration",
			Priority:    PriorityMedium,
			Title:       "Alert thresholds are not configured",
			Description: "Without thresholds no alerts can fire.",
			Action:      "Configure cpu/memory/disk thresholds",
			Impact:      "Alerting starts working",
		})
	} else {
		for _, lax := range []struct {
			name  string
			value float64
			limit float64
		}{
			{"cpu_usage", t.CPUUsage, 95},
			{"memory_usage", t.MemoryUsage, 95},
			{"disk_usage", t.DiskUsage, 98},
		} {
			if lax.value > lax.limit {
				mon -= 10
				factors = append(factors, fmt.Sprintf("Threshold %s %.0f too lax (-10)", lax.name, lax.value))
				recs = append(recs, Recommendation{
					Category:    "configuration",
					Priority:    PriorityLow,
					Title:       fmt.Sprintf("Tighten the %s threshold", lax.name),
					Description: fmt.Sprintf("The %s threshold of %.0f%% leaves almost no headroom before failure.", lax.name, lax.value),
					Action:      fmt.Sprintf("Lower %s below %.0f%%", lax.name, lax.limit),
					Impact:      "Earlier warning before resource exhaustion",
				})
			}
		}
	}
	if in.Monitoring.Interval.Duration > maxSaneInterval {
		mon -= 10
		factors = append(factors, fmt.Sprintf("Collection interval %v too long (-10)", in.Monitoring.Interval.Duration))
		recs = append(recs, Recommendation{
			Category:    "configuration",
			Priority:    PriorityLow,
			Title:       "Shorten the collection interval",
			Description: fmt.Sprintf("Collecting every %v leaves long blind spots.", in.Monitoring.Interval.Duration),
			Action:      "Set the interval to 60 seconds or less",
			Impact:      "Faster detection of failures",
		})
	}
	mon = clamp(mon)

	notif := 100.0
	if !in.Notifications.Enabled {
		notif -= 40
		factors = append(factors, "Notifications disabled (-40)")
		recs = append(recs, Recommendation{
			Category:    "configuration",
			Priority:    PriorityHigh,
			Title:       "Notifications are disabled",
			Description: "Alerts are raised but nobody is told.",
			Action:      "Enable notifications",
			Impact:      "Operators hear about failures remotely",
		})
	}
	enabledChannels := 0
	for _, ch := range in.Notifications.Channels {
		if ch.Enabled {
			enabledChannels++
		}
	}
	if enabledChannels == 0 {
		notif -= 30
		factors = append(factors, "No enabled notification channels (-30)")
		recs = append(recs, Recommendation{
			Category:    "configuration",
			Priority:    PriorityMedium,
			Title:       "No notification channel is enabled",
			Description: "There is no destination for alert delivery.",
			Action:      "Configure and enable at least one channel",
			Impact:      "Alerts reach an operator",
		})
	}
	if len(in.Notifications.AlertLevels) == 0 {
		notif -= 20
		factors = append(factors, "No alert levels selected (-20)")
		recs = append(recs, Recommendation{
			Category:    "configuration",
			Priority:    PriorityMedium,
			Title:       "No alert levels are selected",
			Description: "Every alert level is filtered out before delivery.",
			Action:      "Select the warning and critical levels",
			Impact:      "Alerts are actually delivered",
		})
	} else if !containsLevel(in.Notifications.AlertLevels, "critical") {
		notif -= 15
		factors = append(factors, "Critical level not delivered (-15)")
		recs = append(recs, Recommendation{
			Category:    "configuration",
			Priority:    PriorityMedium,
			Title:       "Critical alerts are not delivered",
			Description: "The critical level is missing from the delivered alert levels.",
			Action:      "Add critical to the alert levels",
			Impact:      "The most urgent alerts reach an operator",
		})
	}
	notif = clamp(notif)

	meta := 100.0
	for _, field := range []struct {
		name    string
		value   string
		penalty float64
	}{
		{"name", in.Installation.Name, 20},
		{"description", in.Installation.Description, 15},
		{"location", in.Installation.Location, 10},
		{"contact", in.Installation.Contact, 10},
	} {
		if field.value == "" {
			meta -= field.penalty
			factors = append(factors, fmt.Sprintf("Installation %s missing (-%.0f)", field.name, field.penalty))
			recs = append(recs, Recommendation{
				Category:    "configuration",
				Priority:    PriorityLow,
				Title:       fmt.Sprintf("Fill in the installation %s", field.name),
				Description: fmt.Sprintf("The installation %s is empty; remote operators cannot identify this machine.", field.name),
				Action:      fmt.Sprintf("Set installation.%s in the configuration", field.name),
				Impact:      "Faster triage when the fleet dashboard shows a problem",
			})
		}
	}
	meta = clamp(meta)

	score := mon*configMonitoringWeight + notif*configNotificationWeight + meta*configMetadataWeight
	factors = append(factors,
		fmt.Sprintf("Monitoring quality %.0f, notifications %.0f, metadata %.0f", mon, notif, meta))

	return CategoryScore{Score: clamp(score), Factors: factors}, recs
}

func containsLevel(levels []string, want string) bool {
	for _, l := range levels {
		if l == want {
			return true
		}
	}
	return false
}
