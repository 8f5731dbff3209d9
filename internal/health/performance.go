package health

import (
	"fmt"

	"github.com/curator-app/agent/internal/models"
)

// metricCurve is the piecewise scoring function of one resource metric:
// at or below good → 100, linear 100→80 up to fair, linear 80→60 up to
// poor, then linear 60→0 toward 100% usage.
type metricCurve struct {
	good, fair, poor float64
}

func (c metricCurve) score(usage float64) float64 {
	switch {
	case usage <= c.good:
		return 100
	case usage <= c.fair:
		return 100 - (usage-c.good)/(c.fair-c.good)*20
	case usage <= c.poor:
		return 80 - (usage-c.fair)/(c.poor-c.fair)*20
	default:
		s := 60 - (usage-c.poor)/(100-c.poor)*60
		if s < 0 {
			return 0
		}
		return s
	}
}

var (
	cpuCurve         = metricCurve{good: 70, fair: 85, poor: 95}
	memoryCurve      = metricCurve{good: 75, fair: 85, poor: 95}
	diskCurve        = metricCurve{good: 80, fair: 90, poor: 95}
	temperatureCurve = metricCurve{good: 70, fair: 80, poor: 90}
)

// scorePerformance weighs the four resource checks: cpu 30%, memory 35%,
// disk 25%, temperature 10%. Metrics the provider could not determine are
// skipped — no penalty for the unknown.
func scorePerformance(s *models.Snapshot) (CategoryScore, []Recommendation) {
	type check struct {
		name   string
		metric *models.MetricValue
		curve  metricCurve
		weight float64
		unit   string
		action string
	}

	var sys *models.SystemMetrics
	if s != nil {
		sys = s.System
	}
	checks := []check{
		{name: "CPU usage", curve: cpuCurve, weight: 0.30, unit: "%",
			action: "Close or restart processes with runaway CPU consumption"},
		{name: "Memory usage", curve: memoryCurve, weight: 0.35, unit: "%",
			action: "Restart leaking applications or add memory"},
		{name: "Disk usage", curve: diskCurve, weight: 0.25, unit: "%",
			action: "Remove cached media, logs, or old content bundles"},
		{name: "CPU temperature", curve: temperatureCurve, weight: 0.10, unit: "°C",
			action: "Check ventilation and clean dust filters"},
	}
	if sys != nil {
		checks[0].metric = sys.CPU
		checks[1].metric = sys.Memory
		checks[2].metric = sys.Disk
		checks[3].metric = sys.Temperature
	}

	score := 100.0
	var factors []string
	var recs []Recommendation

	for _, c := range checks {
		if c.metric == nil {
			factors = append(factors, fmt.Sprintf("%s: unknown", c.name))
			continue
		}
		sub := c.curve.score(c.metric.Usage)
		score -= c.weight * (100 - sub)
		factors = append(factors, fmt.Sprintf("%s %.1f%s (score %.0f)", c.name, c.metric.Usage, c.unit, sub))

		if sub < acceptableScore {
			recs = append(recs, Recommendation{
				Category: "performance",
				Priority: priorityForScore(sub),
				Title:    fmt.Sprintf("Reduce %s", lowerFirst(c.name)),
				Description: fmt.Sprintf("%s is at %.1f%s, which degrades responsiveness of the installation.",
					c.name, c.metric.Usage, c.unit),
				Action: c.action,
				Impact: "Smoother playback and interaction",
			})
		}
	}

	return CategoryScore{Score: clamp(score), Factors: factors}, recs
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	// Keep all-caps leading acronyms readable ("CPU usage" stays as-is).
	if len(s) > 1 && s[0] >= 'A' && s[0] <= 'Z' && s[1] >= 'A' && s[1] <= 'Z' {
		return s
	}
	return string(s[0]|0x20) + s[1:]
}
