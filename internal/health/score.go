// Package health computes a weighted 0–100 composite judgment of machine
// condition from a snapshot and the current configuration. Scoring is a
// pure function: identical inputs always produce identical output, and it
// always returns a value — configuration problems degrade the score, they
// never raise errors.
package health

import (
	"sort"

	"github.com/curator-app/agent/internal/config"
	"github.com/curator-app/agent/internal/models"
)

// Category weights of the composite score.
const (
	weightPerformance   = 0.35
	weightStability     = 0.25
	weightSecurity      = 0.20
	weightConfiguration = 0.20
)

// Rating is the qualitative band of an overall score.
type Rating string

const (
	RatingExcellent Rating = "excellent"
	RatingGood      Rating = "good"
	RatingFair      Rating = "fair"
	RatingPoor      Rating = "poor"
	RatingCritical  Rating = "critical"
)

// Priority orders recommendations.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Weight returns the sort weight of a priority.
func (p Priority) Weight() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Recommendation is one prioritized improvement suggestion.
type Recommendation struct {
	Category    string   `json:"category"`
	Priority    Priority `json:"priority"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Action      string   `json:"action"`
	Impact      string   `json:"impact"`
}

// CategoryScore is one category's score with the factors that shaped it.
type CategoryScore struct {
	Score   float64  `json:"score"`
	Factors []string `json:"factors"`
}

// Breakdown holds the per-category scores.
type Breakdown struct {
	Performance   CategoryScore `json:"performance"`
	Stability     CategoryScore `json:"stability"`
	Security      CategoryScore `json:"security"`
	Configuration CategoryScore `json:"configuration"`
}

// HealthScore is the composite judgment.
type HealthScore struct {
	Overall         float64          `json:"overall"`
	Breakdown       Breakdown        `json:"breakdown"`
	Rating          Rating           `json:"rating"`
	Recommendations []Recommendation `json:"recommendations"`
}

// SecurityState holds the machine's security posture. Nil means the state
// could not be determined; unknown is penalized, not skipped.
type SecurityState struct {
	IntegrityProtection *bool `json:"integrity_protection"`
	AppAllowlisting     *bool `json:"app_allowlisting"`
	Firewall            *bool `json:"firewall"`
}

// Input is the configuration side of the scoring function.
type Input struct {
	Monitoring    config.MonitoringConfig
	Notifications config.NotificationConfig
	Installation  config.InstallationConfig
	Security      SecurityState
}

// Score computes the composite health score for a snapshot and
// configuration. Pure function; the snapshot may be nil (scores degrade,
// nothing fails).
func Score(s *models.Snapshot, in Input) HealthScore {
	perf, perfRecs := scorePerformance(s)
	stab, stabRecs := scoreStability(s)
	sec, secRecs := scoreSecurity(in.Security)
	cfg, cfgRecs := scoreConfiguration(in)

	overall := clamp(perf.Score*weightPerformance +
		stab.Score*weightStability +
		sec.Score*weightSecurity +
		cfg.Score*weightConfiguration)

	// Category order fixes the tie-break: performance, stability,
	// security, configuration. The sort is stable.
	recs := append(append(append(perfRecs, stabRecs...), secRecs...), cfgRecs...)
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Weight() > recs[j].Priority.Weight()
	})

	return HealthScore{
		Overall:         overall,
		Breakdown:       Breakdown{Performance: perf, Stability: stab, Security: sec, Configuration: cfg},
		Rating:          Rate(overall),
		Recommendations: recs,
	}
}

// Rate maps an overall score to its qualitative band.
func Rate(overall float64) Rating {
	switch {
	case overall >= 90:
		return RatingExcellent
	case overall >= 75:
		return RatingGood
	case overall >= 60:
		return RatingFair
	case overall >= 40:
		return RatingPoor
	default:
		return RatingCritical
	}
}

// acceptableScore is the cutoff below which a factor contributes
// recommendations.
const acceptableScore = 80

// priorityForScore derives a recommendation priority from the severity of
// the contributing factor.
func priorityForScore(score float64) Priority {
	switch {
	case score < 40:
		return PriorityCritical
	case score < 60:
		return PriorityHigh
	case score < 80:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
