package health

import "fmt"

// scoreSecurity applies three independent checks with fixed penalties:
// integrity protection 40, application allowlisting 30, firewall 30.
// Unknown state is penalized the same as disabled — on an unattended
// machine an unverifiable protection cannot be trusted.
func scoreSecurity(state SecurityState) (CategoryScore, []Recommendation) {
	type check struct {
		name     string
		enabled  *bool
		penalty  float64
		priority Priority
		action   string
	}
	checks := []check{
		{name: "Integrity protection", enabled: state.IntegrityProtection, penalty: 40, priority: PriorityHigh,
			action: "Re-enable system integrity protection"},
		{name: "Application allowlisting", enabled: state.AppAllowlisting, penalty: 30, priority: PriorityMedium,
			action: "Restrict the machine to the approved application set"},
		{name: "Firewall", enabled: state.Firewall, penalty: 30, priority: PriorityMedium,
			action: "Enable the system firewall"},
	}

	score := 100.0
	var factors []string
	var recs []Recommendation

	for _, c := range checks {
		switch {
		case c.enabled != nil && *c.enabled:
			factors = append(factors, fmt.Sprintf("%s enabled", c.name))
		default:
			state := "disabled"
			if c.enabled == nil {
				state = "unknown"
			}
			score -= c.penalty
			factors = append(factors, fmt.Sprintf("%s %s (-%.0f)", c.name, state, c.penalty))
			recs = append(recs, Recommendation{
				Category:    "security",
				Priority:    c.priority,
				Title:       fmt.Sprintf("%s is %s", c.name, state),
				Description: fmt.Sprintf("%s could not be confirmed on this machine.", c.name),
				Action:      c.action,
				Impact:      "Hardens an unattended, publicly accessible machine",
			})
		}
	}

	return CategoryScore{Score: clamp(score), Factors: factors}, recs
}
