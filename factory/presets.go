/*
presets.go - Ready-made rule JSON builders

PURPOSE:
  Common rule shapes as JSON strings, used by demo scenarios and tests.
  These go through the same ParseRule path as operator-supplied JSON, so
  presets stay subject to validation.

SEE ALSO:
  - rule.go: ParseRule and validation
  - api/scenarios.go: Scenario seeding
*/
package factory

import "fmt"

// StandardBandJSON builds a two-tier graduated rule: lowRate percent up to
// breakpoint revenue, highRate percent above it, eligible for commission
// rates in [rateMin, rateMax].
func StandardBandJSON(id, name string, rateMin, rateMax, minCommission, breakpoint, lowRate, highRate float64) string {
	return fmt.Sprintf(`{
		"id": %q,
		"name": %q,
		"commission_rate_min": %g,
		"commission_rate_max": %g,
		"min_commission_threshold": %g,
		"tiers": [
			{"revenue_threshold": 0, "incentive_rate": %g},
			{"revenue_threshold": %g, "incentive_rate": %g}
		]
	}`, id, name, rateMin, rateMax, minCommission, lowRate, breakpoint, highRate)
}

// FlatRateJSON builds a single-tier rule: one rate on all qualifying
// revenue above the threshold.
func FlatRateJSON(id, name string, rateMin, rateMax, minCommission, threshold, rate float64) string {
	return fmt.Sprintf(`{
		"id": %q,
		"name": %q,
		"commission_rate_min": %g,
		"commission_rate_max": %g,
		"min_commission_threshold": %g,
		"tiers": [
			{"revenue_threshold": %g, "incentive_rate": %g}
		]
	}`, id, name, rateMin, rateMax, minCommission, threshold, rate)
}
