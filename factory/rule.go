/*
Package factory provides JSON to Go incentive rule conversion.

PURPOSE:
  Converts JSON rule definitions into incentive.Rule values. This enables
  rule configuration without code changes - sales ops can define commission
  bands and tiers in JSON, and the factory creates the proper Go structs.

WHY JSON?
  - Non-developers can modify rules
  - Easy integration with admin UI
  - Version control for rule definitions
  - Database storage of rule configs

JSON SCHEMA:
  {
    "id": "standard-band",
    "name": "Standard Commission Band",
    "commission_rate_min": 0,
    "commission_rate_max": 10,
    "min_commission_threshold": 500,
    "base_revenue_threshold": 0,
    "is_active": true,
    "tiers": [
      {"revenue_threshold": 0, "incentive_rate": 5},
      {"revenue_threshold": 1000000, "incentive_rate": 10}
    ]
  }

VALIDATION:
  - Band bounds in [0, 100], min <= max
  - Thresholds non-negative
  - Tier rates in [0, 100]
  - Tier thresholds strictly increasing once sorted; the calculator's
    sweep is undefined for non-monotonic thresholds, so malformed
    configurations are rejected here instead of guessed at later

USAGE:
  f := factory.NewRuleFactory()
  rule, err := f.ParseRule(jsonString)

SEE ALSO:
  - incentive/types.go: Rule and Tier definitions
  - api/handlers.go: Rule creation endpoint
*/
package factory

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/incentive-engine/incentive"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleJSON is the JSON representation of an incentive rule.
type RuleJSON struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	CommissionRateMin      float64    `json:"commission_rate_min"`
	CommissionRateMax      float64    `json:"commission_rate_max"`
	MinCommissionThreshold float64    `json:"min_commission_threshold"`
	BaseRevenueThreshold   float64    `json:"base_revenue_threshold,omitempty"`
	IsActive               *bool      `json:"is_active,omitempty"` // default true
	Tiers                  []TierJSON `json:"tiers"`
}

// TierJSON represents one revenue tier.
type TierJSON struct {
	RevenueThreshold float64 `json:"revenue_threshold"`
	IncentiveRate    float64 `json:"incentive_rate"`
}

// =============================================================================
// RULE FACTORY
// =============================================================================

// RuleFactory converts JSON rule configs to incentive.Rule values.
type RuleFactory struct{}

func NewRuleFactory() *RuleFactory {
	return &RuleFactory{}
}

// ParseRule parses and validates a JSON rule definition.
func (f *RuleFactory) ParseRule(configJSON string) (*incentive.Rule, error) {
	var cfg RuleJSON
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse rule JSON: %w", err)
	}
	return f.FromConfig(cfg)
}

// FromConfig converts an already-decoded config into a validated rule.
// Tiers are returned sorted ascending by revenue threshold.
func (f *RuleFactory) FromConfig(cfg RuleJSON) (*incentive.Rule, error) {
	if cfg.ID == "" {
		return nil, &incentive.RuleConfigError{Field: "id", Detail: "required"}
	}

	rule := &incentive.Rule{
		ID:                     incentive.RuleID(cfg.ID),
		Name:                   cfg.Name,
		CommissionRateMin:      decimal.NewFromFloat(cfg.CommissionRateMin),
		CommissionRateMax:      decimal.NewFromFloat(cfg.CommissionRateMax),
		MinCommissionThreshold: decimal.NewFromFloat(cfg.MinCommissionThreshold),
		BaseRevenueThreshold:   decimal.NewFromFloat(cfg.BaseRevenueThreshold),
		IsActive:               true,
	}
	if cfg.IsActive != nil {
		rule.IsActive = *cfg.IsActive
	}
	if rule.Name == "" {
		rule.Name = cfg.ID
	}

	for _, t := range cfg.Tiers {
		rule.Tiers = append(rule.Tiers, incentive.Tier{
			RevenueThreshold: decimal.NewFromFloat(t.RevenueThreshold),
			IncentiveRate:    decimal.NewFromFloat(t.IncentiveRate),
		})
	}
	sort.SliceStable(rule.Tiers, func(i, j int) bool {
		return rule.Tiers[i].RevenueThreshold.LessThan(rule.Tiers[j].RevenueThreshold)
	})

	if err := validateRule(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// ToJSON serializes a rule back to its JSON config form.
func (f *RuleFactory) ToJSON(rule incentive.Rule) (string, error) {
	active := rule.IsActive
	cfg := RuleJSON{
		ID:                     string(rule.ID),
		Name:                   rule.Name,
		CommissionRateMin:      mustFloat(rule.CommissionRateMin),
		CommissionRateMax:      mustFloat(rule.CommissionRateMax),
		MinCommissionThreshold: mustFloat(rule.MinCommissionThreshold),
		BaseRevenueThreshold:   mustFloat(rule.BaseRevenueThreshold),
		IsActive:               &active,
	}
	for _, t := range rule.Tiers {
		cfg.Tiers = append(cfg.Tiers, TierJSON{
			RevenueThreshold: mustFloat(t.RevenueThreshold),
			IncentiveRate:    mustFloat(t.IncentiveRate),
		})
	}
	out, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to serialize rule: %w", err)
	}
	return string(out), nil
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// =============================================================================
// VALIDATION
// =============================================================================

var percentMax = decimal.NewFromInt(100)

func validateRule(rule *incentive.Rule) error {
	if rule.CommissionRateMin.IsNegative() || rule.CommissionRateMin.GreaterThan(percentMax) {
		return &incentive.RuleConfigError{RuleID: rule.ID, Field: "commission_rate_min", Detail: "must be between 0 and 100"}
	}
	if rule.CommissionRateMax.IsNegative() || rule.CommissionRateMax.GreaterThan(percentMax) {
		return &incentive.RuleConfigError{RuleID: rule.ID, Field: "commission_rate_max", Detail: "must be between 0 and 100"}
	}
	if rule.CommissionRateMax.LessThan(rule.CommissionRateMin) {
		return &incentive.RuleConfigError{RuleID: rule.ID, Field: "commission_rate_max", Detail: "must not be below commission_rate_min"}
	}
	if rule.MinCommissionThreshold.IsNegative() {
		return &incentive.RuleConfigError{RuleID: rule.ID, Field: "min_commission_threshold", Detail: "must not be negative"}
	}
	if rule.BaseRevenueThreshold.IsNegative() {
		return &incentive.RuleConfigError{RuleID: rule.ID, Field: "base_revenue_threshold", Detail: "must not be negative"}
	}

	prev := decimal.NewFromInt(-1)
	for i, t := range rule.Tiers {
		if t.RevenueThreshold.IsNegative() {
			return &incentive.RuleConfigError{RuleID: rule.ID, Field: fmt.Sprintf("tiers[%d].revenue_threshold", i), Detail: "must not be negative"}
		}
		if t.IncentiveRate.IsNegative() || t.IncentiveRate.GreaterThan(percentMax) {
			return &incentive.RuleConfigError{RuleID: rule.ID, Field: fmt.Sprintf("tiers[%d].incentive_rate", i), Detail: "must be between 0 and 100"}
		}
		// Strictly increasing thresholds keep the tier sweep well-defined.
		if !t.RevenueThreshold.GreaterThan(prev) {
			return &incentive.RuleConfigError{RuleID: rule.ID, Field: fmt.Sprintf("tiers[%d].revenue_threshold", i), Detail: "tier thresholds must be strictly increasing"}
		}
		prev = t.RevenueThreshold
	}
	return nil
}
