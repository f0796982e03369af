package factory_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/incentive-engine/factory"
	"github.com/warp/incentive-engine/incentive"
)

// =============================================================================
// PARSING
// =============================================================================

func TestParseRule_FullConfig(t *testing.T) {
	// GIVEN: A complete JSON rule definition
	// WHEN: Parsing
	// THEN: All fields land, tiers sorted ascending

	f := factory.NewRuleFactory()
	rule, err := f.ParseRule(`{
		"id": "standard-band",
		"name": "Standard Commission Band",
		"commission_rate_min": 0,
		"commission_rate_max": 10,
		"min_commission_threshold": 500,
		"base_revenue_threshold": 100000,
		"tiers": [
			{"revenue_threshold": 1000000, "incentive_rate": 10},
			{"revenue_threshold": 0, "incentive_rate": 5}
		]
	}`)

	require.NoError(t, err)
	assert.Equal(t, incentive.RuleID("standard-band"), rule.ID)
	assert.Equal(t, "Standard Commission Band", rule.Name)
	assert.True(t, rule.IsActive, "is_active defaults to true")
	require.Len(t, rule.Tiers, 2)
	assert.True(t, rule.Tiers[0].RevenueThreshold.IsZero(), "tiers sorted ascending")
	assert.Equal(t, "1000000", rule.Tiers[1].RevenueThreshold.String())
}

func TestParseRule_Defaults(t *testing.T) {
	// GIVEN: A minimal config with no name and no is_active
	// WHEN: Parsing
	// THEN: Name defaults to the id, is_active defaults to true

	f := factory.NewRuleFactory()
	rule, err := f.ParseRule(`{
		"id": "minimal",
		"commission_rate_min": 0,
		"commission_rate_max": 100,
		"min_commission_threshold": 0,
		"tiers": [{"revenue_threshold": 0, "incentive_rate": 5}]
	}`)

	require.NoError(t, err)
	assert.Equal(t, "minimal", rule.Name)
	assert.True(t, rule.IsActive)
	assert.True(t, rule.BaseRevenueThreshold.IsZero())
}

func TestParseRule_ExplicitlyInactive(t *testing.T) {
	f := factory.NewRuleFactory()
	rule, err := f.ParseRule(`{
		"id": "paused",
		"commission_rate_min": 0,
		"commission_rate_max": 100,
		"min_commission_threshold": 0,
		"is_active": false,
		"tiers": [{"revenue_threshold": 0, "incentive_rate": 5}]
	}`)

	require.NoError(t, err)
	assert.False(t, rule.IsActive)
}

func TestParseRule_MalformedJSON(t *testing.T) {
	f := factory.NewRuleFactory()
	_, err := f.ParseRule(`{not json`)
	assert.Error(t, err)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestParseRule_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{
			name:   "missing id",
			config: `{"commission_rate_min": 0, "commission_rate_max": 10, "tiers": [{"revenue_threshold": 0, "incentive_rate": 5}]}`,
		},
		{
			name:   "band max below min",
			config: `{"id": "r", "commission_rate_min": 10, "commission_rate_max": 5, "tiers": [{"revenue_threshold": 0, "incentive_rate": 5}]}`,
		},
		{
			name:   "band min above 100",
			config: `{"id": "r", "commission_rate_min": 120, "commission_rate_max": 130, "tiers": [{"revenue_threshold": 0, "incentive_rate": 5}]}`,
		},
		{
			name:   "negative commission minimum",
			config: `{"id": "r", "commission_rate_min": 0, "commission_rate_max": 10, "min_commission_threshold": -1, "tiers": [{"revenue_threshold": 0, "incentive_rate": 5}]}`,
		},
		{
			name:   "tier rate above 100",
			config: `{"id": "r", "commission_rate_min": 0, "commission_rate_max": 10, "tiers": [{"revenue_threshold": 0, "incentive_rate": 150}]}`,
		},
		{
			name:   "negative tier threshold",
			config: `{"id": "r", "commission_rate_min": 0, "commission_rate_max": 10, "tiers": [{"revenue_threshold": -100, "incentive_rate": 5}]}`,
		},
		{
			name:   "duplicate tier thresholds",
			config: `{"id": "r", "commission_rate_min": 0, "commission_rate_max": 10, "tiers": [{"revenue_threshold": 500, "incentive_rate": 5}, {"revenue_threshold": 500, "incentive_rate": 10}]}`,
		},
	}

	f := factory.NewRuleFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseRule(tt.config)
			require.Error(t, err)
			assert.True(t, errors.Is(err, incentive.ErrInvalidRule), "expected ErrInvalidRule, got %v", err)
			assert.True(t, incentive.IsClientError(err))
		})
	}
}

// =============================================================================
// ROUND TRIP AND PRESETS
// =============================================================================

func TestToJSON_RoundTrip(t *testing.T) {
	// GIVEN: A parsed rule
	// WHEN: Serializing and re-parsing
	// THEN: The rule survives unchanged

	f := factory.NewRuleFactory()
	original, err := f.ParseRule(factory.StandardBandJSON("standard-band", "Standard",
		0, 10, 500, 1_000_000, 5, 10))
	require.NoError(t, err)

	out, err := f.ToJSON(*original)
	require.NoError(t, err)

	reparsed, err := f.ParseRule(out)
	require.NoError(t, err)

	assert.Equal(t, original.ID, reparsed.ID)
	assert.True(t, original.CommissionRateMax.Equal(reparsed.CommissionRateMax))
	require.Len(t, reparsed.Tiers, 2)
	assert.True(t, original.Tiers[1].RevenueThreshold.Equal(reparsed.Tiers[1].RevenueThreshold))
}

func TestPresets_PassValidation(t *testing.T) {
	f := factory.NewRuleFactory()

	band, err := f.ParseRule(factory.StandardBandJSON("band", "Band", 0, 10, 500, 1_000_000, 5, 10))
	require.NoError(t, err)
	assert.Len(t, band.Tiers, 2)

	flat, err := f.ParseRule(factory.FlatRateJSON("flat", "Flat", 0, 100, 500, 500_000, 8))
	require.NoError(t, err)
	assert.Len(t, flat.Tiers, 1)
}
