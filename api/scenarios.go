/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates users, accounts,
	sales records, and rules that demonstrate specific engine behavior.

AVAILABLE SCENARIOS:

	quarter-close:    Team of reps against a two-tier graduated rule
	single-tier:      Flat-rate rule with the top tier reached
	no-matching-rule: Commission rate falling between rule bands
	threshold-miss:   Big-revenue account excluded by commission minimum

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create users and accounts
 3. Create rules via factory presets
 4. Upload sales records
 5. Refresh the name directory

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "quarter-close"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - factory/presets.go: Rule JSON presets
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/incentive-engine/factory"
	"github.com/warp/incentive-engine/incentive"
	"github.com/warp/incentive-engine/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "quarter-close",
		Name:        "Quarter Close",
		Description: "Three reps against a two-tier graduated rule: one past the breakpoint, one mid-tier, one below the commission minimum",
	},
	{
		ID:          "single-tier",
		Name:        "Single Tier",
		Description: "Flat-rate rule with qualifying revenue past the only threshold (top tier reached)",
	},
	{
		ID:          "no-matching-rule",
		Name:        "No Matching Rule",
		Description: "Commission rate of 7% with bands covering [0,5) and [10,100]: valid zero-incentive outcome",
	},
	{
		ID:          "threshold-miss",
		Name:        "Threshold Miss",
		Description: "A large-revenue account whose commission misses the rule minimum contributes nothing to tiers",
	},
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": h.currentScenario})
}

// LoadScenario resets the database and loads the requested scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	var err error
	switch req.ScenarioID {
	case "quarter-close":
		err = h.loadQuarterCloseScenario(ctx)
	case "single-tier":
		err = h.loadSingleTierScenario(ctx)
	case "no-matching-rule":
		err = h.loadNoMatchingRuleScenario(ctx)
	case "threshold-miss":
		err = h.loadThresholdMissScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	h.refreshDirectory(ctx)

	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ScenarioID})
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	h.Directory.Replace(nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) refreshDirectory(ctx context.Context) {
	if users, err := h.Store.ListUsers(ctx); err == nil {
		h.Directory.Replace(users)
	}
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

type seedUser struct {
	id, name, role string
}

type seedAccount struct {
	id, userID, name string
}

type seedSales struct {
	accountID  string
	period     string
	purchases  float64
	commission float64
}

func (h *Handler) seed(ctx context.Context, users []seedUser, accounts []seedAccount, sales []seedSales, ruleJSONs []string) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}

	for _, u := range users {
		if err := h.Store.SaveUser(ctx, sqlite.UserRecord{ID: u.id, Name: u.name, Role: u.role}); err != nil {
			return err
		}
	}
	for _, a := range accounts {
		err := h.Store.SaveAccount(ctx, incentive.Account{
			ID:     incentive.AccountID(a.id),
			UserID: incentive.UserID(a.userID),
			Name:   a.name,
		})
		if err != nil {
			return err
		}
	}

	var records []incentive.SalesRecord
	for _, s := range sales {
		records = append(records, incentive.SalesRecord{
			AccountID:       incentive.AccountID(s.accountID),
			Period:          s.period,
			TotalPurchases:  decimal.NewFromFloat(s.purchases),
			GrossCommission: decimal.NewFromFloat(s.commission),
		})
	}
	if len(records) > 0 {
		if err := h.Store.SaveSalesBatch(ctx, records); err != nil {
			return err
		}
	}

	for i, cfg := range ruleJSONs {
		rule, err := h.RuleFactory.ParseRule(cfg)
		if err != nil {
			return err
		}
		configJSON, err := h.RuleFactory.ToJSON(*rule)
		if err != nil {
			return err
		}
		err = h.Store.SaveRule(ctx, sqlite.RuleRecord{
			ID:         string(rule.ID),
			Name:       rule.Name,
			ConfigJSON: configJSON,
			IsActive:   rule.IsActive,
			Position:   i,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadQuarterCloseScenario: three reps under one two-tier rule.
//
//	alice:  2.4M qualifying revenue, past the 1M breakpoint
//	bob:    600K, still in the first tier
//	carol:  healthy revenue but commission below the minimum -> no tiers
func (h *Handler) loadQuarterCloseScenario(ctx context.Context) error {
	return h.seed(ctx,
		[]seedUser{
			{"admin-1", "Dana Admin", "admin"},
			{"rep-alice", "Alice Moreau", "sales"},
			{"rep-bob", "Bob Tanaka", "sales"},
			{"rep-carol", "Carol Osei", "sales"},
		},
		[]seedAccount{
			{"acct-a1", "rep-alice", "Northwind"},
			{"acct-a2", "rep-alice", "Contoso"},
			{"acct-b1", "rep-bob", "Fabrikam"},
			{"acct-c1", "rep-carol", "Adventure Works"},
		},
		[]seedSales{
			{"acct-a1", "2026-07", 1_500_000, 60_000},
			{"acct-a2", "2026-07", 900_000, 36_000},
			{"acct-b1", "2026-07", 600_000, 24_000},
			{"acct-c1", "2026-07", 800_000, 300}, // commission below minimum
		},
		[]string{
			factory.StandardBandJSON("standard-band", "Standard Commission Band",
				0, 10, 500, 1_000_000, 5, 10),
		},
	)
}

// loadSingleTierScenario: one flat-rate tier, revenue beyond it.
// Demonstrates the top-tier terminal state: no next tier, progress 100.
func (h *Handler) loadSingleTierScenario(ctx context.Context) error {
	return h.seed(ctx,
		[]seedUser{
			{"rep-dave", "Dave Lindqvist", "sales"},
		},
		[]seedAccount{
			{"acct-d1", "rep-dave", "Tailspin"},
		},
		[]seedSales{
			{"acct-d1", "2026-07", 750_000, 30_000},
		},
		[]string{
			factory.FlatRateJSON("flat-rate", "Flat Rate", 0, 100, 500, 500_000, 8),
		},
	)
}

// loadNoMatchingRuleScenario: 7% commission rate, bands [0,5) and [10,100].
// The dashboard shows a zero-incentive row with no applied rule.
func (h *Handler) loadNoMatchingRuleScenario(ctx context.Context) error {
	return h.seed(ctx,
		[]seedUser{
			{"rep-erin", "Erin Walsh", "sales"},
		},
		[]seedAccount{
			{"acct-e1", "rep-erin", "Wingtip"},
		},
		[]seedSales{
			{"acct-e1", "2026-07", 1_000_000, 70_000}, // 7% rate
		},
		[]string{
			factory.StandardBandJSON("low-band", "Low Band", 0, 4.99, 500, 1_000_000, 5, 10),
			factory.StandardBandJSON("high-band", "High Band", 10, 100, 500, 1_000_000, 3, 6),
		},
	)
}

// loadThresholdMissScenario: one qualifying account plus one with large
// revenue whose commission misses the rule minimum.
func (h *Handler) loadThresholdMissScenario(ctx context.Context) error {
	return h.seed(ctx,
		[]seedUser{
			{"rep-femi", "Femi Adeyemi", "sales"},
		},
		[]seedAccount{
			{"acct-f1", "rep-femi", "Proseware"},
			{"acct-f2", "rep-femi", "Litware"},
		},
		[]seedSales{
			{"acct-f1", "2026-07", 400_000, 20_000},
			{"acct-f2", "2026-07", 5_000_000, 100}, // excluded from tiers
		},
		[]string{
			factory.StandardBandJSON("standard-band", "Standard Commission Band",
				0, 10, 500, 1_000_000, 5, 10),
		},
	)
}
