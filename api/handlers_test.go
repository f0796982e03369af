package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/warp/incentive-engine/api"
	"github.com/warp/incentive-engine/store/sqlite"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return api.NewRouter(api.NewHandler(store))
}

func doJSON(t *testing.T, server http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v (body: %s)", err, rec.Body.String())
	}
	return out
}

func loadScenario(t *testing.T, server http.Handler, id string) {
	t.Helper()
	rec := doJSON(t, server, http.MethodPost, "/api/scenarios/load", api.LoadScenarioRequest{ScenarioID: id})
	if rec.Code != http.StatusOK {
		t.Fatalf("failed to load scenario %s: %d %s", id, rec.Code, rec.Body.String())
	}
}

func getDashboard(t *testing.T, server http.Handler, query string) api.DashboardDTO {
	t.Helper()
	rec := doJSON(t, server, http.MethodGet, "/api/dashboard"+query, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard request failed: %d %s", rec.Code, rec.Body.String())
	}
	return decode[api.DashboardDTO](t, rec)
}

// =============================================================================
// DASHBOARD
// =============================================================================

func TestDashboard_QuarterClose(t *testing.T) {
	// GIVEN: The quarter-close scenario (two-tier rule, three reps)
	// WHEN: An admin requests the dashboard
	// THEN: Rows come back ordered by descending incentive with graduated math

	server := newTestServer(t)
	loadScenario(t, server, "quarter-close")

	dash := getDashboard(t, server, "")

	if len(dash.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(dash.Rows))
	}

	alice := dash.Rows[0]
	if alice.UserName != "Alice Moreau" {
		t.Fatalf("expected Alice first, got %s", alice.UserName)
	}
	// 1M x 5% + 1.4M x 10%
	if alice.IncentiveAmount != 190_000 {
		t.Errorf("alice incentive: expected 190000, got %v", alice.IncentiveAmount)
	}
	if alice.TotalRevenue != 2_400_000 || alice.CommissionRate != 4 {
		t.Errorf("alice aggregates: got revenue %v rate %v", alice.TotalRevenue, alice.CommissionRate)
	}
	if alice.NextTier != nil || alice.ProgressPercent != 100 {
		t.Errorf("alice should be at the top tier, got next=%v progress=%v", alice.NextTier, alice.ProgressPercent)
	}

	bob := dash.Rows[1]
	if bob.IncentiveAmount != 30_000 {
		t.Errorf("bob incentive: expected 30000 (600K x 5%%), got %v", bob.IncentiveAmount)
	}
	if bob.NextTier == nil || bob.NextTier.RevenueThreshold != 1_000_000 {
		t.Errorf("bob next tier: expected 1000000, got %+v", bob.NextTier)
	}
	if bob.ProgressPercent != 60 || bob.RemainingToNextTier != 400_000 {
		t.Errorf("bob progress: got %v%%, remaining %v", bob.ProgressPercent, bob.RemainingToNextTier)
	}

	carol := dash.Rows[2]
	if carol.IncentiveAmount != 0 {
		t.Errorf("carol incentive: expected 0 (commission below minimum), got %v", carol.IncentiveAmount)
	}
	if carol.QualifyingAccounts != 0 || carol.QualifyingRevenue != 0 {
		t.Errorf("carol should have no qualifying accounts, got %d / %v", carol.QualifyingAccounts, carol.QualifyingRevenue)
	}
	if carol.AppliedRuleID != "standard-band" {
		t.Errorf("carol still matches the rule band, got applied rule %q", carol.AppliedRuleID)
	}
}

func TestDashboard_SalesViewerSeesOnlySelf(t *testing.T) {
	server := newTestServer(t)
	loadScenario(t, server, "quarter-close")

	dash := getDashboard(t, server, "?viewer=rep-bob")

	if len(dash.Rows) != 1 {
		t.Fatalf("expected 1 row for sales viewer, got %d", len(dash.Rows))
	}
	if dash.Rows[0].UserID != "rep-bob" {
		t.Errorf("expected rep-bob's row, got %s", dash.Rows[0].UserID)
	}
}

func TestDashboard_UnknownViewer(t *testing.T) {
	server := newTestServer(t)
	loadScenario(t, server, "quarter-close")

	rec := doJSON(t, server, http.MethodGet, "/api/dashboard?viewer=nobody", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown viewer, got %d", rec.Code)
	}
}

func TestDashboard_FilterAndSort(t *testing.T) {
	// GIVEN: The quarter-close scenario (alice and bob earning, carol not)
	// WHEN: Filtering and re-sorting
	// THEN: Filter narrows the rows, sort reorders them

	server := newTestServer(t)
	loadScenario(t, server, "quarter-close")

	earning := getDashboard(t, server, "?filter=earning")
	if len(earning.Rows) != 2 {
		t.Fatalf("earning filter: expected 2 rows, got %d", len(earning.Rows))
	}

	notEarning := getDashboard(t, server, "?filter=not_earning")
	if len(notEarning.Rows) != 1 || notEarning.Rows[0].UserID != "rep-carol" {
		t.Fatalf("not_earning filter: expected carol only, got %+v", notEarning.Rows)
	}

	byRevenueAsc := getDashboard(t, server, "?sort=revenue&order=asc")
	if byRevenueAsc.Rows[0].UserID != "rep-bob" {
		t.Errorf("revenue ascending: expected bob (600K) first, got %s", byRevenueAsc.Rows[0].UserID)
	}
	if byRevenueAsc.Sort != "revenue" || byRevenueAsc.Order != "asc" {
		t.Errorf("view params not echoed: %+v", byRevenueAsc)
	}
}

func TestDashboard_NoMatchingRuleScenario(t *testing.T) {
	// GIVEN: A 7% commission rate between rule bands
	// WHEN: Requesting the dashboard
	// THEN: A normal zero-incentive row with no applied rule (not an error)

	server := newTestServer(t)
	loadScenario(t, server, "no-matching-rule")

	dash := getDashboard(t, server, "")

	if len(dash.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(dash.Rows))
	}
	row := dash.Rows[0]
	if row.AppliedRuleID != "" {
		t.Errorf("expected no applied rule, got %q", row.AppliedRuleID)
	}
	if row.CommissionRate != 7 || row.IncentiveAmount != 0 {
		t.Errorf("expected rate 7 with zero incentive, got rate %v incentive %v", row.CommissionRate, row.IncentiveAmount)
	}
}

func TestDashboard_ThresholdMissScenario(t *testing.T) {
	// GIVEN: One qualifying account and one big-revenue account whose
	//        commission misses the minimum
	// WHEN: Requesting the dashboard
	// THEN: Only the qualifying account feeds the tiers

	server := newTestServer(t)
	loadScenario(t, server, "threshold-miss")

	dash := getDashboard(t, server, "")

	row := dash.Rows[0]
	if row.AccountCount != 2 || row.QualifyingAccounts != 1 {
		t.Errorf("expected 1 of 2 accounts qualifying, got %d of %d", row.QualifyingAccounts, row.AccountCount)
	}
	if row.QualifyingRevenue != 400_000 {
		t.Errorf("qualifying revenue: expected 400000, got %v", row.QualifyingRevenue)
	}
	// 400K entirely in the 5% tier
	if row.IncentiveAmount != 20_000 {
		t.Errorf("incentive: expected 20000, got %v", row.IncentiveAmount)
	}
}

// =============================================================================
// SINGLE-USER INCENTIVE
// =============================================================================

func TestGetUserIncentive(t *testing.T) {
	server := newTestServer(t)
	loadScenario(t, server, "single-tier")

	rec := doJSON(t, server, http.MethodGet, "/api/users/rep-dave/incentive", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	calc := decode[api.CalculationDTO](t, rec)
	// (750K - 500K) x 8%
	if calc.IncentiveAmount != 20_000 {
		t.Errorf("expected incentive 20000, got %v", calc.IncentiveAmount)
	}
	if calc.NextTier != nil || calc.ProgressPercent != 100 || calc.RemainingToNextTier != 0 {
		t.Errorf("expected top-tier terminal state, got next=%v progress=%v remaining=%v",
			calc.NextTier, calc.ProgressPercent, calc.RemainingToNextTier)
	}
	if calc.UserName != "Dave Lindqvist" {
		t.Errorf("expected resolved name, got %q", calc.UserName)
	}
}

func TestGetUserIncentive_NoAccounts(t *testing.T) {
	server := newTestServer(t)
	loadScenario(t, server, "single-tier")

	rec := doJSON(t, server, http.MethodGet, "/api/users/nobody/incentive", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for user without accounts, got %d", rec.Code)
	}
}

// =============================================================================
// CRUD FLOW
// =============================================================================

func TestCreateFlow_UserAccountSalesRule(t *testing.T) {
	// GIVEN: An empty database
	// WHEN: Creating a user, account, sales batch, and rule via the API
	// THEN: The dashboard shows the resulting calculation

	server := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/api/users", api.CreateUserRequest{
		ID: "rep-zoe", Name: "Zoe Castillo", Role: "sales",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, server, http.MethodPost, "/api/accounts", api.CreateAccountRequest{
		ID: "acct-z1", UserID: "rep-zoe", Name: "Initech",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, server, http.MethodPost, "/api/sales", api.UploadSalesRequest{
		Records: []api.SalesRecordDTO{
			{AccountID: "acct-z1", Period: "2026-07", TotalPurchases: 600_000, GrossCommission: 24_000},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload sales: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	ruleBody := map[string]any{"config": json.RawMessage(fmt.Sprintf(`{
		"id": "standard-band",
		"commission_rate_min": 0,
		"commission_rate_max": 10,
		"min_commission_threshold": 500,
		"tiers": [
			{"revenue_threshold": 0, "incentive_rate": 5},
			{"revenue_threshold": %d, "incentive_rate": 10}
		]
	}`, 1_000_000))}
	rec = doJSON(t, server, http.MethodPost, "/api/rules", ruleBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create rule: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	dash := getDashboard(t, server, "")
	if len(dash.Rows) != 1 {
		t.Fatalf("expected 1 dashboard row, got %d", len(dash.Rows))
	}
	if dash.Rows[0].IncentiveAmount != 30_000 {
		t.Errorf("expected incentive 30000, got %v", dash.Rows[0].IncentiveAmount)
	}
	// CreateUser feeds the directory without waiting for a refresh
	if dash.Rows[0].UserName != "Zoe Castillo" {
		t.Errorf("expected resolved name, got %q", dash.Rows[0].UserName)
	}
}

func TestUploadSales_DuplicatePeriodConflicts(t *testing.T) {
	// GIVEN: A stored sales record for an account and period
	// WHEN: Uploading the same account and period again
	// THEN: 409 Conflict, batch rejected

	server := newTestServer(t)
	loadScenario(t, server, "single-tier")

	rec := doJSON(t, server, http.MethodPost, "/api/sales", api.UploadSalesRequest{
		Records: []api.SalesRecordDTO{
			{AccountID: "acct-d1", Period: "2026-07", TotalPurchases: 1, GrossCommission: 1},
		},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate period, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateAccount_UnknownOwner(t *testing.T) {
	server := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/api/accounts", api.CreateAccountRequest{
		ID: "acct-x", UserID: "ghost",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown owner, got %d", rec.Code)
	}
}

func TestCreateRule_InvalidConfig(t *testing.T) {
	// GIVEN: A rule config with non-increasing tier thresholds
	// WHEN: Creating it
	// THEN: 400 with a validation error

	server := newTestServer(t)

	body := map[string]any{"config": json.RawMessage(`{
		"id": "broken",
		"commission_rate_min": 0,
		"commission_rate_max": 10,
		"tiers": [
			{"revenue_threshold": 500, "incentive_rate": 5},
			{"revenue_threshold": 500, "incentive_rate": 10}
		]
	}`)}
	rec := doJSON(t, server, http.MethodPost, "/api/rules", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid rule config, got %d: %s", rec.Code, rec.Body.String())
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarios_ListLoadAndReset(t *testing.T) {
	server := newTestServer(t)

	rec := doJSON(t, server, http.MethodGet, "/api/scenarios", nil)
	list := decode[[]api.ScenarioDTO](t, rec)
	if len(list) == 0 {
		t.Fatal("expected scenarios to be listed")
	}

	loadScenario(t, server, "quarter-close")

	rec = doJSON(t, server, http.MethodGet, "/api/scenarios/current", nil)
	current := decode[map[string]string](t, rec)
	if current["scenario_id"] != "quarter-close" {
		t.Errorf("expected current scenario quarter-close, got %q", current["scenario_id"])
	}

	rec = doJSON(t, server, http.MethodPost, "/api/scenarios/reset", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset failed: %d", rec.Code)
	}

	dash := getDashboard(t, server, "")
	if len(dash.Rows) != 0 {
		t.Errorf("expected empty dashboard after reset, got %d rows", len(dash.Rows))
	}
}

func TestScenarios_UnknownID(t *testing.T) {
	server := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/api/scenarios/load", api.LoadScenarioRequest{ScenarioID: "nope"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown scenario, got %d", rec.Code)
	}
}
