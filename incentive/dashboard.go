/*
dashboard.go - Per-user aggregation, filtering, and sorting

PURPOSE:
  Builds the dashboard view from calculation results. Runs the calculator
  once per user (every distinct user with accounts for admins, only the
  viewer for sales users), resolves display names, and orders the rows.

VISIBILITY:
  RoleAdmin: one row per distinct user id derived from the account list
  RoleSales: a single row for the viewer's own accounts

ORDERING:
  Rows default to descending incentive amount. Filter and Sort are pure
  presentation passes over a built row set; they never touch the
  underlying calculations.

SEE ALSO:
  - calculator.go: Produces the per-user Calculation
  - directory.go: Name resolution with truncated-id fallback
*/
package incentive

import "sort"

// =============================================================================
// ROWS
// =============================================================================

// Row is one dashboard line: a calculation plus the resolved display name.
type Row struct {
	UserName string
	*Calculation
}

// =============================================================================
// BUILD
// =============================================================================

// Build produces dashboard rows for the given viewer.
//
// Admins get a row for every distinct user id appearing in the account
// list, in first-seen order before sorting. Other roles get at most one
// row, for the viewer's own accounts. Users for whom Calculate returns nil
// (no accounts) produce no row; with zero active rules the result is empty.
//
// Rows are sorted by descending incentive amount.
func Build(viewerID UserID, role Role, accounts []Account, sales []SalesRecord, rules []Rule, dir *Directory) []Row {
	var userIDs []UserID
	if role == RoleAdmin {
		seen := make(map[UserID]bool)
		for _, a := range accounts {
			if !seen[a.UserID] {
				seen[a.UserID] = true
				userIDs = append(userIDs, a.UserID)
			}
		}
	} else {
		userIDs = []UserID{viewerID}
	}

	rows := make([]Row, 0, len(userIDs))
	for _, id := range userIDs {
		calc := Calculate(id, accounts, sales, rules)
		if calc == nil {
			continue
		}
		rows = append(rows, Row{
			UserName:    dir.DisplayName(id),
			Calculation: calc,
		})
	}

	Sort(rows, SortByIncentive, false)
	return rows
}

// =============================================================================
// FILTERING
// =============================================================================

// Filter selects which rows to display.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterEarning    Filter = "earning"     // positive incentive only
	FilterNotEarning Filter = "not_earning" // zero incentive
)

// Apply returns the rows matching the filter. The input is not modified.
func (f Filter) Apply(rows []Row) []Row {
	if f == FilterAll || f == "" {
		return rows
	}

	filtered := make([]Row, 0, len(rows))
	for _, row := range rows {
		earning := row.IsEarning()
		if (f == FilterEarning && earning) || (f == FilterNotEarning && !earning) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

// =============================================================================
// SORTING
// =============================================================================

// SortField selects the column to order by.
type SortField string

const (
	SortByIncentive  SortField = "incentive"
	SortByRevenue    SortField = "revenue"
	SortByCommission SortField = "commission"
	SortByRate       SortField = "rate"
)

// Sort orders rows in place by the given field.
// ascending=false gives the default leaderboard order (largest first).
func Sort(rows []Row, field SortField, ascending bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		var less bool
		switch field {
		case SortByRevenue:
			less = a.TotalRevenue.LessThan(b.TotalRevenue)
		case SortByCommission:
			less = a.TotalCommission.LessThan(b.TotalCommission)
		case SortByRate:
			less = a.CommissionRate.LessThan(b.CommissionRate)
		default:
			less = a.IncentiveAmount.LessThan(b.IncentiveAmount)
		}
		if ascending {
			return less
		}
		return !less && !equalField(a, b, field)
	})
}

func equalField(a, b Row, field SortField) bool {
	switch field {
	case SortByRevenue:
		return a.TotalRevenue.Equal(b.TotalRevenue)
	case SortByCommission:
		return a.TotalCommission.Equal(b.TotalCommission)
	case SortByRate:
		return a.CommissionRate.Equal(b.CommissionRate)
	default:
		return a.IncentiveAmount.Equal(b.IncentiveAmount)
	}
}
