/*
Package incentive provides the core sales incentive calculation engine.

PURPOSE:
  This package contains the domain types and the pure calculation that turns
  raw sales data into incentive earnings. Given a user's managed accounts,
  the sales records for a period, and a set of tiered commission rules, it
  answers one question: how much incentive has this user earned, and how far
  are they from the next tier?

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: A customer account managed by exactly one user
  - SalesRecord: Revenue and commission for one account in one period
  - Rule: An eligibility band on commission rate with ordered revenue tiers
  - Tier: A revenue threshold paired with an incentive rate
  - Calculation: The derived per-user result (never persisted)

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all money and rate math
  2. Purity: Calculation is derived from inputs and discarded, never stored
  3. Read-only inputs: Accounts, sales, and rules arrive from the
     persistence boundary and are never mutated here
  4. Type Safety: Strong typing for IDs prevents mixing user/account IDs

USAGE:
  calc := incentive.Calculate("user-1", accounts, sales, rules)
  if calc == nil {
      // zero accounts or zero active rules - nothing to show
  }

SEE ALSO:
  - calculator.go: The tiered incentive algorithm
  - dashboard.go: Per-user aggregation, filtering, and sorting
  - directory.go: Display-name resolution
*/
package incentive

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type AccountID string
type RuleID string

// =============================================================================
// USERS AND ROLES
// =============================================================================

// Role controls how much of the dashboard a user can see.
type Role string

const (
	// RoleAdmin sees incentive calculations for every user with accounts.
	RoleAdmin Role = "admin"

	// RoleSales sees only their own calculation.
	RoleSales Role = "sales"
)

// User is a directory record. Only ID and Name participate in the
// calculation path (via Directory); Role gates dashboard visibility.
type User struct {
	ID    UserID
	Name  string
	Email string
	Role  Role
}

// =============================================================================
// ACCOUNTS AND SALES DATA
// =============================================================================

// Account belongs to exactly one user.
type Account struct {
	ID     AccountID
	UserID UserID
	Name   string
}

// SalesRecord holds revenue and commission for one account in one period.
// Many records may exist per account.
type SalesRecord struct {
	AccountID       AccountID
	Period          string // e.g. "2026-07"
	TotalPurchases  decimal.Decimal
	GrossCommission decimal.Decimal
}

// =============================================================================
// RULES AND TIERS
// =============================================================================

// Tier pairs a revenue threshold with the incentive rate (percent) applied
// to the revenue band above it. Tiers are graduated: each rate applies only
// to the slice of revenue between its threshold and the next.
type Tier struct {
	RevenueThreshold decimal.Decimal
	IncentiveRate    decimal.Decimal // percent, e.g. 5 means 5%
}

// Rule defines an eligibility band keyed on aggregate commission rate.
// A user's calculation is governed by the FIRST rule (in input order) whose
// band contains their commission rate.
type Rule struct {
	ID   RuleID
	Name string

	// Eligibility band on commission rate, both bounds in percent.
	// A max of exactly 100 is treated as an open-ended upper bound.
	CommissionRateMin decimal.Decimal
	CommissionRateMax decimal.Decimal

	// An account qualifies under this rule only if its aggregate commission
	// meets this threshold. Non-qualifying accounts contribute no revenue
	// to the tier walk.
	MinCommissionThreshold decimal.Decimal

	// Starting point for progress measurement before the first tier is hit.
	BaseRevenueThreshold decimal.Decimal

	IsActive bool

	// Evaluated in ascending RevenueThreshold order.
	Tiers []Tier
}

// openEndedMax is the sentinel upper bound: a rule with max 100 accepts any
// commission rate at or above its min.
var openEndedMax = decimal.NewFromInt(100)

// Matches reports whether the given commission rate (percent) falls inside
// this rule's eligibility band.
func (r Rule) Matches(rate decimal.Decimal) bool {
	if rate.LessThan(r.CommissionRateMin) {
		return false
	}
	if r.CommissionRateMax.Equal(openEndedMax) {
		return true
	}
	return rate.LessThanOrEqual(r.CommissionRateMax)
}

// =============================================================================
// CALCULATION - Derived per-user output (never persisted)
// =============================================================================

// Calculation is the per-user result of the incentive engine. It is
// recomputed from current inputs on every evaluation and discarded.
//
// AppliedRule == nil is a valid terminal outcome (no rule band contained the
// commission rate), not an error: incentive is zero and tier/progress fields
// are zeroed.
type Calculation struct {
	UserID UserID

	// Aggregates over ALL of the user's sales rows.
	TotalRevenue    decimal.Decimal
	TotalCommission decimal.Decimal
	CommissionRate  decimal.Decimal // percent; 0 when TotalRevenue is 0

	// The matched rule, or nil when no band contains CommissionRate.
	AppliedRule *Rule

	// Revenue from qualifying accounts only (per-account commission meets
	// the rule's MinCommissionThreshold).
	QualifyingRevenue  decimal.Decimal
	QualifyingAccounts int
	AccountCount       int

	// Tier state. CurrentTier is the highest tier reached; NextTier is the
	// first tier not yet reached (nil when the top tier is reached).
	CurrentTier *Tier
	NextTier    *Tier

	IncentiveAmount     decimal.Decimal
	ProgressPercent     decimal.Decimal // clamped to [0, 100]
	RemainingToNextTier decimal.Decimal // never negative
}

// IsEarning reports whether the user has a positive incentive amount.
func (c *Calculation) IsEarning() bool {
	return c.IncentiveAmount.IsPositive()
}
