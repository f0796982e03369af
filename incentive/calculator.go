/*
calculator.go - The tiered incentive calculation

PURPOSE:
  Computes one user's incentive earnings from their accounts, the sales
  records, and the active rules. This is the heart of the engine: a pure,
  synchronous function with no side effects, invoked once per user per
  dashboard refresh.

ALGORITHM:
  1. Keep only sales rows belonging to the user's accounts
  2. Aggregate total revenue, total commission, and the commission rate
  3. Pick the FIRST rule (in input order) whose band contains the rate;
     no match is a valid zero-incentive outcome, not an error
  4. Determine qualifying accounts (per-account commission >= rule minimum)
  5. Sum qualifying revenue
  6. Walk tiers ascending, accruing graduated incentive per band, stopping
     at the first tier above qualifying revenue
  7. Measure progress toward the next tier

GRADUATED TIERS:
  Each tier's rate applies only to the revenue band between its threshold
  and the next tier's threshold (capped at qualifying revenue). With tiers
  [(0, 5%), (1,000,000, 10%)] and 1,500,000 qualifying revenue:

    1,000,000 x 5%  =  50,000   (first band)
      500,000 x 10% =  50,000   (second band, partial)
                      -------
                      100,000

EARLY EXIT:
  The walk stops at the first tier whose threshold exceeds qualifying
  revenue. Tiers beyond it are not evaluated. Behavior for non-increasing
  thresholds is undefined; RuleFactory rejects such configurations at
  creation time.

SEE ALSO:
  - types.go: Input and output types
  - dashboard.go: Invokes this once per user
*/
package incentive

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// CALCULATE - Per-user incentive computation
// =============================================================================

// Calculate computes the incentive earnings for one user.
//
// Returns nil when the user has zero accounts or there are zero active
// rules: there is nothing to calculate and nothing to display.
//
// The rules slice is scanned in order; the first active rule whose band
// contains the user's commission rate governs the calculation.
func Calculate(userID UserID, accounts []Account, sales []SalesRecord, rules []Rule) *Calculation {
	owned := ownedAccountIDs(userID, accounts)
	if len(owned) == 0 {
		return nil
	}
	if !hasActiveRule(rules) {
		return nil
	}

	// Step 1: sales rows belonging to the user's accounts.
	var userSales []SalesRecord
	for _, s := range sales {
		if owned[s.AccountID] {
			userSales = append(userSales, s)
		}
	}

	// Step 2: aggregates. Commission rate is 0 when revenue is 0 so the
	// division below can never fault.
	totalRevenue := decimal.Zero
	totalCommission := decimal.Zero
	for _, s := range userSales {
		totalRevenue = totalRevenue.Add(s.TotalPurchases)
		totalCommission = totalCommission.Add(s.GrossCommission)
	}
	commissionRate := decimal.Zero
	if totalRevenue.IsPositive() {
		commissionRate = totalCommission.Div(totalRevenue).Mul(hundred)
	}

	calc := &Calculation{
		UserID:              userID,
		TotalRevenue:        totalRevenue,
		TotalCommission:     totalCommission,
		CommissionRate:      commissionRate,
		QualifyingRevenue:   decimal.Zero,
		IncentiveAmount:     decimal.Zero,
		ProgressPercent:     decimal.Zero,
		RemainingToNextTier: decimal.Zero,
		AccountCount:        len(owned),
	}

	// Step 3: first matching rule wins.
	rule := selectRule(commissionRate, rules)
	if rule == nil {
		// Valid terminal outcome: no band contains the rate.
		return calc
	}
	calc.AppliedRule = rule

	// Steps 4-5: qualifying accounts and their revenue.
	calc.QualifyingRevenue, calc.QualifyingAccounts = qualifyingRevenue(owned, userSales, rule.MinCommissionThreshold)

	// Step 6: graduated tier walk.
	walkTiers(calc, rule)

	// Step 7: progress toward the next tier.
	measureProgress(calc, rule)

	return calc
}

// ownedAccountIDs returns the set of account IDs belonging to the user.
func ownedAccountIDs(userID UserID, accounts []Account) map[AccountID]bool {
	owned := make(map[AccountID]bool)
	for _, a := range accounts {
		if a.UserID == userID {
			owned[a.ID] = true
		}
	}
	return owned
}

func hasActiveRule(rules []Rule) bool {
	for _, r := range rules {
		if r.IsActive {
			return true
		}
	}
	return false
}

// selectRule returns the first active rule whose band contains the rate.
// Bands are non-overlapping by convention; first match is the tiebreak.
func selectRule(rate decimal.Decimal, rules []Rule) *Rule {
	for i := range rules {
		if !rules[i].IsActive {
			continue
		}
		if rules[i].Matches(rate) {
			return &rules[i]
		}
	}
	return nil
}

// qualifyingRevenue sums revenue over accounts whose aggregate commission
// meets the rule's minimum threshold. An account below the threshold
// contributes nothing, no matter how large its purchases are.
func qualifyingRevenue(owned map[AccountID]bool, userSales []SalesRecord, minCommission decimal.Decimal) (decimal.Decimal, int) {
	commissionByAccount := make(map[AccountID]decimal.Decimal, len(owned))
	revenueByAccount := make(map[AccountID]decimal.Decimal, len(owned))
	for _, s := range userSales {
		commissionByAccount[s.AccountID] = commissionByAccount[s.AccountID].Add(s.GrossCommission)
		revenueByAccount[s.AccountID] = revenueByAccount[s.AccountID].Add(s.TotalPurchases)
	}

	total := decimal.Zero
	count := 0
	for id, commission := range commissionByAccount {
		if commission.GreaterThanOrEqual(minCommission) {
			total = total.Add(revenueByAccount[id])
			count++
		}
	}
	return total, count
}

// walkTiers performs the graduated accrual sweep. Tiers are visited in
// ascending threshold order; each reached tier contributes its rate applied
// to the band between its threshold and the next (capped at qualifying
// revenue). The first unreached tier becomes NextTier and the walk STOPS -
// tiers beyond it are never evaluated.
func walkTiers(calc *Calculation, rule *Rule) {
	tiers := make([]Tier, len(rule.Tiers))
	copy(tiers, rule.Tiers)
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].RevenueThreshold.LessThan(tiers[j].RevenueThreshold)
	})

	revenue := calc.QualifyingRevenue
	incentive := decimal.Zero

	for i := range tiers {
		tier := tiers[i]
		if tier.RevenueThreshold.GreaterThan(revenue) {
			calc.NextTier = &tier
			break
		}

		bandTop := revenue
		if i+1 < len(tiers) && tiers[i+1].RevenueThreshold.LessThan(bandTop) {
			bandTop = tiers[i+1].RevenueThreshold
		}
		band := bandTop.Sub(tier.RevenueThreshold)
		incentive = incentive.Add(band.Mul(tier.IncentiveRate).Div(hundred))

		calc.CurrentTier = &tier
	}

	calc.IncentiveAmount = incentive
}

// measureProgress fills ProgressPercent and RemainingToNextTier.
// With no next tier the top is reached: progress is 100, nothing remains.
func measureProgress(calc *Calculation, rule *Rule) {
	if calc.NextTier == nil {
		calc.ProgressPercent = hundred
		calc.RemainingToNextTier = decimal.Zero
		return
	}

	currentThreshold := rule.BaseRevenueThreshold
	if calc.CurrentTier != nil {
		currentThreshold = calc.CurrentTier.RevenueThreshold
	}

	span := calc.NextTier.RevenueThreshold.Sub(currentThreshold)
	progress := decimal.Zero
	if span.IsPositive() {
		progress = calc.QualifyingRevenue.Sub(currentThreshold).Div(span).Mul(hundred)
	}
	calc.ProgressPercent = clampPercent(progress)

	remaining := calc.NextTier.RevenueThreshold.Sub(calc.QualifyingRevenue)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	calc.RemainingToNextTier = remaining
}

func clampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}
