/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DECIMALS:
  Domain math runs on decimal.Decimal; DTOs expose float64 for JSON
  clients. The conversion happens only at this boundary.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rule.go: RuleJSON type
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/incentive-engine/factory"
	"github.com/warp/incentive-engine/incentive"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// CreateUserRequest is the request to create a user.
type CreateUserRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"` // default "sales"
}

// AccountDTO represents an account.
type AccountDTO struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
}

// CreateAccountRequest is the request to create an account.
type CreateAccountRequest struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
}

// SalesRecordDTO represents one sales row.
type SalesRecordDTO struct {
	AccountID       string  `json:"account_id"`
	Period          string  `json:"period"`
	TotalPurchases  float64 `json:"total_purchases"`
	GrossCommission float64 `json:"gross_commission"`
}

// UploadSalesRequest is a batch of sales rows.
type UploadSalesRequest struct {
	Records []SalesRecordDTO `json:"records"`
}

// RuleDTO represents an incentive rule in API responses.
type RuleDTO struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	IsActive  bool             `json:"is_active"`
	Position  int              `json:"position"`
	Config    factory.RuleJSON `json:"config"`
	CreatedAt string           `json:"created_at,omitempty"`
}

// CreateRuleRequest is the request to create a rule.
type CreateRuleRequest struct {
	Config   factory.RuleJSON `json:"config"`
	Position int              `json:"position,omitempty"`
}

// TierDTO represents one revenue tier.
type TierDTO struct {
	RevenueThreshold float64 `json:"revenue_threshold"`
	IncentiveRate    float64 `json:"incentive_rate"`
}

// CalculationDTO is the per-user incentive result.
// applied_rule_id is empty when no rule band matched the commission rate;
// that is a valid outcome, not an error.
type CalculationDTO struct {
	UserID              string   `json:"user_id"`
	UserName            string   `json:"user_name"`
	TotalRevenue        float64  `json:"total_revenue"`
	TotalCommission     float64  `json:"total_commission"`
	CommissionRate      float64  `json:"commission_rate"`
	AppliedRuleID       string   `json:"applied_rule_id,omitempty"`
	AppliedRuleName     string   `json:"applied_rule_name,omitempty"`
	QualifyingRevenue   float64  `json:"qualifying_revenue"`
	QualifyingAccounts  int      `json:"qualifying_accounts"`
	AccountCount        int      `json:"account_count"`
	CurrentTier         *TierDTO `json:"current_tier,omitempty"`
	NextTier            *TierDTO `json:"next_tier,omitempty"`
	IncentiveAmount     float64  `json:"incentive_amount"`
	ProgressPercent     float64  `json:"progress_percent"`
	RemainingToNextTier float64  `json:"remaining_to_next_tier"`
}

// DashboardDTO wraps the row list with the view parameters that shaped it.
type DashboardDTO struct {
	Rows   []CalculationDTO `json:"rows"`
	Filter string           `json:"filter"`
	Sort   string           `json:"sort"`
	Order  string           `json:"order"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func toTierDTO(t *incentive.Tier) *TierDTO {
	if t == nil {
		return nil
	}
	return &TierDTO{
		RevenueThreshold: toFloat(t.RevenueThreshold),
		IncentiveRate:    toFloat(t.IncentiveRate),
	}
}

func toCalculationDTO(row incentive.Row) CalculationDTO {
	dto := CalculationDTO{
		UserID:              string(row.UserID),
		UserName:            row.UserName,
		TotalRevenue:        toFloat(row.TotalRevenue),
		TotalCommission:     toFloat(row.TotalCommission),
		CommissionRate:      toFloat(row.CommissionRate),
		QualifyingRevenue:   toFloat(row.QualifyingRevenue),
		QualifyingAccounts:  row.QualifyingAccounts,
		AccountCount:        row.AccountCount,
		CurrentTier:         toTierDTO(row.CurrentTier),
		NextTier:            toTierDTO(row.NextTier),
		IncentiveAmount:     toFloat(row.IncentiveAmount),
		ProgressPercent:     toFloat(row.ProgressPercent),
		RemainingToNextTier: toFloat(row.RemainingToNextTier),
	}
	if row.AppliedRule != nil {
		dto.AppliedRuleID = string(row.AppliedRule.ID)
		dto.AppliedRuleName = row.AppliedRule.Name
	}
	return dto
}

func toCalculationDTOs(rows []incentive.Row) []CalculationDTO {
	dtos := make([]CalculationDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toCalculationDTO(row)
	}
	return dtos
}
