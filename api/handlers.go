/*
handlers.go - HTTP API handlers for the incentive dashboard

PURPOSE:
  Exposes the incentive engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Dashboard:
    GET    /api/dashboard               All-user calculations (admin view),
                                        filter/sort via query params
    GET    /api/users/{id}/incentive    Single-user calculation

  Users:
    GET    /api/users                   List users
    POST   /api/users                   Create user
    GET    /api/users/{id}              Get user

  Accounts:
    GET    /api/accounts                List accounts (optionally ?user_id=)
    POST   /api/accounts                Create account

  Sales:
    GET    /api/sales                   List sales records (?account_id=)
    POST   /api/sales                   Upload a batch of sales records

  Rules:
    GET    /api/rules                   List rules in evaluation order
    POST   /api/rules                   Create rule from JSON config
    GET    /api/rules/{id}              Get rule

  Scenarios:
    GET    /api/scenarios               List demo scenarios
    POST   /api/scenarios/load          Load a demo scenario
    POST   /api/scenarios/reset         Clear the database

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - RuleFactory: JSON to Rule conversion
  - Directory: User display names (refreshed in the background)

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (calculator, dashboard builder)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicate records)
  - 500: Internal errors

  Note the non-error terminal states of the calculator: "no matching rule"
  produces a normal 200 row with zero incentive, never an error.

SECURITY NOTE:
  The viewer's role is taken from the viewer query parameter's user record.
  Real authentication lives in front of this service.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/incentive-engine/factory"
	"github.com/warp/incentive-engine/incentive"
	"github.com/warp/incentive-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       *sqlite.Store
	RuleFactory *factory.RuleFactory
	Directory   *incentive.Directory

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:       store,
		RuleFactory: factory.NewRuleFactory(),
		Directory:   incentive.NewDirectory(),
	}
}

// =============================================================================
// DASHBOARD HANDLERS
// =============================================================================

// GetDashboard returns incentive calculations for display.
// GET /api/dashboard?viewer=&filter=&sort=&order=
//
// With no viewer (or an admin viewer) every user with accounts gets a row;
// a sales viewer sees only their own. Filter and sort are presentation
// passes over the built rows.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	viewerID := incentive.UserID(r.URL.Query().Get("viewer"))
	role := incentive.RoleAdmin
	if viewerID != "" {
		viewer, err := h.Store.GetUser(ctx, string(viewerID))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to resolve viewer", err)
			return
		}
		if viewer == nil {
			writeError(w, http.StatusNotFound, "Viewer not found", nil)
			return
		}
		role = viewer.Role
	}

	inputs, err := incentive.LoadInputs(ctx, h.Store)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load calculation inputs", err)
		return
	}

	rows := incentive.Build(viewerID, role, inputs.Accounts, inputs.Sales, inputs.Rules, h.Directory)

	filter := incentive.Filter(r.URL.Query().Get("filter"))
	rows = filter.Apply(rows)

	sortField := incentive.SortField(r.URL.Query().Get("sort"))
	if sortField == "" {
		sortField = incentive.SortByIncentive
	}
	order := r.URL.Query().Get("order")
	incentive.Sort(rows, sortField, order == "asc")

	writeJSON(w, http.StatusOK, DashboardDTO{
		Rows:   toCalculationDTOs(rows),
		Filter: string(filter),
		Sort:   string(sortField),
		Order:  orderLabel(order),
	})
}

func orderLabel(order string) string {
	if order == "asc" {
		return "asc"
	}
	return "desc"
}

// GetUserIncentive returns the calculation for a single user.
// GET /api/users/{id}/incentive
//
// 404 covers both an unknown user and a user with zero accounts: in either
// case no calculation is produced.
func (h *Handler) GetUserIncentive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := incentive.UserID(chi.URLParam(r, "id"))

	inputs, err := incentive.LoadInputs(ctx, h.Store)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load calculation inputs", err)
		return
	}

	calc := incentive.Calculate(userID, inputs.Accounts, inputs.Sales, inputs.Rules)
	if calc == nil {
		writeError(w, http.StatusNotFound, "No calculation for user (no accounts or no active rules)", nil)
		return
	}

	row := incentive.Row{UserName: h.Directory.DisplayName(userID), Calculation: calc}
	writeJSON(w, http.StatusOK, toCalculationDTO(row))
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns the user directory.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetUser returns a single user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.Store.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toUserDTO(*user))
}

// CreateUser creates a new user and makes the name visible to the
// directory immediately (no need to wait for the next refresh).
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	rec := sqlite.UserRecord{ID: req.ID, Name: req.Name, Email: req.Email, Role: req.Role}
	if err := h.Store.SaveUser(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user", err)
		return
	}

	h.Directory.Put(incentive.UserID(req.ID), req.Name)

	writeJSON(w, http.StatusCreated, UserDTO{ID: req.ID, Name: req.Name, Email: req.Email, Role: roleOrDefault(req.Role)})
}

func toUserDTO(u incentive.User) UserDTO {
	return UserDTO{ID: string(u.ID), Name: u.Name, Email: u.Email, Role: string(u.Role)}
}

func roleOrDefault(role string) string {
	if role == "" {
		return string(incentive.RoleSales)
	}
	return role
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns accounts, optionally filtered by user.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var accounts []incentive.Account
	var err error
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		accounts, err = h.Store.ListAccountsByUser(ctx, userID)
	} else {
		accounts, err = h.Store.ListAccounts(ctx)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = AccountDTO{ID: string(a.ID), UserID: string(a.UserID), Name: a.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAccount creates a new account owned by a user.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "id and user_id are required", nil)
		return
	}

	owner, err := h.Store.GetUser(r.Context(), req.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve owner", err)
		return
	}
	if owner == nil {
		writeError(w, http.StatusNotFound, "Owner user not found", nil)
		return
	}

	account := incentive.Account{
		ID:     incentive.AccountID(req.ID),
		UserID: incentive.UserID(req.UserID),
		Name:   req.Name,
	}
	if err := h.Store.SaveAccount(r.Context(), account); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create account", err)
		return
	}

	writeJSON(w, http.StatusCreated, AccountDTO{ID: req.ID, UserID: req.UserID, Name: req.Name})
}

// =============================================================================
// SALES HANDLERS
// =============================================================================

// ListSales returns sales records, optionally filtered by account.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var records []incentive.SalesRecord
	var err error
	if accountID := r.URL.Query().Get("account_id"); accountID != "" {
		records, err = h.Store.ListSalesByAccount(ctx, accountID)
	} else {
		records, err = h.Store.ListSales(ctx)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sales data", err)
		return
	}

	dtos := make([]SalesRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = SalesRecordDTO{
			AccountID:       string(rec.AccountID),
			Period:          rec.Period,
			TotalPurchases:  toFloat(rec.TotalPurchases),
			GrossCommission: toFloat(rec.GrossCommission),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UploadSales inserts a batch of sales records atomically.
func (h *Handler) UploadSales(w http.ResponseWriter, r *http.Request) {
	var req UploadSalesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "records must not be empty", nil)
		return
	}

	records := make([]incentive.SalesRecord, len(req.Records))
	for i, rec := range req.Records {
		if rec.AccountID == "" || rec.Period == "" {
			writeError(w, http.StatusBadRequest, "account_id and period are required on every record", nil)
			return
		}
		records[i] = incentive.SalesRecord{
			AccountID:       incentive.AccountID(rec.AccountID),
			Period:          rec.Period,
			TotalPurchases:  decimal.NewFromFloat(rec.TotalPurchases),
			GrossCommission: decimal.NewFromFloat(rec.GrossCommission),
		}
	}

	if err := h.Store.SaveSalesBatch(r.Context(), records); err != nil {
		if errors.Is(err, incentive.ErrDuplicateID) {
			writeError(w, http.StatusConflict, "Duplicate sales record for account and period", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save sales data", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"saved": len(records)})
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

// ListRules returns all rules in evaluation order.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules", err)
		return
	}

	dtos := make([]RuleDTO, 0, len(records))
	for _, rec := range records {
		dto, err := h.toRuleDTO(rec)
		if err != nil {
			continue // Skip rules whose stored config no longer parses
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRule returns a single rule.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.Store.GetRule(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get rule", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Rule not found", nil)
		return
	}

	dto, err := h.toRuleDTO(*rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Stored rule config is corrupt", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// CreateRule validates and stores a rule config.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rule, err := h.RuleFactory.FromConfig(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule configuration", err)
		return
	}

	configJSON, err := h.RuleFactory.ToJSON(*rule)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to serialize rule", err)
		return
	}

	rec := sqlite.RuleRecord{
		ID:         string(rule.ID),
		Name:       rule.Name,
		ConfigJSON: configJSON,
		IsActive:   rule.IsActive,
		Position:   req.Position,
	}
	if err := h.Store.SaveRule(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rule", err)
		return
	}

	saved, err := h.Store.GetRule(r.Context(), rec.ID)
	if err != nil || saved == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload saved rule", err)
		return
	}
	dto, err := h.toRuleDTO(*saved)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to serialize saved rule", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

func (h *Handler) toRuleDTO(rec sqlite.RuleRecord) (RuleDTO, error) {
	var cfg factory.RuleJSON
	if err := json.Unmarshal([]byte(rec.ConfigJSON), &cfg); err != nil {
		return RuleDTO{}, err
	}
	dto := RuleDTO{
		ID:       rec.ID,
		Name:     rec.Name,
		IsActive: rec.IsActive,
		Position: rec.Position,
		Config:   cfg,
	}
	if !rec.CreatedAt.IsZero() {
		dto.CreatedAt = rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return dto, nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
