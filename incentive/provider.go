/*
provider.go - Persistence boundary for calculation inputs

PURPOSE:
  Defines the interface between the calculation engine and the database.
  Accounts, sales records, rules, and the user directory arrive as
  in-memory collections; the engine never reaches into storage itself.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - incentive/store/memory.go: In-memory for testing

USAGE:
  inputs, err := incentive.LoadInputs(ctx, src)
  rows := incentive.Build(viewer, role, inputs.Accounts, inputs.Sales, inputs.Rules, dir)

SEE ALSO:
  - dashboard.go: Consumes the loaded inputs
  - api/refresher.go: Uses DataSource for directory reloads
*/
package incentive

import "context"

// =============================================================================
// DATA SOURCE - Read-only view of the relational schema
// =============================================================================

// DataSource supplies the read-only inputs the engine consumes.
// All returned slices are snapshots owned by the caller.
type DataSource interface {
	// ListUsers returns the user directory.
	ListUsers(ctx context.Context) ([]User, error)

	// ListAccounts returns every account.
	ListAccounts(ctx context.Context) ([]Account, error)

	// ListSales returns every sales record.
	ListSales(ctx context.Context) ([]SalesRecord, error)

	// ListActiveRules returns active rules in evaluation order.
	ListActiveRules(ctx context.Context) ([]Rule, error)
}

// =============================================================================
// INPUT LOADING
// =============================================================================

// Inputs bundles one consistent fetch of everything Build needs.
type Inputs struct {
	Accounts []Account
	Sales    []SalesRecord
	Rules    []Rule
}

// LoadInputs fetches accounts, sales, and active rules from the source.
// The user directory is loaded separately (and possibly asynchronously);
// see Directory.
func LoadInputs(ctx context.Context, src DataSource) (*Inputs, error) {
	accounts, err := src.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := src.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := src.ListActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	return &Inputs{Accounts: accounts, Sales: sales, Rules: rules}, nil
}
