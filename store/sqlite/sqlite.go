/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the persistence boundary for the incentive engine: users,
  accounts, sales data, and rule configurations. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  incentive.DataSource: Read-only inputs for the calculator

KEY TABLES:
  users:           Directory of dashboard users (sales reps, admins)
  accounts:        Customer accounts, each owned by exactly one user
  sales_data:      One row per account per period (revenue + commission)
  incentive_rules: Rule configs stored as JSON, ordered for first-match

RULE ORDERING:
  The calculator selects the first matching rule in input order. The
  position column (then created_at, then id) defines that order, so rule
  evaluation is deterministic across restarts.

DECIMAL STORAGE:
  Money columns are stored as TEXT and parsed with shopspring/decimal.
  Storing floats would reintroduce the rounding errors decimal avoids.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/incentive.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - incentive/provider.go: DataSource interface definition
  - incentive/store/memory.go: In-memory implementation for testing
  - factory/rule.go: Rule config JSON parsing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/incentive-engine/factory"
	"github.com/warp/incentive-engine/incentive"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	factory *factory.RuleFactory
}

// Compile-time check that Store implements incentive.DataSource
var _ incentive.DataSource = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; the pool must not
	// open a second one.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, factory: factory.NewRuleFactory()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Users (dashboard directory)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		role TEXT NOT NULL DEFAULT 'sales',
		created_at TEXT NOT NULL
	);

	-- Accounts, each owned by exactly one user
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_user
		ON accounts(user_id);

	-- Sales data: one row per account per period
	CREATE TABLE IF NOT EXISTS sales_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id TEXT NOT NULL,
		period TEXT NOT NULL,
		total_purchases TEXT NOT NULL,
		gross_commission TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (account_id) REFERENCES accounts(id)
	);

	-- One record per account per period
	CREATE UNIQUE INDEX IF NOT EXISTS idx_sales_account_period
		ON sales_data(account_id, period);

	-- Hot path: per-account aggregation
	CREATE INDEX IF NOT EXISTS idx_sales_account
		ON sales_data(account_id);

	-- Incentive rules (config stored as JSON, position defines match order)
	CREATE TABLE IF NOT EXISTS incentive_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		position INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rules_active_position
		ON incentive_rules(is_active, position);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// USERS
// =============================================================================

// UserRecord is the stored form of a user.
type UserRecord struct {
	ID        string
	Name      string
	Email     string
	Role      string
	CreatedAt time.Time
}

// SaveUser inserts or updates a user.
func (s *Store) SaveUser(ctx context.Context, u UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.Role == "" {
		u.Role = string(incentive.RoleSales)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, email=excluded.email, role=excluded.role`,
		u.ID, u.Name, u.Email, u.Role, u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// GetUser returns a user by id, or nil if not found.
func (s *Store) GetUser(ctx context.Context, id string) (*incentive.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, role FROM users WHERE id = ?`, id)

	var u incentive.User
	var email sql.NullString
	err := row.Scan(&u.ID, &u.Name, &email, &u.Role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.Email = email.String
	return &u, nil
}

// ListUsers returns the full user directory.
func (s *Store) ListUsers(ctx context.Context) ([]incentive.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, role FROM users ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []incentive.User
	for rows.Next() {
		var u incentive.User
		var email sql.NullString
		if err := rows.Scan(&u.ID, &u.Name, &email, &u.Role); err != nil {
			return nil, err
		}
		u.Email = email.String
		users = append(users, u)
	}
	return users, rows.Err()
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// SaveAccount inserts or updates an account.
func (s *Store) SaveAccount(ctx context.Context, a incentive.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id, name=excluded.name`,
		a.ID, a.UserID, a.Name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// ListAccounts returns every account.
func (s *Store) ListAccounts(ctx context.Context) ([]incentive.Account, error) {
	return s.queryAccounts(ctx,
		`SELECT id, user_id, name FROM accounts ORDER BY user_id, id`)
}

// ListAccountsByUser returns the accounts owned by one user.
func (s *Store) ListAccountsByUser(ctx context.Context, userID string) ([]incentive.Account, error) {
	return s.queryAccounts(ctx,
		`SELECT id, user_id, name FROM accounts WHERE user_id = ? ORDER BY id`, userID)
}

func (s *Store) queryAccounts(ctx context.Context, query string, args ...any) ([]incentive.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []incentive.Account
	for rows.Next() {
		var a incentive.Account
		var name sql.NullString
		if err := rows.Scan(&a.ID, &a.UserID, &name); err != nil {
			return nil, err
		}
		a.Name = name.String
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// =============================================================================
// SALES DATA
// =============================================================================

// SaveSalesBatch inserts sales records atomically.
// Violating the one-record-per-account-per-period constraint fails the
// whole batch.
func (s *Store) SaveSalesBatch(ctx context.Context, records []incentive.SalesRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sales_data (account_id, period, total_purchases, gross_commission, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			r.AccountID, r.Period, r.TotalPurchases.String(), r.GrossCommission.String(), now)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("%w: sales record for account %s period %s", incentive.ErrDuplicateID, r.AccountID, r.Period)
			}
			return fmt.Errorf("failed to save sales record: %w", err)
		}
	}

	return tx.Commit()
}

// ListSales returns every sales record.
func (s *Store) ListSales(ctx context.Context) ([]incentive.SalesRecord, error) {
	return s.querySales(ctx,
		`SELECT account_id, period, total_purchases, gross_commission FROM sales_data ORDER BY account_id, period`)
}

// ListSalesByAccount returns the sales rows for one account.
func (s *Store) ListSalesByAccount(ctx context.Context, accountID string) ([]incentive.SalesRecord, error) {
	return s.querySales(ctx,
		`SELECT account_id, period, total_purchases, gross_commission FROM sales_data WHERE account_id = ? ORDER BY period`, accountID)
}

func (s *Store) querySales(ctx context.Context, query string, args ...any) ([]incentive.SalesRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales data: %w", err)
	}
	defer rows.Close()

	var records []incentive.SalesRecord
	for rows.Next() {
		var r incentive.SalesRecord
		var purchases, commission string
		if err := rows.Scan(&r.AccountID, &r.Period, &purchases, &commission); err != nil {
			return nil, err
		}
		if r.TotalPurchases, err = decimal.NewFromString(purchases); err != nil {
			return nil, fmt.Errorf("corrupt total_purchases for account %s: %w", r.AccountID, err)
		}
		if r.GrossCommission, err = decimal.NewFromString(commission); err != nil {
			return nil, fmt.Errorf("corrupt gross_commission for account %s: %w", r.AccountID, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// =============================================================================
// RULES
// =============================================================================

// RuleRecord is the stored form of an incentive rule.
type RuleRecord struct {
	ID         string
	Name       string
	ConfigJSON string
	IsActive   bool
	Position   int
	CreatedAt  time.Time
}

// SaveRule inserts or updates a rule record.
func (s *Store) SaveRule(ctx context.Context, r RuleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incentive_rules (id, name, config_json, is_active, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, config_json=excluded.config_json,
			is_active=excluded.is_active, position=excluded.position`,
		r.ID, r.Name, r.ConfigJSON, boolToInt(r.IsActive), r.Position, r.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	return nil
}

// GetRule returns a rule record by id, or nil if not found.
func (s *Store) GetRule(ctx context.Context, id string) (*RuleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, config_json, is_active, position, created_at
		FROM incentive_rules WHERE id = ?`, id)

	var r RuleRecord
	var active int
	var createdAt string
	err := row.Scan(&r.ID, &r.Name, &r.ConfigJSON, &active, &r.Position, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	r.IsActive = active != 0
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}

// ListRules returns all rule records in evaluation order.
func (s *Store) ListRules(ctx context.Context) ([]RuleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, config_json, is_active, position, created_at
		FROM incentive_rules ORDER BY position, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var records []RuleRecord
	for rows.Next() {
		var r RuleRecord
		var active int
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Name, &r.ConfigJSON, &active, &r.Position, &createdAt); err != nil {
			return nil, err
		}
		r.IsActive = active != 0
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListActiveRules returns parsed active rules in evaluation order.
// The is_active column is authoritative over the JSON config.
// Rows whose config no longer parses are skipped.
func (s *Store) ListActiveRules(ctx context.Context) ([]incentive.Rule, error) {
	records, err := s.ListRules(ctx)
	if err != nil {
		return nil, err
	}

	var rules []incentive.Rule
	for _, r := range records {
		if !r.IsActive {
			continue
		}
		rule, err := s.factory.ParseRule(r.ConfigJSON)
		if err != nil {
			continue // Skip invalid rules
		}
		rule.IsActive = true
		rules = append(rules, *rule)
	}
	return rules, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// =============================================================================
// RESET (dev/demo only)
// =============================================================================

// Reset clears all data. Used by scenario loaders.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"sales_data", "accounts", "incentive_rules", "users"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}
