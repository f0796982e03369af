// Package store provides DataSource implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/incentive-engine/incentive"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	users    []incentive.User
	accounts []incentive.Account
	sales    []incentive.SalesRecord
	rules    []incentive.Rule

	// Failure injection for directory-refresh tests.
	usersErr error
}

func NewMemory() *Memory {
	return &Memory{}
}

// Compile-time check that Memory implements incentive.DataSource
var _ incentive.DataSource = (*Memory)(nil)

// Seed replaces the full dataset.
func (m *Memory) Seed(users []incentive.User, accounts []incentive.Account, sales []incentive.SalesRecord, rules []incentive.Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append([]incentive.User{}, users...)
	m.accounts = append([]incentive.Account{}, accounts...)
	m.sales = append([]incentive.SalesRecord{}, sales...)
	m.rules = append([]incentive.Rule{}, rules...)
}

func (m *Memory) AddUser(u incentive.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, u)
}

func (m *Memory) AddAccount(a incentive.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = append(m.accounts, a)
}

func (m *Memory) AddSales(s ...incentive.SalesRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sales = append(m.sales, s...)
}

func (m *Memory) AddRule(r incentive.Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, r)
}

// FailUsers makes ListUsers return err until cleared with nil.
func (m *Memory) FailUsers(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usersErr = err
}

func (m *Memory) ListUsers(_ context.Context) ([]incentive.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.usersErr != nil {
		return nil, m.usersErr
	}
	return append([]incentive.User{}, m.users...), nil
}

func (m *Memory) ListAccounts(_ context.Context) ([]incentive.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]incentive.Account{}, m.accounts...), nil
}

func (m *Memory) ListSales(_ context.Context) ([]incentive.SalesRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]incentive.SalesRecord{}, m.sales...), nil
}

// ListActiveRules returns active rules in insertion order, matching the
// first-match evaluation order of the calculator.
func (m *Memory) ListActiveRules(_ context.Context) ([]incentive.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var active []incentive.Rule
	for _, r := range m.rules {
		if r.IsActive {
			active = append(active, r)
		}
	}
	return active, nil
}
