// Package memory provides an in-process implementation of store.Store.
//
// It backs the test suite and single-node development runs. Accounts are
// serialized by a per-account mutex; a transaction works on a private copy
// of the account and publishes it together with its pending entries only
// when the callback succeeds.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/credits/internal/domain"
	"github.com/DukeRupert/credits/internal/id"
	"github.com/DukeRupert/credits/internal/store"
)

// Store is a map-backed store.Store.
type Store struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]domain.Account
	entries  map[uuid.UUID][]domain.LedgerEntry
	tiers    map[string]domain.TierDefinition
	actions  domain.ActionTable

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New creates an empty store seeded with the given tier definitions.
func New(tiers ...domain.TierDefinition) *Store {
	s := &Store{
		accounts: make(map[uuid.UUID]domain.Account),
		entries:  make(map[uuid.UUID][]domain.LedgerEntry),
		tiers:    make(map[string]domain.TierDefinition, len(tiers)),
		locks:    make(map[uuid.UUID]*sync.Mutex),
		now:      time.Now,
	}
	for _, def := range tiers {
		s.tiers[def.ID] = def
	}
	return s
}

func (s *Store) CreateAccount(_ context.Context, acct *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[acct.ID]; ok {
		return store.ErrAccountExists
	}
	now := s.now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	s.accounts[acct.ID] = copyAccount(*acct)
	return nil
}

func (s *Store) GetAccount(_ context.Context, accountID uuid.UUID) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[accountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	out := copyAccount(acct)
	return &out, nil
}

func (s *Store) WithAccount(ctx context.Context, accountID uuid.UUID, fn func(tx store.AccountTx) error) error {
	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	acct, ok := s.accounts[accountID]
	s.mu.RUnlock()
	if !ok {
		return store.ErrAccountNotFound
	}

	tx := &accountTx{store: s, account: copyAccount(acct)}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.dirty {
		tx.account.UpdatedAt = s.now().UTC()
	}
	s.accounts[accountID] = tx.account
	s.entries[accountID] = append(s.entries[accountID], tx.pending...)
	return nil
}

func (s *Store) ListEntries(_ context.Context, accountID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.entries[accountID]
	if offset < 0 || limit <= 0 || offset >= len(all) {
		return nil, nil
	}
	end := len(all) - offset
	start := end - limit
	if start < 0 {
		start = 0
	}
	out := make([]domain.LedgerEntry, 0, end-start)
	for i := end - 1; i >= start; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *Store) CountEntries(_ context.Context, accountID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[accountID]), nil
}

func (s *Store) LoadTiers(_ context.Context) ([]domain.TierDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TierDefinition, 0, len(s.tiers))
	for _, def := range s.tiers {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

func (s *Store) LoadActions(_ context.Context) (domain.ActionTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.actions), nil
}

// ReplaceCatalog swaps the tier set, and the action table when actions is
// non-nil. Definitions that would violate the unique id or level rules are
// rejected without changing anything.
func (s *Store) ReplaceCatalog(_ context.Context, defs []domain.TierDefinition, actions domain.ActionTable) error {
	if _, err := domain.NewCatalog(defs); err != nil {
		return err
	}
	tiers := make(map[string]domain.TierDefinition, len(defs))
	for _, def := range defs {
		tiers[def.ID] = def
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers = tiers
	if actions != nil {
		s.actions = maps.Clone(actions)
	}
	return nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

// Entries returns every committed entry of an account in insertion order.
func (s *Store) Entries(accountID uuid.UUID) []domain.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.LedgerEntry(nil), s.entries[accountID]...)
}

func (s *Store) accountLock(accountID uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[accountID] = lock
	}
	return lock
}

// =============================================================================
// Transaction
// =============================================================================

type accountTx struct {
	store   *Store
	account domain.Account
	pending []domain.LedgerEntry
	dirty   bool
}

func (t *accountTx) Account() domain.Account {
	return copyAccount(t.account)
}

func (t *accountTx) ResetUsage(_ context.Context, anchor time.Time) error {
	a := anchor.UTC()
	t.account.MonthlyUsageCount = 0
	t.account.UsageCounterAnchor = &a
	t.dirty = true
	return nil
}

func (t *accountTx) IncrementUsage(context.Context) (int, error) {
	t.account.MonthlyUsageCount++
	t.dirty = true
	return t.account.MonthlyUsageCount, nil
}

func (t *accountTx) SetBalance(_ context.Context, balance int64) error {
	t.account.Balance = balance
	t.dirty = true
	return nil
}

func (t *accountTx) SetTierAndBalance(_ context.Context, tier string, balance int64) error {
	t.account.Tier = tier
	t.account.Balance = balance
	t.dirty = true
	return nil
}

func (t *accountTx) AppendEntry(_ context.Context, entry *domain.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = id.NewLedgerEntryID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = t.store.now().UTC()
	}
	entry.AccountID = t.account.ID
	t.pending = append(t.pending, *entry)
	return nil
}

func (t *accountTx) SumEntries(context.Context) (int64, int, error) {
	t.store.mu.RLock()
	committed := t.store.entries[t.account.ID]
	t.store.mu.RUnlock()

	var sum int64
	for _, e := range committed {
		sum += e.Amount
	}
	for _, e := range t.pending {
		sum += e.Amount
	}
	return sum, len(committed) + len(t.pending), nil
}

func copyAccount(a domain.Account) domain.Account {
	if a.UsageCounterAnchor != nil {
		anchor := *a.UsageCounterAnchor
		a.UsageCounterAnchor = &anchor
	}
	return a
}
