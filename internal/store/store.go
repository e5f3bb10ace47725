// Package store defines the persistence boundary of the credit engine.
//
// Every balance, quota counter or tier mutation of an account happens inside
// WithAccount, which serializes work per account and makes the callback's
// writes atomic: they all commit when it returns nil and none of them do
// otherwise.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/credits/internal/domain"
)

var (
	// ErrAccountNotFound is returned when no account exists for an ID.
	ErrAccountNotFound = errors.New("store: account not found")

	// ErrAccountExists is returned by CreateAccount on a duplicate ID.
	ErrAccountExists = errors.New("store: account already exists")
)

// Store persists accounts, ledger entries and tier definitions.
type Store interface {
	// CreateAccount inserts a new account row. The account's ID, tier and
	// balances must already be set.
	CreateAccount(ctx context.Context, acct *domain.Account) error

	// GetAccount reads an account without locking it.
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// WithAccount locks the account for the duration of fn and commits fn's
	// writes only if fn returns nil.
	WithAccount(ctx context.Context, id uuid.UUID, fn func(tx AccountTx) error) error

	// ListEntries returns an account's entries newest first.
	ListEntries(ctx context.Context, id uuid.UUID, limit, offset int) ([]domain.LedgerEntry, error)

	// CountEntries returns the number of entries recorded for an account.
	CountEntries(ctx context.Context, id uuid.UUID) (int, error)

	// LoadTiers returns the persisted tier definitions.
	LoadTiers(ctx context.Context) ([]domain.TierDefinition, error)

	// LoadActions returns the persisted action cost table. It is empty until
	// a catalog with actions has been imported.
	LoadActions(ctx context.Context) (domain.ActionTable, error)

	// ReplaceCatalog atomically replaces every tier definition. A nil actions
	// table leaves the stored action costs untouched.
	ReplaceCatalog(ctx context.Context, defs []domain.TierDefinition, actions domain.ActionTable) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

// AccountTx is the locked view of one account inside WithAccount.
type AccountTx interface {
	// Account returns the current state of the locked account, including
	// writes made earlier in the same transaction.
	Account() domain.Account

	// ResetUsage zeroes the monthly AI counter and anchors it at anchor.
	// A failed reset leaves the rest of the transaction usable.
	ResetUsage(ctx context.Context, anchor time.Time) error

	// IncrementUsage adds one to the monthly AI counter and returns the new value.
	IncrementUsage(ctx context.Context) (int, error)

	// SetBalance overwrites the balance.
	SetBalance(ctx context.Context, balance int64) error

	// SetTierAndBalance moves the account to a tier with a new balance.
	SetTierAndBalance(ctx context.Context, tier string, balance int64) error

	// AppendEntry records a ledger entry. A missing ID or timestamp is filled in.
	AppendEntry(ctx context.Context, entry *domain.LedgerEntry) error

	// SumEntries returns the sum and count of the account's entries.
	SumEntries(ctx context.Context) (int64, int, error)
}
