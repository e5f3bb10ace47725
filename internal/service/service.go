// Package service contains the business logic layer.
//
// The credit engine is split into three services that share one store:
// QuotaService owns the monthly AI counter, LedgerService owns balances and
// entries, and CreditService coordinates both so that every spend, refund,
// adjustment or tier change of an account is a single atomic unit.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/credits/internal/domain"
	"github.com/DukeRupert/credits/internal/pagination"
	"github.com/DukeRupert/credits/internal/store"
)

// TierCatalog resolves tier identifiers to definitions. Unknown identifiers
// resolve to the level-0 unknown tier, not an error.
type TierCatalog interface {
	Tier(ctx context.Context, id string) (domain.TierDefinition, error)
}

// =============================================================================
// Options
// =============================================================================

type options struct {
	now        func() time.Time
	maxPerPage int
}

// Option configures a service.
type Option func(*options)

// WithClock replaces time.Now. The quota reset uses it to decide which
// calendar month a request falls in.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithMaxPageSize caps the page size of history queries.
func WithMaxPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPerPage = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		now:        time.Now,
		maxPerPage: pagination.MaxPerPage,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// =============================================================================
// Helpers
// =============================================================================

// storeError maps store sentinels to domain errors. Domain errors raised
// inside a transaction callback pass through unchanged.
func storeError(err error, op string, accountID uuid.UUID) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrAccountNotFound) {
		return domain.NotFound(op, "account", accountID.String())
	}
	if errors.Is(err, store.ErrAccountExists) {
		return domain.Conflict(op, "An account with this ID already exists.")
	}
	var derr *domain.Error
	if errors.As(err, &derr) {
		return err
	}
	return domain.Internal(err, op, "account transaction failed")
}
