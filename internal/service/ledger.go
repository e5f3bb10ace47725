// Package service contains the business logic layer.
//
// This file implements the ledger service: the balance of record and its
// append-only audit trail. Every balance change writes exactly one entry in
// the same transaction.
package service

import (
	"context"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/DukeRupert/credits/internal/domain"
	"github.com/DukeRupert/credits/internal/metrics"
	"github.com/DukeRupert/credits/internal/pagination"
	"github.com/DukeRupert/credits/internal/store"
)

// =============================================================================
// Interface Definition
// =============================================================================

// LedgerService defines balance mutations and statement queries.
type LedgerService interface {
	// Debit removes credits. Super-tier accounts are not charged and no
	// entry is written. Fails with InsufficientFunds when balance < amount.
	Debit(ctx context.Context, params domain.DebitParams) (*domain.DebitResult, error)

	// Credit adds credits and returns the written entry.
	Credit(ctx context.Context, params domain.CreditParams) (*domain.LedgerEntry, error)

	// History returns one page of entries, newest first.
	History(ctx context.Context, accountID uuid.UUID, page, pageSize int) (*domain.HistoryPage, error)
}

// =============================================================================
// Implementation
// =============================================================================

type ledgerService struct {
	store      store.Store
	tiers      TierCatalog
	logger     *slog.Logger
	maxPerPage int
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(st store.Store, tiers TierCatalog, logger *slog.Logger, opts ...Option) LedgerService {
	return newLedgerService(st, tiers, logger, newOptions(opts))
}

func newLedgerService(st store.Store, tiers TierCatalog, logger *slog.Logger, o options) *ledgerService {
	return &ledgerService{
		store:      st,
		tiers:      tiers,
		logger:     logger,
		maxPerPage: o.maxPerPage,
	}
}

// Debit removes credits from an account.
func (s *ledgerService) Debit(ctx context.Context, params domain.DebitParams) (*domain.DebitResult, error) {
	const op = "ledger.debit"

	var result *domain.DebitResult
	err := s.store.WithAccount(ctx, params.AccountID, func(tx store.AccountTx) error {
		tier, err := s.tiers.Tier(ctx, tx.Account().Tier)
		if err != nil {
			return domain.Internal(err, op, "failed to resolve tier")
		}
		result, err = s.debitTx(ctx, tx, tier, params, true)
		return err
	})
	if err != nil {
		return nil, storeError(err, op, params.AccountID)
	}
	if result.Entry != nil {
		metrics.EntryWritten(string(result.Entry.Reason), result.Entry.Amount)
	}
	return result, nil
}

// Credit adds credits to an account.
func (s *ledgerService) Credit(ctx context.Context, params domain.CreditParams) (*domain.LedgerEntry, error) {
	const op = "ledger.credit"

	var entry *domain.LedgerEntry
	err := s.store.WithAccount(ctx, params.AccountID, func(tx store.AccountTx) error {
		var err error
		entry, err = s.creditTx(ctx, tx, params)
		return err
	})
	if err != nil {
		return nil, storeError(err, op, params.AccountID)
	}
	metrics.EntryWritten(string(entry.Reason), entry.Amount)
	return entry, nil
}

// History returns one page of an account statement.
func (s *ledgerService) History(ctx context.Context, accountID uuid.UUID, page, pageSize int) (*domain.HistoryPage, error) {
	const op = "ledger.history"

	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, storeError(err, op, accountID)
	}

	params := pagination.Normalize(page, pageSize, s.maxPerPage)
	total, err := s.store.CountEntries(ctx, accountID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count ledger entries")
	}
	entries, err := s.store.ListEntries(ctx, accountID, params.PerPage, params.Offset())
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list ledger entries")
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}

	data := pagination.New(params, total)
	return &domain.HistoryPage{
		Entries:    entries,
		Page:       data.CurrentPage,
		PageSize:   data.PerPage,
		Total:      data.Total,
		TotalPages: data.TotalPages,
		HasNext:    data.HasNext,
	}, nil
}

// debitTx performs a debit inside an account transaction. With superBypass
// set, super-tier accounts are not charged.
func (s *ledgerService) debitTx(ctx context.Context, tx store.AccountTx, tier domain.TierDefinition, params domain.DebitParams, superBypass bool) (*domain.DebitResult, error) {
	const op = "ledger.debit"

	acct := tx.Account()
	if superBypass && tier.IsSuper() {
		return &domain.DebitResult{Balance: acct.Balance}, nil
	}
	if params.Amount <= 0 {
		return nil, domain.Invalid(op, "Debit amount must be positive.")
	}
	if !params.Reason.Valid() {
		return nil, domain.Invalid(op, "Unknown reason code.")
	}
	if acct.Balance < params.Amount {
		s.logger.Info("Insufficient credits",
			"account_id", acct.ID,
			"reason", params.Reason,
			"cost", params.Amount,
			"balance", acct.Balance,
		)
		return nil, domain.InsufficientFunds(op, params.Amount, acct.Balance)
	}

	balance := acct.Balance - params.Amount
	if err := tx.SetBalance(ctx, balance); err != nil {
		return nil, domain.Internal(err, op, "failed to update balance")
	}
	entry := &domain.LedgerEntry{
		Amount:        -params.Amount,
		BalanceAfter:  balance,
		Reason:        params.Reason,
		Description:   params.Description,
		Resource:      params.Resource,
		ActingAdminID: params.ActingAdminID,
		Metadata:      params.Metadata,
	}
	if err := tx.AppendEntry(ctx, entry); err != nil {
		return nil, domain.Internal(err, op, "failed to write ledger entry")
	}
	return &domain.DebitResult{Balance: balance, Entry: entry}, nil
}

// creditTx performs a credit inside an account transaction.
func (s *ledgerService) creditTx(ctx context.Context, tx store.AccountTx, params domain.CreditParams) (*domain.LedgerEntry, error) {
	const op = "ledger.credit"

	if params.Amount <= 0 {
		return nil, domain.Invalid(op, "Credit amount must be positive.")
	}
	if !params.Reason.Valid() {
		return nil, domain.Invalid(op, "Unknown reason code.")
	}

	current := tx.Account().Balance
	if params.Amount > math.MaxInt64-current {
		return nil, domain.Invalid(op, "Credit would overflow the balance.")
	}
	balance := current + params.Amount
	if err := tx.SetBalance(ctx, balance); err != nil {
		return nil, domain.Internal(err, op, "failed to update balance")
	}
	entry := &domain.LedgerEntry{
		Amount:        params.Amount,
		BalanceAfter:  balance,
		Reason:        params.Reason,
		Description:   params.Description,
		Resource:      params.Resource,
		ActingAdminID: params.ActingAdminID,
		Metadata:      params.Metadata,
	}
	if err := tx.AppendEntry(ctx, entry); err != nil {
		return nil, domain.Internal(err, op, "failed to write ledger entry")
	}
	return entry, nil
}
