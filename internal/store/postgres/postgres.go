// Package postgres implements store.Store on PostgreSQL.
//
// WithAccount runs its callback in a transaction that holds the account row
// with SELECT ... FOR UPDATE, so concurrent operations on one account are
// applied one after another while different accounts proceed in parallel.
// Works with both the pgx stdlib driver and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/DukeRupert/credits/internal/domain"
	"github.com/DukeRupert/credits/internal/metrics"
	"github.com/DukeRupert/credits/internal/repository"
	"github.com/DukeRupert/credits/internal/store"
)

// maxAttempts bounds WithAccount: the first try plus one retry.
const maxAttempts = 2

// SQLSTATE codes
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// Store is a PostgreSQL-backed store.Store.
type Store struct {
	db      *sql.DB
	queries *repository.Queries
	logger  *slog.Logger
}

var _ store.Store = (*Store)(nil)

// New creates a store over an open connection pool.
func New(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		db:      db,
		queries: repository.New(db),
		logger:  logger,
	}
}

func (s *Store) CreateAccount(ctx context.Context, acct *domain.Account) error {
	row, err := s.queries.CreateAccount(ctx, repository.CreateAccountParams{
		ID:             acct.ID,
		Tier:           acct.Tier,
		Balance:        acct.Balance,
		OpeningBalance: acct.OpeningBalance,
	})
	if err != nil {
		if isCode(err, codeUniqueViolation) {
			return store.ErrAccountExists
		}
		return fmt.Errorf("create account: %w", err)
	}
	*acct = toDomainAccount(row)
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	row, err := s.queries.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	acct := toDomainAccount(row)
	return &acct, nil
}

// WithAccount retries once when the first attempt fails with a
// serialization failure, a deadlock or a dropped connection.
func (s *Store) WithAccount(ctx context.Context, id uuid.UUID, fn func(tx store.AccountTx) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = s.withAccount(ctx, id, fn)
		if err == nil || !IsTransient(err) || attempt == maxAttempts || ctx.Err() != nil {
			return err
		}
		metrics.StoreRetried("with_account")
		s.logger.Warn("retrying account transaction",
			"account_id", id,
			"attempt", attempt,
			"error", err,
		)
	}
	return err
}

func (s *Store) withAccount(ctx context.Context, id uuid.UUID, fn func(tx store.AccountTx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback after a successful Commit returns sql.ErrTxDone and is ignored.
	defer func() { _ = sqlTx.Rollback() }()

	q := s.queries.WithTx(sqlTx)
	row, err := q.GetAccountForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrAccountNotFound
		}
		return fmt.Errorf("lock account: %w", err)
	}

	tx := &accountTx{
		sqlTx:   sqlTx,
		queries: q,
		account: toDomainAccount(row),
	}
	if err := fn(tx); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, id uuid.UUID, limit, offset int) ([]domain.LedgerEntry, error) {
	rows, err := s.queries.ListLedgerEntriesByAccount(ctx, repository.ListLedgerEntriesByAccountParams{
		AccountID: id,
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	entries := make([]domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, toDomainEntry(row))
	}
	return entries, nil
}

func (s *Store) CountEntries(ctx context.Context, id uuid.UUID) (int, error) {
	n, err := s.queries.CountLedgerEntriesByAccount(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return int(n), nil
}

func (s *Store) LoadTiers(ctx context.Context) ([]domain.TierDefinition, error) {
	rows, err := s.queries.ListTierDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tier definitions: %w", err)
	}
	defs := make([]domain.TierDefinition, 0, len(rows))
	for _, row := range rows {
		defs = append(defs, toDomainTier(row))
	}
	return defs, nil
}

func (s *Store) LoadActions(ctx context.Context) (domain.ActionTable, error) {
	rows, err := s.queries.ListActionCosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list action costs: %w", err)
	}
	return toDomainActions(rows)
}

// ReplaceCatalog rewrites tier_definitions, and action_costs when actions is
// non-nil, in one transaction. Rows are deleted first so tiers can trade
// levels without tripping the unique level constraint.
func (s *Store) ReplaceCatalog(ctx context.Context, defs []domain.TierDefinition, actions domain.ActionTable) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	q := s.queries.WithTx(tx)
	if err := q.DeleteAllTierDefinitions(ctx); err != nil {
		return fmt.Errorf("clear tier definitions: %w", err)
	}
	for _, def := range defs {
		if err := q.UpsertTierDefinition(ctx, toUpsertTierParams(def)); err != nil {
			return fmt.Errorf("save tier %s: %w", def.ID, err)
		}
	}

	if actions != nil {
		if err := q.DeleteAllActionCosts(ctx); err != nil {
			return fmt.Errorf("clear action costs: %w", err)
		}
		for _, reason := range slices.Sorted(maps.Keys(actions)) {
			if err := q.InsertActionCost(ctx, toInsertActionParams(actions[reason])); err != nil {
				return fmt.Errorf("save action %s: %w", reason, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("Tier catalog replaced", "tiers", len(defs), "actions", len(actions))
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// IsTransient reports whether err is worth one more attempt.
func IsTransient(err error) bool {
	if isCode(err, codeSerializationFailure) || isCode(err, codeDeadlockDetected) {
		return true
	}
	return errors.Is(err, driver.ErrBadConn)
}

// isCode matches a SQLSTATE from either supported driver.
func isCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}

// =============================================================================
// Transaction
// =============================================================================

type accountTx struct {
	sqlTx   *sql.Tx
	queries *repository.Queries
	account domain.Account
}

func (t *accountTx) Account() domain.Account {
	acct := t.account
	if acct.UsageCounterAnchor != nil {
		anchor := *acct.UsageCounterAnchor
		acct.UsageCounterAnchor = &anchor
	}
	return acct
}

// ResetUsage runs inside a savepoint so a failed reset does not abort the
// enclosing transaction.
func (t *accountTx) ResetUsage(ctx context.Context, anchor time.Time) error {
	if _, err := t.sqlTx.ExecContext(ctx, "SAVEPOINT quota_reset"); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}

	anchor = anchor.UTC()
	err := t.queries.ResetAccountUsage(ctx, repository.ResetAccountUsageParams{
		ID:                 t.account.ID,
		UsageCounterAnchor: anchor,
	})
	if err != nil {
		if _, rbErr := t.sqlTx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT quota_reset"); rbErr != nil {
			return errors.Join(fmt.Errorf("reset usage: %w", err), fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		return fmt.Errorf("reset usage: %w", err)
	}

	if _, err := t.sqlTx.ExecContext(ctx, "RELEASE SAVEPOINT quota_reset"); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	t.account.MonthlyUsageCount = 0
	t.account.UsageCounterAnchor = &anchor
	return nil
}

func (t *accountTx) IncrementUsage(ctx context.Context) (int, error) {
	n, err := t.queries.IncrementAccountUsage(ctx, t.account.ID)
	if err != nil {
		return 0, fmt.Errorf("increment usage: %w", err)
	}
	t.account.MonthlyUsageCount = int(n)
	return int(n), nil
}

func (t *accountTx) SetBalance(ctx context.Context, balance int64) error {
	err := t.queries.UpdateAccountBalance(ctx, repository.UpdateAccountBalanceParams{
		ID:      t.account.ID,
		Balance: balance,
	})
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	t.account.Balance = balance
	return nil
}

func (t *accountTx) SetTierAndBalance(ctx context.Context, tier string, balance int64) error {
	err := t.queries.UpdateAccountTierAndBalance(ctx, repository.UpdateAccountTierAndBalanceParams{
		ID:      t.account.ID,
		Tier:    tier,
		Balance: balance,
	})
	if err != nil {
		return fmt.Errorf("update tier: %w", err)
	}
	t.account.Tier = tier
	t.account.Balance = balance
	return nil
}

func (t *accountTx) AppendEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	entry.AccountID = t.account.ID
	row, err := t.queries.CreateLedgerEntry(ctx, toCreateEntryParams(entry))
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	*entry = toDomainEntry(row)
	return nil
}

func (t *accountTx) SumEntries(ctx context.Context) (int64, int, error) {
	row, err := t.queries.SumLedgerEntriesByAccount(ctx, t.account.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("sum ledger entries: %w", err)
	}
	return row.Total, int(row.EntryCount), nil
}
