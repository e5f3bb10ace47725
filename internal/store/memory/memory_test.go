package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/credits/internal/domain"
	"github.com/DukeRupert/credits/internal/store"
)

func newAccount(t *testing.T, s *Store, balance int64) uuid.UUID {
	t.Helper()
	acct := &domain.Account{ID: uuid.New(), Tier: domain.TierFree, Balance: balance, OpeningBalance: balance}
	require.NoError(t, s.CreateAccount(context.Background(), acct))
	return acct.ID
}

func TestCreateAccount_Duplicate(t *testing.T) {
	s := New()
	acct := &domain.Account{ID: uuid.New(), Tier: domain.TierFree}
	require.NoError(t, s.CreateAccount(context.Background(), acct))

	err := s.CreateAccount(context.Background(), &domain.Account{ID: acct.ID})
	assert.ErrorIs(t, err, store.ErrAccountExists)
}

func TestGetAccount_NotFound(t *testing.T) {
	_, err := New().GetAccount(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrAccountNotFound)
}

func TestWithAccount_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := New()
	accountID := newAccount(t, s, 20)
	anchor := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	err := s.WithAccount(ctx, accountID, func(tx store.AccountTx) error {
		require.NoError(t, tx.ResetUsage(ctx, anchor))
		n, err := tx.IncrementUsage(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		require.NoError(t, tx.SetBalance(ctx, 15))
		assert.Equal(t, int64(15), tx.Account().Balance)
		return tx.AppendEntry(ctx, &domain.LedgerEntry{Amount: -5, BalanceAfter: 15, Reason: domain.ReasonDocumentUpload})
	})
	require.NoError(t, err)

	acct, err := s.GetAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(15), acct.Balance)
	assert.Equal(t, 1, acct.MonthlyUsageCount)
	require.NotNil(t, acct.UsageCounterAnchor)
	assert.True(t, anchor.Equal(*acct.UsageCounterAnchor))

	entries := s.Entries(accountID)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, accountID, entries[0].AccountID)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestWithAccount_DiscardsOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	accountID := newAccount(t, s, 20)
	boom := errors.New("boom")

	err := s.WithAccount(ctx, accountID, func(tx store.AccountTx) error {
		require.NoError(t, tx.SetTierAndBalance(ctx, domain.TierStarter, 50))
		require.NoError(t, tx.AppendEntry(ctx, &domain.LedgerEntry{Amount: 30, BalanceAfter: 50, Reason: domain.ReasonTierChange}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	acct, err := s.GetAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, domain.TierFree, acct.Tier)
	assert.Equal(t, int64(20), acct.Balance)
	assert.Empty(t, s.Entries(accountID))
}

func TestWithAccount_NotFound(t *testing.T) {
	called := false
	err := New().WithAccount(context.Background(), uuid.New(), func(store.AccountTx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, store.ErrAccountNotFound)
	assert.False(t, called)
}

func TestWithAccount_CanceledContext(t *testing.T) {
	s := New()
	accountID := newAccount(t, s, 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.WithAccount(ctx, accountID, func(store.AccountTx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithAccount_SerializesPerAccount(t *testing.T) {
	ctx := context.Background()
	s := New()
	accountID := newAccount(t, s, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithAccount(ctx, accountID, func(tx store.AccountTx) error {
				return tx.SetBalance(ctx, tx.Account().Balance+1)
			})
		}()
	}
	wg.Wait()

	acct, err := s.GetAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), acct.Balance)
}

func TestListEntries_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	accountID := newAccount(t, s, 100)

	for i := 1; i <= 5; i++ {
		amount := int64(-i)
		require.NoError(t, s.WithAccount(ctx, accountID, func(tx store.AccountTx) error {
			return tx.AppendEntry(ctx, &domain.LedgerEntry{Amount: amount, Reason: domain.ReasonDocumentUpload})
		}))
	}

	page, err := s.ListEntries(ctx, accountID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(-5), page[0].Amount)
	assert.Equal(t, int64(-4), page[1].Amount)

	page, err = s.ListEntries(ctx, accountID, 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(-1), page[0].Amount)

	page, err = s.ListEntries(ctx, accountID, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)

	page, err = s.ListEntries(ctx, accountID, 2, -100)
	require.NoError(t, err)
	assert.Empty(t, page)

	n, err := s.CountEntries(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestSumEntries_IncludesPending(t *testing.T) {
	ctx := context.Background()
	s := New()
	accountID := newAccount(t, s, 100)

	require.NoError(t, s.WithAccount(ctx, accountID, func(tx store.AccountTx) error {
		return tx.AppendEntry(ctx, &domain.LedgerEntry{Amount: -10, Reason: domain.ReasonDocumentUpload})
	}))

	require.NoError(t, s.WithAccount(ctx, accountID, func(tx store.AccountTx) error {
		require.NoError(t, tx.AppendEntry(ctx, &domain.LedgerEntry{Amount: 4, Reason: domain.ReasonRefund}))
		sum, count, err := tx.SumEntries(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(-6), sum)
		assert.Equal(t, 2, count)
		return nil
	}))
}

func TestTiers(t *testing.T) {
	ctx := context.Background()
	s := New(domain.DefaultTiers()...)

	tiers, err := s.LoadTiers(ctx)
	require.NoError(t, err)
	require.Len(t, tiers, 4)
	for i := 1; i < len(tiers); i++ {
		assert.Less(t, tiers[i-1].Level, tiers[i].Level)
	}
}

func TestReplaceCatalog(t *testing.T) {
	ctx := context.Background()
	s := New(domain.DefaultTiers()...)

	actions, err := s.LoadActions(ctx)
	require.NoError(t, err)
	assert.Empty(t, actions)

	require.NoError(t, s.ReplaceCatalog(ctx,
		[]domain.TierDefinition{{ID: "free", Level: 2}, {ID: "admin", Level: 1}},
		domain.ActionTable{domain.ReasonDocumentUpload: {Reason: domain.ReasonDocumentUpload, Cost: 19}},
	))

	tiers, err := s.LoadTiers(ctx)
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	assert.Equal(t, "admin", tiers[0].ID)

	actions, err = s.LoadActions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(19), actions[domain.ReasonDocumentUpload].Cost)

	// Nil actions keep the stored costs; duplicate levels change nothing.
	require.NoError(t, s.ReplaceCatalog(ctx, []domain.TierDefinition{{ID: "admin", Level: 1}}, nil))
	actions, err = s.LoadActions(ctx)
	require.NoError(t, err)
	assert.Len(t, actions, 1)

	err = s.ReplaceCatalog(ctx, []domain.TierDefinition{{ID: "a", Level: 1}, {ID: "b", Level: 1}}, nil)
	require.Error(t, err)
	tiers, err = s.LoadTiers(ctx)
	require.NoError(t, err)
	require.Len(t, tiers, 1)
}
