package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/credits/internal/domain"
)

func newLedgerEnv(t *testing.T, opts ...Option) (LedgerService, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	return NewLedgerService(env.store, testCatalog(t), discardLogger(), opts...), env
}

func TestLedgerDebit(t *testing.T) {
	ledger, env := newLedgerEnv(t)
	ctx := context.Background()
	accountID := env.open(t, domain.TierStarter)

	result, err := ledger.Debit(ctx, domain.DebitParams{AccountID: accountID, Amount: 12, Reason: domain.ReasonDocumentUpload})
	require.NoError(t, err)
	assert.Equal(t, int64(38), result.Balance)
	require.NotNil(t, result.Entry)
	assert.True(t, result.Entry.IsDebit())
	assert.NotEmpty(t, result.Entry.ID)
	assert.Equal(t, int64(38), result.Entry.BalanceAfter)

	_, err = ledger.Debit(ctx, domain.DebitParams{AccountID: accountID, Amount: 39, Reason: domain.ReasonDocumentUpload})
	assert.Equal(t, domain.EPAYMENT, domain.ErrorCode(err))
	assert.Equal(t, int64(38), env.balance(t, accountID))
}

func TestLedgerDebit_Validation(t *testing.T) {
	ledger, env := newLedgerEnv(t)
	accountID := env.open(t, domain.TierStarter)

	tests := []struct {
		name   string
		params domain.DebitParams
		code   string
	}{
		{name: "zero amount", params: domain.DebitParams{AccountID: accountID, Reason: domain.ReasonDocumentUpload}, code: domain.EINVALID},
		{name: "negative amount", params: domain.DebitParams{AccountID: accountID, Amount: -3, Reason: domain.ReasonDocumentUpload}, code: domain.EINVALID},
		{name: "unknown reason", params: domain.DebitParams{AccountID: accountID, Amount: 3, Reason: "BOGUS"}, code: domain.EINVALID},
		{name: "missing account", params: domain.DebitParams{AccountID: uuid.New(), Amount: 3, Reason: domain.ReasonDocumentUpload}, code: domain.ENOTFOUND},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Debit(context.Background(), tt.params)
			assert.Equal(t, tt.code, domain.ErrorCode(err))
		})
	}
	assert.Empty(t, env.store.Entries(accountID))
}

func TestLedgerDebit_SuperTierIsNotCharged(t *testing.T) {
	ledger, env := newLedgerEnv(t)
	adminID := env.open(t, domain.SuperTierID)

	result, err := ledger.Debit(context.Background(), domain.DebitParams{AccountID: adminID, Amount: 500, Reason: domain.ReasonAISynthesis})
	require.NoError(t, err)
	assert.Nil(t, result.Entry)
	assert.Equal(t, int64(0), result.Balance)
	assert.Empty(t, env.store.Entries(adminID))
}

func TestLedgerCredit(t *testing.T) {
	ledger, env := newLedgerEnv(t)
	ctx := context.Background()
	accountID := env.open(t, domain.TierFree)
	admin := uuid.New()

	entry, err := ledger.Credit(ctx, domain.CreditParams{
		AccountID:     accountID,
		Amount:        30,
		Reason:        domain.ReasonAdminAdjustment,
		Description:   "Promo",
		ActingAdminID: &admin,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30), entry.Amount)
	assert.Equal(t, int64(50), entry.BalanceAfter)
	assert.Equal(t, admin, *entry.ActingAdminID)
	assert.Equal(t, int64(50), env.balance(t, accountID))

	_, err = ledger.Credit(ctx, domain.CreditParams{AccountID: accountID, Amount: 0, Reason: domain.ReasonRefund})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestLedgerHistory(t *testing.T) {
	ledger, env := newLedgerEnv(t, WithMaxPageSize(3))
	ctx := context.Background()
	accountID := env.open(t, domain.TierProfessional)

	page, err := ledger.History(ctx, accountID, 1, 20)
	require.NoError(t, err)
	assert.NotNil(t, page.Entries)
	assert.Empty(t, page.Entries)
	assert.Equal(t, 0, page.Total)

	for i := 0; i < 7; i++ {
		_, err := ledger.Debit(ctx, domain.DebitParams{AccountID: accountID, Amount: 1, Reason: domain.ReasonDocumentUpload})
		require.NoError(t, err)
	}

	// Page size is clamped to the configured maximum.
	page, err = ledger.History(ctx, accountID, 2, 50)
	require.NoError(t, err)
	assert.Equal(t, 3, page.PageSize)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Entries, 3)
	assert.Equal(t, int64(76), page.Entries[0].BalanceAfter)
	assert.Equal(t, 7, page.Total)
	assert.Equal(t, 3, page.TotalPages)

	page, err = ledger.History(ctx, accountID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 3, page.PageSize)
}

func TestLedgerHistory_HugePageIsClamped(t *testing.T) {
	ledger, env := newLedgerEnv(t)
	ctx := context.Background()
	accountID := env.open(t, domain.TierProfessional)

	_, err := ledger.Debit(ctx, domain.DebitParams{AccountID: accountID, Amount: 1, Reason: domain.ReasonDocumentUpload})
	require.NoError(t, err)

	page, err := ledger.History(ctx, accountID, 1<<62, 100)
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
	assert.Equal(t, 1, page.Total)
	assert.False(t, page.HasNext)
}
