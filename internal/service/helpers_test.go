package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/credits/internal/catalog"
	"github.com/DukeRupert/credits/internal/domain"
	"github.com/DukeRupert/credits/internal/store"
	"github.com/DukeRupert/credits/internal/store/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testClock is a settable clock shared by the services under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{now: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

var march2026 = time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

func testCatalog(t *testing.T, defs ...domain.TierDefinition) *catalog.Static {
	t.Helper()
	if len(defs) == 0 {
		defs = domain.DefaultTiers()
	}
	c, err := domain.NewCatalog(defs)
	require.NoError(t, err)
	return catalog.NewStatic(c)
}

type testEnv struct {
	svc   CreditService
	store *memory.Store
	clock *testClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := memory.New()
	clock := newTestClock(march2026)
	svc := NewCreditService(st, testCatalog(t), domain.DefaultActions(), discardLogger(), WithClock(clock.Now))
	return &testEnv{svc: svc, store: st, clock: clock}
}

func (e *testEnv) open(t *testing.T, tier string) uuid.UUID {
	t.Helper()
	acct, err := e.svc.OpenAccount(context.Background(), uuid.New(), tier)
	require.NoError(t, err)
	return acct.ID
}

func (e *testEnv) balance(t *testing.T, accountID uuid.UUID) int64 {
	t.Helper()
	acct, err := e.store.GetAccount(context.Background(), accountID)
	require.NoError(t, err)
	return acct.Balance
}

// =============================================================================
// Faulty store
// =============================================================================

var (
	errAuditUnavailable = errors.New("audit log unavailable")
	errResetFailed      = errors.New("reset write failed")
)

// faultyStore wraps a store and fails selected transaction writes.
type faultyStore struct {
	store.Store
	failAppend bool
	failReset  bool
}

func (f *faultyStore) WithAccount(ctx context.Context, id uuid.UUID, fn func(tx store.AccountTx) error) error {
	return f.Store.WithAccount(ctx, id, func(tx store.AccountTx) error {
		return fn(&faultyTx{AccountTx: tx, store: f})
	})
}

type faultyTx struct {
	store.AccountTx
	store *faultyStore
}

func (t *faultyTx) AppendEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	if t.store.failAppend {
		return errAuditUnavailable
	}
	return t.AccountTx.AppendEntry(ctx, entry)
}

func (t *faultyTx) ResetUsage(ctx context.Context, anchor time.Time) error {
	if t.store.failReset {
		return errResetFailed
	}
	return t.AccountTx.ResetUsage(ctx, anchor)
}
