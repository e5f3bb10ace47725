package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/credits/internal/catalog"
	"github.com/DukeRupert/credits/internal/domain"
	"github.com/DukeRupert/credits/internal/service"
	"github.com/DukeRupert/credits/internal/store/memory"
)

type testEngine struct {
	store  *memory.Store
	tiers  *catalog.Cache
	engine *Engine
	opened int
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	st := memory.New(domain.DefaultTiers()...)
	tiers := catalog.NewCache(st, 0, 0, logger)
	return &testEngine{
		store: st,
		tiers: tiers,
		engine: &Engine{
			Credits: service.NewCreditService(st, tiers, domain.DefaultActions(), logger),
			Tiers:   tiers,
			Store:   st,
			Actions: domain.DefaultActions(),
		},
	}
}

func (te *testEngine) open(context.Context) (*Engine, error) {
	te.opened++
	return te.engine, nil
}

func executeCLI(t *testing.T, te *testEngine, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd(te.open)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestAccountOpenAndShow(t *testing.T) {
	te := newTestEngine(t)
	id := uuid.New()

	stdout, _, err := executeCLI(t, te, "account", "open", id.String(), "--tier", domain.TierStarter)
	require.NoError(t, err)
	assert.Contains(t, stdout, "starter")
	assert.Contains(t, stdout, "balance")

	stdout, _, err = executeCLI(t, te, "account", "show", id.String(), "--json")
	require.NoError(t, err)
	var acct domain.Account
	require.NoError(t, json.Unmarshal([]byte(stdout), &acct))
	assert.Equal(t, id, acct.ID)
	assert.Equal(t, domain.TierStarter, acct.Tier)
}

func TestAccountShow_InvalidID(t *testing.T) {
	te := newTestEngine(t)

	_, _, err := executeCLI(t, te, "account", "show", "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid account id")
	assert.Zero(t, te.opened, "engine should not be opened for bad input")
}

func TestAccountShow_NotFound(t *testing.T) {
	te := newTestEngine(t)

	_, _, err := executeCLI(t, te, "account", "show", uuid.NewString())
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ENOTFOUND)
}

func TestSpendThenHistory(t *testing.T) {
	te := newTestEngine(t)
	id := uuid.New()
	_, _, err := executeCLI(t, te, "account", "open", id.String())
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, te, "spend", id.String(), string(domain.ReasonDocumentUpload), "--description", "lease.pdf")
	require.NoError(t, err)
	assert.Contains(t, stdout, "completed: charged 5, balance 15")

	stdout, _, err = executeCLI(t, te, "history", id.String())
	require.NoError(t, err)
	assert.Contains(t, stdout, "DOCUMENT_UPLOAD")
	assert.Contains(t, stdout, "lease.pdf")
	assert.Contains(t, stdout, "page 1 of 1 (1 entries)")
}

func TestSpend_Rejected(t *testing.T) {
	te := newTestEngine(t)
	id := uuid.New()
	_, _, err := executeCLI(t, te, "account", "open", id.String())
	require.NoError(t, err)

	_, _, err = executeCLI(t, te, "spend", id.String(), string(domain.ReasonDocumentUpload), "--cost", "500")
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.EPAYMENT)
}

func TestAdjust_RequiresAdminAndReason(t *testing.T) {
	te := newTestEngine(t)

	_, _, err := executeCLI(t, te, "adjust", uuid.NewString(), "10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "admin", "reason" not set`)
}

func TestAdjustTierRefundReconcile(t *testing.T) {
	te := newTestEngine(t)
	id := uuid.New()
	admin := uuid.NewString()
	_, _, err := executeCLI(t, te, "account", "open", id.String())
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, te, "adjust", id.String(), "30", "--admin", admin, "--reason", "goodwill")
	require.NoError(t, err)
	assert.Contains(t, stdout, "+30 ADMIN_ADJUSTMENT (balance 50)")

	stdout, _, err = executeCLI(t, te, "tier", id.String(), domain.TierStarter, "--admin", admin)
	require.NoError(t, err)
	assert.Contains(t, stdout, "tier starter")

	_, _, err = executeCLI(t, te, "refund", id.String(), "5", "--admin", admin,
		"--description", "upload failed", "--resource-type", "document", "--resource-id", "doc-1")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, te, "reconcile", id.String())
	require.NoError(t, err)
	assert.Contains(t, stdout, "drift 0")
}

func TestQuota(t *testing.T) {
	te := newTestEngine(t)
	id := uuid.New()
	_, _, err := executeCLI(t, te, "account", "open", id.String(), "--tier", domain.TierProfessional)
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, te, "quota", id.String())
	require.NoError(t, err)
	assert.Contains(t, stdout, "unlimited")
}

func TestCatalogShow(t *testing.T) {
	te := newTestEngine(t)

	stdout, _, err := executeCLI(t, te, "catalog", "show")
	require.NoError(t, err)

	f, err := catalog.ParseFile([]byte(stdout))
	require.NoError(t, err)
	assert.Len(t, f.Tiers, len(domain.DefaultTiers()))
}

const importCatalog = `
[[tiers]]
id = "free"
level = 1
starting_balance = 40
monthly_ai_cap = 0

[[tiers]]
id = "admin"
level = 99

[[actions]]
reason = "DOCUMENT_UPLOAD"
cost = 19
`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestCatalogImport_ReplacesTiersAndActions(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()
	path := writeCatalog(t, importCatalog)

	// Prime the cache so the import has something to invalidate.
	before, err := te.tiers.Tier(ctx, domain.TierFree)
	require.NoError(t, err)
	require.Equal(t, int64(20), before.StartingBalance)

	stdout, _, err := executeCLI(t, te, "catalog", "import", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "imported 2 tiers and 1 action costs")

	after, err := te.tiers.Tier(ctx, domain.TierFree)
	require.NoError(t, err)
	assert.Equal(t, int64(40), after.StartingBalance)

	snapshot, err := te.tiers.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.Len())
	assert.False(t, snapshot.Lookup(domain.TierStarter).Known)

	actions, err := te.store.LoadActions(ctx)
	require.NoError(t, err)
	upload, ok := actions.Lookup(domain.ReasonDocumentUpload)
	require.True(t, ok)
	assert.Equal(t, int64(19), upload.Cost)
}

func TestCatalogImport_WithoutActionsKeepsCosts(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()
	stored := domain.ActionTable{domain.ReasonDocumentUpload: {Reason: domain.ReasonDocumentUpload, Cost: 7}}
	require.NoError(t, te.store.ReplaceCatalog(ctx, domain.DefaultTiers(), stored))

	path := writeCatalog(t, `
[[tiers]]
id = "admin"
level = 5
`)
	stdout, _, err := executeCLI(t, te, "catalog", "import", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 tiers, action costs unchanged")

	actions, err := te.store.LoadActions(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored, actions)
}

func TestCatalogImport_RefusesFileBackedEngine(t *testing.T) {
	te := newTestEngine(t)
	te.engine.CatalogFile = "/etc/credits/catalog.toml"

	_, _, err := executeCLI(t, te, "catalog", "import", writeCatalog(t, importCatalog))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/etc/credits/catalog.toml")

	tiers, err := te.store.LoadTiers(context.Background())
	require.NoError(t, err)
	assert.Len(t, tiers, len(domain.DefaultTiers()))
}

func TestCatalogImport_DryRunDoesNotOpenEngine(t *testing.T) {
	te := newTestEngine(t)

	_, _, err := executeCLI(t, te, "catalog", "import", "--dry-run", "../../catalog.example.toml")
	require.NoError(t, err)
	assert.Zero(t, te.opened)
}

func TestMigrateStatus_NeedsDatabase(t *testing.T) {
	te := newTestEngine(t)

	_, _, err := executeCLI(t, te, "migrate", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database")
}
