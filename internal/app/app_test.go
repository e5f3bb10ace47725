package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/credits/internal"
	"github.com/DukeRupert/credits/internal/catalog"
	"github.com/DukeRupert/credits/internal/domain"
	"github.com/DukeRupert/credits/internal/store/memory"
)

const fileCatalog = `
[[tiers]]
id = "basic"
level = 1
starting_balance = 10
monthly_ai_cap = 1

[[tiers]]
id = "admin"
level = 9

[[actions]]
reason = "DOCUMENT_UPLOAD"
cost = 3
`

func TestCatalogSource_PrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(fileCatalog), 0o600))

	cfg := &internal.Config{CatalogFile: path}
	source, actions, err := CatalogSource(context.Background(), cfg, memory.New(domain.DefaultTiers()...))
	require.NoError(t, err)

	defs, err := source.LoadTiers(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "basic", defs[0].ID)

	upload, ok := actions.Lookup(domain.ReasonDocumentUpload)
	require.True(t, ok)
	assert.Equal(t, int64(3), upload.Cost)
	_, ok = actions.Lookup(domain.ReasonAISynthesis)
	assert.False(t, ok)
}

func TestCatalogSource_FallsBackToStore(t *testing.T) {
	fallback := memory.New(domain.DefaultTiers()...)

	source, actions, err := CatalogSource(context.Background(), &internal.Config{}, fallback)
	require.NoError(t, err)
	assert.Same(t, fallback, source)
	assert.Equal(t, domain.DefaultActions(), actions)
}

func TestCatalogSource_StoredActionCosts(t *testing.T) {
	ctx := context.Background()
	fallback := memory.New()
	stored := domain.ActionTable{domain.ReasonDocumentUpload: {Reason: domain.ReasonDocumentUpload, Cost: 19}}
	require.NoError(t, fallback.ReplaceCatalog(ctx, domain.DefaultTiers(), stored))

	_, actions, err := CatalogSource(ctx, &internal.Config{}, fallback)
	require.NoError(t, err)
	assert.Equal(t, stored, actions)
}

func TestCatalogSource_BadFile(t *testing.T) {
	_, _, err := CatalogSource(context.Background(), &internal.Config{CatalogFile: filepath.Join(t.TempDir(), "missing.toml")}, nil)
	assert.Error(t, err)
}

func TestCheckCatalog(t *testing.T) {
	full, err := domain.NewCatalog(domain.DefaultTiers())
	require.NoError(t, err)
	assert.NoError(t, checkCatalog(full, domain.DefaultActions()))

	noAdmin, err := domain.NewCatalog([]domain.TierDefinition{{ID: domain.TierFree, Level: 1}})
	require.NoError(t, err)
	err = checkCatalog(noAdmin, domain.DefaultActions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"admin"`)
	assert.Contains(t, err.Error(), `unknown tier "starter"`)
}

func TestCatalogSource_FeedsCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(fileCatalog), 0o600))

	source, _, err := CatalogSource(context.Background(), &internal.Config{CatalogFile: path}, nil)
	require.NoError(t, err)

	cache := catalog.NewCache(source, 0, 0, slog.New(slog.DiscardHandler))
	def, err := cache.Tier(context.Background(), "basic")
	require.NoError(t, err)
	assert.True(t, def.Known)
	assert.Equal(t, int64(10), def.StartingBalance)
}
