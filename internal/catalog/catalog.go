// Package catalog serves tier definitions and action costs to the engine.
//
// Definitions come from a Source (the tier_definitions table or a TOML file)
// and are cached per tier. Lookups of unknown tiers never fail: they resolve
// to level 0 with no AI access.
package catalog

import (
	"context"

	"github.com/DukeRupert/credits/internal/domain"
)

// Source loads the full set of tier definitions.
type Source interface {
	LoadTiers(ctx context.Context) ([]domain.TierDefinition, error)
}

// Static serves a fixed catalog. It is both a Source and a tier lookup.
type Static struct {
	catalog *domain.Catalog
}

// NewStatic wraps an already validated catalog.
func NewStatic(c *domain.Catalog) *Static {
	return &Static{catalog: c}
}

// Tier returns the definition for id, or the unknown-tier definition.
func (s *Static) Tier(_ context.Context, id string) (domain.TierDefinition, error) {
	return s.catalog.Lookup(id), nil
}

// LoadTiers returns every tier ordered by level.
func (s *Static) LoadTiers(context.Context) ([]domain.TierDefinition, error) {
	return s.catalog.Tiers(), nil
}
