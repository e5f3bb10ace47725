// Package domain contains core business types and interfaces.
//
// This file defines subscription tiers, the tier catalog and the
// entitlement rule that orders them.
package domain

import (
	"fmt"
	"sort"
)

// SuperTierID is the reserved tier that passes every entitlement, quota
// and spend check. The bypass is hard-coded so that catalog edits can never
// lock administrators out.
const SuperTierID = "admin"

// Default tier identifiers shipped with the seed catalog.
const (
	TierFree         = "free"
	TierStarter      = "starter"
	TierProfessional = "professional"
)

// TierDefinition describes one subscription tier.
//
// A nil MaxManagedAccounts or MonthlyAICap means unbounded. A MonthlyAICap of
// zero means AI generation is not part of the tier.
type TierDefinition struct {
	ID                 string
	Level              int
	StartingBalance    int64
	MaxManagedAccounts *int
	MonthlyAICap       *int
	Known              bool
}

// IsSuper returns true for the reserved super-tier.
func (t TierDefinition) IsSuper() bool {
	return t.ID == SuperTierID
}

// AIUnlimited returns true when the tier has no monthly AI cap.
func (t TierDefinition) AIUnlimited() bool {
	return t.IsSuper() || t.MonthlyAICap == nil
}

// AIForbidden returns true when the tier excludes AI generation entirely.
func (t TierDefinition) AIForbidden() bool {
	return !t.IsSuper() && t.MonthlyAICap != nil && *t.MonthlyAICap == 0
}

// UnknownTier returns the definition used for identifiers missing from the
// catalog: lowest level, no starting balance and no AI access.
func UnknownTier(id string) TierDefinition {
	zero := 0
	return TierDefinition{
		ID:                 id,
		Level:              0,
		MaxManagedAccounts: &zero,
		MonthlyAICap:       &zero,
	}
}

// ResolveEntitlement reports whether an account on tier account may perform
// an action that requires tier required. It has no side effects and is safe
// to call with a stale catalog snapshot.
func ResolveEntitlement(account, required TierDefinition) bool {
	if account.IsSuper() {
		return true
	}
	return account.Level >= required.Level
}

// Catalog is an immutable snapshot of the tier table.
type Catalog struct {
	tiers map[string]TierDefinition
}

// NewCatalog validates defs and builds a snapshot. IDs must be unique, levels
// strictly increasing with privilege and amounts non-negative.
func NewCatalog(defs []TierDefinition) (*Catalog, error) {
	c := &Catalog{tiers: make(map[string]TierDefinition, len(defs))}
	levels := make(map[int]string, len(defs))

	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("tier id is required")
		}
		if _, dup := c.tiers[def.ID]; dup {
			return nil, fmt.Errorf("duplicate tier %q", def.ID)
		}
		if other, dup := levels[def.Level]; dup {
			return nil, fmt.Errorf("tiers %q and %q share level %d", other, def.ID, def.Level)
		}
		if def.StartingBalance < 0 {
			return nil, fmt.Errorf("tier %q: starting balance must not be negative", def.ID)
		}
		if def.MonthlyAICap != nil && *def.MonthlyAICap < 0 {
			return nil, fmt.Errorf("tier %q: monthly AI cap must not be negative", def.ID)
		}
		if def.MaxManagedAccounts != nil && *def.MaxManagedAccounts < 0 {
			return nil, fmt.Errorf("tier %q: max managed accounts must not be negative", def.ID)
		}
		def.Known = true
		c.tiers[def.ID] = def
		levels[def.Level] = def.ID
	}

	return c, nil
}

// Lookup returns the definition for id, or UnknownTier(id) when absent.
func (c *Catalog) Lookup(id string) TierDefinition {
	if c != nil {
		if def, ok := c.tiers[id]; ok {
			return def
		}
	}
	return UnknownTier(id)
}

// Tiers returns all definitions ordered by level.
func (c *Catalog) Tiers() []TierDefinition {
	out := make([]TierDefinition, 0, len(c.tiers))
	for _, def := range c.tiers {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

// Len returns the number of tiers in the snapshot.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.tiers)
}

// IntPtr is a small helper for optional caps in catalog literals.
func IntPtr(v int) *int {
	return &v
}

// DefaultTiers is the seed catalog used when no catalog file or table rows
// are available.
func DefaultTiers() []TierDefinition {
	return []TierDefinition{
		{ID: TierFree, Level: 1, StartingBalance: 20, MaxManagedAccounts: IntPtr(0), MonthlyAICap: IntPtr(2)},
		{ID: TierStarter, Level: 2, StartingBalance: 50, MaxManagedAccounts: IntPtr(5), MonthlyAICap: IntPtr(10)},
		{ID: TierProfessional, Level: 3, StartingBalance: 80, MaxManagedAccounts: IntPtr(25)},
		{ID: SuperTierID, Level: 100, StartingBalance: 0},
	}
}
