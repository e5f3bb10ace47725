package catalog

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/DukeRupert/credits/internal/domain"
)

// File is the TOML catalog format:
//
//	[[tiers]]
//	id = "starter"
//	level = 2
//	starting_balance = 50
//	max_managed_accounts = 5
//	monthly_ai_cap = 10        # omit for unbounded, 0 = not included
//
//	[[actions]]
//	reason = "AI_GENERATE_ACTION_PLAN"
//	cost = 15
//	min_tier = "starter"
type File struct {
	Tiers   []FileTier   `toml:"tiers"`
	Actions []FileAction `toml:"actions"`
}

// FileTier is one [[tiers]] table.
type FileTier struct {
	ID                 string `toml:"id"`
	Level              int    `toml:"level"`
	StartingBalance    int64  `toml:"starting_balance"`
	MaxManagedAccounts *int   `toml:"max_managed_accounts,omitempty"`
	MonthlyAICap       *int   `toml:"monthly_ai_cap,omitempty"`
}

// FileAction is one [[actions]] table.
type FileAction struct {
	Reason  string `toml:"reason"`
	Cost    int64  `toml:"cost"`
	MinTier string `toml:"min_tier,omitempty"`
}

// LoadFile reads and validates a TOML catalog.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	f, err := ParseFile(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return f, nil
}

// ParseFile decodes and validates TOML catalog bytes. Unknown keys are errors.
func ParseFile(data []byte) (*File, error) {
	var f File
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	c, err := f.Catalog()
	if err != nil {
		return nil, err
	}
	if !c.Lookup(domain.SuperTierID).Known {
		return nil, fmt.Errorf("catalog must define the %q tier", domain.SuperTierID)
	}
	if _, err := f.ActionTable(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Catalog builds the tier catalog described by the file.
func (f *File) Catalog() (*domain.Catalog, error) {
	return domain.NewCatalog(f.TierDefinitions())
}

// TierDefinitions converts the [[tiers]] tables.
func (f *File) TierDefinitions() []domain.TierDefinition {
	defs := make([]domain.TierDefinition, 0, len(f.Tiers))
	for _, t := range f.Tiers {
		defs = append(defs, domain.TierDefinition{
			ID:                 t.ID,
			Level:              t.Level,
			StartingBalance:    t.StartingBalance,
			MaxManagedAccounts: t.MaxManagedAccounts,
			MonthlyAICap:       t.MonthlyAICap,
		})
	}
	return defs
}

// ActionTable builds the cost table. A file without [[actions]] uses the
// built-in defaults.
func (f *File) ActionTable() (domain.ActionTable, error) {
	if len(f.Actions) == 0 {
		return domain.DefaultActions(), nil
	}
	tiers := make(map[string]bool, len(f.Tiers))
	for _, t := range f.Tiers {
		tiers[t.ID] = true
	}

	actions := make([]domain.Action, 0, len(f.Actions))
	for _, a := range f.Actions {
		if a.MinTier != "" && !tiers[a.MinTier] {
			return nil, fmt.Errorf("action %s: unknown min_tier %q", a.Reason, a.MinTier)
		}
		actions = append(actions, domain.Action{
			Reason:  domain.ReasonCode(a.Reason),
			Cost:    a.Cost,
			MinTier: a.MinTier,
		})
	}
	return domain.NewActionTable(actions)
}

// Encode renders a catalog and action table in the file format.
func Encode(c *domain.Catalog, actions domain.ActionTable) ([]byte, error) {
	var f File
	for _, def := range c.Tiers() {
		f.Tiers = append(f.Tiers, FileTier{
			ID:                 def.ID,
			Level:              def.Level,
			StartingBalance:    def.StartingBalance,
			MaxManagedAccounts: def.MaxManagedAccounts,
			MonthlyAICap:       def.MonthlyAICap,
		})
	}
	for _, reason := range sortedReasons(actions) {
		a := actions[reason]
		f.Actions = append(f.Actions, FileAction{
			Reason:  string(a.Reason),
			Cost:    a.Cost,
			MinTier: a.MinTier,
		})
	}
	return toml.Marshal(f)
}

func sortedReasons(actions domain.ActionTable) []domain.ReasonCode {
	reasons := make([]domain.ReasonCode, 0, len(actions))
	for r := range actions {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	return reasons
}
