// Package cli implements creditctl, the operator command line for the
// credit engine.
package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/DukeRupert/credits/internal/domain"
	"github.com/DukeRupert/credits/internal/service"
)

// TierCatalog is the cached view of tier definitions.
type TierCatalog interface {
	Snapshot(ctx context.Context) (*domain.Catalog, error)
	Invalidate()
}

// CatalogStore persists the tier catalog and action costs.
type CatalogStore interface {
	ReplaceCatalog(ctx context.Context, defs []domain.TierDefinition, actions domain.ActionTable) error
}

// Engine is what commands operate on.
type Engine struct {
	Credits service.CreditService
	Tiers   TierCatalog
	Store   CatalogStore
	Actions domain.ActionTable
	// CatalogFile is set when the engine reads its catalog from a TOML file
	// instead of the database.
	CatalogFile string
	DB          *sql.DB // Nil when the engine is not database backed
	Close   func() error
}

// Opener builds an Engine. It runs once per command invocation.
type Opener func(ctx context.Context) (*Engine, error)

// NewRootCmd returns the creditctl command tree.
func NewRootCmd(open Opener) *cobra.Command {
	r := &runner{open: open}

	rootCmd := &cobra.Command{
		Use:           "creditctl",
		Short:         "Operate the credit and quota engine",
		Long:          "creditctl opens accounts, inspects balances and quota, applies administrator adjustments and manages the tier catalog.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().BoolVar(&r.jsonOut, "json", false, "print machine-readable JSON")

	rootCmd.AddCommand(
		newAccountCmd(r),
		newHistoryCmd(r),
		newQuotaCmd(r),
		newSpendCmd(r),
		newAdjustCmd(r),
		newTierCmd(r),
		newRefundCmd(r),
		newReconcileCmd(r),
		newCatalogCmd(r),
		newMigrateCmd(r),
	)

	return rootCmd
}

type runner struct {
	open    Opener
	jsonOut bool
}

// with opens the engine, runs fn and closes the engine again.
func (r *runner) with(cmd *cobra.Command, fn func(ctx context.Context, e *Engine) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	e, err := r.open(ctx)
	if err != nil {
		return err
	}
	if e.Close != nil {
		defer e.Close()
	}

	return userError(fn(ctx, e))
}

// print writes v as JSON when --json is set, otherwise calls text.
func (r *runner) print(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if r.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

// userError replaces domain errors with their user-facing message. Internal
// errors keep their full chain so operators can see the cause.
func userError(err error) error {
	if err == nil {
		return nil
	}
	var derr *domain.Error
	if !errors.As(err, &derr) || derr.Code == domain.EINTERNAL {
		return err
	}
	return fmt.Errorf("%s: %s", derr.Code, domain.ErrorMessage(err))
}
