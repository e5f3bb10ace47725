package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/DukeRupert/credits/internal"
	"github.com/DukeRupert/credits/internal/catalog"
	"github.com/DukeRupert/credits/internal/domain"
)

func newCatalogCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and load the tier catalog",
	}

	cmd.AddCommand(
		newCatalogShowCmd(r),
		newCatalogImportCmd(r),
	)

	return cmd
}

func newCatalogShowCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the active tiers and action costs as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.with(cmd, func(ctx context.Context, e *Engine) error {
				snapshot, err := e.Tiers.Snapshot(ctx)
				if err != nil {
					return err
				}
				if r.jsonOut {
					return r.print(cmd, snapshot.Tiers(), nil)
				}
				data, err := catalog.Encode(snapshot, e.Actions)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}
}

func newCatalogImportCmd(r *runner) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored tiers, and action costs when present, with a TOML catalog",
		Long: "import validates a TOML catalog and replaces every stored tier definition in one " +
			"transaction. Tiers missing from the file are removed. When the file has [[actions]] " +
			"the stored action costs are replaced too; running servers apply new costs on restart.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}
			defs := f.TierDefinitions()

			var actions domain.ActionTable
			if len(f.Actions) > 0 {
				if actions, err = f.ActionTable(); err != nil {
					return err
				}
			}
			summary := importSummary{Tiers: defs, Actions: actions}

			if dryRun {
				return r.print(cmd, summary, func(w io.Writer) {
					fmt.Fprintf(w, "%s is valid: %s\n", args[0], summary)
				})
			}
			return r.with(cmd, func(ctx context.Context, e *Engine) error {
				if e.CatalogFile != "" {
					return fmt.Errorf("the catalog is read from %s; edit that file instead of importing", e.CatalogFile)
				}
				if err := e.Store.ReplaceCatalog(ctx, defs, actions); err != nil {
					return err
				}
				e.Tiers.Invalidate()
				return r.print(cmd, summary, func(w io.Writer) {
					fmt.Fprintf(w, "imported %s\n", summary)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate only")

	return cmd
}

type importSummary struct {
	Tiers   []domain.TierDefinition
	Actions domain.ActionTable `json:",omitempty"`
}

func (s importSummary) String() string {
	if s.Actions == nil {
		return fmt.Sprintf("%d tiers, action costs unchanged", len(s.Tiers))
	}
	return fmt.Sprintf("%d tiers and %d action costs", len(s.Tiers), len(s.Actions))
}

func newMigrateCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.with(cmd, func(_ context.Context, e *Engine) error {
				if e.DB == nil {
					return errors.New("migrations need a database backed engine")
				}
				return internal.MigrationStatus(e.DB)
			})
		},
	})

	return cmd
}
