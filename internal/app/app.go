// Package app wires configuration, storage, the tier catalog and the
// services into a running engine. Both the HTTP server and creditctl build
// on it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/DukeRupert/credits/internal"
	"github.com/DukeRupert/credits/internal/catalog"
	"github.com/DukeRupert/credits/internal/domain"
	"github.com/DukeRupert/credits/internal/service"
	"github.com/DukeRupert/credits/internal/store/postgres"
)

// App holds the engine's long-lived dependencies.
type App struct {
	Config  *internal.Config
	Logger  *slog.Logger
	DB      *sql.DB
	Store   *postgres.Store
	Tiers   *catalog.Cache
	Actions domain.ActionTable
	Credits service.CreditService
}

// New opens the database, applies migrations, loads the catalog and builds
// the services.
func New(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (*App, error) {
	db, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := internal.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready", "driver", cfg.DatabaseDriver)

	st := postgres.New(db, logger)

	source, actions, err := CatalogSource(ctx, cfg, st)
	if err != nil {
		db.Close()
		return nil, err
	}
	tiers := catalog.NewCache(source, cfg.CatalogCacheSize, cfg.CatalogCacheTTL, logger)

	// Load once up front so a broken catalog fails startup, not the first spend.
	snapshot, err := tiers.Snapshot(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("tier catalog: %w", err)
	}
	if err := checkCatalog(snapshot, actions); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("Tier catalog loaded",
		"tiers", snapshot.Len(),
		"actions", len(actions),
		"source", catalogSourceName(cfg),
	)

	credits := service.NewCreditService(st, tiers, actions, logger,
		service.WithMaxPageSize(cfg.HistoryMaxPageSize),
	)

	return &App{
		Config:  cfg,
		Logger:  logger,
		DB:      db,
		Store:   st,
		Tiers:   tiers,
		Actions: actions,
		Credits: credits,
	}, nil
}

// Close releases the connection pool.
func (a *App) Close() error {
	return a.DB.Close()
}

// OpenDB opens and pings a connection pool with the configured driver.
func OpenDB(ctx context.Context, cfg *internal.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.DatabaseDriver, cfg.DatabaseUrl)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return db, nil
}

// CatalogStore is the database side of the catalog: tier_definitions and
// action_costs.
type CatalogStore interface {
	catalog.Source
	LoadActions(ctx context.Context) (domain.ActionTable, error)
}

// CatalogSource picks the catalog of record: the TOML file when configured,
// otherwise the tables behind fallback. Action costs come from the same place;
// an empty action_costs table means the built-in defaults.
func CatalogSource(ctx context.Context, cfg *internal.Config, fallback CatalogStore) (catalog.Source, domain.ActionTable, error) {
	if cfg.CatalogFile == "" {
		actions, err := fallback.LoadActions(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("action costs: %w", err)
		}
		if len(actions) == 0 {
			actions = domain.DefaultActions()
		}
		return fallback, actions, nil
	}

	f, err := catalog.LoadFile(cfg.CatalogFile)
	if err != nil {
		return nil, nil, err
	}
	c, err := f.Catalog()
	if err != nil {
		return nil, nil, err
	}
	actions, err := f.ActionTable()
	if err != nil {
		return nil, nil, err
	}
	return catalog.NewStatic(c), actions, nil
}

// checkCatalog verifies that the super-tier exists and that every action's
// minimum tier is defined.
func checkCatalog(c *domain.Catalog, actions domain.ActionTable) error {
	var errs []error
	if !c.Lookup(domain.SuperTierID).Known {
		errs = append(errs, fmt.Errorf("tier catalog must define the %q tier", domain.SuperTierID))
	}
	for reason, a := range actions {
		if a.MinTier != "" && !c.Lookup(a.MinTier).Known {
			errs = append(errs, fmt.Errorf("action %s requires unknown tier %q", reason, a.MinTier))
		}
	}
	return errors.Join(errs...)
}

func catalogSourceName(cfg *internal.Config) string {
	if cfg.CatalogFile != "" {
		return cfg.CatalogFile
	}
	return "tier_definitions"
}
