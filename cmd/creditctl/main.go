package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/DukeRupert/credits/internal"
	"github.com/DukeRupert/credits/internal/app"
	"github.com/DukeRupert/credits/internal/cli"
)

func open(ctx context.Context) (*cli.Engine, error) {
	cfg, err := internal.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("config initialization failed: %w", err)
	}

	// Keep stdout for command output.
	logger := internal.NewLogger(os.Stderr, cfg.Env, cfg.LogLevel)

	engine, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &cli.Engine{
		Credits:     engine.Credits,
		Tiers:       engine.Tiers,
		Store:       engine.Store,
		Actions:     engine.Actions,
		CatalogFile: cfg.CatalogFile,
		DB:          engine.DB,
		Close:       engine.Close,
	}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd(open).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
