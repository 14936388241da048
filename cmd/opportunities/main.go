// Package main is the entry point for the opportunities service and its
// maintenance commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/opportunities/internal/app"
	"github.com/MrSnakeDoc/opportunities/internal/config"
	"github.com/MrSnakeDoc/opportunities/internal/logger"
	"github.com/MrSnakeDoc/opportunities/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "opportunities",
	Short: "Cache-and-relevance engine for the opportunities directory",
	Long: `opportunities serves the published calls, grants and residencies of the
directory from a cached snapshot of the Notion database, with ranked search,
discipline facets, personalized recommendations and saved items.

Without a subcommand it runs the HTTP service. Configuration is read from
OPP_* environment variables.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// bootstrap loads configuration and wires the application. The returned
// cleanup flushes the logger and closes Redis.
func bootstrap(ctx context.Context) (*app.App, func(), error) {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.PrettyLog)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}
	cleanup := func() {
		a.Close()
		_ = log.Sync()
	}
	return a, cleanup, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ opportunities: %v\n", err)
		stop()
		os.Exit(1)
	}
}
