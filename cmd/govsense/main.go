// Package main implements the govsense command: the MCP server plus manual
// import, search and citation commands against the same database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrtinhnguyen/govsense-tthc/internal/app"
	"github.com/mrtinhnguyen/govsense-tthc/internal/config"
	"github.com/mrtinhnguyen/govsense-tthc/internal/logging"
	"github.com/mrtinhnguyen/govsense-tthc/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// options holds flags shared by every subcommand
type options struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "govsense",
		Short: "Tenant-scoped search over administrative procedures",
		Long: `govsense stores administrative procedures (thủ tục hành chính) per search
space, indexes them for semantic search and serves them to MCP clients.

Configuration is read from the file given with --config and from
GOVSENSE_* environment variables, for example GOVSENSE_STORAGE_PATH.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("GOVSENSE_CONFIG"), "path to a YAML config file")

	root.AddCommand(
		newServeCmd(opts),
		newImportCmd(opts),
		newSearchCmd(opts),
		newResolveCmd(opts),
		newStatusCmd(opts),
		newVersionCmd(),
	)
	return root
}

// openApp loads configuration and wires the application
func openApp(opts *options) (*app.App, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg, logger)
	if err != nil {
		_ = logging.Sync(logger)
		return nil, err
	}
	return a, nil
}

// closeApp releases the application and flushes its logger
func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		a.Logger.Warn("close failed", zap.Error(err))
	}
	_ = logging.Sync(a.Logger)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "govsense %s\n", version)
			_, _ = fmt.Fprintf(out, "Build Time: %s\n", buildTime)
			_, _ = fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			_, _ = fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
			_, _ = fmt.Fprintf(out, "Vector Extension: %v\n", storage.VectorExtensionAvailable)
		},
	}
}
