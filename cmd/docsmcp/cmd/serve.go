package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsmcp/internal/config"
	"github.com/Aman-CERP/docsmcp/internal/logging"
	"github.com/Aman-CERP/docsmcp/internal/mcp"
	"github.com/Aman-CERP/docsmcp/internal/telemetry"
	"github.com/Aman-CERP/docsmcp/internal/watcher"
	"github.com/Aman-CERP/docsmcp/pkg/version"
)

// serveOptions holds CLI flags for serve.
type serveOptions struct {
	transport string
	watch     bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server for AI assistants.

The server speaks JSON-RPC over stdio. Nothing but protocol messages is
written to stdout; logs go to ~/.docsmcp/logs/server.log.

With --watch, a corpus is reloaded in the background whenever one of its
documentation files changes. Searches keep using the previous index until
the reload completes.`,
		Example: `  # Start the stdio server
  docsmcp serve

  # Reload corpora on change
  docsmcp serve --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "", "Transport protocol (stdio)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload corpora when their files change")

	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level := cfg.Server.LogLevel
	if debugMode {
		level = "debug"
	}
	logger, cleanup, err := logging.SetupServer(level)
	if err != nil {
		return err
	}
	defer cleanup()

	transport := opts.transport
	if transport == "" {
		transport = cfg.Server.Transport
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("docsmcp starting",
		slog.String("version", version.Version),
		slog.String("config_dir", configDir()),
		slog.Any("corpora", cfg.CorpusNames()))

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to load corpora", slog.String("error", err.Error()))
		return err
	}
	defer a.Close()

	srv, err := mcp.NewServer(a.router, cfg)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	srv.SetLogger(logger)
	srv.SetMetrics(telemetry.NewQueryMetrics())

	if opts.watch || cfg.Server.Watch {
		startWatcher(ctx, a, cfg, logger)
	}

	err = srv.Serve(ctx, transport)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startWatcher reloads corpora in the background. It never blocks startup:
// a watcher that fails is logged and the server keeps the loaded indexes.
func startWatcher(ctx context.Context, a *app, cfg *config.Config, logger *slog.Logger) {
	targets := make([]watcher.Target, 0, len(cfg.Corpora))
	for _, cc := range cfg.Corpora {
		targets = append(targets, watcher.Target{
			Domain:     cc.Name,
			Path:       cc.Path,
			Extensions: cc.Extensions,
		})
	}

	opts := watcher.DefaultOptions()
	opts.Debounce = cfg.WatchDebounce()

	cw := watcher.NewCorpusWatcher(a.router, a.buildIndex, opts, targets...)
	cw.SetLogger(logger)

	go func() {
		if err := cw.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("corpus watcher stopped", slog.String("error", err.Error()))
		}
	}()
}
