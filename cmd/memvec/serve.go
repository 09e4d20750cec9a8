package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fyrsmithlabs/memvec/internal/config"
	"github.com/fyrsmithlabs/memvec/internal/embeddings"
	memhttp "github.com/fyrsmithlabs/memvec/internal/http"
	"github.com/fyrsmithlabs/memvec/internal/logging"
	"github.com/fyrsmithlabs/memvec/internal/redact"
	"github.com/fyrsmithlabs/memvec/internal/telemetry"
	"github.com/fyrsmithlabs/memvec/internal/vectorstore"
	"github.com/fyrsmithlabs/memvec/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *options) *cobra.Command {
	var (
		port  int
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the memvec HTTP server",
		Long: `Start the memvec HTTP server.

The store is loaded from the snapshot file at startup when it exists and
saved back on SIGINT or SIGTERM. With --watch (or store.watch) the store is
reloaded whenever the snapshot file changes on disk.

Configuration precedence: flags, MEMVEC_* environment variables, the config
file, built-in defaults.

Examples:
  memvec serve
  memvec serve --port 8088 --watch
  MEMVEC_EMBEDDINGS_PROVIDER=tei MEMVEC_EMBEDDINGS_BASE_URL=http://tei:80 memvec serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("watch") {
				cfg.Store.Watch = watch
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the store when the snapshot file changes")

	return cmd
}

// runServe starts the server and blocks until ctx is cancelled or the
// server fails.
//
// Startup order:
//  1. Telemetry, then the logger bridged onto its LoggerProvider
//  2. Embedding provider (installing the ONNX runtime for fastembed)
//  3. Store, loaded from the snapshot when present
//  4. HTTP server and optional snapshot watcher
//
// Shutdown stops the watcher and server, then saves the snapshot.
func runServe(ctx context.Context, cfg *config.Config) (err error) {
	tel, err := telemetry.New(ctx, &cfg.Telemetry, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Telemetry.ShutdownTimeout.Duration())
		defer cancel()
		if shutdownErr := tel.Shutdown(shutdownCtx); shutdownErr != nil {
			err = errors.Join(err, fmt.Errorf("telemetry shutdown: %w", shutdownErr))
		}
	}()

	logCfg, err := logging.FromAppConfig(cfg.Logging)
	if err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	if health := tel.Health(); health.Degraded {
		logger.Warn(ctx, "telemetry degraded, continuing without export")
	}

	logger.Info(ctx, "starting memvec",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("snapshot", cfg.Store.Path),
		zap.String("embeddings", cfg.Embeddings.Provider),
	)

	embedder, err := newEmbedder(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := embedder.Close(); closeErr != nil {
			logger.Warn(ctx, "closing embedder", zap.Error(closeErr))
		}
	}()

	store, err := vectorstore.NewMemoryStore(embedder, logger.Underlying().Named("vectorstore"),
		vectorstore.WithDefaultTopK(cfg.Store.DefaultTopK),
		vectorstore.WithDefaultThreshold(cfg.Store.DefaultThreshold),
	)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	if err := loadSnapshot(ctx, store, cfg.Store.Path, logger); err != nil {
		return err
	}

	httpCfg := &memhttp.Config{
		Host:             cfg.Server.Host,
		Port:             cfg.Server.Port,
		SnapshotPath:     cfg.Store.Path,
		RateLimit:        cfg.Server.RateLimit,
		DefaultTopK:      cfg.Store.DefaultTopK,
		DefaultThreshold: cfg.Store.DefaultThreshold,
		Meter:            tel.Meter("memvec.http"),
	}
	if cfg.Store.RedactSecrets {
		redactor, err := redact.New(cfg.Store.SecretsAllowlist)
		if err != nil {
			return fmt.Errorf("failed to create secret redactor: %w", err)
		}
		httpCfg.Redactor = redactor
	}

	server, err := memhttp.NewServer(store, logger, httpCfg)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	var snapshotWatcher *watcher.SnapshotWatcher
	if cfg.Store.Watch {
		snapshotWatcher, err = watcher.New(cfg.Store.Path, store,
			watcher.WithDebounce(cfg.Store.WatchDebounce.Duration()),
			watcher.WithLogger(logger.Underlying().Named("watcher")),
		)
		if err != nil {
			return fmt.Errorf("failed to create snapshot watcher: %w", err)
		}
		if err := snapshotWatcher.Start(ctx); err != nil {
			snapshotWatcher.Stop()
			return fmt.Errorf("failed to start snapshot watcher: %w", err)
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "shutdown requested")
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	if snapshotWatcher != nil {
		snapshotWatcher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "http server shutdown", zap.Error(err))
	}

	if err := store.Save(shutdownCtx, cfg.Store.Path); err != nil {
		logger.Error(shutdownCtx, "failed to save snapshot on shutdown", zap.Error(err))
		return errors.Join(runErr, fmt.Errorf("saving snapshot: %w", err))
	}
	logger.Info(shutdownCtx, "snapshot saved",
		zap.String("path", cfg.Store.Path),
		zap.Int("documents", store.Count()),
	)

	return runErr
}

func newEmbedder(ctx context.Context, cfg *config.Config, logger *logging.Logger) (embeddings.Provider, error) {
	if cfg.Embeddings.Provider == "fastembed" {
		if _, err := embeddings.EnsureONNXRuntime(ctx, logger.Underlying()); err != nil {
			return nil, fmt.Errorf("failed to set up ONNX runtime: %w", err)
		}
	}

	provider, err := embeddings.NewProvider(embeddings.ProviderConfigFrom(cfg.Embeddings, logger.Underlying().Named("embeddings")))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}
	return provider, nil
}

// loadSnapshot restores the store from path. A missing file means an empty
// store; its directory is created so saves and the watcher can use it.
func loadSnapshot(ctx context.Context, store *vectorstore.MemoryStore, path string, logger *logging.Logger) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Info(ctx, "no snapshot found, starting empty", zap.String("path", path))
		return nil
	}

	if err := store.Load(ctx, path); err != nil {
		return fmt.Errorf("failed to load snapshot %s: %w", path, err)
	}
	logger.Info(ctx, "snapshot loaded",
		zap.String("path", path),
		zap.Int("documents", store.Count()),
	)
	return nil
}
