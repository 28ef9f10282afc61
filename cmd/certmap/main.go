package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/terra-clan/certmap/internal/api"
	"github.com/terra-clan/certmap/internal/catalog"
	"github.com/terra-clan/certmap/internal/cleanup"
	"github.com/terra-clan/certmap/internal/config"
	"github.com/terra-clan/certmap/internal/feed"
	"github.com/terra-clan/certmap/internal/sessions"
	"github.com/terra-clan/certmap/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Carry trace context across HTTP and the catalog feed
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting certmap",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"catalog_source", cfg.Catalog.Source,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	source, closer, err := openSource(initCtx, cfg)
	if err != nil {
		slog.Error("failed to open catalog source", "error", err)
		os.Exit(1)
	}
	defer closer.Close()

	// Load the catalog; the server does not start without a valid one
	store := catalog.NewStore()
	loader := catalog.NewLoader(source, store)
	if _, err := loader.Reload(initCtx); err != nil {
		slog.Error("failed to load catalog", "source", source.Name(), "error", err)
		os.Exit(1)
	}

	// Initialize session manager
	manager := sessions.NewManager(store, sessions.Config{
		TTL:         cfg.Sessions.TTL,
		Debounce:    cfg.Filter.SearchDebounce,
		MaxSessions: cfg.Sessions.MaxSessions,
	})

	// Sessions stay bound to the snapshot they were created from
	store.OnPublish(func(snap *catalog.Snapshot) {
		slog.Info("catalog replaced, new sessions use the new version",
			"version", snap.Version,
			"live_sessions", manager.Count(),
		)
	})

	// Initialize cleanup worker
	cleaner := cleanup.NewCleaner(manager, cfg.Cleanup.Interval)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start cleanup worker
	cleaner.Start(ctx)

	if cfg.Catalog.Watch {
		watcher := catalog.NewWatcher(loader, cfg.Catalog.Path, catalog.DefaultSettle)
		if err := watcher.Start(ctx); err != nil {
			slog.Error("failed to watch catalog file", "path", cfg.Catalog.Path, "error", err)
			os.Exit(1)
		}
	}

	var nc *nats.Conn
	var catalogFeed *feed.Feed
	if cfg.NATS.URL != "" {
		nc, err = feed.Connect(cfg.NATS.URL)
		if err != nil {
			slog.Error("failed to connect to nats", "error", err)
			os.Exit(1)
		}
		catalogFeed = feed.New(nc, cfg.NATS.CatalogSubject, loader)
		if err := catalogFeed.Start(); err != nil {
			slog.Error("failed to start catalog feed", "error", err)
			os.Exit(1)
		}
	}

	// Setup HTTP server
	server := api.NewServer(cfg, store, loader, manager)
	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if catalogFeed != nil {
		catalogFeed.Stop()
		nc.Close()
	}

	// Close sessions (ends live subscribers)
	manager.Close()

	slog.Info("certmap stopped")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openSource builds the configured catalog source and whatever must be closed with it
func openSource(ctx context.Context, cfg *config.Config) (catalog.Source, io.Closer, error) {
	switch cfg.Catalog.Source {
	case config.SourceFile:
		return catalog.NewFileSource(cfg.Catalog.Path), nopCloser{}, nil

	case config.SourcePostgres:
		repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{DSN: cfg.Database.DSN})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		if err := repo.Migrate(ctx, cfg.Database.MigrationsDir); err != nil {
			repo.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		slog.Info("database connected successfully")
		return storage.NewSource("postgres", repo), repo, nil

	case config.SourceRedis:
		src, err := storage.NewRedisSource(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CatalogKey)
		if err != nil {
			return nil, nil, err
		}
		return src, src, nil
	}
	return nil, nil, fmt.Errorf("unknown catalog source: %q", cfg.Catalog.Source)
}
