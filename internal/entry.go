// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/redline/internal/api"
	"github.com/starford/redline/internal/audit"
	"github.com/starford/redline/internal/editservice"
	"github.com/starford/redline/internal/importer"
	"github.com/starford/redline/internal/mcpserver"
	"github.com/starford/redline/internal/sse"
	"github.com/starford/redline/internal/storage"
)

// runtime holds the components shared by the serve and mcp commands.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  storage.Provider
	trail  *audit.DB
}

func (rt *runtime) Close() {
	if rt.trail != nil {
		rt.trail.Close()
	}
}

func setup(ctx context.Context, opts []Option) (*runtime, error) {
	app := &application{logOut: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("context_strategy", cfg.Editor.ContextStrategy),
		slog.Bool("import_enabled", cfg.Import.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	// Initialize SQLite audit trail.
	trail, err := audit.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init audit: %w", err)
	}

	// Drop audit rows of sessions deleted while the server was down.
	if err := audit.Sync(ctx, trail, store, logger); err != nil {
		logger.Warn("initial audit sync failed", slog.String("error", err.Error()))
	}

	return &runtime{cfg: cfg, logger: logger, store: store, trail: trail}, nil
}

func openStore(cfg StorageConfig) (storage.Provider, error) {
	switch cfg.Backend {
	case StorageS3:
		return storage.NewS3(cfg.S3)
	default:
		// Ensure session directory exists.
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
		return storage.NewFS(cfg.Path)
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg, logger := rt.cfg, rt.logger

	// SSE broker.
	broker := sse.NewBroker(cfg.App.TranscriptThrottle)
	defer broker.Close()

	svc, err := editservice.New(rt.store, rt.trail, broker, logger, cfg.Editor.ServiceOptions())
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := svc.List(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"storage unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start import watcher with SSE callback.
	if cfg.Import.Enabled {
		if err := os.MkdirAll(cfg.Import.Path, 0o755); err != nil {
			return fmt.Errorf("create import dir: %w", err)
		}
		im, err := importer.New(cfg.Import.Path, cfg.Import.Pattern, svc, logger, func(session, path string) {
			broker.Publish(sse.Event{
				Type:    "import.completed",
				Session: session,
				Data:    map[string]string{"session": session, "path": path},
			})
		})
		if err != nil {
			return fmt.Errorf("init importer: %w", err)
		}
		g.Go(func() error {
			return im.Watch(gCtx)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE streams never finish on their own.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Sessions are shared with a
// running server through the same storage and audit database.
func RunMCP(ctx context.Context, opts ...Option) error {
	rt, err := setup(ctx, append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	defer rt.Close()

	svc, err := editservice.New(rt.store, rt.trail, nil, rt.logger, rt.cfg.Editor.ServiceOptions())
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}

	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc, rt.cfg.Editor.Markup).ServeStdio()
}
