// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/gamewatch/internal/api"
	"github.com/starford/gamewatch/internal/cards"
	"github.com/starford/gamewatch/internal/daemon"
	"github.com/starford/gamewatch/internal/engine"
	"github.com/starford/gamewatch/internal/history"
	"github.com/starford/gamewatch/internal/hostcmd"
	"github.com/starford/gamewatch/internal/loadservice"
	"github.com/starford/gamewatch/internal/resolver"
	"github.com/starford/gamewatch/internal/selection"
	"github.com/starford/gamewatch/internal/sse"
	"github.com/starford/gamewatch/internal/storage"
)

var errConfigRequired = errors.New("config is required")

func newLogger(app *application) *slog.Logger {
	var out io.Writer = os.Stdout
	if app.output != nil {
		out = app.output
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// pidFileFor derives the PID file of one subcommand from the configured
// path so watch and cardscan can run side by side. An empty role keeps base.
func pidFileFor(base, role string) string {
	if base == "" || role == "" {
		return base
	}
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-" + role + ext
}

// acquirePID claims the PID file for role. The returned func releases it.
func acquirePID(cfg *Config, role string, logger *slog.Logger) (func(), error) {
	path := pidFileFor(cfg.App.PIDFile, role)
	if path == "" {
		return func() {}, nil
	}
	if err := daemon.Acquire(path); err != nil {
		return nil, err
	}
	return func() {
		if err := daemon.Release(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("release pid file failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	}, nil
}

// openHistory opens the history database when enabled. A nil DB means
// history is off.
func openHistory(cfg *Config, logger *slog.Logger) (*history.DB, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	db, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("init history: %w", err)
	}
	logger.Info("history opened", slog.String("path", cfg.History.Path))
	return db, nil
}

// Run starts the selection watcher with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(app)

	logger.Info("Configuration loaded",
		slog.String("base_dir", cfg.Host.BaseDir),
		slog.String("sentinel", cfg.Host.Sentinel),
		slog.String("loaded_file", cfg.Host.LoadedFile),
		slog.Bool("history", cfg.History.Enabled),
		slog.Bool("http", cfg.App.HTTP.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	release, err := acquirePID(cfg, "", logger)
	if err != nil {
		return err
	}
	defer release()

	store := storage.NewFS(logger)
	state := storage.NewState(store, cfg.Host.LoadedFile)

	res := resolver.New(cfg.Host.BaseDir,
		resolver.WithRomsets(&resolver.RomsetCatalog{Path: cfg.Host.RomsetsFile, Logger: logger}),
		resolver.WithNames(&resolver.NamesFile{Path: cfg.Host.NamesFile, Logger: logger}),
		resolver.WithLogger(logger),
	)

	notifier, err := selection.NewFSNotifier(cfg.Host.Sentinel, logger)
	if err != nil {
		return fmt.Errorf("init watcher: %w", err)
	}
	watcher := selection.NewWatcher(notifier, store, cfg.Host.Sentinel, logger)
	defer watcher.Close()

	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	var hlog history.Log
	if db != nil {
		defer db.Close()
		hlog = db
		current, err := state.Current()
		if err != nil {
			logger.Warn("read loaded state failed", slog.String("error", err.Error()))
		} else if err := history.Sync(db, current, logger); err != nil {
			logger.Warn("initial history sync failed", slog.String("error", err.Error()))
		}
	}

	broker := sse.NewBroker(15 * time.Second)
	defer broker.Close()

	var recordHistory engine.Listener
	if db != nil {
		recordHistory = history.Listener(db, logger)
	}
	eng := engine.New(watcher, res, store, state, cfg.Host.Indicators,
		engine.WithLogger(logger),
		engine.WithListener(func(rec engine.LoadedRecord, written bool) {
			if recordHistory != nil {
				recordHistory(rec, written)
			}
			broker.PublishLoaded(rec.Label, rec.Path, written)
		}),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return eng.Run(gCtx)
	})

	var httpServer *http.Server
	if cfg.App.HTTP.Enabled {
		svc := loadservice.NewService(state, hlog, cards.Open(cfg.Cards.Path), hostcmd.New(cfg.Host.CommandChannel, logger))
		httpServer = &http.Server{
			Addr:    cfg.App.HTTP.Address(),
			Handler: newHTTPHandler(cfg, svc, broker),
		}

		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		waitForShutdown(gCtx, logger)
		cancel()

		if httpServer != nil {
			logger.Info("Shutting down server...")
			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Watcher stopped successfully")
	return nil
}

// newHTTPHandler builds the chi router serving health checks and the API.
func newHTTPHandler(cfg *Config, svc *loadservice.Service, broker *sse.Broker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	health := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
	r.Get("/health/live", health)
	r.Get("/health/ready", health)

	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))
	return r
}

// waitForShutdown blocks until SIGINT/SIGTERM arrives or ctx ends.
func waitForShutdown(ctx context.Context, logger *slog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, initiating shutdown")
	}
}
