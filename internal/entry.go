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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/pfnbot/internal/api"
	"github.com/starford/pfnbot/internal/bot"
	"github.com/starford/pfnbot/internal/discord"
	"github.com/starford/pfnbot/internal/findingservice"
	"github.com/starford/pfnbot/internal/imaging"
	"github.com/starford/pfnbot/internal/index"
	"github.com/starford/pfnbot/internal/mcpserver"
	"github.com/starford/pfnbot/internal/scanner"
	"github.com/starford/pfnbot/internal/sse"
	"github.com/starford/pfnbot/internal/storage"
)

// Run starts the bot with the given options and blocks until it stops.
// A failed poll ends the run with an error.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize structured JSON logger.
	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("watch_dir", cfg.WatchDir),
		slog.String("cache_file", cfg.CacheFile),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.Duration("poll_interval", cfg.Poll.Interval),
		slog.Bool("poll_watch", cfg.Poll.Watch),
		slog.Bool("http_enabled", cfg.App.HTTP.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer store.Close()
	logger.Info("Cache loaded", slog.Int("findings", len(store.All())))

	conv := imaging.New(cfg.Imaging.TempDir)

	client, err := discord.New(cfg.Token, logger)
	if err != nil {
		return err
	}

	var botOpts []bot.Option
	var broker *sse.Broker
	if cfg.App.HTTP.Enabled {
		broker = sse.NewBroker(30 * time.Second)
		defer broker.Close()
		botOpts = append(botOpts, bot.WithFindingCallback(broker.PublishFinding))
	}

	b := bot.New(bot.Config{
		ChannelID: cfg.ChannelID,
		WatchDir:  cfg.WatchDir,
		Interval:  cfg.Poll.Interval,
	}, store, conv, client, logger, botOpts...)

	g, gCtx := errgroup.WithContext(ctx)

	if err := client.Open(gCtx, b.HandleMessage); err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("discord: close failed", slog.String("error", err.Error()))
		}
	}()

	var nudge chan struct{}
	if cfg.Poll.Watch {
		nudge = make(chan struct{}, 1)
		g.Go(func() error {
			if err := scanner.Watch(gCtx, cfg.WatchDir, logger, nudge); err != nil {
				logger.Warn("watcher: disabled, falling back to polling",
					slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start poll loop.
	g.Go(func() error {
		return b.Run(gCtx, nudge)
	})

	if cfg.App.HTTP.Enabled {
		svc := findingservice.NewService(store, conv)
		httpServer := &http.Server{
			Addr:    cfg.App.HTTP.Address(),
			Handler: newRouter(cfg, svc, broker, client),
		}

		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down HTTP server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Bot stopped successfully")
	return nil
}

// RunMCP serves the finding cache over MCP stdio. Logs go to stderr since
// stdout carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := newLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)

	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer store.Close()

	svc := findingservice.NewService(store, imaging.New(cfg.Imaging.TempDir))
	logger.Info("MCP server starting", slog.Int("findings", len(store.All())))
	return mcpserver.New(svc, app.version).ServeStdio()
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// openStore opens the configured cache driver. A new cache is seeded with
// everything currently in the watch directory.
func openStore(cfg *Config, logger *slog.Logger) (storage.Store, error) {
	seed := func() ([]string, error) {
		return scanner.List(cfg.WatchDir)
	}
	switch cfg.Storage.Driver {
	case storage.DriverSQLite:
		return index.Open(cfg.CacheFile, seed, logger)
	case storage.DriverJSON, "":
		return storage.Load(cfg.CacheFile, seed, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// newRouter builds the HTTP handler: health checks plus the API under /api.
// Readiness reports whether the chat session has logged in.
func newRouter(cfg *Config, svc *findingservice.Service, broker *sse.Broker, client bot.Client) http.Handler {
	auth := cfg.App.HTTP.Auth
	var events http.Handler
	if broker != nil {
		events = broker
	}
	apiRouter := api.NewRouter(svc, auth.AuthEnabled(), auth.Token, events)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if client.SelfID() == "" {
			writeStatus(w, http.StatusServiceUnavailable, "connecting")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	r.Mount("/api", apiRouter)
	return r
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}
