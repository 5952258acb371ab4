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
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/corkboard/internal/ai"
	"github.com/starford/corkboard/internal/api"
	"github.com/starford/corkboard/internal/boardservice"
	"github.com/starford/corkboard/internal/mcpserver"
	"github.com/starford/corkboard/internal/persist"
	"github.com/starford/corkboard/internal/render"
	"github.com/starford/corkboard/internal/session"
	"github.com/starford/corkboard/internal/sse"
	"github.com/starford/corkboard/internal/workspace"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger installs a structured JSON logger as the default.
func (a *application) newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func (a *application) newAnalyzer(ctx context.Context, logger *slog.Logger) *ai.Analyzer {
	gen := a.generator
	if gen == nil && a.config.AI.APIKey != "" {
		g, err := ai.NewGemini(ctx, a.config.AI.APIKey, a.config.AI.Model)
		if err != nil {
			logger.Warn("AI client unavailable", slog.String("error", err.Error()))
		} else {
			gen = g
		}
	}
	if gen == nil {
		logger.Info("AI features disabled: no API key")
	}
	return ai.New(gen, logger)
}

// openStore opens the SQLite repository and, when configured and reachable,
// puts the Redis cache in front of it.
func (a *application) openStore(ctx context.Context, logger *slog.Logger) (workspace.Store, *workspace.DB, func(), error) {
	cfg := a.config
	db, err := workspace.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init workspace db: %w", err)
	}
	closeDB := func() { _ = db.Close() }
	if cfg.Redis.Addr == "" {
		return db, db, closeDB, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable, workspace cache disabled",
			slog.String("addr", cfg.Redis.Addr), slog.String("error", err.Error()))
		_ = client.Close()
		return db, db, closeDB, nil
	}
	logger.Info("Workspace cache enabled", slog.String("addr", cfg.Redis.Addr), slog.Duration("ttl", cfg.Redis.TTL))
	return workspace.NewCache(db, client, cfg.Redis.TTL), db, func() {
		_ = client.Close()
		closeDB()
	}, nil
}

// openAdapter builds the persistence adapter used by sessions: the local
// cache plus either a running server's API or the database itself.
func (a *application) openAdapter(ctx context.Context, logger *slog.Logger) (*persist.Adapter, func(), error) {
	cfg := a.config
	local, err := persist.NewLocal(cfg.Cache.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("init cache: %w", err)
	}
	if cfg.Board.RemoteURL != "" {
		logger.Info("Syncing with remote API", slog.String("url", cfg.Board.RemoteURL))
		remote := persist.NewHTTPRemote(cfg.Board.RemoteURL, cfg.Board.RemoteToken)
		return persist.NewAdapter(local, remote, logger), func() {}, nil
	}
	store, _, closeStore, err := a.openStore(ctx, logger)
	if err != nil {
		return nil, nil, err
	}
	return persist.NewAdapter(local, workspace.AsRemote(store), logger), closeStore, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.newLogger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("cache_dir", cfg.Cache.Dir),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, db, closeStore, err := app.openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	local, err := persist.NewLocal(cfg.Cache.Dir)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}

	broker := sse.NewBroker(cfg.SSE.Throttle)
	defer broker.Close()

	svc := boardservice.NewService(store, broker, app.newAnalyzer(ctx, logger))
	apiRouter := api.NewRouter(svc, api.Config{Auth: cfg.Auth.API(), Events: broker})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.App.HTTP.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "If-None-Match"},
		ExposedHeaders: []string{"ETag"},
	}).Handler)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api; everything else is the web UI.
	r.Mount("/api", apiRouter)
	r.Handle("/*", staticHandler(cfg.App.StaticDir))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Cache files written by other processes (mcp, export) refresh live clients.
	g.Go(func() error {
		err := persist.Watch(gCtx, local.Dir(), logger, func(userID string) {
			broker.PublishWorkspaceEvent("changed", userID)
		})
		if err != nil {
			logger.Warn("cache watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Shut down on signal or on the first failure.
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools for one user's board on stdio until the
// client disconnects. Pending edits are saved before it returns.
func RunMCP(ctx context.Context, userID, name string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.newLogger()

	adapter, closeAdapter, err := app.openAdapter(ctx, logger)
	if err != nil {
		return err
	}
	defer closeAdapter()

	sess := session.Open(ctx, adapter, userID, name, session.Options{
		SaveDebounce:    cfg.Board.SaveDebounce,
		ZoomSensitivity: cfg.Board.ZoomSensitivity,
		Logger:          logger,
	})
	srv := mcpserver.New(sess, app.newAnalyzer(ctx, logger))

	logger.Info("MCP server starting", slog.String("user", userID))
	err = srv.ServeStdio()
	sess.Close()
	adapter.Wait()
	return err
}

// Export renders a user's stored board to w as PNG.
func Export(ctx context.Context, userID string, w io.Writer, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	adapter, closeAdapter, err := app.openAdapter(ctx, logger)
	if err != nil {
		return err
	}
	defer closeAdapter()

	items := adapter.Load(ctx, userID)
	logger.Info("Exporting board", slog.String("user", userID), slog.Int("items", len(items)))
	return render.PNG(w, items)
}
