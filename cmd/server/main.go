// pocketos - simulated phone shell server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/pocketos/internal/api"
	"github.com/ashureev/pocketos/internal/chat"
	"github.com/ashureev/pocketos/internal/config"
	"github.com/ashureev/pocketos/internal/events"
	"github.com/ashureev/pocketos/internal/identity"
	"github.com/ashureev/pocketos/internal/llm"
	"github.com/ashureev/pocketos/internal/middleware"
	"github.com/ashureev/pocketos/internal/settings"
	"github.com/ashureev/pocketos/internal/state"
	"github.com/ashureev/pocketos/internal/store"
	"github.com/ashureev/pocketos/web"
)

const eventBuffer = 32

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	repo, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	// Initialize services.
	hub := events.NewHub(eventBuffer)
	registry := state.NewRegistry(repo, hub)
	reducer := state.NewReducer()
	settingsSvc := settings.NewService(repo, settings.Defaults{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
	}, hub)
	client := llm.NewClient(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})

	limiter := chat.NewRateLimiter(cfg.ChatRateLimit, cfg.ChatRateWindow)
	defer limiter.Close()

	conversationLogger, err := chat.NewConversationLogger(chat.ConversationLogConfig{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Warn("Failed to close conversation logger", "error", closeErr)
		}
	}()

	chatSvc := chat.NewService(reducer, client, settingsSvc, limiter, conversationLogger)

	// Initialize handlers.
	apiHandler := api.NewHandler(repo, registry, reducer, chatSvc, settingsSvc, client)
	healthHandler := api.NewHealthHandler(repo, registry)
	eventsHandler := events.NewHandler(hub, originPatterns(cfg))

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// Device-scoped routes.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		apiHandler.RegisterRoutes(r)
		r.Get("/ws/events", eventsHandler.ServeHTTP)
	})

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Note: event streams are long-lived websockets, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := state.NewSweeper(repo, registry, cfg.SweepInterval, cfg.DeviceTTL, func(deviceID string) {
		hub.CloseDevice(deviceID)
		limiter.Forget(deviceID)
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

func openStore(cfg *config.Config) (store.Repository, error) {
	if cfg.InMemory() {
		slog.Warn("Using in-memory store, state is lost on restart")
		return store.NewMemory(), nil
	}
	db, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// originPatterns converts the CORS allow-list into websocket origin patterns,
// which match on host only.
func originPatterns(cfg *config.Config) []string {
	if cfg.IsDevelopment() {
		return []string{"*"}
	}
	return hostPatterns(cfg.AllowedOrigins)
}
