package main

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
	"github.com/go-chi/cors"

	httpAdapter "github.com/lorrc/repair-desk-backend/internal/adapters/primary/http"
	mw "github.com/lorrc/repair-desk-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/repair-desk-backend/internal/adapters/primary/websocket"
	"github.com/lorrc/repair-desk-backend/internal/adapters/secondary/memory"
	"github.com/lorrc/repair-desk-backend/internal/adapters/secondary/postgres"
	"github.com/lorrc/repair-desk-backend/internal/auth"
	"github.com/lorrc/repair-desk-backend/internal/config"
	"github.com/lorrc/repair-desk-backend/internal/core/ports"
	"github.com/lorrc/repair-desk-backend/internal/core/services"
	"github.com/lorrc/repair-desk-backend/internal/infrastructure/logging"
	"github.com/lorrc/repair-desk-backend/internal/infrastructure/metrics"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      a.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Hijacked stream connections are invisible to srv.Shutdown, so close
	// them through the hub first.
	if err := a.hub.Shutdown(shutdownCtx); err != nil {
		logger.Warn("realtime hub shutdown incomplete", "error", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server shutdown complete")
	return nil
}

// app is the wired service: storage, hub and router.
type app struct {
	router http.Handler
	hub    *websocket.Hub
	close  func()
}

// storage bundles the repositories for whichever driver is configured.
type storage struct {
	users    ports.UserRepository
	tickets  ports.TicketRepository
	comments ports.CommentRepository
	tx       ports.TransactionManager
	health   httpAdapter.HealthChecker
	close    func()
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		return &storage{
			users:    store.Users(),
			tickets:  store.Tickets(),
			comments: store.Comments(),
			tx:       store.TxManager(),
			health:   store,
			close:    func() { _ = store.Close() },
		}, nil

	case config.StorageDriverPostgres:
		if cfg.Database.AutoMigrate {
			if err := postgres.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
				return nil, err
			}
			logger.Info("database migrations applied", "path", cfg.Database.MigrationsPath)
		}

		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		logger.Info("database connection established")

		return &storage{
			users:    postgres.NewUserRepository(pool),
			tickets:  postgres.NewTicketRepository(pool),
			comments: postgres.NewCommentRepository(pool),
			tx:       postgres.NewTransactionManager(pool),
			health:   pool,
			close:    pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)

	var realtimeMetrics *metrics.Realtime
	if cfg.Metrics.Enabled {
		realtimeMetrics = metrics.NewRealtime()
	}

	hub := websocket.NewHub(websocket.HubConfig{
		SendBuffer:     cfg.WebSocket.SendBuffer,
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		PingPeriod:     cfg.WebSocket.PingInterval,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
	}, logger, realtimeMetrics)

	// Rate Limiters
	var generalRateLimiter, authRateLimiter *mw.RateLimiter
	var commentLimiter func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		authRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.AuthRPS,
			BurstSize:         cfg.RateLimit.AuthBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})

		commentLimiter = mw.NewRateLimitByKey(cfg.RateLimit.CommentRPS, cfg.RateLimit.CommentBurst).ByUser
	}

	// Services (Core)
	authService := services.NewAuthService(store.users)
	ticketService := services.NewTicketService(store.tickets)
	commentService := services.NewCommentService(store.comments, store.tickets, store.tx, hub, logger)

	// Handlers (Primary Adapters)
	errorHandler := httpAdapter.NewErrorHandler(logger)
	authHandler := httpAdapter.NewAuthHandler(authService, tokenManager, errorHandler, logger)
	meHandler := httpAdapter.NewMeHandler(store.users, errorHandler, logger)
	commentHandler := httpAdapter.NewCommentHandler(commentService, errorHandler, commentLimiter, logger)
	ticketHandler := httpAdapter.NewTicketHandler(ticketService, commentHandler, errorHandler, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, commentService, tokenManager, cfg, logger)
	realtimeHandler := httpAdapter.NewRealtimeHandler(hub)
	healthHandler := httpAdapter.NewHealthHandler(store.health, hub.Registry(), cfg.App.Version)

	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders:   []string{mw.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	// Probes and metrics stay outside the rate limiter.
	healthHandler.RegisterRoutes(r)
	if realtimeMetrics != nil {
		r.Handle(cfg.Metrics.Path, realtimeMetrics.Handler())
	}

	// The stream endpoint authenticates from the query string inside the handler.
	r.Get("/ws", wsHandler.ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		if generalRateLimiter != nil {
			r.Use(generalRateLimiter.Middleware)
		}

		// Public auth routes with stricter rate limiting
		r.Group(func(r chi.Router) {
			if authRateLimiter != nil {
				r.Use(authRateLimiter.Middleware)
			}
			r.Route("/auth", authHandler.RegisterRoutes)
		})

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tokenManager))
			r.Route("/me", meHandler.RegisterRoutes)
			r.Route("/tickets", ticketHandler.RegisterRoutes)
			r.Get("/realtime/stats", realtimeHandler.HandleStats)
		})
	})

	return &app{
		router: r,
		hub:    hub,
		close:  store.close,
	}, nil
}
