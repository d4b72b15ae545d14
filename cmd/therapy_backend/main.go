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

	"github.com/SscSPs/therapy_app/internal/core/ports/repositories"
	"github.com/SscSPs/therapy_app/internal/core/services"
	"github.com/SscSPs/therapy_app/internal/handlers"
	"github.com/SscSPs/therapy_app/internal/middleware"
	"github.com/SscSPs/therapy_app/internal/platform/config"
	"github.com/SscSPs/therapy_app/internal/platform/metrics"
	"github.com/SscSPs/therapy_app/internal/repositories/database/mongo"
	"github.com/SscSPs/therapy_app/internal/repositories/database/pgsql"
	"github.com/SscSPs/therapy_app/internal/repositories/memory"
	"github.com/SscSPs/therapy_app/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const storageConnectTimeout = 10 * time.Second

// @title Therapy App Backend API
// @version 1.0
// @description Session and authentication core of the therapy platform.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(rootCtx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", slog.String("driver", cfg.StorageDriver), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer repos.Close()

	appMetrics := metrics.New(prometheus.DefaultRegisterer)

	serviceContainer, err := services.NewServiceContainer(cfg, repos, appMetrics)
	if err != nil {
		logger.Error("Failed to initialize services", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.StructuredLoggingMiddleware(logger),
		gin.Recovery(),
		middleware.RequestMetrics(appMetrics),
		cors.New(cors.Config{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, serviceContainer, promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", slog.String("port", cfg.Port), slog.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server failed", slog.String("error", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", slog.String("error", err.Error()))
		return
	}
	logger.Info("Server stopped")
}

// newLogger returns a JSON logger, or a debug-level text logger in local mode.
func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsLocal() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// openRepositories connects the configured Credential Store.
func openRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.RepositoryProvider, error) {
	connectCtx, cancel := context.WithTimeout(ctx, storageConnectTimeout)
	defer cancel()

	switch cfg.StorageDriver {
	case config.StoragePostgres:
		logger.Info("Running database migrations...", slog.String("path", cfg.MigrationsPath))
		if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
			return repositories.RepositoryProvider{}, err
		}
		dbPool, err := database.NewPgxPool(connectCtx, cfg.DatabaseURL, cfg.EnableDBCheck)
		if err != nil {
			return repositories.RepositoryProvider{}, err
		}
		return pgsql.NewRepositoryProvider(dbPool), nil

	case config.StorageMongo:
		client, err := database.NewMongoClient(connectCtx, cfg.MongoURI)
		if err != nil {
			return repositories.RepositoryProvider{}, err
		}
		provider, err := mongo.NewRepositoryProvider(connectCtx, client, cfg.MongoDatabase)
		if err != nil {
			database.CloseMongoClient(context.Background(), client)
			return repositories.RepositoryProvider{}, err
		}
		return provider, nil

	case config.StorageMemory:
		logger.Warn("Using in-memory storage; accounts are lost on restart")
		return memory.NewRepositoryProvider(), nil

	default:
		return repositories.RepositoryProvider{}, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
