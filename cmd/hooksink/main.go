package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/hooksink/hooksink/internal/cache"
	"github.com/hooksink/hooksink/internal/config"
	"github.com/hooksink/hooksink/internal/handlers"
	"github.com/hooksink/hooksink/internal/logging"
	"github.com/hooksink/hooksink/internal/metrics"
	"github.com/hooksink/hooksink/internal/repository"
	"github.com/hooksink/hooksink/internal/server"
	"github.com/hooksink/hooksink/internal/service"
	"github.com/hooksink/hooksink/internal/signature"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	migrationsPath := flag.String("migrations", "file://migrations", "migrations source (postgres only)")
	flag.Parse()

	// Local .env files override nothing, they just populate the environment
	// before viper reads it.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("hooksink"))
	logging.SetDefault(logger)

	slog.Info("Starting hooksink service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}
	if cfg.Webhook.Secret == "" {
		slog.Warn("Webhook secret not configured: all deliveries will be rejected and readiness will report not-ready")
	}

	repo, err := openRepository(context.Background(), cfg.Database.URL, *migrationsPath)
	if err != nil {
		slog.Error("Failed to open message store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer repo.Close()

	verifier := signature.NewVerifier(cfg.Webhook.Secret)
	svc := service.NewIngestService(verifier, repo)

	if cfg.Redis.Enabled {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.Error("Failed to parse Redis URL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		svc.SetStatsCache(cache.NewStatsCache(redis.NewClient(opts), cfg.Redis.StatsTTL))
		slog.Info("Stats cache enabled",
			slog.String("redis_url", cfg.Redis.URL),
			slog.Duration("ttl", cfg.Redis.StatsTTL),
		)
	}

	m := metrics.New()
	handler := handlers.New(svc, m, logger)
	router := server.NewRouter(handler, m, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("hooksink listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	slog.Info("Server stopped")
}

// openRepository selects the store backend from the database URL scheme.
func openRepository(ctx context.Context, url, migrationsPath string) (repository.MessageRepository, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		slog.Info("Connecting to PostgreSQL")
		if err := runMigrations(migrationsPath, url); err != nil {
			return nil, err
		}
		return repository.NewPostgresRepository(ctx, url)

	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		slog.Info("Opening SQLite store", slog.String("path", path))
		return repository.NewSQLiteRepository(ctx, path)

	case strings.HasPrefix(url, "memory://"):
		slog.Warn("Using in-memory store (development only)")
		return repository.NewInMemoryRepository(), nil

	default:
		return nil, fmt.Errorf("unsupported database url %q", url)
	}
}

func runMigrations(source, connString string) error {
	slog.Info("Running database migrations")

	m, err := migrate.New(source, connString)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		slog.Warn("Could not get migration version", slog.String("error", err.Error()))
	} else {
		slog.Info("Database migration complete",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	}
	return nil
}
