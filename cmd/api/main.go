package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"immobile-portal/internal/cleanup"
	"immobile-portal/internal/config"
	"immobile-portal/internal/database"
	"immobile-portal/internal/logger"
	"immobile-portal/internal/ratelimit"
	"immobile-portal/internal/repository"
	"immobile-portal/internal/scheduler"
	"immobile-portal/internal/storage"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	// Load configuration
	configPath := getEnv("CONFIG_PATH", "config/config.yaml")
	appConfig, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: Failed to load config from %s: %v. Using defaults.", configPath, err)
		appConfig = config.DefaultConfig()
	}
	applyEnvOverrides(appConfig)

	zlog, err := logger.New(appConfig.Logging.Level, appConfig.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()
	zlog.Info("configuration loaded", zap.String("path", configPath))
	if appConfig.Auth.JWTSecret == "" {
		zlog.Fatal("auth.jwt_secret (or JWT_SECRET) must be set")
	}

	gormDB, err := openDatabase(appConfig.Database, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := gormDB.Close(); err != nil {
			zlog.Warn("failed to close database", zap.Error(err))
		}
	}()

	if err := gormDB.InitSchema(); err != nil {
		zlog.Fatal("failed to initialize schema", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	backend, err := storage.New(ctx, appConfig.Storage)
	cancel()
	if err != nil {
		zlog.Fatal("failed to initialize object storage", zap.Error(err))
	}
	store := storage.NewCircuitBreaker(backend,
		appConfig.Storage.FailureThreshold,
		appConfig.Storage.GetBreakerResetTimeout(),
		zlog,
	)
	zlog.Info("object storage ready",
		zap.String("provider", appConfig.Storage.Provider),
		zap.String("bucket", appConfig.Storage.Bucket),
	)

	// Initialize rate limiter
	rateLimiter := ratelimit.NewRateLimiter(
		appConfig.RateLimit.UploadsPerMinute,
		appConfig.RateLimit.UploadsPerHour,
		appConfig.RateLimit.Enabled,
	)
	zlog.Info("rate limiter initialized",
		zap.Int("per_minute", appConfig.RateLimit.UploadsPerMinute),
		zap.Int("per_hour", appConfig.RateLimit.UploadsPerHour),
		zap.Bool("enabled", appConfig.RateLimit.Enabled),
	)

	cleanupService := cleanup.NewService(gormDB.DB(), store, zlog)
	appScheduler := scheduler.NewScheduler(cleanupService, appConfig.Cleanup, zlog)
	if err := appScheduler.Start(); err != nil {
		zlog.Warn("failed to start scheduler", zap.Error(err))
	}
	defer appScheduler.Stop()

	r := newRouter(appConfig, zlog, routerDeps{
		db:          gormDB.DB(),
		images:      repository.NewImageRepository(gormDB.DB()),
		store:       store,
		rateLimiter: rateLimiter,
		cleanup:     cleanupService,
		scheduler:   appScheduler,
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	zlog.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), appConfig.Server.GetShutdownTimeout())
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server shutdown failed", zap.Error(err))
	}
}

// openDatabase connects to the configured database type
func openDatabase(cfg config.DatabaseConfig, zlog *zap.Logger) (*database.GormDB, error) {
	dbType := cfg.Type
	if dbType == "" {
		dbType = getEnv("DB_TYPE", "mysql")
	}

	switch dbType {
	case "mysql":
		zlog.Info("using MySQL with GORM")
		mysqlCfg := cfg.MySQL
		return database.NewGormDB(
			getEnvOrConfig(mysqlCfg.Host, "DB_HOST", "mysql"),
			getEnvOrConfig(portString(mysqlCfg.Port), "DB_PORT", "3306"),
			getEnvOrConfig(mysqlCfg.User, "DB_USER", "immobile_user"),
			getEnvOrConfig(mysqlCfg.Password, "DB_PASSWORD", "immobile_pass"),
			getEnvOrConfig(mysqlCfg.Database, "DB_NAME", "immobile_db"),
		)
	case "postgres":
		zlog.Info("using PostgreSQL with GORM")
		pgCfg := cfg.Postgres
		return database.NewPostgresGormDB(
			getEnvOrConfig(pgCfg.Host, "DB_HOST", "db"),
			getEnvOrConfig(portString(pgCfg.Port), "DB_PORT", "5432"),
			getEnvOrConfig(pgCfg.User, "DB_USER", "immobile_user"),
			getEnvOrConfig(pgCfg.Password, "DB_PASSWORD", "immobile_pass"),
			getEnvOrConfig(pgCfg.Database, "DB_NAME", "immobile_db"),
			getEnvOrConfig(pgCfg.SSLMode, "DB_SSLMODE", "disable"),
		)
	case "sqlite":
		zlog.Info("using SQLite with GORM")
		return database.NewSQLiteGormDB(getEnvOrConfig(cfg.SQLite.Path, "DB_PATH", "immobile.db"))
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}
}

// applyEnvOverrides fills secrets and deployment settings that are usually kept out of the YAML file
func applyEnvOverrides(cfg *config.Config) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Auth.JWTSecret = getEnvOrConfig(cfg.Auth.JWTSecret, "JWT_SECRET", "")
	cfg.Storage.Endpoint = getEnvOrConfig(cfg.Storage.Endpoint, "STORAGE_ENDPOINT", "")
	cfg.Storage.AccessKey = getEnvOrConfig(cfg.Storage.AccessKey, "STORAGE_ACCESS_KEY", "")
	cfg.Storage.SecretKey = getEnvOrConfig(cfg.Storage.SecretKey, "STORAGE_SECRET_KEY", "")
	cfg.Storage.PublicBaseURL = getEnvOrConfig(cfg.Storage.PublicBaseURL, "STORAGE_PUBLIC_BASE_URL", "")
}

func portString(port int) string {
	// Get port as string, handle 0 as empty
	if port > 0 {
		return strconv.Itoa(port)
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrConfig returns config value if set, otherwise falls back to environment variable, then default
func getEnvOrConfig(configValue, envKey, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	return getEnv(envKey, defaultValue)
}
