package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/diewo77/minimarket/auth"
	"github.com/diewo77/minimarket/internal/config"
	"github.com/diewo77/minimarket/internal/db"
	"github.com/diewo77/minimarket/internal/logging"
	"github.com/diewo77/minimarket/view"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.App.Dev, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	auth.SetSecret(cfg.App.SessionSecret)
	if cfg.App.SessionSecret == "" && !cfg.App.Dev {
		logger.Warn("SESSION_SECRET is not set; sessions and carts are signed with the development key")
	}

	dbConn, err := db.Open(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	if *migrateOnlyFlag {
		if err := migrate(dbConn, cfg); err != nil {
			logger.Fatal("migration failed", zap.Error(err))
		}
		logger.Info("migrations completed")
		return
	}

	if *seedOnlyFlag {
		if err := seed(dbConn, cfg, logger); err != nil {
			logger.Fatal("seeding failed", zap.Error(err))
		}
		logger.Info("seeding completed")
		return
	}

	if err := migrate(dbConn, cfg); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	if err := seed(dbConn, cfg, logger); err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}

	routerCfg := NewRouterConfig(dbConn, logger, AppOptions{
		StrictTransitions: cfg.App.StrictTransitions,
		ActorCacheTTL:     cfg.App.ActorTTL(),
	})
	// Sessions of deleted users are dropped on their next request.
	auth.SetUserVerifier(routerCfg.AuthGate.UserExists)
	view.SetDev(cfg.App.Dev)

	appHandler := NewApp(dbConn, logger, routerCfg)

	read, write, idle := cfg.Server.Timeouts()
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      appHandler,
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  idle,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port), zap.Bool("dev", cfg.App.Dev))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	logger.Info("server stopped gracefully")
}

// migrate applies the SQL migrations when MIGRATIONS is set on postgres, AutoMigrate otherwise.
func migrate(conn *gorm.DB, cfg *config.Config) error {
	if cfg.App.Migrations && (cfg.Database.Driver == "" || cfg.Database.Driver == "postgres") {
		// golang-migrate only takes URLs; a key=value DATABASE_DSN falls back to the discrete fields.
		url := cfg.Database.URL()
		if raw := db.NormalizeDSN(cfg.Database.RawDSN); strings.HasPrefix(raw, "postgres") {
			url = raw
		}
		return db.RunSQLMigrations(conn, url)
	}
	return db.Migrate(conn)
}

func seed(conn *gorm.DB, cfg *config.Config, logger *zap.Logger) error {
	return db.Seed(conn, db.SeedOptions{Admin: cfg.Admin, Catalog: cfg.Database.Seed}, logger)
}
