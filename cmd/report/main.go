// Command report prints order and stock statistics as terminal tables.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/diewo77/minimarket/internal/config"
	"github.com/diewo77/minimarket/internal/db"
	"github.com/diewo77/minimarket/internal/logging"
	"github.com/diewo77/minimarket/internal/reports"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	lowStockFlag = flag.Int("low-stock", 5, "List products with stock at or below this value")
	topFlag      = flag.Int("top", 10, "Number of best-selling products to list")
	timeoutFlag  = flag.Duration("timeout", 30*time.Second, "Query timeout")
)

func main() {
	flag.Parse()
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

	conn, err := db.Open(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()
	rep, err := reports.NewService(conn).Build(ctx, reports.Options{LowStock: *lowStockFlag, Top: *topFlag})
	if err != nil {
		logger.Fatal("report failed", zap.Error(err))
	}
	if err := rep.Write(os.Stdout); err != nil {
		logger.Fatal("write report", zap.Error(err))
	}
}
