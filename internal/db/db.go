// Package db opens the relational store, migrates the schema and seeds baseline rows.
package db

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/diewo77/minimarket/internal/config"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const connectAttempts = 10

var passwordRegex = regexp.MustCompile(`(password=)([^\s]+)`)

// Dialector returns the gorm dialector for the configured driver.
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	dsn := cfg.DSN()
	switch cfg.Driver {
	case "", "postgres":
		return postgres.Open(NormalizeDSN(dsn)), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

// GormConfig returns the shared gorm settings. Driver errors are translated so that
// unique violations surface as gorm.ErrDuplicatedKey.
func GormConfig(debug bool) *gorm.Config {
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	return &gorm.Config{Logger: logger.Default.LogMode(level), TranslateError: true}
}

// Open connects with a bounded retry loop so the app can start before the database is ready.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	var conn *gorm.DB
	for i := 0; i < connectAttempts; i++ {
		conn, err = gorm.Open(dialector, GormConfig(cfg.Debug))
		if err == nil {
			break
		}
		log.Warn("retrying DB connection", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if pingErr := conn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	log.Info("database connected", zap.String("driver", cfg.Driver), zap.String("dsn", MaskDSN(cfg.DSN())))
	return conn, nil
}

// MaskDSN hides the password of a key=value or URL DSN.
func MaskDSN(dsn string) string {
	masked := passwordRegex.ReplaceAllString(dsn, `${1}***`)
	if at := strings.LastIndex(masked, "@"); at > 0 {
		if scheme := strings.Index(masked, "://"); scheme > 0 && scheme < at {
			creds := masked[scheme+3 : at]
			if user, _, ok := strings.Cut(creds, ":"); ok {
				masked = masked[:scheme+3] + user + ":***" + masked[at:]
			}
		}
	}
	return masked
}

// ErrMissingTable is returned when a core table is absent after migration.
var ErrMissingTable = errors.New("missing table after migration")
