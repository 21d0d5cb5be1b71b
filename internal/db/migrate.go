package db

import (
	"errors"
	"fmt"

	"github.com/diewo77/minimarket/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"
)

// MigrationsSource is where the SQL migrations live, relative to the working directory.
const MigrationsSource = "file://migrations"

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&models.Role{},
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Order{},
		&models.OrderLine{},
	}
}

// Migrate runs AutoMigrate for all models and checks the core tables exist.
func Migrate(db *gorm.DB) error {
	for _, m := range Models() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return checkTables(db)
}

// RunSQLMigrations applies ./migrations with golang-migrate. Only postgres URLs are supported.
func RunSQLMigrations(db *gorm.DB, url string) error {
	m, err := migrate.New(MigrationsSource, url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return checkTables(db)
}

func checkTables(db *gorm.DB) error {
	for _, table := range []string{"roles", "users", "categories", "products", "orders", "order_lines"} {
		if !db.Migrator().HasTable(table) {
			return fmt.Errorf("%w: %s", ErrMissingTable, table)
		}
	}
	return nil
}
