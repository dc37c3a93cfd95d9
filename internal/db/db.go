// Package db opens the database, applies the schema and exposes the query gateway.
package db

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/diewo77/cna-billing/internal/config"
	"github.com/diewo77/cna-billing/internal/lib/sl"
	"github.com/diewo77/cna-billing/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every persisted entity, in dependency order.
func Models() []any {
	return []any{
		&models.User{},
		&models.Client{},
		&models.Estimate{},
		&models.EstimateItem{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.NumberSequence{},
	}
}

// Open connects to the configured database, retrying while postgres starts up.
func Open(cfg config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	const op = "db.Open"

	level := logger.Silent
	if cfg.Debug {
		level = logger.Info
	}
	gcfg := &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	}

	var (
		conn *gorm.DB
		err  error
	)
	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		conn, err = gorm.Open(sqlite.Open(cfg.SQLitePath), gcfg)
	case "postgres", "":
		for i := 0; i < 10; i++ {
			conn, err = gorm.Open(postgres.Open(cfg.DSN()), gcfg)
			if err == nil {
				break
			}
			log.Warn("retrying database connection", slog.Int("attempt", i+1), sl.Err(err))
			time.Sleep(2 * time.Second)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported driver %q", op, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := conn.Exec("SELECT 1").Error; err != nil {
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}
	log.Info("database connected", slog.String("driver", cfg.Driver), slog.String("dsn", MaskDSN(cfg.DSN())))
	return conn, nil
}

// Migrate applies the schema. SQL migrations run when enabled on postgres;
// otherwise the models are auto-migrated.
func Migrate(conn *gorm.DB, cfg *config.Config, log *slog.Logger) error {
	const op = "db.Migrate"

	if cfg.App.Migrations && cfg.Database.Driver != "sqlite" {
		log.Info("running sql migrations")
		if err := runSQLMigrations(cfg.Database.URL()); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	} else {
		for _, m := range Models() {
			if err := conn.AutoMigrate(m); err != nil {
				return fmt.Errorf("%s: automigrate %T: %w", op, m, err)
			}
		}
	}

	for _, table := range []string{"users", "clients", "estimates", "invoices", "number_sequences"} {
		if !conn.Migrator().HasTable(table) {
			return fmt.Errorf("%s: missing table after migration: %s", op, table)
		}
	}
	return nil
}

func runSQLMigrations(url string) error {
	m, err := migrate.New("file://migrations", url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
