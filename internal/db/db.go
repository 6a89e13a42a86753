package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"skatespot-service/internal/config"
)

// Open connects to Postgres and, when configured, runs the schema migrations.
func Open(cfg config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database.dsn is required")
	}

	gormLog := gormlogger.New(&log, gormlogger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if cfg.AutoMigrate {
		if err := RunMigrations(gdb); err != nil {
			return nil, err
		}
		log.Info().Int("statements", len(migrationStatements)).Msg("database migrations applied")
	}
	return gdb, nil
}
