package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned by lookups that match no row
var ErrNotFound = errors.New("record not found")

// Database wraps the gorm connection
type Database struct {
	db *gorm.DB
}

// NewDatabase opens the configured driver and migrates the schema
func NewDatabase(driver, dsn string, log zerolog.Logger) (*Database, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	gormLevel := logger.Silent
	if log.GetLevel() <= zerolog.DebugLevel {
		gormLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(gormLevel),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "" || driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle: %w", err)
		}
		// sqlite serializes writers anyway; a single connection avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if err := db.AutoMigrate(&Country{}, &Network{}, &WebChannel{}, &Show{}, &Episode{}, &Release{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Database{db: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB exposes the underlying handle for read-only queries
func (d *Database) DB() *gorm.DB {
	return d.db
}

// IsUniqueViolation reports whether err comes from a unique constraint
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// findOrCreate looks up a row by cond and inserts build() when none exists.
// A unique violation on insert means another writer won the race, so the
// winner is re-read and returned instead.
func findOrCreate[T any](ctx context.Context, db *gorm.DB, cond map[string]any, build func() *T) (*T, bool, error) {
	var existing T
	err := db.WithContext(ctx).Where(cond).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	record := build()
	if err := db.WithContext(ctx).Create(record).Error; err != nil {
		if !IsUniqueViolation(err) {
			return nil, false, err
		}
		var winner T
		if err := db.WithContext(ctx).Where(cond).First(&winner).Error; err != nil {
			return nil, false, fmt.Errorf("refetch after conflict: %w", err)
		}
		return &winner, false, nil
	}
	return record, true, nil
}

// first runs a First query and maps a missing row to ErrNotFound
func first[T any](ctx context.Context, db *gorm.DB, cond map[string]any) (*T, error) {
	var out T
	err := db.WithContext(ctx).Where(cond).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// nameLike filters column by a case-insensitive substring; blank q is a no-op
func nameLike(tx *gorm.DB, column, q string) *gorm.DB {
	q = strings.TrimSpace(q)
	if q == "" {
		return tx
	}
	return tx.Where("LOWER("+column+") LIKE ?", "%"+strings.ToLower(q)+"%")
}
