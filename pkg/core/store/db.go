// Package store owns database access: connection bootstrap, schema
// migration, and the repositories the analytical components query through.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"equipcost_forecast/pkg/models"
)

// ErrNotFound is returned by repository lookups that match no row.
var ErrNotFound = errors.New("record not found")

var (
	db   *gorm.DB
	once sync.Once
)

// Open connects to the database named by url. A postgres:// or
// postgresql:// URL selects the postgres driver; anything else is treated
// as a sqlite path or DSN. Parent directories of file-backed sqlite
// databases are created as needed.
func Open(url string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		conn, err := gorm.Open(postgres.Open(url), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres database: %w", err)
		}
		return conn, nil
	}

	dsn := strings.TrimPrefix(url, "sqlite://")
	if !strings.Contains(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	conn, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return conn, nil
}

// AutoMigrate creates or updates every table of the data model.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Init opens the package-level connection exactly once. Repositories take
// a *gorm.DB explicitly; this singleton only backs the cmd entrypoints.
func Init(url string) error {
	var err error
	once.Do(func() {
		db, err = Open(url)
	})
	if err != nil {
		return err
	}
	if db == nil {
		return errors.New("database not initialized")
	}
	return nil
}

// Get returns the package-level connection, nil before Init.
func Get() *gorm.DB {
	return db
}

// Close releases the package-level connection.
func Close() {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
