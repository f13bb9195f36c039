// Package datastore opens the database and owns schema migration.
package datastore

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
)

// Open opens the SQLite database at path and migrates the schema.
// ":memory:" opens an in-memory database, used by tests.
func Open(path string) (*gorm.DB, error) {
	dsn := path
	if path == ":memory:" {
		// Shared cache keeps the schema visible across pooled connections.
		dsn = "file::memory:?cache=shared"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the schema for all alerting entities.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entities.AlertRule{},
		&entities.AlertCondition{},
		&entities.TrendAlert{},
		&entities.AlertThreshold{},
		&entities.AlertBatch{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
