// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and schema migrations.
//
// All repository functions are context-aware and accept a *gorm.DB handle,
// making them safe for use within transactions or connection-scoped
// operations. They follow the "thin repository" approach: no business
// logic, only CRUD persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - When a conditional stock decrement matches no row that still has
//     enough units, ErrInsufficientStock is returned and nothing is written.
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/lensworks/go-optics-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrInsufficientStock is returned by stock decrements that would drive a
// frame's stock negative. The conditional update matches zero rows and no
// mutation is performed.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrBadSortKey is returned when a caller requests a sort key outside the
// per-query allow-list. Unknown keys are rejected rather than silently
// ignored.
var ErrBadSortKey = errors.New("sort key not allowed")

// ErrBadDimension is returned when a group-by asks for a dimension outside
// the allow-list.
var ErrBadDimension = errors.New("unknown group-by dimension")

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates/updates the full schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Brand{},
		&domain.Group{},
		&domain.SubBrand{},
		&domain.Description{},
		&domain.Frame{},
		&domain.StockMovement{},
		&domain.Company{},
		&domain.Customer{},
		&domain.PrescriptionEntry{},
		&domain.User{},
		&domain.SaleNote{},
		&domain.SaleItem{},
		&domain.CashSession{},
		&domain.CashMovement{},
		&domain.Campaign{},
	)
}
