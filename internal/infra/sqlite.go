package infra

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"glucoach/internal/models/db_models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitSQLite opens a pure-Go SQLite database. It backs local runs and the
// test suites; a single connection keeps in-memory databases shared and
// writes serialised.
func InitSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// AutoMigrate creates or updates the schema for every coach model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&db_models.User{},
		&db_models.Profile{},
		&db_models.DisclaimerAcceptance{},
		&db_models.ConsultationCounter{},
		&db_models.Session{},
		&db_models.Message{},
	)
}

// NewTestDB returns a migrated in-memory database.
func NewTestDB() (*gorm.DB, error) {
	db, err := InitSQLite("file::memory:")
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
