package main

import (
	"gorm.io/gorm"

	"github.com/loocor/rules-editor/internal/models"
)

// registerModels returns all models that need migration
func registerModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Document{},
		&models.DocumentRevision{},
		&models.SimulationRun{},
	}
}

// runMigrations executes all database migrations
func runMigrations(db *gorm.DB) error {
	if err := enableUUIDExtension(db); err != nil {
		return err
	}
	if err := db.AutoMigrate(registerModels()...); err != nil {
		return err
	}
	return addRevisionIndexes(db)
}

// enableUUIDExtension ensures UUID generation is available
func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error
}

// addRevisionIndexes backs the current-revision lookup, the hottest query
func addRevisionIndexes(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_revisions_document_current
		ON document_revisions(document_id)
		WHERE is_current = true AND deleted_at IS NULL
	`).Error
}
