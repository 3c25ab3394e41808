package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Simulation run statuses.
const (
	SimulationPending   = "pending"
	SimulationRunning   = "running"
	SimulationSucceeded = "succeeded"
	SimulationFailed    = "failed"
)

// SimulationRun is one queued execution of a document revision against the
// remote simulation engine.
type SimulationRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DocumentID uuid.UUID      `gorm:"type:uuid;index;not null" json:"document_id" validate:"required"`
	RevisionID uuid.UUID      `gorm:"type:uuid;index;not null" json:"revision_id" validate:"required"`
	Status     string         `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	Context    datatypes.JSON `gorm:"type:jsonb" json:"context"`
	Result     datatypes.JSON `gorm:"type:jsonb" json:"result,omitempty"`
	Error      string         `gorm:"type:text" json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
