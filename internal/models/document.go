package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Document is a named decision-graph document owned by a user. The graph
// itself lives in revisions; the document row carries identity and display
// name only.
type Document struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;index;not null;index:idx_documents_user_name,unique" json:"user_id" validate:"required"`
	Name      string         `gorm:"not null;index:idx_documents_user_name,unique" json:"name" validate:"required"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// DocumentRevision stores one saved version of a document's graph. Only
// acyclic graphs ever reach this table; the cycle check runs before every
// save.
type DocumentRevision struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DocumentID uuid.UUID      `gorm:"type:uuid;index;not null;index:idx_revisions_document_version,unique" json:"document_id" validate:"required"`
	Version    int            `gorm:"not null;index:idx_revisions_document_version,unique" json:"version" validate:"gte=1"`
	Nodes      datatypes.JSON `gorm:"type:jsonb" json:"nodes" validate:"required"`
	Edges      datatypes.JSON `gorm:"type:jsonb" json:"edges" validate:"required"`
	Checksum   string         `gorm:"type:varchar(64);not null" json:"checksum"`
	IsCurrent  bool           `gorm:"not null;default:false;index" json:"is_current"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
