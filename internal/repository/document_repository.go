package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/loocor/rules-editor/internal/models"
	appErr "github.com/loocor/rules-editor/pkg/errors"
	"gorm.io/gorm"
)

type DocumentRepository interface {
	BaseRepository[models.Document]
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Document, error)

	// Revisions
	CreateRevision(ctx context.Context, rev *models.DocumentRevision) error
	CurrentRevision(ctx context.Context, documentID uuid.UUID, dest *models.DocumentRevision) error
	RevisionByVersion(ctx context.Context, documentID uuid.UUID, version int, dest *models.DocumentRevision) error
	RevisionByID(ctx context.Context, revisionID uuid.UUID, dest *models.DocumentRevision) error
	ListRevisions(ctx context.Context, documentID uuid.UUID) ([]models.DocumentRevision, error)
	SetCurrent(ctx context.Context, documentID uuid.UUID, version int) error
}

type documentRepository struct {
	BaseRepository[models.Document]
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{BaseRepository: NewBaseRepository[models.Document](db), db: db}
}

func (r *documentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Document, error) {
	var out []models.Document
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list documents failed")
	}
	return out, nil
}

// CreateRevision inserts a new revision as current: it computes the next
// version, clears the previous current flag, and writes the row in one
// transaction.
func (r *documentRepository) CreateRevision(ctx context.Context, rev *models.DocumentRevision) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}

	var maxVersion int
	if err := tx.Model(&models.DocumentRevision{}).Where("document_id = ?", rev.DocumentID).Select("COALESCE(MAX(version),0)").Scan(&maxVersion).Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "compute revision version failed")
	}
	rev.Version = maxVersion + 1
	rev.IsCurrent = true

	if err := tx.Model(&models.DocumentRevision{}).Where("document_id = ? AND is_current = true", rev.DocumentID).Update("is_current", false).Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "clear current flag failed")
	}

	if err := tx.Create(rev).Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "create revision failed")
	}

	if err := tx.Commit().Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "commit transaction failed")
	}
	return nil
}

func (r *documentRepository) CurrentRevision(ctx context.Context, documentID uuid.UUID, dest *models.DocumentRevision) error {
	if err := r.db.WithContext(ctx).Where("document_id = ? AND is_current = true", documentID).First(dest).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "no current revision found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get current revision failed")
	}
	return nil
}

func (r *documentRepository) RevisionByVersion(ctx context.Context, documentID uuid.UUID, version int, dest *models.DocumentRevision) error {
	if err := r.db.WithContext(ctx).Where("document_id = ? AND version = ?", documentID, version).First(dest).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "revision not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get revision failed")
	}
	return nil
}

func (r *documentRepository) RevisionByID(ctx context.Context, revisionID uuid.UUID, dest *models.DocumentRevision) error {
	if err := r.db.WithContext(ctx).Where("id = ?", revisionID).First(dest).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "revision not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get revision failed")
	}
	return nil
}

func (r *documentRepository) ListRevisions(ctx context.Context, documentID uuid.UUID) ([]models.DocumentRevision, error) {
	var out []models.DocumentRevision
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Order("version DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list revisions failed")
	}
	return out, nil
}

// SetCurrent marks the specified version as current and clears the previous
// current flag in a transaction.
func (r *documentRepository) SetCurrent(ctx context.Context, documentID uuid.UUID, version int) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}

	if err := tx.Model(&models.DocumentRevision{}).Where("document_id = ? AND is_current = true", documentID).Update("is_current", false).Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "clear current flag failed")
	}

	res := tx.Model(&models.DocumentRevision{}).Where("document_id = ? AND version = ?", documentID, version).Update("is_current", true)
	if res.Error != nil {
		tx.Rollback()
		return appErr.Wrap(res.Error, appErr.CodeInternal, "set current flag failed")
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return appErr.New(appErr.CodeNotFound, "revision not found")
	}

	if err := tx.Commit().Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "commit transaction failed")
	}
	return nil
}
