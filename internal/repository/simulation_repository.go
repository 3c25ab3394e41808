package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/loocor/rules-editor/internal/models"
	appErr "github.com/loocor/rules-editor/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SimulationRepository interface {
	BaseRepository[models.SimulationRun]
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.SimulationRun, error)
	UpdateStatus(ctx context.Context, runID uuid.UUID, status string) error
	SaveResult(ctx context.Context, runID uuid.UUID, result datatypes.JSON) error
	SaveError(ctx context.Context, runID uuid.UUID, message string) error
}

type simulationRepository struct {
	BaseRepository[models.SimulationRun]
	db *gorm.DB
}

func NewSimulationRepository(db *gorm.DB) SimulationRepository {
	return &simulationRepository{BaseRepository: NewBaseRepository[models.SimulationRun](db), db: db}
}

func (r *simulationRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.SimulationRun, error) {
	var out []models.SimulationRun
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list simulation runs failed")
	}
	return out, nil
}

func (r *simulationRepository) UpdateStatus(ctx context.Context, runID uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).Model(&models.SimulationRun{}).Where("id = ?", runID).Update("status", status)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update run status failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "simulation run not found")
	}
	return nil
}

func (r *simulationRepository) SaveResult(ctx context.Context, runID uuid.UUID, result datatypes.JSON) error {
	updates := map[string]any{"result": result, "status": models.SimulationSucceeded}
	res := r.db.WithContext(ctx).Model(&models.SimulationRun{}).Where("id = ?", runID).Updates(updates)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "save run result failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "simulation run not found")
	}
	return nil
}

func (r *simulationRepository) SaveError(ctx context.Context, runID uuid.UUID, message string) error {
	updates := map[string]any{"error": message, "status": models.SimulationFailed}
	res := r.db.WithContext(ctx).Model(&models.SimulationRun{}).Where("id = ?", runID).Updates(updates)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "save run error failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "simulation run not found")
	}
	return nil
}
