package tasks

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/loocor/rules-editor/internal/decision"
	"github.com/loocor/rules-editor/internal/models"
	"github.com/loocor/rules-editor/internal/repository"
	"github.com/loocor/rules-editor/internal/simulator"
	"github.com/loocor/rules-editor/pkg/logger"
)

// TaskTypeSimulationRun mirrors the type string the API side enqueues with.
const TaskTypeSimulationRun = "simulation:run"

// SimulationRunPayload is the task payload for queued simulation runs.
type SimulationRunPayload struct {
	RunID string `json:"run_id"`
}

// SimulationTaskHandler executes queued simulation runs against the remote
// engine and persists their outcome.
type SimulationTaskHandler struct {
	runner  simulator.Runner
	simRepo repository.SimulationRepository
	docRepo repository.DocumentRepository
}

func NewSimulationTaskHandler(runner simulator.Runner, simRepo repository.SimulationRepository, docRepo repository.DocumentRepository) *SimulationTaskHandler {
	return &SimulationTaskHandler{runner: runner, simRepo: simRepo, docRepo: docRepo}
}

func (h *SimulationTaskHandler) HandleRun(ctx context.Context, t *asynq.Task) error {
	var p SimulationRunPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid simulation task payload", zap.Error(err))
		return err
	}
	id, err := uuid.Parse(p.RunID)
	if err != nil {
		logger.L().Error("invalid run id in task", zap.Error(err))
		return err
	}

	logger.L().Info("handling simulation run", zap.String("run_id", id.String()))

	var run models.SimulationRun
	if err := h.simRepo.GetByID(ctx, id, &run); err != nil {
		logger.L().Error("get simulation run failed", zap.Error(err))
		return err
	}

	if err := h.simRepo.UpdateStatus(ctx, id, models.SimulationRunning); err != nil {
		logger.L().Error("update run status failed", zap.Error(err))
	}

	var rev models.DocumentRevision
	if err := h.docRepo.RevisionByID(ctx, run.RevisionID, &rev); err != nil {
		logger.L().Error("get revision failed", zap.Error(err))
		_ = h.simRepo.SaveError(ctx, id, "revision not found")
		return err
	}

	content, err := decision.ContentFromColumns(rev.Nodes, rev.Edges)
	if err != nil {
		logger.L().Error("decode revision failed", zap.Error(err))
		_ = h.simRepo.SaveError(ctx, id, "stored revision is unreadable")
		return err
	}

	payload, err := decision.Encode(content)
	if err != nil {
		_ = h.simRepo.SaveError(ctx, id, "encode document failed")
		return err
	}

	result, err := h.runner.Run(ctx, payload, json.RawMessage(run.Context))
	if err != nil {
		logger.L().Warn("simulation run failed", zap.String("run_id", id.String()), zap.Error(err))
		_ = h.simRepo.SaveError(ctx, id, err.Error())
		return err
	}

	if err := h.simRepo.SaveResult(ctx, id, datatypes.JSON(result)); err != nil {
		logger.L().Error("save run result failed", zap.Error(err))
		return err
	}

	logger.L().Info("simulation run completed", zap.String("run_id", id.String()))
	return nil
}
