package services

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
	appErr "github.com/loocor/rules-editor/pkg/errors"
	"github.com/loocor/rules-editor/pkg/logger"
)

// TaskTypeSimulationRun is the asynq task type for queued simulation runs.
const TaskTypeSimulationRun = "simulation:run"

// TaskEnqueuer is the slice of asynq.Client the service needs.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// SimulationService forwards simulation requests to the remote engine, either
// synchronously or as queued runs handled by the worker.
type SimulationService interface {
	// Run simulates the document's current revision against the input
	// context and returns the engine's result as-is.
	Run(ctx context.Context, documentID, userID uuid.UUID, input json.RawMessage) (json.RawMessage, error)
	Enqueue(ctx context.Context, documentID, userID uuid.UUID, input json.RawMessage) (*models.SimulationRun, error)
	GetRun(ctx context.Context, runID, userID uuid.UUID) (*models.SimulationRun, error)
	ListRuns(ctx context.Context, documentID, userID uuid.UUID) ([]models.SimulationRun, error)
}

type simulationService struct {
	docs     DocumentService
	simRepo  repository.SimulationRepository
	runner   simulator.Runner
	enqueuer TaskEnqueuer
}

// NewSimulationService wires the service. enqueuer may be nil in processes
// that never enqueue (the worker).
func NewSimulationService(docs DocumentService, simRepo repository.SimulationRepository, runner simulator.Runner, enqueuer TaskEnqueuer) SimulationService {
	return &simulationService{docs: docs, simRepo: simRepo, runner: runner, enqueuer: enqueuer}
}

var _ SimulationService = (*simulationService)(nil)

func (s *simulationService) Run(ctx context.Context, documentID, userID uuid.UUID, input json.RawMessage) (json.RawMessage, error) {
	content, err := s.docs.CurrentContent(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}

	payload, err := decision.Encode(content)
	if err != nil {
		return nil, err
	}

	result, err := s.runner.Run(ctx, payload, input)
	if err != nil {
		logger.L().Warn("simulation failed", zap.String("document_id", documentID.String()), zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (s *simulationService) Enqueue(ctx context.Context, documentID, userID uuid.UUID, input json.RawMessage) (*models.SimulationRun, error) {
	if s.enqueuer == nil {
		return nil, appErr.New(appErr.CodeUnavailable, "task queue not configured")
	}

	rev, err := s.docs.CurrentRevision(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}

	run := &models.SimulationRun{
		DocumentID: documentID,
		RevisionID: rev.ID,
		Status:     models.SimulationPending,
		Context:    datatypes.JSON(input),
	}
	if err := s.simRepo.Create(ctx, run); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(simulationRunPayload{RunID: run.ID.String()})
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "marshal task payload failed")
	}
	if _, err := s.enqueuer.EnqueueContext(ctx, asynq.NewTask(TaskTypeSimulationRun, payload)); err != nil {
		_ = s.simRepo.SaveError(ctx, run.ID, "enqueue failed")
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "enqueue simulation run failed")
	}

	logger.L().Info("simulation run enqueued",
		zap.String("run_id", run.ID.String()),
		zap.String("document_id", documentID.String()),
	)
	return run, nil
}

func (s *simulationService) GetRun(ctx context.Context, runID, userID uuid.UUID) (*models.SimulationRun, error) {
	var run models.SimulationRun
	if err := s.simRepo.GetByID(ctx, runID, &run); err != nil {
		return nil, err
	}
	// Ownership rides on the document.
	if _, err := s.docs.GetDocument(ctx, run.DocumentID, userID); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *simulationService) ListRuns(ctx context.Context, documentID, userID uuid.UUID) ([]models.SimulationRun, error) {
	if _, err := s.docs.GetDocument(ctx, documentID, userID); err != nil {
		return nil, err
	}
	return s.simRepo.ListByDocument(ctx, documentID)
}

type simulationRunPayload struct {
	RunID string `json:"run_id"`
}
