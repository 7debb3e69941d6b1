package chuusen

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Service ties a Controller to its collaborators: the persisted input, the
// run archive and the optional cross-process run lock. archive and runLock
// may be nil.
type Service struct {
	controller *Controller
	inputs     InputStore
	archive    RunArchive
	runLock    *RunLock
	logger     Logger

	// archiveTimeout bounds archiving after the run context was cancelled
	archiveTimeout time.Duration
}

// NewService creates a service
func NewService(controller *Controller, inputs InputStore, archive RunArchive, runLock *RunLock, logger Logger) *Service {
	if logger == nil {
		logger = NewSilentLogger()
	}
	if inputs == nil {
		inputs = NewMemoryInputStore(DefaultInput())
	}
	return &Service{
		controller:     controller,
		inputs:         inputs,
		archive:        archive,
		runLock:        runLock,
		logger:         logger,
		archiveTimeout: 5 * time.Second,
	}
}

// Controller returns the underlying controller
func (s *Service) Controller() *Controller { return s.controller }

// Inputs returns the input store
func (s *Service) Inputs() InputStore { return s.inputs }

// Archive returns the run archive, or nil
func (s *Service) Archive() RunArchive { return s.archive }

// CurrentInput returns the persisted input, or the default one
func (s *Service) CurrentInput(ctx context.Context) (SimulationInput, error) {
	return s.inputs.LoadInput(ctx)
}

// Run runs input under a fresh run id; a nil input runs the persisted one
func (s *Service) Run(ctx context.Context, input *SimulationInput, progress ProgressCallback) (*RunRecord, error) {
	var in SimulationInput
	if input != nil {
		in = *input
	} else {
		loaded, err := s.inputs.LoadInput(ctx)
		if err != nil {
			return nil, err
		}
		in = loaded
	}

	runID := uuid.NewString()
	start := time.Now()
	result, err := s.RunSimulation(ctx, runID, in, progress)
	if err != nil && (IsValidationError(err) || errors.Is(err, ErrRunInProgress) || errors.Is(err, ErrRunLockHeld) || errors.Is(err, ErrRunLockFailed)) {
		return nil, err
	}

	return newRunRecord(runID, in, result, err, start), err
}

// RunSimulation validates and remembers input, takes the run lock when one
// is configured, runs the controller and archives the outcome. Rejected runs
// are not archived.
func (s *Service) RunSimulation(ctx context.Context, runID string, input SimulationInput, progress ProgressCallback) (*AggregateResult, error) {
	if err := s.controller.ValidateInput(input); err != nil {
		return nil, err
	}

	if err := s.inputs.SaveInput(ctx, input); err != nil {
		s.logger.Error("Failed to remember input for run %s: %v", runID, err)
	}

	if s.runLock != nil {
		token, err := s.runLock.TryAcquire(ctx)
		if err != nil {
			s.logger.Error("Run %s not started: %v", runID, err)
			return nil, err
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.archiveTimeout)
			defer cancel()
			if _, err := s.runLock.Release(releaseCtx, token); err != nil {
				s.logger.Error("Failed to release run lock for run %s: %v", runID, err)
			}
		}()
	}

	start := time.Now()
	result, err := s.controller.Run(ctx, input, progress)
	if errors.Is(err, ErrRunInProgress) {
		return nil, err
	}

	if s.archive != nil {
		record := newRunRecord(runID, input, result, err, start)
		archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.archiveTimeout)
		defer cancel()
		if saveErr := s.archive.SaveRun(archiveCtx, record); saveErr != nil {
			s.logger.Error("Failed to archive run %s: %v", runID, saveErr)
		}
	}

	return result, err
}

// LatestRun returns the most recently archived run
func (s *Service) LatestRun(ctx context.Context) (*RunRecord, error) {
	if s.archive == nil {
		return nil, ErrResultNotFound.WithDetails("no archive configured")
	}
	return s.archive.LoadLatestRun(ctx)
}

// newRunRecord builds the archived form of a finished run
func newRunRecord(runID string, input SimulationInput, result *AggregateResult, err error, start time.Time) *RunRecord {
	record := &RunRecord{
		RunID:      runID,
		Input:      input,
		Result:     result,
		State:      StateCompleted,
		StartTime:  start.Unix(),
		FinishTime: time.Now().Unix(),
	}
	if record.StartTime <= 0 {
		record.StartTime = 1
	}
	if record.FinishTime < record.StartTime {
		record.FinishTime = record.StartTime
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrSimulationCancelled):
		record.State = StateCancelled
		record.Result = nil
	default:
		record.State = StateFailed
		record.Result = nil
		record.Error = err.Error()
	}
	return record
}
