package chuusen

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Request is a message sent to a Worker: RunRequest or CancelRequest
type Request interface {
	isRequest()
}

// RunRequest asks the worker to start a simulation
type RunRequest struct {
	ID    string
	Input SimulationInput
}

// CancelRequest asks the worker to cancel the active run, if any
type CancelRequest struct{}

func (RunRequest) isRequest()    {}
func (CancelRequest) isRequest() {}

// NewRunRequest creates a run request with a fresh run id
func NewRunRequest(input SimulationInput) RunRequest {
	return RunRequest{ID: uuid.NewString(), Input: input}
}

// Response is a message emitted by a Worker. Every response carries the id of
// the run it belongs to.
type Response interface {
	RunID() string
	isResponse()
}

// ProgressResponse reports coarse progress of an active run
type ProgressResponse struct {
	ID    string
	Value int
}

// SuccessResponse carries the result of a completed run
type SuccessResponse struct {
	ID     string
	Result *AggregateResult
}

// CancelledResponse reports that a run was cancelled; it has no result
type CancelledResponse struct {
	ID string
}

// ErrorResponse reports a rejected or failed run
type ErrorResponse struct {
	ID      string
	Message string
	Err     error
}

func (r ProgressResponse) RunID() string  { return r.ID }
func (r SuccessResponse) RunID() string   { return r.ID }
func (r CancelledResponse) RunID() string { return r.ID }
func (r ErrorResponse) RunID() string     { return r.ID }

func (ProgressResponse) isResponse()  {}
func (SuccessResponse) isResponse()   {}
func (CancelledResponse) isResponse() {}
func (ErrorResponse) isResponse()     {}

// Runner executes one simulation run identified by runID
type Runner interface {
	RunSimulation(ctx context.Context, runID string, input SimulationInput, progress ProgressCallback) (*AggregateResult, error)
}

// Worker runs simulations in the background and talks to its caller only
// through typed messages. It serves one run at a time.
type Worker struct {
	runner Runner
	logger Logger

	requests  chan Request
	responses chan Response

	mu       sync.Mutex
	activeID string
	cancel   context.CancelFunc

	runs      sync.WaitGroup
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// NewWorker creates a worker driving runner, usually a Controller or a Service
func NewWorker(runner Runner, logger Logger) *Worker {
	if logger == nil {
		logger = NewSilentLogger()
	}
	return &Worker{
		runner:    runner,
		logger:    logger,
		requests:  make(chan Request, 8),
		responses: make(chan Response, 128),
		done:      make(chan struct{}),
	}
}

// Start launches the request loop. It stops when ctx is done or Close is called.
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		go w.loop(ctx)
	})
}

// Send queues a request. It fails once the worker has stopped.
func (w *Worker) Send(req Request) error {
	select {
	case <-w.done:
		return ErrSystemError.WithDetails("worker stopped")
	default:
	}

	select {
	case w.requests <- req:
		return nil
	case <-w.done:
		return ErrSystemError.WithDetails("worker stopped")
	}
}

// Responses returns the response stream. It is closed after the worker stops
// and its last run has reported. Progress is dropped while the buffer is full;
// terminal responses wait for the caller to drain the channel.
func (w *Worker) Responses() <-chan Response { return w.responses }

// ActiveRun returns the id of the running simulation, or "" when idle
func (w *Worker) ActiveRun() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.activeID
}

// Close stops the worker, cancelling any active run
func (w *Worker) Close() {
	w.closeOnce.Do(func() { close(w.done) })
}

func (w *Worker) loop(ctx context.Context) {
	defer func() {
		w.cancelActive()
		w.runs.Wait()
		close(w.responses)
	}()

	for {
		select {
		case <-ctx.Done():
			w.Close()
			return
		case <-w.done:
			return
		case req := <-w.requests:
			w.handle(ctx, req)
		}
	}
}

func (w *Worker) handle(ctx context.Context, req Request) {
	switch r := req.(type) {
	case RunRequest:
		w.startRun(ctx, r)
	case CancelRequest:
		if id := w.cancelActive(); id != "" {
			w.logger.Info("Cancellation requested for run %s", id)
		} else {
			w.logger.Debug("Cancel ignored: no active run")
		}
	}
}

func (w *Worker) startRun(ctx context.Context, req RunRequest) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	w.mu.Lock()
	if w.activeID != "" {
		active := w.activeID
		w.mu.Unlock()
		w.logger.Error("Run %s rejected: run %s is still active", req.ID, active)
		w.emit(ErrorResponse{ID: req.ID, Message: ErrRunInProgress.Error(), Err: ErrRunInProgress})
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.activeID = req.ID
	w.cancel = cancel
	w.runs.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.runs.Done()

		result, err := w.runner.RunSimulation(runCtx, req.ID, req.Input, func(progress int) {
			w.emitProgress(ProgressResponse{ID: req.ID, Value: progress})
		})
		cancel()

		// the worker is idle again before the terminal response goes out
		w.clearActive(req.ID)

		switch {
		case err == nil:
			w.emit(SuccessResponse{ID: req.ID, Result: result})
		case errors.Is(err, ErrSimulationCancelled):
			w.emit(CancelledResponse{ID: req.ID})
		default:
			w.emit(ErrorResponse{ID: req.ID, Message: err.Error(), Err: err})
		}
	}()
}

// cancelActive cancels the active run and returns its id
func (w *Worker) cancelActive() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}
	return w.activeID
}

func (w *Worker) clearActive(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.activeID == id {
		w.activeID = ""
		w.cancel = nil
	}
}

// emitProgress delivers a progress update, dropping it when the buffer is full
func (w *Worker) emitProgress(resp ProgressResponse) {
	select {
	case w.responses <- resp:
	default:
		w.logger.Debug("Dropped progress %d for run %s: response buffer full", resp.Value, resp.ID)
	}
}

// emit delivers a response, dropping it if the caller stopped listening and the worker is closed
func (w *Worker) emit(resp Response) {
	select {
	case w.responses <- resp:
	case <-w.done:
		select {
		case w.responses <- resp:
		default:
			w.logger.Debug("Dropped response for run %s after close", resp.RunID())
		}
	}
}
