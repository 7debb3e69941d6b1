package chuusen

import "context"

// ProgressCallback receives coarse run progress in the range 0..100
type ProgressCallback func(progress int)

// RandomSource supplies the uniform draws every stochastic component consumes
type RandomSource interface {
	// Float64 returns a uniform value in [0, 1)
	Float64() float64

	// IntN returns a uniform value in [0, n); n must be positive
	IntN(n int) int
}

// InputStore persists the last used simulation input under a fixed name
type InputStore interface {
	// LoadInput returns the stored input, or DefaultInput when nothing was stored
	LoadInput(ctx context.Context) (SimulationInput, error)

	// SaveInput stores the input, replacing any previous value
	SaveInput(ctx context.Context, input SimulationInput) error

	// ResetInput removes the stored input so the next load yields DefaultInput
	ResetInput(ctx context.Context) error
}

// RunArchive stores finished runs for later inspection
type RunArchive interface {
	SaveRun(ctx context.Context, record *RunRecord) error
	LoadLatestRun(ctx context.Context) (*RunRecord, error)
	ListRuns(ctx context.Context) ([]string, error)
	DeleteRun(ctx context.Context, runID string) error
}

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}
