package chuusen

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// RunState is the lifecycle state of a Controller
type RunState int

const (
	StateIdle RunState = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

var runStateNames = map[RunState]string{
	StateIdle:      "idle",
	StateRunning:   "running",
	StateCompleted: "completed",
	StateCancelled: "cancelled",
	StateFailed:    "failed",
}

// String returns the lower-case state name
func (s RunState) String() string {
	if name, ok := runStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("RunState(%d)", int(s))
}

// IsTerminal reports whether the state ends a run
func (s RunState) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// MarshalText encodes the state by name
func (s RunState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a state name
func (s *RunState) UnmarshalText(text []byte) error {
	for state, name := range runStateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return ErrDeserializationFailed.WithDetails(fmt.Sprintf("unknown run state %q", text))
}

// Controller runs Monte Carlo lottery simulations one at a time.
//
// Runs are synchronous; a Run call issued while another is in progress is
// rejected with ErrRunInProgress. Cancellation is cooperative through the
// context passed to Run and is only observed between trials.
type Controller struct {
	mu    sync.Mutex
	state RunState

	newSource      func() RandomSource
	binning        BinningConfig
	maxSimulations int
	progressWeight float64

	logger             Logger
	performanceMonitor *PerformanceMonitor
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithRandomSource makes every run draw from src
func WithRandomSource(src RandomSource) ControllerOption {
	return func(c *Controller) { c.newSource = func() RandomSource { return src } }
}

// WithRandomSourceKind selects the source by name for every run, see NewRandomSource
func WithRandomSourceKind(kind string) ControllerOption {
	return func(c *Controller) { c.newSource = func() RandomSource { return NewRandomSource(kind) } }
}

// WithBinning overrides the histogram layout
func WithBinning(cfg BinningConfig) ControllerOption {
	return func(c *Controller) { c.binning = cfg }
}

// WithMaxSimulations bounds the accepted NumSimulations; 0 disables the bound
func WithMaxSimulations(n int) ControllerOption {
	return func(c *Controller) { c.maxSimulations = n }
}

// WithProgressWeight sets the share of progress reported during the trial phase
func WithProgressWeight(weight float64) ControllerOption {
	return func(c *Controller) { c.progressWeight = weight }
}

// WithLogger sets the controller logger
func WithLogger(logger Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPerformanceMonitor shares a monitor with other components
func WithPerformanceMonitor(pm *PerformanceMonitor) ControllerOption {
	return func(c *Controller) {
		if pm != nil {
			c.performanceMonitor = pm
		}
	}
}

// NewController creates an idle controller
func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		state:              StateIdle,
		newSource:          func() RandomSource { return NewFastSource() },
		binning:            DefaultBinningConfig(),
		maxSimulations:     DefaultMaxSimulations,
		progressWeight:     DefaultProgressWeight,
		logger:             &DefaultLogger{},
		performanceMonitor: NewPerformanceMonitor(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewControllerWithConfig creates a controller from the simulation section of the configuration
func NewControllerWithConfig(cfg *SimulationConfig, logger Logger, opts ...ControllerOption) *Controller {
	base := []ControllerOption{
		WithRandomSourceKind(cfg.RandomSource),
		WithBinning(cfg.Binning),
		WithMaxSimulations(cfg.MaxSimulations),
		WithProgressWeight(cfg.ProgressWeight),
		WithLogger(logger),
	}
	return NewController(append(base, opts...)...)
}

// State returns the current lifecycle state
func (c *Controller) State() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// PerformanceMetrics returns a snapshot of the run metrics
func (c *Controller) PerformanceMetrics() PerformanceMetrics {
	return c.performanceMonitor.GetMetrics()
}

// SetLogger updates the logger at runtime
func (c *Controller) SetLogger(logger Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if logger != nil {
		c.logger = logger
	}
}

// Configure applies a reloaded simulation configuration. A run in progress
// keeps the settings it started with.
func (c *Controller) Configure(cfg *SimulationConfig) error {
	if cfg == nil {
		return ErrConfigInvalid.WithDetails("nil simulation config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kind := cfg.RandomSource
	c.newSource = func() RandomSource { return NewRandomSource(kind) }
	c.binning = cfg.Binning
	c.maxSimulations = cfg.MaxSimulations
	c.progressWeight = cfg.ProgressWeight

	c.logger.Info("Simulation config updated: maxSimulations=%d binCount=%d randomSource=%s",
		cfg.MaxSimulations, cfg.Binning.BinCount, cfg.RandomSource)
	return nil
}

// ValidateInput checks input against its invariants and the configured maximum
func (c *Controller) ValidateInput(input SimulationInput) error {
	if err := input.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	maxSimulations := c.maxSimulations
	c.mu.Unlock()

	if maxSimulations > 0 && input.NumSimulations > maxSimulations {
		return ErrTooManySimulations.WithDetails(
			fmt.Sprintf("numSimulations=%d max=%d", input.NumSimulations, maxSimulations))
	}
	return nil
}

// runSettings is the configuration a single run works with
type runSettings struct {
	src            RandomSource
	binning        BinningConfig
	progressWeight float64
}

// Run executes input.NumSimulations trials and aggregates their outcome.
//
// Invalid input is rejected before the controller leaves its current state.
// A cancelled ctx ends the run with ErrSimulationCancelled and no result;
// any fault while simulating ends it with ErrSimulationFailed. progress may be
// nil and is only called with strictly increasing values.
func (c *Controller) Run(ctx context.Context, input SimulationInput, progress ProgressCallback) (result *AggregateResult, err error) {
	if err := c.ValidateInput(input); err != nil {
		c.logger.Error("Run input validation failed: %v", err)
		return nil, err
	}

	c.mu.Lock()
	if c.state == StateRunning {
		c.mu.Unlock()
		c.performanceMonitor.RecordRejectedRun()
		c.logger.Error("Run rejected: a simulation is already running")
		return nil, ErrRunInProgress
	}
	c.state = StateRunning
	logger := c.logger
	settings := runSettings{
		src:            c.newSource(),
		binning:        c.binning,
		progressWeight: c.progressWeight,
	}
	c.mu.Unlock()

	startTime := time.Now()
	final := StateFailed
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Simulation panicked: %v", r)
			result = nil
			err = ErrSimulationFailed.WithCause(fmt.Errorf("panic: %v", r)).WithStackTrace()
			final = StateFailed
		}
		c.finish(final, time.Since(startTime))
	}()

	logger.Info("Simulation started: totalBallots=%d numWinners=%d channels=%d simulations=%d yourBallots=%d",
		input.TotalBallots, input.NumWinners, input.NumChannels, input.NumSimulations, input.YourBallots)

	result, final, err = c.simulate(ctx, input, settings, progress)
	switch final {
	case StateCompleted:
		logger.Info("Simulation completed in %v: youWinCount=%d", time.Since(startTime), result.YouWinCount)
	case StateCancelled:
		logger.Info("Simulation cancelled after %v", time.Since(startTime))
	default:
		logger.Error("Simulation failed: %v", err)
	}
	return result, err
}

// RunSimulation runs input under runID, see Run
func (c *Controller) RunSimulation(ctx context.Context, runID string, input SimulationInput, progress ProgressCallback) (*AggregateResult, error) {
	c.mu.Lock()
	logger := c.logger
	c.mu.Unlock()

	logger.Debug("Run %s requested", runID)
	return c.Run(ctx, input, progress)
}

// finish records the terminal state of a run
func (c *Controller) finish(state RunState, duration time.Duration) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()

	c.performanceMonitor.RecordRun(state, duration)
}

// simulate is the trial loop. Buffers are reused across trials.
func (c *Controller) simulate(ctx context.Context, input SimulationInput, settings runSettings, progress ProgressCallback) (*AggregateResult, RunState, error) {
	src := settings.src
	if src == nil {
		return nil, StateFailed, ErrSimulationFailed.WithDetails("no random source")
	}

	shares := PartitionAll(input)
	acc := newAccumulator(input.NumChannels)
	sampler := NewWinnerSampler(src)

	var (
		roster       Roster
		pool         []int
		lastProgress int
	)

	trialStart := time.Now()
	for i := range input.NumSimulations {
		if err := ctx.Err(); err != nil {
			c.performanceMonitor.RecordTrials(i, time.Since(trialStart))
			return nil, StateCancelled, ErrSimulationCancelled.WithCause(err)
		}

		for ch, share := range shares {
			GeneratePopulation(src, &roster, share, input.AvgBallotsPerPerson, input.StdDev, acc.applicants)
			pool = BuildBallotPool(src, &roster, share.TotalBallots, pool)
			winners := sampler.DrawWinners(pool, share.NumWinners)
			acc.recordWinners(ch, &roster, winners)
		}

		if p := trialProgress(i, input.NumSimulations, settings.progressWeight); p > lastProgress {
			lastProgress = p
			if progress != nil {
				progress(p)
			}
		}
	}
	c.performanceMonitor.RecordTrials(input.NumSimulations, time.Since(trialStart))

	result := acc.aggregate(input, settings.binning)
	if math.IsNaN(result.AvgBallotsPerWinner) || math.IsInf(result.AvgBallotsPerWinner, 0) {
		return nil, StateFailed, ErrSimulationFailed.WithDetails("non-finite winner statistics")
	}
	return result, StateCompleted, nil
}

// trialProgress maps the completion of trial i (0-based) of n to reported progress
func trialProgress(i, n int, weight float64) int {
	percent := (i + 1) * MaxProgress / n
	return int(math.Floor(float64(percent) * weight))
}
