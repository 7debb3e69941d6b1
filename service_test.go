package chuusen

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(archive RunArchive, lock *RunLock) (*Service, *MemoryInputStore) {
	inputs := NewMemoryInputStore(smallInput())
	return NewService(newTestController(), inputs, archive, lock, NewSilentLogger()), inputs
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(newTestController(), nil, nil, nil, nil)

	input, err := svc.CurrentInput(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultInput(), input)
	assert.Nil(t, svc.Archive())
	assert.NotNil(t, svc.Controller())
	assert.NotNil(t, svc.Inputs())
}

func TestService_Run(t *testing.T) {
	archive := newMemoryArchive()
	svc, inputs := newTestService(archive, nil)
	ctx := context.Background()

	input := smallInput()
	input.YourBallots = 8

	var progress []int
	record, err := svc.Run(ctx, &input, func(p int) { progress = append(progress, p) })
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, StateCompleted, record.State)
	assert.NotEmpty(t, record.RunID)
	assert.Equal(t, input, record.Input)
	require.NotNil(t, record.Result)
	assert.Len(t, record.Result.ChannelAnalysis, input.NumChannels)
	assert.NoError(t, record.Validate())
	assert.NotEmpty(t, progress)

	saved, err := inputs.LoadInput(ctx)
	require.NoError(t, err)
	assert.Equal(t, input, saved, "input is remembered for the next session")

	latest, err := svc.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, record.RunID, latest.RunID)
	assert.Equal(t, StateCompleted, latest.State)
}

func TestService_RunPersistedInput(t *testing.T) {
	svc, inputs := newTestService(newMemoryArchive(), nil)
	ctx := context.Background()

	stored := smallInput()
	stored.NumChannels = 3
	require.NoError(t, inputs.SaveInput(ctx, stored))

	record, err := svc.Run(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, stored, record.Input)
	assert.Len(t, record.Result.ChannelAnalysis, 3)
}

func TestService_RunInvalidInput(t *testing.T) {
	archive := newMemoryArchive()
	svc, inputs := newTestService(archive, nil)
	ctx := context.Background()

	input := smallInput()
	input.AvgBallotsPerPerson = 0

	record, err := svc.Run(ctx, &input, nil)
	assert.ErrorIs(t, err, ErrInvalidAverage)
	assert.Nil(t, record)
	assert.Zero(t, archive.callCount())

	saved, err := inputs.LoadInput(ctx)
	require.NoError(t, err)
	assert.Equal(t, smallInput(), saved)
	assert.Equal(t, StateIdle, svc.Controller().State())
}

func TestService_RunCancelled(t *testing.T) {
	archive := newMemoryArchive()
	svc, _ := newTestService(archive, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := smallInput()
	record, err := svc.Run(ctx, &input, nil)
	assert.ErrorIs(t, err, ErrSimulationCancelled)
	require.NotNil(t, record)
	assert.Equal(t, StateCancelled, record.State)
	assert.Nil(t, record.Result)

	latest, err := svc.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, record.RunID, latest.RunID)
	assert.Equal(t, StateCancelled, latest.State)
}

func TestService_ArchiveFailureDoesNotFailRun(t *testing.T) {
	archive := newMemoryArchive()
	archive.setErr(errors.New("disk full"))
	svc, _ := newTestService(archive, nil)

	input := smallInput()
	record, err := svc.Run(context.Background(), &input, nil)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, record.State)
	assert.Equal(t, 1, archive.callCount())
}

func TestService_LatestRunWithoutArchive(t *testing.T) {
	svc, _ := newTestService(nil, nil)

	_, err := svc.LatestRun(context.Background())
	assert.ErrorIs(t, err, ErrResultNotFound)

	input := smallInput()
	record, err := svc.Run(context.Background(), &input, nil)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, record.State)
}

func TestService_RunLock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	lock := NewRunLock(db, testRunLockConfig(), NewSilentLogger())
	archive := newMemoryArchive()
	svc, _ := newTestService(archive, lock)
	ctx := context.Background()
	input := smallInput()

	t.Run("获取并释放锁", func(t *testing.T) {
		mock.Regexp().ExpectSetNX(lock.Key(), tokenPattern, DefaultLockExpiration).SetVal(true)
		mock.Regexp().ExpectEval(regexp.QuoteMeta(releaseLockScript), []string{lock.Key()}, tokenPattern).SetVal(int64(1))

		record, err := svc.Run(ctx, &input, nil)
		require.NoError(t, err)
		assert.Equal(t, StateCompleted, record.State)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("锁被占用", func(t *testing.T) {
		before := archive.callCount()
		mock.Regexp().ExpectSetNX(lock.Key(), tokenPattern, DefaultLockExpiration).SetVal(false)

		record, err := svc.Run(ctx, &input, nil)
		assert.ErrorIs(t, err, ErrRunLockHeld)
		assert.Nil(t, record)
		assert.Equal(t, before, archive.callCount())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis unavailable", func(t *testing.T) {
		mock.Regexp().ExpectSetNX(lock.Key(), tokenPattern, DefaultLockExpiration).SetErr(errors.New("connection refused"))

		record, err := svc.Run(ctx, &input, nil)
		assert.ErrorIs(t, err, ErrRunLockFailed)
		assert.Nil(t, record)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestService_AsWorkerRunner(t *testing.T) {
	archive := newMemoryArchive()
	svc, _ := newTestService(archive, nil)
	w := startWorker(t, svc)

	req := NewRunRequest(smallInput())
	require.NoError(t, w.Send(req))

	_, _, terminal := collectResponses(t, w, req.ID)
	assert.IsType(t, SuccessResponse{}, terminal)

	latest, err := svc.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, req.ID, latest.RunID)
}

func TestNewRunRecord(t *testing.T) {
	start := time.Now()
	result := &AggregateResult{ChannelAnalysis: map[int]ChannelOutcome{0: {TotalWinners: 1}}}

	tests := []struct {
		name      string
		result    *AggregateResult
		err       error
		state     RunState
		hasResult bool
		errText   string
	}{
		{"completed", result, nil, StateCompleted, true, ""},
		{"cancelled", nil, ErrSimulationCancelled.WithCause(context.Canceled), StateCancelled, false, ""},
		{"failed", nil, ErrSimulationFailed.WithDetails("boom"), StateFailed, false, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := newRunRecord("run-1", smallInput(), tt.result, tt.err, start)
			assert.Equal(t, tt.state, record.State)
			assert.Equal(t, tt.hasResult, record.Result != nil)
			if tt.errText != "" {
				assert.Contains(t, record.Error, tt.errText)
			} else {
				assert.Empty(t, record.Error)
			}
			assert.NoError(t, record.Validate())
		})
	}
}
