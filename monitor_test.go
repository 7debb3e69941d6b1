package chuusen

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPerformanceMonitor(t *testing.T) {
	t.Run("records runs by state", func(t *testing.T) {
		pm := NewPerformanceMonitor()
		pm.RecordRun(StateCompleted, 2*time.Second)
		pm.RecordRun(StateCompleted, time.Second)
		pm.RecordRun(StateCancelled, time.Second)
		pm.RecordRun(StateFailed, time.Second)
		pm.RecordRejectedRun()

		m := pm.GetMetrics()
		assert.Equal(t, int64(4), m.TotalRuns)
		assert.Equal(t, int64(2), m.CompletedRuns)
		assert.Equal(t, int64(1), m.CancelledRuns)
		assert.Equal(t, int64(1), m.FailedRuns)
		assert.Equal(t, int64(1), m.RejectedRuns)
		assert.Equal(t, 50.0, m.GetCompletionRate())
	})

	t.Run("trial throughput", func(t *testing.T) {
		pm := NewPerformanceMonitor()
		pm.RecordTrials(1000, 500*time.Millisecond)
		pm.RecordTrials(0, time.Second)
		pm.RecordRun(StateCompleted, 2*time.Second)

		m := pm.GetMetrics()
		assert.Equal(t, int64(1000), m.TotalTrials)
		assert.Equal(t, 500*time.Microsecond, m.GetAverageTrialTime())
		assert.Equal(t, 500.0, m.GetTrialThroughput())
	})

	t.Run("store operations", func(t *testing.T) {
		pm := NewPerformanceMonitor()
		pm.RecordStoreOperation(nil)
		pm.RecordStoreOperation(errors.New("boom"))

		m := pm.GetMetrics()
		assert.Equal(t, int64(2), m.StoreOperations)
		assert.Equal(t, int64(1), m.StoreErrors)
	})

	t.Run("禁用后不记录", func(t *testing.T) {
		pm := NewPerformanceMonitor()
		pm.Disable()
		assert.False(t, pm.IsEnabled())

		pm.RecordRun(StateCompleted, time.Second)
		pm.RecordTrials(10, time.Second)
		pm.RecordStoreOperation(nil)
		pm.RecordRejectedRun()
		assert.Zero(t, pm.GetMetrics().TotalRuns)
		assert.Zero(t, pm.GetMetrics().TotalTrials)

		pm.Enable()
		pm.RecordRun(StateCompleted, time.Second)
		assert.Equal(t, int64(1), pm.GetMetrics().TotalRuns)
	})

	t.Run("reset", func(t *testing.T) {
		pm := NewPerformanceMonitor()
		pm.RecordRun(StateFailed, time.Second)
		pm.ResetMetrics()

		m := pm.GetMetrics()
		assert.Zero(t, m.TotalRuns)
		assert.Zero(t, m.FailedRuns)
		assert.Positive(t, m.StartTime)
	})

	t.Run("empty metrics", func(t *testing.T) {
		var m PerformanceMetrics
		assert.Zero(t, m.GetCompletionRate())
		assert.Zero(t, m.GetAverageTrialTime())
		assert.Zero(t, m.GetTrialThroughput())
	})

	t.Run("concurrent recording", func(t *testing.T) {
		pm := NewPerformanceMonitor()
		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 50 {
					pm.RecordStoreOperation(nil)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int64(1000), pm.GetMetrics().StoreOperations)
	})
}
