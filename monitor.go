package chuusen

import (
	"sync"
	"sync/atomic"
	"time"
)

// PerformanceMetrics 性能指标收集器
type PerformanceMetrics struct {
	// 运行统计
	TotalRuns     int64 `json:"total_runs"`     // 总运行次数
	CompletedRuns int64 `json:"completed_runs"` // 完成次数
	CancelledRuns int64 `json:"cancelled_runs"` // 取消次数
	FailedRuns    int64 `json:"failed_runs"`    // 失败次数
	RejectedRuns  int64 `json:"rejected_runs"`  // 因已有运行而被拒绝的次数

	// 试验统计
	TotalTrials    int64 `json:"total_trials"`    // 总试验次数
	TotalTrialTime int64 `json:"total_trial_time"` // 试验总时间(纳秒)
	TotalRunTime   int64 `json:"total_run_time"`   // 运行总时间(纳秒)

	// 存储统计
	StoreOperations int64 `json:"store_operations"` // 存储操作次数
	StoreErrors     int64 `json:"store_errors"`     // 存储错误数

	// 时间戳
	StartTime      int64 `json:"start_time"`       // 开始时间
	LastUpdateTime int64 `json:"last_update_time"` // 最后更新时间
}

// GetCompletionRate 获取完成率
func (pm *PerformanceMetrics) GetCompletionRate() float64 {
	total := atomic.LoadInt64(&pm.TotalRuns)
	if total == 0 {
		return 0.0
	}
	completed := atomic.LoadInt64(&pm.CompletedRuns)
	return float64(completed) / float64(total) * 100.0
}

// GetAverageTrialTime 获取平均试验时间
func (pm *PerformanceMetrics) GetAverageTrialTime() time.Duration {
	trials := atomic.LoadInt64(&pm.TotalTrials)
	if trials == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&pm.TotalTrialTime) / trials)
}

// GetTrialThroughput 获取吞吐量(每秒试验数)
func (pm *PerformanceMetrics) GetTrialThroughput() float64 {
	runTime := atomic.LoadInt64(&pm.TotalRunTime)
	if runTime <= 0 {
		return 0.0
	}
	return float64(atomic.LoadInt64(&pm.TotalTrials)) / time.Duration(runTime).Seconds()
}

// Reset 重置性能指标
func (pm *PerformanceMetrics) Reset() {
	atomic.StoreInt64(&pm.TotalRuns, 0)
	atomic.StoreInt64(&pm.CompletedRuns, 0)
	atomic.StoreInt64(&pm.CancelledRuns, 0)
	atomic.StoreInt64(&pm.FailedRuns, 0)
	atomic.StoreInt64(&pm.RejectedRuns, 0)
	atomic.StoreInt64(&pm.TotalTrials, 0)
	atomic.StoreInt64(&pm.TotalTrialTime, 0)
	atomic.StoreInt64(&pm.TotalRunTime, 0)
	atomic.StoreInt64(&pm.StoreOperations, 0)
	atomic.StoreInt64(&pm.StoreErrors, 0)
	atomic.StoreInt64(&pm.StartTime, time.Now().UnixNano())
	atomic.StoreInt64(&pm.LastUpdateTime, time.Now().UnixNano())
}

// ================================================================================

// PerformanceMonitor 性能监控器
type PerformanceMonitor struct {
	metrics *PerformanceMetrics
	mu      sync.RWMutex
	enabled bool
}

// NewPerformanceMonitor 创建新的性能监控器
func NewPerformanceMonitor() *PerformanceMonitor {
	pm := &PerformanceMonitor{
		metrics: &PerformanceMetrics{},
		enabled: true,
	}
	pm.metrics.Reset()
	return pm
}

// Enable 启用性能监控
func (pm *PerformanceMonitor) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.enabled = true
}

// Disable 禁用性能监控
func (pm *PerformanceMonitor) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.enabled = false
}

// IsEnabled 检查是否启用了性能监控
func (pm *PerformanceMonitor) IsEnabled() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	return pm.enabled
}

// RecordRun 记录一次运行的终态
func (pm *PerformanceMonitor) RecordRun(state RunState, duration time.Duration) {
	if !pm.IsEnabled() {
		return
	}

	atomic.AddInt64(&pm.metrics.TotalRuns, 1)
	atomic.AddInt64(&pm.metrics.TotalRunTime, int64(duration))

	switch state {
	case StateCompleted:
		atomic.AddInt64(&pm.metrics.CompletedRuns, 1)
	case StateCancelled:
		atomic.AddInt64(&pm.metrics.CancelledRuns, 1)
	case StateFailed:
		atomic.AddInt64(&pm.metrics.FailedRuns, 1)
	}

	atomic.StoreInt64(&pm.metrics.LastUpdateTime, time.Now().UnixNano())
}

// RecordRejectedRun 记录被拒绝的运行请求
func (pm *PerformanceMonitor) RecordRejectedRun() {
	if !pm.IsEnabled() {
		return
	}

	atomic.AddInt64(&pm.metrics.RejectedRuns, 1)
	atomic.StoreInt64(&pm.metrics.LastUpdateTime, time.Now().UnixNano())
}

// RecordTrials 记录一批已完成的试验
func (pm *PerformanceMonitor) RecordTrials(trials int, duration time.Duration) {
	if !pm.IsEnabled() || trials <= 0 {
		return
	}

	atomic.AddInt64(&pm.metrics.TotalTrials, int64(trials))
	atomic.AddInt64(&pm.metrics.TotalTrialTime, int64(duration))
	atomic.StoreInt64(&pm.metrics.LastUpdateTime, time.Now().UnixNano())
}

// RecordStoreOperation 记录存储操作
func (pm *PerformanceMonitor) RecordStoreOperation(err error) {
	if !pm.IsEnabled() {
		return
	}

	atomic.AddInt64(&pm.metrics.StoreOperations, 1)
	if err != nil {
		atomic.AddInt64(&pm.metrics.StoreErrors, 1)
	}
	atomic.StoreInt64(&pm.metrics.LastUpdateTime, time.Now().UnixNano())
}

// GetMetrics 获取性能指标的副本
func (pm *PerformanceMonitor) GetMetrics() PerformanceMetrics {
	return PerformanceMetrics{
		TotalRuns:       atomic.LoadInt64(&pm.metrics.TotalRuns),
		CompletedRuns:   atomic.LoadInt64(&pm.metrics.CompletedRuns),
		CancelledRuns:   atomic.LoadInt64(&pm.metrics.CancelledRuns),
		FailedRuns:      atomic.LoadInt64(&pm.metrics.FailedRuns),
		RejectedRuns:    atomic.LoadInt64(&pm.metrics.RejectedRuns),
		TotalTrials:     atomic.LoadInt64(&pm.metrics.TotalTrials),
		TotalTrialTime:  atomic.LoadInt64(&pm.metrics.TotalTrialTime),
		TotalRunTime:    atomic.LoadInt64(&pm.metrics.TotalRunTime),
		StoreOperations: atomic.LoadInt64(&pm.metrics.StoreOperations),
		StoreErrors:     atomic.LoadInt64(&pm.metrics.StoreErrors),
		StartTime:       atomic.LoadInt64(&pm.metrics.StartTime),
		LastUpdateTime:  atomic.LoadInt64(&pm.metrics.LastUpdateTime),
	}
}

// ResetMetrics 重置性能指标
func (pm *PerformanceMonitor) ResetMetrics() { pm.metrics.Reset() }
