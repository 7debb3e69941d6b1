package chuusen

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// storeBreaker 存储操作的熔断器
type storeBreaker struct {
	mu      sync.RWMutex
	breaker *gobreaker.CircuitBreaker
	logger  Logger
	config  *CircuitBreakerConfig
}

// newStoreBreaker 创建熔断器, 未启用时返回透传包装器
func newStoreBreaker(config *CircuitBreakerConfig, logger Logger) *storeBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	if logger == nil {
		logger = NewSilentLogger()
	}

	b := &storeBreaker{logger: logger, config: config}
	if config.Enabled {
		b.breaker = gobreaker.NewCircuitBreaker(b.settings())
	}
	return b
}

func (b *storeBreaker) settings() gobreaker.Settings {
	config := b.config
	return gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// 当请求数达到最小要求且失败率超过阈值时触发熔断
			return counts.Requests >= config.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= config.FailureRatio
		},
		// 校验失败和记录不存在不代表存储故障
		IsSuccessful: func(err error) bool {
			return err == nil ||
				IsValidationError(err) ||
				errors.Is(err, ErrResultNotFound) ||
				errors.Is(err, ErrInputNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if config.OnStateChange {
				b.logger.Info("Circuit breaker '%s' state changed from %s to %s", name, from, to)
			}
		},
	}
}

// executeWithBreaker 使用熔断器执行操作
func (b *storeBreaker) executeWithBreaker(operation func() (any, error)) (any, error) {
	b.mu.RLock()
	breaker := b.breaker
	b.mu.RUnlock()

	if breaker == nil {
		// 熔断器未启用，直接执行
		return operation()
	}

	result, err := breaker.Execute(operation)
	if err != nil {
		// 检查是否是熔断器错误
		if errors.Is(err, gobreaker.ErrOpenState) {
			return nil, ErrCircuitBreakerOpen.WithDetails("circuit breaker is open, requests are being rejected")
		}
		if errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitBreakerOpen.WithDetails("too many requests, circuit breaker is half-open")
		}
	}

	return result, err
}

// State 获取熔断器状态
func (b *storeBreaker) State() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.breaker == nil {
		return "disabled"
	}

	switch b.breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Counts 获取熔断器统计信息
func (b *storeBreaker) Counts() gobreaker.Counts {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.breaker == nil {
		return gobreaker.Counts{}
	}
	return b.breaker.Counts()
}

// Reset 重置熔断器 (gobreaker 没有 Reset 方法, 重新创建实例)
func (b *storeBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.breaker != nil {
		b.breaker = gobreaker.NewCircuitBreaker(b.settings())
		b.logger.Info("Circuit breaker '%s' has been reset (recreated)", b.config.Name)
	}
}

func (b *storeBreaker) breakerConfig() *CircuitBreakerConfig { return b.config }

// ================================================================================

// BreakerInputStore 带熔断器的输入存储
type BreakerInputStore struct {
	*storeBreaker
	store InputStore
}

// NewBreakerInputStore 包装任意 InputStore
func NewBreakerInputStore(store InputStore, config *CircuitBreakerConfig, logger Logger) *BreakerInputStore {
	return &BreakerInputStore{storeBreaker: newStoreBreaker(config, logger), store: store}
}

// LoadInput 读取输入
func (s *BreakerInputStore) LoadInput(ctx context.Context) (SimulationInput, error) {
	result, err := s.executeWithBreaker(func() (any, error) {
		return s.store.LoadInput(ctx)
	})
	if err != nil {
		return SimulationInput{}, err
	}
	return result.(SimulationInput), nil
}

// SaveInput 保存输入
func (s *BreakerInputStore) SaveInput(ctx context.Context, input SimulationInput) error {
	_, err := s.executeWithBreaker(func() (any, error) {
		return nil, s.store.SaveInput(ctx, input)
	})
	return err
}

// ResetInput 清除输入
func (s *BreakerInputStore) ResetInput(ctx context.Context) error {
	_, err := s.executeWithBreaker(func() (any, error) {
		return nil, s.store.ResetInput(ctx)
	})
	return err
}

// BreakerRunArchive 带熔断器的结果存档
type BreakerRunArchive struct {
	*storeBreaker
	archive RunArchive
}

// NewBreakerRunArchive 包装任意 RunArchive
func NewBreakerRunArchive(archive RunArchive, config *CircuitBreakerConfig, logger Logger) *BreakerRunArchive {
	return &BreakerRunArchive{storeBreaker: newStoreBreaker(config, logger), archive: archive}
}

// SaveRun 保存运行记录
func (a *BreakerRunArchive) SaveRun(ctx context.Context, record *RunRecord) error {
	_, err := a.executeWithBreaker(func() (any, error) {
		return nil, a.archive.SaveRun(ctx, record)
	})
	return err
}

// LoadLatestRun 读取最近一次运行记录
func (a *BreakerRunArchive) LoadLatestRun(ctx context.Context) (*RunRecord, error) {
	result, err := a.executeWithBreaker(func() (any, error) {
		return a.archive.LoadLatestRun(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*RunRecord), nil
}

// ListRuns 列出运行记录
func (a *BreakerRunArchive) ListRuns(ctx context.Context) ([]string, error) {
	result, err := a.executeWithBreaker(func() (any, error) {
		return a.archive.ListRuns(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// DeleteRun 删除运行记录
func (a *BreakerRunArchive) DeleteRun(ctx context.Context, runID string) error {
	_, err := a.executeWithBreaker(func() (any, error) {
		return nil, a.archive.DeleteRun(ctx, runID)
	})
	return err
}

// ================================================================================

// BreakerStatus 熔断器状态查询接口
type BreakerStatus interface {
	State() string
	Counts() gobreaker.Counts
	breakerConfig() *CircuitBreakerConfig
}

// CircuitBreakerHealthCheck 熔断器健康检查
type CircuitBreakerHealthCheck struct {
	breaker BreakerStatus
}

// NewCircuitBreakerHealthCheck 创建熔断器健康检查
func NewCircuitBreakerHealthCheck(breaker BreakerStatus) *CircuitBreakerHealthCheck {
	return &CircuitBreakerHealthCheck{breaker: breaker}
}

// Check 执行健康检查
func (h *CircuitBreakerHealthCheck) Check() map[string]any {
	config := h.breaker.breakerConfig()
	result := map[string]any{
		"circuit_breaker_enabled": config.Enabled,
	}

	state := h.breaker.State()
	if !config.Enabled || state == "disabled" {
		result["state"] = "disabled"
		result["healthy"] = true
		return result
	}

	counts := h.breaker.Counts()
	result["state"] = state
	result["requests"] = counts.Requests
	result["total_successes"] = counts.TotalSuccesses
	result["total_failures"] = counts.TotalFailures
	result["consecutive_successes"] = counts.ConsecutiveSuccesses
	result["consecutive_failures"] = counts.ConsecutiveFailures
	result["success_rate"] = rate(counts.TotalSuccesses, counts.Requests)
	result["failure_rate"] = rate(counts.TotalFailures, counts.Requests)

	// 健康状态判断
	healthy := true
	switch state {
	case "open":
		healthy = false
	case "half-open":
		// 半开状态下，如果连续失败次数过多，认为不健康
		if counts.ConsecutiveFailures > 2 {
			healthy = false
		}
	}
	result["healthy"] = healthy

	return result
}

// CircuitBreakerMetrics 熔断器指标收集器
type CircuitBreakerMetrics struct {
	breaker BreakerStatus
}

// NewCircuitBreakerMetrics 创建熔断器指标收集器
func NewCircuitBreakerMetrics(breaker BreakerStatus) *CircuitBreakerMetrics {
	return &CircuitBreakerMetrics{breaker: breaker}
}

// CollectMetrics 收集指标
func (m *CircuitBreakerMetrics) CollectMetrics() map[string]any {
	config := m.breaker.breakerConfig()
	metrics := map[string]any{
		"circuit_breaker_enabled": config.Enabled,
		"timestamp":               time.Now().Unix(),
	}

	state := m.breaker.State()
	if !config.Enabled || state == "disabled" {
		return metrics
	}

	counts := m.breaker.Counts()

	// 状态指标
	metrics["circuit_breaker_state"] = state
	metrics["circuit_breaker_state_numeric"] = stateToNumeric(state)

	// 计数指标
	metrics["circuit_breaker_requests_total"] = counts.Requests
	metrics["circuit_breaker_successes_total"] = counts.TotalSuccesses
	metrics["circuit_breaker_failures_total"] = counts.TotalFailures
	metrics["circuit_breaker_consecutive_successes"] = counts.ConsecutiveSuccesses
	metrics["circuit_breaker_consecutive_failures"] = counts.ConsecutiveFailures

	// 比率指标
	metrics["circuit_breaker_success_rate"] = rate(counts.TotalSuccesses, counts.Requests)
	metrics["circuit_breaker_failure_rate"] = rate(counts.TotalFailures, counts.Requests)

	// 配置指标
	metrics["circuit_breaker_max_requests"] = config.MaxRequests
	metrics["circuit_breaker_failure_ratio_threshold"] = config.FailureRatio
	metrics["circuit_breaker_min_requests"] = config.MinRequests
	metrics["circuit_breaker_interval_seconds"] = config.Interval.Seconds()
	metrics["circuit_breaker_timeout_seconds"] = config.Timeout.Seconds()

	return metrics
}

// rate 计算比率, 无请求时为 0
func rate(part, total uint32) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total)
}

// stateToNumeric 将状态转换为数值
func stateToNumeric(state string) int {
	switch state {
	case "closed":
		return 0
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}
