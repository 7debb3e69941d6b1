package chuusen

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"strings"
	"time"
)

// ErrorCode 错误代码类型
type ErrorCode string

// 错误代码常量
const (
	// 系统级错误 (1000-1999)
	ErrCodeSystem          ErrorCode = "CHUUSEN_1000"
	ErrCodeRedisConnection ErrorCode = "CHUUSEN_1001"
	ErrCodeRedisTimeout    ErrorCode = "CHUUSEN_1002"
	ErrCodeConfigInvalid   ErrorCode = "CHUUSEN_1004"

	// 输入校验错误 (2000-2999)
	ErrCodeInvalidChannels       ErrorCode = "CHUUSEN_2001"
	ErrCodeInvalidSimulations    ErrorCode = "CHUUSEN_2002"
	ErrCodeInvalidAverage        ErrorCode = "CHUUSEN_2003"
	ErrCodeInvalidStdDev         ErrorCode = "CHUUSEN_2004"
	ErrCodeNegativeCount         ErrorCode = "CHUUSEN_2005"
	ErrCodeTooManySimulations    ErrorCode = "CHUUSEN_2006"
	ErrCodeInvalidRetryAttempts  ErrorCode = "CHUUSEN_2011"
	ErrCodeInvalidRetryInterval  ErrorCode = "CHUUSEN_2012"
	ErrCodeInvalidBinning        ErrorCode = "CHUUSEN_2013"
	ErrCodeInvalidLockExpiration ErrorCode = "CHUUSEN_2014"

	// 运行控制错误 (3000-3999)
	ErrCodeRunInProgress ErrorCode = "CHUUSEN_3000"
	ErrCodeCancelled     ErrorCode = "CHUUSEN_3001"
	ErrCodeRunFailed     ErrorCode = "CHUUSEN_3002"
	ErrCodeRunLockHeld   ErrorCode = "CHUUSEN_3003"
	ErrCodeRunLockFailed ErrorCode = "CHUUSEN_3004"

	// 熔断相关错误 (5000-5999)
	ErrCodeCircuitBreakerOpen ErrorCode = "CHUUSEN_5002"

	// 持久化相关错误 (6000-6999)
	ErrCodeInputNotFound         ErrorCode = "CHUUSEN_6000"
	ErrCodeResultNotFound        ErrorCode = "CHUUSEN_6001"
	ErrCodeStateCorrupted        ErrorCode = "CHUUSEN_6003"
	ErrCodeSerializationFailed   ErrorCode = "CHUUSEN_6004"
	ErrCodeDeserializationFailed ErrorCode = "CHUUSEN_6005"
)

// ErrorSeverity 错误严重程度
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "critical"
	SeverityHigh     ErrorSeverity = "high"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityLow      ErrorSeverity = "low"
	SeverityInfo     ErrorSeverity = "info"
)

// SimulationError 带错误码的错误类型
type SimulationError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Details    string         `json:"details,omitempty"`
	Severity   ErrorSeverity  `json:"severity"`
	Timestamp  time.Time      `json:"timestamp"`
	Operation  string         `json:"operation,omitempty"`
	StackTrace string         `json:"stack_trace,omitempty"`
	Cause      error          `json:"-"`
	Retryable  bool           `json:"retryable"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Error 实现 error 接口
func (e *SimulationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap 接口
func (e *SimulationError) Unwrap() error { return e.Cause }

// Is 按错误码比较
func (e *SimulationError) Is(target error) bool {
	if t, ok := target.(*SimulationError); ok {
		return e.Code == t.Code
	}
	return false
}

// clone 返回副本, 预定义实例不会被 With* 修改
func (e *SimulationError) clone() *SimulationError {
	c := *e
	c.Timestamp = time.Now()
	if e.Metadata != nil {
		c.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// WithCause 添加原因错误
func (e *SimulationError) WithCause(cause error) *SimulationError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithDetails 添加详细信息
func (e *SimulationError) WithDetails(details string) *SimulationError {
	c := e.clone()
	c.Details = details
	return c
}

// WithOperation 添加操作信息
func (e *SimulationError) WithOperation(operation string) *SimulationError {
	c := e.clone()
	c.Operation = operation
	return c
}

// WithMetadata 添加元数据
func (e *SimulationError) WithMetadata(key string, value any) *SimulationError {
	c := e.clone()
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	c.Metadata[key] = value
	return c
}

// WithStackTrace 添加堆栈跟踪
func (e *SimulationError) WithStackTrace() *SimulationError {
	c := e.clone()
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	c.StackTrace = string(buf[:n])
	return c
}

// NewError 创建新的错误
func NewError(code ErrorCode, message string) *SimulationError {
	return &SimulationError{
		Code:      code,
		Message:   message,
		Severity:  SeverityMedium,
		Timestamp: time.Now(),
	}
}

// NewRetryableError 创建可重试的错误
func NewRetryableError(code ErrorCode, message string) *SimulationError {
	err := NewError(code, message)
	err.Retryable = true
	return err
}

// NewCriticalError 创建严重错误
func NewCriticalError(code ErrorCode, message string) *SimulationError {
	err := NewError(code, message)
	err.Severity = SeverityCritical
	return err
}

// 预定义的错误实例
var (
	// 系统级错误
	ErrSystemError           = NewCriticalError(ErrCodeSystem, "system error occurred")
	ErrRedisConnectionFailed = NewRetryableError(ErrCodeRedisConnection, "Redis connection failed")
	ErrRedisTimeout          = NewRetryableError(ErrCodeRedisTimeout, "Redis operation timeout")
	ErrConfigInvalid         = NewCriticalError(ErrCodeConfigInvalid, "configuration is invalid")

	// 输入校验错误
	ErrInvalidChannels       = NewError(ErrCodeInvalidChannels, "invalid channel count: must be at least 1")
	ErrInvalidSimulations    = NewError(ErrCodeInvalidSimulations, "invalid simulation count: must be at least 1")
	ErrInvalidAverage        = NewError(ErrCodeInvalidAverage, "invalid average ballots per person: must be a finite number greater than 0")
	ErrInvalidStdDev         = NewError(ErrCodeInvalidStdDev, "invalid standard deviation: must be a finite number not less than 0")
	ErrNegativeCount         = NewError(ErrCodeNegativeCount, "invalid count: cannot be negative")
	ErrTooManySimulations    = NewError(ErrCodeTooManySimulations, "invalid simulation count: exceeds configured maximum")
	ErrInvalidRetryAttempts  = NewError(ErrCodeInvalidRetryAttempts, "invalid retry attempts: must be between 0 and 10")
	ErrInvalidRetryInterval  = NewError(ErrCodeInvalidRetryInterval, "invalid retry interval: cannot be negative")
	ErrInvalidBinning        = NewError(ErrCodeInvalidBinning, "invalid binning configuration")
	ErrInvalidLockExpiration = NewError(ErrCodeInvalidLockExpiration, "invalid run lock expiration: must be between 1s and 2h")

	// 运行控制错误
	ErrRunInProgress       = NewError(ErrCodeRunInProgress, "a simulation run is already in progress")
	ErrSimulationCancelled = NewError(ErrCodeCancelled, "simulation cancelled")
	ErrSimulationFailed    = NewCriticalError(ErrCodeRunFailed, "simulation failed")
	ErrRunLockHeld         = NewRetryableError(ErrCodeRunLockHeld, "run lock is held by another process")
	ErrRunLockFailed       = NewRetryableError(ErrCodeRunLockFailed, "failed to operate run lock")

	// 熔断相关错误
	ErrCircuitBreakerOpen = NewRetryableError(ErrCodeCircuitBreakerOpen, "circuit breaker is open")

	// 持久化相关错误
	ErrInputNotFound         = NewError(ErrCodeInputNotFound, "persisted input not found")
	ErrResultNotFound        = NewError(ErrCodeResultNotFound, "run record not found")
	ErrStateCorrupted        = NewError(ErrCodeStateCorrupted, "stored data is corrupted")
	ErrSerializationFailed   = NewError(ErrCodeSerializationFailed, "serialization failed")
	ErrDeserializationFailed = NewError(ErrCodeDeserializationFailed, "deserialization failed")
)

// IsValidationError reports whether err belongs to the input validation range
func IsValidationError(err error) bool {
	var simErr *SimulationError
	if !errors.As(err, &simErr) {
		return false
	}
	return strings.HasPrefix(string(simErr.Code), "CHUUSEN_2")
}

// IsRetryableError 检查是否为可重试错误
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var simErr *SimulationError
	if errors.As(err, &simErr) {
		return simErr.Retryable
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"network is unreachable",
		"temporary failure",
		"server closed",
		"broken pipe",
		"i/o timeout",
		"dial tcp",
		"read tcp",
		"write tcp",
		"connection timed out",
		"no route to host",
		"redis: connection pool timeout",
		"redis: client is closed",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// ErrorRecovery 错误恢复策略 (指数退避 + 抖动)
type ErrorRecovery struct {
	maxRetries    int
	baseDelay     time.Duration
	maxDelay      time.Duration
	backoffFactor float64
	logger        Logger
}

// NewErrorRecovery 创建错误恢复策略
func NewErrorRecovery(maxRetries int, baseDelay time.Duration, logger Logger) *ErrorRecovery {
	if logger == nil {
		logger = NewSilentLogger()
	}
	return &ErrorRecovery{
		maxRetries:    maxRetries,
		baseDelay:     baseDelay,
		maxDelay:      5 * time.Second,
		backoffFactor: 2.0,
		logger:        logger,
	}
}

// retryDelay 获取重试延迟
func (r *ErrorRecovery) retryDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return r.baseDelay
	}

	delay := time.Duration(float64(r.baseDelay) * math.Pow(r.backoffFactor, float64(attempt-1)))

	// 添加抖动 (±25%)
	jitter := time.Duration(float64(delay) * 0.25 * (2*rand.Float64() - 1))
	delay += jitter

	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	return delay
}

// ExecuteWithRetry 执行带重试的操作
func (r *ErrorRecovery) ExecuteWithRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled: %w", operation, ctx.Err())
		default:
		}

		err := fn()
		if err == nil {
			if attempt > 0 {
				r.logger.Info("%s succeeded after %d retries", operation, attempt)
			}
			return nil
		}
		lastErr = err

		if !IsRetryableError(err) {
			r.logger.Debug("%s failed with non-retryable error: %v", operation, err)
			return err
		}

		if attempt < r.maxRetries {
			delay := r.retryDelay(attempt + 1)
			r.logger.Debug("Retrying %s in %v (attempt %d/%d): %v", operation, delay, attempt+1, r.maxRetries, err)

			select {
			case <-ctx.Done():
				return fmt.Errorf("%s cancelled during retry: %w", operation, ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, r.maxRetries+1, lastErr)
}
