package chuusen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
)

// RedisInputStore keeps the last used SimulationInput under one fixed key.
// It has no expiry; a missing key means the user never saved an input.
type RedisInputStore struct {
	redisClient *redis.Client
	key         string
	fallback    SimulationInput
	logger      Logger
	recovery    *ErrorRecovery

	performanceMonitor *PerformanceMonitor
}

// NewRedisInputStore creates an input store. fallback is returned by
// LoadInput when nothing has been saved yet.
func NewRedisInputStore(redisClient *redis.Client, cfg *StoreConfig, fallback SimulationInput, logger Logger) *RedisInputStore {
	if cfg == nil {
		cfg = DefaultStoreConfig()
	}
	if logger == nil {
		logger = NewSilentLogger()
	}

	name := cfg.InputKey
	if name == "" {
		name = DefaultInputKey
	}

	return &RedisInputStore{
		redisClient:        redisClient,
		key:                InputKeyPrefix + name,
		fallback:           fallback,
		logger:             logger,
		recovery:           NewErrorRecovery(cfg.RetryAttempts, cfg.RetryInterval, logger),
		performanceMonitor: NewPerformanceMonitor(),
	}
}

// SetPerformanceMonitor shares a monitor with the controller
func (s *RedisInputStore) SetPerformanceMonitor(pm *PerformanceMonitor) {
	if pm != nil {
		s.performanceMonitor = pm
	}
}

// Key returns the Redis key the input lives under
func (s *RedisInputStore) Key() string { return s.key }

// LoadInput returns the saved input, or the fallback when none was saved.
// A saved value that no longer validates is reported as ErrStateCorrupted.
func (s *RedisInputStore) LoadInput(ctx context.Context) (SimulationInput, error) {
	var data []byte
	err := s.recovery.ExecuteWithRetry(ctx, fmt.Sprintf("load[%s]", s.key), func() error {
		var err error
		data, err = s.redisClient.Get(ctx, s.key).Bytes()
		if errors.Is(err, redis.Nil) {
			data = nil
			return nil
		}
		return err
	})
	s.performanceMonitor.RecordStoreOperation(err)
	if err != nil {
		s.logger.Error("Failed to load input from %s: %v", s.key, err)
		return SimulationInput{}, redisError("load", s.key, err)
	}

	if len(data) == 0 {
		s.logger.Debug("No saved input under %s, using defaults", s.key)
		return s.fallback, nil
	}

	var input SimulationInput
	if err := json.Unmarshal(data, &input); err != nil {
		return SimulationInput{}, ErrDeserializationFailed.WithCause(err)
	}
	if err := input.Validate(); err != nil {
		return SimulationInput{}, ErrStateCorrupted.WithCause(err).WithDetails(s.key)
	}
	return input, nil
}

// SaveInput validates and stores input
func (s *RedisInputStore) SaveInput(ctx context.Context, input SimulationInput) error {
	if err := input.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(input)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}

	err = s.recovery.ExecuteWithRetry(ctx, fmt.Sprintf("save[%s]", s.key), func() error {
		return s.redisClient.Set(ctx, s.key, data, 0).Err()
	})
	s.performanceMonitor.RecordStoreOperation(err)
	if err != nil {
		s.logger.Error("Failed to save input to %s: %v", s.key, err)
		return redisError("save", s.key, err)
	}

	s.logger.Debug("Saved input under %s", s.key)
	return nil
}

// ResetInput deletes the saved input
func (s *RedisInputStore) ResetInput(ctx context.Context) error {
	err := s.recovery.ExecuteWithRetry(ctx, fmt.Sprintf("delete[%s]", s.key), func() error {
		return s.redisClient.Del(ctx, s.key).Err()
	})
	s.performanceMonitor.RecordStoreOperation(err)
	if err != nil {
		s.logger.Error("Failed to reset input %s: %v", s.key, err)
		return redisError("delete", s.key, err)
	}
	return nil
}

// MemoryInputStore is an in-process InputStore, used when Redis is not configured
type MemoryInputStore struct {
	mu       sync.Mutex
	fallback SimulationInput
	saved    *SimulationInput
}

// NewMemoryInputStore creates an empty in-memory store
func NewMemoryInputStore(fallback SimulationInput) *MemoryInputStore {
	return &MemoryInputStore{fallback: fallback}
}

func (s *MemoryInputStore) LoadInput(ctx context.Context) (SimulationInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saved == nil {
		return s.fallback, nil
	}
	return *s.saved, nil
}

func (s *MemoryInputStore) SaveInput(ctx context.Context, input SimulationInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saved = &input
	return nil
}

func (s *MemoryInputStore) ResetInput(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saved = nil
	return nil
}
