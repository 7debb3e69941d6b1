package chuusen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// MaxRecordSize is the maximum allowed size of a serialized RunRecord (10MB)
const MaxRecordSize = 10 * 1024 * 1024

// ResultStore archives finished runs in Redis. Records expire after the
// configured TTL; the id of the latest saved run is kept under LatestRunKey.
type ResultStore struct {
	redisClient *redis.Client
	logger      Logger
	recovery    *ErrorRecovery
	ttl         time.Duration

	performanceMonitor *PerformanceMonitor
}

// NewResultStore creates a result store
func NewResultStore(redisClient *redis.Client, cfg *StoreConfig, logger Logger) *ResultStore {
	if cfg == nil {
		cfg = DefaultStoreConfig()
	}
	if logger == nil {
		logger = NewSilentLogger()
	}
	return &ResultStore{
		redisClient:        redisClient,
		logger:             logger,
		recovery:           NewErrorRecovery(cfg.RetryAttempts, cfg.RetryInterval, logger),
		ttl:                cfg.ResultTTL,
		performanceMonitor: NewPerformanceMonitor(),
	}
}

// SetPerformanceMonitor shares a monitor with the controller
func (s *ResultStore) SetPerformanceMonitor(pm *PerformanceMonitor) {
	if pm != nil {
		s.performanceMonitor = pm
	}
}

// runKey returns the Redis key of a run record
func runKey(runID string) string { return ResultKeyPrefix + runID }

// parseRunKey extracts the run id from a record key
func parseRunKey(key string) (string, error) {
	if !strings.HasPrefix(key, ResultKeyPrefix) {
		return "", fmt.Errorf("invalid run key format: missing prefix")
	}
	runID := strings.TrimPrefix(key, ResultKeyPrefix)
	if runID == "" {
		return "", fmt.Errorf("invalid run key format: empty run id")
	}
	return runID, nil
}

// serializeRunRecord validates and encodes a record
func serializeRunRecord(record *RunRecord) ([]byte, error) {
	if record == nil {
		return nil, ErrSerializationFailed.WithDetails("nil run record")
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, ErrSerializationFailed.WithCause(err)
	}
	if len(data) > MaxRecordSize {
		return nil, ErrSerializationFailed.WithDetails(fmt.Sprintf(
			"serialized run %s is %d bytes, limit %d", record.RunID, len(data), MaxRecordSize))
	}
	return data, nil
}

// deserializeRunRecord decodes and validates a record
func deserializeRunRecord(data []byte) (*RunRecord, error) {
	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, ErrDeserializationFailed.WithCause(err)
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return &record, nil
}

// SaveRun stores record and marks it as the latest run
func (s *ResultStore) SaveRun(ctx context.Context, record *RunRecord) error {
	data, err := serializeRunRecord(record)
	if err != nil {
		s.logger.Error("Failed to serialize run record: %v", err)
		return err
	}

	key := runKey(record.RunID)
	s.logger.Debug("Saving run record: key=%s, state=%s, size=%d bytes, ttl=%v", key, record.State, len(data), s.ttl)

	err = s.recovery.ExecuteWithRetry(ctx, fmt.Sprintf("save[%s]", key), func() error {
		if err := s.redisClient.Set(ctx, key, data, s.ttl).Err(); err != nil {
			return err
		}
		return s.redisClient.Set(ctx, LatestRunKey, record.RunID, s.ttl).Err()
	})
	s.performanceMonitor.RecordStoreOperation(err)
	if err != nil {
		s.logger.Error("Failed to save run record %s: %v", record.RunID, err)
		return redisError("save", key, err)
	}

	s.logger.Debug("Saved run record %s", record.RunID)
	return nil
}

// LoadRun loads one archived run
func (s *ResultStore) LoadRun(ctx context.Context, runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrResultNotFound.WithDetails("empty run id")
	}

	key := runKey(runID)
	var data []byte
	err := s.recovery.ExecuteWithRetry(ctx, fmt.Sprintf("load[%s]", key), func() error {
		var err error
		data, err = s.redisClient.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			// missing key is not retried
			data = nil
			return nil
		}
		return err
	})
	s.performanceMonitor.RecordStoreOperation(err)
	if err != nil {
		s.logger.Error("Failed to load run record %s: %v", runID, err)
		return nil, redisError("load", key, err)
	}
	if len(data) == 0 {
		return nil, ErrResultNotFound.WithDetails(runID)
	}

	record, err := deserializeRunRecord(data)
	if err != nil {
		s.logger.Error("Run record %s is corrupted: %v", runID, err)
		return nil, err
	}
	return record, nil
}

// LoadLatestRun loads the most recently saved run
func (s *ResultStore) LoadLatestRun(ctx context.Context) (*RunRecord, error) {
	var runID string
	err := s.recovery.ExecuteWithRetry(ctx, "latest", func() error {
		var err error
		runID, err = s.redisClient.Get(ctx, LatestRunKey).Result()
		if errors.Is(err, redis.Nil) {
			runID = ""
			return nil
		}
		return err
	})
	s.performanceMonitor.RecordStoreOperation(err)
	if err != nil {
		return nil, redisError("load", LatestRunKey, err)
	}
	if runID == "" {
		return nil, ErrResultNotFound.WithDetails("no run archived yet")
	}
	return s.LoadRun(ctx, runID)
}

// ListRuns returns the ids of all archived runs in ascending order
func (s *ResultStore) ListRuns(ctx context.Context) ([]string, error) {
	pattern := ResultKeyPrefix + "*"

	var keys []string
	err := s.recovery.ExecuteWithRetry(ctx, "keys", func() error {
		var err error
		keys, err = s.redisClient.Keys(ctx, pattern).Result()
		return err
	})
	s.performanceMonitor.RecordStoreOperation(err)
	if err != nil {
		s.logger.Error("Failed to list run records: pattern=%s, error=%v", pattern, err)
		return nil, redisError("keys", pattern, err)
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		runID, err := parseRunKey(key)
		if err != nil {
			s.logger.Debug("Skipping key %s: %v", key, err)
			continue
		}
		ids = append(ids, runID)
	}
	slices.Sort(ids)
	return ids, nil
}

// DeleteRun removes an archived run. Deleting a missing run is not an error.
func (s *ResultStore) DeleteRun(ctx context.Context, runID string) error {
	if runID == "" {
		return ErrResultNotFound.WithDetails("empty run id")
	}

	key := runKey(runID)
	var deleted int64
	err := s.recovery.ExecuteWithRetry(ctx, fmt.Sprintf("delete[%s]", key), func() error {
		var err error
		deleted, err = s.redisClient.Del(ctx, key).Result()
		return err
	})
	s.performanceMonitor.RecordStoreOperation(err)
	if err != nil {
		s.logger.Error("Failed to delete run record %s: %v", runID, err)
		return redisError("delete", key, err)
	}

	if deleted == 0 {
		s.logger.Debug("Run record did not exist: key=%s", key)
	}
	return nil
}
