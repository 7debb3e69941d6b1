package chuusen

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// Run lock strategy:
// - Acquire with SET NX so a single network call decides ownership
// - Release through a Lua script so only the owner can delete the key
const (
	// releaseLockScript deletes the key only while it still holds our token
	releaseLockScript = `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
)

// RunLock guards simulation runs across processes sharing one Redis
type RunLock struct {
	redisClient   *redis.Client
	key           string
	expiration    time.Duration
	retryAttempts int
	retryInterval time.Duration
	logger        Logger
}

// NewRunLock creates a run lock from its configuration
func NewRunLock(redisClient *redis.Client, cfg *RunLockConfig, logger Logger) *RunLock {
	if cfg == nil {
		cfg = DefaultRunLockConfig()
	}
	if logger == nil {
		logger = NewSilentLogger()
	}

	key := cfg.Key
	if key == "" {
		key = DefaultRunLockKey
	}
	expiration := cfg.Expiration
	if expiration <= 0 {
		expiration = DefaultLockExpiration
	}

	return &RunLock{
		redisClient:   redisClient,
		key:           LockKeyPrefix + key,
		expiration:    expiration,
		retryAttempts: cfg.RetryAttempts,
		retryInterval: cfg.RetryInterval,
		logger:        logger,
	}
}

// Key returns the full Redis key of the lock
func (l *RunLock) Key() string { return l.key }

// Acquire takes the lock, retrying while another process holds it. The
// returned token must be passed to Release.
func (l *RunLock) Acquire(ctx context.Context) (string, error) {
	token := generateLockValue()

	for attempt := 0; attempt <= l.retryAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		acquired, err := l.redisClient.SetNX(ctx, l.key, token, l.expiration).Result()
		if err != nil {
			if attempt == l.retryAttempts {
				return "", ErrRunLockFailed.WithCause(err)
			}
			l.logger.Debug("Run lock %s attempt %d failed: %v", l.key, attempt+1, err)
			if err := sleepContext(ctx, l.retryInterval); err != nil {
				return "", err
			}
			continue
		}

		if acquired {
			l.logger.Debug("Run lock %s acquired", l.key)
			return token, nil
		}

		if attempt < l.retryAttempts {
			if err := sleepContext(ctx, l.retryInterval); err != nil {
				return "", err
			}
		}
	}

	return "", ErrRunLockHeld.WithDetails(l.key)
}

// TryAcquire makes a single attempt to take the lock
func (l *RunLock) TryAcquire(ctx context.Context) (string, error) {
	token := generateLockValue()

	acquired, err := l.redisClient.SetNX(ctx, l.key, token, l.expiration).Result()
	if err != nil {
		return "", ErrRunLockFailed.WithCause(err)
	}
	if !acquired {
		return "", ErrRunLockHeld.WithDetails(l.key)
	}
	return token, nil
}

// Release drops the lock if token still owns it. It reports whether a key was deleted.
func (l *RunLock) Release(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, ErrRunLockFailed.WithDetails("empty lock token")
	}

	for attempt := 0; attempt <= l.retryAttempts; attempt++ {
		result, err := l.redisClient.Eval(ctx, releaseLockScript, []string{l.key}, token).Int64()
		if err != nil {
			if attempt == l.retryAttempts {
				return false, ErrRunLockFailed.WithCause(err)
			}
			if err := sleepContext(ctx, l.retryInterval); err != nil {
				return false, err
			}
			continue
		}

		// 0 means the lock expired or is owned by someone else; retrying cannot help
		return result == 1, nil
	}

	return false, ErrRunLockFailed
}

// Holder returns the token currently holding the lock, or "" when free
func (l *RunLock) Holder(ctx context.Context) (string, error) {
	value, err := l.redisClient.Get(ctx, l.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", ErrRunLockFailed.WithCause(err)
	}
	return value, nil
}
