package cache

import (
	"fmt"

	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// KeyLockerFactory creates the per-order saga lock based on configuration
type KeyLockerFactory struct {
	lockConfig            config.LockConfig
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// KeyLockerFactoryOption is a functional option for configuring the factory
type KeyLockerFactoryOption func(*KeyLockerFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) KeyLockerFactoryOption {
	return func(f *KeyLockerFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-process locker
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) KeyLockerFactoryOption {
	return func(f *KeyLockerFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewKeyLockerFactory creates a new factory
func NewKeyLockerFactory(lockCfg config.LockConfig, redisCfg config.RedisConfig, opts ...KeyLockerFactoryOption) *KeyLockerFactory {
	f := &KeyLockerFactory{
		lockConfig:            lockCfg,
		redisConfig:           redisCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisLocker connects to Redis and returns a RedisKeyLocker
func (f *KeyLockerFactory) CreateRedisLocker() (shared.KeyLocker, error) {
	client, err := NewRedisClient(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis key locker: %w", err)
	}
	return NewRedisKeyLocker(client, f.lockConfig.TTL, f.lockConfig.WaitTimeout), nil
}

// CreateInMemoryLocker returns the in-process keyed mutex.
// WARNING: it does not serialise writers running in other processes.
func (f *KeyLockerFactory) CreateInMemoryLocker() shared.KeyLocker {
	return NewInMemoryKeyLocker(f.lockConfig.WaitTimeout)
}

// CreateLocker honours lock.backend. For "redis" it falls back to the
// in-process locker when Redis is unreachable and fallback is allowed.
func (f *KeyLockerFactory) CreateLocker() (shared.KeyLocker, error) {
	if f.lockConfig.Backend != "redis" {
		f.logger.Info("using in-memory key locker")
		return f.CreateInMemoryLocker(), nil
	}

	locker, err := f.CreateRedisLocker()
	if err == nil {
		f.logger.Info("using Redis key locker")
		return locker, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for invoice locks but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory key locker. "+
		"Concurrent invoice writes from other instances are not serialised.",
		zap.Error(err),
	)
	return f.CreateInMemoryLocker(), nil
}
