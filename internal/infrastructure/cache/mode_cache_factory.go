package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

// ModeStore is implemented by both operation-mode caches
type ModeStore interface {
	Get(ctx context.Context, key string) (*document.OperationMode, bool, error)
	Set(ctx context.Context, key string, mode *document.OperationMode, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ModeStoreFactory creates operation-mode caches based on configuration
type ModeStoreFactory struct {
	redisConfig           RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ModeStoreFactoryOption is a functional option for configuring the factory
type ModeStoreFactoryOption func(*ModeStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ModeStoreFactoryOption {
	return func(f *ModeStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) ModeStoreFactoryOption {
	return func(f *ModeStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewModeStoreFactory creates a new factory
func NewModeStoreFactory(cfg RedisConfig, opts ...ModeStoreFactoryOption) *ModeStoreFactory {
	f := &ModeStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore tries Redis first and falls back to memory when allowed
func (f *ModeStoreFactory) CreateStore() (ModeStore, error) {
	store, err := NewRedisModeCache(f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis operation-mode cache")
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for operation-mode cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory operation-mode cache",
		zap.Error(err),
	)
	return NewInMemoryModeCache(), nil
}

var (
	_ ModeStore = (*InMemoryModeCache)(nil)
	_ ModeStore = (*RedisModeCache)(nil)
)
