package settings

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

// DefaultModeTTL bounds how long a cached operation mode is trusted
const DefaultModeTTL = 5 * time.Minute

// Gateway is the configuration read contract
type Gateway interface {
	ActiveOperationMode(ctx context.Context, tenantID, companyID int64, docType document.Type) (*document.OperationMode, error)
	ActiveNumberingRange(ctx context.Context, tenantID, companyID int64, docType document.Type, prefix string) (*document.NumberingRange, error)
}

// ModeCache stores operation modes by key
type ModeCache interface {
	Get(ctx context.Context, key string) (*document.OperationMode, bool, error)
	Set(ctx context.Context, key string, mode *document.OperationMode, ttl time.Duration) error
}

// CachingGateway caches operation modes in front of another Gateway.
// Numbering ranges always go to the source because their pointer moves.
type CachingGateway struct {
	next   Gateway
	cache  ModeCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachingGateway wraps next. ttl <= 0 uses DefaultModeTTL.
func NewCachingGateway(next Gateway, cache ModeCache, ttl time.Duration, logger *zap.Logger) *CachingGateway {
	if ttl <= 0 {
		ttl = DefaultModeTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingGateway{next: next, cache: cache, ttl: ttl, logger: logger}
}

// ModeKey is the cache key of an operation mode
func ModeKey(tenantID, companyID int64, docType document.Type) string {
	return fmt.Sprintf("%d:%d:%s", tenantID, companyID, docType)
}

// ActiveOperationMode serves from cache, reading through on a miss. Cache
// failures are logged and bypassed.
func (g *CachingGateway) ActiveOperationMode(
	ctx context.Context,
	tenantID, companyID int64,
	docType document.Type,
) (*document.OperationMode, error) {
	key := ModeKey(tenantID, companyID, docType)

	mode, ok, err := g.cache.Get(ctx, key)
	if err != nil {
		g.logger.Warn("Operation mode cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		return mode, nil
	}

	mode, err = g.next.ActiveOperationMode(ctx, tenantID, companyID, docType)
	if err != nil {
		return nil, err
	}
	if err := g.cache.Set(ctx, key, mode, g.ttl); err != nil {
		g.logger.Warn("Operation mode cache write failed", zap.String("key", key), zap.Error(err))
	}
	return mode, nil
}

// ActiveNumberingRange delegates to the wrapped gateway
func (g *CachingGateway) ActiveNumberingRange(
	ctx context.Context,
	tenantID, companyID int64,
	docType document.Type,
	prefix string,
) (*document.NumberingRange, error) {
	return g.next.ActiveNumberingRange(ctx, tenantID, companyID, docType, prefix)
}

var (
	_ Gateway = (*Client)(nil)
	_ Gateway = (*CachingGateway)(nil)
)
