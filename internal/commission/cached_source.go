package commission

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/o4o-platform/order-service/internal/cache"
	"github.com/o4o-platform/order-service/internal/domain"
)

// CachedPolicySource memoizes policy lookups per (seller, product). Cache
// failures fall through to the wrapped source.
type CachedPolicySource struct {
	next   PolicySource
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedPolicySource(next PolicySource, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedPolicySource {
	return &CachedPolicySource{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *CachedPolicySource) FindPolicies(ctx context.Context, sellerID, productID uuid.UUID) ([]domain.CommissionPolicy, error) {
	key := s.cache.GenerateKey("commission-policy", sellerID.String()+":"+productID.String())

	if raw, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("commission policy cache read failed", zap.String("key", key), zap.Error(err))
	} else if raw != "" {
		var policies []domain.CommissionPolicy
		if err := json.Unmarshal([]byte(raw), &policies); err == nil {
			return policies, nil
		}
	}

	policies, err := s.next.FindPolicies(ctx, sellerID, productID)
	if err != nil {
		return nil, err
	}

	if body, err := json.Marshal(policies); err == nil {
		if err := s.cache.Set(ctx, key, body, s.ttl); err != nil {
			s.logger.Warn("commission policy cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return policies, nil
}
