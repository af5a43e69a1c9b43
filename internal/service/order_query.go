package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/o4o-platform/order-service/internal/domain"
)

const (
	defaultOrderLimit       = 10
	defaultParticipantLimit = 20
	recentOrdersLimit       = 5
	statsCacheOperation     = "order-stats"
	statsGenOperation       = "order-stats-gen"
)

func (s *OrderService) GetOrders(ctx context.Context, filter domain.OrderFilter) (domain.OrderPage, error) {
	return s.listOrders(ctx, filter.Normalize(defaultOrderLimit))
}

// GetOrdersForSeller lists orders holding at least one item sold by sellerID.
func (s *OrderService) GetOrdersForSeller(ctx context.Context, sellerID uuid.UUID, filter domain.OrderFilter) (domain.OrderPage, error) {
	filter.SellerID = sellerID
	return s.listOrders(ctx, filter.Normalize(defaultParticipantLimit))
}

// GetOrdersForSupplier lists orders holding at least one item supplied by supplierID.
func (s *OrderService) GetOrdersForSupplier(ctx context.Context, supplierID uuid.UUID, filter domain.OrderFilter) (domain.OrderPage, error) {
	filter.SupplierID = supplierID
	return s.listOrders(ctx, filter.Normalize(defaultParticipantLimit))
}

func (s *OrderService) listOrders(ctx context.Context, filter domain.OrderFilter) (domain.OrderPage, error) {
	orders, total, err := s.store.Orders().ListOrders(ctx, filter)
	if err != nil {
		return domain.OrderPage{}, err
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	return domain.OrderPage{Orders: orders, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// GetOrderStats summarises the buyer's orders, or every order when buyerID
// is nil. Results are cached under the scope's current generation, so a
// mutation committed while they are computed retires them.
func (s *OrderService) GetOrderStats(ctx context.Context, buyerID *uuid.UUID) (domain.OrderStats, error) {
	scope := uuid.Nil
	if buyerID != nil {
		scope = *buyerID
	}

	var key string
	if s.cache != nil {
		key = s.statsKey(ctx, scope)
		if stats, ok := s.cachedStats(ctx, key); ok {
			return stats, nil
		}
	}

	count, spent, err := s.store.Orders().OrderTotals(ctx, scope)
	if err != nil {
		return domain.OrderStats{}, err
	}

	recent, _, err := s.store.Orders().ListOrders(ctx, domain.OrderFilter{
		BuyerID:   scope,
		SortBy:    domain.SortByOrderDate,
		SortOrder: domain.SortDesc,
		Page:      1,
		Limit:     recentOrdersLimit,
	})
	if err != nil {
		return domain.OrderStats{}, err
	}
	if recent == nil {
		recent = []*domain.Order{}
	}

	average := decimal.Zero
	if count > 0 {
		average = domain.RoundCurrency(spent.Div(decimal.NewFromInt(int64(count))))
	}

	stats := domain.OrderStats{
		TotalOrders:       count,
		TotalSpent:        spent,
		AverageOrderValue: average,
		RecentOrders:      recent,
	}
	s.storeStats(ctx, key, stats)
	return stats, nil
}

func statsScope(buyerID uuid.UUID) string {
	if buyerID == uuid.Nil {
		return "all"
	}
	return buyerID.String()
}

// statsKey names the stats entry for the scope's current generation. The
// generation is read before the stats are computed.
func (s *OrderService) statsKey(ctx context.Context, buyerID uuid.UUID) string {
	scope := statsScope(buyerID)
	gen, err := s.cache.Get(ctx, s.cache.GenerateKey(statsGenOperation, scope))
	if err != nil {
		s.logger.Warn("order stats generation read failed", zap.String("scope", scope), zap.Error(err))
	}
	if gen == "" {
		gen = "0"
	}
	return s.cache.GenerateKey(statsCacheOperation, scope+":"+gen)
}

func (s *OrderService) cachedStats(ctx context.Context, key string) (domain.OrderStats, bool) {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("order stats cache read failed", zap.String("key", key), zap.Error(err))
		return domain.OrderStats{}, false
	}
	if raw == "" {
		return domain.OrderStats{}, false
	}

	var stats domain.OrderStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return domain.OrderStats{}, false
	}
	return stats, true
}

func (s *OrderService) storeStats(ctx context.Context, key string, stats domain.OrderStats) {
	if s.cache == nil || key == "" {
		return
	}

	body, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, body, s.config.StatsTTL); err != nil {
		s.logger.Warn("order stats cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// invalidateStats moves the buyer's and the global scope to a new
// generation. Entries of earlier generations are never read again and
// expire with their TTL.
func (s *OrderService) invalidateStats(ctx context.Context, buyerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	gen := uuid.New().String()
	for _, scope := range []string{statsScope(buyerID), statsScope(uuid.Nil)} {
		if err := s.cache.Set(ctx, s.cache.GenerateKey(statsGenOperation, scope), gen, 0); err != nil {
			s.logger.Warn("order stats cache invalidation failed", zap.String("scope", scope), zap.Error(err))
		}
	}
}
