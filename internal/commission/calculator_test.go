package commission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/o4o-platform/order-service/internal/cache"
	"github.com/o4o-platform/order-service/internal/domain"
)

type stubSource struct {
	policies []domain.CommissionPolicy
	err      error
	calls    int
}

func (s *stubSource) FindPolicies(context.Context, uuid.UUID, uuid.UUID) ([]domain.CommissionPolicy, error) {
	s.calls++
	return s.policies, s.err
}

var platform = domain.CommissionPolicy{Type: domain.CommissionTypeRate, Value: decimal.NewFromInt(3)}

func rate(source domain.CommissionSource, seller, product uuid.UUID, value int64) domain.CommissionPolicy {
	return domain.CommissionPolicy{
		ID:        uuid.New(),
		Source:    source,
		SellerID:  seller,
		ProductID: product,
		Type:      domain.CommissionTypeRate,
		Value:     decimal.NewFromInt(value),
	}
}

func TestResolvePrecedence(t *testing.T) {
	seller, product, other := uuid.New(), uuid.New(), uuid.New()

	sellerProduct := rate(domain.CommissionSourceSeller, seller, product, 12)
	sellerWide := rate(domain.CommissionSourceSeller, seller, uuid.Nil, 10)
	productTier := rate(domain.CommissionSourceProduct, uuid.Nil, product, 8)
	otherSeller := rate(domain.CommissionSourceSeller, other, product, 50)

	tests := []struct {
		name     string
		policies []domain.CommissionPolicy
		want     decimal.Decimal
		source   domain.CommissionSource
	}{
		{"seller product override wins", []domain.CommissionPolicy{productTier, sellerWide, sellerProduct}, sellerProduct.Value, domain.CommissionSourceSeller},
		{"seller wide beats product", []domain.CommissionPolicy{productTier, sellerWide}, sellerWide.Value, domain.CommissionSourceSeller},
		{"product tier", []domain.CommissionPolicy{productTier, otherSeller}, productTier.Value, domain.CommissionSourceProduct},
		{"platform default", nil, platform.Value, domain.CommissionSourcePlatform},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.policies, seller, product, platform)
			assert.True(t, tt.want.Equal(got.Value), "got %s", got.Value)
			assert.Equal(t, tt.source, Compute(got, decimal.NewFromInt(100), 1).Source)
		})
	}
}

func TestComputeRateAndFixed(t *testing.T) {
	r := Compute(rate(domain.CommissionSourceSeller, uuid.New(), uuid.Nil, 10), decimal.NewFromInt(30000), 2)
	assert.Equal(t, domain.CommissionTypeRate, r.Type)
	assert.True(t, r.Amount.Equal(decimal.NewFromInt(6000)))

	fixed := domain.CommissionPolicy{Source: domain.CommissionSourceProduct, Type: domain.CommissionTypeFixed, Value: decimal.RequireFromString("250.5")}
	r = Compute(fixed, decimal.NewFromInt(30000), 3)
	assert.Equal(t, domain.CommissionTypeFixed, r.Type)
	assert.True(t, r.Amount.Equal(decimal.NewFromInt(752)), "751.5 rounds half up, got %s", r.Amount)

	r = Compute(rate(domain.CommissionSourceProduct, uuid.Nil, uuid.New(), 7), decimal.NewFromInt(15), 1)
	assert.True(t, r.Amount.Equal(decimal.NewFromInt(1)), "1.05 rounds to 1, got %s", r.Amount)
}

func TestCalculateForItemIsDeterministic(t *testing.T) {
	seller, product := uuid.New(), uuid.New()
	source := &stubSource{policies: []domain.CommissionPolicy{rate(domain.CommissionSourceSeller, seller, uuid.Nil, 10)}}
	calc := NewCalculator(source, platform, zap.NewNop())

	first, err := calc.CalculateForItem(context.Background(), product, seller, decimal.NewFromInt(30000), 2)
	require.NoError(t, err)
	second, err := calc.CalculateForItem(context.Background(), product, seller, decimal.NewFromInt(30000), 2)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(6000)))
}

func TestCalculateForItemLookupError(t *testing.T) {
	calc := NewCalculator(&stubSource{err: errors.New("db down")}, platform, zap.NewNop())

	_, err := calc.CalculateForItem(context.Background(), uuid.New(), uuid.New(), decimal.NewFromInt(1), 1)
	assert.ErrorContains(t, err, "db down")
}

func TestCachedPolicySource(t *testing.T) {
	seller, product := uuid.New(), uuid.New()
	source := &stubSource{policies: []domain.CommissionPolicy{rate(domain.CommissionSourceProduct, uuid.Nil, product, 8)}}
	cached := NewCachedPolicySource(source, cache.NewMemoryCache("order"), time.Minute, zap.NewNop())

	for i := 0; i < 3; i++ {
		policies, err := cached.FindPolicies(context.Background(), seller, product)
		require.NoError(t, err)
		require.Len(t, policies, 1)
		assert.True(t, policies[0].Value.Equal(decimal.NewFromInt(8)))
	}
	assert.Equal(t, 1, source.calls)
}
