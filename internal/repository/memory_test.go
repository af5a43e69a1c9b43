package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/o4o-platform/order-service/internal/domain"
)

func testOrder(buyer uuid.UUID, number string) *domain.Order {
	items := []domain.OrderItem{domain.OrderItemInput{
		ProductID: uuid.New(),
		Quantity:  1,
		UnitPrice: decimal.NewFromInt(1000),
	}.ToOrderItem()}
	now := time.Now()
	return domain.NewOrder(number, domain.User{ID: buyer}, items,
		domain.CalculateSummary(items, domain.DefaultPricingPolicy(), nil), now)
}

func TestMemoryWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	buyer := uuid.New()
	store.SaveCart(domain.Cart{ID: uuid.New(), BuyerID: buyer, Items: []domain.CartItem{{ID: uuid.New(), Quantity: 1}}})

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx Store) error {
		require.NoError(t, tx.Orders().CreateOrder(ctx, testOrder(buyer, "ORD1")))
		cart, err := tx.Carts().GetCartForUpdate(ctx, buyer)
		require.NoError(t, err)
		require.NoError(t, tx.Carts().DeleteCart(ctx, cart.ID))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 0, store.OrderCount())
	cart, err := store.Carts().GetCartForUpdate(ctx, buyer)
	require.NoError(t, err)
	assert.False(t, cart.IsEmpty())
}

func TestMemoryWithTxHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewMemoryStore()

	err := store.WithTx(ctx, func(tx Store) error {
		require.NoError(t, tx.Orders().CreateOrder(ctx, testOrder(uuid.New(), "ORD1")))
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.OrderCount())
}

func TestMemoryNestedTxJoins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.WithTx(ctx, func(tx Store) error {
		return tx.WithTx(ctx, func(inner Store) error {
			return inner.Orders().CreateOrder(ctx, testOrder(uuid.New(), "ORD1"))
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.OrderCount())
}

func TestMemoryDuplicateOrderNumber(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Orders().CreateOrder(ctx, testOrder(uuid.New(), "ORD1")))
	err := store.Orders().CreateOrder(ctx, testOrder(uuid.New(), "ORD1"))
	assert.ErrorIs(t, err, domain.ErrDuplicateOrderNumber)
}

func TestMemoryListOrdersPages(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	buyer := uuid.New()

	for i := 0; i < 5; i++ {
		o := testOrder(buyer, uuid.NewString())
		o.OrderDate = o.OrderDate.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Orders().CreateOrder(ctx, o))
	}
	require.NoError(t, store.Orders().CreateOrder(ctx, testOrder(uuid.New(), "other")))

	f := domain.OrderFilter{BuyerID: buyer, Page: 2, Limit: 2}.Normalize(10)
	orders, total, err := store.Orders().ListOrders(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, orders, 2)
	assert.True(t, orders[0].OrderDate.After(orders[1].OrderDate))

	f.Page = 4
	orders, _, err = store.Orders().ListOrders(ctx, f)
	require.NoError(t, err)
	assert.Empty(t, orders)

	count, spent, err := store.Orders().OrderTotals(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.True(t, spent.Equal(decimal.NewFromInt(5*4100)))
}

func TestMemoryCommissionTransitionsOnlyPending(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	orderID := uuid.New()
	now := time.Now()

	confirmed := &domain.PartnerCommission{ID: uuid.New(), OrderID: orderID, Status: domain.PartnerCommissionConfirmed}
	pending := &domain.PartnerCommission{ID: uuid.New(), OrderID: orderID, Status: domain.PartnerCommissionPending}
	require.NoError(t, store.Commissions().CreateCommissions(ctx, []*domain.PartnerCommission{confirmed, pending}))

	n, err := store.Commissions().CancelPending(ctx, orderID, "refund", now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := store.Commissions().ListByOrder(ctx, orderID)
	require.NoError(t, err)
	statuses := map[uuid.UUID]domain.PartnerCommissionStatus{}
	for _, c := range list {
		statuses[c.ID] = c.Status
	}
	assert.Equal(t, domain.PartnerCommissionConfirmed, statuses[confirmed.ID])
	assert.Equal(t, domain.PartnerCommissionCancelled, statuses[pending.ID])
}

func TestMemoryPolicyLookup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seller, product := uuid.New(), uuid.New()

	store.SavePolicy(domain.CommissionPolicy{Source: domain.CommissionSourceSeller, SellerID: seller, Type: domain.CommissionTypeRate, Value: decimal.NewFromInt(10)})
	store.SavePolicy(domain.CommissionPolicy{Source: domain.CommissionSourceSeller, SellerID: uuid.New(), Type: domain.CommissionTypeRate, Value: decimal.NewFromInt(20)})
	store.SavePolicy(domain.CommissionPolicy{Source: domain.CommissionSourceProduct, ProductID: product, Type: domain.CommissionTypeFixed, Value: decimal.NewFromInt(300)})

	policies, err := store.Policies().FindPolicies(ctx, seller, product)
	require.NoError(t, err)
	assert.Len(t, policies, 2)
}
