package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/o4o-platform/order-service/internal/cache"
	"github.com/o4o-platform/order-service/internal/commission"
	"github.com/o4o-platform/order-service/internal/domain"
	"github.com/o4o-platform/order-service/internal/repository"
	"github.com/o4o-platform/order-service/shared/events"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.EventType
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

var errPublish = errors.New("broker unavailable")

type fixture struct {
	ctx       context.Context
	store     *repository.MemoryStore
	cache     cache.Cache
	publisher *recordingPublisher
	orders    *OrderService
	partners  *PartnerService
	buyer     domain.User
	seller    uuid.UUID
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repository.NewMemoryStore()
	publisher := &recordingPublisher{}
	c := cache.NewMemoryCache("order")
	logger := zap.NewNop()

	platform := domain.CommissionPolicy{Type: domain.CommissionTypeRate, Value: decimal.NewFromInt(3)}
	calc := commission.NewCalculator(store.Policies(), platform, logger)

	f := &fixture{
		ctx:       context.Background(),
		store:     store,
		cache:     c,
		publisher: publisher,
		orders: NewOrderService(store, calc, publisher, c, OrderServiceConfig{
			Pricing:  domain.DefaultPricingPolicy(),
			StatsTTL: time.Minute,
		}, logger),
		partners: NewPartnerService(store, publisher, decimal.NewFromInt(5), logger),
		buyer:    domain.User{ID: uuid.New(), Name: "Kim Minji", Email: "minji@example.com", Role: "customer"},
		seller:   uuid.New(),
		now:      time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
	}
	f.orders.now = func() time.Time { return f.now }
	f.partners.now = func() time.Time { return f.now }

	store.SaveUser(f.buyer)
	store.SavePolicy(domain.CommissionPolicy{
		ID:       uuid.New(),
		Source:   domain.CommissionSourceSeller,
		SellerID: f.seller,
		Type:     domain.CommissionTypeRate,
		Value:    decimal.NewFromInt(10),
	})
	return f
}

func (f *fixture) exampleRequest(productP, productQ uuid.UUID) domain.CreateOrderRequest {
	return domain.CreateOrderRequest{
		Items: []domain.OrderItemInput{
			{ProductID: productP, ProductName: "P", Quantity: 2, UnitPrice: decimal.NewFromInt(30000), SellerID: f.seller, SellerName: "S"},
			{ProductID: productQ, ProductName: "Q", Quantity: 1, UnitPrice: decimal.NewFromInt(25000)},
		},
		OrderDetails: domain.OrderDetails{
			ShippingAddress: domain.Address{RecipientName: "Kim Minji", Phone: "010-0000-0000", ZipCode: "04524", Address: "Seoul"},
			PaymentMethod:   domain.PaymentMethodCard,
		},
	}
}

func (f *fixture) placeOrder(t *testing.T) *domain.Order {
	t.Helper()
	order, err := f.orders.CreateOrder(f.ctx, f.buyer.ID, f.exampleRequest(uuid.New(), uuid.New()))
	require.NoError(t, err)
	return order
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *domain.Order {
	t.Helper()
	order, err := f.orders.GetOrderByID(f.ctx, id, nil)
	require.NoError(t, err)
	return order
}

func (f *fixture) seedCart(items ...domain.CartItem) domain.Cart {
	cart := domain.Cart{ID: uuid.New(), BuyerID: f.buyer.ID, Items: items}
	f.store.SaveCart(cart)
	return cart
}

func cartItem(price int64, quantity int, seller uuid.UUID) domain.CartItem {
	return domain.CartItem{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		Quantity:  quantity,
		UnitPrice: decimal.NewFromInt(price),
		SellerID:  seller,
		Product:   domain.ProductSnapshot{Name: "Tumbler", SKU: "TMB-1", SupplierID: uuid.New(), SupplierName: "Acme"},
	}
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
