// Package repository persists orders and the records order placement reads.
//
// Lookups return (nil, nil) when the record is absent; callers decide which
// domain error that is.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/o4o-platform/order-service/internal/domain"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	UpdateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	// GetOrderForUpdate locks the order row until the surrounding transaction ends.
	GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	// ListOrders expects a normalized filter and returns one page plus the
	// total match count.
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, int, error)
	// OrderTotals counts orders and sums their totals. uuid.Nil means all buyers.
	OrderTotals(ctx context.Context, buyerID uuid.UUID) (int, decimal.Decimal, error)
}

type CartRepository interface {
	// GetCartForUpdate loads and locks the buyer's cart with its items.
	GetCartForUpdate(ctx context.Context, buyerID uuid.UUID) (*domain.Cart, error)
	DeleteCart(ctx context.Context, cartID uuid.UUID) error
}

type UserRepository interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

type ProductRepository interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error)
}

type PartnerRepository interface {
	FindActiveByReferralCode(ctx context.Context, code string) (*domain.Partner, error)
	IncrementClicks(ctx context.Context, partnerID uuid.UUID, at time.Time) error
	AddConversion(ctx context.Context, partnerID uuid.UUID, revenue, commission decimal.Decimal, at time.Time) error
}

type PartnerCommissionRepository interface {
	CreateCommissions(ctx context.Context, commissions []*domain.PartnerCommission) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.PartnerCommission, error)
	// ConfirmPending and CancelPending touch only pending entries and return
	// how many changed.
	ConfirmPending(ctx context.Context, orderID uuid.UUID, at time.Time) (int, error)
	CancelPending(ctx context.Context, orderID uuid.UUID, reason string, at time.Time) (int, error)
}

type OrderEventRepository interface {
	AppendEvent(ctx context.Context, event *domain.OrderEvent) error
	ListEvents(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderEvent, error)
}

type CommissionPolicyRepository interface {
	FindPolicies(ctx context.Context, sellerID, productID uuid.UUID) ([]domain.CommissionPolicy, error)
}

// Store groups the repositories. Repositories obtained from the Store passed
// to a WithTx callback share that transaction.
type Store interface {
	Orders() OrderRepository
	Carts() CartRepository
	Users() UserRepository
	Products() ProductRepository
	Partners() PartnerRepository
	Commissions() PartnerCommissionRepository
	Events() OrderEventRepository
	Policies() CommissionPolicyRepository

	// WithTx runs fn in one transaction, committing when fn returns nil.
	// Calling WithTx on a transactional Store reuses the transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
