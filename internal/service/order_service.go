// Package service holds the order placement, lifecycle and partner
// commission operations.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/o4o-platform/order-service/internal/cache"
	"github.com/o4o-platform/order-service/internal/commission"
	"github.com/o4o-platform/order-service/internal/domain"
	"github.com/o4o-platform/order-service/internal/repository"
	apperrors "github.com/o4o-platform/order-service/shared/errors"
	"github.com/o4o-platform/order-service/shared/events"
)

type CommissionCalculator interface {
	CalculateForItem(ctx context.Context, productID, sellerID uuid.UUID, unitPrice decimal.Decimal, quantity int) (commission.Result, error)
}

type OrderServiceConfig struct {
	Pricing   domain.PricingPolicy
	Discounts domain.DiscountPolicy
	StatsTTL  time.Duration
}

type OrderService struct {
	store       repository.Store
	commissions CommissionCalculator
	notifier    notifier
	cache       cache.Cache
	config      OrderServiceConfig
	logger      *zap.Logger
	now         func() time.Time
	orderNumber func(time.Time) string
}

// NewOrderService wires the service. publisher and c may be nil to disable
// event publishing and statistics caching.
func NewOrderService(store repository.Store, commissions CommissionCalculator, publisher EventPublisher, c cache.Cache, config OrderServiceConfig, logger *zap.Logger) *OrderService {
	if config.Discounts == nil {
		config.Discounts = domain.NoDiscount{}
	}
	return &OrderService{
		store:       store,
		commissions: commissions,
		notifier:    notifier{publisher: publisher, logger: logger},
		cache:       c,
		config:      config,
		logger:      logger,
		now:         time.Now,
		orderNumber: generateOrderNumber,
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, buyerID uuid.UUID, req domain.CreateOrderRequest) (*domain.Order, error) {
	var order *domain.Order
	err := s.withOrderNumberRetry(ctx, func() error {
		return s.store.WithTx(ctx, func(tx repository.Store) error {
			var err error
			order, err = s.placeOrder(ctx, tx, buyerID, req.Items, req.OrderDetails)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterCreate(ctx, order)
	return order, nil
}

// CreateOrderFromCart places an order from the buyer's cart and deletes the
// cart in the same transaction.
func (s *OrderService) CreateOrderFromCart(ctx context.Context, buyerID uuid.UUID, req domain.CreateOrderFromCartRequest) (*domain.Order, error) {
	var order *domain.Order
	err := s.withOrderNumberRetry(ctx, func() error {
		return s.store.WithTx(ctx, func(tx repository.Store) error {
			cart, err := tx.Carts().GetCartForUpdate(ctx, buyerID)
			if err != nil {
				return err
			}
			if cart.IsEmpty() || (req.CartID != uuid.Nil && cart.ID != req.CartID) {
				return domain.ErrEmptyCart
			}

			order, err = s.placeOrder(ctx, tx, buyerID, cart.OrderItemInputs(), req.OrderDetails)
			if err != nil {
				return err
			}

			return tx.Carts().DeleteCart(ctx, cart.ID)
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterCreate(ctx, order)
	return order, nil
}

func (s *OrderService) placeOrder(ctx context.Context, tx repository.Store, buyerID uuid.UUID, inputs []domain.OrderItemInput, details domain.OrderDetails) (*domain.Order, error) {
	buyer, err := tx.Users().GetUserByID(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if buyer == nil {
		return nil, apperrors.Wrap(domain.ErrBuyerNotFound.Code, domain.ErrBuyerNotFound.Message,
			fmt.Errorf("buyer %s", buyerID))
	}

	if len(inputs) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	items := make([]domain.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		if err := in.Validate(); err != nil {
			return nil, err
		}

		item := in.ToOrderItem()
		if item.HasSeller() {
			result, err := s.commissions.CalculateForItem(ctx, item.ProductID, item.SellerID, item.UnitPrice, item.Quantity)
			if err != nil {
				return nil, err
			}
			rate, amount := result.Rate, result.Amount
			item.CommissionType = result.Type
			item.CommissionRate = &rate
			item.CommissionAmount = &amount
			item.CommissionSource = result.Source
		} else {
			s.logger.Warn("order item has no seller, skipping commission",
				zap.String("productId", item.ProductID.String()),
				zap.String("buyerId", buyerID.String()))
		}
		items = append(items, item)
	}

	now := s.now()
	summary := domain.CalculateSummary(items, s.config.Pricing, s.config.Discounts)

	order := domain.NewOrder(s.orderNumber(now), *buyer, items, summary, now)
	order.BillingAddress = details.BillingAddress
	order.ShippingAddress = details.ShippingAddress
	order.PaymentMethod = details.PaymentMethod
	order.Notes = details.Notes
	order.CustomerNotes = details.CustomerNotes

	if err := tx.Orders().CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	event := domain.NewOrderEvent(order.ID, domain.OrderEventCreated,
		fmt.Sprintf("Order %s created", order.OrderNumber),
		domain.Actor{ID: buyer.ID, Name: buyer.Name, Role: buyer.Role, Source: "customer"}, now).
		WithStatus("", string(order.Status)).
		WithPayload(map[string]interface{}{"total": summary.Total, "item_count": len(items)})
	if err := tx.Events().AppendEvent(ctx, event); err != nil {
		return nil, err
	}

	return order, nil
}

func (s *OrderService) afterCreate(ctx context.Context, order *domain.Order) {
	s.logger.Info("order created",
		zap.String("orderId", order.ID.String()),
		zap.String("orderNumber", order.OrderNumber),
		zap.String("buyerId", order.BuyerID.String()),
		zap.String("total", order.Summary.Total.String()))

	s.notifier.publish(ctx, order.ID, events.OrderCreatedEvent, events.OrderCreatedPayload{
		OrderNumber: order.OrderNumber,
		BuyerID:     order.BuyerID,
		Total:       order.Summary.Total,
		ItemCount:   len(order.Items),
		SellerIDs:   uuidStrings(order.SellerIDs()),
		SupplierIDs: uuidStrings(order.SupplierIDs()),
	})
	s.invalidateStats(ctx, order.BuyerID)
}

// UpdateOrderStatus moves the order to status. Re-applying the current
// status changes nothing and records no event.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus, opts domain.StatusChangeOptions) (*domain.Order, error) {
	var (
		order   *domain.Order
		prev    domain.OrderStatus
		changed bool
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		order, err = s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		now := s.now()
		prev = order.Status
		changed, err = order.TransitionTo(status, now)
		if err != nil || !changed {
			return err
		}

		if err := tx.Orders().UpdateOrder(ctx, order); err != nil {
			return err
		}

		message := opts.Message
		if message == "" {
			message = fmt.Sprintf("Order status changed from %s to %s", prev, status)
		}
		event := domain.NewOrderEvent(order.ID, domain.OrderEventStatusChange, message, opts.Actor, now).
			WithStatus(string(prev), string(status))
		return tx.Events().AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.afterStatusChange(ctx, order, prev)
		if status == domain.OrderStatusCancelled {
			s.notifier.publish(ctx, order.ID, events.OrderCancelledEvent, events.OrderCancelledPayload{
				OrderNumber: order.OrderNumber,
				Reason:      opts.Message,
			})
		}
	}
	return order, nil
}

// UpdatePaymentStatus applies a payment transition. Completing payment on a
// pending order confirms it.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, paymentStatus domain.PaymentStatus) (*domain.Order, error) {
	var (
		order       *domain.Order
		prev        domain.OrderStatus
		changed     bool
		prevPayment domain.PaymentStatus
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		order, err = s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		now := s.now()
		prev, prevPayment = order.Status, order.PaymentStatus
		changed, err = order.ApplyPaymentStatus(paymentStatus, now)
		if err != nil || !changed {
			return err
		}

		if err := tx.Orders().UpdateOrder(ctx, order); err != nil {
			return err
		}

		event := domain.NewOrderEvent(order.ID, domain.OrderEventPaymentUpdate,
			fmt.Sprintf("Payment status changed from %s to %s", prevPayment, paymentStatus),
			domain.Actor{Source: "payment"}, now).
			WithStatus(string(prevPayment), string(paymentStatus))
		return tx.Events().AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("order payment status updated",
			zap.String("orderId", order.ID.String()),
			zap.String("paymentStatus", string(paymentStatus)))
		if order.Status != prev {
			s.afterStatusChange(ctx, order, prev)
		} else {
			s.invalidateStats(ctx, order.BuyerID)
		}
	}
	return order, nil
}

func (s *OrderService) CancelOrder(ctx context.Context, orderID uuid.UUID, reason string) (*domain.Order, error) {
	var prev domain.OrderStatus
	order, err := s.mutate(ctx, orderID, func(order *domain.Order, now time.Time) (*domain.OrderEvent, error) {
		prev = order.Status
		if err := order.Cancel(reason, now); err != nil {
			return nil, err
		}
		message := "Order cancelled"
		if reason != "" {
			message = "Order cancelled: " + reason
		}
		return domain.NewOrderEvent(order.ID, domain.OrderEventCancelled, message, domain.Actor{}, now).
			WithStatus(string(prev), string(order.Status)), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled", zap.String("orderId", order.ID.String()), zap.String("reason", reason))
	s.afterStatusChange(ctx, order, prev)
	s.notifier.publish(ctx, order.ID, events.OrderCancelledEvent, events.OrderCancelledPayload{
		OrderNumber: order.OrderNumber,
		Reason:      reason,
	})
	return order, nil
}

// RequestRefund refunds amount, or the full total when amount is nil.
func (s *OrderService) RequestRefund(ctx context.Context, orderID uuid.UUID, reason string, amount *decimal.Decimal) (*domain.Order, error) {
	order, err := s.mutate(ctx, orderID, func(order *domain.Order, now time.Time) (*domain.OrderEvent, error) {
		prevPayment := order.PaymentStatus
		if err := order.Refund(reason, amount, now); err != nil {
			return nil, err
		}
		return domain.NewOrderEvent(order.ID, domain.OrderEventRefundRequested,
			fmt.Sprintf("Refund of %s requested", order.RefundAmount.String()), domain.Actor{}, now).
			WithStatus(string(prevPayment), string(order.PaymentStatus)).
			WithPayload(map[string]interface{}{"amount": *order.RefundAmount, "reason": reason}), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order refund requested",
		zap.String("orderId", order.ID.String()),
		zap.String("amount", order.RefundAmount.String()))
	s.notifier.publish(ctx, order.ID, events.OrderRefundedEvent, events.OrderRefundedPayload{
		OrderNumber:  order.OrderNumber,
		RefundAmount: *order.RefundAmount,
		Reason:       reason,
	})
	s.invalidateStats(ctx, order.BuyerID)
	return order, nil
}

// UpdateOrderShipping sets carrier and tracking fields present in info.
func (s *OrderService) UpdateOrderShipping(ctx context.Context, orderID uuid.UUID, info domain.ShippingInfo, opts domain.StatusChangeOptions) (*domain.Order, error) {
	order, err := s.mutate(ctx, orderID, func(order *domain.Order, now time.Time) (*domain.OrderEvent, error) {
		order.ApplyShipping(info, now)
		message := opts.Message
		if message == "" {
			message = "Shipping information updated"
		}
		return domain.NewOrderEvent(order.ID, domain.OrderEventShippingUpdate, message, opts.Actor, now).
			WithPayload(map[string]string{
				"carrier":         order.ShippingCarrier,
				"tracking_number": order.TrackingNumber,
				"tracking_url":    order.TrackingURL,
			}), nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateStats(ctx, order.BuyerID)
	return order, nil
}

// GetOrderByID loads an order. A non-nil buyerID must own the order;
// otherwise the order is reported as not found.
func (s *OrderService) GetOrderByID(ctx context.Context, orderID uuid.UUID, buyerID *uuid.UUID) (*domain.Order, error) {
	order, err := s.store.Orders().GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if buyerID != nil && order.BuyerID != *buyerID {
		return nil, apperrors.Wrap(domain.ErrOrderNotFound.Code, domain.ErrOrderNotFound.Message, domain.ErrOrderOwnership)
	}
	return order, nil
}

func (s *OrderService) GetOrderWithEvents(ctx context.Context, orderID uuid.UUID, buyerID *uuid.UUID) (*domain.Order, []*domain.OrderEvent, error) {
	order, err := s.GetOrderByID(ctx, orderID, buyerID)
	if err != nil {
		return nil, nil, err
	}

	orderEvents, err := s.store.Events().ListEvents(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, orderEvents, nil
}

// mutate locks the order, applies fn and persists the order with the event fn returns.
func (s *OrderService) mutate(ctx context.Context, orderID uuid.UUID, fn func(order *domain.Order, now time.Time) (*domain.OrderEvent, error)) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		order, err = s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		event, err := fn(order, s.now())
		if err != nil {
			return err
		}

		if err := tx.Orders().UpdateOrder(ctx, order); err != nil {
			return err
		}
		return tx.Events().AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) lockOrder(ctx context.Context, tx repository.Store, orderID uuid.UUID) (*domain.Order, error) {
	order, err := tx.Orders().GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) afterStatusChange(ctx context.Context, order *domain.Order, prev domain.OrderStatus) {
	s.logger.Info("order status changed",
		zap.String("orderId", order.ID.String()),
		zap.String("prevStatus", string(prev)),
		zap.String("newStatus", string(order.Status)))

	s.notifier.publish(ctx, order.ID, events.OrderStatusChangedEvent, events.OrderStatusChangedPayload{
		OrderNumber: order.OrderNumber,
		PrevStatus:  string(prev),
		NewStatus:   string(order.Status),
	})
	s.invalidateStats(ctx, order.BuyerID)
}

const (
	orderNumberAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// orderNumberByteLimit is the largest multiple of the alphabet size
	// that fits in a byte; bytes at or above it are redrawn.
	orderNumberByteLimit = 252
	orderNumberAttempts  = 2
)

// withOrderNumberRetry reruns place once with a fresh order number when the
// generated one is already taken.
func (s *OrderService) withOrderNumberRetry(ctx context.Context, place func() error) error {
	var err error
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		err = place()
		if !errors.Is(err, domain.ErrDuplicateOrderNumber) || ctx.Err() != nil {
			return err
		}
		s.logger.Warn("order number collision", zap.Int("attempt", attempt))
	}
	return err
}

// generateOrderNumber yields ORD + YYYYMMDD + last six digits of the unix
// millis + four random [A-Z0-9].
func generateOrderNumber(now time.Time) string {
	millis := strconv.FormatInt(now.UnixMilli(), 10)
	if len(millis) > 6 {
		millis = millis[len(millis)-6:]
	}
	return "ORD" + now.UTC().Format("20060102") + millis + randomSuffix(4)
}

func randomSuffix(n int) string {
	suffix := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(suffix) < n {
		rand.Read(buf)
		for _, b := range buf {
			if b >= orderNumberByteLimit {
				continue
			}
			suffix = append(suffix, orderNumberAlphabet[int(b)%len(orderNumberAlphabet)])
			if len(suffix) == n {
				break
			}
		}
	}
	return string(suffix)
}

func uuidStrings(ids []uuid.UUID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
