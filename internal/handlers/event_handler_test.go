package handlers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/o4o-platform/order-service/internal/domain"
	"github.com/o4o-platform/order-service/shared/events"
)

func TestRoutingKeys(t *testing.T) {
	h := NewEventHandler(nil, nil, zap.NewNop())
	assert.Equal(t, []string{
		"saga.*.payment.processed",
		"saga.*.payment.failed",
		"saga.*.order.return_window_elapsed",
		"saga.order-service.order.cancelled",
		"saga.order-service.order.refunded",
	}, h.RoutingKeys())
}

func TestHandlePaymentAndLedgerEvents(t *testing.T) {
	s := newTestServer(t)
	h := NewEventHandler(s.orders, s.partners, zap.NewNop())
	ctx := context.Background()

	order := s.createOrder(t, "MINJI10")

	require.NoError(t, h.Handle(ctx, events.Event{EventType: events.PaymentProcessedEvent, OrderID: order.ID}))
	reloaded, err := s.orders.GetOrderByID(ctx, order.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, reloaded.PaymentStatus)
	assert.Equal(t, domain.OrderStatusConfirmed, reloaded.Status)

	// A late failure cannot undo a completed payment; the event is dropped.
	require.NoError(t, h.Handle(ctx, events.Event{EventType: events.PaymentFailedEvent, OrderID: order.ID}))

	require.NoError(t, h.Handle(ctx, events.Event{EventType: events.ReturnWindowElapsedEvent, OrderID: order.ID}))
	require.NoError(t, h.Handle(ctx, events.Event{
		EventType: events.OrderRefundedEvent,
		OrderID:   order.ID,
		Payload:   map[string]interface{}{"reason": "damaged"},
	}))

	entries, err := s.partners.GetOrderCommissions(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, domain.PartnerCommissionConfirmed, e.Status, "confirmed entries are not clawed back")
	}
}

func TestHandleDropsUnknownOrders(t *testing.T) {
	s := newTestServer(t)
	h := NewEventHandler(s.orders, s.partners, zap.NewNop())

	err := h.Handle(context.Background(), events.Event{EventType: events.PaymentProcessedEvent, OrderID: uuid.New()})
	assert.NoError(t, err)

	err = h.Handle(context.Background(), events.Event{EventType: "inventory.reserved", OrderID: uuid.New()})
	assert.NoError(t, err)
}
