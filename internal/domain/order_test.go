package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/o4o-platform/order-service/shared/errors"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestOrder(status OrderStatus, payment PaymentStatus) *Order {
	items := []OrderItem{item(30000, 2)}
	o := NewOrder("ORD20240315123456ABCD", User{ID: uuid.New(), Name: "Kim"}, items,
		CalculateSummary(items, DefaultPricingPolicy(), nil), testNow)
	o.Status = status
	o.PaymentStatus = payment
	return o
}

func TestCancelGuard(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing} {
		o := newTestOrder(status, PaymentStatusPending)
		require.NoError(t, o.Cancel("changed mind", testNow), string(status))
		assert.Equal(t, OrderStatusCancelled, o.Status)
		assert.Equal(t, "changed mind", o.CancellationReason)
		require.NotNil(t, o.CancelledDate)
	}

	for _, status := range []OrderStatus{OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned} {
		o := newTestOrder(status, PaymentStatusPending)
		err := o.Cancel("late", testNow)
		require.Error(t, err, string(status))
		assert.True(t, errors.Is(err, ErrOrderNotCancellable))
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidStateTransition))
		assert.Equal(t, status, o.Status)
		assert.Nil(t, o.CancelledDate)
	}
}

func TestRefundDefaultsToTotal(t *testing.T) {
	o := newTestOrder(OrderStatusDelivered, PaymentStatusCompleted)

	require.NoError(t, o.Refund("damaged", nil, testNow))
	assert.Equal(t, PaymentStatusRefunded, o.PaymentStatus)
	require.NotNil(t, o.RefundAmount)
	assert.True(t, o.RefundAmount.Equal(o.Summary.Total))
	assert.Equal(t, "damaged", o.ReturnReason)
	assert.NotNil(t, o.RefundDate)
}

func TestRefundGuards(t *testing.T) {
	o := newTestOrder(OrderStatusConfirmed, PaymentStatusPending)
	err := o.Refund("x", nil, testNow)
	assert.True(t, errors.Is(err, ErrOrderNotRefundable))

	o = newTestOrder(OrderStatusConfirmed, PaymentStatusCompleted)
	tooMuch := o.Summary.Total.Add(decimal.NewFromInt(1))
	err = o.Refund("x", &tooMuch, testNow)
	assert.True(t, errors.Is(err, ErrInvalidRefundAmount))

	zero := decimal.Zero
	err = o.Refund("x", &zero, testNow)
	assert.True(t, errors.Is(err, ErrInvalidRefundAmount))
	assert.Equal(t, PaymentStatusCompleted, o.PaymentStatus)

	partial := decimal.NewFromInt(1000)
	require.NoError(t, o.Refund("x", &partial, testNow))
	assert.True(t, o.RefundAmount.Equal(partial))
	assert.True(t, o.Summary.Total.Equal(decimal.NewFromInt(66000)), "summary is never recomputed")
}

func TestTransitionToIsIdempotent(t *testing.T) {
	o := newTestOrder(OrderStatusPending, PaymentStatusPending)

	changed, err := o.TransitionTo(OrderStatusConfirmed, testNow)
	require.NoError(t, err)
	assert.True(t, changed)
	first := *o.ConfirmedDate

	changed, err = o.TransitionTo(OrderStatusConfirmed, testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, first, *o.ConfirmedDate)
}

func TestTransitionGuards(t *testing.T) {
	o := newTestOrder(OrderStatusDelivered, PaymentStatusCompleted)
	_, err := o.TransitionTo(OrderStatusProcessing, testNow)
	assert.True(t, errors.Is(err, ErrStatusTransition))
	assert.Equal(t, OrderStatusDelivered, o.Status)

	changed, err := o.TransitionTo(OrderStatusReturned, testNow)
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = o.TransitionTo(OrderStatusPending, testNow)
	assert.True(t, errors.Is(err, ErrStatusTransition))

	_, err = newTestOrder(OrderStatusPending, PaymentStatusPending).TransitionTo("lost", testNow)
	assert.True(t, errors.Is(err, ErrInvalidStatus))
}

func TestPaymentCompletedConfirmsPendingOrder(t *testing.T) {
	o := newTestOrder(OrderStatusPending, PaymentStatusPending)

	changed, err := o.ApplyPaymentStatus(PaymentStatusCompleted, testNow)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, OrderStatusConfirmed, o.Status)
	assert.NotNil(t, o.ConfirmedDate)
	assert.NotNil(t, o.PaymentDate)

	_, err = o.ApplyPaymentStatus(PaymentStatusFailed, testNow)
	assert.True(t, errors.Is(err, ErrPaymentTransition))

	o = newTestOrder(OrderStatusProcessing, PaymentStatusPending)
	_, err = o.ApplyPaymentStatus(PaymentStatusCompleted, testNow)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusProcessing, o.Status)
}

func TestDistinctParticipants(t *testing.T) {
	seller, supplier := uuid.New(), uuid.New()
	o := newTestOrder(OrderStatusPending, PaymentStatusPending)
	o.Items = []OrderItem{
		{SellerID: seller, SupplierID: supplier},
		{SellerID: seller},
		{},
	}

	assert.Equal(t, []uuid.UUID{seller}, o.SellerIDs())
	assert.Equal(t, []uuid.UUID{supplier}, o.SupplierIDs())
	assert.True(t, o.HasSeller(seller))
	assert.False(t, o.HasSupplier(seller))
}

func TestCloneDoesNotShareItems(t *testing.T) {
	o := newTestOrder(OrderStatusPending, PaymentStatusPending)
	amount := decimal.NewFromInt(6000)
	o.Items[0].CommissionAmount = &amount

	c := o.Clone()
	c.Items[0].Quantity = 99
	*c.Items[0].CommissionAmount = decimal.NewFromInt(1)

	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.True(t, o.Items[0].CommissionAmount.Equal(decimal.NewFromInt(6000)))
}
