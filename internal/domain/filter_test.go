package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeDefaults(t *testing.T) {
	f := OrderFilter{SortBy: "bogus", Limit: 1000, Search: "  kim "}.Normalize(10)

	assert.Equal(t, 1, f.Page)
	assert.Equal(t, MaxPageLimit, f.Limit)
	assert.Equal(t, SortByOrderDate, f.SortBy)
	assert.Equal(t, SortDesc, f.SortOrder)
	assert.Equal(t, "kim", f.Search)

	f = OrderFilter{Page: 3}.Normalize(20)
	assert.Equal(t, 20, f.Limit)
	assert.Equal(t, 40, f.Offset())
}

func TestFilterMatches(t *testing.T) {
	seller := uuid.New()
	o := newTestOrder(OrderStatusConfirmed, PaymentStatusCompleted)
	o.BuyerEmail = "kim@example.com"
	o.Items[0].SellerID = seller

	from := testNow.Add(-time.Hour)
	to := testNow.Add(-time.Minute)
	low := decimal.NewFromInt(70000)

	assert.True(t, OrderFilter{}.Matches(o))
	assert.True(t, OrderFilter{Status: OrderStatusConfirmed, SellerID: seller}.Matches(o))
	assert.True(t, OrderFilter{Search: "EXAMPLE"}.Matches(o))
	assert.True(t, OrderFilter{Search: "abcd"}.Matches(o))
	assert.False(t, OrderFilter{Status: OrderStatusPending}.Matches(o))
	assert.False(t, OrderFilter{SupplierID: seller}.Matches(o))
	assert.False(t, OrderFilter{DateFrom: &from, DateTo: &to}.Matches(o))
	assert.False(t, OrderFilter{MinAmount: &low}.Matches(o))
	assert.False(t, OrderFilter{Search: "lee"}.Matches(o))
}

func TestSortOrders(t *testing.T) {
	a := newTestOrder(OrderStatusPending, PaymentStatusPending)
	b := newTestOrder(OrderStatusPending, PaymentStatusPending)
	b.OrderDate = a.OrderDate.Add(time.Hour)
	b.Summary.Total = decimal.NewFromInt(1)

	orders := []*Order{a, b}
	OrderFilter{}.Normalize(10).SortOrders(orders)
	assert.Equal(t, []*Order{b, a}, orders)

	OrderFilter{SortBy: SortByTotalAmount, SortOrder: SortAsc}.SortOrders(orders)
	assert.Equal(t, []*Order{b, a}, orders)

	OrderFilter{SortBy: SortByTotalAmount, SortOrder: SortDesc}.SortOrders(orders)
	assert.Equal(t, []*Order{a, b}, orders)
}
