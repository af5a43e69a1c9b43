package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func item(unitPrice int64, quantity int) OrderItem {
	return OrderItemInput{UnitPrice: decimal.NewFromInt(unitPrice), Quantity: quantity}.ToOrderItem()
}

type flatDiscount int64

func (d flatDiscount) Discount([]OrderItem, decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(d))
}

func TestCalculateSummary(t *testing.T) {
	tests := []struct {
		name     string
		items    []OrderItem
		discount DiscountPolicy
		want     OrderSummary
	}{
		{
			name:  "above threshold ships free",
			items: []OrderItem{item(30000, 2), item(25000, 1)},
			want: OrderSummary{
				Subtotal: decimal.NewFromInt(85000),
				Discount: decimal.Zero,
				Shipping: decimal.Zero,
				Tax:      decimal.NewFromInt(8500),
				Total:    decimal.NewFromInt(93500),
			},
		},
		{
			name:  "below threshold pays flat fee",
			items: []OrderItem{item(12345, 1)},
			want: OrderSummary{
				Subtotal: decimal.NewFromInt(12345),
				Discount: decimal.Zero,
				Shipping: decimal.NewFromInt(3000),
				Tax:      decimal.NewFromInt(1235),
				Total:    decimal.NewFromInt(16580),
			},
		},
		{
			name:  "exactly at threshold pays shipping",
			items: []OrderItem{item(50000, 1)},
			want: OrderSummary{
				Subtotal: decimal.NewFromInt(50000),
				Discount: decimal.Zero,
				Shipping: decimal.NewFromInt(3000),
				Tax:      decimal.NewFromInt(5000),
				Total:    decimal.NewFromInt(58000),
			},
		},
		{
			name:     "discount is subtracted",
			items:    []OrderItem{item(60000, 1)},
			discount: flatDiscount(1000),
			want: OrderSummary{
				Subtotal: decimal.NewFromInt(60000),
				Discount: decimal.NewFromInt(1000),
				Shipping: decimal.Zero,
				Tax:      decimal.NewFromInt(6000),
				Total:    decimal.NewFromInt(65000),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateSummary(tt.items, DefaultPricingPolicy(), tt.discount)

			assert.True(t, tt.want.Subtotal.Equal(got.Subtotal), "subtotal %s", got.Subtotal)
			assert.True(t, tt.want.Discount.Equal(got.Discount), "discount %s", got.Discount)
			assert.True(t, tt.want.Shipping.Equal(got.Shipping), "shipping %s", got.Shipping)
			assert.True(t, tt.want.Tax.Equal(got.Tax), "tax %s", got.Tax)
			assert.True(t, tt.want.Total.Equal(got.Total), "total %s", got.Total)
		})
	}
}

func TestSummaryTotalIdentity(t *testing.T) {
	for _, price := range []int64{0, 1, 15, 4999, 49999, 50001, 123457} {
		s := CalculateSummary([]OrderItem{item(price, 3)}, DefaultPricingPolicy(), nil)
		assert.True(t, s.Total.Equal(s.Subtotal.Add(s.Shipping).Add(s.Tax).Sub(s.Discount)))
		assert.True(t, s.Tax.Equal(s.Tax.Round(0)), "tax must be whole units")
	}
}

func TestRoundCurrencyHalfUp(t *testing.T) {
	assert.Equal(t, "1235", RoundCurrency(decimal.RequireFromString("1234.5")).String())
	assert.Equal(t, "1234", RoundCurrency(decimal.RequireFromString("1234.49")).String())
	assert.Equal(t, "3", RoundCurrency(Percent(decimal.NewFromInt(25), decimal.NewFromInt(10))).String())
}
