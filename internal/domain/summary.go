package domain

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PricingPolicy holds the shipping and tax parameters applied to every order.
type PricingPolicy struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	TaxRate               decimal.Decimal // percent
}

func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		FreeShippingThreshold: decimal.NewFromInt(50000),
		ShippingFee:           decimal.NewFromInt(3000),
		TaxRate:               decimal.NewFromInt(10),
	}
}

// DiscountPolicy computes the order-level discount for a set of priced items.
type DiscountPolicy interface {
	Discount(items []OrderItem, subtotal decimal.Decimal) decimal.Decimal
}

type NoDiscount struct{}

func (NoDiscount) Discount([]OrderItem, decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

// CalculateSummary prices items once. Shipping is waived only when the
// subtotal is strictly above the threshold.
func CalculateSummary(items []OrderItem, pricing PricingPolicy, discounts DiscountPolicy) OrderSummary {
	if discounts == nil {
		discounts = NoDiscount{}
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.TotalPrice)
	}

	discount := discounts.Discount(items, subtotal)

	shipping := pricing.ShippingFee
	if subtotal.GreaterThan(pricing.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := RoundCurrency(Percent(subtotal, pricing.TaxRate))

	return OrderSummary{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax).Sub(discount),
	}
}

// RoundCurrency rounds to whole currency units, halves away from zero.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// Percent returns amount * rate / 100 without rounding.
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred)
}

// LineTotal is quantity x unit price.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
