// Package commission resolves seller commission policies and prices line items.
package commission

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/o4o-platform/order-service/internal/domain"
)

// Result is the commission copied onto an order line at creation.
type Result struct {
	Type   domain.CommissionType   `json:"type"`
	Rate   decimal.Decimal         `json:"rate"`
	Amount decimal.Decimal         `json:"amount"`
	Source domain.CommissionSource `json:"source"`
}

// PolicySource returns every seller and product tier policy that could apply
// to a (seller, product) pair.
type PolicySource interface {
	FindPolicies(ctx context.Context, sellerID, productID uuid.UUID) ([]domain.CommissionPolicy, error)
}

type Calculator struct {
	source   PolicySource
	platform domain.CommissionPolicy
	logger   *zap.Logger
}

func NewCalculator(source PolicySource, platform domain.CommissionPolicy, logger *zap.Logger) *Calculator {
	platform.Source = domain.CommissionSourcePlatform
	return &Calculator{
		source:   source,
		platform: platform,
		logger:   logger,
	}
}

func (c *Calculator) CalculateForItem(ctx context.Context, productID, sellerID uuid.UUID, unitPrice decimal.Decimal, quantity int) (Result, error) {
	policies, err := c.source.FindPolicies(ctx, sellerID, productID)
	if err != nil {
		return Result{}, fmt.Errorf("commission policy lookup for product %s: %w", productID, err)
	}

	policy := Resolve(policies, sellerID, productID, c.platform)
	result := Compute(policy, unitPrice, quantity)

	c.logger.Debug("commission calculated",
		zap.String("productId", productID.String()),
		zap.String("sellerId", sellerID.String()),
		zap.String("source", string(result.Source)),
		zap.String("amount", result.Amount.String()))

	return result, nil
}

// Resolve picks the applicable policy: seller+product, then seller-wide, then
// product, then platform.
func Resolve(policies []domain.CommissionPolicy, sellerID, productID uuid.UUID, platform domain.CommissionPolicy) domain.CommissionPolicy {
	var sellerWide, product *domain.CommissionPolicy

	for i := range policies {
		p := &policies[i]
		if !p.Type.Valid() {
			continue
		}
		switch p.Source {
		case domain.CommissionSourceSeller:
			if p.SellerID != sellerID {
				continue
			}
			if p.ProductID == productID {
				return *p
			}
			if p.ProductID == uuid.Nil && sellerWide == nil {
				sellerWide = p
			}
		case domain.CommissionSourceProduct:
			if p.ProductID == productID && product == nil {
				product = p
			}
		}
	}

	switch {
	case sellerWide != nil:
		return *sellerWide
	case product != nil:
		return *product
	}
	return platform
}

// Compute prices quantity units at unitPrice under policy.
func Compute(policy domain.CommissionPolicy, unitPrice decimal.Decimal, quantity int) Result {
	var amount decimal.Decimal
	switch policy.Type {
	case domain.CommissionTypeFixed:
		amount = policy.Value.Mul(decimal.NewFromInt(int64(quantity)))
	default:
		amount = domain.Percent(domain.LineTotal(unitPrice, quantity), policy.Value)
	}

	source := policy.Source
	if source == "" {
		source = domain.CommissionSourcePlatform
	}

	commissionType := policy.Type
	if commissionType == "" {
		commissionType = domain.CommissionTypeRate
	}

	return Result{
		Type:   commissionType,
		Rate:   policy.Value,
		Amount: domain.RoundCurrency(amount),
		Source: source,
	}
}
