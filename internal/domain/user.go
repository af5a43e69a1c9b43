package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Price        decimal.Decimal `json:"price"`
	SupplierID   uuid.UUID       `json:"supplier_id,omitempty"`
	SupplierName string          `json:"supplier_name,omitempty"`
	// PartnerCommissionRate is a percent; nil or zero falls back to the
	// configured partner default.
	PartnerCommissionRate *decimal.Decimal `json:"partner_commission_rate,omitempty"`
}

// PartnerRate returns the product rate or fallback when none is set.
func (p *Product) PartnerRate(fallback decimal.Decimal) decimal.Decimal {
	if p.PartnerCommissionRate == nil || p.PartnerCommissionRate.IsZero() {
		return fallback
	}
	return *p.PartnerCommissionRate
}
