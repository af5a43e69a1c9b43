package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PartnerStatus string

const (
	PartnerStatusActive    PartnerStatus = "active"
	PartnerStatusPending   PartnerStatus = "pending"
	PartnerStatusSuspended PartnerStatus = "suspended"
)

type Partner struct {
	ID           uuid.UUID     `json:"id"`
	SellerID     uuid.UUID     `json:"seller_id"`
	ReferralCode string        `json:"referral_code"`
	IsActive     bool          `json:"is_active"`
	Status       PartnerStatus `json:"status"`

	TotalClicks     int64           `json:"total_clicks"`
	TotalOrders     int64           `json:"total_orders"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	LastClickAt     *time.Time      `json:"last_click_at,omitempty"`
	LastOrderAt     *time.Time      `json:"last_order_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Eligible reports whether the partner may earn commissions.
func (p *Partner) Eligible() bool {
	return p.IsActive && p.Status == PartnerStatusActive
}

func (p *Partner) RecordClick(now time.Time) {
	p.TotalClicks++
	t := now
	p.LastClickAt = &t
	p.UpdatedAt = now
}

// RecordOrder counts one converted order carrying revenue and commission.
func (p *Partner) RecordOrder(revenue, commission decimal.Decimal, now time.Time) {
	p.TotalOrders++
	p.TotalRevenue = p.TotalRevenue.Add(revenue)
	p.TotalCommission = p.TotalCommission.Add(commission)
	t := now
	p.LastOrderAt = &t
	p.UpdatedAt = now
}

func (p *Partner) Clone() *Partner {
	c := *p
	c.LastClickAt = cloneTime(p.LastClickAt)
	c.LastOrderAt = cloneTime(p.LastOrderAt)
	return &c
}
