package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/o4o-platform/order-service/shared/errors"
)

type PartnerCommissionStatus string

const (
	PartnerCommissionPending   PartnerCommissionStatus = "pending"
	PartnerCommissionConfirmed PartnerCommissionStatus = "confirmed"
	PartnerCommissionCancelled PartnerCommissionStatus = "cancelled"
)

// PartnerCommission is the ledger entry earned by a referring partner for one
// order line.
type PartnerCommission struct {
	ID                 uuid.UUID               `json:"id"`
	PartnerID          uuid.UUID               `json:"partner_id"`
	OrderID            uuid.UUID               `json:"order_id"`
	ProductID          uuid.UUID               `json:"product_id"`
	SellerID           uuid.UUID               `json:"seller_id,omitempty"`
	ReferralCode       string                  `json:"referral_code"`
	OrderAmount        decimal.Decimal         `json:"order_amount"`
	ProductPrice       decimal.Decimal         `json:"product_price"`
	Quantity           int                     `json:"quantity"`
	CommissionRate     decimal.Decimal         `json:"commission_rate"`
	CommissionAmount   decimal.Decimal         `json:"commission_amount"`
	Status             PartnerCommissionStatus `json:"status"`
	ConvertedAt        time.Time               `json:"converted_at"`
	ConfirmedAt        *time.Time              `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time              `json:"cancelled_at,omitempty"`
	CancellationReason string                  `json:"cancellation_reason,omitempty"`
}

// NewPartnerCommission prices one order line at rate percent. The entry is
// attributed to the partner's seller, not the line's.
func NewPartnerCommission(partner *Partner, orderID uuid.UUID, item OrderItem, rate decimal.Decimal, now time.Time) *PartnerCommission {
	return &PartnerCommission{
		ID:               uuid.New(),
		PartnerID:        partner.ID,
		OrderID:          orderID,
		ProductID:        item.ProductID,
		SellerID:         partner.SellerID,
		ReferralCode:     partner.ReferralCode,
		OrderAmount:      item.TotalPrice,
		ProductPrice:     item.UnitPrice,
		Quantity:         item.Quantity,
		CommissionRate:   rate,
		CommissionAmount: RoundCurrency(Percent(item.TotalPrice, rate)),
		Status:           PartnerCommissionPending,
		ConvertedAt:      now,
	}
}

func (c *PartnerCommission) Confirm(now time.Time) error {
	if c.Status != PartnerCommissionPending {
		return commissionStateError(c)
	}
	c.Status = PartnerCommissionConfirmed
	setOnce(&c.ConfirmedAt, now)
	return nil
}

// Cancel only applies to pending entries; confirmed commissions are final.
func (c *PartnerCommission) Cancel(reason string, now time.Time) error {
	if c.Status != PartnerCommissionPending {
		return commissionStateError(c)
	}
	c.Status = PartnerCommissionCancelled
	setOnce(&c.CancelledAt, now)
	c.CancellationReason = reason
	return nil
}

func (c *PartnerCommission) Clone() *PartnerCommission {
	cp := *c
	cp.ConfirmedAt = cloneTime(c.ConfirmedAt)
	cp.CancelledAt = cloneTime(c.CancelledAt)
	return &cp
}

func commissionStateError(c *PartnerCommission) error {
	return apperrors.Wrap(ErrCommissionNotPending.Code, ErrCommissionNotPending.Message,
		fmt.Errorf("commission %s is %s", c.ID, c.Status))
}
