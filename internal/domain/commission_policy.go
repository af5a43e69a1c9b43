package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CommissionType string

const (
	CommissionTypeRate  CommissionType = "rate"
	CommissionTypeFixed CommissionType = "fixed"
)

func (t CommissionType) Valid() bool {
	return t == CommissionTypeRate || t == CommissionTypeFixed
}

type CommissionSource string

const (
	CommissionSourceSeller   CommissionSource = "seller"
	CommissionSourceProduct  CommissionSource = "product"
	CommissionSourcePlatform CommissionSource = "platform"
)

// CommissionPolicy is one configured commission row. A seller-tier row with
// a nil ProductID applies to all of the seller's products.
type CommissionPolicy struct {
	ID        uuid.UUID        `json:"id"`
	Source    CommissionSource `json:"source"`
	SellerID  uuid.UUID        `json:"seller_id,omitempty"`
	ProductID uuid.UUID        `json:"product_id,omitempty"`
	Type      CommissionType   `json:"type"`
	Value     decimal.Decimal  `json:"value"`
}
