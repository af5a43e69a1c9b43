package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/o4o-platform/order-service/shared/errors"
)

type OrderItemInput struct {
	ProductID     uuid.UUID
	ProductName   string
	ProductSKU    string
	ProductImage  string
	ProductBrand  string
	VariationName string
	Quantity      int
	UnitPrice     decimal.Decimal
	SellerID      uuid.UUID
	SellerName    string
	SupplierID    uuid.UUID
	SupplierName  string
}

func (in OrderItemInput) Validate() error {
	if in.Quantity <= 0 {
		return apperrors.Wrap(ErrInvalidQuantity.Code, ErrInvalidQuantity.Message,
			fmt.Errorf("product %s quantity %d", in.ProductID, in.Quantity))
	}
	if in.UnitPrice.IsNegative() {
		return apperrors.Wrap(ErrInvalidUnitPrice.Code, ErrInvalidUnitPrice.Message,
			fmt.Errorf("product %s unit price %s", in.ProductID, in.UnitPrice))
	}
	return nil
}

// ToOrderItem snapshots the input with its line total computed once.
func (in OrderItemInput) ToOrderItem() OrderItem {
	return OrderItem{
		ID:            uuid.New(),
		ProductID:     in.ProductID,
		ProductName:   in.ProductName,
		ProductSKU:    in.ProductSKU,
		ProductImage:  in.ProductImage,
		ProductBrand:  in.ProductBrand,
		VariationName: in.VariationName,
		Quantity:      in.Quantity,
		UnitPrice:     in.UnitPrice,
		TotalPrice:    LineTotal(in.UnitPrice, in.Quantity),
		SellerID:      in.SellerID,
		SellerName:    in.SellerName,
		SupplierID:    in.SupplierID,
		SupplierName:  in.SupplierName,
	}
}

// OrderDetails are the buyer-supplied fields shared by both creation paths.
type OrderDetails struct {
	BillingAddress  Address
	ShippingAddress Address
	PaymentMethod   PaymentMethod
	Notes           string
	CustomerNotes   string
	ReferralCode    string
}

type CreateOrderRequest struct {
	Items []OrderItemInput
	OrderDetails
}

type CreateOrderFromCartRequest struct {
	CartID uuid.UUID
	OrderDetails
}

// ShippingInfo is a partial update; nil fields are left unchanged.
type ShippingInfo struct {
	Carrier        *string
	TrackingNumber *string
	TrackingURL    *string
}

type StatusChangeOptions struct {
	Actor   Actor
	Message string
}
