package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductSnapshot struct {
	Name         string    `json:"name"`
	SKU          string    `json:"sku"`
	Image        string    `json:"image,omitempty"`
	Brand        string    `json:"brand,omitempty"`
	SupplierID   uuid.UUID `json:"supplier_id,omitempty"`
	SupplierName string    `json:"supplier_name,omitempty"`
}

type CartItem struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	VariationName string          `json:"variation_name,omitempty"`
	SellerID      uuid.UUID       `json:"seller_id,omitempty"`
	SellerName    string          `json:"seller_name,omitempty"`
	Product       ProductSnapshot `json:"product"`
}

type Cart struct {
	ID        uuid.UUID  `json:"id"`
	BuyerID   uuid.UUID  `json:"buyer_id"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// OrderItemInputs translates the cart snapshot into order line requests.
func (c *Cart) OrderItemInputs() []OrderItemInput {
	inputs := make([]OrderItemInput, 0, len(c.Items))
	for _, item := range c.Items {
		inputs = append(inputs, OrderItemInput{
			ProductID:     item.ProductID,
			ProductName:   item.Product.Name,
			ProductSKU:    item.Product.SKU,
			ProductImage:  item.Product.Image,
			ProductBrand:  item.Product.Brand,
			VariationName: item.VariationName,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			SellerID:      item.SellerID,
			SellerName:    item.SellerName,
			SupplierID:    item.Product.SupplierID,
			SupplierName:  item.Product.SupplierName,
		})
	}
	return inputs
}

func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = append([]CartItem(nil), c.Items...)
	return &cp
}
