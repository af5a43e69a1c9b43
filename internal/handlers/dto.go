package handlers

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/o4o-platform/order-service/internal/domain"
)

type OrderItemRequest struct {
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	ProductSKU    string          `json:"product_sku"`
	ProductImage  string          `json:"product_image"`
	ProductBrand  string          `json:"product_brand"`
	VariationName string          `json:"variation_name"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	SellerID      uuid.UUID       `json:"seller_id"`
	SellerName    string          `json:"seller_name"`
	SupplierID    uuid.UUID       `json:"supplier_id"`
	SupplierName  string          `json:"supplier_name"`
}

type OrderDetailsRequest struct {
	BillingAddress  domain.Address `json:"billing_address"`
	ShippingAddress domain.Address `json:"shipping_address"`
	PaymentMethod   string         `json:"payment_method"`
	Notes           string         `json:"notes"`
	CustomerNotes   string         `json:"customer_notes"`
	ReferralCode    string         `json:"referral_code"`
}

type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items"`
	OrderDetailsRequest
}

type CreateOrderFromCartRequest struct {
	CartID uuid.UUID `json:"cart_id"`
	OrderDetailsRequest
}

type UpdateStatusRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status"`
}

type UpdateShippingRequest struct {
	Carrier        *string `json:"carrier"`
	TrackingNumber *string `json:"tracking_number"`
	TrackingURL    *string `json:"tracking_url"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type RefundRequest struct {
	Reason string           `json:"reason"`
	Amount *decimal.Decimal `json:"amount"`
}

type OrderWithEventsResponse struct {
	Order  *domain.Order        `json:"order"`
	Events []*domain.OrderEvent `json:"events"`
}

type CommissionsResponse struct {
	OrderID     uuid.UUID                   `json:"order_id"`
	Commissions []*domain.PartnerCommission `json:"commissions"`
	Total       decimal.Decimal             `json:"total"`
}

// validate reports the first missing or malformed field, keyed by its JSON path.
func (r OrderDetailsRequest) validate() map[string]interface{} {
	if !domain.PaymentMethod(r.PaymentMethod).Valid() {
		return map[string]interface{}{"payment_method": r.PaymentMethod}
	}
	if field := missingAddressField(r.ShippingAddress); field != "" {
		return map[string]interface{}{"shipping_address." + field: "required"}
	}
	if field := missingAddressField(r.BillingAddress); field != "" {
		return map[string]interface{}{"billing_address." + field: "required"}
	}
	return nil
}

func missingAddressField(a domain.Address) string {
	switch {
	case strings.TrimSpace(a.RecipientName) == "":
		return "recipient_name"
	case strings.TrimSpace(a.Phone) == "":
		return "phone"
	case strings.TrimSpace(a.ZipCode) == "":
		return "zip_code"
	case strings.TrimSpace(a.Address) == "":
		return "address"
	}
	return ""
}

func (r OrderDetailsRequest) toDomain() domain.OrderDetails {
	return domain.OrderDetails{
		BillingAddress:  r.BillingAddress,
		ShippingAddress: r.ShippingAddress,
		PaymentMethod:   domain.PaymentMethod(r.PaymentMethod),
		Notes:           r.Notes,
		CustomerNotes:   r.CustomerNotes,
		ReferralCode:    strings.TrimSpace(r.ReferralCode),
	}
}

func (r CreateOrderRequest) toDomain() domain.CreateOrderRequest {
	items := make([]domain.OrderItemInput, len(r.Items))
	for i, item := range r.Items {
		items[i] = domain.OrderItemInput{
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			ProductSKU:    item.ProductSKU,
			ProductImage:  item.ProductImage,
			ProductBrand:  item.ProductBrand,
			VariationName: item.VariationName,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			SellerID:      item.SellerID,
			SellerName:    item.SellerName,
			SupplierID:    item.SupplierID,
			SupplierName:  item.SupplierName,
		}
	}
	return domain.CreateOrderRequest{Items: items, OrderDetails: r.OrderDetailsRequest.toDomain()}
}

func (r UpdateShippingRequest) toDomain() domain.ShippingInfo {
	return domain.ShippingInfo{
		Carrier:        r.Carrier,
		TrackingNumber: r.TrackingNumber,
		TrackingURL:    r.TrackingURL,
	}
}

func mapCommissions(orderID uuid.UUID, entries []*domain.PartnerCommission) CommissionsResponse {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.CommissionAmount)
	}
	if entries == nil {
		entries = []*domain.PartnerCommission{}
	}
	return CommissionsResponse{OrderID: orderID, Commissions: entries, Total: total}
}

func mapOrderPage(page domain.OrderPage) map[string]interface{} {
	orders := page.Orders
	if orders == nil {
		orders = []*domain.Order{}
	}
	return map[string]interface{}{
		"orders": orders,
		"pagination": map[string]interface{}{
			"page":        page.Page,
			"limit":       page.Limit,
			"total":       page.Total,
			"total_pages": page.TotalPages(),
			"has_more":    page.Page < page.TotalPages(),
		},
	}
}
