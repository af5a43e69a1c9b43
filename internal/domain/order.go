package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/o4o-platform/order-service/shared/errors"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

// Terminal statuses accept no further transition.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusReturned
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodTransfer       PaymentMethod = "transfer"
	PaymentMethodVirtualAccount PaymentMethod = "virtual_account"
	PaymentMethodKakaoPay       PaymentMethod = "kakao_pay"
	PaymentMethodNaverPay       PaymentMethod = "naver_pay"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodTransfer, PaymentMethodVirtualAccount,
		PaymentMethodKakaoPay, PaymentMethodNaverPay, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}

// Address is validated at the HTTP boundary; the core stores it as given.
type Address struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email,omitempty"`
	ZipCode       string `json:"zip_code"`
	Address       string `json:"address"`
	DetailAddress string `json:"detail_address,omitempty"`
	City          string `json:"city,omitempty"`
	Country       string `json:"country,omitempty"`
}

type OrderSummary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// OrderItem is a snapshot of a product line at order time. Commission fields
// are set once at creation and never recomputed.
type OrderItem struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	ProductSKU    string          `json:"product_sku"`
	ProductImage  string          `json:"product_image,omitempty"`
	ProductBrand  string          `json:"product_brand,omitempty"`
	VariationName string          `json:"variation_name,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalPrice    decimal.Decimal `json:"total_price"`

	SellerID     uuid.UUID `json:"seller_id,omitempty"`
	SellerName   string    `json:"seller_name,omitempty"`
	SupplierID   uuid.UUID `json:"supplier_id,omitempty"`
	SupplierName string    `json:"supplier_name,omitempty"`

	CommissionType   CommissionType   `json:"commission_type,omitempty"`
	CommissionRate   *decimal.Decimal `json:"commission_rate,omitempty"`
	CommissionAmount *decimal.Decimal `json:"commission_amount,omitempty"`
	CommissionSource CommissionSource `json:"commission_source,omitempty"`
}

func (i OrderItem) HasSeller() bool {
	return i.SellerID != uuid.Nil
}

func (i OrderItem) HasCommission() bool {
	return i.CommissionAmount != nil
}

type Order struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber string    `json:"order_number"`

	BuyerID    uuid.UUID `json:"buyer_id"`
	BuyerName  string    `json:"buyer_name"`
	BuyerEmail string    `json:"buyer_email"`
	BuyerType  string    `json:"buyer_type"`

	Items           []OrderItem   `json:"items"`
	Summary         OrderSummary  `json:"summary"`
	BillingAddress  Address       `json:"billing_address"`
	ShippingAddress Address       `json:"shipping_address"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	Notes           string        `json:"notes,omitempty"`
	CustomerNotes   string        `json:"customer_notes,omitempty"`

	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`

	OrderDate     time.Time  `json:"order_date"`
	ConfirmedDate *time.Time `json:"confirmed_date,omitempty"`
	ShippingDate  *time.Time `json:"shipping_date,omitempty"`
	DeliveryDate  *time.Time `json:"delivery_date,omitempty"`
	CancelledDate *time.Time `json:"cancelled_date,omitempty"`
	PaymentDate   *time.Time `json:"payment_date,omitempty"`
	RefundDate    *time.Time `json:"refund_date,omitempty"`

	CancellationReason string           `json:"cancellation_reason,omitempty"`
	ReturnReason       string           `json:"return_reason,omitempty"`
	RefundAmount       *decimal.Decimal `json:"refund_amount,omitempty"`

	ShippingCarrier string `json:"shipping_carrier,omitempty"`
	TrackingNumber  string `json:"tracking_number,omitempty"`
	TrackingURL     string `json:"tracking_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewOrder builds a pending order from a buyer snapshot and priced items.
func NewOrder(orderNumber string, buyer User, items []OrderItem, summary OrderSummary, now time.Time) *Order {
	return &Order{
		ID:            uuid.New(),
		OrderNumber:   orderNumber,
		BuyerID:       buyer.ID,
		BuyerName:     buyer.Name,
		BuyerEmail:    buyer.Email,
		BuyerType:     buyer.Role,
		Items:         items,
		Summary:       summary,
		Status:        OrderStatusPending,
		PaymentStatus: PaymentStatusPending,
		OrderDate:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CanBeCancelled holds for pre-shipment statuses.
func (o *Order) CanBeCancelled() bool {
	switch o.Status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing:
		return true
	}
	return false
}

// CanBeRefunded holds while a captured payment has not been refunded yet.
func (o *Order) CanBeRefunded() bool {
	return o.PaymentStatus == PaymentStatusCompleted
}

// TransitionTo moves the order to status. It reports false without touching
// the order when status is already current.
func (o *Order) TransitionTo(status OrderStatus, now time.Time) (bool, error) {
	if !status.Valid() {
		return false, apperrors.Wrap(ErrInvalidStatus.Code, ErrInvalidStatus.Message, fmt.Errorf("status %q", status))
	}
	if o.Status == status {
		return false, nil
	}
	if o.Status.Terminal() {
		return false, statusTransitionError("cannot change status from %s", o.Status)
	}
	if o.Status == OrderStatusDelivered && status != OrderStatusReturned {
		return false, statusTransitionError("delivered orders can only be returned, got %s", status)
	}

	o.Status = status
	switch status {
	case OrderStatusConfirmed:
		setOnce(&o.ConfirmedDate, now)
	case OrderStatusShipped:
		setOnce(&o.ShippingDate, now)
	case OrderStatusDelivered:
		setOnce(&o.DeliveryDate, now)
	case OrderStatusCancelled:
		setOnce(&o.CancelledDate, now)
	}
	o.UpdatedAt = now
	return true, nil
}

// ApplyPaymentStatus moves the payment state machine. Completing payment on a
// pending order confirms it.
func (o *Order) ApplyPaymentStatus(status PaymentStatus, now time.Time) (bool, error) {
	if !status.Valid() {
		return false, apperrors.Wrap(ErrInvalidPayment.Code, ErrInvalidPayment.Message, fmt.Errorf("payment status %q", status))
	}
	if o.PaymentStatus == status {
		return false, nil
	}
	if !paymentTransitionAllowed(o.PaymentStatus, status) {
		return false, apperrors.Wrap(ErrPaymentTransition.Code, ErrPaymentTransition.Message,
			fmt.Errorf("cannot change payment status from %s to %s", o.PaymentStatus, status))
	}

	o.PaymentStatus = status
	switch status {
	case PaymentStatusCompleted:
		setOnce(&o.PaymentDate, now)
		if o.Status == OrderStatusPending {
			o.Status = OrderStatusConfirmed
			setOnce(&o.ConfirmedDate, now)
		}
	case PaymentStatusRefunded:
		setOnce(&o.RefundDate, now)
	}
	o.UpdatedAt = now
	return true, nil
}

func paymentTransitionAllowed(from, to PaymentStatus) bool {
	switch from {
	case PaymentStatusPending:
		return to == PaymentStatusCompleted || to == PaymentStatusFailed
	case PaymentStatusCompleted:
		return to == PaymentStatusRefunded
	}
	return false
}

func (o *Order) Cancel(reason string, now time.Time) error {
	if !o.CanBeCancelled() {
		return apperrors.Wrap(ErrOrderNotCancellable.Code, ErrOrderNotCancellable.Message,
			fmt.Errorf("order %s is %s", o.OrderNumber, o.Status))
	}

	o.Status = OrderStatusCancelled
	setOnce(&o.CancelledDate, now)
	o.CancellationReason = reason
	o.UpdatedAt = now
	return nil
}

// Refund records a refund. A nil amount refunds the stored total.
func (o *Order) Refund(reason string, amount *decimal.Decimal, now time.Time) error {
	if !o.CanBeRefunded() {
		return apperrors.Wrap(ErrOrderNotRefundable.Code, ErrOrderNotRefundable.Message,
			fmt.Errorf("order %s payment is %s", o.OrderNumber, o.PaymentStatus))
	}

	refund := o.Summary.Total
	if amount != nil {
		if !amount.IsPositive() || amount.GreaterThan(o.Summary.Total) {
			return apperrors.Wrap(ErrInvalidRefundAmount.Code, ErrInvalidRefundAmount.Message,
				fmt.Errorf("amount %s, total %s", amount, o.Summary.Total))
		}
		refund = *amount
	}

	o.ReturnReason = reason
	o.RefundAmount = &refund
	o.PaymentStatus = PaymentStatusRefunded
	setOnce(&o.RefundDate, now)
	o.UpdatedAt = now
	return nil
}

// ApplyShipping overwrites only the fields present in info.
func (o *Order) ApplyShipping(info ShippingInfo, now time.Time) {
	if info.Carrier != nil {
		o.ShippingCarrier = *info.Carrier
	}
	if info.TrackingNumber != nil {
		o.TrackingNumber = *info.TrackingNumber
	}
	if info.TrackingURL != nil {
		o.TrackingURL = *info.TrackingURL
	}
	o.UpdatedAt = now
}

func (o *Order) HasSeller(sellerID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}

func (o *Order) HasSupplier(supplierID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.SupplierID == supplierID {
			return true
		}
	}
	return false
}

// SellerIDs returns the distinct non-empty seller ids in item order.
func (o *Order) SellerIDs() []uuid.UUID {
	return distinct(o.Items, func(i OrderItem) uuid.UUID { return i.SellerID })
}

// SupplierIDs returns the distinct non-empty supplier ids in item order.
func (o *Order) SupplierIDs() []uuid.UUID {
	return distinct(o.Items, func(i OrderItem) uuid.UUID { return i.SupplierID })
}

func distinct(items []OrderItem, key func(OrderItem) uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, item := range items {
		id := key(item)
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	for i, item := range o.Items {
		c.Items[i] = item
		c.Items[i].CommissionRate = cloneDecimal(item.CommissionRate)
		c.Items[i].CommissionAmount = cloneDecimal(item.CommissionAmount)
	}
	c.ConfirmedDate = cloneTime(o.ConfirmedDate)
	c.ShippingDate = cloneTime(o.ShippingDate)
	c.DeliveryDate = cloneTime(o.DeliveryDate)
	c.CancelledDate = cloneTime(o.CancelledDate)
	c.PaymentDate = cloneTime(o.PaymentDate)
	c.RefundDate = cloneTime(o.RefundDate)
	c.RefundAmount = cloneDecimal(o.RefundAmount)
	return &c
}

func statusTransitionError(format string, args ...interface{}) error {
	return apperrors.Wrap(ErrStatusTransition.Code, ErrStatusTransition.Message, fmt.Errorf(format, args...))
}

func setOnce(field **time.Time, now time.Time) {
	if *field == nil {
		t := now
		*field = &t
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
