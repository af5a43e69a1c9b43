package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	// Published by the order service
	OrderCreatedEvent             EventType = "order.created"
	OrderStatusChangedEvent       EventType = "order.status_changed"
	OrderCancelledEvent           EventType = "order.cancelled"
	OrderRefundedEvent            EventType = "order.refunded"
	PartnerCommissionCreatedEvent EventType = "partner.commission.created"

	// Consumed from other services
	PaymentProcessedEvent    EventType = "payment.processed"
	PaymentFailedEvent       EventType = "payment.failed"
	ReturnWindowElapsedEvent EventType = "order.return_window_elapsed"
)

// Event is the envelope carried on the exchange.
type Event struct {
	ID            uuid.UUID   `json:"id"`
	OrderID       uuid.UUID   `json:"order_id"`
	EventType     EventType   `json:"event_type"`
	Payload       interface{} `json:"payload"`
	Timestamp     time.Time   `json:"timestamp"`
	Service       string      `json:"service"`
	CorrelationID uuid.UUID   `json:"correlation_id"`
}

type OrderCreatedPayload struct {
	OrderNumber string          `json:"order_number"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	Total       decimal.Decimal `json:"total"`
	ItemCount   int             `json:"item_count"`
	SellerIDs   []string        `json:"seller_ids,omitempty"`
	SupplierIDs []string        `json:"supplier_ids,omitempty"`
}

type OrderStatusChangedPayload struct {
	OrderNumber string `json:"order_number"`
	PrevStatus  string `json:"prev_status"`
	NewStatus   string `json:"new_status"`
}

type OrderCancelledPayload struct {
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason,omitempty"`
}

type OrderRefundedPayload struct {
	OrderNumber  string          `json:"order_number"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	Reason       string          `json:"reason,omitempty"`
}

type PartnerCommissionCreatedPayload struct {
	PartnerID       uuid.UUID       `json:"partner_id"`
	ReferralCode    string          `json:"referral_code"`
	Entries         int             `json:"entries"`
	TotalCommission decimal.Decimal `json:"total_commission"`
}

// Reason extracts an optional "reason" string from a decoded payload.
func (e Event) Reason() string {
	if payload, ok := e.Payload.(map[string]interface{}); ok {
		if reason, ok := payload["reason"].(string); ok {
			return reason
		}
	}
	return ""
}
