package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OrderEventType string

const (
	OrderEventCreated         OrderEventType = "order_created"
	OrderEventStatusChange    OrderEventType = "status_change"
	OrderEventPaymentUpdate   OrderEventType = "payment_update"
	OrderEventCancelled       OrderEventType = "cancelled"
	OrderEventRefundRequested OrderEventType = "refund_requested"
	OrderEventShippingUpdate  OrderEventType = "shipping_update"
)

// Actor identifies who caused an order event. The zero value is the system.
type Actor struct {
	ID     uuid.UUID `json:"id,omitempty"`
	Name   string    `json:"name,omitempty"`
	Role   string    `json:"role,omitempty"`
	Source string    `json:"source,omitempty"`
}

func (a Actor) source() string {
	if a.Source == "" {
		return "system"
	}
	return a.Source
}

// OrderEvent is the append-only audit trail of an order.
type OrderEvent struct {
	ID         uuid.UUID       `json:"id"`
	OrderID    uuid.UUID       `json:"order_id"`
	Type       OrderEventType  `json:"type"`
	PrevStatus string          `json:"prev_status,omitempty"`
	NewStatus  string          `json:"new_status,omitempty"`
	Message    string          `json:"message"`
	ActorID    uuid.UUID       `json:"actor_id,omitempty"`
	ActorName  string          `json:"actor_name,omitempty"`
	ActorRole  string          `json:"actor_role,omitempty"`
	Source     string          `json:"source"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func NewOrderEvent(orderID uuid.UUID, eventType OrderEventType, message string, actor Actor, now time.Time) *OrderEvent {
	return &OrderEvent{
		ID:        uuid.New(),
		OrderID:   orderID,
		Type:      eventType,
		Message:   message,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Source:    actor.source(),
		CreatedAt: now,
	}
}

// WithStatus records the prev/new pair on the event.
func (e *OrderEvent) WithStatus(prev, next string) *OrderEvent {
	e.PrevStatus = prev
	e.NewStatus = next
	return e
}

// WithPayload attaches v as JSON. Values that fail to marshal are dropped.
func (e *OrderEvent) WithPayload(v interface{}) *OrderEvent {
	if raw, err := json.Marshal(v); err == nil {
		e.Payload = raw
	}
	return e
}
