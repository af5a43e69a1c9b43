package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/o4o-platform/order-service/shared/events"
)

const (
	serviceName    = "order-service"
	publishTimeout = 5 * time.Second
)

// EventPublisher delivers lifecycle events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// notifier publishes after commit. Failures are logged and never returned.
type notifier struct {
	publisher EventPublisher
	logger    *zap.Logger
}

func (n notifier) publish(ctx context.Context, orderID uuid.UUID, eventType events.EventType, payload interface{}) {
	if n.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := events.Event{
		ID:        uuid.New(),
		OrderID:   orderID,
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now(),
		Service:   serviceName,
	}
	if err := n.publisher.Publish(ctx, event); err != nil {
		n.logger.Warn("event publish failed",
			zap.String("eventType", string(eventType)),
			zap.String("orderId", orderID.String()),
			zap.Error(err))
	}
}
