package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/o4o-platform/order-service/shared/events"
)

type Publisher struct {
	client *RabbitMQClient
	logger *zap.Logger
}

func NewPublisher(client *RabbitMQClient, logger *zap.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger,
	}
}

// Publish sends event to the configured exchange. A cancelled ctx is not published.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !p.client.IsConnected() {
		return fmt.Errorf("there is no connection to RabbitMQ")
	}

	event = withDefaults(event)
	body, routingKey, err := encode(event)
	if err != nil {
		return err
	}

	err = p.client.Channel().Publish(
		p.client.config.Exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID.String(),
			Timestamp:    event.Timestamp,
			Headers: amqp.Table{
				"order_id":       event.OrderID.String(),
				"correlation_id": event.CorrelationID.String(),
				"service":        event.Service,
				"event_type":     string(event.EventType),
			},
		},
	)
	if err != nil {
		return fmt.Errorf("event publish error: %w", err)
	}

	p.logger.Debug("event published", zap.String("routingKey", routingKey))
	return nil
}

func withDefaults(event events.Event) events.Event {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CorrelationID == uuid.Nil {
		event.CorrelationID = event.ID
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return event
}

// encode returns the JSON body of event with its routing key.
func encode(event events.Event) ([]byte, string, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, "", fmt.Errorf("event serialization error: %w", err)
	}

	return body, RoutingKey(event.Service, string(event.EventType)), nil
}
