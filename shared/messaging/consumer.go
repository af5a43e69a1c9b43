package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/o4o-platform/order-service/shared/events"
)

type EventHandler func(ctx context.Context, event events.Event) error

type Consumer struct {
	client      *RabbitMQClient
	queueName   string
	serviceName string
	maxRetries  int64
	logger      *zap.Logger
}

func NewConsumer(client *RabbitMQClient, queueName, serviceName string, logger *zap.Logger) *Consumer {
	return &Consumer{
		client:      client,
		queueName:   queueName,
		serviceName: serviceName,
		maxRetries:  client.config.MaxRedeliveries,
		logger:      logger,
	}
}

func (c *Consumer) ConsumeEvents(routingKeys []string, handler EventHandler) error {
	if !c.client.IsConnected() {
		return fmt.Errorf("there is no connection to RabbitMQ")
	}

	channel := c.client.Channel()

	queue, err := channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("queue declare error: %w", err)
	}

	for _, routingKey := range routingKeys {
		err = channel.QueueBind(
			queue.Name,               // queue name
			routingKey,               // routing key
			c.client.config.Exchange, // exchange
			false,                    // no-wait
			nil,                      // arguments
		)
		if err != nil {
			return fmt.Errorf("queue bind error (%s): %w", routingKey, err)
		}
		c.logger.Info("queue bound", zap.String("queue", queue.Name), zap.String("routingKey", routingKey))
	}

	if err := channel.Qos(c.client.config.Prefetch, 0, false); err != nil {
		return fmt.Errorf("qos error: %w", err)
	}

	messages, err := channel.Consume(
		queue.Name,    // queue
		c.serviceName, // consumer
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return fmt.Errorf("consume start error: %w", err)
	}

	c.logger.Info("consuming events", zap.String("queue", queue.Name))

	go func() {
		for {
			select {
			case msg, ok := <-messages:
				if !ok {
					c.logger.Warn("delivery channel closed", zap.String("consumer", c.serviceName))
					return
				}
				c.handleMessage(msg, handler)
			case <-c.client.Done():
				c.logger.Info("consumer stopped", zap.String("consumer", c.serviceName))
				return
			}
		}
	}()

	return nil
}

func (c *Consumer) handleMessage(msg amqp.Delivery, handler EventHandler) {
	var event events.Event

	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error("event deserialize error", zap.Error(err))
		msg.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := handler(ctx, event); err != nil {
		c.logger.Error("event process error",
			zap.String("eventType", string(event.EventType)),
			zap.String("orderId", event.OrderID.String()),
			zap.Error(err))

		if c.shouldRetry(msg) {
			c.republish(msg, event)
		} else {
			c.logger.Warn("max retry reached, sending to dead letter", zap.String("eventType", string(event.EventType)))
			msg.Nack(false, false)
		}
		return
	}

	msg.Ack(false)
}

func (c *Consumer) shouldRetry(msg amqp.Delivery) bool {
	return retryCount(msg.Headers) < c.maxRetries
}

func (c *Consumer) republish(msg amqp.Delivery, event events.Event) {
	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retry-count"] = retryCount(msg.Headers) + 1

	time.Sleep(2 * time.Second)

	err := c.client.Channel().Publish(
		msg.Exchange,
		msg.RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			DeliveryMode: msg.DeliveryMode,
			Headers:      headers,
		},
	)
	if err != nil {
		c.logger.Error("retry publish error", zap.Error(err))
		msg.Nack(false, false)
		return
	}

	msg.Ack(false)
	c.logger.Info("event re-published", zap.String("eventType", string(event.EventType)))
}

// retryCount reads our own retry header, falling back to the broker x-death count.
func retryCount(headers amqp.Table) int64 {
	if v, ok := headers["x-retry-count"]; ok {
		switch n := v.(type) {
		case int64:
			return n
		case int32:
			return int64(n)
		case int:
			return int64(n)
		}
	}
	if xDeath, ok := headers["x-death"]; ok {
		if deathArray, ok := xDeath.([]interface{}); ok && len(deathArray) > 0 {
			if death, ok := deathArray[0].(amqp.Table); ok {
				if count, ok := death["count"].(int64); ok {
					return count
				}
			}
		}
	}
	return 0
}
