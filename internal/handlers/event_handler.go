package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/o4o-platform/order-service/internal/config"
	"github.com/o4o-platform/order-service/internal/domain"
	"github.com/o4o-platform/order-service/internal/service"
	apperrors "github.com/o4o-platform/order-service/shared/errors"
	"github.com/o4o-platform/order-service/shared/events"
	"github.com/o4o-platform/order-service/shared/messaging"
)

// EventHandler applies broker events to orders and the partner ledger.
type EventHandler struct {
	orderService   *service.OrderService
	partnerService *service.PartnerService
	logger         *zap.Logger
}

func NewEventHandler(orderService *service.OrderService, partnerService *service.PartnerService, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		orderService:   orderService,
		partnerService: partnerService,
		logger:         logger,
	}
}

func (h *EventHandler) RoutingKeys() []string {
	return []string{
		messaging.RoutingKey("*", string(events.PaymentProcessedEvent)),
		messaging.RoutingKey("*", string(events.PaymentFailedEvent)),
		messaging.RoutingKey("*", string(events.ReturnWindowElapsedEvent)),
		messaging.RoutingKey(config.ServiceName, string(events.OrderCancelledEvent)),
		messaging.RoutingKey(config.ServiceName, string(events.OrderRefundedEvent)),
	}
}

// StartConsuming blocks while events are delivered.
func (h *EventHandler) StartConsuming(consumer *messaging.Consumer) error {
	return consumer.ConsumeEvents(h.RoutingKeys(), h.Handle)
}

// Handle routes one event. Errors the consumer could never fix by retrying
// are logged and acknowledged.
func (h *EventHandler) Handle(ctx context.Context, event events.Event) error {
	h.logger.Debug("event received",
		zap.String("eventType", string(event.EventType)),
		zap.String("orderId", event.OrderID.String()),
		zap.String("service", event.Service))

	var err error
	switch event.EventType {
	case events.PaymentProcessedEvent:
		_, err = h.orderService.UpdatePaymentStatus(ctx, event.OrderID, domain.PaymentStatusCompleted)
	case events.PaymentFailedEvent:
		_, err = h.orderService.UpdatePaymentStatus(ctx, event.OrderID, domain.PaymentStatusFailed)
	case events.ReturnWindowElapsedEvent:
		_, err = h.partnerService.ConfirmPartnerCommissions(ctx, event.OrderID)
	case events.OrderCancelledEvent:
		_, err = h.partnerService.CancelPartnerCommissions(ctx, event.OrderID, reasonOr(event, "order cancelled"))
	case events.OrderRefundedEvent:
		_, err = h.partnerService.CancelPartnerCommissions(ctx, event.OrderID, reasonOr(event, "order refunded"))
	default:
		h.logger.Debug("event ignored", zap.String("eventType", string(event.EventType)))
		return nil
	}

	if err == nil {
		return nil
	}
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeNotFound, apperrors.ErrCodeValidation, apperrors.ErrCodeInvalidStateTransition:
		h.logger.Warn("event dropped",
			zap.String("eventType", string(event.EventType)),
			zap.String("orderId", event.OrderID.String()),
			zap.Error(err))
		return nil
	}
	return err
}

func reasonOr(event events.Event, fallback string) string {
	if reason := event.Reason(); reason != "" {
		return reason
	}
	return fallback
}
