package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/o4o-platform/order-service/internal/domain"
	"github.com/o4o-platform/order-service/internal/service"
	apperrors "github.com/o4o-platform/order-service/shared/errors"
	sharedHTTP "github.com/o4o-platform/order-service/shared/http"
)

const adminRole = "admin"

// caller is the identity forwarded by the gateway in X-User-* headers.
type caller struct {
	id   uuid.UUID
	name string
	role string
}

func callerFrom(c *fiber.Ctx) caller {
	id, _ := uuid.Parse(c.Get("X-User-ID"))
	return caller{id: id, name: c.Get("X-User-Name"), role: c.Get("X-User-Role")}
}

func (u caller) isAdmin() bool {
	return u.role == adminRole
}

// scope is the buyer id reads are restricted to. Admins see every order.
func (u caller) scope() *uuid.UUID {
	if u.isAdmin() {
		return nil
	}
	id := u.id
	return &id
}

func (u caller) actor() domain.Actor {
	return domain.Actor{ID: u.id, Name: u.name, Role: u.role, Source: "api"}
}

type OrderHandler struct {
	orderService   *service.OrderService
	partnerService *service.PartnerService
	logger         *zap.Logger
}

func NewOrderHandler(orderService *service.OrderService, partnerService *service.PartnerService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService:   orderService,
		partnerService: partnerService,
		logger:         logger,
	}
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	buyer := callerFrom(c)
	if buyer.id == uuid.Nil {
		return sharedHTTP.BadRequestResponse(c, "X-User-ID header is required", nil)
	}

	var request CreateOrderRequest
	if err := c.BodyParser(&request); err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}
	if details := request.validate(); details != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid order details", details)
	}

	order, err := h.orderService.CreateOrder(c.UserContext(), buyer.id, request.toDomain())
	if err != nil {
		return h.fail(c, "order creation failed", err)
	}
	h.recordReferral(c.UserContext(), order, request.ReferralCode)

	return sharedHTTP.CreatedResponse(c, "Order created successfully", order)
}

func (h *OrderHandler) CreateOrderFromCart(c *fiber.Ctx) error {
	buyer := callerFrom(c)
	if buyer.id == uuid.Nil {
		return sharedHTTP.BadRequestResponse(c, "X-User-ID header is required", nil)
	}

	var request CreateOrderFromCartRequest
	if err := c.BodyParser(&request); err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}
	if details := request.validate(); details != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid order details", details)
	}

	order, err := h.orderService.CreateOrderFromCart(c.UserContext(), buyer.id, domain.CreateOrderFromCartRequest{
		CartID:       request.CartID,
		OrderDetails: request.OrderDetailsRequest.toDomain(),
	})
	if err != nil {
		return h.fail(c, "order creation from cart failed", err)
	}
	h.recordReferral(c.UserContext(), order, request.ReferralCode)

	return sharedHTTP.CreatedResponse(c, "Order created successfully", order)
}

// recordReferral books partner commissions for a freshly placed order. The
// order stands even when this fails.
func (h *OrderHandler) recordReferral(ctx context.Context, order *domain.Order, referralCode string) {
	if referralCode == "" {
		return
	}
	if _, err := h.partnerService.CreatePartnerCommissions(ctx, order, referralCode); err != nil {
		h.logger.Error("partner commission creation failed",
			zap.String("orderId", order.ID.String()),
			zap.String("referralCode", referralCode),
			zap.Error(err))
	}
}

func (h *OrderHandler) GetOrders(c *fiber.Ctx) error {
	filter, details := parseFilter(c)
	if details != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid query parameters", details)
	}

	u := callerFrom(c)
	if !u.isAdmin() {
		if u.id == uuid.Nil {
			return sharedHTTP.BadRequestResponse(c, "X-User-ID header is required", nil)
		}
		filter.BuyerID = u.id
	}

	page, err := h.orderService.GetOrders(c.UserContext(), filter)
	if err != nil {
		return h.fail(c, "order listing failed", err)
	}
	return sharedHTTP.SuccessResponse(c, "Orders retrieved successfully", mapOrderPage(page))
}

func (h *OrderHandler) GetOrdersForSeller(c *fiber.Ctx) error {
	sellerID, err := uuid.Parse(c.Params("seller_id"))
	if err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid seller ID", map[string]interface{}{
			"seller_id": c.Params("seller_id"),
		})
	}
	filter, details := parseFilter(c)
	if details != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid query parameters", details)
	}

	page, err := h.orderService.GetOrdersForSeller(c.UserContext(), sellerID, filter)
	if err != nil {
		return h.fail(c, "seller order listing failed", err)
	}
	return sharedHTTP.SuccessResponse(c, "Orders retrieved successfully", mapOrderPage(page))
}

func (h *OrderHandler) GetOrdersForSupplier(c *fiber.Ctx) error {
	supplierID, err := uuid.Parse(c.Params("supplier_id"))
	if err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid supplier ID", map[string]interface{}{
			"supplier_id": c.Params("supplier_id"),
		})
	}
	filter, details := parseFilter(c)
	if details != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid query parameters", details)
	}

	page, err := h.orderService.GetOrdersForSupplier(c.UserContext(), supplierID, filter)
	if err != nil {
		return h.fail(c, "supplier order listing failed", err)
	}
	return sharedHTTP.SuccessResponse(c, "Orders retrieved successfully", mapOrderPage(page))
}

func (h *OrderHandler) GetOrderStats(c *fiber.Ctx) error {
	u := callerFrom(c)
	if !u.isAdmin() && u.id == uuid.Nil {
		return sharedHTTP.BadRequestResponse(c, "X-User-ID header is required", nil)
	}

	stats, err := h.orderService.GetOrderStats(c.UserContext(), u.scope())
	if err != nil {
		return h.fail(c, "order stats failed", err)
	}
	return sharedHTTP.SuccessResponse(c, "Order stats retrieved successfully", stats)
}

func (h *OrderHandler) GetOrderByID(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidOrderID(c)
	}

	order, err := h.orderService.GetOrderByID(c.UserContext(), orderID, callerFrom(c).scope())
	if err != nil {
		return h.fail(c, "order lookup failed", err)
	}
	return sharedHTTP.SuccessResponse(c, "Order retrieved successfully", order)
}

func (h *OrderHandler) GetOrderEvents(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidOrderID(c)
	}

	order, history, err := h.orderService.GetOrderWithEvents(c.UserContext(), orderID, callerFrom(c).scope())
	if err != nil {
		return h.fail(c, "order events lookup failed", err)
	}
	return sharedHTTP.SuccessResponse(c, "Order events retrieved successfully", OrderWithEventsResponse{
		Order:  order,
		Events: history,
	})
}

func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidOrderID(c)
	}
	var request UpdateStatusRequest
	if err := c.BodyParser(&request); err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}

	status := domain.OrderStatus(request.Status)
	order, err := h.orderService.UpdateOrderStatus(c.UserContext(), orderID, status, domain.StatusChangeOptions{
		Actor:   callerFrom(c).actor(),
		Message: request.Message,
	})
	if err != nil {
		return h.fail(c, "order status update failed", err)
	}
	if status == domain.OrderStatusCancelled {
		h.settleCommissions(c.UserContext(), orderID, "order cancelled")
	}
	return sharedHTTP.SuccessResponse(c, "Order status updated successfully", order)
}

func (h *OrderHandler) UpdatePaymentStatus(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidOrderID(c)
	}
	var request UpdatePaymentStatusRequest
	if err := c.BodyParser(&request); err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}

	order, err := h.orderService.UpdatePaymentStatus(c.UserContext(), orderID, domain.PaymentStatus(request.PaymentStatus))
	if err != nil {
		return h.fail(c, "payment status update failed", err)
	}
	return sharedHTTP.SuccessResponse(c, "Payment status updated successfully", order)
}

func (h *OrderHandler) UpdateShipping(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidOrderID(c)
	}
	var request UpdateShippingRequest
	if err := c.BodyParser(&request); err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}

	order, err := h.orderService.UpdateOrderShipping(c.UserContext(), orderID, request.toDomain(), domain.StatusChangeOptions{
		Actor: callerFrom(c).actor(),
	})
	if err != nil {
		return h.fail(c, "shipping update failed", err)
	}
	return sharedHTTP.SuccessResponse(c, "Shipping information updated successfully", order)
}

func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidOrderID(c)
	}
	var request CancelRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&request); err != nil {
			return sharedHTTP.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
				"parse_error": err.Error(),
			})
		}
	}
	if err := h.checkOwnership(c, orderID); err != nil {
		return h.fail(c, "order cancellation failed", err)
	}

	order, err := h.orderService.CancelOrder(c.UserContext(), orderID, request.Reason)
	if err != nil {
		return h.fail(c, "order cancellation failed", err)
	}
	h.settleCommissions(c.UserContext(), orderID, "order cancelled")
	return sharedHTTP.SuccessResponse(c, "Order cancelled successfully", order)
}

func (h *OrderHandler) RequestRefund(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidOrderID(c)
	}
	var request RefundRequest
	if err := c.BodyParser(&request); err != nil {
		return sharedHTTP.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}
	if err := h.checkOwnership(c, orderID); err != nil {
		return h.fail(c, "refund request failed", err)
	}

	order, err := h.orderService.RequestRefund(c.UserContext(), orderID, request.Reason, request.Amount)
	if err != nil {
		return h.fail(c, "refund request failed", err)
	}
	h.settleCommissions(c.UserContext(), orderID, "order refunded")
	return sharedHTTP.SuccessResponse(c, "Refund requested successfully", order)
}

func (h *OrderHandler) HealthCheck(c *fiber.Ctx) error {
	return sharedHTTP.SuccessResponse(c, "Order service is healthy", map[string]interface{}{
		"service": "order-service",
		"status":  "healthy",
	})
}

// checkOwnership rejects buyers acting on someone else's order.
func (h *OrderHandler) checkOwnership(c *fiber.Ctx, orderID uuid.UUID) error {
	u := callerFrom(c)
	if u.isAdmin() {
		return nil
	}
	_, err := h.orderService.GetOrderByID(c.UserContext(), orderID, u.scope())
	return err
}

// settleCommissions cancels pending partner commissions in-process. The
// broker route does the same for events raised elsewhere; both are safe to
// repeat since only pending entries change.
func (h *OrderHandler) settleCommissions(ctx context.Context, orderID uuid.UUID, reason string) {
	if _, err := h.partnerService.CancelPartnerCommissions(ctx, orderID, reason); err != nil {
		h.logger.Error("partner commission cancellation failed",
			zap.String("orderId", orderID.String()),
			zap.Error(err))
	}
}

func (h *OrderHandler) fail(c *fiber.Ctx, msg string, err error) error {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeDatabaseError, apperrors.ErrCodeInternalError:
		h.logger.Error(msg, zap.String("path", c.Path()), zap.Error(err))
	default:
		h.logger.Debug(msg, zap.String("path", c.Path()), zap.Error(err))
	}
	return sharedHTTP.AppErrorResponse(c, err)
}

func invalidOrderID(c *fiber.Ctx) error {
	return sharedHTTP.BadRequestResponse(c, "Invalid order ID", map[string]interface{}{
		"order_id": c.Params("id"),
	})
}

// parseFilter reads listing parameters from the query string. Paging and sort
// defaults are applied by the service.
func parseFilter(c *fiber.Ctx) (domain.OrderFilter, map[string]interface{}) {
	filter := domain.OrderFilter{
		Status:        domain.OrderStatus(c.Query("status")),
		PaymentStatus: domain.PaymentStatus(c.Query("payment_status")),
		Search:        c.Query("search"),
		SortBy:        domain.SortKey(c.Query("sort_by")),
		SortOrder:     domain.SortOrder(c.Query("sort_order")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return filter, map[string]interface{}{"status": c.Query("status")}
	}
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return filter, map[string]interface{}{"payment_status": c.Query("payment_status")}
	}

	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			filter.Page = p
		}
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			filter.Limit = l
		}
	}
	if buyer := c.Query("buyer_id"); buyer != "" {
		id, err := uuid.Parse(buyer)
		if err != nil {
			return filter, map[string]interface{}{"buyer_id": buyer}
		}
		filter.BuyerID = id
	}

	var ok bool
	if filter.DateFrom, ok = parseDate(c.Query("date_from"), false); !ok {
		return filter, map[string]interface{}{"date_from": c.Query("date_from")}
	}
	if filter.DateTo, ok = parseDate(c.Query("date_to"), true); !ok {
		return filter, map[string]interface{}{"date_to": c.Query("date_to")}
	}
	if filter.MinAmount, ok = parseAmount(c.Query("min_amount")); !ok {
		return filter, map[string]interface{}{"min_amount": c.Query("min_amount")}
	}
	if filter.MaxAmount, ok = parseAmount(c.Query("max_amount")); !ok {
		return filter, map[string]interface{}{"max_amount": c.Query("max_amount")}
	}
	return filter, nil
}

// parseDate accepts RFC 3339 or a bare date. A bare end date covers the
// whole day.
func parseDate(v string, endOfDay bool) (*time.Time, bool) {
	if v == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, true
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, true
}

func parseAmount(v string) (*decimal.Decimal, bool) {
	if v == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, false
	}
	return &d, true
}
