package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/o4o-platform/order-service/internal/service"
	sharedHTTP "github.com/o4o-platform/order-service/shared/http"
)

type PartnerHandler struct {
	partnerService *service.PartnerService
	logger         *zap.Logger
}

func NewPartnerHandler(partnerService *service.PartnerService, logger *zap.Logger) *PartnerHandler {
	return &PartnerHandler{partnerService: partnerService, logger: logger}
}

func (h *PartnerHandler) GetOrderCommissions(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidOrderID(c)
	}

	entries, err := h.partnerService.GetOrderCommissions(c.UserContext(), orderID)
	if err != nil {
		h.logger.Error("partner commission listing failed", zap.String("orderId", orderID.String()), zap.Error(err))
		return sharedHTTP.AppErrorResponse(c, err)
	}
	return sharedHTTP.SuccessResponse(c, "Partner commissions retrieved successfully", mapCommissions(orderID, entries))
}

func (h *PartnerHandler) ConfirmCommissions(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidOrderID(c)
	}

	n, err := h.partnerService.ConfirmPartnerCommissions(c.UserContext(), orderID)
	if err != nil {
		h.logger.Error("partner commission confirmation failed", zap.String("orderId", orderID.String()), zap.Error(err))
		return sharedHTTP.AppErrorResponse(c, err)
	}
	return sharedHTTP.SuccessResponse(c, "Partner commissions confirmed", map[string]interface{}{
		"order_id":  orderID,
		"confirmed": n,
	})
}

func (h *PartnerHandler) CancelCommissions(c *fiber.Ctx) error {
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

	n, err := h.partnerService.CancelPartnerCommissions(c.UserContext(), orderID, request.Reason)
	if err != nil {
		h.logger.Error("partner commission cancellation failed", zap.String("orderId", orderID.String()), zap.Error(err))
		return sharedHTTP.AppErrorResponse(c, err)
	}
	return sharedHTTP.SuccessResponse(c, "Partner commissions cancelled", map[string]interface{}{
		"order_id":  orderID,
		"cancelled": n,
	})
}

// TrackReferralClick always answers 200; tracked is false for unknown codes.
func (h *PartnerHandler) TrackReferralClick(c *fiber.Ctx) error {
	code := c.Params("code")
	tracked := h.partnerService.TrackReferralClick(c.UserContext(), code, map[string]string{
		"ip":        c.IP(),
		"userAgent": c.Get(fiber.HeaderUserAgent),
		"referer":   c.Get(fiber.HeaderReferer),
	})
	return sharedHTTP.SuccessResponse(c, "Referral click processed", map[string]interface{}{
		"referral_code": code,
		"tracked":       tracked,
	})
}
