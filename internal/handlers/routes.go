package handlers

import (
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, orderHandler *OrderHandler, partnerHandler *PartnerHandler) {
	api := app.Group("/api/v1")

	api.Get("/health", orderHandler.HealthCheck)

	orders := api.Group("/orders")
	orders.Post("/", orderHandler.CreateOrder)
	orders.Post("/from-cart", orderHandler.CreateOrderFromCart)
	orders.Get("/", orderHandler.GetOrders)
	orders.Get("/stats", orderHandler.GetOrderStats)
	orders.Get("/:id", orderHandler.GetOrderByID)
	orders.Get("/:id/events", orderHandler.GetOrderEvents)
	orders.Patch("/:id/status", orderHandler.UpdateOrderStatus)
	orders.Patch("/:id/payment-status", orderHandler.UpdatePaymentStatus)
	orders.Patch("/:id/shipping", orderHandler.UpdateShipping)
	orders.Post("/:id/cancel", orderHandler.CancelOrder)
	orders.Post("/:id/refund", orderHandler.RequestRefund)

	orders.Get("/:id/commissions", partnerHandler.GetOrderCommissions)
	orders.Post("/:id/commissions/confirm", partnerHandler.ConfirmCommissions)
	orders.Post("/:id/commissions/cancel", partnerHandler.CancelCommissions)

	api.Get("/sellers/:seller_id/orders", orderHandler.GetOrdersForSeller)
	api.Get("/suppliers/:supplier_id/orders", orderHandler.GetOrdersForSupplier)

	api.Post("/referrals/:code/click", partnerHandler.TrackReferralClick)

	// Route not found
	app.Use("*", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Route not found",
		})
	})
}
