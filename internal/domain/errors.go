package domain

import (
	apperrors "github.com/o4o-platform/order-service/shared/errors"
)

var (
	ErrEmptyOrder          = apperrors.New(apperrors.ErrCodeValidation, "Order must contain at least one item")
	ErrInvalidQuantity     = apperrors.New(apperrors.ErrCodeValidation, "Item quantity must be positive")
	ErrInvalidUnitPrice    = apperrors.New(apperrors.ErrCodeValidation, "Item unit price must not be negative")
	ErrInvalidRefundAmount = apperrors.New(apperrors.ErrCodeValidation, "Refund amount must be positive and not exceed the order total")
	ErrInvalidStatus       = apperrors.New(apperrors.ErrCodeValidation, "Unknown order status")
	ErrInvalidPayment      = apperrors.New(apperrors.ErrCodeValidation, "Unknown payment status")

	ErrEmptyCart      = apperrors.New(apperrors.ErrCodeNotFound, "Cart is empty or not found")
	ErrOrderNotFound  = apperrors.New(apperrors.ErrCodeNotFound, "Order not found")
	ErrBuyerNotFound  = apperrors.New(apperrors.ErrCodeNotFound, "Buyer not found")
	ErrProductMissing = apperrors.New(apperrors.ErrCodeNotFound, "Product not found")

	ErrOrderNotCancellable  = apperrors.New(apperrors.ErrCodeInvalidStateTransition, "Order cannot be cancelled in current status")
	ErrOrderNotRefundable   = apperrors.New(apperrors.ErrCodeInvalidStateTransition, "Order cannot be refunded")
	ErrStatusTransition     = apperrors.New(apperrors.ErrCodeInvalidStateTransition, "Order status transition is not allowed")
	ErrPaymentTransition    = apperrors.New(apperrors.ErrCodeInvalidStateTransition, "Payment status transition is not allowed")
	ErrCommissionNotPending = apperrors.New(apperrors.ErrCodeInvalidStateTransition, "Partner commission is not pending")

	ErrOrderNotCommissionable = apperrors.New(apperrors.ErrCodeInvalidStateTransition, "Order is not eligible for partner commission")

	// ErrOrderOwnership is the cause attached to ErrOrderNotFound when a
	// buyer-scoped lookup hits another buyer's order.
	ErrOrderOwnership = apperrors.New(apperrors.ErrCodeUnauthorized, "Order belongs to another buyer")

	ErrDuplicateOrderNumber = apperrors.New(apperrors.ErrCodeConflict, "Order number already exists")
)
