package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/o4o-platform/order-service/internal/domain"
	apperrors "github.com/o4o-platform/order-service/shared/errors"
)

type orderRepository struct{ q DBTX }

func (r *orderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	billingJSON, err := json.Marshal(order.BillingAddress)
	if err != nil {
		return fmt.Errorf("billing address serialization error: %w", err)
	}
	shippingJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("shipping address serialization error: %w", err)
	}

	query := `
		INSERT INTO orders (
			id, order_number, buyer_id, buyer_name, buyer_email, buyer_type,
			subtotal, discount, shipping, tax, total,
			billing_address, shipping_address, payment_method, notes, customer_notes,
			status, payment_status, order_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err = r.q.ExecContext(ctx, query,
		order.ID, order.OrderNumber, order.BuyerID, order.BuyerName, order.BuyerEmail, order.BuyerType,
		order.Summary.Subtotal, order.Summary.Discount, order.Summary.Shipping, order.Summary.Tax, order.Summary.Total,
		billingJSON, shippingJSON, string(order.PaymentMethod), order.Notes, order.CustomerNotes,
		string(order.Status), string(order.PaymentStatus), order.OrderDate, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return apperrors.Wrap(domain.ErrDuplicateOrderNumber.Code, domain.ErrDuplicateOrderNumber.Message, err)
		}
		return dbError("order creation error", err)
	}

	itemQuery := `
		INSERT INTO order_items (
			id, order_id, position, product_id, product_name, product_sku, product_image, product_brand,
			variation_name, quantity, unit_price, total_price, seller_id, seller_name, supplier_id, supplier_name,
			commission_type, commission_rate, commission_amount, commission_source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	for i, item := range order.Items {
		_, err := r.q.ExecContext(ctx, itemQuery,
			item.ID, order.ID, i, item.ProductID, item.ProductName, item.ProductSKU, item.ProductImage, item.ProductBrand,
			item.VariationName, item.Quantity, item.UnitPrice, item.TotalPrice,
			nullUUID(item.SellerID), item.SellerName, nullUUID(item.SupplierID), item.SupplierName,
			string(item.CommissionType), nullDecimal(item.CommissionRate), nullDecimal(item.CommissionAmount),
			string(item.CommissionSource),
		)
		if err != nil {
			return dbError("order item creation error", err)
		}
	}

	return nil
}

// UpdateOrder writes the mutable order columns. Items and summary are fixed
// at creation.
func (r *orderRepository) UpdateOrder(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET status = $2, payment_status = $3,
			confirmed_date = $4, shipping_date = $5, delivery_date = $6,
			cancelled_date = $7, payment_date = $8, refund_date = $9,
			cancellation_reason = $10, return_reason = $11, refund_amount = $12,
			shipping_carrier = $13, tracking_number = $14, tracking_url = $15,
			updated_at = $16
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query,
		order.ID, string(order.Status), string(order.PaymentStatus),
		order.ConfirmedDate, order.ShippingDate, order.DeliveryDate,
		order.CancelledDate, order.PaymentDate, order.RefundDate,
		order.CancellationReason, order.ReturnReason, nullDecimal(order.RefundAmount),
		order.ShippingCarrier, order.TrackingNumber, order.TrackingURL,
		order.UpdatedAt,
	)
	if err != nil {
		return dbError("order update error", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return dbError("order update error", err)
	}
	if rowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return r.getOrder(ctx, orderID, "")
}

func (r *orderRepository) GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return r.getOrder(ctx, orderID, " FOR UPDATE OF o")
}

func (r *orderRepository) getOrder(ctx context.Context, orderID uuid.UUID, lock string) (*domain.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders o WHERE o.id = $1" + lock

	order, err := scanOrder(r.q.QueryRowContext(ctx, query, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError("order receive error", err)
	}

	if err := r.loadItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, int, error) {
	countSQL, pageSQL, args := buildListOrdersQuery(filter)

	var total int
	if err := r.q.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, dbError("order count error", err)
	}

	pageArgs := append(append([]interface{}(nil), args...), filter.Limit, filter.Offset())
	rows, err := r.q.QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, 0, dbError("order list error", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, dbError("order scan error", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dbError("order list error", err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) OrderTotals(ctx context.Context, buyerID uuid.UUID) (int, decimal.Decimal, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(total), 0) FROM orders WHERE ($1::uuid IS NULL OR buyer_id = $1)`

	var (
		count int
		spent decimal.Decimal
	)
	if err := r.q.QueryRowContext(ctx, query, nullUUID(buyerID)).Scan(&count, &spent); err != nil {
		return 0, decimal.Zero, dbError("order totals error", err)
	}
	return count, spent, nil
}

// loadItems fills Items for every order with one query.
func (r *orderRepository) loadItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		o.Items = []domain.OrderItem{}
		ids = append(ids, o.ID.String())
	}

	query := `
		SELECT id, order_id, product_id, product_name, product_sku, product_image, product_brand,
			   variation_name, quantity, unit_price, total_price, seller_id, seller_name,
			   supplier_id, supplier_name, commission_type, commission_rate, commission_amount, commission_source
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position
	`
	rows, err := r.q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return dbError("order items receive error", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item             domain.OrderItem
			orderID          uuid.UUID
			seller, supplier uuid.NullUUID
			rate, amount     decimal.NullDecimal
		)
		if err := rows.Scan(
			&item.ID, &orderID, &item.ProductID, &item.ProductName, &item.ProductSKU, &item.ProductImage,
			&item.ProductBrand, &item.VariationName, &item.Quantity, &item.UnitPrice, &item.TotalPrice,
			&seller, &item.SellerName, &supplier, &item.SupplierName,
			&item.CommissionType, &rate, &amount, &item.CommissionSource,
		); err != nil {
			return dbError("order item scan error", err)
		}
		item.SellerID = seller.UUID
		item.SupplierID = supplier.UUID
		item.CommissionRate = decimalPtr(rate)
		item.CommissionAmount = decimalPtr(amount)

		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return dbError("order items receive error", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                         domain.Order
		billingJSON, shippingJSON []byte
		refund                    decimal.NullDecimal
	)

	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.BuyerID, &o.BuyerName, &o.BuyerEmail, &o.BuyerType,
		&o.Summary.Subtotal, &o.Summary.Discount, &o.Summary.Shipping, &o.Summary.Tax, &o.Summary.Total,
		&billingJSON, &shippingJSON, &o.PaymentMethod, &o.Notes, &o.CustomerNotes,
		&o.Status, &o.PaymentStatus, &o.OrderDate, &o.ConfirmedDate, &o.ShippingDate,
		&o.DeliveryDate, &o.CancelledDate, &o.PaymentDate, &o.RefundDate,
		&o.CancellationReason, &o.ReturnReason, &refund,
		&o.ShippingCarrier, &o.TrackingNumber, &o.TrackingURL, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(billingJSON, &o.BillingAddress); err != nil {
		return nil, fmt.Errorf("billing address deserialization error: %w", err)
	}
	if err := json.Unmarshal(shippingJSON, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("shipping address deserialization error: %w", err)
	}
	o.RefundAmount = decimalPtr(refund)
	return &o, nil
}
