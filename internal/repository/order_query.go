package repository

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/o4o-platform/order-service/internal/domain"
)

const orderColumns = `
	o.id, o.order_number, o.buyer_id, o.buyer_name, o.buyer_email, o.buyer_type,
	o.subtotal, o.discount, o.shipping, o.tax, o.total,
	o.billing_address, o.shipping_address, o.payment_method, o.notes, o.customer_notes,
	o.status, o.payment_status, o.order_date, o.confirmed_date, o.shipping_date,
	o.delivery_date, o.cancelled_date, o.payment_date, o.refund_date,
	o.cancellation_reason, o.return_reason, o.refund_amount,
	o.shipping_carrier, o.tracking_number, o.tracking_url, o.created_at, o.updated_at`

var sortColumns = map[domain.SortKey]string{
	domain.SortByOrderDate:   "o.order_date",
	domain.SortByTotalAmount: "o.total",
	domain.SortByStatus:      "o.status",
	domain.SortByBuyerName:   "o.buyer_name",
}

// whereBuilder numbers placeholders in the order conditions are added.
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

// add appends cond, replacing each "?" with the placeholder of arg.
func (w *whereBuilder) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conditions = append(w.conditions, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereBuilder) sql() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

func buildOrderWhere(f domain.OrderFilter) (string, []interface{}) {
	w := &whereBuilder{}

	if f.Status != "" {
		w.add("o.status = ?", string(f.Status))
	}
	if f.PaymentStatus != "" {
		w.add("o.payment_status = ?", string(f.PaymentStatus))
	}
	if f.BuyerID != uuid.Nil {
		w.add("o.buyer_id = ?", f.BuyerID)
	}
	if f.SellerID != uuid.Nil {
		w.add("EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.seller_id = ?)", f.SellerID)
	}
	if f.SupplierID != uuid.Nil {
		w.add("EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.supplier_id = ?)", f.SupplierID)
	}
	if f.DateFrom != nil {
		w.add("o.order_date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		w.add("o.order_date <= ?", *f.DateTo)
	}
	if f.MinAmount != nil {
		w.add("o.total >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		w.add("o.total <= ?", *f.MaxAmount)
	}
	if f.Search != "" {
		w.add("(o.order_number ILIKE ? OR o.buyer_name ILIKE ? OR o.buyer_email ILIKE ?)", "%"+escapeLike(f.Search)+"%")
	}

	return w.sql(), w.args
}

func orderByClause(f domain.OrderFilter) string {
	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = sortColumns[domain.SortByOrderDate]
	}
	direction := "DESC"
	if f.SortOrder == domain.SortAsc {
		direction = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, o.id %s", column, direction, direction)
}

// buildListOrdersQuery returns the count and page queries for f. The page
// query takes limit and offset after the shared filter args.
func buildListOrdersQuery(f domain.OrderFilter) (countSQL, pageSQL string, args []interface{}) {
	where, args := buildOrderWhere(f)

	countSQL = "SELECT COUNT(*) FROM orders o" + where
	pageSQL = fmt.Sprintf("SELECT %s FROM orders o%s%s LIMIT $%d OFFSET $%d",
		orderColumns, where, orderByClause(f), len(args)+1, len(args)+2)
	return countSQL, pageSQL, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
