package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/o4o-platform/order-service/internal/domain"
)

func TestBuildOrderWhereEmpty(t *testing.T) {
	where, args := buildOrderWhere(domain.OrderFilter{})
	assert.Equal(t, "", where)
	assert.Empty(t, args)
}

func TestBuildOrderWhereNumbersPlaceholders(t *testing.T) {
	buyer := uuid.New()
	seller := uuid.New()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	minTotal := decimal.NewFromInt(1000)

	where, args := buildOrderWhere(domain.OrderFilter{
		Status:    domain.OrderStatusShipped,
		BuyerID:   buyer,
		SellerID:  seller,
		DateFrom:  &from,
		MinAmount: &minTotal,
		Search:    "50%_off",
	})

	assert.Equal(t, " WHERE o.status = $1"+
		" AND o.buyer_id = $2"+
		" AND EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.seller_id = $3)"+
		" AND o.order_date >= $4"+
		" AND o.total >= $5"+
		" AND (o.order_number ILIKE $6 OR o.buyer_name ILIKE $6 OR o.buyer_email ILIKE $6)", where)
	assert.Equal(t, []interface{}{"shipped", buyer, seller, from, minTotal, `%50\%\_off%`}, args)
}

func TestBuildListOrdersQuery(t *testing.T) {
	f := domain.OrderFilter{SupplierID: uuid.New(), SortBy: domain.SortByTotalAmount, SortOrder: domain.SortAsc}.Normalize(20)

	countSQL, pageSQL, args := buildListOrdersQuery(f)

	assert.Equal(t, "SELECT COUNT(*) FROM orders o WHERE EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.supplier_id = $1)", countSQL)
	assert.Contains(t, pageSQL, " ORDER BY o.total ASC, o.id ASC LIMIT $2 OFFSET $3")
	assert.Len(t, args, 1)
}

func TestOrderByClauseDefaults(t *testing.T) {
	assert.Equal(t, " ORDER BY o.order_date DESC, o.id DESC", orderByClause(domain.OrderFilter{}))
	assert.Equal(t, " ORDER BY o.buyer_name ASC, o.id ASC", orderByClause(domain.OrderFilter{SortBy: domain.SortByBuyerName, SortOrder: domain.SortAsc}))
}
