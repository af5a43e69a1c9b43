package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const MaxPageLimit = 100

type SortKey string

const (
	SortByOrderDate   SortKey = "orderDate"
	SortByTotalAmount SortKey = "totalAmount"
	SortByStatus      SortKey = "status"
	SortByBuyerName   SortKey = "buyerName"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// OrderFilter narrows an order listing. Zero-valued fields do not filter.
//   - DateFrom/DateTo bound OrderDate inclusively.
//   - MinAmount/MaxAmount bound Summary.Total inclusively.
//   - Search matches order number, buyer name or buyer email, case-insensitive.
//   - SellerID/SupplierID keep orders with at least one matching item.
type OrderFilter struct {
	Status        OrderStatus
	PaymentStatus PaymentStatus
	BuyerID       uuid.UUID
	SellerID      uuid.UUID
	SupplierID    uuid.UUID
	DateFrom      *time.Time
	DateTo        *time.Time
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	Search        string

	SortBy    SortKey
	SortOrder SortOrder
	Page      int
	Limit     int
}

// Normalize fills paging and sort defaults. Unknown sort keys fall back to
// order date.
func (f OrderFilter) Normalize(defaultLimit int) OrderFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	switch f.SortBy {
	case SortByOrderDate, SortByTotalAmount, SortByStatus, SortByBuyerName:
	default:
		f.SortBy = SortByOrderDate
	}
	if f.SortOrder != SortAsc {
		f.SortOrder = SortDesc
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

func (f OrderFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

func (f OrderFilter) Matches(o *Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus {
		return false
	}
	if f.BuyerID != uuid.Nil && o.BuyerID != f.BuyerID {
		return false
	}
	if f.SellerID != uuid.Nil && !o.HasSeller(f.SellerID) {
		return false
	}
	if f.SupplierID != uuid.Nil && !o.HasSupplier(f.SupplierID) {
		return false
	}
	if f.DateFrom != nil && o.OrderDate.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && o.OrderDate.After(*f.DateTo) {
		return false
	}
	if f.MinAmount != nil && o.Summary.Total.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && o.Summary.Total.GreaterThan(*f.MaxAmount) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(o.OrderNumber), q) &&
			!strings.Contains(strings.ToLower(o.BuyerName), q) &&
			!strings.Contains(strings.ToLower(o.BuyerEmail), q) {
			return false
		}
	}
	return true
}

// SortOrders sorts in place by the filter's key and direction. Ties keep
// their previous relative order.
func (f OrderFilter) SortOrders(orders []*Order) {
	compare := func(a, b *Order) int {
		switch f.SortBy {
		case SortByTotalAmount:
			return a.Summary.Total.Cmp(b.Summary.Total)
		case SortByStatus:
			return strings.Compare(string(a.Status), string(b.Status))
		case SortByBuyerName:
			return strings.Compare(a.BuyerName, b.BuyerName)
		default:
			return a.OrderDate.Compare(b.OrderDate)
		}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		c := compare(orders[i], orders[j])
		if f.SortOrder == SortAsc {
			return c < 0
		}
		return c > 0
	})
}

type OrderPage struct {
	Orders []*Order `json:"orders"`
	Total  int      `json:"total"`
	Page   int      `json:"page"`
	Limit  int      `json:"limit"`
}

// TotalPages is zero for an empty listing.
func (p OrderPage) TotalPages() int {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

type OrderStats struct {
	TotalOrders       int             `json:"total_orders"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	RecentOrders      []*Order        `json:"recent_orders"`
}
