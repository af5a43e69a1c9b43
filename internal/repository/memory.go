package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/o4o-platform/order-service/internal/domain"
)

type memoryState struct {
	orders      map[uuid.UUID]*domain.Order
	orderSeq    []uuid.UUID
	carts       map[uuid.UUID]*domain.Cart // by buyer
	users       map[uuid.UUID]*domain.User
	products    map[uuid.UUID]*domain.Product
	partners    map[uuid.UUID]*domain.Partner
	commissions []*domain.PartnerCommission
	events      []*domain.OrderEvent
	policies    []domain.CommissionPolicy
}

func newMemoryState() *memoryState {
	return &memoryState{
		orders:   make(map[uuid.UUID]*domain.Order),
		carts:    make(map[uuid.UUID]*domain.Cart),
		users:    make(map[uuid.UUID]*domain.User),
		products: make(map[uuid.UUID]*domain.Product),
		partners: make(map[uuid.UUID]*domain.Partner),
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	for id, o := range s.orders {
		c.orders[id] = o.Clone()
	}
	c.orderSeq = append([]uuid.UUID(nil), s.orderSeq...)
	for id, cart := range s.carts {
		c.carts[id] = cart.Clone()
	}
	for id, u := range s.users {
		cp := *u
		c.users[id] = &cp
	}
	for id, p := range s.products {
		cp := *p
		c.products[id] = &cp
	}
	for id, p := range s.partners {
		c.partners[id] = p.Clone()
	}
	for _, pc := range s.commissions {
		c.commissions = append(c.commissions, pc.Clone())
	}
	for _, e := range s.events {
		cp := *e
		c.events = append(c.events, &cp)
	}
	c.policies = append([]domain.CommissionPolicy(nil), s.policies...)
	return c
}

// MemoryStore is a thread-safe in-process Store. Transactions are serialised
// by a store-wide lock and rolled back by restoring a snapshot taken at
// begin.
type MemoryStore struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	state *memoryState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

func (s *MemoryStore) Orders() OrderRepository                  { return memoryOrders{s} }
func (s *MemoryStore) Carts() CartRepository                    { return memoryCarts{s} }
func (s *MemoryStore) Users() UserRepository                    { return memoryUsers{s} }
func (s *MemoryStore) Products() ProductRepository              { return memoryProducts{s} }
func (s *MemoryStore) Partners() PartnerRepository              { return memoryPartners{s} }
func (s *MemoryStore) Commissions() PartnerCommissionRepository { return memoryCommissions{s} }
func (s *MemoryStore) Events() OrderEventRepository             { return memoryEvents{s} }
func (s *MemoryStore) Policies() CommissionPolicyRepository     { return memoryPolicies{s} }

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	err := fn(memoryTx{s})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.mu.Lock()
		s.state = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// memoryTx is the Store handed to WithTx callbacks; nested WithTx calls join
// the running transaction.
type memoryTx struct {
	*MemoryStore
}

func (t memoryTx) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(t)
}

func (s *MemoryStore) read(fn func(st *memoryState)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.state)
}

func (s *MemoryStore) write(fn func(st *memoryState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// Seed helpers for records owned by other services.

func (s *MemoryStore) SaveUser(u domain.User) {
	s.write(func(st *memoryState) { st.users[u.ID] = &u })
}

func (s *MemoryStore) SaveProduct(p domain.Product) {
	s.write(func(st *memoryState) { st.products[p.ID] = &p })
}

func (s *MemoryStore) SaveCart(c domain.Cart) {
	s.write(func(st *memoryState) { st.carts[c.BuyerID] = c.Clone() })
}

func (s *MemoryStore) SavePartner(p domain.Partner) {
	s.write(func(st *memoryState) { st.partners[p.ID] = p.Clone() })
}

func (s *MemoryStore) SavePolicy(p domain.CommissionPolicy) {
	s.write(func(st *memoryState) { st.policies = append(st.policies, p) })
}

// Partner returns a copy of the stored partner, or nil.
func (s *MemoryStore) Partner(id uuid.UUID) *domain.Partner {
	var p *domain.Partner
	s.read(func(st *memoryState) {
		if found, ok := st.partners[id]; ok {
			p = found.Clone()
		}
	})
	return p
}

// OrderCount reports how many orders are stored.
func (s *MemoryStore) OrderCount() int {
	var n int
	s.read(func(st *memoryState) { n = len(st.orders) })
	return n
}

type memoryOrders struct{ s *MemoryStore }

func (r memoryOrders) CreateOrder(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var err error
	r.s.write(func(st *memoryState) {
		for _, o := range st.orders {
			if o.OrderNumber == order.OrderNumber {
				err = domain.ErrDuplicateOrderNumber
				return
			}
		}
		st.orders[order.ID] = order.Clone()
		st.orderSeq = append(st.orderSeq, order.ID)
	})
	return err
}

func (r memoryOrders) UpdateOrder(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var err error
	r.s.write(func(st *memoryState) {
		if _, ok := st.orders[order.ID]; !ok {
			err = domain.ErrOrderNotFound
			return
		}
		st.orders[order.ID] = order.Clone()
	})
	return err
}

func (r memoryOrders) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var order *domain.Order
	r.s.read(func(st *memoryState) {
		if o, ok := st.orders[orderID]; ok {
			order = o.Clone()
		}
	})
	return order, nil
}

// GetOrderForUpdate relies on the transaction lock for exclusivity.
func (r memoryOrders) GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return r.GetOrderByID(ctx, orderID)
}

func (r memoryOrders) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	var matched []*domain.Order
	r.s.read(func(st *memoryState) {
		for _, id := range st.orderSeq {
			if o := st.orders[id]; filter.Matches(o) {
				matched = append(matched, o.Clone())
			}
		}
	})

	filter.SortOrders(matched)
	total := len(matched)

	start := filter.Offset()
	if start > total {
		start = total
	}
	end := total
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

func (r memoryOrders) OrderTotals(ctx context.Context, buyerID uuid.UUID) (int, decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return 0, decimal.Zero, err
	}
	count, spent := 0, decimal.Zero
	r.s.read(func(st *memoryState) {
		for _, o := range st.orders {
			if buyerID != uuid.Nil && o.BuyerID != buyerID {
				continue
			}
			count++
			spent = spent.Add(o.Summary.Total)
		}
	})
	return count, spent, nil
}

type memoryCarts struct{ s *MemoryStore }

func (r memoryCarts) GetCartForUpdate(ctx context.Context, buyerID uuid.UUID) (*domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var cart *domain.Cart
	r.s.read(func(st *memoryState) {
		if c, ok := st.carts[buyerID]; ok {
			cart = c.Clone()
		}
	})
	return cart, nil
}

func (r memoryCarts) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.write(func(st *memoryState) {
		for buyer, c := range st.carts {
			if c.ID == cartID {
				delete(st.carts, buyer)
			}
		}
	})
	return nil
}

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var user *domain.User
	r.s.read(func(st *memoryState) {
		if u, ok := st.users[userID]; ok {
			cp := *u
			user = &cp
		}
	})
	return user, nil
}

type memoryProducts struct{ s *MemoryStore }

func (r memoryProducts) GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var product *domain.Product
	r.s.read(func(st *memoryState) {
		if p, ok := st.products[productID]; ok {
			cp := *p
			product = &cp
		}
	})
	return product, nil
}

type memoryPartners struct{ s *MemoryStore }

func (r memoryPartners) FindActiveByReferralCode(ctx context.Context, code string) (*domain.Partner, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var partner *domain.Partner
	r.s.read(func(st *memoryState) {
		for _, p := range st.partners {
			if strings.EqualFold(p.ReferralCode, code) && p.Eligible() {
				partner = p.Clone()
				return
			}
		}
	})
	return partner, nil
}

func (r memoryPartners) IncrementClicks(ctx context.Context, partnerID uuid.UUID, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.write(func(st *memoryState) {
		if p, ok := st.partners[partnerID]; ok {
			p.RecordClick(at)
		}
	})
	return nil
}

func (r memoryPartners) AddConversion(ctx context.Context, partnerID uuid.UUID, revenue, commission decimal.Decimal, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.write(func(st *memoryState) {
		if p, ok := st.partners[partnerID]; ok {
			p.RecordOrder(revenue, commission, at)
		}
	})
	return nil
}

type memoryCommissions struct{ s *MemoryStore }

func (r memoryCommissions) CreateCommissions(ctx context.Context, commissions []*domain.PartnerCommission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.write(func(st *memoryState) {
		for _, c := range commissions {
			st.commissions = append(st.commissions, c.Clone())
		}
	})
	return nil
}

func (r memoryCommissions) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.PartnerCommission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*domain.PartnerCommission
	r.s.read(func(st *memoryState) {
		for _, c := range st.commissions {
			if c.OrderID == orderID {
				out = append(out, c.Clone())
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ConvertedAt.Before(out[j].ConvertedAt) })
	return out, nil
}

func (r memoryCommissions) ConfirmPending(ctx context.Context, orderID uuid.UUID, at time.Time) (int, error) {
	return r.transition(ctx, orderID, func(c *domain.PartnerCommission) error { return c.Confirm(at) })
}

func (r memoryCommissions) CancelPending(ctx context.Context, orderID uuid.UUID, reason string, at time.Time) (int, error) {
	return r.transition(ctx, orderID, func(c *domain.PartnerCommission) error { return c.Cancel(reason, at) })
}

func (r memoryCommissions) transition(ctx context.Context, orderID uuid.UUID, apply func(*domain.PartnerCommission) error) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := 0
	r.s.write(func(st *memoryState) {
		for _, c := range st.commissions {
			if c.OrderID != orderID || c.Status != domain.PartnerCommissionPending {
				continue
			}
			if apply(c) == nil {
				n++
			}
		}
	})
	return n, nil
}

type memoryEvents struct{ s *MemoryStore }

func (r memoryEvents) AppendEvent(ctx context.Context, event *domain.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := *event
	r.s.write(func(st *memoryState) { st.events = append(st.events, &cp) })
	return nil
}

func (r memoryEvents) ListEvents(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*domain.OrderEvent
	r.s.read(func(st *memoryState) {
		for _, e := range st.events {
			if e.OrderID == orderID {
				cp := *e
				out = append(out, &cp)
			}
		}
	})
	return out, nil
}

type memoryPolicies struct{ s *MemoryStore }

func (r memoryPolicies) FindPolicies(ctx context.Context, sellerID, productID uuid.UUID) ([]domain.CommissionPolicy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []domain.CommissionPolicy
	r.s.read(func(st *memoryState) {
		for _, p := range st.policies {
			switch p.Source {
			case domain.CommissionSourceSeller:
				if p.SellerID == sellerID && (p.ProductID == uuid.Nil || p.ProductID == productID) {
					out = append(out, p)
				}
			case domain.CommissionSourceProduct:
				if p.ProductID == productID {
					out = append(out, p)
				}
			}
		}
	})
	return out, nil
}
