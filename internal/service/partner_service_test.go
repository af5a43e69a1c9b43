package service

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/o4o-platform/order-service/internal/domain"
	"github.com/o4o-platform/order-service/shared/events"
)

func (f *fixture) seedPartner(code string, status domain.PartnerStatus) domain.Partner {
	p := domain.Partner{
		ID:           uuid.New(),
		SellerID:     f.seller,
		ReferralCode: code,
		IsActive:     true,
		Status:       status,
	}
	f.store.SavePartner(p)
	return p
}

func (f *fixture) referredOrder(t *testing.T) (*domain.Order, uuid.UUID, uuid.UUID) {
	t.Helper()
	productP, productQ := uuid.New(), uuid.New()
	eight := decimal.NewFromInt(8)
	f.store.SaveProduct(domain.Product{ID: productP, Name: "P", PartnerCommissionRate: &eight})
	f.store.SaveProduct(domain.Product{ID: productQ, Name: "Q"})

	order, err := f.orders.CreateOrder(f.ctx, f.buyer.ID, f.exampleRequest(productP, productQ))
	require.NoError(t, err)
	return order, productP, productQ
}

func TestCreatePartnerCommissionsWithoutPartner(t *testing.T) {
	f := newFixture(t)
	order, _, _ := f.referredOrder(t)
	f.seedPartner("SUSPENDED", domain.PartnerStatusSuspended)

	for _, code := range []string{"", "  ", "UNKNOWN", "SUSPENDED"} {
		entries, err := f.partners.CreatePartnerCommissions(f.ctx, order, code)
		require.NoError(t, err, code)
		assert.Empty(t, entries, code)
	}

	list, err := f.partners.GetOrderCommissions(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreatePartnerCommissions(t *testing.T) {
	f := newFixture(t)
	order, productP, productQ := f.referredOrder(t)
	partner := domain.Partner{
		ID:           uuid.New(),
		SellerID:     uuid.New(),
		ReferralCode: "KIM2024",
		IsActive:     true,
		Status:       domain.PartnerStatusActive,
	}
	f.store.SavePartner(partner)

	entries, err := f.partners.CreatePartnerCommissions(f.ctx, order, "kim2024")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byProduct := map[uuid.UUID]*domain.PartnerCommission{}
	for _, e := range entries {
		byProduct[e.ProductID] = e
		assert.Equal(t, domain.PartnerCommissionPending, e.Status)
		assert.Equal(t, partner.ID, e.PartnerID)
		assert.Equal(t, partner.SellerID, e.SellerID, "entries belong to the partner's seller")
		assert.Equal(t, f.now, e.ConvertedAt)
	}
	assert.True(t, byProduct[productP].CommissionRate.Equal(dec(8)))
	assert.True(t, byProduct[productP].CommissionAmount.Equal(dec(4800)))
	assert.True(t, byProduct[productQ].CommissionRate.Equal(dec(5)), "default partner rate")
	assert.True(t, byProduct[productQ].CommissionAmount.Equal(dec(1250)))

	stored := f.store.Partner(partner.ID)
	assert.Equal(t, int64(1), stored.TotalOrders)
	assert.True(t, stored.TotalRevenue.Equal(dec(85000)))
	assert.True(t, stored.TotalCommission.Equal(dec(6050)))
	assert.Contains(t, f.publisher.types(), events.PartnerCommissionCreatedEvent)

	again, err := f.partners.CreatePartnerCommissions(f.ctx, order, "KIM2024")
	require.NoError(t, err)
	assert.Len(t, again, 2)
	assert.Equal(t, int64(1), f.store.Partner(partner.ID).TotalOrders)
}

func TestCreatePartnerCommissionsRequiresLiveOrder(t *testing.T) {
	f := newFixture(t)
	partner := f.seedPartner("REF", domain.PartnerStatusActive)

	order, _, _ := f.referredOrder(t)
	_, err := f.orders.CancelOrder(f.ctx, order.ID, "changed mind")
	require.NoError(t, err)

	entries, err := f.partners.CreatePartnerCommissions(f.ctx, order, "REF")
	assert.True(t, errors.Is(err, domain.ErrOrderNotCommissionable))
	assert.Nil(t, entries)

	ghost, _, _ := f.referredOrder(t)
	ghost.ID = uuid.New()
	entries, err = f.partners.CreatePartnerCommissions(f.ctx, ghost, "REF")
	assert.True(t, errors.Is(err, domain.ErrOrderNotFound))
	assert.Nil(t, entries)

	list, err := f.partners.GetOrderCommissions(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, int64(0), f.store.Partner(partner.ID).TotalOrders)
}

func TestCreatePartnerCommissionsPricesStoredItems(t *testing.T) {
	f := newFixture(t)
	f.seedPartner("REF", domain.PartnerStatusActive)
	order, _, _ := f.referredOrder(t)

	tampered := order.Clone()
	tampered.Items[0].TotalPrice = dec(1)

	entries, err := f.partners.CreatePartnerCommissions(f.ctx, tampered, "REF")
	require.NoError(t, err)
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.OrderAmount)
	}
	assert.True(t, total.Equal(dec(85000)), "priced from the stored order, got %s", total)
}

func TestCreatePartnerCommissionsSkipsUnknownProducts(t *testing.T) {
	f := newFixture(t)
	f.seedPartner("REF", domain.PartnerStatusActive)
	order := f.placeOrder(t)

	entries, err := f.partners.CreatePartnerCommissions(f.ctx, order, "REF")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConfirmAndCancelPartnerCommissions(t *testing.T) {
	f := newFixture(t)
	order, _, _ := f.referredOrder(t)
	f.seedPartner("REF", domain.PartnerStatusActive)

	_, err := f.partners.CreatePartnerCommissions(f.ctx, order, "REF")
	require.NoError(t, err)

	confirmed, err := f.partners.ConfirmPartnerCommissions(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, confirmed)

	cancelled, err := f.partners.CancelPartnerCommissions(f.ctx, order.ID, "order returned")
	require.NoError(t, err)
	assert.Equal(t, 0, cancelled)

	list, err := f.partners.GetOrderCommissions(f.ctx, order.ID)
	require.NoError(t, err)
	for _, c := range list {
		assert.Equal(t, domain.PartnerCommissionConfirmed, c.Status)
		assert.Nil(t, c.CancelledAt)
	}
}

func TestCancelPartnerCommissionsPending(t *testing.T) {
	f := newFixture(t)
	order, _, _ := f.referredOrder(t)
	f.seedPartner("REF", domain.PartnerStatusActive)

	_, err := f.partners.CreatePartnerCommissions(f.ctx, order, "REF")
	require.NoError(t, err)

	cancelled, err := f.partners.CancelPartnerCommissions(f.ctx, order.ID, "order cancelled")
	require.NoError(t, err)
	assert.Equal(t, 2, cancelled)

	list, err := f.partners.GetOrderCommissions(f.ctx, order.ID)
	require.NoError(t, err)
	for _, c := range list {
		assert.Equal(t, domain.PartnerCommissionCancelled, c.Status)
		assert.Equal(t, "order cancelled", c.CancellationReason)
	}
}

func TestTrackReferralClick(t *testing.T) {
	f := newFixture(t)
	partner := f.seedPartner("CLICK", domain.PartnerStatusActive)

	assert.True(t, f.partners.TrackReferralClick(f.ctx, "CLICK", map[string]string{"userAgent": "test"}))
	assert.True(t, f.partners.TrackReferralClick(f.ctx, "click", nil))
	assert.False(t, f.partners.TrackReferralClick(f.ctx, "", nil))
	assert.False(t, f.partners.TrackReferralClick(f.ctx, "NOPE", nil))

	stored := f.store.Partner(partner.ID)
	assert.Equal(t, int64(2), stored.TotalClicks)
	require.NotNil(t, stored.LastClickAt)
	assert.Equal(t, f.now, *stored.LastClickAt)
}
