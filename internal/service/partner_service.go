package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/o4o-platform/order-service/internal/domain"
	"github.com/o4o-platform/order-service/internal/repository"
	apperrors "github.com/o4o-platform/order-service/shared/errors"
	"github.com/o4o-platform/order-service/shared/events"
)

// PartnerService keeps the referral commission ledger.
type PartnerService struct {
	store       repository.Store
	notifier    notifier
	defaultRate decimal.Decimal
	logger      *zap.Logger
	now         func() time.Time
}

func NewPartnerService(store repository.Store, publisher EventPublisher, defaultRate decimal.Decimal, logger *zap.Logger) *PartnerService {
	return &PartnerService{
		store:       store,
		notifier:    notifier{publisher: publisher, logger: logger},
		defaultRate: defaultRate,
		logger:      logger,
		now:         time.Now,
	}
}

// CreatePartnerCommissions records one pending commission per order item for
// the partner behind referralCode. An empty or unknown code yields no entries.
// Calling it again for the same order returns the existing entries. Cancelled
// and returned orders earn nothing.
func (s *PartnerService) CreatePartnerCommissions(ctx context.Context, order *domain.Order, referralCode string) ([]*domain.PartnerCommission, error) {
	referralCode = strings.TrimSpace(referralCode)
	if referralCode == "" {
		return []*domain.PartnerCommission{}, nil
	}

	partner, err := s.store.Partners().FindActiveByReferralCode(ctx, referralCode)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		s.logger.Info("referral code does not match an active partner", zap.String("referralCode", referralCode))
		return []*domain.PartnerCommission{}, nil
	}

	now := s.now()
	var (
		entries    []*domain.PartnerCommission
		existing   []*domain.PartnerCommission
		revenue    = decimal.Zero
		commission = decimal.Zero
	)
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		// The order row lock serialises concurrent calls for one order, and
		// the locked row is what gets priced.
		locked, err := tx.Orders().GetOrderForUpdate(ctx, order.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return domain.ErrOrderNotFound
		}
		if locked.Status.Terminal() {
			return apperrors.Wrap(domain.ErrOrderNotCommissionable.Code, domain.ErrOrderNotCommissionable.Message,
				fmt.Errorf("order %s is %s", locked.ID, locked.Status))
		}

		existing, err = tx.Commissions().ListByOrder(ctx, locked.ID)
		if err != nil || len(existing) > 0 {
			return err
		}

		for _, item := range locked.Items {
			product, err := tx.Products().GetProduct(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				s.logger.Warn("product not found for partner commission",
					zap.String("orderId", locked.ID.String()),
					zap.String("productId", item.ProductID.String()))
				continue
			}

			entry := domain.NewPartnerCommission(partner, locked.ID, item, product.PartnerRate(s.defaultRate), now)
			entries = append(entries, entry)
			revenue = revenue.Add(entry.OrderAmount)
			commission = commission.Add(entry.CommissionAmount)
		}
		if len(entries) == 0 {
			return nil
		}

		if err := tx.Commissions().CreateCommissions(ctx, entries); err != nil {
			return err
		}
		return tx.Partners().AddConversion(ctx, partner.ID, revenue, commission, now)
	})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}
	if len(entries) == 0 {
		return []*domain.PartnerCommission{}, nil
	}

	s.logger.Info("partner commissions created",
		zap.String("orderId", order.ID.String()),
		zap.String("partnerId", partner.ID.String()),
		zap.Int("entries", len(entries)),
		zap.String("totalCommission", commission.String()))

	s.notifier.publish(ctx, order.ID, events.PartnerCommissionCreatedEvent, events.PartnerCommissionCreatedPayload{
		PartnerID:       partner.ID,
		ReferralCode:    partner.ReferralCode,
		Entries:         len(entries),
		TotalCommission: commission,
	})
	return entries, nil
}

// ConfirmPartnerCommissions confirms the order's pending entries.
func (s *PartnerService) ConfirmPartnerCommissions(ctx context.Context, orderID uuid.UUID) (int, error) {
	var n int
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		n, err = tx.Commissions().ConfirmPending(ctx, orderID, s.now())
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("partner commissions confirmed", zap.String("orderId", orderID.String()), zap.Int("count", n))
	return n, nil
}

// CancelPartnerCommissions cancels the order's pending entries. Confirmed
// entries are left as they are.
func (s *PartnerService) CancelPartnerCommissions(ctx context.Context, orderID uuid.UUID, reason string) (int, error) {
	var n int
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		n, err = tx.Commissions().CancelPending(ctx, orderID, reason, s.now())
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("partner commissions cancelled",
		zap.String("orderId", orderID.String()),
		zap.Int("count", n),
		zap.String("reason", reason))
	return n, nil
}

// TrackReferralClick counts a click for code. It reports false for unknown
// codes and for lookup or store failures, which are logged.
func (s *PartnerService) TrackReferralClick(ctx context.Context, code string, metadata map[string]string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}

	partner, err := s.store.Partners().FindActiveByReferralCode(ctx, code)
	if err != nil {
		s.logger.Error("referral click lookup failed", zap.String("referralCode", code), zap.Error(err))
		return false
	}
	if partner == nil {
		return false
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		return tx.Partners().IncrementClicks(ctx, partner.ID, s.now())
	})
	if err != nil {
		s.logger.Error("referral click update failed", zap.String("partnerId", partner.ID.String()), zap.Error(err))
		return false
	}

	fields := []zap.Field{zap.String("partnerId", partner.ID.String()), zap.String("referralCode", code)}
	for k, v := range metadata {
		fields = append(fields, zap.String(k, v))
	}
	s.logger.Debug("referral click tracked", fields...)
	return true
}

func (s *PartnerService) GetOrderCommissions(ctx context.Context, orderID uuid.UUID) ([]*domain.PartnerCommission, error) {
	commissions, err := s.store.Commissions().ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if commissions == nil {
		commissions = []*domain.PartnerCommission{}
	}
	return commissions, nil
}
