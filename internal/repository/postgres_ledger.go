package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/o4o-platform/order-service/internal/domain"
)

type partnerRepository struct{ q DBTX }

func (r *partnerRepository) FindActiveByReferralCode(ctx context.Context, code string) (*domain.Partner, error) {
	query := `
		SELECT id, seller_id, referral_code, is_active, status, total_clicks, total_orders,
			   total_revenue, total_commission, last_click_at, last_order_at, created_at, updated_at
		FROM partners
		WHERE UPPER(referral_code) = UPPER($1) AND is_active AND status = $2
	`

	var p domain.Partner
	err := r.q.QueryRowContext(ctx, query, code, string(domain.PartnerStatusActive)).Scan(
		&p.ID, &p.SellerID, &p.ReferralCode, &p.IsActive, &p.Status, &p.TotalClicks, &p.TotalOrders,
		&p.TotalRevenue, &p.TotalCommission, &p.LastClickAt, &p.LastOrderAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError("partner receive error", err)
	}
	return &p, nil
}

func (r *partnerRepository) IncrementClicks(ctx context.Context, partnerID uuid.UUID, at time.Time) error {
	query := `
		UPDATE partners
		SET total_clicks = total_clicks + 1, last_click_at = $2, updated_at = $2
		WHERE id = $1
	`
	if _, err := r.q.ExecContext(ctx, query, partnerID, at); err != nil {
		return dbError("partner click update error", err)
	}
	return nil
}

func (r *partnerRepository) AddConversion(ctx context.Context, partnerID uuid.UUID, revenue, commission decimal.Decimal, at time.Time) error {
	query := `
		UPDATE partners
		SET total_orders = total_orders + 1,
			total_revenue = total_revenue + $2,
			total_commission = total_commission + $3,
			last_order_at = $4, updated_at = $4
		WHERE id = $1
	`
	if _, err := r.q.ExecContext(ctx, query, partnerID, revenue, commission, at); err != nil {
		return dbError("partner conversion update error", err)
	}
	return nil
}

type commissionRepository struct{ q DBTX }

const commissionColumns = `
	id, partner_id, order_id, product_id, seller_id, referral_code, order_amount, product_price,
	quantity, commission_rate, commission_amount, status, converted_at, confirmed_at, cancelled_at,
	cancellation_reason`

func (r *commissionRepository) CreateCommissions(ctx context.Context, commissions []*domain.PartnerCommission) error {
	query := `INSERT INTO partner_commissions (` + commissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	for _, c := range commissions {
		_, err := r.q.ExecContext(ctx, query,
			c.ID, c.PartnerID, c.OrderID, c.ProductID, nullUUID(c.SellerID), c.ReferralCode,
			c.OrderAmount, c.ProductPrice, c.Quantity, c.CommissionRate, c.CommissionAmount,
			string(c.Status), c.ConvertedAt, c.ConfirmedAt, c.CancelledAt, c.CancellationReason,
		)
		if err != nil {
			return dbError("partner commission creation error", err)
		}
	}
	return nil
}

func (r *commissionRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.PartnerCommission, error) {
	query := `SELECT ` + commissionColumns + ` FROM partner_commissions WHERE order_id = $1 ORDER BY converted_at, id`

	rows, err := r.q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, dbError("partner commission receive error", err)
	}
	defer rows.Close()

	var out []*domain.PartnerCommission
	for rows.Next() {
		var (
			c      domain.PartnerCommission
			seller uuid.NullUUID
		)
		if err := rows.Scan(
			&c.ID, &c.PartnerID, &c.OrderID, &c.ProductID, &seller, &c.ReferralCode, &c.OrderAmount,
			&c.ProductPrice, &c.Quantity, &c.CommissionRate, &c.CommissionAmount, &c.Status,
			&c.ConvertedAt, &c.ConfirmedAt, &c.CancelledAt, &c.CancellationReason,
		); err != nil {
			return nil, dbError("partner commission scan error", err)
		}
		c.SellerID = seller.UUID
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("partner commission receive error", err)
	}
	return out, nil
}

func (r *commissionRepository) ConfirmPending(ctx context.Context, orderID uuid.UUID, at time.Time) (int, error) {
	query := `
		UPDATE partner_commissions
		SET status = $2, confirmed_at = $3
		WHERE order_id = $1 AND status = $4
	`
	return r.exec(ctx, query, orderID, string(domain.PartnerCommissionConfirmed), at, string(domain.PartnerCommissionPending))
}

func (r *commissionRepository) CancelPending(ctx context.Context, orderID uuid.UUID, reason string, at time.Time) (int, error) {
	query := `
		UPDATE partner_commissions
		SET status = $2, cancelled_at = $3, cancellation_reason = $4
		WHERE order_id = $1 AND status = $5
	`
	return r.exec(ctx, query, orderID, string(domain.PartnerCommissionCancelled), at, reason, string(domain.PartnerCommissionPending))
}

func (r *commissionRepository) exec(ctx context.Context, query string, args ...interface{}) (int, error) {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, dbError("partner commission update error", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, dbError("partner commission update error", err)
	}
	return int(n), nil
}

type eventRepository struct{ q DBTX }

func (r *eventRepository) AppendEvent(ctx context.Context, event *domain.OrderEvent) error {
	query := `
		INSERT INTO order_events (
			id, order_id, type, prev_status, new_status, message,
			actor_id, actor_name, actor_role, source, payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var payload interface{}
	if len(event.Payload) > 0 {
		payload = []byte(event.Payload)
	}

	_, err := r.q.ExecContext(ctx, query,
		event.ID, event.OrderID, string(event.Type), event.PrevStatus, event.NewStatus, event.Message,
		nullUUID(event.ActorID), event.ActorName, event.ActorRole, event.Source, payload, event.CreatedAt,
	)
	if err != nil {
		return dbError("order event creation error", err)
	}
	return nil
}

func (r *eventRepository) ListEvents(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderEvent, error) {
	query := `
		SELECT id, order_id, type, prev_status, new_status, message,
			   actor_id, actor_name, actor_role, source, payload, created_at
		FROM order_events
		WHERE order_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, dbError("order event receive error", err)
	}
	defer rows.Close()

	var out []*domain.OrderEvent
	for rows.Next() {
		var (
			e       domain.OrderEvent
			actor   uuid.NullUUID
			payload []byte
		)
		if err := rows.Scan(
			&e.ID, &e.OrderID, &e.Type, &e.PrevStatus, &e.NewStatus, &e.Message,
			&actor, &e.ActorName, &e.ActorRole, &e.Source, &payload, &e.CreatedAt,
		); err != nil {
			return nil, dbError("order event scan error", err)
		}
		e.ActorID = actor.UUID
		e.Payload = payload
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("order event receive error", err)
	}
	return out, nil
}
