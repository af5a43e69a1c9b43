package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/o4o-platform/order-service/internal/domain"
	apperrors "github.com/o4o-platform/order-service/shared/errors"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type PostgresStore struct {
	db   *sql.DB
	q    DBTX
	inTx bool
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

func (s *PostgresStore) Orders() OrderRepository                  { return &orderRepository{q: s.q} }
func (s *PostgresStore) Carts() CartRepository                    { return &cartRepository{q: s.q} }
func (s *PostgresStore) Users() UserRepository                    { return &userRepository{q: s.q} }
func (s *PostgresStore) Products() ProductRepository              { return &productRepository{q: s.q} }
func (s *PostgresStore) Partners() PartnerRepository              { return &partnerRepository{q: s.q} }
func (s *PostgresStore) Commissions() PartnerCommissionRepository { return &commissionRepository{q: s.q} }
func (s *PostgresStore) Events() OrderEventRepository             { return &eventRepository{q: s.q} }
func (s *PostgresStore) Policies() CommissionPolicyRepository     { return &policyRepository{q: s.q} }

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbError("transaction begin error", err)
	}

	if err := fn(&PostgresStore{db: s.db, q: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback error: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return dbError("transaction commit error", err)
	}
	return nil
}

const uniqueViolation = "23505"

// dbError maps driver errors to coded errors. Unique violations become
// conflicts; everything else is a database error.
func dbError(message string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return apperrors.Wrap(apperrors.ErrCodeConflict, message, err)
	}
	return apperrors.Wrap(apperrors.ErrCodeDatabaseError, message, err)
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

type userRepository struct{ q DBTX }

func (r *userRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	query := `SELECT id, name, email, role, created_at FROM users WHERE id = $1`

	var u domain.User
	err := r.q.QueryRowContext(ctx, query, userID).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError("user receive error", err)
	}
	return &u, nil
}

type productRepository struct{ q DBTX }

func (r *productRepository) GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, name, sku, price, supplier_id, supplier_name, partner_commission_rate
		FROM products
		WHERE id = $1
	`

	var (
		p        domain.Product
		supplier uuid.NullUUID
		rate     decimal.NullDecimal
	)
	err := r.q.QueryRowContext(ctx, query, productID).Scan(
		&p.ID, &p.Name, &p.SKU, &p.Price, &supplier, &p.SupplierName, &rate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError("product receive error", err)
	}
	p.SupplierID = supplier.UUID
	p.PartnerCommissionRate = decimalPtr(rate)
	return &p, nil
}

type cartRepository struct{ q DBTX }

func (r *cartRepository) GetCartForUpdate(ctx context.Context, buyerID uuid.UUID) (*domain.Cart, error) {
	cart := &domain.Cart{}
	err := r.q.QueryRowContext(ctx,
		`SELECT id, buyer_id, created_at, updated_at FROM carts WHERE buyer_id = $1 FOR UPDATE`,
		buyerID,
	).Scan(&cart.ID, &cart.BuyerID, &cart.CreatedAt, &cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError("cart receive error", err)
	}

	query := `
		SELECT ci.id, ci.product_id, ci.quantity, ci.unit_price, ci.variation_name,
			   ci.seller_id, ci.seller_name, p.name, p.sku, ci.product_image, ci.product_brand,
			   p.supplier_id, p.supplier_name
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id
		FOR UPDATE OF ci
	`
	rows, err := r.q.QueryContext(ctx, query, cart.ID)
	if err != nil {
		return nil, dbError("cart items receive error", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item             domain.CartItem
			seller, supplier uuid.NullUUID
		)
		if err := rows.Scan(
			&item.ID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.VariationName,
			&seller, &item.SellerName, &item.Product.Name, &item.Product.SKU, &item.Product.Image,
			&item.Product.Brand, &supplier, &item.Product.SupplierName,
		); err != nil {
			return nil, dbError("cart item scan error", err)
		}
		item.SellerID = seller.UUID
		item.Product.SupplierID = supplier.UUID
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("cart items receive error", err)
	}
	return cart, nil
}

func (r *cartRepository) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return dbError("cart items delete error", err)
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		return dbError("cart delete error", err)
	}
	return nil
}

type policyRepository struct{ q DBTX }

func (r *policyRepository) FindPolicies(ctx context.Context, sellerID, productID uuid.UUID) ([]domain.CommissionPolicy, error) {
	query := `
		SELECT id, source, seller_id, product_id, type, value
		FROM commission_policies
		WHERE (source = 'seller' AND seller_id = $1 AND (product_id IS NULL OR product_id = $2))
		   OR (source = 'product' AND product_id = $2)
		ORDER BY created_at
	`

	rows, err := r.q.QueryContext(ctx, query, nullUUID(sellerID), productID)
	if err != nil {
		return nil, dbError("commission policy receive error", err)
	}
	defer rows.Close()

	var policies []domain.CommissionPolicy
	for rows.Next() {
		var (
			p               domain.CommissionPolicy
			seller, product uuid.NullUUID
		)
		if err := rows.Scan(&p.ID, &p.Source, &seller, &product, &p.Type, &p.Value); err != nil {
			return nil, dbError("commission policy scan error", err)
		}
		p.SellerID = seller.UUID
		p.ProductID = product.UUID
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("commission policy receive error", err)
	}
	return policies, nil
}
