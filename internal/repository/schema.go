package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied on startup. Users, products and carts mirror tables owned
// by the platform's user and catalog services.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	role       TEXT NOT NULL DEFAULT 'customer',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS products (
	id                      UUID PRIMARY KEY,
	name                    TEXT NOT NULL,
	sku                     TEXT NOT NULL DEFAULT '',
	price                   NUMERIC(14,2) NOT NULL DEFAULT 0,
	supplier_id             UUID,
	supplier_name           TEXT NOT NULL DEFAULT '',
	partner_commission_rate NUMERIC(6,2)
);

CREATE TABLE IF NOT EXISTS carts (
	id         UUID PRIMARY KEY,
	buyer_id   UUID NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS cart_items (
	id             UUID PRIMARY KEY,
	cart_id        UUID NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
	product_id     UUID NOT NULL REFERENCES products(id),
	quantity       INTEGER NOT NULL,
	unit_price     NUMERIC(14,2) NOT NULL,
	variation_name TEXT NOT NULL DEFAULT '',
	seller_id      UUID,
	seller_name    TEXT NOT NULL DEFAULT '',
	product_image  TEXT NOT NULL DEFAULT '',
	product_brand  TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS orders (
	id                  UUID PRIMARY KEY,
	order_number        TEXT NOT NULL UNIQUE,
	buyer_id            UUID NOT NULL,
	buyer_name          TEXT NOT NULL,
	buyer_email         TEXT NOT NULL,
	buyer_type          TEXT NOT NULL DEFAULT '',
	subtotal            NUMERIC(14,2) NOT NULL,
	discount            NUMERIC(14,2) NOT NULL DEFAULT 0,
	shipping            NUMERIC(14,2) NOT NULL DEFAULT 0,
	tax                 NUMERIC(14,2) NOT NULL DEFAULT 0,
	total               NUMERIC(14,2) NOT NULL,
	billing_address     JSONB NOT NULL,
	shipping_address    JSONB NOT NULL,
	payment_method      TEXT NOT NULL DEFAULT '',
	notes               TEXT NOT NULL DEFAULT '',
	customer_notes      TEXT NOT NULL DEFAULT '',
	status              TEXT NOT NULL,
	payment_status      TEXT NOT NULL,
	order_date          TIMESTAMPTZ NOT NULL,
	confirmed_date      TIMESTAMPTZ,
	shipping_date       TIMESTAMPTZ,
	delivery_date       TIMESTAMPTZ,
	cancelled_date      TIMESTAMPTZ,
	payment_date        TIMESTAMPTZ,
	refund_date         TIMESTAMPTZ,
	cancellation_reason TEXT NOT NULL DEFAULT '',
	return_reason       TEXT NOT NULL DEFAULT '',
	refund_amount       NUMERIC(14,2),
	shipping_carrier    TEXT NOT NULL DEFAULT '',
	tracking_number     TEXT NOT NULL DEFAULT '',
	tracking_url        TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_buyer_id ON orders (buyer_id);
CREATE INDEX IF NOT EXISTS idx_orders_order_date ON orders (order_date);

CREATE TABLE IF NOT EXISTS order_items (
	id                UUID PRIMARY KEY,
	order_id          UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	position          INTEGER NOT NULL,
	product_id        UUID NOT NULL,
	product_name      TEXT NOT NULL,
	product_sku       TEXT NOT NULL DEFAULT '',
	product_image     TEXT NOT NULL DEFAULT '',
	product_brand     TEXT NOT NULL DEFAULT '',
	variation_name    TEXT NOT NULL DEFAULT '',
	quantity          INTEGER NOT NULL CHECK (quantity > 0),
	unit_price        NUMERIC(14,2) NOT NULL CHECK (unit_price >= 0),
	total_price       NUMERIC(14,2) NOT NULL,
	seller_id         UUID,
	seller_name       TEXT NOT NULL DEFAULT '',
	supplier_id       UUID,
	supplier_name     TEXT NOT NULL DEFAULT '',
	commission_type   TEXT NOT NULL DEFAULT '',
	commission_rate   NUMERIC(14,2),
	commission_amount NUMERIC(14,2),
	commission_source TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items (order_id);
CREATE INDEX IF NOT EXISTS idx_order_items_seller_id ON order_items (seller_id);
CREATE INDEX IF NOT EXISTS idx_order_items_supplier_id ON order_items (supplier_id);

CREATE TABLE IF NOT EXISTS order_events (
	id          UUID PRIMARY KEY,
	order_id    UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	type        TEXT NOT NULL,
	prev_status TEXT NOT NULL DEFAULT '',
	new_status  TEXT NOT NULL DEFAULT '',
	message     TEXT NOT NULL DEFAULT '',
	actor_id    UUID,
	actor_name  TEXT NOT NULL DEFAULT '',
	actor_role  TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL DEFAULT 'system',
	payload     JSONB,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_events_order_id ON order_events (order_id);

CREATE TABLE IF NOT EXISTS partners (
	id               UUID PRIMARY KEY,
	seller_id        UUID NOT NULL,
	referral_code    TEXT NOT NULL UNIQUE,
	is_active        BOOLEAN NOT NULL DEFAULT TRUE,
	status           TEXT NOT NULL DEFAULT 'pending',
	total_clicks     BIGINT NOT NULL DEFAULT 0,
	total_orders     BIGINT NOT NULL DEFAULT 0,
	total_revenue    NUMERIC(16,2) NOT NULL DEFAULT 0,
	total_commission NUMERIC(16,2) NOT NULL DEFAULT 0,
	last_click_at    TIMESTAMPTZ,
	last_order_at    TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS partner_commissions (
	id                  UUID PRIMARY KEY,
	partner_id          UUID NOT NULL REFERENCES partners(id),
	order_id            UUID NOT NULL REFERENCES orders(id),
	product_id          UUID NOT NULL,
	seller_id           UUID,
	referral_code       TEXT NOT NULL,
	order_amount        NUMERIC(14,2) NOT NULL,
	product_price       NUMERIC(14,2) NOT NULL,
	quantity            INTEGER NOT NULL,
	commission_rate     NUMERIC(6,2) NOT NULL,
	commission_amount   NUMERIC(14,2) NOT NULL,
	status              TEXT NOT NULL DEFAULT 'pending',
	converted_at        TIMESTAMPTZ NOT NULL,
	confirmed_at        TIMESTAMPTZ,
	cancelled_at        TIMESTAMPTZ,
	cancellation_reason TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_partner_commissions_order_id ON partner_commissions (order_id);

CREATE TABLE IF NOT EXISTS commission_policies (
	id         UUID PRIMARY KEY,
	source     TEXT NOT NULL CHECK (source IN ('seller', 'product')),
	seller_id  UUID,
	product_id UUID,
	type       TEXT NOT NULL CHECK (type IN ('rate', 'fixed')),
	value      NUMERIC(14,2) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_commission_policies_seller ON commission_policies (seller_id);
CREATE INDEX IF NOT EXISTS idx_commission_policies_product ON commission_policies (product_id);
`

func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("schema migration error: %w", err)
	}
	return nil
}
