package postgres

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	product_code TEXT NOT NULL UNIQUE,
	stock        INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
	price_tiers  JSONB NOT NULL DEFAULT '[]'::jsonb,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS members (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	discount        NUMERIC(5,2) NOT NULL DEFAULT 0,
	membership_type TEXT NOT NULL,
	phone           TEXT
);

CREATE TABLE IF NOT EXISTS attendants (
	id     TEXT PRIMARY KEY,
	name   TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS sales (
	id                  TEXT PRIMARY KEY,
	idempotency_key     TEXT NOT NULL UNIQUE,
	terminal_id         TEXT,
	cashier_id          TEXT NOT NULL,
	attendant_id        TEXT,
	member_id           TEXT,
	transaction_type    TEXT NOT NULL,
	sub_total           BIGINT NOT NULL,
	item_discount       BIGINT NOT NULL,
	member_discount     NUMERIC(18,4) NOT NULL,
	additional_discount NUMERIC(18,4) NOT NULL,
	total_discount      NUMERIC(18,4) NOT NULL,
	tax                 NUMERIC(18,4) NOT NULL DEFAULT 0,
	grand_total         BIGINT NOT NULL,
	payment             BIGINT NOT NULL,
	change_amount       BIGINT NOT NULL,
	receivable_id       TEXT,
	created_at          TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sale_items (
	id             BIGSERIAL PRIMARY KEY,
	sale_id        TEXT NOT NULL REFERENCES sales(id),
	product_id     TEXT NOT NULL,
	product_name   TEXT NOT NULL,
	product_code   TEXT NOT NULL,
	quantity       INTEGER NOT NULL,
	original_price BIGINT NOT NULL,
	unit_price     BIGINT NOT NULL,
	unit_discount  BIGINT NOT NULL,
	subtotal       BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS suspended_sales (
	id          TEXT PRIMARY KEY,
	label       TEXT NOT NULL DEFAULT '',
	notes       TEXT NOT NULL DEFAULT '',
	lines       JSONB NOT NULL,
	member_id   TEXT,
	cashier_id  TEXT,
	terminal_id TEXT,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS receivables (
	id          TEXT PRIMARY KEY,
	member_id   TEXT NOT NULL,
	member_name TEXT NOT NULL,
	sale_id     TEXT NOT NULL,
	amount_due  BIGINT NOT NULL,
	amount_paid BIGINT NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	CHECK (amount_paid >= 0 AND amount_paid <= amount_due)
);

CREATE INDEX IF NOT EXISTS receivables_status_idx ON receivables (status, created_at DESC);

CREATE TABLE IF NOT EXISTS receivable_payments (
	id            TEXT PRIMARY KEY,
	receivable_id TEXT NOT NULL REFERENCES receivables(id),
	amount        BIGINT NOT NULL CHECK (amount > 0),
	cashier_id    TEXT,
	paid_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id             TEXT PRIMARY KEY,
	actor_username TEXT NOT NULL,
	actor_role     TEXT NOT NULL,
	action         TEXT NOT NULL,
	entity_type    TEXT NOT NULL,
	entity_id      TEXT NOT NULL,
	detail         TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS app_users (
	username   TEXT PRIMARY KEY,
	password   TEXT NOT NULL,
	role       TEXT NOT NULL,
	active     BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates any missing tables. It is safe to run on every start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// EnsureGeneralMember inserts the walk-in customer row if it is missing.
func (s *Store) EnsureGeneralMember(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, name, discount, membership_type)
		VALUES ($1, 'Pelanggan Umum', 0, 'GENERAL')
		ON CONFLICT (id) DO NOTHING
	`, id)
	return err
}

// EnsureAdmin creates an admin account when app_users is empty. The stored
// password may be plain text; it is rehashed on the first user load.
func (s *Store) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at)
		SELECT $1, $2, 'admin', true, now()
		WHERE NOT EXISTS (SELECT 1 FROM app_users)
	`, username, password)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
