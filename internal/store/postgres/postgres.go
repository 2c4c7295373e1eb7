package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tokokasir/internal/domain"
	"tokokasir/internal/store"
	"tokokasir/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

const productColumns = `id, name, product_code, stock, price_tiers`

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var tiersRaw []byte
	if err := row.Scan(&p.ID, &p.Name, &p.ProductCode, &p.Stock, &tiersRaw); err != nil {
		return domain.Product{}, err
	}
	if len(tiersRaw) > 0 {
		if err := json.Unmarshal(tiersRaw, &p.PriceTiers); err != nil {
			return domain.Product{}, fmt.Errorf("decode price tiers of %s: %w", p.ID, err)
		}
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	if limit < 1 {
		limit = 50
	}
	pattern := "%" + strings.TrimSpace(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE name ILIKE $1 OR product_code ILIKE $1
		ORDER BY name
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, ref string) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1 OR lower(product_code) = lower($1)
		ORDER BY (id = $1) DESC
		LIMIT 1
	`, ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) ListMembers(ctx context.Context, query string, limit int) ([]domain.Member, error) {
	if limit < 1 {
		limit = 50
	}
	pattern := "%" + strings.TrimSpace(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, discount, membership_type, COALESCE(phone, '')
		FROM members
		WHERE name ILIKE $1 OR COALESCE(phone, '') ILIKE $1
		ORDER BY name
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]domain.Member, 0, limit)
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Discount, &m.MembershipType, &m.Phone); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

func (s *Store) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	var m domain.Member
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, discount, membership_type, COALESCE(phone, '')
		FROM members
		WHERE id = $1
	`, id).Scan(&m.ID, &m.Name, &m.Discount, &m.MembershipType, &m.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListAttendants(ctx context.Context) ([]domain.Attendant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name
		FROM attendants
		WHERE active = true
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attendants := make([]domain.Attendant, 0, 16)
	for rows.Next() {
		var a domain.Attendant
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, err
		}
		attendants = append(attendants, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attendants, nil
}

func (s *Store) FindSaleByIdempotency(ctx context.Context, key string) (*domain.Sale, error) {
	return s.findSale(ctx, "idempotency_key", key)
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	return s.findSale(ctx, "id", id)
}

func (s *Store) findSale(ctx context.Context, column string, value string) (*domain.Sale, error) {
	if column != "id" && column != "idempotency_key" {
		return nil, fmt.Errorf("unsupported lookup column")
	}

	var sale domain.Sale
	var terminalID, attendantID, memberID, receivableID sql.NullString

	query := fmt.Sprintf(`
		SELECT id, idempotency_key, terminal_id, cashier_id, attendant_id, member_id,
			transaction_type, sub_total, item_discount, member_discount, additional_discount,
			total_discount, tax, grand_total, payment, change_amount, receivable_id, created_at
		FROM sales
		WHERE %s = $1
	`, column)

	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&sale.ID,
		&sale.IdempotencyKey,
		&terminalID,
		&sale.CashierID,
		&attendantID,
		&memberID,
		&sale.TransactionType,
		&sale.Totals.SubTotal,
		&sale.Totals.ItemDiscount,
		&sale.Totals.MemberDiscount,
		&sale.Totals.AdditionalDiscount,
		&sale.Totals.TotalDiscount,
		&sale.Totals.Tax,
		&sale.Totals.GrandTotal,
		&sale.Payment,
		&sale.Change,
		&receivableID,
		&sale.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.TerminalID = terminalID.String
	sale.AttendantID = attendantID.String
	sale.MemberID = memberID.String
	sale.ReceivableID = receivableID.String
	sale.CreatedAt = sale.CreatedAt.UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, product_code, quantity, original_price, unit_price, unit_discount, subtotal
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY id ASC
	`, sale.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SaleItem, 0, 8)
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.ProductCode, &item.Quantity,
			&item.OriginalPrice, &item.UnitPrice, &item.UnitDiscount, &item.Subtotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sale.Items = items

	return &sale, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale, receivable *domain.Receivable) (*domain.Sale, error) {
	if sale.IdempotencyKey == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidTransaction
	}
	if existing, err := s.FindSaleByIdempotency(ctx, sale.IdempotencyKey); err == nil {
		existing.Duplicate = true
		return existing, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	demand := make(map[string]int, len(sale.Items))
	for _, item := range sale.Items {
		if item.Quantity < 1 {
			return nil, store.ErrInvalidTransaction
		}
		demand[item.ProductID] += item.Quantity
	}
	ids := sortedKeys(demand)

	stockRows, err := pgTx.QueryContext(ctx, `
		SELECT id, stock
		FROM products
		WHERE id = ANY($1)
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	stock := make(map[string]int, len(ids))
	for stockRows.Next() {
		var id string
		var qty int
		if err := stockRows.Scan(&id, &qty); err != nil {
			_ = stockRows.Close()
			return nil, err
		}
		stock[id] = qty
	}
	if err := stockRows.Err(); err != nil {
		_ = stockRows.Close()
		return nil, err
	}
	_ = stockRows.Close()

	for _, id := range ids {
		available, ok := stock[id]
		if !ok {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
		}
		if available < demand[id] {
			return nil, store.ErrInsufficientStock
		}
		if _, err := pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $1, updated_at = now()
			WHERE id = $2
		`, demand[id], id); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = now
	}

	if receivable != nil {
		r := *receivable
		if r.ID == "" {
			r.ID = xid.New("rcv")
		}
		r.SaleID = sale.ID
		r.Status = store.ReceivableStatus(r.AmountDue, r.AmountPaid)
		if _, err := pgTx.ExecContext(ctx, `
			INSERT INTO receivables (id, member_id, member_name, sale_id, amount_due, amount_paid, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
		`, r.ID, r.MemberID, r.MemberName, r.SaleID, r.AmountDue, r.AmountPaid, r.Status, now); err != nil {
			return nil, err
		}
		sale.ReceivableID = r.ID
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO sales (
			id, idempotency_key, terminal_id, cashier_id, attendant_id, member_id,
			transaction_type, sub_total, item_discount, member_discount, additional_discount,
			total_discount, tax, grand_total, payment, change_amount, receivable_id, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`, sale.ID, sale.IdempotencyKey, nullIfEmpty(sale.TerminalID), sale.CashierID, nullIfEmpty(sale.AttendantID),
		nullIfEmpty(sale.MemberID), sale.TransactionType, sale.Totals.SubTotal, sale.Totals.ItemDiscount,
		sale.Totals.MemberDiscount, sale.Totals.AdditionalDiscount, sale.Totals.TotalDiscount, sale.Totals.Tax,
		sale.Totals.GrandTotal, sale.Payment, sale.Change, nullIfEmpty(sale.ReceivableID), sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			_ = pgTx.Rollback()
			existing, lookupErr := s.FindSaleByIdempotency(ctx, sale.IdempotencyKey)
			if lookupErr == nil {
				existing.Duplicate = true
				return existing, nil
			}
		}
		return nil, err
	}

	for _, item := range sale.Items {
		if _, err := pgTx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, product_name, product_code, quantity, original_price, unit_price, unit_discount, subtotal)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, sale.ID, item.ProductID, item.ProductName, item.ProductCode, item.Quantity,
			item.OriginalPrice, item.UnitPrice, item.UnitDiscount, item.Subtotal); err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) CreateSuspendedSale(ctx context.Context, sale domain.SuspendedSale) (*domain.SuspendedSale, error) {
	if len(sale.Lines) == 0 {
		return nil, store.ErrInvalidTransaction
	}
	if sale.ID == "" {
		sale.ID = xid.New("hold")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	linesJSON, err := json.Marshal(sale.Lines)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO suspended_sales (id, label, notes, lines, member_id, cashier_id, terminal_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, sale.ID, sale.Label, sale.Notes, linesJSON, nullIfEmpty(sale.MemberID),
		nullIfEmpty(sale.CashierID), nullIfEmpty(sale.TerminalID), sale.CreatedAt)
	if err != nil {
		return nil, err
	}
	saved := sale
	return &saved, nil
}

const suspendedColumns = `id, label, notes, lines, COALESCE(member_id, ''), COALESCE(cashier_id, ''), COALESCE(terminal_id, ''), created_at`

func scanSuspendedSale(row rowScanner) (domain.SuspendedSale, error) {
	var sale domain.SuspendedSale
	var linesRaw []byte
	if err := row.Scan(&sale.ID, &sale.Label, &sale.Notes, &linesRaw, &sale.MemberID,
		&sale.CashierID, &sale.TerminalID, &sale.CreatedAt); err != nil {
		return domain.SuspendedSale{}, err
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	if len(linesRaw) > 0 {
		if err := json.Unmarshal(linesRaw, &sale.Lines); err != nil {
			return domain.SuspendedSale{}, err
		}
	}
	return sale, nil
}

func (s *Store) ListSuspendedSales(ctx context.Context, terminalID string, limit int) ([]domain.SuspendedSale, error) {
	if limit < 1 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+suspendedColumns+`
		FROM suspended_sales
		WHERE $1 = '' OR terminal_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, terminalID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.SuspendedSale, 0, 16)
	for rows.Next() {
		sale, err := scanSuspendedSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) DeleteSuspendedSale(ctx context.Context, id string) (*domain.SuspendedSale, error) {
	sale, err := scanSuspendedSale(s.db.QueryRowContext(ctx, `
		DELETE FROM suspended_sales
		WHERE id = $1
		RETURNING `+suspendedColumns, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

const receivableColumns = `id, member_id, member_name, sale_id, amount_due, amount_paid, status, created_at, updated_at`

func scanReceivable(row rowScanner) (domain.Receivable, error) {
	var r domain.Receivable
	if err := row.Scan(&r.ID, &r.MemberID, &r.MemberName, &r.SaleID, &r.AmountDue,
		&r.AmountPaid, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return domain.Receivable{}, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r, nil
}

func (s *Store) ListReceivables(ctx context.Context, filter domain.ReceivableFilter) ([]domain.Receivable, error) {
	limit := filter.Limit
	if limit < 1 {
		limit = 200
	}
	statuses := filter.Statuses
	if statuses == nil {
		statuses = []string{}
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+receivableColumns+`
		FROM receivables
		WHERE (cardinality($1::text[]) = 0 OR status = ANY($1))
			AND member_name ILIKE $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, statuses, "%"+strings.TrimSpace(filter.MemberName)+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Receivable, 0, 32)
	for rows.Next() {
		r, err := scanReceivable(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) GetReceivable(ctx context.Context, id string) (*domain.Receivable, error) {
	r, err := scanReceivable(s.db.QueryRowContext(ctx, `
		SELECT `+receivableColumns+`
		FROM receivables
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *Store) RecordReceivablePayment(ctx context.Context, payment domain.ReceivablePayment) (*domain.Receivable, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	r, err := scanReceivable(tx.QueryRowContext(ctx, `
		SELECT `+receivableColumns+`
		FROM receivables
		WHERE id = $1
		FOR UPDATE
	`, payment.ReceivableID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if payment.Amount <= 0 || payment.Amount > r.Remaining() {
		return nil, store.ErrInvalidTransaction
	}

	if payment.ID == "" {
		payment.ID = xid.New("rpay")
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}
	r.AmountPaid += payment.Amount
	r.Status = store.ReceivableStatus(r.AmountDue, r.AmountPaid)
	r.UpdatedAt = payment.PaidAt

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO receivable_payments (id, receivable_id, amount, cashier_id, paid_at)
		VALUES ($1,$2,$3,$4,$5)
	`, payment.ID, payment.ReceivableID, payment.Amount, nullIfEmpty(payment.CashierID), payment.PaidAt); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE receivables
		SET amount_paid = $2, status = $3, updated_at = $4
		WHERE id = $1
	`, r.ID, r.AmountPaid, r.Status, r.UpdatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListReceivablePayments(ctx context.Context, receivableID string) ([]domain.ReceivablePayment, error) {
	if _, err := s.GetReceivable(ctx, receivableID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, receivable_id, amount, COALESCE(cashier_id, ''), paid_at
		FROM receivable_payments
		WHERE receivable_id = $1
		ORDER BY paid_at ASC, id ASC
	`, receivableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.ReceivablePayment, 0, 8)
	for rows.Next() {
		var p domain.ReceivablePayment
		if err := rows.Scan(&p.ID, &p.ReceivableID, &p.Amount, &p.CashierID, &p.PaidAt); err != nil {
			return nil, err
		}
		p.PaidAt = p.PaidAt.UTC()
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, 64)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidTransaction
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidTransaction
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidTransaction
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
