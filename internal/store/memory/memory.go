package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"tokokasir/internal/domain"
	"tokokasir/internal/store"
	"tokokasir/internal/xid"
)

type Store struct {
	mu                 sync.RWMutex
	products           map[string]domain.Product
	members            map[string]domain.Member
	attendants         []domain.Attendant
	salesByID          map[string]*domain.Sale
	salesByIdem        map[string]*domain.Sale
	suspendedByID      map[string]domain.SuspendedSale
	receivablesByID    map[string]domain.Receivable
	receivablePayments map[string][]domain.ReceivablePayment
	auditLogs          []domain.AuditLog
	usersByUsername    map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Passwords come from SEED_<ROLE>_PASSWORD; unset ones fall back to dev
// defaults with a warning. The postgres store never uses these.
func seedUsers() map[string]domain.UserAccount {
	defaults := []struct {
		username string
		envKey   string
		password string
		role     string
	}{
		{"admin", "SEED_ADMIN_PASSWORD", "admin123", domain.RoleAdmin},
		{"cashier", "SEED_CASHIER_PASSWORD", "cashier123", domain.RoleCashier},
		{"gudang", "SEED_WAREHOUSE_PASSWORD", "gudang123", domain.RoleWarehouse},
		{"manager", "SEED_MANAGER_PASSWORD", "manager123", domain.RoleManager},
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	usedDefault := false
	for _, u := range defaults {
		password := os.Getenv(u.envKey)
		if password == "" {
			password = u.password
			usedDefault = true
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Str("username", u.username).Msg("failed to hash seed password")
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	if usedDefault {
		log.Warn().Str("component", "memory-store").Msg("using default dev credentials; set SEED_*_PASSWORD to override")
	}
	return users
}

func tiers(pairs ...int64) []domain.PriceTier {
	out := make([]domain.PriceTier, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.PriceTier{MinQty: int(pairs[i]), Price: pairs[i+1]})
	}
	return out
}

func NewSeeded() *Store {
	products := []domain.Product{
		{ID: "prd-beras-5kg", Name: "Beras Premium 5kg", ProductCode: "BRS-5", Stock: 80, PriceTiers: tiers(1, 78000, 5, 76000, 10, 74500)},
		{ID: "prd-minyak-1l", Name: "Minyak Goreng 1L", ProductCode: "MNY-1", Stock: 120, PriceTiers: tiers(1, 18000, 12, 17000)},
		{ID: "prd-gula-1kg", Name: "Gula Pasir 1kg", ProductCode: "GLA-1", Stock: 100, PriceTiers: tiers(1, 17500, 10, 16800)},
		{ID: "prd-telur-10", Name: "Telur Ayam 10 Butir", ProductCode: "TLR-10", Stock: 60, PriceTiers: tiers(1, 26500, 6, 25500)},
		{ID: "prd-mie-goreng", Name: "Mie Goreng Instan", ProductCode: "MIE-G", Stock: 400, PriceTiers: tiers(1, 3500, 10, 3300, 40, 3100)},
		{ID: "prd-kopi-sachet", Name: "Kopi Sachet", ProductCode: "KOP-S", Stock: 300, PriceTiers: tiers(1, 2600, 10, 2400)},
		{ID: "prd-teh-celup", Name: "Teh Celup 25s", ProductCode: "TEH-25", Stock: 90, PriceTiers: tiers(1, 9800)},
		{ID: "prd-air-600", Name: "Air Mineral 600ml", ProductCode: "AIR-600", Stock: 240, PriceTiers: tiers(1, 3900, 24, 3500)},
		{ID: "prd-sabun-mandi", Name: "Sabun Mandi", ProductCode: "SBN-M", Stock: 75, PriceTiers: tiers(1, 7400, 6, 7000)},
		{ID: "prd-tepung-1kg", Name: "Tepung Terigu 1kg", ProductCode: "TPG-1", Stock: 0, PriceTiers: tiers(1, 13500)},
	}
	members := []domain.Member{
		{ID: domain.DefaultGeneralMemberID, Name: "Pelanggan Umum", Discount: decimal.Zero, MembershipType: domain.MembershipGeneral},
		{ID: "mbr-siti", Name: "Siti Rahmawati", Discount: decimal.NewFromInt(5), MembershipType: domain.MembershipRegular, Phone: "081234567801"},
		{ID: "mbr-budi", Name: "Budi Santoso", Discount: decimal.NewFromInt(10), MembershipType: domain.MembershipGold, Phone: "081234567802"},
		{ID: "mbr-warung-ijo", Name: "Warung Ijo", Discount: decimal.RequireFromString("7.5"), MembershipType: domain.MembershipGold, Phone: "081234567803"},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}
	memberMap := make(map[string]domain.Member, len(members))
	for _, m := range members {
		memberMap[m.ID] = m
	}

	return &Store{
		products: productMap,
		members:  memberMap,
		attendants: []domain.Attendant{
			{ID: "att-rina", Name: "Rina"},
			{ID: "att-joko", Name: "Joko"},
			{ID: "att-dewi", Name: "Dewi"},
		},
		salesByID:          make(map[string]*domain.Sale),
		salesByIdem:        make(map[string]*domain.Sale),
		suspendedByID:      make(map[string]domain.SuspendedSale),
		receivablesByID:    make(map[string]domain.Receivable),
		receivablePayments: make(map[string][]domain.ReceivablePayment),
		auditLogs:          make([]domain.AuditLog, 0, 128),
		usersByUsername:    seedUsers(),
	}
}

func (s *Store) ListProducts(_ context.Context, query string, limit int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) && !strings.Contains(strings.ToLower(p.ProductCode), query) {
			continue
		}
		products = append(products, cloneProduct(p))
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmpString(a.Name, b.Name)
	})
	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, ref string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if product, ok := s.products[ref]; ok {
		found := cloneProduct(product)
		return &found, nil
	}
	for _, product := range s.products {
		if strings.EqualFold(product.ProductCode, ref) {
			found := cloneProduct(product)
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			result[id] = cloneProduct(product)
		}
	}
	return result, nil
}

func (s *Store) ListMembers(_ context.Context, query string, limit int) ([]domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	members := make([]domain.Member, 0, len(s.members))
	for _, m := range s.members {
		if query != "" && !strings.Contains(strings.ToLower(m.Name), query) && !strings.Contains(m.Phone, query) {
			continue
		}
		members = append(members, m)
	}
	slices.SortFunc(members, func(a, b domain.Member) int {
		return cmpString(a.Name, b.Name)
	})
	if limit > 0 && len(members) > limit {
		members = members[:limit]
	}
	return members, nil
}

func (s *Store) GetMember(_ context.Context, id string) (*domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, ok := s.members[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &member, nil
}

func (s *Store) ListAttendants(_ context.Context) ([]domain.Attendant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.attendants), nil
}

func (s *Store) FindSaleByIdempotency(_ context.Context, key string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByIdem[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale, receivable *domain.Receivable) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.IdempotencyKey == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidTransaction
	}
	if existing, ok := s.salesByIdem[sale.IdempotencyKey]; ok {
		dup := cloneSale(existing)
		dup.Duplicate = true
		return dup, nil
	}

	demand := make(map[string]int, len(sale.Items))
	for _, item := range sale.Items {
		if item.Quantity < 1 {
			return nil, store.ErrInvalidTransaction
		}
		if _, ok := s.products[item.ProductID]; !ok {
			return nil, store.ErrNotFound
		}
		demand[item.ProductID] += item.Quantity
	}
	for productID, qty := range demand {
		if s.products[productID].Stock < qty {
			return nil, store.ErrInsufficientStock
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
		r.CreatedAt = now
		r.UpdatedAt = now
		s.receivablesByID[r.ID] = r
		sale.ReceivableID = r.ID
	}

	for productID, qty := range demand {
		product := s.products[productID]
		product.Stock -= qty
		s.products[productID] = product
	}

	saved := cloneSale(&sale)
	s.salesByID[sale.ID] = saved
	s.salesByIdem[sale.IdempotencyKey] = saved
	return cloneSale(saved), nil
}

func (s *Store) CreateSuspendedSale(_ context.Context, sale domain.SuspendedSale) (*domain.SuspendedSale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Lines) == 0 {
		return nil, store.ErrInvalidTransaction
	}
	if sale.ID == "" {
		sale.ID = xid.New("hold")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	s.suspendedByID[sale.ID] = cloneSuspendedSale(sale)
	saved := cloneSuspendedSale(sale)
	return &saved, nil
}

func (s *Store) ListSuspendedSales(_ context.Context, terminalID string, limit int) ([]domain.SuspendedSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.SuspendedSale, 0, len(s.suspendedByID))
	for _, sale := range s.suspendedByID {
		if terminalID != "" && sale.TerminalID != terminalID {
			continue
		}
		result = append(result, cloneSuspendedSale(sale))
	}
	slices.SortFunc(result, func(a, b domain.SuspendedSale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) DeleteSuspendedSale(_ context.Context, id string) (*domain.SuspendedSale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.suspendedByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(s.suspendedByID, id)
	return &sale, nil
}

func (s *Store) ListReceivables(_ context.Context, filter domain.ReceivableFilter) ([]domain.Receivable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name := strings.ToLower(strings.TrimSpace(filter.MemberName))
	result := make([]domain.Receivable, 0, 32)
	for _, r := range s.receivablesByID {
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, r.Status) {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(r.MemberName), name) {
			continue
		}
		result = append(result, r)
	}
	slices.SortFunc(result, func(a, b domain.Receivable) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) GetReceivable(_ context.Context, id string) (*domain.Receivable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.receivablesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (s *Store) RecordReceivablePayment(_ context.Context, payment domain.ReceivablePayment) (*domain.Receivable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.receivablesByID[payment.ReceivableID]
	if !ok {
		return nil, store.ErrNotFound
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
	s.receivablesByID[r.ID] = r
	s.receivablePayments[r.ID] = append(s.receivablePayments[r.ID], payment)
	return &r, nil
}

func (s *Store) ListReceivablePayments(_ context.Context, receivableID string) ([]domain.ReceivablePayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.receivablesByID[receivableID]; !ok {
		return nil, store.ErrNotFound
	}
	return slices.Clone(s.receivablePayments[receivableID]), nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidTransaction
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidTransaction
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidTransaction
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cmpString(a string, b string) int {
	return strings.Compare(a, b)
}

func cloneProduct(src domain.Product) domain.Product {
	dup := src
	dup.PriceTiers = slices.Clone(src.PriceTiers)
	return dup
}

func cloneSale(src *domain.Sale) *domain.Sale {
	if src == nil {
		return nil
	}
	dup := *src
	dup.Items = slices.Clone(src.Items)
	return &dup
}

func cloneSuspendedSale(src domain.SuspendedSale) domain.SuspendedSale {
	dup := src
	dup.Lines = make([]domain.CartLine, len(src.Lines))
	for i, line := range src.Lines {
		dup.Lines[i] = line
		dup.Lines[i].PriceTiers = slices.Clone(line.PriceTiers)
	}
	return dup
}
