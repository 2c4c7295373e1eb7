package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"tokokasir/internal/cache"
	"tokokasir/internal/domain"
	"tokokasir/internal/pricing"
	"tokokasir/internal/store"
)

const (
	searchLimit    = 50
	suspendedLimit = 200
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service is the data API behind every terminal. It satisfies register.Backend
// so a terminal session can run in-process against it.
type Service struct {
	repo            store.Repository
	catalog         cache.CatalogCache
	catalogTTL      time.Duration
	generalMemberID string
	logger          zerolog.Logger
}

func New(repo store.Repository, catalog cache.CatalogCache, catalogTTL time.Duration, generalMemberID string) *Service {
	if catalog == nil {
		catalog = cache.NoopCatalogCache{}
	}
	if catalogTTL <= 0 {
		catalogTTL = 20 * time.Second
	}
	if generalMemberID == "" {
		generalMemberID = domain.DefaultGeneralMemberID
	}

	return &Service{
		repo:            repo,
		catalog:         catalog,
		catalogTTL:      catalogTTL,
		generalMemberID: generalMemberID,
		logger:          log.With().Str("component", "service").Logger(),
	}
}

// GeneralMember loads the walk-in customer record terminals start with.
func (s *Service) GeneralMember(ctx context.Context) (domain.Member, error) {
	member, err := s.repo.GetMember(ctx, s.generalMemberID)
	if err != nil {
		return domain.Member{}, fmt.Errorf("general member %s: %w", s.generalMemberID, err)
	}
	if !member.IsGeneral() {
		return domain.Member{}, fmt.Errorf("member %s is not a general member", member.ID)
	}
	return *member, nil
}

func (s *Service) GetProduct(ctx context.Context, ref string) (domain.Product, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Product{}, store.ErrInvalidTransaction
	}
	product, err := s.repo.GetProduct(ctx, ref)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

// SearchProducts serves repeated queries from the catalog cache. Cache
// failures degrade to a direct repository read.
func (s *Service) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	cached, ok, err := s.catalog.Get(ctx, query)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("catalog cache read failed")
	} else if ok {
		return cached, nil
	}

	products, err := s.repo.ListProducts(ctx, query, searchLimit)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.Set(ctx, query, products, s.catalogTTL); err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("catalog cache write failed")
	}
	return products, nil
}

func (s *Service) GetMember(ctx context.Context, id string) (domain.Member, error) {
	member, err := s.repo.GetMember(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Member{}, err
	}
	return *member, nil
}

func (s *Service) ListMembers(ctx context.Context, query string) ([]domain.Member, error) {
	return s.repo.ListMembers(ctx, strings.TrimSpace(query), searchLimit)
}

func (s *Service) ListAttendants(ctx context.Context) ([]domain.Attendant, error) {
	return s.repo.ListAttendants(ctx)
}

// SubmitSale records a sale after re-deriving its totals from the catalog.
// Replaying an idempotency key returns the stored sale with Duplicate set.
func (s *Service) SubmitSale(ctx context.Context, req domain.SaleRequest) (domain.Sale, error) {
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	req.CashierID = strings.TrimSpace(req.CashierID)
	if req.IdempotencyKey == "" || req.CashierID == "" || len(req.Items) == 0 {
		return domain.Sale{}, store.ErrInvalidTransaction
	}

	if existing, err := s.repo.FindSaleByIdempotency(ctx, req.IdempotencyKey); err == nil {
		existing.Duplicate = true
		return *existing, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.Sale{}, err
	}

	lines, err := s.priceLines(ctx, req.Items)
	if err != nil {
		return domain.Sale{}, err
	}

	member, err := s.saleMember(ctx, req.MemberID)
	if err != nil {
		return domain.Sale{}, err
	}

	additional := req.Totals.AdditionalDiscount
	if additional.IsNegative() {
		return domain.Sale{}, fmt.Errorf("%w: negative additional discount", store.ErrInvalidTransaction)
	}

	calc := pricing.Calculate(lines, &member, additional)
	if calc.GrandTotal != req.Totals.GrandTotal {
		return domain.Sale{}, fmt.Errorf("%w: grand total mismatch, expected %d got %d",
			store.ErrInvalidTransaction, calc.GrandTotal, req.Totals.GrandTotal)
	}

	sale := domain.Sale{
		IdempotencyKey:  req.IdempotencyKey,
		TerminalID:      strings.TrimSpace(req.TerminalID),
		CashierID:       req.CashierID,
		TransactionType: req.TransactionType,
		Items:           pricing.SaleItems(calc),
		Totals:          pricing.Totals(calc),
		CreatedAt:       time.Now().UTC(),
	}
	if !member.IsGeneral() {
		sale.MemberID = member.ID
	}

	var receivable *domain.Receivable
	switch req.TransactionType {
	case domain.TransactionPaid:
		if err := s.requireAttendant(ctx, req.AttendantID); err != nil {
			return domain.Sale{}, err
		}
		if req.Payment < calc.GrandTotal {
			return domain.Sale{}, fmt.Errorf("%w: payment %d below total %d",
				store.ErrInvalidTransaction, req.Payment, calc.GrandTotal)
		}
		sale.AttendantID = req.AttendantID
		sale.Payment = req.Payment
		sale.Change = req.Payment - calc.GrandTotal
	case domain.TransactionUnpaid:
		if member.IsGeneral() {
			return domain.Sale{}, fmt.Errorf("%w: credit sale needs a registered member", store.ErrInvalidTransaction)
		}
		sale.AttendantID = strings.TrimSpace(req.AttendantID)
		if calc.GrandTotal > 0 {
			receivable = &domain.Receivable{
				MemberID:   member.ID,
				MemberName: member.Name,
				AmountDue:  calc.GrandTotal,
			}
		}
	default:
		return domain.Sale{}, fmt.Errorf("%w: unknown transaction type %q", store.ErrInvalidTransaction, req.TransactionType)
	}

	created, err := s.repo.CreateSale(ctx, sale, receivable)
	if err != nil {
		return domain.Sale{}, err
	}
	if created.Duplicate {
		return *created, nil
	}

	if err := s.catalog.Bump(ctx); err != nil {
		s.logger.Warn().Err(err).Str("sale_id", created.ID).Msg("catalog cache invalidation failed")
	}
	s.logAudit(ctx, "sale_create", "sale", created.ID, fmt.Sprintf(
		"type=%s,total=%d,payment=%d,items=%d,receivable=%s",
		created.TransactionType, created.Totals.GrandTotal, created.Payment, len(created.Items), created.ReceivableID,
	))
	return *created, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) CreateSuspendedSale(ctx context.Context, req domain.SuspendRequest) (domain.SuspendedSale, error) {
	lines := make([]domain.CartLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		if strings.TrimSpace(line.ProductID) == "" || line.Quantity < 1 {
			return domain.SuspendedSale{}, store.ErrInvalidTransaction
		}
		line.PriceTiers = slices.Clone(line.PriceTiers)
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return domain.SuspendedSale{}, store.ErrInvalidTransaction
	}

	cashierID := strings.TrimSpace(req.CashierID)
	if cashierID == "" {
		actor, _ := ActorFromContext(ctx)
		cashierID = actor.Username
	}

	saved, err := s.repo.CreateSuspendedSale(ctx, domain.SuspendedSale{
		Label:      strings.TrimSpace(req.Label),
		Notes:      strings.TrimSpace(req.Notes),
		Lines:      lines,
		MemberID:   strings.TrimSpace(req.MemberID),
		CashierID:  cashierID,
		TerminalID: strings.TrimSpace(req.TerminalID),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return domain.SuspendedSale{}, err
	}
	s.logAudit(ctx, "sale_suspend", "suspended_sale", saved.ID, fmt.Sprintf("lines=%d,label=%s", len(saved.Lines), saved.Label))
	return *saved, nil
}

func (s *Service) ListSuspendedSales(ctx context.Context) ([]domain.SuspendedSale, error) {
	return s.repo.ListSuspendedSales(ctx, "", suspendedLimit)
}

func (s *Service) DeleteSuspendedSale(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrInvalidTransaction
	}
	deleted, err := s.repo.DeleteSuspendedSale(ctx, id)
	if err != nil {
		return err
	}
	s.logAudit(ctx, "sale_resume", "suspended_sale", deleted.ID, fmt.Sprintf("lines=%d", len(deleted.Lines)))
	return nil
}

// SearchReceivables defaults to every receivable that still has a balance.
func (s *Service) SearchReceivables(ctx context.Context, filter domain.ReceivableFilter) ([]domain.Receivable, error) {
	filter.MemberName = strings.TrimSpace(filter.MemberName)
	if len(filter.Statuses) == 0 {
		filter.Statuses = slices.Clone(domain.OpenReceivableStatuses)
	}
	for _, status := range filter.Statuses {
		switch status {
		case domain.ReceivableUnpaid, domain.ReceivablePartial, domain.ReceivablePaid:
		default:
			return nil, fmt.Errorf("%w: unknown receivable status %q", store.ErrInvalidTransaction, status)
		}
	}
	return s.repo.ListReceivables(ctx, filter)
}

func (s *Service) PayReceivable(ctx context.Context, id string, amount int64) (domain.Receivable, error) {
	id = strings.TrimSpace(id)
	if id == "" || amount <= 0 {
		return domain.Receivable{}, store.ErrInvalidTransaction
	}

	actor, _ := ActorFromContext(ctx)
	updated, err := s.repo.RecordReceivablePayment(ctx, domain.ReceivablePayment{
		ReceivableID: id,
		Amount:       amount,
		CashierID:    actor.Username,
		PaidAt:       time.Now().UTC(),
	})
	if err != nil {
		return domain.Receivable{}, err
	}
	s.logAudit(ctx, "receivable_payment", "receivable", updated.ID, fmt.Sprintf(
		"amount=%d,remaining=%d,status=%s", amount, updated.Remaining(), updated.Status,
	))
	return *updated, nil
}

func (s *Service) ListReceivablePayments(ctx context.Context, id string) ([]domain.ReceivablePayment, error) {
	return s.repo.ListReceivablePayments(ctx, strings.TrimSpace(id))
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	var from time.Time
	if strings.TrimSpace(date) == "" {
		from = time.Now().UTC().Add(-24 * time.Hour)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, store.ErrInvalidTransaction
		}
		from = parsed.UTC()
	}
	to := from.Add(24 * time.Hour)

	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

// priceLines rebuilds cart lines from the submitted items using the current
// catalog tiers.
func (s *Service) priceLines(ctx context.Context, items []domain.SaleItem) ([]domain.CartLine, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 || strings.TrimSpace(item.ProductID) == "" {
			return nil, store.ErrInvalidTransaction
		}
		if slices.Contains(ids, item.ProductID) {
			return nil, fmt.Errorf("%w: duplicate line for %s", store.ErrInvalidTransaction, item.ProductID)
		}
		ids = append(ids, item.ProductID)
	}

	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown product %s", store.ErrInvalidTransaction, item.ProductID)
		}
		if item.Quantity > product.Stock {
			return nil, fmt.Errorf("%w: %s has %d left", store.ErrInsufficientStock, product.ID, product.Stock)
		}
		lines = append(lines, domain.CartLine{
			ProductID:    product.ID,
			Name:         product.Name,
			ProductCode:  product.ProductCode,
			Quantity:     item.Quantity,
			StockCeiling: product.Stock,
			PriceTiers:   product.PriceTiers,
		})
	}
	return lines, nil
}

func (s *Service) saleMember(ctx context.Context, memberID string) (domain.Member, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		memberID = s.generalMemberID
	}
	member, err := s.repo.GetMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Member{}, fmt.Errorf("%w: unknown member %s", store.ErrInvalidTransaction, memberID)
		}
		return domain.Member{}, err
	}
	if member.Discount.IsNegative() || member.Discount.GreaterThan(decimal.NewFromInt(100)) {
		return domain.Member{}, fmt.Errorf("%w: member %s has discount %s", store.ErrInvalidTransaction, member.ID, member.Discount)
	}
	return *member, nil
}

func (s *Service) requireAttendant(ctx context.Context, attendantID string) error {
	attendantID = strings.TrimSpace(attendantID)
	if attendantID == "" {
		return fmt.Errorf("%w: attendant required", store.ErrInvalidTransaction)
	}
	attendants, err := s.repo.ListAttendants(ctx)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(attendants, func(a domain.Attendant) bool { return a.ID == attendantID }) {
		return fmt.Errorf("%w: unknown attendant %s", store.ErrInvalidTransaction, attendantID)
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Str("entity", entityType+"/"+entityID).Msg("failed to write audit log")
	}
}
