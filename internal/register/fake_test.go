package register

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tokokasir/internal/domain"
)

var errNotFound = errors.New("not found")

type fakeBackend struct {
	mu sync.Mutex

	products    map[string]domain.Product
	members     map[string]domain.Member
	attendants  []domain.Attendant
	suspended   []domain.SuspendedSale
	receivables []domain.Receivable

	submitted  []domain.SaleRequest
	deleted    []string
	searches   []domain.ReceivableFilter
	payments   []int64
	submitErr  error
	suspendErr error
	deleteErr  error
	payErr     error
	searchErr  error

	// submitHook runs inside SubmitSale before the result is returned.
	submitHook func()
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		products: map[string]domain.Product{
			"beras": {
				ID: "beras", Name: "Beras 5kg", ProductCode: "BRS5", Stock: 20,
				PriceTiers: []domain.PriceTier{{MinQty: 1, Price: 1000}, {MinQty: 3, Price: 900}},
			},
			"gula": {
				ID: "gula", Name: "Gula 1kg", ProductCode: "GL1", Stock: 10,
				PriceTiers: []domain.PriceTier{{MinQty: 1, Price: 1500}, {MinQty: 10, Price: 1400}},
			},
			"kosong": {
				ID: "kosong", Name: "Habis", ProductCode: "HBS", Stock: 0,
				PriceTiers: []domain.PriceTier{{MinQty: 1, Price: 500}},
			},
		},
		members: map[string]domain.Member{
			"member-general": generalMember(),
			"m-gold":         {ID: "m-gold", Name: "Siti", Discount: decimal.NewFromInt(10), MembershipType: domain.MembershipGold},
		},
		attendants: []domain.Attendant{{ID: "att-1", Name: "Rina"}, {ID: "att-2", Name: "Joko"}},
	}
}

func generalMember() domain.Member {
	return domain.Member{ID: "member-general", Name: "Umum", Discount: decimal.Zero, MembershipType: domain.MembershipGeneral}
}

func (f *fakeBackend) GetProduct(_ context.Context, ref string) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ID == ref || p.ProductCode == ref {
			return p, nil
		}
	}
	return domain.Product{}, errNotFound
}

func (f *fakeBackend) SearchProducts(_ context.Context, query string) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Product
	for _, p := range f.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeBackend) GetMember(_ context.Context, id string) (domain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[id]
	if !ok {
		return domain.Member{}, errNotFound
	}
	return m, nil
}

func (f *fakeBackend) ListMembers(context.Context, string) ([]domain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Member, 0, len(f.members))
	for _, m := range f.members {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeBackend) ListAttendants(context.Context) ([]domain.Attendant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Attendant(nil), f.attendants...), nil
}

func (f *fakeBackend) SubmitSale(_ context.Context, req domain.SaleRequest) (domain.Sale, error) {
	if f.submitHook != nil {
		f.submitHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	if f.submitErr != nil {
		return domain.Sale{}, f.submitErr
	}
	return domain.Sale{
		ID:              "sale-1",
		IdempotencyKey:  req.IdempotencyKey,
		CashierID:       req.CashierID,
		AttendantID:     req.AttendantID,
		MemberID:        req.MemberID,
		TransactionType: req.TransactionType,
		Items:           req.Items,
		Totals:          req.Totals,
		Payment:         req.Payment,
		Change:          req.Change,
		CreatedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil
}

func (f *fakeBackend) CreateSuspendedSale(_ context.Context, req domain.SuspendRequest) (domain.SuspendedSale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.suspendErr != nil {
		return domain.SuspendedSale{}, f.suspendErr
	}
	sale := domain.SuspendedSale{
		ID:         "hold-" + string(rune('a'+len(f.suspended))),
		Label:      req.Label,
		Notes:      req.Notes,
		Lines:      req.Lines,
		MemberID:   req.MemberID,
		CashierID:  req.CashierID,
		TerminalID: req.TerminalID,
		CreatedAt:  time.Now().UTC(),
	}
	f.suspended = append(f.suspended, sale)
	return sale, nil
}

func (f *fakeBackend) ListSuspendedSales(context.Context) ([]domain.SuspendedSale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.SuspendedSale(nil), f.suspended...), nil
}

func (f *fakeBackend) DeleteSuspendedSale(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, s := range f.suspended {
		if s.ID == id {
			f.suspended = append(f.suspended[:i], f.suspended[i+1:]...)
			return nil
		}
	}
	return errNotFound
}

func (f *fakeBackend) SearchReceivables(_ context.Context, filter domain.ReceivableFilter) ([]domain.Receivable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, filter)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []domain.Receivable
	for _, r := range f.receivables {
		open := false
		for _, status := range filter.Statuses {
			if r.Status == status {
				open = true
			}
		}
		if open && strings.Contains(strings.ToLower(r.MemberName), strings.ToLower(filter.MemberName)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeBackend) PayReceivable(_ context.Context, id string, amount int64) (domain.Receivable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments = append(f.payments, amount)
	if f.payErr != nil {
		return domain.Receivable{}, f.payErr
	}
	for i := range f.receivables {
		r := &f.receivables[i]
		if r.ID != id {
			continue
		}
		r.AmountPaid += amount
		r.Status = domain.ReceivablePartial
		if r.Remaining() == 0 {
			r.Status = domain.ReceivablePaid
		}
		return *r, nil
	}
	return domain.Receivable{}, errNotFound
}

func (f *fakeBackend) submissions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitted)
}

func newTestSession(backend *fakeBackend) *Session {
	return NewSession(SessionContext{
		TerminalID:    "kasir-1",
		CashierID:     "cashier",
		GeneralMember: generalMember(),
	}, backend, 0)
}
