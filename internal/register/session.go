// Package register runs the cashier side of a sale: the active cart and its
// calculation, settlement, suspend/resume and debt repayment.
package register

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"tokokasir/internal/cart"
	"tokokasir/internal/domain"
	"tokokasir/internal/pricing"
	"tokokasir/internal/search"
)

// SessionContext identifies who is selling where. It is fixed for the
// lifetime of a Session except for cashier handover on an idle terminal.
type SessionContext struct {
	TerminalID    string
	CashierID     string
	GeneralMember domain.Member
}

// State is a consistent snapshot of a session. Calculation is nil when the
// cart is empty.
type State struct {
	TerminalID         string              `json:"terminal_id"`
	CashierID          string              `json:"cashier_id"`
	Lines              []domain.CartLine   `json:"lines"`
	Calculation        *domain.Calculation `json:"calculation"`
	Member             domain.Member       `json:"member"`
	Attendant          *domain.Attendant   `json:"attendant,omitempty"`
	Payment            int64               `json:"payment"`
	AdditionalDiscount decimal.Decimal     `json:"additional_discount"`
	Pending            *PendingSettlement  `json:"pending_settlement,omitempty"`
	Busy               bool                `json:"busy"`
}

// Session is the transaction state of one terminal. All cart mutations run
// the recompute step before the lock is released, so State never carries a
// Calculation older than its cart. Backend calls run outside the lock.
type Session struct {
	backend Backend
	logger  zerolog.Logger
	search  *search.Debouncer[[]domain.Product]

	mu         sync.Mutex
	sctx       SessionContext
	cart       *cart.Store
	member     domain.Member
	attendant  *domain.Attendant
	payment    int64
	discount   decimal.Decimal
	calc       *domain.Calculation
	pending    *PendingSettlement
	saleKey    string
	settling   bool
	suspending bool
	resuming   bool
}

func NewSession(sctx SessionContext, backend Backend, searchDelay time.Duration) *Session {
	return &Session{
		backend: backend,
		logger:  log.With().Str("component", "register").Str("terminal", sctx.TerminalID).Logger(),
		search:  search.NewDebouncer[[]domain.Product](searchDelay),
		sctx:    sctx,
		cart:    cart.New(),
		member:  sctx.GeneralMember,
	}
}

func (s *Session) Context() SessionContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sctx
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	state := State{
		TerminalID:         s.sctx.TerminalID,
		CashierID:          s.sctx.CashierID,
		Lines:              s.cart.Lines(),
		Calculation:        cloneCalculation(s.calc),
		Member:             s.member,
		Payment:            s.payment,
		AdditionalDiscount: s.discount,
		Busy:               s.busyLocked(),
	}
	if s.attendant != nil {
		a := *s.attendant
		state.Attendant = &a
	}
	if s.pending != nil {
		p := *s.pending
		state.Pending = &p
	}
	return state
}

// Calculation returns the current totals, or nil for an empty cart.
func (s *Session) Calculation() *domain.Calculation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCalculation(s.calc)
}

// SearchProducts is debounced: a call overtaken by a newer one returns
// search.ErrSuperseded.
func (s *Session) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	return s.search.Do(ctx, func(ctx context.Context) ([]domain.Product, error) {
		return s.backend.SearchProducts(ctx, strings.TrimSpace(query))
	})
}

// AddProduct looks a product up by id or code and adds one unit of it.
func (s *Session) AddProduct(ctx context.Context, ref string) (clamped bool, err error) {
	product, err := s.backend.GetProduct(ctx, strings.TrimSpace(ref))
	if err != nil {
		return false, submission(err)
	}
	return s.Add(product)
}

func (s *Session) Add(product domain.Product) (clamped bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busyLocked() {
		return false, ErrBusy
	}

	clamped, err = s.cart.Add(product)
	if errors.Is(err, cart.ErrOutOfStock) {
		return false, ErrOutOfStock
	}
	if err != nil {
		return false, err
	}
	s.recomputeLocked()
	return clamped, nil
}

// UpdateQuantity sets a line's quantity; zero or less removes the line and
// anything above the captured stock ceiling is clamped.
func (s *Session) UpdateQuantity(productID string, quantity int) (clamped bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busyLocked() {
		return false, ErrBusy
	}

	clamped, err = s.cart.UpdateQuantity(productID, quantity)
	if errors.Is(err, cart.ErrLineNotFound) {
		return false, ErrLineNotFound
	}
	if err != nil {
		return false, err
	}
	s.recomputeLocked()
	return clamped, nil
}

func (s *Session) Remove(productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busyLocked() {
		return ErrBusy
	}
	s.cart.Remove(productID)
	s.recomputeLocked()
	return nil
}

// SelectMember switches the customer. An empty id or the general member's id
// selects the general customer.
func (s *Session) SelectMember(ctx context.Context, memberID string) (domain.Member, error) {
	memberID = strings.TrimSpace(memberID)
	general := s.Context().GeneralMember

	member := general
	if memberID != "" && memberID != general.ID {
		found, err := s.backend.GetMember(ctx, memberID)
		if err != nil {
			return domain.Member{}, submission(err)
		}
		member = found
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busyLocked() {
		return domain.Member{}, ErrBusy
	}
	s.member = member
	s.recomputeLocked()
	return member, nil
}

// SelectAttendant attributes the sale to an attendant; an empty id clears it.
func (s *Session) SelectAttendant(ctx context.Context, attendantID string) (*domain.Attendant, error) {
	attendantID = strings.TrimSpace(attendantID)

	var selected *domain.Attendant
	if attendantID != "" {
		attendants, err := s.backend.ListAttendants(ctx)
		if err != nil {
			return nil, submission(err)
		}
		for i := range attendants {
			if attendants[i].ID == attendantID {
				selected = &attendants[i]
				break
			}
		}
		if selected == nil {
			return nil, ErrAttendantNotFound
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busyLocked() {
		return nil, ErrBusy
	}
	s.attendant = selected
	return selected, nil
}

// SetAdditionalDiscount sets the manual discount in currency units.
func (s *Session) SetAdditionalDiscount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidDiscount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busyLocked() {
		return ErrBusy
	}
	s.discount = amount
	s.recomputeLocked()
	return nil
}

func (s *Session) SetPayment(amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busyLocked() {
		return ErrBusy
	}
	s.payment = amount
	return nil
}

// Reset discards the active transaction.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busyLocked() {
		return ErrBusy
	}
	s.resetLocked()
	return nil
}

// handover rebinds an idle session to another cashier.
func (s *Session) handover(cashierID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sctx.CashierID == cashierID {
		return nil
	}
	if s.busyLocked() || !s.cart.IsEmpty() {
		return ErrTerminalInUse
	}
	s.resetLocked()
	s.sctx.CashierID = cashierID
	return nil
}

func (s *Session) busyLocked() bool {
	return s.settling || s.suspending || s.resuming
}

// recomputeLocked must follow every change to the cart, member or discount.
// The idempotency key is dropped too because the sale it named has changed.
func (s *Session) recomputeLocked() {
	member := s.member
	s.calc = pricing.Calculate(s.cart.Lines(), &member, s.discount)
	s.saleKey = ""
}

func (s *Session) resetLocked() {
	s.cart.Clear()
	s.member = s.sctx.GeneralMember
	s.attendant = nil
	s.payment = 0
	s.discount = decimal.Zero
	s.pending = nil
	s.recomputeLocked()
}

func cloneCalculation(calc *domain.Calculation) *domain.Calculation {
	if calc == nil {
		return nil
	}
	dup := *calc
	dup.Lines = make([]domain.CalculatedLine, len(calc.Lines))
	for i, line := range calc.Lines {
		dup.Lines[i] = line
		dup.Lines[i].PriceTiers = append([]domain.PriceTier(nil), line.PriceTiers...)
	}
	return &dup
}
