package register

import (
	"context"

	"github.com/google/uuid"

	"tokokasir/internal/domain"
	"tokokasir/internal/pricing"
	"tokokasir/internal/xid"
)

type Mode string

const (
	ModePaid   Mode = domain.TransactionPaid
	ModeUnpaid Mode = domain.TransactionUnpaid
)

// PendingSettlement is the confirmation prompt shown before a sale is sent.
type PendingSettlement struct {
	ID             string `json:"id"`
	Mode           Mode   `json:"mode"`
	GrandTotal     int64  `json:"grand_total"`
	Payment        int64  `json:"payment"`
	Change         int64  `json:"change"`
	IdempotencyKey string `json:"idempotency_key"`
}

// SettlementResult carries the recorded sale. Receipt is set for paid sales
// only; unpaid sales are not printed.
type SettlementResult struct {
	Sale    domain.Sale         `json:"sale"`
	Receipt *domain.ReceiptData `json:"receipt,omitempty"`
}

// RequestSettlement validates the sale for mode and opens the confirmation
// prompt. Nothing is sent until ConfirmSettlement accepts it. Payment is
// ignored for unpaid sales.
func (s *Session) RequestSettlement(mode Mode, payment int64) (PendingSettlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busyLocked() {
		return PendingSettlement{}, ErrBusy
	}
	if mode == ModeUnpaid {
		payment = 0
	}
	if err := s.validateLocked(mode, payment); err != nil {
		return PendingSettlement{}, err
	}

	if s.saleKey == "" {
		s.saleKey = uuid.NewString()
	}
	s.payment = payment
	s.pending = &PendingSettlement{
		ID:             xid.New("confirm"),
		Mode:           mode,
		GrandTotal:     s.calc.GrandTotal,
		Payment:        payment,
		Change:         change(mode, payment, s.calc.GrandTotal),
		IdempotencyKey: s.saleKey,
	}
	return *s.pending, nil
}

// CancelSettlement closes the confirmation prompt without touching the sale.
func (s *Session) CancelSettlement() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// ConfirmSettlement accepts the open prompt, re-checks every precondition
// against the current state and submits the sale. On success the transaction
// is reset; on any failure only the prompt is dropped.
func (s *Session) ConfirmSettlement(ctx context.Context, pendingID string) (SettlementResult, error) {
	s.mu.Lock()
	if s.busyLocked() {
		s.mu.Unlock()
		return SettlementResult{}, ErrBusy
	}
	pending := s.pending
	if pending == nil || pending.ID != pendingID {
		s.mu.Unlock()
		return SettlementResult{}, ErrNoPendingSettlement
	}
	s.pending = nil
	if err := s.validateLocked(pending.Mode, pending.Payment); err != nil {
		s.mu.Unlock()
		return SettlementResult{}, err
	}
	if s.calc.GrandTotal != pending.GrandTotal || s.payment != pending.Payment || s.saleKey != pending.IdempotencyKey {
		s.mu.Unlock()
		return SettlementResult{}, ErrStaleConfirmation
	}

	req := s.saleRequestLocked(*pending)
	receipt := s.receiptLocked(*pending)
	s.settling = true
	s.mu.Unlock()

	sale, err := s.backend.SubmitSale(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settling = false
	if err != nil {
		s.logger.Warn().Err(err).Str("mode", string(pending.Mode)).Msg("sale submission rejected")
		return SettlementResult{}, submission(err)
	}

	s.resetLocked()
	s.logger.Info().Str("sale_id", sale.ID).Str("mode", string(pending.Mode)).Int64("grand_total", sale.Totals.GrandTotal).Msg("sale settled")

	result := SettlementResult{Sale: sale}
	if pending.Mode == ModePaid {
		receipt.SaleID = sale.ID
		receipt.CreatedAt = sale.CreatedAt
		result.Receipt = &receipt
	}
	return result, nil
}

func (s *Session) validateLocked(mode Mode, payment int64) error {
	if s.calc == nil {
		return ErrEmptyCart
	}
	switch mode {
	case ModePaid:
		if payment < s.calc.GrandTotal {
			return ErrInsufficientPayment
		}
		if s.attendant == nil {
			return ErrAttendantRequired
		}
	case ModeUnpaid:
		if s.member.ID == "" || s.member.IsGeneral() || s.member.ID == s.sctx.GeneralMember.ID {
			return ErrMemberRequired
		}
	default:
		return ErrUnknownMode
	}
	return nil
}

func (s *Session) saleRequestLocked(p PendingSettlement) domain.SaleRequest {
	req := domain.SaleRequest{
		IdempotencyKey:  p.IdempotencyKey,
		TerminalID:      s.sctx.TerminalID,
		CashierID:       s.sctx.CashierID,
		TransactionType: string(p.Mode),
		Items:           pricing.SaleItems(s.calc),
		Totals:          pricing.Totals(s.calc),
		Payment:         p.Payment,
		Change:          p.Change,
	}
	if s.attendant != nil {
		req.AttendantID = s.attendant.ID
	}
	if s.member.ID != s.sctx.GeneralMember.ID {
		req.MemberID = s.member.ID
	}
	return req
}

func (s *Session) receiptLocked(p PendingSettlement) domain.ReceiptData {
	calc := cloneCalculation(s.calc)
	receipt := domain.ReceiptData{
		CashierID: s.sctx.CashierID,
		Lines:     calc.Lines,
		Totals:    pricing.Totals(calc),
		Payment:   p.Payment,
		Change:    p.Change,
	}
	if s.attendant != nil {
		receipt.AttendantName = s.attendant.Name
	}
	if !s.member.IsGeneral() {
		receipt.MemberName = s.member.Name
	}
	return receipt
}

func change(mode Mode, payment, grandTotal int64) int64 {
	if mode != ModePaid || payment <= grandTotal {
		return 0
	}
	return payment - grandTotal
}
