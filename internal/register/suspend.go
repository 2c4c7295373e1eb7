package register

import (
	"context"
	"strings"

	"tokokasir/internal/domain"
)

// Suspend parks the active cart under label and resets the transaction.
func (s *Session) Suspend(ctx context.Context, label, notes string) (domain.SuspendedSale, error) {
	s.mu.Lock()
	if s.busyLocked() {
		s.mu.Unlock()
		return domain.SuspendedSale{}, ErrBusy
	}
	if s.cart.IsEmpty() {
		s.mu.Unlock()
		return domain.SuspendedSale{}, ErrEmptyCart
	}
	req := domain.SuspendRequest{
		Label:      strings.TrimSpace(label),
		Notes:      strings.TrimSpace(notes),
		Lines:      s.cart.Lines(),
		CashierID:  s.sctx.CashierID,
		TerminalID: s.sctx.TerminalID,
	}
	if s.member.ID != s.sctx.GeneralMember.ID {
		req.MemberID = s.member.ID
	}
	s.suspending = true
	s.mu.Unlock()

	saved, err := s.backend.CreateSuspendedSale(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspending = false
	if err != nil {
		return domain.SuspendedSale{}, submission(err)
	}
	s.resetLocked()
	return saved, nil
}

func (s *Session) ListSuspended(ctx context.Context) ([]domain.SuspendedSale, error) {
	sales, err := s.backend.ListSuspendedSales(ctx)
	if err != nil {
		return nil, submission(err)
	}
	return sales, nil
}

// ResumeByID finds a parked sale by id and resumes it.
func (s *Session) ResumeByID(ctx context.Context, id string, discardCurrent bool) (State, error) {
	sales, err := s.ListSuspended(ctx)
	if err != nil {
		return State{}, err
	}
	for _, sale := range sales {
		if sale.ID == id {
			return s.Resume(ctx, sale, discardCurrent)
		}
	}
	return State{}, ErrSuspendedSaleNotFound
}

// Resume replaces the active cart with a parked sale. A non-empty cart is
// only discarded when discardCurrent is set. A member that no longer exists
// leaves the general customer selected. The parked sale is deleted after the
// cart is restored; a failed delete is logged and the resume still succeeds.
func (s *Session) Resume(ctx context.Context, sale domain.SuspendedSale, discardCurrent bool) (State, error) {
	s.mu.Lock()
	if s.busyLocked() {
		s.mu.Unlock()
		return State{}, ErrBusy
	}
	if !s.cart.IsEmpty() && !discardCurrent {
		s.mu.Unlock()
		return State{}, ErrConfirmationRequired
	}
	general := s.sctx.GeneralMember
	s.resuming = true
	s.mu.Unlock()

	member := general
	if sale.MemberID != "" && sale.MemberID != general.ID {
		found, err := s.backend.GetMember(ctx, sale.MemberID)
		if err != nil {
			s.logger.Warn().Err(err).Str("suspended_sale_id", sale.ID).Str("member_id", sale.MemberID).
				Msg("member of suspended sale not resolvable; resuming as general customer")
		} else {
			member = found
		}
	}

	s.mu.Lock()
	s.resuming = false
	s.resetLocked()
	s.cart.Replace(sale.Lines)
	s.member = member
	s.recomputeLocked()
	state := s.stateLocked()
	s.mu.Unlock()

	if err := s.backend.DeleteSuspendedSale(ctx, sale.ID); err != nil {
		s.logger.Warn().Err(err).Str("suspended_sale_id", sale.ID).Msg("resumed sale was not deleted; record left orphaned")
	}
	return state, nil
}
