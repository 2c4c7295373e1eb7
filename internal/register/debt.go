package register

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tokokasir/internal/domain"
	"tokokasir/internal/search"
)

// DebtDesk looks up open receivables by member name and records repayments.
// It never touches the active cart.
type DebtDesk struct {
	backend Receivables
	logger  zerolog.Logger
	search  *search.Debouncer[[]domain.Receivable]

	mu       sync.Mutex
	query    string
	results  []domain.Receivable
	selected *domain.Receivable
	paying   bool
}

func NewDebtDesk(terminalID string, backend Receivables, searchDelay time.Duration) *DebtDesk {
	return &DebtDesk{
		backend: backend,
		logger:  log.With().Str("component", "debt").Str("terminal", terminalID).Logger(),
		search:  search.NewDebouncer[[]domain.Receivable](searchDelay),
	}
}

// Search lists receivables that are not fully paid whose member name contains
// fragment. It is debounced: an overtaken call returns search.ErrSuperseded
// and leaves the stored results alone.
func (d *DebtDesk) Search(ctx context.Context, fragment string) ([]domain.Receivable, error) {
	fragment = strings.TrimSpace(fragment)
	results, err := d.search.Do(ctx, func(ctx context.Context) ([]domain.Receivable, error) {
		return d.backend.SearchReceivables(ctx, openFilter(fragment))
	})
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.storeLocked(fragment, results)
	return cloneReceivables(d.results), nil
}

func (d *DebtDesk) Results() []domain.Receivable {
	d.mu.Lock()
	defer d.mu.Unlock()
	return cloneReceivables(d.results)
}

// Select marks one receivable from the last search results for payment.
func (d *DebtDesk) Select(id string) (domain.Receivable, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.results {
		if r.ID == id {
			d.selected = &r
			return r, nil
		}
	}
	return domain.Receivable{}, ErrReceivableNotFound
}

func (d *DebtDesk) Selected() *domain.Receivable {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.selected == nil {
		return nil
	}
	r := *d.selected
	return &r
}

// Pay records amount against the selected receivable, which must be
// receivableID, then re-fetches the last search so balances come from the
// server. A failed refresh is logged; the payment itself has been recorded.
func (d *DebtDesk) Pay(ctx context.Context, receivableID string, amount int64) (domain.Receivable, error) {
	d.mu.Lock()
	if d.paying {
		d.mu.Unlock()
		return domain.Receivable{}, ErrBusy
	}
	if d.selected == nil || d.selected.ID != receivableID {
		d.mu.Unlock()
		return domain.Receivable{}, ErrNoReceivableSelected
	}
	if amount <= 0 || amount > d.selected.Remaining() {
		d.mu.Unlock()
		return domain.Receivable{}, ErrInvalidAmount
	}
	query := d.query
	d.paying = true
	d.mu.Unlock()

	updated, err := d.backend.PayReceivable(ctx, receivableID, amount)
	if err != nil {
		d.mu.Lock()
		d.paying = false
		d.mu.Unlock()
		return domain.Receivable{}, submission(err)
	}

	refreshed, refreshErr := d.backend.SearchReceivables(ctx, openFilter(query))

	d.mu.Lock()
	defer d.mu.Unlock()
	d.paying = false
	d.selected = &updated
	if refreshErr != nil {
		d.logger.Warn().Err(refreshErr).Str("receivable_id", receivableID).Msg("receivable list refresh failed after payment")
		return updated, nil
	}
	d.storeLocked(query, refreshed)
	if updated.Remaining() == 0 {
		d.selected = nil
	}
	return updated, nil
}

// storeLocked replaces the results and re-points the selection at the
// fresh copy of the selected receivable, dropping it when it is gone.
func (d *DebtDesk) storeLocked(query string, results []domain.Receivable) {
	d.query = query
	d.results = cloneReceivables(results)
	if d.selected == nil {
		return
	}
	for _, r := range d.results {
		if r.ID == d.selected.ID {
			d.selected = &r
			return
		}
	}
	d.selected = nil
}

func openFilter(fragment string) domain.ReceivableFilter {
	return domain.ReceivableFilter{
		Statuses:   append([]string(nil), domain.OpenReceivableStatuses...),
		MemberName: fragment,
	}
}

func cloneReceivables(in []domain.Receivable) []domain.Receivable {
	if in == nil {
		return nil
	}
	return append([]domain.Receivable(nil), in...)
}
