package register

import (
	"strings"
	"sync"
	"time"
)

// Terminal pairs the sale session of a register with its debt desk.
type Terminal struct {
	Session *Session
	Debts   *DebtDesk
}

// Registry keeps one Terminal per terminal id for the life of the process.
type Registry struct {
	backend     Backend
	base        SessionContext
	searchDelay time.Duration

	mu        sync.Mutex
	terminals map[string]*Terminal
}

// NewRegistry builds terminals on first use. base supplies the general
// member; its TerminalID and CashierID are ignored.
func NewRegistry(backend Backend, base SessionContext, searchDelay time.Duration) *Registry {
	return &Registry{
		backend:     backend,
		base:        base,
		searchDelay: searchDelay,
		terminals:   make(map[string]*Terminal),
	}
}

// Open returns the terminal for terminalID, creating it for cashierID on
// first use. A different cashier takes the terminal over only when it has
// no open transaction.
func (r *Registry) Open(terminalID, cashierID string) (*Terminal, error) {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return nil, validation("terminal id is required")
	}

	r.mu.Lock()
	term, ok := r.terminals[terminalID]
	if !ok {
		sctx := r.base
		sctx.TerminalID = terminalID
		sctx.CashierID = cashierID
		term = &Terminal{
			Session: NewSession(sctx, r.backend, r.searchDelay),
			Debts:   NewDebtDesk(terminalID, r.backend, r.searchDelay),
		}
		r.terminals[terminalID] = term
	}
	r.mu.Unlock()

	if err := term.Session.handover(cashierID); err != nil {
		return nil, err
	}
	return term, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.terminals)
}
