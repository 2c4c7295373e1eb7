package register

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks failures detected locally before any backend call.
	// State is never mutated when one is returned.
	ErrValidation = errors.New("validation failed")
	// ErrSubmission wraps a backend rejection. Local state is left as it was.
	ErrSubmission = errors.New("submission failed")
	// ErrBusy is returned while a settlement, suspension, resume or payment
	// is in flight for the same session or desk.
	ErrBusy = errors.New("another operation is in progress")
	// ErrTerminalInUse is returned when a different cashier opens a terminal
	// that still has an open transaction.
	ErrTerminalInUse = errors.New("terminal has an open transaction for another cashier")
)

var (
	ErrEmptyCart             = validation("cart is empty")
	ErrAttendantRequired     = validation("an attendant must be selected")
	ErrInsufficientPayment   = validation("payment is less than the grand total")
	ErrMemberRequired        = validation("a registered member must be selected for credit sales")
	ErrInvalidAmount         = validation("amount must be greater than zero and at most the remaining balance")
	ErrInvalidDiscount       = validation("discount must not be negative")
	ErrOutOfStock            = validation("product is out of stock")
	ErrLineNotFound          = validation("product is not in the cart")
	ErrUnknownMode           = validation("unknown settlement mode")
	ErrNoPendingSettlement   = validation("no settlement is awaiting confirmation")
	ErrStaleConfirmation     = validation("the sale changed after confirmation was requested")
	ErrConfirmationRequired  = validation("the active cart is not empty; confirm discarding it")
	ErrNoReceivableSelected  = validation("no receivable is selected")
	ErrReceivableNotFound    = validation("receivable is not in the current search results")
	ErrSuspendedSaleNotFound = validation("suspended sale not found")
	ErrAttendantNotFound     = validation("attendant not found")
)

func validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func submission(err error) error {
	return fmt.Errorf("%w: %w", ErrSubmission, err)
}
