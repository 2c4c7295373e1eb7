package store

import (
	"context"
	"errors"
	"time"

	"tokokasir/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

type Repository interface {
	ListProducts(ctx context.Context, query string, limit int) ([]domain.Product, error)
	// GetProduct resolves ref as a product id first, then as a product code.
	GetProduct(ctx context.Context, ref string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	ListMembers(ctx context.Context, query string, limit int) ([]domain.Member, error)
	GetMember(ctx context.Context, id string) (*domain.Member, error)
	ListAttendants(ctx context.Context) ([]domain.Attendant, error)
	FindSaleByIdempotency(ctx context.Context, key string) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	// CreateSale stores the sale and decrements stock atomically. A non-nil
	// receivable is created in the same unit of work and linked to the sale.
	// A sale whose idempotency key already exists is returned unchanged with
	// Duplicate set.
	CreateSale(ctx context.Context, sale domain.Sale, receivable *domain.Receivable) (*domain.Sale, error)
	CreateSuspendedSale(ctx context.Context, sale domain.SuspendedSale) (*domain.SuspendedSale, error)
	ListSuspendedSales(ctx context.Context, terminalID string, limit int) ([]domain.SuspendedSale, error)
	DeleteSuspendedSale(ctx context.Context, id string) (*domain.SuspendedSale, error)
	ListReceivables(ctx context.Context, filter domain.ReceivableFilter) ([]domain.Receivable, error)
	GetReceivable(ctx context.Context, id string) (*domain.Receivable, error)
	// RecordReceivablePayment applies payment and updates the receivable
	// status. An amount outside (0, remaining] is ErrInvalidTransaction.
	RecordReceivablePayment(ctx context.Context, payment domain.ReceivablePayment) (*domain.Receivable, error)
	ListReceivablePayments(ctx context.Context, receivableID string) ([]domain.ReceivablePayment, error)
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

// ReceivableStatus derives the status of a receivable from its balances.
func ReceivableStatus(amountDue, amountPaid int64) string {
	switch {
	case amountPaid <= 0:
		return domain.ReceivableUnpaid
	case amountPaid >= amountDue:
		return domain.ReceivablePaid
	default:
		return domain.ReceivablePartial
	}
}
