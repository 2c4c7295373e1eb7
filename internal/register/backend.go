package register

import (
	"context"

	"tokokasir/internal/domain"
)

// Catalog looks products up by id or product code, or searches them by text.
type Catalog interface {
	GetProduct(ctx context.Context, ref string) (domain.Product, error)
	SearchProducts(ctx context.Context, query string) ([]domain.Product, error)
}

type Members interface {
	GetMember(ctx context.Context, id string) (domain.Member, error)
	ListMembers(ctx context.Context, query string) ([]domain.Member, error)
}

type Attendants interface {
	ListAttendants(ctx context.Context) ([]domain.Attendant, error)
}

type Sales interface {
	SubmitSale(ctx context.Context, req domain.SaleRequest) (domain.Sale, error)
}

type SuspendedSales interface {
	CreateSuspendedSale(ctx context.Context, req domain.SuspendRequest) (domain.SuspendedSale, error)
	ListSuspendedSales(ctx context.Context) ([]domain.SuspendedSale, error)
	DeleteSuspendedSale(ctx context.Context, id string) error
}

type Receivables interface {
	SearchReceivables(ctx context.Context, filter domain.ReceivableFilter) ([]domain.Receivable, error)
	PayReceivable(ctx context.Context, id string, amount int64) (domain.Receivable, error)
}

// Backend is everything a terminal needs from the data API.
type Backend interface {
	Catalog
	Members
	Attendants
	Sales
	SuspendedSales
	Receivables
}
