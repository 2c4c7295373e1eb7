package memory

import (
	"context"
	"errors"
	"testing"

	"tokokasir/internal/domain"
	"tokokasir/internal/store"
)

func TestGetProductByIDOrCode(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	byCode, err := s.GetProduct(ctx, "brs-5")
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	byID, err := s.GetProduct(ctx, "prd-beras-5kg")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byCode.ID != byID.ID {
		t.Fatalf("expected the same product, got %s and %s", byCode.ID, byID.ID)
	}

	byCode.PriceTiers[0].Price = 1
	again, _ := s.GetProduct(ctx, "prd-beras-5kg")
	if again.PriceTiers[0].Price != 78000 {
		t.Fatalf("caller mutation leaked into the store")
	}

	if _, err := s.GetProduct(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateSaleChecksStockAcrossLines(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sale := domain.Sale{
		IdempotencyKey: "split-lines",
		Items: []domain.SaleItem{
			{ProductID: "prd-teh-celup", Quantity: 50},
			{ProductID: "prd-teh-celup", Quantity: 41},
		},
	}
	if _, err := s.CreateSale(ctx, sale, nil); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	product, _ := s.GetProduct(ctx, "prd-teh-celup")
	if product.Stock != 90 {
		t.Fatalf("stock changed on a rejected sale: %d", product.Stock)
	}
}

func TestCreateSaleWithReceivable(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	saved, err := s.CreateSale(ctx, domain.Sale{
		IdempotencyKey:  "credit-1",
		MemberID:        "mbr-siti",
		TransactionType: domain.TransactionUnpaid,
		Items:           []domain.SaleItem{{ProductID: "prd-gula-1kg", Quantity: 2}},
	}, &domain.Receivable{MemberID: "mbr-siti", MemberName: "Siti Rahmawati", AmountDue: 33250})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if saved.ReceivableID == "" {
		t.Fatalf("expected receivable to be linked")
	}

	r, err := s.GetReceivable(ctx, saved.ReceivableID)
	if err != nil {
		t.Fatalf("get receivable: %v", err)
	}
	if r.SaleID != saved.ID || r.Status != domain.ReceivableUnpaid {
		t.Fatalf("unexpected receivable %+v", r)
	}

	replay, err := s.CreateSale(ctx, domain.Sale{
		IdempotencyKey: "credit-1",
		Items:          []domain.SaleItem{{ProductID: "prd-gula-1kg", Quantity: 2}},
	}, &domain.Receivable{AmountDue: 33250})
	if err != nil || !replay.Duplicate || replay.ID != saved.ID {
		t.Fatalf("expected duplicate replay, got %+v %v", replay, err)
	}
	open, _ := s.ListReceivables(ctx, domain.ReceivableFilter{Statuses: domain.OpenReceivableStatuses})
	if len(open) != 1 {
		t.Fatalf("replay must not open a second receivable, got %d", len(open))
	}
}

func TestRecordReceivablePayment(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	saved, err := s.CreateSale(ctx, domain.Sale{
		IdempotencyKey: "credit-2",
		Items:          []domain.SaleItem{{ProductID: "prd-mie-goreng", Quantity: 10}},
	}, &domain.Receivable{MemberID: "mbr-budi", MemberName: "Budi Santoso", AmountDue: 29700})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	id := saved.ReceivableID

	for _, amount := range []int64{0, -5, 29701} {
		if _, err := s.RecordReceivablePayment(ctx, domain.ReceivablePayment{ReceivableID: id, Amount: amount}); !errors.Is(err, store.ErrInvalidTransaction) {
			t.Fatalf("amount %d: expected invalid transaction, got %v", amount, err)
		}
	}

	r, err := s.RecordReceivablePayment(ctx, domain.ReceivablePayment{ReceivableID: id, Amount: 10000})
	if err != nil || r.Status != domain.ReceivablePartial || r.Remaining() != 19700 {
		t.Fatalf("unexpected partial payment result %+v %v", r, err)
	}
	r, err = s.RecordReceivablePayment(ctx, domain.ReceivablePayment{ReceivableID: id, Amount: 19700})
	if err != nil || r.Status != domain.ReceivablePaid {
		t.Fatalf("unexpected final payment result %+v %v", r, err)
	}

	payments, err := s.ListReceivablePayments(ctx, id)
	if err != nil || len(payments) != 2 {
		t.Fatalf("expected two payments, got %d %v", len(payments), err)
	}

	found, _ := s.ListReceivables(ctx, domain.ReceivableFilter{MemberName: "BUDI", Statuses: domain.OpenReceivableStatuses})
	if len(found) != 0 {
		t.Fatalf("paid receivable should not be listed as open")
	}
}

func TestSuspendedSalesFilterByTerminal(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	line := []domain.CartLine{{ProductID: "prd-kopi-sachet", Quantity: 1}}

	if _, err := s.CreateSuspendedSale(ctx, domain.SuspendedSale{TerminalID: "kasir-1", Lines: line}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateSuspendedSale(ctx, domain.SuspendedSale{TerminalID: "kasir-2", Lines: line}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateSuspendedSale(ctx, domain.SuspendedSale{TerminalID: "kasir-1"}); !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected empty suspended sale to be rejected, got %v", err)
	}

	one, _ := s.ListSuspendedSales(ctx, "kasir-1", 10)
	all, _ := s.ListSuspendedSales(ctx, "", 10)
	if len(one) != 1 || len(all) != 2 {
		t.Fatalf("unexpected listing sizes %d %d", len(one), len(all))
	}
}
