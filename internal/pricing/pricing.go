// Package pricing resolves tiered unit prices and derives cart totals.
//
// Everything here is pure: the same inputs always produce the same Calculation,
// and no function retains or mutates its arguments.
package pricing

import (
	"slices"

	"github.com/shopspring/decimal"

	"tokokasir/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// ResolvePrice returns the unit price for quantity given a set of quantity
// breakpoints. The tier with the greatest MinQty not exceeding quantity wins;
// below every breakpoint the lowest tier's price applies. When several tiers
// share a MinQty, the one listed last in tiers wins. Returns 0 with no tiers.
func ResolvePrice(tiers []domain.PriceTier, quantity int) int64 {
	if len(tiers) == 0 {
		return 0
	}

	sorted := slices.Clone(tiers)
	slices.SortStableFunc(sorted, func(a, b domain.PriceTier) int {
		return a.MinQty - b.MinQty
	})

	price := sorted[0].Price
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].MinQty <= quantity {
			return sorted[i].Price
		}
	}
	return price
}

// Calculate derives the totals for lines. It returns nil for an empty cart so
// callers can tell "nothing to price" apart from a zero total.
//
// member may be nil. additional is the manual discount in currency units.
// GrandTotal is clamped at zero and rounded half-up exactly once.
func Calculate(lines []domain.CartLine, member *domain.Member, additional decimal.Decimal) *domain.Calculation {
	if len(lines) == 0 {
		return nil
	}

	calc := &domain.Calculation{
		Lines:              make([]domain.CalculatedLine, 0, len(lines)),
		AdditionalDiscount: additional,
		MemberDiscount:     decimal.Zero,
		Tax:                decimal.Zero,
	}

	for _, line := range lines {
		original := ResolvePrice(line.PriceTiers, 1)
		actual := ResolvePrice(line.PriceTiers, line.Quantity)
		qty := int64(line.Quantity)

		enriched := domain.CalculatedLine{
			CartLine:               cloneLine(line),
			OriginalPrice:          original,
			PriceAfterItemDiscount: actual,
			ItemDiscount:           (original - actual) * qty,
			Subtotal:               actual * qty,
		}
		calc.Lines = append(calc.Lines, enriched)
		calc.SubTotal += enriched.Subtotal
		calc.ItemDiscount += enriched.ItemDiscount
	}

	subTotal := decimal.NewFromInt(calc.SubTotal)
	if member != nil && !member.Discount.IsZero() {
		calc.MemberDiscount = subTotal.Mul(member.Discount).Div(hundred)
	}

	calc.TotalDiscount = decimal.NewFromInt(calc.ItemDiscount).Add(calc.MemberDiscount).Add(additional)

	net := subTotal.Sub(calc.MemberDiscount).Sub(additional)
	if net.IsNegative() {
		net = decimal.Zero
	}
	calc.GrandTotal = net.Round(0).IntPart()

	return calc
}

// SaleItems projects a Calculation into the per-line payload of a sale submission.
func SaleItems(calc *domain.Calculation) []domain.SaleItem {
	if calc == nil {
		return nil
	}
	items := make([]domain.SaleItem, 0, len(calc.Lines))
	for _, line := range calc.Lines {
		items = append(items, domain.SaleItem{
			ProductID:     line.ProductID,
			ProductName:   line.Name,
			ProductCode:   line.ProductCode,
			Quantity:      line.Quantity,
			OriginalPrice: line.OriginalPrice,
			UnitPrice:     line.PriceAfterItemDiscount,
			UnitDiscount:  line.OriginalPrice - line.PriceAfterItemDiscount,
			Subtotal:      line.Subtotal,
		})
	}
	return items
}

// Totals projects the aggregate fields of a Calculation.
func Totals(calc *domain.Calculation) domain.SaleTotals {
	if calc == nil {
		return domain.SaleTotals{
			MemberDiscount:     decimal.Zero,
			AdditionalDiscount: decimal.Zero,
			TotalDiscount:      decimal.Zero,
			Tax:                decimal.Zero,
		}
	}
	return domain.SaleTotals{
		SubTotal:           calc.SubTotal,
		ItemDiscount:       calc.ItemDiscount,
		MemberDiscount:     calc.MemberDiscount,
		AdditionalDiscount: calc.AdditionalDiscount,
		TotalDiscount:      calc.TotalDiscount,
		Tax:                calc.Tax,
		GrandTotal:         calc.GrandTotal,
	}
}

func cloneLine(line domain.CartLine) domain.CartLine {
	dup := line
	dup.PriceTiers = slices.Clone(line.PriceTiers)
	return dup
}
