// Package cart holds the ordered line collection of one in-progress sale.
package cart

import (
	"errors"
	"slices"

	"tokokasir/internal/domain"
)

var (
	ErrOutOfStock   = errors.New("product out of stock")
	ErrLineNotFound = errors.New("cart line not found")
)

// Store is not safe for concurrent use; the owning session serializes access.
type Store struct {
	lines []domain.CartLine
}

func New() *Store {
	return &Store{}
}

// Add puts one unit of product in the cart. A product already in the cart has
// its quantity incremented against the ceiling captured when it was first
// added. clamped reports that the requested quantity exceeded that ceiling.
func (s *Store) Add(product domain.Product) (clamped bool, err error) {
	if idx := s.index(product.ID); idx >= 0 {
		return s.UpdateQuantity(product.ID, s.lines[idx].Quantity+1)
	}
	if product.Stock < 1 {
		return false, ErrOutOfStock
	}

	s.lines = append(s.lines, domain.CartLine{
		ProductID:    product.ID,
		Name:         product.Name,
		ProductCode:  product.ProductCode,
		Quantity:     1,
		StockCeiling: product.Stock,
		PriceTiers:   slices.Clone(product.PriceTiers),
	})
	return false, nil
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes the line; a quantity above the stock ceiling is clamped to it.
func (s *Store) UpdateQuantity(productID string, quantity int) (clamped bool, err error) {
	idx := s.index(productID)
	if idx < 0 {
		return false, ErrLineNotFound
	}
	if quantity <= 0 {
		s.lines = slices.Delete(s.lines, idx, idx+1)
		return false, nil
	}

	line := &s.lines[idx]
	if quantity > line.StockCeiling {
		line.Quantity = line.StockCeiling
		return true, nil
	}
	line.Quantity = quantity
	return false, nil
}

func (s *Store) Remove(productID string) {
	if idx := s.index(productID); idx >= 0 {
		s.lines = slices.Delete(s.lines, idx, idx+1)
	}
}

// Lines returns a copy of the cart in insertion order.
func (s *Store) Lines() []domain.CartLine {
	return cloneLines(s.lines)
}

func (s *Store) Len() int {
	return len(s.lines)
}

func (s *Store) IsEmpty() bool {
	return len(s.lines) == 0
}

func (s *Store) Clear() {
	s.lines = nil
}

// Replace swaps the whole cart for lines, as when a suspended sale is resumed.
// Quantities above a line's ceiling are clamped and non-positive lines dropped.
func (s *Store) Replace(lines []domain.CartLine) {
	next := make([]domain.CartLine, 0, len(lines))
	for _, line := range cloneLines(lines) {
		if line.Quantity <= 0 {
			continue
		}
		if line.Quantity > line.StockCeiling {
			line.Quantity = line.StockCeiling
		}
		next = append(next, line)
	}
	s.lines = next
}

func (s *Store) index(productID string) int {
	return slices.IndexFunc(s.lines, func(line domain.CartLine) bool {
		return line.ProductID == productID
	})
}

func cloneLines(lines []domain.CartLine) []domain.CartLine {
	if lines == nil {
		return nil
	}
	out := make([]domain.CartLine, len(lines))
	for i, line := range lines {
		out[i] = line
		out[i].PriceTiers = slices.Clone(line.PriceTiers)
	}
	return out
}
