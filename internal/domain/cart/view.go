package cart

import (
	"iter"
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// Line is a single revalidated cart entry.
type Line struct {
	Product       product.Product
	Requested     int
	Available     int
	Subtotal      decimal.Decimal
	HasStockIssue bool
}

// View is a revalidated cart snapshot. Lines are computed on iteration, so
// the sequence can be walked any number of times.
type View struct {
	// Warnings lists non-fatal problems found while revalidating.
	Warnings []string

	entries  Cart
	products map[string]product.Product
}

// Lines yields cart lines in ascending product ID order. Subtotals use
// min(requested, available) so totals never count unavailable stock.
func (v *View) Lines() iter.Seq[Line] {
	return func(yield func(Line) bool) {
		for _, id := range slices.Sorted(maps.Keys(v.entries)) {
			p := v.products[id]
			requested := v.entries[id]
			billable := min(requested, p.StockQuantity)
			line := Line{
				Product:       p,
				Requested:     requested,
				Available:     p.StockQuantity,
				Subtotal:      p.Price.Mul(decimal.NewFromInt(int64(billable))),
				HasStockIssue: requested > p.StockQuantity,
			}
			if !yield(line) {
				return
			}
		}
	}
}

// Len returns the number of lines.
func (v *View) Len() int { return len(v.entries) }

// Items returns the number of requested units across all lines.
func (v *View) Items() int { return v.entries.Items() }

// Total sums the line subtotals.
func (v *View) Total() decimal.Decimal {
	total := decimal.Zero
	for l := range v.Lines() {
		total = total.Add(l.Subtotal)
	}
	return total
}

// HasStockIssues reports whether any line requests more than is available.
func (v *View) HasStockIssues() bool {
	for l := range v.Lines() {
		if l.HasStockIssue {
			return true
		}
	}
	return false
}
