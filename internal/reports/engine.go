// Package reports computes sales, purchase, profit and inventory valuation
// figures over ledger records and shapes them for presentation.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/storeledger/internal/ledger"
)

// Quantified is anything carrying a quantity.
type Quantified interface {
	LineQuantity() int64
}

// Line is a priced quantity: a purchase, a sale or a stock row.
type Line interface {
	Quantified
	LinePrice() decimal.Decimal
}

// Dated is a record with a calendar date.
type Dated interface {
	LineDate() time.Time
}

// SumValue returns Σ quantity × unit price, rounded to two places.
// An empty slice sums to zero.
func SumValue[R Line](records []R) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.LinePrice().Mul(decimal.NewFromInt(r.LineQuantity())))
	}
	return total.Round(ledger.MoneyPlaces)
}

// SumQuantity returns Σ quantity.
func SumQuantity[R Quantified](records []R) int64 {
	var total int64
	for _, r := range records {
		total += r.LineQuantity()
	}
	return total
}

// GroupBy partitions records by key.
func GroupBy[R any, K comparable](records []R, key func(R) K) map[K][]R {
	out := make(map[K][]R)
	for _, r := range records {
		k := key(r)
		out[k] = append(out[k], r)
	}
	return out
}

// Group is one partition produced by Groups.
type Group[K comparable, R any] struct {
	Key     K
	Records []R
}

// Groups is GroupBy with groups ordered by first appearance of their key.
func Groups[R any, K comparable](records []R, key func(R) K) []Group[K, R] {
	index := make(map[K]int)
	var out []Group[K, R]
	for _, r := range records {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Group[K, R]{Key: k})
		}
		out[i].Records = append(out[i].Records, r)
	}
	return out
}

// FilterByWindow keeps records dated inside the window, bounds included.
func FilterByWindow[R Dated](records []R, w Window) []R {
	var out []R
	for _, r := range records {
		if w.Contains(r.LineDate()) {
			out = append(out, r)
		}
	}
	return out
}

// ProfitForWindow is sales value minus purchase value for the same window.
// Costs are not matched to individual units.
func ProfitForWindow(sales []ledger.Sale, purchases []ledger.Purchase, w Window) decimal.Decimal {
	revenue := SumValue(FilterByWindow(sales, w))
	cost := SumValue(FilterByWindow(purchases, w))
	return revenue.Sub(cost)
}

// InventoryValue values stock at each product's current reference price.
func InventoryValue(stock []ledger.Stock) decimal.Decimal {
	return SumValue(stock)
}

// ReferenceMargin is Σ (unit price − product reference price) × quantity
// over sales: how far sale prices ran above or below list price.
func ReferenceMargin(sales []ledger.Sale) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.UnitPrice.Sub(s.ProductPrice).Mul(decimal.NewFromInt(s.Quantity)))
	}
	return total.Round(ledger.MoneyPlaces)
}
