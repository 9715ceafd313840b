// Package ledger holds the persisted records of the store inventory: stores,
// products, suppliers, the append-only purchase and sale ledger, and per-store
// stock levels.
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits kept for monetary values.
const MoneyPlaces = 2

// MaxMoney is the smallest amount a NUMERIC(10, 2) column cannot hold.
var MaxMoney = decimal.New(1, 8)

// Store is a physical shop location.
type Store struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Product is a sellable item with its current reference sale price.
type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Supplier delivers products to stores.
type Supplier struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Stock is the on-hand quantity of one product at one store.
type Stock struct {
	ID           int64           `json:"id"`
	StoreID      int64           `json:"store_id"`
	StoreName    string          `json:"store_name"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	Quantity     int64           `json:"quantity"`
}

// Purchase is a ledger entry for goods bought from a supplier into a store.
type Purchase struct {
	ID           int64           `json:"id"`
	StoreID      int64           `json:"store_id"`
	StoreName    string          `json:"store_name"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	SupplierID   int64           `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	Quantity     int64           `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	PurchaseDate time.Time       `json:"purchase_date"`
}

// Sale is a ledger entry for goods sold from a store.
type Sale struct {
	ID           int64           `json:"id"`
	StoreID      int64           `json:"store_id"`
	StoreName    string          `json:"store_name"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	Quantity     int64           `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	SaleDate     time.Time       `json:"sale_date"`
}

// LineQuantity implements the aggregation line contract.
func (p Purchase) LineQuantity() int64 { return p.Quantity }

// LinePrice returns the purchase unit price.
func (p Purchase) LinePrice() decimal.Decimal { return p.UnitPrice }

// LineDate returns the purchase date.
func (p Purchase) LineDate() time.Time { return p.PurchaseDate }

// Total is quantity × unit price.
func (p Purchase) Total() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(p.Quantity)).Round(MoneyPlaces)
}

// LineQuantity implements the aggregation line contract.
func (s Sale) LineQuantity() int64 { return s.Quantity }

// LinePrice returns the sale unit price.
func (s Sale) LinePrice() decimal.Decimal { return s.UnitPrice }

// LineDate returns the sale date.
func (s Sale) LineDate() time.Time { return s.SaleDate }

// Total is quantity × unit price.
func (s Sale) Total() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromInt(s.Quantity)).Round(MoneyPlaces)
}

// LineQuantity implements the aggregation line contract.
func (s Stock) LineQuantity() int64 { return s.Quantity }

// LinePrice values stock at the product's current reference price.
func (s Stock) LinePrice() decimal.Decimal { return s.ProductPrice }

// Value is quantity × current product price.
func (s Stock) Value() decimal.Decimal {
	return s.ProductPrice.Mul(decimal.NewFromInt(s.Quantity)).Round(MoneyPlaces)
}

// DateOf truncates t to its calendar date in loc. Ledger dates are civil dates
// carried as midnight UTC so they compare equal regardless of origin.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseMoney parses a decimal amount. Extra fractional digits are rejected,
// never rounded away.
func ParseMoney(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, Invalid("%q is not a valid amount", raw)
	}
	if !d.Equal(d.Round(MoneyPlaces)) {
		return decimal.Zero, Invalid("%q has more than %d decimal places", raw, MoneyPlaces)
	}
	return d, nil
}

// CheckPrice rejects prices that are not positive, carry more than
// MoneyPlaces fractional digits or do not fit the price columns.
func CheckPrice(field string, d decimal.Decimal) error {
	switch {
	case !d.IsPositive():
		return Invalid("%s must be positive", field)
	case !d.Equal(d.Round(MoneyPlaces)):
		return Invalid("%s allows at most %d decimal places", field, MoneyPlaces)
	case d.GreaterThanOrEqual(MaxMoney):
		return Invalid("%s must be below %s", field, MaxMoney.StringFixed(MoneyPlaces))
	}
	return nil
}
