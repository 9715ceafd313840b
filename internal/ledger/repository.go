package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Kind selects which ledger an aggregate runs over.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindSale     Kind = "sale"
)

// Filter narrows ledger and stock queries. Zero values mean "any".
// From and To are inclusive calendar dates.
type Filter struct {
	StoreID    int64
	ProductID  int64
	SupplierID int64
	From       time.Time
	To         time.Time
	Limit      int
}

// Totals is the result of a sum aggregate over ledger rows.
type Totals struct {
	Quantity int64           `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
}

// Repository is the read capability set the reporting layer depends on:
// lookups by id, filtering by field and date range, and sum aggregates.
type Repository interface {
	GetStore(ctx context.Context, id int64) (Store, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	GetStock(ctx context.Context, id int64) (Stock, error)

	ListStores(ctx context.Context) ([]Store, error)
	ListProducts(ctx context.Context) ([]Product, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)

	Purchases(ctx context.Context, filter Filter) ([]Purchase, error)
	Sales(ctx context.Context, filter Filter) ([]Sale, error)
	Stocks(ctx context.Context, filter Filter) ([]Stock, error)

	Totals(ctx context.Context, kind Kind, filter Filter) (Totals, error)
}
