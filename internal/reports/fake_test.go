package reports

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/storeledger/internal/ledger"
)

// memoryLedger is an in-memory ledger.Repository.
type memoryLedger struct {
	stores    []ledger.Store
	products  []ledger.Product
	suppliers []ledger.Supplier
	stock     []ledger.Stock
	purchases []ledger.Purchase
	sales     []ledger.Sale
	reads     atomic.Int64
}

var _ ledger.Repository = (*memoryLedger)(nil)

func (m *memoryLedger) GetStore(_ context.Context, id int64) (ledger.Store, error) {
	m.reads.Add(1)
	for _, s := range m.stores {
		if s.ID == id {
			return s, nil
		}
	}
	return ledger.Store{}, ledger.NotFound("store", id)
}

func (m *memoryLedger) GetProduct(_ context.Context, id int64) (ledger.Product, error) {
	m.reads.Add(1)
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return ledger.Product{}, ledger.NotFound("product", id)
}

func (m *memoryLedger) GetSupplier(_ context.Context, id int64) (ledger.Supplier, error) {
	m.reads.Add(1)
	for _, s := range m.suppliers {
		if s.ID == id {
			return s, nil
		}
	}
	return ledger.Supplier{}, ledger.NotFound("supplier", id)
}

func (m *memoryLedger) GetStock(_ context.Context, id int64) (ledger.Stock, error) {
	m.reads.Add(1)
	for _, s := range m.stock {
		if s.ID == id {
			return s, nil
		}
	}
	return ledger.Stock{}, ledger.NotFound("stock", id)
}

func (m *memoryLedger) ListStores(context.Context) ([]ledger.Store, error) {
	m.reads.Add(1)
	return append([]ledger.Store(nil), m.stores...), nil
}

func (m *memoryLedger) ListProducts(context.Context) ([]ledger.Product, error) {
	m.reads.Add(1)
	return append([]ledger.Product(nil), m.products...), nil
}

func (m *memoryLedger) ListSuppliers(context.Context) ([]ledger.Supplier, error) {
	m.reads.Add(1)
	return append([]ledger.Supplier(nil), m.suppliers...), nil
}

func matches(f ledger.Filter, storeID, productID, supplierID int64) bool {
	return (f.StoreID == 0 || f.StoreID == storeID) &&
		(f.ProductID == 0 || f.ProductID == productID) &&
		(f.SupplierID == 0 || f.SupplierID == supplierID)
}

func inRange[R Dated](f ledger.Filter, r R) bool {
	d := r.LineDate()
	return (f.From.IsZero() || !d.Before(f.From)) && (f.To.IsZero() || !d.After(f.To))
}

func (m *memoryLedger) Purchases(_ context.Context, f ledger.Filter) ([]ledger.Purchase, error) {
	m.reads.Add(1)
	var out []ledger.Purchase
	for _, p := range m.purchases {
		if matches(f, p.StoreID, p.ProductID, p.SupplierID) && inRange(f, p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PurchaseDate.After(out[j].PurchaseDate) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memoryLedger) Sales(_ context.Context, f ledger.Filter) ([]ledger.Sale, error) {
	m.reads.Add(1)
	var out []ledger.Sale
	for _, s := range m.sales {
		if matches(f, s.StoreID, s.ProductID, 0) && inRange(f, s) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SaleDate.After(out[j].SaleDate) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memoryLedger) Stocks(_ context.Context, f ledger.Filter) ([]ledger.Stock, error) {
	m.reads.Add(1)
	var out []ledger.Stock
	for _, s := range m.stock {
		if matches(f, s.StoreID, s.ProductID, 0) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryLedger) Totals(ctx context.Context, kind ledger.Kind, f ledger.Filter) (ledger.Totals, error) {
	switch kind {
	case ledger.KindPurchase:
		rows, _ := m.Purchases(ctx, f)
		return ledger.Totals{Quantity: SumQuantity(rows), Value: SumValue(rows)}, nil
	case ledger.KindSale:
		rows, _ := m.Sales(ctx, f)
		return ledger.Totals{Quantity: SumQuantity(rows), Value: SumValue(rows)}, nil
	}
	return ledger.Totals{}, ledger.Invalid("unknown kind %q", kind)
}

// seedLedger builds two stores, one product priced 1.50 and a handful of
// ledger rows around Wednesday 8 May 2024.
func seedLedger() *memoryLedger {
	price := decimal.RequireFromString("1.50")
	geita := ledger.Store{ID: 1, Name: "Geita"}
	mwanza := ledger.Store{ID: 2, Name: "Mwanza"}
	widget := ledger.Product{ID: 1, Name: "Widget", Price: price}
	lake := ledger.Supplier{ID: 1, Name: "Lake Traders"}
	idle := ledger.Supplier{ID: 2, Name: "Idle Supplies"}

	p := func(id int64, store ledger.Store, qty int64, unit string, at time.Time) ledger.Purchase {
		return ledger.Purchase{ID: id, StoreID: store.ID, StoreName: store.Name, ProductID: widget.ID, ProductName: widget.Name,
			ProductPrice: price, SupplierID: lake.ID, SupplierName: lake.Name, Quantity: qty, UnitPrice: money(unit), PurchaseDate: at}
	}
	s := func(id int64, store ledger.Store, qty int64, unit string, at time.Time) ledger.Sale {
		return ledger.Sale{ID: id, StoreID: store.ID, StoreName: store.Name, ProductID: widget.ID, ProductName: widget.Name,
			ProductPrice: price, Quantity: qty, UnitPrice: money(unit), SaleDate: at}
	}
	return &memoryLedger{
		stores:    []ledger.Store{geita, mwanza},
		products:  []ledger.Product{widget},
		suppliers: []ledger.Supplier{lake, idle},
		stock: []ledger.Stock{
			{ID: 1, StoreID: 1, StoreName: "Geita", ProductID: 1, ProductName: "Widget", ProductPrice: price, Quantity: 6},
		},
		purchases: []ledger.Purchase{
			p(1, geita, 10, "1.00", day(2024, 5, 8)),
			p(2, geita, 5, "2.00", day(2024, 4, 2)),
		},
		sales: []ledger.Sale{
			s(1, geita, 4, "2.00", day(2024, 5, 8)),
			s(2, geita, 5, "3.00", day(2024, 5, 6)),
			s(3, geita, 1, "1.50", day(2023, 12, 30)),
		},
	}
}
