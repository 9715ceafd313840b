package reports

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/storeledger/internal/ledger"
)

const latestLimit = 5

// Snapshotter is implemented by repositories able to run several reads
// against one consistent database snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context, fn func(ledger.Repository) error) error
}

// Service composes engine calls into report results. It holds no state
// between calls apart from the cache.
type Service struct {
	repo   ledger.Repository
	cache  *Cache
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// NewService wires a ledger repository with a cache helper.
func NewService(repo ledger.Repository, cache *Cache, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, loc: loc, now: time.Now, logger: logger}
}

// Location is the timezone report windows are resolved in.
func (s *Service) Location() *time.Location { return s.loc }

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx)
}

// reference returns asOf or, when zero, today's date in the report timezone.
func (s *Service) reference(asOf time.Time) time.Time {
	if asOf.IsZero() {
		return ledger.DateOf(s.now(), s.loc)
	}
	return ledger.DateOf(asOf, time.UTC)
}

// windows resolves every window kind around ref together with the smallest
// date range covering them all. The week can start in the previous year.
func (s *Service) windows(ref time.Time) ([]Window, ledger.Filter) {
	out := make([]Window, 0, len(WindowKinds))
	span := ledger.Filter{}
	for _, kind := range WindowKinds {
		w := MustResolve(kind, ref, time.UTC)
		out = append(out, w)
		if span.From.IsZero() || w.Start.Before(span.From) {
			span.From = w.Start
		}
		if w.End.After(span.To) {
			span.To = w.End
		}
	}
	return out, span
}

func (s *Service) cached(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.Warn("report cache key", slog.Any("error", err))
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return assign(dest, value)
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}

// SalesReport returns sales, purchases, profit and reference margin for
// today, this week, this month and this year.
func (s *Service) SalesReport(ctx context.Context, asOf time.Time) (SalesReport, error) {
	ref := s.reference(asOf)
	var out SalesReport
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		windows, span := s.windows(ref)
		sales, err := s.repo.Sales(ctx, span)
		if err != nil {
			return nil, err
		}
		purchases, err := s.repo.Purchases(ctx, span)
		if err != nil {
			return nil, err
		}
		report := SalesReport{AsOf: ref}
		for _, w := range windows {
			report.Windows = append(report.Windows, salesWindow(w, sales, purchases))
		}
		return report, nil
	}, "sales", dateKey(ref))
	return out, err
}

func salesWindow(w Window, sales []ledger.Sale, purchases []ledger.Purchase) SalesWindow {
	inSales := FilterByWindow(sales, w)
	inPurchases := FilterByWindow(purchases, w)
	revenue := SumValue(inSales)
	cost := SumValue(inPurchases)
	return SalesWindow{
		Window:    w,
		Label:     w.Kind.Label(),
		Quantity:  SumQuantity(inSales),
		Sales:     revenue,
		Purchases: cost,
		Profit:    revenue.Sub(cost),
		Margin:    ReferenceMargin(inSales),
	}
}

// PurchaseReport returns purchase value per store and per window.
func (s *Service) PurchaseReport(ctx context.Context, asOf time.Time) (PurchaseReport, error) {
	ref := s.reference(asOf)
	var out PurchaseReport
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		stores, err := s.repo.ListStores(ctx)
		if err != nil {
			return nil, err
		}
		purchases, err := s.repo.Purchases(ctx, ledger.Filter{To: ref})
		if err != nil {
			return nil, err
		}
		windows, _ := s.windows(ref)
		report := PurchaseReport{AsOf: ref, ByStore: storeTotals(stores, purchases), Total: SumValue(purchases)}
		for _, w := range windows {
			report.Windows = append(report.Windows, windowTotal(w, purchases))
		}
		return report, nil
	}, "purchases", dateKey(ref))
	return out, err
}

// PurchaseSummary lists every store with its purchase value and the
// quantity bought in each window.
func (s *Service) PurchaseSummary(ctx context.Context, asOf time.Time) (PurchaseSummary, error) {
	ref := s.reference(asOf)
	var out PurchaseSummary
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		stores, err := s.repo.ListStores(ctx)
		if err != nil {
			return nil, err
		}
		purchases, err := s.repo.Purchases(ctx, ledger.Filter{To: ref})
		if err != nil {
			return nil, err
		}
		windows, _ := s.windows(ref)
		byStore := GroupBy(purchases, func(p ledger.Purchase) int64 { return p.StoreID })
		summary := PurchaseSummary{AsOf: ref}
		for _, store := range stores {
			rows := byStore[store.ID]
			entry := StorePurchases{StoreID: store.ID, Store: store.Name, Value: SumValue(rows)}
			for _, w := range windows {
				entry.Windows = append(entry.Windows, windowTotal(w, rows))
			}
			summary.Stores = append(summary.Stores, entry)
		}
		return summary, nil
	}, "purchase_summary", dateKey(ref))
	return out, err
}

// InventoryValuation values all stock at current product prices.
func (s *Service) InventoryValuation(ctx context.Context) (InventoryValuation, error) {
	var out InventoryValuation
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		stock, err := s.repo.Stocks(ctx, ledger.Filter{})
		if err != nil {
			return nil, err
		}
		report := InventoryValuation{Lines: stockLines(stock), Total: InventoryValue(stock)}
		for _, g := range Groups(stock, func(st ledger.Stock) int64 { return st.ProductID }) {
			report.ByProduct = append(report.ByProduct, ProductValue{
				ProductID: g.Key,
				Product:   g.Records[0].ProductName,
				Quantity:  SumQuantity(g.Records),
				Value:     InventoryValue(g.Records),
			})
		}
		sort.SliceStable(report.ByProduct, func(i, j int) bool {
			return report.ByProduct[i].Product < report.ByProduct[j].Product
		})
		return report, nil
	}, "inventory_value")
	return out, err
}

// SalesByStore lists every store with units sold and revenue. Stores
// without sales report zero.
func (s *Service) SalesByStore(ctx context.Context) ([]StoreSales, error) {
	var out []StoreSales
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		stores, err := s.repo.ListStores(ctx)
		if err != nil {
			return nil, err
		}
		sales, err := s.repo.Sales(ctx, ledger.Filter{})
		if err != nil {
			return nil, err
		}
		byStore := GroupBy(sales, func(sa ledger.Sale) int64 { return sa.StoreID })
		rows := make([]StoreSales, 0, len(stores))
		for _, store := range stores {
			rows = append(rows, StoreSales{
				StoreID:  store.ID,
				Store:    store.Name,
				Quantity: SumQuantity(byStore[store.ID]),
				Revenue:  SumValue(byStore[store.ID]),
			})
		}
		return rows, nil
	}, "sales_by_store")
	return out, err
}

// SupplierPurchaseHistory lists every supplier with its purchases.
func (s *Service) SupplierPurchaseHistory(ctx context.Context) ([]SupplierHistory, error) {
	var out []SupplierHistory
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		suppliers, err := s.repo.ListSuppliers(ctx)
		if err != nil {
			return nil, err
		}
		purchases, err := s.repo.Purchases(ctx, ledger.Filter{})
		if err != nil {
			return nil, err
		}
		bySupplier := GroupBy(purchases, func(p ledger.Purchase) int64 { return p.SupplierID })
		rows := make([]SupplierHistory, 0, len(suppliers))
		for _, sup := range suppliers {
			list := bySupplier[sup.ID]
			rows = append(rows, SupplierHistory{
				Supplier:  sup,
				Purchases: list,
				Quantity:  SumQuantity(list),
				Value:     SumValue(list),
			})
		}
		return rows, nil
	}, "supplier_history")
	return out, err
}

// ProductStockReport lists every stock line with its value.
func (s *Service) ProductStockReport(ctx context.Context) (ProductStockReport, error) {
	var out ProductStockReport
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		stock, err := s.repo.Stocks(ctx, ledger.Filter{})
		if err != nil {
			return nil, err
		}
		return ProductStockReport{
			Lines:         stockLines(stock),
			TotalQuantity: SumQuantity(stock),
			TotalValue:    InventoryValue(stock),
		}, nil
	}, "product_stock")
	return out, err
}

// StoreProfitLoss returns a store's purchases, sales, stock and totals.
// Profit/loss is total sales minus total purchases.
func (s *Service) StoreProfitLoss(ctx context.Context, storeID int64) (StoreProfitLoss, error) {
	var out StoreProfitLoss
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		var report StoreProfitLoss
		err := s.snapshot(ctx, func(repo ledger.Repository) error {
			store, err := repo.GetStore(ctx, storeID)
			if err != nil {
				return err
			}
			filter := ledger.Filter{StoreID: storeID}
			purchases, err := repo.Purchases(ctx, filter)
			if err != nil {
				return err
			}
			sales, err := repo.Sales(ctx, filter)
			if err != nil {
				return err
			}
			stock, err := repo.Stocks(ctx, filter)
			if err != nil {
				return err
			}
			report = StoreProfitLoss{
				Store:          store,
				Purchases:      purchases,
				Sales:          sales,
				Stock:          stockLines(stock),
				TotalPurchases: SumValue(purchases),
				TotalSales:     SumValue(sales),
				StockValue:     InventoryValue(stock),
			}
			report.ProfitLoss = report.TotalSales.Sub(report.TotalPurchases)
			return nil
		})
		return report, err
	}, "store_pl", strconv.FormatInt(storeID, 10))
	return out, err
}

// Dashboard gathers the landing page figures concurrently.
func (s *Service) Dashboard(ctx context.Context, asOf time.Time) (Dashboard, error) {
	ref := s.reference(asOf)
	var out Dashboard
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		dash := Dashboard{AsOf: ref}
		var (
			stores    []ledger.Store
			stock     []ledger.Stock
			purchases []ledger.Purchase
			today     []ledger.Sale
			todayCost []ledger.Purchase
		)
		todayWindow := MustResolve(Today, ref, time.UTC)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			dash.LatestSales, err = s.repo.Sales(gctx, ledger.Filter{To: ref, Limit: latestLimit})
			return err
		})
		g.Go(func() (err error) {
			dash.LatestPurchases, err = s.repo.Purchases(gctx, ledger.Filter{To: ref, Limit: latestLimit})
			return err
		})
		g.Go(func() (err error) {
			stores, err = s.repo.ListStores(gctx)
			return err
		})
		g.Go(func() (err error) {
			stock, err = s.repo.Stocks(gctx, ledger.Filter{})
			return err
		})
		g.Go(func() (err error) {
			purchases, err = s.repo.Purchases(gctx, ledger.Filter{To: ref})
			return err
		})
		g.Go(func() (err error) {
			dash.TotalSales, err = s.repo.Totals(gctx, ledger.KindSale, ledger.Filter{To: ref})
			return err
		})
		g.Go(func() (err error) {
			dash.TotalPurchases, err = s.repo.Totals(gctx, ledger.KindPurchase, ledger.Filter{To: ref})
			return err
		})
		g.Go(func() (err error) {
			today, err = s.repo.Sales(gctx, todayWindow.Filter())
			return err
		})
		g.Go(func() (err error) {
			todayCost, err = s.repo.Purchases(gctx, todayWindow.Filter())
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("reports: dashboard: %w", err)
		}
		byStore := GroupBy(stock, func(st ledger.Stock) int64 { return st.StoreID })
		for _, store := range stores {
			dash.StockByStore = append(dash.StockByStore, StoreQuantity{
				StoreID:  store.ID,
				Store:    store.Name,
				Quantity: SumQuantity(byStore[store.ID]),
			})
		}
		dash.PurchasesByStore = storeTotals(stores, purchases)
		dash.InventoryValue = InventoryValue(stock)
		dash.Today = salesWindow(todayWindow, today, todayCost)
		return dash, nil
	}, "dashboard", dateKey(ref))
	return out, err
}

// StockChart returns on-hand quantity per product across stores.
func (s *Service) StockChart(ctx context.Context) (StockChart, error) {
	var out StockChart
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		stock, err := s.repo.Stocks(ctx, ledger.Filter{})
		if err != nil {
			return nil, err
		}
		chart := StockChart{Labels: []string{}, Quantity: []int64{}}
		for _, g := range Groups(stock, func(st ledger.Stock) string { return st.ProductName }) {
			chart.Labels = append(chart.Labels, g.Key)
			chart.Quantity = append(chart.Quantity, SumQuantity(g.Records))
		}
		return chart, nil
	}, "stock_chart")
	return out, err
}

// ProductDetail returns a product with its stock and ledger history.
func (s *Service) ProductDetail(ctx context.Context, productID int64) (ProductDetail, error) {
	var out ProductDetail
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		var detail ProductDetail
		err := s.snapshot(ctx, func(repo ledger.Repository) error {
			product, err := repo.GetProduct(ctx, productID)
			if err != nil {
				return err
			}
			filter := ledger.Filter{ProductID: productID}
			stock, err := repo.Stocks(ctx, filter)
			if err != nil {
				return err
			}
			purchases, err := repo.Purchases(ctx, filter)
			if err != nil {
				return err
			}
			sales, err := repo.Sales(ctx, filter)
			if err != nil {
				return err
			}
			detail = ProductDetail{
				Product:        product,
				Stock:          stockLines(stock),
				Purchases:      purchases,
				Sales:          sales,
				PurchasedValue: SumValue(purchases),
				SoldValue:      SumValue(sales),
			}
			return nil
		})
		return detail, err
	}, "product", strconv.FormatInt(productID, 10))
	return out, err
}

// StoreProducts lists the products stocked at a store.
func (s *Service) StoreProducts(ctx context.Context, storeID int64) (StoreProducts, error) {
	var out StoreProducts
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		var result StoreProducts
		err := s.snapshot(ctx, func(repo ledger.Repository) error {
			store, err := repo.GetStore(ctx, storeID)
			if err != nil {
				return err
			}
			stock, err := repo.Stocks(ctx, ledger.Filter{StoreID: storeID})
			if err != nil {
				return err
			}
			result = StoreProducts{Store: store, Stock: stockLines(stock), Value: InventoryValue(stock)}
			return nil
		})
		return result, err
	}, "store_products", strconv.FormatInt(storeID, 10))
	return out, err
}

// Stores lists all stores for navigation pages.
func (s *Service) Stores(ctx context.Context) ([]ledger.Store, error) {
	return s.repo.ListStores(ctx)
}

func (s *Service) snapshot(ctx context.Context, fn func(ledger.Repository) error) error {
	if snap, ok := s.repo.(Snapshotter); ok {
		return snap.Snapshot(ctx, fn)
	}
	return fn(s.repo)
}

func windowTotal[R interface {
	Line
	Dated
}](w Window, records []R) WindowTotal {
	in := FilterByWindow(records, w)
	return WindowTotal{Window: w, Label: w.Kind.Label(), Quantity: SumQuantity(in), Value: SumValue(in)}
}

func storeTotals(stores []ledger.Store, purchases []ledger.Purchase) []StoreTotal {
	byStore := GroupBy(purchases, func(p ledger.Purchase) int64 { return p.StoreID })
	rows := make([]StoreTotal, 0, len(stores))
	for _, store := range stores {
		rows = append(rows, StoreTotal{
			StoreID:  store.ID,
			Store:    store.Name,
			Quantity: SumQuantity(byStore[store.ID]),
			Value:    SumValue(byStore[store.ID]),
		})
	}
	return rows
}

func stockLines(stock []ledger.Stock) []StockLine {
	lines := make([]StockLine, 0, len(stock))
	for _, st := range stock {
		lines = append(lines, StockLine{Stock: st, Value: st.Value()})
	}
	return lines
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// assign copies value into dest through JSON so uncached and cached paths
// produce identical shapes.
func assign(dest, value any) error {
	return (*Cache)(nil).FetchJSON(context.Background(), "", dest, func(context.Context) (any, error) {
		return value, nil
	})
}
