package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/storeledger/internal/ledger"
)

func newTestService(repo ledger.Repository, cache *Cache) *Service {
	svc := NewService(repo, cache, time.UTC, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 8, 10, 0, 0, 0, time.UTC) }
	return svc
}

func fixed(t *testing.T, want string, got interface{ StringFixed(int32) string }) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2))
}

func TestSalesReportWindows(t *testing.T) {
	svc := newTestService(seedLedger(), nil)

	report, err := svc.SalesReport(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, report.Windows, 4)
	assert.True(t, report.AsOf.Equal(day(2024, 5, 8)))

	today := report.Windows[0]
	assert.Equal(t, Today, today.Window.Kind)
	assert.EqualValues(t, 4, today.Quantity)
	fixed(t, "8.00", today.Sales)
	fixed(t, "10.00", today.Purchases)
	fixed(t, "-2.00", today.Profit)
	fixed(t, "2.00", today.Margin)

	week := report.Windows[1]
	fixed(t, "23.00", week.Sales)
	fixed(t, "13.00", week.Profit)
	fixed(t, "9.50", week.Margin)

	month := report.Windows[2]
	fixed(t, "23.00", month.Sales)
	fixed(t, "10.00", month.Purchases)

	year := report.Windows[3]
	fixed(t, "23.00", year.Sales)
	fixed(t, "20.00", year.Purchases)
	fixed(t, "3.00", year.Profit)
}

func TestSalesReportAsOfWeekSpanningYears(t *testing.T) {
	repo := seedLedger()
	repo.sales = append(repo.sales, ledger.Sale{ID: 9, StoreID: 1, Quantity: 2, UnitPrice: money("5.00"), SaleDate: day(2024, 12, 31)})
	svc := newTestService(repo, nil)

	// 1 January 2025 is a Wednesday; its week began on 30 December 2024.
	report, err := svc.SalesReport(context.Background(), day(2025, 1, 1))
	require.NoError(t, err)
	fixed(t, "0.00", report.Windows[0].Sales)
	fixed(t, "10.00", report.Windows[1].Sales)
	fixed(t, "0.00", report.Windows[2].Sales)
	fixed(t, "0.00", report.Windows[3].Sales)
}

func TestPurchaseReports(t *testing.T) {
	svc := newTestService(seedLedger(), nil)
	ctx := context.Background()

	report, err := svc.PurchaseReport(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, report.ByStore, 2)
	assert.Equal(t, "Geita", report.ByStore[0].Store)
	assert.EqualValues(t, 15, report.ByStore[0].Quantity)
	fixed(t, "20.00", report.ByStore[0].Value)
	fixed(t, "0.00", report.ByStore[1].Value)
	fixed(t, "20.00", report.Total)
	fixed(t, "10.00", report.Windows[0].Value)
	fixed(t, "20.00", report.Windows[3].Value)

	summary, err := svc.PurchaseSummary(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, summary.Stores, 2)
	assert.EqualValues(t, 10, summary.Stores[0].Windows[0].Quantity)
	assert.EqualValues(t, 15, summary.Stores[0].Windows[3].Quantity)
	assert.EqualValues(t, 0, summary.Stores[1].Windows[3].Quantity)
}

func TestStoreAndSupplierReports(t *testing.T) {
	svc := newTestService(seedLedger(), nil)
	ctx := context.Background()

	byStore, err := svc.SalesByStore(ctx)
	require.NoError(t, err)
	require.Len(t, byStore, 2)
	assert.EqualValues(t, 10, byStore[0].Quantity)
	fixed(t, "24.50", byStore[0].Revenue)
	assert.Equal(t, "Mwanza", byStore[1].Store)
	fixed(t, "0.00", byStore[1].Revenue)

	history, err := svc.SupplierPurchaseHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Len(t, history[0].Purchases, 2)
	fixed(t, "20.00", history[0].Value)
	assert.Empty(t, history[1].Purchases)
	fixed(t, "0.00", history[1].Value)

	pl, err := svc.StoreProfitLoss(ctx, 1)
	require.NoError(t, err)
	fixed(t, "20.00", pl.TotalPurchases)
	fixed(t, "24.50", pl.TotalSales)
	fixed(t, "4.50", pl.ProfitLoss)
	fixed(t, "9.00", pl.StockValue)

	_, err = svc.StoreProfitLoss(ctx, 99)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestStockReports(t *testing.T) {
	svc := newTestService(seedLedger(), nil)
	ctx := context.Background()

	valuation, err := svc.InventoryValuation(ctx)
	require.NoError(t, err)
	fixed(t, "9.00", valuation.Total)
	require.Len(t, valuation.ByProduct, 1)
	assert.EqualValues(t, 6, valuation.ByProduct[0].Quantity)

	stock, err := svc.ProductStockReport(ctx)
	require.NoError(t, err)
	require.Len(t, stock.Lines, 1)
	fixed(t, "9.00", stock.Lines[0].Value)
	assert.EqualValues(t, 6, stock.TotalQuantity)

	chart, err := svc.StockChart(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Widget"}, chart.Labels)
	assert.Equal(t, []int64{6}, chart.Quantity)

	detail, err := svc.ProductDetail(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, detail.Sales, 3)
	assert.Len(t, detail.Purchases, 2)
	fixed(t, "24.50", detail.SoldValue)

	products, err := svc.StoreProducts(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Mwanza", products.Store.Name)
	assert.Empty(t, products.Stock)
	fixed(t, "0.00", products.Value)
}

func TestDashboard(t *testing.T) {
	svc := newTestService(seedLedger(), nil)

	dash, err := svc.Dashboard(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, dash.LatestSales, 3)
	assert.EqualValues(t, 1, dash.LatestSales[0].ID)
	require.Len(t, dash.StockByStore, 2)
	assert.EqualValues(t, 6, dash.StockByStore[0].Quantity)
	assert.EqualValues(t, 0, dash.StockByStore[1].Quantity)
	fixed(t, "24.50", dash.TotalSales.Value)
	assert.EqualValues(t, 10, dash.TotalSales.Quantity)
	fixed(t, "20.00", dash.TotalPurchases.Value)
	fixed(t, "9.00", dash.InventoryValue)
	fixed(t, "8.00", dash.Today.Sales)
	fixed(t, "-2.00", dash.Today.Profit)
}

func TestEmptyLedgerReportsZero(t *testing.T) {
	svc := newTestService(&memoryLedger{}, nil)
	ctx := context.Background()

	report, err := svc.SalesReport(ctx, time.Time{})
	require.NoError(t, err)
	for _, w := range report.Windows {
		fixed(t, "0.00", w.Sales)
		fixed(t, "0.00", w.Profit)
	}

	valuation, err := svc.InventoryValuation(ctx)
	require.NoError(t, err)
	fixed(t, "0.00", valuation.Total)

	chart, err := svc.StockChart(ctx)
	require.NoError(t, err)
	assert.Empty(t, chart.Labels)
}
