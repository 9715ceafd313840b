package reporthttp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/storeledger/internal/ledger"
	"github.com/odyssey-erp/storeledger/internal/reports"
	"github.com/odyssey-erp/storeledger/internal/view"
)

type stubService struct {
	asOf time.Time
}

func (s *stubService) SalesReport(_ context.Context, asOf time.Time) (reports.SalesReport, error) {
	s.asOf = asOf
	w := reports.MustResolve(reports.Today, time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC), time.UTC)
	return reports.SalesReport{
		AsOf: time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC),
		Windows: []reports.SalesWindow{{
			Window: w, Label: "Today", Quantity: 4,
			Sales: decimal.RequireFromString("8.00"), Purchases: decimal.RequireFromString("10.00"),
			Profit: decimal.RequireFromString("-2.00"),
		}},
	}, nil
}

func (s *stubService) PurchaseReport(context.Context, time.Time) (reports.PurchaseReport, error) {
	return reports.PurchaseReport{}, nil
}

func (s *stubService) PurchaseSummary(context.Context, time.Time) (reports.PurchaseSummary, error) {
	return reports.PurchaseSummary{}, nil
}

func (s *stubService) InventoryValuation(context.Context) (reports.InventoryValuation, error) {
	return reports.InventoryValuation{Total: decimal.RequireFromString("9.00")}, nil
}

func (s *stubService) SalesByStore(context.Context) ([]reports.StoreSales, error) {
	return []reports.StoreSales{{StoreID: 1, Store: "Geita", Quantity: 4, Revenue: decimal.RequireFromString("8.00")}}, nil
}

func (s *stubService) SupplierPurchaseHistory(context.Context) ([]reports.SupplierHistory, error) {
	return nil, nil
}

func (s *stubService) ProductStockReport(context.Context) (reports.ProductStockReport, error) {
	return reports.ProductStockReport{}, nil
}

func (s *stubService) StoreProfitLoss(_ context.Context, storeID int64) (reports.StoreProfitLoss, error) {
	if storeID != 1 {
		return reports.StoreProfitLoss{}, ledger.NotFound("store", storeID)
	}
	return reports.StoreProfitLoss{
		Store:          ledger.Store{ID: 1, Name: "Geita Main"},
		TotalPurchases: decimal.RequireFromString("15.00"),
		TotalSales:     decimal.RequireFromString("19.50"),
		ProfitLoss:     decimal.RequireFromString("4.50"),
	}, nil
}

func (s *stubService) Dashboard(context.Context, time.Time) (reports.Dashboard, error) {
	return reports.Dashboard{InventoryValue: decimal.RequireFromString("9.00")}, nil
}

func (s *stubService) StockChart(context.Context) (reports.StockChart, error) {
	return reports.StockChart{Labels: []string{"Widget"}, Quantity: []int64{6}}, nil
}

func (s *stubService) ProductDetail(_ context.Context, id int64) (reports.ProductDetail, error) {
	return reports.ProductDetail{}, ledger.NotFound("product", id)
}

func (s *stubService) StoreProducts(context.Context, int64) (reports.StoreProducts, error) {
	return reports.StoreProducts{}, nil
}

func (s *stubService) Stores(context.Context) ([]ledger.Store, error) {
	return []ledger.Store{{ID: 1, Name: "Geita Main"}}, nil
}

type stubPDF struct {
	html string
}

func (p *stubPDF) RenderHTML(_ context.Context, html []byte) ([]byte, error) {
	p.html = string(html)
	return []byte("%PDF-1.4"), nil
}

func newTestRouter(t *testing.T, svc ReportService, pdf PDFService) http.Handler {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, engine, pdf)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestSalesReportJSON(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(t, svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/reports/sales?as_of=2024-05-08", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-05-08", svc.asOf.Format("2006-01-02"))
	var body struct {
		Windows []struct {
			Sales  string `json:"sales"`
			Profit string `json:"profit"`
		} `json:"windows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Windows, 1)
	assert.Equal(t, "8.00", body.Windows[0].Sales)
	assert.Equal(t, "-2.00", body.Windows[0].Profit)
}

func TestSalesReportCSV(t *testing.T) {
	router := newTestRouter(t, &stubService{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/sales?format=csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sales-2024-05-08.csv")
	assert.Contains(t, rec.Body.String(), "8.00")
}

func TestSalesReportRejectsBadAsOf(t *testing.T) {
	router := newTestRouter(t, &stubService{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/sales?as_of=08/05/2024", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoreProfitLossHTML(t *testing.T) {
	router := newTestRouter(t, &stubService{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stores/1/profit-loss", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Geita Main")
	assert.Contains(t, rec.Body.String(), "4.50")
}

func TestUnknownStoreIsNotFound(t *testing.T) {
	router := newTestRouter(t, &stubService{}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stores/7/profit-loss", nil)
	req.Header.Set("Accept", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
}

func TestProfitLossPDF(t *testing.T) {
	pdf := &stubPDF{}
	router := newTestRouter(t, &stubService{}, pdf)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stores/1/profit-loss.pdf", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "profit-loss-geita-main.pdf")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
	assert.Contains(t, pdf.html, "Geita Main")
}

func TestStockDataIsAlwaysJSON(t *testing.T) {
	router := newTestRouter(t, &stubService{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/stock-data", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"labels":["Widget"],"quantity":[6]}`, rec.Body.String())
}

func TestCSVExportsAreRateLimited(t *testing.T) {
	router := newTestRouter(t, &stubService{}, nil)

	var last int
	for i := 0; i < 11; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/reports/sales-by-store?format=csv", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		router.ServeHTTP(rec, req)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/reports/sales-by-store", nil)
	req.RemoteAddr = "10.0.0.1:4000"
	req.Header.Set("Accept", "application/json")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
