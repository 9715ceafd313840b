package reporthttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/storeledger/internal/ledger"
	"github.com/odyssey-erp/storeledger/internal/platform/httpx"
	"github.com/odyssey-erp/storeledger/internal/reports"
	"github.com/odyssey-erp/storeledger/internal/reports/export"
	"github.com/odyssey-erp/storeledger/internal/shared"
	"github.com/odyssey-erp/storeledger/internal/view"
)

const requestTimeout = 5 * time.Second

var errBadAsOf = errors.New("as_of must be a date formatted YYYY-MM-DD")

// ReportService defines the report contract used by the handler.
type ReportService interface {
	SalesReport(ctx context.Context, asOf time.Time) (reports.SalesReport, error)
	PurchaseReport(ctx context.Context, asOf time.Time) (reports.PurchaseReport, error)
	PurchaseSummary(ctx context.Context, asOf time.Time) (reports.PurchaseSummary, error)
	InventoryValuation(ctx context.Context) (reports.InventoryValuation, error)
	SalesByStore(ctx context.Context) ([]reports.StoreSales, error)
	SupplierPurchaseHistory(ctx context.Context) ([]reports.SupplierHistory, error)
	ProductStockReport(ctx context.Context) (reports.ProductStockReport, error)
	StoreProfitLoss(ctx context.Context, storeID int64) (reports.StoreProfitLoss, error)
	Dashboard(ctx context.Context, asOf time.Time) (reports.Dashboard, error)
	StockChart(ctx context.Context) (reports.StockChart, error)
	ProductDetail(ctx context.Context, productID int64) (reports.ProductDetail, error)
	StoreProducts(ctx context.Context, storeID int64) (reports.StoreProducts, error)
	Stores(ctx context.Context) ([]ledger.Store, error)
}

// PDFService converts HTML into PDF bytes.
type PDFService interface {
	RenderHTML(ctx context.Context, html []byte) ([]byte, error)
}

// Handler serves the dashboard, store, product and report pages.
type Handler struct {
	logger    *slog.Logger
	service   ReportService
	templates *view.Engine
	pdf       PDFService
	csvPool   sync.Pool
}

// NewHandler constructs the report HTTP handler.
func NewHandler(logger *slog.Logger, service ReportService, templates *view.Engine, pdf PDFService) *Handler {
	h := &Handler{logger: logger, service: service, templates: templates, pdf: pdf}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

type reportPage struct {
	Report any
	AsOf   string
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	dash, err := h.service.Dashboard(ctx, asOf)
	h.respond(w, r, respondArgs{page: "pages/dashboard.html", title: "Dashboard", data: dash, err: err, asOf: asOf})
}

func (h *Handler) handleStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.service.Stores(r.Context())
	h.respond(w, r, respondArgs{page: "pages/stores/index.html", title: "Stores", data: stores, err: err})
}

func (h *Handler) handleStoreProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	result, err := h.service.StoreProducts(r.Context(), id)
	h.respond(w, r, respondArgs{page: "pages/stores/products.html", title: "Store products", data: result, err: err,
		csv: func(out io.Writer) error { return export.WriteStockCSV(out, result.Stock, result.Value) },
		filename: fmt.Sprintf("store-%d-products", id)})
}

func (h *Handler) handleStoreProfitLoss(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	result, err := h.service.StoreProfitLoss(r.Context(), id)
	h.respond(w, r, respondArgs{page: "pages/stores/profit_loss.html", title: "Profit and loss", data: result, err: err})
}

func (h *Handler) handleStoreProfitLossPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if h.pdf == nil {
		h.handleServerError(w, r, "pdf exporter", errors.New("pdf exporter not configured"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	result, err := h.service.StoreProfitLoss(ctx, id)
	if err != nil {
		h.handleError(w, r, "store profit loss", err)
		return
	}
	var html bytes.Buffer
	if err := h.templates.Execute(&html, "pages/stores/profit_loss_pdf.html", result); err != nil {
		h.handleServerError(w, r, "render pdf html", err)
		return
	}
	pdfBytes, err := h.pdf.RenderHTML(ctx, html.Bytes())
	if err != nil {
		h.handleServerError(w, r, "render pdf", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"profit-loss-%s.pdf\"", slug(result.Store.Name)))
	if _, err := w.Write(pdfBytes); err != nil {
		h.logger.Error("stream pdf", slog.Any("error", err))
	}
}

func (h *Handler) handleProductStock(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ProductStockReport(r.Context())
	h.respond(w, r, respondArgs{page: "pages/products/index.html", title: "Products in stock", data: result, err: err,
		csv:      func(out io.Writer) error { return export.WriteStockCSV(out, result.Lines, result.TotalValue) },
		filename: "products"})
}

func (h *Handler) handleProductDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	result, err := h.service.ProductDetail(r.Context(), id)
	h.respond(w, r, respondArgs{page: "pages/products/detail.html", title: "Product detail", data: result, err: err})
}

func (h *Handler) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}
	result, err := h.service.SalesReport(r.Context(), asOf)
	h.respond(w, r, respondArgs{page: "pages/reports/sales.html", title: "Sales report", data: result, err: err, asOf: asOf,
		csv:      func(out io.Writer) error { return export.WriteSalesCSV(out, result) },
		filename: "sales-" + fileDate(result.AsOf)})
}

func (h *Handler) handlePurchaseReport(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}
	result, err := h.service.PurchaseReport(r.Context(), asOf)
	h.respond(w, r, respondArgs{page: "pages/reports/purchases.html", title: "Purchase report", data: result, err: err, asOf: asOf,
		csv:      func(out io.Writer) error { return export.WritePurchasesCSV(out, result) },
		filename: "purchases-" + fileDate(result.AsOf)})
}

func (h *Handler) handlePurchaseSummary(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}
	result, err := h.service.PurchaseSummary(r.Context(), asOf)
	h.respond(w, r, respondArgs{page: "pages/reports/summary.html", title: "Store purchases", data: result, err: err, asOf: asOf,
		csv:      func(out io.Writer) error { return export.WritePurchaseSummaryCSV(out, result) },
		filename: "purchase-summary-" + fileDate(result.AsOf)})
}

func (h *Handler) handleInventoryValue(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.InventoryValuation(r.Context())
	h.respond(w, r, respondArgs{page: "pages/reports/inventory_value.html", title: "Inventory value", data: result, err: err,
		csv:      func(out io.Writer) error { return export.WriteStockCSV(out, result.Lines, result.Total) },
		filename: "inventory-value"})
}

func (h *Handler) handleSalesByStore(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SalesByStore(r.Context())
	h.respond(w, r, respondArgs{page: "pages/reports/sales_by_store.html", title: "Sales by store", data: result, err: err,
		csv:      func(out io.Writer) error { return export.WriteSalesByStoreCSV(out, result) },
		filename: "sales-by-store"})
}

func (h *Handler) handleStockReport(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ProductStockReport(r.Context())
	h.respond(w, r, respondArgs{page: "pages/reports/stock.html", title: "Product stock report", data: result, err: err,
		csv:      func(out io.Writer) error { return export.WriteStockCSV(out, result.Lines, result.TotalValue) },
		filename: "product-stock"})
}

func (h *Handler) handleSupplierPurchases(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SupplierPurchaseHistory(r.Context())
	h.respond(w, r, respondArgs{page: "pages/reports/supplier_purchases.html", title: "Supplier purchase history", data: result, err: err,
		csv:      func(out io.Writer) error { return export.WriteSupplierHistoryCSV(out, result) },
		filename: "supplier-purchases"})
}

func (h *Handler) handleStockData(w http.ResponseWriter, r *http.Request) {
	chart, err := h.service.StockChart(r.Context())
	if err != nil {
		h.logger.Error("stock chart", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, chart)
}

type respondArgs struct {
	page     string
	title    string
	data     any
	err      error
	asOf     time.Time
	csv      func(io.Writer) error
	filename string
}

// respond renders data as JSON, CSV or HTML depending on the request.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, args respondArgs) {
	if args.err != nil {
		h.handleError(w, r, args.title, args.err)
		return
	}
	switch {
	case httpx.WantsJSON(r):
		httpx.JSON(w, http.StatusOK, args.data)
	case r.URL.Query().Get("format") == "csv" && args.csv != nil:
		h.writeCSV(w, r, args)
	default:
		sess := shared.SessionFromContext(r.Context())
		var flash *shared.FlashMessage
		if sess != nil {
			flash = sess.PopFlash()
		}
		page := reportPage{Report: args.data}
		if !args.asOf.IsZero() {
			page.AsOf = args.asOf.Format("2006-01-02")
		}
		viewData := view.TemplateData{Title: args.title, CSRFToken: shared.CSRFToken(sess), Flash: flash, CurrentPath: r.URL.Path, Data: page}
		if err := h.templates.Render(w, args.page, viewData); err != nil {
			h.handleServerError(w, r, "render template", err)
		}
	}
}

func (h *Handler) writeCSV(w http.ResponseWriter, r *http.Request, args respondArgs) {
	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()
	if err := args.csv(buf); err != nil {
		h.handleServerError(w, r, "write csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", args.filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("stream csv", slog.Any("error", err))
	}
}

func (h *Handler) asOf(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("as_of"))
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		h.handleError(w, r, "parse as_of", fmt.Errorf("%w: %w", ledger.ErrInvalidInput, errBadAsOf))
		return time.Time{}, false
	}
	return t, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.handleError(w, r, "parse id", ledger.NotFound("record", 0))
		return 0, false
	}
	return id, true
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, what string, err error) {
	status := httpx.StatusFor(err)
	if status == http.StatusInternalServerError {
		h.handleServerError(w, r, what, err)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.RespondError(w, err)
		return
	}
	http.Error(w, http.StatusText(status), status)
}

func (h *Handler) handleServerError(w http.ResponseWriter, r *http.Request, what string, err error) {
	h.logger.Error(what, slog.Any("error", err), slog.String("path", r.URL.Path))
	if httpx.WantsJSON(r) {
		httpx.RespondError(w, err)
		return
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func fileDate(t time.Time) string {
	if t.IsZero() {
		return "latest"
	}
	return t.Format("2006-01-02")
}

func slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, name)
}
