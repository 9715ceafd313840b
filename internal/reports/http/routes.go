package reporthttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/storeledger/internal/shared"
)

// MountRoutes registers dashboard, store, product and report endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	exports := exportsOnly(limiter)

	r.Get("/", h.handleDashboard)

	r.Get("/stores", h.handleStores)
	r.With(exports).Get("/stores/{id}/products", h.handleStoreProducts)
	r.Get("/stores/{id}/profit-loss", h.handleStoreProfitLoss)
	r.With(limiter).Get("/stores/{id}/profit-loss.pdf", h.handleStoreProfitLossPDF)

	r.With(exports).Get("/products", h.handleProductStock)
	r.Get("/products/{id}", h.handleProductDetail)

	r.Route("/reports", func(rr chi.Router) {
		rr.Use(exports)
		rr.Get("/sales", h.handleSalesReport)
		rr.Get("/purchases", h.handlePurchaseReport)
		rr.Get("/summary", h.handlePurchaseSummary)
		rr.Get("/inventory-value", h.handleInventoryValue)
		rr.Get("/sales-by-store", h.handleSalesByStore)
		rr.Get("/stock", h.handleStockReport)
		rr.Get("/supplier-purchases", h.handleSupplierPurchases)
		rr.Get("/stock-data", h.handleStockData)
	})
}

// exportsOnly applies limiter to CSV downloads and lets page views through.
func exportsOnly(limiter func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("format") == "csv" {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) (string, error) {
	if p, ok := shared.PrincipalFromContext(r.Context()); ok && p.UserID != 0 {
		return "user:" + strconv.FormatInt(p.UserID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
