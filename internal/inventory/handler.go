package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/storeledger/internal/ledger"
	"github.com/odyssey-erp/storeledger/internal/platform/httpx"
	"github.com/odyssey-erp/storeledger/internal/shared"
	"github.com/odyssey-erp/storeledger/internal/view"
)

// ReferenceLister supplies the choices shown on inventory forms.
type ReferenceLister interface {
	ListStores(ctx context.Context) ([]ledger.Store, error)
	ListProducts(ctx context.Context) ([]ledger.Product, error)
	ListSuppliers(ctx context.Context) ([]ledger.Supplier, error)
}

// Handler wires HTTP endpoints for the inventory module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	refs      ReferenceLister
	templates *view.Engine
	csrf      *shared.CSRFManager
	validator *validator.Validate
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, refs ReferenceLister, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, refs: refs, templates: templates, csrf: csrf, validator: validator.New()}
}

// MountRoutes registers inventory routes. Access control is applied by the
// router-wide guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/purchases/new", h.showPurchaseForm)
	r.Post("/purchases", h.handlePurchase)
	r.Get("/sales/new", h.showSaleForm)
	r.Post("/sales", h.handleSale)

	r.Get("/purchase/{storeID}/{productID}", h.showPurchaseForm)
	r.Post("/purchase/{storeID}/{productID}", h.handlePurchase)
	r.Get("/sell/{storeID}/{productID}", h.showSaleForm)
	r.Post("/sell/{storeID}/{productID}", h.handleSale)

	r.Get("/stock/new", h.showStockForm)
	r.Post("/stock/new", h.handleAddStock)
	r.Get("/stock/{id}/edit", h.showStockEdit)
	r.Post("/stock/{id}/edit", h.handleSetStock)
	r.Get("/stock/{id}/delete", h.showStockDelete)
	r.Post("/stock/{id}/delete", h.handleDeleteStock)
}

type purchaseForm struct {
	StoreID        int64  `validate:"required,gt=0"`
	ProductID      int64  `validate:"required,gt=0"`
	SupplierID     int64  `validate:"required,gt=0"`
	Quantity       int64  `validate:"required,gt=0"`
	UnitPrice      string `validate:"required,numeric"`
	IdempotencyKey string `validate:"omitempty,uuid"`
}

type saleForm struct {
	StoreID        int64  `validate:"required,gt=0"`
	ProductID      int64  `validate:"required,gt=0"`
	Quantity       int64  `validate:"required,gt=0"`
	UnitPrice      string `validate:"required,numeric"`
	IdempotencyKey string `validate:"omitempty,uuid"`
}

type stockForm struct {
	ID        int64
	StoreID   int64 `validate:"required,gt=0"`
	ProductID int64 `validate:"required,gt=0"`
	Quantity  int64 `validate:"gte=0"`
}

type formPageData struct {
	Form      any
	Errors    map[string]string
	Action    string
	Locked    bool
	Stores    []ledger.Store
	Products  []ledger.Product
	Suppliers []ledger.Supplier
	Stock     ledger.Stock
}

func (h *Handler) showPurchaseForm(w http.ResponseWriter, r *http.Request) {
	form := purchaseForm{IdempotencyKey: uuid.NewString()}
	form.StoreID, form.ProductID = pairFromPath(r)
	h.renderForm(w, r, "pages/inventory/purchase_form.html", "Record purchase", form, map[string]string{}, http.StatusOK)
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form, errs := h.parsePurchaseForm(r)
	if len(errs) == 0 {
		price, err := ledger.ParseMoney(form.UnitPrice)
		if err != nil {
			errs["UnitPrice"] = shared.UserSafeMessage(err)
		} else {
			res, err := h.service.RecordPurchase(r.Context(), PurchaseInput{
				StoreID:        form.StoreID,
				ProductID:      form.ProductID,
				SupplierID:     form.SupplierID,
				Quantity:       form.Quantity,
				UnitPrice:      price,
				IdempotencyKey: form.IdempotencyKey,
			})
			if err == nil {
				if httpx.WantsJSON(r) {
					httpx.JSON(w, http.StatusCreated, res)
					return
				}
				h.flash(r, "success", fmt.Sprintf("Purchase recorded. %s stock is now %d", res.Purchase.ProductName, res.Stock))
				http.Redirect(w, r, afterPairRedirect(r, form.StoreID), http.StatusSeeOther)
				return
			}
			h.logger.Warn("record purchase failed", slog.Any("error", err))
			if httpx.WantsJSON(r) {
				httpx.RespondError(w, err)
				return
			}
			errs["general"] = shared.UserSafeMessage(err)
		}
	}
	if httpx.WantsJSON(r) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", joinErrors(errs))
		return
	}
	h.renderForm(w, r, "pages/inventory/purchase_form.html", "Record purchase", form, errs, http.StatusBadRequest)
}

func (h *Handler) showSaleForm(w http.ResponseWriter, r *http.Request) {
	form := saleForm{IdempotencyKey: uuid.NewString()}
	form.StoreID, form.ProductID = pairFromPath(r)
	h.renderForm(w, r, "pages/inventory/sale_form.html", "Record sale", form, map[string]string{}, http.StatusOK)
}

func (h *Handler) handleSale(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form, errs := h.parseSaleForm(r)
	status := http.StatusBadRequest
	if len(errs) == 0 {
		price, err := ledger.ParseMoney(form.UnitPrice)
		if err != nil {
			errs["UnitPrice"] = shared.UserSafeMessage(err)
		} else {
			res, err := h.service.RecordSale(r.Context(), SaleInput{
				StoreID:        form.StoreID,
				ProductID:      form.ProductID,
				Quantity:       form.Quantity,
				UnitPrice:      price,
				IdempotencyKey: form.IdempotencyKey,
			})
			if err == nil {
				if httpx.WantsJSON(r) {
					httpx.JSON(w, http.StatusCreated, res)
					return
				}
				h.flash(r, "success", fmt.Sprintf("Sale recorded. %s stock is now %d", res.Sale.ProductName, res.Stock))
				http.Redirect(w, r, afterPairRedirect(r, form.StoreID), http.StatusSeeOther)
				return
			}
			h.logger.Warn("record sale failed", slog.Any("error", err))
			if httpx.WantsJSON(r) {
				httpx.RespondError(w, err)
				return
			}
			errs["general"] = shared.UserSafeMessage(err)
			status = httpx.StatusFor(err)
			if status == http.StatusInternalServerError {
				status = http.StatusBadRequest
			}
		}
	}
	if httpx.WantsJSON(r) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", joinErrors(errs))
		return
	}
	h.renderForm(w, r, "pages/inventory/sale_form.html", "Record sale", form, errs, status)
}

func (h *Handler) showStockForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, "pages/inventory/stock_form.html", "Add stock", stockForm{}, map[string]string{}, http.StatusOK)
}

func (h *Handler) handleAddStock(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form, errs := h.parseStockForm(r)
	if len(errs) == 0 {
		if _, err := h.service.AddStock(r.Context(), StockInput{StoreID: form.StoreID, ProductID: form.ProductID, Quantity: form.Quantity}); err != nil {
			h.logger.Warn("add stock failed", slog.Any("error", err))
			errs["general"] = shared.UserSafeMessage(err)
		} else {
			h.flash(r, "success", "Stock saved")
			http.Redirect(w, r, "/products", http.StatusSeeOther)
			return
		}
	}
	h.renderForm(w, r, "pages/inventory/stock_form.html", "Add stock", form, errs, http.StatusBadRequest)
}

func (h *Handler) showStockEdit(w http.ResponseWriter, r *http.Request) {
	st, ok := h.loadStock(w, r)
	if !ok {
		return
	}
	form := stockForm{ID: st.ID, StoreID: st.StoreID, ProductID: st.ProductID, Quantity: st.Quantity}
	h.renderStock(w, r, "pages/inventory/stock_edit.html", "Update stock", form, st, map[string]string{}, http.StatusOK)
}

func (h *Handler) handleSetStock(w http.ResponseWriter, r *http.Request) {
	st, ok := h.loadStock(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := stockForm{ID: st.ID, StoreID: st.StoreID, ProductID: st.ProductID}
	errs := make(map[string]string)
	qty, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue("quantity")), 10, 64)
	if err != nil || qty < 0 {
		errs["Quantity"] = "Quantity must be a whole number of zero or more"
	} else {
		form.Quantity = qty
		if _, err := h.service.SetStock(r.Context(), st.ID, qty); err != nil {
			h.logger.Warn("update stock failed", slog.Any("error", err))
			errs["general"] = shared.UserSafeMessage(err)
		} else {
			h.flash(r, "success", "Stock updated")
			http.Redirect(w, r, "/products", http.StatusSeeOther)
			return
		}
	}
	h.renderStock(w, r, "pages/inventory/stock_edit.html", "Update stock", form, st, errs, http.StatusBadRequest)
}

func (h *Handler) showStockDelete(w http.ResponseWriter, r *http.Request) {
	st, ok := h.loadStock(w, r)
	if !ok {
		return
	}
	h.renderStock(w, r, "pages/inventory/stock_delete.html", "Delete stock", stockForm{ID: st.ID}, st, map[string]string{}, http.StatusOK)
}

func (h *Handler) handleDeleteStock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := h.service.DeleteStock(r.Context(), id); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("delete stock failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.flash(r, "success", "Stock deleted")
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

func (h *Handler) loadStock(w http.ResponseWriter, r *http.Request) (ledger.Stock, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return ledger.Stock{}, false
	}
	st, err := h.service.GetStock(r.Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.NotFound(w, r)
			return ledger.Stock{}, false
		}
		h.logger.Error("load stock", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return ledger.Stock{}, false
	}
	return st, true
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, page, title string, form any, errs map[string]string, status int) {
	data := formPageData{Form: form, Errors: errs, Action: r.URL.Path}
	if strings.HasSuffix(data.Action, "/purchases/new") || strings.HasSuffix(data.Action, "/sales/new") {
		data.Action = strings.TrimSuffix(data.Action, "/new")
	}
	data.Locked = chi.URLParam(r, "storeID") != ""
	if err := h.loadChoices(r.Context(), &data); err != nil {
		h.logger.Error("load form choices", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, page, title, data, status)
}

func (h *Handler) renderStock(w http.ResponseWriter, r *http.Request, page, title string, form stockForm, st ledger.Stock, errs map[string]string, status int) {
	data := formPageData{Form: form, Errors: errs, Action: r.URL.Path, Stock: st}
	h.render(w, r, page, title, data, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page, title string, data formPageData, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: title, CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, page, viewData); err != nil {
		h.logger.Error("render inventory page", slog.String("page", page), slog.Any("error", err))
	}
}

func (h *Handler) loadChoices(ctx context.Context, data *formPageData) error {
	var err error
	if data.Stores, err = h.refs.ListStores(ctx); err != nil {
		return err
	}
	if data.Products, err = h.refs.ListProducts(ctx); err != nil {
		return err
	}
	data.Suppliers, err = h.refs.ListSuppliers(ctx)
	return err
}

func (h *Handler) flash(r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
}

func (h *Handler) parsePurchaseForm(r *http.Request) (purchaseForm, map[string]string) {
	errs := make(map[string]string)
	form := purchaseForm{
		UnitPrice:      strings.TrimSpace(r.PostFormValue("unit_price")),
		IdempotencyKey: r.PostFormValue("idempotency_key"),
	}
	form.StoreID, form.ProductID = pairFromPath(r)
	if form.StoreID == 0 {
		form.StoreID = parseID(r.PostFormValue("store_id"), "StoreID", errs)
	}
	if form.ProductID == 0 {
		form.ProductID = parseID(r.PostFormValue("product_id"), "ProductID", errs)
	}
	form.SupplierID = parseID(r.PostFormValue("supplier_id"), "SupplierID", errs)
	form.Quantity = parseQuantity(r.PostFormValue("quantity"), errs)
	h.validate(form, errs)
	return form, errs
}

func (h *Handler) parseSaleForm(r *http.Request) (saleForm, map[string]string) {
	errs := make(map[string]string)
	form := saleForm{
		UnitPrice:      strings.TrimSpace(r.PostFormValue("unit_price")),
		IdempotencyKey: r.PostFormValue("idempotency_key"),
	}
	form.StoreID, form.ProductID = pairFromPath(r)
	if form.StoreID == 0 {
		form.StoreID = parseID(r.PostFormValue("store_id"), "StoreID", errs)
	}
	if form.ProductID == 0 {
		form.ProductID = parseID(r.PostFormValue("product_id"), "ProductID", errs)
	}
	form.Quantity = parseQuantity(r.PostFormValue("quantity"), errs)
	h.validate(form, errs)
	return form, errs
}

func (h *Handler) parseStockForm(r *http.Request) (stockForm, map[string]string) {
	errs := make(map[string]string)
	form := stockForm{
		StoreID:   parseID(r.PostFormValue("store_id"), "StoreID", errs),
		ProductID: parseID(r.PostFormValue("product_id"), "ProductID", errs),
	}
	if raw := strings.TrimSpace(r.PostFormValue("quantity")); raw != "" {
		qty, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errs["Quantity"] = "Quantity must be a whole number"
		}
		form.Quantity = qty
	}
	h.validate(form, errs)
	return form, errs
}

func (h *Handler) validate(form any, errs map[string]string) {
	err := h.validator.Struct(form)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs["general"] = err.Error()
		return
	}
	for _, fieldErr := range fieldErrs {
		if _, exists := errs[fieldErr.Field()]; exists {
			continue
		}
		errs[fieldErr.Field()] = fieldMessage(fieldErr)
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "gt":
		return "Must be greater than zero"
	case "gte":
		return "Must not be negative"
	case "numeric":
		return "Must be a number"
	case "uuid":
		return "Form token is invalid, reload the page"
	default:
		return fe.Error()
	}
}

func parseID(raw, field string, errs map[string]string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		errs[field] = "Select a valid option"
		return 0
	}
	return id
}

func parseQuantity(raw string, errs map[string]string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	qty, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		errs["Quantity"] = "Quantity must be a whole number"
		return 0
	}
	return qty
}

func pairFromPath(r *http.Request) (int64, int64) {
	storeID, _ := strconv.ParseInt(chi.URLParam(r, "storeID"), 10, 64)
	productID, _ := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	return storeID, productID
}

func afterPairRedirect(r *http.Request, storeID int64) string {
	if chi.URLParam(r, "storeID") != "" {
		return fmt.Sprintf("/stores/%d/products", storeID)
	}
	return "/"
}

func joinErrors(errs map[string]string) string {
	parts := make([]string, 0, len(errs))
	for field, msg := range errs {
		parts = append(parts, field+": "+msg)
	}
	slices.Sort(parts)
	return strings.Join(parts, "; ")
}
