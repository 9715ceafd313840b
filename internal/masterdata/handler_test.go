package masterdata

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/storeledger/internal/ledger"
	"github.com/odyssey-erp/storeledger/internal/shared"
	"github.com/odyssey-erp/storeledger/internal/view"
)

func newTestHandler(t *testing.T) (http.Handler, *memoryRepo) {
	t.Helper()
	svc, repo, _, _ := newTestService()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, engine, shared.NewCSRFManager("secret"))
	r := chi.NewRouter()
	r.Route("/masterdata", h.MountRoutes)
	return r, repo
}

func TestCreateStoreRedirects(t *testing.T) {
	router, repo := newTestHandler(t)

	form := url.Values{"name": {"Mwanza"}, "address": {"Kenyatta Rd"}}
	req := httptest.NewRequest(http.MethodPost, "/masterdata/stores", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/masterdata/stores", rec.Header().Get("Location"))
	assert.Len(t, repo.stores, 1)
}

func TestCreateProductInvalidRerendersForm(t *testing.T) {
	router, repo := newTestHandler(t)

	form := url.Values{"name": {"Widget"}, "price": {"cheap"}}
	req := httptest.NewRequest(http.MethodPost, "/masterdata/products", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Price must be a number")
	assert.Empty(t, repo.products)
}

func TestListSuppliersJSON(t *testing.T) {
	router, repo := newTestHandler(t)
	repo.suppliers[4] = ledgerSupplier(4, "Lake Traders")

	req := httptest.NewRequest(http.MethodGet, "/masterdata/suppliers", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var rows []Row
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Lake Traders", rows[0].Name)
}

func TestEditUnknownStoreIsNotFound(t *testing.T) {
	router, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/masterdata/stores/12/edit", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func ledgerSupplier(id int64, name string) ledger.Supplier {
	return ledger.Supplier{ID: id, Name: name}
}
