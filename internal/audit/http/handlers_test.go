package audithttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/storeledger/internal/audit"
	"github.com/odyssey-erp/storeledger/internal/shared"
	"github.com/odyssey-erp/storeledger/internal/view"
)

type stubTimelineService struct {
	result      audit.Result
	exportRows  []audit.TimelineRow
	lastFilters audit.TimelineFilters
}

func (s *stubTimelineService) Timeline(_ context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	s.lastFilters = filters
	return s.result, nil
}

func (s *stubTimelineService) Export(_ context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error) {
	s.lastFilters = filters
	return s.exportRows, nil
}

func newAuditRouter(t *testing.T, service *stubTimelineService) http.Handler {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)
	handler := NewHandler(nil, service, templates)
	handler.now = func() time.Time { return time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Route("/audit", handler.MountRoutes)
	return r
}

func withSession(req *http.Request) *http.Request {
	sess := &shared.Session{}
	sess.SetUser("7")
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestTimelineDefaultsToLastWeek(t *testing.T) {
	service := &stubTimelineService{}
	router := newAuditRouter(t, service)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, withSession(httptest.NewRequest(http.MethodGet, "/audit", nil)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2024-05-08", service.lastFilters.From.Format("2006-01-02"))
	assert.Equal(t, "2024-05-15", service.lastFilters.To.Format("2006-01-02"))
	assert.Equal(t, defaultPageSize, service.lastFilters.PageSize)
}

func TestTimelineRendersRows(t *testing.T) {
	rows := []audit.TimelineRow{{
		At:       time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC),
		Actor:    "clerk@storeledger.local",
		Action:   "inventory:sale",
		Entity:   "sale",
		EntityID: "12",
	}}
	service := &stubTimelineService{result: audit.Result{Rows: rows, Paging: audit.PagingInfo{Page: 1, PageSize: 20}}}
	router := newAuditRouter(t, service)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, withSession(httptest.NewRequest(http.MethodGet, "/audit?from=2024-05-01&to=2024-05-15&entity=sale", nil)))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "clerk@storeledger.local")
	assert.Contains(t, body, "inventory:sale")
	assert.Equal(t, "sale", service.lastFilters.Entity)
}

func TestTimelineJSON(t *testing.T) {
	service := &stubTimelineService{result: audit.Result{Paging: audit.PagingInfo{Page: 2, PageSize: 5, PrevPage: 1}}}
	router := newAuditRouter(t, service)

	req := httptest.NewRequest(http.MethodGet, "/audit?page=2&page_size=5", nil)
	req.Header.Set("Accept", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"rows":[]`)
	assert.Contains(t, rr.Body.String(), `"prev_page":1`)
	assert.Equal(t, 2, service.lastFilters.Page)
}

func TestTimelineRejectsBadRange(t *testing.T) {
	router := newAuditRouter(t, &stubTimelineService{})
	for _, query := range []string{"from=2024-05-10&to=2024-05-01", "from=2023-01-01&to=2024-05-01", "to=yesterday", "page=0"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit?"+query, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, query)
	}
}

func TestExportCSV(t *testing.T) {
	service := &stubTimelineService{exportRows: []audit.TimelineRow{{Actor: "clerk@storeledger.local", Action: "inventory:purchase", Entity: "purchase", EntityID: "4"}}}
	router := newAuditRouter(t, service)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, withSession(httptest.NewRequest(http.MethodGet, "/audit/export.csv?from=2024-05-01&to=2024-05-05", nil)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "audit-2024-05-01-2024-05-05.csv")
	assert.Contains(t, rr.Body.String(), "inventory:purchase")
}
