package rbac

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/storeledger/internal/shared"
)

type grantMap map[int64]Grant

func (m grantMap) Grant(_ context.Context, userID int64) (Grant, error) {
	g, ok := m[userID]
	if !ok {
		return Grant{}, ErrNotFound
	}
	return g, nil
}

type tokenMap map[string]int64

func (m tokenMap) VerifyToken(raw string) (int64, error) {
	id, ok := m[raw]
	if !ok {
		return 0, errors.New("bad token")
	}
	return id, nil
}

const (
	clerk  int64 = 1
	viewer int64 = 2
	admin  int64 = 3
)

func newTestGuard() *Guard {
	grants := grantMap{
		clerk:  {Permissions: []string{shared.PermInventoryView, shared.PermInventoryEdit, shared.PermReportsView}},
		viewer: {Permissions: []string{"Reports.View"}},
		admin:  {Superuser: true},
	}
	return NewGuard(grants, tokenMap{"tok-viewer": viewer}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func serve(g *Guard, req *http.Request) (*httptest.ResponseRecorder, *shared.Principal) {
	var seen *shared.Principal
	h := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := shared.PrincipalFromContext(r.Context())
		seen = &p
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func withUser(req *http.Request, userID string) *http.Request {
	sm := shared.NewSessionManager(nil, "s", "", 0, false)
	sess, _ := sm.Load(context.Background(), req)
	if userID != "" {
		sess.SetUser(userID)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestRequiredCapabilities(t *testing.T) {
	g := newTestGuard()
	cases := []struct {
		method, path, want string
	}{
		{http.MethodGet, "/", shared.PermReportsView},
		{http.MethodGet, "/reports/sales", shared.PermReportsView},
		{http.MethodGet, "/stores/1/profit-loss.pdf", shared.PermReportsView},
		{http.MethodPost, "/inventory/sales", shared.PermInventoryEdit},
		{http.MethodGet, "/inventory/purchases/new", shared.PermInventoryEdit},
		{http.MethodGet, "/masterdata/stores", shared.PermMasterView},
		{http.MethodPost, "/masterdata/stores/1/delete", shared.PermMasterEdit},
		{http.MethodGet, "/products", shared.PermInventoryView},
		{http.MethodGet, "/products/4", shared.PermReportsView},
		{http.MethodGet, "/reports/stock", shared.PermInventoryView},
		{http.MethodGet, "/reports/stock-data", shared.PermReportsView},
		{http.MethodGet, "/metrics", shared.PermOpsView},
		{http.MethodGet, "/account/permissions", ""},
		{http.MethodGet, "/storesX", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, g.Required(tc.method, tc.path), "%s %s", tc.method, tc.path)
	}
}

func TestAnonymousBrowserIsRedirectedToLogin(t *testing.T) {
	rec, seen := serve(newTestGuard(), withUser(httptest.NewRequest(http.MethodGet, "/reports/sales?as_of=2024-05-08", nil), ""))

	assert.Nil(t, seen)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login?next=%2Freports%2Fsales%3Fas_of%3D2024-05-08", rec.Header().Get("Location"))
}

func TestAnonymousAPIGetsUnauthorized(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/reports/sales", nil)
	req.Header.Set("Accept", "application/json")

	rec, _ := serve(newTestGuard(), req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
}

func TestSessionPrincipalWithPermission(t *testing.T) {
	rec, seen := serve(newTestGuard(), withUser(httptest.NewRequest(http.MethodPost, "/inventory/sales", nil), "1"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, clerk, seen.UserID)
	assert.Equal(t, "session", seen.Via)
}

func TestMissingPermissionIsForbidden(t *testing.T) {
	rec, seen := serve(newTestGuard(), withUser(httptest.NewRequest(http.MethodPost, "/masterdata/stores", nil), "1"))

	assert.Nil(t, seen)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSuperuserHoldsEverything(t *testing.T) {
	rec, _ := serve(newTestGuard(), withUser(httptest.NewRequest(http.MethodPost, "/masterdata/stores", nil), "3"))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerToken(t *testing.T) {
	g := newTestGuard()

	req := httptest.NewRequest(http.MethodGet, "/reports/stock-data", nil)
	req.Header.Set("Authorization", "Bearer tok-viewer")
	rec, seen := serve(g, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, viewer, seen.UserID)
	assert.Equal(t, "token", seen.Via)
	assert.Equal(t, []string{shared.PermReportsView}, seen.Permissions)

	req = httptest.NewRequest(http.MethodPost, "/inventory/sales", nil)
	req.Header.Set("Authorization", "Bearer tok-viewer")
	rec, _ = serve(g, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")

	req = httptest.NewRequest(http.MethodGet, "/reports/sales", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec, _ = serve(g, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownUserIsUnauthenticated(t *testing.T) {
	rec, _ := serve(newTestGuard(), withUser(httptest.NewRequest(http.MethodGet, "/", nil), "99"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestStockPagesNeedInventoryView(t *testing.T) {
	g := newTestGuard()

	rec, _ := serve(g, withUser(httptest.NewRequest(http.MethodGet, "/products", nil), "1"))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/reports/stock", nil)
	req.Header.Set("Authorization", "Bearer tok-viewer")
	rec, _ = serve(g, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
