package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/storeledger/internal/auth"
	"github.com/odyssey-erp/storeledger/internal/shared"
	"github.com/odyssey-erp/storeledger/internal/view"
	_ "github.com/odyssey-erp/storeledger/testing"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || !strings.EqualFold(s.user.Email, email) {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = map[string]int64{}
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func activeUser(t *testing.T) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)
	require.NoError(t, err)
	return &auth.User{ID: 1, Email: "owner@store.test", PasswordHash: string(hashed), IsActive: true}
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	templates, err := view.NewEngine()
	require.NoError(t, err)
	tokens := auth.NewTokens("jwt-secret", time.Hour)
	handler := auth.NewHandler(nil, auth.NewService(repo, tokens), templates, sessionManager, shared.NewCSRFManager("csrfsecret"))
	return handler, sessionManager
}

// primeSession performs the GET so the session holds a CSRF token.
func primeSession(t *testing.T, handler *auth.Handler, sm *shared.SessionManager) *shared.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	handler.ShowLoginForTest(res, req)
	require.NoError(t, sm.Commit(ctx, res, req, sess))
	require.Equal(t, http.StatusOK, res.Code)
	return sess
}

func postLogin(t *testing.T, handler *auth.Handler, sm *shared.SessionManager, sess *shared.Session, values url.Values) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), loaded)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)
	require.NoError(t, sm.Commit(ctx, res, req, loaded))
	return res, loaded
}

func TestLoginPage(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{})

	sess := primeSession(t, handler, sessionManager)

	assert.NotEmpty(t, sess.Get(shared.CSRFSessionKey))
}

func TestLoginInvalidCredentials(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{user: activeUser(t)})
	sess := primeSession(t, handler, sessionManager)

	res, _ := postLogin(t, handler, sessionManager, sess, url.Values{
		"email":      {"owner@store.test"},
		"password":   {"wrongpass"},
		"csrf_token": {sess.Get(shared.CSRFSessionKey)},
	})

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Invalid email or password")
}

func TestLoginRenewsSession(t *testing.T) {
	repo := &stubRepo{user: activeUser(t)}
	handler, sessionManager := newAuthHandler(t, repo)
	sess := primeSession(t, handler, sessionManager)
	before := sess.ID

	res, loaded := postLogin(t, handler, sessionManager, sess, url.Values{
		"email":    {"owner@store.test"},
		"password": {"correctpass"},
		"next":     {"/reports/sales"},
	})

	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/reports/sales", res.Header().Get("Location"))
	assert.NotEqual(t, before, loaded.ID)
	assert.Equal(t, "1", loaded.User())
	assert.Equal(t, int64(1), repo.sessions[loaded.ID])
}

func TestLoginIgnoresOffsiteNext(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{user: activeUser(t)})
	sess := primeSession(t, handler, sessionManager)

	res, _ := postLogin(t, handler, sessionManager, sess, url.Values{
		"email":    {"owner@store.test"},
		"password": {"correctpass"},
		"next":     {"//evil.example"},
	})

	assert.Equal(t, "/", res.Header().Get("Location"))
}

func TestTokenEndpoint(t *testing.T) {
	handler, _ := newAuthHandler(t, &stubRepo{user: activeUser(t)})
	r := chiRouter(handler)

	body := `{"email":"owner@store.test","password":"correctpass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var tok auth.Token
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &tok))
	assert.Equal(t, "Bearer", tok.TokenType)

	userID, err := auth.NewTokens("jwt-secret", time.Hour).VerifyToken(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), userID)

	req = httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"email":"owner@store.test","password":"wrongpass1"}`))
	req.Header.Set("Content-Type", "application/json")
	res = httptest.NewRecorder()
	r.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func chiRouter(h *auth.Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/auth", h.MountRoutes)
	return r
}
