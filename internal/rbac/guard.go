package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/odyssey-erp/storeledger/internal/platform/httpx"
	"github.com/odyssey-erp/storeledger/internal/shared"
)

// GrantSource looks up what a user may do.
type GrantSource interface {
	Grant(ctx context.Context, userID int64) (Grant, error)
}

// TokenVerifier resolves a bearer token into a user id.
type TokenVerifier interface {
	VerifyToken(raw string) (int64, error)
}

// Guard is the single authorization middleware. It resolves the principal
// from a bearer token or the session, finds the capability the request
// needs in the rule table and rejects callers lacking it.
type Guard struct {
	grants GrantSource
	tokens TokenVerifier
	rules  []Rule
	logger *slog.Logger
}

// NewGuard builds a Guard. tokens may be nil to disable bearer auth; nil
// rules selects DefaultRules.
func NewGuard(grants GrantSource, tokens TokenVerifier, rules []Rule, logger *slog.Logger) *Guard {
	if rules == nil {
		rules = DefaultRules
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{grants: grants, tokens: tokens, rules: rules, logger: logger}
}

// Middleware enforces the rule table on every request passing through.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := g.resolve(r)
		if err != nil {
			g.unauthenticated(w, r)
			return
		}
		perm := g.Required(r.Method, r.URL.Path)
		if perm != "" && !principal.Has(perm) {
			g.logger.Warn("rbac denied",
				slog.Int64("user_id", principal.UserID),
				slog.String("path", r.URL.Path),
				slog.String("permission", perm))
			if httpx.WantsJSON(r) || principal.Via == "token" {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission "+perm)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

// Required returns the capability a request needs. Paths not covered by
// any rule need only an authenticated caller.
func (g *Guard) Required(method, path string) string {
	for _, rule := range g.rules {
		if rule.match(method, path) {
			return rule.required(method)
		}
	}
	return ""
}

var errNoPrincipal = errors.New("rbac: no principal")

func (g *Guard) resolve(r *http.Request) (shared.Principal, error) {
	var (
		userID int64
		via    string
	)
	if raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		if g.tokens == nil {
			return shared.Principal{}, errNoPrincipal
		}
		id, err := g.tokens.VerifyToken(strings.TrimSpace(raw))
		if err != nil {
			return shared.Principal{}, err
		}
		userID, via = id, "token"
	} else {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || strings.TrimSpace(sess.User()) == "" {
			return shared.Principal{}, errNoPrincipal
		}
		id, err := strconv.ParseInt(strings.TrimSpace(sess.User()), 10, 64)
		if err != nil {
			g.logger.Error("rbac parse user id", slog.String("value", sess.User()))
			return shared.Principal{}, err
		}
		userID, via = id, "session"
	}
	grant, err := g.grants.Grant(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			g.logger.Error("rbac load grant", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return shared.Principal{}, err
	}
	return shared.Principal{
		UserID:      userID,
		Superuser:   grant.Superuser,
		Permissions: normalizePermissions(grant.Permissions),
		Via:         via,
	}, nil
}

func (g *Guard) unauthenticated(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsJSON(r) || strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		w.Header().Set("WWW-Authenticate", `Bearer realm="storeledger"`)
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in or present a bearer token")
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/auth/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
}

func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
