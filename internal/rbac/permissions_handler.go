package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/storeledger/internal/platform/httpx"
	"github.com/odyssey-erp/storeledger/internal/shared"
	"github.com/odyssey-erp/storeledger/internal/view"
)

// PermissionsHandler shows the caller what they may do.
type PermissionsHandler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, templates: templates, csrf: csrf}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/permissions", h.listPermissions)
}

type permissionRow struct {
	Name    string `json:"name"`
	Granted bool   `json:"granted"`
}

type permissionsPage struct {
	UserID      int64           `json:"user_id"`
	Superuser   bool            `json:"superuser"`
	Via         string          `json:"via"`
	Permissions []permissionRow `json:"permissions"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	data := permissionsPage{UserID: p.UserID, Superuser: p.Superuser, Via: p.Via}
	for _, scope := range shared.AllScopes() {
		data.Permissions = append(data.Permissions, permissionRow{Name: scope, Granted: p.Has(scope)})
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, data)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "My permissions", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	if err := h.templates.Render(w, "pages/account/permissions.html", viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
