package masterdata

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/storeledger/internal/ledger"
	"github.com/odyssey-erp/storeledger/internal/platform/httpx"
	"github.com/odyssey-erp/storeledger/internal/shared"
	"github.com/odyssey-erp/storeledger/internal/view"
)

// Handler manages master data endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, entity := range []Entity{EntityStore, EntityProduct, EntitySupplier} {
		base := "/" + string(entity)
		r.Get(base, h.list(entity))
		r.Get(base+"/new", h.showForm(entity))
		r.Post(base, h.save(entity))
		r.Get(base+"/{id}/edit", h.showForm(entity))
		r.Post(base+"/{id}/edit", h.save(entity))
		r.Post(base+"/{id}/delete", h.delete(entity))
	}
}

type formErrors map[string]string

// entityForm carries the fields of any master data form.
type entityForm struct {
	ID      int64
	Name    string
	Address string
	Price   string
}

type listPageData struct {
	Entity Entity
	Rows   []Row
}

type formPageData struct {
	Entity Entity
	Action string
	Form   entityForm
	Errors formErrors
}

func (h *Handler) list(entity Entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := h.service.List(r.Context(), entity)
		if err != nil {
			h.logger.Error("list master data", slog.String("entity", string(entity)), slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if httpx.WantsJSON(r) {
			httpx.JSON(w, http.StatusOK, rows)
			return
		}
		h.render(w, r, "pages/masterdata/list.html", titleFor(entity), listPageData{Entity: entity, Rows: rows}, http.StatusOK)
	}
}

func (h *Handler) showForm(entity Entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		form := entityForm{ID: id}
		if entity == EntityProduct {
			form.Price = zeroPrice
		}
		if id != 0 {
			loaded, err := h.load(r, entity, id)
			if err != nil {
				h.fail(w, r, entity, err)
				return
			}
			form = loaded
		}
		h.renderForm(w, r, entity, form, formErrors{}, http.StatusOK)
	}
}

func (h *Handler) save(entity Entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		form := entityForm{
			ID:      id,
			Name:    r.PostFormValue("name"),
			Address: r.PostFormValue("address"),
			Price:   r.PostFormValue("price"),
		}
		var (
			saved any
			err   error
		)
		switch entity {
		case EntityStore:
			saved, err = h.service.SaveStore(r.Context(), id, StoreInput{Name: form.Name, Address: form.Address})
		case EntityProduct:
			saved, err = h.service.SaveProduct(r.Context(), id, ProductInput{Name: form.Name, Price: form.Price})
		case EntitySupplier:
			saved, err = h.service.SaveSupplier(r.Context(), id, SupplierInput{Name: form.Name, Address: form.Address})
		}
		if err != nil {
			if httpx.WantsJSON(r) {
				httpx.RespondError(w, err)
				return
			}
			if !errors.Is(err, ledger.ErrInvalidInput) && !errors.Is(err, ledger.ErrNotFound) {
				h.logger.Error("save master data", slog.String("entity", string(entity)), slog.Any("error", err))
			}
			errs := formErrors{"general": shared.UserSafeMessage(err)}
			var fe *FieldError
			if errors.As(err, &fe) {
				errs = formErrors{fe.Field: fe.Error()}
			}
			h.renderForm(w, r, entity, form, errs, httpx.StatusFor(err))
			return
		}
		if httpx.WantsJSON(r) {
			status := http.StatusOK
			if id == 0 {
				status = http.StatusCreated
			}
			httpx.JSON(w, status, saved)
			return
		}
		verb := "updated"
		if id == 0 {
			verb = "created"
		}
		h.redirectWithFlash(w, r, "/masterdata/"+string(entity), "success", fmt.Sprintf("%s %s", capitalize(entity.Singular()), verb))
	}
}

func (h *Handler) delete(entity Entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := h.service.Delete(r.Context(), entity, id); err != nil {
			if httpx.WantsJSON(r) {
				httpx.RespondError(w, err)
				return
			}
			h.logger.Warn("delete master data", slog.String("entity", string(entity)), slog.Any("error", err))
			h.redirectWithFlash(w, r, "/masterdata/"+string(entity), "error", shared.UserSafeMessage(err))
			return
		}
		if httpx.WantsJSON(r) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.redirectWithFlash(w, r, "/masterdata/"+string(entity), "success", capitalize(entity.Singular())+" deleted")
	}
}

func (h *Handler) load(r *http.Request, entity Entity, id int64) (entityForm, error) {
	switch entity {
	case EntityStore:
		st, err := h.service.GetStore(r.Context(), id)
		return entityForm{ID: st.ID, Name: st.Name, Address: st.Address}, err
	case EntityProduct:
		p, err := h.service.GetProduct(r.Context(), id)
		return entityForm{ID: p.ID, Name: p.Name, Price: p.Price.StringFixed(ledger.MoneyPlaces)}, err
	case EntitySupplier:
		sp, err := h.service.GetSupplier(r.Context(), id)
		return entityForm{ID: sp.ID, Name: sp.Name, Address: sp.Address}, err
	}
	return entityForm{}, ledger.NotFound(string(entity), id)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, entity Entity, err error) {
	status := httpx.StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("load master data", slog.String("entity", string(entity)), slog.Any("error", err))
	}
	if httpx.WantsJSON(r) {
		httpx.RespondError(w, err)
		return
	}
	http.Error(w, http.StatusText(status), status)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, entity Entity, form entityForm, errs formErrors, status int) {
	action := "/masterdata/" + string(entity)
	title := "New " + entity.Singular()
	if form.ID != 0 {
		action = fmt.Sprintf("/masterdata/%s/%d/edit", entity, form.ID)
		title = "Edit " + entity.Singular()
	}
	data := formPageData{Entity: entity, Action: action, Form: form, Errors: errs}
	h.render(w, r, "pages/masterdata/form.html", title, data, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, page, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", page))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// pathID returns the {id} route parameter, or zero on routes without one.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func titleFor(entity Entity) string {
	return capitalize(string(entity))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
