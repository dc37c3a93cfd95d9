package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/cna-billing/internal/db"
	"github.com/diewo77/cna-billing/internal/models"
	"github.com/diewo77/cna-billing/internal/repository"
	"github.com/diewo77/cna-billing/internal/session"
	"github.com/diewo77/cna-billing/validation"
)

var clientRules = validation.Rules{
	"first_name": "required|max:100",
	"last_name":  "required|max:100",
	"company":    "max:255",
	"email":      "email|max:255",
	"phone":      "phone",
	"address":    "max:255",
	"city":       "max:100",
	"state":      "max:50",
	"zip_code":   "max:20",
}

type ClientHandler struct {
	Base
	clients *repository.ClientRepository
}

func NewClientHandler(b Base, clients *repository.ClientRepository) *ClientHandler {
	return &ClientHandler{Base: b, clients: clients}
}

// List searches when ?search is given, otherwise pages through every client.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	q := readListQuery(r)
	data := map[string]any{"Search": q.Search}
	if q.Search != "" {
		clients, err := h.clients.Search(r.Context(), q.Search)
		if err != nil {
			h.failed(w, r, err, "errors.server", "/dashboard")
			return
		}
		data["Clients"] = clients
	} else {
		page, err := h.clients.Paginate(r.Context(), q.Page, repository.DefaultPerPage)
		if err != nil {
			h.failed(w, r, err, "errors.server", "/dashboard")
			return
		}
		data["Clients"] = page.Data
		data["Page"] = page
	}
	h.render(w, r, "clients/index.html", data)
}

func (h *ClientHandler) Show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	c, err := h.clients.Find(ctx, id)
	if err != nil {
		h.lookupFailed(w, r, err, "client.not_found", "/clients")
		return
	}
	stats, err := h.clients.Stats(ctx, id)
	if err != nil {
		h.failed(w, r, err, "errors.server", "/clients")
		return
	}
	estimates, err := h.clients.Estimates(ctx, id)
	if err != nil {
		h.failed(w, r, err, "errors.server", "/clients")
		return
	}
	invoices, err := h.clients.Invoices(ctx, id)
	if err != nil {
		h.failed(w, r, err, "errors.server", "/clients")
		return
	}
	h.render(w, r, "clients/show.html", map[string]any{
		"Client":    c,
		"Stats":     stats,
		"Estimates": estimates,
		"Invoices":  invoices,
	})
}

func (h *ClientHandler) New(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "clients/create.html", map[string]any{"Client": &models.Client{}})
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !validCSRF(r) {
		rejectCSRF(w, r, "/clients/create")
		return
	}
	in, ok := h.check(w, r, "", "/clients/create")
	if !ok {
		return
	}
	id, err := h.clients.Create(r.Context(), fields(in))
	if errors.Is(err, db.ErrDuplicate) {
		invalid(w, r, validation.Errors{"email": tr(r, "client.email_taken")}, in, "/clients/create")
		return
	}
	if err != nil {
		h.failed(w, r, err, "client.create_failed", "/clients/create")
		return
	}
	flash(r, session.FlashSuccess, tr(r, "client.created"))
	http.Redirect(w, r, "/clients/"+id, http.StatusSeeOther)
}

func (h *ClientHandler) Edit(w http.ResponseWriter, r *http.Request) {
	c, err := h.clients.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		h.lookupFailed(w, r, err, "client.not_found", "/clients")
		return
	}
	h.render(w, r, "clients/edit.html", map[string]any{"Client": c})
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	back := "/clients/" + id + "/edit"
	if !validCSRF(r) {
		rejectCSRF(w, r, back)
		return
	}
	in, ok := h.check(w, r, id, back)
	if !ok {
		return
	}
	found, err := h.clients.Update(r.Context(), id, fields(in))
	if errors.Is(err, db.ErrDuplicate) {
		invalid(w, r, validation.Errors{"email": tr(r, "client.email_taken")}, in, back)
		return
	}
	if err != nil {
		h.failed(w, r, err, "client.update_failed", back)
		return
	}
	if !found {
		missing(w, r, "client.not_found", "/clients")
		return
	}
	flash(r, session.FlashSuccess, tr(r, "client.updated"))
	http.Redirect(w, r, "/clients/"+id, http.StatusSeeOther)
}

// Delete refuses clients that still have estimates or invoices.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !validCSRF(r) {
		rejectCSRF(w, r, "/clients")
		return
	}
	ctx := r.Context()
	id := r.PathValue("id")
	busy, err := h.clients.HasDocuments(ctx, id)
	if err != nil {
		h.failed(w, r, err, "client.delete_failed", "/clients")
		return
	}
	if busy {
		result(w, r, http.StatusBadRequest, tr(r, "client.has_documents"), nil, "/clients/"+id)
		return
	}
	found, err := h.clients.Delete(ctx, id)
	if err != nil {
		h.failed(w, r, err, "client.delete_failed", "/clients")
		return
	}
	if !found {
		missing(w, r, "client.not_found", "/clients")
		return
	}
	result(w, r, http.StatusOK, tr(r, "client.deleted"), map[string]any{"redirect": "/clients"}, "/clients")
}

// check validates the submitted client and the uniqueness of its email. On failure it has
// already answered the request.
func (h *ClientHandler) check(w http.ResponseWriter, r *http.Request, id, back string) (map[string]string, bool) {
	in := formValues(r, h.clients.Fillable()...)
	in["email"] = strings.ToLower(in["email"])
	errs := h.Validator.Validate(lang(r), clientRules, in)
	if _, failed := errs["email"]; !failed && in["email"] != "" {
		taken, err := h.clients.IsEmailTaken(r.Context(), in["email"], id)
		if err != nil {
			h.failed(w, r, err, "errors.server", back)
			return nil, false
		}
		if taken {
			errs.Add("email", tr(r, "client.email_taken"))
		}
	}
	if !errs.Empty() {
		invalid(w, r, errs, in, back)
		return nil, false
	}
	return in, true
}

func fields(in map[string]string) db.Fields {
	out := make(db.Fields, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
