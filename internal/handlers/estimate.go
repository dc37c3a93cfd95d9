package handlers

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/diewo77/cna-billing/internal/metrics"
	"github.com/diewo77/cna-billing/internal/models"
	"github.com/diewo77/cna-billing/internal/repository"
	"github.com/diewo77/cna-billing/internal/session"
)

type EstimateHandler struct {
	Base
	estimates  *repository.EstimateRepository
	clients    *repository.ClientRepository
	defaultTax decimal.Decimal
}

func NewEstimateHandler(b Base, estimates *repository.EstimateRepository, clients *repository.ClientRepository, defaultTax decimal.Decimal) *EstimateHandler {
	return &EstimateHandler{Base: b, estimates: estimates, clients: clients, defaultTax: defaultTax}
}

func (h *EstimateHandler) List(w http.ResponseWriter, r *http.Request) {
	q := readListQuery(r)
	data := map[string]any{"Search": q.Search, "Status": q.Status, "Statuses": models.EstimateStatuses}
	if q.Search != "" {
		list, err := h.estimates.SearchWithClient(r.Context(), q.Search)
		if err != nil {
			h.failed(w, r, err, "errors.server", "/dashboard")
			return
		}
		data["Estimates"] = list
	} else {
		if !models.ValidEstimateStatus(q.Status) {
			q.Status = ""
			data["Status"] = ""
		}
		page, err := h.estimates.PaginateByStatus(r.Context(), q.Status, q.Page, repository.DefaultPerPage)
		if err != nil {
			h.failed(w, r, err, "errors.server", "/dashboard")
			return
		}
		data["Estimates"] = page.Data
		data["Page"] = page
	}
	h.render(w, r, "estimates/index.html", data)
}

func (h *EstimateHandler) Show(w http.ResponseWriter, r *http.Request) {
	est, err := h.estimates.FindDetailed(r.Context(), r.PathValue("id"))
	if err != nil {
		h.lookupFailed(w, r, err, "estimate.not_found", "/estimates")
		return
	}
	h.render(w, r, "estimates/show.html", map[string]any{
		"Estimate": est,
		"Statuses": models.EstimateStatuses,
	})
}

func (h *EstimateHandler) New(w http.ResponseWriter, r *http.Request) {
	old := takeOld(r)
	data, err := h.formData(r.Context(), h.clients, old, nil)
	if err != nil {
		h.failed(w, r, err, "errors.server", "/estimates")
		return
	}
	data["ClientID"] = r.URL.Query().Get("client_id")
	data["TaxRate"] = h.defaultTax.String()
	data["Statuses"] = models.EstimateStatuses
	h.render(w, r, "estimates/create.html", data)
}

func (h *EstimateHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !validCSRF(r) {
		rejectCSRF(w, r, "/estimates/create")
		return
	}
	in, ok := h.read(w, r, "/estimates/create")
	if !ok {
		return
	}
	in.UserID = currentUserID(r)
	id, err := h.estimates.CreateWithItems(r.Context(), in)
	if err != nil {
		h.failed(w, r, err, "estimate.create_failed", "/estimates/create")
		return
	}
	metrics.RecordDocument("estimate", metrics.EventCreated, 1)
	flash(r, session.FlashSuccess, tr(r, "estimate.created"))
	http.Redirect(w, r, "/estimates/"+id, http.StatusSeeOther)
}

func (h *EstimateHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	est, err := h.estimates.FindDetailed(ctx, r.PathValue("id"))
	if err != nil {
		h.lookupFailed(w, r, err, "estimate.not_found", "/estimates")
		return
	}
	data, err := h.formData(ctx, h.clients, takeOld(r), estimateFormItems(est.Items))
	if err != nil {
		h.failed(w, r, err, "errors.server", "/estimates")
		return
	}
	data["Estimate"] = est
	data["Statuses"] = models.EstimateStatuses
	h.render(w, r, "estimates/edit.html", data)
}

func (h *EstimateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	back := "/estimates/" + id + "/edit"
	if !validCSRF(r) {
		rejectCSRF(w, r, back)
		return
	}
	in, ok := h.read(w, r, back)
	if !ok {
		return
	}
	found, err := h.estimates.UpdateWithItems(r.Context(), id, in)
	if err != nil {
		h.failed(w, r, err, "estimate.update_failed", back)
		return
	}
	if !found {
		missing(w, r, "estimate.not_found", "/estimates")
		return
	}
	flash(r, session.FlashSuccess, tr(r, "estimate.updated"))
	http.Redirect(w, r, "/estimates/"+id, http.StatusSeeOther)
}

func (h *EstimateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !validCSRF(r) {
		rejectCSRF(w, r, "/estimates")
		return
	}
	found, err := h.estimates.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		h.failed(w, r, err, "estimate.delete_failed", "/estimates")
		return
	}
	if !found {
		missing(w, r, "estimate.not_found", "/estimates")
		return
	}
	metrics.RecordDocument("estimate", metrics.EventDeleted, 1)
	result(w, r, http.StatusOK, tr(r, "estimate.deleted"), map[string]any{"redirect": "/estimates"}, "/estimates")
}

func (h *EstimateHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	back := "/estimates/" + id
	if !validCSRF(r) {
		rejectCSRF(w, r, back)
		return
	}
	status := r.FormValue("status")
	if !models.ValidEstimateStatus(status) {
		result(w, r, http.StatusBadRequest, tr(r, "status.invalid"), nil, back)
		return
	}
	found, err := h.estimates.UpdateStatus(r.Context(), id, models.EstimateStatus(status))
	if err != nil {
		h.failed(w, r, err, "status.failed", back)
		return
	}
	if !found {
		missing(w, r, "estimate.not_found", "/estimates")
		return
	}
	result(w, r, http.StatusOK, tr(r, "status.updated"), map[string]any{"status": status}, back)
}

// Convert turns the estimate into a draft invoice.
func (h *EstimateHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	back := "/estimates/" + id
	if !validCSRF(r) {
		rejectCSRF(w, r, back)
		return
	}
	invoiceID, err := h.estimates.ConvertToInvoice(r.Context(), id, currentUserID(r))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		missing(w, r, "estimate.not_found", "/estimates")
		return
	case errors.Is(err, repository.ErrAlreadyConverted):
		result(w, r, http.StatusBadRequest, tr(r, "estimate.already_converted"), nil, back)
		return
	case err != nil:
		h.failed(w, r, err, "estimate.convert_failed", back)
		return
	}
	metrics.RecordDocument("estimate", metrics.EventConverted, 1)
	next := "/invoices/" + invoiceID
	result(w, r, http.StatusOK, tr(r, "estimate.converted"), map[string]any{
		"invoice_id": invoiceID,
		"redirect":   next,
	}, next)
}

func (h *EstimateHandler) read(w http.ResponseWriter, r *http.Request, back string) (repository.EstimateInput, bool) {
	f, errs, err := h.readDocument(r.Context(), r, h.clients, models.ValidEstimateStatus, "valid_until")
	if err != nil {
		h.failed(w, r, err, "errors.server", back)
		return repository.EstimateInput{}, false
	}
	if !errs.Empty() {
		invalid(w, r, errs, f.old(), back)
		return repository.EstimateInput{}, false
	}
	return repository.EstimateInput{
		ClientID:    f.in["client_id"],
		Title:       f.in["title"],
		Description: f.in["description"],
		TaxRate:     f.taxRate,
		Status:      models.EstimateStatus(f.in["status"]),
		ValidUntil:  parseDate(f.in["valid_until"]),
		Notes:       f.in["notes"],
		Items:       f.lines,
	}, true
}

