package handlers

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/cna-billing/httpx"
	"github.com/diewo77/cna-billing/internal/lib/sl"
	"github.com/diewo77/cna-billing/internal/metrics"
	"github.com/diewo77/cna-billing/internal/models"
	"github.com/diewo77/cna-billing/internal/repository"
	"github.com/diewo77/cna-billing/internal/services"
	"github.com/diewo77/cna-billing/internal/session"
)

// ExportLinkTTL is how long a published export link stays valid.
const ExportLinkTTL = 15 * time.Minute

type InvoiceHandler struct {
	Base
	invoices   *repository.InvoiceRepository
	clients    *repository.ClientRepository
	exporter   *services.InvoiceExporter
	defaultTax decimal.Decimal
}

func NewInvoiceHandler(b Base, invoices *repository.InvoiceRepository, clients *repository.ClientRepository, exporter *services.InvoiceExporter, defaultTax decimal.Decimal) *InvoiceHandler {
	return &InvoiceHandler{Base: b, invoices: invoices, clients: clients, exporter: exporter, defaultTax: defaultTax}
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := readListQuery(r)
	data := map[string]any{
		"Search":     q.Search,
		"Status":     q.Status,
		"Statuses":   models.InvoiceStatuses,
		"CanPublish": h.exporter != nil && h.exporter.CanPublish(),
	}
	if q.Search != "" {
		list, err := h.invoices.SearchWithClient(r.Context(), q.Search)
		if err != nil {
			h.failed(w, r, err, "errors.server", "/dashboard")
			return
		}
		data["Invoices"] = list
	} else {
		if !models.ValidInvoiceStatus(q.Status) {
			q.Status = ""
			data["Status"] = ""
		}
		page, err := h.invoices.PaginateByStatus(r.Context(), q.Status, q.Page, repository.DefaultPerPage)
		if err != nil {
			h.failed(w, r, err, "errors.server", "/dashboard")
			return
		}
		data["Invoices"] = page.Data
		data["Page"] = page
	}
	data["Now"] = h.Now()
	h.render(w, r, "invoices/index.html", data)
}

func (h *InvoiceHandler) Show(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoices.FindDetailed(r.Context(), r.PathValue("id"))
	if err != nil {
		h.lookupFailed(w, r, err, "invoice.not_found", "/invoices")
		return
	}
	h.render(w, r, "invoices/show.html", map[string]any{
		"Invoice":  inv,
		"Statuses": models.InvoiceStatuses,
		"Overdue":  inv.IsOverdue(h.Now()),
	})
}

func (h *InvoiceHandler) New(w http.ResponseWriter, r *http.Request) {
	data, err := h.formData(r.Context(), h.clients, takeOld(r), nil)
	if err != nil {
		h.failed(w, r, err, "errors.server", "/invoices")
		return
	}
	data["ClientID"] = r.URL.Query().Get("client_id")
	data["TaxRate"] = h.defaultTax.String()
	data["DueDate"] = h.Now().AddDate(0, 0, 30).Format("2006-01-02")
	data["Statuses"] = models.InvoiceStatuses
	h.render(w, r, "invoices/create.html", data)
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !validCSRF(r) {
		rejectCSRF(w, r, "/invoices/create")
		return
	}
	in, ok := h.read(w, r, "/invoices/create")
	if !ok {
		return
	}
	in.UserID = currentUserID(r)
	id, err := h.invoices.CreateWithItems(r.Context(), in)
	if err != nil {
		h.failed(w, r, err, "invoice.create_failed", "/invoices/create")
		return
	}
	metrics.RecordDocument("invoice", metrics.EventCreated, 1)
	flash(r, session.FlashSuccess, tr(r, "invoice.created"))
	http.Redirect(w, r, "/invoices/"+id, http.StatusSeeOther)
}

func (h *InvoiceHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	inv, err := h.invoices.FindDetailed(ctx, r.PathValue("id"))
	if err != nil {
		h.lookupFailed(w, r, err, "invoice.not_found", "/invoices")
		return
	}
	data, err := h.formData(ctx, h.clients, takeOld(r), invoiceFormItems(inv.Items))
	if err != nil {
		h.failed(w, r, err, "errors.server", "/invoices")
		return
	}
	data["Invoice"] = inv
	data["Statuses"] = models.InvoiceStatuses
	h.render(w, r, "invoices/edit.html", data)
}

func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	back := "/invoices/" + id + "/edit"
	if !validCSRF(r) {
		rejectCSRF(w, r, back)
		return
	}
	in, ok := h.read(w, r, back)
	if !ok {
		return
	}
	found, err := h.invoices.UpdateWithItems(r.Context(), id, in)
	if err != nil {
		h.failed(w, r, err, "invoice.update_failed", back)
		return
	}
	if !found {
		missing(w, r, "invoice.not_found", "/invoices")
		return
	}
	flash(r, session.FlashSuccess, tr(r, "invoice.updated"))
	http.Redirect(w, r, "/invoices/"+id, http.StatusSeeOther)
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !validCSRF(r) {
		rejectCSRF(w, r, "/invoices")
		return
	}
	found, err := h.invoices.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		h.failed(w, r, err, "invoice.delete_failed", "/invoices")
		return
	}
	if !found {
		missing(w, r, "invoice.not_found", "/invoices")
		return
	}
	metrics.RecordDocument("invoice", metrics.EventDeleted, 1)
	result(w, r, http.StatusOK, tr(r, "invoice.deleted"), map[string]any{"redirect": "/invoices"}, "/invoices")
}

func (h *InvoiceHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	back := "/invoices/" + id
	if !validCSRF(r) {
		rejectCSRF(w, r, back)
		return
	}
	status := r.FormValue("status")
	if !models.ValidInvoiceStatus(status) {
		result(w, r, http.StatusBadRequest, tr(r, "status.invalid"), nil, back)
		return
	}
	found, err := h.invoices.UpdateStatus(r.Context(), id, models.InvoiceStatus(status))
	if err != nil {
		h.failed(w, r, err, "status.failed", back)
		return
	}
	if !found {
		missing(w, r, "invoice.not_found", "/invoices")
		return
	}
	result(w, r, http.StatusOK, tr(r, "status.updated"), map[string]any{"status": status}, back)
}

// Payment records an amount against the balance due, with an optional note.
func (h *InvoiceHandler) Payment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	back := "/invoices/" + id
	if !validCSRF(r) {
		rejectCSRF(w, r, back)
		return
	}
	amount, ok := parseDecimal(r.FormValue("amount"))
	if !ok || !amount.IsPositive() {
		result(w, r, http.StatusBadRequest, tr(r, "invoice.payment_positive"), nil, back)
		return
	}
	found, err := h.invoices.RecordPayment(ctx, id, amount.Round(2), r.FormValue("note"), h.Now())
	switch {
	case errors.Is(err, repository.ErrInvalidPayment):
		result(w, r, http.StatusBadRequest, tr(r, "invoice.payment_positive"), nil, back)
		return
	case errors.Is(err, repository.ErrPaymentExceedsBalance):
		result(w, r, http.StatusBadRequest, tr(r, "invoice.payment_exceeds"), nil, back)
		return
	case err != nil:
		h.failed(w, r, err, "invoice.payment_failed", back)
		return
	case !found:
		missing(w, r, "invoice.not_found", "/invoices")
		return
	}
	metrics.RecordDocument("invoice", metrics.EventPayment, 1)

	extra := map[string]any{}
	if inv, err := h.invoices.Find(ctx, id); err == nil {
		extra["status"] = inv.Status
		extra["amount_paid"] = inv.AmountPaid.StringFixed(2)
		extra["balance_due"] = inv.BalanceDue().StringFixed(2)
	}
	result(w, r, http.StatusOK, tr(r, "invoice.payment_recorded"), extra, back)
}

// Export downloads the invoices as a workbook. With ?link=1 and object storage configured it
// uploads the workbook and redirects to (or returns) a temporary link instead.
func (h *InvoiceHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := r.URL.Query().Get("status")
	if !models.ValidInvoiceStatus(status) {
		status = ""
	}
	if r.URL.Query().Get("link") != "" && h.exporter.CanPublish() {
		url, err := h.exporter.Publish(ctx, lang(r), status, ExportLinkTTL)
		if err != nil {
			h.failed(w, r, err, "invoice.export_failed", "/invoices")
			return
		}
		if httpx.WantsJSON(r) {
			httpx.OK(w, "", map[string]any{"url": url})
			return
		}
		http.Redirect(w, r, url, http.StatusSeeOther)
		return
	}

	var buf bytes.Buffer
	n, err := h.exporter.Write(ctx, &buf, lang(r), status)
	if err != nil {
		h.failed(w, r, err, "invoice.export_failed", "/invoices")
		return
	}
	h.Log.Info("invoices exported", slog.Int("rows", n), slog.String("status", status))
	w.Header().Set("Content-Type", services.XLSXContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+services.Filename(h.Now())+`"`)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		h.Log.Warn("export download interrupted", sl.Err(err))
	}
}

func (h *InvoiceHandler) read(w http.ResponseWriter, r *http.Request, back string) (repository.InvoiceInput, bool) {
	f, errs, err := h.readDocument(r.Context(), r, h.clients, models.ValidInvoiceStatus, "due_date")
	if err != nil {
		h.failed(w, r, err, "errors.server", back)
		return repository.InvoiceInput{}, false
	}
	if !errs.Empty() {
		invalid(w, r, errs, f.old(), back)
		return repository.InvoiceInput{}, false
	}
	return repository.InvoiceInput{
		ClientID:    f.in["client_id"],
		Title:       f.in["title"],
		Description: f.in["description"],
		TaxRate:     f.taxRate,
		Status:      models.InvoiceStatus(f.in["status"]),
		DueDate:     parseDate(f.in["due_date"]),
		Notes:       f.in["notes"],
		Items:       f.lines,
	}, true
}
