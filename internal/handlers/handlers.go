// Package handlers holds the HTTP controllers. HTML flows answer with a page or a flash and a
// redirect; the AJAX actions answer {success, message, ...} JSON.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/cna-billing/auth"
	"github.com/diewo77/cna-billing/httpx"
	"github.com/diewo77/cna-billing/i18n"
	"github.com/diewo77/cna-billing/internal/lib/sl"
	"github.com/diewo77/cna-billing/internal/repository"
	"github.com/diewo77/cna-billing/internal/session"
	"github.com/diewo77/cna-billing/validation"
	"github.com/diewo77/cna-billing/view"
)

// CSRFField is the form field (or query parameter) carrying the CSRF token.
const CSRFField = "csrf_token"

// Base carries what every controller needs.
type Base struct {
	View      *view.Renderer
	Validator *validation.Validator
	Log       *slog.Logger
	Now       func() time.Time
}

// NewBase builds the shared controller dependencies.
func NewBase(v *view.Renderer, log *slog.Logger) Base {
	return Base{View: v, Validator: validation.New(), Log: log, Now: time.Now}
}

func lang(r *http.Request) string { return i18n.FromContext(r.Context()) }

func tr(r *http.Request, key string, args ...any) string {
	if len(args) == 0 {
		return i18n.T(lang(r), key)
	}
	return i18n.Tf(lang(r), key, args...)
}

func flash(r *http.Request, kind, msg string) {
	if s := session.FromContext(r.Context()); s != nil {
		s.Flash(kind, msg)
	}
}

func currentUserID(r *http.Request) string {
	if u := auth.UserFromContext(r.Context()); u != nil {
		return u.ID
	}
	return ""
}

func (b Base) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	b.renderStatus(w, r, http.StatusOK, name, data)
}

func (b Base) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	if err := b.View.RenderStatus(w, r, status, name, data); err != nil {
		http.Error(w, tr(r, "errors.server"), http.StatusInternalServerError)
	}
}

// validCSRF checks the token from the form, the query string or the X-CSRF-Token header.
func validCSRF(r *http.Request) bool {
	s := session.FromContext(r.Context())
	if s == nil {
		return false
	}
	token := r.Header.Get("X-CSRF-Token")
	if token == "" {
		token = r.FormValue(CSRFField)
	}
	return s.VerifyCSRF(token)
}

// rejectCSRF answers a request whose token is missing or wrong.
func rejectCSRF(w http.ResponseWriter, r *http.Request, back string) {
	msg := tr(r, "common.invalid_request")
	if wantsJSON(r) {
		httpx.Fail(w, http.StatusBadRequest, msg)
		return
	}
	flash(r, session.FlashError, msg)
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// wantsJSON is true for AJAX clients and for DELETE, which browsers only send from scripts.
func wantsJSON(r *http.Request) bool {
	return r.Method == http.MethodDelete || httpx.WantsJSON(r)
}

// result answers an action: JSON for scripts, otherwise a flash and a redirect to next.
func result(w http.ResponseWriter, r *http.Request, status int, msg string, extra map[string]any, next string) {
	ok := status < http.StatusBadRequest
	if wantsJSON(r) {
		httpx.Result(w, status, ok, msg, extra)
		return
	}
	kind := session.FlashSuccess
	if !ok {
		kind = session.FlashError
	}
	flash(r, kind, msg)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// invalid keeps the submitted values and errors for the next render of the form.
func invalid(w http.ResponseWriter, r *http.Request, errs validation.Errors, old map[string]string, back string) {
	if s := session.FromContext(r.Context()); s != nil {
		s.FlashErrors(errs)
		s.SetOld(old)
		s.Flash(session.FlashError, tr(r, "validation.failed"))
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// missing answers a lookup of a record that does not exist.
func missing(w http.ResponseWriter, r *http.Request, key, next string) {
	result(w, r, http.StatusNotFound, tr(r, key), nil, next)
}

// failed logs err and answers with the generic message key.
func (b Base) failed(w http.ResponseWriter, r *http.Request, err error, key, next string) {
	b.Log.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		sl.Err(err),
	)
	result(w, r, http.StatusInternalServerError, tr(r, key), nil, next)
}

// lookupFailed tells not-found apart from real errors.
func (b Base) lookupFailed(w http.ResponseWriter, r *http.Request, err error, notFoundKey, next string) {
	if errors.Is(err, repository.ErrNotFound) {
		missing(w, r, notFoundKey, next)
		return
	}
	b.failed(w, r, err, "errors.server", next)
}

// formValues trims and collects the named form fields.
func formValues(r *http.Request, fields ...string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f] = strings.TrimSpace(r.PostFormValue(f))
	}
	return out
}

// listQuery reads ?search, ?status and ?page. Search and pagination exclude each other.
type listQuery struct {
	Search string
	Status string
	Page   int
}

func readListQuery(r *http.Request) listQuery {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	return listQuery{
		Search: strings.TrimSpace(q.Get("search")),
		Status: strings.TrimSpace(q.Get("status")),
		Page:   page,
	}
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &d
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

var itemKey = regexp.MustCompile(`^items\[(\d+)\]\[(description|quantity|unit_price)\]$`)

// formItem is one submitted line, kept as text so the form can be refilled.
type formItem struct {
	Description string
	Quantity    string
	UnitPrice   string
}

// parseItems reads items[i][description|quantity|unit_price] in index order. Blank rows are skipped.
func parseItems(r *http.Request) []formItem {
	rows := map[int]*formItem{}
	for key, vals := range r.PostForm {
		m := itemKey.FindStringSubmatch(key)
		if m == nil || len(vals) == 0 {
			continue
		}
		i, _ := strconv.Atoi(m[1])
		it, ok := rows[i]
		if !ok {
			it = &formItem{}
			rows[i] = it
		}
		v := strings.TrimSpace(vals[0])
		switch m[2] {
		case "description":
			it.Description = v
		case "quantity":
			it.Quantity = v
		case "unit_price":
			it.UnitPrice = v
		}
	}
	idx := make([]int, 0, len(rows))
	for i := range rows {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]formItem, 0, len(idx))
	for _, i := range idx {
		it := rows[i]
		if it.Description == "" && it.Quantity == "" && it.UnitPrice == "" {
			continue
		}
		out = append(out, *it)
	}
	return out
}

// checkItems converts submitted lines. Every line needs a description, a positive quantity and a
// unit price of zero or more; the first problem is reported under "items".
func checkItems(r *http.Request, in []formItem, errs validation.Errors) []repository.ItemInput {
	if len(in) == 0 {
		errs.Add("items", tr(r, "validation.required", validation.Label(lang(r), "items")))
		return nil
	}
	out := make([]repository.ItemInput, 0, len(in))
	for n, it := range in {
		qty, okQty := parseDecimal(it.Quantity)
		price, okPrice := parseDecimal(it.UnitPrice)
		switch {
		case it.Description == "":
			errs.Add("items", fmt.Sprintf("#%d: %s", n+1, tr(r, "validation.required", tr(r, "common.description"))))
		case !okQty || !qty.IsPositive():
			errs.Add("items", fmt.Sprintf("#%d: %s", n+1, tr(r, "validation.positive", tr(r, "common.quantity"))))
		case !okPrice || price.IsNegative():
			errs.Add("items", fmt.Sprintf("#%d: %s", n+1, tr(r, "validation.numeric", tr(r, "common.unit_price"))))
		}
		out = append(out, repository.ItemInput{Description: it.Description, Quantity: qty, UnitPrice: price})
	}
	return out
}

// oldItems flattens lines into old-input keys matching the form field names.
func oldItems(old map[string]string, items []formItem) {
	for i, it := range items {
		old[fmt.Sprintf("items[%d][description]", i)] = it.Description
		old[fmt.Sprintf("items[%d][quantity]", i)] = it.Quantity
		old[fmt.Sprintf("items[%d][unit_price]", i)] = it.UnitPrice
	}
}

// itemsFromOld rebuilds the submitted lines of a form that failed validation.
func itemsFromOld(old map[string]string) []formItem {
	var out []formItem
	for i := 0; ; i++ {
		d, ok := old[fmt.Sprintf("items[%d][description]", i)]
		if !ok {
			return out
		}
		out = append(out, formItem{
			Description: d,
			Quantity:    old[fmt.Sprintf("items[%d][quantity]", i)],
			UnitPrice:   old[fmt.Sprintf("items[%d][unit_price]", i)],
		})
	}
}

// takeOld returns the input of a form that failed validation, if any.
func takeOld(r *http.Request) map[string]string {
	if s := session.FromContext(r.Context()); s != nil {
		return s.TakeOld()
	}
	return nil
}
