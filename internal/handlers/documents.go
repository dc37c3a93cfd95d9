package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/diewo77/cna-billing/internal/models"
	"github.com/diewo77/cna-billing/internal/repository"
	"github.com/diewo77/cna-billing/validation"
)

// documentForm is a submitted estimate or invoice.
type documentForm struct {
	in      map[string]string
	items   []formItem
	lines   []repository.ItemInput
	taxRate decimal.Decimal
}

// old is what the form gets back when validation fails.
func (f documentForm) old() map[string]string {
	old := make(map[string]string, len(f.in)+3*len(f.items))
	for k, v := range f.in {
		old[k] = v
	}
	oldItems(old, f.items)
	return old
}

// readDocument parses and validates the fields shared by estimates and invoices.
// statusOK checks the optional status field. The returned error is a lookup failure.
func (b Base) readDocument(ctx context.Context, r *http.Request, clients *repository.ClientRepository,
	statusOK func(string) bool, dateField string) (documentForm, validation.Errors, error) {
	names := []string{"client_id", "title", "description", "tax_rate", "status", "notes", dateField}
	f := documentForm{in: formValues(r, names...), items: parseItems(r)}

	rules := validation.Rules{
		"client_id": "required",
		"title":     "required|max:255",
		"tax_rate":  "required|numeric",
		dateField:   "date",
	}
	errs := b.Validator.Validate(lang(r), rules, f.in)

	if _, failed := errs["tax_rate"]; !failed {
		rate, ok := parseDecimal(f.in["tax_rate"])
		switch {
		case !ok || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)):
			errs.Add("tax_rate", tr(r, "validation.numeric", validation.Label(lang(r), "tax_rate")))
		case !rate.Equal(rate.Round(models.TaxRatePlaces)):
			errs.Add("tax_rate", tr(r, "validation.decimals", validation.Label(lang(r), "tax_rate"), models.TaxRatePlaces))
		}
		f.taxRate = rate
	}
	if s := f.in["status"]; s != "" && !statusOK(s) {
		errs.Add("status", tr(r, "status.invalid"))
	}
	if _, failed := errs["client_id"]; !failed {
		if _, err := clients.Find(ctx, f.in["client_id"]); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return f, errs, err
			}
			errs.Add("client_id", tr(r, "client.not_found"))
		}
	}
	f.lines = checkItems(r, f.items, errs)
	return f, errs, nil
}

// formData is the shared data of the create and edit pages of a document.
func (b Base) formData(ctx context.Context, clients *repository.ClientRepository, old map[string]string, items []formItem) (map[string]any, error) {
	all, err := clients.All(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	if restored := itemsFromOld(old); len(restored) > 0 {
		items = restored
	}
	if len(items) == 0 {
		items = []formItem{{Quantity: "1"}}
	}
	return map[string]any{
		"Clients": all,
		"Items":   items,
		"Old":     old,
	}, nil
}

func estimateFormItems(in []models.EstimateItem) []formItem {
	out := make([]formItem, len(in))
	for i, it := range in {
		out[i] = formItem{Description: it.Description, Quantity: it.Quantity.String(), UnitPrice: it.UnitPrice.StringFixed(2)}
	}
	return out
}

func invoiceFormItems(in []models.InvoiceItem) []formItem {
	out := make([]formItem, len(in))
	for i, it := range in {
		out[i] = formItem{Description: it.Description, Quantity: it.Quantity.String(), UnitPrice: it.UnitPrice.StringFixed(2)}
	}
	return out
}
