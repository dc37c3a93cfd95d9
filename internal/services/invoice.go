// Package services holds the application logic that spans several repositories:
// the dashboard summary, the spreadsheet export and the background jobs.
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/diewo77/cna-billing/i18n"
	"github.com/diewo77/cna-billing/internal/lib/sl"
	"github.com/diewo77/cna-billing/internal/metrics"
	"github.com/diewo77/cna-billing/internal/models"
	"github.com/diewo77/cna-billing/internal/storage"
)

// XLSXContentType is the media type of the exported workbook.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const exportSheet = "Invoices"

// InvoiceSource lists invoices for export.
type InvoiceSource interface {
	ForExport(ctx context.Context, status string) ([]models.Invoice, error)
}

// InvoiceExporter writes invoices to an XLSX workbook.
type InvoiceExporter struct {
	invoices InvoiceSource
	store    storage.Storage
	log      *slog.Logger
	now      func() time.Time
}

// NewInvoiceExporter builds an exporter. store may be nil when object storage is not configured.
func NewInvoiceExporter(invoices InvoiceSource, store storage.Storage, log *slog.Logger) *InvoiceExporter {
	return &InvoiceExporter{invoices: invoices, store: store, log: log, now: time.Now}
}

// CanPublish reports whether exports can be stored and linked.
func (e *InvoiceExporter) CanPublish() bool { return e.store != nil }

// Filename is the download name of an export made at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("invoices-%s.xlsx", t.Format("20060102"))
}

// Write streams the workbook for invoices with status (all when empty) to w and returns
// the number of invoice rows.
func (e *InvoiceExporter) Write(ctx context.Context, w io.Writer, lang, status string) (int, error) {
	const op = "services.InvoiceExporter.Write"

	invoices, err := e.invoices.ForExport(ctx, status)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	f, err := workbook(lang, invoices)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordDocument("invoice", metrics.EventExported, len(invoices))
	return len(invoices), nil
}

// Publish uploads the workbook to object storage and returns a link valid for ttl.
func (e *InvoiceExporter) Publish(ctx context.Context, lang, status string, ttl time.Duration) (string, error) {
	const op = "services.InvoiceExporter.Publish"

	if e.store == nil {
		return "", fmt.Errorf("%s: %w", op, storage.ErrDisabled)
	}
	var buf bytes.Buffer
	if _, err := e.Write(ctx, &buf, lang, status); err != nil {
		return "", err
	}
	key := storage.Key("exports", Filename(e.now()), e.now())
	if err := e.store.Put(ctx, key, XLSXContentType, bytes.NewReader(buf.Bytes())); err != nil {
		e.log.Error("failed to upload export", slog.String("key", key), sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	url, err := e.store.URL(ctx, key, ttl)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	e.log.Info("invoice export published", slog.String("key", key))
	return url, nil
}

var exportColumns = []struct {
	key   string
	width float64
}{
	{"invoice.number", 18},
	{"common.client", 30},
	{"common.title", 30},
	{"common.status", 14},
	{"common.subtotal", 12},
	{"common.tax", 12},
	{"common.total", 12},
	{"invoice.amount_paid", 12},
	{"invoice.balance_due", 12},
	{"invoice.due_date", 12},
	{"common.created", 12},
}

func workbook(lang string, invoices []models.Invoice) (*excelize.File, error) {
	f := excelize.NewFile()
	idx, err := f.NewSheet(exportSheet)
	if err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, col := range exportColumns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetCellValue(exportSheet, name+"1", i18n.T(lang, col.key))
		_ = f.SetColWidth(exportSheet, name, name, col.width)
	}
	last, _ := excelize.ColumnNumberToName(len(exportColumns))
	_ = f.SetCellStyle(exportSheet, "A1", last+"1", bold)

	for i, inv := range invoices {
		row := i + 2
		client := ""
		if inv.Client != nil {
			client = inv.Client.DisplayName()
		}
		due := ""
		if inv.DueDate != nil {
			due = inv.DueDate.Format("2006-01-02")
		}
		values := []any{
			inv.InvoiceNumber,
			client,
			inv.Title,
			i18n.T(lang, "status."+string(inv.Status)),
			inv.Subtotal.InexactFloat64(),
			inv.TaxAmount.InexactFloat64(),
			inv.Total.InexactFloat64(),
			inv.AmountPaid.InexactFloat64(),
			inv.BalanceDue().InexactFloat64(),
			due,
			inv.CreatedAt.Format("2006-01-02"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			f.Close()
			return nil, err
		}
		_ = f.SetCellStyle(exportSheet, fmt.Sprintf("E%d", row), fmt.Sprintf("I%d", row), money)
	}
	return f, nil
}
