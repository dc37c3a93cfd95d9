package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/cna-billing/internal/models"
)

// DashboardClients is what the dashboard reads about clients.
type DashboardClients interface {
	Count(ctx context.Context) (int64, error)
	Recent(ctx context.Context, n int) ([]models.Client, error)
}

// DashboardEstimates counts estimates.
type DashboardEstimates interface {
	Count(ctx context.Context) (int64, error)
}

// DashboardInvoices is what the dashboard reads about invoices.
type DashboardInvoices interface {
	Count(ctx context.Context) (int64, error)
	Unpaid(ctx context.Context) ([]models.Invoice, error)
	MonthlyRevenue(ctx context.Context, months int, now time.Time) ([]models.MonthlyRevenue, error)
}

// Summary is the data behind the dashboard page.
type Summary struct {
	TotalClients   int64
	TotalEstimates int64
	TotalInvoices  int64
	RecentClients  []models.Client
	Unpaid         []models.Invoice
	Outstanding    decimal.Decimal
	OverdueCount   int
	Revenue        []models.MonthlyRevenue
}

// Dashboard builds the dashboard summary.
type Dashboard struct {
	clients   DashboardClients
	estimates DashboardEstimates
	invoices  DashboardInvoices
	// RecentN and RevenueMonths size the lists.
	RecentN       int
	RevenueMonths int
}

// NewDashboard builds the service with 5 recent clients and 6 months of revenue.
func NewDashboard(clients DashboardClients, estimates DashboardEstimates, invoices DashboardInvoices) *Dashboard {
	return &Dashboard{clients: clients, estimates: estimates, invoices: invoices, RecentN: 5, RevenueMonths: 6}
}

// Summary collects the counts, the unpaid invoices and the monthly revenue as of now.
func (d *Dashboard) Summary(ctx context.Context, now time.Time) (Summary, error) {
	const op = "services.Dashboard.Summary"
	var (
		s   = Summary{Outstanding: decimal.Zero}
		err error
	)
	if s.TotalClients, err = d.clients.Count(ctx); err != nil {
		return s, fmt.Errorf("%s: %w", op, err)
	}
	if s.TotalEstimates, err = d.estimates.Count(ctx); err != nil {
		return s, fmt.Errorf("%s: %w", op, err)
	}
	if s.TotalInvoices, err = d.invoices.Count(ctx); err != nil {
		return s, fmt.Errorf("%s: %w", op, err)
	}
	if s.RecentClients, err = d.clients.Recent(ctx, d.RecentN); err != nil {
		return s, fmt.Errorf("%s: %w", op, err)
	}
	if s.Unpaid, err = d.invoices.Unpaid(ctx); err != nil {
		return s, fmt.Errorf("%s: %w", op, err)
	}
	for i := range s.Unpaid {
		s.Outstanding = s.Outstanding.Add(s.Unpaid[i].BalanceDue())
		if s.Unpaid[i].IsOverdue(now) {
			s.OverdueCount++
		}
	}
	if s.Revenue, err = d.invoices.MonthlyRevenue(ctx, d.RevenueMonths, now); err != nil {
		return s, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}
