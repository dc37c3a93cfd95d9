package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/diewo77/cna-billing/internal/lib/sl"
	"github.com/diewo77/cna-billing/internal/metrics"
)

// OverdueMarker flips late invoices to overdue.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

// OverdueJob marks sent and partial invoices past their due date as overdue.
type OverdueJob struct {
	invoices OverdueMarker
	log      *slog.Logger
	now      func() time.Time
}

// NewOverdueJob builds the job.
func NewOverdueJob(invoices OverdueMarker, log *slog.Logger) *OverdueJob {
	return &OverdueJob{invoices: invoices, log: log, now: time.Now}
}

// Run performs one pass and returns how many invoices changed.
func (j *OverdueJob) Run(ctx context.Context) (int64, error) {
	n, err := j.invoices.MarkOverdue(ctx, j.now())
	if err != nil {
		return 0, fmt.Errorf("services.OverdueJob.Run: %w", err)
	}
	if n > 0 {
		j.log.Info("invoices marked overdue", slog.Int64("count", n))
		metrics.RecordDocument("invoice", metrics.EventOverdue, int(n))
	}
	return n, nil
}

// Scheduler runs named jobs on cron schedules. Runs of the same job never overlap.
type Scheduler struct {
	cron    *cron.Cron
	log     *slog.Logger
	timeout time.Duration
}

// NewScheduler creates a scheduler evaluating schedules in loc. Each run gets timeout.
func NewScheduler(loc *time.Location, timeout time.Duration, log *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &Scheduler{cron: c, log: log, timeout: timeout}
}

// Add registers fn under name. spec is a standard 5-field expression or a descriptor
// such as "@hourly" or "@every 10m".
func (s *Scheduler) Add(name, spec string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(name, fn) })
	if err != nil {
		return fmt.Errorf("services.Scheduler.Add %s: %w", name, err)
	}
	s.log.Info("job scheduled", slog.String("job", name), slog.String("spec", spec))
	return nil
}

func (s *Scheduler) run(name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		err = fn(ctx)
	}()
	metrics.RecordJob(name, time.Since(start), err == nil)
	if err != nil {
		s.log.Error("job failed", slog.String("job", name), sl.Err(err))
	}
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling and waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
