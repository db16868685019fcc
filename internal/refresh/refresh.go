// Package refresh runs one ingestion cycle: build the payload, store it, and
// purge the CDN cache.
package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/athens-bands/internal/event"
	"github.com/pfrederiksen/athens-bands/internal/logger"
	"github.com/pfrederiksen/athens-bands/internal/metrics"
	"github.com/pfrederiksen/athens-bands/internal/purge"
	"github.com/pfrederiksen/athens-bands/internal/scraper"
	"github.com/pfrederiksen/athens-bands/internal/storage"
)

// Triggers label runs in logs and metrics
const (
	TriggerSchedule = "scheduled-refresh"
	TriggerHTTP     = "manual-refresh"
	TriggerCLI      = "cli"
)

// ReportBuilder produces a payload with parse statistics
type ReportBuilder interface {
	BuildReport(ctx context.Context, now time.Time) (*scraper.Report, error)
}

// Result summarizes a successful run
type Result struct {
	RunID    string
	Payload  *event.Payload
	Format   scraper.Format
	Skipped  int
	Duration time.Duration
}

// Runner wires the builder to storage and cache invalidation
type Runner struct {
	builder ReportBuilder
	store   storage.Store
	purger  purge.Purger
	tags    []string
	metrics *metrics.Recorder
	log     *logger.Logger
	clock   func() time.Time
}

// Option configures a Runner
type Option func(*Runner)

// WithPurger sets the purger and the tags it invalidates
func WithPurger(p purge.Purger, tags []string) Option {
	return func(r *Runner) {
		r.purger = p
		r.tags = tags
	}
}

// WithMetrics records runs on m
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the run logger
func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithClock sets the clock used for now and durations
func WithClock(clock func() time.Time) Option {
	return func(r *Runner) { r.clock = clock }
}

// NewRunner creates a Runner
func NewRunner(builder ReportBuilder, store storage.Store, opts ...Option) *Runner {
	r := &Runner{
		builder: builder,
		store:   store,
		purger:  purge.Noop{},
		log:     logger.Default(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run builds and stores a fresh payload. The previous payload is left in
// place when building or saving fails. A purge failure is logged but does not
// fail the run.
func (r *Runner) Run(ctx context.Context, trigger string) (*Result, error) {
	runID := uuid.NewString()
	log := r.log.With(logger.Fields{"run_id": runID, "trigger": trigger})
	start := r.clock()

	log.Info("Refresh started", nil)

	report, err := r.builder.BuildReport(ctx, start)
	if err != nil {
		r.fail(log, trigger, start, "Refresh failed while building payload", err)
		return nil, fmt.Errorf("building payload: %w", err)
	}

	if err := r.store.Save(ctx, report.Payload); err != nil {
		r.fail(log, trigger, start, "Refresh failed while saving payload", err)
		return nil, fmt.Errorf("saving payload: %w", err)
	}

	if err := r.purger.Purge(ctx, r.tags); err != nil {
		log.Warn("Cache purge failed", logger.Fields{"tags": r.tags, "error": err.Error()})
		if r.metrics != nil {
			r.metrics.PurgeFailed()
		}
	}

	elapsed := r.clock().Sub(start)
	today, tomorrow := report.Payload.Counts()
	if r.metrics != nil {
		r.metrics.RefreshSucceeded(trigger, string(report.Format), today, tomorrow, len(report.Skipped), elapsed, report.Payload.FetchedAt)
	}

	log.Info("Refresh completed", logger.Fields{
		"format":      string(report.Format),
		"today":       today,
		"tomorrow":    tomorrow,
		"skipped":     len(report.Skipped),
		"duration_ms": elapsed.Milliseconds(),
	})

	return &Result{
		RunID:    runID,
		Payload:  report.Payload,
		Format:   report.Format,
		Skipped:  len(report.Skipped),
		Duration: elapsed,
	}, nil
}

func (r *Runner) fail(log *logger.Logger, trigger string, start time.Time, msg string, err error) {
	elapsed := r.clock().Sub(start)
	if r.metrics != nil {
		r.metrics.RefreshFailed(trigger, elapsed)
	}
	log.Error(msg, logger.Fields{"duration_ms": elapsed.Milliseconds()}, err)
}
