// Package scheduler fires refresh runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pfrederiksen/athens-bands/internal/logger"
	"github.com/pfrederiksen/athens-bands/internal/refresh"
)

// Job is the work run on each tick
type Job func(ctx context.Context) error

// Scheduler runs a job on a standard five-field cron spec in UTC. A tick
// that arrives while the previous run is still going is skipped.
type Scheduler struct {
	cron *cron.Cron
	spec string
	log  *logger.Logger
}

// New parses spec and registers job. ctx bounds every run.
func New(ctx context.Context, spec string, job Job, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Default()
	}
	adapter := cronLogger{log: log.With(logger.Fields{"component": "scheduler"})}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)

	_, err := c.AddFunc(spec, func() {
		if err := job(ctx); err != nil {
			adapter.log.Warn("Scheduled run failed", logger.Fields{"error": err.Error()})
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	return &Scheduler{cron: c, spec: spec, log: adapter.log}, nil
}

// ForRunner schedules runner.Run with the scheduled trigger label
func ForRunner(ctx context.Context, spec string, runner *refresh.Runner, log *logger.Logger) (*Scheduler, error) {
	return New(ctx, spec, func(ctx context.Context) error {
		_, err := runner.Run(ctx, refresh.TriggerSchedule)
		return err
	}, log)
}

// Start begins firing in the background
func (s *Scheduler) Start() {
	s.log.Info("Scheduler started", logger.Fields{"schedule": s.spec, "next": s.Next().Format(time.RFC3339)})
	s.cron.Start()
}

// Stop prevents further runs and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped", nil)
}

// Next returns the next fire time, computed from now when not yet started
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(time.Now().UTC())
}

// cronLogger adapts the structured logger to cron.Logger
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, toFields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, toFields(keysAndValues), err)
}

func toFields(keysAndValues []interface{}) logger.Fields {
	if len(keysAndValues) == 0 {
		return nil
	}
	fields := make(logger.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
