package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"tourism-app/internal/infra/logger"
	"tourism-app/internal/infra/metrics"
)

// BatchJob processes one batch and reports how many items it touched.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// Scheduler runs registered jobs on cron specs in UTC. A job still running
// when its next tick fires is skipped for that tick.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

func NewScheduler() *Scheduler {
	log := logger.WithComponent("scheduler")
	cl := cronLogger{log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: log,
	}
}

// Register adds job under name. timeout bounds a single run.
func (s *Scheduler) Register(name, spec string, timeout time.Duration, job BatchJob) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.run(ctx, name, job)
	})
	if err != nil {
		return fmt.Errorf("register job %s (%q): %w", name, spec, err)
	}
	s.log.Info("registered job", "job", name, "spec", spec)
	return nil
}

func (s *Scheduler) run(ctx context.Context, name string, job BatchJob) {
	start := time.Now()
	n, err := job.Execute(ctx)
	if err != nil {
		metrics.JobRuns.WithLabelValues(name, "error").Inc()
		s.log.Error("job failed", "job", name, "error", err, "duration", time.Since(start))
		return
	}
	metrics.JobRuns.WithLabelValues(name, "ok").Inc()
	if n > 0 {
		s.log.Info("job finished", "job", name, "count", n, "duration", time.Since(start))
	} else {
		s.log.Debug("job finished, nothing to do", "job", name, "duration", time.Since(start))
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and waits for running ones until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
