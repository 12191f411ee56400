// Package worker drives the job pipeline from the worker process: on start,
// on job-created notifications and on a polling ticker.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/brief-service/internal/core/domain"
	"github.com/kirillkom/brief-service/internal/core/ports"
)

type Loop struct {
	jobs         ports.JobWorker
	pollInterval time.Duration
	jobTimeout   time.Duration
	wake         chan struct{}
}

// NewLoop builds a loop. A zero pollInterval disables polling and a zero
// jobTimeout leaves each run bounded only by the loop context.
func NewLoop(jobs ports.JobWorker, pollInterval, jobTimeout time.Duration) *Loop {
	return &Loop{
		jobs:         jobs,
		pollInterval: pollInterval,
		jobTimeout:   jobTimeout,
		wake:         make(chan struct{}, 1),
	}
}

// Notify schedules a drain without blocking. Notifications that arrive while
// one is already queued are coalesced.
func (l *Loop) Notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// HandleJobCreated matches ports.JobEvents subscribers. The job id is only a
// hint: the loop always claims the oldest pending job.
func (l *Loop) HandleJobCreated(_ context.Context, jobID string) error {
	slog.Debug("job_event_received", "job_id", jobID)
	l.Notify()
	return nil
}

// Run drains pending jobs until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	var tick <-chan time.Time
	if l.pollInterval > 0 {
		ticker := time.NewTicker(l.pollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	l.Drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
			l.Drain(ctx)
		case <-tick:
			l.Drain(ctx)
		}
	}
}

// Drain processes jobs one at a time until none is pending, the claim itself
// fails, or ctx is done. It returns how many jobs reached a terminal state.
func (l *Loop) Drain(ctx context.Context) int {
	processed := 0
	for ctx.Err() == nil {
		job, err := l.runOne(ctx)
		if err != nil && job == nil {
			slog.Error("worker_claim_failed", "error", err)
			return processed
		}
		if job == nil {
			break
		}
		processed++
	}
	if processed > 0 {
		slog.Info("worker_drained", "processed", processed)
	}
	return processed
}

func (l *Loop) runOne(ctx context.Context) (*domain.Job, error) {
	if l.jobTimeout <= 0 {
		return l.jobs.ProcessNext(ctx)
	}
	runCtx, cancel := context.WithTimeout(ctx, l.jobTimeout)
	defer cancel()
	return l.jobs.ProcessNext(runCtx)
}
