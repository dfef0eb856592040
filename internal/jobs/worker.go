package jobs

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/brandpulse-backend/internal/logger"
	"github.com/yungbote/brandpulse-backend/internal/repos"
	"github.com/yungbote/brandpulse-backend/internal/services"
)

const (
	defaultPollInterval      = 2 * time.Second
	defaultHeartbeatInterval = 15 * time.Second
	defaultMaxAttempts       = 3
	defaultRetryDelay        = 30 * time.Second
	defaultStaleRunning      = 5 * time.Minute
)

// Worker polls simulation_runs for claimable work and dispatches to the
// registered handler for the run's job type. Claiming uses SKIP LOCKED, so
// multiple workers can poll the same table without stepping on each other.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	runs     repos.SimulationRunRepo
	registry *Registry
	notify   services.SimulationNotifier

	pollInterval time.Duration
	maxAttempts  int
	retryDelay   time.Duration
	staleRunning time.Duration
}

func NewWorker(db *gorm.DB, log *logger.Logger, runs repos.SimulationRunRepo, registry *Registry, notify services.SimulationNotifier) *Worker {
	return &Worker{
		db:           db,
		log:          log.With("component", "JobWorker"),
		runs:         runs,
		registry:     registry,
		notify:       notify,
		pollInterval: defaultPollInterval,
		maxAttempts:  defaultMaxAttempts,
		retryDelay:   defaultRetryDelay,
		staleRunning: defaultStaleRunning,
	}
}

// Start runs the poll loop until ctx is cancelled. Call in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Job worker started", "poll_interval", w.pollInterval.String())
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Job worker stopping")
			return
		case <-ticker.C:
			// Drain everything runnable before sleeping again.
			for w.claimAndRun(ctx) {
				if ctx.Err() != nil {
					return
				}
			}
		}
	}
}

// claimAndRun claims at most one run and executes it to completion. Returns
// true if a run was claimed, so the caller can immediately try for another.
func (w *Worker) claimAndRun(ctx context.Context) bool {
	run, err := w.runs.ClaimNextRunnable(ctx, nil, w.maxAttempts, w.retryDelay, w.staleRunning)
	if err != nil {
		w.log.Error("Failed to claim runnable job", "error", err)
		return false
	}
	if run == nil {
		return false
	}

	jc := NewContext(ctx, nil, run, w.runs, w.notify)
	w.log.Info("Claimed job", "run_id", run.ID, "job_type", run.JobType, "attempt", run.Attempts+1)

	handler, ok := w.registry.Get(run.JobType)
	if !ok {
		jc.Fail("dispatch", fmt.Errorf("no handler registered for job type %q", run.JobType))
		return true
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	go w.heartbeatLoop(hbCtx, jc)

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				w.log.Error("Job handler panicked", "run_id", run.ID, "job_type", run.JobType, "panic", rec)
				jc.Fail("panic", fmt.Errorf("handler panic: %v", rec))
			}
		}()
		tracer := otel.Tracer("brandpulse/jobs")
		spanCtx, span := tracer.Start(ctx, "job."+run.JobType)
		span.SetAttributes(
			attribute.String("run.id", run.ID.String()),
			attribute.String("run.job_type", run.JobType),
		)
		defer span.End()
		jc.Ctx = spanCtx
		handler.Run(jc)
	}()

	stopHeartbeat()
	return true
}

func (w *Worker) heartbeatLoop(ctx context.Context, jc *Context) {
	ticker := time.NewTicker(defaultHeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jc.Heartbeat()
		}
	}
}
