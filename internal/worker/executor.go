package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"liquiditymining/internal/models"
	"liquiditymining/internal/service"
)

// Executor runs queued rehearsals one at a time
type Executor struct {
	manager *WorkerManager
	logger  *zap.Logger
}

// NewExecutor creates a new run executor
func NewExecutor(manager *WorkerManager) *Executor {
	return &Executor{
		manager: manager,
		logger:  manager.logger.Named("executor"),
	}
}

// Run starts the executor loop
func (e *Executor) Run(ctx context.Context) {
	e.logger.Info("Executor started")

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Executor stopping")
			return
		case run, ok := <-e.manager.monitor.readyRuns:
			if !ok {
				e.logger.Info("Run channel closed, executor stopping")
				return
			}
			e.manager.metrics.SetQueuedRuns(len(e.manager.monitor.readyRuns))
			e.handleRun(ctx, run)
			e.manager.monitor.release(run.ID)
		}
	}
}

// handleRun claims a run, rehearses it and records the outcome
func (e *Executor) handleRun(ctx context.Context, run *models.Run) {
	claimed, err := e.manager.runs.Claim(ctx, run)
	if err != nil {
		e.logger.Error("Failed to claim run", zap.Int64("run_id", run.ID), zap.Error(err))
		return
	}
	if !claimed {
		e.logger.Debug("Run already claimed", zap.Int64("run_id", run.ID))
		return
	}

	e.logger.Info("Handling run",
		zap.Int64("run_id", run.ID),
		zap.String("cases", run.Cases))

	start := time.Now()
	outcome := e.rehearse(ctx, run)

	// Record even when shutting down so the run does not stay RUNNING
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RecordTimeout)
	defer cancel()
	if err := e.manager.runs.Record(recordCtx, run, outcome); err != nil {
		e.logger.Error("Failed to record run", zap.Int64("run_id", run.ID), zap.Error(err))
	}

	e.manager.metrics.ObserveRun(string(run.Status), time.Since(start))
	for _, r := range outcome.Results {
		e.manager.metrics.ObserveCase(r.Name, r.Passed)
	}
}

// rehearse runs the rehearsal under the run timeout, turning panics into failures
func (e *Executor) rehearse(ctx context.Context, run *models.Run) (outcome *service.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Rehearsal panicked", zap.Int64("run_id", run.ID), zap.Any("panic", r))
			outcome = &service.Outcome{Err: fmt.Errorf("rehearsal panicked: %v", r)}
		}
	}()

	rehearser, err := e.manager.newRehearser()
	if err != nil {
		return &service.Outcome{Err: fmt.Errorf("failed to create rehearser: %w", err)}
	}

	runCtx, cancel := context.WithTimeout(ctx, e.manager.cfg.RunTimeout)
	defer cancel()

	return rehearser.Rehearse(runCtx, service.CaseNames(run))
}
