package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"liquiditymining/internal/config"
	"liquiditymining/internal/metrics"
	"liquiditymining/internal/service"
)

// Constants for worker configuration
const (
	MonitorTimeout = 30 * time.Second
	RecordTimeout  = 30 * time.Second
	queueSize      = 100
)

// Rehearser runs one complete rehearsal
type Rehearser interface {
	Rehearse(ctx context.Context, cases []string) *service.Outcome
}

// RehearserFactory builds a fresh rehearser for every run
type RehearserFactory func() (Rehearser, error)

// ChainHead reads the head of the fork
type ChainHead interface {
	BlockNumber(ctx context.Context) (uint64, error)
	LatestTimestamp(ctx context.Context) (uint64, error)
}

// WorkerManager runs queued rehearsals in the background
type WorkerManager struct {
	cfg          *config.WorkerConfig
	runs         *service.RunService
	chain        ChainHead
	newRehearser RehearserFactory
	metrics      *metrics.Metrics
	logger       *zap.Logger

	// Worker components
	monitor  *Monitor
	executor *Executor

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkerManager creates a new worker manager with all required dependencies
func NewWorkerManager(
	cfg *config.WorkerConfig,
	runs *service.RunService,
	chain ChainHead,
	newRehearser RehearserFactory,
	m *metrics.Metrics,
	logger *zap.Logger,
) *WorkerManager {
	ctx, cancel := context.WithCancel(context.Background())

	wm := &WorkerManager{
		cfg:          cfg,
		runs:         runs,
		chain:        chain,
		newRehearser: newRehearser,
		metrics:      m,
		logger:       logger.Named("worker"),
		ctx:          ctx,
		cancel:       cancel,
	}

	wm.monitor = NewMonitor(wm)
	wm.executor = NewExecutor(wm)

	return wm
}

// Start starts all worker goroutines
func (wm *WorkerManager) Start() {
	wm.logger.Info("Starting worker manager",
		zap.Duration("poll_interval", wm.cfg.PollInterval),
		zap.Duration("run_timeout", wm.cfg.RunTimeout))

	wm.wg.Add(1)
	go func() {
		defer wm.wg.Done()
		wm.monitor.Run(wm.ctx)
	}()

	wm.wg.Add(1)
	go func() {
		defer wm.wg.Done()
		wm.executor.Run(wm.ctx)
	}()

	wm.logger.Info("Worker manager started")
}

// Shutdown gracefully stops all workers
func (wm *WorkerManager) Shutdown(timeout time.Duration) error {
	wm.logger.Info("Shutting down worker manager")

	wm.cancel()

	done := make(chan struct{})
	go func() {
		wm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wm.logger.Info("Workers stopped gracefully")
	case <-time.After(timeout):
		wm.logger.Warn("Worker shutdown timed out")
	}

	wm.logger.Info("Worker manager shutdown complete")
	return nil
}
