package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"liquiditymining/internal/models"
)

// Monitor polls the fork head and the run queue
type Monitor struct {
	manager *WorkerManager
	logger  *zap.Logger

	// Channel to send runs ready for execution
	readyRuns chan *models.Run
	// runs handed to the executor and not yet finished
	mu         sync.Mutex
	dispatched map[int64]bool
}

// NewMonitor creates a new queue monitor
func NewMonitor(manager *WorkerManager) *Monitor {
	return &Monitor{
		manager:    manager,
		logger:     manager.logger.Named("monitor"),
		readyRuns:  make(chan *models.Run, queueSize),
		dispatched: make(map[int64]bool),
	}
}

// Run starts the monitor polling loop
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("Monitor started",
		zap.Duration("poll_interval", m.manager.cfg.PollInterval))

	ticker := time.NewTicker(m.manager.cfg.PollInterval)
	defer ticker.Stop()

	// Initial poll
	m.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Monitor stopping")
			close(m.readyRuns)
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

// poll executes one polling cycle
func (m *Monitor) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, MonitorTimeout)
	defer cancel()

	m.checkChainHead(pollCtx)
	m.checkQueue(pollCtx)
}

// checkChainHead records the fork head in the metrics
func (m *Monitor) checkChainHead(ctx context.Context) {
	number, err := m.manager.chain.BlockNumber(ctx)
	if err != nil {
		m.logger.Warn("Failed to get block number", zap.Error(err))
		return
	}
	timestamp, err := m.manager.chain.LatestTimestamp(ctx)
	if err != nil {
		m.logger.Warn("Failed to get latest timestamp", zap.Error(err))
		return
	}
	m.manager.metrics.SetChainHead(number, timestamp)
}

// checkQueue hands the oldest queued run to the executor
func (m *Monitor) checkQueue(ctx context.Context) {
	run, err := m.manager.runs.NextQueued(ctx)
	if err != nil {
		m.logger.Error("Failed to get queued run", zap.Error(err))
		return
	}
	if run == nil || !m.acquire(run.ID) {
		return
	}

	select {
	case m.readyRuns <- run:
		m.manager.metrics.SetQueuedRuns(len(m.readyRuns))
		m.logger.Debug("Run dispatched", zap.Int64("run_id", run.ID))
	case <-ctx.Done():
		m.release(run.ID)
	}
}

// acquire marks a run as in flight, reporting false if it already is
func (m *Monitor) acquire(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dispatched[id] {
		return false
	}
	m.dispatched[id] = true
	return true
}

// release lets a run be dispatched again. The executor calls it once it is
// done with a run, so a run whose claim failed is picked up on the next poll.
func (m *Monitor) release(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.dispatched, id)
}
