package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "liquidity_mining"

// Metrics holds the rehearsal service collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	runsTotal          *prometheus.CounterVec
	caseResultsTotal   *prometheus.CounterVec
	runDuration        prometheus.Histogram
	chainHeadBlock     prometheus.Gauge
	chainHeadTimestamp prometheus.Gauge
	queuedRuns         prometheus.Gauge
}

// New creates the collectors and registers them with registry
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of finished rehearsal runs by status",
		}, []string{"status"}),
		caseResultsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "case_results_total",
			Help:      "Total number of rehearsal case results by case and result",
		}, []string{"case", "result"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall clock duration of rehearsal runs",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		chainHeadBlock: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chain_head_block",
			Help:      "Latest block number seen on the fork",
		}),
		chainHeadTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chain_head_timestamp_seconds",
			Help:      "Timestamp of the latest block on the fork",
		}),
		queuedRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queued_runs",
			Help:      "Number of runs handed to the executor and not yet started",
		}),
	}
}

// ObserveRun records a finished run
func (m *Metrics) ObserveRun(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(duration.Seconds())
}

// ObserveCase records a single case result
func (m *Metrics) ObserveCase(name string, passed bool) {
	if m == nil {
		return
	}
	result := "failed"
	if passed {
		result = "passed"
	}
	m.caseResultsTotal.WithLabelValues(name, result).Inc()
}

// SetChainHead records the latest block of the fork
func (m *Metrics) SetChainHead(number, timestamp uint64) {
	if m == nil {
		return
	}
	m.chainHeadBlock.Set(float64(number))
	m.chainHeadTimestamp.Set(float64(timestamp))
}

// SetQueuedRuns records the executor backlog
func (m *Metrics) SetQueuedRuns(n int) {
	if m == nil {
		return
	}
	m.queuedRuns.Set(float64(n))
}
