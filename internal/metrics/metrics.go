package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	tableLabel   = "cache_table"
	actionLabel  = "action"
	outcomeLabel = "outcome"
	statusLabel  = "row_status"
)

var (
	// CacheHits counts reads served from the local cache.
	CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sectionflow_cache_hits_total",
		Help: "Number of reads served from the local cache",
	}, []string{tableLabel})

	// CacheMisses counts reads that had to consult the remote system.
	CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sectionflow_cache_misses_total",
		Help: "Number of reads that fell through to the remote system",
	}, []string{tableLabel})

	// ActionOutcomes counts workflow action results per action and outcome.
	ActionOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sectionflow_action_outcomes_total",
		Help: "Workflow action invocations by action and outcome",
	}, []string{actionLabel, outcomeLabel})

	// StatusChanges counts row status transitions written by the orchestrator.
	StatusChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sectionflow_status_changes_total",
		Help: "Row status transitions by destination status",
	}, []string{statusLabel})

	// SyncErrors counts failed attempts to push an outbox event to the remote system.
	SyncErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sectionflow_sync_error_count",
		Help: "Number of errors pushing outbox events to the remote system",
	}, []string{tableLabel})

	// SyncLatency is how long a single outbox event takes to push and clear.
	SyncLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sectionflow_sync_latency_seconds",
		Help:    "Outbox push latency in seconds",
		Buckets: []float64{0.01, 0.1, 1, 5, 10, 60, 300},
	}, []string{tableLabel})
)

func init() {
	prometheus.MustRegister(
		CacheHits,
		CacheMisses,
		ActionOutcomes,
		StatusChanges,
		SyncErrors,
		SyncLatency,
	)
}

func Reset() {
	CacheHits.Reset()
	CacheMisses.Reset()
	ActionOutcomes.Reset()
	StatusChanges.Reset()
	SyncErrors.Reset()
	SyncLatency.Reset()
}
