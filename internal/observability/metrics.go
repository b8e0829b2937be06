package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the circuit-breaker token service.
type Metrics struct {
	// --- Engine ---
	OpsApplied  *prometheus.CounterVec
	OpsRejected *prometheus.CounterVec
	OpDuration  *prometheus.HistogramVec
	CurrentTick prometheus.Gauge

	// --- Ledger & custody ---
	TotalSupply   prometheus.Gauge
	CustodyHeld   prometheus.Gauge
	DepositTotal  prometheus.Counter
	WithdrawTotal prometheus.Counter

	// --- Liquidation ---
	LiquidationsInitiated prometheus.Counter
	SeizuresExecuted      prometheus.Counter
	SeizureAmountTotal    prometheus.Counter
	WindowExpirations     prometheus.Counter
	ActiveRecords         prometheus.Gauge
	DepositBypass         prometheus.Counter

	// --- Channels & backpressure ---
	ChannelSize         *prometheus.GaugeVec
	ChannelCapacity     *prometheus.GaugeVec
	ChannelUtilization  *prometheus.GaugeVec
	PublishDrops        prometheus.Counter
	PersistBackpressure prometheus.Counter

	// --- Persistence ---
	PersistEventsWritten prometheus.Counter
	PersistBatchDur      prometheus.Histogram
	PersistErrors        *prometheus.CounterVec
	PersistRetry         prometheus.Counter
	PersistLastSequence  prometheus.Gauge
	ReplayEventsTotal    prometheus.Counter

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		OpsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cbt_ops_applied_total",
			Help: "Operations successfully applied by the engine",
		}, []string{"op"}),

		OpsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cbt_ops_rejected_total",
			Help: "Operations rejected by the engine",
		}, []string{"op", "reason"}),

		OpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cbt_op_duration_seconds",
			Help:    "Time to apply a single operation",
			Buckets: latencyBuckets,
		}, []string{"op"}),

		CurrentTick: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "cbt_current_tick",
			Help: "Current global tick",
		}),

		TotalSupply: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "cbt_total_supply",
			Help: "Outstanding wrapped supply",
		}),

		CustodyHeld: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "cbt_custody_held",
			Help: "Underlying asset held in custody",
		}),

		DepositTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cbt_deposit_amount_total",
			Help: "Cumulative deposited amount",
		}),

		WithdrawTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cbt_withdraw_amount_total",
			Help: "Cumulative withdrawn amount",
		}),

		LiquidationsInitiated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cbt_liquidations_initiated_total",
			Help: "Liquidation records opened",
		}),

		SeizuresExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cbt_seizures_executed_total",
			Help: "Authorized seizures executed",
		}),

		SeizureAmountTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cbt_seizure_amount_total",
			Help: "Cumulative seized amount",
		}),

		WindowExpirations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cbt_window_expirations_total",
			Help: "Stale records cleared by lazy expiry",
		}),

		ActiveRecords: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "cbt_active_records",
			Help: "Live liquidation records",
		}),

		DepositBypass: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cbt_deposit_bypass_total",
			Help: "Third-party pulls classified as owner-initiated deposits",
		}),

		ChannelSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cbt_channel_size",
			Help: "Current items in channel",
		}, []string{"name"}),

		ChannelCapacity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cbt_channel_capacity",
			Help: "Channel capacity (constant)",
		}, []string{"name"}),

		ChannelUtilization: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cbt_channel_utilization",
			Help: "Channel size / capacity (0.0-1.0)",
		}, []string{"name"}),

		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cbt_publish_drops_total",
			Help: "Events dropped due to full publish channel",
		}),

		PersistBackpressure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cbt_persist_backpressure_total",
			Help: "Times the engine blocked on the persist channel",
		}),

		PersistEventsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cbt_persist_events_written_total",
			Help: "Events written to Postgres",
		}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "cbt_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cbt_persist_errors_total",
			Help: "Persistence errors",
		}, []string{"error_type"}),

		PersistRetry: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cbt_persist_retry_total",
			Help: "Persistence retries",
		}),

		PersistLastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "cbt_persist_last_sequence",
			Help: "Last persisted sequence",
		}),

		ReplayEventsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cbt_replay_events_total",
			Help: "Events replayed on startup",
		}),

		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cbt_query_requests_total",
			Help: "Query requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cbt_query_duration_seconds",
			Help:    "Query latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),

		QueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cbt_query_errors_total",
			Help: "Query errors",
		}, []string{"endpoint", "code"}),
	}
}

// SetChannelMetrics updates channel utilization metrics.
func (m *Metrics) SetChannelMetrics(name string, size, capacity int) {
	m.ChannelSize.WithLabelValues(name).Set(float64(size))
	m.ChannelCapacity.WithLabelValues(name).Set(float64(capacity))
	if capacity > 0 {
		m.ChannelUtilization.WithLabelValues(name).Set(float64(size) / float64(capacity))
	}
}
