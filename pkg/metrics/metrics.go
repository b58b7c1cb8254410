package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Asset/namespace inventory
	AssetsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aifs_assets_total",
			Help: "Total number of stored assets",
		},
	)

	NamespacesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aifs_namespaces_total",
			Help: "Total number of namespaces",
		},
	)

	SnapshotsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aifs_snapshots_total",
			Help: "Total number of snapshots by namespace",
		},
		[]string{"namespace"},
	)

	VectorIndexSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aifs_vector_index_size",
			Help: "Number of embeddings currently held in the vector index",
		},
	)

	// Transaction manager
	TransactionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aifs_transactions_total",
			Help: "Total number of transactions by state",
		},
		[]string{"state"},
	)

	TransactionCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aifs_transaction_commit_duration_seconds",
			Help:    "Time taken to commit a transaction in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	TransactionCommitRefusedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aifs_transaction_commit_refused_total",
			Help: "Total number of commit attempts refused due to unsatisfied dependencies",
		},
	)

	// KMS
	KMSKeysTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aifs_kms_keys_total",
			Help: "Total number of registered KMS keys",
		},
	)

	KMSKeysExpiredTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aifs_kms_keys_expired_total",
			Help: "Total number of KMS keys past their expiry",
		},
	)

	// API
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aifs_api_requests_total",
			Help: "Total number of RPC requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aifs_api_request_duration_seconds",
			Help:    "RPC request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Asset-manager operation latencies
	PutAssetDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aifs_put_asset_duration_seconds",
			Help:    "Time taken to put an asset (codec validate, compress, seal, persist) in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	GetAssetDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aifs_get_asset_duration_seconds",
			Help:    "Time taken to fetch and decode an asset in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CreateSnapshotDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aifs_create_snapshot_duration_seconds",
			Help:    "Time taken to build and sign a snapshot in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	VectorSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aifs_vector_search_duration_seconds",
			Help:    "Time taken to run a vector search in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(AssetsTotal)
	prometheus.MustRegister(NamespacesTotal)
	prometheus.MustRegister(SnapshotsTotal)
	prometheus.MustRegister(VectorIndexSize)
	prometheus.MustRegister(TransactionsTotal)
	prometheus.MustRegister(TransactionCommitDuration)
	prometheus.MustRegister(TransactionCommitRefusedTotal)
	prometheus.MustRegister(KMSKeysTotal)
	prometheus.MustRegister(KMSKeysExpiredTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(PutAssetDuration)
	prometheus.MustRegister(GetAssetDuration)
	prometheus.MustRegister(CreateSnapshotDuration)
	prometheus.MustRegister(VectorSearchDuration)
}

// Handler returns the Prometheus HTTP handler (spec §6.3's Metrics group:
// "Prometheus text + OpenTelemetry JSON" — serves the Prometheus text
// exposition format; see OTelHandler in otel.go for the JSON side).
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
