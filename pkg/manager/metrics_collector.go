package manager

import (
	"time"

	"github.com/cuemby/aifs/pkg/metrics"
)

// MetricsCollector periodically samples the asset manager's state into the
// Prometheus gauges exposed over the Metrics RPC group (spec §6.3).
type MetricsCollector struct {
	manager *AssetManager
	stopCh  chan struct{}
}

// NewMetricsCollector creates a new metrics collector for mgr.
func NewMetricsCollector(mgr *AssetManager) *MetricsCollector {
	return &MetricsCollector{
		manager: mgr,
		stopCh:  make(chan struct{}),
	}
}

// Start begins collecting metrics on a background ticker.
func (c *MetricsCollector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *MetricsCollector) Stop() {
	close(c.stopCh)
}

func (c *MetricsCollector) collect() {
	stats, err := c.manager.Statistics()
	if err != nil {
		return
	}

	metrics.AssetsTotal.Set(float64(stats.Assets))
	metrics.NamespacesTotal.Set(float64(stats.Namespaces))
	metrics.VectorIndexSize.Set(float64(stats.VectorCount))
	metrics.KMSKeysTotal.Set(float64(stats.KMSKeys))
	metrics.KMSKeysExpiredTotal.Set(float64(stats.KMSExpired))

	for state, count := range stats.Transactions {
		metrics.TransactionsTotal.WithLabelValues(string(state)).Set(float64(count))
	}
}
