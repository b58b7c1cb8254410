package metrics

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// otelReader is a pull-based reader: nothing pushes to a collector, the
// OTel-JSON endpoint below calls Collect on every scrape the same way
// promhttp.Handler calls the Prometheus registry on every scrape.
var otelReader = sdkmetric.NewManualReader()

var otelProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(otelReader))

var otelMeter = otelProvider.Meter("github.com/cuemby/aifs")

// OTel counters mirror a subset of the Prometheus metrics above — spec
// §6.3's Metrics group asks for the same inventory in both the Prometheus
// text and the OpenTelemetry JSON exposition.
var (
	OTelAssetsPut           metric.Int64Counter
	OTelAssetsDeleted       metric.Int64Counter
	OTelTransactionsCommitted metric.Int64Counter
	OTelSnapshotsCreated    metric.Int64Counter
	OTelVectorSearches      metric.Int64Counter
)

func init() {
	var err error
	if OTelAssetsPut, err = otelMeter.Int64Counter(
		"aifs.assets.put", metric.WithDescription("assets written via PutAsset")); err != nil {
		panic(err)
	}
	if OTelAssetsDeleted, err = otelMeter.Int64Counter(
		"aifs.assets.deleted", metric.WithDescription("assets removed via DeleteAsset")); err != nil {
		panic(err)
	}
	if OTelTransactionsCommitted, err = otelMeter.Int64Counter(
		"aifs.transactions.committed", metric.WithDescription("transactions committed")); err != nil {
		panic(err)
	}
	if OTelSnapshotsCreated, err = otelMeter.Int64Counter(
		"aifs.snapshots.created", metric.WithDescription("snapshots created")); err != nil {
		panic(err)
	}
	if OTelVectorSearches, err = otelMeter.Int64Counter(
		"aifs.vector_searches.total", metric.WithDescription("vector searches served")); err != nil {
		panic(err)
	}
}

// OTelHandler serves an OpenTelemetry metrics snapshot as JSON, collected
// on demand from the manual reader above. This is the OTel side of spec
// §6.3's "Prometheus text + OpenTelemetry JSON" metrics group; Handler
// above serves the Prometheus side of the same inventory.
func OTelHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rm metricdata.ResourceMetrics
		if err := otelReader.Collect(r.Context(), &rm); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(rm); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

// ShutdownOTel flushes and stops the OTel meter provider. Call during
// server shutdown.
func ShutdownOTel(ctx context.Context) error {
	return otelProvider.Shutdown(ctx)
}
