/*
Package metrics provides Prometheus metrics collection and exposition for AIFS.

Metrics are defined and registered with the Prometheus client library at
package init, giving observability into asset inventory, transaction
outcomes, KMS key state, vector index size, and per-operation latency.
They are exposed via HTTP for scraping by a Prometheus server, alongside
JSON health/readiness/liveness endpoints for orchestrator probes.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Inventory: assets, namespaces, snapshots,  │          │
	│  │             vector index size               │          │
	│  │  Transactions: state counts, commit         │          │
	│  │             duration, refusal count         │          │
	│  │  KMS: key count, expired key count          │          │
	│  │  API: request count, duration               │          │
	│  │  Operations: put/get/snapshot/search        │          │
	│  │             duration                        │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Format: Prometheus text exposition       │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Metrics Catalog

Inventory:

  aifs_assets_total             Gauge   total stored assets
  aifs_namespaces_total         Gauge   total namespaces
  aifs_snapshots_total{namespace} Gauge total snapshots per namespace
  aifs_vector_index_size        Gauge   embeddings held in the vector index

Transactions:

  aifs_transactions_total{state}              Gauge     count by PENDING/COMMITTING/COMMITTED/ROLLING_BACK/ROLLED_BACK/FAILED
  aifs_transaction_commit_duration_seconds    Histogram time to commit
  aifs_transaction_commit_refused_total       Counter   commits refused for unsatisfied dependencies

KMS:

  aifs_kms_keys_total           Gauge   registered KMS keys
  aifs_kms_keys_expired_total   Gauge   keys past their expiry

API:

  aifs_api_requests_total{method,status}         Counter
  aifs_api_request_duration_seconds{method}      Histogram

Operation latency:

  aifs_put_asset_duration_seconds
  aifs_get_asset_duration_seconds
  aifs_create_snapshot_duration_seconds
  aifs_vector_search_duration_seconds

# Timer helper

NewTimer starts a clock; ObserveDuration/ObserveDurationVec record the
elapsed time to a histogram when the operation completes:

	timer := metrics.NewTimer()
	_, err := mgr.PutAsset(req)
	timer.ObserveDuration(metrics.PutAssetDuration)

# Health

HealthChecker tracks named component states (e.g. "store", "chunkstore",
"kms") independently of the Prometheus registry and serves them as JSON
from HealthHandler, ReadyHandler, and LivenessHandler. Readiness fails
while any critical component ("store", "chunkstore", "kms") is
unregistered or its latest report is unhealthy.

# Integration points

This package integrates with:

  - pkg/manager: MetricsCollector polls AssetManager.Statistics() on a
    ticker and updates the inventory/transaction/KMS gauges
  - pkg/api: instruments RPC request count and duration, calls the
    operation timers around PutAsset/GetAsset/CreateSnapshot/VectorSearch
  - Prometheus: scrapes the metrics HTTP endpoint
*/
package metrics
