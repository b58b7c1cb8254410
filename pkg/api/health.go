package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/aifs/pkg/manager"
	"github.com/cuemby/aifs/pkg/metrics"
)

// HealthServer serves the Health, Introspect, and Metrics RPC groups named
// in spec §6.3 over plain HTTP rather than the jsonCodec gRPC surface
// (Server, server.go): one ServeMux wired at construction time and started
// on its own listener.
type HealthServer struct {
	manager *manager.AssetManager
	version string
	mux     *http.ServeMux
}

// NewHealthServer creates a health check HTTP server. mgr may be nil during
// startup before the asset manager has finished initializing; /ready
// reports not-ready rather than panicking in that case.
func NewHealthServer(mgr *manager.AssetManager, version string) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{manager: mgr, version: version, mux: mux}

	mux.HandleFunc("/health", hs.healthHandler)
	mux.HandleFunc("/ready", hs.readyHandler)
	mux.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) { metrics.LivenessHandler()(w, r) })
	mux.HandleFunc("/version", hs.versionHandler)
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/metrics/otel", metrics.OTelHandler())

	return hs
}

// Start starts the health/metrics HTTP server on addr, blocking until it
// stops.
func (hs *HealthServer) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      hs.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// HealthResponse is the /health liveness payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

// ReadyResponse is the /ready readiness payload.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

// healthHandler is a liveness probe: it answers healthy as long as the
// process can serve HTTP at all, independent of storage state.
func (hs *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   hs.version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// readyHandler judges readiness from one AssetManager.Statistics() call
// (spec §6.3's Health group): an error marks the metadata store as not
// accessible; on success the store, chunk store, KMS, and vector index are
// all reported ok. The chunk store itself is not read.
func (hs *HealthServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	checks := make(map[string]string)
	ready := true
	var message string

	if hs.manager == nil {
		checks["manager"] = "not initialized"
		ready = false
		message = "asset manager not initialized"
	} else {
		stats, err := hs.manager.Statistics()
		if err != nil {
			checks["store"] = fmt.Sprintf("error: %v", err)
			ready = false
			message = "metadata store not accessible"
		} else {
			checks["store"] = "ok"
			checks["chunkstore"] = "ok"
			checks["kms"] = fmt.Sprintf("ok (%d keys)", stats.KMSKeys)
			checks["vectorindex"] = fmt.Sprintf("ok (%d vectors)", stats.VectorCount)
		}
	}

	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	response := ReadyResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
		Message:   message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// versionHandler serves spec §6.3's Introspect group: engine version and
// supported asset kinds. The embedding dimension is not reported.
func (hs *HealthServer) versionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"version":      hs.version,
		"asset_kinds":  []string{"blob", "tensor", "embedding", "artifact"},
	})
}

// GetHandler returns the underlying HTTP handler for embedding elsewhere.
func (hs *HealthServer) GetHandler() http.Handler {
	return hs.mux
}
