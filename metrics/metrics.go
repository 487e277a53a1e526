// Package metrics exposes Prometheus metrics for the assertion generator:
// seal/unseal outcomes, assertions served, and envelope store operations.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SealOperations counts seal attempts by outcome ("success"/"failure").
	SealOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assertion_generator_seal_operations_total",
		Help: "Number of sealed secret creation attempts by outcome.",
	}, []string{"outcome"})

	// UnsealOperations counts unseal attempts by outcome.
	UnsealOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assertion_generator_unseal_operations_total",
		Help: "Number of sealed secret extraction attempts by outcome.",
	}, []string{"outcome"})

	// AssertionsGenerated counts assertions served by outcome.
	AssertionsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assertion_generator_assertions_total",
		Help: "Number of assertion requests served by outcome.",
	}, []string{"outcome"})

	// EnvelopeStoreOperations counts envelope store calls by backend,
	// operation ("save"/"load") and outcome.
	EnvelopeStoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assertion_generator_envelope_store_operations_total",
		Help: "Number of envelope store operations by backend, operation and outcome.",
	}, []string{"backend", "operation", "outcome"})
)

// Outcome converts an error into the metric outcome label.
func Outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// MetricsServer serves the Prometheus default registry over HTTP on a
// dedicated listener, separate from the API server.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server listening on addr.
func New(name, addr string) (*MetricsServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}, nil
}

// ListenAndServe blocks serving metrics until Shutdown or a listener error.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
