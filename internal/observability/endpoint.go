// endpoint.go Prometheus-compatible metrics endpoint
package observability

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trailsentry/trailsentry-go/internal/logging"
)

// Endpoint serves the Prometheus metrics over HTTP.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics
	logger        *slog.Logger
}

// NewEndpoint creates a new metrics endpoint over an existing Metrics
// instance.
func NewEndpoint(listenAddress string, metrics *Metrics) *Endpoint {
	logger := logging.ForService("observability")
	if logger == nil {
		logger = slog.Default().With("service", "observability")
	}
	return &Endpoint{
		listenAddress: listenAddress,
		metrics:       metrics,
		logger:        logger,
	}
}

// Start runs the HTTP server in a background goroutine.
func (e *Endpoint) Start() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.metrics.Registry(), promhttp.HandlerOpts{}))

	e.server = &http.Server{
		Addr:              e.listenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		e.logger.Info("metrics endpoint listening", "address", e.listenAddress)
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.logger.Error("metrics endpoint failed", "error", err)
		}
	}()
}

// Shutdown stops the HTTP server gracefully.
func (e *Endpoint) Shutdown(ctx context.Context) error {
	if e.server == nil {
		return nil
	}
	return e.server.Shutdown(ctx)
}
