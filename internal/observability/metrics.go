// Package observability provides Prometheus metrics for monitoring the
// TrailSentry node: delivery outcomes, queue depth and connectivity state.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Detection pipeline
	DetectionsObserved *prometheus.CounterVec // by decision
	AlertsEnqueued     *prometheus.CounterVec // by priority

	// Dispatcher
	DeliveryAttempts *prometheus.CounterVec // by transport, outcome
	AlertsResolved   *prometheus.CounterVec // by state
	QueueDepth       prometheus.Gauge

	// Connectivity
	WifiConnected   prometheus.Gauge
	WifiRetryCount  prometheus.Gauge
	MeshActiveNodes prometheus.Gauge
	OtaAvailable    prometheus.Gauge
}

// NewMetrics creates a new instance of Metrics, registering all collectors.
// It returns an error if any collector fails to register.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		DetectionsObserved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailsentry_detections_observed_total",
			Help: "Total number of detections observed, by cooldown ledger decision",
		}, []string{"decision"}),
		AlertsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailsentry_alerts_enqueued_total",
			Help: "Total number of alert records enqueued for delivery, by priority",
		}, []string{"priority"}),
		DeliveryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailsentry_delivery_attempts_total",
			Help: "Total number of transport delivery attempts, by transport and outcome",
		}, []string{"transport", "outcome"}),
		AlertsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailsentry_alerts_resolved_total",
			Help: "Total number of alert records reaching a terminal state, by state",
		}, []string{"state"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trailsentry_delivery_queue_depth",
			Help: "Current number of pending alert records in the delivery queue",
		}),
		WifiConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trailsentry_wifi_connected",
			Help: "Current WiFi connection status (1 for connected, 0 for disconnected)",
		}),
		WifiRetryCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trailsentry_wifi_retry_count",
			Help: "Current WiFi reconnect backoff retry count",
		}),
		MeshActiveNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trailsentry_mesh_active_nodes",
			Help: "Number of mesh nodes heard from within the node window",
		}),
		OtaAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trailsentry_ota_available",
			Help: "Whether a software update is available (1 yes, 0 no)",
		}),
	}

	collectors := []prometheus.Collector{
		m.DetectionsObserved,
		m.AlertsEnqueued,
		m.DeliveryAttempts,
		m.AlertsResolved,
		m.QueueDepth,
		m.WifiConnected,
		m.WifiRetryCount,
		m.MeshActiveNodes,
		m.OtaAvailable,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics collector: %w", err)
		}
	}

	return m, nil
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
