// Package connectivity owns the node's link state and the cooperative
// scheduler that keeps transports usable: WiFi reconnect with exponential
// backoff, periodic mesh health checks, update-availability polling and
// periodic status summaries. The scheduler is the sole writer of the
// state; the dispatcher reads availability through snapshots.
package connectivity

import "time"

// State is the connectivity state of the node. It is mutated only by the
// Scheduler's tick; everyone else receives copies via Snapshot.
type State struct {
	WifiConnected   bool      `json:"wifi_connected"`
	WifiRetryCount  int       `json:"wifi_retry_count"`
	LastWifiAttempt time.Time `json:"last_wifi_attempt"`

	OtaAvailable bool      `json:"ota_available"`
	LastOtaCheck time.Time `json:"last_ota_check"`

	MeshActiveNodes int       `json:"mesh_active_nodes"`
	LastMeshCheck   time.Time `json:"last_mesh_check"`

	LastStatusLog time.Time `json:"-"`
}
