// Package transport provides the delivery transport abstraction and the
// concrete drivers for the mesh radio gateway, the cloud webhook, the
// satellite modem and the local annunciator.
package transport

import (
	"context"

	"github.com/trailsentry/trailsentry-go/internal/alert"
)

// Transport names, also used as the default rank order of the dispatcher.
const (
	NameMesh      = "mesh"
	NameCloud     = "cloud"
	NameSatellite = "satellite"
	NameLocal     = "local"
)

// Transport is a single delivery mechanism with its own cost, latency and
// reliability profile. Send must not block beyond the deadline of the
// passed context; the dispatcher never waits synchronously on network I/O
// beyond one bounded call.
type Transport interface {
	// Name returns the transport name, stable across restarts.
	Name() string

	// Send attempts to deliver one alert record and reports the outcome.
	Send(ctx context.Context, rec *alert.Record) alert.Outcome

	// IsAvailable reports driver-level liveness. Network-level
	// availability for mesh and cloud is owned by the connectivity
	// scheduler, not the driver.
	IsAvailable() bool
}
