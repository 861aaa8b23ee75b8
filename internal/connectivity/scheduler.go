package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/trailsentry/trailsentry-go/internal/conf"
	"github.com/trailsentry/trailsentry-go/internal/logging"
	"github.com/trailsentry/trailsentry-go/internal/observability"
	"github.com/trailsentry/trailsentry-go/internal/transport"
)

// MeshHealth reports how many mesh nodes have been heard from recently.
type MeshHealth interface {
	ActiveNodes() int
}

// SatelliteProbe reports whether the satellite modem is ready.
type SatelliteProbe interface {
	IsAvailable() bool
}

// UpdateChecker reports whether a newer firmware version is published.
type UpdateChecker interface {
	Check(ctx context.Context) (bool, error)
}

// QueueDepther exposes the dispatcher's pending record count for the
// status summary.
type QueueDepther interface {
	QueueDepth() int
}

// Scheduler runs the node's connectivity housekeeping on a cooperative
// tick. Each sub-schedule keeps its own due timestamp; a tick does O(1)
// work per sub-schedule that is not due, so none of them can starve the
// others. Sub-schedules run in a fixed order: WiFi, OTA, mesh, status.
type Scheduler struct {
	cfg       conf.ConnectivitySettings
	wifi      WifiManager
	mesh      MeshHealth
	satellite SatelliteProbe
	updates   UpdateChecker
	queue     QueueDepther
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu    sync.RWMutex
	state State

	// wifiNextAttempt gates the reconnect sub-schedule; zero means a
	// reconnect is due immediately.
	wifiNextAttempt time.Time
}

// NewScheduler creates a connectivity scheduler. Any of mesh, satellite,
// updates and queue may be nil; the corresponding sub-schedule then
// reports a safe default.
func NewScheduler(cfg conf.ConnectivitySettings, wifi WifiManager, mesh MeshHealth, satellite SatelliteProbe, updates UpdateChecker, queue QueueDepther, metrics *observability.Metrics) *Scheduler {
	logger := logging.ForService("connectivity")
	if logger == nil {
		logger = slog.Default().With("service", "connectivity")
	}
	return &Scheduler{
		cfg:       cfg,
		wifi:      wifi,
		mesh:      mesh,
		satellite: satellite,
		updates:   updates,
		queue:     queue,
		logger:    logger,
		metrics:   metrics,
	}
}

// Tick runs every due sub-schedule once. Called from the tick driver;
// must not be called concurrently with itself.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	s.tickWifi(ctx, now)
	s.tickOta(ctx, now)
	s.tickMesh(now)
	s.tickStatus(now)
	s.publishMetrics()
}

// Snapshot returns a copy of the connectivity state.
func (s *Scheduler) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Available reports transport availability for the dispatcher: mesh needs
// at least one active peer, cloud needs WiFi, satellite answers for
// itself and local always works.
func (s *Scheduler) Available(transportName string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch transportName {
	case transport.NameMesh:
		return s.state.MeshActiveNodes > 0
	case transport.NameCloud:
		return s.state.WifiConnected
	case transport.NameSatellite:
		return s.satellite != nil && s.satellite.IsAvailable()
	case transport.NameLocal:
		return true
	default:
		return false
	}
}

// tickWifi refreshes the link state and, when down and past the backoff
// window, attempts a reconnect. The retry count stops climbing at the
// ceiling so the delay stays capped, but reconnects continue forever.
func (s *Scheduler) tickWifi(ctx context.Context, now time.Time) {
	if s.wifi == nil {
		return
	}

	connected := s.wifi.IsConnected()

	s.mu.Lock()
	if connected {
		if !s.state.WifiConnected {
			s.logger.Info("wifi link up", "retries", s.state.WifiRetryCount)
		}
		s.state.WifiConnected = true
		s.state.WifiRetryCount = 0
		s.mu.Unlock()
		return
	}
	s.state.WifiConnected = false
	due := !now.Before(s.wifiNextAttempt)
	s.mu.Unlock()

	if !due {
		return
	}

	// A hung supplicant must not stall the tick goroutine; the attempt
	// gets its own deadline like every other external call.
	timeout := s.cfg.WifiConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	err := s.wifi.Connect(connectCtx)
	cancel()

	s.mu.Lock()
	s.state.LastWifiAttempt = now
	if err != nil {
		// Backoff comes from the count before increment, so the first
		// failure waits the base delay. At the ceiling the delay pins
		// to the cap and stays there; reconnects never stop.
		delay := s.wifiDelay()
		if s.state.WifiRetryCount < s.cfg.WifiRetryCeiling {
			s.state.WifiRetryCount++
		}
		s.wifiNextAttempt = now.Add(delay)
		retries := s.state.WifiRetryCount
		s.mu.Unlock()
		s.logger.Warn("wifi reconnect failed",
			"error", err,
			"retries", retries,
			"next_attempt_in", delay,
		)
		return
	}
	s.state.WifiConnected = s.wifi.IsConnected()
	s.state.WifiRetryCount = 0
	s.wifiNextAttempt = time.Time{}
	connected = s.state.WifiConnected
	s.mu.Unlock()

	if connected {
		s.logger.Info("wifi reconnected")
	}
}

// wifiDelay returns the current reconnect backoff. Callers hold s.mu.
func (s *Scheduler) wifiDelay() time.Duration {
	if s.state.WifiRetryCount >= s.cfg.WifiRetryCeiling {
		return s.cfg.WifiBackoffMax
	}
	delay := s.cfg.WifiBackoffBase << s.state.WifiRetryCount
	if delay > s.cfg.WifiBackoffMax || delay <= 0 {
		delay = s.cfg.WifiBackoffMax
	}
	return delay
}

// tickOta polls the update manifest at the configured interval, only
// while WiFi is up. Bandwidth on mesh and satellite is too precious for
// manifest polling.
func (s *Scheduler) tickOta(ctx context.Context, now time.Time) {
	if s.updates == nil {
		return
	}

	s.mu.RLock()
	due := s.state.WifiConnected && now.Sub(s.state.LastOtaCheck) >= s.cfg.OtaInterval
	s.mu.RUnlock()
	if !due {
		return
	}

	available, err := s.updates.Check(ctx)

	s.mu.Lock()
	s.state.LastOtaCheck = now
	if err == nil {
		s.state.OtaAvailable = available
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("update check failed", "error", err)
		return
	}
	if available {
		s.logger.Info("firmware update available")
	}
}

// tickMesh refreshes the active peer count at the configured interval,
// regardless of WiFi state.
func (s *Scheduler) tickMesh(now time.Time) {
	if s.mesh == nil {
		return
	}

	s.mu.RLock()
	due := now.Sub(s.state.LastMeshCheck) >= s.cfg.MeshCheckInterval
	s.mu.RUnlock()
	if !due {
		return
	}

	nodes := s.mesh.ActiveNodes()

	s.mu.Lock()
	s.state.LastMeshCheck = now
	previous := s.state.MeshActiveNodes
	s.state.MeshActiveNodes = nodes
	s.mu.Unlock()

	if nodes != previous {
		s.logger.Info("mesh peer count changed", "active_nodes", nodes)
	}
}

// tickStatus logs the periodic status summary. Read-only over the state;
// failures to collect system stats degrade the summary, never the tick.
func (s *Scheduler) tickStatus(now time.Time) {
	s.mu.RLock()
	due := now.Sub(s.state.LastStatusLog) >= s.cfg.StatusInterval
	s.mu.RUnlock()
	if !due {
		return
	}

	s.mu.Lock()
	s.state.LastStatusLog = now
	state := s.state
	s.mu.Unlock()

	queueDepth := 0
	if s.queue != nil {
		queueDepth = s.queue.QueueDepth()
	}

	attrs := []any{
		"wifi_connected", state.WifiConnected,
		"wifi_retries", state.WifiRetryCount,
		"mesh_active_nodes", state.MeshActiveNodes,
		"ota_available", state.OtaAvailable,
		"queue_depth", queueDepth,
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		attrs = append(attrs, "memory_used_pct", vm.UsedPercent)
	}
	if usage, err := disk.Usage("/"); err == nil {
		attrs = append(attrs, "disk_used_pct", usage.UsedPercent)
	}
	if uptime, err := host.Uptime(); err == nil {
		attrs = append(attrs, "uptime", (time.Duration(uptime) * time.Second).String())
	}

	s.logger.Info("status summary", attrs...)
}

// publishMetrics mirrors the state into the connectivity gauges.
func (s *Scheduler) publishMetrics() {
	if s.metrics == nil {
		return
	}

	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()

	boolGauge := func(v bool) float64 {
		if v {
			return 1
		}
		return 0
	}
	s.metrics.WifiConnected.Set(boolGauge(state.WifiConnected))
	s.metrics.WifiRetryCount.Set(float64(state.WifiRetryCount))
	s.metrics.MeshActiveNodes.Set(float64(state.MeshActiveNodes))
	s.metrics.OtaAvailable.Set(boolGauge(state.OtaAvailable))
}
