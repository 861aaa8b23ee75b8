// Package node assembles the full field node: transports, dispatcher,
// connectivity scheduler, detection pipeline and the observability
// surfaces, and drives them from a single cooperative tick loop.
package node

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trailsentry/trailsentry-go/internal/alert"
	"github.com/trailsentry/trailsentry-go/internal/archive"
	"github.com/trailsentry/trailsentry-go/internal/conf"
	"github.com/trailsentry/trailsentry-go/internal/connectivity"
	"github.com/trailsentry/trailsentry-go/internal/dispatch"
	"github.com/trailsentry/trailsentry-go/internal/httpapi"
	"github.com/trailsentry/trailsentry-go/internal/logging"
	"github.com/trailsentry/trailsentry-go/internal/notify"
	"github.com/trailsentry/trailsentry-go/internal/observability"
	"github.com/trailsentry/trailsentry-go/internal/processor"
	"github.com/trailsentry/trailsentry-go/internal/transport"
)

// Run starts the node and blocks until SIGINT or SIGTERM.
func Run(settings *conf.Settings) error {
	logging.Init()
	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
		logging.SetLevel(level)
	}
	if settings.Main.Log.Enabled {
		closeLog, err := logging.SetFileOutput(settings.Main.Log.Path, level)
		if err != nil {
			return fmt.Errorf("failed to set up file logging: %w", err)
		}
		defer func() { _ = closeLog() }()
	}

	logging.Info("starting trailsentry node",
		"name", settings.Main.Name,
		"version", settings.Version,
	)

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	transports, mesh, satellite := buildTransports(&settings.Transports, settings.Main.Name)

	if mesh != nil {
		connectCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := mesh.Connect(connectCtx); err != nil {
			logging.Warn("mesh gateway not reachable at startup, will retry", "error", err)
		}
		cancel()
		defer mesh.Disconnect()
	}

	// Terminal sinks: archive first so the audit row exists before the
	// operator push references it.
	var sinks []dispatch.Sink
	if settings.Archive.Enabled {
		store, err := archive.Open(settings.Archive.Path)
		if err != nil {
			return fmt.Errorf("failed to open alert archive: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}
	if settings.Notify.Enabled {
		notifier, err := notify.New(settings.Notify.URLs, alert.Priority(settings.Notify.MinPriority), 15*time.Second)
		if err != nil {
			return fmt.Errorf("failed to initialize notifier: %w", err)
		}
		sinks = append(sinks, notifier)
	}

	dispatcherConfig := dispatch.Config{
		MaxRetriesPerTransport: settings.Delivery.MaxRetriesPerTransport,
		BaseDelay:              settings.Delivery.BaseDelay,
		MaxDelay:               settings.Delivery.MaxDelay,
		AttemptTimeout:         settings.Delivery.AttemptTimeout,
	}

	wifi := connectivity.NewCommandWifi(settings.Connectivity.WifiInterface, settings.Connectivity.WifiConnectCommand)
	updates := connectivity.NewOtaChecker(settings.Connectivity.OtaManifestURL, settings.Version, 15*time.Second)

	// Dispatcher and scheduler reference each other: the dispatcher
	// reads availability, the scheduler's status summary reads queue
	// depth. The scheduler side is wired after construction.
	var meshHealth connectivity.MeshHealth
	if mesh != nil {
		meshHealth = mesh
	}
	var satelliteProbe connectivity.SatelliteProbe
	if satellite != nil {
		satelliteProbe = satellite
	}

	var dispatcher *dispatch.Dispatcher
	scheduler := connectivity.NewScheduler(settings.Connectivity, wifi, meshHealth, satelliteProbe, updates, queueDepthFunc(func() int {
		if dispatcher == nil {
			return 0
		}
		return dispatcher.QueueDepth()
	}), metrics)
	dispatcher = dispatch.New(dispatcherConfig, transports, scheduler, metrics, sinks...)

	pipeline := processor.New(
		alert.NewLedger(settings.Detection.Species, settings.Detection.EpisodeGap),
		alert.NewClassifier(settings.Detection.Species),
		dispatcher,
		metrics,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if settings.Metrics.Enabled {
		endpoint := observability.NewEndpoint(settings.Metrics.Listen, metrics)
		endpoint.Start()
		defer shutdownQuietly(endpoint.Shutdown)
	}

	var apiAlerts httpapi.AlertSource
	if len(sinks) > 0 {
		if store, ok := sinks[0].(*archive.Store); ok {
			apiAlerts = store
		}
	}
	if settings.Webserver.Enabled {
		api := httpapi.New(settings.Webserver.Listen, settings.Version, scheduler, dispatcher, apiAlerts, pipeline)
		api.Start()
		defer shutdownQuietly(api.Shutdown)
	}

	runTickLoop(ctx, settings.Delivery.TickInterval, scheduler, dispatcher)

	logging.Info("trailsentry node stopped")
	return nil
}

// buildTransports assembles the delivery rotation in rank order, local
// last. Transports the operator disabled stay out entirely so the
// dispatcher never spends attempts on them. The mesh and satellite
// drivers are returned separately for the connectivity scheduler; they
// are nil when disabled.
func buildTransports(settings *conf.TransportSettings, nodeName string) ([]transport.Transport, *transport.Mesh, *transport.Satellite) {
	var transports []transport.Transport
	var mesh *transport.Mesh
	var satellite *transport.Satellite

	if settings.Mesh.Enabled {
		mesh = transport.NewMesh(&settings.Mesh, nodeName)
		transports = append(transports, mesh)
	}
	if settings.Cloud.Enabled {
		transports = append(transports, transport.NewCloud(&settings.Cloud))
	}
	if settings.Satellite.Enabled {
		satellite = transport.NewSatellite(&settings.Satellite)
		transports = append(transports, satellite)
	}
	transports = append(transports, transport.NewLocal(&settings.Local))

	return transports, mesh, satellite
}

// runTickLoop drives the scheduler and dispatcher at the configured
// cadence until the context is cancelled. An immediate first tick brings
// connectivity up without waiting a full interval.
func runTickLoop(ctx context.Context, interval time.Duration, scheduler *connectivity.Scheduler, dispatcher *dispatch.Dispatcher) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tick := func(now time.Time) {
		scheduler.Tick(ctx, now)
		dispatcher.Tick(now)
	}

	tick(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			tick(now)
		}
	}
}

// queueDepthFunc adapts a closure to the scheduler's QueueDepther.
type queueDepthFunc func() int

func (f queueDepthFunc) QueueDepth() int { return f() }

func shutdownQuietly(shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
	}
}
