// dispatcher.go transport attempt loop with retry, backoff and escalation
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/trailsentry/trailsentry-go/internal/alert"
	"github.com/trailsentry/trailsentry-go/internal/logging"
	"github.com/trailsentry/trailsentry-go/internal/observability"
	"github.com/trailsentry/trailsentry-go/internal/transport"
)

// AvailabilityView reports current transport availability. The
// connectivity scheduler owns the underlying state; the dispatcher only
// reads it.
type AvailabilityView interface {
	Available(transportName string) bool
}

// Sink receives every record exactly once when it reaches a terminal
// state, for archival, operator notification or logging.
type Sink interface {
	OnAlertResolved(rec *alert.Record)
}

// Config holds dispatcher tuning. All values are externally supplied
// configuration, immutable for a given run.
type Config struct {
	// MaxRetriesPerTransport is how many attempts each transport gets
	// before it is considered exhausted for a record.
	MaxRetriesPerTransport int
	// BaseDelay is the base of the exponential requeue backoff.
	BaseDelay time.Duration
	// MaxDelay caps the requeue backoff.
	MaxDelay time.Duration
	// AttemptTimeout bounds a single transport send.
	AttemptTimeout time.Duration
}

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetriesPerTransport: 3,
		BaseDelay:              5 * time.Second,
		MaxDelay:               5 * time.Minute,
		AttemptTimeout:         10 * time.Second,
	}
}

// Dispatcher drains the delivery queue on each tick, attempting transports
// in rank order. The local annunciator sits at the bottom of the rank and
// is reserved as the last resort: Critical records fan out to it after any
// remote success, and Critical/High records are forced through it on
// exhaustion so a human near the device is never silently unaware.
type Dispatcher struct {
	mu         sync.Mutex
	queue      *Queue
	transports []transport.Transport // rank order, local last
	local      transport.Transport
	view       AvailabilityView
	config     Config
	sinks      []Sink
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a dispatcher over the given transports. Transports must be
// passed in rank order; a transport named "local" is pulled out of the
// remote rotation and used as the annunciator of last resort.
func New(config Config, transports []transport.Transport, view AvailabilityView, metrics *observability.Metrics, sinks ...Sink) *Dispatcher {
	logger := logging.ForService("dispatch")
	if logger == nil {
		logger = slog.Default().With("service", "dispatch")
	}

	d := &Dispatcher{
		queue:   NewQueue(),
		view:    view,
		config:  config,
		sinks:   sinks,
		logger:  logger,
		metrics: metrics,
	}
	for _, tr := range transports {
		if tr.Name() == transport.NameLocal {
			d.local = tr
			continue
		}
		d.transports = append(d.transports, tr)
	}
	return d
}

// Enqueue adds a pending record to the delivery queue. Safe to call from
// outside the tick thread.
func (d *Dispatcher) Enqueue(rec *alert.Record) {
	d.mu.Lock()
	d.queue.Push(rec)
	depth := d.queue.Len()
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.AlertsEnqueued.WithLabelValues(string(rec.Priority)).Inc()
		d.metrics.QueueDepth.Set(float64(depth))
	}

	d.logger.Debug("alert enqueued",
		"alert_id", rec.ID,
		"species", rec.Species,
		"priority", rec.Priority,
		"queue_depth", depth,
	)
}

// QueueDepth returns the current number of pending records.
func (d *Dispatcher) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.Len()
}

// Tick drains at most one record per available transport slot. Invoked by
// the cooperative tick driver; never blocks beyond one bounded transport
// call at a time.
func (d *Dispatcher) Tick(now time.Time) {
	slots := d.availableSlots()

	for range slots {
		d.mu.Lock()
		rec := d.queue.Pop(now)
		d.mu.Unlock()
		if rec == nil {
			break
		}
		d.process(rec, now)
	}

	if d.metrics != nil {
		d.metrics.QueueDepth.Set(float64(d.QueueDepth()))
	}
}

// availableSlots bounds the number of records processed per tick to the
// number of transports currently reported available, so worst-case tick
// latency stays proportional to link capacity.
func (d *Dispatcher) availableSlots() int {
	slots := 0
	for _, tr := range d.transports {
		if d.view.Available(tr.Name()) {
			slots++
		}
	}
	if slots == 0 {
		// Local is always available, keep the queue moving so records
		// can reach exhaustion and the forced local fallback.
		slots = 1
	}
	return slots
}

// process runs one attempt pass for a record: transports in rank order,
// each at most once per pass, moving to the next on Failure or Timeout
// with no delay.
func (d *Dispatcher) process(rec *alert.Record, now time.Time) {
	attempted := make(map[string]bool, len(d.transports))

	for {
		tr := d.nextTransport(rec, attempted)
		if tr == nil {
			break
		}
		attempted[tr.Name()] = true

		outcome := d.send(tr, rec, now)
		if outcome == alert.OutcomeSuccess {
			rec.State = alert.StateDelivered
			// Critical alerts always produce a local signal in
			// addition to remote delivery.
			if rec.Priority == alert.PriorityCritical {
				d.annunciate(rec, now)
			}
			d.resolve(rec)
			return
		}
	}

	if d.exhausted(rec) {
		rec.State = alert.StateExhausted
		// Forced local delivery so Critical/High events are never
		// silently dropped even under total network failure.
		if rec.Priority == alert.PriorityCritical || rec.Priority == alert.PriorityHigh {
			d.annunciate(rec, now)
		}
		d.logger.Warn("alert exhausted all transports",
			"alert_id", rec.ID,
			"species", rec.Species,
			"priority", rec.Priority,
			"attempts", len(rec.Attempts),
		)
		d.resolve(rec)
		return
	}

	delay := d.backoff(len(rec.Attempts))
	d.mu.Lock()
	d.queue.PushDelayed(rec, now.Add(delay))
	d.mu.Unlock()

	d.logger.Debug("alert requeued with backoff",
		"alert_id", rec.ID,
		"attempts", len(rec.Attempts),
		"delay", delay,
	)
}

// nextTransport returns the highest-ranked transport that is available,
// not yet attempted in this pass, and not exhausted for the record.
func (d *Dispatcher) nextTransport(rec *alert.Record, attempted map[string]bool) transport.Transport {
	for _, tr := range d.transports {
		name := tr.Name()
		if attempted[name] {
			continue
		}
		if rec.AttemptsOn(name) >= d.config.MaxRetriesPerTransport {
			continue
		}
		if !d.view.Available(name) {
			continue
		}
		return tr
	}
	return nil
}

// send runs one bounded transport attempt and records it.
func (d *Dispatcher) send(tr transport.Transport, rec *alert.Record, now time.Time) alert.Outcome {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.AttemptTimeout)
	defer cancel()

	outcome := tr.Send(ctx, rec)
	rec.RecordAttempt(tr.Name(), outcome, now)

	if d.metrics != nil {
		d.metrics.DeliveryAttempts.WithLabelValues(tr.Name(), string(outcome)).Inc()
	}

	d.logger.Debug("delivery attempt",
		"alert_id", rec.ID,
		"transport", tr.Name(),
		"outcome", outcome,
	)
	return outcome
}

// annunciate forces the record through the local annunciator.
func (d *Dispatcher) annunciate(rec *alert.Record, now time.Time) {
	if d.local == nil {
		return
	}
	d.send(d.local, rec, now)
}

// exhausted reports whether every remote transport has used up its
// attempts for the record.
func (d *Dispatcher) exhausted(rec *alert.Record) bool {
	for _, tr := range d.transports {
		if rec.AttemptsOn(tr.Name()) < d.config.MaxRetriesPerTransport {
			return false
		}
	}
	return len(d.transports) > 0
}

// backoff returns the requeue delay after the given total attempt count.
func (d *Dispatcher) backoff(attempts int) time.Duration {
	// Shift saturates well before the cap can be exceeded.
	if attempts > 30 {
		attempts = 30
	}
	delay := d.config.BaseDelay << attempts
	if delay > d.config.MaxDelay || delay <= 0 {
		delay = d.config.MaxDelay
	}
	return delay
}

// resolve hands the record to every sink exactly once.
func (d *Dispatcher) resolve(rec *alert.Record) {
	if d.metrics != nil {
		d.metrics.AlertsResolved.WithLabelValues(string(rec.State)).Inc()
	}
	for _, sink := range d.sinks {
		sink.OnAlertResolved(rec)
	}
}
