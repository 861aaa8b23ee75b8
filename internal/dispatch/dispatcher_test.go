package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailsentry/trailsentry-go/internal/alert"
	"github.com/trailsentry/trailsentry-go/internal/transport"
)

// stubTransport returns scripted outcomes in order, repeating the last one
// once the script runs out.
type stubTransport struct {
	name     string
	outcomes []alert.Outcome
	calls    int
}

func (s *stubTransport) Name() string { return s.name }

func (s *stubTransport) Send(_ context.Context, _ *alert.Record) alert.Outcome {
	idx := s.calls
	s.calls++
	if idx >= len(s.outcomes) {
		idx = len(s.outcomes) - 1
	}
	if idx < 0 {
		return alert.OutcomeFailure
	}
	return s.outcomes[idx]
}

func (s *stubTransport) IsAvailable() bool { return true }

// stubView reports availability from a fixed map; missing names are
// unavailable.
type stubView map[string]bool

func (v stubView) Available(name string) bool { return v[name] }

// collectSink records every resolved alert it receives.
type collectSink struct {
	resolved []*alert.Record
}

func (s *collectSink) OnAlertResolved(rec *alert.Record) {
	s.resolved = append(s.resolved, rec)
}

func testConfig() Config {
	return Config{
		MaxRetriesPerTransport: 3,
		BaseDelay:              time.Second,
		MaxDelay:               time.Minute,
		AttemptTimeout:         time.Second,
	}
}

func TestDispatcher_DeliversOnFirstTransport(t *testing.T) {
	t.Parallel()

	mesh := &stubTransport{name: transport.NameMesh, outcomes: []alert.Outcome{alert.OutcomeSuccess}}
	cloud := &stubTransport{name: transport.NameCloud}
	local := &stubTransport{name: transport.NameLocal, outcomes: []alert.Outcome{alert.OutcomeSuccess}}
	sink := &collectSink{}

	view := stubView{transport.NameMesh: true, transport.NameCloud: true}
	d := New(testConfig(), []transport.Transport{mesh, cloud, local}, view, nil, sink)

	now := time.Now()
	rec := record(alert.PriorityMedium, now)
	d.Enqueue(rec)
	d.Tick(now)

	assert.Equal(t, alert.StateDelivered, rec.State)
	assert.Equal(t, 1, mesh.calls)
	assert.Equal(t, 0, cloud.calls, "lower-ranked transport must not be tried after success")
	assert.Equal(t, 0, local.calls, "non-critical success must not touch the annunciator")
	require.Len(t, sink.resolved, 1)
	assert.Same(t, rec, sink.resolved[0])
	assert.Equal(t, 0, d.QueueDepth())
}

func TestDispatcher_SatelliteRetryAfterBackoff(t *testing.T) {
	t.Parallel()

	// Mesh and cloud links are down; the satellite modem refuses the
	// first pass and accepts the retry.
	sat := &stubTransport{name: transport.NameSatellite, outcomes: []alert.Outcome{alert.OutcomeFailure, alert.OutcomeSuccess}}
	local := &stubTransport{name: transport.NameLocal, outcomes: []alert.Outcome{alert.OutcomeSuccess}}
	sink := &collectSink{}

	view := stubView{transport.NameSatellite: true}
	d := New(testConfig(), []transport.Transport{
		&stubTransport{name: transport.NameMesh},
		&stubTransport{name: transport.NameCloud},
		sat,
		local,
	}, view, nil, sink)

	now := time.Now()
	rec := record(alert.PriorityMedium, now)
	d.Enqueue(rec)

	d.Tick(now)
	assert.Equal(t, alert.StatePending, rec.State)
	assert.Equal(t, 1, sat.calls)
	assert.Equal(t, 1, d.QueueDepth(), "failed record must be requeued, not dropped")

	// Still inside the backoff window: nothing pops.
	d.Tick(now.Add(time.Second))
	assert.Equal(t, 1, sat.calls)

	// After backoff the retry goes out and succeeds.
	d.Tick(now.Add(5 * time.Second))
	assert.Equal(t, alert.StateDelivered, rec.State)
	assert.Equal(t, 2, sat.calls)
	assert.Equal(t, 0, local.calls, "no local attempt for a medium-priority record")
	require.Len(t, sink.resolved, 1)
}

func TestDispatcher_EachTransportOncePerPass(t *testing.T) {
	t.Parallel()

	mesh := &stubTransport{name: transport.NameMesh, outcomes: []alert.Outcome{alert.OutcomeFailure}}
	cloud := &stubTransport{name: transport.NameCloud, outcomes: []alert.Outcome{alert.OutcomeTimeout}}
	sat := &stubTransport{name: transport.NameSatellite, outcomes: []alert.Outcome{alert.OutcomeFailure}}

	view := stubView{transport.NameMesh: true, transport.NameCloud: true, transport.NameSatellite: true}
	d := New(testConfig(), []transport.Transport{mesh, cloud, sat}, view, nil)

	now := time.Now()
	rec := record(alert.PriorityLow, now)
	d.Enqueue(rec)
	d.Tick(now)

	assert.Equal(t, 1, mesh.calls)
	assert.Equal(t, 1, cloud.calls)
	assert.Equal(t, 1, sat.calls)
	assert.Equal(t, alert.StatePending, rec.State)
	assert.Equal(t, 1, d.QueueDepth())
	assert.Len(t, rec.Attempts, 3)
}

func TestDispatcher_ExhaustionForcesLocalForHighPriority(t *testing.T) {
	t.Parallel()

	mesh := &stubTransport{name: transport.NameMesh, outcomes: []alert.Outcome{alert.OutcomeFailure}}
	cloud := &stubTransport{name: transport.NameCloud, outcomes: []alert.Outcome{alert.OutcomeFailure}}
	sat := &stubTransport{name: transport.NameSatellite, outcomes: []alert.Outcome{alert.OutcomeTimeout}}
	local := &stubTransport{name: transport.NameLocal, outcomes: []alert.Outcome{alert.OutcomeSuccess}}
	sink := &collectSink{}

	view := stubView{transport.NameMesh: true, transport.NameCloud: true, transport.NameSatellite: true}
	d := New(testConfig(), []transport.Transport{mesh, cloud, sat, local}, view, nil, sink)

	now := time.Now()
	rec := record(alert.PriorityHigh, now)
	d.Enqueue(rec)

	// Three passes, spaced past any backoff, exhaust all three remotes.
	d.Tick(now)
	d.Tick(now.Add(time.Minute))
	d.Tick(now.Add(3 * time.Minute))

	assert.Equal(t, alert.StateExhausted, rec.State)
	assert.Equal(t, 3, mesh.calls)
	assert.Equal(t, 3, cloud.calls)
	assert.Equal(t, 3, sat.calls)
	assert.Equal(t, 1, local.calls, "high-priority exhaustion must hit the annunciator")
	require.Len(t, sink.resolved, 1)
	assert.Equal(t, 0, d.QueueDepth())
}

func TestDispatcher_ExhaustionSkipsLocalForLowPriority(t *testing.T) {
	t.Parallel()

	mesh := &stubTransport{name: transport.NameMesh, outcomes: []alert.Outcome{alert.OutcomeFailure}}
	local := &stubTransport{name: transport.NameLocal, outcomes: []alert.Outcome{alert.OutcomeSuccess}}
	sink := &collectSink{}

	view := stubView{transport.NameMesh: true}
	d := New(testConfig(), []transport.Transport{mesh, local}, view, nil, sink)

	now := time.Now()
	rec := record(alert.PriorityLow, now)
	d.Enqueue(rec)

	d.Tick(now)
	d.Tick(now.Add(time.Minute))
	d.Tick(now.Add(3 * time.Minute))

	assert.Equal(t, alert.StateExhausted, rec.State)
	assert.Equal(t, 3, mesh.calls)
	assert.Equal(t, 0, local.calls)
	require.Len(t, sink.resolved, 1)
}

func TestDispatcher_CriticalSuccessFansOutToLocal(t *testing.T) {
	t.Parallel()

	mesh := &stubTransport{name: transport.NameMesh, outcomes: []alert.Outcome{alert.OutcomeSuccess}}
	local := &stubTransport{name: transport.NameLocal, outcomes: []alert.Outcome{alert.OutcomeSuccess}}

	view := stubView{transport.NameMesh: true}
	d := New(testConfig(), []transport.Transport{mesh, local}, view, nil)

	now := time.Now()
	rec := record(alert.PriorityCritical, now)
	d.Enqueue(rec)
	d.Tick(now)

	assert.Equal(t, alert.StateDelivered, rec.State)
	assert.Equal(t, 1, mesh.calls)
	assert.Equal(t, 1, local.calls, "critical delivery always produces a local signal")
}

func TestDispatcher_UnavailableTransportSkipped(t *testing.T) {
	t.Parallel()

	mesh := &stubTransport{name: transport.NameMesh, outcomes: []alert.Outcome{alert.OutcomeSuccess}}
	cloud := &stubTransport{name: transport.NameCloud, outcomes: []alert.Outcome{alert.OutcomeSuccess}}

	view := stubView{transport.NameCloud: true}
	d := New(testConfig(), []transport.Transport{mesh, cloud}, view, nil)

	now := time.Now()
	rec := record(alert.PriorityMedium, now)
	d.Enqueue(rec)
	d.Tick(now)

	assert.Equal(t, 0, mesh.calls)
	assert.Equal(t, 1, cloud.calls)
	assert.Equal(t, alert.StateDelivered, rec.State)
}

func TestDispatcher_NothingAvailableKeepsRecordQueued(t *testing.T) {
	t.Parallel()

	mesh := &stubTransport{name: transport.NameMesh}
	cloud := &stubTransport{name: transport.NameCloud}

	d := New(testConfig(), []transport.Transport{mesh, cloud}, stubView{}, nil)

	now := time.Now()
	rec := record(alert.PriorityHigh, now)
	d.Enqueue(rec)
	d.Tick(now)

	assert.Equal(t, 0, mesh.calls)
	assert.Equal(t, 0, cloud.calls)
	assert.Equal(t, alert.StatePending, rec.State)
	assert.Empty(t, rec.Attempts)
	assert.Equal(t, 1, d.QueueDepth(), "record waits for a link, never dropped")
}

func TestDispatcher_SlotsBoundRecordsPerTick(t *testing.T) {
	t.Parallel()

	mesh := &stubTransport{name: transport.NameMesh, outcomes: []alert.Outcome{alert.OutcomeSuccess}}

	view := stubView{transport.NameMesh: true}
	d := New(testConfig(), []transport.Transport{mesh}, view, nil)

	now := time.Now()
	d.Enqueue(record(alert.PriorityLow, now))
	d.Enqueue(record(alert.PriorityLow, now))
	d.Enqueue(record(alert.PriorityLow, now))
	d.Tick(now)

	// One available transport, one slot, one record processed.
	assert.Equal(t, 1, mesh.calls)
	assert.Equal(t, 2, d.QueueDepth())
}

func TestDispatcher_Backoff(t *testing.T) {
	t.Parallel()

	d := New(testConfig(), nil, stubView{}, nil)

	assert.Equal(t, 2*time.Second, d.backoff(1))
	assert.Equal(t, 8*time.Second, d.backoff(3))
	assert.Equal(t, time.Minute, d.backoff(10), "backoff is capped at MaxDelay")
	assert.Equal(t, time.Minute, d.backoff(500), "huge attempt counts never overflow")
}
