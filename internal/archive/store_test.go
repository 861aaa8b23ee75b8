package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailsentry/trailsentry-go/internal/alert"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func resolvedRecord(species string, priority alert.Priority, state alert.State, createdAt time.Time) *alert.Record {
	rec := alert.NewRecord(species, 0.9, priority, "msg", 2, createdAt)
	rec.RecordAttempt("mesh", alert.OutcomeFailure, createdAt.Add(time.Second))
	if state == alert.StateDelivered {
		rec.RecordAttempt("cloud", alert.OutcomeSuccess, createdAt.Add(2*time.Second))
	}
	rec.State = state
	return rec
}

func TestStore_ArchivesResolvedAlert(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

	rec := resolvedRecord("wolverine", alert.PriorityHigh, alert.StateDelivered, now)
	store.OnAlertResolved(rec)

	entries, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, rec.ID, entry.AlertID)
	assert.Equal(t, "wolverine", entry.Species)
	assert.Equal(t, "high", entry.Priority)
	assert.Equal(t, "delivered", entry.State)
	assert.Equal(t, 2, entry.AttemptCount)
	assert.Equal(t, "cloud", entry.DeliveredVia)
}

func TestStore_RecentOrdersNewestFirst(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

	store.OnAlertResolved(resolvedRecord("lynx", alert.PriorityLow, alert.StateDelivered, now))
	store.OnAlertResolved(resolvedRecord("moose", alert.PriorityMedium, alert.StateDelivered, now.Add(time.Minute)))
	store.OnAlertResolved(resolvedRecord("wolf", alert.PriorityHigh, alert.StateDelivered, now.Add(2*time.Minute)))

	entries, err := store.Recent(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "wolf", entries[0].Species)
	assert.Equal(t, "moose", entries[1].Species)
}

func TestStore_ExhaustedRecordHasNoDeliveryTransport(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

	store.OnAlertResolved(resolvedRecord("bear", alert.PriorityCritical, alert.StateExhausted, now))

	entries, err := store.Recent(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "exhausted", entries[0].State)
	assert.Empty(t, entries[0].DeliveredVia)
}

func TestStore_CountSince(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

	store.OnAlertResolved(resolvedRecord("lynx", alert.PriorityLow, alert.StateDelivered, now))
	store.OnAlertResolved(resolvedRecord("wolf", alert.PriorityHigh, alert.StateDelivered, now.Add(time.Minute)))
	store.OnAlertResolved(resolvedRecord("bear", alert.PriorityCritical, alert.StateExhausted, now.Add(2*time.Minute)))

	counts, err := store.CountSince(now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["delivered"])
	assert.Equal(t, int64(1), counts["exhausted"])

	counts, err = store.CountSince(now.Add(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts["delivered"])
	assert.Equal(t, int64(1), counts["exhausted"])
}

func TestStore_RecentCacheInvalidatedOnWrite(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

	store.OnAlertResolved(resolvedRecord("lynx", alert.PriorityLow, alert.StateDelivered, now))
	entries, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	store.OnAlertResolved(resolvedRecord("wolf", alert.PriorityHigh, alert.StateDelivered, now.Add(time.Minute)))
	entries, err = store.Recent(10)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "a new resolution must show up despite the read cache")
}
