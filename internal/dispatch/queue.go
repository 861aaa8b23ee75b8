// Package dispatch provides the priority delivery queue and the dispatcher
// that attempts alert delivery across transports with retry and backoff.
package dispatch

import (
	"time"

	"github.com/trailsentry/trailsentry-go/internal/alert"
)

// queueItem wraps a pending record with its eligibility time. A record
// re-entering the queue after a failed pass carries a backoff timestamp
// before which it is not eligible.
type queueItem struct {
	rec        *alert.Record
	eligibleAt time.Time
	seq        uint64
}

// Queue is a priority-ordered delivery queue. Ordering is strict priority
// first, FIFO by creation time within the same priority. Not safe for
// concurrent use; the dispatcher serializes access.
type Queue struct {
	items []*queueItem
	seq   uint64
}

// NewQueue creates an empty delivery queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push enqueues a record eligible immediately.
func (q *Queue) Push(rec *alert.Record) {
	q.PushDelayed(rec, time.Time{})
}

// PushDelayed enqueues a record that becomes eligible at the given time.
func (q *Queue) PushDelayed(rec *alert.Record, eligibleAt time.Time) {
	q.seq++
	q.items = append(q.items, &queueItem{
		rec:        rec,
		eligibleAt: eligibleAt,
		seq:        q.seq,
	})
}

// Pop removes and returns the highest-priority eligible record, nil when
// no record is eligible at now.
func (q *Queue) Pop(now time.Time) *alert.Record {
	best := -1
	for i, item := range q.items {
		if item.eligibleAt.After(now) {
			continue
		}
		if best == -1 || less(item, q.items[best]) {
			best = i
		}
	}
	if best == -1 {
		return nil
	}

	rec := q.items[best].rec
	q.items = append(q.items[:best], q.items[best+1:]...)
	return rec
}

// less orders a before b: priority rank, then creation time, then arrival.
func less(a, b *queueItem) bool {
	if ar, br := a.rec.Priority.Rank(), b.rec.Priority.Rank(); ar != br {
		return ar < br
	}
	if !a.rec.CreatedAt.Equal(b.rec.CreatedAt) {
		return a.rec.CreatedAt.Before(b.rec.CreatedAt)
	}
	return a.seq < b.seq
}

// Len returns the number of records in the queue, eligible or not.
func (q *Queue) Len() int {
	return len(q.items)
}

// DepthByPriority returns the number of queued records per priority.
func (q *Queue) DepthByPriority() map[alert.Priority]int {
	depth := make(map[alert.Priority]int, 4)
	for _, item := range q.items {
		depth[item.rec.Priority]++
	}
	return depth
}
