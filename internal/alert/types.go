// Package alert provides the alert record model, the per-species cooldown
// ledger and the priority classifier that together turn noisy detections
// into a low-false-positive alert stream.
package alert

import (
	"time"

	"github.com/google/uuid"
)

// Priority represents the urgency level of an alert
type Priority string

const (
	// PriorityCritical indicates urgent attention required
	PriorityCritical Priority = "critical"
	// PriorityHigh indicates important but not urgent
	PriorityHigh Priority = "high"
	// PriorityMedium indicates normal priority
	PriorityMedium Priority = "medium"
	// PriorityLow indicates low priority/informational
	PriorityLow Priority = "low"
)

// Rank returns the ordering rank of the priority, lower is more urgent.
// Unknown priorities sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Outcome is the result of a single transport delivery attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeTimeout Outcome = "timeout"
)

// State tracks the delivery lifecycle of an alert record.
type State string

const (
	// StatePending indicates the record is queued or being attempted
	StatePending State = "pending"
	// StateDelivered indicates at least one transport accepted the record
	StateDelivered State = "delivered"
	// StateExhausted indicates all transports failed within retry limits
	StateExhausted State = "exhausted"
)

// DeliveryAttempt records one transport send and its outcome.
type DeliveryAttempt struct {
	Transport string    `json:"transport"`
	Outcome   Outcome   `json:"outcome"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is a single alert owned by the delivery queue until it reaches a
// terminal state, after which it is handed to the resolution sink.
type Record struct {
	ID             string            `json:"id"`
	Species        string            `json:"species"`
	Confidence     float64           `json:"confidence"`
	Priority       Priority          `json:"priority"`
	Message        string            `json:"message"`
	CreatedAt      time.Time         `json:"created_at"`
	DetectionCount int               `json:"detection_count"`
	Attempts       []DeliveryAttempt `json:"attempts,omitempty"`
	State          State             `json:"state"`
}

// NewRecord creates a pending alert record with a unique ID.
func NewRecord(species string, confidence float64, priority Priority, message string, detectionCount int, createdAt time.Time) *Record {
	return &Record{
		ID:             uuid.New().String(),
		Species:        species,
		Confidence:     confidence,
		Priority:       priority,
		Message:        message,
		CreatedAt:      createdAt,
		DetectionCount: detectionCount,
		State:          StatePending,
	}
}

// RecordAttempt appends a delivery attempt.
func (r *Record) RecordAttempt(transport string, outcome Outcome, at time.Time) {
	r.Attempts = append(r.Attempts, DeliveryAttempt{
		Transport: transport,
		Outcome:   outcome,
		Timestamp: at,
	})
}

// AttemptsOn returns how many delivery attempts have been made on the
// named transport.
func (r *Record) AttemptsOn(transport string) int {
	count := 0
	for i := range r.Attempts {
		if r.Attempts[i].Transport == transport {
			count++
		}
	}
	return count
}

// Terminal reports whether the record has reached a terminal state.
func (r *Record) Terminal() bool {
	return r.State == StateDelivered || r.State == StateExhausted
}
