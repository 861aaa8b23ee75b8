// Package archive persists resolved alert records to an on-device SQLite
// database so operators can audit what the node alerted on and how
// delivery went, across reboots.
package archive

import "time"

// Entry is the persisted form of a resolved alert record.
type Entry struct {
	ID             uint      `gorm:"primaryKey"`
	AlertID        string    `gorm:"uniqueIndex;size:36"`
	Species        string    `gorm:"index"`
	Confidence     float64
	Priority       string `gorm:"index"`
	Message        string
	State          string `gorm:"index"`
	DetectionCount int
	AttemptCount   int
	// Transport that accepted the record, empty when exhausted.
	DeliveredVia string
	CreatedAt    time.Time `gorm:"index"`
	ResolvedAt   time.Time
}
