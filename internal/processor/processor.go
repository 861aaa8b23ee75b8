// Package processor wires the detection pipeline: every reported species
// detection flows through the cooldown ledger, and detections that fire
// are classified and handed to the dispatcher as alert records.
package processor

import (
	"log/slog"
	"time"

	"github.com/trailsentry/trailsentry-go/internal/alert"
	"github.com/trailsentry/trailsentry-go/internal/logging"
	"github.com/trailsentry/trailsentry-go/internal/observability"
)

// Enqueuer accepts alert records for delivery.
type Enqueuer interface {
	Enqueue(rec *alert.Record)
}

// Processor turns raw detections into queued alerts.
type Processor struct {
	ledger     *alert.Ledger
	classifier *alert.Classifier
	dispatcher Enqueuer
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a processor over the given ledger, classifier and
// dispatcher.
func New(ledger *alert.Ledger, classifier *alert.Classifier, dispatcher Enqueuer, metrics *observability.Metrics) *Processor {
	logger := logging.ForService("processor")
	if logger == nil {
		logger = slog.Default().With("service", "processor")
	}
	return &Processor{
		ledger:     ledger,
		classifier: classifier,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// ReportDetection feeds one detection through the ledger and, when it
// fires, enqueues a classified alert record. Returns the record when one
// was created, nil otherwise.
func (p *Processor) ReportDetection(species string, confidence float64, now time.Time) *alert.Record {
	decision, count := p.ledger.Observe(species, confidence, now)

	if p.metrics != nil {
		p.metrics.DetectionsObserved.WithLabelValues(decision.String()).Inc()
	}

	switch decision {
	case alert.DecisionIgnore:
		return nil
	case alert.DecisionCount:
		p.logger.Debug("detection counted",
			"species", species,
			"confidence", confidence,
			"consecutive", count,
		)
		return nil
	}

	priority, message := p.classifier.Classify(species, confidence, count)
	rec := alert.NewRecord(species, confidence, priority, message, count, now)

	p.logger.Info("alert fired",
		"alert_id", rec.ID,
		"species", species,
		"confidence", confidence,
		"priority", priority,
		"detection_count", count,
	)

	p.dispatcher.Enqueue(rec)
	return rec
}
