// classifier.go maps detections to alert priority and message
package alert

import (
	"fmt"
	"strings"

	"github.com/trailsentry/trailsentry-go/internal/conf"
)

// Classifier is a pure function over the static species policy table plus
// a message template per priority tier.
type Classifier struct {
	policies      map[string]conf.SpeciesPolicy
	defaultPolicy conf.SpeciesPolicy
}

// NewClassifier creates a classifier over the given policy table.
func NewClassifier(policies map[string]conf.SpeciesPolicy) *Classifier {
	return &Classifier{
		policies:      conf.NormalizeSpeciesPolicyKeys(policies),
		defaultPolicy: conf.DefaultSpeciesPolicy(),
	}
}

// Classify returns the priority and human-readable message for a firing
// detection. Unknown species map to the default low policy rather than
// failing.
func (c *Classifier) Classify(species string, confidence float64, detectionCount int) (Priority, string) {
	policy, ok := c.policies[strings.ToLower(species)]
	if !ok {
		policy = c.defaultPolicy
	}

	priority := Priority(strings.ToLower(policy.Priority))
	if priority.Rank() > PriorityLow.Rank() {
		priority = PriorityLow
	}

	return priority, c.message(priority, species, confidence, detectionCount)
}

func (c *Classifier) message(priority Priority, species string, confidence float64, detectionCount int) string {
	pct := confidence * 100

	switch priority {
	case PriorityCritical:
		return fmt.Sprintf("CRITICAL: %s detected (%.0f%% confidence, %d consecutive sightings)", species, pct, detectionCount)
	case PriorityHigh:
		return fmt.Sprintf("High priority: %s detected (%.0f%% confidence)", species, pct)
	case PriorityMedium:
		return fmt.Sprintf("%s detected (%.0f%% confidence)", species, pct)
	default:
		return fmt.Sprintf("Sighting: %s (%.0f%% confidence)", species, pct)
	}
}
