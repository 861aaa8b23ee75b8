// species_policy.go contains species policy table utilities
package conf

import (
	"strings"
	"time"
)

// Valid alert priorities, highest first.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// DefaultSpeciesPolicy is applied to species missing from the policy table.
// An unrecognized but plausible detection should never crash the pipeline.
func DefaultSpeciesPolicy() SpeciesPolicy {
	return SpeciesPolicy{
		ConfidenceThreshold:      0.7,
		AlertConfidenceThreshold: 0.7,
		MinConsecutiveDetections: 2,
		Cooldown:                 60 * time.Second,
		Priority:                 PriorityLow,
	}
}

// NormalizeSpeciesPolicyKeys returns a new map with all keys converted to lowercase.
// This ensures case-insensitive matching when looking up species policies.
// If input is nil, returns an empty map.
func NormalizeSpeciesPolicyKeys(policies map[string]SpeciesPolicy) map[string]SpeciesPolicy {
	if policies == nil {
		return make(map[string]SpeciesPolicy)
	}

	normalized := make(map[string]SpeciesPolicy, len(policies))
	for key, value := range policies {
		normalizedKey := strings.ToLower(key)
		normalized[normalizedKey] = value
	}
	return normalized
}

// ValidPriority reports whether p is one of the four recognized priorities.
func ValidPriority(p string) bool {
	switch strings.ToLower(p) {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}
