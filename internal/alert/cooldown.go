// cooldown.go per-species debounce state and transitions
package alert

import (
	"strings"
	"sync"
	"time"

	"github.com/trailsentry/trailsentry-go/internal/conf"
)

// Decision is the outcome of observing a single detection.
type Decision int

const (
	// DecisionIgnore means the detection was below the counting threshold
	DecisionIgnore Decision = iota
	// DecisionCount means the detection was counted but no alert fires yet
	DecisionCount
	// DecisionFire means an alert fires for this detection
	DecisionFire
)

// String returns a string representation of the decision
func (d Decision) String() string {
	switch d {
	case DecisionIgnore:
		return "Ignore"
	case DecisionCount:
		return "Count"
	case DecisionFire:
		return "Fire"
	default:
		return "Unknown"
	}
}

// cooldownState holds mutable per-species debounce state. Created lazily
// on first detection of a species.
type cooldownState struct {
	consecutiveCount int
	lastDetection    time.Time
	lastAlert        time.Time
	hasAlerted       bool
}

// Ledger converts a noisy per-frame classifier signal into a
// low-false-positive event stream. An animal walking through frame for
// several seconds produces one alert, not dozens.
type Ledger struct {
	policies      map[string]conf.SpeciesPolicy
	defaultPolicy conf.SpeciesPolicy
	episodeGap    time.Duration
	states        map[string]*cooldownState
	mu            sync.Mutex
}

// NewLedger creates a ledger over the given policy table. The episode gap
// window is a fixed configuration constant, not per-species.
func NewLedger(policies map[string]conf.SpeciesPolicy, episodeGap time.Duration) *Ledger {
	return &Ledger{
		policies:      conf.NormalizeSpeciesPolicyKeys(policies),
		defaultPolicy: conf.DefaultSpeciesPolicy(),
		episodeGap:    episodeGap,
		states:        make(map[string]*cooldownState),
	}
}

// Policy returns the effective policy for a species, falling back to the
// default policy for unrecognized species.
func (l *Ledger) Policy(species string) conf.SpeciesPolicy {
	if policy, ok := l.policies[strings.ToLower(species)]; ok {
		return policy
	}
	return l.defaultPolicy
}

// Observe processes one detection and returns the decision plus the
// consecutive detection count backing it. Safe to call at arbitrary
// frequency from the capture goroutine.
func (l *Ledger) Observe(species string, confidence float64, now time.Time) (Decision, int) {
	policy := l.Policy(species)

	if confidence < policy.ConfidenceThreshold {
		return DecisionIgnore, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := strings.ToLower(species)
	state, ok := l.states[key]
	if !ok {
		state = &cooldownState{}
		l.states[key] = state
	}

	// A gap above the episode window starts a new detection episode.
	if state.consecutiveCount > 0 && now.Sub(state.lastDetection) > l.episodeGap {
		state.consecutiveCount = 0
	}
	state.consecutiveCount++
	state.lastDetection = now

	count := state.consecutiveCount

	if confidence < policy.AlertConfidenceThreshold {
		return DecisionCount, count
	}
	if count < policy.MinConsecutiveDetections {
		return DecisionCount, count
	}
	if state.hasAlerted && now.Sub(state.lastAlert) < policy.Cooldown {
		// Within the cooldown window the species is suppressed.
		return DecisionCount, count
	}

	state.lastAlert = now
	state.hasAlerted = true
	state.consecutiveCount = 0
	return DecisionFire, count
}

// Suppressed reports whether the species is currently inside its cooldown
// window.
func (l *Ledger) Suppressed(species string, now time.Time) bool {
	policy := l.Policy(species)

	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.states[strings.ToLower(species)]
	if !ok || !state.hasAlerted {
		return false
	}
	return now.Sub(state.lastAlert) < policy.Cooldown
}

// ConsecutiveCount returns the current consecutive detection count for a
// species, zero if the species has never been observed.
func (l *Ledger) ConsecutiveCount(species string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if state, ok := l.states[strings.ToLower(species)]; ok {
		return state.consecutiveCount
	}
	return 0
}

// Reset clears all debounce state for a species.
func (l *Ledger) Reset(species string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.states, strings.ToLower(species))
}
