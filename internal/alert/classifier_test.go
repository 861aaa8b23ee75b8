package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trailsentry/trailsentry-go/internal/conf"
)

func TestClassifier_KnownSpecies(t *testing.T) {
	t.Parallel()

	classifier := NewClassifier(map[string]conf.SpeciesPolicy{
		"grey wolf": {
			ConfidenceThreshold:      0.7,
			AlertConfidenceThreshold: 0.8,
			MinConsecutiveDetections: 1,
			Cooldown:                 time.Minute,
			Priority:                 conf.PriorityCritical,
		},
		"red fox": {
			ConfidenceThreshold:      0.6,
			AlertConfidenceThreshold: 0.7,
			MinConsecutiveDetections: 1,
			Cooldown:                 time.Minute,
			Priority:                 conf.PriorityMedium,
		},
	})

	priority, message := classifier.Classify("Grey Wolf", 0.92, 3)
	assert.Equal(t, PriorityCritical, priority)
	assert.Contains(t, message, "Grey Wolf")
	assert.Contains(t, message, "92%")
	assert.Contains(t, message, "3 consecutive")

	priority, message = classifier.Classify("red fox", 0.75, 1)
	assert.Equal(t, PriorityMedium, priority)
	assert.Contains(t, message, "red fox")
	assert.Contains(t, message, "75%")
}

func TestClassifier_UnknownSpeciesDefaultsToLow(t *testing.T) {
	t.Parallel()

	classifier := NewClassifier(nil)

	priority, message := classifier.Classify("mystery beast", 0.71, 2)
	assert.Equal(t, PriorityLow, priority)
	assert.Contains(t, message, "mystery beast")
	assert.Contains(t, message, "71%")
}

func TestClassifier_MalformedPriorityFallsBack(t *testing.T) {
	t.Parallel()

	classifier := NewClassifier(map[string]conf.SpeciesPolicy{
		"badger": {Priority: "whatever"},
	})

	priority, _ := classifier.Classify("badger", 0.8, 1)
	assert.Equal(t, PriorityLow, priority)
}

func TestPriorityRank(t *testing.T) {
	t.Parallel()

	assert.Less(t, PriorityCritical.Rank(), PriorityHigh.Rank())
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Greater(t, Priority("bogus").Rank(), PriorityLow.Rank())
}

func TestRecord_Attempts(t *testing.T) {
	t.Parallel()

	now := time.Now()
	rec := NewRecord("lynx", 0.9, PriorityCritical, "CRITICAL: lynx", 2, now)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, StatePending, rec.State)
	assert.False(t, rec.Terminal())

	rec.RecordAttempt("mesh", OutcomeFailure, now)
	rec.RecordAttempt("mesh", OutcomeTimeout, now.Add(time.Second))
	rec.RecordAttempt("cloud", OutcomeSuccess, now.Add(2*time.Second))

	assert.Equal(t, 2, rec.AttemptsOn("mesh"))
	assert.Equal(t, 1, rec.AttemptsOn("cloud"))
	assert.Equal(t, 0, rec.AttemptsOn("satellite"))

	rec.State = StateDelivered
	assert.True(t, rec.Terminal())
}
