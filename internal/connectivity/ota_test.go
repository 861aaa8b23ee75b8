package connectivity

import (
	"context"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifestURL = "https://updates.example.com/trailsentry/manifest.json"

func TestOtaChecker_NewerVersionAvailable(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder("GET", testManifestURL,
		httpmock.NewStringResponder(200, `{"version":"1.4.0"}`))

	checker := NewOtaChecker(testManifestURL, "1.3.2", 5*time.Second)
	available, err := checker.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, available)
}

func TestOtaChecker_SameVersionNotAvailable(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder("GET", testManifestURL,
		httpmock.NewStringResponder(200, `{"version":"1.3.2"}`))

	checker := NewOtaChecker(testManifestURL, "1.3.2", 5*time.Second)
	available, err := checker.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, available)
}

func TestOtaChecker_ServerError(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder("GET", testManifestURL,
		httpmock.NewStringResponder(503, "maintenance"))

	checker := NewOtaChecker(testManifestURL, "1.3.2", 5*time.Second)
	available, err := checker.Check(context.Background())
	require.Error(t, err)
	assert.False(t, available)
}

func TestOtaChecker_MalformedManifest(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder("GET", testManifestURL,
		httpmock.NewStringResponder(200, "not json"))

	checker := NewOtaChecker(testManifestURL, "1.3.2", 5*time.Second)
	_, err := checker.Check(context.Background())
	assert.Error(t, err)
}

func TestOtaChecker_NoURLConfigured(t *testing.T) {
	t.Parallel()

	checker := NewOtaChecker("", "1.3.2", 5*time.Second)
	available, err := checker.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, available)
}
