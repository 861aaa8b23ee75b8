package transport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailsentry/trailsentry-go/internal/alert"
	"github.com/trailsentry/trailsentry-go/internal/conf"
)

func TestLocal_Send_Device(t *testing.T) {
	t.Parallel()

	device := filepath.Join(t.TempDir(), "annunciator")
	require.NoError(t, os.WriteFile(device, nil, 0o644))

	local := NewLocal(&conf.LocalSettings{Device: device})
	assert.True(t, local.IsAvailable())

	outcome := local.Send(t.Context(), testRecord())
	require.Equal(t, alert.OutcomeSuccess, outcome)

	content, err := os.ReadFile(device)
	require.NoError(t, err)
	assert.Contains(t, string(content), "CRITICAL|lynx|")
}

func TestLocal_Send_NoDeviceLogsOnly(t *testing.T) {
	t.Parallel()

	local := NewLocal(&conf.LocalSettings{})
	assert.Equal(t, alert.OutcomeSuccess, local.Send(t.Context(), testRecord()),
		"without a device the annunciator degrades to the log and still succeeds")
}

func TestLocal_Send_BadDevice(t *testing.T) {
	t.Parallel()

	local := NewLocal(&conf.LocalSettings{Device: filepath.Join(t.TempDir(), "missing", "dev")})
	assert.Equal(t, alert.OutcomeFailure, local.Send(t.Context(), testRecord()))
}
