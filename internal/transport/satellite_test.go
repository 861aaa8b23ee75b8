package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trailsentry/trailsentry-go/internal/alert"
	"github.com/trailsentry/trailsentry-go/internal/conf"
)

func TestSatellite_Send_Success(t *testing.T) {
	t.Parallel()

	sat := NewSatellite(&conf.SatelliteSettings{
		Enabled: true,
		Command: "sh",
		Args:    []string{"-c", "cat >/dev/null"},
		Timeout: 5 * time.Second,
	})

	outcome := sat.Send(t.Context(), testRecord())
	assert.Equal(t, alert.OutcomeSuccess, outcome)
}

func TestSatellite_Send_TransientFailure(t *testing.T) {
	t.Parallel()

	sat := NewSatellite(&conf.SatelliteSettings{
		Enabled: true,
		Command: "sh",
		Args:    []string{"-c", "exit 1"},
		Timeout: 5 * time.Second,
	})

	outcome := sat.Send(t.Context(), testRecord())
	assert.Equal(t, alert.OutcomeFailure, outcome)
}

func TestSatellite_Send_PermanentRefusal(t *testing.T) {
	t.Parallel()

	sat := NewSatellite(&conf.SatelliteSettings{
		Enabled: true,
		Command: "sh",
		Args:    []string{"-c", "exit 2"},
		Timeout: 5 * time.Second,
	})

	outcome := sat.Send(t.Context(), testRecord())
	assert.Equal(t, alert.OutcomeFailure, outcome)
}

func TestSatellite_Send_Timeout(t *testing.T) {
	t.Parallel()

	sat := NewSatellite(&conf.SatelliteSettings{
		Enabled: true,
		Command: "sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 100 * time.Millisecond,
	})

	outcome := sat.Send(t.Context(), testRecord())
	assert.Equal(t, alert.OutcomeTimeout, outcome)
}

func TestSatellite_Send_Unconfigured(t *testing.T) {
	t.Parallel()

	sat := NewSatellite(&conf.SatelliteSettings{})
	assert.Equal(t, alert.OutcomeFailure, sat.Send(t.Context(), testRecord()))
	assert.False(t, sat.IsAvailable())
}

func TestSatellite_IsAvailable_StatusCommand(t *testing.T) {
	t.Parallel()

	up := NewSatellite(&conf.SatelliteSettings{Command: "sh", StatusCommand: "true"})
	assert.True(t, up.IsAvailable())

	down := NewSatellite(&conf.SatelliteSettings{Command: "sh", StatusCommand: "false"})
	assert.False(t, down.IsAvailable())

	// Second call inside the cache window must not flip the answer.
	assert.False(t, down.IsAvailable())
}

func TestSatellite_IsAvailable_NoStatusCommand(t *testing.T) {
	t.Parallel()

	sat := NewSatellite(&conf.SatelliteSettings{Command: "sh"})
	assert.True(t, sat.IsAvailable(), "configured modem without status command is treated as queryable")
}
