// local.go local annunciator transport
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/trailsentry/trailsentry-go/internal/alert"
	"github.com/trailsentry/trailsentry-go/internal/conf"
	"github.com/trailsentry/trailsentry-go/internal/logging"
)

// Local drives the on-device annunciator (LED/buzzer controller exposed as
// a character device). With no device configured it degrades to the
// human-readable log, so a local signal is always possible.
type Local struct {
	device string
	logger *slog.Logger
}

// NewLocal creates the local annunciator transport.
func NewLocal(settings *conf.LocalSettings) *Local {
	logger := logging.ForService("transport-local")
	if logger == nil {
		logger = slog.Default().With("service", "transport-local")
	}
	return &Local{
		device: settings.Device,
		logger: logger,
	}
}

// Name returns the transport name.
func (l *Local) Name() string { return NameLocal }

// IsAvailable always reports true, the annunciator needs no link.
func (l *Local) IsAvailable() bool { return true }

// Send annunciates the alert on-device. The priority prefix lets the
// annunciator firmware pick the signal pattern.
func (l *Local) Send(_ context.Context, rec *alert.Record) alert.Outcome {
	line := fmt.Sprintf("%s|%s|%s\n", strings.ToUpper(string(rec.Priority)), rec.Species, rec.Message)

	if l.device == "" {
		l.logger.Warn("LOCAL ALERT",
			"priority", rec.Priority,
			"species", rec.Species,
			"message", rec.Message,
		)
		return alert.OutcomeSuccess
	}

	f, err := os.OpenFile(l.device, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		l.logger.Error("failed to open annunciator device", "device", l.device, "error", err)
		return alert.OutcomeFailure
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		l.logger.Error("failed to write annunciator device", "device", l.device, "error", err)
		return alert.OutcomeFailure
	}

	return alert.OutcomeSuccess
}
