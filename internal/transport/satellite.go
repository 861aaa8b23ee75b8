// satellite.go satellite modem transport
package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/trailsentry/trailsentry-go/internal/alert"
	"github.com/trailsentry/trailsentry-go/internal/conf"
	"github.com/trailsentry/trailsentry-go/internal/errors"
	"github.com/trailsentry/trailsentry-go/internal/logging"
)

// statusCacheTTL bounds how often the modem status command is run.
const statusCacheTTL = 30 * time.Second

// Satellite delivers alerts through an external modem utility. The
// utility receives the alert as JSON on stdin and signals the result via
// exit code: 0 success, 2 permanent refusal, anything else a transient
// failure. Satellite is the most expensive transport and is only attempted
// when terrestrial options are unavailable or exhausted.
type Satellite struct {
	command       string
	args          []string
	statusCommand string
	timeout       time.Duration
	logger        *slog.Logger

	mu              sync.Mutex
	lastStatusCheck time.Time
	lastStatus      bool
}

// NewSatellite creates the satellite modem transport.
func NewSatellite(settings *conf.SatelliteSettings) *Satellite {
	logger := logging.ForService("transport-satellite")
	if logger == nil {
		logger = slog.Default().With("service", "transport-satellite")
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Satellite{
		command:       settings.Command,
		args:          settings.Args,
		statusCommand: settings.StatusCommand,
		timeout:       timeout,
		logger:        logger,
	}
}

// Name returns the transport name.
func (s *Satellite) Name() string { return NameSatellite }

// IsAvailable runs the configured status command, caching the result so
// the modem is not polled on every tick. With no status command the modem
// is treated as always queryable.
func (s *Satellite) IsAvailable() bool {
	if s.command == "" {
		return false
	}
	if strings.TrimSpace(s.statusCommand) == "" {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastStatusCheck) < statusCacheTTL {
		return s.lastStatus
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := exec.CommandContext(ctx, s.statusCommand).Run()
	s.lastStatusCheck = time.Now()
	s.lastStatus = err == nil
	if err != nil {
		s.logger.Debug("satellite modem status check failed", "error", err)
	}
	return s.lastStatus
}

// Send invokes the modem utility with the alert payload on stdin.
func (s *Satellite) Send(ctx context.Context, rec *alert.Record) alert.Outcome {
	if s.command == "" {
		return alert.OutcomeFailure
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		s.logger.Error("failed to marshal alert payload", "alert_id", rec.ID, "error", err)
		return alert.OutcomeFailure
	}

	runCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, s.command, s.args...)
	cmd.Stdin = strings.NewReader(string(payload))

	out, err := cmd.CombinedOutput()
	if err == nil {
		return alert.OutcomeSuccess
	}

	if runCtx.Err() != nil {
		s.logger.Warn("satellite modem send timed out", "alert_id", rec.ID)
		return alert.OutcomeTimeout
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 2 {
		s.logger.Error("satellite modem refused alert",
			"alert_id", rec.ID,
			"output", truncate(string(out), 512),
		)
		return alert.OutcomeFailure
	}

	s.logger.Error("satellite modem send failed",
		"alert_id", rec.ID,
		"error", err,
		"output", truncate(string(out), 512),
	)
	return alert.OutcomeFailure
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
