// cloud.go WiFi/cloud webhook transport
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/trailsentry/trailsentry-go/internal/alert"
	"github.com/trailsentry/trailsentry-go/internal/conf"
	"github.com/trailsentry/trailsentry-go/internal/errors"
	"github.com/trailsentry/trailsentry-go/internal/logging"
)

// maxErrorBodySize limits error response body reading to prevent memory issues
const maxErrorBodySize = 1024

// Cloud posts alert records as JSON to a configured webhook endpoint over
// the WiFi uplink. Whether the uplink is usable is decided by the
// connectivity scheduler; the driver only executes bounded HTTP calls.
type Cloud struct {
	url    string
	token  string
	client *http.Client
	logger *slog.Logger
}

// cloudPayload is the JSON structure sent to the webhook.
type cloudPayload struct {
	ID             string    `json:"id"`
	Species        string    `json:"species"`
	Confidence     float64   `json:"confidence"`
	Priority       string    `json:"priority"`
	Message        string    `json:"message"`
	DetectionCount int       `json:"detection_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewCloud creates the cloud webhook transport.
func NewCloud(settings *conf.CloudSettings) *Cloud {
	logger := logging.ForService("transport-cloud")
	if logger == nil {
		logger = slog.Default().With("service", "transport-cloud")
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Cloud{
		url:    settings.URL,
		token:  settings.Token,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Name returns the transport name.
func (c *Cloud) Name() string { return NameCloud }

// IsAvailable reports whether the driver is configured. Link-level
// availability is the connectivity scheduler's call.
func (c *Cloud) IsAvailable() bool { return c.url != "" }

// Send posts the alert to the webhook endpoint.
func (c *Cloud) Send(ctx context.Context, rec *alert.Record) alert.Outcome {
	payload := cloudPayload{
		ID:             rec.ID,
		Species:        rec.Species,
		Confidence:     rec.Confidence,
		Priority:       string(rec.Priority),
		Message:        rec.Message,
		DetectionCount: rec.DetectionCount,
		CreatedAt:      rec.CreatedAt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("failed to marshal alert payload", "alert_id", rec.ID, "error", err)
		return alert.OutcomeFailure
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("failed to build webhook request", "url", c.url, "error", err)
		return alert.OutcomeFailure
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil ||
			(errors.As(err, &netErr) && netErr.Timeout()) {
			c.logger.Warn("webhook request timed out", "alert_id", rec.ID)
			return alert.OutcomeTimeout
		}
		c.logger.Error("webhook request failed", "alert_id", rec.ID, "error", err)
		return alert.OutcomeFailure
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return alert.OutcomeSuccess
	}

	// Read a bounded slice of the error body for the log.
	errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	c.logger.Error("webhook rejected alert",
		"alert_id", rec.ID,
		"status", resp.StatusCode,
		"body", string(errBody),
	)
	return alert.OutcomeFailure
}
