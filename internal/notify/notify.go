// Package notify pushes resolved high-urgency alerts to operator
// channels (Telegram, ntfy, email, anything shoutrrr can reach). It is a
// best-effort observer on top of the delivery pipeline, never part of it:
// the transports carry the alert, the notifier tells a human about the
// outcome.
package notify

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"slices"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/trailsentry/trailsentry-go/internal/alert"
	"github.com/trailsentry/trailsentry-go/internal/errors"
	"github.com/trailsentry/trailsentry-go/internal/logging"
)

// Notifier implements the dispatcher's resolution sink and forwards
// records at or above a minimum priority to shoutrrr service URLs.
type Notifier struct {
	urls        []string
	minPriority alert.Priority
	sender      *router.ServiceRouter
	logger      *slog.Logger
}

// New creates a notifier for the given shoutrrr URLs. minPriority is the
// least urgent priority that still triggers a push; pass PriorityLow to
// push everything.
func New(urls []string, minPriority alert.Priority, timeout time.Duration) (*Notifier, error) {
	if len(urls) == 0 {
		return nil, errors.Newf("at least one notification URL is required").
			Component("notify").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, errors.New(err).
			Component("notify").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	logger := logging.ForService("notify")
	if logger == nil {
		logger = slog.Default().With("service", "notify")
	}

	return &Notifier{
		urls:        slices.Clone(urls),
		minPriority: minPriority,
		sender:      sender,
		logger:      logger,
	}, nil
}

// OnAlertResolved pushes the record to the configured channels when it
// meets the priority floor. Push failures are logged and swallowed.
func (n *Notifier) OnAlertResolved(rec *alert.Record) {
	if rec.Priority.Rank() > n.minPriority.Rank() {
		return
	}

	params := stypes.Params{}
	params.SetTitle(title(rec))

	errs := n.sender.Send(body(rec), &params)
	for _, err := range errs {
		if err != nil {
			n.logger.Error("operator push failed",
				"alert_id", rec.ID,
				"error", err,
			)
			return
		}
	}

	n.logger.Debug("operator push sent",
		"alert_id", rec.ID,
		"priority", rec.Priority,
		"state", rec.State,
	)
}

func title(rec *alert.Record) string {
	if rec.State == alert.StateExhausted {
		return fmt.Sprintf("UNDELIVERED %s alert: %s", strings.ToUpper(string(rec.Priority)), rec.Species)
	}
	return fmt.Sprintf("%s alert: %s", strings.ToUpper(string(rec.Priority)), rec.Species)
}

func body(rec *alert.Record) string {
	var b strings.Builder
	b.WriteString(rec.Message)
	fmt.Fprintf(&b, "\nState: %s after %d delivery attempts", rec.State, len(rec.Attempts))
	for _, attempt := range rec.Attempts {
		fmt.Fprintf(&b, "\n  %s: %s", attempt.Transport, attempt.Outcome)
	}
	return b.String()
}
