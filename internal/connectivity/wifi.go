package connectivity

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/trailsentry/trailsentry-go/internal/errors"
)

// WifiManager abstracts the platform WiFi control so the scheduler can be
// tested without a radio.
type WifiManager interface {
	// Connect attempts to (re)establish the WiFi association.
	Connect(ctx context.Context) error
	// IsConnected reports the current link state.
	IsConnected() bool
}

// CommandWifi manages WiFi through an external connect command and the
// kernel's operstate file for the configured interface. This keeps the
// node agnostic to whichever supplicant the image ships with.
type CommandWifi struct {
	iface   string
	command string
	args    []string
}

// NewCommandWifi creates a WiFi manager for the given interface. The
// connect command is split on whitespace; an empty command makes Connect
// a no-op so a node with externally managed WiFi still reports link state.
func NewCommandWifi(iface, connectCommand string) *CommandWifi {
	fields := strings.Fields(connectCommand)
	w := &CommandWifi{iface: iface}
	if len(fields) > 0 {
		w.command = fields[0]
		w.args = fields[1:]
	}
	return w
}

// Connect runs the configured connect command.
func (w *CommandWifi) Connect(ctx context.Context) error {
	if w.command == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, w.command, w.args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return errors.New(err).
			Component("connectivity").
			Category(errors.CategoryCommandExecution).
			Context("command", w.command).
			Context("output", strings.TrimSpace(string(output))).
			Build()
	}
	return nil
}

// IsConnected reads the interface operstate from sysfs. Anything other
// than "up" counts as down, including a missing interface.
func (w *CommandWifi) IsConnected() bool {
	data, err := os.ReadFile(filepath.Join("/sys/class/net", w.iface, "operstate"))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "up"
}
