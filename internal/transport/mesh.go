// mesh.go mesh radio gateway transport
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/trailsentry/trailsentry-go/internal/alert"
	"github.com/trailsentry/trailsentry-go/internal/conf"
	"github.com/trailsentry/trailsentry-go/internal/errors"
	"github.com/trailsentry/trailsentry-go/internal/logging"
)

const (
	meshConnectTimeout = 30 * time.Second
	meshPublishTimeout = 10 * time.Second
	// reconnectCooldown rate limits connect attempts towards the gateway.
	meshReconnectCooldown = 5 * time.Second
)

// Mesh publishes alerts to the local LoRa-mesh gateway, which speaks MQTT
// on the node side. Mesh nodes announce themselves on a presence topic;
// the driver tracks last-seen timestamps so the connectivity scheduler can
// count active nodes.
type Mesh struct {
	config   conf.MeshSettings
	clientID string
	logger   *slog.Logger

	mu              sync.Mutex
	internalClient  mqtt.Client
	lastConnAttempt time.Time

	nodesMu  sync.Mutex
	lastSeen map[string]time.Time
}

// NewMesh creates the mesh gateway transport.
func NewMesh(settings *conf.MeshSettings, clientID string) *Mesh {
	logger := logging.ForService("transport-mesh")
	if logger == nil {
		logger = slog.Default().With("service", "transport-mesh")
	}
	return &Mesh{
		config:   *settings,
		clientID: clientID,
		logger:   logger,
		lastSeen: make(map[string]time.Time),
	}
}

// Name returns the transport name.
func (m *Mesh) Name() string { return NameMesh }

// Connect attempts to establish a connection to the mesh gateway broker.
// It first resolves the broker's hostname and then attempts to connect.
func (m *Mesh) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastConnAttempt) < meshReconnectCooldown {
		return errors.Newf("connection attempt too recent, last attempt was %v ago", time.Since(m.lastConnAttempt)).
			Component("mesh").
			Category(errors.CategoryMQTTConnection).
			Build()
	}
	m.lastConnAttempt = time.Now()

	u, err := url.Parse(m.config.Broker)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}

	host := u.Hostname()
	if net.ParseIP(host) == nil {
		// Not an IP address, resolve it first so a dead DNS path fails fast
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return fmt.Errorf("failed to resolve hostname %s: %w", host, err)
		}
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(m.config.Broker)
	opts.SetClientID(m.clientID)
	opts.SetUsername(m.config.Username)
	opts.SetPassword(m.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(m.onConnect)
	opts.SetConnectionLostHandler(m.onConnectionLost)

	m.internalClient = mqtt.NewClient(opts)

	token := m.internalClient.Connect()
	if !token.WaitTimeout(meshConnectTimeout) {
		return errors.Newf("connection timeout").
			Component("mesh").
			Category(errors.CategoryMQTTConnection).
			Context("broker", m.config.Broker).
			Build()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connection error: %w", err)
	}

	return nil
}

// IsAvailable reports whether the gateway connection is up.
func (m *Mesh) IsAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.internalClient != nil && m.internalClient.IsConnected()
}

// Send publishes the alert to the configured topic.
func (m *Mesh) Send(ctx context.Context, rec *alert.Record) alert.Outcome {
	m.mu.Lock()
	client := m.internalClient
	m.mu.Unlock()

	if client == nil || !client.IsConnected() {
		m.logger.Debug("not connected to mesh gateway", "alert_id", rec.ID)
		return alert.OutcomeFailure
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		m.logger.Error("failed to marshal alert payload", "alert_id", rec.ID, "error", err)
		return alert.OutcomeFailure
	}

	timeout := meshPublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	token := client.Publish(m.config.Topic, 1, false, payload)
	if !token.WaitTimeout(timeout) {
		m.logger.Warn("mesh publish timed out", "alert_id", rec.ID, "topic", m.config.Topic)
		return alert.OutcomeTimeout
	}
	if err := token.Error(); err != nil {
		m.logger.Error("mesh publish failed", "alert_id", rec.ID, "topic", m.config.Topic, "error", err)
		return alert.OutcomeFailure
	}

	return alert.OutcomeSuccess
}

// Disconnect closes the connection to the mesh gateway.
func (m *Mesh) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.internalClient != nil && m.internalClient.IsConnected() {
		m.internalClient.Disconnect(250)
	}
}

// ActiveNodes returns the number of mesh nodes heard from within the
// configured node window.
func (m *Mesh) ActiveNodes() int {
	m.nodesMu.Lock()
	defer m.nodesMu.Unlock()

	window := m.config.NodeWindow
	if window <= 0 {
		window = 3 * time.Minute
	}

	now := time.Now()
	active := 0
	for node, seen := range m.lastSeen {
		if now.Sub(seen) <= window {
			active++
		} else {
			delete(m.lastSeen, node)
		}
	}
	return active
}

// markNodeSeen records a presence announcement for a node id.
func (m *Mesh) markNodeSeen(node string, at time.Time) {
	if node == "" {
		return
	}
	m.nodesMu.Lock()
	m.lastSeen[node] = at
	m.nodesMu.Unlock()
}

func (m *Mesh) presenceTopic() string {
	return strings.TrimSuffix(m.config.Topic, "/alerts") + "/nodes/+"
}

func (m *Mesh) onConnect(client mqtt.Client) {
	m.logger.Info("connected to mesh gateway", "broker", m.config.Broker)

	// Nodes publish retained heartbeats on the presence topic; the
	// subscription doubles as the mesh health signal.
	topic := m.presenceTopic()
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		parts := strings.Split(msg.Topic(), "/")
		m.markNodeSeen(parts[len(parts)-1], time.Now())
	})
	if !token.WaitTimeout(meshPublishTimeout) || token.Error() != nil {
		m.logger.Error("failed to subscribe to presence topic", "topic", topic, "error", token.Error())
	}
}

func (m *Mesh) onConnectionLost(_ mqtt.Client, err error) {
	m.logger.Warn("connection to mesh gateway lost", "broker", m.config.Broker, "error", err)
}
