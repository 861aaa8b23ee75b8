// config.go: This file contains the configuration for the TrailSentry node. It defines the settings struct and functions to load and validate the settings.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// LogSettings contains settings for application logging.
type LogSettings struct {
	Enabled bool   // true to enable file logging
	Path    string // path to log file
}

// MainSettings contains general node settings.
type MainSettings struct {
	Name string      // node name, used as source identifier and MQTT client id
	Log  LogSettings // main log settings
}

// SpeciesPolicy defines the alerting policy for a single species.
type SpeciesPolicy struct {
	ConfidenceThreshold      float64       // detections below this are never counted
	AlertConfidenceThreshold float64       // minimum confidence for an alert to fire
	MinConsecutiveDetections int           // detections required within one episode
	Cooldown                 time.Duration // minimum time between two alerts for the species
	Priority                 string        // critical, high, medium or low
}

// DetectionSettings contains the species policy table and episode handling.
type DetectionSettings struct {
	EpisodeGap time.Duration            // gap above which a new detection episode begins
	Species    map[string]SpeciesPolicy // policy table keyed by species id
}

// DeliverySettings controls the delivery queue and dispatcher.
type DeliverySettings struct {
	MaxRetriesPerTransport int           // attempts per transport before it is exhausted for a record
	BaseDelay              time.Duration // base for exponential requeue backoff
	MaxDelay               time.Duration // backoff cap
	AttemptTimeout         time.Duration // per transport send attempt timeout
	TickInterval           time.Duration // cadence of the cooperative tick driver
}

// MeshSettings contains settings for the mesh radio transport.
type MeshSettings struct {
	Enabled    bool
	Broker     string        // MQTT broker URL of the mesh gateway
	Topic      string        // topic alerts are published to
	Username   string        // MQTT username
	Password   string        // MQTT password
	NodeWindow time.Duration // window within which a node announcement counts as active
}

// CloudSettings contains settings for the WiFi/cloud webhook transport.
type CloudSettings struct {
	Enabled bool
	URL     string        // webhook endpoint URL
	Token   string        // bearer token, empty for none
	Timeout time.Duration // HTTP request timeout
}

// SatelliteSettings contains settings for the satellite modem transport.
type SatelliteSettings struct {
	Enabled       bool
	Command       string        // modem utility invoked with the alert payload on stdin
	Args          []string      // extra arguments for the modem utility
	StatusCommand string        // optional utility reporting modem availability via exit code
	Timeout       time.Duration // per invocation timeout
}

// LocalSettings contains settings for the local annunciator.
type LocalSettings struct {
	Device string // annunciator device path, empty to log only
}

// TransportSettings groups all transport driver settings.
type TransportSettings struct {
	Mesh      MeshSettings
	Cloud     CloudSettings
	Satellite SatelliteSettings
	Local     LocalSettings
}

// ConnectivitySettings controls the cooperative connectivity scheduler.
type ConnectivitySettings struct {
	WifiInterface      string        // wireless interface name, e.g. wlan0
	WifiConnectCommand string        // command executed to (re)establish WiFi
	WifiConnectTimeout time.Duration // bound on a single connect attempt
	WifiBackoffBase    time.Duration // base delay for reconnect backoff
	WifiBackoffMax     time.Duration // reconnect backoff cap
	WifiRetryCeiling   int           // retry count stops incrementing here, delay stays capped
	OtaInterval        time.Duration // interval between update availability checks
	OtaManifestURL     string        // manifest URL polled for newer versions
	MeshCheckInterval  time.Duration // interval between mesh health checks
	StatusInterval     time.Duration // interval between status summaries
}

// ArchiveSettings contains settings for the resolved alert archive.
type ArchiveSettings struct {
	Enabled bool
	Path    string // path to the SQLite database file
}

// NotifySettings contains settings for operator push notifications.
type NotifySettings struct {
	Enabled     bool
	URLs        []string // shoutrrr service URLs
	MinPriority string   // lowest priority that is pushed, default high
}

// WebserverSettings contains settings for the status HTTP API.
type WebserverSettings struct {
	Enabled bool
	Listen  string // listen address, e.g. 0.0.0.0:8080
}

// MetricsSettings contains settings for the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool
	Listen  string // listen address, e.g. 0.0.0.0:8090
}

// Settings contains all runtime settings for the node.
type Settings struct {
	Debug bool // true to enable debug logging

	Main         MainSettings
	Detection    DetectionSettings
	Delivery     DeliverySettings
	Transports   TransportSettings
	Connectivity ConnectivitySettings
	Archive      ArchiveSettings
	Notify       NotifySettings
	Webserver    WebserverSettings
	Metrics      MetricsSettings

	Version string // runtime value, set at build
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into the singleton settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	settings.Detection.Species = NormalizeSpeciesPolicyKeys(settings.Detection.Species)

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// Setting returns the current settings instance, or nil before Load.
func Setting() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter
	// function defined in defaults.go
	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, run with defaults
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPaths returns the config file search paths in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", "trailsentry"),
		"/etc/trailsentry",
	}, nil
}
