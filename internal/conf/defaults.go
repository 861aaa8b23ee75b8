// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "TrailSentry")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "trailsentry.log")

	viper.SetDefault("detection.episodegap", "30s")
	viper.SetDefault("detection.species", map[string]any{})

	viper.SetDefault("delivery.maxretriespertransport", 3)
	viper.SetDefault("delivery.basedelay", "5s")
	viper.SetDefault("delivery.maxdelay", "5m")
	viper.SetDefault("delivery.attempttimeout", "10s")
	viper.SetDefault("delivery.tickinterval", "30s")

	viper.SetDefault("transports.mesh.enabled", false)
	viper.SetDefault("transports.mesh.broker", "tcp://localhost:1883")
	viper.SetDefault("transports.mesh.topic", "trailsentry/alerts")
	viper.SetDefault("transports.mesh.username", "")
	viper.SetDefault("transports.mesh.password", "")
	viper.SetDefault("transports.mesh.nodewindow", "3m")

	viper.SetDefault("transports.cloud.enabled", false)
	viper.SetDefault("transports.cloud.url", "")
	viper.SetDefault("transports.cloud.token", "")
	viper.SetDefault("transports.cloud.timeout", "10s")

	viper.SetDefault("transports.satellite.enabled", false)
	viper.SetDefault("transports.satellite.command", "")
	viper.SetDefault("transports.satellite.args", []string{})
	viper.SetDefault("transports.satellite.statuscommand", "")
	viper.SetDefault("transports.satellite.timeout", "20s")

	viper.SetDefault("transports.local.device", "")

	viper.SetDefault("connectivity.wifiinterface", "wlan0")
	viper.SetDefault("connectivity.wificonnectcommand", "")
	viper.SetDefault("connectivity.wificonnecttimeout", "30s")
	viper.SetDefault("connectivity.wifibackoffbase", "1s")
	viper.SetDefault("connectivity.wifibackoffmax", "60s")
	viper.SetDefault("connectivity.wifiretryceiling", 5)
	viper.SetDefault("connectivity.otainterval", "1h")
	viper.SetDefault("connectivity.otamanifesturl", "")
	viper.SetDefault("connectivity.meshcheckinterval", "60s")
	viper.SetDefault("connectivity.statusinterval", "5m")

	viper.SetDefault("archive.enabled", true)
	viper.SetDefault("archive.path", "trailsentry.db")

	viper.SetDefault("notify.enabled", false)
	viper.SetDefault("notify.urls", []string{})
	viper.SetDefault("notify.minpriority", "high")

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.listen", "0.0.0.0:8080")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", "0.0.0.0:8090")
}
