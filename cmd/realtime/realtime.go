// Package realtime implements the command that runs the node.
package realtime

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trailsentry/trailsentry-go/internal/conf"
	"github.com/trailsentry/trailsentry-go/internal/node"
)

// Command creates the realtime command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Run the alert node",
		Long:  "Start the delivery dispatcher, connectivity scheduler and detection ingest and run until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return node.Run(settings)
		},
	}

	setupFlags(cmd, settings)
	return cmd
}

// setupFlags configures flags specific to the realtime command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVar(&settings.Webserver.Listen, "listen", viper.GetString("webserver.listen"), "Status API listen address")
	cmd.Flags().StringVar(&settings.Main.Log.Path, "logpath", viper.GetString("main.log.path"), "Path to the node log file")
	cmd.Flags().StringVar(&settings.Archive.Path, "archive", viper.GetString("archive.path"), "Path to the resolved alert archive database")
}
