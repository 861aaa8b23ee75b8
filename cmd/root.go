package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trailsentry/trailsentry-go/cmd/realtime"
	"github.com/trailsentry/trailsentry-go/cmd/validate"
	"github.com/trailsentry/trailsentry-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "trailsentry",
		Short: "TrailSentry field camera alert node",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		realtime.Command(settings),
		validate.Command(settings),
	)

	return rootCmd
}

// setupFlags configures the global flags for the root command.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Main.Name, "name", viper.GetString("main.name"), "Node name used as alert source identifier")
}
