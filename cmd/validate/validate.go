// Package validate implements the configuration check command.
package validate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trailsentry/trailsentry-go/internal/conf"
)

// Command creates the validate command. Configuration was already loaded
// and validated before the command runs; reaching RunE means it passed.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conf.ValidateSettings(settings); err != nil {
				return err
			}
			fmt.Printf("configuration OK: %d species policies, %d transports enabled\n",
				len(settings.Detection.Species), enabledTransports(settings))
			return nil
		},
	}
}

func enabledTransports(settings *conf.Settings) int {
	n := 1 // local annunciator is always on
	if settings.Transports.Mesh.Enabled {
		n++
	}
	if settings.Transports.Cloud.Enabled {
		n++
	}
	if settings.Transports.Satellite.Enabled {
		n++
	}
	return n
}
