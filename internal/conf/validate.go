// validate.go load-time validation of settings, invariant violations are fatal to startup
package conf

import (
	"fmt"

	"github.com/trailsentry/trailsentry-go/internal/errors"
)

// ValidateSettings checks the loaded settings for invariant violations.
// Violations are rejected here so they can never reach runtime.
func ValidateSettings(settings *Settings) error {
	var errs []error

	for species, policy := range settings.Detection.Species {
		if err := validateSpeciesPolicy(species, &policy); err != nil {
			errs = append(errs, err)
		}
	}

	if settings.Detection.EpisodeGap <= 0 {
		errs = append(errs, errors.Newf("detection episode gap must be positive, got %v", settings.Detection.EpisodeGap).
			Component("conf").
			Category(errors.CategoryValidation).
			Build())
	}

	if settings.Delivery.MaxRetriesPerTransport < 1 {
		errs = append(errs, errors.Newf("delivery max retries per transport must be at least 1, got %d", settings.Delivery.MaxRetriesPerTransport).
			Component("conf").
			Category(errors.CategoryValidation).
			Build())
	}
	if settings.Delivery.BaseDelay <= 0 || settings.Delivery.MaxDelay < settings.Delivery.BaseDelay {
		errs = append(errs, errors.Newf("delivery backoff delays invalid: base %v, max %v", settings.Delivery.BaseDelay, settings.Delivery.MaxDelay).
			Component("conf").
			Category(errors.CategoryValidation).
			Build())
	}
	if settings.Delivery.TickInterval <= 0 {
		errs = append(errs, errors.Newf("delivery tick interval must be positive, got %v", settings.Delivery.TickInterval).
			Component("conf").
			Category(errors.CategoryValidation).
			Build())
	}

	if err := validateConnectivity(&settings.Connectivity); err != nil {
		errs = append(errs, err)
	}

	if settings.Notify.Enabled && len(settings.Notify.URLs) == 0 {
		errs = append(errs, errors.Newf("notify enabled but no URLs configured").
			Component("conf").
			Category(errors.CategoryValidation).
			Build())
	}

	return errors.Join(errs...)
}

func validateSpeciesPolicy(species string, policy *SpeciesPolicy) error {
	if policy.ConfidenceThreshold <= 0 || policy.ConfidenceThreshold >= 1 {
		return policyError(species, fmt.Sprintf("confidence threshold must be in (0,1), got %g", policy.ConfidenceThreshold))
	}
	// Detections below the confidence threshold are never counted, so an
	// alert threshold below it could never be observed.
	if policy.AlertConfidenceThreshold < policy.ConfidenceThreshold {
		return policyError(species, fmt.Sprintf("alert confidence threshold %g below confidence threshold %g",
			policy.AlertConfidenceThreshold, policy.ConfidenceThreshold))
	}
	if policy.MinConsecutiveDetections < 1 {
		return policyError(species, fmt.Sprintf("min consecutive detections must be at least 1, got %d", policy.MinConsecutiveDetections))
	}
	if policy.Cooldown < 0 {
		return policyError(species, fmt.Sprintf("cooldown must not be negative, got %v", policy.Cooldown))
	}
	if !ValidPriority(policy.Priority) {
		return policyError(species, fmt.Sprintf("unknown priority %q", policy.Priority))
	}
	return nil
}

func policyError(species, msg string) error {
	return errors.Newf("species policy for %q invalid: %s", species, msg).
		Component("conf").
		Category(errors.CategoryValidation).
		Context("species", species).
		Build()
}

func validateConnectivity(c *ConnectivitySettings) error {
	if c.WifiBackoffBase <= 0 || c.WifiBackoffMax < c.WifiBackoffBase {
		return errors.Newf("wifi backoff invalid: base %v, max %v", c.WifiBackoffBase, c.WifiBackoffMax).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if c.WifiConnectTimeout <= 0 {
		return errors.Newf("wifi connect timeout must be positive, got %v", c.WifiConnectTimeout).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if c.WifiRetryCeiling < 1 {
		return errors.Newf("wifi retry ceiling must be at least 1, got %d", c.WifiRetryCeiling).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if c.OtaInterval <= 0 || c.MeshCheckInterval <= 0 || c.StatusInterval <= 0 {
		return errors.Newf("connectivity intervals must be positive: ota %v, mesh %v, status %v",
			c.OtaInterval, c.MeshCheckInterval, c.StatusInterval).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}
