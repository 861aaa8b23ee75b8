package connectivity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/trailsentry/trailsentry-go/internal/errors"
)

// otaManifest is the update manifest served by the fleet endpoint.
type otaManifest struct {
	Version string `json:"version"`
}

// OtaChecker polls an update manifest and reports whether a version newer
// than the running one is published.
type OtaChecker struct {
	url     string
	version string
	client  *http.Client
}

// NewOtaChecker creates a checker for the given manifest URL. version is
// the running firmware version the manifest is compared against.
func NewOtaChecker(url, version string, timeout time.Duration) *OtaChecker {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OtaChecker{
		url:     url,
		version: version,
		client:  &http.Client{Timeout: timeout},
	}
}

// Check fetches the manifest and reports whether an update is available.
// A checker without a URL always reports false.
func (o *OtaChecker) Check(ctx context.Context) (bool, error) {
	if o.url == "" {
		return false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.url, http.NoBody)
	if err != nil {
		return false, errors.New(err).
			Component("connectivity").
			Category(errors.CategoryHTTP).
			Context("url", o.url).
			Build()
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false, errors.New(err).
			Component("connectivity").
			Category(errors.CategoryNetwork).
			Context("url", o.url).
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, errors.New(fmt.Errorf("manifest fetch returned status %d", resp.StatusCode)).
			Component("connectivity").
			Category(errors.CategoryHTTP).
			Context("url", o.url).
			Build()
	}

	var manifest otaManifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return false, errors.New(err).
			Component("connectivity").
			Category(errors.CategoryHTTP).
			Context("url", o.url).
			Build()
	}

	return manifest.Version != "" && manifest.Version != o.version, nil
}
