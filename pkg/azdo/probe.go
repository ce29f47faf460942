package azdo

import (
	"net/http"

	"github.com/pkg/errors"
)

// ProbeResult is the status of one connectivity check.
type ProbeResult struct {
	Description string
	URL         string
	Version     string
	StatusCode  int
	Err         error
}

// OK reports whether the route answered with a success status.
func (r *ProbeResult) OK() bool {
	return r.Err == nil || (r.StatusCode >= 200 && r.StatusCode < 300)
}

// Probe checks credential and route availability against the organization
// and project without touching any report data: the project listing as a
// control, then the plan listing on both the current and the legacy route.
// Every check runs regardless of earlier failures so the operator sees the
// full picture at once.
func (c *Client) Probe() []ProbeResult {
	checks := []struct {
		description string
		url         string
		version     string
	}{
		{"projects control", c.config.orgURL("/_apis/projects"), "7.1-preview.4"},
		{"testplan list", c.config.projectURL("/_apis/testplan/plans"), c.config.planVersion()},
		{"testplan list (previous revision)", c.config.projectURL("/_apis/testplan/plans"), "6.0-preview.1"},
		{"legacy test plans", c.config.projectURL("/_apis/test/plans"), "7.1-preview.1"},
	}

	out := make([]ProbeResult, 0, len(checks))
	for _, check := range checks {
		result := ProbeResult{
			Description: check.description,
			URL:         check.url,
			Version:     check.version,
		}
		q := valuesFrom(map[string]string{"api-version": check.version})
		_, _, err := c.doRequest(http.MethodGet, check.url, q, nil)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				result.StatusCode = apiErr.StatusCode
			}
			result.Err = err
		} else {
			result.StatusCode = http.StatusOK
		}
		out = append(out, result)
	}
	return out
}
