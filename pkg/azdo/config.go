package azdo

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL    = "https://dev.azure.com"
	defaultTimeoutSec = 30
)

// Default api-version candidates, most-preferred first. The service answers
// different revisions depending on tenant and endpoint, and the parameter and
// response shapes are not compatible across revisions, so collection fetches
// try each candidate in order and keep the first one that fully succeeds.
var (
	DefaultPlanVersion     = "7.1-preview.1"
	DefaultPointsVersions  = []string{"7.1-preview.2", "7.1-preview.1", "7.0", "6.0"}
	DefaultRunsVersions    = []string{"7.1-preview.7", "7.1-preview.1", "7.0", "6.0"}
	DefaultResultsVersions = []string{"7.1-preview.6", "7.1-preview.1", "7.0", "6.0"}
	DefaultWorkItemVersion = "6.0"
)

// Config holds every value the client needs to reach one organization and
// project. It is built once at process start and passed by parameter; the
// client never reads ambient state.
type Config struct {
	// Organization is the organization name, or a full base URL for
	// on-premises installations (detected by the http(s) prefix).
	Organization string

	// Project is the project name. Escaped when building URLs, spaces are
	// common in project names.
	Project string

	// Token is the personal access token used as the Basic-Auth password
	// with an empty username.
	Token string

	// Timeout bounds every request. Zero means the 30s default.
	Timeout time.Duration

	// Version candidates per resource. Empty slices fall back to the
	// package defaults.
	PlanVersion     string
	PointsVersions  []string
	RunsVersions    []string
	ResultsVersions []string
	WorkItemVersion string
}

// Validate checks the required connection values.
func (c *Config) Validate() error {
	missing := []string{}
	if strings.TrimSpace(c.Organization) == "" {
		missing = append(missing, "organization")
	}
	if strings.TrimSpace(c.Project) == "" {
		missing = append(missing, "project")
	}
	if strings.TrimSpace(c.Token) == "" {
		missing = append(missing, "token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// baseURL resolves the organization base, accepting either a bare
// organization name or a full URL.
func (c *Config) baseURL() string {
	org := strings.TrimSpace(c.Organization)
	if strings.HasPrefix(org, "http://") || strings.HasPrefix(org, "https://") {
		return strings.TrimRight(org, "/")
	}
	return defaultBaseURL + "/" + org
}

func (c *Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeoutSec * time.Second
	}
	return c.Timeout
}

func (c *Config) planVersion() string {
	if c.PlanVersion == "" {
		return DefaultPlanVersion
	}
	return c.PlanVersion
}

func (c *Config) pointsVersions() []string {
	if len(c.PointsVersions) == 0 {
		return DefaultPointsVersions
	}
	return c.PointsVersions
}

func (c *Config) runsVersions() []string {
	if len(c.RunsVersions) == 0 {
		return DefaultRunsVersions
	}
	return c.RunsVersions
}

func (c *Config) resultsVersions() []string {
	if len(c.ResultsVersions) == 0 {
		return DefaultResultsVersions
	}
	return c.ResultsVersions
}

func (c *Config) workItemVersion() string {
	if c.WorkItemVersion == "" {
		return DefaultWorkItemVersion
	}
	return c.WorkItemVersion
}

// projectURL builds an URL for a project-scoped resource path.
func (c *Config) projectURL(resource string) string {
	if !strings.HasPrefix(resource, "/") {
		resource = "/" + resource
	}
	return c.baseURL() + "/" + url.PathEscape(c.Project) + resource
}

// orgURL builds an URL for an organization-scoped resource path, used by the
// work item batch endpoint.
func (c *Config) orgURL(resource string) string {
	if !strings.HasPrefix(resource, "/") {
		resource = "/" + resource
	}
	return c.baseURL() + resource
}
