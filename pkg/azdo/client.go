// Package azdo implements a read-only client for the Azure DevOps REST API
// covering test plans, suites, points, runs, results and work items.
package azdo

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	defaultMaxIdleConns        = 100
	defaultMaxConnsPerHost     = 100
	defaultMaxIdleConnsPerHost = 100

	// continuationHeader carries the cursor for the next page of a
	// paginated collection response.
	continuationHeader = "x-ms-continuationtoken"

	// maxErrorBody bounds how much of an error response is kept for
	// diagnostics.
	maxErrorBody = 2048
)

// APIError is returned for any response with status >= 400. The body is
// surfaced verbatim (truncated) so the operator sees the service diagnostic.
type APIError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d for %s: %s", e.StatusCode, e.URL, e.Body)
}

// IsAuth reports whether the error is a credential rejection.
func (e *APIError) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Client issues authenticated calls against one organization and project.
// All methods are blocking and the client is safe for use from a single
// goroutine; parallel callers must serialize result merging themselves.
type Client struct {
	config *Config
	http   *http.Client
}

// NewClient validates the configuration and builds a client with a tuned
// transport and a bounded per-request timeout.
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = defaultMaxIdleConns
	t.MaxConnsPerHost = defaultMaxConnsPerHost
	t.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost

	return &Client{
		config: cfg,
		http: &http.Client{
			Timeout:   cfg.timeout(),
			Transport: t,
		},
	}, nil
}

// authHeader builds the Basic header from an empty username and the token.
func (c *Client) authHeader() string {
	tok := base64.StdEncoding.EncodeToString([]byte(":" + c.config.Token))
	return "Basic " + tok
}

// doRequest issues one call and returns the body and headers. Any status
// >= 400 is an *APIError; retry and version fallback happen in the caller.
func (c *Client) doRequest(method, rawURL string, params url.Values, body io.Reader) ([]byte, http.Header, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "malformed URL %q", rawURL)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		return nil, nil, errors.Wrap(err, "couldn't create the request")
	}
	req.Header.Set("Authorization", c.authHeader())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debugf("%s %s", method, u.String())
	res, err := c.http.Do(req)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "couldn't call URL %s", u.String())
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, errors.Wrap(err, "couldn't read response body")
	}

	if res.StatusCode >= 400 {
		return nil, nil, &APIError{
			URL:        u.String(),
			StatusCode: res.StatusCode,
			Body:       truncate(string(data), maxErrorBody),
		}
	}
	return data, res.Header, nil
}

// getJSON fetches a resource and decodes the body into out.
func (c *Client) getJSON(rawURL string, params url.Values, out interface{}) error {
	data, _, err := c.doRequest(http.MethodGet, rawURL, params, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "couldn't unmarshal response from %s", rawURL)
	}
	return nil
}

// postJSON sends a JSON payload and decodes the response into out.
func (c *Client) postJSON(rawURL string, params url.Values, payload, out interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "couldn't marshal request payload")
	}
	data, _, err := c.doRequest(http.MethodPost, rawURL, params, bytes.NewReader(b))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "couldn't unmarshal response from %s", rawURL)
	}
	return nil
}

// getCollection fetches a single-page collection under the given version and
// returns the raw items under the "value" key. A missing key yields zero
// items rather than an error, tolerating shape drift across revisions.
func (c *Client) getCollection(rawURL, version string, params map[string]string) ([]json.RawMessage, error) {
	q := valuesFrom(params)
	q.Set("api-version", version)
	data, _, err := c.doRequest(http.MethodGet, rawURL, q, nil)
	if err != nil {
		return nil, err
	}
	return extractValue(data, "value"), nil
}

// extractValue pulls the item array under key from a response body. Some
// revisions return a bare array instead of a wrapper object; both forms are
// accepted. Anything else decodes to zero items.
func extractValue(body []byte, key string) []json.RawMessage {
	var asList []json.RawMessage
	if err := json.Unmarshal(body, &asList); err == nil {
		return asList
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil
	}
	raw, ok := wrapper[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, &asList); err != nil {
		// Single object under the value key, keep it as one item.
		return []json.RawMessage{raw}
	}
	return asList
}

func valuesFrom(params map[string]string) url.Values {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return q
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
