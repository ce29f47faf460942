package azdo

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// VersionFallbackError reports that every candidate api-version failed for a
// paginated resource. It carries the error of the last version tried.
type VersionFallbackError struct {
	URL      string
	Versions []string
	LastErr  error
}

func (e *VersionFallbackError) Error() string {
	return fmt.Sprintf("all api-versions %v failed for %s: %v", e.Versions, e.URL, e.LastErr)
}

func (e *VersionFallbackError) Unwrap() error {
	return e.LastErr
}

// getPaginated materializes a full collection, trying each candidate
// api-version in order of preference. Pages are linked by the continuation
// token response header, echoed back as the continuationToken parameter.
//
// Pages fetched under different versions are never mixed into one result:
// if any page of a version fails, that version's accumulator is discarded
// entirely and the next candidate starts from scratch. Credential rejections
// short-circuit the fallback, retrying other revisions cannot fix a 401.
func (c *Client) getPaginated(rawURL string, versions []string, params map[string]string) ([]json.RawMessage, error) {
	var lastErr error

	for _, version := range versions {
		items, err := c.fetchAllPages(rawURL, version, params)
		if err == nil {
			return items, nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsAuth() {
			return nil, errors.Wrap(err, "credential rejected")
		}
		log.Debugf("api-version %s failed for %s: %v", version, rawURL, err)
		lastErr = err
	}

	return nil, &VersionFallbackError{URL: rawURL, Versions: versions, LastErr: lastErr}
}

// fetchAllPages walks the continuation chain for a single api-version.
func (c *Client) fetchAllPages(rawURL, version string, params map[string]string) ([]json.RawMessage, error) {
	out := []json.RawMessage{}
	token := ""

	for {
		q := valuesFrom(params)
		q.Set("api-version", version)
		if token != "" {
			q.Set("continuationToken", token)
		}

		data, header, err := c.doRequest(http.MethodGet, rawURL, q, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, extractValue(data, "value")...)

		token = header.Get(continuationHeader)
		if token == "" {
			return out, nil
		}
	}
}
