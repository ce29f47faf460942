package azdo

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// NotFoundError reports that a named entity could not be resolved.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// ListPlans returns every test plan of the project.
func (c *Client) ListPlans() ([]Plan, error) {
	items, err := c.getCollection(c.config.projectURL("/_apis/testplan/plans"), c.config.planVersion(), nil)
	if err != nil {
		return nil, err
	}
	plans := make([]Plan, 0, len(items))
	for _, raw := range items {
		var p Plan
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "couldn't decode plan record")
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// ResolvePlan finds a plan by name. An exact case-insensitive match wins;
// when none exists the first substring match is taken. When neither matches
// a NotFoundError is returned.
func (c *Client) ResolvePlan(name string) (*Plan, error) {
	plans, err := c.ListPlans()
	if err != nil {
		return nil, err
	}

	wanted := strings.ToLower(strings.TrimSpace(name))
	var partial *Plan
	for i := range plans {
		got := strings.ToLower(strings.TrimSpace(plans[i].Name))
		if got == wanted {
			log.Infof("Resolved plan %q ID=%d", plans[i].Name, plans[i].ID)
			return &plans[i], nil
		}
		if partial == nil && strings.Contains(got, wanted) {
			partial = &plans[i]
		}
	}
	if partial != nil {
		log.Infof("Resolved plan %q ID=%d (substring match)", partial.Name, partial.ID)
		return partial, nil
	}
	return nil, &NotFoundError{Kind: "plan", Name: name}
}

// ListSuites returns every suite of a plan with normalized identifiers.
func (c *Client) ListSuites(planID int) ([]Suite, error) {
	url := c.config.projectURL(fmt.Sprintf("/_apis/testplan/Plans/%d/suites", planID))
	items, err := c.getCollection(url, c.config.planVersion(), nil)
	if err != nil {
		return nil, err
	}
	suites := make([]Suite, 0, len(items))
	for _, raw := range items {
		var w suiteWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, errors.Wrap(err, "couldn't decode suite record")
		}
		suites = append(suites, w.toSuite())
	}
	return suites, nil
}

// ListPoints returns every point of one suite, walking all pages with the
// configured api-version fallback.
func (c *Client) ListPoints(planID int, suiteID string) ([]Point, error) {
	params := map[string]string{
		"planId":              strconv.Itoa(planID),
		"suiteId":             suiteID,
		"includePointDetails": "true",
		"returnIdentityRef":   "true",
	}
	items, err := c.getPaginated(c.config.projectURL("/_apis/test/points"), c.config.pointsVersions(), params)
	if err != nil {
		return nil, err
	}
	points := make([]Point, 0, len(items))
	for _, raw := range items {
		var p Point
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, errors.Wrap(err, "couldn't decode point record")
		}
		points = append(points, p)
	}
	return points, nil
}

// DateWindow bounds run listing by last-updated date. Zero bounds are
// omitted from the query.
type DateWindow struct {
	Min time.Time
	Max time.Time
}

// ListRuns returns the runs of a plan, newest first, optionally bounded to a
// last-updated window.
func (c *Client) ListRuns(planID int, window *DateWindow) ([]Run, error) {
	params := map[string]string{"planId": strconv.Itoa(planID)}
	if window != nil {
		if !window.Min.IsZero() {
			params["minLastUpdatedDate"] = window.Min.Format(time.RFC3339)
		}
		if !window.Max.IsZero() {
			params["maxLastUpdatedDate"] = window.Max.Format(time.RFC3339)
		}
	}
	items, err := c.getPaginated(c.config.projectURL("/_apis/test/runs"), c.config.runsVersions(), params)
	if err != nil {
		return nil, err
	}
	runs := make([]Run, 0, len(items))
	for _, raw := range items {
		var r Run
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, errors.Wrap(err, "couldn't decode run record")
		}
		runs = append(runs, r)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].sortStamp().After(runs[j].sortStamp())
	})
	log.Infof("Fetched %d run(s) for plan %d", len(runs), planID)
	return runs, nil
}

// ListResults returns every result of one run.
func (c *Client) ListResults(runID int) ([]Result, error) {
	url := c.config.projectURL(fmt.Sprintf("/_apis/test/Runs/%d/results", runID))
	items, err := c.getPaginated(url, c.config.resultsVersions(), nil)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(items))
	for _, raw := range items {
		var r Result
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, errors.Wrap(err, "couldn't decode result record")
		}
		results = append(results, r)
	}
	return results, nil
}
