package azdo

import (
	"bytes"
	"strconv"
	"time"
)

// FlexInt decodes an integer that some API revisions serialize as a number
// and others as a quoted string.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

func (f FlexInt) Int() int {
	return int(f)
}

// Plan is a named top-level test-tracking container.
type Plan struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Suite is one node of a plan's folder tree. Identifiers are normalized to
// strings; ParentID is empty for top-level suites.
type Suite struct {
	ID       string
	Name     string
	ParentID string
}

// suiteWire is the on-the-wire suite shape.
type suiteWire struct {
	ID     FlexInt `json:"id"`
	Name   string  `json:"name"`
	Parent *struct {
		ID FlexInt `json:"id"`
	} `json:"parentSuite"`
}

func (w *suiteWire) toSuite() Suite {
	s := Suite{
		ID:   strconv.Itoa(w.ID.Int()),
		Name: w.Name,
	}
	if w.Parent != nil && w.Parent.ID.Int() != 0 {
		s.ParentID = strconv.Itoa(w.Parent.ID.Int())
	}
	return s
}

// TestCaseRef identifies the test case a point or result targets.
type TestCaseRef struct {
	ID   FlexInt `json:"id"`
	Name string  `json:"name"`
}

// outcomeRef is any of the nested structures carrying only an outcome.
type outcomeRef struct {
	Outcome string `json:"outcome"`
}

// Point is one (test case x configuration) execution slot within a suite.
// The latest outcome may live in any of four places depending on the API
// revision; callers must probe them in a fixed order (see the testplan
// package).
type Point struct {
	ID       FlexInt     `json:"id"`
	TestCase TestCaseRef `json:"testCase"`
	Outcome  string      `json:"outcome"`
	Results  *outcomeRef `json:"mostRecentResult"`
	LastRun  *outcomeRef `json:"lastTestRun"`
	Details  *outcomeRef `json:"lastResultDetails"`
}

// DirectOutcome returns the point-level outcome field, which older
// revisions leave empty.
func (p *Point) DirectOutcome() string { return p.Outcome }

// MostRecentResultOutcome returns the outcome of the nested most-recent
// result, when present.
func (p *Point) MostRecentResultOutcome() string {
	if p.Results == nil {
		return ""
	}
	return p.Results.Outcome
}

// LastRunOutcome returns the outcome of the nested last test run; only some
// tenants expose it.
func (p *Point) LastRunOutcome() string {
	if p.LastRun == nil {
		return ""
	}
	return p.LastRun.Outcome
}

// LastResultDetailsOutcome returns the outcome from the last-result-details
// structure, the final fallback.
func (p *Point) LastResultDetailsOutcome() string {
	if p.Details == nil {
		return ""
	}
	return p.Details.Outcome
}

// Run is one execution session producing results.
type Run struct {
	ID              FlexInt   `json:"id"`
	Name            string    `json:"name"`
	IsAutomated     bool      `json:"isAutomated"`
	CreatedDate     time.Time `json:"createdDate"`
	LastUpdatedDate time.Time `json:"lastUpdatedDate"`
	CompletedDate   time.Time `json:"completedDate"`
	Plan            *struct {
		ID FlexInt `json:"id"`
	} `json:"plan"`
}

// sortStamp is the timestamp runs are ordered by, newest first.
func (r *Run) sortStamp() time.Time {
	if !r.LastUpdatedDate.IsZero() {
		return r.LastUpdatedDate
	}
	return r.CompletedDate
}

// Result is the outcome of one test case execution within a run. The
// referenced point arrives either as a nested testPoint reference or as a
// flat pointId field depending on the revision; PointRef unifies both.
type Result struct {
	ID            FlexInt      `json:"id"`
	Outcome       string       `json:"outcome"`
	State         string       `json:"state"`
	TestCase      *TestCaseRef `json:"testCase"`
	TestCaseTitle string       `json:"testCaseTitle"`
	TestPoint     *struct {
		ID FlexInt `json:"id"`
	} `json:"testPoint"`
	PointID       FlexInt   `json:"pointId"`
	StartedDate   time.Time `json:"startedDate"`
	CompletedDate time.Time `json:"completedDate"`
	DurationInMS  float64   `json:"durationInMs"`
	Priority      int       `json:"priority"`
	Owner         *struct {
		DisplayName string `json:"displayName"`
	} `json:"owner"`
	Configuration *struct {
		Name string `json:"name"`
	} `json:"configuration"`
}

// PointRef returns the referenced point id, preferring the nested testPoint
// reference over the flat field. The second return is false when neither
// form is present.
func (r *Result) PointRef() (int, bool) {
	if r.TestPoint != nil && r.TestPoint.ID.Int() != 0 {
		return r.TestPoint.ID.Int(), true
	}
	if r.PointID.Int() != 0 {
		return r.PointID.Int(), true
	}
	return 0, false
}

// Stamp returns the timestamp used to pick the latest result for a point.
func (r *Result) Stamp() time.Time {
	if !r.CompletedDate.IsZero() {
		return r.CompletedDate
	}
	return r.StartedDate
}

// OwnerName returns the result owner display name, when present.
func (r *Result) OwnerName() string {
	if r.Owner == nil {
		return ""
	}
	return r.Owner.DisplayName
}

// ConfigurationName returns the configuration name, when present.
func (r *Result) ConfigurationName() string {
	if r.Configuration == nil {
		return ""
	}
	return r.Configuration.Name
}

// WorkItem is a hydrated work item (a bug, for this tool's purposes).
type WorkItem struct {
	ID          int
	Type        string
	Title       string
	State       string
	Severity    string
	Tags        string
	AssignedTo  string
	CreatedDate time.Time
	ClosedDate  time.Time
}

// Closed reports whether the work item has a closed date.
func (w *WorkItem) Closed() bool {
	return !w.ClosedDate.IsZero()
}
