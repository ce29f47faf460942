package testplan

import (
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/qa-tooling/ado-testreport/pkg/azdo"
)

// ResultRow is one test result enriched with plan, top-suite and run
// context, the flat record shape consumed by downstream report generators.
type ResultRow struct {
	PlanID        int
	TopSuiteID    string
	TopSuiteName  string
	RunID         int
	RunName       string
	Automated     bool
	ResultID      int
	Outcome       string
	State         string
	TestCaseID    int
	TestCaseName  string
	PointID       int
	SuitePath     string
	Configuration string
	Owner         string
	Priority      int
	StartedDate   time.Time
	CompletedDate time.Time
	DurationInMS  float64
}

// DurationStats summarizes result durations of one top-level suite.
type DurationStats struct {
	Count    int
	MeanMS   float64
	MedianMS float64
	P95MS    float64
}

// ResultsReport holds the enriched result rows of one top-level suite.
type ResultsReport struct {
	TopSuiteID   string
	TopSuiteName string
	Rows         []ResultRow
	Durations    DurationStats
}

// CollectResults resolves the plan, maps every point to its top-level suite,
// then walks the plan's runs (optionally bounded to a last-updated window)
// attributing each result to the top-level suite of its point. Results whose
// point is not part of the plan snapshot are dropped.
func (a *Aggregator) CollectResults(planName string, window *azdo.DateWindow) ([]ResultsReport, error) {
	plan, err := a.Client.ResolvePlan(planName)
	if err != nil {
		return nil, err
	}
	suites, err := a.Client.ListSuites(plan.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't list suites for plan %d", plan.ID)
	}
	hierarchy := NewHierarchy(suites)

	// point id -> owning top-level suite id, and suite paths for context.
	pointToTop := map[int]string{}
	pointToPath := map[int]string{}
	for _, s := range suites {
		points, err := a.Client.ListPoints(plan.ID, s.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't list points for suite %s", s.ID)
		}
		if len(points) == 0 {
			continue
		}
		rootID, err := hierarchy.RootAncestor(s.ID)
		if err != nil {
			return nil, err
		}
		path, err := hierarchy.Path(s.ID)
		if err != nil {
			return nil, err
		}
		for i := range points {
			id := points[i].ID.Int()
			pointToTop[id] = rootID
			pointToPath[id] = path
		}
	}

	runs, err := a.Client.ListRuns(plan.ID, window)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't list runs for plan %d", plan.ID)
	}

	rowsByTop := map[string][]ResultRow{}
	for i := range runs {
		run := &runs[i]
		results, err := a.Client.ListResults(run.ID.Int())
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't list results for run %d", run.ID.Int())
		}
		for j := range results {
			res := &results[j]
			pointID, ok := res.PointRef()
			if !ok {
				continue
			}
			topID, ok := pointToTop[pointID]
			if !ok {
				continue
			}
			row := ResultRow{
				PlanID:        plan.ID,
				TopSuiteID:    topID,
				RunID:         run.ID.Int(),
				RunName:       run.Name,
				Automated:     run.IsAutomated,
				ResultID:      res.ID.Int(),
				Outcome:       res.Outcome,
				State:         res.State,
				PointID:       pointID,
				SuitePath:     pointToPath[pointID],
				Configuration: res.ConfigurationName(),
				Owner:         res.OwnerName(),
				Priority:      res.Priority,
				StartedDate:   res.StartedDate,
				CompletedDate: res.CompletedDate,
				DurationInMS:  res.DurationInMS,
			}
			if top, ok := hierarchy.Suite(topID); ok {
				row.TopSuiteName = top.Name
			}
			if res.TestCase != nil {
				row.TestCaseID = res.TestCase.ID.Int()
				row.TestCaseName = res.TestCase.Name
			}
			if row.TestCaseName == "" {
				row.TestCaseName = res.TestCaseTitle
			}
			rowsByTop[topID] = append(rowsByTop[topID], row)
		}
	}

	ids := make([]string, 0, len(rowsByTop))
	for id := range rowsByTop {
		ids = append(ids, id)
	}
	reports := make([]ResultsReport, 0, len(rowsByTop))
	for _, root := range withOrphanRoots(hierarchy.Roots(), ids, hierarchy) {
		rows := rowsByTop[root.ID]
		report := ResultsReport{
			TopSuiteID:   root.ID,
			TopSuiteName: root.Name,
			Rows:         rows,
			Durations:    durationStats(rows),
		}
		log.Infof("Suite %q: %d result row(s)", root.Name, len(rows))
		reports = append(reports, report)
	}
	return reports, nil
}

// durationStats computes duration summaries over the rows that carry a
// duration.
func durationStats(rows []ResultRow) DurationStats {
	durations := []float64{}
	for i := range rows {
		if rows[i].DurationInMS > 0 {
			durations = append(durations, rows[i].DurationInMS)
		}
	}
	ds := DurationStats{Count: len(durations)}
	if len(durations) == 0 {
		return ds
	}
	ds.MeanMS, _ = stats.Mean(durations)
	ds.MedianMS, _ = stats.Median(durations)
	ds.P95MS, _ = stats.Percentile(durations, 95)
	return ds
}
