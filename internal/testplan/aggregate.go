package testplan

import (
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/qa-tooling/ado-testreport/internal/metrics"
	"github.com/qa-tooling/ado-testreport/pkg/azdo"
)

// DefaultRunLimit bounds the run/result backfill to the most-recently
// updated runs. Scanning the full run history would make large plans
// unusably slow for a marginal gain in outcome freshness.
const DefaultRunLimit = 50

// AggregatedTestCase is one deduplicated test case under a top-level suite.
type AggregatedTestCase struct {
	TestCaseID int
	Name       string
	Outcome    Outcome
	// Paths holds every distinct suite path where the case was observed,
	// sorted.
	Paths []string
}

// NumPaths returns the count of distinct observation paths.
func (a *AggregatedTestCase) NumPaths() int {
	return len(a.Paths)
}

// PathList renders the paths semicolon-joined for tabular output.
func (a *AggregatedTestCase) PathList() string {
	return strings.Join(a.Paths, "; ")
}

// SuiteReport holds the aggregated cases of one top-level suite, sorted by
// test case id.
type SuiteReport struct {
	PlanID       int
	TopSuiteID   string
	TopSuiteName string
	Cases        []AggregatedTestCase
}

// Aggregator drives the end-to-end aggregation for one plan.
type Aggregator struct {
	Client *azdo.Client

	// RunLimit caps how many recent runs feed the outcome backfill. Zero
	// means DefaultRunLimit; negative disables the backfill.
	RunLimit int
}

type bucket struct {
	name    string
	outcome Outcome
	paths   map[string]bool
}

type backfillEntry struct {
	outcome string
	stamp   time.Time
}

// Aggregate resolves the plan by name, fetches all suites and points, and
// returns one report per top-level suite. Plan resolution, suite listing and
// point fetches are mandatory: any failure aborts the run. The run/result
// backfill is best-effort and degrades to point-derived outcomes on failure.
func (a *Aggregator) Aggregate(planName string) ([]SuiteReport, error) {
	timers := metrics.NewTimers()
	defer func() { log.Infof("Aggregation timing: %s", timers.Summary()) }()

	timers.Start("resolve-plan")
	plan, err := a.Client.ResolvePlan(planName)
	timers.Stop("resolve-plan")
	if err != nil {
		return nil, err
	}

	timers.Start("suites")
	suites, err := a.Client.ListSuites(plan.ID)
	timers.Stop("suites")
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't list suites for plan %d", plan.ID)
	}
	hierarchy := NewHierarchy(suites)
	roots := hierarchy.Roots()
	names := make([]string, 0, len(roots))
	for _, r := range roots {
		names = append(names, r.Name)
	}
	log.Infof("Top-level suites: %s", strings.Join(names, ", "))

	timers.Start("backfill")
	backfill := a.collectBackfill(plan.ID)
	timers.Stop("backfill")

	// bucket map keyed by top-level suite id, then test case id.
	agg := make(map[string]map[int]*bucket, len(roots))
	for _, r := range roots {
		agg[r.ID] = make(map[int]*bucket)
	}

	timers.Start("points")
	for _, s := range suites {
		points, err := a.Client.ListPoints(plan.ID, s.ID)
		if err != nil {
			timers.Stop("points")
			return nil, errors.Wrapf(err, "couldn't list points for suite %s", s.ID)
		}
		if len(points) == 0 {
			continue
		}
		rootID, err := hierarchy.RootAncestor(s.ID)
		if err != nil {
			timers.Stop("points")
			return nil, err
		}
		path, err := hierarchy.Path(s.ID)
		if err != nil {
			timers.Stop("points")
			return nil, err
		}
		// A suite whose parent is outside the snapshot roots itself and is
		// not in the pre-allocated root set.
		buckets, ok := agg[rootID]
		if !ok {
			buckets = make(map[int]*bucket)
			agg[rootID] = buckets
		}

		for i := range points {
			p := &points[i]
			caseID := p.TestCase.ID.Int()
			if caseID == 0 {
				continue
			}
			raw := PointOutcome(p)
			if raw == "" {
				// Point fields carry nothing; fall back to the latest
				// result observed for this point in recent runs.
				if entry, ok := backfill[p.ID.Int()]; ok {
					raw = entry.outcome
				}
			}

			b, ok := buckets[caseID]
			if !ok {
				b = &bucket{paths: make(map[string]bool)}
				buckets[caseID] = b
			}
			if b.name == "" {
				b.name = p.TestCase.Name
			}
			b.outcome = Worse(b.outcome, ParseOutcome(raw))
			b.paths[path] = true
		}
	}
	timers.Stop("points")

	ids := make([]string, 0, len(agg))
	for id := range agg {
		ids = append(ids, id)
	}
	reports := make([]SuiteReport, 0, len(agg))
	for _, root := range withOrphanRoots(roots, ids, hierarchy) {
		report := SuiteReport{
			PlanID:       plan.ID,
			TopSuiteID:   root.ID,
			TopSuiteName: root.Name,
		}
		for caseID, b := range agg[root.ID] {
			paths := make([]string, 0, len(b.paths))
			for p := range b.paths {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			report.Cases = append(report.Cases, AggregatedTestCase{
				TestCaseID: caseID,
				Name:       b.name,
				Outcome:    b.outcome,
				Paths:      paths,
			})
		}
		sort.Slice(report.Cases, func(i, j int) bool {
			return report.Cases[i].TestCaseID < report.Cases[j].TestCaseID
		})
		log.Infof("Suite %q: %d unique test case(s)", root.Name, len(report.Cases))
		reports = append(reports, report)
	}
	return reports, nil
}

// withOrphanRoots extends the top-level suite list with self-rooted suites
// observed during aggregation, keeping input order for true roots and sorted
// id order for the rest.
func withOrphanRoots(roots []azdo.Suite, ids []string, h *Hierarchy) []azdo.Suite {
	seen := make(map[string]bool, len(roots))
	out := make([]azdo.Suite, 0, len(roots))
	for _, r := range roots {
		out = append(out, r)
		seen[r.ID] = true
	}
	extra := []string{}
	for _, id := range ids {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		if s, ok := h.Suite(id); ok {
			out = append(out, s)
		}
	}
	return out
}

// collectBackfill builds the latest observed outcome per point id from the
// most recent runs. Failures here never abort the aggregation: tenants that
// block the runs or results APIs still get point-derived outcomes.
func (a *Aggregator) collectBackfill(planID int) map[int]backfillEntry {
	limit := a.RunLimit
	if limit == 0 {
		limit = DefaultRunLimit
	}
	if limit < 0 {
		return nil
	}

	runs, err := a.Client.ListRuns(planID, nil)
	if err != nil {
		log.Warnf("Couldn't build backfill from runs/results: %v", err)
		return nil
	}
	if len(runs) > limit {
		runs = runs[:limit]
	}

	latest := map[int]backfillEntry{}
	for i := range runs {
		run := &runs[i]
		results, err := a.Client.ListResults(run.ID.Int())
		if err != nil {
			log.Warnf("Couldn't list results for run %d, skipping backfill for it: %v", run.ID.Int(), err)
			continue
		}
		for j := range results {
			res := &results[j]
			pointID, ok := res.PointRef()
			if !ok {
				continue
			}
			stamp := res.Stamp()
			if stamp.IsZero() {
				stamp = run.LastUpdatedDate
			}
			prev, seen := latest[pointID]
			if !seen || stamp.After(prev.stamp) {
				latest[pointID] = backfillEntry{outcome: res.Outcome, stamp: stamp}
			}
		}
	}
	log.Infof("Backfill map prepared for %d point(s) from %d recent run(s)", len(latest), len(runs))
	return latest
}
