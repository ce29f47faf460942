// Package workitems builds bug snapshots and burndown series from work item
// queries.
package workitems

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/qa-tooling/ado-testreport/pkg/azdo"
)

// preferredStateOrder puts the common states first in summaries; anything
// else follows alphabetically.
var preferredStateOrder = []string{"Closed", "Resolved", "Active", "New", "Deferred", "Duplicate", "Rejected"}

// StateCount is one state (or severity) bucket of a snapshot summary.
type StateCount struct {
	Name  string
	Count int
}

// Snapshot is the hydrated result of one bug query.
type Snapshot struct {
	Bugs []azdo.WorkItem
}

// Fetch runs the WIQL query and hydrates the matching work items.
func Fetch(client *azdo.Client, query *azdo.WorkItemQuery) (*Snapshot, error) {
	ids, err := client.QueryWorkItemIDs(query.WIQL())
	if err != nil {
		return nil, errors.Wrap(err, "work item query failed")
	}
	if len(ids) == 0 {
		log.Info("No work items matched the query")
		return &Snapshot{}, nil
	}
	bugs, err := client.GetWorkItems(ids, nil)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't hydrate work items")
	}
	return &Snapshot{Bugs: bugs}, nil
}

// HasTag reports whether the work item carries the tag, case-insensitive
// substring match over the semicolon-joined tag field.
func HasTag(wi *azdo.WorkItem, tag string) bool {
	if tag == "" {
		return false
	}
	return strings.Contains(strings.ToLower(wi.Tags), strings.ToLower(tag))
}

// States summarizes the snapshot by state, preferred states first. Items
// without a state count as "Unspecified" so the buckets always sum to the
// snapshot size.
func (s *Snapshot) States() []StateCount {
	return orderedCounts(s.count(func(wi *azdo.WorkItem) string {
		if wi.State == "" {
			return "Unspecified"
		}
		return wi.State
	}), preferredStateOrder)
}

// Severities summarizes the snapshot by severity. Severities sort by their
// leading number ("1 - Critical" before "2 - High"); unlabeled items go
// last as "Unspecified".
func (s *Snapshot) Severities() []StateCount {
	counts := s.count(func(wi *azdo.WorkItem) string {
		if wi.Severity == "" {
			return "Unspecified"
		}
		return wi.Severity
	})
	out := make([]StateCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, StateCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := severityRank(out[i].Name), severityRank(out[j].Name)
		if ri != rj {
			return ri < rj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (s *Snapshot) count(key func(*azdo.WorkItem) string) map[string]int {
	counts := map[string]int{}
	for i := range s.Bugs {
		counts[key(&s.Bugs[i])]++
	}
	return counts
}

func orderedCounts(counts map[string]int, preferred []string) []StateCount {
	out := []StateCount{}
	seen := map[string]bool{}
	for _, name := range preferred {
		if n, ok := counts[name]; ok {
			out = append(out, StateCount{Name: name, Count: n})
			seen[name] = true
		}
	}
	rest := []string{}
	for name := range counts {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		out = append(out, StateCount{Name: name, Count: counts[name]})
	}
	return out
}

// severityRank extracts the leading number of a severity label; unlabeled
// values rank last.
func severityRank(label string) int {
	n := 0
	digits := 0
	for _, r := range strings.TrimSpace(label) {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		digits++
	}
	if digits == 0 {
		return 999
	}
	return n
}
