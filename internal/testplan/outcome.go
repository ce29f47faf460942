// Package testplan aggregates test points and results into one reconciled
// row per (top-level suite, test case).
package testplan

import (
	"github.com/qa-tooling/ado-testreport/pkg/azdo"
)

// Outcome is a test case status with a total precedence order. Higher values
// are worse; reconciliation keeps the worst status observed anywhere so an
// unresolved failure is never hidden behind a stale pass.
type Outcome int

const (
	// OutcomeNeverRun is the sentinel for empty, unset or unrecognized
	// statuses. Unknown strings deliberately rank lowest, matching how the
	// service reports never-executed points.
	OutcomeNeverRun Outcome = iota
	OutcomePassed
	OutcomeNotApplicable
	OutcomeActive
	OutcomePaused
	OutcomeBlocked
	OutcomeFailed
)

var outcomeNames = map[Outcome]string{
	OutcomeNeverRun:      "NeverRun",
	OutcomePassed:        "Passed",
	OutcomeNotApplicable: "NotApplicable",
	OutcomeActive:        "Active",
	OutcomePaused:        "Paused",
	OutcomeBlocked:       "Blocked",
	OutcomeFailed:        "Failed",
}

var outcomeByName = map[string]Outcome{
	"Passed":        OutcomePassed,
	"NotApplicable": OutcomeNotApplicable,
	"Active":        OutcomeActive,
	"Paused":        OutcomePaused,
	"Blocked":       OutcomeBlocked,
	"Failed":        OutcomeFailed,
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "NeverRun"
}

// ParseOutcome maps a raw status string to an Outcome. Empty, "None",
// "NeverRun" and unrecognized strings all map to the lowest precedence.
func ParseOutcome(raw string) Outcome {
	if o, ok := outcomeByName[raw]; ok {
		return o
	}
	return OutcomeNeverRun
}

// Worse returns the argument with higher precedence; on ties the first wins.
func Worse(a, b Outcome) Outcome {
	if a >= b {
		return a
	}
	return b
}

// Reconcile folds Worse over raw status strings starting from the lowest
// sentinel. It is commutative and associative: any permutation of the same
// observations reconciles to the same Outcome. An empty sequence reconciles
// to NeverRun.
func Reconcile(raw []string) Outcome {
	out := OutcomeNeverRun
	for _, r := range raw {
		out = Worse(out, ParseOutcome(r))
	}
	return out
}

// PointOutcome extracts the raw outcome string of a point. Revisions of the
// points API carry it in different places; the first non-empty field wins,
// probed in this exact order: the direct outcome, the most recent result,
// the last test run, the last result details.
func PointOutcome(p *azdo.Point) string {
	if o := p.DirectOutcome(); o != "" {
		return o
	}
	if o := p.MostRecentResultOutcome(); o != "" {
		return o
	}
	if o := p.LastRunOutcome(); o != "" {
		return o
	}
	return p.LastResultDetailsOutcome()
}
