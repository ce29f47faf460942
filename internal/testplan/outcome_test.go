package testplan

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qa-tooling/ado-testreport/pkg/azdo"
)

func TestReconcile(t *testing.T) {
	cases := []struct {
		name string
		raw  []string
		want Outcome
	}{
		{name: "empty", raw: nil, want: OutcomeNeverRun},
		{name: "single passed", raw: []string{"Passed"}, want: OutcomePassed},
		{name: "failed dominates passed", raw: []string{"Passed", "Failed"}, want: OutcomeFailed},
		{name: "blocked dominates active", raw: []string{"Active", "Blocked"}, want: OutcomeBlocked},
		{name: "paused dominates not applicable", raw: []string{"NotApplicable", "Paused"}, want: OutcomePaused},
		{name: "passed dominates empty", raw: []string{"", "Passed"}, want: OutcomePassed},
		{name: "unknown strings rank lowest", raw: []string{"SomeFutureStatus", "Passed"}, want: OutcomePassed},
		{name: "none literal ranks lowest", raw: []string{"None", "NeverRun"}, want: OutcomeNeverRun},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Reconcile(tc.raw))
		})
	}
}

func TestReconcilePermutationInvariant(t *testing.T) {
	raw := []string{"Passed", "Failed", "", "Active", "Blocked", "Paused", "NotApplicable", "bogus"}
	want := Reconcile(raw)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		shuffled := append([]string{}, raw...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, want, Reconcile(shuffled))
	}
}

func TestWorse(t *testing.T) {
	assert.Equal(t, OutcomeFailed, Worse(OutcomeFailed, OutcomePassed))
	assert.Equal(t, OutcomeFailed, Worse(OutcomePassed, OutcomeFailed))
	assert.Equal(t, OutcomeBlocked, Worse(OutcomeBlocked, OutcomeBlocked))
	assert.Equal(t, OutcomePassed, Worse(OutcomeNeverRun, OutcomePassed))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "Failed", OutcomeFailed.String())
	assert.Equal(t, "NeverRun", OutcomeNeverRun.String())
	assert.Equal(t, "NeverRun", Outcome(99).String())
}

func TestPointOutcomeExtractionOrder(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "direct outcome wins",
			body: `{"outcome":"Passed","mostRecentResult":{"outcome":"Failed"}}`,
			want: "Passed",
		},
		{
			name: "most recent result second",
			body: `{"mostRecentResult":{"outcome":"Failed"},"lastTestRun":{"outcome":"Passed"}}`,
			want: "Failed",
		},
		{
			name: "last test run third",
			body: `{"lastTestRun":{"outcome":"Blocked"},"lastResultDetails":{"outcome":"Passed"}}`,
			want: "Blocked",
		},
		{
			name: "last result details fourth",
			body: `{"lastResultDetails":{"outcome":"Paused"}}`,
			want: "Paused",
		},
		{
			name: "nothing set",
			body: `{}`,
			want: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p azdo.Point
			require.NoError(t, json.Unmarshal([]byte(tc.body), &p))
			assert.Equal(t, tc.want, PointOutcome(&p))
		})
	}
}
