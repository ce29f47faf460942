package azdo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestResultPointRef(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		wantID int
		wantOK bool
	}{
		{name: "nested testPoint", body: `{"id":1,"testPoint":{"id":55}}`, wantID: 55, wantOK: true},
		{name: "nested testPoint as string", body: `{"id":1,"testPoint":{"id":"55"}}`, wantID: 55, wantOK: true},
		{name: "flat pointId", body: `{"id":1,"pointId":66}`, wantID: 66, wantOK: true},
		{name: "nested wins over flat", body: `{"id":1,"testPoint":{"id":55},"pointId":66}`, wantID: 55, wantOK: true},
		{name: "neither", body: `{"id":1}`, wantOK: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var r Result
			require.NoError(t, json.Unmarshal([]byte(tc.body), &r))
			id, ok := r.PointRef()
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.wantID, id)
			}
		})
	}
}

func TestResultStamp(t *testing.T) {
	completed := `{"startedDate":"2025-06-01T10:00:00Z","completedDate":"2025-06-01T11:00:00Z"}`
	startedOnly := `{"startedDate":"2025-06-01T10:00:00Z"}`

	var r Result
	require.NoError(t, json.Unmarshal([]byte(completed), &r))
	assert.Equal(t, mustTime(t, "2025-06-01T11:00:00Z"), r.Stamp())

	r = Result{}
	require.NoError(t, json.Unmarshal([]byte(startedOnly), &r))
	assert.Equal(t, mustTime(t, "2025-06-01T10:00:00Z"), r.Stamp())
}

func TestPointOutcomeFields(t *testing.T) {
	body := `{
		"id": 9,
		"testCase": {"id": "42", "name": "Login works"},
		"mostRecentResult": {"outcome": "Failed"},
		"lastResultDetails": {"outcome": "Passed"}
	}`
	var p Point
	require.NoError(t, json.Unmarshal([]byte(body), &p))

	assert.Equal(t, 9, p.ID.Int())
	assert.Equal(t, 42, p.TestCase.ID.Int())
	assert.Equal(t, "Login works", p.TestCase.Name)
	assert.Equal(t, "", p.DirectOutcome())
	assert.Equal(t, "Failed", p.MostRecentResultOutcome())
	assert.Equal(t, "", p.LastRunOutcome())
	assert.Equal(t, "Passed", p.LastResultDetailsOutcome())
}

func TestFlexInt(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{name: "number", body: `7`, want: 7},
		{name: "quoted", body: `"7"`, want: 7},
		{name: "null", body: `null`, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var f FlexInt
			require.NoError(t, json.Unmarshal([]byte(tc.body), &f))
			assert.Equal(t, tc.want, f.Int())
		})
	}
}
