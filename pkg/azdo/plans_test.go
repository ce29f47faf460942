package azdo

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
}

func TestResolvePlan(t *testing.T) {
	plans := `{"value":[
		{"id":1,"name":"Regression Suite 2025"},
		{"id":2,"name":"UAT 1"},
		{"id":3,"name":"uat 1 - archived"}
	]}`

	cases := []struct {
		name    string
		lookup  string
		wantID  int
		wantErr bool
	}{
		{name: "exact case-insensitive beats substring", lookup: "uat 1", wantID: 2},
		{name: "substring when no exact", lookup: "regression", wantID: 1},
		{name: "trims whitespace", lookup: "  UAT 1  ", wantID: 2},
		{name: "not found", lookup: "smoke", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := planServer(t, plans)
			defer server.Close()
			client, err := NewClient(testConfig(server.URL))
			require.NoError(t, err)

			plan, err := client.ResolvePlan(tc.lookup)
			if tc.wantErr {
				require.Error(t, err)
				_, ok := err.(*NotFoundError)
				assert.True(t, ok, "expected *NotFoundError, got %T", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantID, plan.ID)
		})
	}
}

func TestListSuitesNormalization(t *testing.T) {
	body := `{"value":[
		{"id":10,"name":"Root"},
		{"id":11,"name":"Child","parentSuite":{"id":10}},
		{"id":"12","name":"Grandchild","parentSuite":{"id":"11"}}
	]}`
	server := planServer(t, body)
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	suites, err := client.ListSuites(7)
	require.NoError(t, err)
	require.Len(t, suites, 3)

	assert.Equal(t, Suite{ID: "10", Name: "Root"}, suites[0])
	assert.Equal(t, Suite{ID: "11", Name: "Child", ParentID: "10"}, suites[1])
	assert.Equal(t, Suite{ID: "12", Name: "Grandchild", ParentID: "11"}, suites[2])
}

func TestListRunsSortedNewestFirst(t *testing.T) {
	body := `{"value":[
		{"id":1,"name":"old","lastUpdatedDate":"2025-06-01T10:00:00Z"},
		{"id":2,"name":"new","lastUpdatedDate":"2025-06-03T10:00:00Z"},
		{"id":3,"name":"completed only","completedDate":"2025-06-02T10:00:00Z"}
	]}`
	server := planServer(t, body)
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	runs, err := client.ListRuns(7, nil)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, 2, runs[0].ID.Int())
	assert.Equal(t, 3, runs[1].ID.Int())
	assert.Equal(t, 1, runs[2].ID.Int())
}

func TestListRunsWindowParams(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"planId": r.URL.Query().Get("planId"),
			"min":    r.URL.Query().Get("minLastUpdatedDate"),
			"max":    r.URL.Query().Get("maxLastUpdatedDate"),
		}
		w.Write([]byte(`{"value":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	window := &DateWindow{
		Min: mustTime(t, "2025-06-01T00:00:00Z"),
		Max: mustTime(t, "2025-06-30T00:00:00Z"),
	}
	_, err = client.ListRuns(7, window)
	require.NoError(t, err)

	assert.Equal(t, "7", gotQuery["planId"])
	assert.Equal(t, "2025-06-01T00:00:00Z", gotQuery["min"])
	assert.Equal(t, "2025-06-30T00:00:00Z", gotQuery["max"])
}
