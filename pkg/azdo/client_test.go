package azdo

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(serverURL string) *Config {
	return &Config{
		Organization: serverURL,
		Project:      "Sample Project",
		Token:        "secret-pat",
		Timeout:      5 * time.Second,
	}
}

func TestClientAuthHeader(t *testing.T) {
	var gotAuth, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{"value":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.ListPlans()
	require.NoError(t, err)

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(":secret-pat"))
	assert.Equal(t, want, gotAuth)
	assert.Equal(t, "application/json", gotAccept)
}

func TestClientProjectEscaping(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{"value":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.ListPlans()
	require.NoError(t, err)
	assert.Equal(t, "/Sample%20Project/_apis/testplan/plans", gotPath)
}

func TestClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"boom"}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.getCollection(client.config.projectURL("/_apis/testplan/plans"), "7.1-preview.1", nil)
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T", err)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "boom")
	assert.False(t, apiErr.IsAuth())
}

func TestNewClientValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{name: "missing org", cfg: Config{Project: "p", Token: "t"}},
		{name: "missing project", cfg: Config{Organization: "o", Token: "t"}},
		{name: "missing token", cfg: Config{Organization: "o", Project: "p"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClient(&tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestExtractValue(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{name: "wrapper object", body: `{"count":2,"value":[{"id":1},{"id":2}]}`, want: 2},
		{name: "bare array", body: `[{"id":1}]`, want: 1},
		{name: "missing key", body: `{"count":0}`, want: 0},
		{name: "single object under key", body: `{"value":{"id":1}}`, want: 1},
		{name: "not JSON", body: `<html>error</html>`, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := extractValue([]byte(tc.body), "value")
			assert.Len(t, got, tc.want)
		})
	}
}
