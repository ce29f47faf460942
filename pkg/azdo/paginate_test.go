package azdo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPaginatedVersionFallback(t *testing.T) {
	// Version A always errors; version B serves two pages linked by a
	// continuation token. The client must return only B's pages.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("api-version") {
		case "7.1-preview.2":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"unsupported"}`))
		case "7.0":
			if r.URL.Query().Get("continuationToken") == "" {
				w.Header().Set("X-MS-ContinuationToken", "page2")
				w.Write([]byte(`{"value":[{"id":1},{"id":2}]}`))
				return
			}
			assert.Equal(t, "page2", r.URL.Query().Get("continuationToken"))
			w.Write([]byte(`{"value":[{"id":3}]}`))
		default:
			t.Errorf("unexpected api-version %q", r.URL.Query().Get("api-version"))
		}
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	items, err := client.getPaginated(client.config.projectURL("/_apis/test/points"), []string{"7.1-preview.2", "7.0"}, nil)
	require.NoError(t, err)
	require.Len(t, items, 3)

	ids := []int{}
	for _, raw := range items {
		var item struct {
			ID int `json:"id"`
		}
		require.NoError(t, json.Unmarshal(raw, &item))
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []int{1, 2, 3}, ids)
}

func TestGetPaginatedAbandonsPartialPages(t *testing.T) {
	// Version A serves one good page and then errors; its partial result
	// must be discarded before version B is tried.
	calls := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version := r.URL.Query().Get("api-version")
		calls[version]++
		switch version {
		case "7.1-preview.2":
			if r.URL.Query().Get("continuationToken") == "" {
				w.Header().Set("X-MS-ContinuationToken", "next")
				w.Write([]byte(`{"value":[{"id":100}]}`))
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
		case "7.0":
			w.Write([]byte(`{"value":[{"id":1}]}`))
		}
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	items, err := client.getPaginated(client.config.projectURL("/_apis/test/points"), []string{"7.1-preview.2", "7.0"}, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.JSONEq(t, `{"id":1}`, string(items[0]))
	assert.Equal(t, 2, calls["7.1-preview.2"])
	assert.Equal(t, 1, calls["7.0"])
}

func TestGetPaginatedAllVersionsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"no dice"}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.getPaginated(client.config.projectURL("/_apis/test/points"), []string{"7.1-preview.2", "7.0"}, nil)
	require.Error(t, err)

	fallbackErr, ok := err.(*VersionFallbackError)
	require.True(t, ok, "expected *VersionFallbackError, got %T", err)
	assert.Equal(t, []string{"7.1-preview.2", "7.0"}, fallbackErr.Versions)

	apiErr, ok := fallbackErr.LastErr.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestGetPaginatedAuthShortCircuit(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"bad token"}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.getPaginated(client.config.projectURL("/_apis/test/points"), []string{"7.1-preview.2", "7.0"}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls, "credential rejection must not trigger version fallback")
}
