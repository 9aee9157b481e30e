package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
	"numFound": 2,
	"start": 0,
	"docs": [
		{"key": "/works/OL1W", "title": "Learning Python", "author_name": ["Mark Lutz"], "first_publish_year": 1999},
		{"key": "/works/OL2W", "title": "Fluent Python", "author_name": ["Luciano Ramalho"]}
	]
}`

func newTestClient(t *testing.T, srv *httptest.Server, retries int) *Client {
	t.Helper()
	c, err := NewClient(srv.URL+"/", "olpipeline-test/1.0", 100, retries)
	require.NoError(t, err)
	c.httpClient.RetryWaitMin = 0
	c.httpClient.RetryWaitMax = 0
	return c
}

func TestClient_Search(t *testing.T) {
	var gotQuery, gotUA, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 0)
	records, err := c.Search(context.Background(), "python programming", 100)
	require.NoError(t, err)

	assert.Equal(t, "/search.json", gotPath)
	assert.Equal(t, "limit=100&q=python+programming", gotQuery)
	assert.Equal(t, "olpipeline-test/1.0", gotUA)
	require.Len(t, records, 2)
	assert.Equal(t, "Learning Python", records[0]["title"])
	assert.Equal(t, []interface{}{"Mark Lutz"}, records[0]["author_name"])
	assert.Equal(t, json.Number("1999"), records[0]["first_publish_year"])
}

func TestClient_SearchRejectsBadLimit(t *testing.T) {
	c, err := NewClient(DefaultBaseURL, "ua", 1, 0)
	require.NoError(t, err)

	_, err = c.Search(context.Background(), "q", 0)
	assert.Error(t, err)
	_, err = c.Search(context.Background(), "q", MaxPageSize+1)
	assert.Error(t, err)
}

func TestClient_SearchNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 2).Search(context.Background(), "q", 10)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
}

func TestClient_SearchRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	records, err := newTestClient(t, srv, 3).Search(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_SearchGivesUpAfterRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 1).Search(context.Background(), "q", 10)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusBadGateway, fe.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_SearchMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"docs": [`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 0).Search(context.Background(), "q", 10)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusOK, fe.StatusCode)
}

func TestClient_SearchMissingDocs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"numFound": 0}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 0).Search(context.Background(), "q", 10)
	var fe *FetchError
	assert.True(t, errors.As(err, &fe))
}

func TestSelectRecords(t *testing.T) {
	doc := map[string]interface{}{
		"docs": []interface{}{
			map[string]interface{}{"title": "a"},
			"not an object",
		},
	}
	_, err := SelectRecords(doc, DocsSelector)
	assert.Error(t, err)

	doc["docs"] = []interface{}{map[string]interface{}{"title": "a"}}
	records, err := SelectRecords(doc, DocsSelector)
	require.NoError(t, err)
	assert.Equal(t, "a", records[0]["title"])

	doc["docs"] = []interface{}{}
	records, err = SelectRecords(doc, DocsSelector)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSelectRecords_RejectsMissingContainer(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]interface{}
	}{
		{"missing docs", map[string]interface{}{"error": "upstream busy"}},
		{"null docs", map[string]interface{}{"numFound": 0, "docs": nil}},
		{"docs not an array", map[string]interface{}{"docs": map[string]interface{}{"title": "a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := SelectRecords(tt.doc, DocsSelector)
			assert.Error(t, err)
			assert.Nil(t, records)
		})
	}
}

func TestClient_SearchErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "upstream busy"}`))
	}))
	defer srv.Close()

	records, err := newTestClient(t, srv, 0).Search(context.Background(), "q", 10)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Nil(t, records)
}

func TestFileSource(t *testing.T) {
	p := filepath.Join(t.TempDir(), "search.json")
	require.NoError(t, os.WriteFile(p, []byte(sampleResponse), 0o644))

	src := &FileSource{Path: p}
	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = (&FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}).Fetch(context.Background())
	var fe *FetchError
	assert.True(t, errors.As(err, &fe))

	noDocs := filepath.Join(t.TempDir(), "error.json")
	require.NoError(t, os.WriteFile(noDocs, []byte(`{"error": "upstream busy"}`), 0o644))
	_, err = (&FileSource{Path: noDocs}).Fetch(context.Background())
	assert.True(t, errors.As(err, &fe))
}
