package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"olpipeline/internal/normalize"
	"olpipeline/internal/schema"

	"github.com/stretchr/testify/require"
)

// ThreeBookSearch is a search.json response with three records: the first has
// two authors, the second one, the third none.
const ThreeBookSearch = `{
	"numFound": 3,
	"start": 0,
	"q": "python programming",
	"docs": [
		{"key": "/works/OL1W", "title": "Python 101", "author_name": ["Ann", "Bo"], "first_publish_year": 2001, "language": ["eng"]},
		{"key": "/works/OL2W", "title": "More Python", "author_name": ["Ann"], "first_publish_year": 2005},
		{"key": "/works/OL3W", "title": "Anonymous Python", "author_name": []}
	]
}`

// Records decodes the docs of a search.json body the way the client does.
func Records(t *testing.T, body string) []map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var doc struct {
		Docs []map[string]any `json:"docs"`
	}
	require.NoError(t, dec.Decode(&doc))
	return doc.Docs
}

// NewPackage normalizes records into the books table under a fresh schema.
func NewPackage(t *testing.T, loadID string, records []map[string]any) *normalize.Package {
	t.Helper()
	pkg, err := normalize.New(schema.New("open_library"), schema.Naming{}).Normalize(loadID, "books", records)
	require.NoError(t, err)
	return pkg
}

// AuthorRecords builds one record per entry, each listing the given authors.
func AuthorRecords(authors ...[]string) []map[string]any {
	out := make([]map[string]any, 0, len(authors))
	for i, names := range authors {
		list := make([]any, len(names))
		for j, n := range names {
			list[j] = n
		}
		out = append(out, map[string]any{
			"key":         "/works/OL" + strings.Repeat("9", i+1) + "W",
			"author_name": list,
		})
	}
	return out
}

// NewSearchServer serves body for every request. The returned func reports the hit count.
func NewSearchServer(t *testing.T, status int, body string) (*httptest.Server, func() int) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, func() int { return int(atomic.LoadInt32(&hits)) }
}

// NewRequest creates a new HTTP request for testing
func NewRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	var r *http.Request
	if bodyBytes != nil {
		r = httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	return r
}

// RecordResponse records the HTTP response for testing
type RecordResponse struct {
	Code   int
	Header http.Header
	Body   map[string]interface{}
}

// RecordHTTPResponse records the HTTP response
func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, _ := io.ReadAll(result.Body)

	var bodyMap map[string]interface{}
	if len(bodyBytes) > 0 {
		_ = json.NewDecoder(bytes.NewReader(bodyBytes)).Decode(&bodyMap)
	}

	return RecordResponse{
		Code:   result.StatusCode,
		Header: result.Header,
		Body:   bodyMap,
	}
}

// ErrorCode returns error.code from a JSON error envelope, or "".
func (r RecordResponse) ErrorCode() string {
	e, ok := r.Body["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := e["code"].(string)
	return code
}
