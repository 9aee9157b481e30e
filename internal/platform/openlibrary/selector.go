package openlibrary

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// SelectRecords applies a JSONPath selector to a decoded response and returns the
// matched objects. A selector ending in [*] requires its container to be present
// and to be an array; a missing or null container is an error, not an empty page.
func SelectRecords(doc any, selector string) ([]map[string]any, error) {
	container := strings.TrimSuffix(selector, "[*]")
	v, err := jsonpath.Get(container, doc)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", selector, err)
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("select %s: %s is %T, want array", selector, container, v)
	}
	records := make([]map[string]any, 0, len(items))
	for i, item := range items {
		rec, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("select %s: item %d is %T, want object", selector, i, item)
		}
		records = append(records, rec)
	}
	return records, nil
}

// FileSource reads a saved search.json response instead of calling the API.
type FileSource struct {
	Path     string
	Selector string
}

func (s *FileSource) Fetch(ctx context.Context) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &FetchError{URL: "file://" + s.Path, Err: err}
	}
	doc, err := decodeJSON(body)
	if err != nil {
		return nil, &FetchError{URL: "file://" + s.Path, Err: err}
	}
	selector := s.Selector
	if selector == "" {
		selector = DocsSelector
	}
	records, err := SelectRecords(doc, selector)
	if err != nil {
		return nil, &FetchError{URL: "file://" + s.Path, Err: err}
	}
	return records, nil
}

func (s *FileSource) Describe() string {
	return "file://" + s.Path
}
