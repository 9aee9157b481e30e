package analytics

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidLimit = errors.New("limit must be positive")

// GroupingSpec names a parent table, one of its child tables and the child
// column whose values are grouped.
type GroupingSpec struct {
	ParentTable string
	ChildTable  string
	KeyColumn   string
}

// AuthorGrouping groups books by the values of their author_name list.
var AuthorGrouping = GroupingSpec{
	ParentTable: "books",
	ChildTable:  "books__author_name",
	KeyColumn:   "value",
}

// GroupCount is one grouping key with the number of distinct parent rows carrying it.
// Null marks the group of child rows that have no key value.
type GroupCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
	Null  bool   `json:"null,omitempty"`
}

type TableInfo struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
	Rows   int64  `json:"rows"`
}

type AuthorCount struct {
	Author    *string `json:"author"`
	BookCount int64   `json:"book_count"`
}

// Name returns the author, or "(none)" for books whose author entry is null.
func (a AuthorCount) Name() string {
	if a.Author == nil {
		return "(none)"
	}
	return *a.Author
}

// TableNotFoundError reports tables that no resolution strategy could find.
type TableNotFoundError struct {
	Tables     []string
	Strategies []string
}

func (e *TableNotFoundError) Error() string {
	if len(e.Tables) == 0 {
		return fmt.Sprintf("no tables found (tried %s)", strings.Join(e.Strategies, ", "))
	}
	return fmt.Sprintf("tables %s not found (tried %s)",
		strings.Join(e.Tables, ", "), strings.Join(e.Strategies, ", "))
}
