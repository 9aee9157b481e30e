package store

import (
	"fmt"
	"strings"
	"time"
)

type TableCount struct {
	Table string
	Rows  int
}

// LoadInfo summarizes a committed load.
type LoadInfo struct {
	Pipeline      string
	Destination   string
	Location      string
	Dataset       string
	LoadID        string
	SchemaName    string
	SchemaVersion int
	StartedAt     time.Time
	FinishedAt    time.Time
	RowCounts     []TableCount
}

func (i *LoadInfo) Elapsed() time.Duration {
	return i.FinishedAt.Sub(i.StartedAt)
}

func (i *LoadInfo) TotalRows() int {
	n := 0
	for _, c := range i.RowCounts {
		n += c.Rows
	}
	return n
}

func (i *LoadInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pipeline %s load step completed in %.2f seconds\n", i.Pipeline, i.Elapsed().Seconds())
	fmt.Fprintf(&b, "1 load package(s) were loaded to destination %s and into dataset %s\n", i.Destination, i.Dataset)
	fmt.Fprintf(&b, "The %s destination used %s location to store data\n", i.Destination, i.Location)
	fmt.Fprintf(&b, "Load package %s is LOADED and contains no failed jobs", i.LoadID)
	for _, c := range i.RowCounts {
		fmt.Fprintf(&b, "\n  %s: %d rows", c.Table, c.Rows)
	}
	return b.String()
}
