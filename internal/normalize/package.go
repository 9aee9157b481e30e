package normalize

import (
	"fmt"
	"time"

	"olpipeline/internal/schema"
)

// Row is one flattened record keyed by destination column name.
type Row map[string]any

type TableRows struct {
	Table string
	Rows  []Row
}

// Package is everything one run loads: a generation's rows plus the schema describing them.
type Package struct {
	LoadID string
	Schema *schema.Schema
	Tables []*TableRows
}

// NewLoadID formats t the way load ids are recorded in _dlt_loads.
func NewLoadID(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/1000)
}

func (p *Package) Rows(table string) []Row {
	if tr := p.table(table); tr != nil {
		return tr.Rows
	}
	return nil
}

// RowCounts returns the number of rows per table, in load order.
func (p *Package) RowCounts() map[string]int {
	out := make(map[string]int, len(p.Tables))
	for _, tr := range p.Tables {
		out[tr.Table] = len(tr.Rows)
	}
	return out
}

func (p *Package) TotalRows() int {
	n := 0
	for _, tr := range p.Tables {
		n += len(tr.Rows)
	}
	return n
}

// Validate checks that row ids are unique and every child row points at exactly one
// row of its parent table.
func (p *Package) Validate() error {
	ids := make(map[string]map[string]bool, len(p.Tables))
	for _, tr := range p.Tables {
		seen := make(map[string]bool, len(tr.Rows))
		for i, row := range tr.Rows {
			id, ok := row[schema.RowIDColumn].(string)
			if !ok || id == "" {
				return fmt.Errorf("table %s row %d: missing %s", tr.Table, i, schema.RowIDColumn)
			}
			if seen[id] {
				return fmt.Errorf("table %s: duplicate %s %q", tr.Table, schema.RowIDColumn, id)
			}
			seen[id] = true
		}
		ids[tr.Table] = seen
	}

	for _, tr := range p.Tables {
		tbl := p.Schema.Table(tr.Table)
		if tbl == nil {
			return fmt.Errorf("table %s missing from schema %s", tr.Table, p.Schema.Name)
		}
		if tbl.Parent == "" {
			continue
		}
		parents := ids[tbl.Parent]
		for i, row := range tr.Rows {
			pid, _ := row[schema.ParentIDColumn].(string)
			if !parents[pid] {
				return fmt.Errorf("table %s row %d: %s %q has no row in %s",
					tr.Table, i, schema.ParentIDColumn, pid, tbl.Parent)
			}
		}
	}
	return nil
}

func (p *Package) table(name string) *TableRows {
	for _, tr := range p.Tables {
		if tr.Table == name {
			return tr
		}
	}
	return nil
}

func (p *Package) appendRow(table string, row Row) {
	tr := p.table(table)
	if tr == nil {
		tr = &TableRows{Table: table}
		p.Tables = append(p.Tables, tr)
	}
	tr.Rows = append(tr.Rows, row)
}
