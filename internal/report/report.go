package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"olpipeline/internal/schema"
	"olpipeline/internal/store"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
)

const barWidth = 40

// WriteLoadReport prints the load summary, the tables of the pipeline schema,
// the columns of rootTable and its row count. rowErr replaces the count with a
// diagnostic line.
func WriteLoadReport(w io.Writer, info *store.LoadInfo, sc *schema.Schema, rootTable string, rowCount int64, rowErr error) error {
	var b strings.Builder
	if info != nil {
		b.WriteString(info.String())
		b.WriteString("\n\n")
	}

	b.WriteString("Tables in pipeline schema:\n")
	t := table.NewWriter()
	t.SetOutputMirror(&b)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"table", "parent", "columns"})
	for _, tbl := range sc.Tables {
		parent := tbl.Parent
		if parent == "" {
			parent = "-"
		}
		t.AppendRow(table.Row{tbl.Name, parent, len(tbl.Columns)})
	}
	t.Render()
	b.WriteString("\n")

	if tbl := sc.Table(rootTable); tbl != nil {
		cols, err := json.MarshalIndent(tbl.Columns, "", "  ")
		if err != nil {
			return fmt.Errorf("encode columns of %s: %w", rootTable, err)
		}
		fmt.Fprintf(&b, "Columns of `%s`:\n%s\n\n", rootTable, cols)
	} else {
		fmt.Fprintf(&b, "No `%s` table found in the schema.\n\n", rootTable)
	}

	if rowErr != nil {
		fmt.Fprintf(&b, "Could not determine row count for `%s`: %v\n", rootTable, rowErr)
	} else {
		fmt.Fprintf(&b, "Row count for `%s`: %d\n", rootTable, rowCount)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

type Bar struct {
	Label string
	Value int64
}

// Chart is a horizontal bar chart rendered as a table, largest value first.
type Chart struct {
	Title       string
	LabelHeader string
	ValueHeader string
	Bars        []Bar
}

func WriteBarChart(w io.Writer, c Chart) error {
	var b strings.Builder
	if c.Title != "" {
		b.WriteString(c.Title)
		b.WriteString("\n")
	}
	if len(c.Bars) == 0 {
		b.WriteString("(no rows)\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	bars := append([]Bar(nil), c.Bars...)
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Value > bars[j].Value })

	var max int64
	for _, bar := range bars {
		if bar.Value > max {
			max = bar.Value
		}
	}

	t := table.NewWriter()
	t.SetOutputMirror(&b)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"#", c.LabelHeader, c.ValueHeader, ""})
	for i, bar := range bars {
		t.AppendRow(table.Row{i + 1, bar.Label, bar.Value, barOf(bar.Value, max)})
	}
	t.Render()

	_, err := io.WriteString(w, b.String())
	return err
}

func barOf(v, max int64) string {
	if max <= 0 || v <= 0 {
		return ""
	}
	n := int(v * barWidth / max)
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}
