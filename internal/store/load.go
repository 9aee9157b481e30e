package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"olpipeline/internal/normalize"
	"olpipeline/internal/schema"
)

// Multi-row inserts stay under both limits.
const (
	maxInsertParams = 30000
	maxInsertRows   = 500
)

// LoadStatus values recorded in _dlt_loads.
const LoadStatusLoaded = 0

type LoadRequest struct {
	Pipeline string
	Package  *normalize.Package
	// State is the serialized pipeline state stored in _dlt_pipeline_state.
	State        []byte
	StateVersion int
	StateHash    string
}

// Load replaces the previous generation with req.Package in a single transaction.
// Either every statement commits or none does, so readers see the old generation
// or the new one.
func (s *Store) Load(ctx context.Context, req LoadRequest) (*LoadInfo, error) {
	if s.readOnly {
		return nil, &WriteError{Stage: "begin", Err: fmt.Errorf("store opened read-only")}
	}
	pkg := req.Package
	if pkg == nil || pkg.Schema == nil {
		return nil, &WriteError{Stage: "validate", Err: fmt.Errorf("empty load package")}
	}
	if err := pkg.Validate(); err != nil {
		return nil, &WriteError{Stage: "validate", Err: err}
	}

	info := &LoadInfo{
		Pipeline:      req.Pipeline,
		Destination:   s.dialect.Name,
		Location:      s.location,
		Dataset:       s.dataset,
		LoadID:        pkg.LoadID,
		SchemaName:    pkg.Schema.Name,
		SchemaVersion: pkg.Schema.Version,
		StartedAt:     time.Now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &WriteError{Stage: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.prepareDataset(ctx, tx); err != nil {
		return nil, err
	}

	prev, err := storedSchema(ctx, tx, s.dataset, pkg.Schema.Name)
	if err != nil {
		return nil, &WriteError{Stage: "read schema", Table: schema.VersionTable, Err: err}
	}
	if err := s.dropGeneration(ctx, tx, prev, pkg.Schema); err != nil {
		return nil, err
	}
	if err := s.clearSystemRows(ctx, tx, req.Pipeline, pkg.Schema.Name); err != nil {
		return nil, err
	}

	for _, tbl := range pkg.Schema.DataTables() {
		if len(tbl.Columns) == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, s.dialect.CreateTableSQL(s.dataset, tbl, false)); err != nil {
			return nil, &WriteError{Stage: "create", Table: tbl.Name, Err: err}
		}
		rows := pkg.Rows(tbl.Name)
		if err := s.insertRows(ctx, tx, tbl, rows); err != nil {
			return nil, err
		}
		info.RowCounts = append(info.RowCounts, TableCount{Table: tbl.Name, Rows: len(rows)})
	}

	if err := s.recordLoad(ctx, tx, req); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, &WriteError{Stage: "commit", Err: err}
	}
	info.FinishedAt = time.Now()
	return info, nil
}

func (s *Store) prepareDataset(ctx context.Context, tx *sql.Tx) error {
	if s.dataset != "" {
		if _, err := tx.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+QuoteIdent(s.dataset)); err != nil {
			return &WriteError{Stage: "create schema", Table: s.dataset, Err: err}
		}
	}
	for _, tbl := range schema.New("").Tables {
		if _, err := tx.ExecContext(ctx, s.dialect.CreateTableSQL(s.dataset, tbl, true)); err != nil {
			return &WriteError{Stage: "create", Table: tbl.Name, Err: err}
		}
	}
	return nil
}

// dropGeneration drops the data tables of both schemas, children before parents.
func (s *Store) dropGeneration(ctx context.Context, tx *sql.Tx, prev, next *schema.Schema) error {
	var names []string
	seen := make(map[string]bool)
	for _, sc := range []*schema.Schema{next, prev} {
		if sc == nil {
			continue
		}
		tables := sc.DataTables()
		for i := len(tables) - 1; i >= 0; i-- {
			if name := tables[i].Name; !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	for _, name := range names {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+Qualify(s.dataset, name)); err != nil {
			return &WriteError{Stage: "drop", Table: name, Err: err}
		}
	}
	return nil
}

func (s *Store) clearSystemRows(ctx context.Context, tx *sql.Tx, pipeline, schemaName string) error {
	deletes := []struct {
		table, column, value string
	}{
		{schema.StateTable, "pipeline_name", pipeline},
		{schema.VersionTable, "schema_name", schemaName},
		{schema.LoadsTable, "schema_name", schemaName},
	}
	for _, d := range deletes {
		q := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", Qualify(s.dataset, d.table), QuoteIdent(d.column))
		if _, err := tx.ExecContext(ctx, q, d.value); err != nil {
			return &WriteError{Stage: "delete", Table: d.table, Err: err}
		}
	}
	return nil
}

func (s *Store) recordLoad(ctx context.Context, tx *sql.Tx, req LoadRequest) error {
	pkg := req.Package
	now := time.Now().UTC()

	raw, err := json.Marshal(pkg.Schema)
	if err != nil {
		return &WriteError{Stage: "record", Table: schema.VersionTable, Err: err}
	}
	sys := schema.New("")

	records := []struct {
		table string
		row   normalize.Row
	}{
		{schema.VersionTable, normalize.Row{
			"version":        int64(pkg.Schema.Version),
			"engine_version": int64(pkg.Schema.EngineVersion),
			"inserted_at":    now,
			"schema_name":    pkg.Schema.Name,
			"version_hash":   pkg.Schema.VersionHash,
			"schema":         string(raw),
		}},
		{schema.StateTable, normalize.Row{
			"version":           int64(req.StateVersion),
			"engine_version":    int64(schema.EngineVersion),
			"pipeline_name":     req.Pipeline,
			"state":             string(req.State),
			"created_at":        now,
			"version_hash":      req.StateHash,
			schema.LoadIDColumn: pkg.LoadID,
			schema.RowIDColumn:  normalize.RowID(pkg.LoadID, schema.StateTable),
		}},
		{schema.LoadsTable, normalize.Row{
			"load_id":             pkg.LoadID,
			"schema_name":         pkg.Schema.Name,
			"status":              int64(LoadStatusLoaded),
			"inserted_at":         now,
			"schema_version_hash": pkg.Schema.VersionHash,
		}},
	}
	for _, r := range records {
		if err := s.insertRows(ctx, tx, sys.Table(r.table), []normalize.Row{r.row}); err != nil {
			return err
		}
	}
	return nil
}

// insertRows writes rows with chunked multi-row INSERT statements. Columns a row
// lacks are inserted as NULL.
func (s *Store) insertRows(ctx context.Context, tx *sql.Tx, tbl *schema.Table, rows []normalize.Row) error {
	if len(rows) == 0 {
		return nil
	}
	cols := make([]string, len(tbl.Columns))
	for i, c := range tbl.Columns {
		cols[i] = QuoteIdent(c.Name)
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", Qualify(s.dataset, tbl.Name), strings.Join(cols, ", "))

	perStmt := maxInsertParams / len(cols)
	if perStmt > maxInsertRows {
		perStmt = maxInsertRows
	}
	for start := 0; start < len(rows); start += perStmt {
		end := start + perStmt
		if end > len(rows) {
			end = len(rows)
		}
		var b strings.Builder
		b.WriteString(prefix)
		args := make([]any, 0, (end-start)*len(cols))
		for i, row := range rows[start:end] {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('(')
			for j, c := range tbl.Columns {
				if j > 0 {
					b.WriteString(", ")
				}
				args = append(args, row[c.Name])
				fmt.Fprintf(&b, "$%d", len(args))
			}
			b.WriteByte(')')
		}
		if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
			return &WriteError{Stage: "insert", Table: tbl.Name, Err: err}
		}
	}
	return nil
}
