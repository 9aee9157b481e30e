package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"olpipeline/internal/schema"
	"olpipeline/internal/store"
)

// Reader answers read-only questions about a loaded dataset.
type Reader struct {
	db         *sql.DB
	strategies []Strategy
}

func NewReader(db *sql.DB, strategies ...Strategy) *Reader {
	return &Reader{db: db, strategies: strategies}
}

// ResolveTables returns the first resolution under which every table exists.
func (r *Reader) ResolveTables(ctx context.Context, tables ...string) (Resolution, error) {
	tried := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		tried = append(tried, s.Name())
		res, err := s.Resolve(ctx, r.db)
		if err != nil {
			return Resolution{}, err
		}
		existing, err := r.tablesIn(ctx, res.Schema)
		if err != nil {
			return Resolution{}, err
		}
		if containsAll(existing, tables) {
			return res, nil
		}
	}
	return Resolution{}, &TableNotFoundError{Tables: tables, Strategies: tried}
}

// TopNByGroupingKey counts distinct parent rows per child key value and returns
// the n largest groups. Ties are broken by key so results are stable. Child rows
// without a value form their own group, sorted after equal counts.
func (r *Reader) TopNByGroupingKey(ctx context.Context, spec GroupingSpec, n int) ([]GroupCount, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	res, err := r.ResolveTables(ctx, spec.ParentTable, spec.ChildTable)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`SELECT CAST(c.%[1]s AS VARCHAR) AS group_key, COUNT(DISTINCT p.%[2]s) AS group_count
FROM %[3]s AS p
JOIN %[4]s AS c ON c.%[5]s = p.%[2]s
GROUP BY c.%[1]s
ORDER BY group_count DESC, group_key ASC NULLS LAST
LIMIT $1`,
		store.QuoteIdent(spec.KeyColumn),
		store.QuoteIdent(schema.RowIDColumn),
		res.Ref(spec.ParentTable),
		res.Ref(spec.ChildTable),
		store.QuoteIdent(schema.ParentIDColumn),
	)

	rows, err := r.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("top %d %s by %s: %w", n, spec.ParentTable, spec.ChildTable, err)
	}
	defer rows.Close()

	out := make([]GroupCount, 0, n)
	for rows.Next() {
		var key sql.NullString
		var gc GroupCount
		if err := rows.Scan(&key, &gc.Count); err != nil {
			return nil, err
		}
		gc.Key, gc.Null = key.String, !key.Valid
		out = append(out, gc)
	}
	return out, rows.Err()
}

// ListTables lists the tables of the first strategy that finds any, with row counts.
func (r *Reader) ListTables(ctx context.Context) ([]TableInfo, error) {
	tried := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		tried = append(tried, s.Name())
		res, err := s.Resolve(ctx, r.db)
		if err != nil {
			return nil, err
		}
		names, err := r.tablesIn(ctx, res.Schema)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			continue
		}

		out := make([]TableInfo, 0, len(names))
		for _, name := range names {
			var n int64
			if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+res.Ref(name)).Scan(&n); err != nil {
				return nil, fmt.Errorf("count rows in %s: %w", name, err)
			}
			out = append(out, TableInfo{Schema: res.Schema, Name: name, Rows: n})
		}
		return out, nil
	}
	return nil, &TableNotFoundError{Strategies: tried}
}

func (r *Reader) tablesIn(ctx context.Context, schemaName string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = $1", schemaName)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", schemaName, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, rows.Err()
}

func containsAll(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}
