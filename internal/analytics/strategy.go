package analytics

import (
	"context"
	"database/sql"
	"fmt"

	"olpipeline/internal/store"
)

// Strategy decides which schema to look in and how to reference tables there.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, db *sql.DB) (Resolution, error)
}

// Resolution is where a strategy looks for tables.
type Resolution struct {
	Strategy string
	Schema   string
	qualify  bool
}

// Ref renders a table reference for SQL.
func (r Resolution) Ref(table string) string {
	if r.qualify {
		return store.Qualify(r.Schema, table)
	}
	return store.QuoteIdent(table)
}

type schemaScoped struct {
	schema string
}

// SchemaScoped looks for tables in the named dataset schema and qualifies every reference.
func SchemaScoped(schema string) Strategy {
	return schemaScoped{schema: schema}
}

func (s schemaScoped) Name() string {
	return fmt.Sprintf("schema %q", s.schema)
}

func (s schemaScoped) Resolve(ctx context.Context, db *sql.DB) (Resolution, error) {
	return Resolution{Strategy: s.Name(), Schema: s.schema, qualify: true}, nil
}

type unqualified struct{}

// Unqualified uses the connection's current schema and leaves references bare.
func Unqualified() Strategy {
	return unqualified{}
}

func (unqualified) Name() string {
	return "current schema"
}

func (u unqualified) Resolve(ctx context.Context, db *sql.DB) (Resolution, error) {
	var schema string
	if err := db.QueryRowContext(ctx, "SELECT current_schema()").Scan(&schema); err != nil {
		return Resolution{}, fmt.Errorf("current schema: %w", err)
	}
	return Resolution{Strategy: u.Name(), Schema: schema}, nil
}

// DefaultStrategies tries the dataset schema first, then the current schema.
func DefaultStrategies(dataset string) []Strategy {
	if dataset == "" {
		return []Strategy{Unqualified()}
	}
	return []Strategy{SchemaScoped(dataset), Unqualified()}
}
