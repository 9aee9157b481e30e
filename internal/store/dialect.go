package store

import (
	"fmt"
	"strings"

	"olpipeline/internal/schema"
)

const (
	DuckDB   = "duckdb"
	Postgres = "postgres"
)

// Dialect holds what differs between destinations. Both accept $n placeholders
// and double-quoted identifiers.
type Dialect struct {
	Name                string
	MaxIdentifierLength int
	types               map[schema.DataType]string
}

var duckDBDialect = Dialect{
	Name: DuckDB,
	types: map[schema.DataType]string{
		schema.Text:      "VARCHAR",
		schema.BigInt:    "BIGINT",
		schema.Double:    "DOUBLE",
		schema.Bool:      "BOOLEAN",
		schema.Timestamp: "TIMESTAMP",
		schema.JSON:      "VARCHAR",
	},
}

var postgresDialect = Dialect{
	Name:                Postgres,
	MaxIdentifierLength: 63,
	types: map[schema.DataType]string{
		schema.Text:      "VARCHAR",
		schema.BigInt:    "BIGINT",
		schema.Double:    "DOUBLE PRECISION",
		schema.Bool:      "BOOLEAN",
		schema.Timestamp: "TIMESTAMP WITH TIME ZONE",
		schema.JSON:      "JSONB",
	},
}

func DialectFor(destination string) (Dialect, error) {
	switch destination {
	case DuckDB:
		return duckDBDialect, nil
	case Postgres:
		return postgresDialect, nil
	}
	return Dialect{}, fmt.Errorf("unknown destination %q", destination)
}

// Naming returns the identifier convention that fits this dialect's limits.
func (d Dialect) Naming() schema.Naming {
	return schema.Naming{MaxLength: d.MaxIdentifierLength}
}

func (d Dialect) ColumnType(dt schema.DataType) string {
	if t, ok := d.types[dt]; ok {
		return t
	}
	return d.types[schema.Text]
}

// CreateTableSQL renders DDL for tbl inside dataset.
func (d Dialect) CreateTableSQL(dataset string, tbl *schema.Table, ifNotExists bool) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	if ifNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(Qualify(dataset, tbl.Name))
	b.WriteString(" (")
	for i, col := range tbl.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(QuoteIdent(col.Name))
		b.WriteByte(' ')
		b.WriteString(d.ColumnType(col.DataType))
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString(")")
	return b.String()
}

func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Qualify returns "schema"."table", or just "table" when schemaName is empty.
func Qualify(schemaName, table string) string {
	if schemaName == "" {
		return QuoteIdent(table)
	}
	return QuoteIdent(schemaName) + "." + QuoteIdent(table)
}
