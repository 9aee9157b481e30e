package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"olpipeline/internal/schema"
)

type Options struct {
	Destination string
	DuckDBPath  string
	PostgresDSN string
	Dataset     string
}

// Store is an open destination. Write handles come from Open, read-only ones
// from OpenReadOnly.
type Store struct {
	db       *sql.DB
	dialect  Dialect
	dataset  string
	location string
	readOnly bool
	closeFn  func()
}

func Open(ctx context.Context, opts Options) (*Store, error) {
	return open(ctx, opts, false)
}

// OpenReadOnly opens an existing destination without write access.
func OpenReadOnly(ctx context.Context, opts Options) (*Store, error) {
	return open(ctx, opts, true)
}

func open(ctx context.Context, opts Options, readOnly bool) (*Store, error) {
	dialect, err := DialectFor(opts.Destination)
	if err != nil {
		return nil, &ConnectionError{Destination: opts.Destination, Err: err}
	}
	s := &Store{dialect: dialect, dataset: opts.Dataset, readOnly: readOnly}

	switch opts.Destination {
	case DuckDB:
		s.location = opts.DuckDBPath
		s.db, err = openDuckDB(ctx, opts.DuckDBPath, readOnly)
		s.closeFn = func() { _ = s.db.Close() }
	case Postgres:
		s.location = redactDSN(opts.PostgresDSN)
		var closePool func()
		s.db, closePool, err = openPostgres(ctx, opts.PostgresDSN, readOnly)
		s.closeFn = func() {
			_ = s.db.Close()
			closePool()
		}
	}
	if err != nil {
		return nil, &ConnectionError{Destination: opts.Destination, Location: s.location, Err: err}
	}
	return s, nil
}

func (s *Store) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

// DB exposes the handle for query layers that build their own SQL.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Dataset() string {
	return s.dataset
}

func (s *Store) Location() string {
	return s.location
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.db.PingContext(ctx)
}

// RowCount counts the rows of a table in the dataset.
func (s *Store) RowCount(ctx context.Context, table string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+Qualify(s.dataset, table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rows in %s: %w", table, err)
	}
	return n, nil
}

// StoredSchema returns the newest schema version recorded for name, or nil when
// nothing has been loaded yet.
func (s *Store) StoredSchema(ctx context.Context, name string) (*schema.Schema, error) {
	return storedSchema(ctx, s.db, s.dataset, name)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func storedSchema(ctx context.Context, q queryer, dataset, name string) (*schema.Schema, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE schema_name = $1 ORDER BY inserted_at DESC, version DESC LIMIT 1",
		QuoteIdent("schema"), Qualify(dataset, schema.VersionTable))

	var raw string
	err := q.QueryRowContext(ctx, query, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return schema.Parse([]byte(raw))
}
