package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

func openDuckDB(ctx context.Context, path string, readOnly bool) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("duckdb path is empty")
	}
	dsn := path
	if readOnly {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		dsn += "?access_mode=read_only"
	} else if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, err
	}
	if !readOnly {
		// one writer; a load runs inside a single transaction
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
