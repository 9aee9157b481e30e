package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"olpipeline/internal/schema"
)

var ErrNoRun = errors.New("no pipeline run recorded")

type Repository interface {
	CreateRun(ctx context.Context, run *Run) (string, error)
	UpdateRun(ctx context.Context, run *Run) error
	LatestRun(ctx context.Context) (*Run, error)
	SaveState(ctx context.Context, state *State, s *schema.Schema) error
	LoadState(ctx context.Context) (*State, error)
}

// FileRepository keeps the pipeline working directory:
//
//	<dir>/state.json
//	<dir>/schemas/<name>.schema.json
//	<dir>/trace.json
//
// Every file is replaced by writing a temp file and renaming it over the old one.
type FileRepository struct {
	dir string
	ids func() string
}

func NewFileRepository(pipelinesDir, pipeline string, ids func() string) *FileRepository {
	return &FileRepository{dir: filepath.Join(pipelinesDir, pipeline), ids: ids}
}

func (r *FileRepository) Dir() string {
	return r.dir
}

func (r *FileRepository) CreateRun(ctx context.Context, run *Run) (string, error) {
	id := r.ids()
	run.ID = id
	if err := r.writeJSON("trace.json", run); err != nil {
		return "", err
	}
	return id, nil
}

func (r *FileRepository) UpdateRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		return fmt.Errorf("update run: missing id")
	}
	return r.writeJSON("trace.json", run)
}

func (r *FileRepository) LatestRun(ctx context.Context) (*Run, error) {
	var run Run
	if err := r.readJSON("trace.json", &run); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoRun
		}
		return nil, err
	}
	return &run, nil
}

// SaveState writes the schema first so state.json never names a schema file that
// is missing.
func (r *FileRepository) SaveState(ctx context.Context, state *State, s *schema.Schema) error {
	if s != nil {
		if err := r.writeJSON(filepath.Join("schemas", s.Name+".schema.json"), s); err != nil {
			return err
		}
	}
	return r.writeJSON("state.json", state)
}

func (r *FileRepository) LoadState(ctx context.Context) (*State, error) {
	var st State
	if err := r.readJSON("state.json", &st); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

// LoadSchema reads a schema saved by SaveState.
func (r *FileRepository) LoadSchema(name string) (*schema.Schema, error) {
	b, err := os.ReadFile(filepath.Join(r.dir, "schemas", name+".schema.json"))
	if err != nil {
		return nil, err
	}
	return schema.Parse(b)
}

func (r *FileRepository) writeJSON(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	path := filepath.Join(r.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(name)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func (r *FileRepository) readJSON(name string, v any) error {
	b, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
