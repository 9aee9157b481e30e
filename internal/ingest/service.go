package ingest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"olpipeline/internal/normalize"
	"olpipeline/internal/schema"
	"olpipeline/internal/store"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

type Config struct {
	Pipeline    string
	Dataset     string
	Destination string
	SchemaName  string
	Table       string
	Naming      schema.Naming
}

// Source produces the records of one run.
type Source interface {
	Fetch(ctx context.Context) ([]map[string]any, error)
	Describe() string
}

type Loader interface {
	Load(ctx context.Context, req store.LoadRequest) (*store.LoadInfo, error)
}

type Service struct {
	source Source
	loader Loader
	repo   Repository
	cfg    Config
	now    func() time.Time
}

func NewService(source Source, loader Loader, repo Repository, cfg Config) *Service {
	return &Service{
		source: source,
		loader: loader,
		repo:   repo,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Run fetches, normalizes and loads one generation, replacing the previous one.
// Nothing is written to the destination unless fetch and normalize succeed.
func (s *Service) Run(ctx context.Context) (info *store.LoadInfo, err error) {
	run := &Run{
		Status:      StatusRunning,
		Pipeline:    s.cfg.Pipeline,
		Source:      s.source.Describe(),
		Destination: s.cfg.Destination,
		Dataset:     s.cfg.Dataset,
		StartedAt:   s.now(),
	}
	// The run record lives in the local working dir; losing it must not block a load.
	runID, rErr := s.repo.CreateRun(ctx, run)
	if rErr != nil {
		runID = uuid.NewString()
		log.Printf("Failed to record pipeline run for %s, continuing as run=%s: %v", s.cfg.Pipeline, runID, rErr)
	}
	run.ID = runID

	defer func() {
		now := s.now()
		run.FinishedAt = &now
		if err != nil && run.Error == "" {
			run.Error = err.Error()
		}

		if run.Error != "" {
			run.Status = StatusFailed
		} else {
			run.Status = StatusCompleted
		}
		if updateErr := s.repo.UpdateRun(ctx, run); updateErr != nil {
			log.Printf("Failed to update pipeline run %s: %v", run.ID, updateErr)
		}
	}()

	records, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	run.RecordsFetched = len(records)
	log.Printf("pipeline=%s run=%s fetched records=%d source=%q", s.cfg.Pipeline, run.ID, len(records), run.Source)

	loadID := normalize.NewLoadID(run.StartedAt)
	pkg, err := normalize.New(schema.New(s.cfg.SchemaName), s.cfg.Naming).Normalize(loadID, s.cfg.Table, records)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	run.LoadID = loadID

	state, stateJSON, err := s.newState(ctx, pkg, run.StartedAt)
	if err != nil {
		return nil, err
	}

	info, err = s.loader.Load(ctx, store.LoadRequest{
		Pipeline:     s.cfg.Pipeline,
		Package:      pkg,
		State:        stateJSON,
		StateVersion: state.Version,
		StateHash:    state.VersionHash,
	})
	if err != nil {
		return nil, err
	}
	run.RowCounts = pkg.RowCounts()
	log.Printf("pipeline=%s run=%s load_id=%s rows=%d", s.cfg.Pipeline, run.ID, loadID, pkg.TotalRows())

	// The destination is authoritative; a stale working directory is rebuilt next run.
	if err := s.repo.SaveState(ctx, state, pkg.Schema); err != nil {
		log.Printf("Failed to save pipeline state for %s: %v", s.cfg.Pipeline, err)
	}
	return info, nil
}

func (s *Service) newState(ctx context.Context, pkg *normalize.Package, extractedAt time.Time) (*State, []byte, error) {
	state := &State{
		Version:           1,
		EngineVersion:     StateEngineVersion,
		PipelineName:      s.cfg.Pipeline,
		DatasetName:       s.cfg.Dataset,
		DefaultSchemaName: pkg.Schema.Name,
		SchemaNames:       []string{pkg.Schema.Name},
		DestinationType:   s.cfg.Destination,
		Local: LocalState{
			LastExtractedAt: extractedAt.UTC(),
			LastLoadID:      pkg.LoadID,
		},
	}
	prev, err := s.repo.LoadState(ctx)
	if err != nil {
		log.Printf("Ignoring unreadable pipeline state for %s: %v", s.cfg.Pipeline, err)
	}
	state.Local.FirstRun = prev == nil

	body, err := json.Marshal(state)
	if err != nil {
		return nil, nil, fmt.Errorf("encode state: %w", err)
	}
	sum := blake3.Sum256(body)
	state.VersionHash = base64.StdEncoding.EncodeToString(sum[:])

	body, err = json.Marshal(state)
	if err != nil {
		return nil, nil, fmt.Errorf("encode state: %w", err)
	}
	return state, body, nil
}
