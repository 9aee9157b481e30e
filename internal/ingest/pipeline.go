package ingest

import (
	"context"
	"io"
	"log"

	"olpipeline/internal/config"
	"olpipeline/internal/report"
	"olpipeline/internal/schema"
	"olpipeline/internal/store"

	"github.com/google/uuid"
)

// Execute runs one pass of the configured pipeline from src and prints the load
// report to out. Failures after the load has committed only degrade the report.
func Execute(ctx context.Context, cfg *config.Config, src Source, out io.Writer) error {
	st, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer st.Close()

	repo := NewFileRepository(cfg.Pipeline.PipelinesDir, cfg.Pipeline.Name, uuid.NewString)
	svc := NewService(src, st, repo, Config{
		Pipeline:    cfg.Pipeline.Name,
		Dataset:     cfg.Pipeline.DatasetName,
		Destination: cfg.Destination.Type,
		SchemaName:  cfg.Pipeline.SchemaName,
		Table:       cfg.Pipeline.Table,
		Naming:      st.Dialect().Naming(),
	})

	info, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	sc, err := st.StoredSchema(ctx, cfg.Pipeline.SchemaName)
	if err != nil || sc == nil {
		log.Printf("pipeline=%s could not read stored schema, using local copy: %v", cfg.Pipeline.Name, err)
		if sc, err = repo.LoadSchema(cfg.Pipeline.SchemaName); err != nil {
			sc = schema.New(cfg.Pipeline.SchemaName)
		}
	}
	rows, rowErr := st.RowCount(ctx, cfg.Pipeline.Table)
	return report.WriteLoadReport(out, info, sc, cfg.Pipeline.Table, rows, rowErr)
}
