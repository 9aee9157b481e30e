package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"olpipeline/internal/config"
	"olpipeline/internal/ingest"
	"olpipeline/internal/platform/openlibrary"
)

func main() {
	var (
		query = flag.String("q", "", "Search query (overrides source.query)")
		limit = flag.Int("limit", 0, "Number of records to fetch, 1-100 (overrides source.limit)")
	)
	flag.Parse()

	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}
	if *query != "" {
		cfg.Source.Query = *query
	}
	if *limit != 0 {
		cfg.Source.Limit = *limit
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := openlibrary.NewClient(cfg.Source.BaseURL, cfg.Source.UserAgent, cfg.Source.RequestsPerSecond, cfg.Source.MaxRetries)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	log.Printf("pipeline=%s destination=%s query=%q limit=%d", cfg.Pipeline.Name, cfg.Destination.Type, cfg.Source.Query, cfg.Source.Limit)
	if err := ingest.Execute(ctx, cfg, client.SearchSource(cfg.Source.Query, cfg.Source.Limit), os.Stdout); err != nil {
		log.Fatalf("pipeline failed: %v", err)
	}
}
