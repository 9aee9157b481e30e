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
		file     = flag.String("file", "", "Path to a saved search.json response")
		selector = flag.String("selector", openlibrary.DocsSelector, "JSONPath selecting the records")
	)
	flag.Parse()

	if *file == "" {
		log.Fatal("seed: -file is required")
	}

	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Seeding %s from %s", cfg.Pipeline.Name, *file)
	src := &openlibrary.FileSource{Path: *file, Selector: *selector}
	if err := ingest.Execute(ctx, cfg, src, os.Stdout); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}
