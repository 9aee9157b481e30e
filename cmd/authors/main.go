package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"olpipeline/internal/analytics"
	"olpipeline/internal/config"
	"olpipeline/internal/report"
	"olpipeline/internal/store"
)

func main() {
	n := flag.Int("n", 0, "Number of authors to show (overrides reader.top_n)")
	flag.Parse()

	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("authors: %v", err)
	}
	if *n != 0 {
		cfg.Reader.TopN = *n
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.OpenReadOnly(ctx, cfg.StoreOptions())
	if err != nil {
		log.Fatalf("authors: %v", err)
	}
	defer st.Close()

	reader := analytics.NewReader(st.DB(), analytics.DefaultStrategies(cfg.Pipeline.DatasetName)...)
	authors, err := analytics.NewService(reader).TopAuthors(ctx, cfg.Reader.TopN)
	if err != nil {
		st.Close()
		log.Fatalf("authors: %v", err)
	}

	bars := make([]report.Bar, len(authors))
	for i, a := range authors {
		bars[i] = report.Bar{Label: a.Name(), Value: a.BookCount}
	}
	chart := report.Chart{
		Title:       fmt.Sprintf("Top %d authors by book count (Open Library search: '%s')", cfg.Reader.TopN, cfg.Source.Query),
		LabelHeader: "author",
		ValueHeader: "book_count",
		Bars:        bars,
	}
	if err := report.WriteBarChart(os.Stdout, chart); err != nil {
		log.Fatalf("authors: %v", err)
	}
}
