package main

import (
	"context"
	"net/http"
	"time"

	"olpipeline/internal/analytics"
	"olpipeline/internal/ingest"
)

type routerDeps struct {
	ready     func(ctx context.Context) error
	analytics *analytics.HTTPHandler
	runs      *ingest.HTTPHandler
}

func newRouter(d routerDeps) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := d.ready(ctx); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.HandleFunc("GET /v1/authors/top", d.analytics.TopAuthors)
	router.HandleFunc("GET /v1/tables", d.analytics.Tables)
	router.HandleFunc("GET /v1/runs/latest", d.runs.LatestRun)

	return router
}
