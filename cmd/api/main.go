package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"olpipeline/internal/analytics"
	"olpipeline/internal/config"
	"olpipeline/internal/httpx"
	"olpipeline/internal/ingest"
	"olpipeline/internal/store"
)

func main() {
	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := mustOpenStore(ctx, cfg.StoreOptions())
	defer st.Close()

	reader := analytics.NewReader(st.DB(), analytics.DefaultStrategies(cfg.Pipeline.DatasetName)...)
	runs := ingest.NewFileRepository(cfg.Pipeline.PipelinesDir, cfg.Pipeline.Name, nil)
	limiter := httpx.NewRateLimitMiddleware(ctx, cfg.API.RateLimitRPS, cfg.API.RateLimitBurst)

	router := newRouter(routerDeps{
		ready:     st.Ping,
		analytics: analytics.NewHTTPHandler(analytics.NewService(reader)),
		runs:      ingest.NewHTTPHandler(runs),
	})
	handler := httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware,
		httpx.RecoveryMiddleware,
		limiter.Middleware,
		httpx.CORSMiddleware(cfg.API.AllowedOrigins),
		httpx.ReadOnlyMiddleware,
		httpx.SecurityHeadersMiddleware,
	)

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("Starting explorer on %s (destination=%s location=%s)", cfg.API.Addr, cfg.Destination.Type, st.Location())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

func mustOpenStore(ctx context.Context, opts store.Options) *store.Store {
	st, err := store.OpenReadOnly(ctx, opts)
	if err != nil {
		log.Fatalf("cannot open store: %v", err)
	}
	log.Println("store connection OK")
	return st
}
