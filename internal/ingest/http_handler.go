package ingest

import (
	"context"
	"errors"
	"log"
	"net/http"

	"olpipeline/internal/httpx"
)

// RunReader is the read side of Repository.
type RunReader interface {
	LatestRun(ctx context.Context) (*Run, error)
}

type HTTPHandler struct {
	runs RunReader
}

func NewHTTPHandler(runs RunReader) *HTTPHandler {
	return &HTTPHandler{runs: runs}
}

// LatestRun handles GET /v1/runs/latest
func (h *HTTPHandler) LatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.LatestRun(r.Context())
	if errors.Is(err, ErrNoRun) {
		httpx.JSONError(w, r, http.StatusNotFound, "RUN_NOT_FOUND", "the pipeline has not run yet", nil)
		return
	}
	if err != nil {
		log.Printf("read latest run: %v", err)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "could not read the pipeline trace", nil)
		return
	}
	httpx.JSONSuccess(w, r, run, nil)
}
