package analytics

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"olpipeline/internal/httpx"
)

const (
	defaultTopN = 10
	maxTopN     = 100
)

type HTTPHandler struct {
	svc *Service
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

// TopAuthors handles GET /v1/authors/top
func (h *HTTPHandler) TopAuthors(w http.ResponseWriter, r *http.Request) {
	n := defaultTopN
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxTopN {
			httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "n must be an integer between 1 and 100",
				[]httpx.ErrorDetail{{Field: "n", Message: "must be between 1 and 100"}})
			return
		}
		n = v
	}

	authors, err := h.svc.TopAuthors(r.Context(), n)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, authors, map[string]any{"n": n})
}

// Tables handles GET /v1/tables
func (h *HTTPHandler) Tables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.svc.Tables(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, tables, nil)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *TableNotFoundError
	switch {
	case errors.As(err, &notFound):
		httpx.JSONError(w, r, http.StatusNotFound, "TABLE_NOT_FOUND", notFound.Error(), nil)
	case errors.Is(err, ErrInvalidLimit):
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		log.Printf("analytics query failed: request_id=%s error=%v", httpx.RequestIDFrom(r), err)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
