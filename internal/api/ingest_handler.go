package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/unichat/venue-ingest/internal/domain"
	"github.com/unichat/venue-ingest/internal/pkg/httputil"
	"github.com/unichat/venue-ingest/internal/pkg/logger"
)

// IngestRunner runs one full ingestion and returns the report.
type IngestRunner interface {
	Run(ctx context.Context) (*domain.Report, error)
}

// Handlers holds the ingestion endpoints' dependencies.
type Handlers struct {
	runner IngestRunner
	rdb    *redis.Client
}

// RunIngestion executes a full ingestion run synchronously and returns
// the report. Row-level problems are part of the report body; only a
// fatal input problem yields a failure envelope.
//
//	POST /api/ingest/venues
func (h *Handlers) RunIngestion(w http.ResponseWriter, r *http.Request) {
	report, err := h.runner.Run(r.Context())
	if err != nil {
		logger.Error("ingestion run failed", "error", err.Error())
		httputil.JSON(w, http.StatusInternalServerError, domain.FailureResponse{
			Result:  "failure",
			Message: err.Error(),
		})
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}

// GetRunProgress returns the Redis-tracked state of a run. Available
// only while the tracking key lives (24h) and when Redis is configured.
//
//	GET /api/ingest/runs/{runID}
func (h *Handlers) GetRunProgress(w http.ResponseWriter, r *http.Request) {
	if h.rdb == nil {
		httputil.NotFound(w, "run tracking is not configured")
		return
	}

	runID := chi.URLParam(r, "runID")
	fields, err := h.rdb.HGetAll(r.Context(), "ingest:run:"+runID).Result()
	if err != nil {
		logger.Error("run progress lookup failed", "run_id", runID, "error", err.Error())
		httputil.InternalError(w, err)
		return
	}
	if len(fields) == 0 {
		httputil.NotFound(w, "unknown run id")
		return
	}

	httputil.OK(w, map[string]interface{}{
		"run_id":   runID,
		"progress": fields,
	})
}
