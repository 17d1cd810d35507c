package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/hashdev89/smart-summary-insight-service/pkg/models"
	"github.com/hashdev89/smart-summary-insight-service/pkg/store"
)

// Batch-level validation only bounds the record count (§6 S3/S4); an
// individual record's empty notes is not a batch-submission error, it is
// a per-record dispatcher failure (§4.4 step 1) confined to that
// record's RecordResult, never rejecting the whole batch.

const (
	minBatchRecords    = 1
	defaultJobListSize = 50
	maxJobListSize     = 200
)

// submitBatchHandler handles POST /api/v1/batch/analyze. It validates the
// record count, creates the job in the store, and hands the batch off to
// the dispatcher on a background goroutine before returning 202 — the
// HTTP surface must return before processing begins (see §5).
func (s *Server) submitBatchHandler(c *echo.Context) error {
	var req BatchAnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "malformed request body")
	}

	if len(req.Records) < minBatchRecords || len(req.Records) > MaxBatchRecords {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "records must contain between 1 and 500 entries")
	}

	records := make([]models.Request, len(req.Records))
	for i, r := range req.Records {
		records[i] = r.toModel()
	}

	ctx := c.Request().Context()
	jobID, err := s.store.CreateJob(ctx, len(records))
	if err != nil {
		return mapAnalysisError(err)
	}

	// Fire-and-forget: the dispatcher owns its own background context so
	// the batch keeps running past this request's lifetime.
	go s.dispatcher.RunBatch(s.backgroundCtx(), jobID, records)

	return c.JSON(http.StatusAccepted, BatchAcceptedResponse{
		JobID:        jobID,
		Status:       string(models.JobAccepted),
		TotalRecords: len(records),
		Message:      "batch accepted for processing",
	})
}

// batchStatusHandler handles GET /api/v1/batch/{job_id}/status.
func (s *Server) batchStatusHandler(c *echo.Context) error {
	jobID := c.Param("job_id")

	view, ok, err := s.store.GetStatus(c.Request().Context(), jobID, s.costEstimator)
	if err != nil {
		return mapAnalysisError(err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown job_id")
	}

	return c.JSON(http.StatusOK, view)
}

// listJobsHandler handles GET /api/v1/batch/jobs?limit=.
func (s *Server) listJobsHandler(c *echo.Context) error {
	limit := defaultJobListSize
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = min(max(n, 1), maxJobListSize)
		}
	}

	rows, err := s.store.ListJobs(c.Request().Context(), limit)
	if err != nil {
		return mapAnalysisError(err)
	}

	return c.JSON(http.StatusOK, JobListResponse{Jobs: rows})
}

// costEstimator applies the configured per-1K-token pricing (§4.3 "Cost
// estimate"), or returns nil when pricing isn't configured.
func (s *Server) costEstimator(totalTokens int) *float64 {
	return models.EstimateCost(totalTokens, s.cfg.CostPer1KInputTokens, s.cfg.CostPer1KOutputTokens, s.cfg.CostConfigured)
}

var _ store.CostEstimator = (*Server)(nil).costEstimator
