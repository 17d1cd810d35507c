package api

import (
	"github.com/hashdev89/smart-summary-insight-service/pkg/models"
	"github.com/hashdev89/smart-summary-insight-service/pkg/store"
)

// BatchAcceptedResponse is returned by POST /api/v1/batch/analyze.
type BatchAcceptedResponse struct {
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	TotalRecords int    `json:"total_records"`
	Message      string `json:"message"`
}

// JobListResponse is returned by GET /api/v1/batch/jobs.
type JobListResponse struct {
	Jobs []models.JobRow `json:"jobs"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// StatusResponse is returned by GET /api/v1/batch/{job_id}/status.
// It is a thin alias over store.StatusView so the wire shape stays in
// sync with the persisted view automatically.
type StatusResponse = store.StatusView
