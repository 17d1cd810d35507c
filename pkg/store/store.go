// Package store implements the Job Store (C3): persistent job state and
// results, behind one contract satisfied by three interchangeable
// backends (memory, file-per-job, relational/sqlite) selected at
// configuration time.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/hashdev89/smart-summary-insight-service/pkg/models"
)

// ErrJobNotFound is returned when an operation references an unknown job_id.
var ErrJobNotFound = errors.New("store: job not found")

// StatusView is the read-only projection returned by GetStatus, combining
// persisted job fields with the derived progress percentage and (when
// pricing is configured) an estimated cost.
type StatusView struct {
	JobID           string                `json:"job_id"`
	Status          models.JobStatus      `json:"status"`
	TotalRecords    int                   `json:"total_records"`
	CompletedCount  int                   `json:"completed_count"`
	FailedCount     int                   `json:"failed_count"`
	ProgressPercent float64               `json:"progress_percent"`
	TotalTokensUsed int                   `json:"total_tokens_used"`
	EstimatedCost   *float64              `json:"estimated_cost"`
	Results         []models.RecordResult `json:"results,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	FailureMessage  string                `json:"failure_message,omitempty"`
}

// CostEstimator computes estimated_cost from total tokens, applying the
// documented 50/50 input/output split approximation.
type CostEstimator func(totalTokens int) *float64

// Store is the capability interface the batch dispatcher and HTTP
// surface consume. Every operation is safe for concurrent invocation.
type Store interface {
	// CreateJob allocates a fresh job with the given total record count
	// and initial state (accepted, 0/0, tokens=0, no results).
	CreateJob(ctx context.Context, total int) (jobID string, err error)

	// SetProcessing transitions a job to "processing". No-op if unknown.
	SetProcessing(ctx context.Context, jobID string) error

	// AppendResult records one record's outcome, incrementing
	// completed/failed counters and total token usage as appropriate.
	AppendResult(ctx context.Context, jobID string, result models.RecordResult, tokens int) error

	// SetCompleted transitions a job to its terminal "completed" state.
	// Idempotent: calling it twice leaves state unchanged after the first.
	SetCompleted(ctx context.Context, jobID string) error

	// SetFailed transitions a job to its terminal "failed" state with an
	// optional failure message. Idempotent like SetCompleted.
	SetFailed(ctx context.Context, jobID string, message string) error

	// GetStatus returns the status view for jobID, or ok=false if unknown.
	GetStatus(ctx context.Context, jobID string, cost CostEstimator) (view StatusView, ok bool, err error)

	// ListJobs returns up to limit jobs, most-recent-first.
	ListJobs(ctx context.Context, limit int) ([]models.JobRow, error)

	// Ready reports whether the backend's write path is currently usable.
	Ready(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}
