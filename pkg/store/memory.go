package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hashdev89/smart-summary-insight-service/pkg/models"
)

// MemoryStore is the process-local backend: a mutex-guarded map. State is
// lost on restart; persist is a no-op.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]*models.Job
}

// NewMemoryStore creates an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*models.Job)}
}

// CreateJob implements Store.
func (s *MemoryStore) CreateJob(_ context.Context, total int) (string, error) {
	now := time.Now().UTC()
	job := &models.Job{
		JobID:        uuid.NewString(),
		Status:       models.JobAccepted,
		TotalRecords: total,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.mu.Lock()
	s.jobs[job.JobID] = job
	s.mu.Unlock()

	return job.JobID, nil
}

// SetProcessing implements Store.
func (s *MemoryStore) SetProcessing(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil
	}
	if job.Status == models.JobAccepted {
		job.Status = models.JobProcessing
		job.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// AppendResult implements Store.
func (s *MemoryStore) AppendResult(_ context.Context, jobID string, result models.RecordResult, tokens int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}

	job.Results = append(job.Results, result)
	if result.Success {
		job.CompletedCount++
		job.TotalTokensUsed += tokens
	} else {
		job.FailedCount++
	}
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// SetCompleted implements Store.
func (s *MemoryStore) SetCompleted(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status == models.JobCompleted || job.Status == models.JobFailed {
		return nil
	}
	job.Status = models.JobCompleted
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// SetFailed implements Store.
func (s *MemoryStore) SetFailed(_ context.Context, jobID string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status == models.JobCompleted || job.Status == models.JobFailed {
		return nil
	}
	job.Status = models.JobFailed
	job.FailureMessage = message
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// GetStatus implements Store.
func (s *MemoryStore) GetStatus(_ context.Context, jobID string, cost CostEstimator) (StatusView, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return StatusView{}, false, nil
	}
	return toStatusView(job, cost), true, nil
}

// ListJobs implements Store.
func (s *MemoryStore) ListJobs(_ context.Context, limit int) ([]models.JobRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]models.JobRow, 0, len(s.jobs))
	for _, job := range s.jobs {
		rows = append(rows, toJobRow(job))
	}
	sortRowsDesc(rows)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// Ready implements Store: the in-memory backend is always writable.
func (s *MemoryStore) Ready(_ context.Context) error {
	return nil
}

// Close implements Store: nothing to release.
func (s *MemoryStore) Close() error {
	return nil
}

func toStatusView(job *models.Job, cost CostEstimator) StatusView {
	var estimated *float64
	if cost != nil {
		estimated = cost(job.TotalTokensUsed)
	}
	return StatusView{
		JobID:           job.JobID,
		Status:          job.Status,
		TotalRecords:    job.TotalRecords,
		CompletedCount:  job.CompletedCount,
		FailedCount:     job.FailedCount,
		ProgressPercent: job.ProgressPercent(),
		TotalTokensUsed: job.TotalTokensUsed,
		EstimatedCost:   estimated,
		Results:         job.Results,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
		FailureMessage:  job.FailureMessage,
	}
}

func toJobRow(job *models.Job) models.JobRow {
	return models.JobRow{
		JobID:          job.JobID,
		Status:         job.Status,
		TotalRecords:   job.TotalRecords,
		CompletedCount: job.CompletedCount,
		FailedCount:    job.FailedCount,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
	}
}

func sortRowsDesc(rows []models.JobRow) {
	// Small N in practice (bounded by limit upstream and job volume);
	// insertion sort keeps this dependency-free and stable.
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && rows[j].CreatedAt.After(rows[j-1].CreatedAt); j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
}
