package models

import "time"

// JobStatus is the lifecycle state of a batch job.
type JobStatus string

// Job lifecycle states. Transitions only move forward along
// Accepted -> Processing -> {Completed, Failed}.
const (
	JobAccepted   JobStatus = "accepted"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// RecordResult is the outcome of processing a single record of a batch.
type RecordResult struct {
	Index    int             `json:"index"`
	Success  bool            `json:"success"`
	Response *AnalysisResult `json:"response,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Job is the persistent record of a batch's lifecycle and accumulated
// results. Results are appended in completion order, not index order;
// each RecordResult carries its original index so callers can sort.
type Job struct {
	JobID           string         `json:"job_id"`
	Status          JobStatus      `json:"status"`
	TotalRecords    int            `json:"total_records"`
	CompletedCount  int            `json:"completed_count"`
	FailedCount     int            `json:"failed_count"`
	TotalTokensUsed int            `json:"total_tokens_used"`
	Results         []RecordResult `json:"results,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	FailureMessage  string         `json:"failure_message,omitempty"`
}

// ProgressPercent computes the rounded completion percentage, per §4.3.
func (j *Job) ProgressPercent() float64 {
	if j.TotalRecords <= 0 {
		return 0.0
	}
	pct := 100 * float64(j.CompletedCount+j.FailedCount) / float64(j.TotalRecords)
	return roundTo(pct, 2)
}

// EstimatedCost applies the documented 50/50 input/output split
// approximation (see design notes). Returns nil when pricing isn't
// configured or no tokens have been used yet.
func (j *Job) EstimatedCost(pricePerKIn, pricePerKOut float64, configured bool) *float64 {
	return EstimateCost(j.TotalTokensUsed, pricePerKIn, pricePerKOut, configured)
}

// EstimateCost applies the documented "half input / half output" cost
// split approximation: half the tokens are billed at the input rate,
// half at the output rate, both per 1K tokens. Returns nil when pricing
// isn't configured or no tokens have been used yet.
func EstimateCost(totalTokens int, pricePerKIn, pricePerKOut float64, configured bool) *float64 {
	if !configured || totalTokens <= 0 {
		return nil
	}
	half := float64(totalTokens) / 2000.0
	cost := roundTo(half*pricePerKIn+half*pricePerKOut, 6)
	return &cost
}

func roundTo(v float64, places int) float64 {
	mult := 1.0
	for i := 0; i < places; i++ {
		mult *= 10
	}
	if v >= 0 {
		return float64(int64(v*mult+0.5)) / mult
	}
	return float64(int64(v*mult-0.5)) / mult
}

// JobRow is the bounded, most-recent-first summary returned by list_jobs.
type JobRow struct {
	JobID          string    `json:"job_id"`
	Status         JobStatus `json:"status"`
	TotalRecords   int       `json:"total_records"`
	CompletedCount int       `json:"completed_count"`
	FailedCount    int       `json:"failed_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
