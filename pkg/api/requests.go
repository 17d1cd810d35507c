package api

import "github.com/hashdev89/smart-summary-insight-service/pkg/models"

// AnalyzeRequest is the HTTP request body for POST /api/v1/analyze.
type AnalyzeRequest struct {
	StructuredData map[string]any `json:"structured_data,omitempty"`
	Notes          []string       `json:"notes"`
}

func (r AnalyzeRequest) toModel() models.Request {
	return models.Request{StructuredData: r.StructuredData, Notes: r.Notes}
}

// BatchAnalyzeRequest is the HTTP request body for POST /api/v1/batch/analyze.
type BatchAnalyzeRequest struct {
	Records []AnalyzeRequest `json:"records"`
}

// MaxBatchRecords is the upper bound on records accepted in one batch.
const MaxBatchRecords = 500
