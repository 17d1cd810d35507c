package models

import (
	"encoding/json"
	"time"
)

// Priority is the severity/urgency level attached to insights and actions.
type Priority string

// Priority values.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Insight is one categorised observation extracted from the analysed notes.
type Insight struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category,omitempty"`
	Priority    Priority `json:"priority"`
}

// NextAction is one prioritised recommendation following from the analysis.
type NextAction struct {
	Action    string   `json:"action"`
	Priority  Priority `json:"priority"`
	Rationale string   `json:"rationale,omitempty"`
}

// Metadata carries analysis provenance: model, timing, confidence, cost.
type Metadata struct {
	ConfidenceScore  float64   `json:"confidence_score"`
	ModelVersion     string    `json:"model_version"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	TokensUsed       *int      `json:"tokens_used,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// AnalysisResult is the structured artifact returned by the LLM collaborator,
// after the defaulting rules in §4.5 have been applied.
type AnalysisResult struct {
	Summary     string       `json:"summary"`
	Insights    []Insight    `json:"insights"`
	NextActions []NextAction `json:"next_actions"`
	Metadata    Metadata     `json:"metadata"`
}

// rawAnalysisResult mirrors the loosely-typed JSON payload the LLM may
// return, with every field optional so missing-key defaulting (§4.5) can
// be applied deliberately rather than relying on Go's zero values (which
// would produce "" for summary and title instead of their defaults, and 0
// for ConfidenceScore, a float that legitimately may be 0).
type rawAnalysisResult struct {
	Summary         *string         `json:"summary"`
	Insights        []rawInsight    `json:"insights"`
	NextActions     []rawNextAction `json:"next_actions"`
	ConfidenceScore *float64        `json:"confidence_score"`
}

type rawInsight struct {
	Title       *string `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Priority    *string `json:"priority"`
}

type rawNextAction struct {
	Action    string  `json:"action"`
	Priority  *string `json:"priority"`
	Rationale string  `json:"rationale"`
}

// ParseAnalysisResult decodes the LLM's JSON payload, applying the
// defaulting rules from spec §4.5: missing summary -> "No summary
// generated"; missing insights/next_actions -> empty lists; missing
// insight title -> "Untitled"; missing priority -> "medium"; missing
// confidence_score -> DefaultConfidenceScore (a supplied score is clamped
// to [0, 1]). ModelVersion/ProcessingTimeMs/Timestamp/TokensUsed are
// filled in by the caller (the analysis facade), not by this parser.
func ParseAnalysisResult(payload []byte) (*AnalysisResult, error) {
	var raw rawAnalysisResult
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	result := &AnalysisResult{
		Summary:     "No summary generated",
		Insights:    make([]Insight, 0, len(raw.Insights)),
		NextActions: make([]NextAction, 0, len(raw.NextActions)),
		Metadata:    Metadata{ConfidenceScore: DefaultConfidenceScore},
	}
	if raw.Summary != nil {
		result.Summary = *raw.Summary
	}
	if raw.ConfidenceScore != nil {
		cs := *raw.ConfidenceScore
		if cs < 0 {
			cs = 0
		} else if cs > 1 {
			cs = 1
		}
		result.Metadata.ConfidenceScore = cs
	}

	for _, ri := range raw.Insights {
		title := "Untitled"
		if ri.Title != nil && *ri.Title != "" {
			title = *ri.Title
		}
		priority := PriorityMedium
		if ri.Priority != nil && Priority(*ri.Priority).valid() {
			priority = Priority(*ri.Priority)
		}
		result.Insights = append(result.Insights, Insight{
			Title:       title,
			Description: ri.Description,
			Category:    ri.Category,
			Priority:    priority,
		})
	}

	for _, ra := range raw.NextActions {
		priority := PriorityMedium
		if ra.Priority != nil && Priority(*ra.Priority).valid() {
			priority = Priority(*ra.Priority)
		}
		result.NextActions = append(result.NextActions, NextAction{
			Action:    ra.Action,
			Priority:  priority,
			Rationale: ra.Rationale,
		})
	}

	return result, nil
}

// DefaultConfidenceScore is applied by ParseAnalysisResult when the LLM's
// payload omits a confidence_score field.
const DefaultConfidenceScore = 0.5
