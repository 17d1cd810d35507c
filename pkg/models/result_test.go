package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysisResultAppliesDefaultsOnMissingFields(t *testing.T) {
	payload := []byte(`{"insights":[{"description":"no title or priority"}],"next_actions":[{"action":"do it"}]}`)

	result, err := ParseAnalysisResult(payload)
	require.NoError(t, err)

	assert.Equal(t, "No summary generated", result.Summary)
	assert.Equal(t, DefaultConfidenceScore, result.Metadata.ConfidenceScore)
	require.Len(t, result.Insights, 1)
	assert.Equal(t, "Untitled", result.Insights[0].Title)
	assert.Equal(t, PriorityMedium, result.Insights[0].Priority)
	require.Len(t, result.NextActions, 1)
	assert.Equal(t, PriorityMedium, result.NextActions[0].Priority)
}

func TestParseAnalysisResultPreservesSuppliedFields(t *testing.T) {
	payload := []byte(`{
		"summary":"a concise summary",
		"confidence_score":0.87,
		"insights":[{"title":"Trend","description":"d","category":"c","priority":"high"}],
		"next_actions":[{"action":"ship it","priority":"low","rationale":"r"}]
	}`)

	result, err := ParseAnalysisResult(payload)
	require.NoError(t, err)

	assert.Equal(t, "a concise summary", result.Summary)
	assert.Equal(t, 0.87, result.Metadata.ConfidenceScore)
	assert.Equal(t, "Trend", result.Insights[0].Title)
	assert.Equal(t, PriorityHigh, result.Insights[0].Priority)
	assert.Equal(t, PriorityLow, result.NextActions[0].Priority)
}

func TestParseAnalysisResultClampsOutOfRangeConfidence(t *testing.T) {
	payload := []byte(`{"confidence_score": 1.5}`)
	result, err := ParseAnalysisResult(payload)
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Metadata.ConfidenceScore)

	payload = []byte(`{"confidence_score": -0.2}`)
	result, err = ParseAnalysisResult(payload)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Metadata.ConfidenceScore)
}

func TestParseAnalysisResultRejectsInvalidPriorityFallsBackToMedium(t *testing.T) {
	payload := []byte(`{"insights":[{"title":"t","description":"d","priority":"urgent"}]}`)
	result, err := ParseAnalysisResult(payload)
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, result.Insights[0].Priority)
}

func TestParseAnalysisResultRejectsMalformedJSON(t *testing.T) {
	_, err := ParseAnalysisResult([]byte(`not json`))
	assert.Error(t, err)
}
