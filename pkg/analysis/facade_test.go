package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashdev89/smart-summary-insight-service/pkg/cache"
	"github.com/hashdev89/smart-summary-insight-service/pkg/llmclient"
	"github.com/hashdev89/smart-summary-insight-service/pkg/models"
	"github.com/hashdev89/smart-summary-insight-service/pkg/ratelimiter"
)

func newFacade(invoker llmclient.Invoker) *Facade {
	c := cache.New(10, time.Hour, true)
	limiter := ratelimiter.New(50)
	return New(c, limiter, invoker, "test-model")
}

func TestAnalyzeAppliesDefaultsAndMetadata(t *testing.T) {
	invoker := llmclient.NewStubInvoker(llmclient.StubResponse{
		Text:  `{"summary":"s","insights":[],"next_actions":[]}`,
		Usage: &llmclient.Usage{InputTokens: 10, OutputTokens: 5},
	})
	f := newFacade(invoker)

	result, err := f.Analyze(context.Background(), models.Request{Notes: []string{"a note"}})
	require.NoError(t, err)

	assert.Equal(t, "s", result.Summary)
	assert.Equal(t, "test-model", result.Metadata.ModelVersion)
	require.NotNil(t, result.Metadata.TokensUsed)
	assert.Equal(t, 15, *result.Metadata.TokensUsed)
	assert.False(t, result.Metadata.Timestamp.IsZero())
}

func TestAnalyzeCacheHitSkipsInvoker(t *testing.T) {
	invoker := llmclient.NewStubInvoker(llmclient.StubResponse{Text: `{"summary":"first"}`})
	f := newFacade(invoker)
	req := models.Request{Notes: []string{"a note"}}

	first, err := f.Analyze(context.Background(), req)
	require.NoError(t, err)

	second, err := f.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, 1, invoker.Calls())
}

func TestAnalyzeWrapsInvokerFailure(t *testing.T) {
	invoker := llmclient.NewStubInvoker(llmclient.StubResponse{Err: errors.New("provider unavailable")})
	f := newFacade(invoker)

	_, err := f.Analyze(context.Background(), models.Request{Notes: []string{"a note"}})
	require.Error(t, err)
	var analysisErr *Error
	require.ErrorAs(t, err, &analysisErr)
	assert.Contains(t, analysisErr.Error(), "provider unavailable")
}

func TestAnalyzeUnrecoverableNonJSONFails(t *testing.T) {
	invoker := llmclient.NewStubInvoker(llmclient.StubResponse{Text: "not json at all"})
	f := newFacade(invoker)

	_, err := f.Analyze(context.Background(), models.Request{Notes: []string{"a note"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, llmclient.ErrNoJSON)
}

func TestCachedResultShortCircuitsWithoutTouchingInvoker(t *testing.T) {
	invoker := llmclient.NewStubInvoker(llmclient.StubResponse{Text: `{"summary":"cached"}`})
	f := newFacade(invoker)
	req := models.Request{Notes: []string{"a note"}}

	_, ok := f.CachedResult(req)
	assert.False(t, ok)

	_, err := f.Analyze(context.Background(), req)
	require.NoError(t, err)

	cached, ok := f.CachedResult(req)
	require.True(t, ok)
	assert.Equal(t, "cached", cached.Summary)
	assert.Equal(t, 1, invoker.Calls())
}
