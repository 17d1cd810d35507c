package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashdev89/smart-summary-insight-service/pkg/analysis"
	"github.com/hashdev89/smart-summary-insight-service/pkg/cache"
	"github.com/hashdev89/smart-summary-insight-service/pkg/llmclient"
	"github.com/hashdev89/smart-summary-insight-service/pkg/models"
	"github.com/hashdev89/smart-summary-insight-service/pkg/ratelimiter"
	"github.com/hashdev89/smart-summary-insight-service/pkg/store"
)

func newFacade(invoker llmclient.Invoker) *analysis.Facade {
	c := cache.New(100, time.Hour, true)
	limiter := ratelimiter.New(1000)
	return analysis.New(c, limiter, invoker, "test-model")
}

func records(n int) []models.Request {
	out := make([]models.Request, n)
	for i := range out {
		out[i] = models.Request{Notes: []string{"note"}}
	}
	return out
}

func TestRunBatchAllSucceed(t *testing.T) {
	invoker := llmclient.NewStubInvoker(llmclient.StubResponse{Text: `{"summary":"ok"}`})
	d := New(newFacade(invoker), store.NewMemoryStore(), 5, 1)
	st := d.store

	jobID, err := st.CreateJob(context.Background(), 2)
	require.NoError(t, err)

	d.RunBatch(context.Background(), jobID, records(2))

	view, ok, err := st.GetStatus(context.Background(), jobID, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.JobCompleted, view.Status)
	assert.Equal(t, 2, view.CompletedCount)
	assert.Equal(t, 0, view.FailedCount)
	assert.Equal(t, 100.0, view.ProgressPercent)
	assert.Len(t, view.Results, 2)
}

func TestRunBatchRetriesThenSucceeds(t *testing.T) {
	invoker := llmclient.NewStubInvoker(
		llmclient.StubResponse{Err: assertError("transient failure")},
		llmclient.StubResponse{Text: `{"summary":"recovered"}`},
	)
	d := New(newFacade(invoker), store.NewMemoryStore(), 1, 1)
	st := d.store

	jobID, err := st.CreateJob(context.Background(), 1)
	require.NoError(t, err)

	d.RunBatch(context.Background(), jobID, records(1))

	view, _, _ := st.GetStatus(context.Background(), jobID, nil)
	assert.Equal(t, models.JobCompleted, view.Status)
	assert.Equal(t, 1, view.CompletedCount)
	assert.Equal(t, 0, view.FailedCount)
}

func TestRunBatchExhaustsRetriesAndFailsRecord(t *testing.T) {
	invoker := llmclient.NewStubInvoker(llmclient.StubResponse{Err: assertError("always fails")})
	d := New(newFacade(invoker), store.NewMemoryStore(), 2, 1)
	st := d.store

	jobID, err := st.CreateJob(context.Background(), 3)
	require.NoError(t, err)

	d.RunBatch(context.Background(), jobID, records(3))

	view, _, _ := st.GetStatus(context.Background(), jobID, nil)
	// Batch completes even though every record failed: one record's
	// failure never fails the whole batch.
	assert.Equal(t, models.JobCompleted, view.Status)
	assert.Equal(t, 0, view.CompletedCount)
	assert.Equal(t, 3, view.FailedCount)
	for _, r := range view.Results {
		assert.False(t, r.Success)
		assert.Contains(t, r.Error, "always fails")
	}
}

func TestRunBatchEmptyNotesFailsWithoutInvokingLLM(t *testing.T) {
	invoker := llmclient.NewStubInvoker(llmclient.StubResponse{Text: `{"summary":"should not be called"}`})
	d := New(newFacade(invoker), store.NewMemoryStore(), 5, 1)
	st := d.store

	jobID, err := st.CreateJob(context.Background(), 1)
	require.NoError(t, err)

	d.RunBatch(context.Background(), jobID, []models.Request{{Notes: []string{"   ", ""}}})

	view, _, _ := st.GetStatus(context.Background(), jobID, nil)
	assert.Equal(t, 1, view.FailedCount)
	require.Len(t, view.Results, 1)
	assert.Contains(t, view.Results[0].Error, "At least one note is required")
	assert.Equal(t, 0, invoker.Calls())
}

func TestRunBatchUsesCacheOnSecondIdenticalRecord(t *testing.T) {
	invoker := llmclient.NewStubInvoker(llmclient.StubResponse{Text: `{"summary":"cached"}`})
	d := New(newFacade(invoker), store.NewMemoryStore(), 5, 1)
	st := d.store

	jobID, err := st.CreateJob(context.Background(), 2)
	require.NoError(t, err)

	same := models.Request{Notes: []string{"identical note"}}
	d.RunBatch(context.Background(), jobID, []models.Request{same, same})

	view, _, _ := st.GetStatus(context.Background(), jobID, nil)
	assert.Equal(t, 2, view.CompletedCount)
	assert.LessOrEqual(t, invoker.Calls(), 2)
}

type simpleError string

func (e simpleError) Error() string { return string(e) }

func assertError(msg string) error { return simpleError(msg) }
