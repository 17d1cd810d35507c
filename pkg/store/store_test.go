package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashdev89/smart-summary-insight-service/pkg/models"
)

// backendFactories enumerates every backend under the shared contract
// tests below (property 5: "operations produce equal status views for
// equal sequences of mutations" across backends).
func backendFactories(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"file": func() Store {
			fs, err := NewFileStore(t.TempDir())
			require.NoError(t, err)
			return fs
		},
		"sqlite": func() Store {
			ss, err := NewSQLiteStore(t.TempDir() + "/batch.db")
			require.NoError(t, err)
			return ss
		},
	}
}

func TestStoreLifecycleAcrossBackends(t *testing.T) {
	ctx := context.Background()

	for name, factory := range backendFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory()
			defer s.Close()

			jobID, err := s.CreateJob(ctx, 2)
			require.NoError(t, err)
			require.NotEmpty(t, jobID)

			view, ok, err := s.GetStatus(ctx, jobID, nil)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, models.JobAccepted, view.Status)
			assert.Equal(t, 0.0, view.ProgressPercent)

			require.NoError(t, s.SetProcessing(ctx, jobID))
			view, _, _ = s.GetStatus(ctx, jobID, nil)
			assert.Equal(t, models.JobProcessing, view.Status)

			require.NoError(t, s.AppendResult(ctx, jobID, models.RecordResult{
				Index: 1, Success: true, Response: &models.AnalysisResult{Summary: "ok"},
			}, 100))
			require.NoError(t, s.AppendResult(ctx, jobID, models.RecordResult{
				Index: 0, Success: false, Error: "boom",
			}, 0))

			view, ok, err = s.GetStatus(ctx, jobID, nil)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, 1, view.CompletedCount)
			assert.Equal(t, 1, view.FailedCount)
			assert.Equal(t, 100, view.TotalTokensUsed)
			assert.Equal(t, 100.0, view.ProgressPercent)
			require.Len(t, view.Results, 2)
			// Completion order, not index order: the success (index 1)
			// was appended before the failure (index 0).
			assert.Equal(t, 1, view.Results[0].Index)
			assert.Equal(t, 0, view.Results[1].Index)

			require.NoError(t, s.SetCompleted(ctx, jobID))
			view, _, _ = s.GetStatus(ctx, jobID, nil)
			assert.Equal(t, models.JobCompleted, view.Status)

			// Idempotence: calling SetCompleted again changes nothing.
			before := view.UpdatedAt
			require.NoError(t, s.SetCompleted(ctx, jobID))
			view, _, _ = s.GetStatus(ctx, jobID, nil)
			assert.Equal(t, before, view.UpdatedAt)
			assert.Equal(t, models.JobCompleted, view.Status)

			rows, err := s.ListJobs(ctx, 10)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, jobID, rows[0].JobID)

			require.NoError(t, s.Ready(ctx))
		})
	}
}

func TestStoreSetFailedIsTerminalAndIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, factory := range backendFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory()
			defer s.Close()

			jobID, err := s.CreateJob(ctx, 1)
			require.NoError(t, err)

			require.NoError(t, s.SetFailed(ctx, jobID, "dispatcher exploded"))
			view, _, _ := s.GetStatus(ctx, jobID, nil)
			assert.Equal(t, models.JobFailed, view.Status)
			assert.Equal(t, "dispatcher exploded", view.FailureMessage)

			// A terminal job cannot transition further, even to completed.
			require.NoError(t, s.SetCompleted(ctx, jobID))
			view, _, _ = s.GetStatus(ctx, jobID, nil)
			assert.Equal(t, models.JobFailed, view.Status)
		})
	}
}

func TestStoreUnknownJobID(t *testing.T) {
	ctx := context.Background()
	for name, factory := range backendFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory()
			defer s.Close()

			_, ok, err := s.GetStatus(ctx, "nonexistent", nil)
			require.NoError(t, err)
			assert.False(t, ok)

			err = s.AppendResult(ctx, "nonexistent", models.RecordResult{Index: 0, Success: true}, 0)
			assert.ErrorIs(t, err, ErrJobNotFound)
		})
	}
}

func TestStoreCostEstimation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	jobID, err := s.CreateJob(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, s.AppendResult(ctx, jobID, models.RecordResult{Index: 0, Success: true}, 2000))

	cost := func(tokens int) *float64 {
		v := float64(tokens) / 1000.0
		return &v
	}

	view, ok, err := s.GetStatus(ctx, jobID, cost)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, view.EstimatedCost)
	assert.Equal(t, 2.0, *view.EstimatedCost)
}

func TestFileStoreHydratesFromDiskOnFreshInstance(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1, err := NewFileStore(dir)
	require.NoError(t, err)
	jobID, err := s1.CreateJob(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, s1.AppendResult(ctx, jobID, models.RecordResult{Index: 0, Success: true}, 42))
	require.NoError(t, s1.SetCompleted(ctx, jobID))
	original, _, _ := s1.GetStatus(ctx, jobID, nil)
	require.NoError(t, s1.Close())

	s2, err := NewFileStore(dir)
	require.NoError(t, err)
	defer s2.Close()

	hydrated, ok, err := s2.GetStatus(ctx, jobID, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, original.Status, hydrated.Status)
	assert.Equal(t, original.TotalTokensUsed, hydrated.TotalTokensUsed)
	assert.Equal(t, original.CompletedCount, hydrated.CompletedCount)
}

func TestListJobsClampsToLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	for i := 0; i < 5; i++ {
		_, err := s.CreateJob(ctx, 1)
		require.NoError(t, err)
	}

	rows, err := s.ListJobs(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
