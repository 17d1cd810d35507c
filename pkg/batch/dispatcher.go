// Package batch implements the Batch Dispatcher (C4): fans out a batch's
// records under a concurrency cap and the shared rate limiter, with
// per-record retry and failure isolation.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/hashdev89/smart-summary-insight-service/pkg/analysis"
	"github.com/hashdev89/smart-summary-insight-service/pkg/models"
	"github.com/hashdev89/smart-summary-insight-service/pkg/store"
)

// Dispatcher runs batches of records through the analysis facade under a
// bounded concurrency gate, persisting progress to the job store as each
// record terminates.
type Dispatcher struct {
	facade      *analysis.Facade
	store       store.Store
	concurrency int64
	retryCount  int
}

// New builds a Dispatcher. concurrency is the max number of in-flight LLM
// calls (semaphore size); retryCount is the number of additional attempts
// after the first (total attempts = 1 + retryCount).
func New(facade *analysis.Facade, st store.Store, concurrency int, retryCount int) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	if retryCount < 0 {
		retryCount = 0
	}
	return &Dispatcher{facade: facade, store: st, concurrency: int64(concurrency), retryCount: retryCount}
}

// RunBatch processes every record independently and blocks until all have
// reached a terminal state and the job has been transitioned to
// completed (or failed, on a fatal dispatcher error). One record's
// failure never fails the batch. If ctx is cancelled, the job is left in
// its non-terminal state.
func (d *Dispatcher) RunBatch(ctx context.Context, jobID string, records []models.Request) {
	log := slog.With("job_id", jobID)

	if err := d.store.SetProcessing(ctx, jobID); err != nil {
		log.Error("failed to transition job to processing", "error", err)
		_ = d.store.SetFailed(ctx, jobID, err.Error())
		return
	}

	sem := semaphore.NewWeighted(d.concurrency)
	var wg sync.WaitGroup
	var panics int32
	var mu sync.Mutex
	var firstPanic any

	for i, record := range records {
		wg.Add(1)
		go func(index int, record models.Request) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					panics++
					if firstPanic == nil {
						firstPanic = r
					}
					mu.Unlock()
					log.Error("record task panicked", "index", index, "panic", r)
				}
			}()
			d.processRecord(ctx, jobID, index, record, sem, log)
		}(i, record)
	}

	wg.Wait()

	if ctx.Err() != nil {
		log.Warn("batch interrupted by cancellation, job left non-terminal", "error", ctx.Err())
		return
	}

	if panics > 0 {
		_ = d.store.SetFailed(ctx, jobID, "dispatcher: unexpected error processing batch")
		log.Error("batch failed due to unexpected errors in record tasks", "panics", panics, "first", firstPanic)
		return
	}

	if err := d.store.SetCompleted(ctx, jobID); err != nil {
		log.Error("failed to transition job to completed", "error", err)
	}
}

// processRecord normalises the record, consults the cache, and otherwise
// retries the analysis up to 1+retryCount times, appending exactly one
// RecordResult to the job store on every exit path.
func (d *Dispatcher) processRecord(ctx context.Context, jobID string, index int, record models.Request, sem *semaphore.Weighted, log *slog.Logger) {
	if err := record.Normalize(); err != nil {
		d.appendFailure(ctx, jobID, index, "At least one note is required", log)
		return
	}

	if cached, ok := d.facade.CachedResult(record); ok {
		tokens := 0
		if cached.Metadata.TokensUsed != nil {
			tokens = *cached.Metadata.TokensUsed
		}
		d.appendSuccess(ctx, jobID, index, cached, tokens, log)
		return
	}

	var lastErr error
	attempts := 1 + d.retryCount
	for attempt := 0; attempt < attempts; attempt++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			lastErr = err
			break
		}

		result, err := d.facade.Analyze(ctx, record)
		sem.Release(1)

		if err == nil {
			tokens := 0
			if result.Metadata.TokensUsed != nil {
				tokens = *result.Metadata.TokensUsed
			}
			d.appendSuccess(ctx, jobID, index, result, tokens, log)
			return
		}

		lastErr = err
		log.Warn("record attempt failed", "index", index, "attempt", attempt+1, "error", err)

		if ctx.Err() != nil {
			break
		}
	}

	msg := "analysis failed"
	if lastErr != nil {
		msg = lastErr.Error()
	}
	d.appendFailure(ctx, jobID, index, msg, log)
}

func (d *Dispatcher) appendSuccess(ctx context.Context, jobID string, index int, result *models.AnalysisResult, tokens int, log *slog.Logger) {
	rr := models.RecordResult{Index: index, Success: true, Response: result}
	if err := d.store.AppendResult(ctx, jobID, rr, tokens); err != nil && !errors.Is(err, store.ErrJobNotFound) {
		log.Error("failed to append success result", "index", index, "error", err)
	}
}

func (d *Dispatcher) appendFailure(ctx context.Context, jobID string, index int, message string, log *slog.Logger) {
	rr := models.RecordResult{Index: index, Success: false, Error: message}
	if err := d.store.AppendResult(ctx, jobID, rr, 0); err != nil && !errors.Is(err, store.ErrJobNotFound) {
		log.Error("failed to append failure result", "index", index, "error", err)
	}
}
