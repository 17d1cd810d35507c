// Package analysis implements the Analysis Facade (C5): the
// single-record pipeline that checks the result cache, acquires a rate
// limiter slot, invokes the LLM collaborator, and fills the cache before
// returning.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashdev89/smart-summary-insight-service/pkg/cache"
	"github.com/hashdev89/smart-summary-insight-service/pkg/llmclient"
	"github.com/hashdev89/smart-summary-insight-service/pkg/models"
	"github.com/hashdev89/smart-summary-insight-service/pkg/ratelimiter"
)

// SystemPrompt is the fixed instruction sent to the LLM collaborator.
// Prompt construction beyond this is treated as an external collaborator
// concern (see spec §1); this is the minimal contract the facade needs
// to satisfy the JSON schema in §3.
const SystemPrompt = `You are an analysis engine. Given structured data and free-text notes, ` +
	`respond with a single JSON object: {"summary": string, "insights": ` +
	`[{"title","description","category","priority"}], "next_actions": ` +
	`[{"action","priority","rationale"}], "confidence_score": number between 0 and 1}. ` +
	`priority must be one of "high", "medium", "low". Respond with JSON only.`

// Error is a typed analysis failure: the LLM call raised, the response
// was non-JSON and unrecoverable, or the payload was schema-incompatible.
type Error struct {
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("analysis failed: %v", e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Facade runs the single-record analysis pipeline described in §4.5.
type Facade struct {
	cache        *cache.Cache
	limiter      *ratelimiter.Limiter
	invoker      llmclient.Invoker
	modelVersion string
	nowFn        func() time.Time
}

// New builds a Facade wired to the given cache, rate limiter, and LLM
// collaborator. modelVersion is recorded in every AnalysisResult's metadata.
func New(c *cache.Cache, limiter *ratelimiter.Limiter, invoker llmclient.Invoker, modelVersion string) *Facade {
	return &Facade{cache: c, limiter: limiter, invoker: invoker, modelVersion: modelVersion, nowFn: time.Now}
}

// CachedResult returns a cache hit for req without touching the rate
// limiter or LLM collaborator, letting callers (e.g. the batch
// dispatcher) short-circuit before acquiring any concurrency slot.
func (f *Facade) CachedResult(req models.Request) (*models.AnalysisResult, bool) {
	if cached, ok := f.cache.Get(req); ok {
		return &cached, true
	}
	return nil, false
}

// Analyze runs req through the cache -> rate-limit -> LLM -> cache-fill
// pipeline, returning a typed *Error on unrecoverable failure.
func (f *Facade) Analyze(ctx context.Context, req models.Request) (*models.AnalysisResult, error) {
	if cached, ok := f.cache.Get(req); ok {
		return &cached, nil
	}

	start := f.now()

	if err := f.limiter.Acquire(ctx); err != nil {
		return nil, &Error{Err: err}
	}

	text, usage, err := f.invoker.Invoke(ctx, SystemPrompt, userPrompt(req))
	if err != nil {
		return nil, &Error{Err: err}
	}

	payload, err := llmclient.ExtractJSON(text)
	if err != nil {
		return nil, &Error{Err: err}
	}

	result, err := models.ParseAnalysisResult([]byte(payload))
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("parse analysis payload: %w", err)}
	}

	result.Metadata.ModelVersion = f.modelVersion
	result.Metadata.ProcessingTimeMs = f.now().Sub(start).Milliseconds()
	result.Metadata.Timestamp = f.now().UTC()
	if usage != nil {
		tokens := usage.Total()
		result.Metadata.TokensUsed = &tokens
	}

	f.cache.Set(req, *result)
	return result, nil
}

func (f *Facade) now() time.Time {
	if f.nowFn != nil {
		return f.nowFn()
	}
	return time.Now()
}

func userPrompt(req models.Request) string {
	prompt := "Notes:\n"
	for _, n := range req.Notes {
		prompt += "- " + n + "\n"
	}
	if len(req.StructuredData) > 0 {
		if encoded, err := json.Marshal(req.StructuredData); err == nil {
			prompt += "\nStructured data:\n" + string(encoded)
		}
	}
	return prompt
}
