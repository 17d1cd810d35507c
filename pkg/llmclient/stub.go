package llmclient

import (
	"context"
	"sync"
)

// StubInvoker is a scriptable Invoker for tests: each call to Invoke pops
// the next response (or error) off a queue, or repeats the last one once
// the queue is drained. It lets tests exercise the batch dispatcher's
// retry logic (see SPEC_FULL.md §4.6) without a live Anthropic credential.
type StubInvoker struct {
	mu        sync.Mutex
	responses []StubResponse
	calls     int
}

// StubResponse is one scripted Invoke outcome.
type StubResponse struct {
	Text  string
	Usage *Usage
	Err   error
}

// NewStubInvoker builds a StubInvoker that returns responses in order,
// repeating the final entry once exhausted.
func NewStubInvoker(responses ...StubResponse) *StubInvoker {
	return &StubInvoker{responses: responses}
}

// Invoke implements Invoker.
func (s *StubInvoker) Invoke(_ context.Context, _, _ string) (string, *Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++

	if idx < 0 {
		return "", nil, ErrNoJSON
	}
	resp := s.responses[idx]
	return resp.Text, resp.Usage, resp.Err
}

// Calls returns the number of times Invoke has been called.
func (s *StubInvoker) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
