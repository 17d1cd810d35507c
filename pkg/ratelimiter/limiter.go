// Package ratelimiter implements the sliding-window gate that throttles
// all LLM calls so the external provider's per-minute budget is never
// exceeded.
package ratelimiter

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Window is the rolling interval over which the limit applies.
const Window = 60 * time.Second

// Limiter gates calls to at most Limit grants per rolling Window,
// guarded by a single mutex. The FIFO of prior grant timestamps is
// trimmed lazily on each attempt. Fairness is approximate FIFO under
// contention; strict FIFO across goroutines is not guaranteed.
type Limiter struct {
	mu     sync.Mutex
	grants *list.List // front = oldest grant
	limit  int
	nowFn  func() time.Time
}

// New creates a limiter permitting at most limit acquires per rolling
// 60-second window. limit is clamped to a minimum of 1.
func New(limit int) *Limiter {
	if limit < 1 {
		limit = 1
	}
	return &Limiter{
		grants: list.New(),
		limit:  limit,
		nowFn:  time.Now,
	}
}

// Acquire blocks until the caller is permitted to perform one
// rate-limited action, or ctx is cancelled. On cancellation it returns
// ctx.Err() without consuming a slot.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		wait, ok := l.tryGrant()
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			continue
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// tryGrant attempts to record a grant under the mutex. If the window is
// saturated it returns the duration to wait before retrying, with ok=false.
func (l *Limiter) tryGrant() (wait time.Duration, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-Window)

	for e := l.grants.Front(); e != nil; {
		next := e.Next()
		if e.Value.(time.Time).Before(cutoff) {
			l.grants.Remove(e)
		} else {
			break
		}
		e = next
	}

	if l.grants.Len() < l.limit {
		l.grants.PushBack(now)
		return 0, true
	}

	oldest := l.grants.Front().Value.(time.Time)
	return oldest.Add(Window).Sub(now), false
}

func (l *Limiter) now() time.Time {
	if l.nowFn != nil {
		return l.nowFn()
	}
	return time.Now()
}
