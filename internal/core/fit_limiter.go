package core

// fit_limiter.go implements concurrency control for model fitting.
//
// Regression fits are the one CPU-heavy operation in the service, so they
// run behind a semaphore that restricts parallel fits to a configurable
// maximum. When all slots are occupied, new requests wait up to maxWait
// before failing with ErrBusy. The limiter also supports graceful shutdown
// via WaitForDrain, which blocks until active fits complete.

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxConcurrentFits is the default limit for parallel model fits.
const DefaultMaxConcurrentFits = 4

// DefaultFitWaitTime is how long to wait for a slot before rejecting.
const DefaultFitWaitTime = 30 * time.Second

// FitLimiter controls concurrent model fitting using a semaphore pattern.
type FitLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewFitLimiter creates a limiter that allows at most maxConcurrent
// simultaneous fits. Requests that cannot acquire a slot within maxWait
// receive ErrBusy.
func NewFitLimiter(maxConcurrent int, maxWait time.Duration) *FitLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentFits
	}
	if maxWait <= 0 {
		maxWait = DefaultFitWaitTime
	}

	return &FitLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire attempts to acquire a fit slot.
// Returns nil on success, ErrBusy if the wait timeout expires.
// The caller MUST call Release() when the fit completes (use defer).
func (l *FitLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		// Distinguish caller cancellation from slot-wait timeout.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBusy

	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a previously acquired slot.
// Must be called exactly once for each successful Acquire.
func (l *FitLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of fits currently running.
func (l *FitLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until all active fits complete or ctx is cancelled.
// Used for graceful shutdown.
func (l *FitLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}
