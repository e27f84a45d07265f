package core

// limiter.go keeps callers from starting overlapping operations.
//
// The orchestrator itself never locks: the limiter is acquired by the layer
// that starts operations (HTTP handlers, the backup scheduler) before it
// calls into the Importer or Exporter. A semaphore of capacity one holds the
// slot; callers that cannot get it fail with ErrOperationInProgress.

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultOperationWait is how long Acquire waits for the slot.
const DefaultOperationWait = 5 * time.Second

// OperationLimiter admits one operation at a time.
type OperationLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu      sync.RWMutex
	current string
	since   time.Time
}

// NewOperationLimiter creates a limiter whose Acquire waits up to maxWait.
func NewOperationLimiter(maxWait time.Duration) *OperationLimiter {
	if maxWait <= 0 {
		maxWait = DefaultOperationWait
	}
	return &OperationLimiter{
		semaphore: make(chan struct{}, 1),
		maxWait:   maxWait,
	}
}

// Acquire waits up to maxWait for the slot.
// The caller MUST call Release() when the operation completes (use defer).
func (l *OperationLimiter) Acquire(ctx context.Context, op string) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.hold(op)
		return nil
	case <-waitCtx.Done():
		// Check if original context was cancelled vs timeout
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return l.busyError()
	}
}

// TryAcquire takes the slot without blocking.
func (l *OperationLimiter) TryAcquire(op string) error {
	select {
	case l.semaphore <- struct{}{}:
		l.hold(op)
		return nil
	default:
		return l.busyError()
	}
}

func (l *OperationLimiter) hold(op string) {
	l.mu.Lock()
	l.current = op
	l.since = time.Now()
	l.mu.Unlock()
}

func (l *OperationLimiter) busyError() error {
	if op := l.Current(); op != "" {
		return fmt.Errorf("%w: %s", ErrOperationInProgress, op)
	}
	return ErrOperationInProgress
}

// Release frees the slot.
// Must be called exactly once for each successful Acquire/TryAcquire.
func (l *OperationLimiter) Release() {
	l.mu.Lock()
	l.current = ""
	l.since = time.Time{}
	l.mu.Unlock()

	<-l.semaphore
}

// Current returns the running operation's name, or "" when idle.
func (l *OperationLimiter) Current() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Busy reports whether an operation holds the slot.
func (l *OperationLimiter) Busy() bool {
	return len(l.semaphore) > 0
}

// WaitForDrain blocks until the running operation completes or ctx is
// cancelled. Used for graceful shutdown.
func (l *OperationLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if !l.Busy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// OperationStatus is a snapshot of the limiter.
type OperationStatus struct {
	Busy      bool      `json:"busy"`
	Operation string    `json:"operation,omitempty"`
	Since     time.Time `json:"since,omitempty"`
}

// Status returns the current limiter state for monitoring.
func (l *OperationLimiter) Status() OperationStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return OperationStatus{
		Busy:      l.current != "",
		Operation: l.current,
		Since:     l.since,
	}
}
