// Package executor runs single agent invocations on a bounded worker pool,
// isolating the orchestrator from agents' blocking behavior.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"agentd/internal/agent"
	"agentd/internal/memory"
)

// ErrQueueFull is returned when no worker slot frees up within the
// submission timeout.
var ErrQueueFull = errors.New("executor saturated, retry later")

// OutcomeKind tags the executor's raw outcome before the orchestrator
// normalizes it into a Result.
type OutcomeKind string

const (
	OutcomeSuccess   OutcomeKind = "success"
	OutcomeTimeout   OutcomeKind = "timeout"
	OutcomeQueueFull OutcomeKind = "queue_full"
	OutcomeError     OutcomeKind = "error"
)

// Outcome is the raw result of a single submission.
type Outcome struct {
	Kind    OutcomeKind
	Payload map[string]any
	Err     error
}

// Executor is a bounded worker pool. Submission blocks while the pool is
// saturated, up to a submission-level timeout.
type Executor struct {
	slots         chan struct{}
	maxWorkers    int
	submitTimeout time.Duration
}

// New creates an executor with maxWorkers slots.
func New(maxWorkers int, submitTimeout time.Duration) *Executor {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	slots := make(chan struct{}, maxWorkers)
	for i := 0; i < maxWorkers; i++ {
		slots <- struct{}{}
	}
	return &Executor{
		slots:         slots,
		maxWorkers:    maxWorkers,
		submitTimeout: submitTimeout,
	}
}

// AvailableSlots returns the number of free worker slots.
func (e *Executor) AvailableSlots() int {
	return len(e.slots)
}

// MaxWorkers returns the pool size.
func (e *Executor) MaxWorkers() int {
	return e.maxWorkers
}

type callResult struct {
	payload map[string]any
	err     error
}

// Submit runs fn on the pool, racing it against the deadline.
//
// If the deadline fires first the outcome is Timeout and fn's context is
// cancelled as a best-effort signal; the work itself is NOT forcibly
// destroyed and may keep running detached. Its slot is reclaimed only when
// it actually returns, and any memory writes it makes after the timeout
// still land (handles are append-only). This is intentional semantics, not
// a bug: hard cancellation of arbitrary work is unsafe.
func (e *Executor) Submit(ctx context.Context, fn agent.Func, params map[string]any, mem memory.Handle, deadline time.Duration) Outcome {
	// Acquire a worker slot, blocking up to the submission timeout.
	select {
	case <-e.slots:
	case <-time.After(e.submitTimeout):
		log.Printf("[Executor] Submission rejected: pool saturated (%d workers busy)", e.maxWorkers)
		return Outcome{Kind: OutcomeQueueFull, Err: ErrQueueFull}
	case <-ctx.Done():
		return Outcome{Kind: OutcomeQueueFull, Err: fmt.Errorf("%w: %v", ErrQueueFull, ctx.Err())}
	}

	// The call context carries the deadline so cooperative agents can stop
	// early. Detached from the caller's cancellation beyond that.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deadline)

	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{err: fmt.Errorf("agent panic: %v", r)}
			}
			cancel()
			e.slots <- struct{}{}
		}()
		payload, err := fn(callCtx, params, mem)
		done <- callResult{payload: payload, err: err}
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			return Outcome{Kind: OutcomeError, Err: res.err}
		}
		return Outcome{Kind: OutcomeSuccess, Payload: res.payload}
	case <-timer.C:
		log.Printf("[Executor] Deadline %s exceeded, detaching work (cooperative cancellation signalled)", deadline)
		return Outcome{Kind: OutcomeTimeout}
	}
}
