// internal/memory/handle.go
package memory

import (
	"context"
	"sync"
)

// sessionHandle is the invocation-scoped Handle implementation. It tracks
// which records this invocation wrote so Flush mirrors only its own work.
// Safe for use after the dispatching caller has timed out and moved on:
// writes go straight into the shared short-term buffer, which is append-only
// from the agent's point of view.
type sessionHandle struct {
	svc       *Service
	sessionID string

	mu      sync.Mutex
	written []Record
}

func (h *sessionHandle) SessionID() string {
	return h.sessionID
}

func (h *sessionHandle) Write(ctx context.Context, rec *Record) error {
	if rec == nil {
		return nil
	}

	// Deliberately ignores ctx cancellation: a write racing the dispatch
	// deadline must still land (append-only safety under timeout).
	h.svc.write(h.sessionID, rec)

	h.mu.Lock()
	h.written = append(h.written, *rec)
	h.mu.Unlock()
	return nil
}

func (h *sessionHandle) Query(ctx context.Context, text string, topK int, minConfidence float64) ([]RetrievalResult, error) {
	return h.svc.Query(ctx, text, topK, minConfidence)
}

func (h *sessionHandle) Recent(n int) []Record {
	return h.svc.Recent(h.sessionID, n)
}

func (h *sessionHandle) Flush(ctx context.Context) error {
	h.mu.Lock()
	recs := make([]Record, len(h.written))
	copy(recs, h.written)
	h.mu.Unlock()

	return h.svc.flush(ctx, h.sessionID, recs)
}
