// internal/memory/types.go
package memory

import (
	"context"
	"errors"
	"time"
)

// Tier represents the durability level of a record.
// Records only move forward: short -> mid -> long.
type Tier string

const (
	TierShort Tier = "short" // minutes-hours: raw interaction records, in-memory only
	TierMid   Tier = "mid"   // days: embedded, semantically searchable
	TierLong  Tier = "long"  // durable: promoted knowledge, explicit deletion only
)

// ErrStorage wraps failures of the mid/long storage backends. Agents receive
// it from handle calls; the orchestrator classifies it separately from agent
// logic errors.
var ErrStorage = errors.New("memory storage error")

// Record is a single memory entry. Immutable after creation except for Tier
// (forward-only) and Confidence (decay-only), both touched exclusively by the
// consolidation worker.
type Record struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"session_id"`
	Content    string         `json:"content"`
	Tier       Tier           `json:"tier"`
	Embedding  []float32      `json:"-"`
	Confidence float64        `json:"confidence"` // 0.0-1.0
	Promote    bool           `json:"promote"`    // spared from short-term eviction
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// RetrievalResult is a record with its similarity score.
type RetrievalResult struct {
	Record Record  `json:"record"`
	Score  float64 `json:"score"`
}

// Handle is the per-invocation view agents get of the store: write access to
// the short tier, semantic read access to mid and long.
type Handle interface {
	// Write appends a record to the session's short-term buffer. Appends are
	// ordered by arrival and never block on storage I/O, so a write landing
	// after the caller's deadline has expired is still safe.
	Write(ctx context.Context, rec *Record) error

	// Query embeds the text and searches the mid and long tiers, merged by
	// similarity score with ties broken by recency. Returns at most topK
	// results at or above minConfidence.
	Query(ctx context.Context, text string, topK int, minConfidence float64) ([]RetrievalResult, error)

	// Recent returns up to n short-term records for this session, newest first.
	Recent(n int) []Record

	// Flush mirrors this invocation's writes to the recent-records cache.
	// Best-effort: failures are logged by the caller, never fatal.
	Flush(ctx context.Context) error

	// SessionID identifies the conversation this handle is scoped to.
	SessionID() string
}

// Embedder converts text into a vector embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the mid-term tier backend (qdrant in production).
type VectorIndex interface {
	Upsert(ctx context.Context, rec *Record) error
	Search(ctx context.Context, embedding []float32, limit int, minConfidence float64) ([]RetrievalResult, error)
	ScanOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Record, error)
	Delete(ctx context.Context, id string) error
}

// DurableStore is the long-term tier backend (gorm in production).
// Append-only; Delete exists for explicit operator action.
type DurableStore interface {
	Put(ctx context.Context, rec *Record) error
	SearchSimilar(ctx context.Context, embedding []float32, limit int, minConfidence float64) ([]RetrievalResult, error)
	Delete(ctx context.Context, id string) error
}

// Mirror receives best-effort copies of fresh short-term writes so other
// processes can see recent session activity (redis in production).
type Mirror interface {
	MirrorRecent(ctx context.Context, sessionID string, recs []Record, ttl time.Duration) error
}
