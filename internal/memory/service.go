// internal/memory/service.go
package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"agentd/internal/config"
)

// Service owns the three tiers and hands out per-invocation handles. It is
// constructed explicitly and passed by reference; there is no package-level
// instance, so tests build isolated services with fake backends.
type Service struct {
	cfg      config.MemoryConfig
	embedder Embedder
	index    VectorIndex
	durable  DurableStore
	mirror   Mirror // optional

	mu      sync.Mutex
	buffers map[string]*ShortTermBuffer
}

// NewService wires the tier backends together. mirror may be nil.
func NewService(cfg config.MemoryConfig, embedder Embedder, index VectorIndex, durable DurableStore, mirror Mirror) *Service {
	return &Service{
		cfg:      cfg,
		embedder: embedder,
		index:    index,
		durable:  durable,
		mirror:   mirror,
		buffers:  make(map[string]*ShortTermBuffer),
	}
}

// NewHandle returns an invocation-scoped handle for the session.
func (s *Service) NewHandle(sessionID string) Handle {
	if sessionID == "" {
		sessionID = "default"
	}
	return &sessionHandle{
		svc:       s,
		sessionID: sessionID,
	}
}

// buffer returns (creating if needed) the session's short-term buffer.
func (s *Service) buffer(sessionID string) *ShortTermBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.buffers[sessionID]
	if !ok {
		buf = NewShortTermBuffer(
			s.cfg.ShortBufferCapacity,
			time.Duration(s.cfg.ShortBufferWindowSecs)*time.Second,
		)
		s.buffers[sessionID] = buf
	}
	return buf
}

// sessions returns a snapshot of session IDs with live buffers.
func (s *Service) sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.buffers))
	for id := range s.buffers {
		out = append(out, id)
	}
	return out
}

// write appends a record to the session's short-term buffer. New records
// always enter at the short tier; the consolidation worker is the only
// component that moves them forward.
func (s *Service) write(sessionID string, rec *Record) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.SessionID = sessionID
	rec.Tier = TierShort
	if rec.Confidence < 0 {
		rec.Confidence = 0
	}
	if rec.Confidence > 1 {
		rec.Confidence = 1
	}

	s.buffer(sessionID).Append(*rec)
}

// Recent returns up to n short-term records for the session, newest first.
func (s *Service) Recent(sessionID string, n int) []Record {
	return s.buffer(sessionID).Recent(n)
}

// Query embeds the text and searches the mid and long tiers, merged by score
// with ties broken by recency. The short tier is deliberately excluded from
// semantic search; it is served by Recent.
func (s *Service) Query(ctx context.Context, text string, topK int, minConfidence float64) ([]RetrievalResult, error) {
	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", ErrStorage, err)
	}
	return s.QueryByEmbedding(ctx, embedding, topK, minConfidence)
}

// QueryByEmbedding searches mid and long tiers with a precomputed vector.
func (s *Service) QueryByEmbedding(ctx context.Context, embedding []float32, topK int, minConfidence float64) ([]RetrievalResult, error) {
	if topK <= 0 {
		topK = 10
	}

	midResults, err := s.index.Search(ctx, embedding, topK, minConfidence)
	if err != nil {
		return nil, err
	}
	longResults, err := s.durable.SearchSimilar(ctx, embedding, topK, minConfidence)
	if err != nil {
		return nil, err
	}

	merged := append(midResults, longResults...)
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		// Most recent first on equal score
		return merged[i].Record.CreatedAt.After(merged[j].Record.CreatedAt)
	})

	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, nil
}

// DeleteLong removes a long-term record on explicit operator request.
func (s *Service) DeleteLong(ctx context.Context, id string) error {
	log.Printf("[Memory] Operator delete requested for long-term record %s", id)
	return s.durable.Delete(ctx, id)
}

// flush mirrors the given records to the recent-records cache. Best-effort.
func (s *Service) flush(ctx context.Context, sessionID string, recs []Record) error {
	if s.mirror == nil || len(recs) == 0 {
		return nil
	}
	ttl := time.Duration(s.cfg.RetentionShortSecs) * time.Second
	return s.mirror.MirrorRecent(ctx, sessionID, recs, ttl)
}
