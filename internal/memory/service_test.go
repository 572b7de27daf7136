package memory

import (
	"context"
	"testing"
	"time"

	"agentd/internal/config"
)

func testConfig() config.MemoryConfig {
	return config.MemoryConfig{
		ConsolidationIntervalSecs: 600,
		PromotionThreshold:        0.6,
		ConfidenceFloor:           0.2,
		ConfidenceDecayPerDay:     0.05,
		RetentionShortSecs:        1800,
		RetentionMidSecs:          7 * 24 * 3600,
		ShortBufferCapacity:       100,
		ShortBufferWindowSecs:     3600,
	}
}

func newTestService(t *testing.T) (*Service, *fakeEmbedder, *fakeIndex, *fakeStore, *fakeMirror) {
	t.Helper()
	embedder := newFakeEmbedder([]float32{1, 0, 0})
	index := newFakeIndex()
	store := newFakeStore()
	mirror := &fakeMirror{}
	svc := NewService(testConfig(), embedder, index, store, mirror)
	return svc, embedder, index, store, mirror
}

func TestHandleWriteLandsInShortTier(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	h := svc.NewHandle("sess-1")

	err := h.Write(context.Background(), &Record{Content: "note", Confidence: 0.7})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	recent := h.Recent(10)
	if len(recent) != 1 {
		t.Fatalf("Recent returned %d records, want 1", len(recent))
	}
	got := recent[0]
	if got.Tier != TierShort {
		t.Errorf("Tier = %s, want short", got.Tier)
	}
	if got.ID == "" {
		t.Error("record was not assigned an ID")
	}
	if got.SessionID != "sess-1" {
		t.Errorf("SessionID = %s, want sess-1", got.SessionID)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt was not set")
	}
}

func TestHandleWriteIgnoresCancelledContext(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	h := svc.NewHandle("sess-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := h.Write(ctx, &Record{Content: "late write", Confidence: 0.5}); err != nil {
		t.Fatalf("Write with cancelled context failed: %v", err)
	}
	if len(h.Recent(1)) != 1 {
		t.Error("write with cancelled context did not land")
	}
}

func TestWriteClampsConfidence(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	h := svc.NewHandle("sess-1")

	h.Write(context.Background(), &Record{Content: "hot", Confidence: 1.5})
	h.Write(context.Background(), &Record{Content: "cold", Confidence: -0.3})

	recent := h.Recent(2)
	for _, r := range recent {
		if r.Confidence < 0 || r.Confidence > 1 {
			t.Errorf("record %q confidence %f outside [0,1]", r.Content, r.Confidence)
		}
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	a := svc.NewHandle("a")
	b := svc.NewHandle("b")

	a.Write(context.Background(), &Record{Content: "for a", Confidence: 0.5})

	if got := len(b.Recent(10)); got != 0 {
		t.Errorf("session b sees %d records written by session a", got)
	}
	if got := len(a.Recent(10)); got != 1 {
		t.Errorf("session a sees %d of its own records, want 1", got)
	}
}

func TestQueryMergesTiersByScore(t *testing.T) {
	svc, _, index, store, _ := newTestService(t)
	now := time.Now()

	// Mid record aligned with the query vector, long record orthogonal.
	index.Upsert(context.Background(), &Record{
		ID: "mid-close", Content: "close", Tier: TierMid,
		Embedding: []float32{1, 0, 0}, Confidence: 0.8, CreatedAt: now,
	})
	store.Put(context.Background(), &Record{
		ID: "long-far", Content: "far", Tier: TierLong,
		Embedding: []float32{0, 1, 0}, Confidence: 0.8, CreatedAt: now,
	})

	results, err := svc.Query(context.Background(), "anything", 10, 0)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Record.ID != "mid-close" {
		t.Errorf("top result = %s, want mid-close", results[0].Record.ID)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("results not ordered by score: %f then %f", results[0].Score, results[1].Score)
	}
}

func TestQueryTopKAndRecencyTiebreak(t *testing.T) {
	svc, _, index, _, _ := newTestService(t)
	now := time.Now()

	// Identical embeddings, identical scores: newer record must win the tie.
	for i, id := range []string{"older", "newer"} {
		index.Upsert(context.Background(), &Record{
			ID: id, Content: id, Tier: TierMid,
			Embedding:  []float32{1, 0, 0},
			Confidence: 0.8,
			CreatedAt:  now.Add(time.Duration(i) * time.Minute),
		})
	}

	results, err := svc.Query(context.Background(), "anything", 1, 0)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("topK not enforced: got %d results", len(results))
	}
	if results[0].Record.ID != "newer" {
		t.Errorf("tiebreak picked %s, want newer", results[0].Record.ID)
	}
}

func TestQueryFiltersByConfidence(t *testing.T) {
	svc, _, index, _, _ := newTestService(t)
	now := time.Now()

	index.Upsert(context.Background(), &Record{
		ID: "confident", Embedding: []float32{1, 0, 0}, Confidence: 0.9, CreatedAt: now,
	})
	index.Upsert(context.Background(), &Record{
		ID: "shaky", Embedding: []float32{1, 0, 0}, Confidence: 0.3, CreatedAt: now,
	})

	results, err := svc.Query(context.Background(), "anything", 10, 0.5)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 || results[0].Record.ID != "confident" {
		t.Errorf("confidence filter failed: got %d results", len(results))
	}
}

func TestFlushMirrorsOnlyOwnWrites(t *testing.T) {
	svc, _, _, _, mirror := newTestService(t)

	other := svc.NewHandle("sess-1")
	other.Write(context.Background(), &Record{Content: "someone else", Confidence: 0.5})

	h := svc.NewHandle("sess-1")
	h.Write(context.Background(), &Record{Content: "mine", Confidence: 0.5})

	if err := h.Flush(context.Background()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	if len(mirror.mirrored) != 1 {
		t.Fatalf("mirror called %d times, want 1", len(mirror.mirrored))
	}
	if mirror.sessions[0] != "sess-1" {
		t.Errorf("mirrored session = %s, want sess-1", mirror.sessions[0])
	}
	recs := mirror.mirrored[0]
	if len(recs) != 1 || recs[0].Content != "mine" {
		t.Errorf("mirrored %d records, want only this handle's write", len(recs))
	}
}

func TestDeleteLong(t *testing.T) {
	svc, _, _, store, _ := newTestService(t)
	store.Put(context.Background(), &Record{ID: "keep-no-more", Tier: TierLong, Confidence: 0.9})

	if err := svc.DeleteLong(context.Background(), "keep-no-more"); err != nil {
		t.Fatalf("DeleteLong failed: %v", err)
	}
	if _, ok := store.get("keep-no-more"); ok {
		t.Error("record still present after DeleteLong")
	}
	if err := svc.DeleteLong(context.Background(), "missing"); err == nil {
		t.Error("expected error deleting a missing record")
	}
}
