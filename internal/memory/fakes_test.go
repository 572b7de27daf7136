package memory

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeEmbedder returns a fixed vector, or fails after failAfter successful
// calls when failAfter >= 0.
type fakeEmbedder struct {
	mu        sync.Mutex
	vector    []float32
	calls     int
	failAfter int // -1 never fails
}

func newFakeEmbedder(vector []float32) *fakeEmbedder {
	return &fakeEmbedder{vector: vector, failAfter: -1}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAfter >= 0 && f.calls >= f.failAfter {
		return nil, errors.New("embedder down")
	}
	f.calls++
	out := make([]float32, len(f.vector))
	copy(out, f.vector)
	return out, nil
}

// fakeIndex is an in-memory VectorIndex.
type fakeIndex struct {
	mu      sync.Mutex
	records map[string]Record
	failAll bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{records: make(map[string]Record)}
}

func (f *fakeIndex) Upsert(ctx context.Context, rec *Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("index down")
	}
	f.records[rec.ID] = *rec
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, embedding []float32, limit int, minConfidence float64) ([]RetrievalResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errors.New("index down")
	}
	var out []RetrievalResult
	for _, rec := range f.records {
		if rec.Confidence < minConfidence {
			continue
		}
		out = append(out, RetrievalResult{Record: rec, Score: cosineSimilarity(embedding, rec.Embedding)})
	}
	return out, nil
}

func (f *fakeIndex) ScanOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errors.New("index down")
	}
	var out []Record
	for _, rec := range f.records {
		if rec.CreatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeIndex) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("index down")
	}
	delete(f.records, id)
	return nil
}

func (f *fakeIndex) get(id string) (Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	return rec, ok
}

func (f *fakeIndex) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// fakeStore is an in-memory DurableStore.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]Record)}
}

func (f *fakeStore) Put(ctx context.Context, rec *Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.ID] = *rec
	return nil
}

func (f *fakeStore) SearchSimilar(ctx context.Context, embedding []float32, limit int, minConfidence float64) ([]RetrievalResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []RetrievalResult
	for _, rec := range f.records {
		if rec.Confidence < minConfidence {
			continue
		}
		out = append(out, RetrievalResult{Record: rec, Score: cosineSimilarity(embedding, rec.Embedding)})
	}
	return out, nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return errors.New("not found")
	}
	delete(f.records, id)
	return nil
}

func (f *fakeStore) get(id string) (Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	return rec, ok
}

// fakeMirror records MirrorRecent calls.
type fakeMirror struct {
	mu       sync.Mutex
	sessions []string
	mirrored [][]Record
}

func (f *fakeMirror) MirrorRecent(ctx context.Context, sessionID string, recs []Record, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, sessionID)
	f.mirrored = append(f.mirrored, recs)
	return nil
}
