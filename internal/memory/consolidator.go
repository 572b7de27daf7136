// internal/memory/consolidator.go
package memory

import (
	"context"
	"log"
	"math"
	"time"

	"agentd/internal/config"
)

// Consolidator is the single background worker that moves records forward
// through the tiers. Running exactly one keeps tier transitions race-free
// without transactional upserts on the index.
type Consolidator struct {
	svc      *Service
	cfg      config.MemoryConfig
	interval time.Duration
	stopChan chan struct{}
}

// NewConsolidator creates the background consolidation worker.
func NewConsolidator(svc *Service, cfg config.MemoryConfig) *Consolidator {
	return &Consolidator{
		svc:      svc,
		cfg:      cfg,
		interval: time.Duration(cfg.ConsolidationIntervalSecs) * time.Second,
		stopChan: make(chan struct{}),
	}
}

// Start begins the consolidation loop. Blocks; run in a goroutine.
func (c *Consolidator) Start() {
	log.Printf("[Consolidator] Starting consolidation worker (runs every %s)", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on start
	c.RunCycle(context.Background())

	for {
		select {
		case <-ticker.C:
			c.RunCycle(context.Background())
		case <-c.stopChan:
			log.Printf("[Consolidator] Stopping consolidation worker")
			return
		}
	}
}

// Stop gracefully stops the worker
func (c *Consolidator) Stop() {
	close(c.stopChan)
}

// RunCycle performs one full consolidation pass: short -> mid, then
// mid -> long/discard. Exported so tests and the operator endpoint can
// trigger a pass without waiting for the ticker.
func (c *Consolidator) RunCycle(ctx context.Context) {
	startTime := time.Now()

	promoted, discarded := c.consolidateShort(ctx)
	log.Printf("[Consolidator] Short pass: %d promoted to mid, %d discarded", promoted, discarded)

	promoted, discarded = c.consolidateMid(ctx)
	log.Printf("[Consolidator] Mid pass: %d promoted to long, %d discarded", promoted, discarded)

	log.Printf("[Consolidator] Cycle complete (took %s)", time.Since(startTime).Round(time.Millisecond))
}

// consolidateShort drains short-term entries past the short retention
// horizon: decayed records below the confidence floor are dropped, the rest
// are embedded and inserted into the mid-term index.
func (c *Consolidator) consolidateShort(ctx context.Context) (promoted, discarded int) {
	cutoff := time.Now().Add(-time.Duration(c.cfg.RetentionShortSecs) * time.Second)

	for _, sessionID := range c.svc.sessions() {
		buf := c.svc.buffer(sessionID)
		for _, rec := range buf.TakeOlderThan(cutoff) {
			rec.Confidence = c.decayedConfidence(&rec)

			if rec.Confidence < c.cfg.ConfidenceFloor {
				discarded++
				continue
			}

			if len(rec.Embedding) == 0 {
				embedding, err := c.svc.embedder.Embed(ctx, rec.Content)
				if err != nil {
					// Requeue for the next cycle. The record is already past
					// the window, so flag it to survive eviction.
					log.Printf("[Consolidator] ERROR: embed %s failed, requeueing: %v", rec.ID, err)
					rec.Promote = true
					buf.Append(rec)
					continue
				}
				rec.Embedding = embedding
			}

			rec.Tier = TierMid
			if err := c.svc.index.Upsert(ctx, &rec); err != nil {
				log.Printf("[Consolidator] ERROR: mid upsert %s failed, requeueing: %v", rec.ID, err)
				rec.Tier = TierShort
				rec.Promote = true
				buf.Append(rec)
				continue
			}
			promoted++
		}
	}
	return promoted, discarded
}

// consolidateMid scans mid-term entries past the mid retention horizon:
// records at or above the promotion threshold move to the long-term store,
// the rest are discarded.
func (c *Consolidator) consolidateMid(ctx context.Context) (promoted, discarded int) {
	cutoff := time.Now().Add(-time.Duration(c.cfg.RetentionMidSecs) * time.Second)

	records, err := c.svc.index.ScanOlderThan(ctx, cutoff, 100)
	if err != nil {
		log.Printf("[Consolidator] ERROR: mid scan failed: %v", err)
		return 0, 0
	}

	for _, rec := range records {
		rec.Confidence = c.decayedConfidence(&rec)

		if rec.Confidence >= c.cfg.PromotionThreshold {
			rec.Tier = TierLong
			if err := c.svc.durable.Put(ctx, &rec); err != nil {
				log.Printf("[Consolidator] ERROR: long put %s failed, keeping in mid: %v", rec.ID, err)
				continue
			}
			if err := c.svc.index.Delete(ctx, rec.ID); err != nil {
				// The long copy landed; a stale mid entry is harmless and
				// will be retried next cycle.
				log.Printf("[Consolidator] WARNING: mid delete %s failed: %v", rec.ID, err)
			}
			promoted++
			continue
		}

		if err := c.svc.index.Delete(ctx, rec.ID); err != nil {
			log.Printf("[Consolidator] ERROR: discard %s failed: %v", rec.ID, err)
			continue
		}
		discarded++
	}
	return promoted, discarded
}

// decayedConfidence applies exponential age decay. Confidence only moves
// down; the stored value is never raised.
func (c *Consolidator) decayedConfidence(rec *Record) float64 {
	ageDays := time.Since(rec.CreatedAt).Hours() / 24.0
	if ageDays <= 0 {
		return rec.Confidence
	}
	decayed := rec.Confidence * math.Pow(1.0-c.cfg.ConfidenceDecayPerDay, ageDays)
	if decayed > rec.Confidence {
		return rec.Confidence
	}
	return decayed
}
