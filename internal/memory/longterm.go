// internal/memory/longterm.go
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LongTermRecord is the durable row shape for promoted records. Append-only;
// rows are never auto-evicted and disappear only through an explicit,
// logged operator delete.
type LongTermRecord struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	SessionID  string         `gorm:"index;size:64" json:"session_id"`
	Content    string         `json:"content"`
	Embedding  datatypes.JSON `json:"-"`
	Confidence float64        `gorm:"index" json:"confidence"`
	Metadata   datatypes.JSON `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
	PromotedAt time.Time      `json:"promoted_at"`
}

// GormStore is the long-term tier backed by a relational database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm connection. The LongTermRecord table must
// already be migrated (see internal/db).
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Put appends a promoted record. IDs are unique, so a replayed promotion of
// the same record is a no-op conflict rather than a duplicate row.
func (s *GormStore) Put(ctx context.Context, rec *Record) error {
	embJSON, err := json.Marshal(rec.Embedding)
	if err != nil {
		return fmt.Errorf("%w: marshal embedding: %v", ErrStorage, err)
	}
	metaJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("%w: marshal metadata: %v", ErrStorage, err)
	}

	row := LongTermRecord{
		ID:         rec.ID,
		SessionID:  rec.SessionID,
		Content:    rec.Content,
		Embedding:  datatypes.JSON(embJSON),
		Confidence: rec.Confidence,
		Metadata:   datatypes.JSON(metaJSON),
		CreatedAt:  rec.CreatedAt,
		PromotedAt: time.Now(),
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: put: %v", ErrStorage, err)
	}
	return nil
}

// SearchSimilar scans candidate rows at or above minConfidence and ranks
// them by cosine similarity in process. The long tier is small relative to
// the mid tier, so a bounded brute-force scan is adequate.
func (s *GormStore) SearchSimilar(ctx context.Context, embedding []float32, limit int, minConfidence float64) ([]RetrievalResult, error) {
	const candidateLimit = 1000

	var rows []LongTermRecord
	err := s.db.WithContext(ctx).
		Where("confidence >= ?", minConfidence).
		Order("created_at DESC").
		Limit(candidateLimit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrStorage, err)
	}

	results := make([]RetrievalResult, 0, len(rows))
	for _, row := range rows {
		rec, err := rowToRecord(row)
		if err != nil {
			log.Printf("[LongTermStore] WARNING: skipping unreadable row %s: %v", row.ID, err)
			continue
		}
		score := cosineSimilarity(embedding, rec.Embedding)
		if score <= 0 {
			continue
		}
		results = append(results, RetrievalResult{Record: rec, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.CreatedAt.After(results[j].Record.CreatedAt)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes a long-term record. Only reachable from the explicit
// operator endpoint; every call is logged.
func (s *GormStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&LongTermRecord{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("%w: delete: %v", ErrStorage, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: delete: no such record %s", ErrStorage, id)
	}
	log.Printf("[LongTermStore] Deleted record %s (explicit operator action)", id)
	return nil
}

func rowToRecord(row LongTermRecord) (Record, error) {
	var embedding []float32
	if len(row.Embedding) > 0 {
		if err := json.Unmarshal(row.Embedding, &embedding); err != nil {
			return Record{}, fmt.Errorf("unmarshal embedding: %w", err)
		}
	}
	var metadata map[string]any
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			return Record{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return Record{
		ID:         row.ID,
		SessionID:  row.SessionID,
		Content:    row.Content,
		Tier:       TierLong,
		Embedding:  embedding,
		Confidence: row.Confidence,
		Metadata:   metadata,
		CreatedAt:  row.CreatedAt,
	}, nil
}
