// internal/memory/midterm.go
package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// embeddingDim matches all-MiniLM-L6-v2 sized embedding services.
const embeddingDim = 384

// QdrantIndex is the mid-term tier: embedded records with similarity search
// and a retention horizon enforced by the consolidation worker.
type QdrantIndex struct {
	client         *qdrant.Client
	collectionName string
}

// NewQdrantIndex connects to qdrant and ensures the collection exists.
func NewQdrantIndex(qdrantURL, collectionName, apiKey string) (*QdrantIndex, error) {
	// Strip http:// or https:// prefix and any port
	qdrantURL = strings.TrimPrefix(qdrantURL, "http://")
	qdrantURL = strings.TrimPrefix(qdrantURL, "https://")

	host := qdrantURL
	if idx := strings.Index(qdrantURL, ":"); idx != -1 {
		host = qdrantURL[:idx]
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   6334, // gRPC port
		APIKey: apiKey,
		UseTLS: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	q := &QdrantIndex{
		client:         client,
		collectionName: collectionName,
	}

	if err := q.ensureCollection(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	return q, nil
}

// ensureCollection creates the collection if it doesn't exist
func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     embeddingDim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Payload indexes for efficient filtering
	indexes := []struct {
		field string
		typ   qdrant.PayloadSchemaType
	}{
		{"session_id", qdrant.PayloadSchemaType_Keyword},
		{"tier", qdrant.PayloadSchemaType_Keyword},
		{"created_at", qdrant.PayloadSchemaType_Integer},
		{"confidence", qdrant.PayloadSchemaType_Float},
	}

	for _, idx := range indexes {
		fieldType := qdrant.FieldType(idx.typ)
		_, err = q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: q.collectionName,
			FieldName:      idx.field,
			FieldType:      &fieldType,
			Wait:           boolPtr(true),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for %s: %w", idx.field, err)
		}
	}

	return nil
}

// Upsert saves a record to the index.
func (q *QdrantIndex) Upsert(ctx context.Context, rec *Record) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(rec.ID),
		Vectors: qdrant.NewVectors(rec.Embedding...),
		Payload: recordPayload(rec),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("%w: upsert: %v", ErrStorage, err)
	}
	return nil
}

// Search performs semantic search over the index.
func (q *QdrantIndex) Search(ctx context.Context, embedding []float32, limit int, minConfidence float64) ([]RetrievalResult, error) {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: "confidence",
						Range: &qdrant.Range{
							Gte: floatPtr(minConfidence),
						},
					},
				},
			},
		},
	}

	searchResult, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Filter:         filter,
		Limit:          uint64Ptr(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrStorage, err)
	}

	results := make([]RetrievalResult, 0, len(searchResult))
	for _, point := range searchResult {
		results = append(results, RetrievalResult{
			Record: pointToRecord(point.Payload, nil),
			Score:  float64(point.Score),
		})
	}

	return results, nil
}

// ScanOlderThan returns records created before cutoff, vectors included, for
// the consolidation worker's promotion pass.
func (q *QdrantIndex) ScanOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Record, error) {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: "created_at",
						Range: &qdrant.Range{
							Lt: floatPtr(float64(cutoff.Unix())),
						},
					},
				},
			},
		},
	}

	scrollResult, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: q.collectionName,
		Filter:         filter,
		Limit:          uint32Ptr(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors: &qdrant.WithVectorsSelector{
			SelectorOptions: &qdrant.WithVectorsSelector_Enable{
				Enable: true,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scroll: %v", ErrStorage, err)
	}

	records := make([]Record, 0, len(scrollResult))
	for _, point := range scrollResult {
		var embedding []float32
		if vectors := point.Vectors.GetVector(); vectors != nil {
			embedding = vectors.Data
		}
		records = append(records, pointToRecord(point.Payload, embedding))
	}

	return records, nil
}

// Delete removes a record from the index (tier promotion or discard).
func (q *QdrantIndex) Delete(ctx context.Context, id string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(id)),
	})
	if err != nil {
		return fmt.Errorf("%w: delete: %v", ErrStorage, err)
	}
	return nil
}

func recordPayload(rec *Record) map[string]*qdrant.Value {
	metadataStruct := make(map[string]*qdrant.Value)
	for k, v := range rec.Metadata {
		switch val := v.(type) {
		case string:
			metadataStruct[k] = qdrant.NewValueString(val)
		case int:
			metadataStruct[k] = qdrant.NewValueInt(int64(val))
		case int64:
			metadataStruct[k] = qdrant.NewValueInt(val)
		case float64:
			metadataStruct[k] = qdrant.NewValueDouble(val)
		case bool:
			metadataStruct[k] = qdrant.NewValueBool(val)
		}
	}

	return map[string]*qdrant.Value{
		"record_id":  qdrant.NewValueString(rec.ID),
		"session_id": qdrant.NewValueString(rec.SessionID),
		"content":    qdrant.NewValueString(rec.Content),
		"tier":       qdrant.NewValueString(string(rec.Tier)),
		"confidence": qdrant.NewValueDouble(rec.Confidence),
		"created_at": qdrant.NewValueInt(rec.CreatedAt.Unix()),
		"metadata":   {Kind: &qdrant.Value_StructValue{StructValue: &qdrant.Struct{Fields: metadataStruct}}},
	}
}

func pointToRecord(payload map[string]*qdrant.Value, embedding []float32) Record {
	return Record{
		ID:         getStringFromPayload(payload, "record_id"),
		SessionID:  getStringFromPayload(payload, "session_id"),
		Content:    getStringFromPayload(payload, "content"),
		Tier:       Tier(getStringFromPayload(payload, "tier")),
		Confidence: getFloatFromPayload(payload, "confidence"),
		CreatedAt:  time.Unix(getIntFromPayload(payload, "created_at"), 0),
		Metadata:   getMetadataFromPayload(payload, "metadata"),
		Embedding:  embedding,
	}
}

// Helper functions for payload extraction
func getStringFromPayload(payload map[string]*qdrant.Value, key string) string {
	if val, ok := payload[key]; ok && val.GetStringValue() != "" {
		return val.GetStringValue()
	}
	return ""
}

func getIntFromPayload(payload map[string]*qdrant.Value, key string) int64 {
	if val, ok := payload[key]; ok {
		return val.GetIntegerValue()
	}
	return 0
}

func getFloatFromPayload(payload map[string]*qdrant.Value, key string) float64 {
	if val, ok := payload[key]; ok {
		return val.GetDoubleValue()
	}
	return 0.0
}

func getMetadataFromPayload(payload map[string]*qdrant.Value, key string) map[string]any {
	val, ok := payload[key]
	if !ok {
		return nil
	}
	structValue := val.GetStructValue()
	if structValue == nil {
		return nil
	}

	result := make(map[string]any)
	for k, v := range structValue.Fields {
		// Switch on the kind so zero values ("", 0, false) survive the
		// round trip instead of reading as absent.
		switch kind := v.Kind.(type) {
		case *qdrant.Value_StringValue:
			result[k] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			result[k] = int(kind.IntegerValue)
		case *qdrant.Value_DoubleValue:
			result[k] = kind.DoubleValue
		case *qdrant.Value_BoolValue:
			result[k] = kind.BoolValue
		}
	}
	return result
}

func uint64Ptr(v uint64) *uint64 { return &v }
func uint32Ptr(v uint32) *uint32 { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool       { return &v }
