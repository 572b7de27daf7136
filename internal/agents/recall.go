package agents

import (
	"context"
	"errors"

	"agentd/internal/memory"
)

// Recall performs a semantic memory lookup through the invocation handle.
// Params: "query" (required), "top_k", "min_confidence".
func Recall(ctx context.Context, params map[string]any, mem memory.Handle) (map[string]any, error) {
	query, _ := params["query"].(string)
	if query == "" {
		return nil, errors.New("recall: missing query parameter")
	}

	topK := 5
	if v, ok := params["top_k"].(float64); ok && v > 0 {
		topK = int(v)
	}
	minConfidence := 0.0
	if v, ok := params["min_confidence"].(float64); ok {
		minConfidence = v
	}

	results, err := mem.Query(ctx, query, topK, minConfidence)
	if err != nil {
		return nil, err
	}

	matches := make([]map[string]any, 0, len(results))
	for _, r := range results {
		matches = append(matches, map[string]any{
			"id":         r.Record.ID,
			"content":    r.Record.Content,
			"tier":       string(r.Record.Tier),
			"confidence": r.Record.Confidence,
			"score":      r.Score,
			"created_at": r.Record.CreatedAt,
		})
	}

	return map[string]any{
		"query":   query,
		"matches": matches,
	}, nil
}
