package agents

import (
	"context"

	"agentd/internal/memory"
)

// Echo returns its "text" parameter immediately. Used for liveness checks
// and as the simplest possible dispatch path.
func Echo(ctx context.Context, params map[string]any, mem memory.Handle) (map[string]any, error) {
	text, _ := params["text"].(string)
	return map[string]any{"message": text}, nil
}
