package service

import (
	"context"

	"github.com/gol43/test-moon/internal/events"

	"go.uber.org/zap"
)

// uniqueIDs drops repeated ids, keeping first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func int64Values(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// publish delivers e and only logs a failure; the change is already committed.
func publish(ctx context.Context, p events.Publisher, logger *zap.Logger, e events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		logger.Warn("Failed to publish event",
			zap.String("entity", e.Entity),
			zap.String("action", e.Action),
			zap.Int64("entity_id", e.EntityID),
			zap.Error(err),
		)
	}
}
