package health

import (
	"context"

	"github.com/kailas-cloud/nutrisafe/internal/kb"
)

// KnowledgeBase exposes the currently published snapshot.
type KnowledgeBase interface {
	Current() *kb.Snapshot
}

// Pinger checks availability of a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
