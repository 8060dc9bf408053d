package suggest

import (
	"context"

	"github.com/kailas-cloud/nutrisafe/internal/domain"
	"github.com/kailas-cloud/nutrisafe/internal/kb"
)

// SnapshotSource hands out leases on the published knowledge base.
type SnapshotSource interface {
	Acquire() (*kb.Snapshot, func(), error)
}

// Embedder vectorizes the queried name and the catalog names.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
