package kbload

import (
	"context"

	"github.com/kailas-cloud/nutrisafe/internal/kb"
)

// Source fetches a raw knowledge base bundle.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, kb.Format, error)
}

// Publisher swaps the live snapshot.
type Publisher interface {
	Current() *kb.Snapshot
	Publish(s *kb.Snapshot) error
}

// Mirror keeps the last published bundle so a restart can recover without
// the primary source. It is also a Source.
type Mirror interface {
	Source
	Save(ctx context.Context, version string, data []byte) error
}
