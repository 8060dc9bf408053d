package normalize

import "github.com/kailas-cloud/nutrisafe/internal/domain/canonical"

// SynonymTable resolves folded names to canonical ids.
type SynonymTable interface {
	Lookup(kind canonical.Kind, key string) (string, bool)
}

// Catalog is a synonym table that also knows implied food tags.
type Catalog interface {
	SynonymTable
	FoodTags(foodID string) []string
}
