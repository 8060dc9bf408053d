package query

import (
	"fmt"

	"github.com/kailas-cloud/nutrisafe/internal/domain/item"
	"github.com/kailas-cloud/nutrisafe/internal/domain/profile"
)

// MaxItems bounds the number of candidate items per query.
const MaxItems = 200

// Query is a single safety check request.
type Query struct {
	Profile profile.Profile `json:"profile" yaml:"profile"`
	Items   []item.Item     `json:"items" yaml:"items"`
	// KBVersion pins the knowledge base version. Empty means current.
	KBVersion string `json:"kb_version,omitempty" yaml:"kb_version,omitempty"`
}

// Validate checks the query shape.
func (q Query) Validate() error {
	if len(q.Items) == 0 {
		return fmt.Errorf("at least one item is required")
	}
	if len(q.Items) > MaxItems {
		return fmt.Errorf("too many items (max %d)", MaxItems)
	}
	seen := make(map[string]bool, len(q.Items))
	for _, it := range q.Items {
		if err := it.Validate(); err != nil {
			return err
		}
		if seen[it.ID] {
			return fmt.Errorf("duplicate item id: %s", it.ID)
		}
		seen[it.ID] = true
	}
	for _, m := range q.Profile.Medications {
		if m.Name == "" {
			return fmt.Errorf("medication name is required")
		}
	}
	for _, a := range q.Profile.Allergies {
		if a.Name == "" {
			return fmt.Errorf("allergy name is required")
		}
		if a.Severity != "" && !a.Severity.IsValid() {
			return fmt.Errorf("allergy %s: invalid severity %q", a.Name, a.Severity)
		}
	}
	return nil
}
