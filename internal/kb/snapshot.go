package kb

import (
	"maps"
	"slices"
	"time"

	"github.com/kailas-cloud/nutrisafe/internal/domain/canonical"
	"github.com/kailas-cloud/nutrisafe/internal/domain/record"
)

// Synonym is one catalog name and the canonical id it resolves to.
type Synonym struct {
	Name string
	ID   string
}

// Stats summarizes a snapshot.
type Stats struct {
	Records     int            `json:"records"`
	Active      int            `json:"active"`
	Superseded  int            `json:"superseded"`
	Inactive    int            `json:"inactive"`
	ByKind      map[string]int `json:"by_kind"`
	CatalogSize map[string]int `json:"catalog_size"`
}

// Snapshot is an immutable, indexed knowledge base version.
// Safe for concurrent use; nothing mutates it after Build.
type Snapshot struct {
	version     string
	checksum    string
	publishedAt time.Time
	expiresAt   time.Time
	supersedes  []string

	history   map[string][]record.Record // id -> all versions, ascending
	effective map[string]record.Record   // id -> highest version

	byDrug      map[string][]record.Interaction
	byClass     map[string][]record.Interaction
	byFood      map[string][]record.Interaction
	byAllergen  map[string][]record.AllergenRule
	byCondition map[string][]record.Recommendation

	drugClass map[string]string
	foodTags  map[string][]string
	synonyms  map[canonical.Kind]map[string]string // folded key -> id
	names     map[canonical.Kind][]Synonym

	stats Stats
}

// Version returns the bundle version.
func (s *Snapshot) Version() string { return s.version }

// Checksum returns the bundle sha256.
func (s *Snapshot) Checksum() string { return s.checksum }

// PublishedAt returns the bundle publication time.
func (s *Snapshot) PublishedAt() time.Time { return s.publishedAt }

// ExpiresAt returns the expiry time, zero when the bundle does not expire.
func (s *Snapshot) ExpiresAt() time.Time { return s.expiresAt }

// Expired reports whether the bundle is past its expiry at now.
func (s *Snapshot) Expired(now time.Time) bool {
	return !s.expiresAt.IsZero() && !now.Before(s.expiresAt)
}

// Supersedes returns the versions this bundle replaces.
func (s *Snapshot) Supersedes() []string { return slices.Clone(s.supersedes) }

// Stats returns record and catalog counts.
func (s *Snapshot) Stats() Stats { return s.stats }

// InteractionsForDrug returns active interactions naming the drug directly
// plus class-wide interactions for its class, ordered by record id.
func (s *Snapshot) InteractionsForDrug(drugID string) []record.Interaction {
	direct := s.byDrug[drugID]
	class := s.byClass[s.drugClass[drugID]]
	if len(class) == 0 {
		return direct
	}
	out := make([]record.Interaction, 0, len(direct)+len(class))
	out = append(out, direct...)
	out = append(out, class...)
	slices.SortFunc(out, compareInteraction)
	return out
}

// InteractionsForFood returns active interactions listing the food or nutrient id.
func (s *Snapshot) InteractionsForFood(foodID string) []record.Interaction {
	return s.byFood[foodID]
}

// AllergenRules returns active rules for the allergen.
func (s *Snapshot) AllergenRules(allergenID string) []record.AllergenRule {
	return s.byAllergen[allergenID]
}

// RecommendationsForCondition returns active recommendations for the condition.
func (s *Snapshot) RecommendationsForCondition(conditionID string) []record.Recommendation {
	return s.byCondition[conditionID]
}

// DrugClass returns the pharmacological class of a drug.
func (s *Snapshot) DrugClass(drugID string) (string, bool) {
	c, ok := s.drugClass[drugID]
	return c, ok
}

// FoodTags returns the nutrient tags implied by a food.
func (s *Snapshot) FoodTags(foodID string) []string { return s.foodTags[foodID] }

// Lookup resolves a folded key (see canonical.Key) to a canonical id.
func (s *Snapshot) Lookup(kind canonical.Kind, key string) (string, bool) {
	id, ok := s.synonyms[kind][key]
	return id, ok
}

// Synonyms returns every catalog name of a kind, sorted by name.
func (s *Snapshot) Synonyms(kind canonical.Kind) []Synonym { return s.names[kind] }

// Record returns the effective (highest) version of a record.
func (s *Snapshot) Record(id string) (record.Record, bool) {
	r, ok := s.effective[id]
	return r, ok
}

// History returns every version of a record, ascending.
func (s *Snapshot) History(id string) []record.Record { return s.history[id] }

// RecordIDs returns all record ids, sorted.
func (s *Snapshot) RecordIDs() []string {
	return slices.Sorted(maps.Keys(s.effective))
}

func compareInteraction(a, b record.Interaction) int {
	switch {
	case a.Meta().ID() < b.Meta().ID():
		return -1
	case a.Meta().ID() > b.Meta().ID():
		return 1
	default:
		return 0
	}
}
