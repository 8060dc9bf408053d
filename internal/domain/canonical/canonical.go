package canonical

import "strings"

// Kind is the namespace of a canonical identifier.
type Kind string

// Canonical kinds.
const (
	Drug      Kind = "drug"
	Food      Kind = "food"
	Allergen  Kind = "allergen"
	Condition Kind = "condition"
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{Drug, Food, Allergen, Condition}

// IsValid checks if the kind is one of the supported values.
func (k Kind) IsValid() bool {
	return k == Drug || k == Food || k == Allergen || k == Condition
}

// Key folds a raw name into the lookup key shared by the synonym index and
// the normalizer: trimmed, lowercased, '-' and '_' read as spaces, runs of
// whitespace collapsed to one space.
func Key(raw string) string {
	raw = strings.ToLower(raw)
	raw = strings.Map(func(r rune) rune {
		if r == '-' || r == '_' {
			return ' '
		}
		return r
	}, raw)
	return strings.Join(strings.Fields(raw), " ")
}

// ID converts a lookup key into the identifier form used by canonical ids
// ("aged cheese" -> "aged_cheese").
func ID(raw string) string {
	return strings.ReplaceAll(Key(raw), " ", "_")
}
