package item

import (
	"fmt"
	"slices"
)

// Kind is the shape of a candidate item.
type Kind string

// Item kinds.
const (
	KindFood           Kind = "food"
	KindIngredientList Kind = "ingredient_list"
	KindRecipe         Kind = "recipe"
)

// IsValid checks if the kind is one of the supported values.
func (k Kind) IsValid() bool {
	return k == KindFood || k == KindIngredientList || k == KindRecipe
}

// Item is a candidate food, ingredient list or recipe as entered by the caller.
type Item struct {
	ID           string             `json:"id" yaml:"id"`
	Name         string             `json:"name" yaml:"name"`
	Kind         Kind               `json:"kind,omitempty" yaml:"kind,omitempty"`
	Ingredients  []string           `json:"ingredients,omitempty" yaml:"ingredients,omitempty"`
	NutrientTags []string           `json:"nutrient_tags,omitempty" yaml:"nutrient_tags,omitempty"`
	CrossContact []string           `json:"cross_contact,omitempty" yaml:"cross_contact,omitempty"`
	Nutrients    map[string]float64 `json:"nutrients,omitempty" yaml:"nutrients,omitempty"`
}

// Validate checks the item shape. Kind defaults to food.
func (i Item) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("item id is required")
	}
	if i.Kind != "" && !i.Kind.IsValid() {
		return fmt.Errorf("item %s: invalid kind %q", i.ID, i.Kind)
	}
	if i.Name == "" && len(i.Ingredients) == 0 {
		return fmt.Errorf("item %s: name or ingredients are required", i.ID)
	}
	for n, v := range i.Nutrients {
		if v < 0 {
			return fmt.Errorf("item %s: nutrient %s must be >= 0", i.ID, n)
		}
	}
	return nil
}

// RawIngredients returns the names to normalize. A plain food without an
// ingredient list is its own single ingredient.
func (i Item) RawIngredients() []string {
	if len(i.Ingredients) == 0 && (i.Kind == "" || i.Kind == KindFood) && i.Name != "" {
		return []string{i.Name}
	}
	return i.Ingredients
}

// Normalized is an item reduced to canonical ids.
type Normalized struct {
	ID   string
	Name string
	// Ingredients are canonical ingredient ids, sorted.
	Ingredients []string
	// Tags are ingredients plus nutrient tags and implied tags, sorted.
	Tags []string
	// CrossContact are "may contain" canonical ids, sorted.
	CrossContact []string
	Nutrients    map[string]float64
	// Unresolved lists raw ingredient names that failed normalization.
	Unresolved []string
}

// HasTag reports whether id is among the item's tags.
func (n Normalized) HasTag(id string) bool {
	_, ok := slices.BinarySearch(n.Tags, id)
	return ok
}

// Intersect returns the sorted ids present in both sorted slices.
func Intersect(a, b []string) []string {
	var out []string
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

// SortedSet returns a sorted, deduplicated copy.
func SortedSet(ids ...[]string) []string {
	var out []string
	for _, s := range ids {
		out = append(out, s...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
