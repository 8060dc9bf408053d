package item

import (
	"slices"
	"testing"
)

func TestRawIngredients(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want []string
	}{
		{"food is its own ingredient", Item{ID: "1", Name: "kale", Kind: KindFood}, []string{"kale"}},
		{"default kind is food", Item{ID: "1", Name: "kale"}, []string{"kale"}},
		{"recipe uses ingredient list", Item{ID: "1", Name: "salad", Kind: KindRecipe, Ingredients: []string{"kale", "oil"}}, []string{"kale", "oil"}},
		{"recipe without ingredients", Item{ID: "1", Name: "mystery", Kind: KindRecipe}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.item.RawIngredients(); !slices.Equal(got, tc.want) {
				t.Errorf("RawIngredients() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := (Item{Name: "kale"}).Validate(); err == nil {
		t.Error("expected error for missing id")
	}
	if err := (Item{ID: "1", Name: "kale", Kind: "drink"}).Validate(); err == nil {
		t.Error("expected error for invalid kind")
	}
	if err := (Item{ID: "1", Name: "soup", Nutrients: map[string]float64{"sodium_mg": -3}}).Validate(); err == nil {
		t.Error("expected error for negative nutrient")
	}
	if err := (Item{ID: "1", Name: "kale"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIntersect(t *testing.T) {
	got := Intersect([]string{"a", "c", "e"}, []string{"b", "c", "d", "e"})
	if !slices.Equal(got, []string{"c", "e"}) {
		t.Errorf("Intersect = %v", got)
	}
	if got := Intersect(nil, []string{"a"}); got != nil {
		t.Errorf("Intersect(nil, ...) = %v, want nil", got)
	}
}

func TestHasTag_NoSubstringMatch(t *testing.T) {
	n := Normalized{Tags: SortedSet([]string{"grape", "kale"})}
	if n.HasTag("grapefruit") {
		t.Error("grapefruit must not match grape")
	}
	if !n.HasTag("grape") {
		t.Error("expected grape")
	}
}
