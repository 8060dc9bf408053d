package normalize

import (
	"errors"
	"os"
	"slices"
	"testing"

	"github.com/kailas-cloud/nutrisafe/internal/domain"
	"github.com/kailas-cloud/nutrisafe/internal/domain/canonical"
	"github.com/kailas-cloud/nutrisafe/internal/domain/item"
	"github.com/kailas-cloud/nutrisafe/internal/domain/profile"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
	"github.com/kailas-cloud/nutrisafe/internal/kb"
)

// --- Mocks ---

type mockCatalog struct {
	names map[canonical.Kind]map[string]string
	tags  map[string][]string
}

func (m *mockCatalog) Lookup(kind canonical.Kind, key string) (string, bool) {
	id, ok := m.names[kind][key]
	return id, ok
}

func (m *mockCatalog) FoodTags(id string) []string { return m.tags[id] }

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		names: map[canonical.Kind]map[string]string{
			canonical.Drug: {"warfarin": "warfarin", "coumadin": "warfarin"},
			canonical.Food: {
				"grape": "grape", "kale": "kale", "tomato": "tomato",
				"blueberries": "blueberry", "chocolate chip": "chocolate_chip",
			},
			canonical.Allergen:  {"peanut": "peanut"},
			canonical.Condition: {"ckd": "chronic_kidney_disease"},
		},
		tags: map[string][]string{"kale": {"vitamin_k"}},
	}
}

// --- Tests ---

func TestNormalize(t *testing.T) {
	n := New(newMockCatalog())
	tests := []struct {
		name   string
		raw    string
		kind   canonical.Kind
		wantID string
		wantBy Method
	}{
		{"exact brand", "Coumadin", canonical.Drug, "warfarin", MethodExact},
		{"case and whitespace", "  WARFARIN ", canonical.Drug, "warfarin", MethodExact},
		{"dosage suffix", "warfarin 5mg", canonical.Drug, "warfarin", MethodDosageStripped},
		{"dosage with form", "Coumadin 2.5 mg tablets", canonical.Drug, "warfarin", MethodDosageStripped},
		{"parenthesized dosage", "warfarin (5 mg)", canonical.Drug, "warfarin", MethodDosageStripped},
		{"plural food", "Chocolate Chips", canonical.Food, "chocolate_chip", MethodSingularized},
		{"oes plural", "tomatoes", canonical.Food, "tomato", MethodSingularized},
		{"singular to plural", "blueberry", canonical.Food, "blueberry", MethodPluralized},
		{"plural allergen", "Peanuts", canonical.Allergen, "peanut", MethodSingularized},
		{"condition alias", "CKD", canonical.Condition, "chronic_kidney_disease", MethodExact},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := n.Normalize(tc.raw, tc.kind)
			if !r.Resolved() {
				t.Fatalf("Normalize(%q) not found", tc.raw)
			}
			if r.ID != tc.wantID || r.MatchedBy != tc.wantBy {
				t.Errorf("Normalize(%q) = %s by %s, want %s by %s", tc.raw, r.ID, r.MatchedBy, tc.wantID, tc.wantBy)
			}
			if r.Err() != nil {
				t.Errorf("Err() = %v, want nil", r.Err())
			}
		})
	}
}

func TestNormalize_NotFound(t *testing.T) {
	n := New(newMockCatalog())
	tests := []struct {
		name string
		raw  string
		kind canonical.Kind
	}{
		{"unknown brand", "Tylenol", canonical.Drug},
		{"unknown with dosage", "Tylenol 500mg", canonical.Drug},
		{"empty", "   ", canonical.Drug},
		{"no substring match", "grapefruit", canonical.Food},
		{"no plural collapse for drugs", "coumadins", canonical.Drug},
		{"no dosage stripping for foods", "kale 100 g", canonical.Food},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := n.Normalize(tc.raw, tc.kind)
			if r.Resolved() {
				t.Fatalf("Normalize(%q) = %s, want not_found", tc.raw, r.ID)
			}
			if r.Status != StatusNotFound {
				t.Errorf("Status = %q", r.Status)
			}
			if !errors.Is(r.Err(), domain.ErrNormalizationFailure) {
				t.Errorf("Err() = %v, want ErrNormalizationFailure", r.Err())
			}
		})
	}
}

func TestProfile(t *testing.T) {
	n := New(newMockCatalog())
	p := profile.Profile{
		Age: 70,
		Medications: []profile.Medication{
			{Name: "Coumadin", Dosage: "5mg"},
			{Name: "Tylenol"},
			{Name: "warfarin"},
		},
		Conditions:     []string{"ckd"},
		Allergies:      []profile.Allergy{{Name: "peanuts"}},
		NutrientLimits: map[string]float64{"Sodium MG": 1500},
	}
	got, failures := n.Profile(p)

	if len(got.Medications) != 1 || got.Medications[0].ID != "warfarin" || got.Medications[0].Raw != "Coumadin" {
		t.Errorf("Medications = %+v, want deduplicated warfarin", got.Medications)
	}
	if len(failures) != 1 || failures[0].Raw != "Tylenol" || failures[0].Kind != canonical.Drug {
		t.Errorf("failures = %+v, want Tylenol", failures)
	}
	if !got.HasCondition("chronic_kidney_disease") {
		t.Error("condition not normalized")
	}
	if got.Allergies[0].Severity != severity.None {
		t.Errorf("default allergy severity = %q, want none", got.Allergies[0].Severity)
	}
	if v, ok := got.NutrientLimit("sodium_mg"); !ok || v != 1500 {
		t.Errorf("NutrientLimit(sodium_mg) = %v, %v", v, ok)
	}
}

func TestItem(t *testing.T) {
	n := New(newMockCatalog())
	got := n.Item(item.Item{
		ID:           "salad",
		Name:         "Kale salad",
		Kind:         item.KindRecipe,
		Ingredients:  []string{"Kale", "tomatoes", "dragonfruit dust"},
		NutrientTags: []string{"Sodium"},
		CrossContact: []string{"peanut"},
		Nutrients:    map[string]float64{"Sodium-mg": 300},
	})
	if !slices.Equal(got.Ingredients, []string{"kale", "tomato"}) {
		t.Errorf("Ingredients = %v", got.Ingredients)
	}
	if !slices.Equal(got.Tags, []string{"kale", "sodium", "tomato", "vitamin_k"}) {
		t.Errorf("Tags = %v", got.Tags)
	}
	if !slices.Equal(got.Unresolved, []string{"dragonfruit dust", "peanut"}) {
		t.Errorf("Unresolved = %v", got.Unresolved)
	}
	if got.Nutrients["sodium_mg"] != 300 {
		t.Errorf("Nutrients = %v", got.Nutrients)
	}
}

func TestNormalize_SeedCatalog(t *testing.T) {
	data, err := os.ReadFile("../../../testdata/kb/seed.yaml")
	if err != nil {
		t.Fatalf("read seed: %v", err)
	}
	b, err := kb.Decode(data, kb.FormatYAML)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	snap, err := kb.Build(b)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	n := New(snap)

	if r := n.Normalize("Tylenol", canonical.Drug); r.Resolved() {
		t.Errorf("Tylenol resolved to %s", r.ID)
	}
	if r := n.Normalize("Nardil 15 mg", canonical.Drug); r.ID != "phenelzine" {
		t.Errorf("Nardil 15 mg = %q, want phenelzine", r.ID)
	}
	if r := n.Normalize("tree nuts", canonical.Food); r.ID != "tree_nut" {
		t.Errorf("tree nuts = %q, want tree_nut", r.ID)
	}
	if r := n.Normalize("Aged Cheese", canonical.Food); r.ID != "aged_cheese" {
		t.Errorf("Aged Cheese = %q, want aged_cheese", r.ID)
	}
}
