package profile

import (
	"slices"
	"testing"

	"github.com/kailas-cloud/nutrisafe/internal/domain/canonical"
)

func TestMissing_DistinguishesNilFromEmpty(t *testing.T) {
	p := Profile{
		Medications: []Medication{},
		Allergies:   nil,
		Conditions:  nil,
	}
	got := p.Missing()
	want := []string{FieldConditions, FieldAllergies}
	if !slices.Equal(got, want) {
		t.Errorf("Missing() = %v, want %v", got, want)
	}
}

func TestMissing_Complete(t *testing.T) {
	p := Profile{Medications: []Medication{}, Conditions: []string{}, Allergies: []Allergy{}}
	if got := p.Missing(); len(got) != 0 {
		t.Errorf("Missing() = %v, want empty", got)
	}
}

func TestNormalized_HasCondition(t *testing.T) {
	n := Normalized{Conditions: []Element{{Kind: canonical.Condition, ID: "ckd"}}}
	if !n.HasCondition("ckd") {
		t.Error("expected ckd")
	}
	if n.HasCondition("diabetes") {
		t.Error("unexpected diabetes")
	}
}
