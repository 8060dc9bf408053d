package profile

import (
	"slices"

	"github.com/kailas-cloud/nutrisafe/internal/domain/canonical"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
)

// Field names reported when a profile section was not provided.
const (
	FieldMedications = "medications"
	FieldConditions  = "conditions"
	FieldAllergies   = "allergies"
)

// Medication is an active medication as entered by the caller.
type Medication struct {
	Name   string `json:"name" yaml:"name"`
	Dosage string `json:"dosage,omitempty" yaml:"dosage,omitempty"`
}

// Allergy is a known allergy as entered by the caller.
type Allergy struct {
	Name               string         `json:"name" yaml:"name"`
	Severity           severity.Level `json:"severity,omitempty" yaml:"severity,omitempty"`
	ConfirmationSource string         `json:"confirmation_source,omitempty" yaml:"confirmation_source,omitempty"`
}

// Profile is the caller-owned clinical profile, passed by value per query.
// A nil list means the section was not provided; an empty list means "none".
type Profile struct {
	Age                 int                `json:"age,omitempty" yaml:"age,omitempty"`
	Medications         []Medication       `json:"medications" yaml:"medications"`
	Conditions          []string           `json:"conditions" yaml:"conditions"`
	Allergies           []Allergy          `json:"allergies" yaml:"allergies"`
	DietaryRestrictions []string           `json:"dietary_restrictions,omitempty" yaml:"dietary_restrictions,omitempty"`
	NutrientLimits      map[string]float64 `json:"nutrient_limits,omitempty" yaml:"nutrient_limits,omitempty"`
}

// Missing returns the sections the matcher needs but the caller did not provide.
func (p Profile) Missing() []string {
	var out []string
	if p.Medications == nil {
		out = append(out, FieldMedications)
	}
	if p.Conditions == nil {
		out = append(out, FieldConditions)
	}
	if p.Allergies == nil {
		out = append(out, FieldAllergies)
	}
	return out
}

// Element identifies the profile entry a rule matched against.
type Element struct {
	Kind canonical.Kind `json:"kind"`
	ID   string         `json:"id"`
	Raw  string         `json:"raw,omitempty"`
}

// Key returns "kind:id".
func (e Element) Key() string { return string(e.Kind) + ":" + e.ID }

// NormalizedMedication is a medication resolved to a canonical drug id.
type NormalizedMedication struct {
	Element
	Dosage string
}

// NormalizedAllergy is an allergy resolved to a canonical allergen id.
type NormalizedAllergy struct {
	Element
	Severity           severity.Level
	ConfirmationSource string
}

// Normalized is a profile with every resolvable name mapped to a canonical id.
// Entries that failed normalization are absent here and reported separately.
type Normalized struct {
	Age            int
	Medications    []NormalizedMedication
	Conditions     []Element
	Allergies      []NormalizedAllergy
	NutrientLimits map[string]float64
}

// HasCondition reports whether the profile carries the condition id.
func (n Normalized) HasCondition(id string) bool {
	return slices.ContainsFunc(n.Conditions, func(e Element) bool { return e.ID == id })
}

// NutrientLimit returns the caller-specified limit for a nutrient.
func (n Normalized) NutrientLimit(nutrient string) (float64, bool) {
	v, ok := n.NutrientLimits[nutrient]
	return v, ok
}
