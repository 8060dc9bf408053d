package record

import (
	"fmt"

	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
)

// AllergenParams holds the variant fields of an allergen rule.
type AllergenParams struct {
	AllergenID         string
	Triggers           []string
	CrossContamination []string
	Severity           severity.Level
	Symptoms           []string
	TreatmentProtocol  string
}

// AllergenRule maps an allergen to the ingredients that trigger it.
type AllergenRule struct {
	meta               Meta
	allergenID         string
	triggers           []string
	crossContamination []string
	severity           severity.Level
	symptoms           []string
	treatmentProtocol  string
}

// NewAllergenRule validates and creates an AllergenRule.
func NewAllergenRule(meta Meta, p AllergenParams) (AllergenRule, error) {
	if p.AllergenID == "" {
		return AllergenRule{}, fmt.Errorf("record %s: allergen id is required", meta.id)
	}
	if len(p.Triggers) == 0 {
		return AllergenRule{}, fmt.Errorf("record %s: at least one trigger ingredient is required", meta.id)
	}
	if err := requireRuleSeverity(meta.id, p.Severity); err != nil {
		return AllergenRule{}, err
	}
	return AllergenRule{
		meta:               meta,
		allergenID:         p.AllergenID,
		triggers:           cloneSorted(p.Triggers),
		crossContamination: cloneSorted(p.CrossContamination),
		severity:           p.Severity,
		symptoms:           append([]string(nil), p.Symptoms...),
		treatmentProtocol:  p.TreatmentProtocol,
	}, nil
}

func (AllergenRule) sealed() {}

// Meta returns the shared record metadata.
func (r AllergenRule) Meta() Meta { return r.meta }

// Kind returns KindAllergen.
func (AllergenRule) Kind() Kind { return KindAllergen }

// Severity returns the baseline reaction severity.
func (r AllergenRule) Severity() severity.Level { return r.severity }

// Guidance returns the treatment protocol.
func (r AllergenRule) Guidance() string { return r.treatmentProtocol }

// AllergenID returns the canonical allergen id.
func (r AllergenRule) AllergenID() string { return r.allergenID }

// Triggers returns ingredient ids that contain the allergen, sorted.
func (r AllergenRule) Triggers() []string { return r.triggers }

// CrossContamination returns ingredient ids commonly processed alongside the allergen.
func (r AllergenRule) CrossContamination() []string { return r.crossContamination }

// Symptoms returns the reaction symptoms.
func (r AllergenRule) Symptoms() []string { return r.symptoms }
