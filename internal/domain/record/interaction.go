package record

import (
	"fmt"

	"github.com/kailas-cloud/nutrisafe/internal/domain/action"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
)

// InteractionParams holds the variant fields of a drug-food interaction.
type InteractionParams struct {
	DrugID         string
	DrugSynonyms   []string
	DrugClass      string
	ClassWide      bool
	Foods          []string
	Action         action.Type
	Severity       severity.Level
	Mechanism      string
	ClinicalEffect string
	Recommendation string
}

// Interaction is a drug-food interaction record.
type Interaction struct {
	meta           Meta
	drugID         string
	drugSynonyms   []string
	drugClass      string
	classWide      bool
	foods          []string
	action         action.Type
	severity       severity.Level
	mechanism      string
	clinicalEffect string
	recommendation string
}

// NewInteraction validates and creates an Interaction.
// A class-wide record applies to every drug of DrugClass and needs no DrugID.
func NewInteraction(meta Meta, p InteractionParams) (Interaction, error) {
	if p.ClassWide && p.DrugClass == "" {
		return Interaction{}, fmt.Errorf("record %s: class-wide interaction needs a drug class", meta.id)
	}
	if !p.ClassWide && p.DrugID == "" {
		return Interaction{}, fmt.Errorf("record %s: drug id is required", meta.id)
	}
	if len(p.Foods) == 0 {
		return Interaction{}, fmt.Errorf("record %s: at least one interacting food is required", meta.id)
	}
	if !p.Action.IsValid() {
		return Interaction{}, fmt.Errorf("record %s: invalid interaction type %q", meta.id, p.Action)
	}
	if err := requireRuleSeverity(meta.id, p.Severity); err != nil {
		return Interaction{}, err
	}
	return Interaction{
		meta:           meta,
		drugID:         p.DrugID,
		drugSynonyms:   cloneSorted(p.DrugSynonyms),
		drugClass:      p.DrugClass,
		classWide:      p.ClassWide,
		foods:          cloneSorted(p.Foods),
		action:         p.Action,
		severity:       p.Severity,
		mechanism:      p.Mechanism,
		clinicalEffect: p.ClinicalEffect,
		recommendation: p.Recommendation,
	}, nil
}

func (Interaction) sealed() {}

// Meta returns the shared record metadata.
func (r Interaction) Meta() Meta { return r.meta }

// Kind returns KindInteraction.
func (Interaction) Kind() Kind { return KindInteraction }

// Severity returns the interaction severity.
func (r Interaction) Severity() severity.Level { return r.severity }

// Guidance returns the recommendation text.
func (r Interaction) Guidance() string { return r.recommendation }

// DrugID returns the canonical drug id (empty for class-wide records).
func (r Interaction) DrugID() string { return r.drugID }

// DrugSynonyms returns generic and brand names of the drug.
func (r Interaction) DrugSynonyms() []string { return r.drugSynonyms }

// DrugClass returns the pharmacological class.
func (r Interaction) DrugClass() string { return r.drugClass }

// ClassWide reports whether the record applies to the whole drug class.
func (r Interaction) ClassWide() bool { return r.classWide }

// Foods returns the interacting food and nutrient ids, sorted.
func (r Interaction) Foods() []string { return r.foods }

// Action returns the interaction type.
func (r Interaction) Action() action.Type { return r.action }

// Mechanism returns the mechanism text.
func (r Interaction) Mechanism() string { return r.mechanism }

// ClinicalEffect returns the clinical effect text.
func (r Interaction) ClinicalEffect() string { return r.clinicalEffect }
