package record

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/nutrisafe/internal/domain/action"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
)

// Population restricts which patients a recommendation applies to.
// Zero ages mean unbounded.
type Population struct {
	MinAge            int
	MaxAge            int
	IncludeConditions []string
	ExcludeConditions []string
}

// Applies reports whether a patient falls into the population.
// Age 0 is unknown and never excludes a patient.
func (p Population) Applies(age int, hasCondition func(string) bool) bool {
	if age > 0 {
		if p.MinAge > 0 && age < p.MinAge {
			return false
		}
		if p.MaxAge > 0 && age > p.MaxAge {
			return false
		}
	}
	for _, c := range p.IncludeConditions {
		if !hasCondition(c) {
			return false
		}
	}
	for _, c := range p.ExcludeConditions {
		if hasCondition(c) {
			return false
		}
	}
	return true
}

// Target is a numeric intake limit, e.g. sodium_mg <= 1500 per day.
type Target struct {
	Nutrient string
	Max      float64
	Unit     string
	Basis    string
}

// RecommendationParams holds the variant fields of a clinical recommendation.
type RecommendationParams struct {
	ConditionID        string
	RecommendationType string
	Population         Population
	Contraindications  []string
	Targets            []Target
	Severity           severity.Level
	TargetAction       action.Type
	ContraAction       action.Type
	Guidance           string
}

// Recommendation is a condition-scoped clinical recommendation.
type Recommendation struct {
	meta              Meta
	conditionID       string
	recType           string
	population        Population
	contraindications []string
	targets           []Target
	severity          severity.Level
	targetAction      action.Type
	contraAction      action.Type
	guidance          string
}

// NewRecommendation validates and creates a Recommendation.
// Defaults: severity moderate, monitor on target excess, avoid on contraindication.
func NewRecommendation(meta Meta, p RecommendationParams) (Recommendation, error) {
	if p.ConditionID == "" {
		return Recommendation{}, fmt.Errorf("record %s: condition id is required", meta.id)
	}
	if len(p.Contraindications) == 0 && len(p.Targets) == 0 {
		return Recommendation{}, fmt.Errorf("record %s: contraindications or targets are required", meta.id)
	}
	if p.Severity == "" {
		p.Severity = severity.Moderate
	}
	if err := requireRuleSeverity(meta.id, p.Severity); err != nil {
		return Recommendation{}, err
	}
	if p.TargetAction == "" {
		p.TargetAction = action.Monitor
	}
	if p.ContraAction == "" {
		p.ContraAction = action.Avoid
	}
	if !p.TargetAction.IsValid() || !p.ContraAction.IsValid() {
		return Recommendation{}, fmt.Errorf("record %s: invalid action", meta.id)
	}
	for _, t := range p.Targets {
		if t.Nutrient == "" {
			return Recommendation{}, fmt.Errorf("record %s: target nutrient is required", meta.id)
		}
		if t.Max < 0 {
			return Recommendation{}, fmt.Errorf("record %s: target %s max must be >= 0", meta.id, t.Nutrient)
		}
	}
	if p.Population.MaxAge > 0 && p.Population.MinAge > p.Population.MaxAge {
		return Recommendation{}, fmt.Errorf("record %s: population min age above max age", meta.id)
	}

	pop := p.Population
	pop.IncludeConditions = cloneSorted(pop.IncludeConditions)
	pop.ExcludeConditions = cloneSorted(pop.ExcludeConditions)

	targets := slices.Clone(p.Targets)
	slices.SortFunc(targets, func(a, b Target) int {
		if a.Nutrient < b.Nutrient {
			return -1
		}
		if a.Nutrient > b.Nutrient {
			return 1
		}
		return 0
	})

	return Recommendation{
		meta:              meta,
		conditionID:       p.ConditionID,
		recType:           p.RecommendationType,
		population:        pop,
		contraindications: cloneSorted(p.Contraindications),
		targets:           targets,
		severity:          p.Severity,
		targetAction:      p.TargetAction,
		contraAction:      p.ContraAction,
		guidance:          p.Guidance,
	}, nil
}

func (Recommendation) sealed() {}

// Meta returns the shared record metadata.
func (r Recommendation) Meta() Meta { return r.meta }

// Kind returns KindRecommendation.
func (Recommendation) Kind() Kind { return KindRecommendation }

// Severity returns the severity assigned to violations.
func (r Recommendation) Severity() severity.Level { return r.severity }

// Guidance returns the guidance text.
func (r Recommendation) Guidance() string { return r.guidance }

// ConditionID returns the canonical condition id.
func (r Recommendation) ConditionID() string { return r.conditionID }

// RecommendationType returns the free-form recommendation category.
func (r Recommendation) RecommendationType() string { return r.recType }

// Population returns the applicability constraints.
func (r Recommendation) Population() Population { return r.population }

// Contraindications returns contraindicated food and nutrient ids, sorted.
func (r Recommendation) Contraindications() []string { return r.contraindications }

// Targets returns numeric limits sorted by nutrient.
func (r Recommendation) Targets() []Target { return r.targets }

// TargetAction returns the action for exceeding a target.
func (r Recommendation) TargetAction() action.Type { return r.targetAction }

// ContraAction returns the action for a contraindicated ingredient.
func (r Recommendation) ContraAction() action.Type { return r.contraAction }
