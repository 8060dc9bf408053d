package kb

import (
	"fmt"

	"github.com/kailas-cloud/nutrisafe/internal/domain/action"
	"github.com/kailas-cloud/nutrisafe/internal/domain/canonical"
	"github.com/kailas-cloud/nutrisafe/internal/domain/evidence"
	"github.com/kailas-cloud/nutrisafe/internal/domain/record"
	"github.com/kailas-cloud/nutrisafe/internal/domain/review"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
)

func metaFromDoc(d MetaDoc) (record.Meta, error) {
	active := true
	if d.Active != nil {
		active = *d.Active
	}
	status := review.Status(d.ReviewStatus)
	if status == "" {
		status = review.Approved
	}
	m, err := record.NewMeta(
		d.ID, d.Version, evidence.Level(d.EvidenceLevel), d.SourceCitation,
		active, status, d.PublishedAt,
	)
	if err != nil {
		return record.Meta{}, err
	}
	if !m.ReviewStatus().Publishable() {
		return record.Meta{}, fmt.Errorf("record %s: review status %q is not publishable", m.Key(), m.ReviewStatus())
	}
	return m, nil
}

func interactionFromDoc(d InteractionDoc) (record.Interaction, error) {
	meta, err := metaFromDoc(d.MetaDoc)
	if err != nil {
		return record.Interaction{}, err
	}
	return record.NewInteraction(meta, record.InteractionParams{
		DrugID:         canonicalOrEmpty(d.DrugID),
		DrugSynonyms:   d.DrugSynonyms,
		DrugClass:      canonicalOrEmpty(d.DrugClass),
		ClassWide:      d.ClassWide,
		Foods:          ids(d.Foods),
		Action:         action.Type(d.InteractionType),
		Severity:       severity.Level(d.Severity),
		Mechanism:      d.Mechanism,
		ClinicalEffect: d.ClinicalEffect,
		Recommendation: d.Recommendation,
	})
}

func allergenFromDoc(d AllergenDoc) (record.AllergenRule, error) {
	meta, err := metaFromDoc(d.MetaDoc)
	if err != nil {
		return record.AllergenRule{}, err
	}
	return record.NewAllergenRule(meta, record.AllergenParams{
		AllergenID:         canonicalOrEmpty(d.AllergenID),
		Triggers:           ids(d.Triggers),
		CrossContamination: ids(d.CrossContamination),
		Severity:           severity.Level(d.Severity),
		Symptoms:           d.Symptoms,
		TreatmentProtocol:  d.TreatmentProtocol,
	})
}

func recommendationFromDoc(d RecommendationDoc) (record.Recommendation, error) {
	meta, err := metaFromDoc(d.MetaDoc)
	if err != nil {
		return record.Recommendation{}, err
	}
	targets := make([]record.Target, 0, len(d.Targets))
	for _, t := range d.Targets {
		targets = append(targets, record.Target{
			Nutrient: canonicalOrEmpty(t.Nutrient),
			Max:      t.Max,
			Unit:     t.Unit,
			Basis:    t.Basis,
		})
	}
	return record.NewRecommendation(meta, record.RecommendationParams{
		ConditionID:        canonicalOrEmpty(d.ConditionID),
		RecommendationType: d.RecommendationType,
		Population: record.Population{
			MinAge:            d.Population.MinAge,
			MaxAge:            d.Population.MaxAge,
			IncludeConditions: ids(d.Population.IncludeConditions),
			ExcludeConditions: ids(d.Population.ExcludeConditions),
		},
		Contraindications: ids(d.Contraindications),
		Targets:           targets,
		Severity:          severity.Level(d.Severity),
		TargetAction:      action.Type(d.TargetAction),
		ContraAction:      action.Type(d.ContraAction),
		Guidance:          d.Guidance,
	})
}

func canonicalOrEmpty(s string) string {
	if s == "" {
		return ""
	}
	return canonical.ID(s)
}

func ids(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if id := canonical.ID(s); id != "" {
			out = append(out, id)
		}
	}
	return out
}
