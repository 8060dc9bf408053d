package match

import (
	"github.com/kailas-cloud/nutrisafe/internal/domain/action"
	"github.com/kailas-cloud/nutrisafe/internal/domain/item"
	dommatch "github.com/kailas-cloud/nutrisafe/internal/domain/match"
	"github.com/kailas-cloud/nutrisafe/internal/domain/profile"
	"github.com/kailas-cloud/nutrisafe/internal/domain/record"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
)

// Matcher finds every knowledge record that applies to a profile and item.
// Matching is set intersection over canonical ids, never text similarity.
type Matcher struct{}

// New creates a Matcher.
func New() *Matcher { return &Matcher{} }

// Match returns all applicable matches, direct and class-level, in a
// deterministic order. Deduplication is left to the resolver.
func (m *Matcher) Match(p profile.Normalized, it item.Normalized, kb KnowledgeBase) []dommatch.Match {
	var out []dommatch.Match
	out = append(out, matchInteractions(p, it, kb)...)
	out = append(out, matchAllergens(p, it, kb)...)
	out = append(out, matchRecommendations(p, it, kb)...)
	dommatch.Sort(out)
	return out
}

func matchInteractions(p profile.Normalized, it item.Normalized, kb KnowledgeBase) []dommatch.Match {
	var out []dommatch.Match
	for _, med := range p.Medications {
		for _, r := range kb.InteractionsForDrug(med.ID) {
			hits := item.Intersect(r.Foods(), it.Tags)
			if len(hits) == 0 {
				continue
			}
			out = append(out, dommatch.New(
				dommatch.RefOf(r), med.Element, hits, r.Severity(), r.Action(), false,
			))
		}
	}
	return out
}

// matchAllergens emits a direct match when the item contains a trigger and a
// separate cross-contamination match when a trigger is only "may contain" or
// the item touches an ingredient the rule lists as cross-contaminating.
// Severity is the higher of the rule and the patient's own reaction history.
func matchAllergens(p profile.Normalized, it item.Normalized, kb KnowledgeBase) []dommatch.Match {
	var out []dommatch.Match
	exposure := item.SortedSet(it.Tags, it.CrossContact)
	for _, a := range p.Allergies {
		for _, r := range kb.AllergenRules(a.ID) {
			sev := severity.Max(r.Severity(), a.Severity)
			ref := dommatch.RefOf(r)

			if direct := item.Intersect(r.Triggers(), it.Tags); len(direct) > 0 {
				out = append(out, dommatch.New(ref, a.Element, direct, sev, action.Avoid, false))
			}
			cross := item.SortedSet(
				item.Intersect(r.Triggers(), it.CrossContact),
				item.Intersect(r.CrossContamination(), exposure),
			)
			if len(cross) > 0 {
				out = append(out, dommatch.New(ref, a.Element, cross, sev, action.Avoid, true))
			}
		}
	}
	return out
}

// matchRecommendations checks contraindicated ids and numeric targets.
// A caller-supplied nutrient limit replaces the record's limit when stricter.
func matchRecommendations(p profile.Normalized, it item.Normalized, kb KnowledgeBase) []dommatch.Match {
	var out []dommatch.Match
	for _, cond := range p.Conditions {
		for _, r := range kb.RecommendationsForCondition(cond.ID) {
			if !r.Population().Applies(p.Age, p.HasCondition) {
				continue
			}
			ref := dommatch.RefOf(r)
			if hits := item.Intersect(r.Contraindications(), it.Tags); len(hits) > 0 {
				out = append(out, dommatch.New(ref, cond, hits, r.Severity(), r.ContraAction(), false))
			}
			for _, t := range r.Targets() {
				amount, ok := it.Nutrients[t.Nutrient]
				if !ok {
					continue
				}
				if amount > effectiveLimit(t, p) {
					out = append(out, dommatch.New(ref, cond, []string{t.Nutrient}, r.Severity(), r.TargetAction(), false))
				}
			}
		}
	}
	return out
}

func effectiveLimit(t record.Target, p profile.Normalized) float64 {
	if own, ok := p.NutrientLimit(t.Nutrient); ok && own < t.Max {
		return own
	}
	return t.Max
}
