package normalize

import (
	"github.com/kailas-cloud/nutrisafe/internal/domain"
	"github.com/kailas-cloud/nutrisafe/internal/domain/canonical"
	"github.com/kailas-cloud/nutrisafe/internal/domain/item"
	"github.com/kailas-cloud/nutrisafe/internal/domain/profile"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
)

// Status is the outcome of a single normalization.
type Status string

// Normalization outcomes.
const (
	StatusResolved Status = "resolved"
	StatusNotFound Status = "not_found"
)

// Method records which rule produced a resolution.
type Method string

// Resolution methods, in the order they are tried.
const (
	MethodExact          Method = "exact"
	MethodDosageStripped Method = "dosage_stripped"
	MethodSingularized   Method = "singularized"
	MethodPluralized     Method = "pluralized"
)

// Resolution is the result of normalizing one raw name. NotFound is a
// first-class result that callers must surface.
type Resolution struct {
	Raw       string
	Kind      canonical.Kind
	ID        string
	Status    Status
	MatchedBy Method
}

// Resolved reports whether a canonical id was found.
func (r Resolution) Resolved() bool { return r.Status == StatusResolved }

// Err returns a NormalizationError for unresolved names, nil otherwise.
func (r Resolution) Err() error {
	if r.Resolved() {
		return nil
	}
	return domain.NewNormalizationError(string(r.Kind), r.Raw)
}

// Normalizer maps raw names to canonical ids over one synonym table.
// Pure: no I/O, no fuzzy matching.
type Normalizer struct {
	table Catalog
}

// New creates a Normalizer over a catalog.
func New(table Catalog) *Normalizer {
	return &Normalizer{table: table}
}

// Normalize resolves raw to a canonical id of the given kind.
// Exact lookup first, then dosage stripping for drugs, then singular/plural
// collapse for foods and allergens.
func (n *Normalizer) Normalize(raw string, kind canonical.Kind) Resolution {
	res := Resolution{Raw: raw, Kind: kind, Status: StatusNotFound}
	key := canonical.Key(raw)
	if key == "" {
		return res
	}
	if id, ok := n.table.Lookup(kind, key); ok {
		return res.resolved(id, MethodExact)
	}

	if kind == canonical.Drug {
		if stripped := stripDosage(key); stripped != key {
			if id, ok := n.table.Lookup(kind, stripped); ok {
				return res.resolved(id, MethodDosageStripped)
			}
		}
	}

	if kind == canonical.Food || kind == canonical.Allergen {
		for _, cand := range singulars(key) {
			if id, ok := n.table.Lookup(kind, cand); ok {
				return res.resolved(id, MethodSingularized)
			}
		}
		for _, cand := range plurals(key) {
			if id, ok := n.table.Lookup(kind, cand); ok {
				return res.resolved(id, MethodPluralized)
			}
		}
	}
	return res
}

func (r Resolution) resolved(id string, m Method) Resolution {
	r.ID = id
	r.Status = StatusResolved
	r.MatchedBy = m
	return r
}

// Profile normalizes every named entry of a profile. Entries that fail are
// left out of the normalized profile and returned as failures, in input order.
func (n *Normalizer) Profile(p profile.Profile) (profile.Normalized, []Resolution) {
	out := profile.Normalized{Age: p.Age, NutrientLimits: make(map[string]float64, len(p.NutrientLimits))}
	var failures []Resolution

	seen := make(map[string]bool)
	for _, m := range p.Medications {
		r := n.Normalize(m.Name, canonical.Drug)
		if !r.Resolved() {
			failures = append(failures, r)
			continue
		}
		if seen["d:"+r.ID] {
			continue
		}
		seen["d:"+r.ID] = true
		out.Medications = append(out.Medications, profile.NormalizedMedication{
			Element: profile.Element{Kind: canonical.Drug, ID: r.ID, Raw: m.Name},
			Dosage:  m.Dosage,
		})
	}
	for _, c := range p.Conditions {
		r := n.Normalize(c, canonical.Condition)
		if !r.Resolved() {
			failures = append(failures, r)
			continue
		}
		if seen["c:"+r.ID] {
			continue
		}
		seen["c:"+r.ID] = true
		out.Conditions = append(out.Conditions, profile.Element{Kind: canonical.Condition, ID: r.ID, Raw: c})
	}
	for _, a := range p.Allergies {
		r := n.Normalize(a.Name, canonical.Allergen)
		if !r.Resolved() {
			failures = append(failures, r)
			continue
		}
		if seen["a:"+r.ID] {
			continue
		}
		seen["a:"+r.ID] = true
		sev := a.Severity
		if sev == "" {
			sev = severity.None
		}
		out.Allergies = append(out.Allergies, profile.NormalizedAllergy{
			Element:            profile.Element{Kind: canonical.Allergen, ID: r.ID, Raw: a.Name},
			Severity:           sev,
			ConfirmationSource: a.ConfirmationSource,
		})
	}
	for k, v := range p.NutrientLimits {
		out.NutrientLimits[canonical.ID(k)] = v
	}
	return out, failures
}

// Item reduces a candidate item to canonical ids and tags. Unresolved
// ingredient and cross-contact names are kept on the result.
func (n *Normalizer) Item(it item.Item) item.Normalized {
	out := item.Normalized{ID: it.ID, Name: it.Name, Nutrients: make(map[string]float64, len(it.Nutrients))}

	var ingredients, implied, cross []string
	for _, raw := range it.RawIngredients() {
		r := n.Normalize(raw, canonical.Food)
		if !r.Resolved() {
			out.Unresolved = append(out.Unresolved, raw)
			continue
		}
		ingredients = append(ingredients, r.ID)
		implied = append(implied, n.table.FoodTags(r.ID)...)
	}
	for _, raw := range it.CrossContact {
		r := n.Normalize(raw, canonical.Food)
		if !r.Resolved() {
			out.Unresolved = append(out.Unresolved, raw)
			continue
		}
		cross = append(cross, r.ID)
	}
	tags := make([]string, 0, len(it.NutrientTags))
	for _, t := range it.NutrientTags {
		if id := canonical.ID(t); id != "" {
			tags = append(tags, id)
		}
	}
	for k, v := range it.Nutrients {
		out.Nutrients[canonical.ID(k)] = v
	}

	out.Ingredients = item.SortedSet(ingredients)
	out.Tags = item.SortedSet(ingredients, implied, tags)
	out.CrossContact = item.SortedSet(cross)
	return out
}
