package kb

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/kailas-cloud/nutrisafe/internal/domain"
	"github.com/kailas-cloud/nutrisafe/internal/domain/canonical"
	"github.com/kailas-cloud/nutrisafe/internal/domain/record"
)

// Build validates a bundle and indexes it into an immutable snapshot.
// Every invalid record is reported; any invalid record fails the build.
func Build(b Bundle) (*Snapshot, error) {
	if strings.TrimSpace(b.Version) == "" {
		return nil, fmt.Errorf("%w: bundle version is required", domain.ErrInvalidRecord)
	}
	checksum, err := b.Checksum()
	if err != nil {
		return nil, err
	}

	records, errs := convertAll(b)
	history, dupErrs := groupVersions(records)
	errs = append(errs, dupErrs...)

	s := &Snapshot{
		version:     b.Version,
		checksum:    checksum,
		publishedAt: b.PublishedAt,
		supersedes:  slices.Clone(b.Supersedes),
		history:     history,
		effective:   make(map[string]record.Record, len(history)),
		byDrug:      make(map[string][]record.Interaction),
		byClass:     make(map[string][]record.Interaction),
		byFood:      make(map[string][]record.Interaction),
		byAllergen:  make(map[string][]record.AllergenRule),
		byCondition: make(map[string][]record.Recommendation),
		drugClass:   make(map[string]string),
		foodTags:    make(map[string][]string),
		synonyms:    make(map[canonical.Kind]map[string]string, len(canonical.Kinds)),
		names:       make(map[canonical.Kind][]Synonym, len(canonical.Kinds)),
	}
	if b.ExpiresAt != nil {
		s.expiresAt = *b.ExpiresAt
	}
	for _, k := range canonical.Kinds {
		s.synonyms[k] = make(map[string]string)
	}

	cat := newCatalogBuilder(s)
	errs = append(errs, cat.addCatalog(b.Catalog)...)

	for _, id := range slices.Sorted(maps.Keys(history)) {
		versions := history[id]
		eff := versions[len(versions)-1]
		s.effective[id] = eff
		errs = append(errs, cat.addRecord(eff)...)
		if eff.Meta().Active() {
			s.index(eff)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, errors.Join(errs...))
	}

	cat.finish()
	s.stats = s.computeStats()
	return s, nil
}

func convertAll(b Bundle) ([]record.Record, []error) {
	var (
		out  []record.Record
		errs []error
	)
	for _, d := range b.Interactions {
		r, err := interactionFromDoc(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, r)
	}
	for _, d := range b.AllergenRules {
		r, err := allergenFromDoc(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, r)
	}
	for _, d := range b.Recommendations {
		r, err := recommendationFromDoc(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, r)
	}
	return out, errs
}

// groupVersions groups records by id, ascending by version.
// (id, version) must be unique and an id keeps one kind across versions.
func groupVersions(records []record.Record) (map[string][]record.Record, []error) {
	var errs []error
	out := make(map[string][]record.Record)
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		key := r.Meta().Key()
		if seen[key] {
			errs = append(errs, fmt.Errorf("record %s: duplicate id and version", key))
			continue
		}
		seen[key] = true
		id := r.Meta().ID()
		if prev := out[id]; len(prev) > 0 && prev[0].Kind() != r.Kind() {
			errs = append(errs, fmt.Errorf("record %s: kind %s conflicts with earlier version kind %s", key, r.Kind(), prev[0].Kind()))
			continue
		}
		out[id] = append(out[id], r)
	}
	for _, versions := range out {
		slices.SortFunc(versions, func(a, b record.Record) int {
			return a.Meta().Version() - b.Meta().Version()
		})
	}
	return out, errs
}

func (s *Snapshot) index(r record.Record) {
	switch v := r.(type) {
	case record.Interaction:
		if v.ClassWide() {
			s.byClass[v.DrugClass()] = append(s.byClass[v.DrugClass()], v)
		} else {
			s.byDrug[v.DrugID()] = append(s.byDrug[v.DrugID()], v)
		}
		for _, f := range v.Foods() {
			s.byFood[f] = append(s.byFood[f], v)
		}
	case record.AllergenRule:
		s.byAllergen[v.AllergenID()] = append(s.byAllergen[v.AllergenID()], v)
	case record.Recommendation:
		s.byCondition[v.ConditionID()] = append(s.byCondition[v.ConditionID()], v)
	}
}

func (s *Snapshot) computeStats() Stats {
	st := Stats{
		ByKind:      make(map[string]int),
		CatalogSize: make(map[string]int, len(canonical.Kinds)),
	}
	for _, versions := range s.history {
		st.Records += len(versions)
		st.Superseded += len(versions) - 1
		eff := versions[len(versions)-1]
		st.ByKind[string(eff.Kind())]++
		if eff.Meta().Active() {
			st.Active++
		} else {
			st.Inactive++
		}
	}
	for _, k := range canonical.Kinds {
		st.CatalogSize[string(k)] = len(s.names[k])
	}
	return st
}
