package kb

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/kailas-cloud/nutrisafe/internal/domain/canonical"
	"github.com/kailas-cloud/nutrisafe/internal/domain/item"
	"github.com/kailas-cloud/nutrisafe/internal/domain/record"
)

// catalogBuilder fills the synonym, class and tag tables of a snapshot.
// A folded name may resolve to exactly one id per kind.
type catalogBuilder struct {
	s       *Snapshot
	display map[canonical.Kind]map[string]string
}

func newCatalogBuilder(s *Snapshot) *catalogBuilder {
	c := &catalogBuilder{s: s, display: make(map[canonical.Kind]map[string]string, len(canonical.Kinds))}
	for _, k := range canonical.Kinds {
		c.display[k] = make(map[string]string)
	}
	return c
}

func (c *catalogBuilder) add(kind canonical.Kind, name, id string) error {
	key := canonical.Key(name)
	if key == "" || id == "" {
		return nil
	}
	if prev, ok := c.s.synonyms[kind][key]; ok {
		if prev != id {
			return fmt.Errorf("%s synonym %q maps to both %s and %s", kind, name, prev, id)
		}
		return nil
	}
	c.s.synonyms[kind][key] = id
	c.display[kind][key] = name
	return nil
}

// addID registers an id under itself and returns any conflict.
func (c *catalogBuilder) addID(kind canonical.Kind, id string) error {
	return c.add(kind, id, id)
}

func (c *catalogBuilder) addAll(kind canonical.Kind, id string, names []string) []error {
	var errs []error
	if err := c.addID(kind, id); err != nil {
		errs = append(errs, err)
	}
	for _, n := range names {
		if err := c.add(kind, n, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (c *catalogBuilder) setClass(drugID, class string) error {
	if class == "" {
		return nil
	}
	if prev, ok := c.s.drugClass[drugID]; ok && prev != class {
		return fmt.Errorf("drug %s: class %s conflicts with %s", drugID, class, prev)
	}
	c.s.drugClass[drugID] = class
	return nil
}

func (c *catalogBuilder) addCatalog(cat Catalog) []error {
	var errs []error
	for _, d := range cat.Drugs {
		id := canonical.ID(d.ID)
		errs = append(errs, c.addAll(canonical.Drug, id, d.Synonyms)...)
		if err := c.setClass(id, canonicalOrEmpty(d.Class)); err != nil {
			errs = append(errs, err)
		}
	}
	for _, f := range cat.Foods {
		id := canonical.ID(f.ID)
		errs = append(errs, c.addAll(canonical.Food, id, f.Synonyms)...)
		if len(f.Tags) > 0 {
			c.s.foodTags[id] = item.SortedSet(c.s.foodTags[id], ids(f.Tags))
		}
	}
	for _, a := range cat.Allergens {
		errs = append(errs, c.addAll(canonical.Allergen, canonical.ID(a.ID), a.Synonyms)...)
	}
	for _, cond := range cat.Conditions {
		errs = append(errs, c.addAll(canonical.Condition, canonical.ID(cond.ID), cond.Synonyms)...)
	}
	return errs
}

// addRecord registers ids referenced by a record so they always resolve.
func (c *catalogBuilder) addRecord(r record.Record) []error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	switch v := r.(type) {
	case record.Interaction:
		if v.DrugID() != "" {
			errs = append(errs, c.addAll(canonical.Drug, v.DrugID(), v.DrugSynonyms())...)
			collect(c.setClass(v.DrugID(), v.DrugClass()))
		}
		for _, f := range v.Foods() {
			collect(c.addID(canonical.Food, f))
		}
	case record.AllergenRule:
		collect(c.addID(canonical.Allergen, v.AllergenID()))
		for _, f := range v.Triggers() {
			collect(c.addID(canonical.Food, f))
		}
		for _, f := range v.CrossContamination() {
			collect(c.addID(canonical.Food, f))
		}
	case record.Recommendation:
		collect(c.addID(canonical.Condition, v.ConditionID()))
		for _, f := range v.Contraindications() {
			collect(c.addID(canonical.Food, f))
		}
	}
	return errs
}

func (c *catalogBuilder) finish() {
	for _, k := range canonical.Kinds {
		names := make([]Synonym, 0, len(c.s.synonyms[k]))
		for key, id := range c.s.synonyms[k] {
			names = append(names, Synonym{Name: c.display[k][key], ID: id})
		}
		slices.SortFunc(names, func(a, b Synonym) int {
			return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
		})
		c.s.names[k] = names
	}
}
