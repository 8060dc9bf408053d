package record

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/kailas-cloud/nutrisafe/internal/domain/evidence"
	"github.com/kailas-cloud/nutrisafe/internal/domain/review"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
)

// Kind distinguishes the concrete knowledge record variants.
type Kind string

// Record kinds.
const (
	KindInteraction    Kind = "drug_food_interaction"
	KindAllergen       Kind = "allergen_rule"
	KindRecommendation Kind = "clinical_recommendation"
)

// IsValid checks if the kind is one of the supported values.
func (k Kind) IsValid() bool {
	return k == KindInteraction || k == KindAllergen || k == KindRecommendation
}

// Record is a published, immutable knowledge record.
// Implemented by Interaction, AllergenRule and Recommendation only.
type Record interface {
	Meta() Meta
	Kind() Kind
	Severity() severity.Level
	// Guidance is the human-facing advice attached to the record.
	Guidance() string
	sealed()
}

// Meta carries the fields every record variant shares.
type Meta struct {
	id          string
	version     int
	evidence    evidence.Level
	citation    string
	active      bool
	status      review.Status
	publishedAt time.Time
}

// NewMeta validates and creates record metadata.
// Every record needs a citation and an evidence grade.
func NewMeta(
	id string, version int, ev evidence.Level, citation string,
	active bool, status review.Status, publishedAt time.Time,
) (Meta, error) {
	if id == "" {
		return Meta{}, fmt.Errorf("record id is required")
	}
	if version < 1 {
		return Meta{}, fmt.Errorf("record %s: version must be >= 1", id)
	}
	if !ev.IsValid() {
		return Meta{}, fmt.Errorf("record %s: invalid evidence level %q", id, ev)
	}
	if citation == "" {
		return Meta{}, fmt.Errorf("record %s: source citation is required", id)
	}
	if status == "" {
		status = review.Approved
	}
	if !status.IsValid() {
		return Meta{}, fmt.Errorf("record %s: invalid review status %q", id, status)
	}
	return Meta{
		id: id, version: version, evidence: ev, citation: citation,
		active: active, status: status, publishedAt: publishedAt,
	}, nil
}

// ID returns the record identifier, stable across versions.
func (m Meta) ID() string { return m.id }

// Version returns the record version.
func (m Meta) Version() int { return m.version }

// Evidence returns the evidence level.
func (m Meta) Evidence() evidence.Level { return m.evidence }

// Citation returns the source citation.
func (m Meta) Citation() string { return m.citation }

// Active reports whether the record may match. Inactive records are history.
func (m Meta) Active() bool { return m.active }

// ReviewStatus returns the clinical review state.
func (m Meta) ReviewStatus() review.Status { return m.status }

// PublishedAt returns the publication time.
func (m Meta) PublishedAt() time.Time { return m.publishedAt }

// LowConfidence reports whether findings citing this record need a caveat.
func (m Meta) LowConfidence() bool { return m.evidence.LowConfidence() }

// Key returns "id@version".
func (m Meta) Key() string { return m.id + "@" + strconv.Itoa(m.version) }

func requireRuleSeverity(id string, s severity.Level) error {
	if !s.IsRuleLevel() {
		return fmt.Errorf("record %s: severity %q is not allowed on a rule", id, s)
	}
	return nil
}

func cloneSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}
