package match

import (
	"cmp"
	"slices"
	"strings"

	"github.com/kailas-cloud/nutrisafe/internal/domain/action"
	"github.com/kailas-cloud/nutrisafe/internal/domain/evidence"
	"github.com/kailas-cloud/nutrisafe/internal/domain/profile"
	"github.com/kailas-cloud/nutrisafe/internal/domain/record"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
)

// RuleRef points from a match back to the knowledge record that produced it.
type RuleRef struct {
	ID       string         `json:"id"`
	Version  int            `json:"version"`
	Kind     record.Kind    `json:"kind"`
	Evidence evidence.Level `json:"evidence_level"`
	Citation string         `json:"source_citation"`
	Guidance string         `json:"guidance,omitempty"`
}

// RefOf builds a RuleRef for a record.
func RefOf(r record.Record) RuleRef {
	m := r.Meta()
	return RuleRef{
		ID:       m.ID(),
		Version:  m.Version(),
		Kind:     r.Kind(),
		Evidence: m.Evidence(),
		Citation: m.Citation(),
		Guidance: r.Guidance(),
	}
}

// Match is one knowledge record applying to one profile element for one item.
// Ephemeral: produced per query.
type Match struct {
	rule               RuleRef
	against            profile.Element
	itemElements       []string
	severity           severity.Level
	action             action.Type
	crossContamination bool
}

// New creates a match.
func New(
	rule RuleRef, against profile.Element, itemElements []string,
	sev severity.Level, act action.Type, crossContamination bool,
) Match {
	return Match{
		rule:               rule,
		against:            against,
		itemElements:       slices.Clone(itemElements),
		severity:           sev,
		action:             act,
		crossContamination: crossContamination,
	}
}

// Rule returns the reference to the matched record.
func (m Match) Rule() RuleRef { return m.rule }

// Kind returns the record kind of the matched rule.
func (m Match) Kind() record.Kind { return m.rule.Kind }

// Against returns the profile element the rule matched.
func (m Match) Against() profile.Element { return m.against }

// ItemElements returns the item ids that triggered the rule.
func (m Match) ItemElements() []string { return m.itemElements }

// Severity returns the match severity.
func (m Match) Severity() severity.Level { return m.severity }

// Evidence returns the evidence level of the matched rule.
func (m Match) Evidence() evidence.Level { return m.rule.Evidence }

// Action returns the recommended action.
func (m Match) Action() action.Type { return m.action }

// CrossContamination reports whether the match came from a "may contain" path.
func (m Match) CrossContamination() bool { return m.crossContamination }

// LowConfidence reports whether the matched rule has weak evidence.
func (m Match) LowConfidence() bool { return m.rule.Evidence.LowConfidence() }

// Compare orders matches by kind, rule id, rule version, profile element, item elements.
func Compare(a, b Match) int {
	return cmp.Or(
		cmp.Compare(a.rule.Kind, b.rule.Kind),
		cmp.Compare(a.rule.ID, b.rule.ID),
		cmp.Compare(a.rule.Version, b.rule.Version),
		cmp.Compare(a.against.Kind, b.against.Kind),
		cmp.Compare(a.against.ID, b.against.ID),
		cmp.Compare(strings.Join(a.itemElements, ","), strings.Join(b.itemElements, ",")),
		boolCompare(a.crossContamination, b.crossContamination),
	)
}

// Sort orders matches deterministically in place.
func Sort(ms []Match) { slices.SortStableFunc(ms, Compare) }

func boolCompare(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
