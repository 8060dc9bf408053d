package finding

import (
	"github.com/kailas-cloud/nutrisafe/internal/domain/action"
	"github.com/kailas-cloud/nutrisafe/internal/domain/match"
	"github.com/kailas-cloud/nutrisafe/internal/domain/profile"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
)

// Status is the verification state of a single item.
type Status string

// Finding statuses.
const (
	StatusComplete       Status = "complete"
	StatusIncomplete     Status = "incomplete"
	StatusUnableToVerify Status = "unable_to_verify"
)

// Resolution is the resolved action for one profile element of an item.
type Resolution struct {
	Element profile.Element `json:"element"`
	Action  action.Type     `json:"action"`
	// Rules lists "id@version" of every contributing rule, sorted.
	Rules []string `json:"rules"`
	// Conflict is set when contributing rules disagreed on the action.
	Conflict bool `json:"conflict"`
}

// Finding is the resolved safety result for one candidate item.
type Finding struct {
	itemID             string
	itemName           string
	severity           severity.Level
	action             action.Type
	matches            []match.Match
	resolutions        []Resolution
	recommendations    []string
	citations          []string
	lowConfidence      bool
	crossContamination bool
	status             Status
	unresolved         []string
	reason             string
}

// Params carries the resolved fields of a finding.
type Params struct {
	ItemID             string
	ItemName           string
	Severity           severity.Level
	Action             action.Type
	Matches            []match.Match
	Resolutions        []Resolution
	Recommendations    []string
	Citations          []string
	LowConfidence      bool
	CrossContamination bool
	Unresolved         []string
}

// New creates a finding. Items with unresolved ingredients are incomplete.
func New(p Params) Finding {
	st := StatusComplete
	if len(p.Unresolved) > 0 {
		st = StatusIncomplete
	}
	if p.Severity == "" {
		p.Severity = severity.None
	}
	return Finding{
		itemID:             p.ItemID,
		itemName:           p.ItemName,
		severity:           p.Severity,
		action:             p.Action,
		matches:            p.Matches,
		resolutions:        p.Resolutions,
		recommendations:    p.Recommendations,
		citations:          p.Citations,
		lowConfidence:      p.LowConfidence,
		crossContamination: p.CrossContamination,
		status:             st,
		unresolved:         p.Unresolved,
	}
}

// UnableToVerify creates the fail-closed finding for an item the engine
// could not evaluate. Severity is Unknown, never None.
func UnableToVerify(itemID, itemName, reason string) Finding {
	return Finding{
		itemID:   itemID,
		itemName: itemName,
		severity: severity.Unknown,
		status:   StatusUnableToVerify,
		reason:   reason,
	}
}

// ItemID returns the candidate item id.
func (f Finding) ItemID() string { return f.itemID }

// ItemName returns the candidate item name.
func (f Finding) ItemName() string { return f.itemName }

// Severity returns the maximum severity among contributing matches.
func (f Finding) Severity() severity.Level { return f.severity }

// Action returns the most conservative action across all matches.
func (f Finding) Action() action.Type { return f.action }

// Matches returns all contributing matches.
func (f Finding) Matches() []match.Match { return f.matches }

// Resolutions returns per profile element action resolutions.
func (f Finding) Resolutions() []Resolution { return f.resolutions }

// Recommendations returns every contributing recommendation text.
func (f Finding) Recommendations() []string { return f.recommendations }

// Citations returns every contributing source citation.
func (f Finding) Citations() []string { return f.citations }

// LowConfidence reports whether any contributing match has weak evidence.
func (f Finding) LowConfidence() bool { return f.lowConfidence }

// CrossContamination reports whether any match came from a "may contain" path.
func (f Finding) CrossContamination() bool { return f.crossContamination }

// Status returns the verification state.
func (f Finding) Status() Status { return f.status }

// Unresolved returns raw ingredient names that failed normalization.
func (f Finding) Unresolved() []string { return f.unresolved }

// Reason explains an UnableToVerify finding.
func (f Finding) Reason() string { return f.reason }

// Flagged reports whether the item needs the user's attention.
func (f Finding) Flagged() bool {
	return f.severity.Flagged() || f.status != StatusComplete
}
