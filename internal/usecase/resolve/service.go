package resolve

import (
	"slices"
	"strconv"

	"github.com/kailas-cloud/nutrisafe/internal/domain/action"
	"github.com/kailas-cloud/nutrisafe/internal/domain/finding"
	"github.com/kailas-cloud/nutrisafe/internal/domain/item"
	dommatch "github.com/kailas-cloud/nutrisafe/internal/domain/match"
	"github.com/kailas-cloud/nutrisafe/internal/domain/profile"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
)

// Resolver collapses the matches of one item into a finding.
//
// Severity is the maximum over all matches, never averaged. When matches for
// the same profile element disagree on the action, the most conservative one
// wins: avoid > timing_separation, dose_adjustment > monitor >
// supplement_recommended (see action.MoreConservative for the tie between the
// middle two). Weak-evidence matches are kept and tagged, never dropped.
type Resolver struct{}

// New creates a Resolver.
func New() *Resolver { return &Resolver{} }

// Resolve builds the finding for an item. Every contributing match,
// recommendation and citation is kept.
func (r *Resolver) Resolve(it item.Normalized, matches []dommatch.Match) finding.Finding {
	ms := slices.Clone(matches)
	dommatch.Sort(ms)

	levels := make([]severity.Level, 0, len(ms))
	actions := make([]action.Type, 0, len(ms))
	var recs, cites []string
	var low, cross bool
	for _, m := range ms {
		levels = append(levels, m.Severity())
		actions = append(actions, m.Action())
		if g := m.Rule().Guidance; g != "" {
			recs = append(recs, g)
		}
		cites = append(cites, m.Rule().Citation)
		low = low || m.LowConfidence()
		cross = cross || m.CrossContamination()
	}

	return finding.New(finding.Params{
		ItemID:             it.ID,
		ItemName:           it.Name,
		Severity:           severity.Max(levels...),
		Action:             action.Most(actions...),
		Matches:            ms,
		Resolutions:        resolutions(ms),
		Recommendations:    item.SortedSet(recs),
		Citations:          item.SortedSet(cites),
		LowConfidence:      low,
		CrossContamination: cross,
		Unresolved:         slices.Clone(it.Unresolved),
	})
}

// resolutions groups sorted matches by profile element.
func resolutions(ms []dommatch.Match) []finding.Resolution {
	type group struct {
		el      profile.Element
		actions []action.Type
		rules   []string
	}
	groups := make(map[string]*group)
	var order []string
	for _, m := range ms {
		key := m.Against().Key()
		g, ok := groups[key]
		if !ok {
			g = &group{el: m.Against()}
			groups[key] = g
			order = append(order, key)
		}
		g.actions = append(g.actions, m.Action())
		g.rules = append(g.rules, m.Rule().ID+"@"+strconv.Itoa(m.Rule().Version))
	}
	slices.Sort(order)

	out := make([]finding.Resolution, 0, len(order))
	for _, key := range order {
		g := groups[key]
		distinct := slices.Clone(g.actions)
		slices.Sort(distinct)
		distinct = slices.Compact(distinct)
		out = append(out, finding.Resolution{
			Element:  g.el,
			Action:   action.Most(g.actions...),
			Rules:    item.SortedSet(g.rules),
			Conflict: len(distinct) > 1,
		})
	}
	return out
}
