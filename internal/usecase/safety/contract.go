package safety

import (
	"github.com/kailas-cloud/nutrisafe/internal/domain/finding"
	"github.com/kailas-cloud/nutrisafe/internal/domain/item"
	dommatch "github.com/kailas-cloud/nutrisafe/internal/domain/match"
	"github.com/kailas-cloud/nutrisafe/internal/domain/profile"
	domverdict "github.com/kailas-cloud/nutrisafe/internal/domain/verdict"
	"github.com/kailas-cloud/nutrisafe/internal/kb"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/match"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/verdict"
)

// SnapshotSource hands out leases on the published knowledge base.
type SnapshotSource interface {
	Acquire() (*kb.Snapshot, func(), error)
	Deprecated(version string) bool
}

// Matcher finds the rules that apply to one item.
type Matcher interface {
	Match(p profile.Normalized, it item.Normalized, kb match.KnowledgeBase) []dommatch.Match
}

// Resolver folds the matches of one item into a finding.
type Resolver interface {
	Resolve(it item.Normalized, matches []dommatch.Match) finding.Finding
}

// Builder assembles verdicts.
type Builder interface {
	Build(in verdict.Input) domverdict.Verdict
	Refuse(kbVersion string, w domverdict.Warning, err error) domverdict.Verdict
}
