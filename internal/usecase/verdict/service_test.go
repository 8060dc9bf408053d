package verdict

import (
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/nutrisafe/internal/domain"
	"github.com/kailas-cloud/nutrisafe/internal/domain/action"
	"github.com/kailas-cloud/nutrisafe/internal/domain/finding"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
	domverdict "github.com/kailas-cloud/nutrisafe/internal/domain/verdict"
)

var fixed = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestBuilder() *Builder {
	return New(
		WithClock(func() time.Time { return fixed }),
		WithIDGenerator(func() (string, error) { return "verdict-1", nil }),
	)
}

func TestBuild(t *testing.T) {
	b := newTestBuilder()
	in := []finding.Finding{
		finding.New(finding.Params{ItemID: "a", Severity: severity.Mild, Action: action.Monitor}),
		finding.New(finding.Params{ItemID: "b", Severity: severity.Critical, Action: action.Avoid}),
	}
	v := b.Build(Input{Findings: in, KBVersion: "2025.06.0", KBChecksum: "abc"})

	if v.ID() != "verdict-1" || !v.GeneratedAt().Equal(fixed) {
		t.Errorf("id/time = %s/%s", v.ID(), v.GeneratedAt())
	}
	if v.OverallRisk() != severity.Critical {
		t.Errorf("OverallRisk() = %q, want critical", v.OverallRisk())
	}
	if v.KBVersion() != "2025.06.0" || v.KBChecksum() != "abc" {
		t.Errorf("kb = %s/%s", v.KBVersion(), v.KBChecksum())
	}
	if v.Findings()[0].ItemID() != "a" {
		t.Error("findings reordered")
	}
}

func TestBuild_DoesNotMutateWarnings(t *testing.T) {
	b := newTestBuilder()
	warnings := make([]domverdict.Warning, 0, 4)
	warnings = append(warnings, domverdict.Warning{Code: domverdict.WarnIncompleteProfile, Message: "x"})
	low := finding.New(finding.Params{ItemID: "a", Severity: severity.Mild, LowConfidence: true})

	v := b.Build(Input{Findings: []finding.Finding{low}, Warnings: warnings})
	if len(v.Warnings()) != 2 {
		t.Fatalf("Warnings len = %d, want 2", len(v.Warnings()))
	}
	if v.Warnings()[1].Code != domverdict.WarnLowConfidence || v.Warnings()[1].Subject != "a" {
		t.Errorf("low confidence warning = %+v", v.Warnings()[1])
	}
	if len(warnings) != 1 || warnings[:2][1].Code != "" {
		t.Error("input warnings slice was mutated")
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b := newTestBuilder()
	in := Input{Findings: []finding.Finding{
		finding.New(finding.Params{ItemID: "a", Severity: severity.Severe, Action: action.Avoid}),
	}}
	first := b.Build(in)
	for range 10 {
		if got := b.Build(in); got.Fingerprint() != first.Fingerprint() {
			t.Fatal("fingerprint changed between runs")
		}
	}
}

func TestRefuse(t *testing.T) {
	b := newTestBuilder()
	v := b.Refuse("2025.05.2",
		domverdict.Warning{Code: domverdict.WarnStaleKnowledgeBase, Message: "stale"},
		domain.NewStaleKnowledgeBase("2025.05.2", "is deprecated"),
	)
	if v.Status() != domverdict.StatusRefused {
		t.Errorf("Status() = %q", v.Status())
	}
	if len(v.Findings()) != 0 {
		t.Error("refused verdict must carry no findings")
	}
	if !errors.Is(v.Err(), domain.ErrStaleKnowledgeBase) {
		t.Errorf("Err() = %v", v.Err())
	}
}

func TestBuild_IDFallback(t *testing.T) {
	b := New(
		WithClock(func() time.Time { return fixed }),
		WithIDGenerator(func() (string, error) { return "", errors.New("entropy") }),
	)
	v := b.Build(Input{})
	if v.ID() == "" {
		t.Error("ID() empty on generator failure")
	}
}
