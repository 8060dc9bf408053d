package evaluation

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nutrisafe/internal/domain/finding"
	"github.com/kailas-cloud/nutrisafe/internal/domain/item"
	"github.com/kailas-cloud/nutrisafe/internal/domain/profile"
	"github.com/kailas-cloud/nutrisafe/internal/domain/query"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
	domverdict "github.com/kailas-cloud/nutrisafe/internal/domain/verdict"
	"github.com/kailas-cloud/nutrisafe/internal/kb"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/match"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/resolve"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/safety"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/verdict"
)

// --- Mocks ---

// stubEngine returns canned findings per item id.
type stubEngine struct {
	severities map[string]severity.Level
	kbVersion  string
}

func (s *stubEngine) Check(_ context.Context, q query.Query) domverdict.Verdict {
	var fs []finding.Finding
	for _, it := range q.Items {
		fs = append(fs, finding.New(finding.Params{ItemID: it.ID, Severity: s.severities[it.ID]}))
	}
	version := s.kbVersion
	if q.KBVersion != "" {
		version = q.KBVersion
	}
	return domverdict.New(domverdict.Params{ID: "v", KBVersion: version, Findings: fs})
}

// --- Helpers ---

func seedEngine(t *testing.T) Engine {
	t.Helper()
	data, err := os.ReadFile("../../../testdata/kb/seed.yaml")
	if err != nil {
		t.Fatalf("read seed: %v", err)
	}
	b, err := kb.Decode(data, kb.FormatYAML)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	s, err := kb.Build(b)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	h := kb.NewHolder()
	if err := h.Publish(s); err != nil {
		t.Fatalf("publish: %v", err)
	}
	now := func() time.Time { return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC) }
	return safety.New(h, match.New(), resolve.New(), verdict.New(verdict.WithClock(now)), zap.NewNop(),
		safety.WithClock(now))
}

func scenario(id string, items []string, expected ...Expected) Scenario {
	s := Scenario{ID: id, Expect: Expectation{Findings: expected}}
	s.Query.Profile = profile.Profile{Medications: []profile.Medication{}, Conditions: []string{}, Allergies: []profile.Allergy{}}
	for _, it := range items {
		s.Query.Items = append(s.Query.Items, item.Item{ID: it, Name: it})
	}
	return s
}

// --- Tests ---

func TestRun_CoreCorpus(t *testing.T) {
	scenarios, err := LoadDir("../../../testdata/scenarios")
	if err != nil {
		t.Fatalf("load corpus: %v", err)
	}

	rep := Run(context.Background(), scenarios, seedEngine(t))

	for _, r := range rep.Results {
		if !r.Passed {
			t.Errorf("scenario %s failed: %+v", r.ID, r)
		}
	}
	if rep.FalseNegatives != 0 {
		t.Errorf("false negatives = %d, want 0", rep.FalseNegatives)
	}
	if rep.Accuracy != 1 {
		t.Errorf("accuracy = %v, want 1", rep.Accuracy)
	}
	if rep.MissedNormalizationFailures != 0 {
		t.Errorf("missed normalization failures = %d", rep.MissedNormalizationFailures)
	}
	if rep.KBVersion != "2025.06.0" || rep.KBChecksum == "" {
		t.Errorf("kb = %s/%s", rep.KBVersion, rep.KBChecksum)
	}
	if !DefaultGate().Evaluate(rep).Passed {
		t.Errorf("default gate rejected the core corpus: %v", DefaultGate().Evaluate(rep).Reasons)
	}
}

func TestRun_PinnedSupersededVersion(t *testing.T) {
	scenarios, err := LoadDir("../../../testdata/scenarios")
	if err != nil {
		t.Fatalf("load corpus: %v", err)
	}

	rep := Run(context.Background(), scenarios, seedEngine(t), WithKBVersion("2025.05.2"))

	if rep.FalseNegatives == 0 {
		t.Error("refused verdicts must count as missed findings")
	}
	for _, r := range rep.Results {
		if r.Status != domverdict.StatusRefused {
			t.Errorf("scenario %s: status %s, want refused", r.ID, r.Status)
		}
	}
}

func TestRun_Scoring(t *testing.T) {
	engine := &stubEngine{
		kbVersion: "1",
		severities: map[string]severity.Level{
			"exact":  severity.Severe,
			"over":   severity.Critical,
			"under":  severity.Mild,
			"extra":  severity.Moderate,
			"benign": severity.None,
		},
	}
	scenarios := []Scenario{
		scenario("s1", []string{"exact", "over", "under"},
			Expected{ItemID: "exact", Severity: severity.Severe},
			Expected{ItemID: "over", Severity: severity.Severe},
			Expected{ItemID: "under", Severity: severity.Severe},
		),
		scenario("s2", []string{"extra", "benign"}),
	}

	rep := Run(context.Background(), scenarios, engine, WithParallelism(1))

	if rep.ExpectedTotal != 3 || rep.Matched != 1 || rep.OverCalls != 1 || rep.FalseNegatives != 1 {
		t.Errorf("totals = %d expected, %d matched, %d over, %d missed",
			rep.ExpectedTotal, rep.Matched, rep.OverCalls, rep.FalseNegatives)
	}
	if rep.NegativeItems != 2 || rep.FalsePositives != 1 {
		t.Errorf("negatives = %d, false positives = %d", rep.NegativeItems, rep.FalsePositives)
	}
	if rep.FalsePositiveRate != 0.5 {
		t.Errorf("false positive rate = %v, want 0.5", rep.FalsePositiveRate)
	}
	if rep.ScenariosPass != 0 {
		t.Errorf("scenarios passed = %d, want 0", rep.ScenariosPass)
	}
	if rep.Results[0].ID != "s1" || rep.Results[1].ID != "s2" {
		t.Error("results must keep scenario order")
	}
}

func TestRun_CertifiedFingerprintRegression(t *testing.T) {
	engine := &stubEngine{kbVersion: "1", severities: map[string]severity.Level{"a": severity.Mild}}
	s := scenario("s1", []string{"a"}, Expected{ItemID: "a", Severity: severity.Mild})

	baseline := Run(context.Background(), []Scenario{s}, engine)
	s.CertifiedFingerprint = baseline.Results[0].Fingerprint

	stable := Run(context.Background(), []Scenario{s}, engine)
	if stable.CertificationRegressions != 0 || stable.CertifiedScenarios != 1 {
		t.Errorf("stable run: %d regressions of %d", stable.CertificationRegressions, stable.CertifiedScenarios)
	}

	engine.severities["a"] = severity.Moderate
	drifted := Run(context.Background(), []Scenario{s}, engine)
	if drifted.CertificationRegressions != 1 {
		t.Errorf("regressions = %d, want 1", drifted.CertificationRegressions)
	}
	if !drifted.Results[0].CertificationRegressed {
		t.Error("scenario should be marked regressed")
	}
}

func TestRun_MixedVersions(t *testing.T) {
	engine := &stubEngine{kbVersion: "1"}
	a := scenario("a", []string{"x"})
	b := scenario("b", []string{"y"})
	b.Query.KBVersion = "2"

	rep := Run(context.Background(), []Scenario{a, b}, engine)
	if !rep.MixedVersions {
		t.Error("expected mixed versions")
	}
}

func TestDecode_RejectsUnknownItem(t *testing.T) {
	data := []byte(`
version: "1"
scenarios:
  - id: s1
    profile: {medications: []}
    items: [{id: a, name: kale}]
    expect:
      findings: [{item_id: b, severity: mild}]
`)
	if _, err := Decode(data); err == nil {
		t.Fatal("expected error for expectation on unknown item")
	}
}

func TestDecode_RejectsUnknownField(t *testing.T) {
	data := []byte(`
version: "1"
scenarios:
  - id: s1
    items: [{id: a, name: kale}]
    expected_findings: []
`)
	if _, err := Decode(data); err == nil {
		t.Fatal("expected error for unknown field")
	}
}
