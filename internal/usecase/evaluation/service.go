package evaluation

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/nutrisafe/internal/domain/finding"
	domverdict "github.com/kailas-cloud/nutrisafe/internal/domain/verdict"
)

// Outcome classifies one expected finding.
type Outcome string

// Expected finding outcomes.
const (
	OutcomeMatched    Outcome = "matched"
	OutcomeOverCalled Outcome = "over_called"
	OutcomeMissed     Outcome = "missed"
)

// FindingResult compares one expected finding with what the engine produced.
type FindingResult struct {
	Expected Expected `json:"expected"`
	Outcome  Outcome  `json:"outcome"`
	Actual   string   `json:"actual_severity"`
	Reasons  []string `json:"reasons,omitempty"`
}

// ScenarioResult is the per-scenario part of a report.
type ScenarioResult struct {
	ID                          string            `json:"id"`
	Passed                      bool              `json:"passed"`
	Status                      domverdict.Status `json:"status"`
	KBVersion                   string            `json:"kb_version"`
	Fingerprint                 string            `json:"fingerprint"`
	Findings                    []FindingResult   `json:"findings,omitempty"`
	FalsePositives              []string          `json:"false_positives,omitempty"`
	MissedNormalizationFailures []string          `json:"missed_normalization_failures,omitempty"`
	CertificationRegressed      bool              `json:"certification_regressed,omitempty"`
	Reasons                     []string          `json:"reasons,omitempty"`
}

// Report is the output of a run. It carries numbers only; pass/fail policy
// belongs to a Gate.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	Duration   string    `json:"duration"`
	KBVersion  string    `json:"kb_version"`
	KBChecksum string    `json:"kb_checksum"`
	// MixedVersions is set when scenarios ran against different KB versions,
	// e.g. after a reload during the run.
	MixedVersions bool `json:"mixed_versions,omitempty"`

	Scenarios      int `json:"scenarios"`
	ScenariosPass  int `json:"scenarios_passed"`
	ExpectedTotal  int `json:"expected_findings"`
	Matched        int `json:"matched"`
	FalseNegatives int `json:"false_negatives"`
	OverCalls      int `json:"severity_over_calls"`
	// NegativeItems counts items that must not be flagged.
	NegativeItems               int `json:"negative_items"`
	FalsePositives              int `json:"false_positives"`
	MissedNormalizationFailures int `json:"missed_normalization_failures"`
	CertifiedScenarios          int `json:"certified_scenarios"`
	CertificationRegressions    int `json:"certification_regressions"`

	Accuracy          float64 `json:"accuracy"`
	FalseNegativeRate float64 `json:"false_negative_rate"`
	FalsePositiveRate float64 `json:"false_positive_rate"`

	Results []ScenarioResult `json:"results"`
}

// Option configures a run.
type Option func(*runner)

// WithKBVersion pins every scenario to one knowledge base version.
func WithKBVersion(version string) Option {
	return func(r *runner) { r.pin = version }
}

// WithParallelism bounds how many scenarios run at once.
func WithParallelism(n int) Option {
	return func(r *runner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

type runner struct {
	pin         string
	parallelism int
}

// Run executes every scenario against engine and scores the verdicts.
func Run(ctx context.Context, scenarios []Scenario, engine Engine, opts ...Option) Report {
	r := runner{parallelism: runtime.GOMAXPROCS(0)}
	for _, o := range opts {
		o(&r)
	}

	rep := Report{RunID: uuid.NewString(), StartedAt: time.Now().UTC(), Scenarios: len(scenarios)}
	start := time.Now()

	results := make([]ScenarioResult, len(scenarios))
	verdicts := make([]domverdict.Verdict, len(scenarios))

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(r.parallelism)
	for i, s := range scenarios {
		eg.Go(func() error {
			q := s.Query
			if r.pin != "" {
				q.KBVersion = r.pin
			}
			verdicts[i] = engine.Check(ectx, q)
			results[i] = score(s, verdicts[i])
			return nil
		})
	}
	_ = eg.Wait()

	for i, res := range results {
		rep.add(res, scenarios[i])
		v := verdicts[i]
		if v.KBVersion() == "" {
			continue
		}
		switch {
		case rep.KBVersion == "":
			rep.KBVersion, rep.KBChecksum = v.KBVersion(), v.KBChecksum()
		case rep.KBVersion != v.KBVersion() || rep.KBChecksum != v.KBChecksum():
			rep.MixedVersions = true
		}
	}
	rep.Results = results
	rep.Accuracy = ratio(rep.Matched, rep.ExpectedTotal, 1)
	rep.FalseNegativeRate = ratio(rep.FalseNegatives, rep.ExpectedTotal, 0)
	rep.FalsePositiveRate = ratio(rep.FalsePositives, rep.NegativeItems, 0)
	rep.Duration = time.Since(start).String()
	return rep
}

func (rep *Report) add(res ScenarioResult, s Scenario) {
	if res.Passed {
		rep.ScenariosPass++
	}
	rep.ExpectedTotal += len(res.Findings)
	for _, f := range res.Findings {
		switch f.Outcome {
		case OutcomeMatched:
			rep.Matched++
		case OutcomeOverCalled:
			rep.OverCalls++
		case OutcomeMissed:
			rep.FalseNegatives++
		}
	}
	rep.NegativeItems += len(s.Query.Items) - len(expectedItems(s))
	rep.FalsePositives += len(res.FalsePositives)
	rep.MissedNormalizationFailures += len(res.MissedNormalizationFailures)
	if s.CertifiedFingerprint != "" {
		rep.CertifiedScenarios++
		if res.CertificationRegressed {
			rep.CertificationRegressions++
		}
	}
}

// score compares one verdict with its scenario's expectations.
func score(s Scenario, v domverdict.Verdict) ScenarioResult {
	res := ScenarioResult{
		ID:          s.ID,
		Status:      v.Status(),
		KBVersion:   v.KBVersion(),
		Fingerprint: v.Fingerprint(),
	}

	byItem := make(map[string]finding.Finding, len(v.Findings()))
	for _, f := range v.Findings() {
		byItem[f.ItemID()] = f
	}

	for _, e := range s.Expect.Findings {
		res.Findings = append(res.Findings, compare(e, byItem[e.ItemID], byItem))
	}

	expected := expectedItems(s)
	for _, it := range s.Query.Items {
		if expected[it.ID] {
			continue
		}
		if f, ok := byItem[it.ID]; ok && f.Flagged() {
			res.FalsePositives = append(res.FalsePositives, it.ID)
		}
	}

	reported := unresolvedNames(v)
	for _, raw := range s.Expect.NormalizationFailures {
		if !reported[raw] {
			res.MissedNormalizationFailures = append(res.MissedNormalizationFailures, raw)
		}
	}

	if s.Expect.Status != "" && s.Expect.Status != v.Status() {
		res.Reasons = append(res.Reasons, fmt.Sprintf("status %s, want %s", v.Status(), s.Expect.Status))
	}
	if s.CertifiedFingerprint != "" && s.CertifiedFingerprint != v.Fingerprint() {
		res.CertificationRegressed = true
		res.Reasons = append(res.Reasons, "verdict differs from certified fingerprint")
	}

	res.Passed = len(res.Reasons) == 0 &&
		len(res.FalsePositives) == 0 &&
		len(res.MissedNormalizationFailures) == 0 &&
		!slices.ContainsFunc(res.Findings, func(f FindingResult) bool { return f.Outcome != OutcomeMatched })
	return res
}

func compare(e Expected, f finding.Finding, byItem map[string]finding.Finding) FindingResult {
	out := FindingResult{Expected: e, Outcome: OutcomeMatched}
	if _, ok := byItem[e.ItemID]; !ok {
		out.Outcome = OutcomeMissed
		out.Reasons = append(out.Reasons, "no finding for item")
		return out
	}
	out.Actual = string(f.Severity())

	missed := false
	if f.Severity().Rank() < e.Severity.Rank() {
		missed = true
		out.Reasons = append(out.Reasons, fmt.Sprintf("severity %s below expected %s", f.Severity(), e.Severity))
	}
	if e.Action != "" && f.Action().Rank() < e.Action.Rank() {
		missed = true
		out.Reasons = append(out.Reasons, fmt.Sprintf("action %s less conservative than %s", f.Action(), e.Action))
	}
	rules := make(map[string]bool, len(f.Matches()))
	for _, m := range f.Matches() {
		rules[m.Rule().ID] = true
	}
	for _, id := range e.Rules {
		if !rules[id] {
			missed = true
			out.Reasons = append(out.Reasons, "rule "+id+" did not match")
		}
	}
	if e.CrossContamination != nil && *e.CrossContamination != f.CrossContamination() {
		missed = true
		out.Reasons = append(out.Reasons, fmt.Sprintf("cross_contamination %v, want %v", f.CrossContamination(), *e.CrossContamination))
	}

	switch {
	case missed:
		out.Outcome = OutcomeMissed
	case f.Severity() != e.Severity:
		out.Outcome = OutcomeOverCalled
		out.Reasons = append(out.Reasons, fmt.Sprintf("severity %s above expected %s", f.Severity(), e.Severity))
	}
	return out
}

func expectedItems(s Scenario) map[string]bool {
	out := make(map[string]bool, len(s.Expect.Findings))
	for _, e := range s.Expect.Findings {
		out[e.ItemID] = true
	}
	return out
}

func unresolvedNames(v domverdict.Verdict) map[string]bool {
	out := make(map[string]bool)
	for _, e := range v.Unresolved() {
		out[e.Raw] = true
	}
	for _, f := range v.Findings() {
		for _, raw := range f.Unresolved() {
			out[raw] = true
		}
	}
	return out
}

func ratio(n, d int, empty float64) float64 {
	if d == 0 {
		return empty
	}
	return float64(n) / float64(d)
}
