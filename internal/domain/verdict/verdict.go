package verdict

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/kailas-cloud/nutrisafe/internal/domain/finding"
	"github.com/kailas-cloud/nutrisafe/internal/domain/profile"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
)

// Status is the overall verification state of a verdict.
type Status string

// Verdict statuses.
const (
	StatusComplete       Status = "complete"
	StatusIncomplete     Status = "incomplete"
	StatusUnableToVerify Status = "unable_to_verify"
	StatusRefused        Status = "refused"
)

// WarningCode classifies a verdict warning.
type WarningCode string

// Warning codes.
const (
	WarnNormalizationFailure WarningCode = "normalization_failure"
	WarnIncompleteProfile    WarningCode = "incomplete_profile"
	WarnUnresolvedIngredient WarningCode = "unresolved_ingredient"
	WarnLowConfidence        WarningCode = "low_confidence"
	WarnEngineInternal       WarningCode = "engine_internal"
	WarnStaleKnowledgeBase   WarningCode = "stale_knowledge_base"
	WarnKBUnavailable        WarningCode = "knowledge_base_unavailable"
	WarnInvalidQuery         WarningCode = "invalid_query"
)

// Advisory texts attached to non-complete verdicts.
const (
	AdvisoryUnableToVerify = "Unable to verify safety for one or more items. Consult a healthcare professional before consuming them."
	AdvisoryIncomplete     = "This result is incomplete. Confirm the flagged names or missing profile sections before relying on it."
	AdvisoryRefused        = "Safety could not be checked against current clinical data. Consult a healthcare professional."
)

// Warning is a structured, caller-facing notice.
type Warning struct {
	Code    WarningCode `json:"code"`
	Subject string      `json:"subject,omitempty"`
	Message string      `json:"message"`
}

// Params carries the inputs of a verdict.
type Params struct {
	ID          string
	GeneratedAt time.Time
	KBVersion   string
	KBChecksum  string
	Findings    []finding.Finding
	Warnings    []Warning
	// Unresolved lists profile entries that failed normalization.
	Unresolved []profile.Element
	Errors     []error
	Refused    bool
}

// Verdict is the full per-query output.
type Verdict struct {
	id          string
	overallRisk severity.Level
	findings    []finding.Finding
	generatedAt time.Time
	kbVersion   string
	kbChecksum  string
	status      Status
	warnings    []Warning
	unresolved  []profile.Element
	advisory    string
	fingerprint string
	err         error
}

// New aggregates findings into a verdict.
// Overall risk is the maximum finding severity; a refused verdict is Unknown.
func New(p Params) Verdict {
	v := Verdict{
		id:          p.ID,
		findings:    p.Findings,
		generatedAt: p.GeneratedAt,
		kbVersion:   p.KBVersion,
		kbChecksum:  p.KBChecksum,
		warnings:    p.Warnings,
		unresolved:  p.Unresolved,
		err:         errors.Join(p.Errors...),
	}

	levels := make([]severity.Level, 0, len(p.Findings))
	for _, f := range p.Findings {
		levels = append(levels, f.Severity())
	}
	v.overallRisk = severity.Max(levels...)
	v.status = statusOf(p)

	switch v.status {
	case StatusRefused:
		v.overallRisk = severity.Unknown
		v.advisory = AdvisoryRefused
	case StatusUnableToVerify:
		v.overallRisk = severity.Unknown
		v.advisory = AdvisoryUnableToVerify
	case StatusIncomplete:
		v.advisory = AdvisoryIncomplete
	}

	v.fingerprint = fingerprint(v)
	return v
}

func statusOf(p Params) Status {
	if p.Refused {
		return StatusRefused
	}
	incomplete := len(p.Unresolved) > 0
	for _, f := range p.Findings {
		switch f.Status() {
		case finding.StatusUnableToVerify:
			return StatusUnableToVerify
		case finding.StatusIncomplete:
			incomplete = true
		}
	}
	for _, w := range p.Warnings {
		switch w.Code {
		case WarnEngineInternal:
			return StatusUnableToVerify
		case WarnNormalizationFailure, WarnIncompleteProfile, WarnUnresolvedIngredient:
			incomplete = true
		}
	}
	if incomplete {
		return StatusIncomplete
	}
	return StatusComplete
}

// ID returns the verdict identifier.
func (v Verdict) ID() string { return v.id }

// OverallRisk returns the maximum severity across findings.
func (v Verdict) OverallRisk() severity.Level { return v.overallRisk }

// Findings returns one finding per candidate item, in input order.
func (v Verdict) Findings() []finding.Finding { return v.findings }

// GeneratedAt returns the build time.
func (v Verdict) GeneratedAt() time.Time { return v.generatedAt }

// KBVersion returns the knowledge base version the verdict was built against.
func (v Verdict) KBVersion() string { return v.kbVersion }

// KBChecksum returns the knowledge base checksum.
func (v Verdict) KBChecksum() string { return v.kbChecksum }

// Status returns the verification state.
func (v Verdict) Status() Status { return v.status }

// Incomplete reports whether the verdict must not be presented as a full answer.
func (v Verdict) Incomplete() bool { return v.status != StatusComplete }

// Warnings returns structured notices.
func (v Verdict) Warnings() []Warning { return v.warnings }

// Unresolved returns profile entries that failed normalization.
func (v Verdict) Unresolved() []profile.Element { return v.unresolved }

// Advisory returns the caller-facing caveat, empty for complete verdicts.
func (v Verdict) Advisory() string { return v.advisory }

// Fingerprint returns a hash of the verdict substance, stable across runs.
func (v Verdict) Fingerprint() string { return v.fingerprint }

// Err returns the typed errors behind the verdict state, or nil.
func (v Verdict) Err() error { return v.err }

type fpMatch struct {
	Rule     string `json:"r"`
	Against  string `json:"a"`
	Elements string `json:"e"`
	Severity string `json:"s"`
	Action   string `json:"x"`
	Cross    bool   `json:"c"`
}

type fpFinding struct {
	Item       string    `json:"i"`
	Severity   string    `json:"s"`
	Action     string    `json:"x"`
	Status     string    `json:"st"`
	Low        bool      `json:"l"`
	Cross      bool      `json:"c"`
	Matches    []fpMatch `json:"m"`
	Unresolved []string  `json:"u"`
}

type fpVerdict struct {
	Risk     string      `json:"risk"`
	Status   string      `json:"status"`
	Findings []fpFinding `json:"findings"`
	Warnings []Warning   `json:"warnings"`
}

// fingerprint hashes rule ids, not versions: a curation edit that leaves the
// outcome unchanged keeps the fingerprint.
func fingerprint(v Verdict) string {
	doc := fpVerdict{
		Risk:     string(v.overallRisk),
		Status:   string(v.status),
		Findings: make([]fpFinding, 0, len(v.findings)),
		Warnings: v.warnings,
	}
	for _, f := range v.findings {
		ff := fpFinding{
			Item:       f.ItemID(),
			Severity:   string(f.Severity()),
			Action:     string(f.Action()),
			Status:     string(f.Status()),
			Low:        f.LowConfidence(),
			Cross:      f.CrossContamination(),
			Unresolved: f.Unresolved(),
		}
		for _, m := range f.Matches() {
			elems := ""
			for i, e := range m.ItemElements() {
				if i > 0 {
					elems += ","
				}
				elems += e
			}
			ff.Matches = append(ff.Matches, fpMatch{
				Rule:     m.Rule().ID,
				Against:  m.Against().Key(),
				Elements: elems,
				Severity: string(m.Severity()),
				Action:   string(m.Action()),
				Cross:    m.CrossContamination(),
			})
		}
		doc.Findings = append(doc.Findings, ff)
	}
	// Encoding a struct of strings and bools cannot fail.
	b, _ := json.Marshal(doc)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
