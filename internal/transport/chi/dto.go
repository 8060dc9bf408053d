package chi

import (
	"time"

	"github.com/kailas-cloud/nutrisafe/internal/domain/finding"
	"github.com/kailas-cloud/nutrisafe/internal/domain/item"
	dommatch "github.com/kailas-cloud/nutrisafe/internal/domain/match"
	"github.com/kailas-cloud/nutrisafe/internal/domain/profile"
	"github.com/kailas-cloud/nutrisafe/internal/domain/query"
	"github.com/kailas-cloud/nutrisafe/internal/domain/record"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
	domverdict "github.com/kailas-cloud/nutrisafe/internal/domain/verdict"
	"github.com/kailas-cloud/nutrisafe/internal/kb"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/kbload"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/normalize"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/suggest"
)

// --- Requests ---

// CheckRequest is the body of POST /v1/safety/check.
// A profile section left out (null) is reported as missing; [] means "none".
type CheckRequest struct {
	Profile   ProfileRequest `json:"profile"`
	Items     []ItemRequest  `json:"items" validate:"required,min=1,max=200,dive"`
	KBVersion string         `json:"kb_version,omitempty" validate:"max=64"`
}

// ProfileRequest is the caller's clinical profile.
type ProfileRequest struct {
	Age                 int                 `json:"age,omitempty" validate:"gte=0,lte=150"`
	Medications         []MedicationRequest `json:"medications" validate:"omitempty,dive"`
	Conditions          []string            `json:"conditions" validate:"omitempty,dive,required,max=200"`
	Allergies           []AllergyRequest    `json:"allergies" validate:"omitempty,dive"`
	DietaryRestrictions []string            `json:"dietary_restrictions,omitempty" validate:"omitempty,dive,max=200"`
	NutrientLimits      map[string]float64  `json:"nutrient_limits,omitempty" validate:"omitempty,dive,gte=0"`
}

// MedicationRequest is one active medication.
type MedicationRequest struct {
	Name   string `json:"name" validate:"required,max=200"`
	Dosage string `json:"dosage,omitempty" validate:"max=100"`
}

// AllergyRequest is one known allergy.
type AllergyRequest struct {
	Name               string `json:"name" validate:"required,max=200"`
	Severity           string `json:"severity,omitempty" validate:"omitempty,oneof=mild moderate severe critical"`
	ConfirmationSource string `json:"confirmation_source,omitempty" validate:"max=200"`
}

// ItemRequest is one candidate food, ingredient list or recipe.
type ItemRequest struct {
	ID           string             `json:"id" validate:"required,max=128"`
	Name         string             `json:"name,omitempty" validate:"max=200"`
	Kind         string             `json:"kind,omitempty" validate:"omitempty,oneof=food ingredient_list recipe"`
	Ingredients  []string           `json:"ingredients,omitempty" validate:"max=500,dive,required,max=200"`
	NutrientTags []string           `json:"nutrient_tags,omitempty" validate:"max=100,dive,required"`
	CrossContact []string           `json:"cross_contact,omitempty" validate:"max=100,dive,required"`
	Nutrients    map[string]float64 `json:"nutrients,omitempty" validate:"omitempty,dive,gte=0"`
}

// NormalizeRequest is the body of POST /v1/normalize.
type NormalizeRequest struct {
	Names []NameRequest `json:"names" validate:"required,min=1,max=500,dive"`
}

// NameRequest is one name to normalize.
type NameRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	Kind string `json:"kind" validate:"required,oneof=drug food allergen condition"`
}

// SuggestRequest is the body of POST /v1/suggest.
type SuggestRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Kind  string `json:"kind" validate:"required,oneof=drug food allergen condition"`
	Limit int    `json:"limit,omitempty" validate:"gte=0,lte=20"`
}

// ListVerdictsParams are the query parameters of GET /v1/verdicts.
type ListVerdictsParams struct {
	Status    *string    `json:"status,omitempty"`
	MinRisk   *string    `json:"min_risk,omitempty"`
	KBVersion *string    `json:"kb_version,omitempty"`
	Since     *time.Time `json:"since,omitempty"`
	Limit     *int       `json:"limit,omitempty"`
}

func (r CheckRequest) toQuery() query.Query {
	q := query.Query{KBVersion: r.KBVersion, Items: make([]item.Item, len(r.Items))}
	p := r.Profile
	q.Profile = profile.Profile{
		Age:                 p.Age,
		Conditions:          p.Conditions,
		DietaryRestrictions: p.DietaryRestrictions,
		NutrientLimits:      p.NutrientLimits,
	}
	if p.Medications != nil {
		q.Profile.Medications = make([]profile.Medication, len(p.Medications))
		for i, m := range p.Medications {
			q.Profile.Medications[i] = profile.Medication{Name: m.Name, Dosage: m.Dosage}
		}
	}
	if p.Allergies != nil {
		q.Profile.Allergies = make([]profile.Allergy, len(p.Allergies))
		for i, a := range p.Allergies {
			q.Profile.Allergies[i] = profile.Allergy{
				Name:               a.Name,
				Severity:           severity.Level(a.Severity),
				ConfirmationSource: a.ConfirmationSource,
			}
		}
	}
	for i, it := range r.Items {
		q.Items[i] = item.Item{
			ID:           it.ID,
			Name:         it.Name,
			Kind:         item.Kind(it.Kind),
			Ingredients:  it.Ingredients,
			NutrientTags: it.NutrientTags,
			CrossContact: it.CrossContact,
			Nutrients:    it.Nutrients,
		}
	}
	return q
}

// --- Responses ---

// VerdictResponse is the rendered verdict. It is also what the audit log stores.
type VerdictResponse struct {
	ID          string               `json:"id"`
	Status      domverdict.Status    `json:"status"`
	OverallRisk severity.Level       `json:"overall_risk"`
	GeneratedAt time.Time            `json:"generated_at"`
	KBVersion   string               `json:"kb_version,omitempty"`
	KBChecksum  string               `json:"kb_checksum,omitempty"`
	Fingerprint string               `json:"fingerprint"`
	Findings    []FindingResponse    `json:"findings"`
	Warnings    []domverdict.Warning `json:"warnings"`
	Unresolved  []profile.Element    `json:"unresolved"`
	Advisory    string               `json:"advisory"`
	Error       string               `json:"error,omitempty"`
}

// FindingResponse is one item's resolved result.
type FindingResponse struct {
	ItemID             string               `json:"item_id"`
	ItemName           string               `json:"item_name,omitempty"`
	Status             finding.Status       `json:"status"`
	Severity           severity.Level       `json:"severity"`
	Action             string               `json:"action"`
	LowConfidence      bool                 `json:"low_confidence"`
	CrossContamination bool                 `json:"cross_contamination"`
	Matches            []MatchResponse      `json:"matches"`
	Resolutions        []finding.Resolution `json:"resolutions"`
	Recommendations    []string             `json:"recommendations"`
	Citations          []string             `json:"citations"`
	Unresolved         []string             `json:"unresolved_ingredients,omitempty"`
	Reason             string               `json:"reason,omitempty"`
}

// MatchResponse is the trace of one rule applying to one profile element.
type MatchResponse struct {
	Rule               dommatch.RuleRef `json:"rule"`
	Against            profile.Element  `json:"against"`
	ItemElements       []string         `json:"item_elements"`
	Severity           severity.Level   `json:"severity"`
	Action             string           `json:"action"`
	CrossContamination bool             `json:"cross_contamination"`
	LowConfidence      bool             `json:"low_confidence"`
}

// NewVerdictResponse renders a verdict as the wire body. Lists are never null.
func NewVerdictResponse(v domverdict.Verdict) VerdictResponse {
	resp := VerdictResponse{
		ID:          v.ID(),
		Status:      v.Status(),
		OverallRisk: v.OverallRisk(),
		GeneratedAt: v.GeneratedAt(),
		KBVersion:   v.KBVersion(),
		KBChecksum:  v.KBChecksum(),
		Fingerprint: v.Fingerprint(),
		Findings:    make([]FindingResponse, len(v.Findings())),
		Warnings:    nonNil(v.Warnings()),
		Unresolved:  nonNil(v.Unresolved()),
		Advisory:    v.Advisory(),
	}
	if err := v.Err(); err != nil {
		resp.Error = safeDomainMessage(err)
	}
	for i, f := range v.Findings() {
		resp.Findings[i] = findingToResponse(f)
	}
	return resp
}

func findingToResponse(f finding.Finding) FindingResponse {
	out := FindingResponse{
		ItemID:             f.ItemID(),
		ItemName:           f.ItemName(),
		Status:             f.Status(),
		Severity:           f.Severity(),
		Action:             string(f.Action()),
		LowConfidence:      f.LowConfidence(),
		CrossContamination: f.CrossContamination(),
		Matches:            make([]MatchResponse, len(f.Matches())),
		Resolutions:        nonNil(f.Resolutions()),
		Recommendations:    nonNil(f.Recommendations()),
		Citations:          nonNil(f.Citations()),
		Unresolved:         f.Unresolved(),
		Reason:             f.Reason(),
	}
	for i, m := range f.Matches() {
		out.Matches[i] = MatchResponse{
			Rule:               m.Rule(),
			Against:            m.Against(),
			ItemElements:       nonNil(m.ItemElements()),
			Severity:           m.Severity(),
			Action:             string(m.Action()),
			CrossContamination: m.CrossContamination(),
			LowConfidence:      m.LowConfidence(),
		}
	}
	return out
}

// ResolutionResponse is one normalized name.
type ResolutionResponse struct {
	Raw       string           `json:"raw"`
	Kind      string           `json:"kind"`
	ID        string           `json:"id,omitempty"`
	Status    normalize.Status `json:"status"`
	MatchedBy normalize.Method `json:"matched_by,omitempty"`
}

// NormalizeResponse is the body returned by POST /v1/normalize.
type NormalizeResponse struct {
	KBVersion string               `json:"kb_version"`
	Results   []ResolutionResponse `json:"results"`
}

// SuggestResponse is the body returned by POST /v1/suggest.
// Candidates are hints for a human and are never applied to a check.
type SuggestResponse struct {
	KBVersion            string              `json:"kb_version"`
	Resolution           ResolutionResponse  `json:"resolution"`
	Candidates           []suggest.Candidate `json:"candidates"`
	RequiresConfirmation bool                `json:"requires_confirmation"`
}

func resolutionToResponse(r normalize.Resolution) ResolutionResponse {
	return ResolutionResponse{
		Raw:       r.Raw,
		Kind:      string(r.Kind),
		ID:        r.ID,
		Status:    r.Status,
		MatchedBy: r.MatchedBy,
	}
}

// KBInfoResponse describes the live knowledge base.
type KBInfoResponse struct {
	Version     string     `json:"version"`
	Checksum    string     `json:"checksum"`
	PublishedAt time.Time  `json:"published_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Expired     bool       `json:"expired"`
	Supersedes  []string   `json:"supersedes"`
	Stats       kb.Stats   `json:"stats"`
}

func snapshotToInfo(s *kb.Snapshot, now time.Time) KBInfoResponse {
	info := KBInfoResponse{
		Version:     s.Version(),
		Checksum:    s.Checksum(),
		PublishedAt: s.PublishedAt(),
		Expired:     s.Expired(now),
		Supersedes:  nonNil(s.Supersedes()),
		Stats:       s.Stats(),
	}
	if exp := s.ExpiresAt(); !exp.IsZero() {
		info.ExpiresAt = &exp
	}
	return info
}

// InteractionResponse is one drug-food interaction record.
type InteractionResponse struct {
	ID             string   `json:"id"`
	Version        int      `json:"version"`
	EvidenceLevel  string   `json:"evidence_level"`
	SourceCitation string   `json:"source_citation"`
	DrugID         string   `json:"drug_id,omitempty"`
	DrugClass      string   `json:"drug_class,omitempty"`
	ClassWide      bool     `json:"class_wide"`
	Foods          []string `json:"foods"`
	Severity       string   `json:"severity"`
	Action         string   `json:"action"`
	Mechanism      string   `json:"mechanism,omitempty"`
	ClinicalEffect string   `json:"clinical_effect,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	LowConfidence  bool     `json:"low_confidence"`
}

// FoodInteractionsResponse is the body returned by GET /v1/kb/foods/{food}/interactions.
type FoodInteractionsResponse struct {
	KBVersion    string                `json:"kb_version"`
	Food         ResolutionResponse    `json:"food"`
	Interactions []InteractionResponse `json:"interactions"`
}

func interactionToResponse(r record.Interaction) InteractionResponse {
	m := r.Meta()
	return InteractionResponse{
		ID:             m.ID(),
		Version:        m.Version(),
		EvidenceLevel:  string(m.Evidence()),
		SourceCitation: m.Citation(),
		DrugID:         r.DrugID(),
		DrugClass:      r.DrugClass(),
		ClassWide:      r.ClassWide(),
		Foods:          nonNil(r.Foods()),
		Severity:       string(r.Severity()),
		Action:         string(r.Action()),
		Mechanism:      r.Mechanism(),
		ClinicalEffect: r.ClinicalEffect(),
		Recommendation: r.Guidance(),
		LowConfidence:  m.LowConfidence(),
	}
}

// ReloadResponse is the body returned by POST /v1/kb/reload.
type ReloadResponse = kbload.Result

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	KBVersion string            `json:"kb_version,omitempty"`
	Checks    map[string]string `json:"checks"`
}

// VerdictListResponse is the body returned by GET /v1/verdicts.
type VerdictListResponse struct {
	Items []VerdictSummary `json:"items"`
}

// VerdictSummary is a stored verdict without its body.
type VerdictSummary struct {
	ID          string            `json:"id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Status      domverdict.Status `json:"status"`
	OverallRisk severity.Level    `json:"overall_risk"`
	KBVersion   string            `json:"kb_version"`
	Fingerprint string            `json:"fingerprint"`
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
