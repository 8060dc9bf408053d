package kb

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Format is the wire encoding of a bundle.
type Format string

// Supported bundle encodings.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Bundle is the published wire form of a knowledge base version.
type Bundle struct {
	Version         string              `json:"version" yaml:"version"`
	PublishedAt     time.Time           `json:"published_at" yaml:"published_at"`
	ExpiresAt       *time.Time          `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Supersedes      []string            `json:"supersedes,omitempty" yaml:"supersedes,omitempty"`
	Catalog         Catalog             `json:"catalog" yaml:"catalog"`
	Interactions    []InteractionDoc    `json:"interactions,omitempty" yaml:"interactions,omitempty"`
	AllergenRules   []AllergenDoc       `json:"allergen_rules,omitempty" yaml:"allergen_rules,omitempty"`
	Recommendations []RecommendationDoc `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
}

// Catalog is the synonym table shipped with a bundle.
type Catalog struct {
	Drugs      []DrugEntry `json:"drugs,omitempty" yaml:"drugs,omitempty"`
	Foods      []FoodEntry `json:"foods,omitempty" yaml:"foods,omitempty"`
	Allergens  []Entry     `json:"allergens,omitempty" yaml:"allergens,omitempty"`
	Conditions []Entry     `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// Entry is a canonical id with its synonyms.
type Entry struct {
	ID       string   `json:"id" yaml:"id"`
	Synonyms []string `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
}

// DrugEntry is a drug with its pharmacological class.
type DrugEntry struct {
	ID       string   `json:"id" yaml:"id"`
	Class    string   `json:"class,omitempty" yaml:"class,omitempty"`
	Synonyms []string `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
}

// FoodEntry is a food with the nutrient tags it implies (kale -> vitamin_k).
type FoodEntry struct {
	ID       string   `json:"id" yaml:"id"`
	Synonyms []string `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// MetaDoc holds the wire fields shared by every record kind.
type MetaDoc struct {
	ID             string    `json:"id" yaml:"id"`
	Version        int       `json:"version" yaml:"version"`
	EvidenceLevel  string    `json:"evidence_level" yaml:"evidence_level"`
	SourceCitation string    `json:"source_citation" yaml:"source_citation"`
	Active         *bool     `json:"active,omitempty" yaml:"active,omitempty"`
	ReviewStatus   string    `json:"review_status,omitempty" yaml:"review_status,omitempty"`
	PublishedAt    time.Time `json:"published_at,omitempty" yaml:"published_at,omitempty"`
}

// InteractionDoc is the wire form of a drug-food interaction.
type InteractionDoc struct {
	MetaDoc         `yaml:",inline"`
	DrugID          string   `json:"drug_id,omitempty" yaml:"drug_id,omitempty"`
	DrugSynonyms    []string `json:"drug_synonyms,omitempty" yaml:"drug_synonyms,omitempty"`
	DrugClass       string   `json:"drug_class,omitempty" yaml:"drug_class,omitempty"`
	ClassWide       bool     `json:"class_wide,omitempty" yaml:"class_wide,omitempty"`
	Foods           []string `json:"foods" yaml:"foods"`
	InteractionType string   `json:"interaction_type" yaml:"interaction_type"`
	Severity        string   `json:"severity" yaml:"severity"`
	Mechanism       string   `json:"mechanism,omitempty" yaml:"mechanism,omitempty"`
	ClinicalEffect  string   `json:"clinical_effect,omitempty" yaml:"clinical_effect,omitempty"`
	Recommendation  string   `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`
}

// AllergenDoc is the wire form of an allergen rule.
type AllergenDoc struct {
	MetaDoc            `yaml:",inline"`
	AllergenID         string   `json:"allergen_id" yaml:"allergen_id"`
	Triggers           []string `json:"triggers" yaml:"triggers"`
	CrossContamination []string `json:"cross_contamination,omitempty" yaml:"cross_contamination,omitempty"`
	Severity           string   `json:"severity" yaml:"severity"`
	Symptoms           []string `json:"symptoms,omitempty" yaml:"symptoms,omitempty"`
	TreatmentProtocol  string   `json:"treatment_protocol,omitempty" yaml:"treatment_protocol,omitempty"`
}

// PopulationDoc is the wire form of population applicability.
type PopulationDoc struct {
	MinAge            int      `json:"min_age,omitempty" yaml:"min_age,omitempty"`
	MaxAge            int      `json:"max_age,omitempty" yaml:"max_age,omitempty"`
	IncludeConditions []string `json:"include_conditions,omitempty" yaml:"include_conditions,omitempty"`
	ExcludeConditions []string `json:"exclude_conditions,omitempty" yaml:"exclude_conditions,omitempty"`
}

// TargetDoc is the wire form of a numeric target.
type TargetDoc struct {
	Nutrient string  `json:"nutrient" yaml:"nutrient"`
	Max      float64 `json:"max" yaml:"max"`
	Unit     string  `json:"unit,omitempty" yaml:"unit,omitempty"`
	Basis    string  `json:"basis,omitempty" yaml:"basis,omitempty"`
}

// RecommendationDoc is the wire form of a clinical recommendation.
type RecommendationDoc struct {
	MetaDoc            `yaml:",inline"`
	ConditionID        string        `json:"condition_id" yaml:"condition_id"`
	RecommendationType string        `json:"recommendation_type,omitempty" yaml:"recommendation_type,omitempty"`
	Population         PopulationDoc `json:"population,omitempty" yaml:"population,omitempty"`
	Contraindications  []string      `json:"contraindications,omitempty" yaml:"contraindications,omitempty"`
	Targets            []TargetDoc   `json:"targets,omitempty" yaml:"targets,omitempty"`
	Severity           string        `json:"severity,omitempty" yaml:"severity,omitempty"`
	TargetAction       string        `json:"target_action,omitempty" yaml:"target_action,omitempty"`
	ContraAction       string        `json:"contraindication_action,omitempty" yaml:"contraindication_action,omitempty"`
	Guidance           string        `json:"guidance,omitempty" yaml:"guidance,omitempty"`
}

// Decode parses a bundle in the given format.
func Decode(data []byte, format Format) (Bundle, error) {
	var b Bundle
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&b); err != nil {
			return Bundle{}, fmt.Errorf("decode yaml bundle: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&b); err != nil {
			return Bundle{}, fmt.Errorf("decode json bundle: %w", err)
		}
	default:
		return Bundle{}, fmt.Errorf("unsupported bundle format %q", format)
	}
	return b, nil
}

// FormatFromName picks the format from a file or object name.
func FormatFromName(name string) Format {
	if strings.HasSuffix(strings.ToLower(name), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Encode renders the bundle as canonical JSON.
func (b Bundle) Encode() ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return data, nil
}

// Checksum returns the sha256 of the canonical JSON encoding.
// The same content decoded from YAML or JSON yields the same checksum.
func (b Bundle) Checksum() (string, error) {
	data, err := b.Encode()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
