package evaluation

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/nutrisafe/internal/domain/action"
	"github.com/kailas-cloud/nutrisafe/internal/domain/query"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
	domverdict "github.com/kailas-cloud/nutrisafe/internal/domain/verdict"
)

// Scenario is one certified regression case: a query plus what the engine
// must report for it.
type Scenario struct {
	ID          string      `yaml:"id"`
	Description string      `yaml:"description,omitempty"`
	Query       query.Query `yaml:",inline"`
	Expect      Expectation `yaml:"expect"`
	// CertifiedFingerprint is the verdict fingerprint signed off for this
	// scenario. Empty means not certified yet.
	CertifiedFingerprint string `yaml:"certified_fingerprint,omitempty"`
}

// Expectation lists what a scenario's verdict must contain.
type Expectation struct {
	Status   domverdict.Status `yaml:"status,omitempty"`
	Findings []Expected        `yaml:"findings,omitempty"`
	// NormalizationFailures lists raw names the engine must report as
	// unresolved (profile entries or item ingredients).
	NormalizationFailures []string `yaml:"normalization_failures,omitempty"`
}

// Expected is one finding the engine must produce. Items of the scenario
// without an Expected entry must not be flagged.
type Expected struct {
	ItemID             string         `yaml:"item_id"`
	Severity           severity.Level `yaml:"severity"`
	Action             action.Type    `yaml:"action,omitempty"`
	Rules              []string       `yaml:"rules,omitempty"`
	CrossContamination *bool          `yaml:"cross_contamination,omitempty"`
}

// Corpus is a versioned file of scenarios.
type Corpus struct {
	Version   string     `yaml:"version"`
	Scenarios []Scenario `yaml:"scenarios"`
}

// Decode parses a YAML corpus. Unknown fields are rejected.
func Decode(data []byte) (*Corpus, error) {
	var c Corpus
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadDir reads every *.yaml corpus file in dir, in file name order.
func LoadDir(dir string) ([]Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob scenarios: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", dir)
	}
	slices.Sort(paths)

	var out []Scenario
	seen := make(map[string]string)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		c, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		for _, s := range c.Scenarios {
			if prev, ok := seen[s.ID]; ok {
				return nil, fmt.Errorf("scenario %s defined in both %s and %s", s.ID, prev, filepath.Base(p))
			}
			seen[s.ID] = filepath.Base(p)
			out = append(out, s)
		}
	}
	return out, nil
}

// Validate checks scenario ids and expectations.
func (c *Corpus) Validate() error {
	var errs []error
	ids := make(map[string]bool, len(c.Scenarios))
	for _, s := range c.Scenarios {
		if s.ID == "" {
			errs = append(errs, errors.New("scenario id is required"))
			continue
		}
		if ids[s.ID] {
			errs = append(errs, fmt.Errorf("duplicate scenario id %s", s.ID))
		}
		ids[s.ID] = true
		items := make(map[string]bool, len(s.Query.Items))
		for _, it := range s.Query.Items {
			items[it.ID] = true
		}
		for _, e := range s.Expect.Findings {
			if !items[e.ItemID] {
				errs = append(errs, fmt.Errorf("scenario %s: expected finding for unknown item %q", s.ID, e.ItemID))
			}
			if !e.Severity.IsValid() {
				errs = append(errs, fmt.Errorf("scenario %s: invalid severity %q", s.ID, e.Severity))
			}
			if e.Action != "" && !e.Action.IsValid() {
				errs = append(errs, fmt.Errorf("scenario %s: invalid action %q", s.ID, e.Action))
			}
		}
	}
	return errors.Join(errs...)
}
