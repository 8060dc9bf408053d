package evaluation

import "fmt"

// Gate is a release policy applied to a Report by its caller (CI, the
// safetyeval CLI). Run never applies it.
type Gate struct {
	MinAccuracy          float64 `yaml:"min_accuracy" json:"min_accuracy"`
	MaxFalseNegatives    int     `yaml:"max_false_negatives" json:"max_false_negatives"`
	MaxFalsePositiveRate float64 `yaml:"max_false_positive_rate" json:"max_false_positive_rate"`
	// MaxMissedNormalizationFailures caps silently dropped unknown names.
	MaxMissedNormalizationFailures int  `yaml:"max_missed_normalization_failures" json:"max_missed_normalization_failures"`
	RequireStableCertifications    bool `yaml:"require_stable_certifications" json:"require_stable_certifications"`
}

// DefaultGate is the starting bar: 98.5% accuracy, no false negatives,
// no dropped names and no drift on certified scenarios.
func DefaultGate() Gate {
	return Gate{
		MinAccuracy:                 0.985,
		MaxFalseNegatives:           0,
		MaxFalsePositiveRate:        0.05,
		RequireStableCertifications: true,
	}
}

// Decision is the outcome of applying a Gate.
type Decision struct {
	Gate    Gate     `json:"gate"`
	Passed  bool     `json:"passed"`
	Reasons []string `json:"reasons,omitempty"`
}

// Evaluate applies the gate to a report.
func (g Gate) Evaluate(r Report) Decision {
	var reasons []string
	if r.Accuracy < g.MinAccuracy {
		reasons = append(reasons, fmt.Sprintf("accuracy %.4f below %.4f", r.Accuracy, g.MinAccuracy))
	}
	if r.FalseNegatives > g.MaxFalseNegatives {
		reasons = append(reasons, fmt.Sprintf("%d false negatives (max %d)", r.FalseNegatives, g.MaxFalseNegatives))
	}
	if r.FalsePositiveRate > g.MaxFalsePositiveRate {
		reasons = append(reasons, fmt.Sprintf("false positive rate %.4f above %.4f", r.FalsePositiveRate, g.MaxFalsePositiveRate))
	}
	if r.MissedNormalizationFailures > g.MaxMissedNormalizationFailures {
		reasons = append(reasons, fmt.Sprintf("%d unknown names not reported (max %d)",
			r.MissedNormalizationFailures, g.MaxMissedNormalizationFailures))
	}
	if g.RequireStableCertifications && r.CertificationRegressions > 0 {
		reasons = append(reasons, fmt.Sprintf("%d certified scenarios changed verdict", r.CertificationRegressions))
	}
	if r.MixedVersions {
		reasons = append(reasons, "scenarios ran against more than one knowledge base version")
	}
	return Decision{Gate: g, Passed: len(reasons) == 0, Reasons: reasons}
}
