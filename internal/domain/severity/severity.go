package severity

import "fmt"

// Level is the clinical severity of a finding.
type Level string

// Severity levels, lowest to highest.
const (
	None     Level = "none"
	Mild     Level = "mild"
	Moderate Level = "moderate"
	Severe   Level = "severe"
	Critical Level = "critical"
	// Unknown marks results the engine could not verify.
	// It ranks above Critical so aggregation never hides it.
	Unknown Level = "unknown"
)

var ranks = map[Level]int{
	None:     0,
	Mild:     1,
	Moderate: 2,
	Severe:   3,
	Critical: 4,
	Unknown:  5,
}

// IsValid checks if the level is one of the supported values.
func (l Level) IsValid() bool {
	_, ok := ranks[l]
	return ok
}

// IsRuleLevel reports whether a knowledge record may carry this level.
func (l Level) IsRuleLevel() bool {
	return l == Mild || l == Moderate || l == Severe || l == Critical
}

// Rank returns the ordinal position of the level. Invalid levels rank as Unknown.
func (l Level) Rank() int {
	if r, ok := ranks[l]; ok {
		return r
	}
	return ranks[Unknown]
}

// AtLeast reports whether l is as severe as other or more.
func (l Level) AtLeast(other Level) bool {
	return l.Rank() >= other.Rank()
}

// Flagged reports whether the level warrants attention (anything above None).
func (l Level) Flagged() bool {
	return l.Rank() > ranks[None]
}

// Max returns the most severe of the given levels. Max() is None.
func Max(levels ...Level) Level {
	out := None
	for _, l := range levels {
		if !l.IsValid() {
			l = Unknown
		}
		if l.Rank() > out.Rank() {
			out = l
		}
	}
	return out
}

// Parse converts a string to a Level.
func Parse(s string) (Level, error) {
	l := Level(s)
	if !l.IsValid() {
		return "", fmt.Errorf("invalid severity %q", s)
	}
	return l, nil
}
