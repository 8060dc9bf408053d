package evidence

import "fmt"

// Level is the strength of evidence behind a knowledge record.
type Level string

// Evidence levels, strongest first.
const (
	A                Level = "A"
	B                Level = "B"
	C                Level = "C"
	D                Level = "D"
	ExpertConsensus  Level = "expert_consensus"
	lowConfidenceCut       = 3
)

var strength = map[Level]int{
	A:               0,
	B:               1,
	C:               2,
	D:               3,
	ExpertConsensus: 4,
}

// IsValid checks if the level is one of the supported values.
func (l Level) IsValid() bool {
	_, ok := strength[l]
	return ok
}

// LowConfidence reports whether findings citing this level need a caveat.
// D and everything weaker (expert consensus) qualifies.
func (l Level) LowConfidence() bool {
	s, ok := strength[l]
	if !ok {
		return true
	}
	return s >= lowConfidenceCut
}

// Stronger reports whether l is backed by stronger evidence than other.
func (l Level) Stronger(other Level) bool {
	ls, lok := strength[l]
	os, ook := strength[other]
	if !lok {
		return false
	}
	if !ook {
		return true
	}
	return ls < os
}

// Parse converts a string to a Level.
func Parse(s string) (Level, error) {
	l := Level(s)
	if !l.IsValid() {
		return "", fmt.Errorf("invalid evidence level %q", s)
	}
	return l, nil
}
