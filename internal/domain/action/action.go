package action

import "fmt"

// Type is the recommended handling of a matched rule.
type Type string

// Action types.
const (
	SupplementRecommended Type = "supplement_recommended"
	Monitor               Type = "monitor"
	TimingSeparation      Type = "timing_separation"
	DoseAdjustment        Type = "dose_adjustment"
	Avoid                 Type = "avoid"
)

// Conservativeness ranking. TimingSeparation and DoseAdjustment share a rank;
// MoreConservative breaks that tie by name so the ordering stays total.
var ranks = map[Type]int{
	SupplementRecommended: 0,
	Monitor:               1,
	TimingSeparation:      2,
	DoseAdjustment:        2,
	Avoid:                 3,
}

// IsValid checks if the action is one of the supported values.
func (t Type) IsValid() bool {
	_, ok := ranks[t]
	return ok
}

// Rank returns the conservativeness rank. Unknown actions rank as Avoid.
func (t Type) Rank() int {
	if r, ok := ranks[t]; ok {
		return r
	}
	return ranks[Avoid]
}

// MoreConservative returns whichever of a and b is more conservative.
// Equal ranks resolve to the lexically smaller name.
func MoreConservative(a, b Type) Type {
	switch ra, rb := a.Rank(), b.Rank(); {
	case ra > rb:
		return a
	case rb > ra:
		return b
	case a <= b:
		return a
	default:
		return b
	}
}

// Most returns the most conservative action, or "" for no input.
func Most(actions ...Type) Type {
	var out Type
	for i, a := range actions {
		if i == 0 {
			out = a
			continue
		}
		out = MoreConservative(out, a)
	}
	return out
}

// Parse converts a string to a Type.
func Parse(s string) (Type, error) {
	t := Type(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid action %q", s)
	}
	return t, nil
}
