package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestTypedErrors_Unwrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		contains string
	}{
		{"normalization", NewNormalizationError("drug", "Tylenol"), ErrNormalizationFailure, `"Tylenol"`},
		{"stale", NewStaleKnowledgeBase("2024.01", "is deprecated"), ErrStaleKnowledgeBase, "2024.01"},
		{"incomplete", NewIncompleteProfile([]string{"medications"}), ErrIncompleteProfile, "medications"},
		{"internal", NewEngineInternal("item-1", "boom"), ErrEngineInternal, "item-1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", tc.err, tc.sentinel)
			}
			if !strings.Contains(tc.err.Error(), tc.contains) {
				t.Errorf("Error() = %q, want substring %q", tc.err, tc.contains)
			}
		})
	}
}

func TestNormalizationError_As(t *testing.T) {
	err := errors.Join(NewNormalizationError("drug", "Tylenol"))
	var ne *NormalizationError
	if !errors.As(err, &ne) {
		t.Fatal("errors.As failed")
	}
	if ne.Raw != "Tylenol" || ne.Kind != "drug" {
		t.Errorf("got %+v", ne)
	}
}
