package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery signals a malformed safety query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidRecord signals a knowledge record that fails validation.
	ErrInvalidRecord = errors.New("invalid knowledge record")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")

	// ErrNormalizationFailure signals a name that maps to no canonical id.
	ErrNormalizationFailure = errors.New("normalization failure")
	// ErrIncompleteProfile signals a profile section that was not provided.
	ErrIncompleteProfile = errors.New("incomplete profile")
	// ErrStaleKnowledgeBase signals a query against an expired or deprecated KB version.
	ErrStaleKnowledgeBase = errors.New("stale knowledge base")
	// ErrKnowledgeBaseUnavailable signals that no KB snapshot is loaded.
	ErrKnowledgeBaseUnavailable = errors.New("knowledge base unavailable")
	// ErrKBVersionUnavailable signals a pinned KB version that is not loaded.
	ErrKBVersionUnavailable = errors.New("knowledge base version unavailable")
	// ErrKBRollback signals an attempt to publish a deprecated KB version.
	ErrKBRollback = errors.New("knowledge base rollback refused")
	// ErrKBVersionConflict signals a version republished with different content.
	ErrKBVersionConflict = errors.New("knowledge base version conflict")
	// ErrEngineInternal signals an unexpected failure during matching or resolution.
	ErrEngineInternal = errors.New("engine internal error")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingNotConfigured signals that suggestions need an embedding provider.
	ErrEmbeddingNotConfigured = errors.New("embedding provider not configured")
)

// NormalizationError wraps ErrNormalizationFailure with the unresolved name.
type NormalizationError struct {
	Kind string
	Raw  string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("%s: %s %q", ErrNormalizationFailure.Error(), e.Kind, e.Raw)
}

func (e *NormalizationError) Unwrap() error { return ErrNormalizationFailure }

// NewNormalizationError creates a normalization error.
func NewNormalizationError(kind, raw string) error {
	return &NormalizationError{Kind: kind, Raw: raw}
}

// StaleKnowledgeBaseError wraps ErrStaleKnowledgeBase with the offending version.
type StaleKnowledgeBaseError struct {
	Version string
	Reason  string
}

func (e *StaleKnowledgeBaseError) Error() string {
	return fmt.Sprintf("%s: version %s %s", ErrStaleKnowledgeBase.Error(), e.Version, e.Reason)
}

func (e *StaleKnowledgeBaseError) Unwrap() error { return ErrStaleKnowledgeBase }

// NewStaleKnowledgeBase creates a stale knowledge base error.
func NewStaleKnowledgeBase(version, reason string) error {
	return &StaleKnowledgeBaseError{Version: version, Reason: reason}
}

// IncompleteProfileError wraps ErrIncompleteProfile with the missing sections.
type IncompleteProfileError struct {
	Fields []string
}

func (e *IncompleteProfileError) Error() string {
	return fmt.Sprintf("%s: %s not provided", ErrIncompleteProfile.Error(), strings.Join(e.Fields, ", "))
}

func (e *IncompleteProfileError) Unwrap() error { return ErrIncompleteProfile }

// NewIncompleteProfile creates an incomplete profile error.
func NewIncompleteProfile(fields []string) error {
	return &IncompleteProfileError{Fields: fields}
}

// EngineInternalError wraps ErrEngineInternal with the item that failed.
type EngineInternalError struct {
	ItemID string
	Cause  string
}

func (e *EngineInternalError) Error() string {
	return fmt.Sprintf("%s: item %s: %s", ErrEngineInternal.Error(), e.ItemID, e.Cause)
}

func (e *EngineInternalError) Unwrap() error { return ErrEngineInternal }

// NewEngineInternal creates an engine internal error.
func NewEngineInternal(itemID, cause string) error {
	return &EngineInternalError{ItemID: itemID, Cause: cause}
}
