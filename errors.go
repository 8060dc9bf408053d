package nutrisafe

import "github.com/kailas-cloud/nutrisafe/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery             = domain.ErrInvalidQuery
	ErrInvalidRecord            = domain.ErrInvalidRecord
	ErrNormalizationFailure     = domain.ErrNormalizationFailure
	ErrIncompleteProfile        = domain.ErrIncompleteProfile
	ErrStaleKnowledgeBase       = domain.ErrStaleKnowledgeBase
	ErrKnowledgeBaseUnavailable = domain.ErrKnowledgeBaseUnavailable
	ErrKBVersionUnavailable     = domain.ErrKBVersionUnavailable
	ErrKBRollback               = domain.ErrKBRollback
	ErrKBVersionConflict        = domain.ErrKBVersionConflict
	ErrEngineInternal           = domain.ErrEngineInternal
)
