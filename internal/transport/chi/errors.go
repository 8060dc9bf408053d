package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kailas-cloud/nutrisafe/internal/domain"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes returned by the API.
const (
	CodeBadRequest               ErrorCode = "bad_request"
	CodeValidationFailed         ErrorCode = "validation_failed"
	CodeUnauthorized             ErrorCode = "unauthorized"
	CodeNotFound                 ErrorCode = "not_found"
	CodeNormalizationFailure     ErrorCode = "normalization_failure"
	CodeKnowledgeBaseUnavailable ErrorCode = "knowledge_base_unavailable"
	CodeKBVersionUnavailable     ErrorCode = "kb_version_unavailable"
	CodeStaleKnowledgeBase       ErrorCode = "stale_knowledge_base"
	CodeKBRollback               ErrorCode = "kb_rollback"
	CodeKBVersionConflict        ErrorCode = "kb_version_conflict"
	CodeInvalidRecord            ErrorCode = "invalid_record"
	CodeEmbeddingProviderError   ErrorCode = "embedding_provider_error"
	CodeEmbeddingNotConfigured   ErrorCode = "embedding_not_configured"
	CodeNotImplemented           ErrorCode = "not_implemented"
	CodeInternalError            ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response except safety checks,
// which always return a verdict.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrNormalizationFailure, http.StatusNotFound, CodeNormalizationFailure),
		sentinelHandler(domain.ErrKnowledgeBaseUnavailable, http.StatusServiceUnavailable, CodeKnowledgeBaseUnavailable),
		sentinelHandler(domain.ErrKBVersionUnavailable, http.StatusConflict, CodeKBVersionUnavailable),
		sentinelHandler(domain.ErrStaleKnowledgeBase, http.StatusConflict, CodeStaleKnowledgeBase),
		sentinelHandler(domain.ErrKBRollback, http.StatusConflict, CodeKBRollback),
		sentinelHandler(domain.ErrKBVersionConflict, http.StatusConflict, CodeKBVersionConflict),
		sentinelHandler(domain.ErrInvalidRecord, http.StatusUnprocessableEntity, CodeInvalidRecord),
		sentinelHandler(domain.ErrEmbeddingNotConfigured, http.StatusNotImplemented, CodeEmbeddingNotConfigured),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, CodeNotImplemented),
	}
}

// sentinels are the errors whose message is safe to show to clients.
var sentinels = []error{
	domain.ErrInvalidQuery,
	domain.ErrNotFound,
	domain.ErrNormalizationFailure,
	domain.ErrKnowledgeBaseUnavailable,
	domain.ErrKBVersionUnavailable,
	domain.ErrStaleKnowledgeBase,
	domain.ErrKBRollback,
	domain.ErrKBVersionConflict,
	domain.ErrInvalidRecord,
	domain.ErrIncompleteProfile,
	domain.ErrEngineInternal,
	domain.ErrEmbeddingNotConfigured,
	domain.ErrEmbeddingProviderError,
	domain.ErrNotImplemented,
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
