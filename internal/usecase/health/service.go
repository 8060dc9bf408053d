package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the engine cannot answer safety checks.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckStale indicates a loaded but expired knowledge base.
	CheckStale CheckResult = "stale"
)

// Check names.
const (
	KnowledgeBaseCheck = "knowledge_base"
	DatabaseCheck      = "database"
	AuditCheck         = "audit"
	EmbeddingCheck     = "embedding"
)

// Report aggregates health check results.
type Report struct {
	Status    Status
	KBVersion string
	Checks    map[string]CheckResult
}

// Option configures the Service.
type Option func(*Service)

// WithDatabase adds the Redis check.
func WithDatabase(p Pinger) Option { return func(s *Service) { s.db = p } }

// WithAudit adds the audit log check.
func WithAudit(p Pinger) Option { return func(s *Service) { s.audit = p } }

// WithEmbedding adds the embedding provider check.
func WithEmbedding(e EmbeddingChecker) Option { return func(s *Service) { s.embedding = e } }

// WithClock overrides the clock used for expiry.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// Service coordinates health checks.
type Service struct {
	kb        KnowledgeBase
	db        Pinger
	audit     Pinger
	embedding EmbeddingChecker
	now       func() time.Time
}

// New creates a Service. Only the knowledge base check is mandatory.
func New(knowledge KnowledgeBase, opts ...Option) *Service {
	s := &Service{kb: knowledge, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Check runs health checks against all components.
// A missing or expired knowledge base makes the service unhealthy since every
// safety check would be refused; other failures only degrade it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	r := Report{Status: Healthy, Checks: checks}

	switch snap := s.kb.Current(); {
	case snap == nil:
		checks[KnowledgeBaseCheck] = CheckError
	case snap.Expired(s.now()):
		checks[KnowledgeBaseCheck] = CheckStale
		r.KBVersion = snap.Version()
	default:
		checks[KnowledgeBaseCheck] = CheckOK
		r.KBVersion = snap.Version()
	}

	if s.db != nil {
		checks[DatabaseCheck] = result(s.db.Ping(ctx))
	}
	if s.audit != nil {
		checks[AuditCheck] = result(s.audit.Ping(ctx))
	}
	if s.embedding != nil {
		checks[EmbeddingCheck] = result(s.embedding.HealthCheck(ctx))
	}

	if checks[KnowledgeBaseCheck] != CheckOK {
		r.Status = Unhealthy
		return r
	}
	for _, v := range checks {
		if v != CheckOK {
			r.Status = Degraded
			break
		}
	}
	return r
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
