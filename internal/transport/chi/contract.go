package chi

import (
	"context"

	domaudit "github.com/kailas-cloud/nutrisafe/internal/domain/audit"
	"github.com/kailas-cloud/nutrisafe/internal/domain/canonical"
	"github.com/kailas-cloud/nutrisafe/internal/domain/query"
	domverdict "github.com/kailas-cloud/nutrisafe/internal/domain/verdict"
	"github.com/kailas-cloud/nutrisafe/internal/kb"
	healthuc "github.com/kailas-cloud/nutrisafe/internal/usecase/health"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/kbload"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/normalize"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/suggest"
)

// SafetyChecker evaluates a query. It never returns an error; failures are
// encoded in the verdict.
type SafetyChecker interface {
	Check(ctx context.Context, q query.Query) domverdict.Verdict
}

// NameService normalizes names and suggests catalog candidates.
type NameService interface {
	Normalize(names []suggest.Name) ([]normalize.Resolution, string, error)
	Suggest(ctx context.Context, raw string, kind canonical.Kind, limit int) (suggest.Result, error)
}

// KnowledgeBase gives read access to the live snapshot.
type KnowledgeBase interface {
	Acquire() (*kb.Snapshot, func(), error)
}

// Reloader reloads the knowledge base on demand.
type Reloader interface {
	Reload(ctx context.Context) (kbload.Result, error)
}

// VerdictLog stores verdicts for later lookup.
type VerdictLog interface {
	Record(ctx context.Context, e domaudit.Entry) error
	Get(ctx context.Context, id string) (domaudit.Entry, error)
	List(ctx context.Context, f domaudit.Filter) ([]domaudit.Entry, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
