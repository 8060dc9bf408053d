package evaluation

import (
	"context"

	"github.com/kailas-cloud/nutrisafe/internal/domain/query"
	domverdict "github.com/kailas-cloud/nutrisafe/internal/domain/verdict"
)

// Engine runs one safety check.
type Engine interface {
	Check(ctx context.Context, q query.Query) domverdict.Verdict
}
