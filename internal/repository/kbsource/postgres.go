package kbsource

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kailas-cloud/nutrisafe/internal/domain"
	"github.com/kailas-cloud/nutrisafe/internal/kb"
)

// latestPublishedSQL picks the newest published bundle. Drafts and bundles
// under review never reach the engine.
const latestPublishedSQL = `
SELECT format, body
FROM kb_bundles
WHERE status = 'published'
ORDER BY published_at DESC, version DESC
LIMIT 1`

// Querier is the subset of pgxpool.Pool used by Postgres.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres reads the latest published bundle from the kb_bundles table.
type Postgres struct {
	db Querier
}

// NewPostgres creates a Postgres source.
func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db}
}

// OpenPool connects to Postgres and verifies the connection.
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Name identifies the source in logs and metrics.
func (p *Postgres) Name() string { return "postgres" }

// Fetch returns the body of the latest published bundle.
func (p *Postgres) Fetch(ctx context.Context) ([]byte, kb.Format, error) {
	var (
		format string
		body   []byte
	)
	err := p.db.QueryRow(ctx, latestPublishedSQL).Scan(&format, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", fmt.Errorf("published bundle: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("query latest bundle: %w", err)
	}

	f := kb.Format(format)
	if f != kb.FormatYAML && f != kb.FormatJSON {
		return nil, "", fmt.Errorf("%w: unsupported bundle format %q", domain.ErrInvalidRecord, format)
	}
	return body, f, nil
}
