package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/nutrisafe/internal/domain"
	domaudit "github.com/kailas-cloud/nutrisafe/internal/domain/audit"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
	domverdict "github.com/kailas-cloud/nutrisafe/internal/domain/verdict"
)

// Listing bounds.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

const schemaVersion = 1

// Store is the verdict audit log backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the audit database at path.
func Open(path string) (*Store, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" || p == "." {
		return nil, errors.New("missing audit database path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	// single-process local DB
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Record stores a verdict. Recording the same id twice keeps the first entry.
func (s *Store) Record(ctx context.Context, e domaudit.Entry) error {
	if e.ID == "" {
		return fmt.Errorf("%w: verdict id is required", domain.ErrInvalidQuery)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO verdicts(
  id, generated_at_unix_ms, kb_version, kb_checksum, status, overall_risk, risk_rank, fingerprint, body
) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING
`,
		e.ID,
		e.GeneratedAt.UnixMilli(),
		e.KBVersion,
		e.KBChecksum,
		string(e.Status),
		string(e.OverallRisk),
		e.OverallRisk.Rank(),
		e.Fingerprint,
		string(e.Body),
	)
	if err != nil {
		return fmt.Errorf("insert verdict %s: %w", e.ID, err)
	}
	return nil
}

// Get returns a stored verdict by id.
func (s *Store) Get(ctx context.Context, id string) (domaudit.Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domaudit.Entry{}, fmt.Errorf("verdict %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domaudit.Entry{}, fmt.Errorf("get verdict %s: %w", id, err)
	}
	return e, nil
}

// List returns stored verdicts, newest first.
func (s *Store) List(ctx context.Context, f domaudit.Filter) ([]domaudit.Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.MinRisk != "" {
		where = append(where, "risk_rank >= ?")
		args = append(args, f.MinRisk.Rank())
	}
	if f.KBVersion != "" {
		where = append(where, "kb_version = ?")
		args = append(args, f.KBVersion)
	}
	if !f.Since.IsZero() {
		where = append(where, "generated_at_unix_ms >= ?")
		args = append(args, f.Since.UnixMilli())
	}

	q := selectColumns
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY generated_at_unix_ms DESC, id DESC LIMIT ?"
	args = append(args, clampLimit(f.Limit))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list verdicts: %w", err)
	}
	defer rows.Close()

	out := []domaudit.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const selectColumns = `
SELECT id, generated_at_unix_ms, kb_version, kb_checksum, status, overall_risk, fingerprint, body
FROM verdicts`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(r scanner) (domaudit.Entry, error) {
	var (
		e      domaudit.Entry
		at     int64
		status string
		risk   string
		body   string
	)
	if err := r.Scan(&e.ID, &at, &e.KBVersion, &e.KBChecksum, &status, &risk, &e.Fingerprint, &body); err != nil {
		return domaudit.Entry{}, err
	}
	e.GeneratedAt = time.UnixMilli(at).UTC()
	e.Status = domverdict.Status(status)
	e.OverallRisk = severity.Level(risk)
	e.Body = []byte(body)
	return e, nil
}

func clampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	return min(n, MaxLimit)
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}

	var v int
	if err := db.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return fmt.Errorf("pragma user_version: %w", err)
	}
	if v >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS verdicts (
  id                   TEXT PRIMARY KEY,
  generated_at_unix_ms INTEGER NOT NULL,
  kb_version           TEXT NOT NULL,
  kb_checksum          TEXT NOT NULL,
  status               TEXT NOT NULL,
  overall_risk         TEXT NOT NULL,
  risk_rank            INTEGER NOT NULL,
  fingerprint          TEXT NOT NULL,
  body                 TEXT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS verdicts_generated_at ON verdicts(generated_at_unix_ms)`,
		`CREATE INDEX IF NOT EXISTS verdicts_kb_version ON verdicts(kb_version)`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("create verdicts schema: %w", err)
		}
	}
	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d;`, schemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return tx.Commit()
}
