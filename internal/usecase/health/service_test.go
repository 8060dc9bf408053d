package health

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/kailas-cloud/nutrisafe/internal/kb"
)

// --- Mocks ---

type mockKB struct {
	snap *kb.Snapshot
}

func (m *mockKB) Current() *kb.Snapshot { return m.snap }

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Helpers ---

var now = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func seedSnapshot(t *testing.T, expiresAt *time.Time) *kb.Snapshot {
	t.Helper()
	data, err := os.ReadFile("../../../testdata/kb/seed.yaml")
	if err != nil {
		t.Fatalf("read seed: %v", err)
	}
	b, err := kb.Decode(data, kb.FormatYAML)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b.ExpiresAt = expiresAt
	s, err := kb.Build(b)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return s
}

func newService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	opts = append(opts, WithClock(func() time.Time { return now }))
	return New(&mockKB{snap: seedSnapshot(t, nil)}, opts...)
}

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := newService(t,
		WithDatabase(&mockPinger{}),
		WithAudit(&mockPinger{}),
		WithEmbedding(&mockEmbeddingChecker{}),
	)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.KBVersion != "2025.06.0" {
		t.Errorf("expected kb version 2025.06.0, got %q", r.KBVersion)
	}
	for _, name := range []string{KnowledgeBaseCheck, DatabaseCheck, AuditCheck, EmbeddingCheck} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_OptionalComponentsAbsent(t *testing.T) {
	r := newService(t).Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if len(r.Checks) != 1 {
		t.Errorf("expected only the knowledge base check, got %v", r.Checks)
	}
}

func TestCheck_DegradedComponents(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		failed string
	}{
		{"database", []Option{WithDatabase(&mockPinger{err: errors.New("conn refused")})}, DatabaseCheck},
		{"audit", []Option{WithAudit(&mockPinger{err: errors.New("disk full")})}, AuditCheck},
		{"embedding", []Option{WithEmbedding(&mockEmbeddingChecker{err: errors.New("timeout")})}, EmbeddingCheck},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newService(t, tc.opts...).Check(context.Background())
			if r.Status != Degraded {
				t.Errorf("expected %q, got %q", Degraded, r.Status)
			}
			if r.Checks[tc.failed] != CheckError {
				t.Errorf("expected %s %q, got %q", tc.failed, CheckError, r.Checks[tc.failed])
			}
			if r.Checks[KnowledgeBaseCheck] != CheckOK {
				t.Errorf("knowledge base should stay ok, got %q", r.Checks[KnowledgeBaseCheck])
			}
		})
	}
}

func TestCheck_NoKnowledgeBase(t *testing.T) {
	svc := New(&mockKB{}, WithDatabase(&mockPinger{}))
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[KnowledgeBaseCheck] != CheckError {
		t.Errorf("expected knowledge base %q, got %q", CheckError, r.Checks[KnowledgeBaseCheck])
	}
	if r.Checks[DatabaseCheck] != CheckOK {
		t.Error("database check should still run")
	}
}

func TestCheck_ExpiredKnowledgeBase(t *testing.T) {
	expired := now.Add(-time.Minute)
	svc := New(&mockKB{snap: seedSnapshot(t, &expired)}, WithClock(func() time.Time { return now }))
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[KnowledgeBaseCheck] != CheckStale {
		t.Errorf("expected knowledge base %q, got %q", CheckStale, r.Checks[KnowledgeBaseCheck])
	}
	if r.KBVersion != "2025.06.0" {
		t.Errorf("stale report should still name the version, got %q", r.KBVersion)
	}
}
