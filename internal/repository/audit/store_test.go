package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/nutrisafe/internal/domain"
	domaudit "github.com/kailas-cloud/nutrisafe/internal/domain/audit"
	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
	domverdict "github.com/kailas-cloud/nutrisafe/internal/domain/verdict"
)

var base = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "audit", "verdicts.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func entry(id string, at time.Time, status domverdict.Status, risk severity.Level, kbVersion string) domaudit.Entry {
	return domaudit.Entry{
		ID:          id,
		GeneratedAt: at,
		KBVersion:   kbVersion,
		KBChecksum:  "abc",
		Status:      status,
		OverallRisk: risk,
		Fingerprint: "fp-" + id,
		Body:        []byte(`{"id":"` + id + `"}`),
	}
}

func TestOpen_Reopen(t *testing.T) {
	p := filepath.Join(t.TempDir(), "verdicts.sqlite")
	s, err := Open(p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Record(context.Background(), entry("v1", base, domverdict.StatusComplete, severity.Mild, "k1")); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s, err = Open(p)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(context.Background(), "v1"); err != nil {
		t.Errorf("entry lost across reopen: %v", err)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestRecordAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	want := entry("v1", base, domverdict.StatusIncomplete, severity.Severe, "2025.06.0")

	if err := s.Record(ctx, want); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := s.Get(ctx, "v1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != want.ID || got.Status != want.Status || got.OverallRisk != want.OverallRisk ||
		got.KBVersion != want.KBVersion || got.Fingerprint != want.Fingerprint ||
		!got.GeneratedAt.Equal(want.GeneratedAt) || string(got.Body) != string(want.Body) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestRecord_Duplicate(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	first := entry("v1", base, domverdict.StatusComplete, severity.Mild, "k1")
	second := entry("v1", base.Add(time.Hour), domverdict.StatusRefused, severity.Unknown, "k2")

	if err := s.Record(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(ctx, second); err != nil {
		t.Fatalf("duplicate record: %v", err)
	}
	got, _ := s.Get(ctx, "v1")
	if got.KBVersion != "k1" {
		t.Errorf("duplicate overwrote the first entry: %+v", got)
	}
}

func TestRecord_MissingID(t *testing.T) {
	err := openStore(t).Record(context.Background(), domaudit.Entry{})
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("err = %v, want ErrInvalidQuery", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	_, err := openStore(t).Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestList_Filters(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	for _, e := range []domaudit.Entry{
		entry("a", base, domverdict.StatusComplete, severity.None, "k1"),
		entry("b", base.Add(time.Minute), domverdict.StatusComplete, severity.Severe, "k1"),
		entry("c", base.Add(2*time.Minute), domverdict.StatusIncomplete, severity.Moderate, "k2"),
		entry("d", base.Add(3*time.Minute), domverdict.StatusRefused, severity.Unknown, "k2"),
	} {
		if err := s.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter domaudit.Filter
		want   []string
	}{
		{"all newest first", domaudit.Filter{}, []string{"d", "c", "b", "a"}},
		{"by status", domaudit.Filter{Status: domverdict.StatusComplete}, []string{"b", "a"}},
		{"min risk", domaudit.Filter{MinRisk: severity.Severe}, []string{"d", "b"}},
		{"kb version", domaudit.Filter{KBVersion: "k2"}, []string{"d", "c"}},
		{"since", domaudit.Filter{Since: base.Add(2 * time.Minute)}, []string{"d", "c"}},
		{"limit", domaudit.Filter{Limit: 1}, []string{"d"}},
		{"combined", domaudit.Filter{KBVersion: "k1", MinRisk: severity.Mild}, []string{"b"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.List(ctx, tc.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			ids := make([]string, len(got))
			for i, e := range got {
				ids[i] = e.ID
			}
			if len(ids) != len(tc.want) {
				t.Fatalf("ids = %v, want %v", ids, tc.want)
			}
			for i := range ids {
				if ids[i] != tc.want[i] {
					t.Fatalf("ids = %v, want %v", ids, tc.want)
				}
			}
		})
	}
}

func TestPing(t *testing.T) {
	if err := openStore(t).Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestClampLimit(t *testing.T) {
	if clampLimit(0) != DefaultLimit || clampLimit(10_000) != MaxLimit || clampLimit(7) != 7 {
		t.Error("limit clamping is wrong")
	}
}
