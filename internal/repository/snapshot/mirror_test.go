package snapshot

import (
	"context"
	"errors"
	"path"
	"slices"
	"testing"

	"github.com/kailas-cloud/nutrisafe/internal/db"
	"github.com/kailas-cloud/nutrisafe/internal/domain"
	"github.com/kailas-cloud/nutrisafe/internal/kb"
)

// --- Mocks ---

// memStore implements the consumer interface over a map.
type memStore struct {
	data   map[string][]byte
	setErr error
	writes []string
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.writes = append(m.writes, key)
	m.data[key] = value
	return nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	var keys []string
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// --- Tests ---

func TestSaveAndFetch(t *testing.T) {
	s := newMemStore()
	m := New(s, 0)

	if err := m.Save(context.Background(), "2025.06.0", []byte(`{"version":"2025.06.0"}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !slices.Equal(s.writes, []string{"nutrisafe:kb:bundle:2025.06.0", "nutrisafe:kb:current"}) {
		t.Errorf("writes = %v, bundle must be written before current", s.writes)
	}

	data, format, err := m.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if format != kb.FormatJSON || string(data) != `{"version":"2025.06.0"}` {
		t.Errorf("got %q %q", data, format)
	}
}

func TestFetch_Empty(t *testing.T) {
	_, _, err := New(newMemStore(), 0).Fetch(context.Background())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFetch_DanglingCurrent(t *testing.T) {
	s := newMemStore()
	s.data[currentKey] = []byte("2025.01.0")
	_, _, err := New(s, 0).Fetch(context.Background())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSave_Prunes(t *testing.T) {
	s := newMemStore()
	m := New(s, 2)
	for _, v := range []string{"2025.01.0", "2025.02.0", "2025.03.0"} {
		if err := m.Save(context.Background(), v, []byte(v)); err != nil {
			t.Fatalf("save %s: %v", v, err)
		}
	}

	versions, err := m.Versions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(versions, []string{"2025.02.0", "2025.03.0"}) {
		t.Errorf("versions = %v", versions)
	}
	if cur, _ := m.Current(context.Background()); cur != "2025.03.0" {
		t.Errorf("current = %q", cur)
	}
}

func TestSave_KeepsCurrentWhenOlderName(t *testing.T) {
	s := newMemStore()
	m := New(s, 1)
	_ = m.Save(context.Background(), "b", []byte("b"))
	if err := m.Save(context.Background(), "a", []byte("a")); err != nil {
		t.Fatal(err)
	}
	versions, _ := m.Versions(context.Background())
	if !slices.Equal(versions, []string{"a"}) {
		t.Errorf("versions = %v, current must survive pruning", versions)
	}
}

func TestSave_StoreError(t *testing.T) {
	s := newMemStore()
	s.setErr = &db.Error{Op: db.OpSet, Err: errors.New("READONLY")}
	err := New(s, 0).Save(context.Background(), "v", []byte("x"))
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpSet {
		t.Errorf("err = %v, want wrapped db error", err)
	}
}
