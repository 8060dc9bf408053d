package kb

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kailas-cloud/nutrisafe/internal/domain"
)

// lease tracks in-flight readers of one snapshot. The holder owns one
// reference while the snapshot is current.
type lease struct {
	snap *Snapshot
	refs atomic.Int64
}

func (l *lease) tryAcquire() bool {
	for {
		n := l.refs.Load()
		if n <= 0 {
			return false
		}
		if l.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// HolderOption configures a Holder.
type HolderOption func(*Holder)

// WithOnRetire sets a hook called once per snapshot after the last lease on
// a replaced snapshot is released. fn must not call Publish.
func WithOnRetire(fn func(*Snapshot)) HolderOption {
	return func(h *Holder) { h.onRetire = fn }
}

// Holder publishes snapshots with a single atomic pointer swap.
// One writer, many readers: readers never block on Publish.
type Holder struct {
	cur atomic.Pointer[lease]

	mu         sync.Mutex // serializes Publish and guards deprecated
	deprecated map[string]struct{}
	onRetire   func(*Snapshot)
}

// NewHolder creates an empty Holder.
func NewHolder(opts ...HolderOption) *Holder {
	h := &Holder{deprecated: make(map[string]struct{})}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Acquire returns the current snapshot and a release func. The snapshot
// stays valid until release is called; release is idempotent.
func (h *Holder) Acquire() (*Snapshot, func(), error) {
	for {
		l := h.cur.Load()
		if l == nil {
			return nil, func() {}, domain.ErrKnowledgeBaseUnavailable
		}
		if l.tryAcquire() {
			var once sync.Once
			return l.snap, func() { once.Do(func() { h.release(l) }) }, nil
		}
		// Lost a race with Publish retiring l; the pointer has already moved on.
	}
}

// Current returns the current snapshot without a lease, or nil.
// For metadata reads only.
func (h *Holder) Current() *Snapshot {
	if l := h.cur.Load(); l != nil {
		return l.snap
	}
	return nil
}

// Publish makes s current. Publishing a deprecated version, or an existing
// version with different content, is refused. Republishing the current
// checksum is a no-op.
func (h *Holder) Publish(s *Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.deprecated[s.Version()]; ok {
		return fmt.Errorf("%w: version %s is deprecated", domain.ErrKBRollback, s.Version())
	}
	old := h.cur.Load()
	if old != nil && old.snap.Version() == s.Version() {
		if old.snap.Checksum() == s.Checksum() {
			return nil
		}
		return fmt.Errorf("%w: version %s already published with checksum %s",
			domain.ErrKBVersionConflict, s.Version(), old.snap.Checksum())
	}

	next := &lease{snap: s}
	next.refs.Store(1)
	h.cur.Store(next)

	for _, v := range s.Supersedes() {
		h.deprecated[v] = struct{}{}
	}
	if old != nil {
		h.deprecated[old.snap.Version()] = struct{}{}
		h.release(old)
	}
	return nil
}

// Deprecated reports whether a version was replaced or superseded.
func (h *Holder) Deprecated(version string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.deprecated[version]
	return ok
}

func (h *Holder) release(l *lease) {
	if l.refs.Add(-1) == 0 && h.onRetire != nil {
		h.onRetire(l.snap)
	}
}
