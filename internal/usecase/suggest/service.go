package suggest

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nutrisafe/internal/domain"
	"github.com/kailas-cloud/nutrisafe/internal/domain/canonical"
	"github.com/kailas-cloud/nutrisafe/internal/kb"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/normalize"
)

// Defaults for Suggest.
const (
	DefaultLimit    = 5
	MaxLimit        = 20
	DefaultMinScore = 0.5
)

// Candidate is a catalog entry that may be what the caller meant.
// Candidates need manual confirmation; they are never applied automatically.
type Candidate struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Result answers a suggestion request.
type Result struct {
	Resolution normalize.Resolution
	KBVersion  string
	Candidates []Candidate
}

type indexKey struct {
	checksum string
	kind     canonical.Kind
}

type catalogIndex struct {
	names   []kb.Synonym
	vectors [][]float32
}

// Service ranks catalog names by embedding similarity for names the
// normalizer could not resolve.
type Service struct {
	kb       SnapshotSource
	embed    Embedder
	minScore float64
	logger   *zap.Logger

	mu      sync.Mutex
	indexes map[indexKey]*catalogIndex
}

// New creates a suggestion service. embed may be nil, in which case
// Suggest only reports the normalization result.
func New(src SnapshotSource, embed Embedder, minScore float64, logger *zap.Logger) *Service {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	return &Service{
		kb:       src,
		embed:    embed,
		minScore: minScore,
		logger:   logger,
		indexes:  make(map[indexKey]*catalogIndex),
	}
}

// Suggest normalizes raw and, when it does not resolve, returns up to limit
// catalog candidates of the same kind ranked by similarity.
func (s *Service) Suggest(ctx context.Context, raw string, kind canonical.Kind, limit int) (Result, error) {
	if !kind.IsValid() {
		return Result{}, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidQuery, kind)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	snap, release, err := s.kb.Acquire()
	if err != nil {
		return Result{}, err
	}
	defer release()

	res := Result{
		Resolution: normalize.New(snap).Normalize(raw, kind),
		KBVersion:  snap.Version(),
	}
	if res.Resolution.Resolved() || canonical.Key(raw) == "" {
		return res, nil
	}
	if s.embed == nil {
		return res, domain.ErrEmbeddingNotConfigured
	}

	idx, err := s.index(ctx, snap, kind)
	if err != nil {
		return Result{}, err
	}
	q, err := s.embed.Embed(ctx, canonical.Key(raw))
	if err != nil {
		return Result{}, fmt.Errorf("embed %q: %w", raw, err)
	}

	best := make(map[string]Candidate)
	for i, name := range idx.names {
		score := cosine(q.Embedding, idx.vectors[i])
		if score < s.minScore {
			continue
		}
		if prev, ok := best[name.ID]; ok && prev.Score >= score {
			continue
		}
		best[name.ID] = Candidate{ID: name.ID, Name: name.Name, Score: score}
	}

	for _, c := range best {
		res.Candidates = append(res.Candidates, c)
	}
	slices.SortFunc(res.Candidates, func(a, b Candidate) int {
		return cmp.Or(cmp.Compare(b.Score, a.Score), cmp.Compare(a.ID, b.ID))
	})
	if len(res.Candidates) > limit {
		res.Candidates = res.Candidates[:limit]
	}

	s.logger.Debug("Suggestions computed",
		zap.String("kind", string(kind)),
		zap.Int("catalog_names", len(idx.names)),
		zap.Int("candidates", len(res.Candidates)),
	)
	return res, nil
}

// Name is one raw name to normalize.
type Name struct {
	Raw  string
	Kind canonical.Kind
}

// Normalize resolves names against a single snapshot. It never suggests.
func (s *Service) Normalize(names []Name) ([]normalize.Resolution, string, error) {
	for _, n := range names {
		if !n.Kind.IsValid() {
			return nil, "", fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidQuery, n.Kind)
		}
	}
	snap, release, err := s.kb.Acquire()
	if err != nil {
		return nil, "", err
	}
	defer release()

	norm := normalize.New(snap)
	out := make([]normalize.Resolution, len(names))
	for i, n := range names {
		out[i] = norm.Normalize(n.Raw, n.Kind)
	}
	return out, snap.Version(), nil
}

// index embeds every catalog name of kind once per snapshot checksum.
// Indexes of older snapshots are dropped when a new one is built.
func (s *Service) index(ctx context.Context, snap *kb.Snapshot, kind canonical.Kind) (*catalogIndex, error) {
	key := indexKey{checksum: snap.Checksum(), kind: kind}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.indexes[key]; ok {
		return idx, nil
	}

	names := snap.Synonyms(kind)
	texts := make([]string, len(names))
	for i, n := range names {
		texts[i] = n.Name
	}
	res, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %s catalog: %w", kind, err)
	}
	if len(res.Embeddings) != len(names) {
		return nil, fmt.Errorf("got %d embeddings for %d catalog names: %w",
			len(res.Embeddings), len(names), domain.ErrEmbeddingProviderError)
	}

	for k := range s.indexes {
		if k.checksum != key.checksum {
			delete(s.indexes, k)
		}
	}
	idx := &catalogIndex{names: names, vectors: res.Embeddings}
	s.indexes[key] = idx
	return idx, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
