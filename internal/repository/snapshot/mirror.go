package snapshot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/nutrisafe/internal/db"
	"github.com/kailas-cloud/nutrisafe/internal/domain"
	"github.com/kailas-cloud/nutrisafe/internal/kb"
)

const (
	currentKey   = "nutrisafe:kb:current"
	bundlePrefix = "nutrisafe:kb:bundle:"

	// DefaultKeep is how many mirrored bundles survive a Save.
	DefaultKeep = 3
)

// store is the consumer interface for the mirror (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Mirror keeps the last published bundles in Redis so that a restart can
// serve safety checks when the primary source is down.
type Mirror struct {
	store store
	keep  int
}

// New creates a mirror that retains keep bundles (DefaultKeep when <= 0).
func New(s store, keep int) *Mirror {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Mirror{store: s, keep: keep}
}

func bundleKey(version string) string { return bundlePrefix + version }

// Name identifies the mirror when it acts as a source.
func (m *Mirror) Name() string { return "redis_mirror" }

// Save stores the encoded bundle, points current at it and prunes old
// versions. The bundle is written before the pointer so current never names
// a missing bundle.
func (m *Mirror) Save(ctx context.Context, version string, data []byte) error {
	if err := m.store.Set(ctx, bundleKey(version), data); err != nil {
		return fmt.Errorf("set bundle %s: %w", version, err)
	}
	if err := m.store.Set(ctx, currentKey, []byte(version)); err != nil {
		return fmt.Errorf("set current: %w", err)
	}
	return m.prune(ctx, version)
}

// Fetch returns the bundle current points at.
func (m *Mirror) Fetch(ctx context.Context) ([]byte, kb.Format, error) {
	version, err := m.Current(ctx)
	if err != nil {
		return nil, "", err
	}
	data, err := m.store.Get(ctx, bundleKey(version))
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, "", fmt.Errorf("mirrored bundle %s: %w", version, domain.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("get bundle %s: %w", version, err)
	}
	return data, kb.FormatJSON, nil
}

// Current returns the version of the last mirrored bundle.
func (m *Mirror) Current(ctx context.Context) (string, error) {
	v, err := m.store.Get(ctx, currentKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		return "", fmt.Errorf("mirrored knowledge base: %w", domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get current: %w", err)
	}
	return string(v), nil
}

// Versions lists mirrored bundle versions in ascending order.
func (m *Mirror) Versions(ctx context.Context) ([]string, error) {
	keys, err := m.store.Scan(ctx, bundleKey("*"))
	if err != nil {
		return nil, fmt.Errorf("scan bundles: %w", err)
	}
	versions := make([]string, 0, len(keys))
	for _, k := range keys {
		versions = append(versions, strings.TrimPrefix(k, bundlePrefix))
	}
	slices.Sort(versions)
	return versions, nil
}

func (m *Mirror) prune(ctx context.Context, current string) error {
	versions, err := m.Versions(ctx)
	if err != nil {
		return err
	}
	versions = slices.DeleteFunc(versions, func(v string) bool { return v == current })
	// current counts towards keep
	excess := len(versions) - (m.keep - 1)
	var errs []error
	for _, v := range versions[:max(excess, 0)] {
		if err := m.store.Del(ctx, bundleKey(v)); err != nil {
			errs = append(errs, fmt.Errorf("del bundle %s: %w", v, err))
		}
	}
	return errors.Join(errs...)
}
