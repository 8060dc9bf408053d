package nutrisafe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nutrisafe/internal/kb"
	"github.com/kailas-cloud/nutrisafe/internal/repository/kbsource"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/kbload"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/match"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/resolve"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/safety"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/suggest"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/verdict"
)

// Source fetches a raw knowledge base bundle.
type Source = kbload.Source

// Engine is the nutrisafe SDK entry point. It is safe for concurrent use;
// a reload never affects queries already in flight.
type Engine struct {
	holder *kb.Holder
	loader *kbload.Service
	safety *safety.Service
	names  *suggest.Service
}

// New creates an Engine and loads the knowledge base.
func New(opts ...Option) (*Engine, error) {
	cfg := &engineConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.source == nil {
		return nil, errors.New("nutrisafe: knowledge base source required (use WithBundleFile or WithBundle)")
	}
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var builderOpts []verdict.Option
	safetyOpts := []safety.Option{safety.WithParallelism(cfg.parallelism)}
	if cfg.now != nil {
		builderOpts = append(builderOpts, verdict.WithClock(cfg.now))
		safetyOpts = append(safetyOpts, safety.WithClock(cfg.now))
	}

	holder := kb.NewHolder()
	e := &Engine{
		holder: holder,
		loader: kbload.New(cfg.source, holder, nil, logger),
		safety: safety.New(holder, match.New(), resolve.New(), verdict.New(builderOpts...), logger, safetyOpts...),
		names:  suggest.New(holder, nil, 0, logger),
	}

	if _, err := e.loader.Bootstrap(context.Background()); err != nil {
		return nil, fmt.Errorf("nutrisafe: load knowledge base: %w", err)
	}
	return e, nil
}

// Check evaluates every item of q against its profile. It never fails:
// refusals and unverifiable results are reported in the verdict.
func (e *Engine) Check(ctx context.Context, q Query) Verdict {
	return e.safety.Check(ctx, q)
}

// Normalize maps raw names to canonical ids using the current knowledge base.
// It also returns the knowledge base version used.
func (e *Engine) Normalize(names ...Name) ([]Resolution, string, error) {
	return e.names.Normalize(names)
}

// Reload re-fetches the source and publishes it when its content changed.
// A failed reload keeps the current knowledge base.
func (e *Engine) Reload(ctx context.Context) (ReloadResult, error) {
	return e.loader.Reload(ctx)
}

// Watch reloads every interval until ctx is done.
func (e *Engine) Watch(ctx context.Context, interval time.Duration) {
	e.loader.Run(ctx, interval)
}

// KBVersion returns the version of the published knowledge base.
func (e *Engine) KBVersion() string {
	if s := e.holder.Current(); s != nil {
		return s.Version()
	}
	return ""
}

// fileSource reads a bundle file; the format follows the extension.
func fileSource(path string) Source { return kbsource.NewFile(path) }

// bytesSource serves an in-memory bundle.
type bytesSource struct {
	data   []byte
	format Format
}

func (b *bytesSource) Name() string { return "inline" }

func (b *bytesSource) Fetch(_ context.Context) ([]byte, Format, error) {
	return b.data, b.format, nil
}
