package kbload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nutrisafe/internal/domain"
	"github.com/kailas-cloud/nutrisafe/internal/kb"
	"github.com/kailas-cloud/nutrisafe/internal/metrics"
)

// Outcome describes what a reload did.
type Outcome string

// Reload outcomes.
const (
	OutcomePublished Outcome = "published"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeRejected  Outcome = "rejected"
	OutcomeError     Outcome = "error"
)

// Result reports a reload attempt.
type Result struct {
	Source   string  `json:"source"`
	Version  string  `json:"version,omitempty"`
	Checksum string  `json:"checksum,omitempty"`
	Outcome  Outcome `json:"outcome"`
}

// Service loads bundles from a source and publishes them as snapshots.
type Service struct {
	src     Source
	mirror  Mirror
	pub     Publisher
	logger  *zap.Logger
	trigger chan struct{}
}

// New creates a loader. mirror can be nil.
func New(src Source, pub Publisher, mirror Mirror, logger *zap.Logger) *Service {
	return &Service{
		src:     src,
		mirror:  mirror,
		pub:     pub,
		logger:  logger,
		trigger: make(chan struct{}, 1),
	}
}

// Reload fetches the primary source and publishes it when it differs from
// the live snapshot. A failed reload leaves the live snapshot untouched.
func (s *Service) Reload(ctx context.Context) (Result, error) {
	return s.load(ctx, s.src, s.mirror)
}

// Bootstrap performs the initial load. When the primary source fails and a
// mirror is configured, the last mirrored bundle is published instead.
func (s *Service) Bootstrap(ctx context.Context) (Result, error) {
	res, err := s.Reload(ctx)
	if err == nil || s.mirror == nil {
		return res, err
	}
	s.logger.Warn("Primary knowledge base source failed, falling back to mirror",
		zap.String("source", s.src.Name()),
		zap.Error(err),
	)
	fallback, ferr := s.load(ctx, s.mirror, nil)
	if ferr != nil {
		return fallback, fmt.Errorf("primary: %w; mirror: %w", err, ferr)
	}
	return fallback, nil
}

// Trigger requests an asynchronous reload. Requests arriving while one is
// pending are coalesced.
func (s *Service) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run reloads on every tick of interval and on Trigger until ctx is done.
// interval <= 0 disables periodic refresh.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
		case <-s.trigger:
		}
		if _, err := s.Reload(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("Knowledge base reload failed", zap.Error(err))
		}
	}
}

func (s *Service) load(ctx context.Context, src Source, mirror Mirror) (Result, error) {
	res, err := s.publish(ctx, src, mirror, Result{Source: src.Name()})
	metrics.KBReloadsTotal.WithLabelValues(res.Source, string(res.Outcome)).Inc()

	fields := []zap.Field{
		zap.String("source", res.Source),
		zap.String("outcome", string(res.Outcome)),
		zap.String("version", res.Version),
		zap.String("checksum", res.Checksum),
	}
	switch res.Outcome {
	case OutcomePublished:
		s.logger.Info("Knowledge base published", fields...)
	case OutcomeUnchanged:
		s.logger.Debug("Knowledge base unchanged", fields...)
	default:
		s.logger.Warn("Knowledge base reload failed", append(fields, zap.Error(err))...)
	}
	return res, err
}

func (s *Service) publish(ctx context.Context, src Source, mirror Mirror, res Result) (Result, error) {
	data, format, err := src.Fetch(ctx)
	if err != nil {
		res.Outcome = OutcomeError
		return res, fmt.Errorf("fetch from %s: %w", src.Name(), err)
	}

	b, err := kb.Decode(data, format)
	if err != nil {
		res.Outcome = OutcomeRejected
		return res, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
	}
	res.Version = b.Version
	if res.Checksum, err = b.Checksum(); err != nil {
		res.Outcome = OutcomeRejected
		return res, err
	}
	if cur := s.pub.Current(); cur != nil && cur.Checksum() == res.Checksum {
		res.Outcome = OutcomeUnchanged
		return res, nil
	}

	snap, err := kb.Build(b)
	if err != nil {
		res.Outcome = OutcomeRejected
		return res, err
	}
	if err := s.pub.Publish(snap); err != nil {
		res.Outcome = OutcomeRejected
		if !errors.Is(err, domain.ErrKBRollback) && !errors.Is(err, domain.ErrKBVersionConflict) {
			res.Outcome = OutcomeError
		}
		return res, err
	}
	res.Outcome = OutcomePublished
	observe(snap)

	if mirror != nil {
		encoded, err := b.Encode()
		if err == nil {
			err = mirror.Save(ctx, b.Version, encoded)
		}
		if err != nil {
			s.logger.Warn("Failed to mirror knowledge base",
				zap.String("version", b.Version),
				zap.Error(err),
			)
		}
	}
	return res, nil
}

func observe(snap *kb.Snapshot) {
	metrics.KBInfo.Reset()
	metrics.KBInfo.WithLabelValues(snap.Version(), snap.Checksum()).Set(1)
	metrics.KBRecords.Reset()
	for kind, n := range snap.Stats().ByKind {
		metrics.KBRecords.WithLabelValues(kind).Set(float64(n))
	}
}

// OnRetire is a kb.Holder retire hook that counts and logs released snapshots.
func OnRetire(logger *zap.Logger) func(*kb.Snapshot) {
	return func(snap *kb.Snapshot) {
		metrics.KBSnapshotsRetiredTotal.Inc()
		logger.Info("Knowledge base snapshot retired",
			zap.String("version", snap.Version()),
			zap.String("checksum", snap.Checksum()),
		)
	}
}
