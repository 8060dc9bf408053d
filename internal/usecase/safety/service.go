package safety

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/nutrisafe/internal/domain"
	"github.com/kailas-cloud/nutrisafe/internal/domain/finding"
	"github.com/kailas-cloud/nutrisafe/internal/domain/item"
	"github.com/kailas-cloud/nutrisafe/internal/domain/profile"
	"github.com/kailas-cloud/nutrisafe/internal/domain/query"
	domverdict "github.com/kailas-cloud/nutrisafe/internal/domain/verdict"
	"github.com/kailas-cloud/nutrisafe/internal/kb"
	"github.com/kailas-cloud/nutrisafe/internal/metrics"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/normalize"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/verdict"
)

// Option configures a Service.
type Option func(*Service)

// WithParallelism bounds how many items are evaluated at once.
func WithParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service runs safety checks against the published knowledge base.
type Service struct {
	kb          SnapshotSource
	matcher     Matcher
	resolver    Resolver
	builder     Builder
	logger      *zap.Logger
	parallelism int
	now         func() time.Time
}

// New creates a safety check service.
func New(
	src SnapshotSource, matcher Matcher, resolver Resolver, builder Builder,
	logger *zap.Logger, opts ...Option,
) *Service {
	s := &Service{
		kb:          src,
		matcher:     matcher,
		resolver:    resolver,
		builder:     builder,
		logger:      logger,
		parallelism: runtime.GOMAXPROCS(0),
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Check evaluates every item of q against the profile. It never fails:
// every error condition is reported in the verdict status, warnings and Err.
func (s *Service) Check(ctx context.Context, q query.Query) domverdict.Verdict {
	start := time.Now()
	v := s.check(ctx, q)
	s.observe(v, len(q.Items), time.Since(start))
	return v
}

func (s *Service) check(ctx context.Context, q query.Query) domverdict.Verdict {
	if err := q.Validate(); err != nil {
		return s.builder.Refuse(q.KBVersion, domverdict.Warning{
			Code:    domverdict.WarnInvalidQuery,
			Message: err.Error(),
		}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err))
	}

	snap, release, err := s.kb.Acquire()
	if err != nil {
		return s.builder.Refuse(q.KBVersion, domverdict.Warning{
			Code:    domverdict.WarnKBUnavailable,
			Message: "no knowledge base is loaded",
		}, err)
	}
	defer release()

	if refused, ok := s.checkVersion(snap, q.KBVersion); ok {
		return refused
	}

	norm := normalize.New(snap)
	var (
		warnings   []domverdict.Warning
		errs       []error
		unresolved []profile.Element
	)

	np, failures := norm.Profile(q.Profile)
	for _, f := range failures {
		metrics.NormalizationFailuresTotal.WithLabelValues(string(f.Kind)).Inc()
		warnings = append(warnings, domverdict.Warning{
			Code:    domverdict.WarnNormalizationFailure,
			Subject: f.Raw,
			Message: fmt.Sprintf("%s %q is not in the knowledge base; rules for it were not checked", f.Kind, f.Raw),
		})
		errs = append(errs, f.Err())
		unresolved = append(unresolved, profile.Element{Kind: f.Kind, Raw: f.Raw})
	}

	if missing := q.Profile.Missing(); len(missing) > 0 {
		for _, field := range missing {
			warnings = append(warnings, domverdict.Warning{
				Code:    domverdict.WarnIncompleteProfile,
				Subject: field,
				Message: fmt.Sprintf("profile has no %s section; rules depending on it were not checked", field),
			})
		}
		errs = append(errs, domain.NewIncompleteProfile(missing))
	}

	findings := s.evaluate(ctx, norm, np, q.Items, snap)
	for _, f := range findings {
		for _, raw := range f.Unresolved() {
			warnings = append(warnings, domverdict.Warning{
				Code:    domverdict.WarnUnresolvedIngredient,
				Subject: f.ItemID(),
				Message: fmt.Sprintf("ingredient %q of %s is not in the knowledge base", raw, f.ItemID()),
			})
		}
		if f.Status() == finding.StatusUnableToVerify {
			warnings = append(warnings, domverdict.Warning{
				Code:    domverdict.WarnEngineInternal,
				Subject: f.ItemID(),
				Message: f.Reason(),
			})
			errs = append(errs, domain.NewEngineInternal(f.ItemID(), f.Reason()))
		}
	}

	return s.builder.Build(verdict.Input{
		Findings:   findings,
		KBVersion:  snap.Version(),
		KBChecksum: snap.Checksum(),
		Warnings:   warnings,
		Unresolved: unresolved,
		Errors:     errs,
	})
}

// checkVersion refuses expired snapshots and pins that do not match the
// current version.
func (s *Service) checkVersion(snap *kb.Snapshot, pin string) (domverdict.Verdict, bool) {
	switch {
	case pin != "" && pin != snap.Version() && s.kb.Deprecated(pin):
		return s.builder.Refuse(pin, domverdict.Warning{
			Code:    domverdict.WarnStaleKnowledgeBase,
			Subject: pin,
			Message: fmt.Sprintf("knowledge base %s has been replaced by %s", pin, snap.Version()),
		}, domain.NewStaleKnowledgeBase(pin, "superseded by "+snap.Version())), true
	case pin != "" && pin != snap.Version():
		return s.builder.Refuse(pin, domverdict.Warning{
			Code:    domverdict.WarnKBUnavailable,
			Subject: pin,
			Message: fmt.Sprintf("knowledge base %s is not loaded", pin),
		}, fmt.Errorf("%w: %s", domain.ErrKBVersionUnavailable, pin)), true
	case snap.Expired(s.now()):
		return s.builder.Refuse(snap.Version(), domverdict.Warning{
			Code:    domverdict.WarnStaleKnowledgeBase,
			Subject: snap.Version(),
			Message: fmt.Sprintf("knowledge base %s expired at %s", snap.Version(), snap.ExpiresAt().Format(time.RFC3339)),
		}, domain.NewStaleKnowledgeBase(snap.Version(), "expired")), true
	}
	return domverdict.Verdict{}, false
}

// evaluate runs normalize, match and resolve for every item concurrently.
// Findings keep the input order.
func (s *Service) evaluate(
	ctx context.Context, norm *normalize.Normalizer, np profile.Normalized,
	items []item.Item, snap *kb.Snapshot,
) []finding.Finding {
	findings := make([]finding.Finding, len(items))

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(s.parallelism)
	for i, it := range items {
		eg.Go(func() error {
			findings[i] = s.evaluateItem(ectx, norm, np, it, snap)
			return nil
		})
	}
	_ = eg.Wait() // items never return errors; failures are findings

	return findings
}

// evaluateItem fails closed: a panic or a cancelled context yields an
// unable_to_verify finding instead of a missing one.
func (s *Service) evaluateItem(
	ctx context.Context, norm *normalize.Normalizer, np profile.Normalized,
	it item.Item, snap *kb.Snapshot,
) (f finding.Finding) {
	defer func() {
		if r := recover(); r != nil {
			metrics.EngineInternalErrorsTotal.Inc()
			s.logger.Error("Item evaluation panicked",
				zap.String("item_id", it.ID),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			f = finding.UnableToVerify(it.ID, it.Name, "internal error while evaluating item")
		}
	}()

	if err := ctx.Err(); err != nil {
		return finding.UnableToVerify(it.ID, it.Name, fmt.Sprintf("evaluation interrupted: %v", err))
	}

	ni := norm.Item(it)
	return s.resolver.Resolve(ni, s.matcher.Match(np, ni, snap))
}

func (s *Service) observe(v domverdict.Verdict, items int, d time.Duration) {
	metrics.SafetyChecksTotal.WithLabelValues(string(v.Status())).Inc()
	metrics.SafetyCheckDuration.Observe(d.Seconds())
	for _, f := range v.Findings() {
		metrics.FindingsTotal.WithLabelValues(string(f.Severity())).Inc()
	}

	fields := []zap.Field{
		zap.String("verdict_id", v.ID()),
		zap.String("status", string(v.Status())),
		zap.String("overall_risk", string(v.OverallRisk())),
		zap.String("kb_version", v.KBVersion()),
		zap.Int("items", items),
		zap.Int("warnings", len(v.Warnings())),
		zap.Duration("duration", d),
	}
	if err := v.Err(); err != nil {
		fields = append(fields, zap.Error(err))
	}
	if v.Status() == domverdict.StatusComplete {
		s.logger.Info("Safety check", fields...)
		return
	}
	s.logger.Warn("Safety check", fields...)
}
