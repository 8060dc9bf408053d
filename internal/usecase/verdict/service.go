package verdict

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/kailas-cloud/nutrisafe/internal/domain/finding"
	"github.com/kailas-cloud/nutrisafe/internal/domain/profile"
	domverdict "github.com/kailas-cloud/nutrisafe/internal/domain/verdict"
)

// Input is everything a verdict aggregates.
type Input struct {
	Findings   []finding.Finding
	KBVersion  string
	KBChecksum string
	Warnings   []domverdict.Warning
	Unresolved []profile.Element
	Errors     []error
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithIDGenerator overrides verdict id generation.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(b *Builder) { b.newID = gen }
}

// Builder assembles verdicts. Pure aggregation apart from the id and clock.
type Builder struct {
	now   func() time.Time
	newID func() (string, error)
}

// New creates a Builder with nanoid ids and a UTC wall clock.
func New(opts ...Option) *Builder {
	b := &Builder{
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() (string, error) { return gonanoid.New() },
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build aggregates findings into a verdict. Findings keep their order.
// Each low-confidence finding gets a caveat warning.
func (b *Builder) Build(in Input) domverdict.Verdict {
	warnings := append([]domverdict.Warning(nil), in.Warnings...)
	for _, f := range in.Findings {
		if f.LowConfidence() {
			warnings = append(warnings, domverdict.Warning{
				Code:    domverdict.WarnLowConfidence,
				Subject: f.ItemID(),
				Message: fmt.Sprintf("%s is flagged by a rule with limited evidence (grade D or expert consensus)", displayName(f)),
			})
		}
	}
	return domverdict.New(domverdict.Params{
		ID:          b.id(),
		GeneratedAt: b.now(),
		KBVersion:   in.KBVersion,
		KBChecksum:  in.KBChecksum,
		Findings:    in.Findings,
		Warnings:    warnings,
		Unresolved:  in.Unresolved,
		Errors:      in.Errors,
	})
}

// Refuse builds a verdict that answers nothing, e.g. for a stale knowledge base.
func (b *Builder) Refuse(kbVersion string, w domverdict.Warning, err error) domverdict.Verdict {
	return domverdict.New(domverdict.Params{
		ID:          b.id(),
		GeneratedAt: b.now(),
		KBVersion:   kbVersion,
		Warnings:    []domverdict.Warning{w},
		Errors:      []error{err},
		Refused:     true,
	})
}

func (b *Builder) id() string {
	id, err := b.newID()
	if err != nil {
		// crypto/rand failure; the timestamp still identifies the verdict in logs
		return fmt.Sprintf("v-%d", b.now().UnixNano())
	}
	return id
}

func displayName(f finding.Finding) string {
	if f.ItemName() != "" {
		return f.ItemName()
	}
	return f.ItemID()
}
