package nutrisafe

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Engine.
type Option interface {
	apply(*engineConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*engineConfig)

func (f optionFunc) apply(c *engineConfig) { f(c) }

type engineConfig struct {
	source      Source
	parallelism int
	logger      *zap.Logger
	now         func() time.Time
}

// WithBundleFile loads the knowledge base from a YAML or JSON file.
// Reload re-reads the file.
func WithBundleFile(path string) Option {
	return optionFunc(func(c *engineConfig) {
		c.source = fileSource(path)
	})
}

// WithBundle loads the knowledge base from an in-memory bundle.
func WithBundle(data []byte, format Format) Option {
	return optionFunc(func(c *engineConfig) {
		c.source = &bytesSource{data: data, format: format}
	})
}

// WithSource loads the knowledge base from a custom source.
func WithSource(s Source) Option {
	return optionFunc(func(c *engineConfig) {
		c.source = s
	})
}

// WithParallelism bounds how many items of one query are evaluated at once.
func WithParallelism(n int) Option {
	return optionFunc(func(c *engineConfig) {
		c.parallelism = n
	})
}

// WithLogger enables structured logging for engine operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *engineConfig) {
		c.logger = l
	})
}

// WithClock overrides the time source used for verdict timestamps and
// knowledge base expiry checks.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(c *engineConfig) {
		c.now = now
	})
}
