package fragments

import (
	"go.uber.org/zap"

	"github.com/wbrown/janus-ldf/ldf/annotations"
)

// DefaultCacheSize is the number of fragments a client keeps.
const DefaultCacheSize = 100

type options struct {
	logger      *zap.Logger
	fetcher     Fetcher
	cacheSize   int
	metrics     *Metrics
	annotations *annotations.Collector
	accept      string
}

// Option configures a client.
type Option func(*options)

// WithLogger sets the logger for warnings about failed pages.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithFetcher replaces the HTTP fetcher, for instance to serve fragments
// from memory in tests.
func WithFetcher(f Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithCacheSize sets the number of cached fragments.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithMetrics records requests and cache use on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithAnnotations emits fragment events to c.
func WithAnnotations(c *annotations.Collector) Option {
	return func(o *options) { o.annotations = c }
}

// WithAccept overrides the Accept header sent for fragment pages.
func WithAccept(accept string) Option {
	return func(o *options) { o.accept = accept }
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:    zap.NewNop(),
		cacheSize: DefaultCacheSize,
		accept:    DefaultAccept,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.cacheSize <= 0 {
		o.cacheSize = DefaultCacheSize
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	if o.fetcher == nil {
		o.fetcher = NewHTTPFetcher(FetcherConfig{Logger: o.logger, Metrics: o.metrics})
	}
	return o
}
