package hxembed

import (
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pthm/hxembed/lib/aem"
)

const tracerName = "github.com/pthm/hxembed"

// Option configures an Embed or a Registry.
type Option func(*options)

type options struct {
	fetcher      Fetcher
	resolver     Resolver
	behaviors    Behaviors
	decorator    Decorator
	builder      BlockBuilder
	sanitizer    Sanitizer
	logger       *zap.Logger
	metrics      *Metrics
	tracer       trace.Tracer
	baseURL      *url.URL
	concurrency  int
	styleTimeout time.Duration
}

func newOptions(opts []Option) *options {
	o := &options{
		decorator:    aem.Decorator{},
		builder:      aem.Decorator{},
		logger:       zap.NewNop(),
		tracer:       otel.Tracer(tracerName),
		concurrency:  8,
		styleTimeout: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.fetcher == nil {
		o.fetcher = NewHTTPFetcher(FetchConfig{})
	}
	if o.builder == nil {
		o.builder = aem.Decorator{}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}

	remote := o.resolver
	if remote == nil {
		remote = ModuleResolver{Fetcher: o.fetcher}
	}
	if len(o.behaviors) > 0 {
		o.resolver = ChainResolver{o.behaviors, remote}
	} else {
		o.resolver = remote
	}
	return o
}

// WithFetcher replaces the HTTP fetcher used for every remote resource.
func WithFetcher(f Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithResolver replaces the remote module resolver. Behaviors registered
// with WithBehavior still take precedence.
func WithResolver(r Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithBehavior registers a Go behavior for a block identifier.
func WithBehavior(identifier string, b BlockBehavior) Option {
	return func(o *options) {
		if o.behaviors == nil {
			o.behaviors = make(Behaviors)
		}
		o.behaviors[identifier] = b
	}
}

// WithDecorator sets the page decoration entry point. nil disables
// decoration, like a remote site whose scripts export no decorateMain.
func WithDecorator(d Decorator) Option {
	return func(o *options) {
		o.decorator = d
	}
}

// WithBlockBuilder sets the helpers used to synthesize header and footer
// blocks.
func WithBlockBuilder(b BlockBuilder) Option {
	return func(o *options) {
		o.builder = b
	}
}

// WithSanitizer cleans fetched markup before it is parsed.
func WithSanitizer(s Sanitizer) Option {
	return func(o *options) {
		o.sanitizer = s
	}
}

// WithLogger sets the logger diagnostics are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics records outcomes into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracerProvider sets the provider spans are created from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithBaseURL sets the URL relative target locations resolve against,
// typically the host page URL.
func WithBaseURL(base *url.URL) Option {
	return func(o *options) {
		o.baseURL = base
	}
}

// WithConcurrency bounds how many blocks load at the same time.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithStyleTimeout bounds how long a block waits for its stylesheet before
// its behavior runs anyway.
func WithStyleTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.styleTimeout = d
		}
	}
}
