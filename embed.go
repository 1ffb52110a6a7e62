package hxembed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pthm/hxembed/lib/dom"
)

// TagName is the host element an embed renders as.
const TagName = "aem-embed"

// Embed is one embed component instance: it owns an isolated scope and
// composes a remote plain-content document into it exactly once.
//
// The zero value is not usable; create instances with New.
type Embed struct {
	id    string
	attrs Attributes
	opts  *options
	log   *zap.Logger
	scope *Scope

	state atomic.Int32
	done  chan struct{}

	mu       sync.Mutex
	req      EmbedRequest
	origin   Origin
	regions  []*Region
	err      error
	assetErr error
	cancel   context.CancelFunc
	detached bool
}

// New creates an embed from host element attributes. Nothing is fetched
// until Attach.
func New(attrs Attributes, opts ...Option) *Embed {
	o := newOptions(opts)
	id := uuid.NewString()

	copied := make(Attributes, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}

	return &Embed{
		id:    id,
		attrs: copied,
		opts:  o,
		log:   o.logger.With(zap.String("instance", id), zap.String("target", copied[AttrTarget])),
		scope: newScope(),
		done:  make(chan struct{}),
	}
}

// NewFromRequest creates an embed from an already validated request.
func NewFromRequest(req EmbedRequest, opts ...Option) *Embed {
	return New(req.Attributes(), opts...)
}

// Attach is the lifecycle hook invoked when the component becomes part of
// a live document. The first call composes the embed and blocks until it
// is Ready or Failed; every later call is a no-op returning nil, whatever
// the state.
//
// Attach never panics. The returned error is also reported to the logger,
// and is one of the configuration, fetch or unexpected errors; block asset
// failures are reported through AssetErr instead.
func (e *Embed) Attach(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(StateUninitialized), int32(StateComposing)) {
		return nil
	}
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	e.cancel = cancel
	detached := e.detached
	e.mu.Unlock()

	ctx, span := e.opts.tracer.Start(ctx, "hxembed.attach",
		trace.WithAttributes(attribute.String("embed.id", e.id), attribute.String("embed.target", e.attrs[AttrTarget])))
	defer span.End()

	var err error
	if detached {
		err = ErrDetached
	} else {
		err = e.run(ctx)
	}

	final := StateReady
	if err != nil {
		final = StateFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, "composition failed")
		e.report(err)
	}

	e.mu.Lock()
	e.err = err
	mode := e.req.Mode
	e.mu.Unlock()

	e.state.Store(int32(final))
	close(e.done)
	e.opts.metrics.composition(mode, final, time.Since(start))

	if err == nil {
		e.log.Debug("Embed ready", zap.Stringer("mode", mode), zap.Duration("elapsed", time.Since(start)))
	}
	return err
}

// run performs the composition. Panics are turned into ErrUnexpected.
func (e *Embed) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnexpected, r)
			e.log.Error("Embed composition panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	req, err := requestFromAttributes(e.attrs)
	if err != nil {
		return err
	}
	plainURL, origin, err := PlainURL(req.TargetURL, e.opts.baseURL)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.req = req
	e.origin = origin
	e.mu.Unlock()

	body, err := e.opts.fetcher.Fetch(ctx, plainURL)
	if err != nil {
		if ctx.Err() != nil {
			return ErrDetached
		}
		if !errors.Is(err, ErrFetch) {
			err = fmt.Errorf("%w: %w", ErrFetch, err)
		}
		return fmt.Errorf("plain content %s: %w", plainURL, err)
	}
	if ctx.Err() != nil {
		return ErrDetached
	}

	stylesSettled := e.loadGlobalStyles(ctx, origin)
	defer func() { <-stylesSettled }()

	markup := normalize(string(body), origin, e.opts.sanitizer)

	c := &composer{
		opts:   e.opts,
		log:    e.log,
		scope:  e.scope,
		origin: origin,
		enh:    &enhancer{opts: e.opts, log: e.log},
	}
	res, err := c.compose(ctx, req.Mode, markup)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.regions = res.regions
	e.assetErr = res.assetErr
	e.mu.Unlock()
	return nil
}

// loadGlobalStyles attaches the remote site's global stylesheet and reveals
// the scope once it settles, loaded or not. The returned channel closes
// when that happened.
func (e *Embed) loadGlobalStyles(ctx context.Context, origin Origin) <-chan struct{} {
	href := origin.GlobalStylesURL()
	e.scope.addStylesheet(href)

	settled := make(chan struct{})
	go func() {
		defer close(settled)

		sctx, cancel := context.WithTimeout(ctx, e.opts.styleTimeout)
		defer cancel()
		if _, err := e.opts.fetcher.Fetch(sctx, href); err != nil {
			e.log.Debug("Global stylesheet did not load", zap.String("href", href), zap.Error(err))
		}
		if ctx.Err() == nil {
			e.scope.reveal()
		}
	}()
	return settled
}

func (e *Embed) report(err error) {
	switch {
	case errors.Is(err, ErrDetached):
		e.log.Debug("Embed detached before composition finished")
	case IsConfigError(err):
		e.log.Error("Embed configuration error", zap.Error(err))
	case IsFetchError(err):
		e.log.Error("Unable to fetch embed content", zap.Error(err))
	default:
		e.log.Error("Embed composition failed", zap.Error(err))
	}
}

// Detach tears the scope down. In-flight fetches finish but their results
// are discarded; no stage mutates the scope after Detach returns.
func (e *Embed) Detach() {
	e.mu.Lock()
	e.detached = true
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.scope.destroy()
}

// ID is the instance identifier used in logs and in the rendered host
// element.
func (e *Embed) ID() string {
	return e.id
}

// State returns the current composition state.
func (e *Embed) State() State {
	return State(e.state.Load())
}

// Done is closed once the embed is Ready or Failed.
func (e *Embed) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the embed is Ready or Failed, or ctx is done. It
// returns the composition error, if any.
func (e *Embed) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		return e.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the error that failed the composition.
func (e *Embed) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// AssetErr returns the combined block failures of a Ready embed. Use
// multierr.Errors to split it.
func (e *Embed) AssetErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.assetErr
}

// Request returns the validated request; zero before Attach.
func (e *Embed) Request() EmbedRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.req
}

// Origin returns the resolved remote origin; zero before Attach.
func (e *Embed) Origin() Origin {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.origin
}

// Scope returns the embed's isolated scope.
func (e *Embed) Scope() *Scope {
	return e.scope
}

// Regions returns a snapshot of the composed regions, in discovery order,
// with a synthesized header or footer container last.
func (e *Embed) Regions() []Region {
	e.mu.Lock()
	regions := e.regions
	e.mu.Unlock()

	e.scope.mu.Lock()
	defer e.scope.mu.Unlock()
	out := make([]Region, len(regions))
	for i, r := range regions {
		out[i] = *r
	}
	return out
}

// Render returns the host element with the composed scope inside a
// declarative shadow root.
func (e *Embed) Render() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, e.HTML())
		return err
	})
}

// HTML renders the host element as a string.
func (e *Embed) HTML() string {
	var sb strings.Builder
	sb.WriteString("<" + TagName)
	writeAttr(&sb, AttrTarget, e.attrs[AttrTarget])
	if mode, ok := e.attrs.Lookup(AttrMode); ok {
		writeAttr(&sb, AttrMode, mode)
	}
	writeAttr(&sb, "data-embed-id", e.id)
	writeAttr(&sb, "data-embed-state", e.State().String())
	sb.WriteString(`><template shadowrootmode="open">`)
	sb.WriteString(e.scope.HTML())
	sb.WriteString(`</template>`)
	sb.WriteString(shadowUpgrade(e.id))
	if e.hasModules() {
		sb.WriteString(moduleLoader(e.id))
	}
	sb.WriteString("</" + TagName + ">")
	return sb.String()
}

func (e *Embed) hasModules() bool {
	e.mu.Lock()
	regions := e.regions
	e.mu.Unlock()

	e.scope.mu.Lock()
	defer e.scope.mu.Unlock()
	for _, r := range regions {
		if dom.Data(r.Node, "block-module") != "" {
			return true
		}
	}
	return false
}

func writeAttr(sb *strings.Builder, key, val string) {
	sb.WriteString(" " + key + `="`)
	sb.WriteString(html.EscapeString(val))
	sb.WriteString(`"`)
}

// shadowUpgrade attaches the declarative shadow root by hand. Parsers only
// honour shadowrootmode while loading the document, so markup swapped in
// later (htmx, innerHTML) keeps an inert template without it.
func shadowUpgrade(id string) string {
	return `<script>` +
		`(() => {const host = document.querySelector('` + TagName + `[data-embed-id="` + id + `"]');` +
		`const t = host && host.querySelector(':scope > template[shadowrootmode]');` +
		`if (t && !host.shadowRoot) { host.attachShadow({mode: 'open'}).appendChild(t.content); t.remove(); }})();` +
		`</script>`
}

// moduleLoader imports every tagged block module in the embed's shadow
// root and runs its default export on the block. Remote modules still read
// window.hlx.suppressLoadPage, so it is set here for them.
func moduleLoader(id string) string {
	return `<script type="module">` +
		`window.hlx = window.hlx || {}; window.hlx.suppressLoadPage = true;` +
		`const host = document.querySelector('` + TagName + `[data-embed-id="` + id + `"]');` +
		`if (host && host.shadowRoot) {` +
		`for (const block of host.shadowRoot.querySelectorAll('[data-block-module]')) {` +
		`import(block.dataset.blockModule).then((m) => m.default && m.default(block)).catch((e) => console.log(e));` +
		`}}` +
		`</script>`
}
