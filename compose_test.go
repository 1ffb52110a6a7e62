package hxembed

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"golang.org/x/net/html"

	"github.com/pthm/hxembed/lib/dom"
)

var testOrigin = Origin{Scheme: "https", Host: "example.com"}

func TestDiscoverRegions(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   []string
	}{
		{"single block", `<div><div class="hero"><div>x</div></div></div>`, []string{"hero"}},
		{"first class wins", `<div><div class="cards three-up"></div></div>`, []string{"cards"}},
		{"document order across sections", `<div><div class="a"></div><p>t</p><div class="b"></div></div><div><div class="c"></div></div>`, []string{"a", "b", "c"}},
		{"unclassified content", `<div><div><p>plain</p></div></div>`, nil},
		{"nested blocks ignored", `<div><div class="outer"><div class="inner"></div></div></div>`, []string{"outer"}},
		{"non-div section", `<p><span class="x"></span></p>`, nil},
		{"unsafe identifier", `<div><div class="../etc"></div><div class="Hero"></div></div>`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			main := dom.Element("main")
			if err := dom.ParseInto(main, tt.markup); err != nil {
				t.Fatal(err)
			}

			var got []string
			for _, r := range discoverRegions(main, testOrigin) {
				got = append(got, r.Identifier)
				if r.Origin != testOrigin || r.Status != RegionPending {
					t.Errorf("region %s origin=%v status=%v", r.Identifier, r.Origin, r.Status)
				}
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("discoverRegions() = %v, want %v", got, tt.want)
			}
		})
	}
}

// stubFetcher serves every style and module as an empty-but-present
// resource, except module URLs listed in failing.
type stubFetcher struct {
	mu      sync.Mutex
	failing map[string]bool
	seen    []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, url)
	if f.failing[url] {
		return nil, &StatusError{URL: url, StatusCode: 404}
	}
	return []byte("/* ok */"), nil
}

func newTestComposer(opts ...Option) *composer {
	o := newOptions(opts)
	return &composer{
		opts:   o,
		log:    o.logger,
		scope:  newScope(),
		origin: testOrigin,
		enh:    &enhancer{opts: o, log: o.logger},
	}
}

func TestComposeMainMarksSections(t *testing.T) {
	c := newTestComposer(WithFetcher(&stubFetcher{}))

	res, err := c.compose(context.Background(), ModeMain,
		`<div><div class="hero"><div><div>hi</div></div></div></div><div><p>text</p></div>`)
	if err != nil {
		t.Fatalf("compose() error = %v", err)
	}
	if len(res.regions) != 1 || res.assetErr != nil {
		t.Fatalf("regions=%d assetErr=%v", len(res.regions), res.assetErr)
	}

	out := c.scope.HTML()
	if strings.Count(out, `data-section-status="loaded"`) != 2 {
		t.Errorf("sections not all loaded: %s", out)
	}
	if strings.Contains(out, "display: none;") {
		t.Errorf("section still hidden: %s", out)
	}
	if !strings.Contains(out, `class="hero-container section"`) && !strings.Contains(out, `class="section hero-container"`) {
		t.Errorf("section missing container class: %s", out)
	}
	if !c.scope.Appeared() {
		t.Error("root not appeared")
	}
}

func TestComposeWithoutDecorator(t *testing.T) {
	c := newTestComposer(WithFetcher(&stubFetcher{}), WithDecorator(nil))

	res, err := c.compose(context.Background(), ModeMain, `<div><div class="hero"></div></div>`)
	if err != nil {
		t.Fatalf("compose() error = %v", err)
	}
	if res.regions[0].Status != RegionLoaded {
		t.Errorf("status = %v", res.regions[0].Status)
	}
	if strings.Contains(c.scope.HTML(), "hero-wrapper") {
		t.Errorf("decorated without a decorator: %s", c.scope.HTML())
	}
}

func TestComposeInvalidMode(t *testing.T) {
	c := newTestComposer(WithFetcher(&stubFetcher{}))
	if _, err := c.compose(context.Background(), Mode(42), ""); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("compose() error = %v, want ErrInvalidMode", err)
	}
}

func TestComposeFooterSingleContainer(t *testing.T) {
	f := &stubFetcher{}
	c := newTestComposer(WithFetcher(f))

	res, err := c.compose(context.Background(), ModeFooter, `<div><p>(c) 2026</p></div>`)
	if err != nil {
		t.Fatalf("compose() error = %v", err)
	}

	root := c.scope.root
	if n := len(dom.FindAll(root, dom.ByTag("footer"))); n != 1 {
		t.Errorf("%d footers", n)
	}
	if n := len(dom.FindAll(root, dom.ByTag("main"))); n != 0 {
		t.Errorf("%d mains left", n)
	}

	container := res.regions[len(res.regions)-1]
	if container.Identifier != "footer" || !dom.HasClass(container.Node, "block") {
		t.Errorf("container = %s, classes %v", container.Identifier, dom.Classes(container.Node))
	}
	navs := dom.FindAll(container.Node, dom.ByTag("nav"))
	if len(navs) != 1 || !strings.Contains(dom.RenderChildren(navs[0]), "(c) 2026") {
		t.Errorf("nav content: %d navs", len(navs))
	}
	if !contains(f.seen, "https://example.com/blocks/footer/footer.css") {
		t.Errorf("footer style not loaded: %v", f.seen)
	}
}

func TestEnhanceAllRespectsConcurrency(t *testing.T) {
	var (
		inFlight atomic.Int32
		peak     atomic.Int32
	)
	slow := FetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		return []byte("x"), nil
	})

	c := newTestComposer(WithFetcher(slow), WithConcurrency(2), WithDecorator(nil))
	markup := `<div>` + strings.Repeat(`<div class="b"></div>`, 10) + `</div>`
	res, err := c.compose(context.Background(), ModeMain, markup)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.regions) != 10 {
		t.Fatalf("regions = %d", len(res.regions))
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrent fetches = %d, limit 2", peak.Load())
	}
}

func TestComposeDetachedAbortsWithoutMutation(t *testing.T) {
	c := newTestComposer(WithFetcher(&stubFetcher{}))
	c.scope.destroy()

	_, err := c.compose(context.Background(), ModeHeader, `<div></div>`)
	if !errors.Is(err, ErrDetached) {
		t.Errorf("compose() error = %v, want ErrDetached", err)
	}
	if c.scope.root.FirstChild != nil {
		t.Error("destroyed scope was mutated")
	}
}

func TestFirstCell(t *testing.T) {
	built := dom.Element("div")
	row := dom.Element("div")
	cell := dom.Element("div")
	row.AppendChild(cell)
	built.AppendChild(row)

	flat := dom.Element("div")

	tests := []struct {
		name  string
		block *html.Node
		want  *html.Node
	}{
		{"row and cell", built, cell},
		{"flat block", flat, flat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstCell(tt.block); got != tt.want {
				t.Errorf("firstCell() = %v", got)
			}
		})
	}
}

func contains(list []string, s string) bool {
	return indexOf(list, s) >= 0
}
