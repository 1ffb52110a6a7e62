package hxembed

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/pthm/hxembed/lib/dom"
)

func newTestRegion(t *testing.T, s *Scope, id string) *Region {
	t.Helper()
	node := dom.Element("div", "class", id)
	if err := s.Do(context.Background(), func(root *html.Node) error {
		root.AppendChild(node)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	return &Region{Identifier: id, Node: node, Origin: testOrigin}
}

func TestEnhanceStyleTimeoutDoesNotBlockBehavior(t *testing.T) {
	hanging := FetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		if strings.HasSuffix(url, ".css") {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return nil, errors.New("unused")
	})

	applied := false
	o := newOptions([]Option{
		WithFetcher(hanging),
		WithStyleTimeout(20 * time.Millisecond),
		WithBehavior("hero", BehaviorFunc(func(_ context.Context, r *Region) error {
			applied = true
			dom.AddClass(r.Node, "enhanced")
			return nil
		})),
	})
	e := &enhancer{opts: o, log: o.logger}
	s := newScope()
	region := newTestRegion(t, s, "hero")

	if err := e.enhance(context.Background(), s, region); err != nil {
		t.Fatalf("enhance() error = %v", err)
	}
	if !applied || region.Status != RegionLoaded || !dom.HasClass(region.Node, "enhanced") {
		t.Errorf("applied=%v status=%v", applied, region.Status)
	}
	if !strings.Contains(s.HTML(), `href="https://example.com/blocks/hero/hero.css"`) {
		t.Errorf("style link missing: %s", s.HTML())
	}
}

func TestEnhanceNoBehaviorIsNotAFailure(t *testing.T) {
	o := newOptions([]Option{
		WithFetcher(&stubFetcher{}),
		WithResolver(resolverFunc(func(context.Context, Origin, string) (BlockBehavior, error) {
			return nil, ErrNoBehavior
		})),
	})
	e := &enhancer{opts: o, log: o.logger}
	s := newScope()
	region := newTestRegion(t, s, "plain")

	if err := e.enhance(context.Background(), s, region); err != nil {
		t.Fatalf("enhance() error = %v", err)
	}
	if region.Status != RegionLoaded || dom.Data(region.Node, "block-status") != "loaded" {
		t.Errorf("status=%v marker=%q", region.Status, dom.Data(region.Node, "block-status"))
	}
}

func TestEnhanceBehaviorError(t *testing.T) {
	boom := errors.New("boom")
	o := newOptions([]Option{
		WithFetcher(&stubFetcher{}),
		WithBehavior("cards", BehaviorFunc(func(context.Context, *Region) error { return boom })),
	})
	e := &enhancer{opts: o, log: o.logger}
	s := newScope()
	region := newTestRegion(t, s, "cards")

	err := e.enhance(context.Background(), s, region)
	if !IsAssetError(err) || !errors.Is(err, boom) {
		t.Fatalf("enhance() error = %v", err)
	}
	if !strings.Contains(err.Error(), `"cards"`) {
		t.Errorf("error does not name the block: %v", err)
	}
	if region.Status != RegionFailed || !errors.Is(region.Err, boom) {
		t.Errorf("status=%v err=%v", region.Status, region.Err)
	}
	if dom.Data(region.Node, "block-status") != "loaded" || region.Node.Parent == nil {
		t.Error("failed region must stay in the tree marked loaded")
	}
}
