package hxembed

import (
	"context"
	"errors"
	"testing"

	"github.com/pthm/hxembed/lib/dom"
)

func TestBehaviorsResolve(t *testing.T) {
	hero := BehaviorFunc(func(context.Context, *Region) error { return nil })
	b := Behaviors{"hero": hero}

	if got, err := b.Resolve(context.Background(), Origin{}, "hero"); err != nil || got == nil {
		t.Errorf("Resolve(hero) = %v, %v", got, err)
	}
	if _, err := b.Resolve(context.Background(), Origin{}, "cards"); !errors.Is(err, ErrNoBehavior) {
		t.Errorf("Resolve(cards) error = %v, want ErrNoBehavior", err)
	}
}

func TestModuleResolver(t *testing.T) {
	origin := Origin{Scheme: "https", Host: "example.com"}
	fetcher := FetcherFunc(func(_ context.Context, url string) ([]byte, error) {
		switch url {
		case "https://example.com/blocks/hero/hero.js":
			return []byte("export default function decorate(block) {}"), nil
		case "https://example.com/blocks/empty/empty.js":
			return nil, nil
		default:
			return nil, &StatusError{URL: url, StatusCode: 404}
		}
	})
	r := ModuleResolver{Fetcher: fetcher}

	behavior, err := r.Resolve(context.Background(), origin, "hero")
	if err != nil {
		t.Fatalf("Resolve(hero) error = %v", err)
	}
	region := &Region{Identifier: "hero", Node: dom.Element("div", "class", "hero")}
	if err := behavior.Apply(context.Background(), region); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := dom.Data(region.Node, "block-module"); got != "https://example.com/blocks/hero/hero.js" {
		t.Errorf("data-block-module = %q", got)
	}

	if _, err := r.Resolve(context.Background(), origin, "empty"); !errors.Is(err, ErrNoBehavior) {
		t.Errorf("Resolve(empty) error = %v, want ErrNoBehavior", err)
	}
	if _, err := r.Resolve(context.Background(), origin, "missing"); !IsFetchError(err) {
		t.Errorf("Resolve(missing) error = %v, want fetch error", err)
	}
}

func TestChainResolver(t *testing.T) {
	local := Behaviors{"hero": BehaviorFunc(func(context.Context, *Region) error { return nil })}
	boom := errors.New("boom")
	failing := resolverFunc(func(context.Context, Origin, string) (BlockBehavior, error) { return nil, boom })

	chain := ChainResolver{local, failing}
	if _, err := chain.Resolve(context.Background(), Origin{}, "hero"); err != nil {
		t.Errorf("local behavior should win, got %v", err)
	}
	if _, err := chain.Resolve(context.Background(), Origin{}, "cards"); !errors.Is(err, boom) {
		t.Errorf("fallthrough error = %v, want boom", err)
	}
	if _, err := (ChainResolver{}).Resolve(context.Background(), Origin{}, "cards"); !errors.Is(err, ErrNoBehavior) {
		t.Errorf("empty chain error = %v, want ErrNoBehavior", err)
	}
}

type resolverFunc func(context.Context, Origin, string) (BlockBehavior, error)

func (f resolverFunc) Resolve(ctx context.Context, o Origin, id string) (BlockBehavior, error) {
	return f(ctx, o, id)
}
