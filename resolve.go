package hxembed

import (
	"context"
	"errors"
	"fmt"

	"github.com/pthm/hxembed/lib/dom"
)

// Behaviors resolves blocks to behaviors registered in Go, keyed by block
// identifier. It is the equivalent of a module cache filled ahead of time.
type Behaviors map[string]BlockBehavior

// Resolve returns the registered behavior or ErrNoBehavior.
func (b Behaviors) Resolve(_ context.Context, _ Origin, identifier string) (BlockBehavior, error) {
	if behavior, ok := b[identifier]; ok && behavior != nil {
		return behavior, nil
	}
	return nil, ErrNoBehavior
}

// ModuleResolver resolves blocks to the remote site's own behavior module at
// /blocks/<id>/<id>.js. The module is fetched to confirm it loads; the
// returned behavior tags the region so the browser imports the module and
// runs its default export on the region once the embed is rendered.
type ModuleResolver struct {
	Fetcher Fetcher
}

// Resolve fetches the module. A failed fetch is a failed import.
func (m ModuleResolver) Resolve(ctx context.Context, origin Origin, identifier string) (BlockBehavior, error) {
	src := origin.BlockModuleURL(identifier)
	body, err := m.Fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", src, err)
	}
	if len(body) == 0 {
		return nil, ErrNoBehavior
	}
	return moduleBehavior(src), nil
}

// moduleBehavior hands the region to the browser-side module loader.
type moduleBehavior string

func (src moduleBehavior) Apply(_ context.Context, region *Region) error {
	dom.SetData(region.Node, "block-module", string(src))
	return nil
}

// ChainResolver asks each resolver in turn and returns the first answer
// that is not ErrNoBehavior.
type ChainResolver []Resolver

// Resolve walks the chain.
func (c ChainResolver) Resolve(ctx context.Context, origin Origin, identifier string) (BlockBehavior, error) {
	for _, r := range c {
		behavior, err := r.Resolve(ctx, origin, identifier)
		if errors.Is(err, ErrNoBehavior) {
			continue
		}
		return behavior, err
	}
	return nil, ErrNoBehavior
}
