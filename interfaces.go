package hxembed

import (
	"context"
	"fmt"

	"golang.org/x/net/html"

	"github.com/pthm/hxembed/lib/aem"
)

// State is the composition state of one embed instance. An instance leaves
// StateUninitialized at most once.
type State int32

const (
	StateUninitialized State = iota
	StateComposing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateComposing:
		return "composing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// RegionStatus tracks the enhancement of a single block region.
type RegionStatus int

const (
	RegionPending RegionStatus = iota
	RegionLoaded
	RegionFailed
)

func (s RegionStatus) String() string {
	switch s {
	case RegionPending:
		return "pending"
	case RegionLoaded:
		return "loaded"
	case RegionFailed:
		return "failed"
	default:
		return fmt.Sprintf("RegionStatus(%d)", int(s))
	}
}

// Region is a classified block subtree of the fetched content.
//
// Node is owned by the embed's scope. Behaviors may mutate Node and its
// descendants but must not touch anything outside it.
type Region struct {
	Identifier string
	Node       *html.Node
	Origin     Origin
	Status     RegionStatus
	Err        error
}

// BlockBehavior is the capability a block's behavior module provides:
// enhance the region it is applied to.
//
// Apply is called after the block's stylesheet settled, with the scope
// locked, so implementations must not call back into the Embed.
type BlockBehavior interface {
	Apply(ctx context.Context, region *Region) error
}

// BehaviorFunc adapts a function to the BlockBehavior interface.
type BehaviorFunc func(ctx context.Context, region *Region) error

// Apply calls f.
func (f BehaviorFunc) Apply(ctx context.Context, region *Region) error {
	return f(ctx, region)
}

// Resolver locates the behavior for a block identifier on an origin.
//
// Resolve returns ErrNoBehavior when the block has no entry point; that is
// not a failure. Any other error marks the region failed.
type Resolver interface {
	Resolve(ctx context.Context, origin Origin, identifier string) (BlockBehavior, error)
}

// DecorateOptions is handed to page decoration instead of a process-wide
// "suppress full-page load" flag.
type DecorateOptions = aem.DecorateOptions

// Decorator is the remote site's page decoration entry point (decorateMain).
type Decorator interface {
	DecorateMain(ctx context.Context, main *html.Node, opts DecorateOptions) error
}

// BlockBuilder creates and decorates synthesized blocks (buildBlock,
// decorateBlock). It is only used for header and footer composition.
type BlockBuilder interface {
	BuildBlock(name string) *html.Node
	DecorateBlock(block *html.Node)
}
