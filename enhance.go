package hxembed

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pthm/hxembed/lib/dom"
)

// enhancer loads a block's stylesheet and behavior and applies the behavior
// to the block's region.
type enhancer struct {
	opts *options
	log  *zap.Logger
}

// enhance runs the block pipeline for one region. The stylesheet always
// settles before the behavior is resolved. A behavior failure marks the
// region failed and is returned as an asset error; the region node stays
// in the tree either way and ends with data-block-status="loaded".
func (e *enhancer) enhance(ctx context.Context, scope *Scope, region *Region) error {
	ctx, span := e.opts.tracer.Start(ctx, "hxembed.block",
		trace.WithAttributes(attribute.String("block", region.Identifier)))
	defer span.End()

	log := e.log.With(zap.String("block", region.Identifier))

	href := region.Origin.BlockStyleURL(region.Identifier)
	err := scope.Do(ctx, func(root *html.Node) error {
		root.AppendChild(dom.Element("link", "rel", "stylesheet", "href", href))
		return nil
	})
	if err != nil {
		return err
	}
	e.settleStyle(ctx, href, log)

	behavior, resolveErr := e.opts.resolver.Resolve(ctx, region.Origin, region.Identifier)
	if errors.Is(resolveErr, ErrNoBehavior) {
		behavior, resolveErr = nil, nil
	}
	if ctx.Err() != nil {
		return ErrDetached
	}

	var failure error
	err = scope.Do(ctx, func(*html.Node) error {
		failure = resolveErr
		if failure == nil && behavior != nil {
			failure = applyBehavior(ctx, behavior, region)
		}
		if failure != nil {
			region.Status = RegionFailed
			region.Err = failure
		} else {
			region.Status = RegionLoaded
		}
		dom.SetData(region.Node, "block-status", "loaded")
		return nil
	})
	if err != nil {
		return err
	}

	e.opts.metrics.block(region.Identifier, region.Status)
	if failure != nil {
		span.RecordError(failure)
		span.SetStatus(codes.Error, "block behavior failed")
		log.Warn("Block behavior failed, keeping default markup", zap.Error(failure))
		return &assetError{block: region.Identifier, err: failure}
	}
	log.Debug("Block loaded")
	return nil
}

// settleStyle waits for the stylesheet to load or fail, bounded by the
// style timeout. The outcome only matters for diagnostics.
func (e *enhancer) settleStyle(ctx context.Context, href string, log *zap.Logger) {
	sctx, cancel := context.WithTimeout(ctx, e.opts.styleTimeout)
	defer cancel()

	if _, err := e.opts.fetcher.Fetch(sctx, href); err != nil {
		log.Debug("Block stylesheet did not load", zap.String("href", href), zap.Error(err))
	}
}

func applyBehavior(ctx context.Context, b BlockBehavior, region *Region) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("behavior panicked: %v", r)
		}
	}()
	return b.Apply(ctx, region)
}
