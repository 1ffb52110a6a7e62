package hxembed

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/pthm/hxembed/lib/dom"
)

// navHeight is the fixed height a header embed is revealed at.
const navHeight = "var(--nav-height)"

// identifierPattern limits block identifiers to names that are safe to
// splice into /blocks/<id>/<id>.{css,js}.
var identifierPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// composer materializes fetched markup inside a scope and drives block
// enhancement for one composition.
type composer struct {
	opts   *options
	log    *zap.Logger
	scope  *Scope
	origin Origin
	enh    *enhancer
}

// composition is what a finished composition leaves behind. assetErr
// collects block failures; they never fail the composition itself.
type composition struct {
	regions  []*Region
	assetErr error
}

func (c *composer) compose(ctx context.Context, mode Mode, markup string) (*composition, error) {
	switch mode {
	case ModeMain:
		_, res, err := c.composeMain(ctx, markup)
		return res, err
	case ModeHeader:
		return c.composeContainer(ctx, markup, "header", navHeight)
	case ModeFooter:
		return c.composeContainer(ctx, markup, "footer", "")
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidMode, mode)
	}
}

// composeMain parses markup into a new <main>, discovers regions, runs page
// decoration, enhances every region and marks the result appeared.
func (c *composer) composeMain(ctx context.Context, markup string) (*html.Node, *composition, error) {
	res := &composition{}
	main := dom.Element("main")

	err := c.scope.Do(ctx, func(root *html.Node) error {
		root.AppendChild(main)
		if err := dom.ParseInto(main, markup); err != nil {
			return err
		}
		res.regions = discoverRegions(main, c.origin)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	c.log.Debug("Regions discovered", zap.Int("count", len(res.regions)))

	if c.opts.decorator != nil {
		err := c.scope.Do(ctx, func(*html.Node) error {
			return decorateSafely(ctx, c.opts.decorator, main)
		})
		if errors.Is(err, ErrDetached) {
			return nil, nil, err
		}
		if err != nil {
			c.log.Warn("Page decoration failed, continuing with undecorated markup", zap.Error(err))
			res.assetErr = multierr.Append(res.assetErr, &assetError{block: "main", err: err})
		}
	}

	assetErr, err := c.enhanceAll(ctx, res.regions)
	if err != nil {
		return nil, nil, err
	}
	res.assetErr = multierr.Append(res.assetErr, assetErr)

	err = c.scope.Do(ctx, func(root *html.Node) error {
		for _, section := range dom.FindAll(main, dom.ByClass("section")) {
			dom.SetData(section, "section-status", "loaded")
			dom.RemoveAttr(section, "style")
		}
		dom.AddClass(root, AppearClass)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return main, res, nil
}

// composeContainer runs the main composition, then moves everything it
// produced into a nav inside a synthesized header or footer block, and
// enhances that block under its fixed name.
func (c *composer) composeContainer(ctx context.Context, markup, name, height string) (*composition, error) {
	main, res, err := c.composeMain(ctx, markup)
	if err != nil {
		return nil, err
	}

	var container *Region
	err = c.scope.Do(ctx, func(root *html.Node) error {
		wrapper := dom.Element(name)
		root.AppendChild(wrapper)

		block := c.opts.builder.BuildBlock(name)
		wrapper.AppendChild(block)

		nav := dom.Element("nav")
		firstCell(block).AppendChild(nav)
		dom.MoveChildren(nav, main)
		dom.Detach(main)

		c.opts.builder.DecorateBlock(block)
		container = &Region{Identifier: name, Node: block, Origin: c.origin}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.regions = append(res.regions, container)

	if err := c.enh.enhance(ctx, c.scope, container); err != nil {
		if errors.Is(err, ErrDetached) {
			return nil, err
		}
		res.assetErr = multierr.Append(res.assetErr, err)
	}

	if height != "" {
		err = c.scope.Do(ctx, func(*html.Node) error {
			c.scope.setHeightLocked(height)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// enhanceAll enhances regions concurrently. Regions are independent: a
// failure is collected and the siblings carry on. Only detachment aborts.
func (c *composer) enhanceAll(ctx context.Context, regions []*Region) (assetErr, err error) {
	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(c.opts.concurrency)

	for _, region := range regions {
		g.Go(func() error {
			err := c.enh.enhance(ctx, c.scope, region)
			if errors.Is(err, ErrDetached) {
				return err
			}
			if err != nil {
				mu.Lock()
				assetErr = multierr.Append(assetErr, err)
				mu.Unlock()
			}
			return nil
		})
	}

	if err = g.Wait(); err != nil {
		return nil, err
	}
	return assetErr, nil
}

// discoverRegions finds block regions: div grandchildren of main (a div per
// section, a div per block) carrying a class. The first class is the block
// identifier. Unclassified grandchildren are default content.
func discoverRegions(main *html.Node, origin Origin) []*Region {
	var regions []*Region
	for _, section := range dom.Children(main) {
		if !dom.IsElement(section, "div") {
			continue
		}
		for _, block := range dom.Children(section) {
			if !dom.IsElement(block, "div") {
				continue
			}
			classes := dom.Classes(block)
			if len(classes) == 0 || !identifierPattern.MatchString(classes[0]) {
				continue
			}
			regions = append(regions, &Region{
				Identifier: classes[0],
				Node:       block,
				Origin:     origin,
			})
		}
	}
	return regions
}

// firstCell is block > div > div, falling back to the block itself for
// builders that produce a flat block.
func firstCell(block *html.Node) *html.Node {
	row := dom.FirstElementChild(block)
	if row == nil {
		return block
	}
	if cell := dom.FirstElementChild(row); cell != nil {
		return cell
	}
	return row
}

func decorateSafely(ctx context.Context, d Decorator, main *html.Node) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decorateMain panicked: %v", r)
		}
	}()
	return d.DecorateMain(ctx, main, DecorateOptions{SuppressLoadPage: true})
}
