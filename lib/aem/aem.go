// Package aem provides Go implementations of the page decoration helpers
// that Edge Delivery sites ship in /scripts/aem.js and /scripts/scripts.js:
// decorateMain, decorateBlock and buildBlock.
//
// The embed pipeline only depends on them through small interfaces, so a
// host can substitute its own decoration rules.
package aem

import (
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/pthm/hxembed/lib/dom"
)

// DecorateOptions is passed to page decoration instead of a global flag.
type DecorateOptions struct {
	// SuppressLoadPage tells decoration code it runs inside an embed and
	// must not start the remote site's full page load.
	SuppressLoadPage bool
}

// Decorator implements decorateMain, decorateBlock and buildBlock with the
// Edge Delivery boilerplate conventions.
type Decorator struct{}

// DecorateMain turns the direct div children of main into sections and the
// classed divs inside each section into blocks.
func (Decorator) DecorateMain(_ context.Context, main *html.Node, _ DecorateOptions) error {
	for _, section := range dom.Children(main) {
		if !dom.IsElement(section, "div") {
			continue
		}
		dom.AddClass(section, "section")
		dom.SetData(section, "section-status", "initialized")
		dom.SetAttr(section, "style", "display: none;")

		for _, child := range dom.Children(section) {
			if !dom.IsElement(child, "div") || len(dom.Classes(child)) == 0 {
				continue
			}
			name := BlockName(child)
			dom.AddClass(section, name+"-container")
			decorateBlock(child)
		}
	}
	return nil
}

// DecorateBlock marks block as a block and wraps it in its name-wrapper div.
func (Decorator) DecorateBlock(block *html.Node) {
	decorateBlock(block)
}

// BuildBlock creates an empty block with one row and one cell:
// <div class="name"><div><div></div></div></div>.
func (Decorator) BuildBlock(name string) *html.Node {
	block := dom.Element("div", "class", ToClassName(name))
	row := dom.Element("div")
	row.AppendChild(dom.Element("div"))
	block.AppendChild(row)
	return block
}

func decorateBlock(block *html.Node) {
	name := BlockName(block)
	if name == "" || dom.HasClass(block, "block") {
		return
	}
	dom.AddClass(block, "block")
	dom.SetData(block, "block-name", name)
	dom.SetData(block, "block-status", "initialized")

	wrapper := dom.Element("div", "class", name+"-wrapper")
	dom.Wrap(block, wrapper)
}

// BlockName is the first class of a block element.
func BlockName(block *html.Node) string {
	classes := dom.Classes(block)
	if len(classes) == 0 {
		return ""
	}
	return classes[0]
}

// ToClassName lowercases name and collapses anything that is not a letter
// or digit into single dashes.
func ToClassName(name string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
