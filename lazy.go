package hxembed

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Lazy returns a templ component that defers composing req until the
// placeholder scrolls into view.
//
//	reg.Lazy(hxembed.EmbedRequest{TargetURL: "https://site.example/fragments/promo"}, spinner())
//
// Uses htmx's "intersect once" trigger.
func (reg *Registry) Lazy(req EmbedRequest, placeholder templ.Component) templ.Component {
	return reg.placeholder(req, placeholder, "intersect once")
}

// Defer returns a templ component that composes req right after page load.
//
// Uses htmx's "load" trigger. Use it for embeds that should not hold up the
// host page's first paint but are above the fold.
func (reg *Registry) Defer(req EmbedRequest, placeholder templ.Component) templ.Component {
	return reg.placeholder(req, placeholder, "load")
}

func (reg *Registry) placeholder(req EmbedRequest, placeholder templ.Component, trigger string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		u, err := reg.URL(req)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, fmt.Sprintf(`<div hx-get="%s" hx-trigger="%s" hx-swap="%s">`,
			templ.EscapeString(u), trigger, SwapOuter))
		if err != nil {
			return err
		}
		if placeholder != nil {
			if err := placeholder.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err = io.WriteString(w, `</div>`)
		return err
	})
}
