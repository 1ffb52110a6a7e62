// Package hxembed composes content from a remote AEM Edge Delivery site
// into a host page, server side.
//
// An Embed stands for one <aem-embed> element. It fetches the target's
// plain-content fragment, rewrites ./media references against the remote
// origin, and builds the result inside its own isolated Scope, which is
// rendered as a declarative shadow root so neither side's styles leak into
// the other.
//
// # Lifecycle
//
//	e := hxembed.New(hxembed.Attributes{
//	    hxembed.AttrTarget: "https://main--site--org.aem.page/fragments/promo",
//	    hxembed.AttrMode:   "main",
//	}, hxembed.WithLogger(logger))
//	if err := e.Attach(ctx); err != nil {
//	    // configuration or fetch error; the scope stays hidden and empty
//	}
//	hxembed.Render(w, r, e.Render())
//
// Attach composes exactly once. A second call, concurrent or not, returns
// nil without doing anything. Detach cancels in-flight work and destroys
// the scope.
//
// # Modes
//
// In main mode the fragment becomes a <main> whose sections are decorated
// and whose blocks are enhanced. Header and footer mode additionally move
// the composed content into a nav inside a synthesized header or footer
// block, which is enhanced under that fixed name.
//
// # Blocks
//
// A block is a classed div inside a section div. For each block the embed
// attaches /blocks/<id>/<id>.css, waits for it to settle, then resolves and
// applies the block's behavior. Behaviors come from a Resolver: Go
// functions registered with WithBehavior, the remote site's JS modules via
// ModuleResolver, or both. A failing block is logged and left in its
// default markup; its siblings are unaffected.
//
// Readiness is visible in the markup: the scope root gets the "appear"
// class and every block ends with data-block-status="loaded".
//
// # Lazy loading
//
// A Registry serves embeds over HTTP for htmx hosts. Requests travel as
// signed tokens (encrypted with Opaque), so clients can only load embeds
// the server rendered a placeholder for:
//
//	reg := hxembed.NewRegistry(key, hxembed.WithLogger(logger))
//	http.Handle(hxembed.DefaultPrefix, reg.Handler())
//
//	// in a template
//	@reg.Lazy(hxembed.EmbedRequest{TargetURL: target}, spinner())
package hxembed
