package hxembed

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/pthm/hxembed/lib/dom"
)

// Class toggled on the scope root once the embedded content is visually
// stable.
const AppearClass = "appear"

// Scope is the isolated rendering root owned by one embed instance. It is
// rendered inside a declarative shadow root, so its styles and markup do
// not leak into the host page.
//
// All tree mutations go through Do, which serializes them and refuses to
// run once the scope is destroyed or the caller's context is done.
type Scope struct {
	mu        sync.Mutex
	root      *html.Node
	links     []*html.Node
	hidden    bool
	height    string
	destroyed bool
}

func newScope() *Scope {
	s := &Scope{
		root:   dom.Element("div", "data-embed-root", ""),
		hidden: true,
	}
	s.restyle()
	return s
}

// Do runs fn with exclusive access to the scope root.
func (s *Scope) Do(ctx context.Context, fn func(root *html.Node) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return ErrDetached
	}
	if err := ctx.Err(); err != nil {
		return ErrDetached
	}
	return fn(s.root)
}

// Hidden reports whether the root still carries display: none.
func (s *Scope) Hidden() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hidden
}

// Appeared reports whether the root carries the appear class.
func (s *Scope) Appeared() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dom.HasClass(s.root, AppearClass)
}

// Empty reports whether nothing has been composed into the root.
func (s *Scope) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root.FirstChild == nil
}

// HTML renders the scope content: stylesheet links followed by the root.
func (s *Scope) HTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder
	for _, l := range s.links {
		sb.WriteString(dom.Render(l))
	}
	sb.WriteString(dom.Render(s.root))
	return sb.String()
}

// Destroyed reports whether the scope was torn down.
func (s *Scope) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

func (s *Scope) addStylesheet(href string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.links = append(s.links, dom.Element("link", "rel", "stylesheet", "href", href))
}

func (s *Scope) reveal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden = false
	s.restyle()
}

// setHeightLocked fixes the root height; callers hold mu (inside Do).
func (s *Scope) setHeightLocked(h string) {
	s.height = h
	s.restyle()
}

// restyle rebuilds the root's inline style; callers hold mu.
func (s *Scope) restyle() {
	var parts []string
	if s.hidden {
		parts = append(parts, "display: none")
	}
	if s.height != "" {
		parts = append(parts, "height: "+s.height)
	}
	if len(parts) == 0 {
		dom.RemoveAttr(s.root, "style")
		return
	}
	dom.SetAttr(s.root, "style", strings.Join(parts, "; "))
}

func (s *Scope) destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
	s.links = nil
	s.root = dom.Element("div", "data-embed-root", "")
}
