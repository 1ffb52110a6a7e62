package hxembed

import (
	"net/http"

	"github.com/a-h/templ"
)

// Render writes a templ component to the HTTP response.
//
// Sets Content-Type to text/html and renders the component using the
// request's context:
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    e := hxembed.New(attrs)
//	    _ = e.Attach(r.Context())
//	    hxembed.Render(w, r, e.Render())
//	}
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// IsHTMX returns true if the request originated from htmx.
//
// Registry placeholders load through htmx; use this to tell them apart from
// direct browser navigation to an embed URL.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// CurrentURL returns the page the browser is on, from the HX-Current-URL
// header. Returns empty string for non-htmx requests.
func CurrentURL(r *http.Request) string {
	return r.Header.Get("HX-Current-URL")
}
