package hxembed

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// mediaRef matches "./media" only where it starts a reference: at the start
// of the text or after a quote, paren, '=', ',' or whitespace. The next
// character must continue a media path ("./media_1a2b.png", "./media/x")
// or end the reference, so "./mediakit" does not match.
var mediaRef = regexp.MustCompile(`(^|["'(=,\s])\./media([/_.?#"')\s-]|$)`)

// RewriteMedia rewrites relative "./media" references in fetched markup to
// absolute references on origin. Tokens that merely contain "./media"
// (for example "../media" or "/a/./media") are left untouched.
func RewriteMedia(text string, origin Origin) string {
	replacement := "${1}" + origin.URL("/media") + "${2}"
	return mediaRef.ReplaceAllString(text, replacement)
}

// Sanitizer cleans fetched markup before it is parsed into the scope.
type Sanitizer interface {
	Sanitize(markup string) string
}

// SanitizerFunc adapts a function to the Sanitizer interface.
type SanitizerFunc func(string) string

// Sanitize calls f.
func (f SanitizerFunc) Sanitize(markup string) string {
	return f(markup)
}

// UGCSanitizer returns a bluemonday user-generated-content policy that also
// keeps class attributes on every element, since block discovery depends on
// them, and data attributes used by the decoration pass.
func UGCSanitizer() Sanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowDataAttributes()
	p.AllowElements("div", "span", "picture", "source", "main", "header", "footer", "nav", "section")
	p.AllowAttrs("srcset", "type", "media", "width", "height", "loading").OnElements("source", "img")
	return p
}

// normalize applies the media rewrite and the optional sanitizer.
func normalize(text string, origin Origin, s Sanitizer) string {
	if s != nil {
		text = s.Sanitize(text)
	}
	return RewriteMedia(text, origin)
}
