package hxembed

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Attribute names read from the host element.
const (
	AttrTarget = "target-location"
	AttrMode   = "mode"
)

// Mode is the structural role the embedded fragment plays in the host page.
type Mode int

const (
	ModeMain Mode = iota
	ModeHeader
	ModeFooter
)

func (m Mode) String() string {
	switch m {
	case ModeMain:
		return "main"
	case ModeHeader:
		return "header"
	case ModeFooter:
		return "footer"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a mode attribute value to a Mode. The empty string is main.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "main":
		return ModeMain, nil
	case "header":
		return ModeHeader, nil
	case "footer":
		return ModeFooter, nil
	default:
		return ModeMain, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Attributes are the host element attributes an embed is created from.
type Attributes map[string]string

// Lookup returns the attribute value and whether it was present.
func (a Attributes) Lookup(name string) (string, bool) {
	v, ok := a[name]
	return v, ok
}

// EmbedRequest is the immutable input of one embed instance.
type EmbedRequest struct {
	TargetURL string
	Mode      Mode
}

// Attributes converts the request back into host element attributes.
func (r EmbedRequest) Attributes() Attributes {
	return Attributes{AttrTarget: r.TargetURL, AttrMode: r.Mode.String()}
}

// EncodeFields implements encoding.Encodable.
func (r EmbedRequest) EncodeFields() map[string]any {
	return map[string]any{"u": r.TargetURL, "m": r.Mode.String()}
}

// DecodeFields implements encoding.Decodable.
func (r *EmbedRequest) DecodeFields(m map[string]any) error {
	target, ok := m["u"].(string)
	if !ok || target == "" {
		return ErrMissingTarget
	}
	modeName, _ := m["m"].(string)
	mode, err := ParseMode(modeName)
	if err != nil {
		return err
	}
	r.TargetURL = target
	r.Mode = mode
	return nil
}

// requestFromAttributes validates host attributes.
func requestFromAttributes(attrs Attributes) (EmbedRequest, error) {
	target, ok := attrs.Lookup(AttrTarget)
	if !ok || strings.TrimSpace(target) == "" {
		return EmbedRequest{}, ErrMissingTarget
	}
	modeName, _ := attrs.Lookup(AttrMode)
	mode, err := ParseMode(modeName)
	if err != nil {
		return EmbedRequest{}, err
	}
	return EmbedRequest{TargetURL: strings.TrimSpace(target), Mode: mode}, nil
}

// Origin is the scheme, host and port of the remote site. Every style,
// script and media reference of an embed is built against it.
type Origin struct {
	Scheme string
	Host   string
	Port   string
}

func (o Origin) String() string {
	if o.Port != "" {
		return o.Scheme + "://" + net.JoinHostPort(o.Host, o.Port)
	}
	if strings.Contains(o.Host, ":") {
		return o.Scheme + "://[" + o.Host + "]"
	}
	return o.Scheme + "://" + o.Host
}

// URL returns the absolute URL of an origin-relative path.
func (o Origin) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return o.String() + path
}

// GlobalStylesURL is the remote site's global stylesheet.
func (o Origin) GlobalStylesURL() string {
	return o.URL("/styles/styles.css")
}

// BlockStyleURL is the per-block stylesheet for identifier.
func (o Origin) BlockStyleURL(identifier string) string {
	return o.URL("/blocks/" + identifier + "/" + identifier + ".css")
}

// BlockModuleURL is the per-block behavior module for identifier.
func (o Origin) BlockModuleURL(identifier string) string {
	return o.URL("/blocks/" + identifier + "/" + identifier + ".js")
}

// PlainURL returns the plain-content document URL for a target page and the
// origin it lives on. Trailing-slash targets map to index.plain.html, all
// others get a .plain.html suffix. Relative targets resolve against base.
func PlainURL(target string, base *url.URL) (string, Origin, error) {
	plain := target + ".plain.html"
	if strings.HasSuffix(target, "/") {
		plain = target + "index.plain.html"
	}

	u, err := url.Parse(plain)
	if err != nil {
		return "", Origin{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if !u.IsAbs() {
		if base == nil {
			return "", Origin{}, fmt.Errorf("%w: relative %q without base URL", ErrInvalidTarget, target)
		}
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", Origin{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTarget, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", Origin{}, fmt.Errorf("%w: missing host in %q", ErrInvalidTarget, target)
	}

	origin := Origin{Scheme: u.Scheme, Host: u.Hostname(), Port: u.Port()}
	return u.String(), origin, nil
}
