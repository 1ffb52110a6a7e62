package hxembed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// DefaultPrefix is where Registry.Handler expects to be mounted.
const DefaultPrefix = "/_e/"

// tokenParam carries the encoded EmbedRequest in lazy-load URLs.
const tokenParam = "t"

// Registry serves composed embeds over HTTP. Requests are encoded into
// tamper-proof tokens so a client can only ask for embeds the server
// rendered a placeholder for.
type Registry struct {
	encoder *Encoder
	opts    []Option
	log     *zap.Logger
	prefix  string
	opaque  bool

	// OnError is called when a token is rejected or a composition fails.
	// Customize this to handle errors appropriately for your application.
	OnError func(http.ResponseWriter, *http.Request, error)
}

// NewRegistry creates a registry with the given signing key. opts are
// passed to every Embed the registry composes.
func NewRegistry(key []byte, opts ...Option) *Registry {
	enc, err := NewEncoder(key)
	if err != nil {
		panic(fmt.Sprintf("hxembed: failed to create encoder: %v", err))
	}

	reg := &Registry{
		encoder: enc,
		opts:    opts,
		log:     newOptions(opts).logger,
		prefix:  DefaultPrefix,
	}

	// Default error handler
	reg.OnError = func(w http.ResponseWriter, r *http.Request, err error) {
		switch {
		case errors.Is(err, ErrInvalidToken), IsConfigError(err):
			http.Error(w, "Bad request", http.StatusBadRequest)
		case IsFetchError(err):
			http.Error(w, "Bad gateway", http.StatusBadGateway)
		case errors.Is(err, context.Canceled), errors.Is(err, ErrDetached):
			// Client went away.
		default:
			http.Error(w, "Bad gateway", http.StatusBadGateway)
		}
	}

	return reg
}

// WithPrefix changes the mount path used in generated URLs.
func (reg *Registry) WithPrefix(prefix string) *Registry {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	reg.prefix = prefix
	return reg
}

// Opaque switches tokens from signed to encrypted, hiding target URLs from
// clients.
func (reg *Registry) Opaque() *Registry {
	reg.opaque = true
	return reg
}

// Prefix returns the mount path.
func (reg *Registry) Prefix() string {
	return reg.prefix
}

// Encoder returns the registry's token encoder.
func (reg *Registry) Encoder() *Encoder {
	return reg.encoder
}

// URL returns the endpoint that renders req.
func (reg *Registry) URL(req EmbedRequest) (string, error) {
	token, err := reg.encoder.Encode(req, reg.opaque)
	if err != nil {
		return "", err
	}
	return reg.prefix + "?" + tokenParam + "=" + token, nil
}

// Decode extracts the embed request from a registry URL's query.
func (reg *Registry) Decode(r *http.Request) (EmbedRequest, error) {
	var req EmbedRequest
	token := r.URL.Query().Get(tokenParam)
	if token == "" {
		return req, fmt.Errorf("%w: missing token", ErrInvalidToken)
	}
	if err := reg.encoder.Decode(token, reg.opaque, &req); err != nil {
		return req, wrapEncodingError(err)
	}
	return req, nil
}

// Handler returns the HTTP handler rendering embeds. Mount it at Prefix.
func (reg *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		req, err := reg.Decode(r)
		if err != nil {
			reg.log.Debug("Rejected embed token", zap.Error(err))
			reg.OnError(w, r, err)
			return
		}

		e := NewFromRequest(req, reg.opts...)
		defer e.Detach()
		reg.log.Debug("Composing embed",
			zap.String("target", req.TargetURL),
			zap.Bool("htmx", IsHTMX(r)),
			zap.String("page", CurrentURL(r)))
		if err := e.Attach(r.Context()); err != nil {
			reg.OnError(w, r, err)
			return
		}

		if err := Render(w, r, e.Render()); err != nil {
			reg.log.Debug("Unable to write embed response", zap.Error(err))
		}
	})
}
