// Package hxembedecho provides Echo framework integration for hxembed.
//
// Mount the embed registry onto an Echo instance or group:
//
//	e := echo.New()
//	reg := hxembedecho.Mount(e, hxembedecho.WithKey(key))
//
// Or mount on a group with middleware:
//
//	g := e.Group("/app", authMiddleware)
//	reg := hxembedecho.MountGroup(g, "/app")
//
// The returned registry renders Lazy and Defer placeholders whose URLs point
// at the mounted path.
package hxembedecho

import (
	"crypto/rand"
	"fmt"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/pthm/hxembed"
)

// Option configures the Mount and MountGroup functions.
type Option func(*options)

type options struct {
	key   []byte
	path  string
	embed []hxembed.Option
}

// WithKey sets the token signing key for the registry.
// The key should be at least 32 bytes of cryptographically random data.
// If not provided, a random key is generated (suitable for development only).
func WithKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithPath sets the URL path prefix for embed routes.
// Defaults to hxembed.DefaultPrefix.
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithEmbedOptions passes options to every embed the registry composes.
func WithEmbedOptions(opts ...hxembed.Option) Option {
	return func(o *options) {
		o.embed = append(o.embed, opts...)
	}
}

// Mount creates a registry and mounts the embed handler on an Echo instance.
func Mount(e *echo.Echo, opts ...Option) *hxembed.Registry {
	reg := newRegistry(opts)
	e.GET(reg.Prefix()+"*", echo.WrapHandler(reg.Handler()))
	return reg
}

// MountGroup creates a registry and mounts the embed handler on an Echo
// group, sharing the group's middleware (auth, logging, etc.). The group
// prefix is part of the placeholder URLs.
func MountGroup(g *echo.Group, prefix string, opts ...Option) *hxembed.Registry {
	reg := newRegistry(opts)
	path := reg.Prefix()
	reg.WithPrefix(prefix + path)
	g.GET(path+"*", echo.WrapHandler(reg.Handler()))
	return reg
}

func newRegistry(opts []Option) *hxembed.Registry {
	o := &options{path: hxembed.DefaultPrefix}
	for _, opt := range opts {
		opt(o)
	}

	key := o.key
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("hxembedecho: failed to generate random key: %v", err))
		}
	}

	return hxembed.NewRegistry(key, o.embed...).WithPrefix(o.path)
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hxembedecho.Render(c, reg.Lazy(req, spinner()))
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}
