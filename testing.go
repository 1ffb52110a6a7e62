package hxembed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// TestSite is an in-memory remote site for testing embeds. It serves plain
// content pages, the global stylesheet and block assets, and records every
// request path it receives.
//
//	site := hxembed.NewTestSite()
//	defer site.Close()
//	site.Page("/fragments/promo", `<div><div class="hero"><div>Hi</div></div></div>`)
//	site.Block("hero", ".hero{}", "export default function decorate(block) {}")
//	result, err := hxembed.TestCompose(ctx, hxembed.Attributes{
//	    hxembed.AttrTarget: site.URL + "/fragments/promo",
//	})
type TestSite struct {
	*httptest.Server

	mu        sync.Mutex
	resources map[string]testResource
	requests  []string
}

type testResource struct {
	status int
	body   string
}

// NewTestSite starts a site that already serves an empty global
// stylesheet. Close it when done.
func NewTestSite() *TestSite {
	s := &TestSite{resources: make(map[string]testResource)}
	s.Asset("/styles/styles.css", "")
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

func (s *TestSite) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.URL.Path)
	res, ok := s.resources[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if res.status != http.StatusOK {
		http.Error(w, http.StatusText(res.status), res.status)
		return
	}
	_, _ = w.Write([]byte(res.body))
}

// Page serves markup as the plain content of path. A path ending in "/" is
// served as its index page.
func (s *TestSite) Page(path, markup string) {
	if strings.HasSuffix(path, "/") {
		path += "index"
	}
	s.Asset(path+".plain.html", markup)
}

// Block serves the stylesheet and module of a block. An empty js leaves the
// module unserved.
func (s *TestSite) Block(identifier, css, js string) {
	s.Asset("/blocks/"+identifier+"/"+identifier+".css", css)
	if js != "" {
		s.Asset("/blocks/"+identifier+"/"+identifier+".js", js)
	}
}

// Asset serves body at path.
func (s *TestSite) Asset(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[path] = testResource{status: http.StatusOK, body: body}
}

// Fail makes path answer with status.
func (s *TestSite) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[path] = testResource{status: status}
}

// Requests returns the request paths received so far, in arrival order.
func (s *TestSite) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Requested reports whether any request path starts with prefix.
func (s *TestSite) Requested(prefix string) bool {
	for _, p := range s.Requests() {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// TestResult holds a finished composition for assertions.
type TestResult struct {
	Embed   *Embed
	HTML    string
	State   State
	Regions []Region
	Err     error
}

// TestCompose attaches a new embed and waits for it to finish, bounded by a
// generous timeout. Composition failures are reported through the result,
// not the returned error, which is only set when the embed never settled.
func TestCompose(ctx context.Context, attrs Attributes, opts ...Option) (*TestResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	e := New(attrs, opts...)
	attachErr := e.Attach(ctx)
	if err := e.Wait(ctx); err != nil && attachErr == nil {
		return nil, err
	}

	return &TestResult{
		Embed:   e,
		HTML:    e.HTML(),
		State:   e.State(),
		Regions: e.Regions(),
		Err:     attachErr,
	}, nil
}

// HTMLContains checks if the HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML contains all the given substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// Region returns the first region with the given identifier.
func (r *TestResult) Region(identifier string) (Region, bool) {
	for _, reg := range r.Regions {
		if reg.Identifier == identifier {
			return reg, true
		}
	}
	return Region{}, false
}

// IsReady reports whether the composition reached Ready.
func (r *TestResult) IsReady() bool {
	return r.State == StateReady
}
