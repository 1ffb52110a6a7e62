package hxembed

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

// Fetcher retrieves remote documents: plain content, stylesheets and
// behavior modules. Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// FetchConfig configures HTTPFetcher.
type FetchConfig struct {
	Timeout   time.Duration // per request. Default: 30s.
	MaxBytes  int64         // response body limit. Default: 10MB.
	UserAgent string
	Client    *http.Client // overrides Timeout when set
}

func (c *FetchConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "hxembed/1.0"
	}
}

// HTTPFetcher fetches over HTTP. It never retries: a failed fetch is final
// for that attempt.
type HTTPFetcher struct {
	client *http.Client
	config FetchConfig
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(cfg FetchConfig) *HTTPFetcher {
	cfg.defaults()
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				return nil
			},
		}
	}
	return &HTTPFetcher{client: client, config: cfg}
}

// Fetch GETs url and returns its body. Non-2xx responses yield a *StatusError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: new request: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	var r io.Reader = io.LimitReader(resp.Body, f.config.MaxBytes+1)
	ct := resp.Header.Get("Content-Type")
	if mt, _, _ := mime.ParseMediaType(ct); mt == "text/html" {
		// Plain content is parsed as UTF-8; transcode anything declared otherwise.
		if r, err = charset.NewReader(r, ct); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
		}
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}
	if int64(len(body)) > f.config.MaxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFetch, url, f.config.MaxBytes)
	}
	return body, nil
}
