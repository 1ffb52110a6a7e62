package hxembed

import (
	"strings"
	"testing"
)

func TestRewriteMedia(t *testing.T) {
	origin := Origin{Scheme: "https", Host: "example.com"}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "src attribute",
			in:   `<img src="./media_1a2b.png?width=750">`,
			want: `<img src="https://example.com/media_1a2b.png?width=750">`,
		},
		{
			name: "directory reference",
			in:   `<img src='./media/hero.jpg'>`,
			want: `<img src='https://example.com/media/hero.jpg'>`,
		},
		{
			name: "srcset with adjacent candidates",
			in:   `<source srcset="./media_a.webp 1x,./media_b.webp 2x">`,
			want: `<source srcset="https://example.com/media_a.webp 1x,https://example.com/media_b.webp 2x">`,
		},
		{
			name: "css url",
			in:   `<div style="background:url(./media_bg.png)">`,
			want: `<div style="background:url(https://example.com/media_bg.png)">`,
		},
		{
			name: "start of text",
			in:   `./media_x.png`,
			want: `https://example.com/media_x.png`,
		},
		{
			name: "parent directory untouched",
			in:   `<img src="../media/x.png">`,
			want: `<img src="../media/x.png">`,
		},
		{
			name: "mid path segment untouched",
			in:   `<a href="/docs/./media/x">`,
			want: `<a href="/docs/./media/x">`,
		},
		{
			name: "longer token untouched",
			in:   `<a href="./mediakit">kit</a>`,
			want: `<a href="./mediakit">kit</a>`,
		},
		{
			name: "prose containing the substring",
			in:   `<p>see foo./media for details</p>`,
			want: `<p>see foo./media for details</p>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RewriteMedia(tt.in, origin); got != tt.want {
				t.Errorf("RewriteMedia() =\n  %s\nwant\n  %s", got, tt.want)
			}
		})
	}
}

func TestRewriteMediaUsesPort(t *testing.T) {
	origin := Origin{Scheme: "http", Host: "localhost", Port: "3000"}
	got := RewriteMedia(`<img src="./media_a.png">`, origin)
	if !strings.Contains(got, "http://localhost:3000/media_a.png") {
		t.Errorf("RewriteMedia() = %s", got)
	}
}

func TestNormalizeSanitizes(t *testing.T) {
	origin := Origin{Scheme: "https", Host: "example.com"}
	in := `<div class="hero"><img src="./media_a.png" onerror="alert(1)"><script>alert(2)</script></div>`

	got := normalize(in, origin, UGCSanitizer())
	if strings.Contains(got, "script") || strings.Contains(got, "onerror") {
		t.Errorf("sanitizer left active content: %s", got)
	}
	if !strings.Contains(got, `class="hero"`) {
		t.Errorf("sanitizer dropped block class: %s", got)
	}
	if !strings.Contains(got, "https://example.com/media_a.png") {
		t.Errorf("media not rewritten after sanitizing: %s", got)
	}
}
