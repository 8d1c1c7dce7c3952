package discover

import (
	"log/slog"
	"os"
	"slices"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestIsLikelyArticleURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/article/big-merger-announced", true},
		{"https://example.com/news/2024/market-update", true},
		{"https://example.com/blog/how-we-scaled", true},
		{"https://example.com/2024/06/12/quarterly-results", true},
		{"https://example.com/some-story-slug-42", true},
		{"https://example.com/category/tech", false},
		{"https://example.com/tag/finance", false},
		{"https://example.com/author/jane-doe", false},
		{"https://example.com/about", false},
		{"https://example.com/assets/logo.png", false},
		{"https://example.com/feed/", false},
		{"https://example.com/login", false},
		{"https://example.com/", false},
	}
	for _, tt := range tests {
		if got := IsLikelyArticleURL(tt.url); got != tt.want {
			t.Errorf("IsLikelyArticleURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestDiscoverSelectorPass(t *testing.T) {
	html := `<html><body>
		<nav><a href="/about">About</a><a href="/category/tech">Tech</a></nav>
		<article><a href="/news/fed-rate-decision">Fed decision</a></article>
		<h2><a href="/article/startup-raises-round">Funding</a></h2>
		<a href="https://other.example/article/external-piece">External</a>
		<a href="/article/startup-raises-round">Duplicate</a>
	</body></html>`

	d := New(nil, testLogger)
	urls := d.Discover("https://example.com/news", "text/html", []byte(html))

	want := []string{
		"https://example.com/article/startup-raises-round",
		"https://example.com/news/fed-rate-decision",
		"https://other.example/article/external-piece",
	}
	if !slices.Equal(urls, want) {
		t.Errorf("got %v, want %v", urls, want)
	}
}

func TestDiscoverSameHostFallback(t *testing.T) {
	// No anchors match the listing selectors, so discovery widens to
	// every same-host anchor and filters by URL shape.
	html := `<html><body>
		<div><a href="/2024/07/03/rate-cut-speculation">story</a></div>
		<div><a href="https://cdn.example.net/2024/07/03/mirrored">offsite</a></div>
		<div><a href="/privacy">privacy</a></div>
	</body></html>`

	d := New(nil, testLogger)
	urls := d.Discover("https://example.com/", "text/html", []byte(html))

	want := []string{"https://example.com/2024/07/03/rate-cut-speculation"}
	if !slices.Equal(urls, want) {
		t.Errorf("got %v, want %v", urls, want)
	}
}

func TestDiscoverFeed(t *testing.T) {
	rss := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Wire</title>
<item><title>One</title><link>https://example.com/article/one</link></item>
<item><title>Two</title><link>https://example.com/article/two</link></item>
<item><title>Dup</title><link>https://example.com/article/one</link></item>
</channel></rss>`

	d := New(nil, testLogger)
	urls := d.Discover("https://example.com/feed.xml", "application/rss+xml", []byte(rss))

	want := []string{
		"https://example.com/article/one",
		"https://example.com/article/two",
	}
	if !slices.Equal(urls, want) {
		t.Errorf("got %v, want %v", urls, want)
	}
}

func TestDiscoverUnparseablePageFallsBackToPageURL(t *testing.T) {
	d := New(nil, testLogger)
	urls := d.Discover("://not-a-url", "text/html", []byte("<html></html>"))
	want := []string{"://not-a-url"}
	if !slices.Equal(urls, want) {
		t.Errorf("got %v, want %v", urls, want)
	}
}

func TestResolveDropsFragmentsAndSchemes(t *testing.T) {
	html := `<html><body><article>
		<a href="#comments">comments</a>
		<a href="mailto:tips@example.com">tips</a>
		<a href="/article/real-story#section">real</a>
	</article></body></html>`

	d := New(nil, testLogger)
	urls := d.Discover("https://example.com/", "text/html", []byte(html))

	want := []string{"https://example.com/article/real-story"}
	if !slices.Equal(urls, want) {
		t.Errorf("got %v, want %v", urls, want)
	}
}

func BenchmarkIsLikelyArticleURL(b *testing.B) {
	urls := []string{
		"https://example.com/news/2024/03/story-123",
		"https://example.com/category/tech",
		"https://example.com/blog/some-long-slug-title",
		"https://example.com/",
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		IsLikelyArticleURL(urls[i%len(urls)])
	}
}
