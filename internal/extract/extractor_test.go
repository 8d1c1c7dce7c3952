package extract

import (
	"errors"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"

	"github.com/tobyhearn/newshound/internal/config"
	"github.com/tobyhearn/newshound/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestExtractor() *Extractor {
	e := New(&config.ExtractorConfig{MaxContentLength: 50000, FallbackPauseMax: 0}, nil, testLogger)
	e.sleep = func(time.Duration) {}
	e.fromURL = func(string, time.Duration) (readability.Article, error) {
		return readability.Article{}, errors.New("offline")
	}
	return e
}

func articleHTML(paragraphs int) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Markets Rally On Rate Cut Hopes</title>
		<meta name="author" content="Jane Smith">
		<meta name="description" content="Stocks climbed broadly on Tuesday.">
	</head><body><article><h1>Markets Rally On Rate Cut Hopes</h1>`)
	for i := 0; i < paragraphs; i++ {
		b.WriteString("<p>Equity markets climbed broadly on Tuesday as traders priced in an earlier start to the easing cycle, with rate-sensitive sectors leading the advance through the close.</p>")
	}
	b.WriteString("</article></body></html>")
	return b.String()
}

func TestExtractFromArticlePage(t *testing.T) {
	e := newTestExtractor()
	a := e.Extract("https://example.com/article/markets-rally", []byte(articleHTML(6)))

	if a.Title == "" {
		t.Error("expected a title")
	}
	if !a.HasContent() {
		t.Fatal("expected body content")
	}
	if !strings.Contains(a.Content, "easing cycle") {
		t.Errorf("content missing article text: %q", a.Content[:min(120, len(a.Content))])
	}
	if strings.Contains(a.Content, "\n") {
		t.Error("content whitespace should be collapsed")
	}
	if err := Validate(a); err != nil {
		t.Errorf("extracted article should validate: %v", err)
	}
}

func TestExtractManualPassFallback(t *testing.T) {
	// A bare div layout with no article semantics: the main extractors
	// may skip it, the selector pass must still find the content class.
	html := `<html><head></head><body>
		<div class="article-title">Chip Maker Expands Fab Capacity</div>
		<div class="article-content">
			<script>track();</script>
			<p>` + strings.Repeat("The company will add two production lines next year. ", 6) + `</p>
		</div>
	</body></html>`

	e := newTestExtractor()
	a := e.Extract("https://example.com/article/fab-expansion", []byte(html))

	if !a.HasContent() {
		t.Fatal("expected content from fallback chain")
	}
	if strings.Contains(a.Content, "track()") {
		t.Error("script text leaked into content")
	}
}

func TestExtractTitleSynthesizedFromURL(t *testing.T) {
	e := newTestExtractor()
	a := e.Extract("https://example.com/news/quarterly-earnings_update", []byte("<html><body></body></html>"))

	if a.Title != "Quarterly Earnings Update" {
		t.Errorf("expected synthesized title, got %q", a.Title)
	}
}

func TestExtractUntitledPlaceholder(t *testing.T) {
	e := newTestExtractor()
	a := e.Extract("https://example.com/", []byte("<html><body></body></html>"))

	if a.Title != "Untitled Article" {
		t.Errorf("expected placeholder title, got %q", a.Title)
	}
	if err := Validate(a); err == nil {
		t.Error("empty record must not validate")
	}
}

func TestExtractContentTruncation(t *testing.T) {
	e := New(&config.ExtractorConfig{MaxContentLength: 200}, nil, testLogger)
	e.sleep = func(time.Duration) {}
	e.fromURL = func(string, time.Duration) (readability.Article, error) {
		return readability.Article{}, errors.New("offline")
	}

	a := e.Extract("https://example.com/article/long-read", []byte(articleHTML(40)))
	if !a.HasContent() {
		t.Fatal("expected content")
	}
	if len(a.Content) != 200+len("...") {
		t.Errorf("expected truncation to 203 chars, got %d", len(a.Content))
	}
	if !strings.HasSuffix(a.Content, "...") {
		t.Error("truncated content should end with ellipsis")
	}
}

func TestContentTruncationKeepsRuneBoundaries(t *testing.T) {
	e := New(&config.ExtractorConfig{MaxContentLength: 100}, nil, testLogger)
	pageURL, _ := url.Parse("https://example.com/article/overseas-report")
	a := &types.Article{
		URL:     pageURL.String(),
		Title:   "Overseas Markets Report",
		Content: strings.Repeat("日", 150),
	}

	e.finalize(a, pageURL)

	if !utf8.ValidString(a.Content) {
		t.Fatalf("truncated content is not valid UTF-8: %q", a.Content)
	}
	if !strings.HasSuffix(a.Content, "...") {
		t.Fatal("expected truncation marker")
	}
	if got := utf8.RuneCountInString(strings.TrimSuffix(a.Content, "...")); got != 100 {
		t.Errorf("expected 100 chars before the marker, got %d", got)
	}
}

func TestExtractIndependentFetchFallback(t *testing.T) {
	var fetched string
	e := newTestExtractor()
	e.fromURL = func(rawURL string, _ time.Duration) (readability.Article, error) {
		fetched = rawURL
		return readability.Article{
			Title:       "Server Side Render Only",
			TextContent: strings.Repeat("Body text only the second fetch returned. ", 5),
		}, nil
	}

	a := e.Extract("https://example.com/article/js-shell", []byte("<html><body><div id='app'></div></body></html>"))

	if fetched != "https://example.com/article/js-shell" {
		t.Fatalf("independent fetch not attempted, fetched=%q", fetched)
	}
	if !strings.Contains(a.Content, "second fetch") {
		t.Errorf("expected fallback content, got %q", a.Content)
	}
}

func TestExtractInvalidURL(t *testing.T) {
	e := newTestExtractor()
	a := e.Extract("://broken", []byte("ignored"))

	if a.Title != "Failed to extract title" {
		t.Errorf("unexpected title %q", a.Title)
	}
	if err := Validate(a); err == nil {
		t.Error("failure record must not validate")
	}
}
