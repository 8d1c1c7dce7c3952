package extract

import (
	"bytes"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"

	"github.com/tobyhearn/newshound/internal/config"
	"github.com/tobyhearn/newshound/internal/observability"
	"github.com/tobyhearn/newshound/internal/types"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Extractor runs a layered content-extraction cascade over article
// HTML: trafilatura for body text, readability for metadata and as a
// content fallback, a manual selector pass, and finally an independent
// readability fetch of the URL itself.
type Extractor struct {
	cfg     *config.ExtractorConfig
	metrics *observability.Metrics
	logger  *slog.Logger

	// sleep and fromURL are swappable for tests. fromURL performs the
	// last-resort independent fetch.
	sleep   func(time.Duration)
	fromURL func(rawURL string, timeout time.Duration) (readability.Article, error)
}

// New creates an extractor. metrics may be nil.
func New(cfg *config.ExtractorConfig, metrics *observability.Metrics, logger *slog.Logger) *Extractor {
	return &Extractor{
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.With("component", "extractor"),
		sleep: time.Sleep,
		fromURL: func(rawURL string, timeout time.Duration) (readability.Article, error) {
			return readability.FromURL(rawURL, timeout)
		},
	}
}

// Extract builds an article record from fetched HTML. Every stage of
// the cascade is best-effort: a failing stage logs and falls through to
// the next. The returned record always has a URL and a title, but may
// carry a failure body when every stage came up empty; Validate is the
// gate that rejects those.
func (e *Extractor) Extract(rawURL string, body []byte) *types.Article {
	article := &types.Article{
		URL:       rawURL,
		CrawledAt: time.Now().UTC(),
	}

	pageURL, err := url.Parse(rawURL)
	if err != nil {
		article.Title = "Failed to extract title"
		article.Content = fmt.Sprintf("Content extraction failed for %s: %v", rawURL, err)
		return article
	}

	e.runTrafilatura(article, pageURL, body)
	e.runReadability(article, pageURL, body)

	if article.Title == "" && !article.HasContent() {
		e.runManualPass(article, body)
	}

	if !article.HasContent() {
		e.runIndependentFetch(article, rawURL)
	}

	e.finalize(article, pageURL)
	return article
}

// runTrafilatura extracts the main body text plus whatever metadata
// trafilatura recovers.
func (e *Extractor) runTrafilatura(article *types.Article, pageURL *url.URL, body []byte) {
	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{OriginalURL: pageURL})
	if err != nil || result == nil {
		e.logger.Debug("trafilatura pass failed", "url", article.URL, "error", err)
		return
	}

	article.Content = result.ContentText
	article.Title = strings.TrimSpace(result.Metadata.Title)
	article.Author = strings.TrimSpace(result.Metadata.Author)
	article.Description = strings.TrimSpace(result.Metadata.Description)
	if !result.Metadata.Date.IsZero() {
		d := result.Metadata.Date
		article.PublishedAt = &d
	}
}

// runReadability fills metadata gaps and supplies body text when
// trafilatura found none, reusing the already-fetched HTML.
func (e *Extractor) runReadability(article *types.Article, pageURL *url.URL, body []byte) {
	r, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		e.logger.Debug("readability pass failed", "url", article.URL, "error", err)
		return
	}

	if article.Title == "" {
		article.Title = strings.TrimSpace(r.Title)
	}
	if article.Author == "" {
		article.Author = strings.TrimSpace(r.Byline)
	}
	if article.Description == "" {
		article.Description = strings.TrimSpace(r.Excerpt)
	}
	if article.PublishedAt == nil && r.PublishedTime != nil {
		article.PublishedAt = r.PublishedTime
	}
	if !article.HasContent() {
		article.Content = r.TextContent
	}
}

var (
	titleSelectors   = []string{"h1", "title", ".article-title", ".post-title", ".entry-title"}
	contentSelectors = []string{
		".article-content", ".post-content", ".entry-content",
		".article-body", ".post-body", "article", ".content",
	}
	authorSelectors = []string{
		`meta[name="author"]`, `meta[property="article:author"]`,
		".author", ".byline",
	}
)

// runManualPass is the hand-rolled selector fallback for pages both
// extractors choke on.
func (e *Extractor) runManualPass(article *types.Article, body []byte) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		e.logger.Debug("manual pass failed", "url", article.URL, "error", err)
		return
	}

	for _, sel := range titleSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			if t := strings.TrimSpace(s.Text()); t != "" {
				article.Title = t
				break
			}
		}
	}

	for _, sel := range contentSelectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		s.Find("script, style, nav, aside, footer").Remove()
		if t := strings.TrimSpace(s.Text()); t != "" {
			article.Content = t
			break
		}
	}

	if article.Description == "" {
		if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
			article.Description = strings.TrimSpace(desc)
		}
	}

	if article.Author == "" {
		for _, sel := range authorSelectors {
			s := doc.Find(sel).First()
			if s.Length() == 0 {
				continue
			}
			if content, ok := s.Attr("content"); ok {
				article.Author = strings.TrimSpace(content)
			} else {
				article.Author = strings.TrimSpace(s.Text())
			}
			if article.Author != "" {
				break
			}
		}
	}
}

// runIndependentFetch is the last resort: let readability fetch the URL
// itself, on the chance the served HTML differs from what we got. A
// short random pause keeps the extra request from landing immediately
// after the first one.
func (e *Extractor) runIndependentFetch(article *types.Article, rawURL string) {
	if e.cfg.FallbackPauseMax > 0 {
		e.sleep(time.Duration(rand.Int63n(int64(e.cfg.FallbackPauseMax))))
	}

	r, err := e.fromURL(rawURL, 30*time.Second)
	if err != nil {
		e.logger.Debug("independent fetch fallback failed", "url", rawURL, "error", err)
		return
	}
	article.Content = r.TextContent
	if article.Title == "" {
		article.Title = strings.TrimSpace(r.Title)
	}
}

// finalize normalizes whitespace, caps the body length, and guarantees
// a title. The cap counts characters, not bytes, so multi-byte text is
// never cut mid-rune.
func (e *Extractor) finalize(article *types.Article, pageURL *url.URL) {
	article.Content = whitespaceRe.ReplaceAllString(strings.TrimSpace(article.Content), " ")
	if runes := []rune(article.Content); len(runes) > e.cfg.MaxContentLength {
		article.Content = string(runes[:e.cfg.MaxContentLength]) + "..."
	}

	if article.Title == "" {
		article.Title = titleFromURL(pageURL)
	}

	if e.metrics != nil && !article.HasContent() {
		e.metrics.ExtractionsFailed.Add(1)
	}

	e.logger.Debug("extraction complete",
		"url", article.URL,
		"title", article.Title,
		"content_len", len(article.Content),
	)
}

// titleFromURL synthesizes a title from the last path segment, or falls
// back to a generic placeholder.
func titleFromURL(pageURL *url.URL) string {
	seg := pageURL.Path
	if i := strings.LastIndex(strings.TrimSuffix(seg, "/"), "/"); i >= 0 {
		seg = strings.TrimSuffix(seg, "/")[i+1:]
	}
	seg = strings.NewReplacer("-", " ", "_", " ").Replace(seg)
	seg = strings.TrimSpace(seg)
	if seg == "" {
		return "Untitled Article"
	}
	return titleCase(seg)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
