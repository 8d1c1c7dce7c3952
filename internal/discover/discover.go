package discover

import (
	"bytes"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"

	"github.com/tobyhearn/newshound/internal/observability"
)

// linkSelectors are tried in order against an index page. They cover
// the common shapes of article listings: path-hinted anchors, anchors
// inside article elements, class-named links, and headline anchors.
var linkSelectors = []string{
	`a[href*="/article/"]`,
	`a[href*="/news/"]`,
	`a[href*="/blog/"]`,
	`a[href*="/post/"]`,
	"article a",
	".article-link",
	".news-link",
	".post-link",
	"h1 a", "h2 a", "h3 a",
}

// skipFragments mark URLs that are navigation, assets, or site chrome
// rather than articles.
var skipFragments = []string{
	"/category/", "/tag/", "/author/", "/search/", "/page/",
	"/contact", "/about", "/privacy", "/terms", "/sitemap",
	".pdf", ".jpg", ".png", ".gif", ".css", ".js",
	"/feed/", "/rss/", "/admin/", "/login", "/register",
}

// allowFragments are strong hints that a path is an article.
var allowFragments = []string{
	"/article/", "/news/", "/blog/", "/post/", "/story/",
	"/content/", "/read/", "/view/",
}

var (
	datePathRe = regexp.MustCompile(`/\d{4}(/\d{1,2})?(/\d{1,2})?/`)
	slugPathRe = regexp.MustCompile(`/[\w-]+(-\d+)?/?$`)
)

// Discoverer finds candidate article URLs on index pages and feeds.
type Discoverer struct {
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a link discoverer. metrics may be nil.
func New(metrics *observability.Metrics, logger *slog.Logger) *Discoverer {
	return &Discoverer{
		metrics: metrics,
		logger:  logger.With("component", "discover"),
	}
}

// Discover extracts candidate article URLs from a fetched page. Feed
// bodies (RSS/Atom, by content type or payload shape) go through the
// feed parser; everything else is treated as HTML. On a page that
// cannot be parsed at all the page URL itself is returned as the sole
// candidate, so an index URL that is really an article still gets
// processed downstream.
func (d *Discoverer) Discover(pageURL, contentType string, body []byte) []string {
	if isFeed(contentType, body) {
		urls, err := d.fromFeed(pageURL, body)
		if err == nil && len(urls) > 0 {
			d.count(len(urls))
			return urls
		}
		if err != nil {
			d.logger.Warn("feed parse failed, falling back to HTML pass", "url", pageURL, "error", err)
		}
	}

	urls, err := d.fromHTML(pageURL, body)
	if err != nil {
		d.logger.Error("link discovery failed", "url", pageURL, "error", err)
		return []string{pageURL}
	}
	d.count(len(urls))
	return urls
}

func (d *Discoverer) count(n int) {
	if d.metrics != nil {
		d.metrics.LinksDiscovered.Add(int64(n))
	}
}

// fromHTML runs the selector pass and, when that finds nothing, a
// same-host pass over every anchor in the document.
func (d *Discoverer) fromHTML(pageURL string, body []byte) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, sel := range linkSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			href, ok := s.Attr("href")
			if !ok {
				return
			}
			full := resolve(base, href)
			if full != "" && IsLikelyArticleURL(full) {
				seen[full] = struct{}{}
			}
		})
	}

	// Selector pass came up empty: consider every same-host anchor.
	// htmlquery tolerates markup goquery's selectors miss on, such as
	// unclosed listing tables.
	if len(seen) == 0 {
		node, err := htmlquery.Parse(bytes.NewReader(body))
		if err == nil {
			for _, a := range htmlquery.Find(node, "//a[@href]") {
				full := resolve(base, htmlquery.SelectAttr(a, "href"))
				if full == "" {
					continue
				}
				u, err := url.Parse(full)
				if err != nil || u.Host != base.Host {
					continue
				}
				if IsLikelyArticleURL(full) {
					seen[full] = struct{}{}
				}
			}
		}
	}

	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	d.logger.Info("discovered candidate links", "url", pageURL, "count", len(urls))
	return urls, nil
}

// resolve joins href against the page URL and drops fragments and
// non-HTTP schemes.
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}

// IsLikelyArticleURL reports whether a URL plausibly points at an
// article. Deny fragments are checked first, then positive path hints,
// then date-shaped paths, then slug-shaped final segments.
func IsLikelyArticleURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, frag := range skipFragments {
		if strings.Contains(lower, frag) {
			return false
		}
	}
	for _, frag := range allowFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	if datePathRe.MatchString(rawURL) {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Path == "" || u.Path == "/" {
		return false
	}
	return slugPathRe.MatchString(u.Path)
}
