package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tobyhearn/newshound/internal/fetcher"
	"github.com/tobyhearn/newshound/internal/types"
)

const instantAnswerEndpoint = "https://api.duckduckgo.com/"

// pageFetcher narrows the fetcher to what the lookup needs.
type pageFetcher interface {
	Get(ctx context.Context, rawURL string) (*fetcher.Response, error)
}

// WebLookup locates a company's site via the DuckDuckGo instant-answer
// API and scrapes profile hints from it.
type WebLookup struct {
	fetch  pageFetcher
	logger *slog.Logger
}

// NewWebLookup creates a web lookup backed by the shared fetcher, so
// lookups obey the same pacing as the crawl.
func NewWebLookup(fetch pageFetcher, logger *slog.Logger) *WebLookup {
	return &WebLookup{
		fetch:  fetch,
		logger: logger.With("component", "web_lookup"),
	}
}

// Lookup finds the company site and extracts a description and founded
// year from it. Everything is best-effort; missing pieces stay zero.
func (w *WebLookup) Lookup(ctx context.Context, name string) (*types.CompanyProfile, error) {
	siteURL, err := w.findSite(ctx, name)
	if err != nil {
		return nil, err
	}
	if siteURL == "" {
		return &types.CompanyProfile{}, nil
	}

	profile := &types.CompanyProfile{WebsiteURL: siteURL}

	resp, err := w.fetch.Get(ctx, siteURL)
	if err != nil {
		// The URL alone is still worth keeping.
		w.logger.Warn("company site fetch failed", "company", name, "url", siteURL, "error", err)
		return profile, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return profile, nil
	}

	if desc := extractDescription(doc); desc != "" {
		profile.Summary = desc
	}
	if year := extractFoundedYear(doc); year != 0 {
		profile.FoundedYear = year
	}
	return profile, nil
}

// instantAnswer is the subset of the DuckDuckGo response consulted.
type instantAnswer struct {
	Answer        string `json:"Answer"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

var answerURLRe = regexp.MustCompile(`https?://[^\s<>"]+`)

// findSite queries the instant-answer API for the company's official
// site. Answer URLs win, then the abstract source, then the first
// related topic.
func (w *WebLookup) findSite(ctx context.Context, name string) (string, error) {
	query := url.Values{}
	query.Set("q", name+" official website")
	query.Set("format", "json")
	query.Set("no_html", "1")
	query.Set("skip_disambig", "1")

	resp, err := w.fetch.Get(ctx, instantAnswerEndpoint+"?"+query.Encode())
	if err != nil {
		return "", fmt.Errorf("instant answer query: %w", err)
	}

	var answer instantAnswer
	if err := json.Unmarshal(resp.Body, &answer); err != nil {
		return "", fmt.Errorf("decode instant answer: %w", err)
	}

	if answer.Answer != "" {
		if m := answerURLRe.FindString(answer.Answer); m != "" {
			return m, nil
		}
	}
	if answer.AbstractURL != "" {
		return answer.AbstractURL, nil
	}
	for _, topic := range answer.RelatedTopics {
		if topic.FirstURL != "" {
			return topic.FirstURL, nil
		}
	}
	return "", nil
}

var descriptionSelectors = []string{
	`meta[name="description"]`,
	`meta[property="og:description"]`,
	".company-description",
	".about-description",
	"#about p",
	".hero-description",
	".intro-text",
}

// extractDescription pulls a substantial description off the page,
// capped at 500 characters.
func extractDescription(doc *goquery.Document) string {
	for _, sel := range descriptionSelectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		text, ok := s.Attr("content")
		if !ok {
			text = s.Text()
		}
		text = strings.TrimSpace(text)
		if len(text) > 50 {
			if len(text) > 500 {
				text = text[:500]
			}
			return text
		}
	}
	return ""
}

var foundedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`founded in (\d{4})`),
	regexp.MustCompile(`established in (\d{4})`),
	regexp.MustCompile(`since (\d{4})`),
	regexp.MustCompile(`founded (\d{4})`),
	regexp.MustCompile(`established (\d{4})`),
	regexp.MustCompile(`©\s*(\d{4})`),
}

// extractFoundedYear scans page text for founding-year phrasings, with
// the copyright year as a weak last resort.
func extractFoundedYear(doc *goquery.Document) int {
	text := strings.ToLower(doc.Text())
	maxYear := time.Now().Year()

	for _, re := range foundedPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			year, err := strconv.Atoi(m[1])
			if err == nil && year >= 1800 && year <= maxYear {
				return year
			}
		}
	}
	return 0
}
