// Package trends surfaces trending themes across a trailing window of
// ingested articles: entity rankings straight from storage, plus
// AI-identified narrative themes with keyword-matched article
// references.
package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/tobyhearn/newshound/internal/types"
)

const (
	maxThemes          = 10
	maxRelatedArticles = 5
	maxSampleArticles  = 50
	maxPromptSamples   = 20
	entityLimit        = 10
)

// Store is the query surface the analyzer reads from.
type Store interface {
	ArticlesSince(ctx context.Context, days int) ([]types.Article, error)
	TopTopicsSince(ctx context.Context, days, limit int) ([]types.EntityTrend, error)
	TopCompaniesSince(ctx context.Context, days, limit int) ([]types.EntityTrend, error)
}

// generator abstracts the language-model backend.
type generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Analyzer builds trending reports.
type Analyzer struct {
	store  Store
	gen    generator
	logger *slog.Logger
}

// New creates an analyzer.
func New(store Store, gen generator, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		store:  store,
		gen:    gen,
		logger: logger.With("component", "trends"),
	}
}

// Analyze builds the trending report for the trailing window. An empty
// window yields an empty report, not an error; a failing language
// model degrades to frequency-based themes.
func (a *Analyzer) Analyze(ctx context.Context, days int) (*types.TrendingReport, error) {
	report := &types.TrendingReport{
		Days:         days,
		TopTopics:    []types.EntityTrend{},
		TopCompanies: []types.EntityTrend{},
		Themes:       []types.Theme{},
		GeneratedAt:  time.Now().UTC(),
	}

	articles, err := a.store.ArticlesSince(ctx, days)
	if err != nil {
		return nil, err
	}
	report.ArticleCount = len(articles)
	if len(articles) == 0 {
		a.logger.Warn("no articles in window", "days", days)
		return report, nil
	}

	if topics, err := a.store.TopTopicsSince(ctx, days, entityLimit); err != nil {
		a.logger.Warn("topic ranking failed", "error", err)
	} else if topics != nil {
		report.TopTopics = topics
	}
	if companies, err := a.store.TopCompaniesSince(ctx, days, entityLimit); err != nil {
		a.logger.Warn("company ranking failed", "error", err)
	} else if companies != nil {
		report.TopCompanies = companies
	}

	report.Themes = a.identifyThemes(ctx, articles)
	return report, nil
}

// identifyThemes asks the backend for narrative themes over a sample
// of the window, falling back to word-frequency themes when the
// completion is unusable.
func (a *Analyzer) identifyThemes(ctx context.Context, articles []types.Article) []types.Theme {
	sample := articles
	if len(sample) > maxSampleArticles {
		sample = sample[:maxSampleArticles]
	}

	var samples []string
	for _, art := range sample {
		var b strings.Builder
		if art.Title != "" {
			fmt.Fprintf(&b, "Title: %s\n", art.Title)
		}
		if art.Summary != "" {
			fmt.Fprintf(&b, "Summary: %s...\n", clip(art.Summary, 200))
		} else if art.Description != "" {
			fmt.Fprintf(&b, "Description: %s...\n", clip(art.Description, 200))
		}
		if b.Len() > 0 {
			samples = append(samples, b.String())
		}
	}
	if len(samples) == 0 {
		return []types.Theme{}
	}
	if len(samples) > maxPromptSamples {
		samples = samples[:maxPromptSamples]
	}

	prompt := fmt.Sprintf(`Analyze the following news articles from the last few days and identify the top 10 trending topics or themes.
For each trending topic, provide:
1. Topic name (2-4 words)
2. Brief explanation (1-2 sentences) of why it's trending
3. Key insights or implications

Articles:
%s

Format your response as JSON with this structure:
{
    "trending_topics": [
        {
            "name": "Topic Name",
            "explanation": "Why this is trending...",
            "insights": "Key insights about this trend..."
        }
    ]
}`, strings.Join(samples, "\n---\n"))

	resp, err := a.gen.Generate(ctx, prompt, 1500)
	if err != nil {
		a.logger.Warn("theme analysis failed, using frequency fallback", "error", err)
		return a.frequencyThemes(articles)
	}

	themes, ok := parseThemes(resp)
	if !ok {
		a.logger.Warn("theme completion unparseable, using frequency fallback")
		return a.frequencyThemes(articles)
	}

	for i := range themes {
		related := findRelatedArticles(articles, themes[i].Name)
		themes[i].RelatedArticleCount = len(related)
		if len(related) > maxRelatedArticles {
			related = related[:maxRelatedArticles]
		}
		themes[i].RelatedArticles = related
	}
	return themes
}

func parseThemes(resp string) ([]types.Theme, bool) {
	start := strings.IndexByte(resp, '{')
	end := strings.LastIndexByte(resp, '}')
	if start < 0 || end <= start {
		return nil, false
	}

	var decoded struct {
		TrendingTopics []struct {
			Name        string `json:"name"`
			Explanation string `json:"explanation"`
			Insights    string `json:"insights"`
		} `json:"trending_topics"`
	}
	if err := json.Unmarshal([]byte(resp[start:end+1]), &decoded); err != nil {
		return nil, false
	}
	if len(decoded.TrendingTopics) == 0 {
		return nil, false
	}

	themes := make([]types.Theme, 0, maxThemes)
	for _, t := range decoded.TrendingTopics {
		if strings.TrimSpace(t.Name) == "" {
			continue
		}
		themes = append(themes, types.Theme{
			Name:        strings.TrimSpace(t.Name),
			Explanation: strings.TrimSpace(t.Explanation),
			Insights:    strings.TrimSpace(t.Insights),
		})
		if len(themes) == maxThemes {
			break
		}
	}
	return themes, len(themes) > 0
}

// findRelatedArticles keyword-matches a theme name against titles,
// summaries, and descriptions. An article qualifies when at least half
// the theme's words appear.
func findRelatedArticles(articles []types.Article, themeName string) []types.RelatedArticle {
	keywords := strings.Fields(strings.ToLower(themeName))
	if len(keywords) == 0 {
		return nil
	}
	threshold := len(keywords) / 2
	if threshold < 1 {
		threshold = 1
	}

	var related []types.RelatedArticle
	for _, art := range articles {
		haystack := strings.ToLower(art.Title + " " + art.Summary + " " + art.Description)
		matches := 0
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				matches++
			}
		}
		if matches >= threshold {
			related = append(related, types.RelatedArticle{
				ArticleID:   art.ID,
				Title:       art.Title,
				URL:         art.URL,
				PublishedAt: art.PublishedAt,
				MatchScore:  matches,
			})
		}
	}

	sort.SliceStable(related, func(i, j int) bool {
		if related[i].MatchScore != related[j].MatchScore {
			return related[i].MatchScore > related[j].MatchScore
		}
		return laterDate(related[i].PublishedAt, related[j].PublishedAt)
	})
	return related
}

func laterDate(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}

var wordRe = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"a": {}, "an": {},
}

// frequencyThemes is the degraded path: themes from the most common
// words in titles and summary heads, requiring at least two mentions.
func (a *Analyzer) frequencyThemes(articles []types.Article) []types.Theme {
	var texts []string
	for _, art := range articles {
		if art.Title != "" {
			texts = append(texts, art.Title)
		}
		if art.Summary != "" {
			texts = append(texts, clip(art.Summary, 100))
		}
	}

	counts := make(map[string]int)
	var order []string
	for _, w := range wordRe.FindAllString(strings.ToLower(strings.Join(texts, " ")), -1) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	var themes []types.Theme
	for _, w := range order {
		if len(themes) == maxThemes {
			break
		}
		count := counts[w]
		if count < 2 {
			continue
		}
		related := findRelatedArticles(articles, w)
		theme := types.Theme{
			Name:                titleWord(w),
			Explanation:         fmt.Sprintf("This topic appears frequently (%d times) in recent articles.", count),
			Insights:            fmt.Sprintf("Based on article analysis, %s is mentioned across %d articles.", w, len(related)),
			RelatedArticleCount: len(related),
		}
		if len(related) > maxRelatedArticles {
			related = related[:maxRelatedArticles]
		}
		theme.RelatedArticles = related
		themes = append(themes, theme)
	}
	if themes == nil {
		themes = []types.Theme{}
	}
	return themes
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

func clip(s string, limit int) string {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
