package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tobyhearn/newshound/internal/types"
)

const (
	summarizeInputCap = 8000
	taggingInputCap   = 6000
	maxTags           = 5
)

// generator abstracts the backend client so tests can substitute
// canned completions.
type generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Enricher turns raw completions into the typed enrichment results the
// orchestrator consumes: summaries, topic and company tags, and
// company profiles.
type Enricher struct {
	gen    generator
	logger *slog.Logger
}

// NewEnricher wraps a backend client.
func NewEnricher(gen generator, logger *slog.Logger) *Enricher {
	return &Enricher{
		gen:    gen,
		logger: logger.With("component", "enricher"),
	}
}

// Summarize produces a free-text article summary. An empty return with
// nil error means the backend produced nothing usable; the caller
// decides the fallback.
func (e *Enricher) Summarize(ctx context.Context, content, title string) (string, error) {
	prompt := fmt.Sprintf(`Please summarize the following article in 500 words or less. Focus on the key points, main arguments, and important details.

Title: %s

Content:
%s

Summary:`, title, truncate(content, summarizeInputCap))

	resp, err := e.gen.Generate(ctx, prompt, 700)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

// ExtractTopics returns up to five short topic tags for an article.
func (e *Enricher) ExtractTopics(ctx context.Context, content, title string) ([]string, error) {
	prompt := fmt.Sprintf(`Analyze the following article and extract up to 5 main topics. Each topic should be 1-3 words long and represent key subjects discussed in the article.

Return only the topics as a JSON array of strings, like: ["AI", "Machine Learning", "Healthcare", "Technology"]

Title: %s

Content:
%s

Topics:`, title, truncate(content, taggingInputCap))

	resp, err := e.gen.Generate(ctx, prompt, 100)
	if err != nil {
		return nil, err
	}

	// Topic tags are short by contract; the line fallback drops
	// anything longer than three words as prose, not a tag.
	names := parseStringArray(resp, func(s string) bool {
		return len(strings.Fields(s)) <= 3
	})
	if len(names) == 0 {
		e.logger.Warn("no topics parsed from completion", "response", snippet(resp))
	}
	return names, nil
}

// ExtractCompanies returns up to five company names mentioned in an
// article.
func (e *Enricher) ExtractCompanies(ctx context.Context, content, title string) ([]string, error) {
	prompt := fmt.Sprintf(`Analyze the following article and extract up to 5 company names that are mentioned or discussed.
Focus on well-known companies, startups, or organizations that are central to the article's content.

Return only the company names as a JSON array of strings, like: ["Apple", "Google", "Microsoft"]

Title: %s

Content:
%s

Companies:`, title, truncate(content, taggingInputCap))

	resp, err := e.gen.Generate(ctx, prompt, 150)
	if err != nil {
		return nil, err
	}

	names := parseStringArray(resp, nil)
	if len(names) == 0 {
		e.logger.Warn("no companies parsed from completion", "response", snippet(resp))
	}
	return names, nil
}

// ResearchCompany asks the backend for a company profile. Fields the
// backend does not know stay zero; nothing is fabricated. A completion
// that cannot be parsed yields an empty profile, not an error.
func (e *Enricher) ResearchCompany(ctx context.Context, name string) (*types.CompanyProfile, error) {
	prompt := fmt.Sprintf(`Research the company %q and provide information in the following JSON format:
{
    "website_url": "company homepage URL",
    "summary": "brief description of what the company does (2-3 sentences)",
    "founded_year": year_as_integer_or_null,
    "employee_count": "estimated employee count as string (e.g., '1000-5000', '50-100', 'Unknown')"
}

If you cannot find reliable information for any field, use null or "Unknown" as appropriate.
Return only the JSON object, no other text.

Company: %s`, name, name)

	resp, err := e.gen.Generate(ctx, prompt, 300)
	if err != nil {
		return nil, err
	}

	profile, ok := parseCompanyProfile(resp)
	if !ok {
		e.logger.Warn("company profile completion unparseable", "company", name, "response", snippet(resp))
		return &types.CompanyProfile{}, nil
	}
	return profile, nil
}

func truncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
