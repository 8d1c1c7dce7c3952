package types

import (
	"strings"
	"time"
)

// Source is an operator-registered seed URL that the sweep visits.
// Sources are managed externally; the crawler only reads them.
type Source struct {
	ID               int64     `db:"id" json:"id"`
	URL              string    `db:"url" json:"url"`
	ExtractTopics    bool      `db:"extract_topics" json:"extract_topics"`
	ExtractCompanies bool      `db:"extract_companies" json:"extract_companies"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Article is one ingested article record. The URL is the sole
// deduplication key: once a URL exists in storage it is never
// re-ingested, even if the upstream content changes.
type Article struct {
	ID          int64      `db:"article_id" json:"article_id"`
	URL         string     `db:"url" json:"url"`
	Title       string     `db:"title" json:"title"`
	Author      string     `db:"author" json:"author,omitempty"`
	Description string     `db:"description" json:"description,omitempty"`
	PublishedAt *time.Time `db:"publication_date" json:"publication_date,omitempty"`
	CrawledAt   time.Time  `db:"crawl_date" json:"crawl_date"`
	Summary     string     `db:"summary" json:"summary,omitempty"`
	Content     string     `db:"content" json:"content,omitempty"`
}

// HasContent reports whether the article carries usable body text.
func (a *Article) HasContent() bool {
	return strings.TrimSpace(a.Content) != ""
}

// Topic is a short keyword tag, unique by name.
type Topic struct {
	ID        int64     `db:"topic_id" json:"topic_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Company is a name-keyed entity with an optional researched profile.
// Profile fields are back-filled best-effort and may stay empty.
type Company struct {
	ID            int64     `db:"company_id" json:"company_id"`
	Name          string    `db:"name" json:"name"`
	WebsiteURL    string    `db:"website_url" json:"website_url,omitempty"`
	Summary       string    `db:"summary" json:"summary,omitempty"`
	FoundedYear   int       `db:"founded_year" json:"founded_year,omitempty"`
	EmployeeCount string    `db:"employee_count" json:"employee_count,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// CompanyProfile is the result of a best-effort research pass.
// Missing fields are zero values, never fabricated placeholders.
type CompanyProfile struct {
	WebsiteURL    string `json:"website_url,omitempty"`
	Summary       string `json:"summary,omitempty"`
	FoundedYear   int    `json:"founded_year,omitempty"`
	EmployeeCount string `json:"employee_count,omitempty"`
}

// Merge fills empty fields of p from other, preferring the longer summary.
func (p *CompanyProfile) Merge(other *CompanyProfile) {
	if other == nil {
		return
	}
	if len(other.Summary) > len(p.Summary) {
		p.Summary = other.Summary
	}
	if p.WebsiteURL == "" {
		p.WebsiteURL = other.WebsiteURL
	}
	if p.FoundedYear == 0 {
		p.FoundedYear = other.FoundedYear
	}
	if p.EmployeeCount == "" {
		p.EmployeeCount = other.EmployeeCount
	}
}

// Theme is an AI-identified recurring narrative across articles in a
// time window, distinct from a Topic.
type Theme struct {
	Name                string           `json:"name"`
	Explanation         string           `json:"explanation,omitempty"`
	Insights            string           `json:"insights,omitempty"`
	RelatedArticleCount int              `json:"related_article_count"`
	RelatedArticles     []RelatedArticle `json:"related_articles,omitempty"`
}

// RelatedArticle is a keyword-matched reference from a theme to an article.
type RelatedArticle struct {
	ArticleID   int64      `json:"article_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"publication_date,omitempty"`
	MatchScore  int        `json:"match_score"`
}

// RunSummary aggregates one orchestration pass. It is returned to the
// caller and never persisted.
type RunSummary struct {
	TotalURLs         int      `json:"total_urls"`
	NewArticles       int      `json:"new_articles"`
	ExistingArticles  int      `json:"existing_articles"`
	FailedExtractions int      `json:"failed_extractions"`
	TopicsAdded       int      `json:"topics_added"`
	CompaniesAdded    int      `json:"companies_added"`
	Errors            []string `json:"errors"`
}

// URLResult is the richer per-call result of single-URL ingestion.
// Success stays true once persistence succeeded, even if later
// enrichment steps failed.
type URLResult struct {
	URL       string   `json:"url"`
	Success   bool     `json:"success"`
	ArticleID int64    `json:"article_id,omitempty"`
	Topics    []string `json:"topics"`
	Companies []string `json:"companies"`
	Error     string   `json:"error,omitempty"`
}

// ResearchSummary aggregates one company-research backfill pass.
type ResearchSummary struct {
	TotalCompanies      int      `json:"total_companies"`
	ResearchedCompanies int      `json:"researched_companies"`
	UpdatedCompanies    int      `json:"updated_companies"`
	FailedCompanies     int      `json:"failed_companies"`
	Errors              []string `json:"errors"`
}

// TrendingReport is the outcome of a trending-theme analysis window.
type TrendingReport struct {
	Days         int           `json:"days"`
	ArticleCount int           `json:"article_count"`
	TopTopics    []EntityTrend `json:"top_topics"`
	TopCompanies []EntityTrend `json:"top_companies"`
	Themes       []Theme       `json:"themes"`
	GeneratedAt  time.Time     `json:"generated_at"`
}

// EntityTrend is an entity ranked by article count within a window.
type EntityTrend struct {
	Name         string `json:"name"`
	ArticleCount int    `json:"article_count"`
}
