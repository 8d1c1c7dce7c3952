package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tobyhearn/newshound/internal/config"
	"github.com/tobyhearn/newshound/internal/extract"
	"github.com/tobyhearn/newshound/internal/observability"
	"github.com/tobyhearn/newshound/internal/types"
)

// summaryFallback is stored when the backend returns an empty summary.
const summaryFallback = "Summary generation failed"

// Orchestrator drives the crawl pipeline: discovery, fetching,
// extraction, validation, persistence, and enrichment. Failures are
// contained at the per-candidate boundary; a sweep always runs to
// completion and reports partial results.
type Orchestrator struct {
	cfg      *config.CrawlerConfig
	fetch    pageFetcher
	discover linkDiscoverer
	extract  articleExtractor
	store    Storage
	enrich   Enrichment
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New wires the pipeline components into an orchestrator. metrics may
// be nil.
func New(
	cfg *config.CrawlerConfig,
	fetch pageFetcher,
	discover linkDiscoverer,
	extractor articleExtractor,
	store Storage,
	enrich Enrichment,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		fetch:    fetch,
		discover: discover,
		extract:  extractor,
		store:    store,
		enrich:   enrich,
		metrics:  metrics,
		logger:   logger.With("component", "orchestrator"),
	}
}

// RunCrawl sweeps every active source registration. Per-source and
// per-candidate failures are logged and recorded in the summary's
// error list; only a storage failure listing the sources aborts the
// sweep.
func (o *Orchestrator) RunCrawl(ctx context.Context) (*types.RunSummary, error) {
	summary := &types.RunSummary{Errors: []string{}}

	sources, err := o.store.ListActiveSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	if len(sources) == 0 {
		return summary, types.ErrNoSources
	}

	summary.TotalURLs = len(sources)
	o.logger.Info("starting crawl sweep", "sources", len(sources))

	// URLs already handled this sweep; two sources listing the same
	// article only cost one existence check.
	seen := make(map[string]struct{})

	for _, src := range sources {
		if err := o.processSource(ctx, src, seen, summary); err != nil {
			msg := fmt.Sprintf("Error processing %s: %v", src.URL, err)
			o.logger.Error("source processing failed", "url", src.URL, "error", err)
			summary.Errors = append(summary.Errors, msg)
		}
	}

	o.logger.Info("crawl sweep complete",
		"new", summary.NewArticles,
		"existing", summary.ExistingArticles,
		"failed", summary.FailedExtractions,
		"errors", len(summary.Errors),
	)
	return summary, nil
}

// processSource fetches one registered index page, discovers candidate
// article URLs, and ingests each. A fetch failure of the index page is
// fatal to this source only.
func (o *Orchestrator) processSource(ctx context.Context, src types.Source, seen map[string]struct{}, summary *types.RunSummary) error {
	resp, err := o.fetch.Get(ctx, src.URL)
	if err != nil {
		return fmt.Errorf("fetching index page: %w", err)
	}

	candidates := o.discover.Discover(src.URL, resp.Header.Get("Content-Type"), resp.Body)
	if o.cfg.MaxArticlesPerPage > 0 && len(candidates) > o.cfg.MaxArticlesPerPage {
		candidates = candidates[:o.cfg.MaxArticlesPerPage]
	}

	o.logger.Info("processing source", "url", src.URL, "candidates", len(candidates))

	for _, candidate := range candidates {
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}

		if err := o.ingest(ctx, candidate, src.ExtractTopics, src.ExtractCompanies, summary); err != nil {
			summary.FailedExtractions++
			summary.Errors = append(summary.Errors,
				fmt.Sprintf("Error processing article %s: %v", candidate, err))
			o.logger.Warn("candidate failed", "url", candidate, "error", err)
		}
	}
	return nil
}

// ingest runs the per-candidate pipeline: dedup, fetch, extract,
// validate, persist, enrich. Errors returned from here are counted and
// recorded by the caller; enrichment problems after persistence are
// absorbed instead.
func (o *Orchestrator) ingest(ctx context.Context, rawURL string, extractTopics, extractCompanies bool, summary *types.RunSummary) error {
	exists, err := o.store.ArticleExists(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("existence check: %w", err)
	}
	if exists {
		o.logger.Debug("article already known", "url", rawURL)
		summary.ExistingArticles++
		if o.metrics != nil {
			o.metrics.ArticlesSkipped.Add(1)
		}
		return nil
	}

	resp, err := o.fetch.Get(ctx, rawURL)
	if err != nil {
		return err
	}

	article := o.extract.Extract(rawURL, resp.Body)
	if err := extract.Validate(article); err != nil {
		if o.metrics != nil {
			o.metrics.ValidationsFailed.Add(1)
		}
		return &types.ExtractionError{URL: rawURL, Err: err}
	}

	id, err := o.store.InsertArticle(ctx, article)
	if err != nil {
		if errors.Is(err, types.ErrAlreadyExists) {
			// Lost an insert race; same outcome as the existence check.
			summary.ExistingArticles++
			if o.metrics != nil {
				o.metrics.ArticlesSkipped.Add(1)
			}
			return nil
		}
		return fmt.Errorf("persisting article: %w", err)
	}

	summary.NewArticles++
	if o.metrics != nil {
		o.metrics.ArticlesIngested.Add(1)
	}
	o.logger.Info("article ingested", "id", id, "url", rawURL, "title", article.Title)

	// The article is persisted; everything below degrades gracefully.
	if article.HasContent() {
		o.summarize(ctx, id, article)
		if extractTopics && o.cfg.ExtractTopics {
			o.applyTopics(ctx, id, article, summary, nil)
		}
		if extractCompanies && o.cfg.ExtractCompanies {
			o.applyCompanies(ctx, id, article, summary, nil)
		}
	}
	return nil
}

// ProcessURL ingests exactly one caller-supplied URL and returns a
// per-call result. Success reflects persistence only: once the article
// is stored, later enrichment failures leave Success true with
// whatever topic and company names were applied.
func (o *Orchestrator) ProcessURL(ctx context.Context, rawURL string, extractTopics, extractCompanies bool) *types.URLResult {
	result := &types.URLResult{
		URL:       rawURL,
		Topics:    []string{},
		Companies: []string{},
	}

	exists, err := o.store.ArticleExists(ctx, rawURL)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if exists {
		result.Error = "Article already exists"
		return result
	}

	resp, err := o.fetch.Get(ctx, rawURL)
	if err != nil {
		result.Error = fmt.Sprintf("Content extraction failed: %v", err)
		return result
	}

	article := o.extract.Extract(rawURL, resp.Body)
	if err := extract.Validate(article); err != nil {
		if o.metrics != nil {
			o.metrics.ValidationsFailed.Add(1)
		}
		result.Error = types.ErrInvalidArticle.Error()
		return result
	}

	id, err := o.store.InsertArticle(ctx, article)
	if err != nil {
		if errors.Is(err, types.ErrAlreadyExists) {
			result.Error = "Article already exists"
		} else {
			result.Error = err.Error()
		}
		return result
	}

	result.ArticleID = id
	result.Success = true
	if o.metrics != nil {
		o.metrics.ArticlesIngested.Add(1)
	}

	if article.HasContent() {
		o.summarize(ctx, id, article)
		if extractTopics {
			result.Topics = o.applyTopics(ctx, id, article, nil, result.Topics)
		}
		if extractCompanies {
			result.Companies = o.applyCompanies(ctx, id, article, nil, result.Companies)
		}
	}
	return result
}

// summarize requests a summary and stores it, substituting the
// fallback literal for empty or failed generations. Never fails the
// caller.
func (o *Orchestrator) summarize(ctx context.Context, articleID int64, article *types.Article) {
	if o.metrics != nil {
		o.metrics.EnrichmentCalls.Add(1)
	}
	text, err := o.enrich.Summarize(ctx, article.Content, article.Title)
	if err != nil || strings.TrimSpace(text) == "" {
		if o.metrics != nil {
			o.metrics.EnrichmentFailures.Add(1)
		}
		o.logger.Warn("summary generation failed", "article_id", articleID, "error", err)
		text = summaryFallback
	}
	if err := o.store.UpdateArticleSummary(ctx, articleID, text); err != nil {
		o.logger.Error("storing summary failed", "article_id", articleID, "error", err)
	}
}

// applyTopics extracts topic names and links each to the article,
// creating unseen topics. Appends applied names to applied (which may
// be nil) and returns it. summary may be nil on the single-URL path.
func (o *Orchestrator) applyTopics(ctx context.Context, articleID int64, article *types.Article, summary *types.RunSummary, applied []string) []string {
	names, err := o.enrich.ExtractTopics(ctx, article.Content, article.Title)
	if err != nil {
		o.logger.Warn("topic extraction failed", "article_id", articleID, "error", err)
		if o.metrics != nil {
			o.metrics.EnrichmentFailures.Add(1)
		}
		return applied
	}

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		topicID, created, err := o.topicID(ctx, name)
		if err != nil {
			o.logger.Warn("topic lookup failed", "topic", name, "error", err)
			continue
		}
		if created && summary != nil {
			summary.TopicsAdded++
		}
		if err := o.store.LinkArticleTopic(ctx, articleID, topicID, 1.0); err != nil {
			o.logger.Warn("topic link failed", "article_id", articleID, "topic", name, "error", err)
			continue
		}
		if o.metrics != nil {
			o.metrics.TopicsLinked.Add(1)
		}
		applied = append(applied, name)
	}
	return applied
}

// topicID looks up or creates a topic, tolerating a concurrent create.
func (o *Orchestrator) topicID(ctx context.Context, name string) (int64, bool, error) {
	topic, err := o.store.TopicByName(ctx, name)
	if err != nil {
		return 0, false, err
	}
	if topic != nil {
		return topic.ID, false, nil
	}

	id, err := o.store.InsertTopic(ctx, name)
	if errors.Is(err, types.ErrAlreadyExists) {
		topic, lerr := o.store.TopicByName(ctx, name)
		if lerr != nil || topic == nil {
			return 0, false, fmt.Errorf("topic %q vanished after conflict: %w", name, lerr)
		}
		return topic.ID, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	o.logger.Info("topic created", "name", name)
	return id, true, nil
}

// applyCompanies mirrors applyTopics for companies, additionally
// running a best-effort research pass on first sighting.
func (o *Orchestrator) applyCompanies(ctx context.Context, articleID int64, article *types.Article, summary *types.RunSummary, applied []string) []string {
	names, err := o.enrich.ExtractCompanies(ctx, article.Content, article.Title)
	if err != nil {
		o.logger.Warn("company extraction failed", "article_id", articleID, "error", err)
		if o.metrics != nil {
			o.metrics.EnrichmentFailures.Add(1)
		}
		return applied
	}

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		companyID, created, err := o.companyID(ctx, name)
		if err != nil {
			o.logger.Warn("company lookup failed", "company", name, "error", err)
			continue
		}
		if created && summary != nil {
			summary.CompaniesAdded++
		}
		if err := o.store.LinkArticleCompany(ctx, articleID, companyID, 1.0); err != nil {
			o.logger.Warn("company link failed", "article_id", articleID, "company", name, "error", err)
			continue
		}
		if o.metrics != nil {
			o.metrics.CompaniesLinked.Add(1)
		}
		applied = append(applied, name)
	}
	return applied
}

// companyID looks up or creates a company. New companies get one
// research attempt; an empty profile is stored rather than blocking
// the link.
func (o *Orchestrator) companyID(ctx context.Context, name string) (int64, bool, error) {
	company, err := o.store.CompanyByName(ctx, name)
	if err != nil {
		return 0, false, err
	}
	if company != nil {
		return company.ID, false, nil
	}

	profile, err := o.enrich.ResearchCompany(ctx, name)
	if err != nil {
		o.logger.Warn("company research failed", "company", name, "error", err)
		profile = &types.CompanyProfile{}
	}
	if profile == nil {
		profile = &types.CompanyProfile{}
	}

	record := &types.Company{
		Name:          name,
		WebsiteURL:    profile.WebsiteURL,
		Summary:       profile.Summary,
		FoundedYear:   profile.FoundedYear,
		EmployeeCount: profile.EmployeeCount,
	}
	if record.EmployeeCount == "" {
		record.EmployeeCount = "Unknown"
	}

	id, err := o.store.InsertCompany(ctx, record)
	if errors.Is(err, types.ErrAlreadyExists) {
		company, lerr := o.store.CompanyByName(ctx, name)
		if lerr != nil || company == nil {
			return 0, false, fmt.Errorf("company %q vanished after conflict: %w", name, lerr)
		}
		return company.ID, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	o.logger.Info("company created", "name", name)
	return id, true, nil
}
