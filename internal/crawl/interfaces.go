package crawl

import (
	"context"

	"github.com/tobyhearn/newshound/internal/fetcher"
	"github.com/tobyhearn/newshound/internal/types"
)

// Storage is the persistence boundary the orchestrator writes through.
// Implementations must report duplicate inserts as
// types.ErrAlreadyExists so the orchestrator can treat insert races the
// same as a prior existence check.
type Storage interface {
	ListActiveSources(ctx context.Context) ([]types.Source, error)

	ArticleExists(ctx context.Context, url string) (bool, error)
	InsertArticle(ctx context.Context, article *types.Article) (int64, error)
	UpdateArticleSummary(ctx context.Context, articleID int64, summary string) error

	TopicByName(ctx context.Context, name string) (*types.Topic, error)
	InsertTopic(ctx context.Context, name string) (int64, error)
	LinkArticleTopic(ctx context.Context, articleID, topicID int64, score float64) error

	CompanyByName(ctx context.Context, name string) (*types.Company, error)
	InsertCompany(ctx context.Context, company *types.Company) (int64, error)
	LinkArticleCompany(ctx context.Context, articleID, companyID int64, score float64) error
}

// Enrichment is the language-model boundary. An empty Summarize result
// signals failure without an error; the orchestrator substitutes a
// placeholder. All methods are best-effort from the orchestrator's
// point of view.
type Enrichment interface {
	Summarize(ctx context.Context, content, title string) (string, error)
	ExtractTopics(ctx context.Context, content, title string) ([]string, error)
	ExtractCompanies(ctx context.Context, content, title string) ([]string, error)
	ResearchCompany(ctx context.Context, name string) (*types.CompanyProfile, error)
}

// pageFetcher, linkDiscoverer, and articleExtractor narrow the
// pipeline components to what the orchestrator calls, so tests can
// substitute fakes.
type pageFetcher interface {
	Get(ctx context.Context, rawURL string) (*fetcher.Response, error)
}

type linkDiscoverer interface {
	Discover(pageURL, contentType string, body []byte) []string
}

type articleExtractor interface {
	Extract(rawURL string, body []byte) *types.Article
}
