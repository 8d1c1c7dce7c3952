package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tobyhearn/newshound/internal/types"
)

// pqUniqueViolation is the PostgreSQL error code for unique-constraint
// violations.
const pqUniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS crawl_registry (
	id                BIGSERIAL PRIMARY KEY,
	url               TEXT NOT NULL UNIQUE,
	extract_topics    BOOLEAN NOT NULL DEFAULT TRUE,
	extract_companies BOOLEAN NOT NULL DEFAULT TRUE,
	active            BOOLEAN NOT NULL DEFAULT TRUE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS articles (
	article_id       BIGSERIAL PRIMARY KEY,
	url              TEXT NOT NULL UNIQUE,
	title            TEXT NOT NULL,
	author           TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	publication_date TIMESTAMPTZ,
	crawl_date       TIMESTAMPTZ NOT NULL,
	summary          TEXT NOT NULL DEFAULT '',
	content          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS topics (
	topic_id   BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS companies (
	company_id     BIGSERIAL PRIMARY KEY,
	name           TEXT NOT NULL UNIQUE,
	website_url    TEXT NOT NULL DEFAULT '',
	summary        TEXT NOT NULL DEFAULT '',
	founded_year   INTEGER NOT NULL DEFAULT 0,
	employee_count TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS article_topics (
	article_id      BIGINT NOT NULL REFERENCES articles(article_id) ON DELETE CASCADE,
	topic_id        BIGINT NOT NULL REFERENCES topics(topic_id) ON DELETE CASCADE,
	relevance_score DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	PRIMARY KEY (article_id, topic_id)
);

CREATE TABLE IF NOT EXISTS article_companies (
	article_id      BIGINT NOT NULL REFERENCES articles(article_id) ON DELETE CASCADE,
	company_id      BIGINT NOT NULL REFERENCES companies(company_id) ON DELETE CASCADE,
	relevance_score DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	PRIMARY KEY (article_id, company_id)
);

CREATE INDEX IF NOT EXISTS idx_articles_crawl_date ON articles (crawl_date);
`

// Postgres implements the crawl storage boundary plus the query
// surface for the research and trending passes.
type Postgres struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgres connects, verifies the connection, and bootstraps the
// schema.
func NewPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Op: "connect", Err: err}
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, &types.StorageError{Backend: "postgres", Op: "bootstrap schema", Err: err}
	}

	return &Postgres{
		db:     db,
		logger: logger.With("component", "postgres"),
	}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) ListActiveSources(ctx context.Context) ([]types.Source, error) {
	var sources []types.Source
	err := p.db.SelectContext(ctx, &sources,
		`SELECT id, url, extract_topics, extract_companies, active, created_at
		 FROM crawl_registry WHERE active = TRUE ORDER BY id`)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Op: "list sources", Err: err}
	}
	return sources, nil
}

func (p *Postgres) ArticleExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := p.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM articles WHERE url = $1)`, url)
	if err != nil {
		return false, &types.StorageError{Backend: "postgres", Op: "article exists", Err: err}
	}
	return exists, nil
}

func (p *Postgres) InsertArticle(ctx context.Context, a *types.Article) (int64, error) {
	var id int64
	err := p.db.QueryRowxContext(ctx,
		`INSERT INTO articles (url, title, author, description, publication_date, crawl_date, summary, content)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING article_id`,
		a.URL, a.Title, a.Author, a.Description, a.PublishedAt, a.CrawledAt, a.Summary, a.Content,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, types.ErrAlreadyExists
		}
		return 0, &types.StorageError{Backend: "postgres", Op: "insert article", Err: err}
	}
	return id, nil
}

func (p *Postgres) UpdateArticleSummary(ctx context.Context, articleID int64, summary string) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE articles SET summary = $1 WHERE article_id = $2`, summary, articleID)
	if err != nil {
		return &types.StorageError{Backend: "postgres", Op: "update summary", Err: err}
	}
	return nil
}

func (p *Postgres) TopicByName(ctx context.Context, name string) (*types.Topic, error) {
	var topic types.Topic
	err := p.db.GetContext(ctx, &topic,
		`SELECT topic_id, name, created_at FROM topics WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Op: "topic by name", Err: err}
	}
	return &topic, nil
}

func (p *Postgres) InsertTopic(ctx context.Context, name string) (int64, error) {
	var id int64
	err := p.db.QueryRowxContext(ctx,
		`INSERT INTO topics (name) VALUES ($1) RETURNING topic_id`, name).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, types.ErrAlreadyExists
		}
		return 0, &types.StorageError{Backend: "postgres", Op: "insert topic", Err: err}
	}
	return id, nil
}

func (p *Postgres) LinkArticleTopic(ctx context.Context, articleID, topicID int64, score float64) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO article_topics (article_id, topic_id, relevance_score)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (article_id, topic_id) DO NOTHING`,
		articleID, topicID, score)
	if err != nil {
		return &types.StorageError{Backend: "postgres", Op: "link topic", Err: err}
	}
	return nil
}

func (p *Postgres) CompanyByName(ctx context.Context, name string) (*types.Company, error) {
	var company types.Company
	err := p.db.GetContext(ctx, &company,
		`SELECT company_id, name, website_url, summary, founded_year, employee_count, created_at
		 FROM companies WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Op: "company by name", Err: err}
	}
	return &company, nil
}

func (p *Postgres) InsertCompany(ctx context.Context, c *types.Company) (int64, error) {
	var id int64
	err := p.db.QueryRowxContext(ctx,
		`INSERT INTO companies (name, website_url, summary, founded_year, employee_count)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING company_id`,
		c.Name, c.WebsiteURL, c.Summary, c.FoundedYear, c.EmployeeCount).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, types.ErrAlreadyExists
		}
		return 0, &types.StorageError{Backend: "postgres", Op: "insert company", Err: err}
	}
	return id, nil
}

func (p *Postgres) LinkArticleCompany(ctx context.Context, articleID, companyID int64, score float64) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO article_companies (article_id, company_id, relevance_score)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (article_id, company_id) DO NOTHING`,
		articleID, companyID, score)
	if err != nil {
		return &types.StorageError{Backend: "postgres", Op: "link company", Err: err}
	}
	return nil
}

// ListCompanies returns every known company, for the research backfill
// pass.
func (p *Postgres) ListCompanies(ctx context.Context) ([]types.Company, error) {
	var companies []types.Company
	err := p.db.SelectContext(ctx, &companies,
		`SELECT company_id, name, website_url, summary, founded_year, employee_count, created_at
		 FROM companies ORDER BY company_id`)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Op: "list companies", Err: err}
	}
	return companies, nil
}

// UpdateCompanyProfile overwrites the researched profile fields of a
// company.
func (p *Postgres) UpdateCompanyProfile(ctx context.Context, companyID int64, profile *types.CompanyProfile) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE companies
		 SET website_url = $1, summary = $2, founded_year = $3, employee_count = $4
		 WHERE company_id = $5`,
		profile.WebsiteURL, profile.Summary, profile.FoundedYear, profile.EmployeeCount, companyID)
	if err != nil {
		return &types.StorageError{Backend: "postgres", Op: "update company profile", Err: err}
	}
	return nil
}

// ArticlesSince returns articles crawled in the trailing window, most
// recent first.
func (p *Postgres) ArticlesSince(ctx context.Context, days int) ([]types.Article, error) {
	var articles []types.Article
	err := p.db.SelectContext(ctx, &articles,
		`SELECT article_id, url, title, author, description, publication_date, crawl_date, summary, content
		 FROM articles
		 WHERE crawl_date >= now() - make_interval(days => $1)
		 ORDER BY crawl_date DESC`, days)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Op: "articles since", Err: err}
	}
	return articles, nil
}

// TopTopicsSince ranks topics by distinct article count inside the
// window.
func (p *Postgres) TopTopicsSince(ctx context.Context, days, limit int) ([]types.EntityTrend, error) {
	return p.topEntities(ctx, days, limit,
		`SELECT t.name, COUNT(DISTINCT at.article_id) AS article_count
		 FROM topics t
		 JOIN article_topics at ON at.topic_id = t.topic_id
		 JOIN articles a ON a.article_id = at.article_id
		 WHERE a.crawl_date >= now() - make_interval(days => $1)
		 GROUP BY t.name
		 ORDER BY article_count DESC, t.name
		 LIMIT $2`)
}

// TopCompaniesSince ranks companies by distinct article count inside
// the window.
func (p *Postgres) TopCompaniesSince(ctx context.Context, days, limit int) ([]types.EntityTrend, error) {
	return p.topEntities(ctx, days, limit,
		`SELECT c.name, COUNT(DISTINCT ac.article_id) AS article_count
		 FROM companies c
		 JOIN article_companies ac ON ac.company_id = c.company_id
		 JOIN articles a ON a.article_id = ac.article_id
		 WHERE a.crawl_date >= now() - make_interval(days => $1)
		 GROUP BY c.name
		 ORDER BY article_count DESC, c.name
		 LIMIT $2`)
}

func (p *Postgres) topEntities(ctx context.Context, days, limit int, query string) ([]types.EntityTrend, error) {
	rows, err := p.db.QueryxContext(ctx, query, days, limit)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Op: "top entities", Err: err}
	}
	defer rows.Close()

	var trends []types.EntityTrend
	for rows.Next() {
		var t types.EntityTrend
		if err := rows.Scan(&t.Name, &t.ArticleCount); err != nil {
			return nil, &types.StorageError{Backend: "postgres", Op: "scan trend", Err: err}
		}
		trends = append(trends, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StorageError{Backend: "postgres", Op: "top entities", Err: err}
	}
	return trends, nil
}

// AddSource registers a new crawl source.
func (p *Postgres) AddSource(ctx context.Context, src *types.Source) (int64, error) {
	var id int64
	err := p.db.QueryRowxContext(ctx,
		`INSERT INTO crawl_registry (url, extract_topics, extract_companies, active)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		src.URL, src.ExtractTopics, src.ExtractCompanies, src.Active).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, types.ErrAlreadyExists
		}
		return 0, &types.StorageError{Backend: "postgres", Op: "add source", Err: err}
	}
	return id, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
