package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tobyhearn/newshound/internal/types"
)

// Mongo implements the crawl storage boundary on MongoDB. Numeric ids
// come from a counters collection so article and entity ids stay
// compatible with the relational backend.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// NewMongo connects, verifies the connection, and ensures the unique
// indexes that back deduplication.
func NewMongo(ctx context.Context, uri, database string, logger *slog.Logger) (*Mongo, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "connect", Err: err}
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "ping", Err: err}
	}

	m := &Mongo{
		client: client,
		db:     client.Database(database),
		logger: logger.With("component", "mongo_storage"),
	}
	if err := m.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := []struct {
		coll string
		keys bson.D
	}{
		{"articles", bson.D{{Key: "url", Value: 1}}},
		{"topics", bson.D{{Key: "name", Value: 1}}},
		{"companies", bson.D{{Key: "name", Value: 1}}},
		{"crawl_registry", bson.D{{Key: "url", Value: 1}}},
		{"article_topics", bson.D{{Key: "article_id", Value: 1}, {Key: "topic_id", Value: 1}}},
		{"article_companies", bson.D{{Key: "article_id", Value: 1}, {Key: "company_id", Value: 1}}},
	}
	for _, idx := range indexes {
		_, err := m.db.Collection(idx.coll).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    idx.keys,
			Options: unique,
		})
		if err != nil {
			return &types.StorageError{Backend: "mongodb", Op: fmt.Sprintf("index %s", idx.coll), Err: err}
		}
	}
	return nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// nextID increments and returns a named sequence.
func (m *Mongo) nextID(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Value int64 `bson:"value"`
	}
	err := m.db.Collection("counters").FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, &types.StorageError{Backend: "mongodb", Op: "next id", Err: err}
	}
	return counter.Value, nil
}

func (m *Mongo) ListActiveSources(ctx context.Context) ([]types.Source, error) {
	cur, err := m.db.Collection("crawl_registry").Find(ctx, bson.M{"active": true},
		options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "list sources", Err: err}
	}
	defer cur.Close(ctx)

	var sources []types.Source
	for cur.Next(ctx) {
		var doc struct {
			ID               int64     `bson:"id"`
			URL              string    `bson:"url"`
			ExtractTopics    bool      `bson:"extract_topics"`
			ExtractCompanies bool      `bson:"extract_companies"`
			Active           bool      `bson:"active"`
			CreatedAt        time.Time `bson:"created_at"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, &types.StorageError{Backend: "mongodb", Op: "decode source", Err: err}
		}
		sources = append(sources, types.Source{
			ID:               doc.ID,
			URL:              doc.URL,
			ExtractTopics:    doc.ExtractTopics,
			ExtractCompanies: doc.ExtractCompanies,
			Active:           doc.Active,
			CreatedAt:        doc.CreatedAt,
		})
	}
	return sources, cur.Err()
}

func (m *Mongo) ArticleExists(ctx context.Context, url string) (bool, error) {
	err := m.db.Collection("articles").FindOne(ctx, bson.M{"url": url},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, &types.StorageError{Backend: "mongodb", Op: "article exists", Err: err}
	}
	return true, nil
}

func (m *Mongo) InsertArticle(ctx context.Context, a *types.Article) (int64, error) {
	id, err := m.nextID(ctx, "articles")
	if err != nil {
		return 0, err
	}

	doc := bson.M{
		"article_id":  id,
		"url":         a.URL,
		"title":       a.Title,
		"author":      a.Author,
		"description": a.Description,
		"crawl_date":  a.CrawledAt,
		"summary":     a.Summary,
		"content":     a.Content,
	}
	if a.PublishedAt != nil {
		doc["publication_date"] = *a.PublishedAt
	}

	if _, err := m.db.Collection("articles").InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, types.ErrAlreadyExists
		}
		return 0, &types.StorageError{Backend: "mongodb", Op: "insert article", Err: err}
	}
	return id, nil
}

func (m *Mongo) UpdateArticleSummary(ctx context.Context, articleID int64, summary string) error {
	_, err := m.db.Collection("articles").UpdateOne(ctx,
		bson.M{"article_id": articleID},
		bson.M{"$set": bson.M{"summary": summary}})
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Op: "update summary", Err: err}
	}
	return nil
}

func (m *Mongo) TopicByName(ctx context.Context, name string) (*types.Topic, error) {
	var doc struct {
		TopicID   int64     `bson:"topic_id"`
		Name      string    `bson:"name"`
		CreatedAt time.Time `bson:"created_at"`
	}
	err := m.db.Collection("topics").FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "topic by name", Err: err}
	}
	return &types.Topic{ID: doc.TopicID, Name: doc.Name, CreatedAt: doc.CreatedAt}, nil
}

func (m *Mongo) InsertTopic(ctx context.Context, name string) (int64, error) {
	id, err := m.nextID(ctx, "topics")
	if err != nil {
		return 0, err
	}
	_, err = m.db.Collection("topics").InsertOne(ctx, bson.M{
		"topic_id":   id,
		"name":       name,
		"created_at": time.Now().UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, types.ErrAlreadyExists
		}
		return 0, &types.StorageError{Backend: "mongodb", Op: "insert topic", Err: err}
	}
	return id, nil
}

func (m *Mongo) LinkArticleTopic(ctx context.Context, articleID, topicID int64, score float64) error {
	_, err := m.db.Collection("article_topics").UpdateOne(ctx,
		bson.M{"article_id": articleID, "topic_id": topicID},
		bson.M{"$setOnInsert": bson.M{"relevance_score": score}},
		options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return &types.StorageError{Backend: "mongodb", Op: "link topic", Err: err}
	}
	return nil
}

func (m *Mongo) CompanyByName(ctx context.Context, name string) (*types.Company, error) {
	var doc struct {
		CompanyID     int64     `bson:"company_id"`
		Name          string    `bson:"name"`
		WebsiteURL    string    `bson:"website_url"`
		Summary       string    `bson:"summary"`
		FoundedYear   int       `bson:"founded_year"`
		EmployeeCount string    `bson:"employee_count"`
		CreatedAt     time.Time `bson:"created_at"`
	}
	err := m.db.Collection("companies").FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "company by name", Err: err}
	}
	return &types.Company{
		ID:            doc.CompanyID,
		Name:          doc.Name,
		WebsiteURL:    doc.WebsiteURL,
		Summary:       doc.Summary,
		FoundedYear:   doc.FoundedYear,
		EmployeeCount: doc.EmployeeCount,
		CreatedAt:     doc.CreatedAt,
	}, nil
}

func (m *Mongo) InsertCompany(ctx context.Context, c *types.Company) (int64, error) {
	id, err := m.nextID(ctx, "companies")
	if err != nil {
		return 0, err
	}
	_, err = m.db.Collection("companies").InsertOne(ctx, bson.M{
		"company_id":     id,
		"name":           c.Name,
		"website_url":    c.WebsiteURL,
		"summary":        c.Summary,
		"founded_year":   c.FoundedYear,
		"employee_count": c.EmployeeCount,
		"created_at":     time.Now().UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, types.ErrAlreadyExists
		}
		return 0, &types.StorageError{Backend: "mongodb", Op: "insert company", Err: err}
	}
	return id, nil
}

func (m *Mongo) LinkArticleCompany(ctx context.Context, articleID, companyID int64, score float64) error {
	_, err := m.db.Collection("article_companies").UpdateOne(ctx,
		bson.M{"article_id": articleID, "company_id": companyID},
		bson.M{"$setOnInsert": bson.M{"relevance_score": score}},
		options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return &types.StorageError{Backend: "mongodb", Op: "link company", Err: err}
	}
	return nil
}

// ListCompanies returns every known company, for the research backfill
// pass.
func (m *Mongo) ListCompanies(ctx context.Context) ([]types.Company, error) {
	cur, err := m.db.Collection("companies").Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "company_id", Value: 1}}))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "list companies", Err: err}
	}
	defer cur.Close(ctx)

	var companies []types.Company
	for cur.Next(ctx) {
		var doc struct {
			CompanyID     int64     `bson:"company_id"`
			Name          string    `bson:"name"`
			WebsiteURL    string    `bson:"website_url"`
			Summary       string    `bson:"summary"`
			FoundedYear   int       `bson:"founded_year"`
			EmployeeCount string    `bson:"employee_count"`
			CreatedAt     time.Time `bson:"created_at"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, &types.StorageError{Backend: "mongodb", Op: "decode company", Err: err}
		}
		companies = append(companies, types.Company{
			ID:            doc.CompanyID,
			Name:          doc.Name,
			WebsiteURL:    doc.WebsiteURL,
			Summary:       doc.Summary,
			FoundedYear:   doc.FoundedYear,
			EmployeeCount: doc.EmployeeCount,
			CreatedAt:     doc.CreatedAt,
		})
	}
	return companies, cur.Err()
}

// UpdateCompanyProfile overwrites the researched profile fields of a
// company.
func (m *Mongo) UpdateCompanyProfile(ctx context.Context, companyID int64, profile *types.CompanyProfile) error {
	_, err := m.db.Collection("companies").UpdateOne(ctx,
		bson.M{"company_id": companyID},
		bson.M{"$set": bson.M{
			"website_url":    profile.WebsiteURL,
			"summary":        profile.Summary,
			"founded_year":   profile.FoundedYear,
			"employee_count": profile.EmployeeCount,
		}})
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Op: "update company profile", Err: err}
	}
	return nil
}

// AddSource registers a new crawl source.
func (m *Mongo) AddSource(ctx context.Context, src *types.Source) (int64, error) {
	id, err := m.nextID(ctx, "crawl_registry")
	if err != nil {
		return 0, err
	}
	_, err = m.db.Collection("crawl_registry").InsertOne(ctx, bson.M{
		"id":                id,
		"url":               src.URL,
		"extract_topics":    src.ExtractTopics,
		"extract_companies": src.ExtractCompanies,
		"active":            src.Active,
		"created_at":        time.Now().UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, types.ErrAlreadyExists
		}
		return 0, &types.StorageError{Backend: "mongodb", Op: "add source", Err: err}
	}
	return id, nil
}
