// Package storage provides the persistence backends behind the crawl
// pipeline: PostgreSQL as the primary relational store and MongoDB as
// a document-store alternative. Both report duplicate inserts as
// types.ErrAlreadyExists so the orchestrator treats insert races
// uniformly.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tobyhearn/newshound/internal/config"
	"github.com/tobyhearn/newshound/internal/crawl"
	"github.com/tobyhearn/newshound/internal/types"
)

// Store is the full backend surface: the crawl boundary plus source
// registration, the research helpers, and lifecycle.
type Store interface {
	crawl.Storage

	AddSource(ctx context.Context, src *types.Source) (int64, error)
	ListCompanies(ctx context.Context) ([]types.Company, error)
	UpdateCompanyProfile(ctx context.Context, companyID int64, profile *types.CompanyProfile) error

	Close() error
}

var (
	_ Store = (*Postgres)(nil)
	_ Store = (*Mongo)(nil)
)

// Open connects the backend selected by config.
func Open(ctx context.Context, cfg *config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "postgres":
		return NewPostgres(ctx, cfg.DSN, logger)
	case "mongodb":
		return NewMongo(ctx, cfg.MongoURI, cfg.Database, logger)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
