// File: cmd/store_provider.go
package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archlens/archlens/api/schemas"
	"github.com/archlens/archlens/internal/config"
	"github.com/archlens/archlens/internal/observability"
	"github.com/archlens/archlens/internal/store"
)

// scanStore is the subset of the persistence layer the CLI needs. The
// abstraction exists so command tests can inject a mock instead of a live
// database connection.
type scanStore interface {
	Migrate(ctx context.Context) error
	SaveResult(ctx context.Context, repoPath string, result *schemas.ScanResult) (int64, error)
	GetScan(ctx context.Context, scanID int64) (*schemas.ScanResult, error)
	LatestScan(ctx context.Context, repoID string) (*schemas.ScanResult, error)
	ListScans(ctx context.Context, repoID string) ([]store.ScanSummary, error)
	ListRepositories(ctx context.Context) ([]store.Repository, error)
}

// storeProvider creates a scanStore plus a cleanup function releasing its
// resources.
type storeProvider interface {
	Create(ctx context.Context, cfg *config.Config) (scanStore, func(), error)
}

// defaultStoreProvider is the production implementation. It connects to
// PostgreSQL and applies migrations before handing the store out.
type defaultStoreProvider struct{}

// NewStoreProvider creates the production store provider.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

func (p *defaultStoreProvider) Create(ctx context.Context, cfg *config.Config) (scanStore, func(), error) {
	logger := observability.GetLogger()
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (ARCHLENS_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storeService, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	if err := storeService.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed.")
	}
	return storeService, cleanup, nil
}
