package postgres

import (
	"context"
	"time"

	"github.com/Prot0type/portfolio-website/config"
	"github.com/Prot0type/portfolio-website/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory owns the connection pool behind the postgres repositories
type RepositoryFactory struct {
	db      *DB
	timeout time.Duration
	logger  *zap.Logger
}

// NewRepositoryFactory opens the database described by cfg
func NewRepositoryFactory(cfg config.StorageConfig, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	return &RepositoryFactory{db: db, timeout: cfg.Timeout, logger: logger}, nil
}

// InitSchema creates the project table when it is missing
func (f *RepositoryFactory) InitSchema(ctx context.Context) error {
	return f.db.InitSchema(ctx)
}

// NewRepositories creates all repository instances
func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Projects: NewProjectRepository(f.db, f.timeout, f.logger),
	}
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
