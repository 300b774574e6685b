// Package memory provides an in-process ProjectRepository for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Prot0type/portfolio-website/models"
	"github.com/Prot0type/portfolio-website/repositories"
	"go.uber.org/zap"
)

// ProjectRepository implements repositories.ProjectRepository over a map keyed by project id.
// Mutations are serialized by one store-wide lock.
type ProjectRepository struct {
	mu     sync.RWMutex
	items  map[string]*models.ProjectRecord
	now    func() time.Time
	logger *zap.Logger
}

// NewProjectRepository creates an empty in-memory project repository
func NewProjectRepository(logger *zap.Logger) *ProjectRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectRepository{
		items:  make(map[string]*models.ProjectRecord),
		now:    repositories.Now,
		logger: logger,
	}
}

// List returns copies of the records matching filter in listing order
func (r *ProjectRepository) List(ctx context.Context, filter models.StatusFilter) ([]*models.ProjectRecord, error) {
	r.mu.RLock()
	records := make([]*models.ProjectRecord, 0, len(r.items))
	for _, item := range r.items {
		if filter.Matches(item.Status) {
			records = append(records, item.Clone())
		}
	}
	r.mu.RUnlock()

	repositories.SortProjects(records)
	return records, nil
}

// Get retrieves a copy of the record with the given id
func (r *ProjectRepository) Get(ctx context.Context, id string) (*models.ProjectRecord, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, false, nil
	}
	return item.Clone(), true, nil
}

// Create stores a copy of record with fresh timestamps
func (r *ProjectRepository) Create(ctx context.Context, record *models.ProjectRecord) (*models.ProjectRecord, error) {
	stored := record.Clone()
	now := r.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[stored.ProjectID]; exists {
		return nil, fmt.Errorf("%w: %s", repositories.ErrDuplicateID, stored.ProjectID)
	}
	r.items[stored.ProjectID] = stored

	r.logger.Debug("project created", zap.String("project_id", stored.ProjectID))
	return stored.Clone(), nil
}

// Update merges patch onto the stored record under the store lock
func (r *ProjectRepository) Update(ctx context.Context, id string, patch *models.ProjectPatch) (*models.ProjectRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[id]
	if !ok {
		return nil, false, nil
	}

	updated := patch.Apply(existing)
	updated.ProjectID = existing.ProjectID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = repositories.NextUpdatedAt(existing.UpdatedAt, r.now())
	r.items[id] = updated

	r.logger.Debug("project updated", zap.String("project_id", id))
	return updated.Clone(), true, nil
}

// Delete removes the record and reports whether it was present
func (r *ProjectRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)

	r.logger.Debug("project deleted", zap.String("project_id", id))
	return true, nil
}
