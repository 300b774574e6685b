package repositories

import (
	"context"
	"errors"

	"github.com/Prot0type/portfolio-website/models"
)

var (
	// ErrDuplicateID is returned by Create when the project id is already taken
	ErrDuplicateID = errors.New("project id already exists")

	// ErrConcurrentUpdate is returned by Update when the record kept changing underneath it
	ErrConcurrentUpdate = errors.New("concurrent update detected")
)

// ProjectRepository handles project data operations.
// Every implementation hands out copies; callers never hold references into store state.
type ProjectRepository interface {
	// List returns the records matching filter, ordered by SortProjects
	List(ctx context.Context, filter models.StatusFilter) ([]*models.ProjectRecord, error)

	// Get retrieves a record by id. A missing record is found=false, not an error.
	Get(ctx context.Context, id string) (*models.ProjectRecord, bool, error)

	// Create stamps created_at and updated_at and stores the record.
	// Returns ErrDuplicateID if the id already exists.
	Create(ctx context.Context, record *models.ProjectRecord) (*models.ProjectRecord, error)

	// Update merges the fields present in patch onto the stored record.
	// A missing record is found=false. The merge is applied entirely or not at all.
	Update(ctx context.Context, id string, patch *models.ProjectPatch) (*models.ProjectRecord, bool, error)

	// Delete removes a record and reports whether this call removed it.
	// Among concurrent deletes of one existing id exactly one returns true.
	Delete(ctx context.Context, id string) (bool, error)
}

// HealthChecker is implemented by stores that can report backend reachability
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	Commit() error
	Rollback() error
	Context() context.Context
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Projects ProjectRepository
}
