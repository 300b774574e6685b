package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Prot0type/portfolio-website/models"
	"github.com/Prot0type/portfolio-website/repositories"
	"go.uber.org/zap"
)

const defaultQueryTimeout = 5 * time.Second

// ProjectRepository implements repositories.ProjectRepository on PostgreSQL.
// The full record lives in a JSONB payload; the listing columns are kept
// alongside it so that filtering and ordering happen in SQL.
type ProjectRepository struct {
	db      *DB
	txMgr   *TransactionManager
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *DB, timeout time.Duration, logger *zap.Logger) *ProjectRepository {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &ProjectRepository{
		db:      db,
		txMgr:   NewTransactionManager(db, logger),
		timeout: timeout,
		now:     repositories.Now,
		logger:  logger,
	}
}

// List retrieves the records matching filter in listing order
func (r *ProjectRepository) List(ctx context.Context, filter models.StatusFilter) ([]*models.ProjectRecord, error) {
	query := `
		SELECT payload
		FROM project_records
		WHERE ($1 = '' OR status = $1)
		ORDER BY sort_order DESC, project_date DESC, updated_at DESC, project_id ASC
	`

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, string(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	records := []*models.ProjectRecord{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		record, err := decodePayload(payload)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return records, nil
}

// Get retrieves a record by id
func (r *ProjectRepository) Get(ctx context.Context, id string) (*models.ProjectRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.get(ctx, id, `SELECT payload FROM project_records WHERE project_id = $1`)
}

func (r *ProjectRepository) get(ctx context.Context, id, query string) (*models.ProjectRecord, bool, error) {
	var payload []byte
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get project: %w", err)
	}

	record, err := decodePayload(payload)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// Create inserts the record unless its id is already taken
func (r *ProjectRepository) Create(ctx context.Context, record *models.ProjectRecord) (*models.ProjectRecord, error) {
	query := `
		INSERT INTO project_records (project_id, status, sort_order, project_date, created_at, updated_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (project_id) DO NOTHING
	`

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	stored := record.Clone()
	now := r.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	payload, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode project: %w", err)
	}

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		stored.ProjectID,
		string(stored.Status),
		stored.SortOrder,
		stored.ProjectDate,
		stored.CreatedAt,
		stored.UpdatedAt,
		payload,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s", repositories.ErrDuplicateID, stored.ProjectID)
	}

	r.logger.Debug("project created", zap.String("project_id", stored.ProjectID))
	return stored, nil
}

// Update locks the row, merges the patch and writes the result in one transaction
func (r *ProjectRepository) Update(ctx context.Context, id string, patch *models.ProjectPatch) (*models.ProjectRecord, bool, error) {
	query := `
		UPDATE project_records
		SET status = $2, sort_order = $3, project_date = $4, updated_at = $5, payload = $6
		WHERE project_id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var updated *models.ProjectRecord
	err := r.txMgr.InTransaction(ctx, func(ctx context.Context, tx repositories.Transaction) error {
		existing, found, err := r.get(ctx, id, `SELECT payload FROM project_records WHERE project_id = $1 FOR UPDATE`)
		if err != nil || !found {
			return err
		}

		next := patch.Apply(existing)
		next.ProjectID = existing.ProjectID
		next.CreatedAt = existing.CreatedAt
		next.UpdatedAt = repositories.NextUpdatedAt(existing.UpdatedAt, r.now())

		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode project: %w", err)
		}

		_, err = GetExecutor(ctx, r.db).ExecContext(ctx, query,
			id,
			string(next.Status),
			next.SortOrder,
			next.ProjectDate,
			next.UpdatedAt,
			payload,
		)
		if err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}

		updated = next
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if updated == nil {
		return nil, false, nil
	}

	r.logger.Debug("project updated", zap.String("project_id", id))
	return updated, true, nil
}

// Delete removes the record and reports whether this call removed it
func (r *ProjectRepository) Delete(ctx context.Context, id string) (bool, error) {
	query := `DELETE FROM project_records WHERE project_id = $1`

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, nil
	}

	r.logger.Debug("project deleted", zap.String("project_id", id))
	return true, nil
}

// HealthCheck verifies the database is reachable
func (r *ProjectRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

func decodePayload(payload []byte) (*models.ProjectRecord, error) {
	var record models.ProjectRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("failed to decode project: %w", err)
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	if record.Images == nil {
		record.Images = []models.ProjectImage{}
	}
	if record.Extra == nil {
		record.Extra = map[string]interface{}{}
	}
	return &record, nil
}
