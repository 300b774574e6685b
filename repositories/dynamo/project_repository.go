// Package dynamo implements ProjectRepository on a DynamoDB table keyed by project_id.
//
// DynamoDB offers no multi-item transactions here, so every operation is
// single-item and correctness under concurrency comes from condition
// expressions rather than client-side locks.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Prot0type/portfolio-website/models"
	"github.com/Prot0type/portfolio-website/repositories"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	keyAttribute       = "project_id"
	updatedAtAttribute = "updated_at"

	conditionNotExists = "attribute_not_exists(project_id)"
	conditionExists    = "attribute_exists(project_id)"
	conditionUnchanged = "attribute_exists(project_id) AND updated_at = :expected_updated_at"
	filterStatus       = "#status = :status"

	defaultTimeout          = 5 * time.Second
	defaultMaxUpdateRetries = 3
)

// API is the subset of the DynamoDB client used by the repository
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Config holds configuration for the DynamoDB repository
type Config struct {
	TableName string
	// Timeout bounds every call to DynamoDB
	Timeout time.Duration
	// MaxUpdateRetries bounds optimistic-concurrency retries in Update
	MaxUpdateRetries int
}

// ProjectRepository implements repositories.ProjectRepository on DynamoDB
type ProjectRepository struct {
	client     API
	table      string
	timeout    time.Duration
	maxRetries int
	now        func() time.Time
	logger     *zap.Logger
}

// NewProjectRepository creates a new DynamoDB-backed project repository
func NewProjectRepository(client API, config Config, logger *zap.Logger) *ProjectRepository {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.MaxUpdateRetries <= 0 {
		config.MaxUpdateRetries = defaultMaxUpdateRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectRepository{
		client:     client,
		table:      config.TableName,
		timeout:    config.Timeout,
		maxRetries: config.MaxUpdateRetries,
		now:        repositories.Now,
		logger:     logger,
	}
}

// List scans the table, applying the status filter server side
func (r *ProjectRepository) List(ctx context.Context, filter models.StatusFilter) ([]*models.ProjectRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	input := &dynamodb.ScanInput{
		TableName:      aws.String(r.table),
		ConsistentRead: aws.Bool(true),
	}
	if filter != models.FilterAll {
		input.FilterExpression = aws.String(filterStatus)
		input.ExpressionAttributeNames = map[string]string{"#status": "status"}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(filter)},
		}
	}

	var records []*models.ProjectRecord
	paginator := dynamodb.NewScanPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan projects: %w", err)
		}
		for _, item := range page.Items {
			record, err := decode(item)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}
	}

	repositories.SortProjects(records)
	return records, nil
}

// Get retrieves a record with a strongly consistent read
func (r *ProjectRepository) Get(ctx context.Context, id string) (*models.ProjectRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	record, _, found, err := r.get(ctx, id)
	return record, found, err
}

// get also returns the stored updated_at attribute exactly as read
func (r *ProjectRepository) get(ctx context.Context, id string) (*models.ProjectRecord, types.AttributeValue, bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to get project: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil, false, nil
	}

	record, err := decode(out.Item)
	if err != nil {
		return nil, nil, false, err
	}
	return record, out.Item[updatedAtAttribute], true, nil
}

// Create puts the record only if no item with its id exists
func (r *ProjectRepository) Create(ctx context.Context, record *models.ProjectRecord) (*models.ProjectRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	stored := record.Clone()
	now := r.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	item, err := attributevalue.MarshalMap(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode project: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String(conditionNotExists),
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, fmt.Errorf("%w: %s", repositories.ErrDuplicateID, stored.ProjectID)
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	r.logger.Debug("project created", zap.String("project_id", stored.ProjectID))
	return stored, nil
}

// Update reads the item, merges the patch and writes it back conditioned on
// updated_at being unchanged. A lost race re-reads and retries.
func (r *ProjectRepository) Update(ctx context.Context, id string, patch *models.ProjectPatch) (*models.ProjectRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		existing, expected, found, err := r.get(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if !found {
			return nil, false, nil
		}

		updated := patch.Apply(existing)
		updated.ProjectID = existing.ProjectID
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = repositories.NextUpdatedAt(existing.UpdatedAt, r.now())

		item, err := attributevalue.MarshalMap(updated)
		if err != nil {
			return nil, false, fmt.Errorf("failed to encode project: %w", err)
		}
		if expected == nil {
			return nil, false, fmt.Errorf("project %s has no %s attribute", id, updatedAtAttribute)
		}

		_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(r.table),
			Item:                item,
			ConditionExpression: aws.String(conditionUnchanged),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":expected_updated_at": expected,
			},
		})
		if err == nil {
			r.logger.Debug("project updated",
				zap.String("project_id", id),
				zap.Int("attempt", attempt+1))
			return updated, true, nil
		}
		if !isConditionFailed(err) {
			return nil, false, fmt.Errorf("failed to update project: %w", err)
		}

		r.logger.Debug("project changed during update, retrying",
			zap.String("project_id", id),
			zap.Int("attempt", attempt+1))
	}

	r.logger.Warn("project update gave up after repeated conflicts",
		zap.String("project_id", id),
		zap.Int("attempts", r.maxRetries+1))
	return nil, false, fmt.Errorf("%w: %s", repositories.ErrConcurrentUpdate, id)
}

// Delete removes the item only if it exists, so concurrent deletes report true exactly once
func (r *ProjectRepository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.table),
		Key:                 key(id),
		ConditionExpression: aws.String(conditionExists),
		ReturnValues:        types.ReturnValueAllOld,
	})
	if err != nil {
		if isConditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete project: %w", err)
	}
	if len(out.Attributes) == 0 {
		return false, nil
	}

	r.logger.Debug("project deleted", zap.String("project_id", id))
	return true, nil
}

// HealthCheck verifies the table is reachable
func (r *ProjectRepository) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.table)}); err != nil {
		return fmt.Errorf("dynamodb health check failed: %w", err)
	}
	return nil
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		keyAttribute: &types.AttributeValueMemberS{Value: id},
	}
}

func decode(item map[string]types.AttributeValue) (*models.ProjectRecord, error) {
	var record models.ProjectRecord
	if err := attributevalue.UnmarshalMap(item, &record); err != nil {
		return nil, fmt.Errorf("failed to decode project: %w", err)
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return &record, nil
}

func isConditionFailed(err error) bool {
	var conditionErr *types.ConditionalCheckFailedException
	return errors.As(err, &conditionErr)
}
