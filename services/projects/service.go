// Package projects composes access decisions with project store operations.
//
// Every operation takes the caller's access.Credential explicitly. The
// operation's sensitivity is fixed here, so handlers never decide who may
// call what.
package projects

import (
	"context"
	"errors"

	"github.com/Prot0type/portfolio-website/internal/access"
	"github.com/Prot0type/portfolio-website/models"
	"github.com/Prot0type/portfolio-website/repositories"
	"github.com/Prot0type/portfolio-website/services"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service implements the project operations exposed over HTTP
type Service struct {
	repo   repositories.ProjectRepository
	policy *access.Policy
	newID  func() string
	logger *zap.Logger
}

// NewService creates a new project service
func NewService(repo repositories.ProjectRepository, policy *access.Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		policy: policy,
		newID:  uuid.NewString,
		logger: logger,
	}
}

// List returns the projects matching rawFilter. An empty filter lists published projects,
// which is public; "draft" and "all" require a verified credential.
func (s *Service) List(ctx context.Context, cred access.Credential, rawFilter string) ([]*models.ProjectRecord, error) {
	filter := models.FilterPublished
	if rawFilter != "" {
		parsed, ok := models.ParseStatusFilter(rawFilter)
		if !ok {
			return nil, services.NewDomainError(services.ErrorTypeValidation, services.ErrInvalidStatusFilter.Message, nil).
				WithDetail("status_filter", rawFilter)
		}
		filter = parsed
	}

	sensitivity := access.Public
	if filter != models.FilterPublished {
		sensitivity = access.Authenticated
	}
	if err := s.authorize(sensitivity, cred); err != nil {
		return nil, err
	}

	records, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list projects", zap.String("filter", string(filter)), zap.Error(err))
		return nil, services.WrapInternal("failed to list projects", err)
	}
	return records, nil
}

// Get returns one project. Drafts are reported as not found to callers without a verified credential.
func (s *Service) Get(ctx context.Context, cred access.Credential, id string) (*models.ProjectRecord, error) {
	if err := s.authorize(access.Public, cred); err != nil {
		return nil, err
	}

	record, found, err := s.repo.Get(ctx, id)
	if err != nil {
		s.logger.Error("failed to get project", zap.String("project_id", id), zap.Error(err))
		return nil, services.WrapInternal("failed to get project", err)
	}
	if !found || (record.Status == models.StatusDraft && !cred.Authenticated()) {
		return nil, notFound(id)
	}
	return record, nil
}

// Create validates the payload and stores a new project, assigning an id when none was given
func (s *Service) Create(ctx context.Context, cred access.Credential, in *models.ProjectCreate) (*models.ProjectRecord, error) {
	if err := s.authorize(access.Admin, cred); err != nil {
		return nil, err
	}
	if in == nil {
		return nil, services.ErrInvalidInput
	}
	if len(in.Tags) == 0 {
		return nil, primaryTagRequired()
	}
	if err := services.Validate(in); err != nil {
		return nil, err
	}

	record := models.NewProjectRecord(in)
	if record.ProjectID == "" {
		record.ProjectID = s.newID()
	}

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateID) {
			return nil, services.NewDomainError(services.ErrorTypeConflict, services.ErrDuplicateProject.Message, err).
				WithDetail("project_id", record.ProjectID)
		}
		s.logger.Error("failed to create project", zap.String("project_id", record.ProjectID), zap.Error(err))
		return nil, services.WrapInternal("failed to create project", err)
	}

	s.logger.Info("project created",
		zap.String("project_id", created.ProjectID),
		zap.String("status", string(created.Status)),
		zap.String("subject", cred.Subject()))
	return created, nil
}

// Update merges patch onto the stored project
func (s *Service) Update(ctx context.Context, cred access.Credential, id string, patch *models.ProjectPatch) (*models.ProjectRecord, error) {
	if err := s.authorize(access.Admin, cred); err != nil {
		return nil, err
	}
	if patch == nil {
		patch = &models.ProjectPatch{}
	}
	if patch.Tags != nil && len(patch.Tags) == 0 {
		return nil, primaryTagRequired()
	}
	if err := services.Validate(patch); err != nil {
		return nil, err
	}

	return s.update(ctx, cred, id, patch)
}

// UpdateStatus publishes or unpublishes a project
func (s *Service) UpdateStatus(ctx context.Context, cred access.Credential, id string, in *models.StatusUpdate) (*models.ProjectRecord, error) {
	if err := s.authorize(access.Admin, cred); err != nil {
		return nil, err
	}
	if in == nil {
		return nil, services.ErrInvalidInput
	}
	if err := services.Validate(in); err != nil {
		return nil, err
	}

	status := in.Status
	return s.update(ctx, cred, id, &models.ProjectPatch{Status: &status})
}

func (s *Service) update(ctx context.Context, cred access.Credential, id string, patch *models.ProjectPatch) (*models.ProjectRecord, error) {
	updated, found, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repositories.ErrConcurrentUpdate) {
			return nil, services.NewDomainError(services.ErrorTypeConflict, services.ErrConcurrentUpdate.Message, err).
				WithDetail("project_id", id)
		}
		s.logger.Error("failed to update project", zap.String("project_id", id), zap.Error(err))
		return nil, services.WrapInternal("failed to update project", err)
	}
	if !found {
		return nil, notFound(id)
	}

	s.logger.Info("project updated",
		zap.String("project_id", id),
		zap.String("status", string(updated.Status)),
		zap.String("subject", cred.Subject()))
	return updated, nil
}

// Delete removes a project. Deleting a missing project is a not-found error.
func (s *Service) Delete(ctx context.Context, cred access.Credential, id string) error {
	if err := s.authorize(access.Admin, cred); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete project", zap.String("project_id", id), zap.Error(err))
		return services.WrapInternal("failed to delete project", err)
	}
	if !deleted {
		return notFound(id)
	}

	s.logger.Info("project deleted", zap.String("project_id", id), zap.String("subject", cred.Subject()))
	return nil
}

func (s *Service) authorize(sensitivity access.Sensitivity, cred access.Credential) error {
	return services.Authorize(s.policy, sensitivity, cred, s.logger)
}

func primaryTagRequired() error {
	return services.NewDomainError(services.ErrorTypeValidation, services.ErrPrimaryTagRequired.Message, nil).
		WithDetail("tags", "tags must contain at least 1 item(s)")
}

func notFound(id string) error {
	return services.NewDomainError(services.ErrorTypeNotFound, services.ErrProjectNotFound.Message, nil).
		WithDetail("project_id", id)
}
