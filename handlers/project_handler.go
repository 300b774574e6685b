package handlers

import (
	"context"
	"net/http"

	"github.com/Prot0type/portfolio-website/internal/access"
	"github.com/Prot0type/portfolio-website/middleware"
	"github.com/Prot0type/portfolio-website/models"
	"github.com/Prot0type/portfolio-website/utils"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProjectService defines the project operations the handler exposes
type ProjectService interface {
	List(ctx context.Context, cred access.Credential, rawFilter string) ([]*models.ProjectRecord, error)
	Get(ctx context.Context, cred access.Credential, id string) (*models.ProjectRecord, error)
	Create(ctx context.Context, cred access.Credential, in *models.ProjectCreate) (*models.ProjectRecord, error)
	Update(ctx context.Context, cred access.Credential, id string, patch *models.ProjectPatch) (*models.ProjectRecord, error)
	UpdateStatus(ctx context.Context, cred access.Credential, id string, in *models.StatusUpdate) (*models.ProjectRecord, error)
	Delete(ctx context.Context, cred access.Credential, id string) error
}

// ProjectHandler handles project HTTP requests
type ProjectHandler struct {
	service ProjectService
	logger  *zap.Logger
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(service ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		service: service,
		logger:  logger,
	}
}

// HandleList handles GET /api/projects
func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := r.URL.Query().Get("status_filter")

	records, err := h.service.List(ctx, middleware.GetCredentialFromContext(ctx), filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("listed projects",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("status_filter", filter),
		zap.Int("count", len(records)))
	h.write(w, http.StatusOK, records)
}

// HandleGet handles GET /api/projects/{project_id}
func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	record, err := h.service.Get(ctx, middleware.GetCredentialFromContext(ctx), chi.URLParam(r, "project_id"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	h.write(w, http.StatusOK, record)
}

// HandleCreate handles POST /api/projects
func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in models.ProjectCreate
	if err := utils.DecodeJSON(r, &in); err != nil {
		HandleDecodeError(w, err, h.logger)
		return
	}

	record, err := h.service.Create(ctx, middleware.GetCredentialFromContext(ctx), &in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	h.write(w, http.StatusCreated, record)
}

// HandleUpdate handles PUT /api/projects/{project_id}
func (h *ProjectHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var patch models.ProjectPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		HandleDecodeError(w, err, h.logger)
		return
	}

	record, err := h.service.Update(ctx, middleware.GetCredentialFromContext(ctx), chi.URLParam(r, "project_id"), &patch)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	h.write(w, http.StatusOK, record)
}

// HandleUpdateStatus handles POST /api/projects/{project_id}/status
func (h *ProjectHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in models.StatusUpdate
	if err := utils.DecodeJSON(r, &in); err != nil {
		HandleDecodeError(w, err, h.logger)
		return
	}

	record, err := h.service.UpdateStatus(ctx, middleware.GetCredentialFromContext(ctx), chi.URLParam(r, "project_id"), &in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	h.write(w, http.StatusOK, record)
}

// HandleDelete handles DELETE /api/projects/{project_id}
func (h *ProjectHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Delete(ctx, middleware.GetCredentialFromContext(ctx), chi.URLParam(r, "project_id")); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

func (h *ProjectHandler) write(w http.ResponseWriter, status int, data interface{}) {
	if err := utils.WriteJSON(w, status, data); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
