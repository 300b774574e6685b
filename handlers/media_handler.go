package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Prot0type/portfolio-website/internal/access"
	"github.com/Prot0type/portfolio-website/middleware"
	"github.com/Prot0type/portfolio-website/models"
	"github.com/Prot0type/portfolio-website/utils"
	"go.uber.org/zap"
)

// MediaService issues upload URLs for project images
type MediaService interface {
	Presign(ctx context.Context, cred access.Credential, req *models.PresignImageRequest) (*models.PresignImageResponse, error)
}

// ViewRecorder records website page views
type ViewRecorder interface {
	RecordView(ctx context.Context, event models.ViewEvent) models.ViewResult
}

// MediaHandler handles image upload and view telemetry requests
type MediaHandler struct {
	media  MediaService
	views  ViewRecorder
	logger *zap.Logger
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(media MediaService, views ViewRecorder, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{
		media:  media,
		views:  views,
		logger: logger,
	}
}

// HandlePresign handles POST /api/images/presign
func (h *MediaHandler) HandlePresign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.PresignImageRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleDecodeError(w, err, h.logger)
		return
	}

	resp, err := h.media.Presign(ctx, middleware.GetCredentialFromContext(ctx), &req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if err := utils.WriteOK(w, resp); err != nil {
		h.logger.Error("failed to write presign response", zap.Error(err))
	}
}

// HandleRecordView handles POST /api/metrics/view. An empty body records a default view.
func (h *MediaHandler) HandleRecordView(w http.ResponseWriter, r *http.Request) {
	var event models.ViewEvent
	if err := utils.DecodeJSON(r, &event); err != nil && !errors.Is(err, utils.ErrEmptyBody) {
		HandleDecodeError(w, err, h.logger)
		return
	}

	result := h.views.RecordView(r.Context(), event)
	if err := utils.WriteAccepted(w, result); err != nil {
		h.logger.Error("failed to write view response", zap.Error(err))
	}
}
