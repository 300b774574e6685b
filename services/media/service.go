// Package media authorizes direct browser uploads of project images to S3.
package media

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/Prot0type/portfolio-website/internal/access"
	"github.com/Prot0type/portfolio-website/models"
	"github.com/Prot0type/portfolio-website/services"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	keyPrefix      = "projects/"
	defaultBaseURL = "/media"
	defaultExpiry  = 15 * time.Minute
)

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Presigner is the subset of *s3.PresignClient used by the service
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Config holds media upload configuration
type Config struct {
	BucketName string
	// BaseURL is where uploaded objects are served from
	BaseURL string
	Expiry  time.Duration
}

// Service issues presigned upload URLs
type Service struct {
	presigner Presigner
	policy    *access.Policy
	config    Config
	newID     func() string
	logger    *zap.Logger
}

// NewService creates a new media service
func NewService(presigner Presigner, policy *access.Policy, config Config, logger *zap.Logger) *Service {
	if config.Expiry <= 0 {
		config.Expiry = defaultExpiry
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		presigner: presigner,
		policy:    policy,
		config:    config,
		newID:     uuid.NewString,
		logger:    logger,
	}
}

// Presign returns a PUT URL for a new object under projects/ and the URL it will be served from
func (s *Service) Presign(ctx context.Context, cred access.Credential, req *models.PresignImageRequest) (*models.PresignImageResponse, error) {
	if err := services.Authorize(s.policy, access.Admin, cred, s.logger); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, services.ErrInvalidInput
	}
	if err := services.Validate(req); err != nil {
		return nil, err
	}
	if s.config.BucketName == "" || s.presigner == nil {
		return nil, services.ErrMediaNotConfigured
	}

	key := s.objectKey(req.FileName)
	presigned, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.BucketName),
		Key:         aws.String(key),
		ContentType: aws.String(req.ContentType),
	}, s3.WithPresignExpires(s.config.Expiry))
	if err != nil {
		s.logger.Error("failed to presign upload", zap.String("key", key), zap.Error(err))
		return nil, services.WrapExternal("failed to presign upload", err)
	}

	s.logger.Info("presigned image upload",
		zap.String("key", key),
		zap.String("content_type", req.ContentType),
		zap.String("subject", cred.Subject()))

	return &models.PresignImageResponse{
		Key:       key,
		UploadURL: presigned.URL,
		PublicURL: PublicURL(s.config.BaseURL, key),
	}, nil
}

func (s *Service) objectKey(fileName string) string {
	return keyPrefix + s.newID() + "-" + SafeFileName(fileName)
}

// SafeFileName replaces every character outside [A-Za-z0-9._-] with '-' and trims leading and trailing dashes
func SafeFileName(fileName string) string {
	return strings.Trim(unsafeKeyChars.ReplaceAllString(fileName, "-"), "-")
}

// PublicURL joins the media base URL and an object key
func PublicURL(baseURL, key string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + "/" + key
}
