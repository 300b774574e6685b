package app

import (
	"context"
	"fmt"

	"github.com/Prot0type/portfolio-website/cognito"
	"github.com/Prot0type/portfolio-website/config"
	"github.com/Prot0type/portfolio-website/internal/access"
	"github.com/Prot0type/portfolio-website/internal/observability"
	"github.com/Prot0type/portfolio-website/middleware"
	"github.com/Prot0type/portfolio-website/repositories"
	"github.com/Prot0type/portfolio-website/repositories/dynamo"
	"github.com/Prot0type/portfolio-website/repositories/memory"
	"github.com/Prot0type/portfolio-website/repositories/postgres"
	"github.com/Prot0type/portfolio-website/services/media"
	"github.com/Prot0type/portfolio-website/services/projects"
	"github.com/Prot0type/portfolio-website/services/telemetry"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics
	AWS     aws.Config

	// Storage. RepoFactory is only set for the postgres backend.
	RepoFactory *postgres.RepositoryFactory
	Projects    repositories.ProjectRepository
	StoreHealth repositories.HealthChecker

	// Auth
	KeySets        *cognito.KeySetCache
	Verifier       *cognito.Verifier
	Policy         *access.Policy
	AuthMiddleware *middleware.AuthMiddleware

	// Services
	ProjectService   *projects.Service
	MediaService     *media.Service
	TelemetryService *telemetry.Service
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics("portfolio"),
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	deps.AWS = awsCfg

	if err := deps.initStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize project store: %w", err)
	}

	deps.initAuth(cfg)
	deps.initServices(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("environment", cfg.Environment),
		zap.String("backend", cfg.Storage.Backend),
		zap.Bool("auth_disabled", cfg.Auth.Disabled))
	return deps, nil
}

// initStore selects the project store for the configured backend
func (d *Dependencies) initStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		d.Projects = memory.NewProjectRepository(d.Logger)
		d.Logger.Warn("using in-memory project store; data is lost on restart")

	case config.BackendDynamoDB:
		client := dynamodb.NewFromConfig(d.AWS, func(o *dynamodb.Options) {
			if cfg.Storage.DynamoDBEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Storage.DynamoDBEndpoint)
			}
		})
		repo := dynamo.NewProjectRepository(client, dynamo.Config{
			TableName:        cfg.Storage.TableName,
			Timeout:          cfg.Storage.Timeout,
			MaxUpdateRetries: cfg.Storage.MaxUpdateRetries,
		}, d.Logger)
		d.Projects = repo
		d.StoreHealth = repo
		d.Logger.Info("using dynamodb project store", zap.String("table", cfg.Storage.TableName))

	case config.BackendPostgres:
		factory, err := postgres.NewRepositoryFactory(cfg.Storage, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		if err := factory.InitSchema(ctx); err != nil {
			_ = factory.Close()
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		repos := factory.NewRepositories()
		d.RepoFactory = factory
		d.Projects = repos.Projects
		d.StoreHealth = factory.GetDB()

	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	return nil
}

// initAuth builds the key-set cache, verifier and credential middleware
func (d *Dependencies) initAuth(cfg *config.Config) {
	d.KeySets = cognito.NewKeySetCache(cognito.KeySetCacheConfig{
		HTTPTimeout: cfg.Auth.JWKSTimeout,
		TTL:         cfg.Auth.KeySetTTL,
		OnFetch:     d.Metrics.RecordKeySetFetch,
	}, d.Logger)
	d.Verifier = cognito.NewVerifier(d.KeySets, d.Logger)
	d.Policy = access.NewPolicy(d.Logger)

	issuer := ""
	if !cfg.Auth.Disabled {
		issuer = cfg.Auth.Issuer()
	}
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Verifier, middleware.AuthConfig{
		Disabled:     cfg.Auth.Disabled,
		LocalSubject: cfg.Auth.LocalSubject,
		Issuer:       issuer,
		ClientID:     cfg.Auth.ClientID,
	}, d.Logger)

	d.Logger.Info("auth initialized",
		zap.String("issuer", issuer),
		zap.Duration("keyset_ttl", cfg.Auth.KeySetTTL))
}

// initServices builds the service layer on top of the store and policy
func (d *Dependencies) initServices(cfg *config.Config) {
	d.ProjectService = projects.NewService(d.Projects, d.Policy, d.Logger)

	var presigner media.Presigner
	if cfg.Media.BucketName != "" {
		presigner = s3.NewPresignClient(s3.NewFromConfig(d.AWS))
	} else {
		d.Logger.Warn("MEDIA_BUCKET_NAME not set; image uploads are disabled")
	}
	d.MediaService = media.NewService(presigner, d.Policy, media.Config{
		BucketName: cfg.Media.BucketName,
		BaseURL:    cfg.Media.BaseURL,
		Expiry:     cfg.Media.PresignExpiry,
	}, d.Logger)

	var publisher telemetry.MetricPublisher
	if cfg.Telemetry.PublishEnabled {
		publisher = cloudwatch.NewFromConfig(d.AWS)
	}
	d.TelemetryService = telemetry.NewService(publisher, d.Metrics, telemetry.Config{
		Namespace:   cfg.Telemetry.Namespace,
		MetricName:  cfg.Telemetry.ViewMetricName,
		Environment: cfg.Environment,
		Enabled:     cfg.Telemetry.PublishEnabled,
	}, d.Logger)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
