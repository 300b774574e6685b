// Package telemetry publishes website page views to CloudWatch.
package telemetry

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Prot0type/portfolio-website/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

const (
	defaultTimeout  = 3 * time.Second
	maxSourceLength = 64
)

// MetricPublisher is the subset of *cloudwatch.Client used by the service
type MetricPublisher interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// ViewCounter counts views locally, whatever the publish outcome
type ViewCounter interface {
	RecordView(source string, published bool)
}

// Config holds view metric configuration
type Config struct {
	Namespace   string
	MetricName  string
	Environment string
	// Enabled turns CloudWatch publishing on; when off views are only counted locally
	Enabled bool
	Timeout time.Duration
}

// Service records page views
type Service struct {
	publisher MetricPublisher
	counter   ViewCounter
	config    Config
	logger    *zap.Logger
}

// NewService creates a new telemetry service. counter may be nil.
func NewService(publisher MetricPublisher, counter ViewCounter, config Config, logger *zap.Logger) *Service {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		publisher: publisher,
		counter:   counter,
		config:    config,
		logger:    logger,
	}
}

// RecordView publishes one Count datum for the view. It never fails: a publish
// error is logged and reported as accepted=false.
func (s *Service) RecordView(ctx context.Context, event models.ViewEvent) models.ViewResult {
	event = event.WithDefaults()
	source := truncateSource(event.Source)

	published := s.publish(ctx, source)
	if s.counter != nil {
		s.counter.RecordView(source, published)
	}
	return models.ViewResult{Accepted: published}
}

func (s *Service) publish(ctx context.Context, source string) bool {
	if !s.config.Enabled || s.publisher == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	_, err := s.publisher.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(s.config.Namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(s.config.MetricName),
				Dimensions: []types.Dimension{
					{Name: aws.String("Environment"), Value: aws.String(s.config.Environment)},
					{Name: aws.String("Source"), Value: aws.String(source)},
				},
				Value: aws.Float64(1),
				Unit:  types.StandardUnitCount,
			},
		},
	})
	if err != nil {
		s.logger.Warn("failed to publish view metric",
			zap.String("namespace", s.config.Namespace),
			zap.String("source", source),
			zap.Error(err))
		return false
	}
	return true
}

// truncateSource drops invalid UTF-8 and cuts to at most maxSourceLength bytes on a rune boundary
func truncateSource(source string) string {
	source = strings.ToValidUTF8(source, "")
	if len(source) <= maxSourceLength {
		return source
	}
	cut := maxSourceLength
	for cut > 0 && !utf8.RuneStart(source[cut]) {
		cut--
	}
	return source[:cut]
}
