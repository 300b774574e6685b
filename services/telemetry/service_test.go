package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Prot0type/portfolio-website/internal/observability"
	"github.com/Prot0type/portfolio-website/models"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockPublisher is a mock implementation of MetricPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*cloudwatch.PutMetricDataOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

type countedView struct {
	source    string
	published bool
}

type recordingCounter struct {
	views []countedView
}

func (c *recordingCounter) RecordView(source string, published bool) {
	c.views = append(c.views, countedView{source, published})
}

var testConfig = Config{
	Namespace:   "PortfolioWebsite",
	MetricName:  "WebsiteViews",
	Environment: "test",
	Enabled:     true,
}

func dimensions(input *cloudwatch.PutMetricDataInput) map[string]string {
	out := map[string]string{}
	for _, d := range input.MetricData[0].Dimensions {
		out[*d.Name] = *d.Value
	}
	return out
}

func TestService_RecordView(t *testing.T) {
	publisher := &MockPublisher{}
	counter := &recordingCounter{}
	svc := NewService(publisher, counter, testConfig, zap.NewNop())

	var sent *cloudwatch.PutMetricDataInput
	publisher.On("PutMetricData", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*cloudwatch.PutMetricDataInput) }).
		Return(&cloudwatch.PutMetricDataOutput{}, nil).Once()

	result := svc.RecordView(context.Background(), models.ViewEvent{})
	assert.True(t, result.Accepted)

	require.NotNil(t, sent)
	assert.Equal(t, "PortfolioWebsite", *sent.Namespace)
	require.Len(t, sent.MetricData, 1)
	assert.Equal(t, "WebsiteViews", *sent.MetricData[0].MetricName)
	assert.Equal(t, 1.0, *sent.MetricData[0].Value)
	assert.Equal(t, types.StandardUnitCount, sent.MetricData[0].Unit)
	assert.Equal(t, map[string]string{"Environment": "test", "Source": "website"}, dimensions(sent))

	assert.Equal(t, []countedView{{"website", true}}, counter.views)
	publisher.AssertExpectations(t)
}

func TestService_RecordViewFailures(t *testing.T) {
	t.Run("publish error is not surfaced", func(t *testing.T) {
		publisher := &MockPublisher{}
		counter := &recordingCounter{}
		svc := NewService(publisher, counter, testConfig, zap.NewNop())
		publisher.On("PutMetricData", mock.Anything, mock.Anything).
			Return(nil, errors.New("throttled")).Once()

		result := svc.RecordView(context.Background(), models.ViewEvent{Source: "blog"})
		assert.False(t, result.Accepted)
		assert.Equal(t, []countedView{{"blog", false}}, counter.views)
	})

	t.Run("publishing disabled", func(t *testing.T) {
		publisher := &MockPublisher{}
		config := testConfig
		config.Enabled = false
		svc := NewService(publisher, nil, config, zap.NewNop())

		result := svc.RecordView(context.Background(), models.ViewEvent{})
		assert.False(t, result.Accepted)
		publisher.AssertNotCalled(t, "PutMetricData", mock.Anything, mock.Anything)
	})

	t.Run("publish is bounded by the timeout", func(t *testing.T) {
		publisher := &MockPublisher{}
		config := testConfig
		config.Timeout = 10 * time.Millisecond
		svc := NewService(publisher, nil, config, zap.NewNop())
		publisher.On("PutMetricData", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
			Return(nil, context.DeadlineExceeded).Once()

		start := time.Now()
		result := svc.RecordView(context.Background(), models.ViewEvent{})
		assert.False(t, result.Accepted)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestService_SourceIsTruncated(t *testing.T) {
	counter := &recordingCounter{}
	config := testConfig
	config.Enabled = false
	svc := NewService(nil, counter, config, zap.NewNop())

	svc.RecordView(context.Background(), models.ViewEvent{Source: strings.Repeat("s", 200)})
	require.Len(t, counter.views, 1)
	assert.Len(t, counter.views[0].source, maxSourceLength)
}

func TestTruncateSource(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "short", in: "website", want: "website"},
		{name: "multi-byte rune across the limit", in: strings.Repeat("a", 63) + "é", want: strings.Repeat("a", 63)},
		{name: "multi-byte runes up to the limit", in: strings.Repeat("é", 40), want: strings.Repeat("é", 32)},
		{name: "invalid bytes dropped", in: "web\xffsite", want: "website"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateSource(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, len(got), maxSourceLength)
		})
	}
}

func TestService_RecordViewWithMetrics(t *testing.T) {
	metrics := observability.NewMetrics("portfolio")
	svc := NewService(nil, metrics, Config{}, zap.NewNop())

	assert.NotPanics(t, func() {
		result := svc.RecordView(context.Background(), models.ViewEvent{Source: strings.Repeat("a", 63) + "é"})
		assert.False(t, result.Accepted)
	})
	svc.RecordView(context.Background(), models.ViewEvent{Source: "public-site"})

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `portfolio_page_views_total{result="dropped",source="other"} 1`)
	assert.Contains(t, body, `portfolio_page_views_total{result="dropped",source="public-site"} 1`)
}

func TestViewEvent_WithDefaults(t *testing.T) {
	event := models.ViewEvent{}.WithDefaults()
	assert.Equal(t, "/", event.Page)
	assert.Equal(t, "website", event.Source)

	event = models.ViewEvent{Page: "/projects", Source: "rss"}.WithDefaults()
	assert.Equal(t, "/projects", event.Page)
	assert.Equal(t, "rss", event.Source)
}
