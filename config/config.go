package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
)

// Config represents the complete application configuration
type Config struct {
	AppName       string
	Environment   string
	AWSRegion     string
	Server        ServerConfig
	Auth          AuthConfig
	Storage       StorageConfig
	Media         MediaConfig
	Telemetry     TelemetryConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// AuthConfig holds Cognito token verification configuration
type AuthConfig struct {
	// Disabled skips verification and treats every caller as the local identity
	Disabled     bool
	LocalSubject string
	Region       string
	UserPoolID   string
	ClientID     string
	// IssuerOverride replaces the issuer derived from Region and UserPoolID
	IssuerOverride string
	KeySetTTL      time.Duration
	JWKSTimeout    time.Duration
}

// StorageConfig holds project store configuration
type StorageConfig struct {
	Backend          string
	TableName        string
	DynamoDBEndpoint string
	Timeout          time.Duration
	MaxUpdateRetries int
	Database         DatabaseConfig
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// MediaConfig holds S3 upload configuration
type MediaConfig struct {
	BucketName    string
	BaseURL       string
	PresignExpiry time.Duration
}

// TelemetryConfig holds CloudWatch view-metric configuration
type TelemetryConfig struct {
	Namespace      string
	ViewMetricName string
	// PublishEnabled turns CloudWatch publishing off for local runs
	PublishEnabled bool
}

// CORSConfig holds cross-origin configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or text
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	region := getEnv("AWS_REGION", "us-west-2")

	cfg := &Config{
		AppName:     getEnv("APP_NAME", "portfolio-api"),
		Environment: getEnv("ENVIRONMENT", getEnv("DEPLOYMENT_ENV", "local")),
		AWSRegion:   region,
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 20*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			Disabled:       getEnvAsBool("DISABLE_AUTH", false),
			LocalSubject:   getEnv("LOCAL_AUTH_SUBJECT", "local-admin"),
			Region:         getEnv("COGNITO_REGION", region),
			UserPoolID:     getEnv("COGNITO_USER_POOL_ID", ""),
			ClientID:       getEnv("COGNITO_APP_CLIENT_ID", ""),
			IssuerOverride: getEnv("COGNITO_ISSUER", ""),
			KeySetTTL:      getEnvAsDuration("KEYSET_TTL", 0),
			JWKSTimeout:    getEnvAsDuration("JWKS_HTTP_TIMEOUT", 5*time.Second),
		},
		Storage: StorageConfig{
			Backend:          normalizeBackend(getEnv("DATA_BACKEND", BackendDynamoDB)),
			TableName:        getEnv("TABLE_NAME", "portfolio-projects"),
			DynamoDBEndpoint: getEnv("DYNAMODB_ENDPOINT", ""),
			Timeout:          getEnvAsDuration("STORE_TIMEOUT", 5*time.Second),
			MaxUpdateRetries: getEnvAsInt("STORE_MAX_UPDATE_RETRIES", 3),
			Database:         loadDatabaseConfig(),
		},
		Media: MediaConfig{
			BucketName:    getEnv("MEDIA_BUCKET_NAME", ""),
			BaseURL:       getEnv("MEDIA_BASE_URL", "/media"),
			PresignExpiry: getEnvAsDuration("MEDIA_PRESIGN_EXPIRY", 15*time.Minute),
		},
		Telemetry: TelemetryConfig{
			Namespace:      getEnv("METRIC_NAMESPACE", "PortfolioWebsite"),
			ViewMetricName: getEnv("VIEW_METRIC_NAME", "WebsiteViews"),
			PublishEnabled: getEnvAsBool("VIEW_METRIC_PUBLISH", true),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOW_ORIGINS", []string{"http://localhost:3000", "http://localhost:3001"}),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendDynamoDB:
	case BackendPostgres:
		if c.Storage.Database.ConnectionString == "" && c.Storage.Database.Host == "" {
			return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
		}
		if c.Storage.Database.ConnectionString == "" {
			if c.Storage.Database.User == "" {
				return fmt.Errorf("database user is required")
			}
			if c.Storage.Database.Database == "" {
				return fmt.Errorf("database name is required")
			}
		}
	default:
		return fmt.Errorf("DATA_BACKEND must be memory, dynamodb or postgres, got %q", c.Storage.Backend)
	}

	if c.Storage.Backend == BackendDynamoDB && c.Storage.TableName == "" {
		return fmt.Errorf("table name is required for the dynamodb backend")
	}

	if c.Auth.Disabled {
		if c.IsProduction() {
			return fmt.Errorf("DISABLE_AUTH is not allowed in production")
		}
	} else {
		if c.Auth.UserPoolID == "" && c.Auth.IssuerOverride == "" {
			return fmt.Errorf("cognito user pool ID is required unless DISABLE_AUTH is set")
		}
		if c.Auth.ClientID == "" {
			return fmt.Errorf("cognito app client ID is required unless DISABLE_AUTH is set")
		}
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in a local or development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev" || c.Environment == "local"
}

// Issuer returns the expected token issuer
func (c *AuthConfig) Issuer() string {
	if c.IssuerOverride != "" {
		return strings.TrimRight(c.IssuerOverride, "/")
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.Region, c.UserPoolID)
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "portfolio"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "portfolio"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// normalizeBackend lowercases the backend name; "remote" is an alias of dynamodb
func normalizeBackend(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "remote" {
		return BackendDynamoDB
	}
	return normalized
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8000)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8000
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated variable, dropping blank entries
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, entry := range strings.Split(valueStr, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			out = append(out, entry)
		}
	}
	return out
}
