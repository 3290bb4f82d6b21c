package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/planarhq/planar/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Avatars       AvatarConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	AllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	PingTimeout time.Duration
}

// AuthConfig holds token and password settings
type AuthConfig struct {
	// JWTSecret signs access and refresh tokens (HS256)
	JWTSecret string
	// AccessTokenTTL is the lifetime of access tokens
	AccessTokenTTL time.Duration
	// RefreshTokenTTL is the lifetime of refresh tokens
	RefreshTokenTTL time.Duration
	// InvitationTTL is the lifetime of workspace invitations
	InvitationTTL time.Duration
}

// AvatarConfig holds S3 settings for profile picture storage
type AvatarConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	Enabled bool
	// FilePath enables a secondary NDJSON sink when set
	FilePath string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables. A .env file in
// the working directory is read first when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("PLANAR_HOST", "0.0.0.0"),
			Port:            getEnv("PLANAR_PORT", "8080"),
			ReadTimeout:     getEnvDuration("PLANAR_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("PLANAR_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("PLANAR_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("PLANAR_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("PLANAR_HEALTH_PORT", "9090"),
			AllowedOrigins:  strings.Split(getEnv("PLANAR_ALLOWED_ORIGINS", "*"), ","),
		},
		Database: DatabaseConfig{
			URL:         getEnv("PLANAR_POSTGRES_URL", ""),
			MaxConns:    getEnvInt("PLANAR_POSTGRES_MAX_CONNS", 25),
			MinConns:    getEnvInt("PLANAR_POSTGRES_MIN_CONNS", 5),
			PingTimeout: getEnvDuration("PLANAR_POSTGRES_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("PLANAR_JWT_SECRET", ""),
			AccessTokenTTL:  getEnvDuration("PLANAR_ACCESS_TOKEN_TTL", 6*time.Hour),
			RefreshTokenTTL: getEnvDuration("PLANAR_REFRESH_TOKEN_TTL", 7*24*time.Hour),
			InvitationTTL:   getEnvDuration("PLANAR_INVITATION_TTL", 7*24*time.Hour),
		},
		Avatars: AvatarConfig{
			Enabled:      getEnvBool("PLANAR_AVATARS_ENABLED", false),
			Endpoint:     getEnv("PLANAR_S3_ENDPOINT", ""),
			Region:       getEnv("PLANAR_S3_REGION", "us-east-1"),
			Bucket:       getEnv("PLANAR_S3_BUCKET", "planar-avatars"),
			AccessKey:    getEnv("PLANAR_S3_ACCESS_KEY", ""),
			SecretKey:    getEnv("PLANAR_S3_SECRET_KEY", ""),
			UsePathStyle: getEnvBool("PLANAR_S3_USE_PATH_STYLE", false),
		},
		Audit: AuditConfig{
			Enabled:  getEnvBool("PLANAR_AUDIT_ENABLED", true),
			FilePath: getEnv("PLANAR_AUDIT_FILE", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.ParseLogLevel(getEnv("PLANAR_LOG_LEVEL", "info")),
			OTelEnabled:        getEnvBool("PLANAR_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("PLANAR_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("PLANAR_OTEL_SERVICE_NAME", "planar"),
			OTelServiceVersion: getEnv("PLANAR_OTEL_SERVICE_VERSION", "dev"),
			OTelInsecure:       getEnvBool("PLANAR_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("PLANAR_POSTGRES_URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("PLANAR_JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("PLANAR_JWT_SECRET must be at least 32 bytes")
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.Avatars.Enabled && c.Avatars.Bucket == "" {
		return fmt.Errorf("PLANAR_S3_BUCKET is required when avatars are enabled")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
