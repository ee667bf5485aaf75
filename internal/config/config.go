package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cleanup   CleanupConfig   `yaml:"cleanup"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            string   `yaml:"port"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	MaxUploadMB     int64    `yaml:"max_upload_mb"`
	ShutdownSeconds int      `yaml:"shutdown_seconds"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SQLiteConfig contains the SQLite file used for local development
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig contains object storage settings
type StorageConfig struct {
	Provider      string `yaml:"provider"` // minio or s3
	Endpoint      string `yaml:"endpoint"`
	Region        string `yaml:"region"`
	Bucket        string `yaml:"bucket"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	UseSSL        bool   `yaml:"use_ssl"`
	PublicBaseURL string `yaml:"public_base_url"`
	KeyPrefix     string `yaml:"key_prefix"`

	// Circuit breaker around the object store
	FailureThreshold    int `yaml:"failure_threshold"`
	BreakerResetSeconds int `yaml:"breaker_reset_seconds"`
}

// AuthConfig contains access token settings
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// RateLimitConfig contains upload rate limiting settings
type RateLimitConfig struct {
	Enabled          bool `yaml:"enabled"`
	UploadsPerMinute int  `yaml:"uploads_per_minute"`
	UploadsPerHour   int  `yaml:"uploads_per_hour"`
}

// CleanupConfig contains scheduled image cleanup settings
type CleanupConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Schedule         string `yaml:"schedule"`
	RetentionDays    int    `yaml:"retention_days"`
	MaxDeletionCount int    `yaml:"max_deletion_count"`
	DryRun           bool   `yaml:"dry_run"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8084",
			AllowedOrigins:  []string{"http://localhost:5173"},
			MaxUploadMB:     32,
			ShutdownSeconds: 10,
		},
		Database: DatabaseConfig{
			Type: "mysql",
		},
		Storage: StorageConfig{
			Provider:  "minio",
			Bucket:    "immobile-images",
			KeyPrefix: "images",

			FailureThreshold:    5,
			BreakerResetSeconds: 30,
		},
		RateLimit: RateLimitConfig{
			Enabled:          true,
			UploadsPerMinute: 10,
			UploadsPerHour:   200,
		},
		Cleanup: CleanupConfig{
			Enabled:          false,
			Schedule:         "0 3 * * *",
			RetentionDays:    90,
			MaxDeletionCount: 10000,
			DryRun:           false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// MaxUploadBytes returns the multipart memory limit in bytes
func (c *ServerConfig) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 32 << 20
	}
	return c.MaxUploadMB << 20
}

// GetBreakerResetTimeout returns how long the storage circuit breaker stays open
func (c *StorageConfig) GetBreakerResetTimeout() time.Duration {
	return time.Duration(c.BreakerResetSeconds) * time.Second
}

// GetShutdownTimeout returns the graceful shutdown timeout as a duration
func (c *ServerConfig) GetShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownSeconds) * time.Second
}
