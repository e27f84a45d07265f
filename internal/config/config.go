// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Drive    DriveConfig
	Backup   BackupConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Dates    DateConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds short requests; imports use Import.Timeout (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Migrate applies the embedded schema on startup (default: true)
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// ImportConfig holds workbook import, restore and export settings.
type ImportConfig struct {
	// MaxFileSize is the maximum accepted workbook size in bytes (default: 50MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"52428800"`

	// Timeout is the maximum duration of one import, restore or clear (default: 10m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"10m"`

	// ProgressResetDelay is how long a finished percentage stays visible (default: 3s)
	ProgressResetDelay time.Duration `env:"IMPORT_PROGRESS_RESET_DELAY" default:"3s"`

	// OperationWait is how long a request waits for a running operation (default: 5s)
	OperationWait time.Duration `env:"IMPORT_OPERATION_WAIT" default:"5s"`

	// DatasetName prefixes export and backup file names (default: ledger)
	DatasetName string `env:"IMPORT_DATASET_NAME" default:"ledger"`
}

// DriveConfig holds the remote backup storage settings.
type DriveConfig struct {
	// APIURL is the file metadata and download endpoint
	APIURL string `env:"DRIVE_API_URL" default:"https://www.googleapis.com/drive/v3"`

	// UploadURL is the media upload endpoint
	UploadURL string `env:"DRIVE_UPLOAD_URL" default:"https://www.googleapis.com/upload/drive/v3"`

	// SessionFile stores the bearer credential and backup file id (default: data/drive-session.json)
	SessionFile string `env:"DRIVE_SESSION_FILE" default:"data/drive-session.json"`

	// FolderID is the parent folder of newly created backups (optional)
	FolderID string `env:"DRIVE_FOLDER_ID"`

	// Timeout bounds one transport request (default: 60s)
	Timeout time.Duration `env:"DRIVE_TIMEOUT" default:"60s"`
}

// BackupConfig holds the automatic backup settings.
type BackupConfig struct {
	// Interval between automatic backups; 0 disables them (default: 0s)
	Interval time.Duration `env:"BACKUP_INTERVAL" default:"0s"`

	// Timeout bounds one automatic backup (default: 10m)
	Timeout time.Duration `env:"BACKUP_TIMEOUT" default:"10m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey enables X-API-Key authentication on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// DateConfig holds date interpretation settings.
type DateConfig struct {
	// Location is the IANA zone locale date strings are read and written in (default: Local)
	Location string `env:"DATE_LOCATION" default:"Local"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LoadLocation resolves Location.
func (c *DateConfig) LoadLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("DATE_LOCATION %q: %w", c.Location, err)
	}
	return loc, nil
}
