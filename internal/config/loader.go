package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables, applies tag
// defaults and validates the result. Every unset required variable and
// every unparsable value is reported, not just the first.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// loadStruct fills the tagged fields of v, descending into section structs.
func loadStruct(v reflect.Value) error {
	var errs []error
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			errs = append(errs, loadStruct(fv))
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}
		value, ok := lookup(name, field.Tag.Get("envAlt"))
		if !ok {
			if field.Tag.Get("required") == "true" {
				errs = append(errs, fmt.Errorf("required environment variable %s is not set", name))
				continue
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}
		if err := setField(fv.Addr().Interface(), value); err != nil {
			errs = append(errs, fmt.Errorf("invalid value for %s=%q: %w", name, value, err))
		}
	}
	return errors.Join(errs...)
}

// lookup returns the first non-empty value of name or alt.
func lookup(name, alt string) (string, bool) {
	if v := os.Getenv(name); v != "" {
		return v, true
	}
	if alt != "" {
		if v := os.Getenv(alt); v != "" {
			return v, true
		}
	}
	return "", false
}

// setField parses value into the field behind ptr. Only the field types
// Config declares are supported.
func setField(ptr any, value string) error {
	var err error
	switch p := ptr.(type) {
	case *string:
		*p = value
	case *bool:
		*p, err = strconv.ParseBool(value)
	case *int:
		*p, err = strconv.Atoi(value)
	case *int64:
		*p, err = strconv.ParseInt(value, 10, 64)
	case *time.Duration:
		*p, err = time.ParseDuration(value)
	case *[]string:
		*p = splitList(value)
	default:
		err = fmt.Errorf("unsupported field type %T", ptr)
	}
	return err
}

// splitList splits a comma-separated list, dropping blank entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Import validation
	if c.Import.MaxFileSize <= 0 {
		errs = append(errs, "IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.Import.Timeout <= 0 {
		errs = append(errs, "IMPORT_TIMEOUT must be positive")
	}
	if c.Import.ProgressResetDelay < 0 {
		errs = append(errs, "IMPORT_PROGRESS_RESET_DELAY must be non-negative")
	}
	if c.Import.OperationWait <= 0 {
		errs = append(errs, "IMPORT_OPERATION_WAIT must be positive")
	}
	if strings.ContainsAny(c.Import.DatasetName, `/\`) {
		errs = append(errs, fmt.Sprintf("IMPORT_DATASET_NAME (%q) must not contain path separators", c.Import.DatasetName))
	}

	// Drive and backup validation
	for name, raw := range map[string]string{"DRIVE_API_URL": c.Drive.APIURL, "DRIVE_UPLOAD_URL": c.Drive.UploadURL} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("%s (%q) must be an absolute URL", name, raw))
		}
	}
	if c.Drive.Timeout <= 0 {
		errs = append(errs, "DRIVE_TIMEOUT must be positive")
	}
	if c.Backup.Interval < 0 {
		errs = append(errs, "BACKUP_INTERVAL must be non-negative")
	}
	if c.Backup.Interval > 0 && c.Backup.Interval < time.Minute {
		errs = append(errs, "BACKUP_INTERVAL must be at least 1m when enabled")
	}
	if c.Backup.Timeout <= 0 {
		errs = append(errs, "BACKUP_TIMEOUT must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	// Date validation
	if _, err := c.Dates.LoadLocation(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs and API keys are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Import: {MaxFileSize: %d, Timeout: %s, Dataset: %q}, ",
		c.Import.MaxFileSize, c.Import.Timeout, c.Import.DatasetName))
	b.WriteString(fmt.Sprintf("Drive: {APIURL: %q, SessionFile: %q}, ", c.Drive.APIURL, c.Drive.SessionFile))
	b.WriteString(fmt.Sprintf("Backup: {Interval: %s}, ", c.Backup.Interval))
	b.WriteString(fmt.Sprintf("Security: {RequireAPIKey: %v, APIKeys: %d configured}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys)))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}, ",
		c.Logging.Level, c.Logging.Format))
	b.WriteString(fmt.Sprintf("Dates: {Location: %q}", c.Dates.Location))
	b.WriteString("}")
	return b.String()
}
