package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Identity Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains HTTP API server settings.
type ServerConfig struct {
	Host     string              `yaml:"host"`
	Port     int                 `yaml:"port"`
	Timeouts ServerTimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig          `yaml:"cors"`

	// CookieDomain is the Domain attribute set on the accessToken and
	// refreshToken cookies. Must match the host clients address the
	// service by, or browsers will drop the cookies.
	CookieDomain string `yaml:"cookie_domain"`

	// CookieSecure sets the Secure attribute on auth cookies.
	// Leave false only for plain-HTTP development setups.
	CookieSecure bool `yaml:"cookie_secure"`
}

// ServerTimeoutConfig contains HTTP timeout settings (seconds).
type ServerTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// AuthConfig contains token signing and session lifetime settings.
type AuthConfig struct {
	// PrivateKeyPath is the filesystem path to the PEM-encoded RSA private
	// key used to sign access tokens. The key must exist at startup;
	// a missing or unparsable key is a fatal error, never a per-request one.
	PrivateKeyPath string `yaml:"private_key_path"`

	// RefreshSecret signs refresh tokens (HMAC). Refresh tokens are only
	// ever verified by this service, so a symmetric secret is sufficient.
	RefreshSecret string `yaml:"refresh_secret"`

	// Issuer is the iss claim stamped on every issued token.
	Issuer string `yaml:"issuer"`

	// AccessTokenTTL is the access token lifetime in minutes.
	AccessTokenTTL int `yaml:"access_token_ttl"`

	// RefreshTokenTTL is the refresh token (and session row) lifetime in hours.
	RefreshTokenTTL int `yaml:"refresh_token_ttl"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: IDENTITY_SECTION_KEY
// For example: IDENTITY_DATABASE_PATH, IDENTITY_SERVER_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default token lifetimes: 1 hour access, 1 year refresh.
const (
	defaultAccessTokenTTLMinutes = 60
	defaultRefreshTokenTTLHours  = 24 * 365
)

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: ServerTimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			CookieDomain: "localhost",
		},
		Database: DatabaseConfig{
			Path:        "./data/identity.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Auth: AuthConfig{
			PrivateKeyPath:  "./certs/private.pem",
			Issuer:          "identity-core",
			AccessTokenTTL:  defaultAccessTokenTTLMinutes,
			RefreshTokenTTL: defaultRefreshTokenTTLHours,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: IDENTITY_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("IDENTITY_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("IDENTITY_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("IDENTITY_SERVER_COOKIE_DOMAIN"); v != "" {
		cfg.Server.CookieDomain = v
	}

	// Database
	if v := os.Getenv("IDENTITY_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Auth - refresh secret (IMPORTANT: always override in production)
	if v := os.Getenv("IDENTITY_AUTH_REFRESH_SECRET"); v != "" {
		cfg.Auth.RefreshSecret = v
	}
	if v := os.Getenv("IDENTITY_AUTH_PRIVATE_KEY_PATH"); v != "" {
		cfg.Auth.PrivateKeyPath = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Server.CookieDomain == "" {
		errs = append(errs, "server.cookie_domain is required")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// Auth validation - the refresh secret is REQUIRED.
	// An empty or weak secret would let an attacker forge refresh tokens
	// and mint sessions for arbitrary users.
	const minRefreshSecretLength = 32
	if c.Auth.PrivateKeyPath == "" {
		errs = append(errs, "auth.private_key_path is required")
	}
	if c.Auth.RefreshSecret == "" {
		errs = append(errs, "auth.refresh_secret is required (set IDENTITY_AUTH_REFRESH_SECRET environment variable)")
	} else if len(c.Auth.RefreshSecret) < minRefreshSecretLength {
		errs = append(errs, "auth.refresh_secret must be at least 32 characters for adequate security")
	}
	if c.Auth.Issuer == "" {
		errs = append(errs, "auth.issuer is required")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, "auth.access_token_ttl must be positive")
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, "auth.refresh_token_ttl must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the server read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the server write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the server idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Idle) * time.Second
}

// AccessTokenLifetime returns the access token TTL as a Duration.
func (c *AuthConfig) AccessTokenLifetime() time.Duration {
	return time.Duration(c.AccessTokenTTL) * time.Minute
}

// RefreshTokenLifetime returns the refresh token TTL as a Duration.
func (c *AuthConfig) RefreshTokenLifetime() time.Duration {
	return time.Duration(c.RefreshTokenTTL) * time.Hour
}
