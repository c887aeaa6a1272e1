package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds the application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Sessions SessionConfig  `yaml:"sessions"`
	Lockout  LockoutConfig  `yaml:"lockout"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AppConfig holds app-specific configuration
type AppConfig struct {
	Name string `yaml:"name"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// AuthConfig holds token verification and issuance configuration.
// Verification is either "strict" (signature, issuer and audience are all
// checked against the identity provider) or "relaxed" (issuer and audience
// checks are skipped; intended for local development only).
type AuthConfig struct {
	Issuer       string   `yaml:"issuer"`
	Audience     []string `yaml:"audience"`
	Verification string   `yaml:"verification"` // strict, relaxed
	JWKSURL      string   `yaml:"jwks_url"`
	KeysPath     string   `yaml:"keys_path"`
	ActiveKID    string   `yaml:"active_kid"`
	AccessTTL    Duration `yaml:"access_ttl"`
}

// SessionConfig holds session lifecycle configuration
type SessionConfig struct {
	TTL             Duration `yaml:"ttl"`
	MaxRefreshCount int      `yaml:"max_refresh_count"`
	MaxConcurrent   int      `yaml:"max_concurrent"`
	LimitStrategy   string   `yaml:"limit_strategy"` // reject, evict_oldest, allow
	BindFingerprint bool     `yaml:"bind_fingerprint"`
	StepUpTTL       Duration `yaml:"step_up_ttl"`
}

// LockoutConfig holds failed-login lockout and rate limit configuration
type LockoutConfig struct {
	Threshold   int      `yaml:"threshold"`
	Window      Duration `yaml:"window"`
	IPThreshold int      `yaml:"ip_threshold"`
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig holds logging-specific configuration
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Duration wraps time.Duration so YAML values like "15m" parse directly
type Duration time.Duration

// UnmarshalYAML parses a duration string such as "24h" or "15m"
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Auth.Verification == "" {
		c.Auth.Verification = "strict"
	}
	if c.Auth.AccessTTL == 0 {
		c.Auth.AccessTTL = Duration(15 * time.Minute)
	}
	if c.Sessions.TTL == 0 {
		c.Sessions.TTL = Duration(24 * time.Hour)
	}
	if c.Sessions.MaxRefreshCount == 0 {
		c.Sessions.MaxRefreshCount = 50
	}
	if c.Sessions.MaxConcurrent == 0 {
		c.Sessions.MaxConcurrent = 3
	}
	if c.Sessions.LimitStrategy == "" {
		c.Sessions.LimitStrategy = "evict_oldest"
	}
	if c.Sessions.StepUpTTL == 0 {
		c.Sessions.StepUpTTL = Duration(30 * time.Minute)
	}
	if c.Lockout.Threshold == 0 {
		c.Lockout.Threshold = 5
	}
	if c.Lockout.Window == 0 {
		c.Lockout.Window = Duration(15 * time.Minute)
	}
	if c.Lockout.IPThreshold == 0 {
		c.Lockout.IPThreshold = 20
	}
}

// Address returns the server address in the format "host:port"
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Address returns the Redis address in the format "host:port"
func (r *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// quoteDSNValue quotes a DSN value if it contains spaces or special characters.
// Single quotes inside the value are escaped by doubling them.
func quoteDSNValue(value string) string {
	needsQuoting := false
	for _, r := range value {
		if r == ' ' || r == '\'' || r == '\\' || r == '=' {
			needsQuoting = true
			break
		}
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '-' || r == '_' || r == '/' || r == '@' || r == ':') {
			needsQuoting = true
			break
		}
	}

	if !needsQuoting {
		return value
	}

	escaped := ""
	for _, r := range value {
		if r == '\'' {
			escaped += "''"
		} else {
			escaped += string(r)
		}
	}

	return "'" + escaped + "'"
}

// DSN returns the database connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSNValue(d.Host),
		d.Port,
		quoteDSNValue(d.User),
		quoteDSNValue(d.Password),
		quoteDSNValue(d.DBName),
		quoteDSNValue(d.SSLMode),
	)
}

// URL returns the database connection URL in postgres:// format for golang-migrate
func (d *DatabaseConfig) URL() string {
	userInfo := url.UserPassword(d.User, d.Password)
	host := net.JoinHostPort(d.Host, fmt.Sprintf("%d", d.Port))

	u := &url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     host,
		Path:     "/" + d.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s&search_path=public", url.QueryEscape(d.SSLMode)),
	}

	return u.String()
}
