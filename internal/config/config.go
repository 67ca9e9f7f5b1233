// Package config loads service configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/redvault/backend/internal/logging"
)

// Config is the full service configuration. Secrets (JWT secret, admin
// credentials, database password) come from the environment only.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"-"`
	Admin     AdminConfig     `yaml:"-"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       logging.Config  `yaml:"log"`
}

type ServerConfig struct {
	Host            string `yaml:"host" env:"SERVER_HOST"`
	Port            string `yaml:"port" env:"PORT"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec" env:"SERVER_READ_TIMEOUT_SEC"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec" env:"SERVER_WRITE_TIMEOUT_SEC"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     string `yaml:"port" env:"DB_PORT"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"-" env:"DB_PASSWORD"`
	Name     string `yaml:"name" env:"DB_NAME"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSLMODE"`
}

// DSN renders the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type JWTConfig struct {
	Secret string `env:"JWT_SECRET"`
}

// AdminConfig is the configured break-glass admin identity. It is never a
// users row; /api/admin/login authenticates against it alone.
type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

type CORSConfig struct {
	// AllowedOrigins holds extra origins beyond the localhost dev defaults.
	AllowedOrigins []string `yaml:"allowed_origins"`
	// ExtraOrigins is a comma-separated list merged in from the environment.
	ExtraOrigins string `yaml:"-" env:"CORS_ORIGIN"`
}

type RateLimitConfig struct {
	// RequestsPerSecond and Burst bound unauthenticated auth endpoints
	// per client address.
	RequestsPerSecond int `yaml:"requests_per_second" env:"RATE_LIMIT_RPS"`
	Burst             int `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

// DefaultAllowedOrigins are the local development origins accepted even
// without CORS_ORIGIN set.
var DefaultAllowedOrigins = []string{
	"http://localhost:5500",
	"http://localhost:5501",
	"http://127.0.0.1:5500",
	"http://127.0.0.1:5501",
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "4000",
			ReadTimeoutSec:  20,
			WriteTimeoutSec: 20,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "redvault",
			Name:    "redvault",
			SSLMode: "disable",
		},
		RateLimit: RateLimitConfig{RequestsPerSecond: 5, Burst: 10},
		Log:       logging.Config{Level: "info"},
	}
}

// Load reads the optional YAML file at path, then applies environment
// overrides on top. A missing file is not an error; a missing JWT secret
// or admin credential is.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := envdecode.Decode(&cfg); err != nil && !stderrors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		return nil, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}

	origins := append([]string{}, DefaultAllowedOrigins...)
	origins = append(origins, cfg.CORS.AllowedOrigins...)
	for _, origin := range strings.Split(cfg.CORS.ExtraOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.CORS.AllowedOrigins = origins
	return &cfg, nil
}
