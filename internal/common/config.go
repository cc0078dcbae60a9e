package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Preview PreviewConfig `yaml:"preview"`
	Export  ExportConfig  `yaml:"export"`
}

// BackendConfig holds OCR backend connection settings
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	// Token is an access_token cookie value used by the CLI.
	Token string `yaml:"token"`
}

// ServerConfig holds dashboard server settings
type ServerConfig struct {
	HTTPAddr             string        `yaml:"http_addr"`
	HealthGRPCAddr       string        `yaml:"health_grpc_addr"`
	SessionCookie        string        `yaml:"session_cookie"`
	MaxUploadBytes       int64         `yaml:"max_upload_bytes"`
	MaxConcurrentUploads int64         `yaml:"max_concurrent_uploads"`
	RateLimitEvery       time.Duration `yaml:"rate_limit_every"`
	RateLimitBurst       int           `yaml:"rate_limit_burst"`
	ReadHeaderTimeout    time.Duration `yaml:"read_header_timeout"`
}

// SessionConfig selects where edit sessions are kept.
// Store is "memory", "sqlite:<path>" or a postgres:// DSN.
type SessionConfig struct {
	Store string `yaml:"store"`
}

// PreviewConfig holds PDF preview settings
type PreviewConfig struct {
	Pdftoppm string `yaml:"pdftoppm"`
	MaxPages int    `yaml:"max_pages"`
}

// ExportConfig selects local generation instead of backend conversion.
type ExportConfig struct {
	Local bool `yaml:"local"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			URL: "http://localhost:8000",
		},
		Server: ServerConfig{
			HTTPAddr:             ":8080",
			SessionCookie:        "ocrdash_session",
			MaxUploadBytes:       32 << 20,
			MaxConcurrentUploads: 8,
			RateLimitEvery:       600 * time.Millisecond,
			RateLimitBurst:       20,
			ReadHeaderTimeout:    10 * time.Second,
		},
		Session: SessionConfig{
			Store: "memory",
		},
		Preview: PreviewConfig{
			Pdftoppm: "pdftoppm",
			MaxPages: 5,
		},
	}
}

// LoadConfig loads defaults, then the YAML file at path (if any), then
// environment variables. An empty path falls back to OCRDASH_CONFIG.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("OCRDASH_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("read config file %s", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("parse config file %s", path), err)
		}
	}

	mergeWithEnv(cfg)
	return cfg, nil
}

func mergeWithEnv(c *Config) {
	c.Backend.URL = strings.TrimRight(getEnv("BACKEND_URL", c.Backend.URL), "/")
	c.Backend.Timeout = getEnvAsDuration("BACKEND_TIMEOUT", c.Backend.Timeout)
	c.Backend.Token = getEnv("OCR_ACCESS_TOKEN", c.Backend.Token)

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.HealthGRPCAddr = getEnv("HEALTH_GRPC_ADDR", c.Server.HealthGRPCAddr)
	c.Server.SessionCookie = getEnv("SESSION_COOKIE", c.Server.SessionCookie)
	c.Server.MaxUploadBytes = getEnvAsInt64("MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)
	c.Server.MaxConcurrentUploads = getEnvAsInt64("MAX_CONCURRENT_UPLOADS", c.Server.MaxConcurrentUploads)
	c.Server.RateLimitEvery = getEnvAsDuration("RATE_LIMIT_EVERY", c.Server.RateLimitEvery)
	c.Server.RateLimitBurst = getEnvAsInt("RATE_LIMIT_BURST", c.Server.RateLimitBurst)

	c.Session.Store = getEnv("SESSION_STORE", c.Session.Store)

	c.Preview.Pdftoppm = getEnv("PDFTOPPM", c.Preview.Pdftoppm)
	c.Preview.MaxPages = getEnvAsInt("PREVIEW_MAX_PAGES", c.Preview.MaxPages)

	c.Export.Local = getEnvAsBool("EXPORT_LOCAL", c.Export.Local)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("backend.url", c.Backend.URL, Required, HTTPURL).
		Field("server.http_addr", c.Server.HTTPAddr, Required).
		Field("server.session_cookie", c.Server.SessionCookie, Required).
		Field("server.max_upload_bytes", c.Server.MaxUploadBytes, Positive).
		Field("server.max_concurrent_uploads", c.Server.MaxConcurrentUploads, Positive).
		Field("session.store", c.Session.Store, Required, SessionStoreDSN).
		Field("preview.max_pages", c.Preview.MaxPages, Positive)
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
