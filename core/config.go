package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the storefront service.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority)
//
// Example usage:
//
//	cfg, err := NewConfig(
//	    WithName("lna-storefront"),
//	    WithPort(8080),
//	    WithBackendURL("https://api.lnadoceria.com.br"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	// Core configuration
	Name    string `json:"name" yaml:"name" env:"STOREFRONT_NAME"`
	ID      string `json:"id" yaml:"id" env:"STOREFRONT_ID"`
	Port    int    `json:"port" yaml:"port" env:"STOREFRONT_PORT" default:"8080"`
	Address string `json:"address" yaml:"address" env:"STOREFRONT_ADDRESS"`

	// HTTP Server configuration
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// Backend REST API configuration
	Backend BackendConfig `json:"backend" yaml:"backend"`

	// Cart storage configuration
	Cart CartConfig `json:"cart" yaml:"cart"`

	// Catalog cache configuration
	Cache CacheConfig `json:"cache" yaml:"cache"`

	// Checkout handoff configuration
	Checkout CheckoutConfig `json:"checkout" yaml:"checkout"`

	// Admin auth gate configuration
	Auth AuthConfig `json:"auth" yaml:"auth"`

	// Telemetry configuration (optional module)
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Development configuration
	Development DevelopmentConfig `json:"development" yaml:"development"`
}

// HTTPConfig contains HTTP server configuration including timeouts, limits,
// and CORS settings. All timeout values use time.Duration for flexibility.
type HTTPConfig struct {
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" env:"STOREFRONT_HTTP_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" env:"STOREFRONT_HTTP_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout" env:"STOREFRONT_HTTP_IDLE_TIMEOUT" default:"120s"`
	MaxHeaderBytes  int           `json:"max_header_bytes" yaml:"max_header_bytes" env:"STOREFRONT_HTTP_MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" env:"STOREFRONT_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	HealthCheckPath string        `json:"health_check_path" yaml:"health_check_path" env:"STOREFRONT_HTTP_HEALTH_PATH" default:"/health"`
	CORS            CORSConfig    `json:"cors" yaml:"cors"`
}

// CORSConfig contains Cross-Origin Resource Sharing (CORS) configuration.
// Supports wildcard domains (e.g., *.example.com) and wildcard ports
// (e.g., http://localhost:*).
//
// Security note: Be cautious with AllowCredentials=true and ensure
// AllowedOrigins is properly restricted in production environments.
type CORSConfig struct {
	Enabled          bool     `json:"enabled" yaml:"enabled" env:"STOREFRONT_CORS_ENABLED" default:"false"`
	AllowedOrigins   []string `json:"allowed_origins" yaml:"allowed_origins" env:"STOREFRONT_CORS_ORIGINS"`
	AllowedMethods   []string `json:"allowed_methods" yaml:"allowed_methods" env:"STOREFRONT_CORS_METHODS" default:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `json:"allowed_headers" yaml:"allowed_headers" env:"STOREFRONT_CORS_HEADERS" default:"Content-Type,Authorization"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials" env:"STOREFRONT_CORS_CREDENTIALS" default:"false"`
	MaxAge           int      `json:"max_age" yaml:"max_age" env:"STOREFRONT_CORS_MAX_AGE" default:"86400"`
}

// BackendConfig contains the remote catalog backend configuration.
// The storefront is a thin layer over this REST API; every product,
// category, flavor and display-section read or write goes through it.
type BackendConfig struct {
	BaseURL         string        `json:"base_url" yaml:"base_url" env:"STOREFRONT_BACKEND_URL,BACKEND_API_URL"`
	Timeout         time.Duration `json:"timeout" yaml:"timeout" env:"STOREFRONT_BACKEND_TIMEOUT" default:"15s"`
	DefaultPageSize int           `json:"default_page_size" yaml:"default_page_size" env:"STOREFRONT_BACKEND_PAGE_SIZE" default:"10"`
	RetryEnabled    bool          `json:"retry_enabled" yaml:"retry_enabled" env:"STOREFRONT_BACKEND_RETRY" default:"false"`
	RetryAttempts   int           `json:"retry_attempts" yaml:"retry_attempts" env:"STOREFRONT_BACKEND_RETRY_ATTEMPTS" default:"3"`
}

// CartConfig contains cart persistence configuration.
// Supports in-memory storage (default) or Redis for durable carts.
type CartConfig struct {
	Provider string        `json:"provider" yaml:"provider" env:"STOREFRONT_CART_PROVIDER" default:"inmemory"`
	RedisURL string        `json:"redis_url" yaml:"redis_url" env:"STOREFRONT_CART_REDIS_URL,REDIS_URL"`
	TTL      time.Duration `json:"ttl" yaml:"ttl" env:"STOREFRONT_CART_TTL" default:"720h"`
}

// CacheConfig contains catalog cache configuration. The cache is
// app-scoped and injected into the catalog service; entries expire after
// TTL and the whole partition for a resource is evicted on writes.
type CacheConfig struct {
	Enabled bool          `json:"enabled" yaml:"enabled" env:"STOREFRONT_CACHE_ENABLED" default:"true"`
	TTL     time.Duration `json:"ttl" yaml:"ttl" env:"STOREFRONT_CACHE_TTL" default:"5m"`
	MaxSize int           `json:"max_size" yaml:"max_size" env:"STOREFRONT_CACHE_MAX_SIZE" default:"1000"`
}

// CheckoutConfig contains the outbound messaging handoff configuration.
// Checkout composes a pre-filled text message and hands it to an external
// messaging deep link; no payment processing happens here.
type CheckoutConfig struct {
	WhatsAppNumber string `json:"whatsapp_number" yaml:"whatsapp_number" env:"STOREFRONT_WHATSAPP_NUMBER"`
	Greeting       string `json:"greeting" yaml:"greeting" env:"STOREFRONT_CHECKOUT_GREETING" default:"Olá! Gostaria de fazer um pedido:"`
}

// AuthConfig contains the admin auth gate configuration.
// Access control is presence-of-token only; token verification is the
// backend's responsibility.
type AuthConfig struct {
	AdminPathPrefix string `json:"admin_path_prefix" yaml:"admin_path_prefix" env:"STOREFRONT_ADMIN_PREFIX" default:"/admin"`
	LoginPath       string `json:"login_path" yaml:"login_path" env:"STOREFRONT_LOGIN_PATH" default:"/login"`
	TokenHeader     string `json:"token_header" yaml:"token_header" env:"STOREFRONT_TOKEN_HEADER" default:"Authorization"`
	TokenCookie     string `json:"token_cookie" yaml:"token_cookie" env:"STOREFRONT_TOKEN_COOKIE" default:"lna_token"`
}

// TelemetryConfig contains observability configuration for metrics and
// distributed tracing. This is an optional module - telemetry is only
// initialized when Enabled=true. Supports OpenTelemetry (OTEL) protocol.
type TelemetryConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled" env:"STOREFRONT_TELEMETRY_ENABLED" default:"false"`
	Endpoint       string `json:"endpoint" yaml:"endpoint" env:"STOREFRONT_TELEMETRY_ENDPOINT,OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName    string `json:"service_name" yaml:"service_name" env:"STOREFRONT_TELEMETRY_SERVICE_NAME,OTEL_SERVICE_NAME"`
	MetricsEnabled bool   `json:"metrics_enabled" yaml:"metrics_enabled" env:"STOREFRONT_TELEMETRY_METRICS" default:"true"`
	TracingEnabled bool   `json:"tracing_enabled" yaml:"tracing_enabled" env:"STOREFRONT_TELEMETRY_TRACING" default:"true"`
	Insecure       bool   `json:"insecure" yaml:"insecure" env:"STOREFRONT_TELEMETRY_INSECURE" default:"true"`
}

// LoggingConfig contains logging configuration.
// Supports structured (JSON) and human-readable (text) formats.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"STOREFRONT_LOG_LEVEL" default:"info"`
	Format string `json:"format" yaml:"format" env:"STOREFRONT_LOG_FORMAT" default:"json"`
	Output string `json:"output" yaml:"output" env:"STOREFRONT_LOG_OUTPUT" default:"stdout"`
}

// DevelopmentConfig contains settings for local development and testing.
// When Enabled=true, development-friendly defaults apply: human-readable
// logs and debug logging.
//
// WARNING: Never enable development mode in production!
type DevelopmentConfig struct {
	Enabled      bool `json:"enabled" yaml:"enabled" env:"STOREFRONT_DEV_MODE" default:"false"`
	MockBackend  bool `json:"mock_backend" yaml:"mock_backend" env:"STOREFRONT_MOCK_BACKEND" default:"false"`
	DebugLogging bool `json:"debug_logging" yaml:"debug_logging" env:"STOREFRONT_DEBUG" default:"false"`
}

// Option is a functional option for configuring the service.
// Options are applied in order and can return an error if the
// configuration is invalid.
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults.
// These defaults can be overridden using functional options or
// environment variables.
func DefaultConfig() *Config {
	return &Config{
		Name: "lna-storefront",
		Port: 8080,
		HTTP: HTTPConfig{
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 10 * time.Second,
			HealthCheckPath: "/health",
			CORS: CORSConfig{
				Enabled:        false,
				AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Authorization"},
				MaxAge:         86400,
			},
		},
		Backend: BackendConfig{
			Timeout:         15 * time.Second,
			DefaultPageSize: 10,
			RetryEnabled:    false,
			RetryAttempts:   3,
		},
		Cart: CartConfig{
			Provider: "inmemory",
			TTL:      30 * 24 * time.Hour,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     5 * time.Minute,
			MaxSize: 1000,
		},
		Checkout: CheckoutConfig{
			Greeting: "Olá! Gostaria de fazer um pedido:",
		},
		Auth: AuthConfig{
			AdminPathPrefix: "/admin",
			LoginPath:       "/login",
			TokenHeader:     "Authorization",
			TokenCookie:     "lna_token",
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			MetricsEnabled: true,
			TracingEnabled: true,
			Insecure:       true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
// Only variables that are actually set override the current values.
func (c *Config) LoadFromEnv() error {
	// Core settings
	if v := os.Getenv("STOREFRONT_NAME"); v != "" {
		c.Name = v
	}
	if v := os.Getenv("STOREFRONT_ID"); v != "" {
		c.ID = v
	}
	if v := os.Getenv("STOREFRONT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("STOREFRONT_ADDRESS"); v != "" {
		c.Address = v
	}

	// HTTP settings
	if v := os.Getenv("STOREFRONT_HTTP_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.HTTP.ReadTimeout = d
		}
	}
	if v := os.Getenv("STOREFRONT_HTTP_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.HTTP.WriteTimeout = d
		}
	}

	// CORS settings
	if v := os.Getenv("STOREFRONT_CORS_ENABLED"); v != "" {
		c.HTTP.CORS.Enabled = parseBool(v)
	}
	if v := os.Getenv("STOREFRONT_CORS_ORIGINS"); v != "" {
		c.HTTP.CORS.AllowedOrigins = parseStringList(v)
	}
	if v := os.Getenv("STOREFRONT_CORS_METHODS"); v != "" {
		c.HTTP.CORS.AllowedMethods = parseStringList(v)
	}
	if v := os.Getenv("STOREFRONT_CORS_HEADERS"); v != "" {
		c.HTTP.CORS.AllowedHeaders = parseStringList(v)
	}
	if v := os.Getenv("STOREFRONT_CORS_CREDENTIALS"); v != "" {
		c.HTTP.CORS.AllowCredentials = parseBool(v)
	}

	// Backend settings
	if v := os.Getenv("STOREFRONT_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	} else if v := os.Getenv("BACKEND_API_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("STOREFRONT_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Backend.Timeout = d
		}
	}
	if v := os.Getenv("STOREFRONT_BACKEND_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Backend.DefaultPageSize = n
		}
	}
	if v := os.Getenv("STOREFRONT_BACKEND_RETRY"); v != "" {
		c.Backend.RetryEnabled = parseBool(v)
	}

	// Cart settings
	if v := os.Getenv("STOREFRONT_CART_PROVIDER"); v != "" {
		c.Cart.Provider = v
	}
	if v := os.Getenv("STOREFRONT_CART_REDIS_URL"); v != "" {
		c.Cart.RedisURL = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.Cart.RedisURL = v
	}
	if v := os.Getenv("STOREFRONT_CART_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Cart.TTL = d
		}
	}

	// Cache settings
	if v := os.Getenv("STOREFRONT_CACHE_ENABLED"); v != "" {
		c.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("STOREFRONT_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Cache.TTL = d
		}
	}
	if v := os.Getenv("STOREFRONT_CACHE_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.MaxSize = n
		}
	}

	// Checkout settings
	if v := os.Getenv("STOREFRONT_WHATSAPP_NUMBER"); v != "" {
		c.Checkout.WhatsAppNumber = v
	}
	if v := os.Getenv("STOREFRONT_CHECKOUT_GREETING"); v != "" {
		c.Checkout.Greeting = v
	}

	// Auth settings
	if v := os.Getenv("STOREFRONT_ADMIN_PREFIX"); v != "" {
		c.Auth.AdminPathPrefix = v
	}
	if v := os.Getenv("STOREFRONT_LOGIN_PATH"); v != "" {
		c.Auth.LoginPath = v
	}
	if v := os.Getenv("STOREFRONT_TOKEN_COOKIE"); v != "" {
		c.Auth.TokenCookie = v
	}

	// Telemetry settings
	if v := os.Getenv("STOREFRONT_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v := os.Getenv("STOREFRONT_TELEMETRY_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true // Auto-enable if endpoint is provided
	} else if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true
	}
	if v := os.Getenv("STOREFRONT_TELEMETRY_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	} else if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	} else if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.Name
	}

	// Logging settings
	if v := os.Getenv("STOREFRONT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STOREFRONT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	// Development settings
	if v := os.Getenv("STOREFRONT_DEV_MODE"); v != "" {
		c.Development.Enabled = parseBool(v)
		if c.Development.Enabled {
			c.Logging.Level = "debug"
			c.Logging.Format = "text"
		}
	}
	if v := os.Getenv("STOREFRONT_MOCK_BACKEND"); v != "" {
		c.Development.MockBackend = parseBool(v)
	}
	if v := os.Getenv("STOREFRONT_DEBUG"); v != "" {
		c.Development.DebugLogging = parseBool(v)
		if c.Development.DebugLogging {
			c.Logging.Level = "debug"
		}
	}

	return nil
}

// LoadFromFile loads configuration from a JSON or YAML file.
// File settings override environment variables but are overridden by
// functional options.
func (c *Config) LoadFromFile(path string) error {
	// Clean the path to prevent directory traversal attacks
	cleanPath := filepath.Clean(path)

	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config file extension %s: %w", ext, ErrInvalidConfiguration)
	}

	if !filepath.IsAbs(cleanPath) {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		cleanPath = filepath.Join(wd, cleanPath)
	}

	data, err := os.ReadFile(filepath.Clean(cleanPath)) // nosec G304 -- path is validated
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %w", ErrInvalidConfiguration)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %w", ErrInvalidConfiguration)
		}
	}

	return nil
}

// Validate checks if the configuration is valid and returns an error if not.
// This method is called automatically by NewConfig() but can also be called
// manually after modifying configuration.
//
// Validation rules:
//   - Port must be between 1 and 65535
//   - Service name is required
//   - Backend base URL is required unless the mock backend is enabled
//   - Redis URL is required when the cart provider is redis
//   - Telemetry endpoint is required when telemetry is enabled
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return &StoreError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("invalid port: %d", c.Port),
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Name == "" {
		return &StoreError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "service name is required",
			Err:     ErrMissingConfiguration,
		}
	}

	if c.Backend.BaseURL == "" && !c.Development.MockBackend {
		return &StoreError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "backend base URL is required (or use mock backend in development)",
			Err:     ErrMissingConfiguration,
		}
	}

	if c.Cart.Provider == "redis" && c.Cart.RedisURL == "" {
		return &StoreError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "redis URL is required for Redis cart provider",
			Err:     ErrMissingConfiguration,
		}
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return &StoreError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "telemetry endpoint is required when telemetry is enabled",
			Err:     ErrMissingConfiguration,
		}
	}

	return nil
}

// Helper functions

// parseStringList splits a comma-separated string into a slice of strings.
// Whitespace is trimmed from each element, and empty strings are filtered out.
func parseStringList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseBool parses a boolean string, accepting common truthy values.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on", "enabled":
		return true
	default:
		return false
	}
}

// Functional options

// WithName sets the service name.
func WithName(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return fmt.Errorf("name cannot be empty: %w", ErrInvalidConfiguration)
		}
		c.Name = name
		return nil
	}
}

// WithPort sets the HTTP listen port.
func WithPort(port int) Option {
	return func(c *Config) error {
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port %d: %w", port, ErrInvalidConfiguration)
		}
		c.Port = port
		return nil
	}
}

// WithBackendURL sets the remote catalog backend base URL.
func WithBackendURL(url string) Option {
	return func(c *Config) error {
		if url == "" {
			return fmt.Errorf("backend URL cannot be empty: %w", ErrInvalidConfiguration)
		}
		c.Backend.BaseURL = strings.TrimRight(url, "/")
		return nil
	}
}

// WithCORS configures CORS with the given origins and credentials flag.
func WithCORS(origins []string, credentials bool) Option {
	return func(c *Config) error {
		c.HTTP.CORS.Enabled = true
		c.HTTP.CORS.AllowedOrigins = origins
		c.HTTP.CORS.AllowCredentials = credentials
		return nil
	}
}

// WithRedisCart enables Redis-backed cart persistence.
func WithRedisCart(redisURL string) Option {
	return func(c *Config) error {
		if redisURL == "" {
			return fmt.Errorf("redis URL cannot be empty: %w", ErrInvalidConfiguration)
		}
		c.Cart.Provider = "redis"
		c.Cart.RedisURL = redisURL
		return nil
	}
}

// WithCache configures the catalog cache.
func WithCache(enabled bool, ttl time.Duration, maxSize int) Option {
	return func(c *Config) error {
		if enabled && ttl <= 0 {
			return fmt.Errorf("cache TTL must be positive: %w", ErrInvalidConfiguration)
		}
		c.Cache.Enabled = enabled
		if ttl > 0 {
			c.Cache.TTL = ttl
		}
		if maxSize > 0 {
			c.Cache.MaxSize = maxSize
		}
		return nil
	}
}

// WithCheckout configures the checkout messaging handoff.
func WithCheckout(whatsAppNumber string) Option {
	return func(c *Config) error {
		c.Checkout.WhatsAppNumber = whatsAppNumber
		return nil
	}
}

// WithTelemetry enables telemetry with the given OTLP endpoint.
func WithTelemetry(enabled bool, endpoint string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = enabled
		if endpoint != "" {
			c.Telemetry.Endpoint = endpoint
		}
		return nil
	}
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "error":
			c.Logging.Level = strings.ToLower(level)
			return nil
		default:
			return fmt.Errorf("invalid log level %q: %w", level, ErrInvalidConfiguration)
		}
	}
}

// WithBackendRetry enables transparent retries on backend fetches.
// Disabled by default: a failed fetch is terminal for that call and the
// caller decides whether to repeat it.
func WithBackendRetry(attempts int) Option {
	return func(c *Config) error {
		if attempts < 1 {
			return fmt.Errorf("retry attempts must be at least 1: %w", ErrInvalidConfiguration)
		}
		c.Backend.RetryEnabled = true
		c.Backend.RetryAttempts = attempts
		return nil
	}
}

// WithDevelopmentMode enables development-friendly defaults.
func WithDevelopmentMode(enabled bool) Option {
	return func(c *Config) error {
		c.Development.Enabled = enabled
		if enabled {
			c.Logging.Level = "debug"
			c.Logging.Format = "text"
		}
		return nil
	}
}

// WithMockBackend enables the mock backend for development and tests.
func WithMockBackend(enabled bool) Option {
	return func(c *Config) error {
		c.Development.MockBackend = enabled
		return nil
	}
}

// WithConfigFile loads configuration from the given file.
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		return c.LoadFromFile(path)
	}
}

// NewConfig creates a configuration with the three-layer priority:
// defaults, then environment variables, then functional options.
// The resulting configuration is validated before being returned.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment configuration: %w", err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
